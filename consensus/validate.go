package consensus

import (
	"fmt"

	"twopidgeons.dev/node/crypto"
)

// ValidateTransaction checks the subject-ID grammar first, then decodes the
// embedded public key and verifies the signature over the signing payload.
func ValidateTransaction(tx Transaction) error {
	if !ValidSubjectID(tx.SubjectID) {
		return cerr(TX_ERR_FORMAT, fmt.Sprintf("malformed subject_id %q", tx.SubjectID))
	}
	pub, err := crypto.DecodePublicKey(tx.SenderPublicKey)
	if err != nil {
		return cerr(TX_ERR_PUBKEY_INVALID, err.Error())
	}
	if !crypto.Verify(pub, tx.SigningPayload(), tx.Signature) {
		return cerr(TX_ERR_SIG_INVALID, fmt.Sprintf("sender %q", tx.SenderID))
	}
	return nil
}

// ValidateChain structurally validates a candidate chain in index order:
// genesis equality, linkage, header hash + difficulty target, Merkle
// commitment, and every transaction's signature. The first failure voids
// the whole candidate.
func ValidateChain(chain []Block) error {
	if len(chain) == 0 {
		return cerr(BLOCK_ERR_GENESIS_INVALID, "empty chain")
	}
	if err := validateGenesis(chain[0]); err != nil {
		return err
	}
	for i := 1; i < len(chain); i++ {
		prev := chain[i-1]
		b := chain[i]
		if b.Index != prev.Index+1 {
			return cerr(BLOCK_ERR_LINKAGE_INVALID, fmt.Sprintf("block %d: index not sequential", b.Index))
		}
		if b.PreviousHash != prev.Hash {
			return cerr(BLOCK_ERR_LINKAGE_INVALID, fmt.Sprintf("block %d: previous_hash mismatch", b.Index))
		}
		if err := validateBlock(b); err != nil {
			return err
		}
	}
	return nil
}

func validateGenesis(b Block) error {
	g := GenesisBlock()
	if b.Index != 0 || b.Timestamp != g.Timestamp || len(b.Transactions) != 0 ||
		b.PreviousHash != GenesisPreviousHash || b.MerkleRoot != g.MerkleRoot ||
		b.Nonce != 0 || b.Difficulty != 0 || b.Hash != g.Hash {
		return cerr(BLOCK_ERR_GENESIS_INVALID, "genesis block mismatch")
	}
	return nil
}

func validateBlock(b Block) error {
	if BlockHash(b) != b.Hash {
		return cerr(BLOCK_ERR_POW_INVALID, fmt.Sprintf("block %d: header hash mismatch", b.Index))
	}
	if !CheckPow(b.Hash, b.Difficulty) {
		return cerr(BLOCK_ERR_POW_INVALID, fmt.Sprintf("block %d: difficulty target not met", b.Index))
	}
	if MerkleRoot(b.Transactions) != b.MerkleRoot {
		return cerr(BLOCK_ERR_MERKLE_INVALID, fmt.Sprintf("block %d: merkle root mismatch", b.Index))
	}
	for i, tx := range b.Transactions {
		if err := ValidateTransaction(tx); err != nil {
			return fmt.Errorf("block %d tx %d: %w", b.Index, i, err)
		}
	}
	return nil
}
