package consensus

import (
	"strings"
	"testing"
)

func buildTestChain(t *testing.T, blocks int, txsPerBlock int) []Block {
	t.Helper()
	chain := []Block{GenesisBlock()}
	content := 0
	for i := 0; i < blocks; i++ {
		var txs []Transaction
		for j := 0; j < txsPerBlock; j++ {
			content++
			txs = append(txs, makeTestTx(t, "abcde.2pg", "img-"+strings.Repeat("x", content), int64(content)))
		}
		chain = append(chain, mineTestBlock(t, chain[len(chain)-1], txs, 0))
	}
	return chain
}

func TestValidateChainAcceptsWellFormedChain(t *testing.T) {
	chain := buildTestChain(t, 3, 2)
	if err := ValidateChain(chain); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateChainRejectsEmptyAndBadGenesis(t *testing.T) {
	if CodeOf(ValidateChain(nil)) != BLOCK_ERR_GENESIS_INVALID {
		t.Fatalf("empty chain not rejected as genesis-invalid")
	}

	chain := buildTestChain(t, 1, 1)
	chain[0].Timestamp = 99
	if CodeOf(ValidateChain(chain)) != BLOCK_ERR_GENESIS_INVALID {
		t.Fatalf("tampered genesis not rejected")
	}
}

func TestValidateChainDetectsTransactionTamper(t *testing.T) {
	chain := buildTestChain(t, 2, 2)

	// Mutate a historical transaction; the block header is untouched, so
	// the failure must come from the recomputed-merkle check.
	chain[1].Transactions[0].Timestamp++
	if CodeOf(ValidateChain(chain)) != BLOCK_ERR_MERKLE_INVALID {
		t.Fatalf("tampered tx not caught by merkle check: %v", ValidateChain(chain))
	}
}

func TestValidateChainDetectsBrokenLinkage(t *testing.T) {
	chain := buildTestChain(t, 2, 1)

	broken := CloneChain(chain)
	broken[2].PreviousHash = strings.Repeat("0", HashLen)
	if CodeOf(ValidateChain(broken)) != BLOCK_ERR_LINKAGE_INVALID {
		t.Fatalf("previous_hash mismatch not rejected")
	}

	skipped := CloneChain(chain)
	skipped[2].Index = 5
	if CodeOf(ValidateChain(skipped)) != BLOCK_ERR_LINKAGE_INVALID {
		t.Fatalf("non-sequential index not rejected")
	}
}

func TestValidateChainDetectsHashAndDifficultyViolations(t *testing.T) {
	chain := buildTestChain(t, 1, 1)

	renonced := CloneChain(chain)
	renonced[1].Nonce++
	if CodeOf(ValidateChain(renonced)) != BLOCK_ERR_POW_INVALID {
		t.Fatalf("stale stored hash not rejected")
	}

	// Difficulty raised after the fact: the hash recomputes but the
	// target is no longer met unless the digest happens to lead with
	// enough zero nibbles.
	harder := CloneChain(chain)
	harder[1].Difficulty = HashLen
	if CodeOf(ValidateChain(harder)) != BLOCK_ERR_POW_INVALID {
		t.Fatalf("difficulty violation not rejected")
	}
}

func TestValidateChainDetectsBadSignature(t *testing.T) {
	chain := buildTestChain(t, 1, 1)
	chain[1].Transactions[0].Signature[0] ^= 0x01

	// Re-seal the block so the failure is isolated to the signature.
	chain[1] = mineTestBlock(t, chain[0], chain[1].Transactions, 0)

	if CodeOf(ValidateChain(chain)) != TX_ERR_SIG_INVALID {
		t.Fatalf("bad signature not rejected: %v", ValidateChain(chain))
	}
}

func TestValidateTransactionOrdering(t *testing.T) {
	tx := makeTestTx(t, "abcde.2pg", "img", 1)

	bad := tx
	bad.SubjectID = "ABCDE.2pg"
	if CodeOf(ValidateTransaction(bad)) != TX_ERR_FORMAT {
		t.Fatalf("subject grammar not checked first")
	}

	badKey := CloneTransaction(tx)
	badKey.SenderPublicKey = []byte("not a pem key")
	if CodeOf(ValidateTransaction(badKey)) != TX_ERR_PUBKEY_INVALID {
		t.Fatalf("malformed key not rejected")
	}

	mutated := CloneTransaction(tx)
	mutated.Timestamp++
	if CodeOf(ValidateTransaction(mutated)) != TX_ERR_SIG_INVALID {
		t.Fatalf("mutated payload passed signature verification")
	}
}

func TestGenesisBlockDeterministic(t *testing.T) {
	a := GenesisBlock()
	b := GenesisBlock()
	if a.Hash != b.Hash || a.Hash != BlockHash(a) {
		t.Fatalf("genesis block is not deterministic")
	}
	if a.PreviousHash != GenesisPreviousHash || a.Index != 0 || len(a.Transactions) != 0 {
		t.Fatalf("genesis block malformed: %+v", a)
	}
}
