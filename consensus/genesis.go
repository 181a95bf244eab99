package consensus

// GenesisPreviousHash is the previous-hash sentinel carried by block 0.
const GenesisPreviousHash = "0"

// GenesisBlock returns the fixed first block of every chain: index 0, no
// transactions, zero difficulty, sentinel previous hash. Deterministic, so
// independently grown ledgers agree on block 0 by construction.
func GenesisBlock() Block {
	b := Block{
		Index:        0,
		Timestamp:    0,
		Transactions: nil,
		PreviousHash: GenesisPreviousHash,
		MerkleRoot:   MerkleRoot(nil),
		Nonce:        0,
		Difficulty:   0,
	}
	b.Hash = BlockHash(b)
	return b
}
