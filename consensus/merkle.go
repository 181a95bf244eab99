package consensus

// MerkleRoot commits an ordered transaction sequence to a single hex digest.
//
// Leaves are the SHA-256 hex digests of each transaction's canonical bytes.
// Each level pairs digests left to right; the parent is the digest of the
// concatenated hex strings (left||right). An unpaired trailing digest is
// duplicated as its own right sibling. The empty sequence commits to the
// digest of the empty byte string, and a single leaf is its own root.
//
// The reduction is order-sensitive: permuting the input changes the root.
func MerkleRoot(txs []Transaction) string {
	if len(txs) == 0 {
		return sha256Hex(nil)
	}

	level := make([]string, len(txs))
	for i, tx := range txs {
		level[i] = tx.TxID()
	}

	for len(level) > 1 {
		next := make([]string, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left
			if i+1 < len(level) {
				right = level[i+1]
			}
			next = append(next, sha256Hex([]byte(left+right)))
		}
		level = next
	}

	return level[0]
}
