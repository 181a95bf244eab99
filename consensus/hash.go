package consensus

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashLen is the length of a hex-encoded SHA-256 digest.
const HashLen = 64

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// SHA256Hex returns the lowercase hex SHA-256 digest of b. Every digest in
// the ledger (content hashes, leaf hashes, block hashes) uses this encoding.
func SHA256Hex(b []byte) string {
	return sha256Hex(b)
}
