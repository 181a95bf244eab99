package consensus

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strconv"
)

const (
	// powPollBatch bounds how many nonces are tried between cancellation
	// checks. The check is the solver's only suspension point, so this
	// also bounds worst-case cancellation latency.
	powPollBatch = 4096

	// maxNonce keeps the decimal nonce within the non-negative 63-bit range.
	maxNonce = uint64(math.MaxInt64)
)

type PowResult struct {
	Nonce uint64
	Hash  string
}

// Solve searches nonce = 0, 1, 2, ... for the first digest of
//
//	prefix || decimal(nonce) || suffix
//
// whose leading difficulty hex nibbles are all zero. Difficulty 0 accepts
// immediately at nonce 0. Returns POW_ERR_CANCELLED once ctx is done and
// POW_ERR_EXHAUSTED if the nonce space is consumed without a solution.
// The returned nonce is always the lowest satisfying one.
func Solve(ctx context.Context, prefix, suffix string, difficulty int) (PowResult, error) {
	if difficulty < 0 {
		return PowResult{}, cerr(BLOCK_ERR_POW_INVALID, "negative difficulty")
	}

	buf := make([]byte, 0, len(prefix)+20+len(suffix))
	buf = append(buf, prefix...)

	for nonce := uint64(0); ; nonce++ {
		if nonce%powPollBatch == 0 && ctx != nil {
			select {
			case <-ctx.Done():
				return PowResult{}, cerr(POW_ERR_CANCELLED, ctx.Err().Error())
			default:
			}
		}

		candidate := strconv.AppendUint(buf, nonce, 10)
		candidate = append(candidate, suffix...)
		sum := sha256.Sum256(candidate)
		if leadingZeroNibbles(sum, difficulty) {
			return PowResult{Nonce: nonce, Hash: hex.EncodeToString(sum[:])}, nil
		}

		if nonce == maxNonce {
			return PowResult{}, cerr(POW_ERR_EXHAUSTED, "nonce space exhausted")
		}
	}
}

func leadingZeroNibbles(sum [sha256.Size]byte, n int) bool {
	if n > 2*len(sum) {
		return false
	}
	for i := 0; i < n; i++ {
		b := sum[i/2]
		nib := b >> 4
		if i%2 == 1 {
			nib = b & 0x0f
		}
		if nib != 0 {
			return false
		}
	}
	return true
}

// CheckPow reports whether hashHex meets the difficulty target: its first
// difficulty hex characters are '0'.
func CheckPow(hashHex string, difficulty int) bool {
	if difficulty < 0 || difficulty > len(hashHex) {
		return false
	}
	for i := 0; i < difficulty; i++ {
		if hashHex[i] != '0' {
			return false
		}
	}
	return true
}
