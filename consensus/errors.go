package consensus

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	TX_ERR_FORMAT         ErrorCode = "TX_ERR_FORMAT"
	TX_ERR_DUPLICATE      ErrorCode = "TX_ERR_DUPLICATE"
	TX_ERR_PUBKEY_INVALID ErrorCode = "TX_ERR_PUBKEY_INVALID"
	TX_ERR_SIG_INVALID    ErrorCode = "TX_ERR_SIG_INVALID"
	TX_ERR_POLICY_REJECT  ErrorCode = "TX_ERR_POLICY_REJECT"

	BLOCK_ERR_GENESIS_INVALID ErrorCode = "BLOCK_ERR_GENESIS_INVALID"
	BLOCK_ERR_LINKAGE_INVALID ErrorCode = "BLOCK_ERR_LINKAGE_INVALID"
	BLOCK_ERR_POW_INVALID     ErrorCode = "BLOCK_ERR_POW_INVALID"
	BLOCK_ERR_MERKLE_INVALID  ErrorCode = "BLOCK_ERR_MERKLE_INVALID"

	CHAIN_ERR_REJECTED ErrorCode = "CHAIN_ERR_REJECTED"

	POW_ERR_CANCELLED ErrorCode = "POW_ERR_CANCELLED"
	POW_ERR_EXHAUSTED ErrorCode = "POW_ERR_EXHAUSTED"
)

type ChainError struct {
	Code ErrorCode
	Msg  string
}

func (e *ChainError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func cerr(code ErrorCode, msg string) error {
	return &ChainError{Code: code, Msg: msg}
}

// CodeOf extracts the ErrorCode from err, or "" if err carries none.
func CodeOf(err error) ErrorCode {
	var ce *ChainError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
