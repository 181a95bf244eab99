package node

import "twopidgeons.dev/node/consensus"

// Binder maps a transaction and its admission context onto the policy
// interpreter's variable slots. The index→field binding is a caller-level
// convention, not something the interpreter infers.
type Binder func(tx consensus.Transaction, nextHeight uint64, pendingSize int) []float64

// DefaultBinder is the node's documented convention:
//
//	vars[0] = transaction timestamp (unix seconds)
//	vars[1] = height the next block would have
//	vars[2] = pending-pool size at admission time
func DefaultBinder(tx consensus.Transaction, nextHeight uint64, pendingSize int) []float64 {
	return []float64{float64(tx.Timestamp), float64(nextHeight), float64(pendingSize)}
}

// PolicyConfig gates transaction admission with a bytecode predicate.
// A nil Bind falls back to DefaultBinder.
type PolicyConfig struct {
	Bytecode []byte
	Bind     Binder
}
