// Package node owns the canonical ledger: the chain, the pending pool, and
// the operations that mutate them (admission, mining, conflict resolution).
// All shared state lives behind one mutex; mining is the only operation
// that runs concurrently with it and commits through a tip re-check.
package node

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"twopidgeons.dev/node/consensus"
	"twopidgeons.dev/node/policy"
)

var unixNow = func() int64 { return time.Now().Unix() }

// Persister receives the canonical chain after every successful mine or
// resolve. The store package provides the bbolt implementation.
type Persister interface {
	SaveChain(chain []consensus.Block) error
}

type LedgerConfig struct {
	// Difficulty is applied to every block this node mines. Incoming
	// blocks carry their own difficulty and are validated against it.
	Difficulty int

	// Keys optionally cross-checks each transaction's embedded public key
	// against the key-management collaborator's directory.
	Keys KeyDirectory

	// Persist, when set, is notified after every chain mutation.
	Persist Persister

	// Policy optionally gates admission with a bytecode predicate.
	// Evaluation faults reject the transaction (fail-closed).
	Policy *PolicyConfig

	TimestampSource func() int64
}

func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		Difficulty:      4,
		TimestampSource: unixNow,
	}
}

// Ledger is the chain manager. It exclusively owns the canonical chain and
// the pending pool; blocks and transactions are deep-copied on the way in
// and out so appended state is never shared with callers.
type Ledger struct {
	mu      sync.Mutex
	chain   []consensus.Block
	pending []consensus.Transaction
	cfg     LedgerConfig
}

// NewLedger builds a ledger from a previously persisted chain, or from a
// fresh genesis block when initial is empty. A non-empty initial chain is
// fully validated first.
func NewLedger(cfg LedgerConfig, initial []consensus.Block) (*Ledger, error) {
	if cfg.Difficulty < 0 || cfg.Difficulty > consensus.HashLen {
		return nil, fmt.Errorf("difficulty out of range: %d", cfg.Difficulty)
	}
	if cfg.TimestampSource == nil {
		cfg.TimestampSource = unixNow
	}
	if cfg.Policy != nil {
		pc := *cfg.Policy
		if pc.Bind == nil {
			pc.Bind = DefaultBinder
		}
		cfg.Policy = &pc
	}

	var chain []consensus.Block
	if len(initial) == 0 {
		chain = []consensus.Block{consensus.GenesisBlock()}
	} else {
		if err := consensus.ValidateChain(initial); err != nil {
			return nil, fmt.Errorf("initial chain: %w", err)
		}
		chain = consensus.CloneChain(initial)
	}
	return &Ledger{chain: chain, cfg: cfg}, nil
}

// AddTransaction validates tx (grammar, key, signature, duplicates, policy
// predicate) and appends it to the pending pool. On any failure the pool is
// unchanged and a typed error is returned.
func (l *Ledger) AddTransaction(tx consensus.Transaction) error {
	if err := consensus.ValidateTransaction(tx); err != nil {
		return err
	}
	if l.cfg.Keys != nil {
		if pem, ok := l.cfg.Keys.PublicKeyPEM(tx.SenderID); ok && !bytes.Equal(pem, tx.SenderPublicKey) {
			return &consensus.ChainError{
				Code: consensus.TX_ERR_PUBKEY_INVALID,
				Msg:  fmt.Sprintf("embedded key does not match directory entry for %q", tx.SenderID),
			}
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.containsContentHashLocked(tx.ContentHash) {
		return &consensus.ChainError{
			Code: consensus.TX_ERR_DUPLICATE,
			Msg:  fmt.Sprintf("content hash %s already recorded", tx.ContentHash),
		}
	}
	if l.cfg.Policy != nil {
		vars := l.cfg.Policy.Bind(tx, uint64(len(l.chain)), len(l.pending))
		ok, err := policy.Evaluate(l.cfg.Policy.Bytecode, vars)
		if err != nil {
			return &consensus.ChainError{Code: consensus.TX_ERR_POLICY_REJECT, Msg: err.Error()}
		}
		if !ok {
			return &consensus.ChainError{Code: consensus.TX_ERR_POLICY_REJECT, Msg: "predicate evaluated to false"}
		}
	}

	l.pending = append(l.pending, consensus.CloneTransaction(tx))
	return nil
}

// MineBlock snapshots the pending pool, solves the proof of work without
// holding the lock, and commits the block if the tip is still the one it
// was mined on. If a resolve replaced the chain meanwhile the result is
// discarded with CHAIN_ERR_REJECTED and the pool is left unchanged, as it
// is on cancellation.
func (l *Ledger) MineBlock(ctx context.Context) (consensus.Block, error) {
	return l.mineBlockLimit(ctx, 0)
}

func (l *Ledger) mineBlockLimit(ctx context.Context, maxTx int) (consensus.Block, error) {
	l.mu.Lock()
	tip := l.chain[len(l.chain)-1]
	n := len(l.pending)
	if maxTx > 0 && n > maxTx {
		n = maxTx
	}
	txs := make([]consensus.Transaction, n)
	for i := 0; i < n; i++ {
		txs[i] = consensus.CloneTransaction(l.pending[i])
	}
	b := consensus.Block{
		Index:        tip.Index + 1,
		Timestamp:    l.cfg.TimestampSource(),
		Transactions: txs,
		PreviousHash: tip.Hash,
		MerkleRoot:   consensus.MerkleRoot(txs),
		Difficulty:   l.cfg.Difficulty,
	}
	l.mu.Unlock()

	// The search owns only local state; admissions and resolves stay live.
	res, err := consensus.Solve(ctx, consensus.HeaderPrefix(b), consensus.HeaderSuffix(b), b.Difficulty)
	if err != nil {
		return consensus.Block{}, err
	}
	b.Nonce = res.Nonce
	b.Hash = res.Hash

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.chain[len(l.chain)-1].Hash != b.PreviousHash {
		return consensus.Block{}, &consensus.ChainError{
			Code: consensus.CHAIN_ERR_REJECTED,
			Msg:  "chain advanced during mining",
		}
	}
	l.chain = append(l.chain, b)
	l.dropPendingLocked(txs)
	if err := l.persistLocked(); err != nil {
		return consensus.Block{}, err
	}
	return consensus.CloneBlock(b), nil
}

// Resolve applies the longest-chain rule: a fully valid candidate strictly
// longer than the canonical chain replaces it atomically; anything else is
// rejected without mutation (the incumbent wins ties). On replacement the
// pending pool is reconciled: transactions carried by the new chain are
// dropped, and transactions that only existed in superseded local blocks
// are re-queued.
func (l *Ledger) Resolve(candidate []consensus.Block) error {
	cand := consensus.CloneChain(candidate)
	// Validation is read-only against the candidate snapshot; the lock is
	// held only for the final compare-and-swap.
	if err := consensus.ValidateChain(cand); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(cand) <= len(l.chain) {
		return &consensus.ChainError{
			Code: consensus.CHAIN_ERR_REJECTED,
			Msg:  fmt.Sprintf("candidate length %d does not exceed local length %d", len(cand), len(l.chain)),
		}
	}

	inCandidate := make(map[string]struct{})
	for _, b := range cand {
		for _, tx := range b.Transactions {
			inCandidate[tx.TxID()] = struct{}{}
		}
	}

	var requeue []consensus.Transaction
	for _, b := range l.chain {
		for _, tx := range b.Transactions {
			if _, ok := inCandidate[tx.TxID()]; !ok {
				requeue = append(requeue, tx)
			}
		}
	}
	kept := l.pending[:0:0]
	for _, tx := range l.pending {
		if _, ok := inCandidate[tx.TxID()]; !ok {
			kept = append(kept, tx)
		}
	}

	l.chain = cand
	l.pending = append(requeue, kept...)
	return l.persistLocked()
}

// Chain returns a deep-copy snapshot of the canonical chain for the
// network collaborator to broadcast.
func (l *Ledger) Chain() []consensus.Block {
	l.mu.Lock()
	defer l.mu.Unlock()
	return consensus.CloneChain(l.chain)
}

// Tip returns a copy of the latest block.
func (l *Ledger) Tip() consensus.Block {
	l.mu.Lock()
	defer l.mu.Unlock()
	return consensus.CloneBlock(l.chain[len(l.chain)-1])
}

// Height returns the number of blocks in the canonical chain.
func (l *Ledger) Height() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.chain)
}

func (l *Ledger) PendingCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// PendingTransactions returns a copy of the pool in insertion order.
func (l *Ledger) PendingTransactions() []consensus.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]consensus.Transaction, len(l.pending))
	for i, tx := range l.pending {
		out[i] = consensus.CloneTransaction(tx)
	}
	return out
}

// FindTransaction looks up a committed transaction by content hash.
func (l *Ledger) FindTransaction(contentHash string) (consensus.Transaction, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, b := range l.chain {
		for _, tx := range b.Transactions {
			if tx.ContentHash == contentHash {
				return consensus.CloneTransaction(tx), true
			}
		}
	}
	return consensus.Transaction{}, false
}

func (l *Ledger) containsContentHashLocked(contentHash string) bool {
	for _, tx := range l.pending {
		if tx.ContentHash == contentHash {
			return true
		}
	}
	for _, b := range l.chain {
		for _, tx := range b.Transactions {
			if tx.ContentHash == contentHash {
				return true
			}
		}
	}
	return false
}

func (l *Ledger) dropPendingLocked(mined []consensus.Transaction) {
	drained := make(map[string]struct{}, len(mined))
	for _, tx := range mined {
		drained[tx.TxID()] = struct{}{}
	}
	kept := l.pending[:0]
	for _, tx := range l.pending {
		if _, ok := drained[tx.TxID()]; !ok {
			kept = append(kept, tx)
		}
	}
	l.pending = kept
}

func (l *Ledger) persistLocked() error {
	if l.cfg.Persist == nil {
		return nil
	}
	if err := l.cfg.Persist.SaveChain(consensus.CloneChain(l.chain)); err != nil {
		return fmt.Errorf("persist chain: %w", err)
	}
	return nil
}
