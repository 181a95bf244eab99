package node

import (
	"context"
	"errors"

	"twopidgeons.dev/node/consensus"
)

type MinerConfig struct {
	// MaxTxPerBlock caps how many pending transactions a single block
	// drains, oldest first. 0 means no cap.
	MaxTxPerBlock int
}

func DefaultMinerConfig() MinerConfig {
	return MinerConfig{MaxTxPerBlock: 1024}
}

type MinedBlock struct {
	Index     uint64
	Hash      string
	Timestamp int64
	Nonce     uint64
	TxCount   int
}

// Miner drives block production against a ledger. It holds no chain state
// of its own; all commits go through the ledger's tip re-check.
type Miner struct {
	ledger *Ledger
	cfg    MinerConfig
}

func NewMiner(ledger *Ledger, cfg MinerConfig) (*Miner, error) {
	if ledger == nil {
		return nil, errors.New("nil ledger")
	}
	if cfg.MaxTxPerBlock < 0 {
		cfg.MaxTxPerBlock = 0
	}
	return &Miner{ledger: ledger, cfg: cfg}, nil
}

func (m *Miner) MineOne(ctx context.Context) (*MinedBlock, error) {
	b, err := m.ledger.mineBlockLimit(ctx, m.cfg.MaxTxPerBlock)
	if err != nil {
		return nil, err
	}
	return &MinedBlock{
		Index:     b.Index,
		Hash:      b.Hash,
		Timestamp: b.Timestamp,
		Nonce:     b.Nonce,
		TxCount:   len(b.Transactions),
	}, nil
}

func (m *Miner) MineN(ctx context.Context, blocks int) ([]MinedBlock, error) {
	if blocks < 0 {
		return nil, errors.New("blocks must be >= 0")
	}
	out := make([]MinedBlock, 0, blocks)
	for i := 0; i < blocks; i++ {
		mb, err := m.MineOne(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, *mb)
	}
	return out, nil
}

// IsCancelled reports whether err is the solver's cancellation error.
func IsCancelled(err error) bool {
	return consensus.CodeOf(err) == consensus.POW_ERR_CANCELLED
}
