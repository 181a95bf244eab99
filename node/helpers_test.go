package node

import (
	"crypto/rsa"
	"fmt"
	"sync"
	"testing"

	"twopidgeons.dev/node/consensus"
	"twopidgeons.dev/node/crypto"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
)

func testKeyPair(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	testKeyOnce.Do(func() {
		var err error
		testKey, err = crypto.GenerateKeyPair()
		if err != nil {
			panic(err)
		}
	})
	return testKey
}

func newTestSigner(t *testing.T, senderID string) *Signer {
	t.Helper()
	s, err := NewSigner(senderID, testKeyPair(t))
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	return s
}

// makeTx builds a signed transaction with a content hash derived from seed.
func makeTx(t *testing.T, s *Signer, seed int) consensus.Transaction {
	t.Helper()
	content := consensus.SHA256Hex([]byte(fmt.Sprintf("image-%d", seed)))
	tx, err := s.NewTransaction("abcde.2pg", content, int64(1_700_000_000+seed))
	if err != nil {
		t.Fatalf("new transaction: %v", err)
	}
	return tx
}

func newTestLedger(t *testing.T, cfg LedgerConfig) *Ledger {
	t.Helper()
	l, err := NewLedger(cfg, nil)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	return l
}

// zeroDifficulty keeps tests fast; proof-of-work behaviour has its own
// coverage in the consensus package.
func zeroDifficulty() LedgerConfig {
	cfg := DefaultLedgerConfig()
	cfg.Difficulty = 0
	return cfg
}

type recordingPersister struct {
	calls int
	last  []consensus.Block
}

func (p *recordingPersister) SaveChain(chain []consensus.Block) error {
	p.calls++
	p.last = chain
	return nil
}

type failingPersister struct{}

func (failingPersister) SaveChain([]consensus.Block) error {
	return fmt.Errorf("disk full")
}
