package consensus

import (
	"context"
	"crypto/rsa"
	"sync"
	"testing"

	"twopidgeons.dev/node/crypto"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
	testKeyErr  error
	testPubPEM  []byte
)

// testKeyPair returns a package-wide RSA key; generating one per test is
// needlessly slow.
func testKeyPair(t *testing.T) (*rsa.PrivateKey, []byte) {
	t.Helper()
	testKeyOnce.Do(func() {
		testKey, testKeyErr = crypto.GenerateKeyPair()
		if testKeyErr != nil {
			return
		}
		testPubPEM, testKeyErr = crypto.EncodePublicKey(&testKey.PublicKey)
	})
	if testKeyErr != nil {
		t.Fatalf("generate test key: %v", testKeyErr)
	}
	return testKey, testPubPEM
}

func makeTestTx(t *testing.T, subjectID string, content string, timestamp int64) Transaction {
	t.Helper()
	priv, pubPEM := testKeyPair(t)
	tx := Transaction{
		SenderID:        "node-a",
		SubjectID:       subjectID,
		ContentHash:     SHA256Hex([]byte(content)),
		Timestamp:       timestamp,
		SenderPublicKey: pubPEM,
	}
	sig, err := crypto.Sign(priv, tx.SigningPayload())
	if err != nil {
		t.Fatalf("sign test tx: %v", err)
	}
	tx.Signature = sig
	return tx
}

func mineTestBlock(t *testing.T, prev Block, txs []Transaction, difficulty int) Block {
	t.Helper()
	b := Block{
		Index:        prev.Index + 1,
		Timestamp:    1_700_000_000 + int64(prev.Index),
		Transactions: txs,
		PreviousHash: prev.Hash,
		MerkleRoot:   MerkleRoot(txs),
		Difficulty:   difficulty,
	}
	res, err := Solve(context.Background(), HeaderPrefix(b), HeaderSuffix(b), difficulty)
	if err != nil {
		t.Fatalf("solve test block: %v", err)
	}
	b.Nonce = res.Nonce
	b.Hash = res.Hash
	return b
}
