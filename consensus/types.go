package consensus

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Transaction records that a subject image was stored. ContentHash is the
// SHA-256 hex digest of the stored artifact, computed by the storage
// collaborator. Signature covers SigningPayload and must verify against
// SenderPublicKey (PKIX PEM).
type Transaction struct {
	SenderID        string `json:"sender_id"`
	SubjectID       string `json:"subject_id"`
	ContentHash     string `json:"content_hash"`
	Timestamp       int64  `json:"timestamp"`
	Signature       []byte `json:"signature"`
	SenderPublicKey []byte `json:"sender_public_key"`
}

type Block struct {
	Index        uint64        `json:"index"`
	Timestamp    int64         `json:"timestamp"`
	Transactions []Transaction `json:"transactions"`
	PreviousHash string        `json:"previous_hash"`
	MerkleRoot   string        `json:"merkle_root"`
	Nonce        uint64        `json:"nonce"`
	Difficulty   int           `json:"difficulty"`
	Hash         string        `json:"hash"`
}

// Canonical encodings are JSON objects with keys in sorted order. The field
// order of these structs is the wire-format key order; do not reorder.
type txCanonical struct {
	ContentHash     string `json:"content_hash"`
	SenderID        string `json:"sender_id"`
	SenderPublicKey []byte `json:"sender_public_key"`
	Signature       []byte `json:"signature"`
	SubjectID       string `json:"subject_id"`
	Timestamp       int64  `json:"timestamp"`
}

type txSigning struct {
	ContentHash     string `json:"content_hash"`
	SenderID        string `json:"sender_id"`
	SenderPublicKey []byte `json:"sender_public_key"`
	SubjectID       string `json:"subject_id"`
	Timestamp       int64  `json:"timestamp"`
}

// CanonicalBytes returns the full canonical serialization of tx, signature
// included. Merkle leaves commit to these bytes.
func (tx Transaction) CanonicalBytes() []byte {
	b, _ := json.Marshal(txCanonical{
		ContentHash:     tx.ContentHash,
		SenderID:        tx.SenderID,
		SenderPublicKey: tx.SenderPublicKey,
		Signature:       tx.Signature,
		SubjectID:       tx.SubjectID,
		Timestamp:       tx.Timestamp,
	})
	return b
}

// SigningPayload returns the canonical serialization of tx with the
// signature field removed. Signatures are produced and verified over
// exactly these bytes.
func (tx Transaction) SigningPayload() []byte {
	b, _ := json.Marshal(txSigning{
		ContentHash:     tx.ContentHash,
		SenderID:        tx.SenderID,
		SenderPublicKey: tx.SenderPublicKey,
		SubjectID:       tx.SubjectID,
		Timestamp:       tx.Timestamp,
	})
	return b
}

// TxID is the leaf digest of the transaction's canonical bytes. It doubles
// as the pool/dedup identity of a transaction.
func (tx Transaction) TxID() string {
	return sha256Hex(tx.CanonicalBytes())
}

// HeaderPrefix and HeaderSuffix split the block-hash preimage around the
// decimal nonce:
//
//	sha256(prefix || decimal(nonce) || suffix)
//
// Mining and validation must build candidates with the same two functions.
func HeaderPrefix(b Block) string {
	return fmt.Sprintf("%d|%d|%s|", b.Index, b.Timestamp, b.PreviousHash)
}

func HeaderSuffix(b Block) string {
	return fmt.Sprintf("|%s|%d", b.MerkleRoot, b.Difficulty)
}

// BlockHash recomputes the header hash of b from its fields, including
// the stored nonce.
func BlockHash(b Block) string {
	return sha256Hex([]byte(HeaderPrefix(b) + strconv.FormatUint(b.Nonce, 10) + HeaderSuffix(b)))
}

// CloneBlock deep-copies a block so callers can hand chains across
// goroutine boundaries without sharing backing arrays.
func CloneBlock(b Block) Block {
	out := b
	if b.Transactions != nil {
		out.Transactions = make([]Transaction, len(b.Transactions))
		for i, tx := range b.Transactions {
			out.Transactions[i] = CloneTransaction(tx)
		}
	}
	return out
}

func CloneTransaction(tx Transaction) Transaction {
	out := tx
	out.Signature = append([]byte(nil), tx.Signature...)
	out.SenderPublicKey = append([]byte(nil), tx.SenderPublicKey...)
	return out
}

func CloneChain(chain []Block) []Block {
	if chain == nil {
		return nil
	}
	out := make([]Block, len(chain))
	for i, b := range chain {
		out[i] = CloneBlock(b)
	}
	return out
}
