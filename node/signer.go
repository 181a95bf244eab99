package node

import (
	"crypto/rsa"
	"errors"

	"twopidgeons.dev/node/consensus"
	"twopidgeons.dev/node/crypto"
)

// Signer builds signed transactions for one sender identity. The storage
// collaborator uses it when registering a stored image.
type Signer struct {
	senderID string
	priv     *rsa.PrivateKey
	pubPEM   []byte
}

func NewSigner(senderID string, priv *rsa.PrivateKey) (*Signer, error) {
	if senderID == "" {
		return nil, errors.New("sender id required")
	}
	if priv == nil {
		return nil, errors.New("nil private key")
	}
	pubPEM, err := crypto.EncodePublicKey(&priv.PublicKey)
	if err != nil {
		return nil, err
	}
	return &Signer{senderID: senderID, priv: priv, pubPEM: pubPEM}, nil
}

func (s *Signer) SenderID() string { return s.senderID }

// PublicKeyPEM returns the PEM bytes embedded in this signer's
// transactions, suitable for registering with a key directory.
func (s *Signer) PublicKeyPEM() []byte {
	return append([]byte(nil), s.pubPEM...)
}

// NewTransaction assembles and signs a transaction over the canonical
// payload. Timestamp 0 means "now".
func (s *Signer) NewTransaction(subjectID, contentHash string, timestamp int64) (consensus.Transaction, error) {
	if timestamp == 0 {
		timestamp = unixNow()
	}
	tx := consensus.Transaction{
		SenderID:        s.senderID,
		SubjectID:       subjectID,
		ContentHash:     contentHash,
		Timestamp:       timestamp,
		SenderPublicKey: append([]byte(nil), s.pubPEM...),
	}
	sig, err := crypto.Sign(s.priv, tx.SigningPayload())
	if err != nil {
		return consensus.Transaction{}, err
	}
	tx.Signature = sig
	return tx, nil
}
