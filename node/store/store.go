// Package store persists the canonical chain in a bbolt database. Chain
// replacement is a whole-chain substitution, so SaveChain rewrites the
// blocks bucket in a single transaction rather than patching in place.
package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"twopidgeons.dev/node/consensus"
)

var (
	bucketBlocks = []byte("blocks")
	bucketMeta   = []byte("meta")

	keyChainLength = []byte("chain_length")
)

type DB struct {
	db *bolt.DB
}

func Open(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("store path required")
	}
	bdb, err := bolt.Open(path, 0o600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open bbolt: %w", err)
	}
	d := &DB{db: bdb}
	if err := d.db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketBlocks, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", string(b), err)
			}
		}
		return nil
	}); err != nil {
		_ = bdb.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// SaveChain replaces the persisted chain with the given one. Implements
// node.Persister.
func (d *DB) SaveChain(chain []consensus.Block) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketBlocks); err != nil {
			return fmt.Errorf("clear blocks: %w", err)
		}
		blocks, err := tx.CreateBucket(bucketBlocks)
		if err != nil {
			return fmt.Errorf("recreate blocks: %w", err)
		}
		for _, b := range chain {
			raw, err := json.Marshal(b)
			if err != nil {
				return fmt.Errorf("encode block %d: %w", b.Index, err)
			}
			if err := blocks.Put(indexKey(b.Index), raw); err != nil {
				return fmt.Errorf("put block %d: %w", b.Index, err)
			}
		}
		meta := tx.Bucket(bucketMeta)
		var lenBuf [8]byte
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(chain)))
		return meta.Put(keyChainLength, lenBuf[:])
	})
}

// LoadChain reads the persisted chain in index order. An empty store
// returns nil; the caller falls back to a genesis-only chain.
func (d *DB) LoadChain() ([]consensus.Block, error) {
	var chain []consensus.Block
	err := d.db.View(func(tx *bolt.Tx) error {
		blocks := tx.Bucket(bucketBlocks)
		c := blocks.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var b consensus.Block
			if err := json.Unmarshal(v, &b); err != nil {
				return fmt.Errorf("decode block: %w", err)
			}
			if b.Index != uint64(len(chain)) {
				return fmt.Errorf("non-contiguous block index %d at position %d", b.Index, len(chain))
			}
			chain = append(chain, b)
		}
		meta := tx.Bucket(bucketMeta)
		if raw := meta.Get(keyChainLength); raw != nil && len(raw) == 8 {
			if want := binary.BigEndian.Uint64(raw); want != uint64(len(chain)) {
				return fmt.Errorf("chain length mismatch: meta=%d blocks=%d", want, len(chain))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chain, nil
}

// FindTransaction scans the persisted chain for a transaction by content
// hash.
func (d *DB) FindTransaction(contentHash string) (consensus.Transaction, bool, error) {
	var (
		found consensus.Transaction
		ok    bool
	)
	err := d.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketBlocks).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var b consensus.Block
			if err := json.Unmarshal(v, &b); err != nil {
				return fmt.Errorf("decode block: %w", err)
			}
			for _, btx := range b.Transactions {
				if btx.ContentHash == contentHash {
					found = btx
					ok = true
					return nil
				}
			}
		}
		return nil
	})
	if err != nil {
		return consensus.Transaction{}, false, err
	}
	return found, ok, nil
}

func indexKey(index uint64) []byte {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], index)
	return key[:]
}
