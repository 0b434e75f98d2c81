// Package ledger persists the block chain in a column-keyed byte store. Two
// buckets act as column families: one maps block hashes to encoded blocks,
// the other holds well-known chain pointers (last block, genesis).
package ledger

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/minibit/minibit/internal/chain"
)

var (
	blocksBucket   = []byte("blocks")
	pointersBucket = []byte("chain_pointers")

	lastBlockKey = []byte("last_block")
	genesisKey   = []byte("genesis")
)

// ErrCorruptPointer is returned when a chain pointer does not resolve to a
// well-formed block hash.
var ErrCorruptPointer = errors.New("corrupt chain pointer")

// Reader is the read-only view of the store handed to subsystems that must
// not append blocks. Only the mining engine holds the writable Store.
type Reader interface {
	// GetBlock returns the block stored under hash, or nil if absent.
	GetBlock(hash [32]byte) (*chain.Block, error)

	// GetLastBlock returns the chain tip, or nil when the chain is empty.
	GetLastBlock() (*chain.Block, error)

	// GetGenesisBlock returns block zero, or nil when the chain is empty.
	GetGenesisBlock() (*chain.Block, error)
}

// Store is a bolt-backed block store. It assumes a single writer; bolt
// serializes writes internally.
type Store struct {
	db *bolt.DB
}

var _ Reader = (*Store)(nil)

// Open opens or creates the store at path and ensures both buckets exist.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger store at %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(blocksBucket); err != nil {
			return fmt.Errorf("failed to create blocks bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists(pointersBucket); err != nil {
			return fmt.Errorf("failed to create chain pointers bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutBlock writes the block under its own hash and repoints last_block at it
// in a single transaction. The genesis pointer is set the first time a block
// with index zero is committed and never moved afterward.
func (s *Store) PutBlock(b *chain.Block) error {
	encoded, err := b.Encode()
	if err != nil {
		return err
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(blocksBucket).Put(b.Hash[:], encoded); err != nil {
			return fmt.Errorf("failed to write block %d: %w", b.Index, err)
		}

		pointers := tx.Bucket(pointersBucket)
		if err := pointers.Put(lastBlockKey, b.Hash[:]); err != nil {
			return fmt.Errorf("failed to update last block pointer: %w", err)
		}
		if b.Index == 0 && pointers.Get(genesisKey) == nil {
			if err := pointers.Put(genesisKey, b.Hash[:]); err != nil {
				return fmt.Errorf("failed to set genesis pointer: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return errors.WithMessage(err, "ledger store write failed")
	}
	return nil
}

// GetBlock returns the block stored under hash, or nil if no such block
// exists.
func (s *Store) GetBlock(hash [32]byte) (*chain.Block, error) {
	var block *chain.Block

	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		block, err = getBlock(tx, hash[:])
		return err
	})
	if err != nil {
		return nil, err
	}
	return block, nil
}

// GetLastBlock resolves the last_block pointer and fetches the block it
// names. A missing pointer or missing block both read as an empty chain.
func (s *Store) GetLastBlock() (*chain.Block, error) {
	return s.getPointedBlock(lastBlockKey)
}

// GetGenesisBlock resolves the genesis pointer the same way.
func (s *Store) GetGenesisBlock() (*chain.Block, error) {
	return s.getPointedBlock(genesisKey)
}

func (s *Store) getPointedBlock(pointerKey []byte) (*chain.Block, error) {
	var block *chain.Block

	err := s.db.View(func(tx *bolt.Tx) error {
		hash := tx.Bucket(pointersBucket).Get(pointerKey)
		if hash == nil {
			return nil
		}
		if len(hash) != 32 {
			return errors.WithMessagef(ErrCorruptPointer, "%s resolves to %d bytes", pointerKey, len(hash))
		}

		var err error
		block, err = getBlock(tx, hash)
		return err
	})
	if err != nil {
		return nil, err
	}
	return block, nil
}

func getBlock(tx *bolt.Tx, hash []byte) (*chain.Block, error) {
	data := tx.Bucket(blocksBucket).Get(hash)
	if data == nil {
		return nil, nil
	}

	block, err := chain.DecodeBlock(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode stored block %x: %w", hash, err)
	}
	return block, nil
}
