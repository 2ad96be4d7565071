// Package database defines the block, the record types it carries, the
// chain verification rules, and the contract storage implementations use to
// mirror the chain durably.
package database

import (
	"errors"
	"time"
)

// ErrEndOfChain is returned by an iterator once every block has been read.
var ErrEndOfChain = errors.New("end of chain")

// Storage interface represents the behavior required to be implemented by
// any package providing support for mirroring the chain. Blocks are always
// written in index order starting at the genesis block.
type Storage interface {
	Write(blockData BlockData) error
	GetBlock(index uint64) (BlockData, error)
	ForEach() Iterator
	Close() error
	Reset() error
}

// Iterator interface represents the behavior required to be implemented by
// any package providing support to iterate over the blocks.
type Iterator interface {
	Next() (BlockData, error)
	Done() bool
	Release()
}

// =============================================================================

// BlockData represents what is serialized to storage. The header fields are
// written in the order they are hashed so reloading reproduces the hash.
type BlockData struct {
	Hash   string      `json:"hash"`
	Header BlockHeader `json:"header"`
}

// NewBlockData constructs the value to serialize to storage.
func NewBlockData(block Block) BlockData {
	return BlockData{
		Hash:   block.Hash,
		Header: block.Header,
	}
}

// ToBlock converts the storage form back into a block.
func ToBlock(blockData BlockData) Block {
	header := blockData.Header
	header.TimeStamp = header.TimeStamp.UTC()

	return Block{
		Header: header,
		Hash:   blockData.Hash,
	}
}

// ReadAll walks the storage and returns every block in index order.
func ReadAll(storage Storage) ([]Block, error) {
	var blocks []Block

	iter := storage.ForEach()
	defer iter.Release()

	for blockData, err := iter.Next(); !iter.Done(); blockData, err = iter.Next() {
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, ToBlock(blockData))
	}

	return blocks, nil
}

// Timestamp returns the current time in the form stored in a block header.
func Timestamp() time.Time {
	return normalize(time.Now())
}
