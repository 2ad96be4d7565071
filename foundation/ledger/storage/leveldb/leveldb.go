// Package leveldb implements the ability to read and write blocks to an
// embedded LevelDB key/value store.
package leveldb

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/clinicaudit/ledger/foundation/ledger/database"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Key prefixes used in the store. Block keys are zero padded so the natural
// key order is the chain order.
const (
	blockPrefix = "block:"
	hashPrefix  = "hash:"
)

// LevelDB represents the storage implementation for reading and storing
// blocks in LevelDB. This implements the database.Storage interface.
type LevelDB struct {
	db *leveldb.DB
}

// New opens, or creates, the LevelDB store at the specified path.
func New(dbPath string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(dbPath, nil)
	if err != nil {
		return nil, fmt.Errorf("opening leveldb: %w", err)
	}

	return &LevelDB{db: db}, nil
}

// Close releases the underlying store.
func (l *LevelDB) Close() error {
	return l.db.Close()
}

// Write stores the block and an index from its hash in one batch. Blocks
// must be written in order and an existing block is never overwritten.
func (l *LevelDB) Write(blockData database.BlockData) error {
	index := blockData.Header.Index

	if index > 0 {
		exists, err := l.db.Has(blockKey(index-1), nil)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("block is out of order, parent %d missing", index-1)
		}
	}

	exists, err := l.db.Has(blockKey(index), nil)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("block %d already exists", index)
	}

	data, err := json.Marshal(blockData)
	if err != nil {
		return err
	}

	batch := new(leveldb.Batch)
	batch.Put(blockKey(index), data)
	batch.Put([]byte(hashPrefix+blockData.Hash), blockKey(index))

	return l.db.Write(batch, nil)
}

// GetBlock locates and returns the contents of the specified block by index.
func (l *LevelDB) GetBlock(index uint64) (database.BlockData, error) {
	data, err := l.db.Get(blockKey(index), nil)
	if err != nil {
		return database.BlockData{}, fmt.Errorf("block %d: %w", index, err)
	}

	return decode(data)
}

// GetBlockByHash locates a block using the hash index.
func (l *LevelDB) GetBlockByHash(hash string) (database.BlockData, error) {
	key, err := l.db.Get([]byte(hashPrefix+hash), nil)
	if err != nil {
		return database.BlockData{}, fmt.Errorf("hash %s: %w", hash, err)
	}

	data, err := l.db.Get(key, nil)
	if err != nil {
		return database.BlockData{}, err
	}

	return decode(data)
}

// ForEach returns an iterator to walk through all the blocks
// starting with the genesis block.
func (l *LevelDB) ForEach() database.Iterator {
	return &levelIterator{
		iter: l.db.NewIterator(util.BytesPrefix([]byte(blockPrefix)), nil),
	}
}

// Reset deletes every key in the store.
func (l *LevelDB) Reset() error {
	iter := l.db.NewIterator(nil, nil)
	defer iter.Release()

	batch := new(leveldb.Batch)
	for iter.Next() {
		batch.Delete(append([]byte{}, iter.Key()...))
	}
	if err := iter.Error(); err != nil {
		return err
	}

	return l.db.Write(batch, nil)
}

// =============================================================================

// levelIterator walks the block keys in order. This implements the database
// Iterator interface.
type levelIterator struct {
	iter     iterator.Iterator
	eoc      bool
	released bool
}

// Next retrieves the next block from the store.
func (li *levelIterator) Next() (database.BlockData, error) {
	if li.eoc {
		return database.BlockData{}, database.ErrEndOfChain
	}

	if !li.iter.Next() {
		err := li.iter.Error()
		li.Release()
		if err != nil {
			return database.BlockData{}, err
		}

		li.eoc = true
		return database.BlockData{}, database.ErrEndOfChain
	}

	return decode(li.iter.Value())
}

// Done returns the end of chain value.
func (li *levelIterator) Done() bool {
	return li.eoc
}

// Release frees the underlying store iterator. It is safe to call more
// than once.
func (li *levelIterator) Release() {
	if li.released {
		return
	}

	li.released = true
	li.iter.Release()
}

// =============================================================================

func blockKey(index uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", blockPrefix, index))
}

func decode(data []byte) (database.BlockData, error) {
	var blockData database.BlockData
	if err := json.Unmarshal(data, &blockData); err != nil {
		return database.BlockData{}, fmt.Errorf("decoding block: %w", err)
	}

	return blockData, nil
}

// IsNotFound reports whether the error is the store's not found condition.
func IsNotFound(err error) bool {
	return errors.Is(err, leveldb.ErrNotFound)
}
