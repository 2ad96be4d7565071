package database_test

import (
	"errors"
	"testing"

	"github.com/clinicaudit/ledger/foundation/ledger/database"
)

// failingStorage serves one good block and then a read error.
type failingStorage struct {
	iter *failingIterator
}

func (s *failingStorage) Write(database.BlockData) error { return nil }
func (s *failingStorage) GetBlock(uint64) (database.BlockData, error) {
	return database.BlockData{}, nil
}
func (s *failingStorage) ForEach() database.Iterator { return s.iter }
func (s *failingStorage) Close() error               { return nil }
func (s *failingStorage) Reset() error               { return nil }

type failingIterator struct {
	calls    int
	released int
}

func (fi *failingIterator) Next() (database.BlockData, error) {
	fi.calls++
	if fi.calls == 1 {
		return database.BlockData{}, nil
	}
	return database.BlockData{}, errors.New("decoding block: bad data")
}

func (fi *failingIterator) Done() bool { return false }
func (fi *failingIterator) Release()   { fi.released++ }

func Test_ReadAllReleasesIterator(t *testing.T) {
	t.Log("Given the need to free the storage iterator when a read fails.")
	{
		strg := failingStorage{iter: &failingIterator{}}

		if _, err := database.ReadAll(&strg); err == nil {
			t.Fatalf("\t%s\tShould surface the read error.", failed)
		}
		t.Logf("\t%s\tShould surface the read error.", success)

		if strg.iter.released != 1 {
			t.Fatalf("\t%s\tShould release the iterator once, got %d.", failed, strg.iter.released)
		}
		t.Logf("\t%s\tShould release the iterator once.", success)
	}
}
