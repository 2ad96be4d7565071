package genesis_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/clinicaudit/ledger/foundation/ledger/database"
	"github.com/clinicaudit/ledger/foundation/ledger/genesis"
)

func Test_Load(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "genesis.json")
	if err := os.WriteFile(path, []byte(`{"date":"2026-10-14T00:00:00Z","difficulty":2}`), 0600); err != nil {
		t.Fatalf("Should be able to write the genesis file: %v", err)
	}

	gen, err := genesis.Load(path)
	if err != nil {
		t.Fatalf("Should be able to load the genesis file: %v", err)
	}

	if gen.Difficulty != 2 || gen.ChainID != 1 || !gen.Date.Equal(time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("Should get back the file values over the defaults: %+v", gen)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"difficulty":65}`), 0600); err != nil {
		t.Fatalf("Should be able to write the genesis file: %v", err)
	}
	if _, err := genesis.Load(bad); err == nil {
		t.Fatalf("Should reject a difficulty no digest can satisfy.")
	}

	if _, err := genesis.Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("Should fail on a missing file.")
	}

	if genesis.Default().Difficulty != database.DefaultDifficulty {
		t.Fatalf("Should default to difficulty %d.", database.DefaultDifficulty)
	}
}
