package disk_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/clinicaudit/ledger/foundation/ledger/database"
	"github.com/clinicaudit/ledger/foundation/ledger/storage/disk"
	"github.com/clinicaudit/ledger/foundation/ledger/storage/storagetest"
)

const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Compliance(t *testing.T) {
	storagetest.RunComplianceSuite(t, func(t *testing.T) database.Storage {
		strg, err := disk.New(filepath.Join(t.TempDir(), "blocks"))
		if err != nil {
			t.Fatalf("Should be able to construct disk storage: %v", err)
		}
		return strg
	})
}

func Test_CorruptFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "blocks")
	strg, err := disk.New(dir)
	if err != nil {
		t.Fatalf("Should be able to construct disk storage: %v", err)
	}

	blocks := storagetest.Blocks(2)
	for _, b := range blocks {
		if err := strg.Write(database.NewBlockData(b)); err != nil {
			t.Fatalf("Should be able to write: %v", err)
		}
	}

	if err := os.WriteFile(filepath.Join(dir, "1.json"), []byte("{not json"), 0600); err != nil {
		t.Fatalf("Should be able to corrupt the file: %v", err)
	}

	if _, err := database.ReadAll(strg); err == nil {
		t.Fatalf("Should surface a decode error for a corrupt block file.")
	}
}

func Test_FailedWriteLeavesNoBlock(t *testing.T) {
	t.Log("Given the need to recover from a write that fails midway.")
	{
		dir := filepath.Join(t.TempDir(), "blocks")
		strg, err := disk.New(dir)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct disk storage: %v", failed, err)
		}

		blocks := storagetest.Blocks(3)
		for _, b := range blocks[:2] {
			if err := strg.Write(database.NewBlockData(b)); err != nil {
				t.Fatalf("\t%s\tShould be able to write: %v", failed, err)
			}
		}

		// A directory in the way of the temporary file forces the write to fail.
		tmp := filepath.Join(dir, "2.json.tmp")
		if err := os.Mkdir(tmp, 0755); err != nil {
			t.Fatalf("\t%s\tShould be able to block the temporary file: %v", failed, err)
		}

		if err := strg.Write(database.NewBlockData(blocks[2])); err == nil {
			t.Fatalf("\t%s\tShould fail the write.", failed)
		}
		t.Logf("\t%s\tShould fail the write.", success)

		if _, err := os.Stat(filepath.Join(dir, "2.json")); !os.IsNotExist(err) {
			t.Fatalf("\t%s\tShould not leave a block file behind: %v", failed, err)
		}
		t.Logf("\t%s\tShould not leave a block file behind.", success)

		got, err := database.ReadAll(strg)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to read the chain: %v", failed, err)
		}
		if len(got) != 2 {
			t.Fatalf("\t%s\tShould read back the 2 complete blocks, got %d.", failed, len(got))
		}
		t.Logf("\t%s\tShould read back the 2 complete blocks.", success)

		if err := strg.Write(database.NewBlockData(blocks[2])); err != nil {
			t.Fatalf("\t%s\tShould be able to retry the write: %v", failed, err)
		}
		if _, err := os.Stat(tmp); !os.IsNotExist(err) {
			t.Fatalf("\t%s\tShould not leave the temporary file behind: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to retry the write.", success)

		got, err = database.ReadAll(strg)
		if err != nil || len(got) != 3 {
			t.Fatalf("\t%s\tShould read back 3 blocks: %d %v", failed, len(got), err)
		}
		t.Logf("\t%s\tShould read back 3 blocks.", success)
	}
}
