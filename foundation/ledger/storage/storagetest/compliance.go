// Package storagetest provides a compliance suite run against every
// database.Storage implementation.
package storagetest

import (
	"testing"
	"time"

	"github.com/clinicaudit/ledger/foundation/ledger/database"
	"github.com/clinicaudit/ledger/foundation/ledger/digest"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// Blocks mines a small valid chain at difficulty 1 for use in tests.
func Blocks(n int) []database.Block {
	now := time.Date(2026, time.October, 14, 12, 0, 0, 987654321, time.UTC)

	genesis := database.NewGenesis(now)
	genesis.Mine(1)
	blocks := []database.Block{genesis}

	for i := 1; i < n; i++ {
		dataHash := digest.SumString(time.Duration(i).String())
		b := database.NewBlock(blocks[i-1], "P1", database.MedicalRecord, dataHash, now.Add(time.Duration(i)*time.Millisecond))
		b.Mine(1)
		blocks = append(blocks, b)
	}

	return blocks
}

// RunComplianceSuite runs the standard behavior checks against a storage.
// The factory must return an empty storage for each call.
func RunComplianceSuite(t *testing.T, factory func(t *testing.T) database.Storage) {
	t.Helper()

	t.Run("write_and_read_back", func(t *testing.T) {
		strg := factory(t)
		defer strg.Close()

		blocks := Blocks(4)
		for _, b := range blocks {
			if err := strg.Write(database.NewBlockData(b)); err != nil {
				t.Fatalf("\t%s\tShould be able to write blk %d: %v", failed, b.Header.Index, err)
			}
		}
		t.Logf("\t%s\tShould be able to write blocks.", success)

		got, err := database.ReadAll(strg)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to read all blocks: %v", failed, err)
		}
		if len(got) != len(blocks) {
			t.Fatalf("\t%s\tShould read back %d blocks, got %d.", failed, len(blocks), len(got))
		}
		for i := range blocks {
			if got[i].Hash != blocks[i].Hash || got[i].CalculateHash() != blocks[i].Hash {
				t.Fatalf("\t%s\tShould reproduce the hash of blk %d.", failed, i)
			}
		}
		t.Logf("\t%s\tShould read back every block with a reproducible hash.", success)

		if report := database.VerifyBlocks(got, 1); !report.IsValid {
			t.Fatalf("\t%s\tShould verify the reloaded chain: %s", failed, report.Reason)
		}
		t.Logf("\t%s\tShould verify the reloaded chain.", success)

		bd, err := strg.GetBlock(2)
		if err != nil || bd.Hash != blocks[2].Hash {
			t.Fatalf("\t%s\tShould get blk 2 by index: %v", failed, err)
		}
		t.Logf("\t%s\tShould get a block by index.", success)

		if _, err := strg.GetBlock(99); err == nil {
			t.Fatalf("\t%s\tShould fail to get a missing block.", failed)
		}
		t.Logf("\t%s\tShould fail to get a missing block.", success)
	})

	t.Run("rejects_out_of_order", func(t *testing.T) {
		strg := factory(t)
		defer strg.Close()

		blocks := Blocks(3)
		if err := strg.Write(database.NewBlockData(blocks[0])); err != nil {
			t.Fatalf("\t%s\tShould be able to write genesis: %v", failed, err)
		}

		if err := strg.Write(database.NewBlockData(blocks[2])); err == nil {
			t.Fatalf("\t%s\tShould reject a block with a gap.", failed)
		}
		t.Logf("\t%s\tShould reject a block with a gap.", success)

		if err := strg.Write(database.NewBlockData(blocks[0])); err == nil {
			t.Fatalf("\t%s\tShould reject overwriting a block.", failed)
		}
		t.Logf("\t%s\tShould reject overwriting a block.", success)
	})

	t.Run("empty_and_reset", func(t *testing.T) {
		strg := factory(t)
		defer strg.Close()

		got, err := database.ReadAll(strg)
		if err != nil || len(got) != 0 {
			t.Fatalf("\t%s\tShould read nothing from an empty storage: %v", failed, err)
		}
		t.Logf("\t%s\tShould read nothing from an empty storage.", success)

		for _, b := range Blocks(2) {
			if err := strg.Write(database.NewBlockData(b)); err != nil {
				t.Fatalf("\t%s\tShould be able to write: %v", failed, err)
			}
		}

		if err := strg.Reset(); err != nil {
			t.Fatalf("\t%s\tShould be able to reset: %v", failed, err)
		}

		got, err = database.ReadAll(strg)
		if err != nil || len(got) != 0 {
			t.Fatalf("\t%s\tShould read nothing after a reset: %v", failed, err)
		}
		t.Logf("\t%s\tShould read nothing after a reset.", success)
	})
}
