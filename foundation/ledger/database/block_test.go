package database_test

import (
	"encoding/json"
	"strings"
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

const difficulty = 2

// buildChain mines a genesis block followed by n event blocks.
func buildChain(t *testing.T, n int) []database.Block {
	t.Helper()

	now := time.Date(2026, time.October, 14, 9, 30, 0, 123456789, time.UTC)

	genesis := database.NewGenesis(now)
	genesis.Mine(difficulty)
	blocks := []database.Block{genesis}

	types := database.RecordTypes()
	for i := 0; i < n; i++ {
		dataHash, err := digest.Hash(map[string]int{"heartRate": 60 + i})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to hash the payload: %v", failed, err)
		}

		now = now.Add(time.Second)
		b := database.NewBlock(blocks[len(blocks)-1], "P1", types[i%len(types)], dataHash, now)
		b.Mine(difficulty)
		blocks = append(blocks, b)
	}

	return blocks
}

// =============================================================================

func Test_CalculateHash(t *testing.T) {
	t.Log("Given the need to hash a block deterministically.")
	{
		blocks := buildChain(t, 1)
		b := blocks[1]

		if b.CalculateHash() != b.CalculateHash() {
			t.Fatalf("\t%s\tShould get the same hash on repeated calls.", failed)
		}
		t.Logf("\t%s\tShould get the same hash on repeated calls.", success)

		if b.Hash != b.CalculateHash() {
			t.Fatalf("\t%s\tShould store the calculated hash when sealed.", failed)
		}
		t.Logf("\t%s\tShould store the calculated hash when sealed.", success)

		changed := b
		changed.Header.Nonce++
		if changed.CalculateHash() == b.CalculateHash() {
			t.Fatalf("\t%s\tShould get a different hash when the nonce changes.", failed)
		}
		t.Logf("\t%s\tShould get a different hash when the nonce changes.", success)

		local := b
		local.Header.TimeStamp = b.Header.TimeStamp.In(time.FixedZone("EST", -5*60*60))
		if local.CalculateHash() != b.CalculateHash() {
			t.Fatalf("\t%s\tShould hash the same instant the same regardless of zone.", failed)
		}
		t.Logf("\t%s\tShould hash the same instant the same regardless of zone.", success)
	}
}

func Test_Mine(t *testing.T) {
	t.Log("Given the need to seal blocks with proof of work.")
	{
		blocks := buildChain(t, 3)
		genesis := blocks[0]

		if genesis.Header.Index != 0 || genesis.Header.PreviousHash != digest.ZeroHash {
			t.Fatalf("\t%s\tShould have a sentinel linked genesis block at index 0.", failed)
		}
		t.Logf("\t%s\tShould have a sentinel linked genesis block at index 0.", success)

		if genesis.Header.SubjectID != "" || genesis.Header.RecordType != database.RecordNone || genesis.Header.DataHash != "" {
			t.Fatalf("\t%s\tShould have an empty genesis payload.", failed)
		}
		t.Logf("\t%s\tShould have an empty genesis payload.", success)

		for i, b := range blocks {
			if !strings.HasPrefix(b.Hash, "00") {
				t.Fatalf("\t%s\tShould have a hash starting with 00 for blk %d: %s", failed, i, b.Hash)
			}
			if !b.IsSealed(difficulty) {
				t.Fatalf("\t%s\tShould be sealed for blk %d.", failed, i)
			}
			if uint64(i) != b.Header.Index {
				t.Fatalf("\t%s\tShould have index %d, got %d.", failed, i, b.Header.Index)
			}
			if i > 0 && b.Header.PreviousHash != blocks[i-1].Hash {
				t.Fatalf("\t%s\tShould link blk %d to its parent.", failed, i)
			}
		}
		t.Logf("\t%s\tShould seal, index and link every block.", success)

		if root := digest.SumString(blocks[1].Header.DataHash); blocks[1].Header.MerkleRoot != root {
			t.Logf("\t%s\tgot: %s", failed, blocks[1].Header.MerkleRoot)
			t.Logf("\t%s\texp: %s", failed, root)
			t.Fatalf("\t%s\tShould have a single leaf merkle root equal to the digest of the data hash.", failed)
		}
		t.Logf("\t%s\tShould have a single leaf merkle root equal to the digest of the data hash.", success)

		var events int
		b := database.NewBlock(blocks[len(blocks)-1], "P2", database.Prescription, blocks[1].Header.DataHash, time.Now())
		attempts := b.MineWithEvents(1, func(v string, args ...any) { events++ })
		if attempts == 0 || events < 2 || !b.IsSealed(1) {
			t.Fatalf("\t%s\tShould report mining progress through the event handler.", failed)
		}
		t.Logf("\t%s\tShould report mining progress through the event handler.", success)
	}
}

func Test_RoundTrip(t *testing.T) {
	t.Log("Given the need to persist blocks and reproduce their hash.")
	{
		blocks := buildChain(t, 2)

		for i, b := range blocks {
			data, err := json.Marshal(database.NewBlockData(b))
			if err != nil {
				t.Fatalf("\t%s\tShould be able to marshal blk %d: %v", failed, i, err)
			}

			var blockData database.BlockData
			if err := json.Unmarshal(data, &blockData); err != nil {
				t.Fatalf("\t%s\tShould be able to unmarshal blk %d: %v", failed, i, err)
			}

			loaded := database.ToBlock(blockData)
			if loaded.CalculateHash() != b.Hash {
				t.Logf("\t%s\tgot: %s", failed, loaded.CalculateHash())
				t.Logf("\t%s\texp: %s", failed, b.Hash)
				t.Fatalf("\t%s\tShould reproduce the hash of blk %d after reload.", failed, i)
			}
		}
		t.Logf("\t%s\tShould reproduce every hash after reload.", success)

		data, _ := json.Marshal(database.NewBlockData(blocks[1]))
		order := []string{"index", "timestamp", "subject_id", "record_type", "data_hash", "previous_hash", "merkle_root", "nonce"}
		last := -1
		for _, field := range order {
			pos := strings.Index(string(data), `"`+field+`"`)
			if pos <= last {
				t.Fatalf("\t%s\tShould persist %s in hashing order.", failed, field)
			}
			last = pos
		}
		t.Logf("\t%s\tShould persist the header fields in hashing order.", success)
	}
}

func Test_RecordType(t *testing.T) {
	t.Log("Given the need to restrict record types to a closed set.")
	{
		for _, rt := range database.RecordTypes() {
			got, err := database.ParseRecordType(string(rt))
			if err != nil || got != rt {
				t.Fatalf("\t%s\tShould parse %s.", failed, rt)
			}
		}
		t.Logf("\t%s\tShould parse every known record type.", success)

		for _, s := range []string{"", "Invoice", "healthmetric"} {
			if _, err := database.ParseRecordType(s); err == nil {
				t.Fatalf("\t%s\tShould reject %q.", failed, s)
			}
		}
		t.Logf("\t%s\tShould reject unknown record types.", success)
	}
}
