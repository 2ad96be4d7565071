package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/clinicaudit/ledger/foundation/ledger/database"
	"github.com/clinicaudit/ledger/foundation/ledger/genesis"
	"github.com/clinicaudit/ledger/foundation/ledger/state"
	"github.com/clinicaudit/ledger/foundation/ledger/storage/disk"
	"github.com/clinicaudit/ledger/foundation/ledger/storage/leveldb"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// seedChain writes a small chain to disk and returns its directory along
// with a signed checkpoint of its head.
func seedChain(t *testing.T) (string, state.SignedCheckpoint) {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "audit")
	strg, err := disk.New(dir)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to open disk storage: %v", failed, err)
	}

	gen := genesis.Default()
	gen.Difficulty = 1

	ledger, err := state.New(state.Config{Genesis: gen, Storage: strg})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the ledger: %v", failed, err)
	}
	if err := ledger.Initialize(); err != nil {
		t.Fatalf("\t%s\tShould be able to initialize: %v", failed, err)
	}

	for _, s := range []string{"P1", "P2", "P1"} {
		if _, err := ledger.RecordEvent(s, database.MedicalRecord, map[string]string{"subject": s}); err != nil {
			t.Fatalf("\t%s\tShould be able to record: %v", failed, err)
		}
	}

	key, _ := crypto.GenerateKey()
	scp, err := ledger.Checkpoint(key)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to sign a checkpoint: %v", failed, err)
	}

	ledger.Shutdown()

	return dir, scp
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	// Reset flag state left over from an earlier run.
	verifyJSON, subjectID, blockHash, expectSigner, genesisPath = false, "", "", "", ""
	storageKind = "disk"

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), err
}

func Test_Verify(t *testing.T) {
	dir, _ := seedChain(t)

	t.Log("Given the need to verify a stored chain offline.")
	{
		out, err := execute(t, "verify", "--db-path", dir, "--difficulty", "1")
		if err != nil || !strings.Contains(out, "VALID: 4 blocks") {
			t.Fatalf("\t%s\tShould verify the stored chain: %v: %s", failed, err, out)
		}
		t.Logf("\t%s\tShould verify the stored chain.", success)

		out, err = execute(t, "verify", "--db-path", dir, "--difficulty", "1", "--json")
		var report database.Report
		if err != nil || json.Unmarshal([]byte(out), &report) != nil || !report.IsValid {
			t.Fatalf("\t%s\tShould print the report as JSON: %v: %s", failed, err, out)
		}
		t.Logf("\t%s\tShould print the report as JSON.", success)

		// Rewrite the subject of a stored block.
		path := filepath.Join(dir, "2.json")
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to read a block: %v", failed, err)
		}

		var bd database.BlockData
		if err := json.Unmarshal(data, &bd); err != nil {
			t.Fatalf("\t%s\tShould be able to decode a block: %v", failed, err)
		}
		bd.Header.SubjectID = "P3"

		data, _ = json.Marshal(bd)
		if err := os.WriteFile(path, data, 0600); err != nil {
			t.Fatalf("\t%s\tShould be able to rewrite a block: %v", failed, err)
		}

		out, err = execute(t, "verify", "--db-path", dir, "--difficulty", "1")
		if err == nil || !strings.Contains(out, "INVALID") {
			t.Fatalf("\t%s\tShould fail a chain with an altered block: %s", failed, out)
		}
		t.Logf("\t%s\tShould fail a chain with an altered block: %s", success, strings.TrimSpace(out))
	}
}

func Test_Blocks(t *testing.T) {
	dir, _ := seedChain(t)

	out, err := execute(t, "blocks", "--db-path", dir, "--subject", "P1")
	if err != nil {
		t.Fatalf("\t%s\tShould list blocks: %v", failed, err)
	}

	if lines := strings.Split(strings.TrimSpace(out), "\n"); len(lines) != 2 {
		t.Fatalf("\t%s\tShould list the 2 blocks for P1, got:\n%s", failed, out)
	}
	t.Logf("\t%s\tShould list the blocks for a subject.", success)
}

func Test_BlocksByHash(t *testing.T) {
	dir, scp := seedChain(t)

	// Mirror the seeded chain into leveldb to exercise its hash index.
	src, err := disk.New(dir)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to open disk storage: %v", failed, err)
	}
	blocks, err := database.ReadAll(src)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to read the chain: %v", failed, err)
	}

	ldbPath := filepath.Join(t.TempDir(), "audit.ldb")
	dst, err := leveldb.New(ldbPath)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to open leveldb storage: %v", failed, err)
	}
	for _, b := range blocks {
		if err := dst.Write(database.NewBlockData(b)); err != nil {
			t.Fatalf("\t%s\tShould be able to write to leveldb: %v", failed, err)
		}
	}
	dst.Close()

	tt := []struct {
		name    string
		storage string
		path    string
	}{
		{"disk", "disk", dir},
		{"leveldb", "leveldb", ldbPath},
	}

	t.Log("Given the need to look up a stored block by its hash.")
	{
		for _, tst := range tt {
			f := func(t *testing.T) {
				out, err := execute(t, "blocks", "--storage", tst.storage, "--db-path", tst.path, "--hash", scp.HeadHash)
				if err != nil || !strings.Contains(out, scp.HeadHash) || strings.Count(out, "\n") != 1 {
					t.Fatalf("\t%s\tShould print the head block: %v: %s", failed, err, out)
				}
				t.Logf("\t%s\tShould print the head block.", success)

				_, err = execute(t, "blocks", "--storage", tst.storage, "--db-path", tst.path, "--hash", strings.Repeat("ab", 32))
				if err == nil || !strings.Contains(err.Error(), "not found") {
					t.Fatalf("\t%s\tShould report an unknown hash as not found: %v", failed, err)
				}
				t.Logf("\t%s\tShould report an unknown hash as not found.", success)

				if _, err := execute(t, "blocks", "--storage", tst.storage, "--db-path", tst.path, "--hash", "abc"); err == nil {
					t.Fatalf("\t%s\tShould reject a malformed hash.", failed)
				}
				t.Logf("\t%s\tShould reject a malformed hash.", success)
			}
			t.Run(tst.name, f)
		}
	}
}

func Test_MissingChain(t *testing.T) {
	t.Log("Given the need to refuse a chain path that does not exist.")
	{
		for _, kind := range []string{"disk", "leveldb"} {
			path := filepath.Join(t.TempDir(), "typo")

			_, err := execute(t, "verify", "--storage", kind, "--db-path", path, "--difficulty", "1")
			if err == nil || !strings.Contains(err.Error(), path) {
				t.Fatalf("\t%s\tShould fail naming the missing %s path: %v", failed, kind, err)
			}
			t.Logf("\t%s\tShould fail naming the missing %s path.", success, kind)

			if _, err := os.Stat(path); !os.IsNotExist(err) {
				t.Fatalf("\t%s\tShould not create the missing %s path: %v", failed, kind, err)
			}
			t.Logf("\t%s\tShould not create the missing %s path.", success, kind)
		}
	}
}

func Test_Checkpoint(t *testing.T) {
	dir, scp := seedChain(t)

	path := filepath.Join(t.TempDir(), "checkpoint.json")
	data, _ := json.Marshal(scp)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("\t%s\tShould be able to save the checkpoint: %v", failed, err)
	}

	t.Log("Given the need to check a saved checkpoint against the chain.")
	{
		out, err := execute(t, "checkpoint", path, "--db-path", dir, "--signer", scp.Signer)
		if err != nil || !strings.Contains(out, "CHECKPOINT OK") {
			t.Fatalf("\t%s\tShould accept the checkpoint: %v: %s", failed, err, out)
		}
		t.Logf("\t%s\tShould accept the checkpoint.", success)

		if _, err := execute(t, "checkpoint", path, "--db-path", dir, "--signer", "0x0000000000000000000000000000000000000000"); err == nil {
			t.Fatalf("\t%s\tShould reject an unexpected signer.", failed)
		}
		t.Logf("\t%s\tShould reject an unexpected signer.", success)

		blocks := []database.Block{{Hash: "a"}, {Hash: "b"}, {Hash: "c"}, {Hash: "d"}}
		if err := checkCheckpoint(scp, blocks, ""); err == nil {
			t.Fatalf("\t%s\tShould reject a chain whose head changed.", failed)
		}
		t.Logf("\t%s\tShould reject a chain whose head changed.", success)
	}
}

func Test_Genkey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "node.ecdsa")

	out, err := execute(t, "genkey", "--key", path)
	if err != nil || !strings.HasPrefix(out, "0x") {
		t.Fatalf("\t%s\tShould generate a key: %v: %s", failed, err, out)
	}
	if _, err := crypto.LoadECDSA(path); err != nil {
		t.Fatalf("\t%s\tShould be able to load the key: %v", failed, err)
	}
	t.Logf("\t%s\tShould generate a key.", success)

	if _, err := execute(t, "genkey", "--key", path); err == nil {
		t.Fatalf("\t%s\tShould refuse to overwrite a key.", failed)
	}
	t.Logf("\t%s\tShould refuse to overwrite a key.", success)
}
