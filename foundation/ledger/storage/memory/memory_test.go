package memory_test

import (
	"testing"

	"github.com/clinicaudit/ledger/foundation/ledger/database"
	"github.com/clinicaudit/ledger/foundation/ledger/storage/memory"
	"github.com/clinicaudit/ledger/foundation/ledger/storage/storagetest"
)

func Test_Compliance(t *testing.T) {
	storagetest.RunComplianceSuite(t, func(t *testing.T) database.Storage {
		strg, err := memory.New()
		if err != nil {
			t.Fatalf("Should be able to construct memory storage: %v", err)
		}
		return strg
	})
}
