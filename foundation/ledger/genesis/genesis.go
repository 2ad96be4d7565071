// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/clinicaudit/ledger/foundation/ledger/database"
)

// Genesis represents the genesis file.
type Genesis struct {
	Date       time.Time `json:"date"`       // Timestamp sealed into the genesis block, now when zero.
	ChainID    uint16    `json:"chain_id"`   // The chain id represents an unique id for this running instance.
	Difficulty uint      `json:"difficulty"` // How difficult it needs to be to solve the work problem.
}

// Default returns the genesis used when no file is provided.
func Default() Genesis {
	return Genesis{
		ChainID:    1,
		Difficulty: database.DefaultDifficulty,
	}
}

// =============================================================================

// Load opens and consumes the genesis file. Fields missing from the file
// keep their default values.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	genesis := Default()
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decoding genesis: %w", err)
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Validate checks the genesis values are usable.
func (g Genesis) Validate() error {
	if g.Difficulty > database.MaxDifficulty {
		return fmt.Errorf("difficulty %d exceeds the maximum of %d", g.Difficulty, database.MaxDifficulty)
	}

	return nil
}
