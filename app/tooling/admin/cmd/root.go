// Package cmd contains the admin app.
package cmd

import (
	"fmt"
	"os"

	"github.com/clinicaudit/ledger/foundation/ledger/database"
	"github.com/clinicaudit/ledger/foundation/ledger/genesis"
	"github.com/clinicaudit/ledger/foundation/ledger/storage/disk"
	"github.com/clinicaudit/ledger/foundation/ledger/storage/leveldb"
	"github.com/spf13/cobra"
)

var (
	storageKind string
	dbPath      string
	genesisPath string
	difficulty  uint
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:          "admin",
	Short:        "Offline tooling for the clinical audit ledger",
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&storageKind, "storage", "s", "disk", "Storage backend holding the chain: disk or leveldb.")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db-path", "d", "zblock/audit", "Path to the stored chain.")
	rootCmd.PersistentFlags().StringVarP(&genesisPath, "genesis", "g", "", "Path to the genesis file. Overrides --difficulty.")
	rootCmd.PersistentFlags().UintVar(&difficulty, "difficulty", database.DefaultDifficulty, "Leading zero hex digits a block hash requires.")
}

// openStorage opens the configured chain for reading. A missing path is an
// error rather than a new empty chain.
func openStorage() (database.Storage, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("opening chain: %w", err)
	}

	switch storageKind {
	case "disk":
		return disk.New(dbPath)
	case "leveldb":
		return leveldb.New(dbPath)
	}

	return nil, fmt.Errorf("unknown storage %q", storageKind)
}

// chainDifficulty returns the difficulty the chain was mined with.
func chainDifficulty() (uint, error) {
	if genesisPath == "" {
		return difficulty, nil
	}

	gen, err := genesis.Load(genesisPath)
	if err != nil {
		return 0, err
	}

	return gen.Difficulty, nil
}

// loadChain reads every block in the configured storage.
func loadChain() ([]database.Block, uint, error) {
	d, err := chainDifficulty()
	if err != nil {
		return nil, 0, err
	}

	strg, err := openStorage()
	if err != nil {
		return nil, 0, err
	}
	defer strg.Close()

	blocks, err := database.ReadAll(strg)
	if err != nil {
		return nil, 0, err
	}

	return blocks, d, nil
}
