package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/zolll23/ragdoll/internal/config"
	"github.com/zolll23/ragdoll/internal/store"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize .ragdoll directory, config and databases",
	Long: `Initialize the .ragdoll directory in the current directory.

This creates:
  .ragdoll/config.yaml   default configuration
  .ragdoll/ragdoll/      Dolt database (projects, files, entities, analysis)
  .ragdoll/vectors.db    SQLite vector store

Examples:
  ragdoll init    # Initialize in current directory`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	// Write default config unless one already exists.
	cfgPath, err := config.SaveDefault(cwd)
	if err != nil {
		// SaveDefault refuses to overwrite; anything else is fatal.
		if _, statErr := os.Stat(filepath.Join(cwd, config.ConfigDirName, config.ConfigFileName)); statErr != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Config already exists at %s\n",
			filepath.Join(config.ConfigDirName, config.ConfigFileName))
	} else {
		relPath, _ := filepath.Rel(cwd, cfgPath)
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote default config to %s\n", relPath)
	}

	ragdollDir := filepath.Join(cwd, config.ConfigDirName)

	st, err := store.Open(ragdollDir)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer st.Close()

	vectors, err := store.OpenVectors(ragdollDir)
	if err != nil {
		return fmt.Errorf("initializing vector store: %w", err)
	}
	defer vectors.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized ragdoll database at %s\n", config.ConfigDirName)
	return nil
}
