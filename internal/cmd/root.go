// Package cmd contains all CLI commands for ragdoll.
package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/zolll23/ragdoll/internal/config"
	"github.com/zolll23/ragdoll/internal/store"
)

var (
	// Version is the current version of ragdoll
	Version = "0.1.0"

	// Global flags
	verbose      bool
	configPath   string
	outputFormat string
	forAgents    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ragdoll",
	Short: "Code intelligence index and search for Python and PHP codebases",
	Long: `ragdoll builds a searchable index of code entities from Python and PHP
projects and answers natural-language questions about them.

It extracts classes, methods, functions and constants with tree-sitter,
computes deterministic static metrics, enriches every entity through an
LLM provider (description, keywords, SOLID violations, design patterns,
architectural roles) and stores it all in an embedded Dolt database with
a SQLite vector sidecar.

Search combines keyword matching, structured filters parsed from the
query (entity type, MVC/DDD role, complexity, SOLID), the dependency
graph and semantic vector similarity.

Main capabilities:
  - Register and index whole projects, resumable after interruption
  - Search in English or Russian: "методы со сложностью O(n^2)",
    "controllers that send messages", "srp violations"
  - Find entities similar to a given one by code fingerprint
  - Scan a project for duplicated code fragments
  - Serve the index to AI agents over MCP

Global Flags:
  --format    Output format: yaml (default) | json
  --config    Path to config file (default: .ragdoll/config.yaml)

Examples:
  ragdoll init                          # Initialize in current directory
  ragdoll project add shop ~/src/shop   # Register a project
  ragdoll index shop                    # Index it
  ragdoll search "payment controllers"  # Query the index
  ragdoll duplicates shop               # Find copy-pasted fragments

See 'ragdoll <command> --help' for command-specific options.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: .ragdoll/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "yaml", "Output format (yaml|json)")
	rootCmd.Flags().BoolVar(&forAgents, "for-agents", false, "Output machine-readable capability discovery JSON")

	// Set custom help function to intercept --for-agents flag
	originalHelp := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if forAgents {
			outputAgentHelp(cmd)
			return
		}
		originalHelp(cmd, args)
	})
}

// setupLogging installs the process-wide slog handler. Level follows
// the --verbose flag; output goes to stderr so stdout stays parseable.
func setupLogging() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// loadConfig loads configuration honoring the --config flag.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromPath(configPath)
	}
	return config.Load(".")
}

// openStore opens the store from the nearest .ragdoll directory.
func openStore() (*store.Store, error) {
	ragdollDir, err := config.FindConfigDir(".")
	if err != nil {
		return nil, fmt.Errorf("ragdoll not initialized: run 'ragdoll init' first")
	}

	st, err := store.Open(ragdollDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return st, nil
}

// openVectors opens the vector store next to the relational one.
func openVectors() (*store.VectorStore, error) {
	ragdollDir, err := config.FindConfigDir(".")
	if err != nil {
		return nil, fmt.Errorf("ragdoll not initialized: run 'ragdoll init' first")
	}
	return store.OpenVectors(ragdollDir)
}

// resolveProject finds a project by name or numeric id.
func resolveProject(st *store.Store, nameOrID string) (*store.Project, error) {
	if p, err := st.GetProjectByName(nameOrID); err == nil {
		return p, nil
	}
	var id int64
	if _, err := fmt.Sscanf(nameOrID, "%d", &id); err == nil {
		if p, err := st.GetProject(id); err == nil {
			return p, nil
		}
	}
	return nil, fmt.Errorf("project not found: %s (run 'ragdoll project list')", nameOrID)
}

// CommandInfo represents a command for agent discovery
type CommandInfo struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Usage       string        `json:"usage"`
	Flags       []FlagInfo    `json:"flags,omitempty"`
	Subcommands []CommandInfo `json:"subcommands,omitempty"`
	Examples    []string      `json:"examples,omitempty"`
}

// FlagInfo represents a command flag for agent discovery
type FlagInfo struct {
	Name        string `json:"name"`
	Shorthand   string `json:"shorthand,omitempty"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Default     string `json:"default,omitempty"`
}

// outputAgentHelp outputs machine-readable JSON describing all commands
func outputAgentHelp(cmd *cobra.Command) {
	root := buildCommandInfo(cmd.Root())

	output := map[string]interface{}{
		"version":      Version,
		"commands":     root.Subcommands,
		"global_flags": root.Flags,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(output)
}

// buildCommandInfo recursively builds command information for agent discovery
func buildCommandInfo(cmd *cobra.Command) CommandInfo {
	info := CommandInfo{
		Name:        cmd.Name(),
		Description: cmd.Short,
		Usage:       cmd.UseLine(),
	}

	// Collect flags
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		info.Flags = append(info.Flags, FlagInfo{
			Name:        f.Name,
			Shorthand:   f.Shorthand,
			Description: f.Usage,
			Type:        f.Value.Type(),
			Default:     f.DefValue,
		})
	})

	// Collect subcommands
	for _, sub := range cmd.Commands() {
		if !sub.Hidden {
			info.Subcommands = append(info.Subcommands, buildCommandInfo(sub))
		}
	}

	// Extract examples from Example field if available
	if cmd.Example != "" {
		lines := strings.Split(cmd.Example, "\n")
		for _, line := range lines {
			trimmed := strings.TrimSpace(line)
			if trimmed != "" {
				info.Examples = append(info.Examples, trimmed)
			}
		}
	}

	return info
}
