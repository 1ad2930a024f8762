package cmd

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/zolll23/ragdoll/internal/mcp"
	"github.com/zolll23/ragdoll/internal/search"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start MCP server for AI agent integration",
	Long: `Start an MCP (Model Context Protocol) server over stdio.

This lets AI agents query the index through MCP tools instead of
spawning CLI commands. The server exits after a period of inactivity.

Available Tools:
  ragdoll_search     Natural-language search over the index
  ragdoll_show       Entity details with analysis and dependencies
  ragdoll_similar    Fingerprint similarity lookup
  ragdoll_status     Indexing progress per project
  ragdoll_projects   List registered projects

Examples:
  ragdoll serve                                  # All tools, 30m timeout
  ragdoll serve --tools ragdoll_search           # Restrict the tool set
  ragdoll serve --timeout 0                      # Never time out
  ragdoll serve --list-tools                     # Show available tools`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveTools     string
	serveTimeout   string
	serveListTools bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveTools, "tools", "", "Comma-separated list of tools to expose (default: all)")
	serveCmd.Flags().StringVar(&serveTimeout, "timeout", "30m", "Inactivity timeout (0 for no timeout)")
	serveCmd.Flags().BoolVar(&serveListTools, "list-tools", false, "List available tools")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveListTools {
		fmt.Fprintln(cmd.OutOrStdout(), "Available MCP tools:")
		fmt.Fprintln(cmd.OutOrStdout())
		fmt.Fprintln(cmd.OutOrStdout(), "  ragdoll_search     Natural-language search over the index")
		fmt.Fprintln(cmd.OutOrStdout(), "  ragdoll_show       Entity details with analysis and dependencies")
		fmt.Fprintln(cmd.OutOrStdout(), "  ragdoll_similar    Fingerprint similarity lookup")
		fmt.Fprintln(cmd.OutOrStdout(), "  ragdoll_status     Indexing progress per project")
		fmt.Fprintln(cmd.OutOrStdout(), "  ragdoll_projects   List registered projects")
		return nil
	}

	timeout := time.Duration(0)
	if serveTimeout != "" && serveTimeout != "0" {
		parsed, err := time.ParseDuration(serveTimeout)
		if err != nil {
			return fmt.Errorf("invalid timeout: %s", serveTimeout)
		}
		timeout = parsed
	}

	var tools []string
	if serveTools != "" {
		for _, t := range strings.Split(serveTools, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tools = append(tools, t)
			}
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}

	vectors, err := openVectors()
	if err != nil {
		slog.Warn("vector store unavailable, semantic stage disabled", "error", err)
		vectors = nil
	}

	var embedder search.Embedder
	if vectors != nil {
		if e, err := buildEmbedder(cfg); err == nil {
			embedder = e
		}
	}
	engine := search.New(st, vectors, embedder, nil, slog.Default())

	server, err := mcp.New(st, vectors, engine, mcp.Config{
		Tools:       tools,
		Timeout:     timeout,
		SearchLimit: cfg.Search.DefaultLimit,
	})
	if err != nil {
		if vectors != nil {
			vectors.Close()
		}
		st.Close()
		return fmt.Errorf("start mcp server: %w", err)
	}
	defer server.Close()

	fmt.Fprintln(cmd.ErrOrStderr(), "ragdoll MCP server listening on stdio")
	return server.ServeStdio()
}
