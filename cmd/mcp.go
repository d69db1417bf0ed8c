package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/denysvitali/repo-analyzer-go/pkg/analyzer"
	"github.com/denysvitali/repo-analyzer-go/pkg/config"
	"github.com/denysvitali/repo-analyzer-go/pkg/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve repository analysis as MCP tools over stdio",
	RunE:  runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	logger := GetLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	a, err := analyzer.New(cfg, logger)
	if err != nil {
		return err
	}

	return mcp.NewServer(logger, a).ServeStdio()
}
