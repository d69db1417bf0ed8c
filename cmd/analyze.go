package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/denysvitali/repo-analyzer-go/internal/models"
	"github.com/denysvitali/repo-analyzer-go/pkg/analyzer"
	"github.com/denysvitali/repo-analyzer-go/pkg/config"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [repository]",
	Short: "Analyze a single repository and print the result",
	Long: `Analyze a GitHub repository given as a URL or owner/name and print the
result. With --local an existing directory is analyzed instead and nothing is fetched.`,
	Example: `  repo-analyzer analyze https://github.com/owner/repo
  repo-analyzer analyze owner/repo --output tree
  repo-analyzer analyze --local ./checkout --output graph`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringP("output", "o", "json", "Output format (json, yaml, tree, graph)")
	analyzeCmd.Flags().String("local", "", "Analyze this directory instead of fetching a repository")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	logger := GetLogger()

	output, _ := cmd.Flags().GetString("output")
	local, _ := cmd.Flags().GetString("local")

	if !validOutput(output) {
		return fmt.Errorf("unknown output format %q", output)
	}
	if local == "" && len(args) == 0 {
		return fmt.Errorf("a repository reference or --local is required")
	}
	if local != "" && len(args) > 0 {
		return fmt.Errorf("--local cannot be combined with a repository reference")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	a, err := analyzer.New(cfg, logger)
	if err != nil {
		return err
	}

	var info *models.RepoInfo
	if local != "" {
		info, err = a.AnalyzeDir(cmd.Context(), local)
	} else {
		info, err = a.Analyze(cmd.Context(), args[0])
	}
	if err != nil {
		return err
	}

	return writeResult(cmd.OutOrStdout(), info, output)
}

func validOutput(format string) bool {
	switch format {
	case "json", "yaml", "tree", "graph":
		return true
	}
	return false
}

// writeResult prints info in the requested format
func writeResult(w io.Writer, info *models.RepoInfo, format string) error {
	switch format {
	case "tree":
		_, err := io.WriteString(w, info.TreeStructure)
		return err
	case "graph":
		_, err := fmt.Fprintln(w, info.DirectoryGraph)
		return err
	case "yaml":
		view := *info
		if raw, ok := info.PackageJSON.(json.RawMessage); ok {
			node, err := yamlNode(raw)
			if err != nil {
				return err
			}
			view.PackageJSON = node
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(&view); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(info)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// yamlNode converts verbatim manifest JSON into a block-style YAML node,
// keeping key order.
func yamlNode(raw json.RawMessage) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("convert package.json: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return &doc, nil
	}
	node := doc.Content[0]
	clearStyle(node)
	return node, nil
}

func clearStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle
	for _, c := range n.Content {
		clearStyle(c)
	}
}
