package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/denysvitali/repo-analyzer-go/pkg/analyzer"
)

const (
	toolAnalyze = "analyze_repository"
	toolTree    = "repository_tree"
)

// Server exposes repository analysis as MCP tools
type Server struct {
	logger    *logrus.Logger
	analyzer  *analyzer.Analyzer
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server backed by the given analyzer
func NewServer(logger *logrus.Logger, a *analyzer.Analyzer) *Server {
	mcpServer := server.NewMCPServer(
		"repo-analyzer",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		logger:    logger,
		analyzer:  a,
		mcpServer: mcpServer,
	}
	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	analyzeTool := mcp.NewTool(toolAnalyze,
		mcp.WithDescription("Fetch a GitHub repository and report its file structure, directory graph, dependencies and README"),
		mcp.WithString("repo_url",
			mcp.Required(),
			mcp.Description("Repository URL or owner/name"),
		),
	)
	s.mcpServer.AddTool(analyzeTool, s.handleAnalyze)

	treeTool := mcp.NewTool(toolTree,
		mcp.WithDescription("Render the directory tree of a GitHub repository"),
		mcp.WithString("repo_url",
			mcp.Required(),
			mcp.Description("Repository URL or owner/name"),
		),
		mcp.WithString("format",
			mcp.Description("Output format"),
			mcp.Enum("text", "graph"),
		),
	)
	s.mcpServer.AddTool(treeTool, s.handleTree)
}

// ServeStdio serves MCP over standard input and output until EOF
func (s *Server) ServeStdio() error {
	s.logger.Info("Serving MCP over stdio")
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) handleAnalyze(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoURL, err := request.RequireString("repo_url")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("repo_url parameter error: %v", err)), nil
	}

	info, err := s.analyzer.Analyze(ctx, repoURL)
	if err != nil {
		return mcp.NewToolResultError(toolError(err)), nil
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal analysis: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleTree(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoURL, err := request.RequireString("repo_url")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("repo_url parameter error: %v", err)), nil
	}
	format := request.GetString("format", "text")
	if format != "text" && format != "graph" {
		return mcp.NewToolResultError(fmt.Sprintf("unknown format %q", format)), nil
	}

	info, err := s.analyzer.Analyze(ctx, repoURL)
	if err != nil {
		return mcp.NewToolResultError(toolError(err)), nil
	}

	if format == "graph" {
		return mcp.NewToolResultText(info.DirectoryGraph), nil
	}
	return mcp.NewToolResultText(info.TreeStructure), nil
}

func toolError(err error) string {
	if errors.Is(err, analyzer.ErrInvalidReference) {
		return "Invalid GitHub URL"
	}
	return fmt.Sprintf("Error analyzing the repository: %v", err)
}
