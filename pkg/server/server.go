package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/denysvitali/repo-analyzer-go/internal/models"
	"github.com/denysvitali/repo-analyzer-go/pkg/analyzer"
	"github.com/denysvitali/repo-analyzer-go/pkg/config"
	"github.com/denysvitali/repo-analyzer-go/pkg/github"
	"github.com/denysvitali/repo-analyzer-go/pkg/manifest"
	"github.com/denysvitali/repo-analyzer-go/pkg/source"
	"github.com/denysvitali/repo-analyzer-go/pkg/telemetry"
	"github.com/denysvitali/repo-analyzer-go/pkg/walker"
)

const (
	msgAnalyzeFailed      = "Error analyzing the repository"
	msgArchitectureFailed = "Failed to generate architecture. Please try again later."
)

// Server represents the HTTP server
type Server struct {
	config   *config.Config
	logger   *logrus.Logger
	analyzer *analyzer.Analyzer
	engine   *gin.Engine
	server   *http.Server
}

// New creates a new server instance that fetches repositories with git
func New(cfg *config.Config, logger *logrus.Logger) (*Server, error) {
	a, err := analyzer.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create analyzer: %w", err)
	}
	return NewWithAnalyzer(cfg, logger, a), nil
}

// NewWithAnalyzer creates a server around an existing analyzer
func NewWithAnalyzer(cfg *config.Config, logger *logrus.Logger, a *analyzer.Analyzer) *Server {
	// Set gin mode based on log level
	if logger.Level == logrus.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(ginLogger(logger))

	if cfg.Telemetry.Enabled {
		engine.Use(otelgin.Middleware(telemetry.ServiceName))
	}

	engine.Use(corsMiddleware())

	server := &Server{
		config:   cfg,
		logger:   logger,
		analyzer: a,
		engine:   engine,
	}
	server.setupRoutes()

	return server
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Infof("Starting server on port %d", s.config.Server.Port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Engine returns the gin engine for testing purposes
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) setupRoutes() {
	s.engine.GET("/alive", s.handleAlive)
	s.engine.GET("/server_info", s.handleServerInfo)

	api := s.engine.Group("/api")
	api.POST("/analyze-repo", s.handleAnalyzeRepo)
	api.POST("/generate-architecture", s.handleGenerateArchitecture)
}

func (s *Server) handleAlive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleServerInfo(c *gin.Context) {
	now := time.Now()
	stats := s.analyzer.GetStats()

	response := models.ServerInfoResponse{
		Uptime:    now.Sub(stats.StartTime).Seconds(),
		IdleTime:  now.Sub(stats.StartTime).Seconds(),
		Analyses:  stats.Analyses,
		Failures:  stats.Failures,
		Resources: s.analyzer.GetSystemResources(),
	}
	if !stats.LastAnalysis.IsZero() {
		last := stats.LastAnalysis
		response.LastAnalysis = &last
		response.IdleTime = now.Sub(last).Seconds()
	}

	c.JSON(http.StatusOK, response)
}

// handleAnalyzeRepo fetches and analyzes the repository named in the body
func (s *Server) handleAnalyzeRepo(c *gin.Context) {
	ctx, span := otel.Tracer(telemetry.ServiceName).Start(c.Request.Context(), "handle_analyze_repo")
	defer span.End()

	var req models.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.RepoURL) == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Repository URL is required"})
		return
	}
	span.SetAttributes(attribute.String("repo.url", req.RepoURL))

	start := time.Now()
	info, err := s.analyzer.Analyze(ctx, req.RepoURL)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, analyzer.ErrInvalidReference) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid GitHub URL"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: msgAnalyzeFailed})
		return
	}

	telemetry.ReportAnalysis(ctx, s.logger, analysisReport(req.RepoURL, info, time.Since(start)))

	c.JSON(http.StatusOK, models.AnalyzeResponse{Success: true, RepoInfo: info})
}

func analysisReport(repo string, info *models.RepoInfo, elapsed time.Duration) telemetry.AnalysisReport {
	nodes := (&walker.Tree{Children: info.FileStructure}).Len()
	_, manifestFound := info.PackageJSON.(json.RawMessage)

	return telemetry.AnalysisReport{
		Repo:            repo,
		Nodes:           nodes,
		Edges:           nodes - len(info.FileStructure),
		RootEntries:     len(info.FileStructure),
		Dependencies:    len(info.ImportantLibraries.Dependencies),
		DevDependencies: len(info.ImportantLibraries.DevDependencies),
		ManifestFound:   manifestFound,
		ReadmeFound:     info.ReadmeContent != manifest.ReadmeNotFound,
		Duration:        elapsed,
	}
}

// handleGenerateArchitecture reports public metadata for a repository
func (s *Server) handleGenerateArchitecture(c *gin.Context) {
	ctx, span := otel.Tracer(telemetry.ServiceName).Start(c.Request.Context(), "handle_generate_architecture")
	defer span.End()

	var req models.ArchitectureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.MessageResponse{Message: "Invalid repo URL"})
		return
	}

	ref, err := source.ParseRef(req.RepoURL)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.MessageResponse{Message: "Invalid repo URL"})
		return
	}
	span.SetAttributes(attribute.String("repo", ref.String()))

	repo, err := github.NewClient(s.config.GitHub).Repository(ctx, ref)
	if err != nil {
		span.RecordError(err)
		s.logger.WithError(err).WithField("repo", ref.String()).Error("Failed to fetch repository metadata")

		var apiErr *github.APIError
		if errors.As(err, &apiErr) {
			message := apiErr.Message
			if message == "" {
				message = msgArchitectureFailed
			}
			c.JSON(apiErr.StatusCode, models.MessageResponse{Message: message})
			return
		}
		c.JSON(http.StatusInternalServerError, models.MessageResponse{Message: msgArchitectureFailed})
		return
	}

	c.JSON(http.StatusOK, models.ArchitectureResponse{
		RepoName:        repo.Name,
		Owner:           repo.Owner.Login,
		Description:     repo.Description,
		Stars:           repo.Stars,
		Forks:           repo.Forks,
		Language:        repo.Language,
		License:         repo.LicenseName(),
		CreatedAt:       repo.CreatedAt,
		UpdatedAt:       repo.UpdatedAt,
		OpenIssuesCount: repo.OpenIssuesCount,
		WatchersCount:   repo.WatchersCount,
	})
}

// ginLogger creates a gin logger middleware using logrus
func ginLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		entry := logger.WithFields(logrus.Fields{
			"status":     statusCode,
			"method":     c.Request.Method,
			"path":       path,
			"ip":         c.ClientIP(),
			"latency":    latency,
			"user_agent": c.Request.UserAgent(),
		})

		if raw != "" {
			entry = entry.WithField("query", raw)
		}

		if statusCode >= 500 {
			entry.Error("Server error")
		} else if statusCode >= 400 {
			entry.Warn("Client error")
		} else {
			entry.Info("Request completed")
		}
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
