package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/denysvitali/repo-analyzer-go/internal/models"
	"github.com/denysvitali/repo-analyzer-go/pkg/config"
	"github.com/denysvitali/repo-analyzer-go/pkg/manifest"
	"github.com/denysvitali/repo-analyzer-go/pkg/source"
	"github.com/denysvitali/repo-analyzer-go/pkg/walker"
)

var (
	// ErrInvalidReference means the repository reference did not parse; no
	// fetch was attempted.
	ErrInvalidReference = errors.New("invalid repository reference")
	// ErrFetch means the repository contents could not be retrieved
	ErrFetch = errors.New("fetch failed")
	// ErrWalk means the fetched tree could not be read
	ErrWalk = errors.New("walk failed")
)

// Analyzer runs fetch, walk, manifest and README extraction for a repository
type Analyzer struct {
	config  *config.Config
	logger  *logrus.Logger
	fetcher source.Fetcher
	scratch *source.Scratch
	walker  *walker.Walker
	tracer  trace.Tracer

	startTime time.Time
	analyses  atomic.Int64
	failures  atomic.Int64

	mu           sync.RWMutex
	lastAnalysis time.Time
}

// New creates an analyzer that clones repositories with git
func New(cfg *config.Config, logger *logrus.Logger) (*Analyzer, error) {
	return NewWithFetcher(cfg, logger, source.NewGitFetcher(cfg.Fetch, logger))
}

// NewWithFetcher creates an analyzer with a custom source fetcher
func NewWithFetcher(cfg *config.Config, logger *logrus.Logger, fetcher source.Fetcher) (*Analyzer, error) {
	opts, err := cfg.Walker.Options()
	if err != nil {
		return nil, fmt.Errorf("invalid walker configuration: %w", err)
	}

	return &Analyzer{
		config:    cfg,
		logger:    logger,
		fetcher:   fetcher,
		scratch:   source.NewScratch(cfg.Scratch.Dir),
		walker:    walker.New(opts),
		tracer:    otel.Tracer("repo-analyzer"),
		startTime: time.Now(),
	}, nil
}

// Analyze fetches the referenced repository into a fresh scratch location,
// analyzes it and removes the location again on every exit path.
func (a *Analyzer) Analyze(ctx context.Context, repoRef string) (info *models.RepoInfo, err error) {
	ctx, span := a.tracer.Start(ctx, "analyze_repository")
	defer span.End()

	ref, err := source.ParseRef(repoRef)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %w", ErrInvalidReference, err)
	}
	span.SetAttributes(attribute.String("repo", ref.String()))

	a.analyses.Add(1)
	a.touch()
	defer func() {
		if err != nil {
			a.failures.Add(1)
			span.RecordError(err)
			a.logger.WithError(err).WithField("repo", ref.String()).Error("Repository analysis failed")
		}
	}()

	dir, err := a.scratch.Allocate()
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := a.scratch.Release(dir); rerr != nil {
			a.logger.Warnf("Failed to remove scratch directory %s: %v", dir, rerr)
		}
	}()

	a.logger.WithFields(logrus.Fields{
		"repo":    ref.String(),
		"scratch": dir,
	}).Info("Fetching repository")

	if err := a.fetch(ctx, ref, dir); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, ref, err)
	}

	return a.AnalyzeDir(ctx, dir)
}

func (a *Analyzer) fetch(ctx context.Context, ref source.Ref, dir string) error {
	ctx, span := a.tracer.Start(ctx, "fetch")
	defer span.End()

	if err := a.fetcher.Fetch(ctx, ref, dir); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// AnalyzeDir analyzes an already populated directory. The directory is
// only read, never removed.
func (a *Analyzer) AnalyzeDir(ctx context.Context, dir string) (*models.RepoInfo, error) {
	walkCtx, span := a.tracer.Start(ctx, "walk")
	tree, err := a.walker.Walk(walkCtx, dir)
	if err != nil {
		span.RecordError(err)
		span.End()
		return nil, fmt.Errorf("%w: %w", ErrWalk, err)
	}
	graph := walker.DescribeGraph(tree)
	text := walker.RenderText(tree)
	span.SetAttributes(
		attribute.Int("nodes", len(graph.Declarations)),
		attribute.Int("edges", len(graph.Edges)),
	)
	span.End()

	a.logger.WithFields(logrus.Fields{
		"nodes": len(graph.Declarations),
		"edges": len(graph.Edges),
	}).Debug("Walked repository")

	info := &models.RepoInfo{
		FileStructure:      tree.Children,
		DirectoryGraph:     graph.String(),
		TreeStructure:      text,
		PackageJSON:        manifest.NotFound,
		ImportantLibraries: manifest.EmptySummary(),
	}
	if info.FileStructure == nil {
		info.FileStructure = []*walker.Node{}
	}

	if err := a.readManifest(ctx, dir, info); err != nil {
		return nil, err
	}

	readme, _, err := manifest.ReadReadme(dir)
	if err != nil {
		return nil, fmt.Errorf("read readme: %w", err)
	}
	info.ReadmeContent = readme

	return info, nil
}

func (a *Analyzer) readManifest(ctx context.Context, dir string, info *models.RepoInfo) error {
	_, span := a.tracer.Start(ctx, "read_manifest")
	defer span.End()

	m, err := manifest.Read(dir)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("read manifest: %w", err)
	}
	if m == nil {
		span.SetAttributes(attribute.Bool("manifest.found", false))
		return nil
	}

	span.SetAttributes(
		attribute.Bool("manifest.found", true),
		attribute.Int("manifest.dependencies", len(m.Summary.Dependencies)),
		attribute.Int("manifest.dev_dependencies", len(m.Summary.DevDependencies)),
	)
	info.PackageJSON = m.Raw
	info.ImportantLibraries = m.Summary
	return nil
}

func (a *Analyzer) touch() {
	a.mu.Lock()
	a.lastAnalysis = time.Now()
	a.mu.Unlock()
}

// Stats reports counters since the analyzer was created
type Stats struct {
	StartTime    time.Time
	LastAnalysis time.Time
	Analyses     int64
	Failures     int64
}

// GetStats returns the analyzer counters
func (a *Analyzer) GetStats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return Stats{
		StartTime:    a.startTime,
		LastAnalysis: a.lastAnalysis,
		Analyses:     a.analyses.Load(),
		Failures:     a.failures.Load(),
	}
}

// ScratchRoot returns the directory repositories are fetched under
func (a *Analyzer) ScratchRoot() string {
	return a.scratch.Root()
}
