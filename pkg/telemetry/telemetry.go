package telemetry

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/exporters/autoexport"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otlplog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/denysvitali/repo-analyzer-go/pkg/config"
)

// ServiceName identifies this service in traces and logs
const ServiceName = "repo-analyzer"

// Initialize installs global tracer and logger providers whose exporters are
// chosen by the standard OTEL_* environment variables.
func Initialize(cfg config.TelemetryConfig, logger *logrus.Logger) (func(), error) {
	if cfg.Endpoint != "" && os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		_ = os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Endpoint)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(ServiceName),
			semconv.ServiceVersionKey.String("1.0.0"),
		),
	)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	spanExporter, err := autoexport.NewSpanExporter(ctx)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	// Analysis reports still reach the span exporter without a log exporter
	var lp *sdklog.LoggerProvider
	if logExporter, err := autoexport.NewLogExporter(ctx); err != nil {
		logger.Warnf("Failed to create log exporter: %v", err)
	} else {
		lp = sdklog.NewLoggerProvider(
			sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
			sdklog.WithResource(res),
		)
		global.SetLoggerProvider(lp)
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := tp.Shutdown(ctx); err != nil {
			logger.Errorf("Error shutting down tracer provider: %v", err)
		}
		if lp != nil {
			if err := lp.Shutdown(ctx); err != nil {
				logger.Errorf("Error shutting down log provider: %v", err)
			}
		}
	}, nil
}

// AnalysisReport summarizes one completed repository analysis
type AnalysisReport struct {
	Repo            string        `json:"repo"`
	Nodes           int           `json:"nodes"`
	Edges           int           `json:"edges"`
	RootEntries     int           `json:"root_entries"`
	Dependencies    int           `json:"dependencies"`
	DevDependencies int           `json:"dev_dependencies"`
	ManifestFound   bool          `json:"manifest_found"`
	ReadmeFound     bool          `json:"readme_found"`
	Duration        time.Duration `json:"duration"`
}

// Attributes returns the report as span attributes
func (r AnalysisReport) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("analysis.repo", r.Repo),
		attribute.Int("analysis.nodes", r.Nodes),
		attribute.Int("analysis.edges", r.Edges),
		attribute.Int("analysis.root_entries", r.RootEntries),
		attribute.Int("analysis.dependencies", r.Dependencies),
		attribute.Int("analysis.dev_dependencies", r.DevDependencies),
		attribute.Bool("analysis.manifest_found", r.ManifestFound),
		attribute.Bool("analysis.readme_found", r.ReadmeFound),
		attribute.Int64("analysis.duration_ms", r.Duration.Milliseconds()),
	}
}

// ReportAnalysis records the report on a child span, as an OpenTelemetry log
// record and as a debug log line.
func ReportAnalysis(ctx context.Context, logger *logrus.Logger, r AnalysisReport) {
	ctx, span := otel.Tracer(ServiceName).Start(ctx, "analysis_report")
	span.SetAttributes(r.Attributes()...)
	span.End()

	logger.WithFields(logrus.Fields{
		"repo":             r.Repo,
		"nodes":            r.Nodes,
		"edges":            r.Edges,
		"dependencies":     r.Dependencies,
		"dev_dependencies": r.DevDependencies,
		"duration":         r.Duration,
	}).Debug("Analysis completed")

	body, err := json.Marshal(r)
	if err != nil {
		logger.Errorf("Failed to marshal analysis report: %v", err)
		return
	}

	var record otlplog.Record
	now := time.Now()
	record.SetTimestamp(now)
	record.SetObservedTimestamp(now)
	record.SetSeverity(otlplog.SeverityInfo)
	record.SetSeverityText("INFO")
	record.SetBody(otlplog.StringValue(string(body)))
	record.AddAttributes(
		otlplog.String("event", "analysis_report"),
		otlplog.String("repo", r.Repo),
		otlplog.Int("nodes", r.Nodes),
	)
	global.GetLoggerProvider().Logger(ServiceName).Emit(ctx, record)
}
