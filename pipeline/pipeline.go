// Package pipeline turns a trace file into an HTML report: parse, build the
// span tree, interpret it and render. Every stage runs in its own span of the
// global tracer provider.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rf-trace-viewer/rftrace/diag"
	"github.com/rf-trace-viewer/rftrace/model"
	"github.com/rf-trace-viewer/rftrace/otlp"
	"github.com/rf-trace-viewer/rftrace/report"
	"github.com/rf-trace-viewer/rftrace/rf"
	"github.com/rf-trace-viewer/rftrace/tree"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/rf-trace-viewer/rftrace/pipeline"

type Request struct {
	// Input is a trace file path, a .gz file, or "-" for standard input.
	Input  string
	Output string
	Report report.Options
	// Logger receives the warnings. slog.Default() when nil.
	Logger *slog.Logger
}

type Result struct {
	SpanCount  int
	Model      model.RunModel
	Warnings   diag.Warnings
	OutputPath string
}

// Run executes the whole pipeline. Recoverable problems end up in
// Result.Warnings; an error means no report was written.
func Run(ctx context.Context, req Request) (Result, error) {
	logger := req.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "rf-trace-report", trace.WithAttributes(
		attribute.String("rftrace.input", req.Input),
		attribute.String("rftrace.output", req.Output),
	))
	defer span.End()

	var res Result

	spans, err := stage(ctx, tracer, "parse", func(trace.Span) ([]otlp.Span, diag.Warnings, error) {
		return otlp.ParseFile(req.Input)
	}, &res.Warnings)
	if err != nil {
		return fail(span, logger, res, err)
	}
	res.SpanCount = len(spans)
	span.SetAttributes(attribute.Int("rftrace.spans", len(spans)))

	forest, _ := stage(ctx, tracer, "build", func(trace.Span) (*tree.Forest, diag.Warnings, error) {
		f, w := tree.Build(spans)
		return f, w, nil
	}, &res.Warnings)

	res.Model, _ = stage(ctx, tracer, "interpret", func(s trace.Span) (model.RunModel, diag.Warnings, error) {
		m, w := rf.Interpret(forest)
		s.SetAttributes(attribute.Int("rftrace.tests", m.Statistics.TotalTests))
		return m, w, nil
	}, &res.Warnings)

	html, err := stage(ctx, tracer, "render", func(trace.Span) ([]byte, diag.Warnings, error) {
		b, err := report.Generate(res.Model, req.Report)
		return b, nil, err
	}, &res.Warnings)
	if err != nil {
		return fail(span, logger, res, err)
	}

	_, err = stage(ctx, tracer, "write", func(trace.Span) (struct{}, diag.Warnings, error) {
		return struct{}{}, nil, writeFile(req.Output, html)
	}, &res.Warnings)
	if err != nil {
		return fail(span, logger, res, err)
	}
	res.OutputPath = req.Output

	res.Warnings.Log(logger)
	logger.Info("report written",
		"output", res.OutputPath,
		"spans", res.SpanCount,
		"tests", res.Model.Statistics.TotalTests,
		"warnings", len(res.Warnings))
	return res, nil
}

// stage runs fn in a child span, collects its warnings and prefixes its error
// with the stage name.
func stage[T any](ctx context.Context, tracer trace.Tracer, name string, fn func(trace.Span) (T, diag.Warnings, error), warnings *diag.Warnings) (T, error) {
	_, span := tracer.Start(ctx, name)
	defer span.End()

	out, w, err := fn(span)
	warnings.Append(w)
	if len(w) > 0 {
		span.SetAttributes(attribute.Int("rftrace.warnings", len(w)))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func fail(span trace.Span, logger *slog.Logger, res Result, err error) (Result, error) {
	res.Warnings.Log(logger)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return res, err
}

func writeFile(path string, content []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, content, 0o644)
}

// Summary is the one-line result printed by the CLI.
func Summary(res Result) string {
	st := res.Model.Statistics
	return fmt.Sprintf("Report generated: %s (%d spans, %d tests: %d passed, %d failed, %d skipped)",
		res.OutputPath, res.SpanCount, st.TotalTests, st.Passed, st.Failed, st.Skipped)
}
