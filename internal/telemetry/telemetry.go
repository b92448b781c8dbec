// Package telemetry traces rf-trace-report itself over OTLP.
package telemetry

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

const (
	ProtocolGRPC = "grpc"
	ProtocolHTTP = "http/protobuf"
)

type Settings struct {
	Endpoint    string
	Protocol    string
	ServiceName string
	Version     string
	Insecure    bool
}

type Shutdown func(ctx context.Context) error

// Init installs a global tracer provider that exports to s.Endpoint. With an
// empty endpoint nothing is installed and the returned Shutdown does nothing.
func Init(ctx context.Context, s Settings) (Shutdown, error) {
	if s.Endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	tp, err := TracerProvider(ctx, s)
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// TracerProvider builds a batching provider for the configured exporter.
func TracerProvider(ctx context.Context, s Settings) (*trace.TracerProvider, error) {
	exporter, err := newExporter(ctx, s)
	if err != nil {
		return nil, err
	}

	r, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", s.ServiceName),
		attribute.String("service.version", s.Version),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create resource: %w", err)
	}

	return trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(r),
	), nil
}

// target is a parsed exporter endpoint. An OTEL_EXPORTER_OTLP_ENDPOINT value
// is a URL whose scheme decides transport security; a bare host:port keeps
// the Insecure setting.
type target struct {
	host     string
	path     string
	insecure bool
}

func parseEndpoint(endpoint string, insecure bool) (target, error) {
	if !strings.Contains(endpoint, "://") {
		return target{host: endpoint, insecure: insecure}, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return target{}, fmt.Errorf("telemetry: endpoint %q: %w", endpoint, err)
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return target{}, fmt.Errorf("telemetry: endpoint %q: unsupported scheme %q", endpoint, u.Scheme)
	}
	if u.Host == "" {
		return target{}, fmt.Errorf("telemetry: endpoint %q has no host", endpoint)
	}
	return target{host: u.Host, path: u.Path, insecure: u.Scheme == "http"}, nil
}

func newExporter(ctx context.Context, s Settings) (*otlptrace.Exporter, error) {
	t, err := parseEndpoint(s.Endpoint, s.Insecure)
	if err != nil {
		return nil, err
	}

	var exporter *otlptrace.Exporter
	switch s.Protocol {
	case ProtocolGRPC, "":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(t.host)}
		if t.insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
	case ProtocolHTTP:
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(t.host),
			otlptracehttp.WithURLPath(path.Join("/", t.path, "v1/traces")),
		}
		if t.insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("telemetry: unknown exporter protocol %q, use %s or %s", s.Protocol, ProtocolGRPC, ProtocolHTTP)
	}
	if err != nil {
		return nil, fmt.Errorf("telemetry: create %s exporter: %w", s.Protocol, err)
	}
	return exporter, nil
}
