// Package config loads rf-trace-report settings. Values are applied in order:
// built-in defaults, the YAML config file, then environment variables. A
// .env file in the working directory is read into the environment first.
// Command line flags are applied by the caller on top of the result.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no config file is given. It may be absent.
const DefaultFile = ".rf-trace-report.yaml"

const (
	ProtocolGRPC = "grpc"
	ProtocolHTTP = "http/protobuf"
)

var ErrInvalid = errors.New("invalid configuration")

type Telemetry struct {
	// Endpoint is the OTLP collector address. Empty disables self-tracing.
	Endpoint    string `yaml:"endpoint"`
	Protocol    string `yaml:"protocol"`
	ServiceName string `yaml:"service-name"`
	Insecure    bool   `yaml:"insecure"`
}

type Config struct {
	Output    string    `yaml:"output"`
	Title     string    `yaml:"title"`
	Theme     string    `yaml:"theme"`
	LogLevel  string    `yaml:"log-level"`
	Port      int       `yaml:"port"`
	Telemetry Telemetry `yaml:"telemetry"`
}

func Default() Config {
	return Config{
		Output:   "trace-report.html",
		Theme:    "system",
		LogLevel: "info",
		Port:     8077,
		Telemetry: Telemetry{
			Protocol:    ProtocolGRPC,
			ServiceName: "rf-trace-report",
			Insecure:    true,
		},
	}
}

// Load builds the configuration. An empty path reads DefaultFile if it
// exists; an explicit path must exist. The result is not validated: callers
// apply their own overrides first and then call Validate.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
		slog.Debug("loaded config file", "path", path)
	case !explicit && errors.Is(err, fs.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Output = envStr("RF_TRACE_OUTPUT", c.Output)
	c.Title = envStr("RF_TRACE_TITLE", c.Title)
	c.Theme = envStr("RF_TRACE_THEME", c.Theme)
	c.LogLevel = envStr("RF_TRACE_LOG_LEVEL", c.LogLevel)
	c.Telemetry.Endpoint = envStr("OTEL_EXPORTER_OTLP_ENDPOINT", c.Telemetry.Endpoint)
	c.Telemetry.Protocol = envStr("OTEL_EXPORTER_OTLP_PROTOCOL", c.Telemetry.Protocol)
	c.Telemetry.ServiceName = envStr("OTEL_SERVICE_NAME", c.Telemetry.ServiceName)
}

// Validate checks the settings that would otherwise fail late.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Output) == "" {
		errs = append(errs, errors.New("output path is empty"))
	}
	switch c.Theme {
	case "light", "dark", "system":
	default:
		errs = append(errs, fmt.Errorf("theme must be light, dark or system, got %q", c.Theme))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	switch c.Telemetry.Protocol {
	case ProtocolGRPC, ProtocolHTTP:
	default:
		errs = append(errs, fmt.Errorf("telemetry protocol must be %s or %s, got %q", ProtocolGRPC, ProtocolHTTP, c.Telemetry.Protocol))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Level parses LogLevel (debug, info, warn or error).
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, fmt.Errorf("log level: %w", err)
	}
	return l, nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
