package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/rf-trace-viewer/rftrace/config"
	"github.com/rf-trace-viewer/rftrace/internal/telemetry"
	"github.com/rf-trace-viewer/rftrace/pipeline"
	"github.com/rf-trace-viewer/rftrace/report"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	err := run(os.Args[1:], os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %s", err))
		os.Exit(1)
	}
}

type options struct {
	output      string
	title       string
	theme       string
	configPath  string
	logLevel    string
	port        int
	live        bool
	noOpen      bool
	showVersion bool
}

func parseArgs(args []string, stderr io.Writer) (options, []string, map[string]bool, error) {
	var o options
	fs := flag.NewFlagSet("rf-trace-report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Generate HTML reports from Robot Framework OpenTelemetry trace files.")
		fmt.Fprintln(stderr, "\nUsage: rf-trace-report [flags] <input>")
		fmt.Fprintln(stderr, "\n<input> is a trace file (.json or .json.gz), or - for standard input.")
		fmt.Fprintln(stderr, "\nFlags:")
		fs.PrintDefaults()
	}

	fs.StringVar(&o.output, "output", "trace-report.html", "output HTML file path")
	fs.StringVar(&o.output, "o", "trace-report.html", "shorthand for --output")
	fs.StringVar(&o.title, "title", "", "report title (default: derived from trace data)")
	fs.StringVar(&o.theme, "theme", "system", "report theme: light, dark or system")
	fs.StringVar(&o.configPath, "config", "", "config file (default: "+config.DefaultFile+" if present)")
	fs.StringVar(&o.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	fs.IntVar(&o.port, "port", 8077, "port for live server")
	fs.BoolVar(&o.live, "live", false, "start live server instead of generating a static file")
	fs.BoolVar(&o.noOpen, "no-open", false, "don't open the browser in live mode")
	fs.BoolVar(&o.showVersion, "version", false, "print the version and exit")

	// Flags may follow the input path.
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return o, nil, nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			break
		}
		positional = append(positional, args[0])
		args = args[1:]
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	if set["o"] {
		set["output"] = true
	}
	return o, positional, set, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	o, positional, set, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}
	if o.showVersion {
		fmt.Fprintf(stdout, "rf-trace-report %s\n", version)
		return nil
	}
	if len(positional) != 1 {
		return errors.New("expected exactly one input path (a trace file or - for stdin)")
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if set["output"] {
		cfg.Output = o.output
	}
	if set["title"] {
		cfg.Title = o.title
	}
	if set["theme"] {
		cfg.Theme = o.theme
	}
	if set["log-level"] {
		cfg.LogLevel = o.logLevel
	}
	if set["port"] {
		cfg.Port = o.port
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if o.live {
		slog.Debug("live mode requested", "port", cfg.Port, "open", !o.noOpen)
		fmt.Fprintln(stdout, "Live mode not yet implemented")
		return nil
	}

	ctx := context.Background()
	shutdown, err := telemetry.Init(ctx, telemetry.Settings{
		Endpoint:    cfg.Telemetry.Endpoint,
		Protocol:    cfg.Telemetry.Protocol,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     version,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	res, err := pipeline.Run(ctx, pipeline.Request{
		Input:  positional[0],
		Output: cfg.Output,
		Report: report.Options{Title: cfg.Title, Theme: cfg.Theme},
		Logger: logger,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, color.GreenString(pipeline.Summary(res)))
	return nil
}
