package pipeline_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rf-trace-viewer/rftrace/diag"
	"github.com/rf-trace-viewer/rftrace/otlp"
	"github.com/rf-trace-viewer/rftrace/pipeline"
	"github.com/rf-trace-viewer/rftrace/report"
	"github.com/rf-trace-viewer/rftrace/testhelpers/otlpfixture"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var _ = Describe("report pipeline", func() {
	var (
		dir      string
		logs     *bytes.Buffer
		logger   *slog.Logger
		exporter *tracetest.InMemoryExporter
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		logs = &bytes.Buffer{}
		logger = slog.New(slog.NewTextHandler(logs, nil))

		exporter = tracetest.NewInMemoryExporter()
		tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
		previous := otel.GetTracerProvider()
		otel.SetTracerProvider(tp)
		DeferCleanup(func() {
			otel.SetTracerProvider(previous)
			Expect(tp.Shutdown(context.Background())).To(Succeed())
		})
	})

	writeTrace := func(name string, gz bool, lines ...[]byte) string {
		path := filepath.Join(dir, name)
		content := otlpfixture.NDJSON(lines...)
		if gz {
			Expect(otlpfixture.WriteGzip(path, content)).To(Succeed())
		} else {
			Expect(otlpfixture.WriteFile(path, content)).To(Succeed())
		}
		return path
	}

	simpleLine := func() []byte {
		l, err := otlpfixture.Line(otlpfixture.SimpleRun())
		Expect(err).ToNot(HaveOccurred())
		return l
	}
	mixedLine := func() []byte {
		l, err := otlpfixture.SnakeLine(otlpfixture.MixedRun())
		Expect(err).ToNot(HaveOccurred())
		return l
	}

	It("writes a report for a simple run", func() {
		input := writeTrace("trace.json", false, simpleLine())
		output := filepath.Join(dir, "out", "report.html")

		res, err := pipeline.Run(context.Background(), pipeline.Request{
			Input:  input,
			Output: output,
			Logger: logger,
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(res.SpanCount).To(Equal(4))
		Expect(res.OutputPath).To(Equal(output))
		Expect(res.Warnings).To(BeEmpty())
		Expect(res.Model.Suites).To(HaveLen(1))

		html, err := os.ReadFile(output)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(html)).To(ContainSubstring("<title>Simple Run</title>"))
		Expect(string(html)).To(ContainSubstring(`"name":"Simple Suite"`))

		Expect(pipeline.Summary(res)).To(Equal(
			"Report generated: " + output + " (4 spans, 1 tests: 1 passed, 0 failed, 0 skipped)"))
		Expect(logs.String()).To(ContainSubstring("report written"))
	})

	It("traces every stage", func() {
		input := writeTrace("trace.json", false, simpleLine())
		_, err := pipeline.Run(context.Background(), pipeline.Request{
			Input:  input,
			Output: filepath.Join(dir, "report.html"),
			Logger: logger,
		})
		Expect(err).ToNot(HaveOccurred())

		var names []string
		for _, s := range exporter.GetSpans() {
			names = append(names, s.Name)
		}
		Expect(names).To(ConsistOf("parse", "build", "interpret", "render", "write", "rf-trace-report"))
	})

	It("reads gzip input and keeps going past bad lines", func() {
		input := writeTrace("trace.json.gz", true,
			[]byte("{garbage"),
			simpleLine(),
			mixedLine(),
		)

		res, err := pipeline.Run(context.Background(), pipeline.Request{
			Input:  input,
			Output: filepath.Join(dir, "report.html"),
			Report: report.Options{Title: "Combined", Theme: report.ThemeDark},
			Logger: logger,
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(res.SpanCount).To(Equal(13))
		Expect(res.Warnings.OfKind(diag.MalformedLine)).To(HaveLen(1))
		Expect(res.Warnings.OfKind(diag.UnknownStatus)).To(HaveLen(1))
		Expect(res.Model.Statistics.TotalTests).To(Equal(5))
		Expect(logs.String()).To(ContainSubstring("level=WARN"))
		Expect(logs.String()).To(ContainSubstring("malformed-line"))

		html, err := os.ReadFile(res.OutputPath)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(html)).To(ContainSubstring("<title>Combined</title>"))
		Expect(string(html)).To(ContainSubstring(`data-theme="dark"`))
	})

	It("reads standard input", func() {
		old := otlp.Stdin
		otlp.Stdin = bytes.NewReader(otlpfixture.NDJSON(simpleLine()))
		DeferCleanup(func() { otlp.Stdin = old })

		res, err := pipeline.Run(context.Background(), pipeline.Request{
			Input:  otlp.StdinPath,
			Output: filepath.Join(dir, "stdin.html"),
			Logger: logger,
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(res.SpanCount).To(Equal(4))
	})

	It("fails on a missing input file", func() {
		output := filepath.Join(dir, "report.html")
		_, err := pipeline.Run(context.Background(), pipeline.Request{
			Input:  filepath.Join(dir, "missing.json"),
			Output: output,
			Logger: logger,
		})
		Expect(err).To(MatchError(otlp.ErrNotFound))
		Expect(err.Error()).To(HavePrefix("parse: "))
		Expect(output).ToNot(BeAnExistingFile())
	})

	It("fails on an unknown theme before writing", func() {
		input := writeTrace("trace.json", false, simpleLine())
		output := filepath.Join(dir, "report.html")
		_, err := pipeline.Run(context.Background(), pipeline.Request{
			Input:  input,
			Output: output,
			Report: report.Options{Theme: "sepia"},
			Logger: logger,
		})
		Expect(err).To(MatchError(report.ErrUnknownTheme))
		Expect(err.Error()).To(HavePrefix("render: "))
		Expect(output).ToNot(BeAnExistingFile())
	})

	It("fails when the output cannot be written", func() {
		input := writeTrace("trace.json", false, simpleLine())
		blocker := filepath.Join(dir, "file")
		Expect(os.WriteFile(blocker, []byte("x"), 0o644)).To(Succeed())

		_, err := pipeline.Run(context.Background(), pipeline.Request{
			Input:  input,
			Output: filepath.Join(blocker, "report.html"),
			Logger: logger,
		})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(HavePrefix("write: "))
	})

	It("writes an empty report for a trace without suites", func() {
		input := writeTrace("empty.json", false)
		res, err := pipeline.Run(context.Background(), pipeline.Request{
			Input:  input,
			Output: filepath.Join(dir, "report.html"),
			Logger: logger,
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(res.SpanCount).To(BeZero())
		Expect(res.Model.Suites).To(BeEmpty())

		html, err := os.ReadFile(res.OutputPath)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(html)).To(ContainSubstring("<title>" + report.DefaultTitle + "</title>"))
	})
})
