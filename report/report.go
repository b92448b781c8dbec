// Package report renders a run model into one self-contained HTML file: the
// run data, the viewer scripts and the stylesheet are all inlined.
package report

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"strings"

	"github.com/rf-trace-viewer/rftrace/model"
)

const DefaultTitle = "RF Trace Report"

const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

var (
	ErrMissingAsset = errors.New("viewer asset missing")
	ErrUnknownTheme = errors.New("unknown theme")
)

// Scripts are concatenated in this order: app.js uses what the others define.
var (
	scriptAssets = []string{"stats.js", "tree.js", "app.js"}
	styleAssets  = []string{"style.css"}
)

//go:embed viewer
var viewerFS embed.FS

type Options struct {
	// Title overrides the title taken from the run.
	Title string
	// Theme is light, dark or system. Empty means system.
	Theme string
}

var page = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en" data-theme="{{.Theme}}">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
{{.CSS}}
</style>
</head>
<body>
<div class="rf-trace-viewer"></div>
<script>
window.__RF_TRACE_DATA__ = {{.Data}};
</script>
<script>
{{.JS}}
</script>
</body>
</html>
`))

type pageData struct {
	Title string
	Theme string
	CSS   template.CSS
	JS    template.JS
	Data  template.JS
}

// Renderer reads the viewer assets from Assets.
type Renderer struct {
	Assets fs.FS
}

// NewRenderer returns a Renderer using the viewer built into the binary.
func NewRenderer() *Renderer {
	sub, err := fs.Sub(viewerFS, "viewer")
	if err != nil {
		panic(err)
	}
	return &Renderer{Assets: sub}
}

// Generate renders m with the built-in viewer.
func Generate(m model.RunModel, opts Options) ([]byte, error) {
	return NewRenderer().Generate(m, opts)
}

func (r *Renderer) Generate(m model.RunModel, opts Options) ([]byte, error) {
	theme, err := resolveTheme(opts.Theme)
	if err != nil {
		return nil, err
	}
	data, err := EmbedData(m)
	if err != nil {
		return nil, err
	}
	js, err := r.concat(scriptAssets)
	if err != nil {
		return nil, err
	}
	css, err := r.concat(styleAssets)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	err = page.Execute(&buf, pageData{
		Title: resolveTitle(opts.Title, m.Title),
		Theme: theme,
		CSS:   template.CSS(css),
		JS:    template.JS(js),
		Data:  template.JS(data),
	})
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}

// EmbedData is the compact JSON form of m. <, > and & are escaped, so the
// result can be placed inside a script element.
func EmbedData(m model.RunModel) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode run model: %w", err)
	}
	return data, nil
}

func (r *Renderer) concat(names []string) (string, error) {
	parts := make([]string, 0, len(names))
	for _, name := range names {
		b, err := fs.ReadFile(r.Assets, name)
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrMissingAsset, name)
		}
		if err != nil {
			return "", fmt.Errorf("read viewer asset %s: %w", name, err)
		}
		parts = append(parts, string(b))
	}
	return strings.Join(parts, "\n"), nil
}

func resolveTheme(theme string) (string, error) {
	switch theme {
	case "":
		return ThemeSystem, nil
	case ThemeLight, ThemeDark, ThemeSystem:
		return theme, nil
	}
	return "", fmt.Errorf("%w: %q (want %s, %s or %s)", ErrUnknownTheme, theme, ThemeLight, ThemeDark, ThemeSystem)
}

func resolveTitle(override, fromRun string) string {
	if t := strings.TrimSpace(override); t != "" {
		return t
	}
	if t := strings.TrimSpace(fromRun); t != "" {
		return t
	}
	return DefaultTitle
}
