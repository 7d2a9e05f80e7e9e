// Package report renders a per-keg cleaning summary through text/template
// with the sprout function registries available.
package report

import (
	"bytes"
	"fmt"
	"io"
	"text/template"

	"github.com/go-sprout/sprout"
	"github.com/go-sprout/sprout/registry/encoding"
	"github.com/go-sprout/sprout/registry/std"
	sproutstrings "github.com/go-sprout/sprout/registry/strings"

	"github.com/kclejeune/kegscrub/internal/cleaner"
)

const DefaultTemplate = `{{ .Keg }}: {{ .Deleted }} deleted, {{ .Chmod }} chmod, ` +
	`{{ .RemovedDirs }} empty dirs, {{ .RemovedSymlinks }} dangling symlinks` +
	`{{ if .RemovedTrees }}, info removed{{ end }}{{ if .Errors }} ({{ .Errors }} errors){{ end }}`

// Data is what a report template sees.
type Data struct {
	Keg     string
	Name    string
	Version string
	Path    string

	Deleted         int
	Chmod           int
	RemovedDirs     int
	RemovedSymlinks int
	RemovedTrees    int
	Total           int
	Errors          int
}

func NewData(keg, name, version, path string, s cleaner.Summary, errs int) Data {
	return Data{
		Keg:             keg,
		Name:            name,
		Version:         version,
		Path:            path,
		Deleted:         s.Deleted,
		Chmod:           s.Chmod,
		RemovedDirs:     s.RemovedDirs,
		RemovedSymlinks: s.RemovedSymlinks,
		RemovedTrees:    s.RemovedTrees,
		Total:           s.Total(),
		Errors:          errs,
	}
}

type Renderer struct {
	tmpl *template.Template
}

// New parses text, or DefaultTemplate when text is empty.
func New(text string) (*Renderer, error) {
	if text == "" {
		text = DefaultTemplate
	}

	funcMap, err := buildFuncMap()
	if err != nil {
		return nil, fmt.Errorf("building template functions: %w", err)
	}

	tmpl, err := template.New("report").Funcs(funcMap).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing report template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render writes one summary line for d, newline terminated.
func (r *Renderer) Render(w io.Writer, d Data) error {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, d); err != nil {
		return fmt.Errorf("executing report template: %w", err)
	}
	if buf.Len() == 0 || buf.Bytes()[buf.Len()-1] != '\n' {
		buf.WriteByte('\n')
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func buildFuncMap() (template.FuncMap, error) {
	handler := sprout.New()

	if err := handler.AddRegistries(
		std.NewRegistry(),
		sproutstrings.NewRegistry(),
		encoding.NewRegistry(),
	); err != nil {
		return nil, err
	}

	return handler.Build(), nil
}
