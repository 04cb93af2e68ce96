// Package export writes generated corpora to files.
package export

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/brunobiangulo/gosquit/store"
)

// Exporter writes records in one or more file formats.
type Exporter interface {
	Export(ctx context.Context, path string, records []store.Record) error
	SupportedFormats() []string
}

// Registry maps file formats to exporters.
type Registry struct {
	exporters map[string]Exporter
}

// NewRegistry returns a registry with the built-in exporters.
func NewRegistry() *Registry {
	r := &Registry{exporters: make(map[string]Exporter)}
	for _, e := range []Exporter{&JSONLExporter{}, &TSVExporter{}, &XLSXExporter{}} {
		for _, f := range e.SupportedFormats() {
			r.exporters[f] = e
		}
	}
	return r
}

// Get returns the exporter for format.
func (r *Registry) Get(format string) (Exporter, error) {
	e, ok := r.exporters[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("no exporter for format: %s (have %s)", format, strings.Join(r.Formats(), ", "))
	}
	return e, nil
}

// ForPath returns the exporter matching the extension of path.
func (r *Registry) ForPath(path string) (Exporter, error) {
	return r.Get(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Register adds or replaces the exporter for format.
func (r *Registry) Register(format string, e Exporter) {
	r.exporters[format] = e
}

// Formats lists the registered formats.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.exporters))
	for f := range r.exporters {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Export writes records to path, choosing the exporter by extension.
func Export(ctx context.Context, path string, records []store.Record) error {
	e, err := NewRegistry().ForPath(path)
	if err != nil {
		return err
	}
	return e.Export(ctx, path, records)
}

// columns is the column order shared by the tabular formats.
var columns = []string{"shape", "question", "query", "hash", "entities"}

func row(r store.Record) []string {
	return []string{r.Shape, r.Question, r.Query, r.Hash, strings.Join(r.Entities, " ")}
}
