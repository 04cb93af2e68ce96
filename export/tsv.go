package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/brunobiangulo/gosquit/store"
)

// TSVExporter writes a tab-separated file with a header row.
type TSVExporter struct{}

func (e *TSVExporter) SupportedFormats() []string { return []string{"tsv"} }

func (e *TSVExporter) Export(ctx context.Context, path string, records []store.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating TSV: %w", err)
	}
	w := csv.NewWriter(f)
	w.Comma = '\t'

	if err := w.Write(columns); err != nil {
		f.Close()
		return fmt.Errorf("writing TSV header: %w", err)
	}
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			f.Close()
			return err
		}
		if err := w.Write(row(r)); err != nil {
			f.Close()
			return fmt.Errorf("writing TSV row %s: %w", r.Hash, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flushing TSV: %w", err)
	}
	return f.Close()
}
