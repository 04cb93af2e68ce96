package export

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/brunobiangulo/gosquit/store"
)

// JSONLExporter writes one JSON object per line.
type JSONLExporter struct{}

func (e *JSONLExporter) SupportedFormats() []string { return []string{"jsonl", "ndjson"} }

func (e *JSONLExporter) Export(ctx context.Context, path string, records []store.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating JSONL: %w", err)
	}
	if err := WriteJSONL(ctx, f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteJSONL encodes records to w, one per line.
func WriteJSONL(ctx context.Context, w io.Writer, records []store.Record) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for i, r := range records {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encoding record %s: %w", r.Hash, err)
		}
	}
	return bw.Flush()
}

// ReadJSONL decodes records written by WriteJSONL.
func ReadJSONL(r io.Reader) ([]store.Record, error) {
	dec := json.NewDecoder(r)
	var out []store.Record
	for {
		var rec store.Record
		err := dec.Decode(&rec)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decoding JSONL record %d: %w", len(out)+1, err)
		}
		out = append(out, rec)
	}
}
