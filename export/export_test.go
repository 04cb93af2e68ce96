package export_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/brunobiangulo/gosquit/export"
	"github.com/brunobiangulo/gosquit/store"
)

func sample() []store.Record {
	return []store.Record{
		{
			Shape:    "single_entity",
			Question: "Who is the father of Ada Lovelace?",
			Query:    "SELECT ?end WHERE { [ Ada Lovelace ] wdt:P22 ?end . }",
			Hash:     "h1",
			Entities: []string{"Q7259"},
		},
		{
			Shape:    "multi_entity",
			Question: "Is Dune the <author>\tof \"Dune\"?",
			Query:    "ASK { [ Dune ] wdt:P50 ?end . [ Dune ] wdt:P50 ?end . }",
			Hash:     "h2",
			Entities: []string{"Q190192", "Q190192"},
		},
	}
}

func TestRegistry(t *testing.T) {
	r := export.NewRegistry()
	assert.Equal(t, []string{"jsonl", "ndjson", "tsv", "xlsx"}, r.Formats())

	e, err := r.ForPath("out/corpus.XLSX")
	require.NoError(t, err)
	assert.IsType(t, &export.XLSXExporter{}, e)

	_, err = r.ForPath("corpus.parquet")
	assert.Error(t, err)
}

func TestJSONLRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteJSONL(context.Background(), &buf, sample()))

	lines := bytes.Count(buf.Bytes(), []byte("\n"))
	assert.Equal(t, 2, lines)
	assert.Contains(t, buf.String(), `<author>`, "HTML is not escaped")

	back, err := export.ReadJSONL(&buf)
	require.NoError(t, err)
	assert.Equal(t, sample(), back)
}

func TestJSONLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.jsonl")
	require.NoError(t, export.Export(context.Background(), path, sample()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	back, err := export.ReadJSONL(f)
	require.NoError(t, err)
	assert.Len(t, back, 2)
}

func TestTSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.tsv")
	require.NoError(t, export.Export(context.Background(), path, sample()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r := csv.NewReader(f)
	r.Comma = '\t'
	rows, err := r.ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, []string{"shape", "question", "query", "hash", "entities"}, rows[0])
	assert.Equal(t, "Is Dune the <author>\tof \"Dune\"?", rows[2][1])
	assert.Equal(t, "Q190192 Q190192", rows[2][4])
}

func TestXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.xlsx")
	require.NoError(t, export.Export(context.Background(), path, sample()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"all", "single_entity", "multi_entity"}, f.GetSheetList())

	all, err := f.GetRows("all")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "question", all[0][1])
	assert.Equal(t, "h2", all[2][3])

	multi, err := f.GetRows("multi_entity")
	require.NoError(t, err)
	require.Len(t, multi, 2)
	assert.Equal(t, "h2", multi[1][3])
}

func TestExportHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := filepath.Join(t.TempDir(), "corpus.tsv")
	assert.ErrorIs(t, export.Export(ctx, path, sample()), context.Canceled)
}
