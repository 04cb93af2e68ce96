package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brunobiangulo/gosquit"
	"github.com/brunobiangulo/gosquit/export"
	"github.com/brunobiangulo/gosquit/template"
)

var (
	perShape     int
	shapeNames   []string
	outPath      string
	maxAttempts  int
	skipExisting bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a de-duplicated corpus",
	Long: `Generate question / query pairs for each requested shape.

Records are written to --out (format chosen by extension: .jsonl, .tsv,
.xlsx) or as JSON Lines to stdout, and persisted unless --no-store is set.`,
	Example: `  gosquit generate --per-shape 1000 --out corpus.jsonl
  gosquit generate --shapes single_entity,count --seed 7 --out corpus.xlsx`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().IntVarP(&perShape, "per-shape", "n", 100, "Records per shape")
	generateCmd.Flags().StringSliceVar(&shapeNames, "shapes", shapeList(), "Shapes to generate")
	generateCmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (.jsonl, .tsv, .xlsx)")
	generateCmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "Attempts per shape (default: attempt_ratio x target)")
	generateCmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "Skip hashes already in the store")
}

func shapeList() []string {
	var out []string
	for _, s := range template.Shapes() {
		out = append(out, string(s))
	}
	return out
}

// parseShapes validates shape names from the command line.
func parseShapes(names []string) ([]template.Shape, error) {
	var out []template.Shape
	for _, n := range names {
		s, ok := template.ParseShape(n)
		if !ok {
			return nil, fmt.Errorf("unknown shape %q (have %v)", n, shapeList())
		}
		out = append(out, s)
	}
	return out, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	shapes, err := parseShapes(shapeNames)
	if err != nil {
		return err
	}
	if outPath != "" {
		if _, err := export.NewRegistry().ForPath(outPath); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	engine, err := openEngine(cmd, nil)
	if err != nil {
		return err
	}
	defer engine.Close()

	req := gosquit.CorpusRequest{
		PerShape:     make(map[template.Shape]int),
		MaxAttempts:  maxAttempts,
		SkipExisting: skipExisting,
	}
	for _, s := range shapes {
		req.PerShape[s] = perShape
	}

	res, err := engine.GenerateCorpus(ctx, req)
	if err != nil {
		return err
	}

	records := gosquit.ToStoreRecords(res.Records)
	for i := range records {
		records[i].RunID = res.RunID
	}
	if outPath == "" {
		return export.WriteJSONL(ctx, cmd.OutOrStdout(), records)
	}
	if err := export.Export(ctx, outPath, records); err != nil {
		return err
	}

	logger.Info("corpus written",
		zap.String("path", outPath),
		zap.Int("records", len(records)),
		zap.String("run", res.RunID),
	)
	fmt.Fprintf(os.Stderr, "%d records written to %s (%d duplicates, %d no path, %d part-of-speech misses)\n",
		len(records), outPath, res.Duplicates, res.NoPath, res.PosMismatch)
	return nil
}
