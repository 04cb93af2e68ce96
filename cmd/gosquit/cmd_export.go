package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brunobiangulo/gosquit/export"
	"github.com/brunobiangulo/gosquit/store"
)

var (
	exportRun   string
	exportShape string
	exportLimit int
)

var exportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Write stored records to a file",
	Example: `  gosquit export corpus.tsv --run 6f1c...
  gosquit export counts.xlsx --shape count`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportRun, "run", "", "Only records of this run")
	exportCmd.Flags().StringVar(&exportShape, "shape", "", "Only records of this shape")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "Maximum records (0 = all)")
}

func runExport(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := export.NewRegistry().ForPath(path); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	engine, err := openEngine(cmd, nil)
	if err != nil {
		return err
	}
	defer engine.Close()

	records, err := engine.Records(ctx, store.RecordFilter{
		RunID: exportRun,
		Shape: exportShape,
		Limit: exportLimit,
	})
	if err != nil {
		return err
	}
	if err := export.Export(ctx, path, records); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%d records written to %s\n", len(records), path)
	return nil
}
