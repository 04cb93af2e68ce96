package export

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/brunobiangulo/gosquit/store"
)

// XLSXExporter writes an "all" sheet plus one sheet per shape.
type XLSXExporter struct{}

func (e *XLSXExporter) SupportedFormats() []string { return []string{"xlsx"} }

const allSheet = "all"

func (e *XLSXExporter) Export(ctx context.Context, path string, records []store.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), allSheet); err != nil {
		return fmt.Errorf("naming XLSX sheet: %w", err)
	}
	if err := setRow(f, allSheet, 1, columns); err != nil {
		return err
	}

	// next row per sheet
	next := map[string]int{allSheet: 2}
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		sheets := []string{allSheet}
		if r.Shape != "" && r.Shape != allSheet {
			sheets = append(sheets, r.Shape)
		}
		for _, sheet := range sheets {
			if _, ok := next[sheet]; !ok {
				if _, err := f.NewSheet(sheet); err != nil {
					return fmt.Errorf("creating sheet %s: %w", sheet, err)
				}
				if err := setRow(f, sheet, 1, columns); err != nil {
					return err
				}
				next[sheet] = 2
			}
			if err := setRow(f, sheet, next[sheet], row(r)); err != nil {
				return err
			}
			next[sheet]++
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving XLSX: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, n int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, n, err)
	}
	return nil
}
