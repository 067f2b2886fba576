package report

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/procurehq/procure-server/internal/registry"
	"github.com/procurehq/procure-server/internal/store"
)

// ExcelExporter writes the full entity inventory as a workbook, one
// sheet per registered entity type.
type ExcelExporter struct {
	store    store.Store
	registry *registry.Registry
	logger   *zap.Logger
}

func NewExcelExporter(st store.Store, reg *registry.Registry, logger *zap.Logger) *ExcelExporter {
	return &ExcelExporter{store: st, registry: reg, logger: logger}
}

// exportColumns are shared by every sheet; per-type domain columns
// follow them.
var exportColumns = []string{"ID", "Number", "Title", "Status", "Workflow Status", "Created At"}

// Export writes the workbook to w
func (e *ExcelExporter) Export(ctx context.Context, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, t := range e.registry.Types() {
		def, err := e.registry.Get(t)
		if err != nil {
			return err
		}

		sheet := def.Table
		if i == 0 {
			f.SetSheetName(f.GetSheetName(0), sheet)
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
			}
		}
		if err := e.fillSheet(ctx, f, sheet, def); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	e.logger.Info("Inventory workbook exported",
		zap.Int("sheet_count", len(e.registry.Types())))
	return nil
}

func (e *ExcelExporter) fillSheet(ctx context.Context, f *excelize.File, sheet string, def *registry.Definition) error {
	for col, header := range exportColumns {
		e.setCell(f, sheet, col+1, 1, header)
	}

	rows, err := e.store.FindMany(ctx, def.Table, store.Query{OrderBy: "created_at"})
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", def.Table, err)
	}
	for i, rec := range rows {
		row := i + 2
		e.setCell(f, sheet, 1, row, rec.String("id"))
		e.setCell(f, sheet, 2, row, rec.String(def.NumberField))
		e.setCell(f, sheet, 3, row, rec.String(def.TitleField))
		e.setCell(f, sheet, 4, row, rec.String("status"))
		e.setCell(f, sheet, 5, row, rec.String("workflow_status"))
		if created := rec.Time("created_at"); created != nil {
			e.setCell(f, sheet, 6, row, created.Format("2006-01-02 15:04"))
		}
	}
	return nil
}

// setCell writes one cell, logging instead of failing on bad coordinates
func (e *ExcelExporter) setCell(f *excelize.File, sheet string, col, row int, value any) {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		e.logger.Warn("Failed to build cell name",
			zap.Int("col", col),
			zap.Int("row", row),
			zap.Error(err))
		return
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		e.logger.Warn("Failed to set cell value",
			zap.String("sheet", sheet),
			zap.String("cell", cell),
			zap.Error(err))
	}
}
