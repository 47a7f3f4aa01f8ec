package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"voicecohort/internal/curation"
	"voicecohort/internal/fileutil"
	"voicecohort/internal/services"
	"voicecohort/internal/submissions"
)

// Spreadsheet writes submissions_output.xlsx with one sheet per group.
type Spreadsheet struct {
	outputDir string
}

// NewSpreadsheet returns a spreadsheet exporter writing into outputDir.
func NewSpreadsheet(outputDir string) *Spreadsheet {
	return &Spreadsheet{outputDir: outputDir}
}

func (s *Spreadsheet) Name() string { return "xlsx" }

// Export writes both sheets. Columns follow the submissions document order.
func (s *Spreadsheet) Export(_ context.Context, report *curation.Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", PositiveSheet); err != nil {
		return services.Wrap(services.ErrExternal, "export", "xlsx", "rename default sheet", err)
	}
	if _, err := f.NewSheet(ControlSheet); err != nil {
		return services.Wrap(services.ErrExternal, "export", "xlsx", "create control sheet", err)
	}
	if err := writeSheet(f, PositiveSheet, report.Columns, report.Cohort.PositivePeople()); err != nil {
		return err
	}
	if err := writeSheet(f, ControlSheet, report.Columns, report.Cohort.ControlPeople()); err != nil {
		return err
	}

	path := filepath.Join(s.outputDir, SpreadsheetFile)
	err := fileutil.WriteFileAtomic(path, 0o644, func(out *os.File) error {
		_, err := f.WriteTo(out)
		return err
	})
	if err != nil {
		return services.Wrap(services.ErrExternal, "export", "xlsx", "save "+path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, columns []string, people []*submissions.Person) error {
	for i, h := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return services.Wrap(services.ErrExternal, "export", "xlsx", fmt.Sprintf("write %s header", sheet), err)
		}
	}
	for r, p := range people {
		// An unmatched positive leaves its control row blank.
		if p == nil {
			continue
		}
		rowIdx := r + 2
		for c, column := range columns {
			v := cellValue(p, column)
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, rowIdx)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return services.Wrap(services.ErrExternal, "export", "xlsx", fmt.Sprintf("write %s row %d", sheet, rowIdx), err)
			}
		}
	}
	return nil
}
