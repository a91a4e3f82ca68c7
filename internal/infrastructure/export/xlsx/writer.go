// Package xlsx writes candidate feature matrices for offline model training.
package xlsx

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/answer-evidence/internal/core/domain"
)

const (
	featureSheet = "features"
	fieldsSheet  = "fields"
)

var leadingColumns = []string{"question_id", "question", "title", "source_engine", "rank"}

type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

// WriteFeatureMatrix writes one row per candidate. Every pool must share the
// given field ordering; a second sheet records that ordering for serving.
func (w *Writer) WriteFeatureMatrix(path string, fields []string, pools []*domain.CandidatePool) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", featureSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, 0, len(leadingColumns)+len(fields))
	for _, c := range leadingColumns {
		header = append(header, c)
	}
	for _, name := range fields {
		header = append(header, name)
	}
	if err := f.SetSheetRow(featureSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	rowNum := 2
	for _, pool := range pools {
		if !sameOrdering(pool.Fields, fields) {
			return fmt.Errorf("pool %s: field ordering differs from export ordering", pool.QuestionID)
		}
		for _, c := range pool.Candidates {
			row := make([]any, 0, len(header))
			row = append(row, pool.QuestionID, pool.Question, c.Title, c.SourceEngine, c.Rank)
			for _, v := range c.Features {
				row = append(row, v)
			}
			cell, err := excelize.CoordinatesToCellName(1, rowNum)
			if err != nil {
				return fmt.Errorf("cell name: %w", err)
			}
			if err := f.SetSheetRow(featureSheet, cell, &row); err != nil {
				return fmt.Errorf("write row %d: %w", rowNum, err)
			}
			rowNum++
		}
	}

	if _, err := f.NewSheet(fieldsSheet); err != nil {
		return fmt.Errorf("create fields sheet: %w", err)
	}
	for i, name := range fields {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetCellValue(fieldsSheet, cell, name); err != nil {
			return fmt.Errorf("write field %s: %w", name, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func sameOrdering(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
