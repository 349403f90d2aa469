package service

import (
	"errors"
	"fmt"
	"strings"

	"transporter-onboarding/internal/models"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrSchemaMismatch    = errors.New("schema mismatch")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrUnreadableFile    = errors.New("unreadable file")
)

// SchemaMismatchError lists the required columns an uploaded file did not provide.
type SchemaMismatchError struct {
	Missing []string
	Found   []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("uploaded file is missing required columns %v; found columns %v", e.Missing, e.Found)
}

func (e *SchemaMismatchError) Unwrap() error {
	return ErrSchemaMismatch
}

// NormalizeHeader trims a header cell and folds its case for comparison.
func NormalizeHeader(h string) string {
	// Casers are stateful, so one is made per call.
	return cases.Fold().String(strings.TrimSpace(norm.NFKC.String(h)))
}

var canonicalHeaders = func() map[string]string {
	m := make(map[string]string, len(models.RequiredColumns))
	for _, col := range models.RequiredColumns {
		m[NormalizeHeader(col)] = col
	}
	return m
}()

// ResolveColumns maps each required column to its index in header. The first
// matching header wins when a column is repeated.
func ResolveColumns(header []string) (map[string]int, error) {
	index := make(map[string]int, len(models.RequiredColumns))
	for i, h := range header {
		col, ok := canonicalHeaders[NormalizeHeader(h)]
		if !ok {
			continue
		}
		if _, seen := index[col]; !seen {
			index[col] = i
		}
	}

	var missing []string
	for _, col := range models.RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaMismatchError{Missing: missing, Found: header}
	}
	return index, nil
}

// rowFromCells builds a candidate from one data row using the resolved columns.
func rowFromCells(rowNumber int, cells []string, index map[string]int) models.CandidateRow {
	cell := func(col string) string {
		if i := index[col]; i < len(cells) {
			return cells[i]
		}
		return ""
	}
	return models.CandidateRow{
		RowNumber:     rowNumber,
		CompanyName:   cell(models.ColumnCompanyName),
		TaxID:         cell(models.ColumnTaxID),
		Email:         cell(models.ColumnEmail),
		ContactName:   cell(models.ColumnContactName),
		ContactNumber: cell(models.ColumnContactNumber),
	}
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
