package service

import (
	"encoding/csv"
	"fmt"
	"io"

	"transporter-onboarding/internal/models"

	"github.com/dimchansky/utfbom"
	"github.com/go-gota/gota/dataframe"
)

type CSVService struct{}

func NewCSVService() *CSVService {
	return &CSVService{}
}

// ParseTransporters reads a delimited table with a header row into candidate rows.
// Rows with fewer cells than the header are padded, so a missing cell surfaces as a
// row rejection rather than failing the file.
func (s *CSVService) ParseTransporters(r io.Reader) ([]models.CandidateRow, error) {
	// Trim the Byte Order Marker if it's present
	reader := csv.NewReader(utfbom.SkipOnly(r))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: file must contain a header row", ErrUnreadableFile)
	}

	index, err := ResolveColumns(records[0])
	if err != nil {
		return nil, err
	}

	// Project the data rows onto the canonical columns.
	table := [][]string{models.RequiredColumns}
	var rowNumbers []int
	for i, rec := range records[1:] {
		if isBlankRow(rec) {
			continue
		}
		cells := make([]string, len(models.RequiredColumns))
		for j, col := range models.RequiredColumns {
			if k := index[col]; k < len(rec) {
				cells[j] = rec[k]
			}
		}
		table = append(table, cells)
		// Header is line 1, so the first data row is line 2.
		rowNumbers = append(rowNumbers, i+2)
	}
	if len(rowNumbers) == 0 {
		return []models.CandidateRow{}, nil
	}

	df := dataframe.LoadRecords(table,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.NaNValues(nil),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, df.Err)
	}

	column := func(name string) []string {
		return df.Col(name).Records()
	}
	companies := column(models.ColumnCompanyName)
	taxIDs := column(models.ColumnTaxID)
	emails := column(models.ColumnEmail)
	contacts := column(models.ColumnContactName)
	numbers := column(models.ColumnContactNumber)

	rows := make([]models.CandidateRow, len(rowNumbers))
	for i, n := range rowNumbers {
		rows[i] = models.CandidateRow{
			RowNumber:     n,
			CompanyName:   companies[i],
			TaxID:         taxIDs[i],
			Email:         emails[i],
			ContactName:   contacts[i],
			ContactNumber: numbers[i],
		}
	}
	return rows, nil
}

// WriteProcessed writes every row of the batch with its Comments column.
func (s *CSVService) WriteProcessed(w io.Writer, result *models.BatchResult) error {
	return s.writeOutcomes(w, result, result.Outcomes)
}

// WriteRejected writes only the rejected rows of the batch.
func (s *CSVService) WriteRejected(w io.Writer, result *models.BatchResult) error {
	return s.writeOutcomes(w, result, result.Rejected())
}

func (s *CSVService) writeOutcomes(w io.Writer, result *models.BatchResult, outcomes []models.RecordOutcome) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader()); err != nil {
		return err
	}
	for _, o := range outcomes {
		if err := cw.Write(append(o.Row.Values(), result.CommentFor(o))); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTemplate writes an empty intake table with one sample row.
func (s *CSVService) WriteTemplate(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(models.RequiredColumns); err != nil {
		return err
	}
	for _, row := range sampleRows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func exportHeader() []string {
	return append(append([]string{}, models.RequiredColumns...), models.ColumnComments)
}

var sampleRows = [][]string{
	{"Sharma Roadways Pvt Ltd", "27AAPFU0939F1ZV", "ops@sharmaroadways.in", "Ravi Sharma", "9876543210"},
	{"Konkan Freight Carriers", "AAECK1234M", "dispatch@konkanfreight.in", "Meera Naik", "9823012345"},
}
