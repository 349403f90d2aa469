package service

import (
	"fmt"
	"io"

	"transporter-onboarding/internal/models"

	"github.com/xuri/excelize/v2"
)

type ExcelService struct{}

func NewExcelService() *ExcelService {
	return &ExcelService{}
}

// ParseTransporters parses the first sheet of a workbook into candidate rows
func (s *ExcelService) ParseTransporters(r io.Reader) ([]models.CandidateRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open Excel file: %v", ErrUnreadableFile, err)
	}
	defer f.Close()

	// Get first sheet
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: no sheets found in Excel file", ErrUnreadableFile)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read rows: %v", ErrUnreadableFile, err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: file must contain a header row", ErrUnreadableFile)
	}

	index, err := ResolveColumns(rows[0])
	if err != nil {
		return nil, err
	}

	candidates := make([]models.CandidateRow, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		// Skip completely empty rows
		if isBlankRow(rows[i]) {
			continue
		}
		candidates = append(candidates, rowFromCells(i+1, rows[i], index))
	}

	return candidates, nil
}

// WriteProcessed exports every row of the batch with its Comments column
func (s *ExcelService) WriteProcessed(w io.Writer, result *models.BatchResult) error {
	return s.writeOutcomes(w, "Processed Data", result, result.Outcomes)
}

// WriteRejected exports only the rejected rows of the batch
func (s *ExcelService) WriteRejected(w io.Writer, result *models.BatchResult) error {
	return s.writeOutcomes(w, "Rejected Rows", result, result.Rejected())
}

func (s *ExcelService) writeOutcomes(w io.Writer, sheetName string, result *models.BatchResult, outcomes []models.RecordOutcome) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	headers := exportHeader()
	if err := writeHeaderRow(f, sheetName, headers); err != nil {
		return err
	}

	rejectedStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFE6E6"}, Pattern: 1},
	})

	for rowIdx, o := range outcomes {
		row := rowIdx + 2
		values := append(o.Row.Values(), result.CommentFor(o))
		for colIdx, value := range values {
			cell := fmt.Sprintf("%s%d", getColumnName(colIdx), row)
			// Text cells keep tax ids and phone numbers exactly as entered.
			if err := f.SetCellStr(sheetName, cell, value); err != nil {
				return err
			}
		}
		if !o.Accepted() {
			f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", getColumnName(len(headers)-1), row), rejectedStyle)
		}
	}

	setColumnWidths(f, sheetName, []float64{30, 20, 30, 22, 18, 40})

	// Summary below the data
	summaryStartRow := len(outcomes) + 4
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryStartRow), "Import Summary")
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryStartRow+1), "Total Rows Processed:")
	f.SetCellValue(sheetName, fmt.Sprintf("B%d", summaryStartRow+1), result.TotalRows)
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryStartRow+2), "Successful:")
	f.SetCellValue(sheetName, fmt.Sprintf("B%d", summaryStartRow+2), result.AcceptedCount)
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryStartRow+3), "Failed:")
	f.SetCellValue(sheetName, fmt.Sprintf("B%d", summaryStartRow+3), result.RejectedCount)

	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	f.SetCellStyle(sheetName, fmt.Sprintf("A%d", summaryStartRow), fmt.Sprintf("A%d", summaryStartRow), summaryStyle)

	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	return f.Write(w)
}

// WriteTemplate creates a template workbook for transporter upload
func (s *ExcelService) WriteTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Transporters"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	if err := writeHeaderRow(f, sheetName, models.RequiredColumns); err != nil {
		return err
	}

	for rowIdx, rowData := range sampleRows {
		row := rowIdx + 2
		for colIdx, value := range rowData {
			cell := fmt.Sprintf("%s%d", getColumnName(colIdx), row)
			f.SetCellStr(sheetName, cell, value)
		}
	}

	setColumnWidths(f, sheetName, []float64{30, 20, 30, 22, 18})

	// Add instructions
	instructionsStartRow := len(sampleRows) + 4
	instructions := []string{
		"Instructions:",
		"1. Company Name: Registered name of the transporter",
		"2. GST/PAN: Tax identifier, must be unique",
		"3. Email ID: Contact email address",
		"4. Contact Name: Person to contact",
		"5. Contact Number: Phone number",
		"",
		"Note: All five columns are mandatory. Do not modify the header row.",
	}

	for i, instruction := range instructions {
		cell := fmt.Sprintf("A%d", instructionsStartRow+i)
		f.SetCellValue(sheetName, cell, instruction)
	}

	instructionStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 10},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#F0F8FF"}, Pattern: 1},
	})
	f.SetCellStyle(sheetName, fmt.Sprintf("A%d", instructionsStartRow), fmt.Sprintf("A%d", instructionsStartRow), instructionStyle)

	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	return f.Write(w)
}

func writeHeaderRow(f *excelize.File, sheetName string, headers []string) error {
	for i, header := range headers {
		cell := fmt.Sprintf("%s1", getColumnName(i))
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return err
		}
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	return f.SetCellStyle(sheetName, "A1", fmt.Sprintf("%s1", getColumnName(len(headers)-1)), headerStyle)
}

func setColumnWidths(f *excelize.File, sheetName string, widths []float64) {
	for i, width := range widths {
		colName := getColumnName(i)
		f.SetColWidth(sheetName, colName, colName, width)
	}
}

func getColumnName(index int) string {
	result := ""
	for index >= 0 {
		result = string(rune('A'+(index%26))) + result
		index = index/26 - 1
	}
	return result
}
