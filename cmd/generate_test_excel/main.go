package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

var headers = []string{"Company Name", "GST/PAN", "Email ID", "Contact Name", "Contact Number"}

func main() {
	outputDir := filepath.Join("storage", "uploads")
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Printf("Error creating output directory: %v\n", err)
		return
	}

	// One row per outcome so a single upload exercises every rule
	testData := [][]string{
		// Accepted
		{"Sharma Roadways Pvt Ltd", "27AAPFU0939F1ZV", "ops@sharmaroadways.in", "Ravi Sharma", "9876543210"},
		{"Konkan Freight Carriers", "AAECK1234M", "dispatch@konkanfreight.in", "Meera Naik", "9823012345"},
		// Missing contact number
		{"Deccan Logistics", "29AADCD4567K1Z2", "hello@deccanlogistics.in", "Arjun Rao", ""},
		// Missing everything but the company name
		{"Blank Details Transport", "", "", "", ""},
		// Blocklisted identifiers
		{"Blocked Movers", "AAAA1234K", "blocked@movers.in", "Kiran Das", "9000000001"},
		{"Blocked Haulage", "  BBBB1234K ", "blocked@haulage.in", "Sunil Jain", "9000000002"},
		// Repeated inside this upload, both rows are rejected
		{"Ganga Transport Co", "09AAFCG7788L1ZQ", "ganga@transport.in", "Pooja Mishra", "9415012345"},
		{"Ganga Transport Company", "09AAFCG7788L1ZQ", "accounts@gangatransport.in", "Rahul Mishra", "9415067890"},
		// Case differs from the blocklist entry, so accepted
		{"Lowercase Carriers", "aaaa1234k", "info@lowercase.in", "Neha Gupta", "9988776655"},
	}

	path1 := filepath.Join(outputDir, "test_transporters.xlsx")
	if err := writeWorkbook(path1, headers, testData); err != nil {
		fmt.Printf("Error saving file: %v\n", err)
		return
	}
	fmt.Printf("✓ Test file 1 created: %s\n", path1)
	fmt.Printf("  Total rows: %d\n", len(testData))

	// Second file has no GST/PAN column and must fail before any row is checked
	missingColumn := []string{"Company Name", "Email ID", "Contact Name", "Contact Number"}
	testData2 := [][]string{
		{"Western Ghats Cargo", "cargo@westernghats.in", "Vikram Patil", "9822098220"},
		{"Coromandel Express", "book@coromandel.in", "Lakshmi Iyer", "9444094440"},
	}

	path2 := filepath.Join(outputDir, "test_transporters_missing_column.xlsx")
	if err := writeWorkbook(path2, missingColumn, testData2); err != nil {
		fmt.Printf("Error saving file 2: %v\n", err)
		return
	}
	fmt.Printf("✓ Test file 2 created: %s\n", path2)
	fmt.Printf("  Total rows: %d\n", len(testData2))
}

func writeWorkbook(path string, headers []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Transporters"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	// Write headers
	for i, header := range headers {
		cell := fmt.Sprintf("%s1", getColumnName(i))
		f.SetCellValue(sheetName, cell, header)
	}

	// Set header style
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	f.SetCellStyle(sheetName, "A1", fmt.Sprintf("%s1", getColumnName(len(headers)-1)), headerStyle)

	for rowIdx, rowData := range rows {
		row := rowIdx + 2
		for colIdx, value := range rowData {
			cell := fmt.Sprintf("%s%d", getColumnName(colIdx), row)
			f.SetCellStr(sheetName, cell, value)
		}
	}

	for i := range headers {
		col := getColumnName(i)
		f.SetColWidth(sheetName, col, col, 28)
	}

	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	return f.SaveAs(path)
}

func getColumnName(index int) string {
	result := ""
	for index >= 0 {
		result = string(rune('A'+(index%26))) + result
		index = index/26 - 1
	}
	return result
}
