// =============================================================================
// SALT Nexus Analyzer - XLSX Sheet Parser
// =============================================================================
//
// This module reads sales extracts delivered as Excel workbooks. A sheet is
// expected to hold one header row followed by data rows, the same column
// contract as the CSV extracts:
//
//   | date       | invoice_number | total_amount | state | sales_channel | ...
//   |------------|----------------|--------------|-------|---------------|
//   | 2024-01-05 | INV-1          | 100.00       | CA    | Direct        |
//
// Cells are read as displayed text (excelize GetRows), so dates and amounts
// go through the same standardization as CSV values.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/salt-nexus-analyzer/internal/errors"
	"github.com/xuri/excelize/v2"
)

// =============================================================================
// SHEET STRUCTURE
// =============================================================================

// Sheet is the parsed content of one worksheet.
type Sheet struct {
	// SourceFile is the path to the workbook.
	SourceFile string

	// SheetName is the worksheet that was read.
	SheetName string

	// Headers are the cleaned column headers.
	Headers []string

	// Rows are the data rows as header -> trimmed cell text.
	Rows []map[string]string

	// RowNumbers holds the 1-based sheet row of each entry in Rows.
	RowNumbers []int
}

// =============================================================================
// SHEET LAYOUT CONFIGURATION
// =============================================================================

// SheetLayout describes where the header and data live in a worksheet.
type SheetLayout struct {
	// SheetName selects a worksheet; empty means the first sheet.
	SheetName string

	// HeaderRow is the 0-based row holding the column headers.
	// Default: 0 (Row 1)
	HeaderRow int

	// DataStartRow is the 0-based row where data begins.
	// Default: 1 (Row 2)
	DataStartRow int

	// LowercaseHeaders lower-cases header names.
	LowercaseHeaders bool
}

// DefaultSheetLayout returns the layout used for transaction extracts.
func DefaultSheetLayout() SheetLayout {
	return SheetLayout{
		HeaderRow:        0, // Row 1
		DataStartRow:     1, // Row 2
		LowercaseHeaders: true,
	}
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// ParseSheet reads the first worksheet of an XLSX file with the default
// layout.
func ParseSheet(path string) (*Sheet, error) {
	return ParseSheetWithLayout(path, DefaultSheetLayout())
}

// ParseSheetWithLayout reads a worksheet using a custom layout.
//
// PARAMETERS:
//   - path: The path to the XLSX file.
//   - layout: Which sheet to read and where its header and data start.
//
// RETURNS:
//   - A pointer to the Sheet containing headers and rows.
//   - An error if the workbook cannot be opened, has no such sheet, or is
//     shorter than the header row.
func ParseSheetWithLayout(path string, layout SheetLayout) (*Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open workbook")
	}
	defer f.Close()

	sheetName := layout.SheetName
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	if sheetName == "" {
		return nil, errors.New("workbook has no sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read rows from sheet %q", sheetName)
	}
	if len(rows) <= layout.HeaderRow {
		return nil, errors.Newf("sheet %q has no header row", sheetName)
	}

	sheet := &Sheet{
		SourceFile: path,
		SheetName:  sheetName,
		Headers:    cleanHeaders(rows[layout.HeaderRow], layout.LowercaseHeaders),
		Rows:       make([]map[string]string, 0, len(rows)),
	}

	start := layout.DataStartRow
	if start <= layout.HeaderRow {
		start = layout.HeaderRow + 1
	}
	for i := start; i < len(rows); i++ {
		row := rows[i]
		if isRowEmpty(row) {
			continue
		}

		values := make(map[string]string, len(sheet.Headers))
		for col, header := range sheet.Headers {
			values[header] = getCellValue(row, col)
		}
		sheet.Rows = append(sheet.Rows, values)
		sheet.RowNumbers = append(sheet.RowNumbers, i+1)
	}

	return sheet, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// getCellValue safely gets a cell value from a row. excelize trims trailing
// empty cells, so short rows are common.
func getCellValue(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}

// cleanHeaders trims headers, names empty columns by position and
// optionally lower-cases.
func cleanHeaders(headers []string, lowercase bool) []string {
	cleaned := make([]string, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Column_%d", i+1)
		}
		if lowercase {
			h = strings.ToLower(h)
		}
		cleaned[i] = h
	}
	return cleaned
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
