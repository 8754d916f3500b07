// =============================================================================
// SALT Nexus Analyzer - CSV Parser Module
// =============================================================================
//
// This module reads CSV sales extracts and exemption lists. It handles:
//   - Different delimiters (comma, pipe, tab, semicolon)
//   - Multi-row headers, merged per column
//   - A configurable data start row
//   - Lower-cased column names, so "Total_Amount" and "total_amount" match
//
// Two entry points share the same header and row handling:
//   - Parse reads a whole file at once (small and medium extracts)
//   - StreamingParser reads record by record, and ReadBatch hands back
//     fixed-size chunks for files above the one-shot size limit
//
// Every data row keeps its 1-based record number so rejected rows can be
// traced back to the file.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ginjaninja78/salt-nexus-analyzer/internal/config"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/errors"
)

// =============================================================================
// CSV DATA STRUCTURE
// =============================================================================

// CSVData represents a parsed CSV file.
type CSVData struct {
	// Headers contains the cleaned (and, when configured, lower-cased)
	// column headers. Multi-row headers are merged.
	Headers []string

	// Rows contains the data rows as maps of header -> trimmed value.
	Rows []map[string]string

	// RowNumbers holds the 1-based record number of each entry in Rows.
	RowNumbers []int

	// SourceFile is the path to the source CSV file.
	SourceFile string

	// RowCount is the number of data rows (excluding headers and blank rows).
	RowCount int

	// ColumnCount is the number of columns in the header.
	ColumnCount int
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file and returns the parsed data.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: Delimiter, header rows and data start row.
//
// RETURNS:
//   - A pointer to the CSVData struct containing the parsed data.
//   - An error if the file cannot be read or has no header.
//
// PARSING PROCESS:
//   1. Configure the CSV reader with the delimiter
//   2. Read and merge the header rows
//   3. Read data rows starting from the data start row, skipping blank rows
//   4. Convert each row to a map of header -> value
func Parse(filePath string, settings config.CSVSettings) (*CSVData, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	defer file.Close()

	return ParseReader(file, filePath, settings)
}

// ParseReader is Parse over an already-open reader. sourceName is recorded
// in the result for error reporting.
func ParseReader(r io.Reader, sourceName string, settings config.CSVSettings) (*CSVData, error) {
	csvReader := csv.NewReader(bufio.NewReader(r))
	configureReader(csvReader, settings)

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read CSV")
	}
	if len(allRows) == 0 {
		return nil, errors.New("CSV file is empty")
	}

	headers, err := extractHeaders(allRows, settings)
	if err != nil {
		return nil, errors.Wrap(err, "failed to extract headers")
	}

	data := &CSVData{
		Headers:     headers,
		Rows:        make([]map[string]string, 0),
		SourceFile:  sourceName,
		ColumnCount: len(headers),
	}

	for rowIndex := dataStartIndex(settings); rowIndex < len(allRows); rowIndex++ {
		row := allRows[rowIndex]
		if isRowEmpty(row) {
			continue
		}
		data.Rows = append(data.Rows, rowToMap(headers, row))
		data.RowNumbers = append(data.RowNumbers, rowIndex+1)
	}
	data.RowCount = len(data.Rows)

	return data, nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = rune(settings.Delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	// Extracts from different systems are ragged and loosely quoted.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// extractHeaders merges the header rows into one header per column.
//
// MULTI-ROW HEADER HANDLING:
//   Non-empty cells of the same column are joined with a space.
//
//   Row 1: "Invoice", "",       "Total"
//   Row 2: "Number",  "State",  "Amount"
//   Result: "Invoice Number", "State", "Total Amount"
func extractHeaders(allRows [][]string, settings config.CSVSettings) ([]string, error) {
	if settings.HeaderRows <= 0 {
		return nil, errors.New("header_rows must be at least 1")
	}
	if len(allRows) < settings.HeaderRows {
		return nil, errors.New("file has fewer rows than header_rows setting")
	}

	if settings.HeaderRows == 1 {
		return cleanHeaders(allRows[0], settings.LowercaseHeaders), nil
	}

	maxCols := 0
	for i := 0; i < settings.HeaderRows; i++ {
		if len(allRows[i]) > maxCols {
			maxCols = len(allRows[i])
		}
	}

	headers := make([]string, maxCols)
	for col := 0; col < maxCols; col++ {
		var parts []string
		for row := 0; row < settings.HeaderRows; row++ {
			if col < len(allRows[row]) {
				if value := strings.TrimSpace(allRows[row][col]); value != "" {
					parts = append(parts, value)
				}
			}
		}
		headers[col] = strings.Join(parts, " ")
	}

	return cleanHeaders(headers, settings.LowercaseHeaders), nil
}

// cleanHeaders trims headers, strips a UTF-8 byte order mark, names empty
// columns by position and optionally lower-cases.
func cleanHeaders(headers []string, lowercase bool) []string {
	cleaned := make([]string, len(headers))

	for i, header := range headers {
		if i == 0 {
			header = strings.TrimPrefix(header, "\ufeff")
		}
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		if lowercase {
			header = strings.ToLower(header)
		}
		cleaned[i] = header
	}

	return cleaned
}

// dataStartIndex converts the 1-based data start row to a slice index.
func dataStartIndex(settings config.CSVSettings) int {
	if settings.DataStartRow <= 0 {
		return settings.HeaderRows
	}
	return settings.DataStartRow - 1
}

// rowToMap pairs a record with the headers. Missing trailing cells are "".
func rowToMap(headers []string, row []string) map[string]string {
	m := make(map[string]string, len(headers))
	for i, header := range headers {
		if i < len(row) {
			m[header] = strings.TrimSpace(row[i])
		} else {
			m[header] = ""
		}
	}
	return m
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

// =============================================================================
// STREAMING PARSER FOR LARGE FILES
// =============================================================================

// StreamingParser reads a CSV file one record at a time.
//
// USAGE:
//
//	parser, err := NewStreamingParser(filePath, settings)
//	if err != nil {
//	    return err
//	}
//	defer parser.Close()
//
//	for {
//	    batch := parser.ReadBatch(chunkSize)
//	    if len(batch) == 0 {
//	        break
//	    }
//	    // Process the batch...
//	}
//
//	if err := parser.Err(); err != nil {
//	    return err
//	}
type StreamingParser struct {
	file       *os.File
	reader     *csv.Reader
	headers    []string
	currentRow map[string]string
	rowNumber  int
	err        error
	settings   config.CSVSettings
}

// StreamedRow is one data row with its 1-based record number.
type StreamedRow struct {
	Number int
	Fields map[string]string
}

// NewStreamingParser opens filePath and reads its header rows.
func NewStreamingParser(filePath string, settings config.CSVSettings) (*StreamingParser, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}

	reader := csv.NewReader(bufio.NewReader(file))
	configureReader(reader, settings)

	parser := &StreamingParser{
		file:     file,
		reader:   reader,
		settings: settings,
	}

	if err := parser.readHeaders(); err != nil {
		file.Close()
		return nil, err
	}
	if err := parser.skipToDataStart(); err != nil {
		file.Close()
		return nil, err
	}

	return parser, nil
}

// readHeaders reads and merges the header rows.
func (p *StreamingParser) readHeaders() error {
	headerRows := make([][]string, 0, p.settings.HeaderRows)

	for i := 0; i < p.settings.HeaderRows; i++ {
		row, err := p.reader.Read()
		if err == io.EOF {
			return errors.New("unexpected end of file while reading headers")
		}
		if err != nil {
			return errors.Wrapf(err, "error reading header row %d", i+1)
		}
		headerRows = append(headerRows, row)
		p.rowNumber++
	}

	headers, err := extractHeaders(headerRows, p.settings)
	if err != nil {
		return err
	}
	p.headers = headers
	return nil
}

// skipToDataStart skips rows between the header and the data start row.
func (p *StreamingParser) skipToDataStart() error {
	for p.rowNumber < dataStartIndex(p.settings) {
		_, err := p.reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "error skipping to data start")
		}
		p.rowNumber++
	}
	return nil
}

// Next advances to the next non-blank row. It returns false at the end of
// the file or on error.
func (p *StreamingParser) Next() bool {
	for p.err == nil {
		row, err := p.reader.Read()
		if err == io.EOF {
			return false
		}
		if err != nil {
			p.err = errors.Wrapf(err, "error reading row %d", p.rowNumber+1)
			return false
		}
		p.rowNumber++

		if isRowEmpty(row) {
			continue
		}
		p.currentRow = rowToMap(p.headers, row)
		return true
	}
	return false
}

// ReadBatch returns up to n rows. An empty batch means the file is
// exhausted or an error occurred (check Err).
func (p *StreamingParser) ReadBatch(n int) []StreamedRow {
	batch := make([]StreamedRow, 0, n)
	for len(batch) < n && p.Next() {
		batch = append(batch, StreamedRow{Number: p.rowNumber, Fields: p.currentRow})
	}
	return batch
}

// Row returns the current row as a map.
func (p *StreamingParser) Row() map[string]string {
	return p.currentRow
}

// Headers returns the parsed headers.
func (p *StreamingParser) Headers() []string {
	return p.headers
}

// RowNumber returns the current record number (1-indexed).
func (p *StreamingParser) RowNumber() int {
	return p.rowNumber
}

// Err returns any error that occurred during parsing.
func (p *StreamingParser) Err() error {
	return p.err
}

// Close closes the underlying file.
func (p *StreamingParser) Close() error {
	return p.file.Close()
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// GetColumnByHeader returns all values for a specific column.
func GetColumnByHeader(data *CSVData, header string) []string {
	values := make([]string, len(data.Rows))
	for i, row := range data.Rows {
		values[i] = row[header]
	}
	return values
}

// HasColumn reports whether the parsed headers include header.
func HasColumn(data *CSVData, header string) bool {
	for _, h := range data.Headers {
		if h == header {
			return true
		}
	}
	return false
}
