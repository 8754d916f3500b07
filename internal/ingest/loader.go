// =============================================================================
// SALT Nexus Analyzer - Ingestion Module
// =============================================================================
//
// The loader reads one or more sales extracts and returns their rows as raw
// records with a fixed column contract.
//
// READ STRATEGY:
//   - CSV no larger than Tuning.MaxOneShotBytes is parsed in one pass.
//   - Larger CSV is streamed in Tuning.CSVChunkSize row batches.
//   - XLSX is always read in one pass (first worksheet).
//
// FILE-LEVEL PROBLEMS (warning, file skipped):
//   missing file, unsupported extension, read error, missing required
//   columns, no data rows.
//
// Column names are lower-cased and trimmed, and sales_channel is renamed to
// channel.
//
// =============================================================================

package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ginjaninja78/salt-nexus-analyzer/internal/config"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/csvparser"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/diagnostics"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/errors"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/logger"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/types"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/xlsxparser"
	"go.uber.org/zap"
)

// RequiredColumns every extract must carry.
var RequiredColumns = []string{
	"date",
	"invoice_number",
	"invoice_date",
	"total_amount",
	"customer_name",
	"street_address",
	"city",
	"state",
	"zip_code",
	"sales_channel",
}

// OptionalColumns are read when present.
var OptionalColumns = []string{"is_exempt", "taxability_code", "customer_id"}

const (
	sourceChannelColumn = "sales_channel"
	channelColumn       = "channel"
)

// Loader reads transaction extracts from disk.
type Loader struct {
	settings config.CSVSettings
	tuning   config.Tuning
	log      *zap.SugaredLogger
}

// NewLoader creates a loader. settings controls CSV parsing; tuning
// supplies the one-shot size limit and the streaming chunk size.
func NewLoader(settings config.CSVSettings, tuning config.Tuning) *Loader {
	settings.LowercaseHeaders = true
	return &Loader{
		settings: settings,
		tuning:   tuning,
		log:      logger.ComponentLogger("ingest"),
	}
}

// Load reads every path in order and returns the combined records.
//
// Per-file problems are warnings; the only error is a cancelled context.
// The total_rows_input counter is set to the number of records returned.
func (l *Loader) Load(ctx context.Context, paths []string, diag *diagnostics.Collector) ([]types.Record, error) {
	var records []types.Record
	filesLoaded := 0

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "ingestion cancelled")
		}

		l.log.Infow("Loading file", "file", path)
		fileRecords, ok := l.loadFile(ctx, path, diag)
		if !ok {
			continue
		}
		if len(fileRecords) == 0 {
			diag.AddWarning(fmt.Sprintf("File %s produced 0 rows after validation. Skipping.", filepath.Base(path)))
			continue
		}

		records = append(records, fileRecords...)
		filesLoaded++
		l.log.Infow("Rows accepted", "file", filepath.Base(path), "rows", len(fileRecords))
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "ingestion cancelled")
	}

	diag.SetCounter(diagnostics.CounterRowsInput, len(records))
	if filesLoaded == 0 {
		diag.AddWarning("No valid data loaded.")
		return []types.Record{}, nil
	}

	l.log.Infow("Ingestion complete", "files", filesLoaded, "rows", len(records))
	return records, nil
}

// loadFile reads one file. ok is false when the file was skipped; the
// reason has already been recorded as a warning.
func (l *Loader) loadFile(ctx context.Context, path string, diag *diagnostics.Collector) ([]types.Record, bool) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			diag.AddWarning(fmt.Sprintf("Input file not found: %s. Skipping.", path))
		} else {
			diag.AddWarning(fmt.Sprintf("Error reading %s: %v. Skipping file.", filepath.Base(path), err))
		}
		return nil, false
	}

	var records []types.Record
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		if info.Size() > l.tuning.MaxOneShotBytes {
			l.log.Debugw("Streaming CSV read", "bytes", info.Size(), "chunk_size", l.tuning.CSVChunkSize)
			records, err = l.streamCSV(ctx, path, diag)
		} else {
			l.log.Debugw("One-shot CSV read", "bytes", info.Size())
			records, err = l.readCSV(path, diag)
		}
	case ".xlsx":
		records, err = l.readXLSX(path, diag)
	default:
		diag.AddWarning(fmt.Sprintf("Unsupported file extension '%s' for %s. Skipping.", ext, filepath.Base(path)))
		return nil, false
	}

	if err != nil {
		if errors.Is(err, errMissingColumns) {
			return nil, false
		}
		diag.AddWarning(fmt.Sprintf("Error reading %s: %v. Skipping file.", filepath.Base(path), err))
		return nil, false
	}
	return records, true
}

var errMissingColumns = errors.New("missing required columns")

// =============================================================================
// READERS
// =============================================================================

func (l *Loader) readCSV(path string, diag *diagnostics.Collector) ([]types.Record, error) {
	data, err := csvparser.Parse(path, l.settings)
	if err != nil {
		return nil, err
	}
	if err := l.checkColumns(path, data.Headers, diag); err != nil {
		return nil, err
	}

	records := make([]types.Record, 0, len(data.Rows))
	for i, row := range data.Rows {
		records = append(records, newRecord(row, path, data.RowNumbers[i]))
	}
	return records, nil
}

func (l *Loader) streamCSV(ctx context.Context, path string, diag *diagnostics.Collector) ([]types.Record, error) {
	parser, err := csvparser.NewStreamingParser(path, l.settings)
	if err != nil {
		return nil, err
	}
	defer parser.Close()

	if err := l.checkColumns(path, parser.Headers(), diag); err != nil {
		return nil, err
	}

	var records []types.Record
	chunks := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch := parser.ReadBatch(l.tuning.CSVChunkSize)
		if len(batch) == 0 {
			break
		}
		chunks++
		for _, row := range batch {
			records = append(records, newRecord(row.Fields, path, row.Number))
		}
		l.log.Debugw("Chunk read", "file", filepath.Base(path), "chunk", chunks, "rows", len(batch))
	}
	if err := parser.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (l *Loader) readXLSX(path string, diag *diagnostics.Collector) ([]types.Record, error) {
	sheet, err := xlsxparser.ParseSheet(path)
	if err != nil {
		return nil, err
	}
	if err := l.checkColumns(path, sheet.Headers, diag); err != nil {
		return nil, err
	}

	records := make([]types.Record, 0, len(sheet.Rows))
	for i, row := range sheet.Rows {
		records = append(records, newRecord(row, path, sheet.RowNumbers[i]))
	}
	return records, nil
}

// checkColumns warns and returns errMissingColumns when headers lack any
// required column.
func (l *Loader) checkColumns(path string, headers []string, diag *diagnostics.Collector) error {
	missing := MissingColumns(headers)
	if len(missing) == 0 {
		return nil
	}
	diag.AddWarning(fmt.Sprintf("%s missing required columns: [%s]. Rejecting file.",
		filepath.Base(path), strings.Join(missing, ", ")))
	return errMissingColumns
}

// MissingColumns returns the required columns absent from headers, sorted.
// Headers are compared lower-cased and trimmed.
func MissingColumns(headers []string) []string {
	present := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		present[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := present[col]; !ok {
			missing = append(missing, col)
		}
	}
	sort.Strings(missing)
	return missing
}

// newRecord normalizes column names and renames sales_channel to channel.
func newRecord(row map[string]string, path string, rowNumber int) types.Record {
	fields := make(map[string]string, len(row))
	for k, v := range row {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == sourceChannelColumn {
			key = channelColumn
		}
		fields[key] = v
	}
	return types.Record{Fields: fields, SourceFile: path, SourceRow: rowNumber}
}
