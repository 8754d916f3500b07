// =============================================================================
// SALT Nexus Analyzer - Workbook Writer
// =============================================================================
//
// Builds the analysis workbook with excelize.
//
// SHEETS (in order):
//   Cover             client, report date, run ID, counters
//   Nexus Summary     every state-month evaluation
//   State Triggers    one row per analyzed state
//   Exposure Detail   every post-trigger month
//   Exposure Totals   per-state sums plus a TOTAL row
//   Warnings          the consolidated warning list
//   Rejected Rows     input rows dropped during standardization
//
// Every data sheet has a bold, shaded header row frozen in place. A sheet
// with no rows carries EmptySectionNote instead.
//
// =============================================================================

package report

import (
	"sort"
	"strconv"
	"time"

	"github.com/ginjaninja78/salt-nexus-analyzer/internal/diagnostics"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/errors"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/exposure"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/nexus"
	"github.com/xuri/excelize/v2"
)

// Sheet names.
const (
	SheetCover          = "Cover"
	SheetNexusSummary   = "Nexus Summary"
	SheetStateTriggers  = "State Triggers"
	SheetExposureDetail = "Exposure Detail"
	SheetExposureTotals = "Exposure Totals"
	SheetWarnings       = "Warnings"
	SheetRejectedRows   = "Rejected Rows"
)

// Input is everything the workbook shows.
type Input struct {
	ClientName   string
	ReportDate   time.Time
	Summary      diagnostics.Summary
	Nexus        *nexus.Result
	Exposure     *exposure.Result
	RejectedRows []diagnostics.RejectedRow
}

// WriteWorkbook builds the workbook and saves it to path.
func WriteWorkbook(path string, in Input) error {
	f, err := BuildWorkbook(in)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return errors.Wrapf(err, "failed to save workbook %s", path)
	}
	return nil
}

// BuildWorkbook returns the workbook in memory. The caller closes it.
func BuildWorkbook(in Input) (*excelize.File, error) {
	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "#000000", Style: 1},
		},
	})
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "failed to create header style")
	}
	w := &workbookWriter{f: f, headerStyle: headerStyle}

	if err := f.SetSheetName("Sheet1", SheetCover); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "failed to name cover sheet")
	}
	if err := w.writeCover(in); err != nil {
		f.Close()
		return nil, err
	}

	sections := []struct {
		name  string
		table Table
	}{
		{SheetNexusSummary, NexusTable(in.Nexus)},
		{SheetStateTriggers, TriggersTable(in.Nexus)},
		{SheetExposureDetail, ExposureTable(in.Exposure)},
		{SheetExposureTotals, TotalsTable(in.Exposure)},
		{SheetWarnings, WarningsTable(in.Summary.Warnings)},
		{SheetRejectedRows, RejectedTable(in.RejectedRows)},
	}
	for _, s := range sections {
		if err := w.writeTable(s.name, s.table); err != nil {
			f.Close()
			return nil, err
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

type workbookWriter struct {
	f           *excelize.File
	headerStyle int
}

func (w *workbookWriter) writeCover(in Input) error {
	rows := [][]any{
		{"SALT Nexus Analysis"},
		{},
		{"Client", in.ClientName},
		{"Report Date", in.ReportDate.Format("2006-01-02")},
		{"Run ID", in.Summary.RunID},
		{"Duration (s)", strconv.FormatFloat(in.Summary.DurationSeconds, 'f', 2, 64)},
		{"Warnings", in.Summary.WarningsCount},
		{},
		{"Counter", "Value"},
	}
	for _, name := range sortedCounterNames(in.Summary.Counters) {
		rows = append(rows, []any{name, in.Summary.Counters[name]})
	}

	for i, row := range rows {
		if err := w.setRow(SheetCover, i+1, row); err != nil {
			return err
		}
	}

	titleStyle, err := w.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return errors.Wrap(err, "failed to create title style")
	}
	if err := w.f.SetCellStyle(SheetCover, "A1", "A1", titleStyle); err != nil {
		return errors.Wrap(err, "failed to style cover title")
	}
	if err := w.f.SetCellStyle(SheetCover, "A9", "B9", w.headerStyle); err != nil {
		return errors.Wrap(err, "failed to style counter header")
	}
	return w.f.SetColWidth(SheetCover, "A", "B", 24)
}

func (w *workbookWriter) writeTable(sheet string, t Table) error {
	if _, err := w.f.NewSheet(sheet); err != nil {
		return errors.Wrapf(err, "failed to add sheet %s", sheet)
	}

	if t.Empty() {
		return w.setRow(sheet, 1, []any{EmptySectionNote})
	}

	header := make([]any, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	if err := w.setRow(sheet, 1, header); err != nil {
		return err
	}
	for i, row := range t.Rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		if err := w.setRow(sheet, i+2, cells); err != nil {
			return err
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(t.Headers))
	if err != nil {
		return errors.Wrap(err, "invalid column count")
	}
	if err := w.f.SetCellStyle(sheet, "A1", lastCol+"1", w.headerStyle); err != nil {
		return errors.Wrapf(err, "failed to style header of %s", sheet)
	}
	if err := w.f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return errors.Wrapf(err, "failed to size columns of %s", sheet)
	}
	if err := w.f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return errors.Wrapf(err, "failed to freeze header of %s", sheet)
	}
	return nil
}

func (w *workbookWriter) setRow(sheet string, row int, values []any) error {
	if len(values) == 0 {
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return errors.Wrap(err, "invalid row")
	}
	if err := w.f.SetSheetRow(sheet, cell, &values); err != nil {
		return errors.Wrapf(err, "failed to write %s!%s", sheet, cell)
	}
	return nil
}

func sortedCounterNames(counters map[string]int) []string {
	names := make([]string, 0, len(counters))
	for name := range counters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
