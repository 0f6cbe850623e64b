package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/postspec/packages/core/runner"
	"github.com/xuri/excelize/v2"
)

const (
	xlsxResultsSheet = "Results"
	xlsxSummarySheet = "Summary"

	// Cases slower than this are highlighted.
	xlsxSlowThreshold = 300 * time.Millisecond

	failedFill = "FFC7CE"
	slowFill   = "FFEB9C"
	skipFill   = "EDEDED"
)

var xlsxHeaders = []string{
	"Suite", "Case", "Outcome", "Status", "Duration (ms)", "URL",
	"Expected", "Actual", "Message", "Curl",
}

var xlsxColumnWidths = []float64{18, 48, 10, 8, 14, 60, 40, 40, 40, 80}

// XLSXFormatter writes a spreadsheet report: one row per case on the
// Results sheet, and per-suite counts and latency on the Summary sheet.
type XLSXFormatter struct {
	writer  io.Writer
	results []*runner.RunResult
}

type XLSXOption func(*XLSXFormatter)

func NewXLSXFormatter(opts ...XLSXOption) *XLSXFormatter {
	f := &XLSXFormatter{writer: os.Stdout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func XLSXWithWriter(w io.Writer) XLSXOption {
	return func(f *XLSXFormatter) {
		f.writer = w
	}
}

func (f *XLSXFormatter) FormatResult(result *runner.RunResult) {
	f.results = append(f.results, result)
}

func (f *XLSXFormatter) FormatError(err error) {}

func (f *XLSXFormatter) FormatHeader(version string) {}

func (f *XLSXFormatter) Flush(totalDuration time.Duration) error {
	book := excelize.NewFile()
	defer book.Close()

	if err := book.SetSheetName("Sheet1", xlsxResultsSheet); err != nil {
		return fmt.Errorf("naming results sheet: %w", err)
	}
	if _, err := book.NewSheet(xlsxSummarySheet); err != nil {
		return fmt.Errorf("creating summary sheet: %w", err)
	}

	if err := f.writeResults(book); err != nil {
		return err
	}
	if err := f.writeSummary(book, totalDuration); err != nil {
		return err
	}

	if err := book.Write(f.writer); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func (f *XLSXFormatter) writeResults(book *excelize.File) error {
	sheet := xlsxResultsSheet

	header, err := book.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	fills := make(map[string]int)
	for name, color := range map[string]string{"failed": failedFill, "slow": slowFill, "skipped": skipFill} {
		id, err := book.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
			Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		})
		if err != nil {
			return err
		}
		fills[name] = id
	}

	for i, width := range xlsxColumnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := book.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}
	if err := setRow(book, sheet, 1, toCells(xlsxHeaders)); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(xlsxHeaders), 1)
	if err := book.SetCellStyle(sheet, "A1", last, header); err != nil {
		return err
	}

	row := 2
	for _, result := range f.results {
		for _, r := range result.Results {
			if err := setRow(book, sheet, row, caseRow(result.Suite, r)); err != nil {
				return err
			}

			style, styled := 0, true
			switch {
			case r.Outcome == runner.OutcomeFail || r.Outcome == runner.OutcomeError:
				style = fills["failed"]
			case r.Outcome == runner.OutcomeSkip:
				style = fills["skipped"]
			case r.Duration > xlsxSlowThreshold:
				style = fills["slow"]
			default:
				styled = false
			}
			if styled {
				first, _ := excelize.CoordinatesToCellName(1, row)
				end, _ := excelize.CoordinatesToCellName(len(xlsxHeaders), row)
				if err := book.SetCellStyle(sheet, first, end, style); err != nil {
					return err
				}
			}
			row++
		}
	}
	return nil
}

func caseRow(suite string, r *runner.RequestResult) []any {
	var status any
	var url, curl string
	if r.Response != nil {
		status = r.Response.StatusCode
	}
	if r.Request != nil {
		url = r.Request.BuildURL()
		curl = r.Request.Curl()
	}

	var expected, actual, message []string
	switch r.Outcome {
	case runner.OutcomeFail:
		for _, a := range r.Failures() {
			expected = append(expected, fmt.Sprintf("%s: %s", a.Subject, a.Expected))
			actual = append(actual, fmt.Sprintf("%s: %s", a.Subject, formatValue(a.Actual, 200)))
			if a.Message != "" {
				message = append(message, a.Message)
			}
		}
	case runner.OutcomeError:
		if r.Error != nil {
			message = append(message, r.Error.Error())
		}
	case runner.OutcomeSkip:
		message = append(message, r.SkipReason)
	}

	return []any{
		suite,
		r.Name,
		r.Outcome.String(),
		status,
		r.Duration.Milliseconds(),
		url,
		strings.Join(expected, "\n"),
		strings.Join(actual, "\n"),
		strings.Join(message, "\n"),
		curl,
	}
}

func (f *XLSXFormatter) writeSummary(book *excelize.File, totalDuration time.Duration) error {
	sheet := xlsxSummarySheet

	if err := setRow(book, sheet, 1, []any{"Suite", "Run ID", "Passed", "Failed", "Errored", "Skipped", "Duration (ms)", "Latency"}); err != nil {
		return err
	}
	if err := book.SetColWidth(sheet, "A", "B", 38); err != nil {
		return err
	}
	if err := book.SetColWidth(sheet, "H", "H", 70); err != nil {
		return err
	}

	var passed, failed, errored, skipped int
	for i, result := range f.results {
		row := []any{
			result.Suite, result.RunID,
			result.Passed, result.Failed, result.Errored, result.Skipped,
			result.Duration.Milliseconds(), result.Latency.String(),
		}
		if err := setRow(book, sheet, i+2, row); err != nil {
			return err
		}
		passed += result.Passed
		failed += result.Failed
		errored += result.Errored
		skipped += result.Skipped
	}

	total := []any{"Total", "", passed, failed, errored, skipped, totalDuration.Milliseconds(), ""}
	return setRow(book, sheet, len(f.results)+2, total)
}

func setRow(book *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return book.SetSheetRow(sheet, cell, &values)
}

func toCells(values []string) []any {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
