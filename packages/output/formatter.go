package output

import (
	"fmt"
	"io"
	"time"

	"github.com/abdul-hamid-achik/postspec/packages/core/runner"
)

// Formatter renders suite results.
type Formatter interface {
	FormatResult(result *runner.RunResult)
	FormatError(err error)
	FormatHeader(version string)
}

// Flushable is implemented by formatters that accumulate results and write
// them at the end of a run.
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

// Names lists the supported output formats.
var Names = []string{"console", "json", "junit", "tap", "xlsx"}

// New returns the formatter for name writing to w.
func New(name string, w io.Writer, verbose, noColor bool) (Formatter, error) {
	switch name {
	case "", "console":
		return NewConsoleFormatter(WithWriter(w), WithVerbose(verbose), WithNoColor(noColor)), nil
	case "json":
		return NewJSONFormatter(JSONWithWriter(w)), nil
	case "junit":
		return NewJUnitFormatter(JUnitWithWriter(w)), nil
	case "tap":
		return NewTAPFormatter(TAPWithWriter(w)), nil
	case "xlsx":
		return NewXLSXFormatter(XLSXWithWriter(w)), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", name)
	}
}

// Binary reports whether a format must be written to a file rather than a
// terminal.
func Binary(name string) bool {
	return name == "xlsx"
}

// Extension returns the file extension used when writing a format to disk.
func Extension(name string) string {
	switch name {
	case "json":
		return ".json"
	case "junit":
		return ".xml"
	case "tap":
		return ".tap"
	case "xlsx":
		return ".xlsx"
	default:
		return ".txt"
	}
}
