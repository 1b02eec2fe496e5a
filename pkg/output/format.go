package output

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strings"
)

// Format selects how the list command renders its packages.
type Format int

const (
	// FormatTable is the default aligned-text rendering.
	FormatTable Format = iota
	// FormatJSON emits the locked packages as a pretty-printed JSON array.
	FormatJSON
	// FormatCSV emits one header row plus one record per locked package.
	FormatCSV
)

// ParseFormat maps a --output flag value to a Format. Unrecognized or empty
// values fall back to the table rendering rather than erroring, since the
// table is always a safe answer for a human-facing flag.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON
	case "csv":
		return FormatCSV
	default:
		return FormatTable
	}
}

// IsStructuredFormat reports whether f is machine-readable output rather
// than the human-facing table.
func IsStructuredFormat(f Format) bool {
	return f == FormatJSON || f == FormatCSV
}

// Formatter writes structured output in a fixed format.
type Formatter struct {
	format Format
	w      io.Writer
}

// NewFormatter returns a Formatter writing to w.
func NewFormatter(format Format, w io.Writer) *Formatter {
	return &Formatter{format: format, w: w}
}

// Format returns the format this Formatter was built with.
func (f *Formatter) Format() Format { return f.format }

// WriteJSON encodes data with the same 2-space indent the lockfile itself
// uses, so piped output diffs cleanly against manifest.lock.
func (f *Formatter) WriteJSON(data any) error {
	enc := json.NewEncoder(f.w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// WriteCSV writes a header row followed by the given records.
func (f *Formatter) WriteCSV(headers []string, rows [][]string) error {
	w := csv.NewWriter(f.w)
	if err := w.Write(headers); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
