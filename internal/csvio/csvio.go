// Package csvio reads and writes the comma-separated artifacts exchanged with
// the upstream regression pipeline and downstream consumers.
//
// Files are written with a header row and one record per line. Floats use the
// shortest representation that round-trips; dates use ISO 8601 day format.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"seiir/internal/failure"
	"seiir/internal/fileutil"
)

// DateLayout is the day format used in every date column.
const DateLayout = "2006-01-02"

// Frame is a parsed CSV file with a header row.
type Frame struct {
	Source string
	Header []string
	Rows   [][]string
	index  map[string]int
}

// Read parses a CSV stream. source names the stream in error messages.
func Read(r io.Reader, source string) (*Frame, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, failure.Wrap(failure.ErrValidation, "csvio", "read", source, err)
	}
	if len(records) == 0 {
		return nil, failure.Wrap(failure.ErrValidation, "csvio", "read", source+": missing header", nil)
	}
	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		header[i] = name
		if _, dup := index[name]; dup {
			return nil, failure.Wrap(failure.ErrValidation, "csvio", "read",
				fmt.Sprintf("%s: duplicate column %q", source, name), nil)
		}
		index[name] = i
	}
	return &Frame{Source: source, Header: header, Rows: records[1:], index: index}, nil
}

// ReadFile parses the CSV file at path. A missing file is failure.ErrNotFound.
func ReadFile(path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, failure.Wrap(failure.ErrNotFound, "csvio", "open", path, err)
		}
		return nil, fmt.Errorf("csvio: open %q: %w", path, err)
	}
	defer f.Close()
	return Read(f, path)
}

// Len returns the number of data rows.
func (f *Frame) Len() int { return len(f.Rows) }

// Has reports whether the frame carries the named column.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns the index of the first of names present in the header.
func (f *Frame) Column(names ...string) (int, error) {
	for _, name := range names {
		if idx, ok := f.index[name]; ok {
			return idx, nil
		}
	}
	return -1, failure.Wrap(failure.ErrValidation, "csvio", "column",
		fmt.Sprintf("%s: missing column %s", f.Source, strings.Join(names, " or ")), nil)
}

// Value returns the trimmed cell at row, col.
func (f *Frame) Value(row, col int) string {
	return strings.TrimSpace(f.Rows[row][col])
}

// Float parses the cell at row, col. Empty and "nan" cells are NaN.
func (f *Frame) Float(row, col int) (float64, error) {
	v, err := ParseFloat(f.Value(row, col))
	if err != nil {
		return 0, f.cellError(row, col, err)
	}
	return v, nil
}

// Int parses the cell at row, col. Integral floats such as "12.0" are accepted.
func (f *Frame) Int(row, col int) (int, error) {
	raw := f.Value(row, col)
	if v, err := strconv.Atoi(raw); err == nil {
		return v, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v != math.Trunc(v) || math.IsInf(v, 0) {
		return 0, f.cellError(row, col, fmt.Errorf("not an integer: %q", raw))
	}
	return int(v), nil
}

// Date parses the cell at row, col as a day. A trailing time of day is dropped.
func (f *Frame) Date(row, col int) (time.Time, error) {
	v, err := ParseDate(f.Value(row, col))
	if err != nil {
		return time.Time{}, f.cellError(row, col, err)
	}
	return v, nil
}

func (f *Frame) cellError(row, col int, err error) error {
	return failure.Wrap(failure.ErrValidation, "csvio", "parse",
		fmt.Sprintf("%s: row %d column %q", f.Source, row+2, f.Header[col]), err)
}

// ParseFloat parses a float cell. Empty and "nan" cells are NaN.
func ParseFloat(raw string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "nan":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(strings.TrimSpace(raw), 64)
}

// ParseDate parses "2006-01-02", optionally followed by a time of day.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) > len(DateLayout) {
		raw = raw[:len(DateLayout)]
	}
	return time.Parse(DateLayout, raw)
}

// FormatFloat renders v with the shortest round-tripping representation,
// in plain decimal notation unless v is very large or very small.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	if abs := math.Abs(v); abs == 0 || (abs >= 1e-4 && abs < 1e15) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// FormatInt renders an integer cell.
func FormatInt(v int) string { return strconv.Itoa(v) }

// FormatDate renders a date cell.
func FormatDate(v time.Time) string { return v.Format(DateLayout) }

// Write emits header and rows as CSV.
func Write(w io.Writer, header []string, rows [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	for i, row := range rows {
		if len(row) != len(header) {
			return fmt.Errorf("csvio: row %d has %d cells, header has %d", i, len(row), len(header))
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// Writer returns a fileutil.WriteFunc that emits header and rows.
func Writer(header []string, rows [][]string) fileutil.WriteFunc {
	return func(w io.Writer) error {
		return Write(w, header, rows)
	}
}

// WriteFile atomically replaces path with header and rows.
func WriteFile(path string, header []string, rows [][]string) error {
	if err := fileutil.WriteFileAtomic(path, 0o644, Writer(header, rows)); err != nil {
		return fmt.Errorf("csvio: write %q: %w", path, err)
	}
	return nil
}
