package csvio

import (
	"bytes"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"seiir/internal/failure"
)

func TestReadTypedColumns(t *testing.T) {
	input := "\ufefflocation_id,date,beta,draw\n" +
		"102,2020-05-01,0.25,1\n" +
		"102,2020-05-02 00:00:00,,1.0\n"
	frame, err := Read(strings.NewReader(input), "beta.csv")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if frame.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", frame.Len())
	}
	if !frame.Has("location_id") {
		t.Fatal("expected BOM to be stripped from first header")
	}

	dateCol, err := frame.Column("date")
	if err != nil {
		t.Fatalf("Column(date): %v", err)
	}
	got, err := frame.Date(1, dateCol)
	if err != nil {
		t.Fatalf("Date: %v", err)
	}
	if want := time.Date(2020, 5, 2, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("Date = %v, want %v", got, want)
	}

	betaCol, _ := frame.Column("beta")
	if v, err := frame.Float(0, betaCol); err != nil || v != 0.25 {
		t.Fatalf("Float(0) = %v, %v", v, err)
	}
	if v, err := frame.Float(1, betaCol); err != nil || !math.IsNaN(v) {
		t.Fatalf("expected empty cell to be NaN, got %v, %v", v, err)
	}

	drawCol, _ := frame.Column("draw")
	if v, err := frame.Int(1, drawCol); err != nil || v != 1 {
		t.Fatalf("Int(1) = %v, %v", v, err)
	}
}

func TestColumnAlternatives(t *testing.T) {
	frame, err := Read(strings.NewReader("loc_id,end_date\n1,2020-01-01\n"), "dates.csv")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	idx, err := frame.Column("location_id", "loc_id")
	if err != nil || idx != 0 {
		t.Fatalf("Column = %d, %v", idx, err)
	}
	if _, err := frame.Column("beta"); !errors.Is(err, failure.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReadRejectsMalformedInput(t *testing.T) {
	tests := map[string]string{
		"empty":            "",
		"duplicate column": "a,a\n1,2\n",
		"ragged row":       "a,b\n1\n",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Read(strings.NewReader(input), name); !errors.Is(err, failure.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestIntRejectsFractions(t *testing.T) {
	frame, err := Read(strings.NewReader("draw\n1.5\n"), "x.csv")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if _, err := frame.Int(0, 0); !errors.Is(err, failure.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReadFileMissingIsNotFound(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "draw_0.csv")); !errors.Is(err, failure.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestWriteFileThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beta_scaling", "draw_0.csv")
	header := []string{"location_id", "date", "scale"}
	rows := [][]string{
		{FormatInt(102), FormatDate(time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC)), FormatFloat(0.1)},
		{FormatInt(523), FormatDate(time.Date(2020, 5, 2, 0, 0, 0, 0, time.UTC)), FormatFloat(math.NaN())},
	}
	if err := WriteFile(path, header, rows); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	frame, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if diff := cmp.Diff(header, frame.Header); diff != "" {
		t.Fatalf("header mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(rows, frame.Rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteRejectsRaggedRows(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, []string{"a", "b"}, [][]string{{"1"}}); err == nil {
		t.Fatal("expected ragged row error")
	}
}

func TestFormatFloatRoundTrips(t *testing.T) {
	for _, v := range []float64{0, -0.125, 1.0 / 3.0, 1e-300, 123456789.5} {
		got, err := ParseFloat(FormatFloat(v))
		if err != nil {
			t.Fatalf("ParseFloat(%v): %v", v, err)
		}
		if got != v {
			t.Fatalf("round trip %v -> %v", v, got)
		}
	}
}

func TestFormatFloatNotation(t *testing.T) {
	tests := map[float64]string{
		102000:  "102000",
		0.25:    "0.25",
		1e-7:    "1e-07",
		2.5e20:  "2.5e+20",
		-3:      "-3",
		0.00015: "0.00015",
	}
	for v, want := range tests {
		if got := FormatFloat(v); got != want {
			t.Errorf("FormatFloat(%v) = %q, want %q", v, got, want)
		}
	}
}
