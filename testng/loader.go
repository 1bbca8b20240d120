package testng

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/YuminosukeSato/scigo-testng/pkg/errors"
	"github.com/YuminosukeSato/scigo-testng/pkg/log"
)

// RawInput maps each declared header of a table to the trimmed cell value of
// one row.
type RawInput map[string]string

// Get returns the cell of name, or "" when the column is absent.
func (r RawInput) Get(name string) string { return r[name] }

// IsSet reports whether the cell of name is non-empty.
func (r RawInput) IsSet(name string) bool { return r[name] != "" }

// TestCase is one row of a test case table. Train and Validate are nil when
// the dataset id is empty or unknown to the registry.
type TestCase struct {
	ID                string
	Description       string
	TrainDatasetID    string
	ValidateDatasetID string
	Train             *Dataset
	Validate          *Dataset
	Algorithm         Algorithm
	Negative          bool
	Raw               RawInput
}

// Kind returns "negative" or "positive".
func (tc *TestCase) Kind() string {
	if tc.Negative {
		return "negative"
	}
	return "positive"
}

// AlgorithmSpec locates the tables of one algorithm.
type AlgorithmSpec struct {
	Algorithm Algorithm
	// HeaderRow is the 1-based line of the header. Lines above it are
	// ignored. Values below 1 mean 1.
	HeaderRow int
	Positive  string
	Negative  string
}

// ReadTestcaseFile parses one test case table.
//
// A missing or unreadable file returns an error wrapping ErrTableNotFound.
// A header without every schema column returns a *errors.HeaderError naming
// the first missing column. A file without data rows returns an empty
// slice.
func ReadTestcaseFile(reg *Registry, spec AlgorithmSpec, path string, negative bool) ([]TestCase, error) {
	schema, ok := SchemaFor(spec.Algorithm)
	if !ok {
		return nil, errors.NewValidationError("algorithm", "unknown algorithm", string(spec.Algorithm))
	}
	if path == "" {
		return nil, errors.Wrap(errors.ErrTableNotFound, "no path configured")
	}

	var (
		lines     [][]string
		warnShort = true
		err       error
	)
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		// excelize drops trailing empty cells, so short rows are normal there
		lines, err = readXLSX(path)
		warnShort = false
	} else {
		lines, err = readCSVLines(path)
	}
	if err != nil {
		return nil, err
	}

	skip := spec.HeaderRow - 1
	if skip < 0 {
		skip = 0
	}
	if skip >= len(lines) {
		return nil, errors.NewHeaderError(path, schema.Headers()[0])
	}
	lines = lines[skip:]

	header := make(map[string]int, len(lines[0]))
	for i, h := range lines[0] {
		h = strings.TrimSpace(h)
		if _, dup := header[h]; !dup {
			header[h] = i
		}
	}
	expected := schema.Headers()
	for _, name := range expected {
		if _, ok := header[name]; !ok {
			return nil, errors.NewHeaderError(path, name)
		}
	}

	logger := log.GetLoggerWithName("testng.loader").With(log.FilePathKey, path)
	cases := make([]TestCase, 0, len(lines)-1)
	for n, cells := range lines[1:] {
		if isBlank(cells) {
			continue
		}
		raw := make(RawInput, len(expected))
		short := false
		for _, name := range expected {
			idx := header[name]
			if idx >= len(cells) {
				raw[name] = ""
				short = true
				continue
			}
			raw[name] = strings.TrimSpace(cells[idx])
		}
		if short && warnShort {
			logger.Warn("row has fewer cells than the header, missing cells are empty",
				"row", n+spec.HeaderRow+1, "cells", len(cells), "headers", len(header))
		}
		cases = append(cases, newTestCase(reg, spec.Algorithm, raw, negative))
	}
	return cases, nil
}

func newTestCase(reg *Registry, alg Algorithm, raw RawInput, negative bool) TestCase {
	tc := TestCase{
		ID:                raw.Get(ColTestcaseID),
		Description:       raw.Get(ColDescription),
		TrainDatasetID:    raw.Get(ColTrainDatasetID),
		ValidateDatasetID: raw.Get(ColValidateDatasetID),
		Algorithm:         alg,
		Negative:          negative,
		Raw:               raw,
	}
	if reg != nil {
		if ds, ok := reg.Get(tc.TrainDatasetID); ok && tc.TrainDatasetID != "" {
			tc.Train = ds
		}
		if ds, ok := reg.Get(tc.ValidateDatasetID); ok && tc.ValidateDatasetID != "" {
			tc.Validate = ds
		}
	}
	return tc
}

// readCSVLines splits the file into lines and each line on commas. Empty
// cells are kept, so "a,b,," has four cells.
func readCSVLines(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrTableNotFound, "%s: %v", path, err)
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(text, "\n")
	out := make([][]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, SplitRow(line))
	}
	// 末尾の改行による空行を落とす
	for len(out) > 0 && isBlank(out[len(out)-1]) {
		out = out[:len(out)-1]
	}
	return out, nil
}

// SplitRow trims a table line and splits it on commas without collapsing
// empty cells.
func SplitRow(line string) []string {
	return strings.Split(strings.TrimSpace(line), ",")
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrTableNotFound, "%s: %v", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read sheet %s of %s", sheets[0], path)
	}
	return rows, nil
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// DataProvider reads the positive then the negative table of spec.
//
// It returns nil when neither table could be read, and a non-nil (possibly
// empty) slice when at least one was. Missing tables and bad headers are
// logged, not returned.
func DataProvider(reg *Registry, spec AlgorithmSpec) []TestCase {
	logger := log.GetLoggerWithName("testng.loader").With(log.AlgorithmKey, spec.Algorithm.String())

	var (
		cases []TestCase
		found bool
	)
	for _, part := range []struct {
		path     string
		negative bool
	}{
		{spec.Positive, false},
		{spec.Negative, true},
	} {
		rows, err := ReadTestcaseFile(reg, spec, part.path, part.negative)
		if err != nil {
			logTableError(logger, part.path, part.negative, err)
			continue
		}
		found = true
		cases = append(cases, rows...)
	}
	if !found {
		return nil
	}
	if cases == nil {
		cases = []TestCase{}
	}
	return cases
}

func logTableError(logger log.Logger, path string, negative bool, err error) {
	var herr *errors.HeaderError
	switch {
	case errors.As(err, &herr):
		logger.Error("testcase file is malformed, no rows loaded",
			log.FilePathKey, path, log.NegativeKey, negative, "missing_column", herr.Missing)
	case errors.Is(err, errors.ErrTableNotFound):
		logger.Warn("testcase file not found", err,
			log.FilePathKey, path, log.NegativeKey, negative)
	default:
		logger.Error("failed to read testcase file", err,
			log.FilePathKey, path, log.NegativeKey, negative)
	}
}
