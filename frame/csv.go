package frame

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/scigo-testng/pkg/errors"
)

// ParseCSV reads a data file with a header row. types maps column names to
// their declared type; columns not in types are numeric when every
// non-missing cell parses as a float and categorical otherwise.
func ParseCSV(r io.Reader, key Key, types map[string]ColumnType) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read CSV data")
	}
	if len(rows) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "CSV data has no header row")
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	body := rows[1:]

	cols := make([]*Column, len(header))
	for j, name := range header {
		cells := make([]string, len(body))
		for i, row := range body {
			if j < len(row) {
				cells[i] = strings.TrimSpace(row[j])
			}
		}

		typ, declared := types[name]
		if !declared {
			typ = inferType(cells)
		}

		col, err := buildColumn(name, typ, cells)
		if err != nil {
			return nil, err
		}
		cols[j] = col
	}
	return New(key, cols...)
}

func inferType(cells []string) ColumnType {
	for _, c := range cells {
		if IsMissing(c) {
			continue
		}
		if _, err := strconv.ParseFloat(c, 64); err != nil {
			return Categorical
		}
	}
	return Numeric
}

func buildColumn(name string, typ ColumnType, cells []string) (*Column, error) {
	if typ == Categorical {
		return NewCategoricalColumn(name, cells), nil
	}
	values := make([]float64, len(cells))
	for i, c := range cells {
		if IsMissing(c) {
			values[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(c, 64)
		if err != nil {
			return nil, errors.NewValueError("frame.ParseCSV",
				fmt.Sprintf("column %q row %d: %q is not numeric", name, i+1, c))
		}
		values[i] = v
	}
	return NewNumericColumn(name, values), nil
}
