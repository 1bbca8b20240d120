// Package frame provides the column-oriented tables the estimators train on
// and the keyed store that owns them.
//
// A Frame holds numeric columns (NaN marks a missing value) and categorical
// columns (level codes into a sorted domain, -1 marks a missing value).
// Frames are registered in a Store under a Key. Whoever puts a frame in the
// store is responsible for removing it.
package frame

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/scigo-testng/pkg/errors"
)

// Key identifies a frame in a Store.
type Key string

// NewKey returns a fresh key with a readable prefix.
func NewKey(prefix string) Key {
	return Key(prefix + "_" + uuid.NewString())
}

// ColumnType is the declared type of a column.
type ColumnType int

const (
	Numeric ColumnType = iota
	Categorical
)

func (t ColumnType) String() string {
	if t == Categorical {
		return "enum"
	}
	return "numeric"
}

// ParseColumnType parses the type names used by dataset characteristics.
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "numeric", "real", "int", "integer", "float", "double":
		return Numeric, nil
	case "enum", "categorical", "factor", "string":
		return Categorical, nil
	default:
		return Numeric, errors.NewValidationError("column type", "unknown column type", s)
	}
}

// Column is one named column of a Frame.
type Column struct {
	Name string
	Type ColumnType

	// Num holds values of a numeric column.
	Num []float64

	// Codes and Domain hold a categorical column.
	Codes  []int
	Domain []string
}

// NewNumericColumn creates a numeric column.
func NewNumericColumn(name string, values []float64) *Column {
	return &Column{Name: name, Type: Numeric, Num: values}
}

// NewCategoricalColumn creates a categorical column from labels. The domain is
// the sorted set of non-missing labels.
func NewCategoricalColumn(name string, labels []string) *Column {
	seen := make(map[string]struct{})
	for _, l := range labels {
		if !IsMissing(l) {
			seen[l] = struct{}{}
		}
	}
	domain := make([]string, 0, len(seen))
	for l := range seen {
		domain = append(domain, l)
	}
	sort.Strings(domain)

	index := make(map[string]int, len(domain))
	for i, l := range domain {
		index[l] = i
	}
	codes := make([]int, len(labels))
	for i, l := range labels {
		if c, ok := index[l]; ok {
			codes[i] = c
		} else {
			codes[i] = -1
		}
	}
	return &Column{Name: name, Type: Categorical, Codes: codes, Domain: domain}
}

// Len returns the number of rows.
func (c *Column) Len() int {
	if c.Type == Categorical {
		return len(c.Codes)
	}
	return len(c.Num)
}

// IsCategorical reports whether the column is categorical.
func (c *Column) IsCategorical() bool { return c.Type == Categorical }

// Float returns row i as a float. Categorical rows return their level code
// and missing values return NaN.
func (c *Column) Float(i int) float64 {
	if c.Type == Categorical {
		if c.Codes[i] < 0 {
			return math.NaN()
		}
		return float64(c.Codes[i])
	}
	return c.Num[i]
}

// Label returns row i of a categorical column, or "" when missing.
func (c *Column) Label(i int) string {
	if c.Codes[i] < 0 {
		return ""
	}
	return c.Domain[c.Codes[i]]
}

// Frame is an immutable column-oriented table.
type Frame struct {
	key   Key
	cols  []*Column
	index map[string]int
	nrows int
}

// New creates a frame. All columns must have the same length and unique names.
func New(key Key, cols ...*Column) (*Frame, error) {
	fr := &Frame{key: key, cols: cols, index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if _, dup := fr.index[c.Name]; dup {
			return nil, errors.NewValueError("frame.New", fmt.Sprintf("duplicate column %q", c.Name))
		}
		fr.index[c.Name] = i
		if i == 0 {
			fr.nrows = c.Len()
		} else if c.Len() != fr.nrows {
			return nil, errors.NewDimensionError("frame.New", fr.nrows, c.Len(), 0)
		}
	}
	return fr, nil
}

// Key returns the store key of the frame.
func (f *Frame) Key() Key { return f.key }

// NumRows returns the number of rows.
func (f *Frame) NumRows() int { return f.nrows }

// NumCols returns the number of columns.
func (f *Frame) NumCols() int { return len(f.cols) }

// Names returns the column names in frame order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.Name
	}
	return names
}

// Columns returns the columns in frame order.
func (f *Frame) Columns() []*Column { return f.cols }

// Column returns the named column.
func (f *Frame) Column(name string) (*Column, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.cols[i], true
}

// IsMissing reports whether a raw cell denotes a missing value.
func IsMissing(cell string) bool {
	switch strings.TrimSpace(cell) {
	case "", "NA", "na", "NaN", "?":
		return true
	}
	return false
}
