package frame

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-testng/pkg/errors"
)

// Response is the extracted response column of a frame.
type Response struct {
	Name        string
	Y           []float64 // numeric values, or level codes of a categorical response
	Categorical bool
	Domain      []string
}

// NumLevels returns the number of levels of a categorical response.
func (r *Response) NumLevels() int { return len(r.Domain) }

// Classes returns the level codes as ints.
func (r *Response) Classes() []int {
	out := make([]int, len(r.Y))
	for i, y := range r.Y {
		out[i] = int(y)
	}
	return out
}

// ResponseOf extracts the named response column. Missing responses are an error.
func ResponseOf(fr *Frame, name string) (*Response, error) {
	col, ok := fr.Column(name)
	if !ok {
		return nil, errors.NewValueError("frame.ResponseOf", fmt.Sprintf("response column %q not in frame", name))
	}
	y := make([]float64, fr.NumRows())
	for i := range y {
		y[i] = col.Float(i)
		if math.IsNaN(y[i]) {
			return nil, errors.NewValueError("frame.ResponseOf",
				fmt.Sprintf("response column %q has a missing value at row %d", name, i+1))
		}
	}
	return &Response{Name: name, Y: y, Categorical: col.IsCategorical(), Domain: col.Domain}, nil
}

type feature struct {
	column string
	level  string // categorical level, "" for numeric columns
	fill   float64
}

// Encoder expands the predictor columns of a frame into a dense matrix.
// Categorical columns become one indicator per level named COL.LEVEL;
// missing numeric cells are imputed with the training mean.
type Encoder struct {
	response string
	features []feature
	names    []string
}

// NewEncoder learns the expansion from a training frame.
func NewEncoder(fr *Frame, response string) (*Encoder, error) {
	enc := &Encoder{response: response}
	for _, c := range fr.Columns() {
		if c.Name == response {
			continue
		}
		if c.IsCategorical() {
			for _, level := range c.Domain {
				enc.features = append(enc.features, feature{column: c.Name, level: level})
				enc.names = append(enc.names, CoefficientName(c.Name, level))
			}
			continue
		}
		enc.features = append(enc.features, feature{column: c.Name, fill: columnMean(c.Num)})
		enc.names = append(enc.names, c.Name)
	}
	if len(enc.features) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "frame has no predictor columns")
	}
	return enc, nil
}

// CoefficientName returns the expanded name of a categorical level.
func CoefficientName(column, level string) string {
	return column + "." + level
}

// Names returns the expanded feature names.
func (e *Encoder) Names() []string { return e.names }

// Transform encodes fr. Levels unseen in training encode as all zeros.
func (e *Encoder) Transform(fr *Frame) (*mat.Dense, error) {
	if fr.NumRows() == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "frame has no rows")
	}
	X := mat.NewDense(fr.NumRows(), len(e.features), nil)
	for j, f := range e.features {
		col, ok := fr.Column(f.column)
		if !ok {
			return nil, errors.NewValueError("frame.Encoder.Transform",
				fmt.Sprintf("column %q not in frame %s", f.column, fr.Key()))
		}
		for i := 0; i < fr.NumRows(); i++ {
			switch {
			case f.level != "":
				if col.IsCategorical() && col.Label(i) == f.level {
					X.Set(i, j, 1)
				}
			default:
				v := col.Float(i)
				if math.IsNaN(v) {
					v = f.fill
				}
				X.Set(i, j, v)
			}
		}
	}
	return X, nil
}

// Design is an encoded training frame.
type Design struct {
	X        *mat.Dense
	Response *Response
	Encoder  *Encoder
}

// NewDesign encodes the predictors and extracts the response of fr.
func NewDesign(fr *Frame, response string) (*Design, error) {
	y, err := ResponseOf(fr, response)
	if err != nil {
		return nil, err
	}
	enc, err := NewEncoder(fr, response)
	if err != nil {
		return nil, err
	}
	X, err := enc.Transform(fr)
	if err != nil {
		return nil, err
	}
	return &Design{X: X, Response: y, Encoder: enc}, nil
}

func columnMean(values []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range values {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
