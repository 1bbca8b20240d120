package testng

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the value type of a table column.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Param declares one parameter column of a test case table.
//
// Tunable params are passed to the estimator's SetParams under Name when the
// cell is set. Min and Max bound numeric values; a bound is exclusive when
// the matching Open flag is set.
type Param struct {
	Name    string
	Kind    Kind
	Tunable bool
	Min     float64
	Max     float64
	MinOpen bool
	MaxOpen bool
}

func intParam(name string, min float64) Param {
	return Param{Name: name, Kind: KindInt, Tunable: true, Min: min, Max: math.Inf(1)}
}

func floatParam(name string, min, max float64) Param {
	return Param{Name: name, Kind: KindFloat, Tunable: true, Min: min, Max: max}
}

func boolParam(name string) Param {
	return Param{Name: name, Kind: KindBool, Tunable: true}
}

// Parse converts a non-empty cell. Ints parse to int64, floats to float64
// and bools to bool.
func (p Param) Parse(raw string) (interface{}, error) {
	raw = strings.TrimSpace(raw)
	switch p.Kind {
	case KindInt:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			// 整数値の浮動小数点表記 (例: "10.0") も受け付ける
			f, ferr := strconv.ParseFloat(raw, 64)
			if ferr != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
				return nil, fmt.Errorf("%s: %q is not an integer", p.Name, raw)
			}
			v = int64(f)
		}
		return v, p.checkRange(float64(v))
	case KindFloat:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%s: %q is not a finite number", p.Name, raw)
		}
		return v, p.checkRange(v)
	case KindBool:
		v, err := parseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.Name, err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("%s: unknown kind %s", p.Name, p.Kind)
}

func (p Param) checkRange(v float64) error {
	below := v < p.Min || (p.MinOpen && v == p.Min)
	above := v > p.Max || (p.MaxOpen && v == p.Max)
	if below || above {
		return fmt.Errorf("%s: %v is out of range %s", p.Name, v, p.rangeString())
	}
	return nil
}

func (p Param) rangeString() string {
	lo, hi := "[", "]"
	if p.MinOpen {
		lo = "("
	}
	if p.MaxOpen {
		hi = ")"
	}
	return fmt.Sprintf("%s%v, %v%s", lo, p.Min, p.Max, hi)
}

// Validate checks a cell. Empty cells are valid.
func (p Param) Validate(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	_, err := p.Parse(raw)
	return err
}

// parseBool accepts true/false, yes/no, 1/0 and x (true), case-insensitively.
func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "1", "x":
		return true, nil
	case "false", "no", "0", "":
		return false, nil
	}
	return false, fmt.Errorf("%q is not a boolean", raw)
}

// Option is one flag column of an OptionGroup and the value it selects.
type Option struct {
	Column string
	Value  string
}

// OptionGroup is a set of mutually exclusive flag columns such as the
// distribution columns of the tree tables.
type OptionGroup struct {
	Name    string
	Options []Option
}

// Selected returns the value of the single flag that is set, or "" when no
// flag is set. More than one set flag is an error.
func (g OptionGroup) Selected(raw RawInput) (string, error) {
	var chosen []Option
	for _, o := range g.Options {
		if !raw.IsSet(o.Column) {
			continue
		}
		on, err := parseBool(raw.Get(o.Column))
		if err != nil {
			return "", fmt.Errorf("%s: %w", o.Column, err)
		}
		if on {
			chosen = append(chosen, o)
		}
	}
	switch len(chosen) {
	case 0:
		return "", nil
	case 1:
		return chosen[0].Value, nil
	}
	cols := make([]string, len(chosen))
	for i, o := range chosen {
		cols[i] = o.Column
	}
	return "", fmt.Errorf("only one %s may be set, got %s", g.Name, strings.Join(cols, ", "))
}

// Common column names shared by every algorithm table.
const (
	ColTestcaseID        = "testcase_id"
	ColDescription       = "test_description"
	ColTrainDatasetID    = "train_dataset_id"
	ColValidateDatasetID = "validate_dataset_id"

	ColBetaConstraints = "betaConstraints"
	ColLowerBound      = "lowerBound"
	ColUpperBound      = "upperBound"
)

var commonHeaders = []string{ColTestcaseID, ColDescription, ColTrainDatasetID, ColValidateDatasetID}

// Schema is the column layout of one algorithm's tables.
type Schema struct {
	Algorithm Algorithm
	Groups    []OptionGroup
	Params    []Param
}

// Headers returns every column the table must declare: the common columns,
// the flag columns of each group, then the parameter columns.
func (s Schema) Headers() []string {
	headers := append([]string(nil), commonHeaders...)
	for _, g := range s.Groups {
		for _, o := range g.Options {
			headers = append(headers, o.Column)
		}
	}
	for _, p := range s.Params {
		headers = append(headers, p.Name)
	}
	return headers
}

// Group returns the option group with the given name.
func (s Schema) Group(name string) (OptionGroup, bool) {
	for _, g := range s.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return OptionGroup{}, false
}

const (
	groupDistribution = "distribution"
	groupFamily       = "family"
	groupSolver       = "solver"
)

func flags(name string, values ...string) OptionGroup {
	g := OptionGroup{Name: name}
	for _, v := range values {
		g.Options = append(g.Options, Option{Column: v, Value: v})
	}
	return g
}

var (
	ntreesParam     = intParam("ntrees", 1)
	maxDepthParam   = intParam("max_depth", 0)
	minRowsParam    = floatParam("min_rows", 1, math.Inf(1))
	sampleRateParam = Param{Name: "sample_rate", Kind: KindFloat, Tunable: true, Min: 0, Max: 1, MinOpen: true}
	seedParam       = Param{Name: "seed", Kind: KindInt, Tunable: true, Min: math.Inf(-1), Max: math.Inf(1)}
)

var schemas = map[Algorithm]Schema{
	DRF: {
		Algorithm: DRF,
		Groups: []OptionGroup{
			flags(groupDistribution, "auto", "gaussian", "binomial", "multinomial", "poisson", "gamma", "tweedie"),
		},
		Params: []Param{
			ntreesParam,
			maxDepthParam,
			minRowsParam,
			intParam("mtries", -1),
			sampleRateParam,
			seedParam,
		},
	},
	GBM: {
		Algorithm: GBM,
		Groups: []OptionGroup{
			flags(groupDistribution, "auto", "gaussian", "bernoulli", "multinomial", "poisson", "gamma", "tweedie"),
		},
		Params: []Param{
			ntreesParam,
			maxDepthParam,
			minRowsParam,
			{Name: "learn_rate", Kind: KindFloat, Tunable: true, Min: 0, Max: 1, MinOpen: true},
			sampleRateParam,
			seedParam,
			floatParam("tweedie_power", 1, 2),
		},
	},
	GLM: {
		Algorithm: GLM,
		Groups: []OptionGroup{
			flags(groupFamily, "gaussian", "binomial", "poisson", "gamma", "tweedie"),
			flags(groupSolver, "irlsm", "l_bfgs", "coordinate_descent"),
		},
		Params: []Param{
			floatParam("alpha", 0, 1),
			floatParam("lambda", 0, math.Inf(1)),
			boolParam("standardize"),
			intParam("max_iterations", 1),
			floatParam("beta_epsilon", 0, math.Inf(1)),
			boolParam("intercept"),
			floatParam("tweedie_variance_power", 1, 2),
			{Name: ColBetaConstraints, Kind: KindBool},
			{Name: ColLowerBound, Kind: KindFloat, Min: math.Inf(-1), Max: math.Inf(1)},
			{Name: ColUpperBound, Kind: KindFloat, Min: math.Inf(-1), Max: math.Inf(1)},
		},
	},
}

// SchemaFor returns the table schema of alg.
func SchemaFor(alg Algorithm) (Schema, bool) {
	s, ok := schemas[alg]
	return s, ok
}
