package testng

import (
	"fmt"
	"math"
	"strconv"

	"github.com/YuminosukeSato/scigo-testng/distribution"
	"github.com/YuminosukeSato/scigo-testng/frame"
	"github.com/YuminosukeSato/scigo-testng/pkg/errors"
	"github.com/YuminosukeSato/scigo-testng/pkg/log"
	"github.com/YuminosukeSato/scigo-testng/sklearn/linear_model"
)

// Values of the tuned_or_defaults column.
const (
	Tuned    = "tuned"
	Defaults = "defaults"
)

// Columns of the beta constraints frame.
const (
	BoundsNames = "names"
	BoundsLower = "lower_bounds"
	BoundsUpper = "upper_bounds"
)

// Validate checks that tc can run, stopping at the first problem: the train
// dataset id is set, known to the registry and available, then every flag
// group and parameter cell parses. Failures are *errors.InvalidTestCaseError.
func Validate(tc *TestCase) error {
	invalid := func(format string, args ...interface{}) error {
		return errors.NewInvalidTestCaseError(tc.ID, fmt.Sprintf(format, args...))
	}

	if tc.TrainDatasetID == "" {
		return invalid("train dataset id is empty")
	}
	if tc.Train == nil {
		return errors.NewInvalidTestCaseErrorCause(tc.ID, errors.ErrDatasetNotFound,
			fmt.Sprintf("dataset id %s is not in dataset characteristics", tc.TrainDatasetID))
	}
	if !tc.Train.Available() {
		return invalid("dataset characteristic is not available")
	}

	schema, ok := SchemaFor(tc.Algorithm)
	if !ok {
		return invalid("unknown algorithm %q", tc.Algorithm)
	}
	for _, g := range schema.Groups {
		if tc.Algorithm == DRF && g.Name == groupDistribution {
			// DRF の distribution 列は CheckImplemented が判定する
			continue
		}
		if _, err := g.Selected(tc.Raw); err != nil {
			return invalid("%v", err)
		}
	}
	for _, p := range schema.Params {
		if err := p.Validate(tc.Raw.Get(p.Name)); err != nil {
			return invalid("%v", err)
		}
	}

	if tc.Algorithm == GLM {
		on, _ := parseBool(tc.Raw.Get(ColBetaConstraints))
		if on {
			lo, hi := bound(tc.Raw, ColLowerBound, math.Inf(-1)), bound(tc.Raw, ColUpperBound, math.Inf(1))
			if lo > hi {
				return invalid("lowerBound %v is greater than upperBound %v", lo, hi)
			}
		}
	}
	return nil
}

// CheckImplemented rejects DRF test cases that fill any distribution cell
// other than AUTO, or fill the AUTO cell with something that is not a flag.
// Other algorithms always pass.
func CheckImplemented(tc *TestCase) error {
	if tc.Algorithm != DRF {
		return nil
	}
	schema, _ := SchemaFor(DRF)
	g, _ := schema.Group(groupDistribution)
	for _, o := range g.Options {
		if !tc.Raw.IsSet(o.Column) {
			continue
		}
		if _, err := parseBool(tc.Raw.Get(o.Column)); o.Value != "auto" || err != nil {
			return errors.NewNotImplementedError(tc.ID, "Only AUTO family is implemented")
		}
	}
	return nil
}

// Resolution is a resolved test case. Release must be called once the test
// case is done with its frames.
type Resolution struct {
	Config AlgorithmConfig
	// Tuned is true when at least one parameter came from the table.
	Tuned bool

	store     *frame.Store
	boundsKey frame.Key
	parsed    []*Dataset
}

// TunedOrDefaults returns "tuned" or "defaults".
func (r *Resolution) TunedOrDefaults() string {
	if r.Tuned {
		return Tuned
	}
	return Defaults
}

// Release removes the bounds frame. Dataset frames stay cached in their
// datasets until the registry closes the size tier. It is safe to call more
// than once.
func (r *Resolution) Release() {
	if r == nil {
		return
	}
	if r.boundsKey != "" {
		r.store.Remove(r.boundsKey)
		r.boundsKey = ""
	}
}

// discard releases everything a failed Resolve created, including the
// dataset frames that were parsed by that call.
func (r *Resolution) discard() {
	r.Release()
	for _, ds := range r.parsed {
		ds.Close()
	}
	r.parsed = nil
}

// load returns the frame of ds and remembers ds when this call parsed it.
func (r *Resolution) load(ds *Dataset) (*frame.Frame, error) {
	cached := ds.Loaded()
	fr, err := ds.Frame()
	if err == nil && !cached {
		r.parsed = append(r.parsed, ds)
	}
	return fr, err
}

// Resolver turns validated test cases into algorithm configs.
type Resolver struct {
	Store  *frame.Store
	Logger log.Logger
}

// NewResolver creates a resolver that registers auxiliary frames in store.
func NewResolver(store *frame.Store) *Resolver {
	return &Resolver{Store: store, Logger: log.GetLoggerWithName("testng.resolver")}
}

// Resolve builds the config of a validated test case.
//
// Explicit flag columns select the distribution, family or solver. Every
// set tunable cell is applied through the estimator's SetParams. The train
// frame is materialised, the validation frame too when its dataset is
// available, and a GLM case with betaConstraints gets a bounds frame. On
// error every frame this call created is released and no resolution is
// returned.
func (r *Resolver) Resolve(tc *TestCase) (*Resolution, error) {
	if tc.Train == nil {
		return nil, errors.Newf("testcase %s has no train dataset", tc.ID)
	}
	schema, _ := SchemaFor(tc.Algorithm)
	cfg, ok := newConfig(tc.Algorithm)
	if !ok {
		return nil, errors.Newf("testcase %s: unknown algorithm %q", tc.ID, tc.Algorithm)
	}
	logger := r.logger().With(log.TestcaseIDKey, tc.ID, log.AlgorithmKey, tc.Algorithm.String())

	if err := r.applyFlags(cfg, schema, tc.Raw, logger); err != nil {
		return nil, errors.Wrapf(err, "testcase %s", tc.ID)
	}

	tuned, err := autoSet(cfg, schema, tc.Raw)
	if err != nil {
		return nil, errors.Wrapf(err, "testcase %s", tc.ID)
	}

	res := &Resolution{Config: cfg, Tuned: tuned, store: r.Store}
	if err := r.attachFrames(res, tc, logger); err != nil {
		res.discard()
		return nil, errors.Wrapf(err, "testcase %s", tc.ID)
	}
	logger.Debug("testcase resolved", "tuned_or_defaults", res.TunedOrDefaults())
	return res, nil
}

// attachFrames materialises the dataset frames and the bounds frame of res.
func (r *Resolver) attachFrames(res *Resolution, tc *TestCase, logger log.Logger) error {
	common := Common{ResponseColumn: tc.Train.ResponseColumn}
	train, err := res.load(tc.Train)
	if err != nil {
		return errors.Wrap(err, "train frame")
	}
	common.Train = train.Key()

	if tc.Validate != nil && tc.Validate.Available() {
		valid, err := res.load(tc.Validate)
		if err != nil {
			return errors.Wrap(err, "validation frame")
		}
		common.Valid = valid.Key()
	}

	switch c := res.Config.(type) {
	case *DRFConfig:
		c.Common = common
	case *GBMConfig:
		c.Common = common
	case *GLMConfig:
		c.Common = common
		on, _ := parseBool(tc.Raw.Get(ColBetaConstraints))
		if on {
			lo := bound(tc.Raw, ColLowerBound, math.Inf(-1))
			hi := bound(tc.Raw, ColUpperBound, math.Inf(1))
			bounds, err := BuildBetaConstraints(train, common.ResponseColumn, lo, hi)
			if err != nil {
				return errors.Wrap(err, "beta constraints")
			}
			r.Store.Put(bounds)
			res.boundsKey = bounds.Key()
			c.BetaConstraints = bounds.Key()
			logger.Info("beta constraints attached", "rows", bounds.NumRows(),
				ColLowerBound, lo, ColUpperBound, hi)
		}
	}
	return nil
}

func (r *Resolver) logger() log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.GetLoggerWithName("testng.resolver")
}

// applyFlags sets distribution, family and solver from the flag columns.
func (r *Resolver) applyFlags(cfg AlgorithmConfig, schema Schema, raw RawInput, logger log.Logger) error {
	selected := func(group string) (string, error) {
		g, ok := schema.Group(group)
		if !ok {
			return "", nil
		}
		return g.Selected(raw)
	}

	switch c := cfg.(type) {
	case *DRFConfig:
		v, err := selected(groupDistribution)
		if err != nil || v == "" {
			return err
		}
		if c.Distribution, err = distribution.ParseFamily(v); err != nil {
			return err
		}
		logger.Info("distribution set from table", "distribution", c.Distribution.String())
	case *GBMConfig:
		v, err := selected(groupDistribution)
		if err != nil || v == "" {
			return err
		}
		if c.Distribution, err = distribution.ParseFamily(v); err != nil {
			return err
		}
		logger.Info("distribution set from table", "distribution", c.Distribution.String())
	case *GLMConfig:
		v, err := selected(groupFamily)
		if err != nil {
			return err
		}
		if v != "" {
			if c.Family, err = distribution.ParseFamily(v); err != nil {
				return err
			}
			logger.Info("family set from table", "family", c.Family.String())
		}
		v, err = selected(groupSolver)
		if err != nil {
			return err
		}
		if v != "" {
			if c.Solver, err = linear_model.ParseSolver(v); err != nil {
				return err
			}
			logger.Info("solver set from table", "solver", c.Solver.String())
		}
	}
	return nil
}

// autoSet applies every set tunable cell and reports whether any was set.
func autoSet(cfg AlgorithmConfig, schema Schema, raw RawInput) (bool, error) {
	values := make(map[string]interface{})
	for _, p := range schema.Params {
		if !p.Tunable || !raw.IsSet(p.Name) {
			continue
		}
		v, err := p.Parse(raw.Get(p.Name))
		if err != nil {
			return false, err
		}
		values[p.Name] = v
	}
	if len(values) == 0 {
		return false, nil
	}
	params := cfg.tunables()
	if err := params.SetParams(values); err != nil {
		return false, err
	}
	if err := params.Validate(); err != nil {
		return false, err
	}
	return true, nil
}

// bound parses a bound cell. Empty or unparsable cells give def.
func bound(raw RawInput, column string, def float64) float64 {
	if !raw.IsSet(column) {
		return def
	}
	v, err := strconv.ParseFloat(raw.Get(column), 64)
	if err != nil {
		return def
	}
	return v
}

// BuildBetaConstraints builds the bounds frame of a training frame: one row
// per predictor column in frame order, with categorical columns expanded to
// one COL.LEVEL row per level. Every row carries lower and upper.
func BuildBetaConstraints(train *frame.Frame, response string, lower, upper float64) (*frame.Frame, error) {
	var names []string
	for _, c := range train.Columns() {
		if c.Name == response {
			continue
		}
		if c.IsCategorical() {
			for _, level := range c.Domain {
				names = append(names, frame.CoefficientName(c.Name, level))
			}
			continue
		}
		names = append(names, c.Name)
	}
	if len(names) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "training frame has no predictor columns")
	}

	lo := make([]float64, len(names))
	hi := make([]float64, len(names))
	for i := range names {
		lo[i], hi[i] = lower, upper
	}
	return frame.New(frame.NewKey("beta_constraints"),
		frame.NewCategoricalColumn(BoundsNames, names),
		frame.NewNumericColumn(BoundsLower, lo),
		frame.NewNumericColumn(BoundsUpper, hi),
	)
}

// BoundsFromFrame reads a beta constraints frame into GLM bounds.
func BoundsFromFrame(fr *frame.Frame) (linear_model.Bounds, error) {
	names, ok := fr.Column(BoundsNames)
	if !ok || !names.IsCategorical() {
		return nil, errors.Newf("frame %s has no %s column", fr.Key(), BoundsNames)
	}
	lo, okLo := fr.Column(BoundsLower)
	hi, okHi := fr.Column(BoundsUpper)
	if !okLo || !okHi {
		return nil, errors.Newf("frame %s needs %s and %s columns", fr.Key(), BoundsLower, BoundsUpper)
	}
	bounds := make(linear_model.Bounds, fr.NumRows())
	for i := 0; i < fr.NumRows(); i++ {
		bounds[names.Label(i)] = [2]float64{lo.Float(i), hi.Float(i)}
	}
	return bounds, nil
}
