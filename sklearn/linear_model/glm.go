package linear_model

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/YuminosukeSato/scigo-testng/core/model"
	"github.com/YuminosukeSato/scigo-testng/distribution"
	"github.com/YuminosukeSato/scigo-testng/pkg/errors"
	"github.com/YuminosukeSato/scigo-testng/pkg/log"
	"github.com/YuminosukeSato/scigo-testng/preprocessing"
)

// InterceptName is the key of the intercept in Coefficients.
const InterceptName = "Intercept"

// l1Smoothing approximates |b| by sqrt(b²+ε) for the L-BFGS solver.
const l1Smoothing = 1e-8

// GLM is a generalized linear model fitted by penalised maximum likelihood.
// The link is canonical for the family: identity for Gaussian, logit for
// Bernoulli and log for Poisson, Gamma and Tweedie.
//
// The objective is
//
//	(1/n) Σ loss(η_i, y_i) + λ(1-α)/2 ‖β‖² + λα ‖β‖₁
//
// with the intercept left unpenalised.
type GLM struct {
	state *model.StateManager

	Params GLMParams
	Family distribution.Family
	Solver Solver

	// FeatureNames name the design columns. Bounds and Coefficients use them.
	FeatureNames []string
	Bounds       Bounds

	objective distribution.Objective
	coef      []float64
	intercept float64
	nIter     int
}

// NewGLM creates a GLM for a resolved family.
func NewGLM(params GLMParams, family distribution.Family, solver Solver) *GLM {
	return &GLM{
		state:  model.NewStateManager(),
		Params: params,
		Family: family,
		Solver: solver,
	}
}

// Fit implements model.Fitter.
func (g *GLM) Fit(X, y mat.Matrix) error {
	return g.FitContext(context.Background(), X, y)
}

// FitContext fits the coefficients, checking ctx between iterations.
func (g *GLM) FitContext(ctx context.Context, X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "GLM.Fit")

	if err := g.Params.Validate(); err != nil {
		return err
	}
	switch g.Family {
	case distribution.Gaussian, distribution.Bernoulli, distribution.Poisson, distribution.Gamma, distribution.Tweedie:
	case distribution.Multinomial:
		return errors.NewNotImplementedError("", "GLM does not support the multinomial family")
	default:
		return errors.NewValueError("GLM.Fit", fmt.Sprintf("family %s must be resolved before fitting", g.Family))
	}

	n, p := X.Dims()
	if n == 0 || p == 0 {
		return errors.NewModelError("GLM.Fit", "empty data", errors.ErrEmptyData)
	}
	if yr, _ := y.Dims(); yr != n {
		return errors.NewDimensionError("GLM.Fit", n, yr, 0)
	}
	targets := mat.Col(nil, 0, y)

	obj, err := distribution.NewObjective(g.Family, g.Params.TweedieVariancePower)
	if err != nil {
		return err
	}
	if err := obj.Validate(targets); err != nil {
		return err
	}
	g.objective = obj

	lo, hi, err := g.boxes(p)
	if err != nil {
		return err
	}
	if g.Solver == LBFGS && len(g.Bounds) > 0 {
		return errors.NewNotImplementedError("", "L_BFGS solver does not support beta constraints")
	}

	var design mat.Matrix = X
	var scaler *preprocessing.StandardScaler
	if g.Params.Standardize {
		scaler = preprocessing.NewStandardScaler(true, true)
		if design, err = scaler.FitTransform(X); err != nil {
			return err
		}
		// β' = β σ なので箱も同じ倍率で広がる
		for j := 0; j < p; j++ {
			lo[j] *= scaler.Scale[j]
			hi[j] *= scaler.Scale[j]
		}
	}

	f := newFitState(design, targets, obj, g.Params, lo, hi)
	switch g.Solver {
	case IRLSM, CoordinateDescent:
		err = f.newton(ctx, g.Solver == CoordinateDescent)
	case LBFGS:
		err = f.lbfgs()
	default:
		err = errors.NewValueError("GLM.Fit", fmt.Sprintf("unknown solver %s", g.Solver))
	}
	if err != nil {
		return err
	}

	g.coef, g.intercept = f.beta, f.b0
	if scaler != nil {
		g.coef, g.intercept = scaler.Unscale(f.beta, f.b0)
	}
	g.nIter = f.iterations

	g.state.SetDimensions(p, n)
	g.state.SetFitted()
	log.GetLoggerWithName("glm").Debug("glm fitted",
		log.ModelNameKey, "GLM",
		log.SamplesKey, n,
		log.FeaturesKey, p,
		log.DistributionKey, g.Family.String(),
		"solver", g.Solver.String(),
		log.IterationKey, g.nIter,
	)
	return nil
}

// boxes returns per-column lower and upper bounds. Columns without an entry
// in Bounds are unbounded.
func (g *GLM) boxes(p int) ([]float64, []float64, error) {
	lo := make([]float64, p)
	hi := make([]float64, p)
	for j := range lo {
		lo[j], hi[j] = math.Inf(-1), math.Inf(1)
	}
	if len(g.Bounds) == 0 {
		return lo, hi, nil
	}
	if len(g.FeatureNames) != p {
		return nil, nil, errors.NewDimensionError("GLM.Bounds", p, len(g.FeatureNames), 1)
	}
	index := make(map[string]int, p)
	for j, name := range g.FeatureNames {
		index[name] = j
	}
	for name, b := range g.Bounds {
		j, ok := index[name]
		if !ok {
			return nil, nil, errors.NewValueError("GLM.Bounds", fmt.Sprintf("unknown coefficient %q", name))
		}
		if b[0] > b[1] {
			return nil, nil, errors.NewValidationError(name, "lower bound exceeds upper bound", b)
		}
		lo[j], hi[j] = b[0], b[1]
	}
	return lo, hi, nil
}

// fitState holds the working design and coefficients on the fitting scale.
type fitState struct {
	cols    [][]float64 // column-major design
	y       []float64
	obj     distribution.Objective
	params  GLMParams
	lo, hi  []float64
	l1, l2  float64
	beta    []float64
	b0      float64
	eta     []float64
	grad    []float64
	hess    []float64
	n, p    int

	iterations int
}

func newFitState(X mat.Matrix, y []float64, obj distribution.Objective, params GLMParams, lo, hi []float64) *fitState {
	n, p := X.Dims()
	f := &fitState{
		cols:   make([][]float64, p),
		y:      y,
		obj:    obj,
		params: params,
		lo:     lo,
		hi:     hi,
		l1:     params.Lambda * params.Alpha,
		l2:     params.Lambda * (1 - params.Alpha),
		beta:   make([]float64, p),
		eta:    make([]float64, n),
		grad:   make([]float64, n),
		hess:   make([]float64, n),
		n:      n,
		p:      p,
	}
	for j := range f.cols {
		f.cols[j] = mat.Col(nil, j, X)
		f.beta[j] = clip(0, lo[j], hi[j])
	}
	if params.Intercept {
		f.b0 = obj.GetInitScore(y)
	}
	return f
}

func (f *fitState) linearPredictor(beta []float64, b0 float64, out []float64) {
	for i := range out {
		out[i] = b0
	}
	for j, col := range f.cols {
		if beta[j] == 0 {
			continue
		}
		for i, v := range col {
			out[i] += beta[j] * v
		}
	}
}

// penalised returns the objective at (beta, b0).
func (f *fitState) penalised(beta []float64, b0 float64, eta []float64) float64 {
	f.linearPredictor(beta, b0, eta)
	loss := 0.0
	for i, e := range eta {
		loss += f.obj.CalculateLoss(e, f.y[i])
	}
	loss /= float64(f.n)
	for _, b := range beta {
		loss += f.l2/2*b*b + f.l1*math.Abs(b)
	}
	return loss
}

// newton runs IRLS: each iteration solves a penalised weighted least squares
// problem built from the gradient and hessian of the loss on the link scale.
// A step that increases the objective is halved up to ten times.
func (f *fitState) newton(ctx context.Context, coordinate bool) error {
	trial := make([]float64, f.n)
	current := f.penalised(f.beta, f.b0, f.eta)

	for iter := 1; iter <= f.params.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "glm interrupted")
		}
		f.iterations = iter

		// 作業応答 z = η - g/h と重み w = h/n
		w := make([]float64, f.n)
		z := make([]float64, f.n)
		for i, e := range f.eta {
			g := f.obj.CalculateGradient(e, f.y[i])
			h := math.Max(f.obj.CalculateHessian(e, f.y[i]), 1e-10)
			w[i] = h / float64(f.n)
			z[i] = e - g/h
		}

		beta := append([]float64(nil), f.beta...)
		b0 := f.b0
		var err error
		if coordinate || f.l1 > 0 {
			f.coordinateDescent(w, z, beta, &b0)
		} else {
			err = f.ridgeSolve(w, z, beta, &b0)
		}
		if err != nil {
			return err
		}

		// ステップ半減
		step := 1.0
		next := f.penalised(beta, b0, trial)
		for k := 0; k < 10 && next > current+1e-12; k++ {
			step /= 2
			for j := range beta {
				beta[j] = f.beta[j] + step*(beta[j]-f.beta[j])
			}
			b0 = f.b0 + step*(b0-f.b0)
			next = f.penalised(beta, b0, trial)
		}

		delta := math.Abs(b0 - f.b0)
		for j := range beta {
			delta = math.Max(delta, math.Abs(beta[j]-f.beta[j]))
		}
		f.beta, f.b0 = beta, b0
		f.eta, trial = trial, f.eta
		current = next

		if delta < f.params.BetaEpsilon {
			return nil
		}
	}

	errors.Warn(errors.NewConvergenceWarning("GLM", f.params.MaxIterations,
		"coefficient change did not fall below beta_epsilon"))
	return nil
}

// ridgeSolve solves the weighted ridge normal equations directly and clips
// the solution into the bounds.
func (f *fitState) ridgeSolve(w, z, beta []float64, b0 *float64) error {
	offset := 0
	if f.params.Intercept {
		offset = 1
	}
	k := f.p + offset
	column := func(j int) []float64 {
		if j < offset {
			return nil
		}
		return f.cols[j-offset]
	}
	at := func(col []float64, i int) float64 {
		if col == nil {
			return 1
		}
		return col[i]
	}

	A := mat.NewSymDense(k, nil)
	b := mat.NewVecDense(k, nil)
	for a := 0; a < k; a++ {
		ca := column(a)
		rhs := 0.0
		for i := 0; i < f.n; i++ {
			rhs += w[i] * at(ca, i) * z[i]
		}
		b.SetVec(a, rhs)
		for c := a; c < k; c++ {
			cc := column(c)
			s := 0.0
			for i := 0; i < f.n; i++ {
				s += w[i] * at(ca, i) * at(cc, i)
			}
			if a == c && a >= offset {
				s += f.l2 + 1e-8
			}
			A.SetSym(a, c, s)
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(A); !ok {
		return errors.NewModelError("GLM.IRLSM", "normal equations are not positive definite", errors.ErrSingularMatrix)
	}
	var sol mat.VecDense
	if err := chol.SolveVecTo(&sol, b); err != nil {
		return errors.NewModelError("GLM.IRLSM", "solve failed", err)
	}
	if offset == 1 {
		*b0 = sol.AtVec(0)
	}
	for j := range beta {
		beta[j] = clip(sol.AtVec(j+offset), f.lo[j], f.hi[j])
	}
	return nil
}

// coordinateDescent minimises the penalised weighted least squares problem
// by cyclic soft-thresholding with box projection.
func (f *fitState) coordinateDescent(w, z, beta []float64, b0 *float64) {
	r := make([]float64, f.n)
	f.linearPredictor(beta, *b0, r)
	sumW := 0.0
	for i := range r {
		r[i] = z[i] - r[i]
		sumW += w[i]
	}
	a := make([]float64, f.p)
	for j, col := range f.cols {
		for i, v := range col {
			a[j] += w[i] * v * v
		}
	}

	for sweep := 0; sweep < 200; sweep++ {
		maxChange := 0.0
		if f.params.Intercept && sumW > 0 {
			s := 0.0
			for i := range r {
				s += w[i] * r[i]
			}
			d := s / sumW
			*b0 += d
			for i := range r {
				r[i] -= d
			}
			maxChange = math.Abs(d)
		}
		for j, col := range f.cols {
			denom := a[j] + f.l2
			if denom == 0 {
				continue
			}
			rho := a[j] * beta[j]
			for i, v := range col {
				rho += w[i] * v * r[i]
			}
			updated := clip(softThreshold(rho, f.l1)/denom, f.lo[j], f.hi[j])
			if d := updated - beta[j]; d != 0 {
				for i, v := range col {
					r[i] -= d * v
				}
				maxChange = math.Max(maxChange, math.Abs(d))
				beta[j] = updated
			}
		}
		if maxChange < 1e-9 {
			return
		}
	}
}

// lbfgs minimises the objective with gonum's L-BFGS. The L1 term is
// smoothed so the objective stays differentiable.
func (f *fitState) lbfgs() error {
	offset := 0
	if f.params.Intercept {
		offset = 1
	}
	eta := make([]float64, f.n)
	split := func(x []float64) ([]float64, float64) {
		if offset == 1 {
			return x[1:], x[0]
		}
		return x, 0
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			beta, b0 := split(x)
			f.linearPredictor(beta, b0, eta)
			loss := 0.0
			for i, e := range eta {
				loss += f.obj.CalculateLoss(e, f.y[i])
			}
			loss /= float64(f.n)
			for _, b := range beta {
				loss += f.l2/2*b*b + f.l1*math.Sqrt(b*b+l1Smoothing)
			}
			return loss
		},
		Grad: func(grad, x []float64) {
			beta, b0 := split(x)
			f.linearPredictor(beta, b0, eta)
			for i := range grad {
				grad[i] = 0
			}
			for i, e := range eta {
				g := f.obj.CalculateGradient(e, f.y[i]) / float64(f.n)
				if offset == 1 {
					grad[0] += g
				}
				for j, col := range f.cols {
					grad[j+offset] += g * col[i]
				}
			}
			for j, b := range beta {
				grad[j+offset] += f.l2*b + f.l1*b/math.Sqrt(b*b+l1Smoothing)
			}
		},
	}

	init := make([]float64, f.p+offset)
	if offset == 1 {
		init[0] = f.b0
	}
	settings := &optimize.Settings{
		MajorIterations:   f.params.MaxIterations,
		GradientThreshold: math.Max(f.params.BetaEpsilon*1e-2, 1e-10),
	}
	result, err := optimize.Minimize(problem, init, settings, &optimize.LBFGS{})
	if result == nil {
		return errors.NewModelError("GLM.L_BFGS", "optimization failed", err)
	}
	if err != nil || result.Status == optimize.IterationLimit {
		errors.Warn(errors.NewConvergenceWarning("GLM", result.MajorIterations, fmt.Sprintf("L-BFGS stopped with status %v", result.Status)))
	}

	beta, b0 := split(result.X)
	f.beta = append([]float64(nil), beta...)
	f.b0 = b0
	f.iterations = result.MajorIterations
	return nil
}

// LinearPredictor returns η = Xβ + b for each row.
func (g *GLM) LinearPredictor(X mat.Matrix) (*mat.VecDense, error) {
	if err := g.state.RequireFitted(); err != nil {
		return nil, errors.NewNotFittedError("GLM", "Predict")
	}
	n, p := X.Dims()
	if nf, _ := g.state.GetDimensions(); p != nf {
		return nil, errors.NewDimensionError("GLM.Predict", nf, p, 1)
	}
	eta := mat.NewVecDense(n, nil)
	eta.MulVec(X, mat.NewVecDense(p, g.coef))
	for i := 0; i < n; i++ {
		eta.SetVec(i, eta.AtVec(i)+g.intercept)
	}
	return eta, nil
}

// PredictProba returns [1-p, p] for the binomial family.
func (g *GLM) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if g.Family != distribution.Bernoulli {
		return nil, errors.NewValueError("GLM.PredictProba", "only the binomial family has class probabilities")
	}
	eta, err := g.LinearPredictor(X)
	if err != nil {
		return nil, err
	}
	n := eta.Len()
	out := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		p1 := distribution.Sigmoid(eta.AtVec(i))
		out.Set(i, 0, 1-p1)
		out.Set(i, 1, p1)
	}
	return out, nil
}

// Predict returns class codes for the binomial family and the response-scale
// mean otherwise.
func (g *GLM) Predict(X mat.Matrix) (mat.Matrix, error) {
	eta, err := g.LinearPredictor(X)
	if err != nil {
		return nil, err
	}
	n := eta.Len()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		mu := g.objective.Inverse(eta.AtVec(i))
		if g.Family == distribution.Bernoulli {
			if mu >= 0.5 {
				mu = 1
			} else {
				mu = 0
			}
		}
		out.Set(i, 0, mu)
	}
	return out, nil
}

// NClasses returns 2 for the binomial family and 1 otherwise.
func (g *GLM) NClasses() int {
	if g.Family == distribution.Bernoulli {
		return 2
	}
	return 1
}

// Coef returns the coefficients on the original scale.
func (g *GLM) Coef() []float64 { return append([]float64(nil), g.coef...) }

// Intercept returns the fitted intercept (0 when Params.Intercept is false).
func (g *GLM) Intercept() float64 { return g.intercept }

// NIter returns the number of solver iterations used by the last fit.
func (g *GLM) NIter() int { return g.nIter }

// Coefficients returns the coefficients keyed by feature name plus
// InterceptName. Unnamed columns are called x0, x1, ...
func (g *GLM) Coefficients() map[string]float64 {
	if !g.state.IsFitted() {
		return nil
	}
	out := make(map[string]float64, len(g.coef)+1)
	for j, c := range g.coef {
		name := fmt.Sprintf("x%d", j)
		if j < len(g.FeatureNames) {
			name = g.FeatureNames[j]
		}
		out[name] = c
	}
	out[InterceptName] = g.intercept
	return out
}

// GetParams implements model.ParameterGetter.
func (g *GLM) GetParams() map[string]interface{} { return g.Params.GetParams() }

// SetParams implements model.ParameterSetter.
func (g *GLM) SetParams(params map[string]interface{}) error {
	return g.Params.SetParams(params)
}

func clip(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func softThreshold(z, gamma float64) float64 {
	switch {
	case z > gamma:
		return z - gamma
	case z < -gamma:
		return z + gamma
	}
	return 0
}

var (
	_ model.ProbabilisticClassifier = (*GLM)(nil)
	_ model.ContextFitter           = (*GLM)(nil)
)
