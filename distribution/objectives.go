package distribution

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/scigo-testng/pkg/errors"
)

// maxOutputExp bounds exp(score) to prevent overflow.
const maxOutputExp = 700.0

// Objective is the per-sample loss of a single-output family. Scores live on
// the link scale; Inverse maps them back to the response scale.
type Objective interface {
	// CalculateGradient calculates the gradient for a single sample
	CalculateGradient(prediction, target float64) float64

	// CalculateHessian calculates the hessian for a single sample
	CalculateHessian(prediction, target float64) float64

	// CalculateLoss calculates the loss for a single sample
	CalculateLoss(prediction, target float64) float64

	// GetInitScore returns the initial link-scale score
	GetInitScore(targets []float64) float64

	// Inverse maps a link-scale score to the mean of the response
	Inverse(score float64) float64

	// Validate rejects responses outside the family's support
	Validate(targets []float64) error

	Family() Family
}

// NewObjective returns the objective of a resolved single-output family.
// Multinomial uses MulticlassLogLoss instead.
func NewObjective(f Family, tweediePower float64) (Objective, error) {
	switch f {
	case Gaussian:
		return &L2Objective{}, nil
	case Bernoulli:
		return &LogLossObjective{}, nil
	case Poisson:
		return &PoissonObjective{}, nil
	case Gamma:
		return &GammaObjective{}, nil
	case Tweedie:
		if tweediePower < 1 || tweediePower > 2 {
			return nil, errors.NewValidationError("tweedie_power", "must be in [1, 2]", tweediePower)
		}
		return &TweedieObjective{Power: tweediePower}, nil
	default:
		return nil, errors.NewValueError("distribution.NewObjective",
			fmt.Sprintf("no single-output objective for %s", f))
	}
}

// L2Objective implements squared error (gaussian, identity link).
type L2Objective struct{}

func (o *L2Objective) CalculateGradient(prediction, target float64) float64 {
	return prediction - target
}

func (o *L2Objective) CalculateHessian(prediction, target float64) float64 {
	return 1.0
}

func (o *L2Objective) CalculateLoss(prediction, target float64) float64 {
	diff := prediction - target
	return 0.5 * diff * diff
}

func (o *L2Objective) GetInitScore(targets []float64) float64 {
	return mean(targets)
}

func (o *L2Objective) Inverse(score float64) float64 { return score }

func (o *L2Objective) Validate(targets []float64) error { return nil }

func (o *L2Objective) Family() Family { return Gaussian }

// LogLossObjective implements binary log loss (bernoulli, logit link).
// Targets are 0 or 1.
type LogLossObjective struct{}

func (o *LogLossObjective) CalculateGradient(prediction, target float64) float64 {
	return Sigmoid(prediction) - target
}

func (o *LogLossObjective) CalculateHessian(prediction, target float64) float64 {
	p := Sigmoid(prediction)
	return math.Max(p*(1-p), 1e-16)
}

func (o *LogLossObjective) CalculateLoss(prediction, target float64) float64 {
	p := clampProb(Sigmoid(prediction))
	return -(target*math.Log(p) + (1-target)*math.Log(1-p))
}

func (o *LogLossObjective) GetInitScore(targets []float64) float64 {
	p := clampProb(mean(targets))
	return math.Log(p / (1 - p))
}

func (o *LogLossObjective) Inverse(score float64) float64 { return Sigmoid(score) }

func (o *LogLossObjective) Validate(targets []float64) error {
	for _, t := range targets {
		if t != 0 && t != 1 {
			return errors.NewValidationError("response", "bernoulli response must be 0 or 1", t)
		}
	}
	return nil
}

func (o *LogLossObjective) Family() Family { return Bernoulli }

// PoissonObjective implements Poisson regression loss (log link).
type PoissonObjective struct{}

func (o *PoissonObjective) CalculateGradient(prediction, target float64) float64 {
	// Gradient of Poisson loss: exp(pred) - target
	return expClamp(prediction) - target
}

func (o *PoissonObjective) CalculateHessian(prediction, target float64) float64 {
	return expClamp(prediction)
}

func (o *PoissonObjective) CalculateLoss(prediction, target float64) float64 {
	return expClamp(prediction) - target*prediction
}

func (o *PoissonObjective) GetInitScore(targets []float64) float64 {
	return logMean(targets)
}

func (o *PoissonObjective) Inverse(score float64) float64 { return expClamp(score) }

func (o *PoissonObjective) Validate(targets []float64) error {
	for _, t := range targets {
		if t < 0 {
			return errors.NewValidationError("response", "poisson response must be non-negative", t)
		}
	}
	return nil
}

func (o *PoissonObjective) Family() Family { return Poisson }

// GammaObjective implements gamma deviance (log link).
type GammaObjective struct{}

func (o *GammaObjective) CalculateGradient(prediction, target float64) float64 {
	return 1 - target*expClamp(-prediction)
}

func (o *GammaObjective) CalculateHessian(prediction, target float64) float64 {
	return math.Max(target*expClamp(-prediction), 1e-16)
}

func (o *GammaObjective) CalculateLoss(prediction, target float64) float64 {
	return target*expClamp(-prediction) + prediction
}

func (o *GammaObjective) GetInitScore(targets []float64) float64 {
	return logMean(targets)
}

func (o *GammaObjective) Inverse(score float64) float64 { return expClamp(score) }

func (o *GammaObjective) Validate(targets []float64) error {
	for _, t := range targets {
		if t <= 0 {
			return errors.NewValidationError("response", "gamma response must be positive", t)
		}
	}
	return nil
}

func (o *GammaObjective) Family() Family { return Gamma }

// TweedieObjective implements Tweedie deviance with variance power in [1, 2] (log link).
type TweedieObjective struct {
	Power float64
}

func (o *TweedieObjective) CalculateGradient(prediction, target float64) float64 {
	rho := o.Power
	return -target*expClamp((1-rho)*prediction) + expClamp((2-rho)*prediction)
}

func (o *TweedieObjective) CalculateHessian(prediction, target float64) float64 {
	rho := o.Power
	h := -target*(1-rho)*expClamp((1-rho)*prediction) + (2-rho)*expClamp((2-rho)*prediction)
	return math.Max(h, 1e-16)
}

func (o *TweedieObjective) CalculateLoss(prediction, target float64) float64 {
	rho := o.Power
	a := 0.0
	if rho != 1 {
		a = target * expClamp((1-rho)*prediction) / (1 - rho)
	} else {
		a = target * prediction
	}
	b := 0.0
	if rho != 2 {
		b = expClamp((2-rho)*prediction) / (2 - rho)
	} else {
		b = prediction
	}
	return -a + b
}

func (o *TweedieObjective) GetInitScore(targets []float64) float64 {
	return logMean(targets)
}

func (o *TweedieObjective) Inverse(score float64) float64 { return expClamp(score) }

func (o *TweedieObjective) Validate(targets []float64) error {
	for _, t := range targets {
		if t < 0 {
			return errors.NewValidationError("response", "tweedie response must be non-negative", t)
		}
	}
	return nil
}

func (o *TweedieObjective) Family() Family { return Tweedie }

// MulticlassLogLoss implements multiclass cross-entropy with softmax.
type MulticlassLogLoss struct {
	NumClasses int
}

// GradientsAndHessians returns per-class gradient and diagonal hessian for
// one sample given its logits and true class.
func (m *MulticlassLogLoss) GradientsAndHessians(logits []float64, trueClass int) ([]float64, []float64) {
	probs := Softmax(logits)
	grad := make([]float64, len(logits))
	hess := make([]float64, len(logits))
	for k, p := range probs {
		if k == trueClass {
			grad[k] = p - 1.0
		} else {
			grad[k] = p
		}
		hess[k] = math.Max(p*(1.0-p), 1e-16)
	}
	return grad, hess
}

// Loss returns -log p_true for one sample.
func (m *MulticlassLogLoss) Loss(logits []float64, trueClass int) float64 {
	return -math.Log(clampProb(Softmax(logits)[trueClass]))
}

// InitScores returns the log prior of each class.
func (m *MulticlassLogLoss) InitScores(classes []int) []float64 {
	counts := make([]float64, m.NumClasses)
	for _, c := range classes {
		counts[c]++
	}
	out := make([]float64, m.NumClasses)
	for k := range counts {
		out[k] = math.Log(clampProb(counts[k] / float64(len(classes))))
	}
	return out
}

// Softmax computes softmax with numerical stability.
func Softmax(logits []float64) []float64 {
	maxLogit := logits[0]
	for _, logit := range logits[1:] {
		if logit > maxLogit {
			maxLogit = logit
		}
	}

	expSum := 0.0
	probabilities := make([]float64, len(logits))
	for i, logit := range logits {
		probabilities[i] = math.Exp(logit - maxLogit)
		expSum += probabilities[i]
	}
	for i := range probabilities {
		probabilities[i] /= expSum
	}
	return probabilities
}

// Sigmoid is the inverse logit.
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

func expClamp(x float64) float64 {
	return math.Exp(math.Min(x, maxOutputExp))
}

func clampProb(p float64) float64 {
	const eps = 1e-15
	return math.Min(math.Max(p, eps), 1-eps)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func logMean(values []float64) float64 {
	m := mean(values)
	if m <= 0 {
		return -10.0 // Avoid log(0)
	}
	return math.Log(m)
}
