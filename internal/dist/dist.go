// Package dist provides the random variables used in reliability analyses:
// probability distributions identified by name, plus degenerate constants.
//
// Distributions are parameterized by their first two moments (mean and
// standard deviation of the underlying variable), which is how structural
// reliability models are normally stated. The heavy lifting is delegated to
// gonum's distuv.
package dist

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// euler is the Euler–Mascheroni constant, used in the Gumbel moment fit.
const euler = 0.5772156649015329

// Distribution is a named random variable with deterministic CDF and
// inverse-CDF operations. Implementations are immutable value types.
type Distribution interface {
	Name() string
	CDF(x float64) float64
	Ppf(p float64) float64
	Mean() float64
	StdDev() float64
}

// Normal is a normally distributed random variable.
type Normal struct {
	name string
	d    distuv.Normal
}

// NewNormal returns a normal variable with the given mean and standard
// deviation.
func NewNormal(name string, mean, stdev float64) Normal {
	return Normal{name: name, d: distuv.Normal{Mu: mean, Sigma: stdev}}
}

func (n Normal) Name() string          { return n.name }
func (n Normal) CDF(x float64) float64 { return n.d.CDF(x) }
func (n Normal) Ppf(p float64) float64 { return n.d.Quantile(clampProb(p)) }
func (n Normal) Mean() float64         { return n.d.Mean() }
func (n Normal) StdDev() float64       { return n.d.StdDev() }

// Lognormal is a lognormally distributed random variable, parameterized by
// the mean and standard deviation of the variable itself (not of its log).
type Lognormal struct {
	name string
	d    distuv.LogNormal
}

// NewLognormal returns a lognormal variable with the given mean and standard
// deviation of the underlying (non-log) variable.
func NewLognormal(name string, mean, stdev float64) Lognormal {
	cov := stdev / mean
	zeta := math.Sqrt(math.Log(1 + cov*cov))
	lambda := math.Log(mean) - 0.5*zeta*zeta
	return Lognormal{name: name, d: distuv.LogNormal{Mu: lambda, Sigma: zeta}}
}

func (l Lognormal) Name() string          { return l.name }
func (l Lognormal) CDF(x float64) float64 { return l.d.CDF(x) }
func (l Lognormal) Ppf(p float64) float64 { return l.d.Quantile(clampProb(p)) }
func (l Lognormal) Mean() float64         { return l.d.Mean() }
func (l Lognormal) StdDev() float64       { return l.d.StdDev() }

// Gumbel is a type I extreme-value (maximum) random variable, the usual model
// for annual-maximum loads.
type Gumbel struct {
	name string
	d    distuv.GumbelRight
}

// NewGumbel returns a Gumbel (max) variable fitted to the given mean and
// standard deviation.
func NewGumbel(name string, mean, stdev float64) Gumbel {
	beta := stdev * math.Sqrt(6) / math.Pi
	mu := mean - euler*beta
	return Gumbel{name: name, d: distuv.GumbelRight{Mu: mu, Beta: beta}}
}

func (g Gumbel) Name() string          { return g.name }
func (g Gumbel) CDF(x float64) float64 { return g.d.CDF(x) }
func (g Gumbel) Ppf(p float64) float64 { return g.d.Quantile(clampProb(p)) }
func (g Gumbel) Mean() float64         { return g.d.Mean() }
func (g Gumbel) StdDev() float64       { return g.d.StdDev() }

// Constant is a degenerate random variable with zero dispersion. It is used
// for fixed load coefficients and for the design parameter, whose value is
// swapped out between reliability runs by constructing a new Constant.
type Constant struct {
	name  string
	value float64
}

// NewConstant returns a constant named variable.
func NewConstant(name string, value float64) Constant {
	return Constant{name: name, value: value}
}

func (c Constant) Name() string    { return c.name }
func (c Constant) Value() float64  { return c.value }
func (c Constant) Mean() float64   { return c.value }
func (c Constant) StdDev() float64 { return 0 }

// CDF is a unit step at the constant's value.
func (c Constant) CDF(x float64) float64 {
	if x < c.value {
		return 0
	}
	return 1
}

// Ppf returns the constant's value for any probability.
func (c Constant) Ppf(p float64) float64 { return c.value }

// New constructs a distribution by family name. Family is one of
// "normal", "lognormal", "gumbel", or "constant" (stdev ignored).
func New(family, name string, mean, stdev float64) (Distribution, error) {
	switch family {
	case "normal":
		return NewNormal(name, mean, stdev), nil
	case "lognormal":
		return NewLognormal(name, mean, stdev), nil
	case "gumbel":
		return NewGumbel(name, mean, stdev), nil
	case "constant":
		return NewConstant(name, mean), nil
	default:
		return nil, fmt.Errorf("unknown distribution family %q for variable %q", family, name)
	}
}

// clampProb keeps quantile arguments strictly inside (0, 1) so that extreme
// standard-normal mappings do not produce infinities.
func clampProb(p float64) float64 {
	const eps = 1e-15
	if p < eps {
		return eps
	}
	if p > 1-eps {
		return 1 - eps
	}
	return p
}
