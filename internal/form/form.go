// Package form implements a first-order reliability method (FORM) analysis.
//
// Given a limit-state function g over named random variables, Analyze finds
// the most-likely failure point (design point) on g = 0 in standard normal
// space using HLRF iteration, and reports the reliability index β together
// with the direction cosines α. Variables are treated as mutually
// independent; each is mapped to standard normal space through its own CDF.
package form

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/structrel/calfactor/internal/dist"
)

// LSF is a limit-state function over named values. Negative values denote
// failure. The map holds every random variable plus every constant of the
// problem, so implementations can simply index by name.
type LSF func(v map[string]float64) float64

// ErrNonConvergence is returned when the HLRF iteration does not settle
// within the iteration budget.
var ErrNonConvergence = errors.New("form analysis did not converge")

// Options control the HLRF iteration.
type Options struct {
	MaxIter int     // iteration cap, default 100
	Tol     float64 // convergence tolerance, default 1e-6
	EpsU    float64 // finite-difference step in u-space, default 1e-4
}

func (o Options) withDefaults() Options {
	if o.MaxIter == 0 {
		o.MaxIter = 100
	}
	if o.Tol == 0 {
		o.Tol = 1e-6
	}
	if o.EpsU == 0 {
		o.EpsU = 1e-4
	}
	return o
}

// Result holds the outcome of a FORM analysis. Alpha is signed so that the
// design point in standard normal space is u* = α·β.
type Result struct {
	Beta        float64
	Alpha       map[string]float64
	DesignPoint map[string]float64
	VarOrder    []string
	Iterations  int
}

// AlphaVector returns the direction cosines in variable order.
func (r *Result) AlphaVector() []float64 {
	out := make([]float64, len(r.VarOrder))
	for i, name := range r.VarOrder {
		out[i] = r.Alpha[name]
	}
	return out
}

// UToX maps a standard normal space point to physical space through the
// variables' inverse CDFs. u and vars must align.
func UToX(u []float64, vars []dist.Distribution) []float64 {
	x := make([]float64, len(u))
	for i, rv := range vars {
		x[i] = rv.Ppf(distuv.UnitNormal.CDF(u[i]))
	}
	return x
}

// Analyze runs a forward FORM analysis of the limit-state function over the
// given random variables and fixed constants.
func Analyze(g LSF, vars []dist.Distribution, consts map[string]float64, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	n := len(vars)
	if n == 0 {
		return nil, errors.New("form analysis requires at least one random variable")
	}

	evalU := func(u []float64) float64 {
		vals := make(map[string]float64, n+len(consts))
		for k, v := range consts {
			vals[k] = v
		}
		x := UToX(u, vars)
		for i, rv := range vars {
			vals[rv.Name()] = x[i]
		}
		return g(vals)
	}

	u := make([]float64, n)
	grad := make([]float64, n)
	uPlus := make([]float64, n)
	uMinus := make([]float64, n)

	// Scale for the g-residual check: the limit state at the median point.
	gScale := math.Abs(evalU(u))
	if gScale < 1 {
		gScale = 1
	}

	var gu float64
	iters := 0
	converged := false
	for iters = 1; iters <= opts.MaxIter; iters++ {
		gu = evalU(u)

		// Central-difference gradient in u-space.
		for i := 0; i < n; i++ {
			copy(uPlus, u)
			copy(uMinus, u)
			uPlus[i] += opts.EpsU
			uMinus[i] -= opts.EpsU
			grad[i] = (evalU(uPlus) - evalU(uMinus)) / (2 * opts.EpsU)
		}
		norm := math.Sqrt(floats.Dot(grad, grad))
		if norm < 1e-14 {
			return nil, errors.Wrap(ErrNonConvergence, "limit-state gradient vanished")
		}

		// HLRF update: project onto the linearized limit-state surface.
		coef := (floats.Dot(grad, u) - gu) / (norm * norm)
		step := 0.0
		for i := 0; i < n; i++ {
			ui := coef * grad[i]
			d := ui - u[i]
			step += d * d
			u[i] = ui
		}
		if math.Abs(gu)/gScale < opts.Tol && math.Sqrt(step) < math.Sqrt(opts.Tol) {
			converged = true
			break
		}
	}
	if !converged {
		return nil, errors.Wrapf(ErrNonConvergence, "after %d iterations", opts.MaxIter)
	}

	norm := math.Sqrt(floats.Dot(grad, grad))
	alpha := make(map[string]float64, n)
	order := make([]string, n)
	beta := 0.0
	for i, rv := range vars {
		a := -grad[i] / norm
		alpha[rv.Name()] = a
		order[i] = rv.Name()
		beta += a * u[i]
	}

	x := UToX(u, vars)
	xstar := make(map[string]float64, n)
	for i, rv := range vars {
		xstar[rv.Name()] = x[i]
	}

	return &Result{
		Beta:        beta,
		Alpha:       alpha,
		DesignPoint: xstar,
		VarOrder:    order,
		Iterations:  iters,
	}, nil
}
