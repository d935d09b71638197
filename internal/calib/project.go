package calib

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/optimize"

	"github.com/structrel/calfactor/internal/form"
	"github.com/structrel/calfactor/internal/table"
)

// calibrate projects the design point of every load case onto the failure
// surface at the target reliability index and records the design point
// table. Cases are independent; each is calibrated on its own.
func (c *Calibration) calibrate() error {
	cases := c.lc.CaseNames()
	vars := c.lc.VariableNames()
	cols := append(append([]string(nil), vars...), c.lc.DesignParam())

	c.designPoints = table.New(cases, cols)
	c.betaCal = make([]float64, len(cases))
	c.history = make(map[string][]float64, len(cases))

	for i, cs := range cases {
		var (
			z   float64
			res *form.Result
			err error
		)
		switch c.cfg.CalibMethod {
		case CalibAlpha:
			z, res, err = c.calibrateAlpha(cs)
		default:
			z, res, err = c.calibrateOptimize(cs)
		}
		if err != nil {
			return err
		}
		for _, v := range vars {
			c.designPoints.Set(cs, v, res.DesignPoint[v])
		}
		c.designPoints.Set(cs, c.lc.DesignParam(), z)
		c.betaCal[i] = res.Beta
		c.log.WithField("case", cs).Debugf("calibrated z=%.6f beta=%.4f iterations=%d", z, res.Beta, res.Iterations)
	}
	return nil
}

// runCase runs a FORM analysis with the design parameter at z and records
// the achieved β in the case's calibration history.
func (c *Calibration) runCase(caseName string, z float64) (*form.Result, error) {
	res, err := c.lc.RunReliabilityCase(caseName, z)
	if err != nil {
		return nil, err
	}
	c.history[caseName] = append(c.history[caseName], res.Beta)
	return res, nil
}

// calibrateOptimize finds z with β(z) = β_T by minimizing the squared β
// residual as a scalar problem in z.
func (c *Calibration) calibrateOptimize(caseName string) (float64, *form.Result, error) {
	var evalErr error
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			if evalErr != nil {
				return math.Inf(1)
			}
			res, err := c.runCase(caseName, x[0])
			if err != nil {
				evalErr = err
				return math.Inf(1)
			}
			d := res.Beta - c.cfg.TargetBeta
			return d * d
		},
	}
	// Each major iteration costs one FORM run; the cap guards against a
	// limit state that is insensitive to z.
	settings := &optimize.Settings{MajorIterations: 10 * c.cfg.MaxIter}
	result, err := optimize.Minimize(problem, []float64{c.startZ()}, settings, &optimize.NelderMead{})
	if evalErr != nil {
		return 0, nil, errors.Wrapf(evalErr, "calibrating case %q", caseName)
	}
	if err != nil {
		return 0, nil, errors.Wrapf(ErrNonConvergence, "case %q: optimizer: %v", caseName, err)
	}

	z := result.X[0]
	res, err := c.runCase(caseName, z)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "calibrating case %q", caseName)
	}
	if math.Abs(res.Beta-c.cfg.TargetBeta) > c.betaTol() {
		return 0, nil, errors.Wrapf(ErrNonConvergence,
			"case %q: reached beta %.4f, target %.4f", caseName, res.Beta, c.cfg.TargetBeta)
	}
	return z, res, nil
}

// calibrateAlpha projects the current design point along the direction
// cosines to the target-β surface and back-calculates z from the projected
// point, iterating until the achieved β matches the target. Valid when the
// direction cosines are stable under the projection, i.e. the limit state
// is close to linear in standardized space.
func (c *Calibration) calibrateAlpha(caseName string) (float64, *form.Result, error) {
	vars, err := c.lc.CaseDistributions(caseName)
	if err != nil {
		return 0, nil, err
	}

	z := c.startZ()
	res, err := c.runCase(caseName, z)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "calibrating case %q", caseName)
	}

	u := make([]float64, len(vars))
	for iter := 0; math.Abs(res.Beta-c.cfg.TargetBeta) > c.cfg.TolBeta; iter++ {
		if iter >= c.cfg.MaxIter {
			return 0, nil, errors.Wrapf(ErrNonConvergence,
				"case %q: alpha projection exceeded %d iterations", caseName, c.cfg.MaxIter)
		}
		for i, rv := range vars {
			u[i] = res.Alpha[rv.Name()] * c.cfg.TargetBeta
		}
		x := form.UToX(u, vars)
		point := make(map[string]float64, len(vars))
		for i, rv := range vars {
			point[rv.Name()] = x[i]
		}
		z = c.designParamFromPoint(point)
		res, err = c.runCase(caseName, z)
		if err != nil {
			return 0, nil, errors.Wrapf(err, "calibrating case %q", caseName)
		}
	}
	return z, res, nil
}
