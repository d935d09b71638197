package calib

import (
	"github.com/pkg/errors"

	"github.com/structrel/calfactor/internal/table"
)

// DesignCheck is the outcome of a forward design verification. A failing
// design is a reportable result, not an error.
type DesignCheck struct {
	// DesignZ is the governing design parameter: the maximum of the
	// per-case values, since one design must satisfy every case.
	DesignZ float64
	// CaseZ holds the per-case design parameter values, in case order.
	CaseZ []float64
	// Cases holds the load case names, aligned with CaseZ and Betas.
	Cases []string
	// Betas holds the reliability achieved by the design per case.
	Betas []float64
	// TargetBeta is the calibration target the betas are checked against.
	TargetBeta float64
	// Passed reports whether every case reaches the target.
	Passed bool
	// Failing lists the cases with β below the target.
	Failing []string
}

// factoredNominals builds the per-case design values: nominal values scaled
// by φ for resistance variables and by γ·ψ for load variables.
func (c *Calibration) factoredNominals() (*table.Table, error) {
	if c.phi == nil || c.gamma == nil || c.psi == nil {
		return nil, errors.Wrap(ErrFactorsNotReady, "run the calibration or inject factor tables first")
	}
	cases := c.lc.CaseNames()
	t := table.New(cases, c.lc.VariableNames())
	for _, cs := range cases {
		for _, v := range c.lc.ResistanceNames() {
			t.Set(cs, v, c.cfg.Nominal[v]*c.phi.At(cs, v))
		}
		for _, v := range c.lc.LoadNames() {
			t.Set(cs, v, c.cfg.Nominal[v]*c.gamma.At(cs, v)*c.psi.At(cs, v))
		}
	}
	return t, nil
}

// GetDesignParamFactor solves the code equation for the design parameter of
// every load case using the current factor tables and the nominal values.
// The design must use the maximum over cases.
func (c *Calibration) GetDesignParamFactor() ([]float64, error) {
	factored, err := c.factoredNominals()
	if err != nil {
		return nil, err
	}
	cases := c.lc.CaseNames()
	out := make([]float64, len(cases))
	for i, cs := range cases {
		out[i] = c.designParamFromPoint(factored.RowMap(cs))
	}
	return out, nil
}

// CalcBetaDesignParam runs a forward FORM analysis of every load case with
// the design parameter fixed at z and returns the achieved reliabilities in
// case order.
func (c *Calibration) CalcBetaDesignParam(z float64) ([]float64, error) {
	cases := c.lc.CaseNames()
	betas := make([]float64, len(cases))
	for i, cs := range cases {
		res, err := c.lc.RunReliabilityCase(cs, z)
		if err != nil {
			return nil, errors.Wrapf(err, "design check of case %q", cs)
		}
		betas[i] = res.Beta
		c.log.WithField("case", cs).Debugf("design beta=%.4f at z=%.6f", res.Beta, z)
	}
	return betas, nil
}

// CheckDesign builds the design from the current factor tables and verifies
// it against the target reliability for every load case.
func (c *Calibration) CheckDesign() (*DesignCheck, error) {
	caseZ, err := c.GetDesignParamFactor()
	if err != nil {
		return nil, err
	}
	z := caseZ[0]
	for _, v := range caseZ[1:] {
		if v > z {
			z = v
		}
	}
	betas, err := c.CalcBetaDesignParam(z)
	if err != nil {
		return nil, err
	}

	check := &DesignCheck{
		DesignZ:    z,
		CaseZ:      caseZ,
		Cases:      c.lc.CaseNames(),
		Betas:      betas,
		TargetBeta: c.cfg.TargetBeta,
		Passed:     true,
	}
	tol := c.betaTol()
	for i, b := range betas {
		if b < c.cfg.TargetBeta-tol {
			check.Passed = false
			check.Failing = append(check.Failing, check.Cases[i])
		}
	}
	return check, nil
}
