package calib

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/structrel/calfactor/internal/table"
)

// xstNom normalizes the design point table by the nominal values and forces
// the load factors of the combination variables to be case-invariant: each
// combination variable's column takes the coefficient from the case where
// that variable governs (where ψ = 1 by definition, so the coefficient is
// γ itself).
func (c *Calibration) xstNom() *table.Table {
	cases := c.lc.CaseNames()
	vars := c.lc.VariableNames()

	t := table.New(cases, vars)
	for _, cs := range cases {
		for _, v := range vars {
			t.Set(cs, v, c.designPoints.At(cs, v)/c.cfg.Nominal[v])
		}
	}
	for _, cs := range cases {
		gov, _ := c.lc.Governing(cs)
		for _, v := range gov {
			t.SetColValue(v, t.At(cs, v))
		}
	}
	return t
}

// onesTable returns a table of ones over the given rows and columns.
func onesTable(rows, cols []string) *table.Table {
	t := table.New(rows, cols)
	for _, r := range rows {
		for _, c := range cols {
			t.Set(r, c, 1)
		}
	}
	return t
}

// estimateMatrix derives φ and γ elementwise from the normalized design
// points and recovers ψ by solving the code-equation identity across load
// cases: one equation per case, one ψ unknown per combination variable,
// with structural zeros where the variable governs the case.
func (c *Calibration) estimateMatrix() (phi, gamma, psi *table.Table, err error) {
	xn := c.xstNom()
	phi = xn.Select(c.lc.ResistanceNames())
	gamma = xn.Select(c.lc.LoadNames())

	cases := c.lc.CaseNames()
	combVars := c.lc.CombVarNames()
	psi = onesTable(cases, c.lc.LoadNames())

	n := len(cases)
	a := mat.NewDense(n, n, nil)
	b := mat.NewVecDense(n, nil)
	allGoverning := true
	for k, cs := range cases {
		gov := make(map[string]bool)
		for _, v := range mustGoverning(c.lc.Governing(cs)) {
			gov[v] = true
		}

		// Right-hand side: the design-point row with the non-governing
		// combination variables dropped. The row itself lies on the failure
		// surface, so what remains equals the ψ-weighted load sum.
		vals := make(map[string]float64)
		for _, v := range c.lc.ResistanceNames() {
			vals[v] = c.designPoints.At(cs, v)
		}
		for _, v := range c.lc.OtherNames() {
			vals[v] = c.designPoints.At(cs, v)
		}
		for _, v := range combVars {
			if gov[v] {
				vals[v] = c.designPoints.At(cs, v)
			}
		}
		vals[c.lc.DesignParam()] = c.designPoints.At(cs, c.lc.DesignParam())
		b.SetVec(k, c.lc.EvalLSF(vals))

		// Coefficients: γ_j·S_j,nom as seen through the limit-state
		// function, so any fixed load coefficients are honored. Only the
		// load variable is set; resistances are zero, so the design
		// parameter contributes nothing.
		for j, v := range combVars {
			if gov[v] {
				continue
			}
			allGoverning = false
			coeff := -c.lc.EvalLSF(map[string]float64{v: gamma.At(cs, v) * c.cfg.Nominal[v]})
			a.Set(k, j, coeff)
		}
	}

	// Every combination variable governing every case leaves no ψ to
	// estimate; the ones table is exact.
	if allGoverning {
		return phi, gamma, psi, nil
	}

	var psiVec mat.VecDense
	if serr := psiVec.SolveVec(a, b); serr != nil {
		return nil, nil, nil, errors.Wrapf(ErrSingularSystem,
			"matrix estimation over %d cases: %v (check the combination case set)", n, serr)
	}
	for _, cs := range cases {
		for j, v := range combVars {
			if c.lc.IsGoverning(cs, v) {
				continue
			}
			psi.Set(cs, v, psiVec.AtVec(j))
		}
	}
	return phi, gamma, psi, nil
}

// estimateCoeff derives all three factors by direct coefficient comparison:
// each design-point value divided by its nominal gives φ for resistance
// columns and ψ·γ for load columns; γ for a combination variable is read
// from the case it governs, and ψ is backed out everywhere else.
func (c *Calibration) estimateCoeff() (phi, gamma, psi *table.Table, err error) {
	xn := c.xstNom()
	phi = xn.Select(c.lc.ResistanceNames())
	gamma = xn.Select(c.lc.LoadNames())

	cases := c.lc.CaseNames()
	psi = onesTable(cases, c.lc.LoadNames())
	for _, cs := range cases {
		for _, v := range c.lc.CombVarNames() {
			if c.lc.IsGoverning(cs, v) {
				// ψ = 1 by definition for the governing variable.
				continue
			}
			psi.Set(cs, v, c.designPoints.At(cs, v)/(gamma.At(cs, v)*c.cfg.Nominal[v]))
		}
	}
	return phi, gamma, psi, nil
}

// applySetMax collapses the case-varying factors to their per-column maxima.
// φ collapses under both estimators; ψ collapses only under coeff (the
// matrix estimator's ψ is already case-invariant). Governing-case ψ entries
// stay exactly one so the collapse never lowers a value.
func (c *Calibration) applySetMax() {
	for _, v := range c.lc.ResistanceNames() {
		c.phi.SetColValue(v, c.phi.ColMax(v))
	}
	if c.cfg.EstMethod != EstCoeff {
		return
	}
	for _, v := range c.lc.CombVarNames() {
		max := 0.0
		found := false
		for _, cs := range c.lc.CaseNames() {
			if c.lc.IsGoverning(cs, v) {
				continue
			}
			if p := c.psi.At(cs, v); !found || p > max {
				max, found = p, true
			}
		}
		if !found {
			continue
		}
		for _, cs := range c.lc.CaseNames() {
			if c.lc.IsGoverning(cs, v) {
				continue
			}
			c.psi.Set(cs, v, max)
		}
	}
}

func mustGoverning(gov []string, err error) []string {
	if err != nil {
		panic(err)
	}
	return gov
}
