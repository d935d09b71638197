package calib

import (
	"errors"
	"math"
	"testing"

	"github.com/structrel/calfactor/internal/dist"
	"github.com/structrel/calfactor/internal/loadcomb"
	"github.com/structrel/calfactor/internal/table"
)

// The worked example: linear code equation z·R − (G + Q1 + Q2) with a
// lognormal resistance, a normal permanent load, and two Gumbel
// annual-max / point-in-time load pairs, calibrated to β_T = 4.3.

const targetBeta = 4.3

func linearLSF(v map[string]float64) float64 {
	return v["z"]*v["R"] - v["G"] - v["Q1"] - v["Q2"]
}

func testDefinition() loadcomb.Definition {
	return loadcomb.Definition{
		LSF: linearLSF,
		CombVars: []loadcomb.CombVariable{
			{Name: "Q1", Max: dist.NewGumbel("Q1", 1.0, 0.2), Pit: dist.NewGumbel("Q1", 0.4, 0.2)},
			{Name: "Q2", Max: dist.NewGumbel("Q2", 1.0, 0.25), Pit: dist.NewGumbel("Q2", 0.3, 0.2)},
		},
		Resistance:  []dist.Distribution{dist.NewLognormal("R", 1.0, 0.15)},
		Other:       []dist.Distribution{dist.NewNormal("G", 1.0, 0.1)},
		Constants:   []dist.Constant{dist.NewConstant("z", 1.0)},
		DesignParam: "z",
		Cases: []loadcomb.Case{
			{Name: "Q1_max", Governing: []string{"Q1"}},
			{Name: "Q2_max", Governing: []string{"Q2"}},
		},
	}
}

// Characteristic values: a lower fractile for resistance, the mean for the
// permanent load, and upper fractiles for the variable loads, chosen so the
// calibrated factors land in familiar code territory (phi near 0.85, gamma
// a few percent above one).
func testNominal() map[string]float64 {
	return map[string]float64{"R": 0.765, "G": 1.0, "Q1": 1.48, "Q2": 1.96}
}

func newEngine(t *testing.T, cm CalibMethod, em EstMethod, setMax bool) *Calibration {
	t.Helper()
	lc, err := loadcomb.New(testDefinition())
	if err != nil {
		t.Fatalf("loadcomb.New: %v", err)
	}
	cal, err := New(lc, Config{
		TargetBeta:  targetBeta,
		Nominal:     testNominal(),
		CalibMethod: cm,
		EstMethod:   em,
		SetMax:      setMax,
	})
	if err != nil {
		t.Fatalf("calib.New: %v", err)
	}
	return cal
}

func runEngine(t *testing.T, cm CalibMethod, em EstMethod, setMax bool) *Calibration {
	t.Helper()
	cal := newEngine(t, cm, em, setMax)
	if err := cal.Run(); err != nil {
		t.Fatalf("Run(%s/%s): %v", cm, em, err)
	}
	return cal
}

func TestCalibrationHitsTarget(t *testing.T) {
	for _, cm := range []CalibMethod{CalibOptimize, CalibAlpha} {
		t.Run(string(cm), func(t *testing.T) {
			cal := runEngine(t, cm, EstMatrix, false)
			for i, b := range cal.CalibratedBetas() {
				if math.Abs(b-targetBeta) > 1e-3 {
					t.Errorf("case %d: calibrated beta = %.5f, want %.2f", i, b, targetBeta)
				}
			}
		})
	}
}

// TestOptimizeAlphaAgreement: both calibration algorithms solve the same
// projection, so their design points must agree on a near-linear problem.
func TestOptimizeAlphaAgreement(t *testing.T) {
	opt := runEngine(t, CalibOptimize, EstMatrix, false)
	alp := runEngine(t, CalibAlpha, EstMatrix, false)

	do, da := opt.DesignPoints(), alp.DesignPoints()
	for _, cs := range do.Rows() {
		for _, col := range do.Cols() {
			vo, va := do.At(cs, col), da.At(cs, col)
			if math.Abs(vo-va) > 2e-2 {
				t.Errorf("%s/%s: optimize %.5f vs alpha %.5f", cs, col, vo, va)
			}
		}
	}
}

// TestDesignPointsOnFailureSurface: every calibrated row satisfies the
// limit state at zero.
func TestDesignPointsOnFailureSurface(t *testing.T) {
	cal := runEngine(t, CalibOptimize, EstMatrix, false)
	lc, _ := loadcomb.New(testDefinition())
	dp := cal.DesignPoints()
	for _, cs := range dp.Rows() {
		if g := lc.EvalLSF(dp.RowMap(cs)); math.Abs(g) > 1e-3 {
			t.Errorf("case %s: g(x*) = %g, want ≈0", cs, g)
		}
	}
}

// TestGammaEstimatorIdentity: γ does not depend on the estimation method's
// bookkeeping, so matrix and coeff must produce identical tables from the
// same design points.
func TestGammaEstimatorIdentity(t *testing.T) {
	mx := runEngine(t, CalibOptimize, EstMatrix, false)
	cf := runEngine(t, CalibOptimize, EstCoeff, false)

	gm, gc := mx.Gamma(), cf.Gamma()
	for _, cs := range gm.Rows() {
		for _, col := range gm.Cols() {
			if d := math.Abs(gm.At(cs, col) - gc.At(cs, col)); d > 1e-9 {
				t.Errorf("gamma %s/%s differs between estimators by %g", cs, col, d)
			}
		}
	}
}

// TestGoverningPsiIsOne: ψ = 1 exactly for the governing variable of its
// own case, in every estimation algorithm.
func TestGoverningPsiIsOne(t *testing.T) {
	for _, em := range []EstMethod{EstMatrix, EstCoeff} {
		t.Run(string(em), func(t *testing.T) {
			cal := runEngine(t, CalibOptimize, em, false)
			psi := cal.Psi()
			if v := psi.At("Q1_max", "Q1"); v != 1.0 {
				t.Errorf("psi(Q1_max, Q1) = %g, want exactly 1", v)
			}
			if v := psi.At("Q2_max", "Q2"); v != 1.0 {
				t.Errorf("psi(Q2_max, Q2) = %g, want exactly 1", v)
			}
			// Non-governing loads carry reduced combination factors.
			if v := psi.At("Q1_max", "Q2"); v <= 0 || v >= 1 {
				t.Errorf("psi(Q1_max, Q2) = %g, want in (0, 1)", v)
			}
		})
	}
}

// TestRoundTripDesignCheck: the design built from the estimated factors
// must reach the target reliability for every case.
func TestRoundTripDesignCheck(t *testing.T) {
	for _, em := range []EstMethod{EstMatrix, EstCoeff} {
		t.Run(string(em), func(t *testing.T) {
			cal := runEngine(t, CalibOptimize, em, false)

			caseZ, err := cal.GetDesignParamFactor()
			if err != nil {
				t.Fatalf("GetDesignParamFactor: %v", err)
			}
			// The code equation at the calibrated factors reproduces the
			// calibrated design parameter per case, up to the optimizer's
			// convergence band.
			dp := cal.DesignPoints()
			for i, cs := range dp.Rows() {
				if d := math.Abs(caseZ[i] - dp.At(cs, "z")); d > 1e-6 {
					t.Errorf("case %s: code-equation z differs from calibrated z by %g", cs, d)
				}
			}

			check, err := cal.CheckDesign()
			if err != nil {
				t.Fatalf("CheckDesign: %v", err)
			}
			if !check.Passed {
				t.Fatalf("design check failed for %v", check.Failing)
			}
			binding := false
			for _, b := range check.Betas {
				if b < targetBeta-0.02 {
					t.Errorf("design beta %.4f below target %.2f", b, targetBeta)
				}
				if math.Abs(b-targetBeta) < 0.02 {
					binding = true
				}
			}
			if !binding {
				t.Errorf("no binding case: betas %v", check.Betas)
			}
		})
	}
}

// TestSetMaxMonotonic: collapsing to the per-column maxima can only raise
// factor values.
func TestSetMaxMonotonic(t *testing.T) {
	plain := runEngine(t, CalibOptimize, EstCoeff, false)
	collapsed := runEngine(t, CalibOptimize, EstCoeff, true)

	for _, pair := range []struct {
		name          string
		before, after *table.Table
	}{
		{"phi", plain.Phi(), collapsed.Phi()},
		{"gamma", plain.Gamma(), collapsed.Gamma()},
		{"psi", plain.Psi(), collapsed.Psi()},
	} {
		for _, cs := range pair.before.Rows() {
			for _, col := range pair.before.Cols() {
				b, a := pair.before.At(cs, col), pair.after.At(cs, col)
				if a < b-1e-12 {
					t.Errorf("%s %s/%s: set_max lowered %g to %g", pair.name, cs, col, b, a)
				}
			}
		}
	}

	// φ actually collapses to a single value per column.
	phi := collapsed.Phi()
	if phi.At("Q1_max", "R") != phi.At("Q2_max", "R") {
		t.Errorf("set_max phi not case-invariant: %g vs %g",
			phi.At("Q1_max", "R"), phi.At("Q2_max", "R"))
	}
}

// TestWorkedScenario pins the two-case example to the familiar code-factor
// values: phi near 0.85 and gamma a few percent above one.
func TestWorkedScenario(t *testing.T) {
	cal := runEngine(t, CalibOptimize, EstMatrix, false)

	phi := cal.Phi()
	for _, cs := range phi.Rows() {
		if v := phi.At(cs, "R"); math.Abs(v-0.85) > 0.015 {
			t.Errorf("phi(%s) = %.4f, want 0.85 within 0.015", cs, v)
		}
	}
	gamma := cal.Gamma()
	for _, cs := range gamma.Rows() {
		if v := gamma.At(cs, "G"); math.Abs(v-1.04) > 0.02 {
			t.Errorf("gamma_G(%s) = %.4f, want 1.04 within 0.02", cs, v)
		}
		if v := gamma.At(cs, "Q1"); math.Abs(v-1.07) > 0.01 {
			t.Errorf("gamma_Q1(%s) = %.4f, want 1.07 within 0.01", cs, v)
		}
		if v := gamma.At(cs, "Q2"); math.Abs(v-1.10) > 0.01 {
			t.Errorf("gamma_Q2(%s) = %.4f, want 1.10 within 0.01", cs, v)
		}
	}

	check, err := cal.CheckDesign()
	if err != nil {
		t.Fatalf("CheckDesign: %v", err)
	}
	for i, b := range check.Betas {
		if math.Round(b*100)/100 < targetBeta {
			t.Errorf("case %s: design beta %.3f rounds below target %.2f", check.Cases[i], b, targetBeta)
		}
	}
}

func TestHistoryRecorded(t *testing.T) {
	cal := runEngine(t, CalibOptimize, EstMatrix, false)
	for _, cs := range []string{"Q1_max", "Q2_max"} {
		if len(cal.History(cs)) == 0 {
			t.Errorf("no calibration history for %s", cs)
		}
	}
}

func TestNonConvergenceInsensitiveDesignParam(t *testing.T) {
	// z never reaches the limit state, so no z can hit the target.
	lc, err := loadcomb.New(loadcomb.Definition{
		LSF: func(v map[string]float64) float64 { return v["R"] - v["G"] - v["Q1"] },
		CombVars: []loadcomb.CombVariable{
			{Name: "Q1", Max: dist.NewGumbel("Q1", 0.3, 0.1), Pit: dist.NewGumbel("Q1", 0.1, 0.05)},
		},
		Resistance:  []dist.Distribution{dist.NewLognormal("R", 1.0, 0.15)},
		Other:       []dist.Distribution{dist.NewNormal("G", 0.5, 0.05)},
		Constants:   []dist.Constant{dist.NewConstant("z", 1.0)},
		DesignParam: "z",
		Cases:       []loadcomb.Case{{Name: "Q1_max", Governing: []string{"Q1"}}},
	})
	if err != nil {
		t.Fatalf("loadcomb.New: %v", err)
	}
	cal, err := New(lc, Config{
		TargetBeta: targetBeta,
		Nominal:    map[string]float64{"R": 1, "G": 1, "Q1": 1},
	})
	if err != nil {
		t.Fatalf("calib.New: %v", err)
	}
	err = cal.Run()
	if !errors.Is(err, ErrNonConvergence) {
		t.Fatalf("expected ErrNonConvergence, got %v", err)
	}
}

func TestSingularSystem(t *testing.T) {
	// Two cases with the same governing variable: Q2's column is zero for
	// neither case, Q1's for both, leaving a singular system.
	def := testDefinition()
	def.Cases = []loadcomb.Case{
		{Name: "C1", Governing: []string{"Q1"}},
		{Name: "C2", Governing: []string{"Q1"}},
	}
	lc, err := loadcomb.New(def)
	if err != nil {
		t.Fatalf("loadcomb.New: %v", err)
	}
	cal, err := New(lc, Config{TargetBeta: targetBeta, Nominal: testNominal()})
	if err != nil {
		t.Fatalf("calib.New: %v", err)
	}
	err = cal.Run()
	if !errors.Is(err, ErrSingularSystem) {
		t.Fatalf("expected ErrSingularSystem, got %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	lc, err := loadcomb.New(testDefinition())
	if err != nil {
		t.Fatalf("loadcomb.New: %v", err)
	}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero target", Config{Nominal: testNominal()}},
		{"bad calibration method", Config{TargetBeta: 4.3, Nominal: testNominal(), CalibMethod: "newton"}},
		{"bad estimation method", Config{TargetBeta: 4.3, Nominal: testNominal(), EstMethod: "magic"}},
		{"missing nominal", Config{TargetBeta: 4.3, Nominal: map[string]float64{"R": 1}}},
		{"zero nominal", Config{TargetBeta: 4.3, Nominal: map[string]float64{"R": 1, "G": 0, "Q1": 1, "Q2": 1}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(lc, tc.cfg); err == nil {
				t.Fatalf("expected configuration error")
			}
		})
	}

	// coeff rejects a combination variable that never governs.
	def := testDefinition()
	def.Cases = []loadcomb.Case{
		{Name: "C1", Governing: []string{"Q1"}},
		{Name: "C2", Governing: []string{"Q1"}},
	}
	lcNeverGoverns, err := loadcomb.New(def)
	if err != nil {
		t.Fatalf("loadcomb.New: %v", err)
	}
	if _, err := New(lcNeverGoverns, Config{TargetBeta: 4.3, Nominal: testNominal(), EstMethod: EstCoeff}); err == nil {
		t.Fatalf("expected rejection: Q2 governs no case")
	}

	// matrix needs a square system.
	def = testDefinition()
	def.Cases = def.Cases[:1]
	lcOneCase, err := loadcomb.New(def)
	if err != nil {
		t.Fatalf("loadcomb.New: %v", err)
	}
	if _, err := New(lcOneCase, Config{TargetBeta: 4.3, Nominal: testNominal(), EstMethod: EstMatrix}); err == nil {
		t.Fatalf("expected rejection: one case, two combination variables")
	}
}

// TestBetaTolTracksConfig: the design-check verdict uses the same acceptance
// band as the calibration, derived from TolBeta rather than hard-coded.
func TestBetaTolTracksConfig(t *testing.T) {
	cal := newEngine(t, CalibOptimize, EstMatrix, false)
	if got := cal.betaTol(); got != 1e-3 {
		t.Errorf("default betaTol = %g, want the 1e-3 floor", got)
	}

	lc, err := loadcomb.New(testDefinition())
	if err != nil {
		t.Fatalf("loadcomb.New: %v", err)
	}
	loose, err := New(lc, Config{TargetBeta: targetBeta, Nominal: testNominal(), TolBeta: 0.01})
	if err != nil {
		t.Fatalf("calib.New: %v", err)
	}
	if got := loose.betaTol(); math.Abs(got-0.1) > 1e-15 {
		t.Errorf("betaTol with TolBeta=0.01 = %g, want 0.1", got)
	}
}

func TestFactorsNotReady(t *testing.T) {
	cal := newEngine(t, CalibOptimize, EstMatrix, false)
	_, err := cal.GetDesignParamFactor()
	if !errors.Is(err, ErrFactorsNotReady) {
		t.Fatalf("expected ErrFactorsNotReady, got %v", err)
	}
}

// TestInjectedFactors: the design check runs standalone against externally
// supplied factor tables, without a prior Run.
func TestInjectedFactors(t *testing.T) {
	cal := newEngine(t, CalibOptimize, EstMatrix, false)
	cases := []string{"Q1_max", "Q2_max"}

	phi := table.New(cases, []string{"R"})
	phi.SetColValue("R", 0.8)
	gamma := table.New(cases, []string{"G", "Q1", "Q2"})
	gamma.SetColValue("G", 1.1)
	gamma.SetColValue("Q1", 1.2)
	gamma.SetColValue("Q2", 1.2)
	psi := table.New(cases, []string{"G", "Q1", "Q2"})
	psi.SetColValue("G", 1.0)
	psi.SetColValue("Q1", 1.0)
	psi.SetColValue("Q2", 1.0)

	if err := cal.SetFactors(phi, gamma, psi); err != nil {
		t.Fatalf("SetFactors: %v", err)
	}
	check, err := cal.CheckDesign()
	if err != nil {
		t.Fatalf("CheckDesign: %v", err)
	}
	if len(check.Betas) != 2 || len(check.CaseZ) != 2 {
		t.Fatalf("unexpected check shape: %+v", check)
	}
	// z = (γG·G_k + γ·ψ·Q1_k + γ·ψ·Q2_k) / (φ·R_k)
	wantZ := (1.1*1.0 + 1.2*1.48 + 1.2*1.96) / (0.8 * 0.765)
	if math.Abs(check.CaseZ[0]-wantZ) > 1e-9 {
		t.Errorf("case z = %.6f, want %.6f", check.CaseZ[0], wantZ)
	}

	// Injection is validated.
	bad := table.New([]string{"Q1_max"}, []string{"R"})
	if err := cal.SetFactors(bad, gamma, psi); err == nil {
		t.Errorf("expected error for factor table missing a case")
	}
	badCols := table.New(cases, []string{"X"})
	if err := cal.SetFactors(badCols, gamma, psi); err == nil {
		t.Errorf("expected error for factor table missing the resistance column")
	}
}
