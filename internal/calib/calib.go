// Package calib implements partial safety factor calibration.
//
// Given a load-combination problem and a target reliability index, the
// engine calibrates the scalar design parameter z per load case so that the
// FORM reliability equals the target, estimates the resistance factor φ,
// load factors γ, and combination factors ψ from the calibrated design
// points, and verifies by forward analysis that a design built from the
// factors meets the target for every case.
package calib

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/structrel/calfactor/internal/loadcomb"
	"github.com/structrel/calfactor/internal/table"
)

// CalibMethod selects the design-point calibration algorithm.
type CalibMethod string

// EstMethod selects the factor estimation algorithm.
type EstMethod string

const (
	// CalibOptimize drives repeated FORM analyses through a scalar
	// minimization of the squared β residual in z.
	CalibOptimize CalibMethod = "optimize"
	// CalibAlpha projects the design point along the direction cosines to
	// the target-β surface, iterating until the projection is consistent.
	CalibAlpha CalibMethod = "alpha"

	// EstMatrix recovers ψ by solving a linear system over the load cases.
	EstMatrix EstMethod = "matrix"
	// EstCoeff recovers the factors by direct coefficient comparison.
	EstCoeff EstMethod = "coeff"
)

// Sentinel errors distinguishing the failure kinds of the engine.
var (
	ErrNonConvergence  = errors.New("calibration did not converge")
	ErrSingularSystem  = errors.New("estimation system is singular")
	ErrFactorsNotReady = errors.New("factor tables not available")
)

// Config holds the calibration settings.
type Config struct {
	// TargetBeta is the reliability index the calibration must achieve.
	TargetBeta float64
	// Nominal maps every random variable to its characteristic value,
	// used only to normalize design points into factors.
	Nominal map[string]float64
	// CalibMethod defaults to CalibOptimize.
	CalibMethod CalibMethod
	// EstMethod defaults to EstMatrix.
	EstMethod EstMethod
	// SetMax collapses the case-varying factor tables to their per-column
	// maxima (conservative single table).
	SetMax bool
	// StartZ overrides the design parameter's starting value. Zero means
	// use the value configured on the load combination's constant.
	StartZ float64
	// TolBeta is the |β−β_T| acceptance tolerance, default 1e-4.
	TolBeta float64
	// MaxIter caps the calibration iterations per case, default 100.
	MaxIter int
}

func (c Config) withDefaults() Config {
	if c.CalibMethod == "" {
		c.CalibMethod = CalibOptimize
	}
	if c.EstMethod == "" {
		c.EstMethod = EstMatrix
	}
	if c.TolBeta == 0 {
		c.TolBeta = 1e-4
	}
	if c.MaxIter == 0 {
		c.MaxIter = 100
	}
	return c
}

// Calibration owns the mutable state of one calibration run: the design
// point table and the factor tables. The factor tables may be replaced
// between calls through SetFactors for standalone design checks.
type Calibration struct {
	lc  *loadcomb.LoadCombination
	cfg Config
	log *logrus.Logger

	designPoints *table.Table
	phi          *table.Table
	gamma        *table.Table
	psi          *table.Table
	betaCal      []float64
	history      map[string][]float64
}

// New validates the configuration against the load-combination problem and
// returns an engine ready to Run. All configuration errors surface here.
func New(lc *loadcomb.LoadCombination, cfg Config) (*Calibration, error) {
	cfg = cfg.withDefaults()
	if lc == nil {
		return nil, fmt.Errorf("calibration: load combination is required")
	}
	if cfg.TargetBeta <= 0 {
		return nil, fmt.Errorf("calibration: target reliability index must be positive, got %g", cfg.TargetBeta)
	}
	switch cfg.CalibMethod {
	case CalibOptimize, CalibAlpha:
	default:
		return nil, fmt.Errorf("calibration: unknown calibration method %q", cfg.CalibMethod)
	}
	switch cfg.EstMethod {
	case EstMatrix, EstCoeff:
	default:
		return nil, fmt.Errorf("calibration: unknown estimation method %q", cfg.EstMethod)
	}
	for _, name := range lc.VariableNames() {
		if _, ok := cfg.Nominal[name]; !ok {
			return nil, fmt.Errorf("calibration: nominal value table is missing variable %q", name)
		}
		if cfg.Nominal[name] == 0 {
			return nil, fmt.Errorf("calibration: nominal value of %q must be nonzero", name)
		}
	}
	// The coeff estimator recovers γ for a combination variable only from a
	// case where that variable governs; a variable that never governs would
	// be silently mis-estimated, so it is rejected here.
	if cfg.EstMethod == EstCoeff {
		for _, v := range lc.CombVarNames() {
			governs := false
			for _, cs := range lc.CaseNames() {
				if lc.IsGoverning(cs, v) {
					governs = true
					break
				}
			}
			if !governs {
				return nil, fmt.Errorf("calibration: combination variable %q governs no load case; γ is unrecoverable by the coeff estimator", v)
			}
		}
	}
	// The matrix estimator solves a square system: one equation per case,
	// one ψ unknown per combination variable.
	if cfg.EstMethod == EstMatrix && len(lc.CaseNames()) != len(lc.CombVarNames()) {
		return nil, fmt.Errorf("calibration: matrix estimation needs as many load cases (%d) as combination variables (%d)",
			len(lc.CaseNames()), len(lc.CombVarNames()))
	}

	return &Calibration{
		lc:      lc,
		cfg:     cfg,
		log:     logrus.StandardLogger(),
		history: make(map[string][]float64),
	}, nil
}

// SetLogger replaces the engine's logger.
func (c *Calibration) SetLogger(log *logrus.Logger) {
	if log != nil {
		c.log = log
	}
}

// Run calibrates the design parameter for every load case and estimates the
// factor tables with the configured estimation method.
func (c *Calibration) Run() error {
	if err := c.calibrate(); err != nil {
		return err
	}
	var err error
	switch c.cfg.EstMethod {
	case EstCoeff:
		c.phi, c.gamma, c.psi, err = c.estimateCoeff()
	default:
		c.phi, c.gamma, c.psi, err = c.estimateMatrix()
	}
	if err != nil {
		return err
	}
	if c.cfg.SetMax {
		c.applySetMax()
	}
	return nil
}

// TargetBeta returns the configured target reliability index.
func (c *Calibration) TargetBeta() float64 { return c.cfg.TargetBeta }

// DesignPoints returns the calibrated design point table: one row per load
// case, one column per random variable plus the design parameter. Nil
// before Run.
func (c *Calibration) DesignPoints() *table.Table { return c.designPoints }

// Phi returns the resistance factor table. Nil before Run unless injected.
func (c *Calibration) Phi() *table.Table { return c.phi }

// Gamma returns the load factor table. Nil before Run unless injected.
func (c *Calibration) Gamma() *table.Table { return c.gamma }

// Psi returns the combination factor table. Nil before Run unless injected.
func (c *Calibration) Psi() *table.Table { return c.psi }

// CalibratedBetas returns the per-case reliability reached by calibration,
// in case order.
func (c *Calibration) CalibratedBetas() []float64 {
	return append([]float64(nil), c.betaCal...)
}

// History returns the sequence of β values evaluated while calibrating the
// given case, in evaluation order.
func (c *Calibration) History(caseName string) []float64 {
	return append([]float64(nil), c.history[caseName]...)
}

// SetFactors replaces the factor tables in place, e.g. with tables produced
// by an outer optimization across several problems. The tables must cover
// every load case and the variables of their respective factor kinds.
func (c *Calibration) SetFactors(phi, gamma, psi *table.Table) error {
	if phi == nil || gamma == nil || psi == nil {
		return fmt.Errorf("calibration: all three factor tables are required")
	}
	for _, cs := range c.lc.CaseNames() {
		for _, t := range []*table.Table{phi, gamma, psi} {
			if !t.HasRow(cs) {
				return fmt.Errorf("calibration: factor table is missing load case %q", cs)
			}
		}
	}
	for _, v := range c.lc.ResistanceNames() {
		if !phi.HasCol(v) {
			return fmt.Errorf("calibration: φ table is missing resistance variable %q", v)
		}
	}
	for _, v := range c.lc.LoadNames() {
		if !gamma.HasCol(v) {
			return fmt.Errorf("calibration: γ table is missing load variable %q", v)
		}
		if !psi.HasCol(v) {
			return fmt.Errorf("calibration: ψ table is missing load variable %q", v)
		}
	}
	c.phi, c.gamma, c.psi = phi.Copy(), gamma.Copy(), psi.Copy()
	return nil
}

// betaTol is the acceptance band on |β − β_T|, shared by the optimizer's
// convergence check and the design-check verdict. The floor covers the
// flattening of the squared residual near the root.
func (c *Calibration) betaTol() float64 {
	return math.Max(10*c.cfg.TolBeta, 1e-3)
}

// startZ returns the initial design parameter value for a calibration.
func (c *Calibration) startZ() float64 {
	if c.cfg.StartZ != 0 {
		return c.cfg.StartZ
	}
	return c.lc.StartZ()
}

// designParamFromPoint back-calculates the design parameter from a point on
// the failure surface by splitting the limit-state function into its load
// and resistance parts, each evaluated with the design parameter forced
// to one.
func (c *Calibration) designParamFromPoint(x map[string]float64) float64 {
	loads := make(map[string]float64)
	for _, name := range c.lc.LoadNames() {
		loads[name] = x[name]
	}
	loads[c.lc.DesignParam()] = 1
	sumLoad := c.lc.EvalLSF(loads)

	resist := make(map[string]float64)
	for _, name := range c.lc.ResistanceNames() {
		resist[name] = x[name]
	}
	resist[c.lc.DesignParam()] = 1
	sumResist := c.lc.EvalLSF(resist)

	return math.Abs(sumLoad / sumResist)
}
