// Package loadcomb assembles load-combination reliability problems.
//
// A load combination shares one limit-state function across several load
// cases. In each case exactly the governing time-variant loads keep their
// maximum (e.g. annual-max) distribution while every other time-variant load
// is substituted with its point-in-time distribution. The package builds the
// concrete per-case variable sets and runs the FORM analysis for a case.
package loadcomb

import (
	"fmt"

	"github.com/structrel/calfactor/internal/dist"
	"github.com/structrel/calfactor/internal/form"
)

// CombVariable is one time-variant load with its maximum and point-in-time
// distributions. Both distributions carry the variable's name.
type CombVariable struct {
	Name string
	Max  dist.Distribution
	Pit  dist.Distribution
}

// Case is one load case: the named set of combination variables taken at
// their maximum distribution.
type Case struct {
	Name      string
	Governing []string
}

// Definition is the full input of a load-combination problem.
type Definition struct {
	LSF         form.LSF
	CombVars    []CombVariable
	Resistance  []dist.Distribution
	Other       []dist.Distribution
	Constants   []dist.Constant
	DesignParam string // name of the constant acting as design parameter
	Cases       []Case
	Analysis    form.Options // zero value uses the form defaults
}

// LoadCombination is a validated load-combination problem.
type LoadCombination struct {
	lsf         form.LSF
	combVars    []CombVariable
	combIndex   map[string]int
	resistance  []dist.Distribution
	other       []dist.Distribution
	constants   map[string]dist.Constant
	constOrder  []string
	designParam string
	cases       []Case
	caseIndex   map[string]int
	opts        form.Options
}

// New validates a definition and returns the load-combination problem.
// All configuration errors are detected here, before any FORM call.
func New(def Definition) (*LoadCombination, error) {
	if def.LSF == nil {
		return nil, fmt.Errorf("load combination: limit-state function is required")
	}
	if len(def.CombVars) == 0 {
		return nil, fmt.Errorf("load combination: at least one combination variable is required")
	}
	if len(def.Resistance) == 0 {
		return nil, fmt.Errorf("load combination: at least one resistance variable is required")
	}
	if len(def.Cases) == 0 {
		return nil, fmt.Errorf("load combination: at least one load case is required")
	}

	lc := &LoadCombination{
		lsf:         def.LSF,
		combVars:    append([]CombVariable(nil), def.CombVars...),
		combIndex:   make(map[string]int, len(def.CombVars)),
		resistance:  append([]dist.Distribution(nil), def.Resistance...),
		other:       append([]dist.Distribution(nil), def.Other...),
		constants:   make(map[string]dist.Constant, len(def.Constants)),
		designParam: def.DesignParam,
		cases:       append([]Case(nil), def.Cases...),
		caseIndex:   make(map[string]int, len(def.Cases)),
		opts:        def.Analysis,
	}

	seen := make(map[string]bool)
	register := func(name, kind string) error {
		if name == "" {
			return fmt.Errorf("load combination: %s variable with empty name", kind)
		}
		if seen[name] {
			return fmt.Errorf("load combination: duplicate variable name %q", name)
		}
		seen[name] = true
		return nil
	}

	for _, rv := range lc.resistance {
		if err := register(rv.Name(), "resistance"); err != nil {
			return nil, err
		}
	}
	for _, rv := range lc.other {
		if err := register(rv.Name(), "other"); err != nil {
			return nil, err
		}
	}
	for i, cv := range lc.combVars {
		if err := register(cv.Name, "combination"); err != nil {
			return nil, err
		}
		if cv.Max == nil || cv.Pit == nil {
			return nil, fmt.Errorf("load combination: variable %q needs both max and point-in-time distributions", cv.Name)
		}
		if cv.Max.Name() != cv.Name || cv.Pit.Name() != cv.Name {
			return nil, fmt.Errorf("load combination: max/pit distributions of %q must carry the variable name", cv.Name)
		}
		lc.combIndex[cv.Name] = i
	}
	for _, c := range def.Constants {
		if err := register(c.Name(), "constant"); err != nil {
			return nil, err
		}
		lc.constants[c.Name()] = c
		lc.constOrder = append(lc.constOrder, c.Name())
	}

	if lc.designParam == "" {
		return nil, fmt.Errorf("load combination: design parameter name is required")
	}
	if _, ok := lc.constants[lc.designParam]; !ok {
		return nil, fmt.Errorf("load combination: design parameter %q is not among the constants", lc.designParam)
	}

	for i, cs := range lc.cases {
		if cs.Name == "" {
			return nil, fmt.Errorf("load combination: case %d has an empty name", i)
		}
		if _, ok := lc.caseIndex[cs.Name]; ok {
			return nil, fmt.Errorf("load combination: duplicate case name %q", cs.Name)
		}
		if len(cs.Governing) == 0 {
			return nil, fmt.Errorf("load combination: case %q names no governing variable", cs.Name)
		}
		for _, v := range cs.Governing {
			if _, ok := lc.combIndex[v]; !ok {
				return nil, fmt.Errorf("load combination: case %q references undefined combination variable %q", cs.Name, v)
			}
		}
		lc.caseIndex[cs.Name] = i
	}

	return lc, nil
}

// CaseNames returns the load case names in definition order.
func (lc *LoadCombination) CaseNames() []string {
	out := make([]string, len(lc.cases))
	for i, c := range lc.cases {
		out[i] = c.Name
	}
	return out
}

// Governing returns the governing combination variables of a case.
func (lc *LoadCombination) Governing(caseName string) ([]string, error) {
	i, ok := lc.caseIndex[caseName]
	if !ok {
		return nil, fmt.Errorf("load combination: unknown case %q", caseName)
	}
	return append([]string(nil), lc.cases[i].Governing...), nil
}

// IsGoverning reports whether the combination variable governs the case.
func (lc *LoadCombination) IsGoverning(caseName, varName string) bool {
	gov, err := lc.Governing(caseName)
	if err != nil {
		return false
	}
	for _, g := range gov {
		if g == varName {
			return true
		}
	}
	return false
}

// ResistanceNames returns resistance variable names in order.
func (lc *LoadCombination) ResistanceNames() []string {
	out := make([]string, len(lc.resistance))
	for i, rv := range lc.resistance {
		out[i] = rv.Name()
	}
	return out
}

// OtherNames returns the time-invariant load variable names in order.
func (lc *LoadCombination) OtherNames() []string {
	out := make([]string, len(lc.other))
	for i, rv := range lc.other {
		out[i] = rv.Name()
	}
	return out
}

// CombVarNames returns the combination variable names in order.
func (lc *LoadCombination) CombVarNames() []string {
	out := make([]string, len(lc.combVars))
	for i, cv := range lc.combVars {
		out[i] = cv.Name
	}
	return out
}

// LoadNames returns all load variable names: other variables followed by
// combination variables.
func (lc *LoadCombination) LoadNames() []string {
	return append(lc.OtherNames(), lc.CombVarNames()...)
}

// VariableNames returns every random variable name in table order:
// resistance, other, then combination variables.
func (lc *LoadCombination) VariableNames() []string {
	out := lc.ResistanceNames()
	out = append(out, lc.OtherNames()...)
	return append(out, lc.CombVarNames()...)
}

// DesignParam returns the name of the design parameter constant.
func (lc *LoadCombination) DesignParam() string { return lc.designParam }

// StartZ returns the design parameter's configured starting value.
func (lc *LoadCombination) StartZ() float64 {
	return lc.constants[lc.designParam].Value()
}

// AnalysisOptions returns the FORM options the problem was defined with.
func (lc *LoadCombination) AnalysisOptions() form.Options { return lc.opts }

// LSF returns the shared limit-state function.
func (lc *LoadCombination) LSF() form.LSF { return lc.lsf }

// CaseDistributions returns the concrete random variable set of a case in
// table order: resistance, other, then each combination variable with its
// maximum distribution if governing and point-in-time otherwise.
func (lc *LoadCombination) CaseDistributions(caseName string) ([]dist.Distribution, error) {
	i, ok := lc.caseIndex[caseName]
	if !ok {
		return nil, fmt.Errorf("load combination: unknown case %q", caseName)
	}
	cs := lc.cases[i]
	gov := make(map[string]bool, len(cs.Governing))
	for _, v := range cs.Governing {
		gov[v] = true
	}

	out := make([]dist.Distribution, 0, len(lc.resistance)+len(lc.other)+len(lc.combVars))
	out = append(out, lc.resistance...)
	out = append(out, lc.other...)
	for _, cv := range lc.combVars {
		if gov[cv.Name] {
			out = append(out, cv.Max)
		} else {
			out = append(out, cv.Pit)
		}
	}
	return out, nil
}

// RunReliabilityCase runs a forward FORM analysis of a case with the design
// parameter fixed at z. Other constants keep their configured values.
func (lc *LoadCombination) RunReliabilityCase(caseName string, z float64) (*form.Result, error) {
	vars, err := lc.CaseDistributions(caseName)
	if err != nil {
		return nil, err
	}
	consts := make(map[string]float64, len(lc.constants))
	for name, c := range lc.constants {
		consts[name] = c.Value()
	}
	consts[lc.designParam] = z
	res, err := form.Analyze(lc.lsf, vars, consts, lc.opts)
	if err != nil {
		return nil, fmt.Errorf("case %q: %w", caseName, err)
	}
	return res, nil
}

// EvalLSF evaluates the limit-state function with the supplied values.
// Random variables missing from values default to zero; constants missing
// from values default to their configured values. This is the evaluation
// convention the calibration engine's algebra relies on.
func (lc *LoadCombination) EvalLSF(values map[string]float64) float64 {
	vals := make(map[string]float64, len(values)+len(lc.constants))
	for _, name := range lc.VariableNames() {
		vals[name] = 0
	}
	for name, c := range lc.constants {
		vals[name] = c.Value()
	}
	for k, v := range values {
		vals[k] = v
	}
	return lc.lsf(vals)
}
