// Package config loads calibration problems from YAML files.
//
// The file format covers the common case of a linear code equation:
// z · Σ cR_i·R_i − Σ cS_j·S_j, with distributions given by family and
// moments. The engine itself accepts an arbitrary limit-state callable;
// the file format is only one way to construct one.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/structrel/calfactor/internal/calib"
	"github.com/structrel/calfactor/internal/dist"
	"github.com/structrel/calfactor/internal/form"
	"github.com/structrel/calfactor/internal/loadcomb"
)

// VarSpec describes one random variable. Stdev wins over Cov when both are
// given; otherwise the standard deviation is Cov·Mean.
type VarSpec struct {
	Name   string  `yaml:"name"`
	Family string  `yaml:"family"`
	Mean   float64 `yaml:"mean"`
	Cov    float64 `yaml:"cov"`
	Stdev  float64 `yaml:"stdev"`
}

func (v VarSpec) stdev() float64 {
	if v.Stdev != 0 {
		return v.Stdev
	}
	return v.Cov * v.Mean
}

func (v VarSpec) build(name string) (dist.Distribution, error) {
	if name == "" {
		name = v.Name
	}
	if name == "" {
		return nil, fmt.Errorf("config: variable with empty name")
	}
	return dist.New(v.Family, name, v.Mean, v.stdev())
}

// CombSpec describes one time-variant load with its maximum and
// point-in-time distributions.
type CombSpec struct {
	Name string  `yaml:"name"`
	Max  VarSpec `yaml:"max"`
	Pit  VarSpec `yaml:"pit"`
}

// ConstSpec describes a named constant.
type ConstSpec struct {
	Name  string  `yaml:"name"`
	Value float64 `yaml:"value"`
}

// TermSpec is one linear term of the code equation.
type TermSpec struct {
	Var   string  `yaml:"var"`
	Coeff float64 `yaml:"coeff"`
}

func (t TermSpec) coeff() float64 {
	if t.Coeff == 0 {
		return 1
	}
	return t.Coeff
}

// LSFSpec is a linear limit-state function: the design parameter multiplies
// the resistance sum, and the load sum is subtracted.
type LSFSpec struct {
	Resistance []TermSpec `yaml:"resistance"`
	Loads      []TermSpec `yaml:"loads"`
}

// CaseSpec names a load case and its governing combination variables.
type CaseSpec struct {
	Name      string   `yaml:"name"`
	Governing []string `yaml:"governing"`
}

// Problem is the top-level YAML document.
type Problem struct {
	TargetBeta  float64            `yaml:"target_beta"`
	Calibration string             `yaml:"calibration"`
	Estimation  string             `yaml:"estimation"`
	SetMax      bool               `yaml:"set_max"`
	DesignParam string             `yaml:"design_parameter"`
	StartZ      float64            `yaml:"start_z"`
	LSF         LSFSpec            `yaml:"lsf"`
	Resistance  []VarSpec          `yaml:"resistance"`
	Other       []VarSpec          `yaml:"other"`
	Combination []CombSpec         `yaml:"combination"`
	Constants   []ConstSpec        `yaml:"constants"`
	Cases       []CaseSpec         `yaml:"cases"`
	Nominal     map[string]float64 `yaml:"nominal"`
}

// Parse decodes a problem document.
func Parse(data []byte) (*Problem, error) {
	var p Problem
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &p, nil
}

// Load reads and decodes a problem file.
func Load(path string) (*Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return p, nil
}

// Build assembles the load-combination problem and calibration settings.
func (p *Problem) Build() (*loadcomb.LoadCombination, calib.Config, error) {
	var zero calib.Config

	if p.DesignParam == "" {
		p.DesignParam = "z"
	}
	if len(p.LSF.Resistance) == 0 || len(p.LSF.Loads) == 0 {
		return nil, zero, fmt.Errorf("config: lsf needs resistance and load terms")
	}

	resistance := make([]dist.Distribution, 0, len(p.Resistance))
	for _, vs := range p.Resistance {
		d, err := vs.build("")
		if err != nil {
			return nil, zero, err
		}
		resistance = append(resistance, d)
	}
	other := make([]dist.Distribution, 0, len(p.Other))
	for _, vs := range p.Other {
		d, err := vs.build("")
		if err != nil {
			return nil, zero, err
		}
		other = append(other, d)
	}
	combVars := make([]loadcomb.CombVariable, 0, len(p.Combination))
	for _, cs := range p.Combination {
		max, err := cs.Max.build(cs.Name)
		if err != nil {
			return nil, zero, fmt.Errorf("config: combination %q max: %w", cs.Name, err)
		}
		pit, err := cs.Pit.build(cs.Name)
		if err != nil {
			return nil, zero, fmt.Errorf("config: combination %q pit: %w", cs.Name, err)
		}
		combVars = append(combVars, loadcomb.CombVariable{Name: cs.Name, Max: max, Pit: pit})
	}

	constants := make([]dist.Constant, 0, len(p.Constants)+1)
	haveDesignParam := false
	for _, c := range p.Constants {
		if c.Name == p.DesignParam {
			haveDesignParam = true
		}
		constants = append(constants, dist.NewConstant(c.Name, c.Value))
	}
	if !haveDesignParam {
		start := p.StartZ
		if start == 0 {
			start = 1
		}
		constants = append(constants, dist.NewConstant(p.DesignParam, start))
	}

	cases := make([]loadcomb.Case, 0, len(p.Cases))
	for _, cs := range p.Cases {
		cases = append(cases, loadcomb.Case{Name: cs.Name, Governing: cs.Governing})
	}

	lc, err := loadcomb.New(loadcomb.Definition{
		LSF:         p.lsf(),
		CombVars:    combVars,
		Resistance:  resistance,
		Other:       other,
		Constants:   constants,
		DesignParam: p.DesignParam,
		Cases:       cases,
	})
	if err != nil {
		return nil, zero, err
	}

	cfg := calib.Config{
		TargetBeta:  p.TargetBeta,
		Nominal:     p.Nominal,
		CalibMethod: calib.CalibMethod(p.Calibration),
		EstMethod:   calib.EstMethod(p.Estimation),
		SetMax:      p.SetMax,
		StartZ:      p.StartZ,
	}
	return lc, cfg, nil
}

// lsf builds the linear limit-state callable from the term lists.
func (p *Problem) lsf() form.LSF {
	resistance := append([]TermSpec(nil), p.LSF.Resistance...)
	loads := append([]TermSpec(nil), p.LSF.Loads...)
	designParam := p.DesignParam
	return func(v map[string]float64) float64 {
		sumR := 0.0
		for _, t := range resistance {
			sumR += t.coeff() * v[t.Var]
		}
		sumS := 0.0
		for _, t := range loads {
			sumS += t.coeff() * v[t.Var]
		}
		return v[designParam]*sumR - sumS
	}
}
