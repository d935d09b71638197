package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/structrel/calfactor/internal/table"
)

// Factors is an externally supplied factor set, one value per variable,
// applied uniformly across load cases. It feeds the standalone design check
// without rerunning a calibration.
type Factors struct {
	Phi   map[string]float64 `yaml:"phi"`
	Gamma map[string]float64 `yaml:"gamma"`
	Psi   map[string]float64 `yaml:"psi"`
}

// LoadFactors reads a factor override file.
func LoadFactors(path string) (*Factors, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var f Factors
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &f, nil
}

// Tables expands the per-variable values into case-indexed factor tables.
// Load variables missing from psi default to 1.
func (f *Factors) Tables(cases, resistVars, loadVars []string) (phi, gamma, psi *table.Table, err error) {
	phi = table.New(cases, resistVars)
	for _, v := range resistVars {
		val, ok := f.Phi[v]
		if !ok {
			return nil, nil, nil, fmt.Errorf("config: factors file is missing phi for %q", v)
		}
		phi.SetColValue(v, val)
	}
	gamma = table.New(cases, loadVars)
	psi = table.New(cases, loadVars)
	for _, v := range loadVars {
		val, ok := f.Gamma[v]
		if !ok {
			return nil, nil, nil, fmt.Errorf("config: factors file is missing gamma for %q", v)
		}
		gamma.SetColValue(v, val)
		p, ok := f.Psi[v]
		if !ok {
			p = 1
		}
		psi.SetColValue(v, p)
	}
	return phi, gamma, psi, nil
}
