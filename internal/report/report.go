// Package report exports calibration results: spreadsheet and PDF reports
// of the factor tables plus simple reliability charts.
package report

import (
	"github.com/structrel/calfactor/internal/table"
)

// Data bundles everything the exporters render.
type Data struct {
	Title        string
	TargetBeta   float64
	Cases        []string
	DesignPoints *table.Table
	Phi          *table.Table
	Gamma        *table.Table
	Psi          *table.Table
	CaseZ        []float64
	DesignZ      float64
	DesignBetas  []float64
}

// tables lists the factor tables with their display names, skipping nils so
// partially populated data still exports.
func (d *Data) tables() []namedTable {
	all := []namedTable{
		{"DesignPoints", d.DesignPoints},
		{"Phi", d.Phi},
		{"Gamma", d.Gamma},
		{"Psi", d.Psi},
	}
	out := all[:0]
	for _, nt := range all {
		if nt.t != nil {
			out = append(out, nt)
		}
	}
	return out
}

type namedTable struct {
	name string
	t    *table.Table
}
