package report

import (
	"fmt"

	"github.com/guptarohit/asciigraph"
)

// ConvergenceChart renders the β evaluation history of one calibration as
// an ASCII line chart for console output.
func ConvergenceChart(history []float64, targetBeta float64) string {
	if len(history) < 2 {
		return ""
	}
	return asciigraph.Plot(history,
		asciigraph.Height(10),
		asciigraph.Caption(fmt.Sprintf("beta per evaluation (target %.2f)", targetBeta)),
	)
}
