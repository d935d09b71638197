package report

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// SaveBetaPlot draws the achieved reliability per load case against the
// target line and saves it to an image file (format by extension).
func SaveBetaPlot(path string, cases []string, betas []float64, targetBeta float64) error {
	if len(cases) != len(betas) {
		return fmt.Errorf("report: %d cases but %d betas", len(cases), len(betas))
	}

	p := plot.New()
	p.Title.Text = "Design reliability by load case"
	p.Y.Label.Text = "beta"
	p.NominalX(cases...)

	pts := make(plotter.XYs, len(betas))
	for i, b := range betas {
		pts[i] = plotter.XY{X: float64(i), Y: b}
	}
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	scatter.GlyphStyle.Radius = vg.Points(4)
	p.Add(scatter)

	target := plotter.XYs{
		{X: -0.5, Y: targetBeta},
		{X: float64(len(betas)) - 0.5, Y: targetBeta},
	}
	line, err := plotter.NewLine(target)
	if err != nil {
		return err
	}
	line.LineStyle.Width = vg.Points(1)
	line.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(line)
	p.Legend.Add(fmt.Sprintf("target %.2f", targetBeta), line)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("report: save %s: %w", path, err)
	}
	return nil
}
