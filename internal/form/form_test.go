package form

import (
	"errors"
	"math"
	"testing"

	"github.com/structrel/calfactor/internal/dist"
)

// TestAnalyzeLinearNormal checks β against the closed form for a linear
// limit state over independent normals: β = (μR−μS)/√(σR²+σS²).
func TestAnalyzeLinearNormal(t *testing.T) {
	g := func(v map[string]float64) float64 { return v["R"] - v["S"] }
	vars := []dist.Distribution{
		dist.NewNormal("R", 5.0, 0.5),
		dist.NewNormal("S", 3.0, 0.4),
	}

	res, err := Analyze(g, vars, nil, Options{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	want := 2.0 / math.Sqrt(0.5*0.5+0.4*0.4)
	if math.Abs(res.Beta-want) > 1e-3 {
		t.Errorf("beta = %.5f, want %.5f", res.Beta, want)
	}

	// Resistance sits below its mean at the design point, load above.
	if res.DesignPoint["R"] >= 5.0 {
		t.Errorf("design point R = %g, want below the mean", res.DesignPoint["R"])
	}
	if res.DesignPoint["S"] <= 3.0 {
		t.Errorf("design point S = %g, want above the mean", res.DesignPoint["S"])
	}
	if res.Alpha["R"] >= 0 {
		t.Errorf("alpha R = %g, want negative", res.Alpha["R"])
	}
	if res.Alpha["S"] <= 0 {
		t.Errorf("alpha S = %g, want positive", res.Alpha["S"])
	}

	// Direction cosines are a unit vector.
	sum := 0.0
	for _, a := range res.Alpha {
		sum += a * a
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Errorf("|alpha|² = %g, want 1", sum)
	}

	// The design point lies on the failure surface.
	if gx := g(res.DesignPoint); math.Abs(gx) > 1e-4 {
		t.Errorf("g(x*) = %g, want ≈0", gx)
	}
}

// TestAnalyzeConstants verifies fixed constants reach the limit state and
// scale the reliability accordingly.
func TestAnalyzeConstants(t *testing.T) {
	g := func(v map[string]float64) float64 { return v["z"]*v["R"] - v["S"] }
	vars := []dist.Distribution{
		dist.NewNormal("R", 5.0, 0.5),
		dist.NewNormal("S", 3.0, 0.4),
	}

	res1, err := Analyze(g, vars, map[string]float64{"z": 1.0}, Options{})
	if err != nil {
		t.Fatalf("Analyze z=1: %v", err)
	}
	res2, err := Analyze(g, vars, map[string]float64{"z": 1.5}, Options{})
	if err != nil {
		t.Fatalf("Analyze z=1.5: %v", err)
	}
	if res2.Beta <= res1.Beta {
		t.Errorf("more resistance must raise beta: %.3f vs %.3f", res2.Beta, res1.Beta)
	}

	want := (1.5*5.0 - 3.0) / math.Sqrt(1.5*1.5*0.5*0.5+0.4*0.4)
	if math.Abs(res2.Beta-want) > 1e-3 {
		t.Errorf("beta(z=1.5) = %.5f, want %.5f", res2.Beta, want)
	}
}

// TestAnalyzeNonNormal exercises the probability transform with lognormal
// and Gumbel marginals.
func TestAnalyzeNonNormal(t *testing.T) {
	g := func(v map[string]float64) float64 { return v["z"]*v["R"] - v["G"] - v["Q"] }
	vars := []dist.Distribution{
		dist.NewLognormal("R", 1.0, 0.15),
		dist.NewNormal("G", 0.5, 0.05),
		dist.NewGumbel("Q", 0.4, 0.1),
	}

	res, err := Analyze(g, vars, map[string]float64{"z": 3.0}, Options{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Beta <= 0 {
		t.Errorf("beta = %g, want positive for a safe design", res.Beta)
	}
	vals := map[string]float64{"z": 3.0}
	for k, v := range res.DesignPoint {
		vals[k] = v
	}
	if gx := g(vals); math.Abs(gx) > 1e-3 {
		t.Errorf("g(x*) = %g, want ≈0", gx)
	}
}

func TestAnalyzeVanishingGradient(t *testing.T) {
	g := func(v map[string]float64) float64 { return 1.0 }
	vars := []dist.Distribution{dist.NewNormal("R", 1, 0.1)}

	_, err := Analyze(g, vars, nil, Options{})
	if !errors.Is(err, ErrNonConvergence) {
		t.Fatalf("expected ErrNonConvergence, got %v", err)
	}
}

func TestAnalyzeNoVariables(t *testing.T) {
	g := func(v map[string]float64) float64 { return 1.0 }
	if _, err := Analyze(g, nil, nil, Options{}); err == nil {
		t.Fatalf("expected error for empty variable set")
	}
}

func TestUToXRoundTrip(t *testing.T) {
	vars := []dist.Distribution{
		dist.NewNormal("A", 2.0, 0.5),
		dist.NewLognormal("B", 1.0, 0.2),
	}
	x := UToX([]float64{0, 0}, vars)
	if math.Abs(x[0]-2.0) > 1e-9 {
		t.Errorf("median of A = %g, want 2", x[0])
	}
	// Lognormal median is below its mean.
	if x[1] >= 1.0 {
		t.Errorf("median of B = %g, want below the mean", x[1])
	}
}
