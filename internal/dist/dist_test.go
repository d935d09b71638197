package dist

import (
	"math"
	"testing"
)

func almost(t *testing.T, got, want, tol float64, msg string) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %g, want %g (tol %g)", msg, got, want, tol)
	}
}

func TestNormal(t *testing.T) {
	n := NewNormal("G", 10, 2)

	if n.Name() != "G" {
		t.Fatalf("name: got %q", n.Name())
	}
	almost(t, n.Mean(), 10, 1e-12, "mean")
	almost(t, n.StdDev(), 2, 1e-12, "stdev")
	almost(t, n.CDF(10), 0.5, 1e-12, "median CDF")
	almost(t, n.Ppf(0.975), 10+1.959964*2, 1e-4, "97.5% quantile")

	for _, x := range []float64{5, 8, 10, 13} {
		almost(t, n.Ppf(n.CDF(x)), x, 1e-9, "Ppf∘CDF round-trip")
	}
}

func TestLognormalMoments(t *testing.T) {
	l := NewLognormal("R", 1.0, 0.15)

	almost(t, l.Mean(), 1.0, 1e-9, "mean")
	almost(t, l.StdDev(), 0.15, 1e-9, "stdev")
	for _, p := range []float64{0.05, 0.5, 0.95} {
		almost(t, l.CDF(l.Ppf(p)), p, 1e-9, "CDF∘Ppf round-trip")
	}
	if l.Ppf(0.05) >= l.Mean() {
		t.Errorf("5%% fractile %g should sit below the mean", l.Ppf(0.05))
	}
}

func TestGumbelMoments(t *testing.T) {
	g := NewGumbel("Q1", 1.0, 0.2)

	almost(t, g.Mean(), 1.0, 1e-9, "mean")
	almost(t, g.StdDev(), 0.2, 1e-9, "stdev")
	if !(g.Ppf(0.99) > g.Ppf(0.9) && g.Ppf(0.9) > g.Ppf(0.5)) {
		t.Errorf("quantiles not monotonic: %g %g %g", g.Ppf(0.5), g.Ppf(0.9), g.Ppf(0.99))
	}
	for _, p := range []float64{0.1, 0.5, 0.98} {
		almost(t, g.CDF(g.Ppf(p)), p, 1e-9, "CDF∘Ppf round-trip")
	}
}

func TestConstant(t *testing.T) {
	c := NewConstant("z", 1.5)

	almost(t, c.Value(), 1.5, 0, "value")
	almost(t, c.Mean(), 1.5, 0, "mean")
	almost(t, c.StdDev(), 0, 0, "stdev")
	if c.CDF(1.0) != 0 || c.CDF(2.0) != 1 {
		t.Errorf("CDF is not a unit step: %g %g", c.CDF(1.0), c.CDF(2.0))
	}
	if c.Ppf(0.1) != 1.5 || c.Ppf(0.99) != 1.5 {
		t.Errorf("Ppf should always return the value")
	}
}

func TestNewDispatch(t *testing.T) {
	tests := []struct {
		family string
		ok     bool
	}{
		{"normal", true},
		{"lognormal", true},
		{"gumbel", true},
		{"constant", true},
		{"weibull", false},
	}
	for _, tc := range tests {
		t.Run(tc.family, func(t *testing.T) {
			d, err := New(tc.family, "X", 1, 0.1)
			if tc.ok && (err != nil || d == nil) {
				t.Fatalf("expected distribution, got err %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected error for family %q", tc.family)
			}
		})
	}
}

func TestClampProbExtremes(t *testing.T) {
	n := NewNormal("X", 0, 1)
	if v := n.Ppf(0); math.IsInf(v, -1) || math.IsNaN(v) {
		t.Errorf("Ppf(0) should stay finite, got %g", v)
	}
	if v := n.Ppf(1); math.IsInf(v, 1) || math.IsNaN(v) {
		t.Errorf("Ppf(1) should stay finite, got %g", v)
	}
}
