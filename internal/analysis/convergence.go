package analysis

import (
	"math"

	"github.com/san-kum/newton/internal/jacobian"
	"github.com/san-kum/newton/internal/numeric"
	"gonum.org/v1/gonum/floats"
)

// ConvergenceOrder estimates the order q in e_{k+1} ≈ C·e_k^q from a sequence
// of residual norms, using the last three usable entries:
//
//	q ≈ ln(e_{k+1}/e_k) / ln(e_k/e_{k-1})
//
// Exact zeros and non-decreasing tails carry no information and are skipped.
// Returns NaN when fewer than three usable residuals remain.
func ConvergenceOrder(residuals []float64) float64 {
	usable := make([]float64, 0, len(residuals))
	for _, r := range residuals {
		if r > 0 && !math.IsInf(r, 0) {
			usable = append(usable, r)
		}
	}

	for k := len(usable) - 2; k >= 1; k-- {
		num := math.Log(usable[k+1] / usable[k])
		den := math.Log(usable[k] / usable[k-1])
		if den < 0 && num < 0 {
			return num / den
		}
	}
	return math.NaN()
}

// ContractionRates returns e_{k+1}/e_k for each consecutive pair.
func ContractionRates(residuals []float64) []float64 {
	if len(residuals) < 2 {
		return nil
	}
	rates := make([]float64, len(residuals)-1)
	for k := range rates {
		if residuals[k] == 0 {
			rates[k] = 0
			continue
		}
		rates[k] = residuals[k+1] / residuals[k]
	}
	return rates
}

// JacobianError is the largest entry-wise deviation of a finite-difference
// Jacobian from the analytic one at a given step size.
type JacobianError struct {
	Dx      float64
	Forward float64
	Central float64
}

// CompareJacobians measures both differencing schemes against jac at x for
// each step size in dxs.
func CompareJacobians(f numeric.Func, jac numeric.JacobianFunc, x numeric.Vector, dxs []float64) ([]JacobianError, error) {
	exact, err := jac(x)
	if err != nil {
		return nil, err
	}
	want := exact.RawMatrix().Data

	out := make([]JacobianError, 0, len(dxs))
	for _, dx := range dxs {
		fwd, err := jacobian.ApproximateWith(jacobian.Forward, f, x, dx)
		if err != nil {
			return nil, err
		}
		cen, err := jacobian.ApproximateWith(jacobian.Central, f, x, dx)
		if err != nil {
			return nil, err
		}

		out = append(out, JacobianError{
			Dx:      dx,
			Forward: maxAbsDiff(fwd.RawMatrix().Data, want),
			Central: maxAbsDiff(cen.RawMatrix().Data, want),
		})
	}
	return out, nil
}

// AgreeWithin reports whether a and b match component-wise to within tol.
func AgreeWithin(a, b numeric.Vector, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	return floats.EqualApprox(a, b, tol)
}

func maxAbsDiff(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	diff := make([]float64, len(a))
	floats.SubTo(diff, a, b)
	return floats.Norm(diff, math.Inf(1))
}
