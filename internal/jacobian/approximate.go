package jacobian

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/newton/internal/numeric"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// ErrInvalidStep indicates a finite-difference step that is not a positive finite number.
var ErrInvalidStep = errors.New("jacobian: step size must be positive and finite")

type Scheme int

const (
	// Forward differences: n+1 evaluations of f, O(dx) truncation error.
	Forward Scheme = iota
	// Central differences: 2n evaluations of f plus one to size the result,
	// O(dx²) truncation error.
	Central
)

func (s Scheme) String() string {
	switch s {
	case Forward:
		return "forward"
	case Central:
		return "central"
	default:
		return fmt.Sprintf("scheme(%d)", int(s))
	}
}

func ParseScheme(name string) (Scheme, error) {
	switch name {
	case "", "forward":
		return Forward, nil
	case "central":
		return Central, nil
	default:
		return 0, fmt.Errorf("unknown jacobian scheme: %s", name)
	}
}

// Approximate returns the forward-difference Jacobian of f at x. Column i is
// (f(x + dx·e_i) - f(x)) / dx. x is not modified.
func Approximate(f numeric.Func, x numeric.Vector, dx float64) (*mat.Dense, error) {
	n, fx, err := origin(f, x, dx)
	if err != nil {
		return nil, err
	}

	jac := mat.NewDense(n, n, nil)
	xp := x.Clone()
	for i := 0; i < n; i++ {
		xp[i] = x[i] + dx
		fp, err := f(xp)
		if err != nil {
			return nil, err
		}
		if len(fp) != n {
			return nil, fmt.Errorf("%w: f returned %d components for %d inputs", numeric.ErrDimensionMismatch, len(fp), n)
		}
		for r := 0; r < n; r++ {
			jac.Set(r, i, (fp[r]-fx[r])/dx)
		}
		xp[i] = x[i]
	}

	return jac, nil
}

// ApproximateWith dispatches on the differencing scheme.
func ApproximateWith(scheme Scheme, f numeric.Func, x numeric.Vector, dx float64) (*mat.Dense, error) {
	switch scheme {
	case Forward:
		return Approximate(f, x, dx)
	case Central:
		return approximateCentral(f, x, dx)
	default:
		return nil, fmt.Errorf("unknown jacobian scheme: %v", scheme)
	}
}

// Source binds f and dx so the approximation can stand in for an analytic Jacobian.
func Source(scheme Scheme, f numeric.Func, dx float64) numeric.JacobianFunc {
	return func(x numeric.Vector) (*mat.Dense, error) {
		return ApproximateWith(scheme, f, x, dx)
	}
}

func approximateCentral(f numeric.Func, x numeric.Vector, dx float64) (*mat.Dense, error) {
	n, _, err := origin(f, x, dx)
	if err != nil {
		return nil, err
	}

	// fd.Jacobian has no error path, so the first failure is kept and the
	// remaining evaluations are poisoned with NaN.
	var evalErr error
	g := func(y, xs []float64) {
		if evalErr != nil {
			fillNaN(y)
			return
		}
		fy, err := f(numeric.Vector(xs))
		if err == nil && len(fy) != len(y) {
			err = fmt.Errorf("%w: f returned %d components for %d inputs", numeric.ErrDimensionMismatch, len(fy), len(y))
		}
		if err != nil {
			evalErr = err
			fillNaN(y)
			return
		}
		copy(y, fy)
	}

	jac := mat.NewDense(n, n, nil)
	fd.Jacobian(jac, g, x.Clone(), &fd.JacobianSettings{
		Formula: fd.Central,
		Step:    dx,
	})
	if evalErr != nil {
		return nil, evalErr
	}
	return jac, nil
}

func origin(f numeric.Func, x numeric.Vector, dx float64) (int, numeric.Vector, error) {
	if dx <= 0 || math.IsNaN(dx) || math.IsInf(dx, 0) {
		return 0, nil, ErrInvalidStep
	}
	n := len(x)
	if n == 0 {
		return 0, nil, fmt.Errorf("%w: empty point", numeric.ErrDimensionMismatch)
	}
	fx, err := f(x)
	if err != nil {
		return 0, nil, err
	}
	if len(fx) != n {
		return 0, nil, fmt.Errorf("%w: f returned %d components for %d inputs", numeric.ErrDimensionMismatch, len(fx), n)
	}
	return n, fx, nil
}

func fillNaN(y []float64) {
	for i := range y {
		y[i] = math.NaN()
	}
}
