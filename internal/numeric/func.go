package numeric

import "gonum.org/v1/gonum/mat"

// Func is a vector function f: R^n -> R^n. Errors returned by a Func are
// passed through unchanged by every caller in this module.
type Func func(x Vector) (Vector, error)

// JacobianFunc returns the n×n Jacobian of a Func at x. Rows index output
// components, columns index input components.
type JacobianFunc func(x Vector) (*mat.Dense, error)

// Pure adapts an infallible vector function.
func Pure(f func(x Vector) Vector) Func {
	return func(x Vector) (Vector, error) {
		return f(x), nil
	}
}

// Scalar adapts a function of one real variable to a Func over 1-vectors.
func Scalar(f func(x float64) float64) Func {
	return func(x Vector) (Vector, error) {
		if len(x) != 1 {
			return nil, ErrDimensionMismatch
		}
		return Vector{f(x[0])}, nil
	}
}

// ScalarJacobian adapts a derivative f'(x) to a JacobianFunc returning 1×1 matrices.
func ScalarJacobian(df func(x float64) float64) JacobianFunc {
	return func(x Vector) (*mat.Dense, error) {
		if len(x) != 1 {
			return nil, ErrDimensionMismatch
		}
		return mat.NewDense(1, 1, []float64{df(x[0])}), nil
	}
}
