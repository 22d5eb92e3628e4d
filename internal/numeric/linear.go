package numeric

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// SolveLinear solves a·h = b for h. The matrix must be square with the same
// dimension as b. Singular or numerically singular systems return ErrSingular.
func SolveLinear(a *mat.Dense, b Vector) (Vector, error) {
	if a == nil || a.IsEmpty() {
		return nil, ErrDimensionMismatch
	}
	r, c := a.Dims()
	if r != c || r != len(b) {
		return nil, fmt.Errorf("%w: %dx%d matrix, %d-vector", ErrDimensionMismatch, r, c, len(b))
	}

	if r == 1 {
		d := a.At(0, 0)
		if d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			return nil, ErrSingular
		}
		return Vector{b[0] / d}, nil
	}

	var lu mat.LU
	lu.Factorize(a)

	var h mat.VecDense
	if err := lu.SolveVecTo(&h, false, mat.NewVecDense(r, b.Clone())); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			return nil, fmt.Errorf("%w (condition number %g)", ErrSingular, float64(cond))
		}
		return nil, err
	}

	out := make(Vector, r)
	for i := range out {
		out[i] = h.AtVec(i)
	}
	return out, nil
}
