package numeric

import "errors"

var (
	// ErrSingular indicates a linear system whose matrix is exactly or numerically singular.
	ErrSingular = errors.New("numeric: singular matrix")

	// ErrDimensionMismatch indicates operands whose shapes do not agree.
	ErrDimensionMismatch = errors.New("numeric: dimension mismatch")
)
