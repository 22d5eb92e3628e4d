package newton

import (
	"errors"
	"fmt"

	"github.com/san-kum/newton/internal/numeric"
	"gonum.org/v1/gonum/mat"
)

// Failure modes of a solve. All of them are fatal to the call that hit them.
var (
	// ErrConvergence indicates the residual was still above tolerance after the
	// iteration budget was spent.
	ErrConvergence = errors.New("newton: root not found within iteration limit")

	// ErrSingularJacobian indicates the Newton step could not be computed
	// because the Jacobian is singular at the current iterate.
	ErrSingularJacobian = errors.New("newton: singular jacobian")

	// ErrRadiusExceeded indicates a proposed step longer than the configured radius.
	ErrRadiusExceeded = errors.New("newton: step exceeds maximum radius")

	// ErrNonFinite indicates a step that produced NaN or Inf components.
	ErrNonFinite = errors.New("newton: non-finite iterate")

	// ErrInvalidConfig indicates a solver built with out-of-range settings.
	ErrInvalidConfig = errors.New("newton: invalid configuration")
)

// SolveError carries the solver state at the point of failure.
type SolveError struct {
	Iteration     int
	MaxIterations int
	Residual      float64
	X             numeric.Vector
	Wrapped       error
}

func (e *SolveError) Error() string {
	if errors.Is(e.Wrapped, ErrConvergence) {
		return fmt.Sprintf("newton: root not found within the maximum number of %d iterations (residual %.3e)",
			e.MaxIterations, e.Residual)
	}
	return fmt.Sprintf("newton: iteration %d: %v", e.Iteration, e.Wrapped)
}

func (e *SolveError) Unwrap() error {
	return e.Wrapped
}

// callerError marks an error raised by f or the analytic Jacobian so it can be
// told apart from the solver's own failures, even when both wrap the same
// sentinel.
type callerError struct {
	err error
}

func (e *callerError) Error() string { return e.err.Error() }

func (e *callerError) Unwrap() error { return e.err }

// callerCause returns the caller's original error if err carries one.
func callerCause(err error) (error, bool) {
	var ce *callerError
	if errors.As(err, &ce) {
		return ce.err, true
	}
	return nil, false
}

func fromCaller(f numeric.Func) numeric.Func {
	return func(x numeric.Vector) (numeric.Vector, error) {
		fx, err := f(x)
		if err != nil {
			return nil, &callerError{err: err}
		}
		return fx, nil
	}
}

func fromCallerJacobian(jac numeric.JacobianFunc) numeric.JacobianFunc {
	return func(x numeric.Vector) (*mat.Dense, error) {
		j, err := jac(x)
		if err != nil {
			return nil, &callerError{err: err}
		}
		return j, nil
	}
}
