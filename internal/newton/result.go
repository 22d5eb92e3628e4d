package newton

import (
	"errors"

	"github.com/san-kum/newton/internal/numeric"
)

type Status int

const (
	Iterating Status = iota
	Converged
	Diverged
	RadiusExceeded
	Singular
	// Failed covers errors raised by f or the Jacobian function.
	Failed
)

func (s Status) String() string {
	switch s {
	case Iterating:
		return "iterating"
	case Converged:
		return "converged"
	case Diverged:
		return "diverged"
	case RadiusExceeded:
		return "radius_exceeded"
	case Singular:
		return "singular"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the history of one solve. Iterates[k] is the estimate whose
// residual norm is Residuals[k]; Iterates[0] is the initial guess.
type Result struct {
	Root        numeric.Vector
	Status      Status
	Iterations  int
	Evaluations int
	Residual    float64
	Iterates    []numeric.Vector
	Residuals   []float64
}

func (r *Result) record(x numeric.Vector, norm float64) {
	r.Iterates = append(r.Iterates, x.Clone())
	r.Residuals = append(r.Residuals, norm)
	r.Residual = norm
}

// StatusOf maps a solve error to the status it terminates with.
func StatusOf(err error) Status {
	switch {
	case errors.Is(err, ErrConvergence):
		return Diverged
	case errors.Is(err, ErrRadiusExceeded):
		return RadiusExceeded
	case errors.Is(err, ErrSingularJacobian):
		return Singular
	default:
		return Failed
	}
}
