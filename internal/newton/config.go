package newton

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/newton/internal/jacobian"
	"github.com/san-kum/newton/internal/numeric"
)

const (
	DefaultTolerance     = 1e-6
	DefaultMaxIterations = 20
	DefaultDx            = 1e-6
)

type Config struct {
	// Tolerance is the convergence threshold on the Euclidean norm of f(x).
	Tolerance     float64
	MaxIterations int
	// Dx is the finite-difference step. Unused with an analytic Jacobian.
	Dx float64
	// MaxRadius caps the length of a single step. Zero disables the cap.
	MaxRadius float64
	Scheme    jacobian.Scheme
}

func DefaultConfig() Config {
	return Config{
		Tolerance:     DefaultTolerance,
		MaxIterations: DefaultMaxIterations,
		Dx:            DefaultDx,
		Scheme:        jacobian.Forward,
	}
}

func (c Config) Validate() error {
	if !(c.Tolerance > 0) || math.IsInf(c.Tolerance, 0) {
		return fmt.Errorf("%w: tolerance must be positive, got %g", ErrInvalidConfig, c.Tolerance)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("%w: max iterations must be positive, got %d", ErrInvalidConfig, c.MaxIterations)
	}
	if !(c.Dx > 0) || math.IsInf(c.Dx, 0) {
		return fmt.Errorf("%w: dx must be positive, got %g", ErrInvalidConfig, c.Dx)
	}
	if !(c.MaxRadius >= 0) {
		return fmt.Errorf("%w: max radius must be non-negative, got %g", ErrInvalidConfig, c.MaxRadius)
	}
	if c.Scheme != jacobian.Forward && c.Scheme != jacobian.Central {
		return fmt.Errorf("%w: unknown jacobian scheme %v", ErrInvalidConfig, c.Scheme)
	}
	return nil
}

type Option func(*Solver)

// WithJacobian installs an analytic Jacobian. A nil function keeps the
// finite-difference approximation.
func WithJacobian(jf numeric.JacobianFunc) Option {
	return func(s *Solver) {
		s.jac = jf
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Solver) {
		if l != nil {
			s.logger = l
		}
	}
}
