package newton

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/newton/internal/jacobian"
	"github.com/san-kum/newton/internal/numeric"
	"gonum.org/v1/gonum/mat"
)

// Solver finds x with ‖f(x)‖ < Tolerance by Newton-Raphson iteration.
// A Solver is immutable once built; concurrent calls are safe as long as f
// and the Jacobian function are.
type Solver struct {
	f      numeric.Func
	jac    numeric.JacobianFunc
	cfg    Config
	logger *slog.Logger
}

func New(f numeric.Func, cfg Config, opts ...Option) (*Solver, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: nil function", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Solver{
		f:      f,
		cfg:    cfg,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Solver) Config() Config { return s.cfg }

// JacobianSource names where the Jacobian comes from: "analytic", or the
// finite-difference scheme.
func (s *Solver) JacobianSource() string {
	if s.jac != nil {
		return "analytic"
	}
	return s.cfg.Scheme.String()
}

// Residual evaluates f at x and returns the value with its norm.
func (s *Solver) Residual(x numeric.Vector) (numeric.Vector, float64, error) {
	fx, err := s.eval(s.f, x)
	if err != nil {
		return nil, 0, err
	}
	return fx, fx.Norm(), nil
}

// Step takes one Newton step from x. If fx is nil it is computed as f(x),
// otherwise it must equal f(x).
func (s *Solver) Step(x, fx numeric.Vector) (numeric.Vector, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("%w: empty point", numeric.ErrDimensionMismatch)
	}
	f := fromCaller(s.f)
	next, err := s.step(f, s.jacobianFor(f), x, fx)
	if err != nil {
		if raw, ok := callerCause(err); ok {
			return nil, raw
		}
		return nil, err
	}
	return next, nil
}

func (s *Solver) Solve(x0 numeric.Vector) (numeric.Vector, error) {
	res, err := s.Trace(x0)
	if err != nil {
		return nil, err
	}
	return res.Root, nil
}

// SolveScalar is Solve for functions of one real variable.
func (s *Solver) SolveScalar(x0 float64) (float64, error) {
	root, err := s.Solve(numeric.Vector{x0})
	if err != nil {
		return 0, err
	}
	return root[0], nil
}

// Trace runs a solve and returns its full history. On failure the partial
// history is returned alongside the error.
func (s *Solver) Trace(x0 numeric.Vector) (*Result, error) {
	res := &Result{Status: Iterating}
	if len(x0) == 0 {
		res.Status = Failed
		return res, fmt.Errorf("%w: empty initial guess", numeric.ErrDimensionMismatch)
	}

	f := fromCaller(func(x numeric.Vector) (numeric.Vector, error) {
		res.Evaluations++
		return s.f(x)
	})
	jac := s.jacobianFor(f)

	x := x0.Clone()
	for k := 0; k < s.cfg.MaxIterations; k++ {
		fx, err := s.eval(f, x)
		if err != nil {
			return s.fail(res, k, x, math.NaN(), err)
		}

		norm := fx.Norm()
		res.record(x, norm)
		s.logger.Debug("newton.iteration", "iter", k, "residual", norm, "x", []float64(x))

		if norm < s.cfg.Tolerance {
			return s.converge(res, x), nil
		}

		next, err := s.step(f, jac, x, fx)
		if err != nil {
			return s.fail(res, k, x, norm, err)
		}
		x = next
		res.Iterations = k + 1
	}

	fx, err := s.eval(f, x)
	if err != nil {
		return s.fail(res, s.cfg.MaxIterations, x, math.NaN(), err)
	}
	norm := fx.Norm()
	res.record(x, norm)
	if norm < s.cfg.Tolerance {
		return s.converge(res, x), nil
	}

	return s.fail(res, s.cfg.MaxIterations, x, norm, ErrConvergence)
}

func (s *Solver) step(f numeric.Func, jac numeric.JacobianFunc, x, fx numeric.Vector) (numeric.Vector, error) {
	if fx == nil {
		var err error
		if fx, err = s.eval(f, x); err != nil {
			return nil, err
		}
	} else if len(fx) != len(x) {
		return nil, fmt.Errorf("%w: residual has %d components, point has %d", numeric.ErrDimensionMismatch, len(fx), len(x))
	}

	j, err := s.jacobianAt(jac, x)
	if err != nil {
		return nil, err
	}

	h, err := numeric.SolveLinear(j, fx)
	if err != nil {
		if errors.Is(err, numeric.ErrSingular) {
			return nil, fmt.Errorf("%w: %w", ErrSingularJacobian, err)
		}
		return nil, err
	}

	if s.cfg.MaxRadius > 0 {
		if d := h.Norm(); d > s.cfg.MaxRadius {
			return nil, fmt.Errorf("%w: |h| = %g > %g", ErrRadiusExceeded, d, s.cfg.MaxRadius)
		}
	}

	next := x.Sub(h)
	if !next.IsValid() {
		return nil, ErrNonFinite
	}
	return next, nil
}

// jacobianFor picks the Jacobian strategy for f: the analytic function when
// one was supplied, otherwise the configured finite-difference scheme over f.
func (s *Solver) jacobianFor(f numeric.Func) numeric.JacobianFunc {
	if s.jac != nil {
		return fromCallerJacobian(s.jac)
	}
	return jacobian.Source(s.cfg.Scheme, f, s.cfg.Dx)
}

func (s *Solver) jacobianAt(jac numeric.JacobianFunc, x numeric.Vector) (*mat.Dense, error) {
	j, err := jac(x)
	if err != nil {
		return nil, err
	}
	if j == nil || j.IsEmpty() {
		return nil, fmt.Errorf("%w: empty jacobian", numeric.ErrDimensionMismatch)
	}
	if r, c := j.Dims(); r != len(x) || c != len(x) {
		return nil, fmt.Errorf("%w: %dx%d jacobian at %d-dimensional point", numeric.ErrDimensionMismatch, r, c, len(x))
	}
	return j, nil
}

func (s *Solver) eval(f numeric.Func, x numeric.Vector) (numeric.Vector, error) {
	fx, err := f(x)
	if err != nil {
		return nil, err
	}
	if len(fx) != len(x) {
		return nil, fmt.Errorf("%w: f returned %d components for %d inputs", numeric.ErrDimensionMismatch, len(fx), len(x))
	}
	return fx, nil
}

func (s *Solver) converge(res *Result, x numeric.Vector) *Result {
	res.Status = Converged
	res.Root = x
	s.logger.Info("newton.converged",
		"iterations", res.Iterations,
		"evaluations", res.Evaluations,
		"residual", res.Residual,
		"jacobian", s.JacobianSource())
	return res
}

// fail records the terminal status. Errors from caller-supplied functions
// are returned as they were raised; the solver's own are wrapped in SolveError.
func (s *Solver) fail(res *Result, iter int, x numeric.Vector, norm float64, err error) (*Result, error) {
	raw, fromUser := callerCause(err)
	if fromUser {
		res.Status = Failed
	} else {
		res.Status = StatusOf(err)
	}
	s.logger.Info("newton.failed",
		"iteration", iter,
		"status", res.Status.String(),
		"residual", norm,
		"error", err)

	if fromUser {
		return res, raw
	}
	return res, &SolveError{
		Iteration:     iter,
		MaxIterations: s.cfg.MaxIterations,
		Residual:      norm,
		X:             x.Clone(),
		Wrapped:       err,
	}
}
