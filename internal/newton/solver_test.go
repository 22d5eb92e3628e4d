package newton

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/san-kum/newton/internal/jacobian"
	"github.com/san-kum/newton/internal/numeric"
	"gonum.org/v1/gonum/mat"
)

// The explicit conversions keep the compiler from fusing multiply-adds, so
// the exact-arithmetic assertions hold on every architecture.
func affine(a, b float64) numeric.Func {
	return numeric.Scalar(func(x float64) float64 { return float64(a*x) + b })
}

func quadratic(x float64) float64 { return float64(x*x) - x - 6 }

func squares(x numeric.Vector) numeric.Vector {
	return numeric.Vector{x[0] * x[0], x[1] * x[1]}
}

func squaresJacobian(x numeric.Vector) (*mat.Dense, error) {
	return mat.NewDense(2, 2, []float64{
		2 * x[0], 0,
		0, 2 * x[1],
	}), nil
}

func mustSolver(t *testing.T, f numeric.Func, cfg Config, opts ...Option) *Solver {
	t.Helper()
	s, err := New(f, cfg, opts...)
	if err != nil {
		t.Fatalf("failed to build solver: %v", err)
	}
	return s
}

func TestSolveLinearExact(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tolerance = 1e-15
	cfg.MaxIterations = 2

	s := mustSolver(t, affine(3, 6), cfg)
	x, err := s.SolveScalar(2.0)
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	if x != -2.0 {
		t.Errorf("expected -2.0, got %.17g", x)
	}
}

func TestAffineConvergesInOneStep(t *testing.T) {
	tests := []struct {
		name string
		a, b float64
		x0   float64
	}{
		{"positive slope", 3, 6, 2},
		{"negative slope", -0.5, 4, -100},
		{"far guess", 7, -1, 1e6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Tolerance = 1e-9
			s := mustSolver(t, affine(tt.a, tt.b), cfg,
				WithJacobian(numeric.ScalarJacobian(func(float64) float64 { return tt.a })))

			res, err := s.Trace(numeric.Vector{tt.x0})
			if err != nil {
				t.Fatalf("solve failed: %v", err)
			}
			if res.Iterations != 1 {
				t.Errorf("expected 1 step, got %d", res.Iterations)
			}
			if want := -tt.b / tt.a; math.Abs(res.Root[0]-want) > 1e-9 {
				t.Errorf("expected root %g, got %g", want, res.Root[0])
			}
		})
	}
}

func TestAffineMatrixConvergesInOneStep(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{
		4, 1,
		2, 3,
	})
	b := numeric.Vector{-1, 5}
	f := numeric.Pure(func(x numeric.Vector) numeric.Vector {
		return numeric.Vector{
			a.At(0, 0)*x[0] + a.At(0, 1)*x[1] + b[0],
			a.At(1, 0)*x[0] + a.At(1, 1)*x[1] + b[1],
		}
	})
	jac := func(numeric.Vector) (*mat.Dense, error) { return mat.DenseCopyOf(a), nil }

	cfg := DefaultConfig()
	cfg.Tolerance = 1e-10
	s := mustSolver(t, f, cfg, WithJacobian(jac))

	res, err := s.Trace(numeric.Vector{10, -10})
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	if res.Iterations != 1 {
		t.Errorf("expected 1 step, got %d", res.Iterations)
	}
}

func TestSolveQuadraticRoots(t *testing.T) {
	tests := []struct {
		guess    float64
		expected float64
	}{
		{3.5, 3.0},
		{-1.5, -2.0},
	}

	for _, analytic := range []bool{false, true} {
		for _, tt := range tests {
			var opts []Option
			if analytic {
				opts = append(opts, WithJacobian(numeric.ScalarJacobian(func(x float64) float64 { return 2*x - 1 })))
			}
			s := mustSolver(t, numeric.Scalar(quadratic), DefaultConfig(), opts...)

			x, err := s.SolveScalar(tt.guess)
			if err != nil {
				t.Fatalf("guess %g (analytic=%v): %v", tt.guess, analytic, err)
			}
			if math.Abs(x-tt.expected) > 1e-6 {
				t.Errorf("guess %g (analytic=%v): expected %g, got %g", tt.guess, analytic, tt.expected, x)
			}
		}
	}
}

func TestSolveSquares(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tolerance = 1e-13
	cfg.MaxIterations = 50

	tests := []struct {
		name string
		opts []Option
		cfg  func(Config) Config
	}{
		{"analytic", []Option{WithJacobian(squaresJacobian)}, func(c Config) Config { return c }},
		{"central", nil, func(c Config) Config { c.Scheme = jacobian.Central; return c }},
		{"forward", nil, func(c Config) Config { return c }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mustSolver(t, numeric.Pure(squares), tt.cfg(cfg), tt.opts...)
			x, err := s.Solve(numeric.Vector{0.1, -0.1})
			if err != nil {
				t.Fatalf("solve failed: %v", err)
			}
			if x.Norm() > 1e-6 {
				t.Errorf("expected root near origin, got %v", x)
			}
		})
	}
}

func TestFiniteDifferenceAgreesWithAnalytic(t *testing.T) {
	f := numeric.Pure(func(x numeric.Vector) numeric.Vector {
		return numeric.Vector{
			x[0]*x[0] + x[1]*x[1] - 4,
			math.Exp(x[0]) + x[1] - 1,
		}
	})
	jac := func(x numeric.Vector) (*mat.Dense, error) {
		return mat.NewDense(2, 2, []float64{
			2 * x[0], 2 * x[1],
			math.Exp(x[0]), 1,
		}), nil
	}

	cfg := DefaultConfig()
	cfg.Tolerance = 1e-10
	guess := numeric.Vector{1, -1.7}

	fdRoot, err := mustSolver(t, f, cfg).Solve(guess)
	if err != nil {
		t.Fatalf("finite difference solve failed: %v", err)
	}
	anRoot, err := mustSolver(t, f, cfg, WithJacobian(jac)).Solve(guess)
	if err != nil {
		t.Fatalf("analytic solve failed: %v", err)
	}

	if d := fdRoot.Sub(anRoot).Norm(); d > 10*cfg.Dx {
		t.Errorf("roots disagree by %g: %v vs %v", d, fdRoot, anRoot)
	}
}

func TestStepAtRootIsSmall(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tolerance = 1e-10
	s := mustSolver(t, numeric.Scalar(quadratic), cfg)

	root, err := s.Solve(numeric.Vector{3.5})
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}

	next, err := s.Step(root, nil)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if h := next.Sub(root).Norm(); h > 10*cfg.Tolerance {
		t.Errorf("expected negligible displacement at root, got %g", h)
	}
}

func TestStepUsesSuppliedResidual(t *testing.T) {
	s := mustSolver(t, affine(3, 6), DefaultConfig(),
		WithJacobian(numeric.ScalarJacobian(func(float64) float64 { return 3 })))

	// A residual of 3 at x=0 moves the estimate by exactly 1.
	next, err := s.Step(numeric.Vector{0}, numeric.Vector{3})
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if next[0] != -1 {
		t.Errorf("expected -1, got %g", next[0])
	}
}

func TestMaxIterationsExceeded(t *testing.T) {
	cube := numeric.Scalar(func(x float64) float64 { return x * x * x })
	cfg := DefaultConfig()
	cfg.Tolerance = 1e-15
	cfg.MaxIterations = 2

	s := mustSolver(t, cube, cfg)
	res, err := s.Trace(numeric.Vector{5.0})
	if !errors.Is(err, ErrConvergence) {
		t.Fatalf("expected ErrConvergence, got %v", err)
	}

	var solveErr *SolveError
	if !errors.As(err, &solveErr) {
		t.Fatalf("expected *SolveError, got %T", err)
	}
	if solveErr.MaxIterations != 2 {
		t.Errorf("expected iteration limit 2 in error, got %d", solveErr.MaxIterations)
	}
	if res.Status != Diverged {
		t.Errorf("expected status diverged, got %s", res.Status)
	}
	if len(res.Residuals) != 3 {
		t.Errorf("expected 3 recorded residuals, got %d", len(res.Residuals))
	}
}

func TestLateConvergenceIsSuccess(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxIterations = 1
	s := mustSolver(t, affine(3, 6), cfg,
		WithJacobian(numeric.ScalarJacobian(func(float64) float64 { return 3 })))

	res, err := s.Trace(numeric.Vector{2})
	if err != nil {
		t.Fatalf("expected convergence on final check, got %v", err)
	}
	if res.Status != Converged || res.Root[0] != -2 {
		t.Errorf("expected converged at -2, got %s at %v", res.Status, res.Root)
	}
	if res.Iterations != 1 {
		t.Errorf("expected 1 iteration, got %d", res.Iterations)
	}
}

func TestRadiusExceeded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRadius = 1.0

	// The first step from 2 has length 4.
	s := mustSolver(t, affine(3, 6), cfg)
	res, err := s.Trace(numeric.Vector{2})
	if !errors.Is(err, ErrRadiusExceeded) {
		t.Fatalf("expected ErrRadiusExceeded, got %v", err)
	}
	if res.Status != RadiusExceeded {
		t.Errorf("expected status radius_exceeded, got %s", res.Status)
	}
	if res.Iterations != 0 {
		t.Errorf("step should be rejected before it is applied, got %d iterations", res.Iterations)
	}

	if _, err := s.Step(numeric.Vector{2}, nil); !errors.Is(err, ErrRadiusExceeded) {
		t.Errorf("expected Step to reject the oversized correction, got %v", err)
	}
}

func TestRadiusUsesFullDisplacement(t *testing.T) {
	// Step from (1, 1) is (1, 1): each coordinate fits a radius of 1.2 but the norm does not.
	f := numeric.Pure(func(x numeric.Vector) numeric.Vector { return x })
	jac := func(numeric.Vector) (*mat.Dense, error) {
		return mat.NewDense(2, 2, []float64{1, 0, 0, 1}), nil
	}

	cfg := DefaultConfig()
	cfg.MaxRadius = 1.2
	s := mustSolver(t, f, cfg, WithJacobian(jac))
	if _, err := s.Solve(numeric.Vector{1, 1}); !errors.Is(err, ErrRadiusExceeded) {
		t.Errorf("expected ErrRadiusExceeded, got %v", err)
	}

	cfg.MaxRadius = 1.5
	s = mustSolver(t, f, cfg, WithJacobian(jac))
	if _, err := s.Solve(numeric.Vector{1, 1}); err != nil {
		t.Errorf("step within radius rejected: %v", err)
	}
}

func TestSingularJacobian(t *testing.T) {
	f := numeric.Pure(func(x numeric.Vector) numeric.Vector {
		return numeric.Vector{x[0] + x[1] + 1, x[0] + x[1] + 1}
	})

	s := mustSolver(t, f, DefaultConfig())
	res, err := s.Trace(numeric.Vector{1, 2})
	if !errors.Is(err, ErrSingularJacobian) {
		t.Fatalf("expected ErrSingularJacobian, got %v", err)
	}
	if !errors.Is(err, numeric.ErrSingular) {
		t.Error("expected underlying linear algebra error to be preserved")
	}
	if res.Status != Singular {
		t.Errorf("expected status singular, got %s", res.Status)
	}

	scalar := mustSolver(t, numeric.Scalar(func(x float64) float64 { return x*x + 1 }), DefaultConfig(),
		WithJacobian(numeric.ScalarJacobian(func(x float64) float64 { return 2 * x })))
	if _, err := scalar.SolveScalar(0); !errors.Is(err, ErrSingularJacobian) {
		t.Errorf("expected ErrSingularJacobian for zero derivative, got %v", err)
	}
}

func TestUserErrorsPropagateUnchanged(t *testing.T) {
	boom := errors.New("boom")

	failing := func(numeric.Vector) (numeric.Vector, error) { return nil, boom }
	s := mustSolver(t, failing, DefaultConfig())
	res, err := s.Trace(numeric.Vector{1})
	if err != boom {
		t.Errorf("expected function error unchanged, got %v", err)
	}
	if res.Status != Failed {
		t.Errorf("expected status failed, got %s", res.Status)
	}

	badJac := func(numeric.Vector) (*mat.Dense, error) { return nil, boom }
	s = mustSolver(t, affine(3, 6), DefaultConfig(), WithJacobian(badJac))
	if _, err := s.Solve(numeric.Vector{1}); err != boom {
		t.Errorf("expected jacobian error unchanged, got %v", err)
	}
}

func TestWrappedSentinelFromFunctionIsNotRewrapped(t *testing.T) {
	shapeErr := fmt.Errorf("%w: caller-side shape check", numeric.ErrDimensionMismatch)
	f := func(numeric.Vector) (numeric.Vector, error) { return nil, shapeErr }

	s := mustSolver(t, f, DefaultConfig())
	res, err := s.Trace(numeric.Vector{1})
	if err != shapeErr {
		t.Errorf("expected function error unchanged, got %T %v", err, err)
	}
	if res.Status != Failed {
		t.Errorf("expected status failed, got %s", res.Status)
	}
	if _, err := s.Step(numeric.Vector{1}, nil); err != shapeErr {
		t.Errorf("expected Step to return the function error unchanged, got %T %v", err, err)
	}

	radiusErr := fmt.Errorf("caller: %w", ErrRadiusExceeded)
	jac := func(numeric.Vector) (*mat.Dense, error) { return nil, radiusErr }
	s = mustSolver(t, affine(3, 6), DefaultConfig(), WithJacobian(jac))
	res, err = s.Trace(numeric.Vector{1})
	if err != radiusErr {
		t.Errorf("expected jacobian error unchanged, got %T %v", err, err)
	}
	if res.Status != Failed {
		t.Errorf("expected status failed, got %s", res.Status)
	}

	// an error raised inside the forward-difference evaluations is the caller's too
	calls := 0
	late := func(x numeric.Vector) (numeric.Vector, error) {
		calls++
		if calls > 1 {
			return nil, shapeErr
		}
		return numeric.Vector{x[0] - 1}, nil
	}
	s = mustSolver(t, late, DefaultConfig())
	if _, err := s.Solve(numeric.Vector{5}); err != shapeErr {
		t.Errorf("expected error from the difference quotient unchanged, got %T %v", err, err)
	}
}

func TestDimensionMismatch(t *testing.T) {
	wide := numeric.Pure(func(x numeric.Vector) numeric.Vector { return numeric.Vector{x[0], x[0]} })
	s := mustSolver(t, wide, DefaultConfig())
	if _, err := s.Solve(numeric.Vector{1}); !errors.Is(err, numeric.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}

	badJac := func(numeric.Vector) (*mat.Dense, error) { return mat.NewDense(2, 2, nil), nil }
	s = mustSolver(t, affine(3, 6), DefaultConfig(), WithJacobian(badJac))
	if _, err := s.Solve(numeric.Vector{1}); !errors.Is(err, numeric.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch for wrong jacobian shape, got %v", err)
	}

	if _, err := s.Solve(nil); !errors.Is(err, numeric.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch for empty guess, got %v", err)
	}
}

func TestEvaluationCount(t *testing.T) {
	s := mustSolver(t, affine(3, 6), DefaultConfig())
	res, err := s.Trace(numeric.Vector{2})
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	// residual at x0, two for the forward jacobian, residual at x1
	if res.Evaluations != 4 {
		t.Errorf("expected 4 evaluations, got %d", res.Evaluations)
	}
	if len(res.Iterates) != len(res.Residuals) {
		t.Errorf("history length mismatch: %d iterates, %d residuals", len(res.Iterates), len(res.Residuals))
	}
}

func TestSolveDoesNotMutateGuess(t *testing.T) {
	s := mustSolver(t, numeric.Pure(squares), DefaultConfig(), WithJacobian(squaresJacobian))
	guess := numeric.Vector{0.1, -0.1}
	if _, err := s.Solve(guess); err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	if guess[0] != 0.1 || guess[1] != -0.1 {
		t.Errorf("guess mutated: %v", guess)
	}
}

func TestInvalidConfig(t *testing.T) {
	f := affine(1, 0)
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero tolerance", func(c *Config) { c.Tolerance = 0 }},
		{"negative tolerance", func(c *Config) { c.Tolerance = -1 }},
		{"NaN tolerance", func(c *Config) { c.Tolerance = math.NaN() }},
		{"zero iterations", func(c *Config) { c.MaxIterations = 0 }},
		{"zero dx", func(c *Config) { c.Dx = 0 }},
		{"negative radius", func(c *Config) { c.MaxRadius = -1 }},
		{"unknown scheme", func(c *Config) { c.Scheme = jacobian.Scheme(9) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if _, err := New(f, cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	if _, err := New(nil, DefaultConfig()); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for nil function, got %v", err)
	}
}

func TestJacobianSource(t *testing.T) {
	s := mustSolver(t, affine(1, 0), DefaultConfig())
	if s.JacobianSource() != "forward" {
		t.Errorf("expected forward, got %s", s.JacobianSource())
	}

	s = mustSolver(t, affine(1, 0), DefaultConfig(),
		WithJacobian(numeric.ScalarJacobian(func(float64) float64 { return 1 })))
	if s.JacobianSource() != "analytic" {
		t.Errorf("expected analytic, got %s", s.JacobianSource())
	}
}

func TestLoggerReceivesIterations(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s := mustSolver(t, affine(3, 6), DefaultConfig(), WithLogger(logger))
	if _, err := s.SolveScalar(2); err != nil {
		t.Fatalf("solve failed: %v", err)
	}

	out := buf.String()
	if n := strings.Count(out, `"msg":"newton.iteration"`); n != 2 {
		t.Errorf("expected 2 iteration records, got %d:\n%s", n, out)
	}
	if !strings.Contains(out, `"msg":"newton.converged"`) {
		t.Errorf("missing converged record:\n%s", out)
	}
}
