package problems

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/newton/internal/numeric"
	"gonum.org/v1/gonum/mat"
)

// ErrBadCoefficients indicates a coefficient list of the wrong length or shape.
var ErrBadCoefficients = errors.New("problems: bad coefficients")

// Problem is a sample vector function with a known analytic Jacobian.
type Problem interface {
	Name() string
	Dim() int
	Eval(x numeric.Vector) (numeric.Vector, error)
	Jacobian(x numeric.Vector) (*mat.Dense, error)
}

func checkDim(p Problem, x numeric.Vector) error {
	if len(x) != p.Dim() {
		return fmt.Errorf("%w: %s expects %d inputs, got %d", numeric.ErrDimensionMismatch, p.Name(), p.Dim(), len(x))
	}
	return nil
}

func joinFloats(vals []float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return strings.Join(parts, ", ")
}

// Polynomial is p(x) = c[0]x^(n-1) + ... + c[n-1], coefficients highest degree first.
type Polynomial struct {
	Coeffs []float64
}

func NewPolynomial(coeffs ...float64) (*Polynomial, error) {
	if len(coeffs) == 0 {
		return nil, fmt.Errorf("%w: polynomial needs at least one coefficient", ErrBadCoefficients)
	}
	c := make([]float64, len(coeffs))
	copy(c, coeffs)
	return &Polynomial{Coeffs: c}, nil
}

func (p *Polynomial) Name() string { return "polynomial" }
func (p *Polynomial) Dim() int     { return 1 }

func (p *Polynomial) String() string {
	return fmt.Sprintf("Polynomial(%s)", joinFloats(p.Coeffs))
}

func (p *Polynomial) Value(x float64) float64 {
	ans := 0.0
	for _, c := range p.Coeffs {
		ans = ans*x + c
	}
	return ans
}

func (p *Polynomial) Derivative(x float64) float64 {
	deg := len(p.Coeffs) - 1
	ans := 0.0
	for i, c := range p.Coeffs[:deg] {
		ans = ans*x + float64(deg-i)*c
	}
	return ans
}

func (p *Polynomial) Eval(x numeric.Vector) (numeric.Vector, error) {
	if err := checkDim(p, x); err != nil {
		return nil, err
	}
	return numeric.Vector{p.Value(x[0])}, nil
}

func (p *Polynomial) Jacobian(x numeric.Vector) (*mat.Dense, error) {
	if err := checkDim(p, x); err != nil {
		return nil, err
	}
	return mat.NewDense(1, 1, []float64{p.Derivative(x[0])}), nil
}

// BivariateQuadratic is f(x, y) = (u, v) with
//
//	u = a x² + b y² + c x + d y + e xy + f   for U = [a b c d e f]
//	v = A x² + B y² + C x + D y + E xy + F   for V = [A B C D E F]
type BivariateQuadratic struct {
	U, V [6]float64
}

func NewBivariateQuadratic(coeffs []float64) (*BivariateQuadratic, error) {
	if len(coeffs) != 12 {
		return nil, fmt.Errorf("%w: bivariate quadratic needs 12 coefficients, got %d", ErrBadCoefficients, len(coeffs))
	}
	q := &BivariateQuadratic{}
	copy(q.U[:], coeffs[:6])
	copy(q.V[:], coeffs[6:])
	return q, nil
}

func (q *BivariateQuadratic) Name() string { return "bivariate" }
func (q *BivariateQuadratic) Dim() int     { return 2 }

func (q *BivariateQuadratic) String() string {
	return fmt.Sprintf("BivariateQuadratic(%s)(%s)", joinFloats(q.U[:]), joinFloats(q.V[:]))
}

func quad(c [6]float64, x, y float64) float64 {
	return c[0]*x*x + c[1]*y*y + c[2]*x + c[3]*y + c[4]*x*y + c[5]
}

func (q *BivariateQuadratic) Eval(xs numeric.Vector) (numeric.Vector, error) {
	if err := checkDim(q, xs); err != nil {
		return nil, err
	}
	x, y := xs[0], xs[1]
	return numeric.Vector{quad(q.U, x, y), quad(q.V, x, y)}, nil
}

func (q *BivariateQuadratic) Jacobian(xs numeric.Vector) (*mat.Dense, error) {
	if err := checkDim(q, xs); err != nil {
		return nil, err
	}
	x, y := xs[0], xs[1]
	u, v := q.U, q.V
	return mat.NewDense(2, 2, []float64{
		2*u[0]*x + u[2] + u[4]*y, 2*u[1]*y + u[3] + u[4]*x,
		2*v[0]*x + v[2] + v[4]*y, 2*v[1]*y + v[3] + v[4]*x,
	}), nil
}

// Affine is f(x) = A·x + b.
type Affine struct {
	A *mat.Dense
	B numeric.Vector
}

// NewAffine takes A row-major followed by b, n²+n values in total.
func NewAffine(coeffs []float64) (*Affine, error) {
	n := int(math.Round((math.Sqrt(1+4*float64(len(coeffs))) - 1) / 2))
	if n < 1 || n*n+n != len(coeffs) {
		return nil, fmt.Errorf("%w: affine map needs n²+n coefficients, got %d", ErrBadCoefficients, len(coeffs))
	}
	a := make([]float64, n*n)
	copy(a, coeffs[:n*n])
	b := make(numeric.Vector, n)
	copy(b, coeffs[n*n:])
	return &Affine{A: mat.NewDense(n, n, a), B: b}, nil
}

func (a *Affine) Name() string { return "affine" }

func (a *Affine) Dim() int {
	return len(a.B)
}

func (a *Affine) String() string {
	return fmt.Sprintf("Affine(A=%v, b=%v)", mat.Formatted(a.A, mat.Squeeze()), []float64(a.B))
}

func (a *Affine) Eval(x numeric.Vector) (numeric.Vector, error) {
	if err := checkDim(a, x); err != nil {
		return nil, err
	}
	var y mat.VecDense
	y.MulVec(a.A, mat.NewVecDense(len(x), x.Clone()))
	out := make(numeric.Vector, len(x))
	for i := range out {
		out[i] = y.AtVec(i) + a.B[i]
	}
	return out, nil
}

func (a *Affine) Jacobian(x numeric.Vector) (*mat.Dense, error) {
	if err := checkDim(a, x); err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(a.A), nil
}

// Sinusoid applies a·sin(ωx + φ) + c to every component of an N-vector.
type Sinusoid struct {
	Amplitude, Frequency, Phase, Offset float64
	N                                   int
}

// NewSinusoid takes [amplitude, frequency, phase, offset] and an optional dimension.
func NewSinusoid(coeffs []float64) (*Sinusoid, error) {
	if len(coeffs) != 4 && len(coeffs) != 5 {
		return nil, fmt.Errorf("%w: sinusoid needs amplitude, frequency, phase, offset[, dim]", ErrBadCoefficients)
	}
	s := &Sinusoid{
		Amplitude: coeffs[0],
		Frequency: coeffs[1],
		Phase:     coeffs[2],
		Offset:    coeffs[3],
		N:         1,
	}
	if len(coeffs) == 5 {
		s.N = int(coeffs[4])
		if s.N < 1 || float64(s.N) != coeffs[4] {
			return nil, fmt.Errorf("%w: sinusoid dimension must be a positive integer, got %g", ErrBadCoefficients, coeffs[4])
		}
	}
	return s, nil
}

func (s *Sinusoid) Name() string { return "sine" }
func (s *Sinusoid) Dim() int     { return s.N }

func (s *Sinusoid) String() string {
	return fmt.Sprintf("Sinusoid(%g sin(%g x + %g) + %g, n=%d)", s.Amplitude, s.Frequency, s.Phase, s.Offset, s.N)
}

func (s *Sinusoid) Eval(x numeric.Vector) (numeric.Vector, error) {
	if err := checkDim(s, x); err != nil {
		return nil, err
	}
	out := make(numeric.Vector, len(x))
	for i, xi := range x {
		out[i] = s.Amplitude*math.Sin(s.Frequency*xi+s.Phase) + s.Offset
	}
	return out, nil
}

func (s *Sinusoid) Jacobian(x numeric.Vector) (*mat.Dense, error) {
	if err := checkDim(s, x); err != nil {
		return nil, err
	}
	n := len(x)
	jac := mat.NewDense(n, n, nil)
	for i, xi := range x {
		jac.Set(i, i, s.Amplitude*s.Frequency*math.Cos(s.Frequency*xi+s.Phase))
	}
	return jac, nil
}
