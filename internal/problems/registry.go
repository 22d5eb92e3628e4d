package problems

import (
	"fmt"
	"sort"
)

type constructor func(coeffs []float64) (Problem, error)

type entry struct {
	build       constructor
	defaults    []float64
	description string
	guess       []float64
}

type Registry struct {
	problems map[string]entry
}

func NewRegistry() *Registry {
	r := &Registry{problems: make(map[string]entry)}

	poly := func(c []float64) (Problem, error) { return NewPolynomial(c...) }

	r.problems["polynomial"] = entry{
		build:       poly,
		defaults:    []float64{1, -1, -6},
		description: "p(x) = c0 x^n + ... + cn",
		guess:       []float64{3.5},
	}
	r.problems["linear"] = entry{
		build: func(c []float64) (Problem, error) {
			if len(c) != 2 {
				return nil, fmt.Errorf("%w: linear needs slope and intercept", ErrBadCoefficients)
			}
			return NewPolynomial(c...)
		},
		defaults:    []float64{3, 6},
		description: "a x + b",
		guess:       []float64{2},
	}
	r.problems["cubic"] = entry{
		build: func(c []float64) (Problem, error) {
			if len(c) != 4 {
				return nil, fmt.Errorf("%w: cubic needs 4 coefficients", ErrBadCoefficients)
			}
			return NewPolynomial(c...)
		},
		defaults:    []float64{1, 0, 0, 0},
		description: "a x³ + b x² + c x + d",
		guess:       []float64{5},
	}
	r.problems["bivariate"] = entry{
		build:       func(c []float64) (Problem, error) { return NewBivariateQuadratic(c) },
		defaults:    []float64{1, 1, 0, 0, 0, -4, 0, 0, 0, 0, 1, -1},
		description: "(a x² + b y² + c x + d y + e xy + f, A x² + ... + F)",
		guess:       []float64{2, 0.5},
	}
	r.problems["squares"] = entry{
		build: func(c []float64) (Problem, error) {
			if len(c) != 0 {
				return nil, fmt.Errorf("%w: squares takes no coefficients", ErrBadCoefficients)
			}
			return NewBivariateQuadratic([]float64{1, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0})
		},
		description: "(x², y²)",
		guess:       []float64{0.1, -0.1},
	}
	r.problems["affine"] = entry{
		build:       func(c []float64) (Problem, error) { return NewAffine(c) },
		defaults:    []float64{4, 1, 2, 3, -1, 5},
		description: "A x + b, A row-major then b",
		guess:       []float64{10, -10},
	}
	r.problems["sine"] = entry{
		build:       func(c []float64) (Problem, error) { return NewSinusoid(c) },
		defaults:    []float64{1, 1, 0, -0.5},
		description: "a sin(ω x + φ) + c per component",
		guess:       []float64{0.4},
	}

	return r
}

// Get builds a problem. Empty coeffs select the problem's defaults.
func (r *Registry) Get(name string, coeffs []float64) (Problem, error) {
	e, ok := r.problems[name]
	if !ok {
		return nil, fmt.Errorf("unknown problem: %s", name)
	}
	if len(coeffs) == 0 {
		coeffs = e.defaults
	}
	return e.build(coeffs)
}

// DefaultGuess is an initial guess known to converge for the default coefficients.
func (r *Registry) DefaultGuess(name string) ([]float64, error) {
	e, ok := r.problems[name]
	if !ok {
		return nil, fmt.Errorf("unknown problem: %s", name)
	}
	g := make([]float64, len(e.guess))
	copy(g, e.guess)
	return g, nil
}

func (r *Registry) Describe(name string) string {
	return r.problems[name].description
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.problems))
	for name := range r.problems {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
