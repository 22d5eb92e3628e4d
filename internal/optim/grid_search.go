package optim

import (
	"fmt"

	"github.com/san-kum/newton/internal/newton"
	"github.com/san-kum/newton/internal/numeric"
	"gonum.org/v1/gonum/floats"
)

// GridSearch enumerates initial guesses on a Cartesian grid, one range of
// values per component.
type GridSearch struct {
	ranges [][]float64
}

func NewGridSearch(ranges [][]float64) *GridSearch {
	return &GridSearch{ranges: ranges}
}

// Around builds a grid of count points per component spanning center ± spread.
func Around(center []float64, spread float64, count int) (*GridSearch, error) {
	if count < 1 {
		return nil, fmt.Errorf("grid needs at least one point per component, got %d", count)
	}
	ranges := make([][]float64, len(center))
	for i, c := range center {
		if count == 1 {
			ranges[i] = []float64{c}
			continue
		}
		ranges[i] = floats.Span(make([]float64, count), c-spread, c+spread)
	}
	return NewGridSearch(ranges), nil
}

// Guesses lists every grid point, last component varying fastest.
func (g *GridSearch) Guesses() []numeric.Vector {
	var out []numeric.Vector
	g.searchRecursive(0, make(numeric.Vector, len(g.ranges)), &out)
	return out
}

func (g *GridSearch) searchRecursive(depth int, current numeric.Vector, out *[]numeric.Vector) {
	if depth == len(g.ranges) {
		*out = append(*out, current.Clone())
		return
	}

	for _, val := range g.ranges[depth] {
		current[depth] = val
		g.searchRecursive(depth+1, current, out)
	}
}

// Best picks the converged outcome that took the fewest iterations, breaking
// ties by residual.
func Best(outcomes []newton.Outcome) (newton.Outcome, bool) {
	var best newton.Outcome
	found := false
	for _, o := range outcomes {
		if o.Err != nil || o.Result == nil {
			continue
		}
		if !found ||
			o.Result.Iterations < best.Result.Iterations ||
			(o.Result.Iterations == best.Result.Iterations && o.Result.Residual < best.Result.Residual) {
			best = o
			found = true
		}
	}
	return best, found
}
