package newton

import (
	"context"
	"sync"

	"github.com/san-kum/newton/internal/numeric"
)

// Outcome is the result of one solve in a batch.
type Outcome struct {
	Guess  numeric.Vector
	Result *Result
	Err    error
}

// SolveAll solves from every guess concurrently. Outcomes are returned in the
// order of guesses. A cancelled context stops solves that have not started.
func (s *Solver) SolveAll(ctx context.Context, guesses []numeric.Vector) []Outcome {
	outcomes := make([]Outcome, len(guesses))

	var wg sync.WaitGroup
	for i, g := range guesses {
		wg.Add(1)
		go func(idx int, guess numeric.Vector) {
			defer wg.Done()

			outcomes[idx].Guess = guess.Clone()
			select {
			case <-ctx.Done():
				outcomes[idx].Err = ctx.Err()
				return
			default:
			}

			outcomes[idx].Result, outcomes[idx].Err = s.Trace(guess)
		}(i, g)
	}

	wg.Wait()
	return outcomes
}
