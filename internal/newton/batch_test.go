package newton_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/newton/internal/newton"
	"github.com/san-kum/newton/internal/numeric"
)

var _ = Describe("Solver", func() {
	var solver *newton.Solver

	BeforeEach(func() {
		f := numeric.Scalar(func(x float64) float64 { return x*x - x - 6 })
		df := numeric.ScalarJacobian(func(x float64) float64 { return 2*x - 1 })

		var err error
		solver, err = newton.New(f, newton.DefaultConfig(), newton.WithJacobian(df))
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("SolveAll", func() {
		It("solves every guess independently and keeps their order", func() {
			guesses := []numeric.Vector{{3.5}, {-1.5}, {10}, {-10}}
			outcomes := solver.SolveAll(context.Background(), guesses)

			Expect(outcomes).To(HaveLen(4))
			expected := []float64{3, -2, 3, -2}
			for i, out := range outcomes {
				Expect(out.Err).NotTo(HaveOccurred())
				Expect(out.Guess).To(Equal(guesses[i]))
				Expect(out.Result.Status).To(Equal(newton.Converged))
				Expect(out.Result.Root[0]).To(BeNumerically("~", expected[i], 1e-6))
			}
		})

		It("matches sequential solves", func() {
			guesses := make([]numeric.Vector, 32)
			for i := range guesses {
				guesses[i] = numeric.Vector{-8 + float64(i)*0.5 + 0.25}
			}

			outcomes := solver.SolveAll(context.Background(), guesses)
			for i, out := range outcomes {
				res, err := solver.Trace(guesses[i])
				if err != nil {
					Expect(out.Err).To(MatchError(err.Error()))
					continue
				}
				Expect(out.Err).NotTo(HaveOccurred())
				Expect(out.Result.Root).To(Equal(res.Root))
				Expect(out.Result.Iterations).To(Equal(res.Iterations))
			}
		})

		It("reports cancellation for solves that never started", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			outcomes := solver.SolveAll(ctx, []numeric.Vector{{3.5}, {-1.5}})
			for _, out := range outcomes {
				Expect(out.Err).To(MatchError(context.Canceled))
				Expect(out.Result).To(BeNil())
			}
		})
	})

	Describe("Trace", func() {
		It("records a residual for every iterate", func() {
			res, err := solver.Trace(numeric.Vector{3.5})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Iterates).To(HaveLen(len(res.Residuals)))
			Expect(res.Iterates[0]).To(Equal(numeric.Vector{3.5}))
			Expect(res.Residual).To(BeNumerically("<", newton.DefaultTolerance))
		})

		It("shows quadratic decrease of the residual near a simple root", func() {
			res, err := solver.Trace(numeric.Vector{3.5})
			Expect(err).NotTo(HaveOccurred())
			Expect(len(res.Residuals)).To(BeNumerically(">=", 3))

			for k := 1; k < len(res.Residuals); k++ {
				Expect(res.Residuals[k]).To(BeNumerically("<", res.Residuals[k-1]))
			}
			r := res.Residuals
			Expect(r[2]).To(BeNumerically("<", math.Pow(r[1], 2)))
		})
	})
})
