// Package analysis measures how a solve behaved.
//
//   - [ConvergenceOrder]: estimated order q from successive residual norms
//   - [ContractionRates]: ratios ‖f(x_{k+1})‖ / ‖f(x_k)‖
//   - [CompareJacobians]: finite-difference error against an analytic Jacobian
//
// # Convergence Order
//
// Newton's method near a simple root converges quadratically:
//
//	q := analysis.ConvergenceOrder(result.Residuals)
//	if q > 1.8 {
//	    // quadratic regime
//	}
package analysis
