package optimization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// Solver tolerances. The budget residual is repaired exactly after the final
// iterate, so only floating-point noise remains; the volatility cap is
// enforced through the penalty terms and audited to capTolerance.
const (
	budgetTolerance = 1e-6
	boundTolerance  = 1e-9
	capTolerance    = 1e-3
)

// penaltySchedule drives the escalation rounds. Each round seeds from the
// previous solution, so the high-penalty rounds only tighten constraint
// satisfaction around an already-good iterate.
var penaltySchedule = []float64{1e3, 1e5, 1e7}

// Optimize maximizes expected portfolio return subject to the assembled
// constraint system: budget equality, per-asset bounds and the optional
// volatility cap.
//
// gonum has no constrained solver, so the constraints are folded into the
// objective as quadratic penalties in coordinate space, bound violations
// included, and the resulting smooth problem is minimized with BFGS, falling
// back to Nelder-Mead when BFGS stalls. Penalizing rather than projecting
// keeps the reported gradient exact everywhere. The feasible region here is
// convex (linear budget, box bounds, convex volatility cap), so a local
// optimum is global.
//
// Malformed inputs return an error before any iteration runs. An infeasible
// or non-converged problem returns Success=false with a status message, not
// an error: callers are expected to branch on the flag.
func Optimize(p Problem) (Result, error) {
	cs, err := AssembleConstraints(p)
	if err != nil {
		return Result{}, err
	}

	n := len(p.Returns)

	if reason, ok := cs.checkBoundsFeasible(); !ok {
		return Result{Success: false, Status: reason}, nil
	}

	// Equal-weight initial guess
	x := make([]float64, n)
	for i := range x {
		x[i] = 1.0 / float64(n)
	}

	solverStatus := "no iterations run"
	converged := false
	for _, penalty := range penaltySchedule {
		problem := optimize.Problem{
			Func: penaltyFunc(cs, p.Returns, penalty),
			Grad: penaltyGrad(cs, p.Returns, penalty),
		}

		res, err := optimize.Minimize(problem, x, &optimize.Settings{}, &optimize.BFGS{})
		if err != nil || res == nil || !acceptedStatus(res.Status) {
			res, err = optimize.Minimize(problem, x, &optimize.Settings{}, &optimize.NelderMead{})
		}
		if err != nil || res == nil {
			solverStatus = fmt.Sprintf("solver error: %v", err)
			continue
		}
		x = res.X
		solverStatus = res.Status.String()
		if acceptedStatus(res.Status) {
			converged = true
		}
	}

	return buildResult(x, converged, solverStatus, cs, p)
}

// buildResult projects the final iterate into the box, repairs the budget and
// audits every constraint. Success requires both an accepted solver
// termination and a clean audit: a feasible iterate that no round converged
// on is still a failure.
func buildResult(x []float64, converged bool, solverStatus string, cs ConstraintSet, p Problem) (Result, error) {
	weights := projectToBounds(x, cs.Bounds)
	repairBudget(weights, cs.Bounds)

	summary, err := Summarize(weights, p.Returns, p.Covariance)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Weights:    weights,
		Return:     summary.Return,
		Volatility: summary.Volatility,
	}

	if !converged {
		result.Status = solverStatus
		return result, nil
	}
	if violation := auditConstraints(weights, summary.Volatility, cs, p); violation != "" {
		result.Status = violation
		return result, nil
	}

	result.Success = true
	result.Status = solverStatus
	return result, nil
}

// penaltyFunc builds the penalized objective at the raw coordinates:
// -(x . r) plus penalty * v^2 for every violated constraint, with box-bound
// violations penalized the same way. Evaluating at x rather than a projection
// of x keeps the function and penaltyGrad consistent; a projected objective
// is flat in clamped directions while its reported gradient is not, which
// stalls line searches on bound-active optima.
func penaltyFunc(cs ConstraintSet, returns []float64, penalty float64) func(x []float64) float64 {
	return func(x []float64) float64 {
		obj := -floats.Dot(x, returns)
		for i, b := range cs.Bounds {
			if d := b.Lower - x[i]; d > 0 {
				obj += penalty * d * d
			}
			if d := x[i] - b.Upper; d > 0 {
				obj += penalty * d * d
			}
		}
		for _, c := range cs.Constraints {
			v := c.Value(x)
			if c.Kind == Inequality && v >= 0 {
				continue
			}
			obj += penalty * v * v
		}
		return obj
	}
}

// penaltyGrad builds the exact gradient of penaltyFunc.
func penaltyGrad(cs ConstraintSet, returns []float64, penalty float64) func(grad, x []float64) {
	return func(grad, x []float64) {
		for i := range grad {
			grad[i] = -returns[i]
		}
		for i, b := range cs.Bounds {
			if d := b.Lower - x[i]; d > 0 {
				grad[i] -= 2 * penalty * d
			}
			if d := x[i] - b.Upper; d > 0 {
				grad[i] += 2 * penalty * d
			}
		}
		cgrad := make([]float64, len(x))
		for _, c := range cs.Constraints {
			v := c.Value(x)
			if c.Kind == Inequality && v >= 0 {
				continue
			}
			c.Grad(cgrad, x)
			for i := range grad {
				grad[i] += 2 * penalty * v * cgrad[i]
			}
		}
	}
}

// acceptedStatus reports whether the solver terminated in a state we treat
// as converged.
func acceptedStatus(status optimize.Status) bool {
	switch status {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence:
		return true
	}
	return false
}

// projectToBounds clamps each weight into its box bound.
func projectToBounds(x []float64, bounds []Bound) []float64 {
	proj := make([]float64, len(x))
	for i := range x {
		proj[i] = math.Max(bounds[i].Lower, math.Min(bounds[i].Upper, x[i]))
	}
	return proj
}

// repairBudget distributes the residual 1 - sum(w) across assets in
// proportion to their remaining bound slack, so the budget holds exactly
// without leaving the box. The bounds feasibility pre-check guarantees
// enough total slack exists.
func repairBudget(w []float64, bounds []Bound) {
	delta := 1.0 - floats.Sum(w)
	if math.Abs(delta) < 1e-15 {
		return
	}

	slack := make([]float64, len(w))
	total := 0.0
	for i := range w {
		if delta > 0 {
			slack[i] = bounds[i].Upper - w[i]
		} else {
			slack[i] = w[i] - bounds[i].Lower
		}
		total += slack[i]
	}
	if total <= 0 {
		return
	}

	scale := delta / total
	for i := range w {
		w[i] += scale * slack[i]
	}
}

// auditConstraints checks the final weights against every constraint and
// returns a non-empty reason on the first violation.
func auditConstraints(w []float64, volatility float64, cs ConstraintSet, p Problem) string {
	sum := floats.Sum(w)
	if math.Abs(sum-1.0) > budgetTolerance {
		return fmt.Sprintf("budget constraint violated: weights sum to %.8f", sum)
	}

	for i, b := range cs.Bounds {
		if w[i] < b.Lower-boundTolerance || w[i] > b.Upper+boundTolerance {
			return fmt.Sprintf("bound violated: asset %d weight %.6f outside [%.4f, %.4f]",
				i, w[i], b.Lower, b.Upper)
		}
	}

	if p.VolatilityCap != nil && volatility > *p.VolatilityCap+capTolerance {
		return fmt.Sprintf("volatility cap violated: %.6f > %.6f", volatility, *p.VolatilityCap)
	}

	return ""
}
