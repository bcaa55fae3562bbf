package optimization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// symmetryTolerance is the maximum allowed asymmetry in the covariance matrix.
const symmetryTolerance = 1e-9

// ConstraintKind distinguishes equality constraints (value must be 0) from
// inequality constraints (value must be >= 0).
type ConstraintKind int

const (
	Equality ConstraintKind = iota
	Inequality
)

// Constraint is one scalar constraint on the weight vector. The solver
// consumes all constraints uniformly through Value and Grad.
type Constraint struct {
	Name  string
	Kind  ConstraintKind
	Value func(w []float64) float64
	Grad  func(dst, w []float64) // gradient of Value, written into dst
}

// ConstraintSet is the fully assembled constraint system for one problem:
// box bounds per asset plus the list of scalar constraints.
type ConstraintSet struct {
	Bounds      []Bound
	Constraints []Constraint
}

// AssembleConstraints validates a problem and builds its constraint system:
//   - budget equality sum(w) - 1 = 0, always present
//   - volatility cap inequality cap^2 - w'Sigma w >= 0, only when a cap is set
//     (expressed in variance space so the constraint stays smooth everywhere)
//   - per-asset box bounds, defaulting to (0, 1) when none are given
func AssembleConstraints(p Problem) (ConstraintSet, error) {
	if err := validateProblem(p); err != nil {
		return ConstraintSet{}, err
	}

	n := len(p.Returns)

	bounds := p.Bounds
	if len(bounds) == 0 {
		bounds = defaultBounds(n)
	}

	constraints := []Constraint{budgetConstraint()}

	if p.VolatilityCap != nil {
		sigma := mat.NewDense(n, n, nil)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				sigma.Set(i, j, p.Covariance[i][j])
			}
		}
		constraints = append(constraints, volatilityCapConstraint(sigma, *p.VolatilityCap))
	}

	return ConstraintSet{
		Bounds:      bounds,
		Constraints: constraints,
	}, nil
}

// budgetConstraint enforces full capital deployment: sum(w) - 1 = 0.
func budgetConstraint() Constraint {
	return Constraint{
		Name: "budget",
		Kind: Equality,
		Value: func(w []float64) float64 {
			sum := 0.0
			for _, wi := range w {
				sum += wi
			}
			return sum - 1.0
		},
		Grad: func(dst, w []float64) {
			for i := range dst {
				dst[i] = 1.0
			}
		},
	}
}

// volatilityCapConstraint enforces maxVol^2 - w'Sigma w >= 0.
func volatilityCapConstraint(sigma *mat.Dense, maxVol float64) Constraint {
	return Constraint{
		Name: "volatility_cap",
		Kind: Inequality,
		Value: func(w []float64) float64 {
			wv := mat.NewVecDense(len(w), w)
			return maxVol*maxVol - mat.Inner(wv, sigma, wv)
		},
		Grad: func(dst, w []float64) {
			n := len(w)
			for i := 0; i < n; i++ {
				dst[i] = 0
				for j := 0; j < n; j++ {
					dst[i] -= 2 * sigma.At(i, j) * w[j]
				}
			}
		},
	}
}

// defaultBounds returns the long-only, no-leverage box (0, 1) per asset.
func defaultBounds(n int) []Bound {
	bounds := make([]Bound, n)
	for i := range bounds {
		bounds[i] = Bound{Lower: 0, Upper: 1}
	}
	return bounds
}

// validateProblem rejects malformed inputs before any solver iteration runs.
func validateProblem(p Problem) error {
	n := len(p.Returns)
	if n == 0 {
		return fmt.Errorf("%w: empty asset universe", ErrInvalidInput)
	}

	if len(p.Covariance) != n {
		return fmt.Errorf("%w: covariance has %d rows for %d assets",
			ErrDimensionMismatch, len(p.Covariance), n)
	}
	for i := range p.Covariance {
		if len(p.Covariance[i]) != n {
			return fmt.Errorf("%w: covariance row %d has %d columns, expected %d",
				ErrDimensionMismatch, i, len(p.Covariance[i]), n)
		}
	}
	for i := 0; i < n; i++ {
		if p.Covariance[i][i] < 0 {
			return fmt.Errorf("%w: negative variance %g for asset %d",
				ErrInvalidInput, p.Covariance[i][i], i)
		}
		for j := i + 1; j < n; j++ {
			if math.Abs(p.Covariance[i][j]-p.Covariance[j][i]) > symmetryTolerance {
				return fmt.Errorf("%w: covariance not symmetric at (%d,%d)",
					ErrInvalidInput, i, j)
			}
		}
	}

	if len(p.Bounds) > 0 {
		if len(p.Bounds) != n {
			return fmt.Errorf("%w: %d bound pairs for %d assets",
				ErrDimensionMismatch, len(p.Bounds), n)
		}
		for i, b := range p.Bounds {
			if b.Lower > b.Upper {
				return fmt.Errorf("%w: asset %d has lower bound %g > upper bound %g",
					ErrInvalidInput, i, b.Lower, b.Upper)
			}
		}
	}

	if p.VolatilityCap != nil && *p.VolatilityCap < 0 {
		return fmt.Errorf("%w: negative volatility cap %g", ErrInvalidInput, *p.VolatilityCap)
	}

	return nil
}

// checkBoundsFeasible verifies the box bounds can reach full investment.
// Returns a human-readable reason when they cannot.
func (cs ConstraintSet) checkBoundsFeasible() (string, bool) {
	lowerSum := 0.0
	upperSum := 0.0
	for _, b := range cs.Bounds {
		lowerSum += b.Lower
		upperSum += b.Upper
	}
	if lowerSum > 1.0+budgetTolerance {
		return fmt.Sprintf("infeasible: lower bounds sum to %.4f > 1", lowerSum), false
	}
	if upperSum < 1.0-budgetTolerance {
		return fmt.Sprintf("infeasible: upper bounds sum to %.4f < 1", upperSum), false
	}
	return "", true
}
