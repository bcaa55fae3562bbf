package optimization

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Objective computes the minimization objective: the negated expected
// portfolio return -(w . r). Minimizing this maximizes the true return.
func Objective(weights, returns []float64) (float64, error) {
	if len(weights) != len(returns) {
		return 0, fmt.Errorf("%w: weights length %d, returns length %d",
			ErrDimensionMismatch, len(weights), len(returns))
	}
	return -floats.Dot(weights, returns), nil
}

// PortfolioReturn computes the expected portfolio return w . r.
func PortfolioReturn(weights, returns []float64) (float64, error) {
	obj, err := Objective(weights, returns)
	if err != nil {
		return 0, err
	}
	return -obj, nil
}
