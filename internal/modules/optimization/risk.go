package optimization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// varianceRoundingSlack absorbs floating-point noise around zero when the
// quadratic form of a valid PSD matrix lands just below it.
const varianceRoundingSlack = 1e-12

// PortfolioVariance computes the quadratic form w' Sigma w.
func PortfolioVariance(weights []float64, covariance [][]float64) (float64, error) {
	n := len(weights)
	if len(covariance) != n {
		return 0, fmt.Errorf("%w: covariance has %d rows, expected %d",
			ErrDimensionMismatch, len(covariance), n)
	}
	for i := range covariance {
		if len(covariance[i]) != n {
			return 0, fmt.Errorf("%w: covariance row %d has %d columns, expected %d",
				ErrDimensionMismatch, i, len(covariance[i]), n)
		}
	}

	sigma := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sigma.Set(i, j, covariance[i][j])
		}
	}

	w := mat.NewVecDense(n, weights)
	return mat.Inner(w, sigma, w), nil
}

// Volatility computes portfolio volatility sqrt(w' Sigma w).
//
// A negative quadratic form means the covariance matrix is not positive
// semi-definite (caller error or ill-conditioned data); that is rejected
// with ErrNumericDomain instead of letting a NaN propagate.
func Volatility(weights []float64, covariance [][]float64) (float64, error) {
	variance, err := PortfolioVariance(weights, covariance)
	if err != nil {
		return 0, err
	}
	if variance < -varianceRoundingSlack {
		return 0, fmt.Errorf("%w: covariance matrix produced negative variance %g (not positive semi-definite)",
			ErrNumericDomain, variance)
	}
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance), nil
}

// CovarianceFromCorrelation builds a covariance matrix from standalone
// volatilities and a correlation matrix: Cov = diag(vol) * Corr * diag(vol).
func CovarianceFromCorrelation(volatilities []float64, correlation [][]float64) ([][]float64, error) {
	n := len(volatilities)
	if len(correlation) != n {
		return nil, fmt.Errorf("%w: correlation has %d rows, expected %d",
			ErrDimensionMismatch, len(correlation), n)
	}

	covariance := make([][]float64, n)
	for i := 0; i < n; i++ {
		if len(correlation[i]) != n {
			return nil, fmt.Errorf("%w: correlation row %d has %d columns, expected %d",
				ErrDimensionMismatch, i, len(correlation[i]), n)
		}
		covariance[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			covariance[i][j] = volatilities[i] * correlation[i][j] * volatilities[j]
		}
	}
	return covariance, nil
}
