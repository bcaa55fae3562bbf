package optimization

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVolatility_SingleAsset(t *testing.T) {
	vol, err := Volatility([]float64{1.0}, [][]float64{{0.0225}})
	require.NoError(t, err)
	assert.InDelta(t, 0.15, vol, 1e-12)
}

func TestVolatility_TwoAssets(t *testing.T) {
	weights := []float64{0.5, 0.5}
	covariance := [][]float64{
		{0.04, 0.01},
		{0.01, 0.03},
	}

	vol, err := Volatility(weights, covariance)
	require.NoError(t, err)

	// 0.25*0.04 + 2*0.25*0.01 + 0.25*0.03 = 0.0225
	assert.InDelta(t, math.Sqrt(0.0225), vol, 1e-12)
}

func TestVolatility_DimensionMismatch(t *testing.T) {
	_, err := Volatility([]float64{0.5, 0.5}, [][]float64{{0.04}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = Volatility([]float64{0.5, 0.5}, [][]float64{{0.04, 0.01}, {0.01}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestVolatility_NonPSDCovarianceRejected(t *testing.T) {
	// Off-diagonal entries larger than the diagonal make the quadratic form
	// negative for this weight vector.
	weights := []float64{0.5, -0.5}
	covariance := [][]float64{
		{0.01, 0.09},
		{0.09, 0.01},
	}

	_, err := Volatility(weights, covariance)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNumericDomain)
}

func TestCovarianceFromCorrelation(t *testing.T) {
	vols := []float64{0.15, 0.05}
	corr := [][]float64{
		{1.0, -0.2},
		{-0.2, 1.0},
	}

	cov, err := CovarianceFromCorrelation(vols, corr)
	require.NoError(t, err)

	assert.InDelta(t, 0.0225, cov[0][0], 1e-12)
	assert.InDelta(t, 0.0025, cov[1][1], 1e-12)
	assert.InDelta(t, -0.2*0.15*0.05, cov[0][1], 1e-12)
	assert.InDelta(t, cov[0][1], cov[1][0], 1e-12)
}

func TestCovarianceFromCorrelation_DimensionMismatch(t *testing.T) {
	_, err := CovarianceFromCorrelation([]float64{0.15, 0.05}, [][]float64{{1.0}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
