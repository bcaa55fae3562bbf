package optimization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTwoAssetProblem() Problem {
	return Problem{
		Returns: []float64{0.12, 0.08},
		Covariance: [][]float64{
			{0.04, 0.01},
			{0.01, 0.03},
		},
	}
}

func TestAssembleConstraints_DefaultBounds(t *testing.T) {
	cs, err := AssembleConstraints(validTwoAssetProblem())
	require.NoError(t, err)

	require.Len(t, cs.Bounds, 2)
	for _, b := range cs.Bounds {
		assert.Equal(t, 0.0, b.Lower)
		assert.Equal(t, 1.0, b.Upper)
	}

	// Budget equality only - no cap was given
	require.Len(t, cs.Constraints, 1)
	assert.Equal(t, "budget", cs.Constraints[0].Name)
	assert.Equal(t, Equality, cs.Constraints[0].Kind)
}

func TestAssembleConstraints_VolatilityCapAddsInequality(t *testing.T) {
	p := validTwoAssetProblem()
	cap := 0.10
	p.VolatilityCap = &cap

	cs, err := AssembleConstraints(p)
	require.NoError(t, err)

	require.Len(t, cs.Constraints, 2)
	assert.Equal(t, "volatility_cap", cs.Constraints[1].Name)
	assert.Equal(t, Inequality, cs.Constraints[1].Kind)

	// cap^2 - w'Sigma w at equal weights: 0.01 - 0.0225 < 0 (violated)
	assert.InDelta(t, 0.01-0.0225, cs.Constraints[1].Value([]float64{0.5, 0.5}), 1e-12)
}

func TestAssembleConstraints_BudgetValueAndGradient(t *testing.T) {
	cs, err := AssembleConstraints(validTwoAssetProblem())
	require.NoError(t, err)

	budget := cs.Constraints[0]
	assert.InDelta(t, 0.0, budget.Value([]float64{0.4, 0.6}), 1e-12)
	assert.InDelta(t, -0.3, budget.Value([]float64{0.4, 0.3}), 1e-12)

	grad := make([]float64, 2)
	budget.Grad(grad, []float64{0.4, 0.6})
	assert.Equal(t, []float64{1.0, 1.0}, grad)
}

func TestAssembleConstraints_EmptyUniverse(t *testing.T) {
	_, err := AssembleConstraints(Problem{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAssembleConstraints_CovarianceDimensionMismatch(t *testing.T) {
	p := validTwoAssetProblem()
	p.Covariance = [][]float64{{0.04}}

	_, err := AssembleConstraints(p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestAssembleConstraints_AsymmetricCovariance(t *testing.T) {
	p := validTwoAssetProblem()
	p.Covariance = [][]float64{
		{0.04, 0.02},
		{0.01, 0.03},
	}

	_, err := AssembleConstraints(p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAssembleConstraints_NegativeVariance(t *testing.T) {
	p := validTwoAssetProblem()
	p.Covariance = [][]float64{
		{-0.04, 0.01},
		{0.01, 0.03},
	}

	_, err := AssembleConstraints(p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAssembleConstraints_InvertedBounds(t *testing.T) {
	p := validTwoAssetProblem()
	p.Bounds = []Bound{{Lower: 0.6, Upper: 0.4}, {Lower: 0, Upper: 1}}

	_, err := AssembleConstraints(p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAssembleConstraints_BoundsLengthMismatch(t *testing.T) {
	p := validTwoAssetProblem()
	p.Bounds = []Bound{{Lower: 0, Upper: 1}}

	_, err := AssembleConstraints(p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestAssembleConstraints_NegativeCap(t *testing.T) {
	p := validTwoAssetProblem()
	cap := -0.05
	p.VolatilityCap = &cap

	_, err := AssembleConstraints(p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCheckBoundsFeasible(t *testing.T) {
	feasible := ConstraintSet{Bounds: []Bound{{0, 0.6}, {0, 0.6}}}
	_, ok := feasible.checkBoundsFeasible()
	assert.True(t, ok)

	uppersTooLow := ConstraintSet{Bounds: []Bound{{0, 0.3}, {0, 0.3}}}
	reason, ok := uppersTooLow.checkBoundsFeasible()
	assert.False(t, ok)
	assert.Contains(t, reason, "infeasible")

	lowersTooHigh := ConstraintSet{Bounds: []Bound{{0.6, 1}, {0.6, 1}}}
	reason, ok = lowersTooHigh.checkBoundsFeasible()
	assert.False(t, ok)
	assert.Contains(t, reason, "infeasible")
}
