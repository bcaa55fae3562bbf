package optimization

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	saved []*RunRecord
	err   error
}

func (f *fakeRecorder) Save(rec *RunRecord) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, rec)
	return nil
}

func capOf(v float64) *float64 { return &v }

func referenceRequest() Request {
	return Request{
		Symbols: []string{"AAA", "BBB", "CCC"},
		ExpectedReturns: map[string]float64{
			"AAA": 0.08,
			"BBB": 0.04,
			"CCC": 0.07,
		},
		Volatilities: map[string]float64{
			"AAA": 0.15,
			"BBB": 0.05,
			"CCC": 0.12,
		},
		Correlation: [][]float64{
			{1.0, -0.2, 0.4},
			{-0.2, 1.0, 0.1},
			{0.4, 0.1, 1.0},
		},
		MinWeights:    map[string]float64{"AAA": 0.4},
		MaxWeights:    map[string]float64{"BBB": 0.5, "CCC": 0.2},
		VolatilityCap: capOf(0.10),
	}
}

func TestOptimizerService_Run(t *testing.T) {
	recorder := &fakeRecorder{}
	service := NewOptimizerService(recorder, zerolog.Nop())

	rec, err := service.Run(referenceRequest())
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.True(t, rec.Success, "status: %s", rec.Status)
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	// Weights come back keyed by symbol and sum to 1
	require.Len(t, rec.Weights, 3)
	sum := 0.0
	for _, w := range rec.Weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
	assert.InDelta(t, 0.200, rec.Weights["CCC"], 0.02, "CCC pinned at its ceiling")

	// The run was persisted and cached
	require.Len(t, recorder.saved, 1)
	assert.Equal(t, rec.ID, recorder.saved[0].ID)
	require.NotNil(t, service.LastRun())
	assert.Equal(t, rec.ID, service.LastRun().ID)
}

func TestOptimizerService_Run_MissingExpectedReturn(t *testing.T) {
	service := NewOptimizerService(nil, zerolog.Nop())

	req := referenceRequest()
	delete(req.ExpectedReturns, "BBB")

	_, err := service.Run(req)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestOptimizerService_Run_MissingRiskModel(t *testing.T) {
	service := NewOptimizerService(nil, zerolog.Nop())

	req := referenceRequest()
	req.Volatilities = nil
	req.Correlation = nil

	_, err := service.Run(req)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestOptimizerService_Run_ExplicitCovariance(t *testing.T) {
	service := NewOptimizerService(nil, zerolog.Nop())

	rec, err := service.Run(Request{
		Symbols: []string{"AAA", "BBB"},
		ExpectedReturns: map[string]float64{
			"AAA": 0.12,
			"BBB": 0.08,
		},
		Covariance: [][]float64{
			{0.04, 0.01},
			{0.01, 0.03},
		},
	})
	require.NoError(t, err)
	assert.True(t, rec.Success, "status: %s", rec.Status)
	assert.Greater(t, rec.Weights["AAA"], 0.95)
}

func TestOptimizerService_Run_RecorderFailureDoesNotFailRun(t *testing.T) {
	recorder := &fakeRecorder{err: assert.AnError}
	service := NewOptimizerService(recorder, zerolog.Nop())

	rec, err := service.Run(referenceRequest())
	require.NoError(t, err)
	assert.True(t, rec.Success, "status: %s", rec.Status)
}

func TestOptimizerService_LastRunInitiallyNil(t *testing.T) {
	service := NewOptimizerService(nil, zerolog.Nop())
	assert.Nil(t, service.LastRun())
}
