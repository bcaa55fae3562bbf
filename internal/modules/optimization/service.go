package optimization

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/allocator/pkg/logger"
)

// Request is a symbol-keyed optimization request. The risk model is given
// either as a full covariance matrix or as standalone volatilities plus a
// correlation matrix (Cov = diag(vol) * Corr * diag(vol)). Matrices are
// ordered by the Symbols slice.
type Request struct {
	Symbols         []string           `json:"symbols"`
	ExpectedReturns map[string]float64 `json:"expected_returns"`
	Covariance      [][]float64        `json:"covariance,omitempty"`
	Volatilities    map[string]float64 `json:"volatilities,omitempty"`
	Correlation     [][]float64        `json:"correlation,omitempty"`
	MinWeights      map[string]float64 `json:"min_weights,omitempty"`
	MaxWeights      map[string]float64 `json:"max_weights,omitempty"`
	VolatilityCap   *float64           `json:"volatility_cap,omitempty"`
}

// RunRecord is one completed optimization run.
type RunRecord struct {
	ID         string             `json:"id"`
	CreatedAt  time.Time          `json:"created_at"`
	Request    Request            `json:"request"`
	Weights    map[string]float64 `json:"weights"`
	Success    bool               `json:"success"`
	Status     string             `json:"status"`
	Return     float64            `json:"return"`
	Volatility float64            `json:"volatility"`
}

// RunRecorder persists completed runs. Implemented by the runs repository.
type RunRecorder interface {
	Save(rec *RunRecord) error
}

// OptimizerService runs symbol-keyed optimizations, caches the last result
// and records every run.
type OptimizerService struct {
	recorder RunRecorder
	log      zerolog.Logger

	mu      sync.RWMutex
	lastRun *RunRecord
}

// NewOptimizerService creates a new optimizer service. recorder may be nil,
// in which case runs are not persisted.
func NewOptimizerService(recorder RunRecorder, log zerolog.Logger) *OptimizerService {
	return &OptimizerService{
		recorder: recorder,
		log:      logger.Component(log, "optimizer_service"),
	}
}

// Run solves one allocation request and records the outcome.
func (s *OptimizerService) Run(req Request) (*RunRecord, error) {
	problem, err := buildProblem(req)
	if err != nil {
		return nil, err
	}

	result, err := Optimize(problem)
	if err != nil {
		return nil, err
	}

	weights := make(map[string]float64, len(req.Symbols))
	for i, symbol := range req.Symbols {
		if i < len(result.Weights) {
			weights[symbol] = result.Weights[i]
		}
	}

	rec := &RunRecord{
		ID:         uuid.New().String(),
		CreatedAt:  time.Now().UTC(),
		Request:    req,
		Weights:    weights,
		Success:    result.Success,
		Status:     result.Status,
		Return:     result.Return,
		Volatility: result.Volatility,
	}

	s.log.Info().
		Str("run_id", rec.ID).
		Int("num_assets", len(req.Symbols)).
		Bool("success", rec.Success).
		Str("status", rec.Status).
		Float64("return", rec.Return).
		Float64("volatility", rec.Volatility).
		Msg("Optimization run completed")

	if s.recorder != nil {
		if err := s.recorder.Save(rec); err != nil {
			// Persistence is advisory; the caller still gets the result
			s.log.Warn().Err(err).Str("run_id", rec.ID).Msg("Failed to record optimization run")
		}
	}

	s.mu.Lock()
	s.lastRun = rec
	s.mu.Unlock()

	return rec, nil
}

// LastRun returns the most recent run, or nil when none has completed yet.
func (s *OptimizerService) LastRun() *RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun
}

// buildProblem converts a symbol-keyed request into ordered vectors.
func buildProblem(req Request) (Problem, error) {
	n := len(req.Symbols)
	if n == 0 {
		return Problem{}, fmt.Errorf("%w: no symbols provided", ErrInvalidInput)
	}

	returns := make([]float64, n)
	for i, symbol := range req.Symbols {
		ret, ok := req.ExpectedReturns[symbol]
		if !ok {
			return Problem{}, fmt.Errorf("%w: missing expected return for %s", ErrInvalidInput, symbol)
		}
		returns[i] = ret
	}

	covariance := req.Covariance
	if covariance == nil {
		if req.Volatilities == nil || req.Correlation == nil {
			return Problem{}, fmt.Errorf("%w: either covariance or volatilities+correlation required", ErrInvalidInput)
		}
		vols := make([]float64, n)
		for i, symbol := range req.Symbols {
			vol, ok := req.Volatilities[symbol]
			if !ok {
				return Problem{}, fmt.Errorf("%w: missing volatility for %s", ErrInvalidInput, symbol)
			}
			vols[i] = vol
		}
		var err error
		covariance, err = CovarianceFromCorrelation(vols, req.Correlation)
		if err != nil {
			return Problem{}, err
		}
	}

	var bounds []Bound
	if req.MinWeights != nil || req.MaxWeights != nil {
		bounds = make([]Bound, n)
		for i, symbol := range req.Symbols {
			lower := 0.0
			upper := 1.0
			if v, ok := req.MinWeights[symbol]; ok {
				lower = v
			}
			if v, ok := req.MaxWeights[symbol]; ok {
				upper = v
			}
			bounds[i] = Bound{Lower: lower, Upper: upper}
		}
	}

	return Problem{
		Returns:       returns,
		Covariance:    covariance,
		Bounds:        bounds,
		VolatilityCap: req.VolatilityCap,
	}, nil
}
