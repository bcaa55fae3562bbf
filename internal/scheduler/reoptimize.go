package scheduler

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/allocator/internal/modules/optimization"
	"github.com/aristath/allocator/pkg/logger"
)

// OptimizerRunner runs one optimization request.
type OptimizerRunner interface {
	Run(req optimization.Request) (*optimization.RunRecord, error)
}

// RequestSource supplies the request to replay.
type RequestSource interface {
	LatestRequest() (*optimization.Request, error)
}

// ReoptimizeJob re-runs the most recently stored optimization request, so
// the recorded allocation tracks any solver or tolerance changes and the
// run history stays warm.
type ReoptimizeJob struct {
	service OptimizerRunner
	source  RequestSource
	log     zerolog.Logger
}

// NewReoptimizeJob creates a new re-optimization job
func NewReoptimizeJob(service OptimizerRunner, source RequestSource, log zerolog.Logger) *ReoptimizeJob {
	return &ReoptimizeJob{
		service: service,
		source:  source,
		log:     logger.Component(log, "reoptimize_job"),
	}
}

// Name returns the job name
func (j *ReoptimizeJob) Name() string {
	return "reoptimize"
}

// Run executes the re-optimization job
func (j *ReoptimizeJob) Run() error {
	req, err := j.source.LatestRequest()
	if err != nil {
		return fmt.Errorf("failed to load latest request: %w", err)
	}
	if req == nil {
		j.log.Debug().Msg("No stored request yet - skipping")
		return nil
	}

	rec, err := j.service.Run(*req)
	if err != nil {
		return fmt.Errorf("re-optimization failed: %w", err)
	}

	j.log.Info().
		Str("run_id", rec.ID).
		Bool("success", rec.Success).
		Float64("return", rec.Return).
		Float64("volatility", rec.Volatility).
		Msg("Scheduled re-optimization completed")

	return nil
}
