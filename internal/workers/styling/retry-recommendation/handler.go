// internal/workers/styling/retry-recommendation/handler.go
package retryrecommendation

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	commonerrors "styling-assistant/internal/common/errors"
	"styling-assistant/internal/common/logger"
	"styling-assistant/internal/common/metrics"
	"styling-assistant/internal/styling/dialogue"
	"styling-assistant/internal/workers/styling/jobs"
)

const TaskType = "styling-retry-recommendation"

// Handler re-sends the stored request of a completed conversation after a
// failed handoff. Slots and questions are left alone.
type Handler struct {
	config   *Config
	registry *dialogue.Registry
	errors   *commonerrors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(config *Config, registry *dialogue.Registry, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		registry: registry,
		errors:   commonerrors.NewErrorHandler(log),
		logger:   log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := jobs.ParseInput(job, inputSchema, &input); err != nil {
		h.failJob(ctx, client, job, err)
		return err
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return err
	}
	h.logger.Info("recommendation retried", map[string]interface{}{
		"sessionId":    input.SessionID,
		"handoffState": output.Handoff.State,
		"attempts":     output.Handoff.Attempts,
	})

	if err := jobs.Complete(ctx, client, job, output, h.logger); err != nil {
		return err
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	return nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.SessionID == "" {
		return nil, commonerrors.NewInvalidInputError("sessionId is required")
	}

	session, err := h.registry.Get(input.SessionID)
	if err != nil {
		return nil, jobs.MapError(err)
	}

	before, err := session.Transcript()
	if err != nil {
		return nil, jobs.MapError(err)
	}
	if err := session.RetryRecommendation(ctx); err != nil {
		return nil, jobs.MapError(err)
	}
	if h.config.AwaitResult {
		waitHandoff(ctx, session)
	}

	after, err := session.Transcript()
	if err != nil {
		return nil, jobs.MapError(err)
	}
	appended := after
	if len(before) <= len(after) {
		appended = after[len(before):]
	}
	view, err := jobs.View(session, appended)
	if err != nil {
		return nil, err
	}
	return &Output{Handoff: view.Handoff, Session: view}, nil
}

// waitHandoff returns when the session's handoffs have reported back or ctx
// is done. The helper goroutine exits with the handoff either way.
func waitHandoff(ctx context.Context, s *dialogue.Session) {
	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(commonerrors.Normalize(err).Code)).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}
