// internal/workers/styling/set-outfit-count/handler.go
package setoutfitcount

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

const TaskType = "styling-set-outfit-count"

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
	h.logger.Info("outfit count updated", map[string]interface{}{
		"sessionId":   input.SessionID,
		"outfitCount": output.OutfitCount,
	})

	if err := jobs.Complete(ctx, client, job, output, h.logger); err != nil {
		return err
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	return nil
}

// Execute sets how many outfits the next request asks for. A request that
// was already assembled keeps its count.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.SessionID == "" {
		return nil, commonerrors.NewInvalidInputError("sessionId is required")
	}

	session, err := h.registry.GetOrCreate(ctx, input.SessionID, input.UserID)
	if err != nil {
		return nil, jobs.MapError(err)
	}
	if err := session.SetOutfitCount(input.OutfitCount); err != nil {
		return nil, jobs.MapError(err)
	}

	view, err := jobs.View(session, nil)
	if err != nil {
		return nil, err
	}
	return &Output{OutfitCount: view.OutfitCount, Session: view}, nil
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(commonerrors.Normalize(err).Code)).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}
