// internal/workers/styling/select-option/handler.go
package selectoption

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	commonerrors "styling-assistant/internal/common/errors"
	"styling-assistant/internal/common/logger"
	"styling-assistant/internal/common/metrics"
	"styling-assistant/internal/models"
	"styling-assistant/internal/styling/dialogue"
	"styling-assistant/internal/workers/styling/jobs"
)

const TaskType = "styling-select-option"

var ErrMissingSession = errors.New("MISSING_SESSION_ID")

// Handler applies an option the user picked from an offered list.
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

	h.logger.Info("option selected", map[string]interface{}{
		"sessionId":       input.SessionID,
		"category":        input.Category,
		"value":           input.Value,
		"state":           output.Session.State,
		"pendingCategory": output.Session.PendingCategory,
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
		return nil, commonerrors.NewInvalidInputError(ErrMissingSession.Error())
	}

	session, err := h.registry.GetOrCreate(ctx, input.SessionID, input.UserID)
	if err != nil {
		return nil, jobs.MapError(err)
	}

	outcome, err := session.Select(ctx, input.Category, input.Value)
	if err != nil {
		return nil, jobs.MapError(fmt.Errorf("select %s: %w", input.Category, err))
	}

	turns := outcome.Turns
	if h.config.AwaitFollowup {
		turns = append(turns, session.Settle()...)
	}
	view, err := jobs.View(session, turns)
	if err != nil {
		return nil, err
	}

	return &Output{
		Applied: models.Option{Category: input.Category, Value: input.Value},
		Session: view,
	}, nil
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(commonerrors.Normalize(err).Code)).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}
