// internal/workers/styling/match-attributes/handler.go
package matchattributes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	commonerrors "styling-assistant/internal/common/errors"
	"styling-assistant/internal/common/logger"
	"styling-assistant/internal/common/metrics"
	"styling-assistant/internal/models"
	"styling-assistant/internal/styling/matcher"
	"styling-assistant/internal/styling/taxonomy"
	"styling-assistant/internal/workers/styling/jobs"
)

const TaskType = "styling-match-attributes"

// Handler scores a message against the taxonomy without touching any
// conversation.
type Handler struct {
	config *Config
	source taxonomy.Source
	errors *commonerrors.ErrorHandler
	logger logger.Logger

	mu      sync.Mutex
	tax     *taxonomy.Taxonomy
	matcher *matcher.Matcher
}

func NewHandler(config *Config, source taxonomy.Source, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		source: source,
		errors: commonerrors.NewErrorHandler(log),
		logger: log,
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
	h.logger.Debug("message matched", map[string]interface{}{
		"candidateCount": len(output.Candidates),
		"isQuestion":     output.IsQuestion,
	})

	if err := jobs.Complete(ctx, client, job, output, h.logger); err != nil {
		return err
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	return nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, commonerrors.NewInvalidInputError("input is required")
	}

	tax, m, err := h.load(ctx)
	if err != nil {
		return nil, err
	}
	if input.Category != "" {
		if _, ok := tax.Category(input.Category); !ok {
			return nil, commonerrors.NewInvalidInputError(fmt.Sprintf("unknown category %q", input.Category))
		}
	}

	result := m.Match(input.Message)
	cands := result.Candidates
	if input.Category != "" {
		cands = result.For(input.Category)
	}

	return &Output{
		IsQuestion:      result.IsQuestion,
		Candidates:      models.NewCandidates(cands),
		TaxonomyVersion: tax.Version(),
	}, nil
}

// load returns the current taxonomy and a matcher for it, rebuilding the
// matcher only when the source hands back a different taxonomy.
func (h *Handler) load(ctx context.Context) (*taxonomy.Taxonomy, *matcher.Matcher, error) {
	tax, err := h.source.Load(ctx)
	if err != nil {
		return nil, nil, commonerrors.NewTaxonomyNotReadyError(err.Error())
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.tax != tax {
		h.tax = tax
		h.matcher = matcher.New(tax)
	}
	return h.tax, h.matcher, nil
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(commonerrors.Normalize(err).Code)).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}
