// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"styling-assistant/internal/common/camunda"
	"styling-assistant/internal/common/config"
	"styling-assistant/internal/common/database"
	"styling-assistant/internal/common/idgen"
	"styling-assistant/internal/common/logger"
	"styling-assistant/internal/common/observability"
	"styling-assistant/internal/styling/dialogue"
	"styling-assistant/internal/styling/recommend"
	"styling-assistant/internal/styling/taxonomy"
	"styling-assistant/internal/styling/transcript"

	ma "styling-assistant/internal/workers/styling/match-attributes"
	pm "styling-assistant/internal/workers/styling/process-message"
	rc "styling-assistant/internal/workers/styling/reset-conversation"
	rr "styling-assistant/internal/workers/styling/retry-recommendation"
	so "styling-assistant/internal/workers/styling/select-option"
	soc "styling-assistant/internal/workers/styling/set-outfit-count"
)

// retryWithBackoff attempts to execute a function with exponential backoff
// sweepInterval checks for idle sessions four times per TTL, at most once a
// second and at least once a minute.
func sweepInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	interval := ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	if interval > time.Minute {
		interval = time.Minute
	}
	return interval
}

func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting styling worker manager...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()
	ids, err := idgen.New(cfg.App.NodeID)
	if err != nil {
		zapLog.Fatal("turn id generator setup failed", zap.Error(err))
	}

	// --- Zeebe ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
			MessageTTL:             config.GetDuration(cfg.Camunda.MessageTTL),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Redis (taxonomy cache, optional) ---
	var redisClient *database.RedisClient
	if cfg.Database.Redis.Address != "" {
		err = retryWithBackoff(func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redisClient.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redisClient.Close()
		zapLog.Info("Redis connected successfully")
	}

	// --- PostgreSQL (transcript archive, optional) ---
	var sink *transcript.Sink
	if cfg.Database.Postgres.Enabled {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()

		archive := transcript.NewPostgresArchive(pg.DB)
		if err := archive.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("transcript schema setup failed", zap.Error(err))
		}
		sink = transcript.NewSink(archive, log, 1024)
		defer sink.Close()
		zapLog.Info("PostgreSQL connected successfully, transcript archive enabled")
	}

	// --- Elasticsearch (wardrobe images, optional) ---
	var wardrobe recommend.WardrobeProvider = recommend.StaticWardrobe{}
	if cfg.Database.Elasticsearch.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		wardrobe = recommend.NewElasticWardrobe(esClient.Client, cfg.Wardrobe.Index, cfg.Wardrobe.MaxImages)
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Dialogue engine ---
	source := buildTaxonomySource(cfg, redisClient, log)
	if _, err := source.Load(ctx); err != nil {
		// Sessions stay not-ready and retry the load on their next job.
		zapLog.Warn("taxonomy not available at startup", zap.Error(err))
	}

	recommender, closeRecommender := buildRecommender(cfg, log)
	defer closeRecommender()
	handoff := recommend.NewHandoff(recommender, wardrobe, obs, log, config.GetDuration(cfg.Recommender.Timeout))

	opts := dialogue.Options{
		Pacer:               dialogue.DelayPacer{Delay: config.GetDuration(cfg.Dialogue.FollowupDelay)},
		Dispatcher:          handoff,
		ReofferOccasionMenu: cfg.Dialogue.ReofferOccasionMenu,
		DefaultOutfitCount:  cfg.Dialogue.DefaultOutfitCount,
		MaxOutfitCount:      cfg.Dialogue.MaxOutfitCount,
		IDs:                 ids,
		Logger:              log,
	}
	if sink != nil {
		opts.OnTurn = sink.Record
	}
	if cfg.Camunda.HandoffMessage != "" {
		opts.OnHandoff = handoffNotifier(zeebe, cfg.Camunda.HandoffMessage, config.GetDuration(cfg.Camunda.RequestTimeout), log)
	}
	sessionTTL := config.GetDuration(cfg.Dialogue.SessionTTL)
	registry := dialogue.NewRegistry(source, opts, cfg.Dialogue.MaxSessions, log, dialogue.WithIdleTTL(sessionTTL))
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go registry.Run(sweepCtx, sweepInterval(sessionTTL))

	// --- Workers ---
	workers := startWorkers(cfg, zeebe.GetClient(), registry, source, obs, log)
	zapLog.Info("styling workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":   "healthy",
			"sessions": registry.Len(),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := source.Load(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "taxonomy unavailable"})
			return
		}
		if err := zeebe.HealthCheck(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "broker unavailable"})
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: cfg.Metrics.Address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Metrics.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	for _, w := range workers {
		w.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping Health/Metrics server", zap.Error(err))
	}
	stopSweep()
	registry.Close()
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped")
}

// buildTaxonomySource layers the configured taxonomy source. A redis cache
// wraps the file or builtin source when a redis client is available.
func buildTaxonomySource(cfg *config.Config, redisClient *database.RedisClient, log logger.Logger) taxonomy.Source {
	var upstream taxonomy.Source = taxonomy.SourceFunc(func(context.Context) (*taxonomy.Taxonomy, error) {
		return taxonomy.Builtin(), nil
	})
	if cfg.Taxonomy.Path != "" &&
		(cfg.Taxonomy.Source == config.TaxonomySourceFile || cfg.Taxonomy.Source == config.TaxonomySourceRedis) {
		upstream = taxonomy.FileSource{Path: cfg.Taxonomy.Path}
	}

	if cfg.Taxonomy.Source != config.TaxonomySourceRedis {
		return upstream
	}
	if redisClient == nil {
		log.Warn("taxonomy source is redis but no redis address is configured, using upstream directly", nil)
		return upstream
	}
	return &taxonomy.RedisSource{
		Client:   redisClient.Client,
		Key:      cfg.Taxonomy.RedisKey,
		TTL:      time.Duration(cfg.Taxonomy.CacheTTL) * time.Second,
		Upstream: upstream,
		Logger:   log,
	}
}

func buildRecommender(cfg *config.Config, log logger.Logger) (recommend.Recommender, func()) {
	if cfg.Recommender.Transport == config.TransportKafka {
		w := recommend.NewKafkaWriter(cfg.Recommender.Kafka.Brokers, cfg.Recommender.Kafka.Topic)
		r := recommend.NewKafkaRecommender(w)
		return r, func() {
			if err := r.Close(); err != nil {
				log.Error("failed to close kafka writer", map[string]interface{}{"error": err})
			}
		}
	}
	return recommend.NewHTTPRecommender(
		cfg.Recommender.BaseURL,
		cfg.Recommender.APIKey,
		config.GetDuration(cfg.Recommender.Timeout),
		cfg.Recommender.MaxRetries,
		log,
	), func() {}
}

func startWorkers(
	cfg *config.Config,
	client zbc.Client,
	registry *dialogue.Registry,
	source taxonomy.Source,
	obs *observability.Observability,
	log logger.Logger,
) []*camunda.CamundaWorker {
	handlers := []struct {
		taskType string
		build    func(config.WorkerConfig) camunda.JobHandler
	}{
		{pm.TaskType, func(wc config.WorkerConfig) camunda.JobHandler {
			return pm.NewHandler(pm.LoadConfig(wc), registry, log)
		}},
		{so.TaskType, func(wc config.WorkerConfig) camunda.JobHandler {
			return so.NewHandler(so.LoadConfig(wc), registry, log)
		}},
		{rc.TaskType, func(wc config.WorkerConfig) camunda.JobHandler {
			return rc.NewHandler(rc.LoadConfig(wc), registry, log)
		}},
		{ma.TaskType, func(wc config.WorkerConfig) camunda.JobHandler {
			return ma.NewHandler(ma.LoadConfig(wc), source, log)
		}},
		{rr.TaskType, func(wc config.WorkerConfig) camunda.JobHandler {
			return rr.NewHandler(rr.LoadConfig(wc), registry, log)
		}},
		{soc.TaskType, func(wc config.WorkerConfig) camunda.JobHandler {
			return soc.NewHandler(soc.LoadConfig(wc), registry, log)
		}},
	}

	var workers []*camunda.CamundaWorker
	for _, h := range handlers {
		if !config.IsWorkerEnabled(cfg, h.taskType) {
			log.Info("worker disabled", map[string]interface{}{"taskType": h.taskType})
			continue
		}
		wc := config.GetWorkerConfig(cfg, h.taskType)
		workers = append(workers, camunda.NewWorker(client, h.taskType, wc.MaxJobsActive, h.build(wc), obs, log))
	}
	return workers
}
