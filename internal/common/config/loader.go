// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	TransportHTTP  = "http"
	TransportKafka = "kafka"

	TaxonomySourceBuiltin = "builtin"
	TaxonomySourceFile    = "file"
	TaxonomySourceRedis   = "redis"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on top,
// then applies environment overrides and defaults.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile reads a single YAML file.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env", "../../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars resolves ${VAR} references left in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

func overrideEmptyConfig(cfg *Config) {
	if cfg.Recommender.APIKey == "" {
		if val := os.Getenv("RECOMMENDER_API_KEY"); val != "" {
			cfg.Recommender.APIKey = val
		}
	}
	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "styling-assistant"
	}
	if cfg.App.NodeID == 0 {
		cfg.App.NodeID = 1
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}
	if cfg.Camunda.MessageTTL == 0 {
		cfg.Camunda.MessageTTL = 300000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	if cfg.Taxonomy.Source == "" {
		cfg.Taxonomy.Source = TaxonomySourceBuiltin
	}
	if cfg.Taxonomy.RedisKey == "" {
		cfg.Taxonomy.RedisKey = "styling:taxonomy"
	}
	if cfg.Taxonomy.CacheTTL == 0 {
		cfg.Taxonomy.CacheTTL = 3600
	}

	if cfg.Dialogue.FollowupDelay == 0 {
		cfg.Dialogue.FollowupDelay = 600
	}
	if cfg.Dialogue.DefaultOutfitCount == 0 {
		cfg.Dialogue.DefaultOutfitCount = 1
	}
	if cfg.Dialogue.MaxOutfitCount == 0 {
		cfg.Dialogue.MaxOutfitCount = 5
	}
	if cfg.Dialogue.MaxSessions == 0 {
		cfg.Dialogue.MaxSessions = 10000
	}
	if cfg.Dialogue.SessionTTL == 0 {
		cfg.Dialogue.SessionTTL = 1800000
	}

	if cfg.Recommender.Transport == "" {
		cfg.Recommender.Transport = TransportHTTP
	}
	if cfg.Recommender.Timeout == 0 {
		cfg.Recommender.Timeout = 60000
	}
	if cfg.Recommender.MaxRetries == 0 {
		cfg.Recommender.MaxRetries = 2
	}
	if cfg.Recommender.Kafka.Topic == "" {
		cfg.Recommender.Kafka.Topic = "styling.recommendation-requests"
	}

	if cfg.Wardrobe.Index == "" {
		cfg.Wardrobe.Index = "wardrobe_images"
	}
	if cfg.Wardrobe.MaxImages == 0 {
		cfg.Wardrobe.MaxImages = 50
	}

	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":9090"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}

	switch cfg.Taxonomy.Source {
	case TaxonomySourceBuiltin:
	case TaxonomySourceFile:
		if cfg.Taxonomy.Path == "" {
			return fmt.Errorf("taxonomy.path is required for source %q", cfg.Taxonomy.Source)
		}
	case TaxonomySourceRedis:
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required for taxonomy source %q", cfg.Taxonomy.Source)
		}
	default:
		return fmt.Errorf("taxonomy.source %q is not supported", cfg.Taxonomy.Source)
	}

	switch cfg.Recommender.Transport {
	case TransportHTTP:
		if cfg.Recommender.BaseURL == "" {
			return fmt.Errorf("recommender.base_url is required for http transport")
		}
	case TransportKafka:
		if len(cfg.Recommender.Kafka.Brokers) == 0 {
			return fmt.Errorf("recommender.kafka.brokers is required for kafka transport")
		}
	default:
		return fmt.Errorf("recommender.transport %q is not supported", cfg.Recommender.Transport)
	}

	if cfg.Dialogue.DefaultOutfitCount < 1 || cfg.Dialogue.DefaultOutfitCount > cfg.Dialogue.MaxOutfitCount {
		return fmt.Errorf("dialogue.default_outfit_count must be between 1 and %d", cfg.Dialogue.MaxOutfitCount)
	}

	if cfg.Database.Postgres.Enabled {
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	}

	if cfg.Database.Elasticsearch.Enabled && cfg.Database.Elasticsearch.GetURL() == "" {
		return fmt.Errorf("database.elasticsearch.addresses or url is required")
	}

	return nil
}

func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
