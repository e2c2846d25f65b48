// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App         AppConfig               `mapstructure:"app"`
	Camunda     CamundaConfig           `mapstructure:"camunda"`
	Database    DatabaseConfig          `mapstructure:"database"`
	Workers     map[string]WorkerConfig `mapstructure:"workers"`
	Taxonomy    TaxonomyConfig          `mapstructure:"taxonomy"`
	Dialogue    DialogueConfig          `mapstructure:"dialogue"`
	Recommender RecommenderConfig       `mapstructure:"recommender"`
	Wardrobe    WardrobeConfig          `mapstructure:"wardrobe"`
	Metrics     MetricsConfig           `mapstructure:"metrics"`
	Logging     LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	NodeID      int64  `mapstructure:"node_id"` // snowflake node for turn ids
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
	// HandoffMessage is published, correlated by session id, whenever a
	// recommendation handoff settles. Empty disables publishing.
	HandoffMessage string `mapstructure:"handoff_message"`
	MessageTTL     int    `mapstructure:"message_ttl"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Styling assistant sections ---

// TaxonomyConfig selects where the attribute taxonomy is loaded from.
// Source is one of "builtin", "file" or "redis" (redis falls back to Path, then builtin).
type TaxonomyConfig struct {
	Source   string `mapstructure:"source"`
	Path     string `mapstructure:"path"`
	RedisKey string `mapstructure:"redis_key"`
	CacheTTL int    `mapstructure:"cache_ttl"` // seconds
}

type DialogueConfig struct {
	FollowupDelay       int  `mapstructure:"followup_delay"` // milliseconds
	ReofferOccasionMenu bool `mapstructure:"reoffer_occasion_menu"`
	DefaultOutfitCount  int  `mapstructure:"default_outfit_count"`
	MaxOutfitCount      int  `mapstructure:"max_outfit_count"`
	MaxSessions         int  `mapstructure:"max_sessions"`
	SessionTTL          int  `mapstructure:"session_ttl"` // milliseconds idle before eviction; negative disables
}

// RecommenderConfig configures the handoff to the outfit recommendation service.
// Transport is "http" or "kafka".
type RecommenderConfig struct {
	Transport  string `mapstructure:"transport"`
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
	MaxRetries int    `mapstructure:"max_retries"`
	Kafka      struct {
		Brokers []string `mapstructure:"brokers"`
		Topic   string   `mapstructure:"topic"`
	} `mapstructure:"kafka"`
}

type WardrobeConfig struct {
	Index     string `mapstructure:"index"`
	MaxImages int    `mapstructure:"max_images"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
