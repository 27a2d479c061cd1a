// Package config defines and loads the process configuration via
// github.com/kelseyhightower/envconfig (SPEC_FULL.md §7.2), replacing the
// teacher's bespoke .qlconf line-based file format
// (quantumlife-canon-core/internal/config/loader.go): that format existed
// because the teacher's product configures a user-facing, multi-tenant
// on-disk application. This system is a server process, configured the
// way the rest of the retrieval pack's services are — from environment
// variables, with envconfig's struct-tag-driven binding and defaults.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the complete process configuration, loaded once at startup.
type Config struct {
	Env      string `envconfig:"ENV" default:"production"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	PostgresDSN        string `envconfig:"POSTGRES_DSN" required:"true"`
	PostgresMaxConns   int32  `envconfig:"POSTGRES_MAX_CONNS" default:"10"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	DedupWindow time.Duration `envconfig:"DEDUP_WINDOW" default:"24h"`

	DistributionRetryMax int `envconfig:"DISTRIBUTION_RETRY_MAX" default:"3"`
	PipelineDeadlineMs   int `envconfig:"PIPELINE_DEADLINE_MS" default:"10000"`

	SlackBotToken   string `envconfig:"SLACK_BOT_TOKEN" default:""`
	SlackOpsChannel string `envconfig:"SLACK_OPS_CHANNEL" default:"#lead-ops"`

	BatchSweepCron string `envconfig:"BATCH_SWEEP_CRON" default:"*/15 * * * *"`

	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`
}

// Load reads configuration from the process environment, applying
// envconfig defaults and failing on any required field left unset.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("LEADBROKER", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
