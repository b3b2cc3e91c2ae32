package config

import (
	"time"

	apperrors "mongoprov/internal/errors"
)

// Environment variable names.
const (
	EnvMongoURI         = "MONGO_URI"
	EnvMongoDatabase    = "MONGO_DATABASE"
	EnvConnectTimeout   = "MONGO_CONNECT_TIMEOUT"
	EnvOperationTimeout = "MONGO_OPERATION_TIMEOUT"
	EnvPlan             = "MONGOPROV_PLAN"
	EnvJournal          = "MONGOPROV_JOURNAL"
	EnvMetricsFile      = "MONGOPROV_METRICS_FILE"
	EnvLogLevel         = "MONGOPROV_LOG_LEVEL"
	EnvLogFormat        = "MONGOPROV_LOG_FORMAT"
)

type environment struct {
	dotenv map[string]string
	lookup func(string) (string, bool)
}

func (e environment) get(key string) (string, bool) {
	if value, ok := e.lookup(key); ok && value != "" {
		return value, true
	}
	if value, ok := e.dotenv[key]; ok && value != "" {
		return value, true
	}
	return "", false
}

func (e environment) apply(cfg *Config) error {
	e.setString(&cfg.Mongo.URI, EnvMongoURI)
	e.setString(&cfg.Mongo.Database, EnvMongoDatabase)
	e.setString(&cfg.PlanPath, EnvPlan)
	e.setString(&cfg.JournalPath, EnvJournal)
	e.setString(&cfg.MetricsPath, EnvMetricsFile)
	e.setString(&cfg.Log.Level, EnvLogLevel)
	e.setString(&cfg.Log.Format, EnvLogFormat)

	if err := e.setDuration(&cfg.Mongo.ConnectTimeout, EnvConnectTimeout); err != nil {
		return err
	}
	return e.setDuration(&cfg.Mongo.OperationTimeout, EnvOperationTimeout)
}

func (e environment) setString(dst *string, key string) {
	if value, ok := e.get(key); ok {
		*dst = value
	}
}

func (e environment) setDuration(dst *time.Duration, key string) error {
	value, ok := e.get(key)
	if !ok {
		return nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return configError("config.env", "invalid duration", err, apperrors.Metadata{"variable": key, "value": value})
	}
	*dst = parsed
	return nil
}
