package config

import (
	"strings"

	apperrors "mongoprov/internal/errors"
	"mongoprov/internal/logger"
)

const maxDatabaseNameBytes = 64

// Validate checks the resolved configuration before anything connects.
func (c *Config) Validate() error {
	uri := strings.TrimSpace(c.Mongo.URI)
	switch {
	case uri == "":
		return invalid("mongo.uri is required (set MONGO_URI or --uri)", nil)
	case !strings.HasPrefix(uri, "mongodb://") && !strings.HasPrefix(uri, "mongodb+srv://"):
		return invalid("mongo.uri must start with mongodb:// or mongodb+srv://",
			apperrors.Metadata{"uri": RedactURI(uri)})
	}

	if c.Mongo.ConnectTimeout <= 0 {
		return invalid("mongo.connect_timeout must be positive",
			apperrors.Metadata{"value": c.Mongo.ConnectTimeout.String()})
	}
	if c.Mongo.OperationTimeout <= 0 {
		return invalid("mongo.operation_timeout must be positive",
			apperrors.Metadata{"value": c.Mongo.OperationTimeout.String()})
	}

	return c.ValidateLocal()
}

// ValidateLocal checks the settings used by commands that never connect.
func (c *Config) ValidateLocal() error {
	if err := validateDatabaseName(c.Mongo.Database); err != nil {
		return err
	}

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return invalid("unknown log.level", apperrors.Metadata{"value": c.Log.Level})
	}
	switch c.Log.Format {
	case "color", "text", "json":
	default:
		return invalid("log.format must be color, text or json", apperrors.Metadata{"value": c.Log.Format})
	}
	return nil
}

func validateDatabaseName(name string) error {
	switch {
	case name == "":
		return invalid("mongo.database is required", nil)
	case len(name) >= maxDatabaseNameBytes:
		return invalid("mongo.database must be shorter than 64 bytes", apperrors.Metadata{"value": name})
	case strings.ContainsAny(name, "/\\. \"$\x00"):
		return invalid(`mongo.database must not contain any of /\. "$`, apperrors.Metadata{"value": name})
	}
	return nil
}

func invalid(message string, metadata apperrors.Metadata) *apperrors.AppError {
	return apperrors.ConfigError(apperrors.CodeInvalidConfig, message, nil).
		WithModule(module).
		WithOperation("config.Validate").
		WithFields(metadata)
}

// RedactURI hides the password of a connection string so it can be logged.
func RedactURI(uri string) string {
	scheme := strings.Index(uri, "://")
	if scheme < 0 {
		return uri
	}
	rest := uri[scheme+3:]
	authority := rest
	if slash := strings.IndexAny(rest, "/?"); slash >= 0 {
		authority = rest[:slash]
	}
	at := strings.LastIndex(authority, "@")
	if at < 0 {
		return uri
	}
	user := authority[:at]
	if colon := strings.Index(user, ":"); colon >= 0 {
		user = user[:colon] + ":xxxxx"
	}
	return uri[:scheme+3] + user + rest[at:]
}
