// Package config loads layered settings: embedded defaults, an optional YAML
// file, a .env file, the process environment, then command-line overrides.
package config

import (
	"bytes"
	"embed"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	apperrors "mongoprov/internal/errors"
)

const module = "config"

// MongoConfig holds the connection settings.
type MongoConfig struct {
	URI              string        `yaml:"uri"`
	Database         string        `yaml:"database"`
	AppName          string        `yaml:"app_name"`
	ConnectTimeout   time.Duration `yaml:"connect_timeout"`
	OperationTimeout time.Duration `yaml:"operation_timeout"`
}

// LogConfig selects the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the resolved configuration of one invocation.
type Config struct {
	Mongo       MongoConfig `yaml:"mongo"`
	PlanPath    string      `yaml:"plan_path"`
	JournalPath string      `yaml:"journal_path"`
	MetricsPath string      `yaml:"metrics_path"`
	Log         LogConfig   `yaml:"log"`
}

// Sources names the optional inputs of Load.
type Sources struct {
	// ConfigFile is a YAML file layered over the defaults. Empty skips it.
	ConfigFile string
	// EnvFile is a dotenv file. A missing file is ignored unless
	// EnvFileRequired is set.
	EnvFile         string
	EnvFileRequired bool
	// LookupEnv reads the process environment; nil means os.LookupEnv.
	LookupEnv func(key string) (string, bool)
}

// Overrides carries command-line values. Empty fields are ignored.
type Overrides struct {
	URI         string
	Database    string
	PlanPath    string
	JournalPath string
	MetricsPath string
	LogLevel    string
	LogFormat   string
}

//go:embed defaults.yaml
var embeddedDefaults embed.FS

// Defaults returns the embedded defaults.
func Defaults() (*Config, error) {
	data, err := embeddedDefaults.ReadFile("defaults.yaml")
	if err != nil {
		return nil, errors.Wrap(err, "failed to read embedded defaults")
	}
	cfg := &Config{}
	if err := decodeInto(cfg, data); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load resolves the configuration from src. The process environment is
// never modified; values from the .env file apply only where the process
// environment does not set the same key.
func Load(src Sources) (*Config, error) {
	cfg, err := Defaults()
	if err != nil {
		return nil, configError("config.Load", "failed to load defaults", err, nil)
	}

	if src.ConfigFile != "" {
		data, err := os.ReadFile(src.ConfigFile)
		if err != nil {
			return nil, configError("config.Load", "failed to read config file", err,
				apperrors.Metadata{"path": src.ConfigFile})
		}
		if err := decodeInto(cfg, data); err != nil {
			return nil, configError("config.Load", "failed to parse config file", err,
				apperrors.Metadata{"path": src.ConfigFile})
		}
	}

	dotenv := map[string]string{}
	if src.EnvFile != "" {
		values, err := godotenv.Read(src.EnvFile)
		switch {
		case err == nil:
			dotenv = values
		case os.IsNotExist(err) && !src.EnvFileRequired:
		default:
			return nil, configError("config.Load", "failed to read env file", err,
				apperrors.Metadata{"path": src.EnvFile})
		}
	}

	lookup := src.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	env := environment{dotenv: dotenv, lookup: lookup}
	if err := env.apply(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Apply layers command-line overrides on top of cfg.
func (c *Config) Apply(o Overrides) {
	setIf(&c.Mongo.URI, o.URI)
	setIf(&c.Mongo.Database, o.Database)
	setIf(&c.PlanPath, o.PlanPath)
	setIf(&c.JournalPath, o.JournalPath)
	setIf(&c.MetricsPath, o.MetricsPath)
	setIf(&c.Log.Level, o.LogLevel)
	setIf(&c.Log.Format, o.LogFormat)
}

func setIf(dst *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*dst = v
	}
}

func decodeInto(cfg *Config, data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return errors.Wrap(err, "failed to parse configuration")
	}
	return nil
}

func configError(operation, message string, err error, metadata apperrors.Metadata) *apperrors.AppError {
	return apperrors.ConfigError(apperrors.CodeInvalidConfig, message, err).
		WithModule(module).
		WithOperation(operation).
		WithFields(metadata)
}
