// Package config loads the YAML configuration used by the command-line
// validator.
package config

import (
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	ccdavalidator "github.com/gofhir/ccdavalidator"
	"github.com/gofhir/ccdavalidator/pkg/logger"
	"github.com/gofhir/ccdavalidator/service"
	"github.com/gofhir/ccdavalidator/service/remote"
)

// Config is the complete validator configuration.
type Config struct {
	Engines    EnginesConfig    `yaml:"engines"`
	Validation ValidationConfig `yaml:"validation"`
	Logging    LoggingConfig    `yaml:"logging"`

	// Workers bounds concurrent validations in a batch (0 = one per CPU)
	Workers int `yaml:"workers"`
}

// EnginesConfig locates the remote validation engines.
type EnginesConfig struct {
	// BaseURL serves every stage unless a stage URL overrides it
	BaseURL string `yaml:"base_url"`

	// Per-stage base URLs
	StructuralURL string `yaml:"structural_url"`
	VocabularyURL string `yaml:"vocabulary_url"`
	ContentURL    string `yaml:"content_url"`

	// Timeout bounds each engine call (0 = no bound)
	Timeout time.Duration `yaml:"timeout"`

	// Headers are sent with every engine call
	Headers map[string]string `yaml:"headers"`

	// VocabularyCache is the number of vocabulary results kept (0 = disabled)
	VocabularyCache int `yaml:"vocabulary_cache"`
}

// ValidationConfig holds validation defaults.
type ValidationConfig struct {
	// DefaultVocabularyConfig replaces an empty vocabulary configuration
	DefaultVocabularyConfig string `yaml:"default_vocabulary_config"`

	// Severity is the default reporting floor
	Severity ccdavalidator.SeverityLevel `yaml:"severity"`

	// StageTimeout bounds each stage (0 = no bound)
	StageTimeout time.Duration `yaml:"stage_timeout"`

	// EchoContents places the raw document on result metadata
	EchoContents bool `yaml:"echo_contents"`

	// CollectMetrics enables in-process metrics
	CollectMetrics bool `yaml:"collect_metrics"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	// Level is debug, info, warn, error or none
	Level string `yaml:"level"`

	// Format is text or json
	Format string `yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Engines: EnginesConfig{
			BaseURL: "http://localhost:8080",
			Timeout: 2 * time.Minute,
		},
		Validation: ValidationConfig{
			DefaultVocabularyConfig: ccdavalidator.DefaultVocabularyConfig,
			Severity:                ccdavalidator.DefaultSeverityLevel,
			EchoContents:            true,
			CollectMetrics:          true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: string(logger.FormatText),
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	for _, stage := range []ccdavalidator.Stage{
		ccdavalidator.StageStructural,
		ccdavalidator.StageVocabulary,
		ccdavalidator.StageContent,
	} {
		raw := c.Engines.URL(stage)
		if raw == "" {
			return pkgerrors.Errorf("engines: no URL for the %s stage; set base_url or %s_url", stage, stage)
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return pkgerrors.Errorf("engines: invalid %s URL %q", stage, raw)
		}
	}
	if c.Engines.Timeout < 0 {
		return pkgerrors.New("engines.timeout must not be negative")
	}
	if c.Engines.VocabularyCache < 0 {
		return pkgerrors.New("engines.vocabulary_cache must not be negative")
	}
	if c.Validation.StageTimeout < 0 {
		return pkgerrors.New("validation.stage_timeout must not be negative")
	}
	if !c.Validation.Severity.IsValid() {
		return pkgerrors.Errorf("validation.severity %d is not a severity level", c.Validation.Severity)
	}
	if c.Workers < 0 {
		return pkgerrors.New("workers must not be negative")
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return pkgerrors.Wrap(err, "logging.level")
	}
	switch logger.Format(strings.ToLower(c.Logging.Format)) {
	case "", logger.FormatText, logger.FormatJSON:
	default:
		return pkgerrors.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file over the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse decodes YAML configuration over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to parse config file")
	}
	return cfg, nil
}

// URL returns the base URL serving stage.
func (e EnginesConfig) URL(stage ccdavalidator.Stage) string {
	var u string
	switch stage {
	case ccdavalidator.StageStructural:
		u = e.StructuralURL
	case ccdavalidator.StageVocabulary:
		u = e.VocabularyURL
	case ccdavalidator.StageContent:
		u = e.ContentURL
	}
	if strings.TrimSpace(u) == "" {
		u = e.BaseURL
	}
	return strings.TrimSpace(u)
}

func (e EnginesConfig) client(stage ccdavalidator.Stage) *remote.Client {
	opts := []remote.Option{remote.WithTimeout(e.Timeout)}
	for k, v := range e.Headers {
		opts = append(opts, remote.WithHeader(k, v))
	}
	return remote.New(e.URL(stage), opts...)
}

// Build creates remote engines for every stage.
func (e EnginesConfig) Build() service.Engines {
	var vocabulary service.VocabularyValidator = e.client(ccdavalidator.StageVocabulary)
	if e.VocabularyCache > 0 {
		vocabulary = service.NewCachingVocabulary(vocabulary, e.VocabularyCache)
	}
	return service.Engines{
		Structural: e.client(ccdavalidator.StageStructural),
		Vocabulary: vocabulary,
		Content:    e.client(ccdavalidator.StageContent),
	}
}

// Options returns the validator options the configuration selects.
func (c *Config) Options() []ccdavalidator.Option {
	return []ccdavalidator.Option{
		ccdavalidator.WithDefaultVocabularyConfig(c.Validation.DefaultVocabularyConfig),
		ccdavalidator.WithStageTimeout(c.Validation.StageTimeout),
		ccdavalidator.WithEchoContents(c.Validation.EchoContents),
		ccdavalidator.WithMetrics(c.Validation.CollectMetrics),
	}
}

// Logger builds the logger the configuration selects, writing to w.
func (c *Config) Logger(w io.Writer) (*logger.Logger, error) {
	level, err := logger.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "logging.level")
	}
	format := logger.Format(strings.ToLower(c.Logging.Format))
	if format == "" {
		format = logger.FormatText
	}
	return logger.NewWithFormat(w, level, format), nil
}
