package ccdavalidator

import (
	"io"
	"strings"
	"time"
)

// DefaultVocabularyConfig is substituted when a request names no vocabulary
// configuration.
const DefaultVocabularyConfig = "ccdaReferenceValidatorConfig"

// ContentFlags toggle optional content validation rule sets.
type ContentFlags struct {
	CuresUpdate bool `json:"curesUpdate" yaml:"cures_update"`
	SVAP2022    bool `json:"svap2022" yaml:"svap2022"`
	SVAP2023    bool `json:"svap2023" yaml:"svap2023"`
	USCDIv4     bool `json:"uscdiv4" yaml:"uscdiv4"`
}

// Request is a single validation request. All fields are request-scoped.
type Request struct {
	// Objective selects the certification profile
	Objective Objective

	// FileName is the original name of the submitted document
	FileName string

	// ReferenceFileName identifies the reference document for content matching
	ReferenceFileName string

	// Document is the raw document stream. The validator closes it.
	Document io.ReadCloser

	// Flags toggle optional content validation rules
	Flags ContentFlags

	// VocabularyConfig selects the vocabulary rule set (empty = default)
	VocabularyConfig string

	// Severity is the reporting floor
	Severity SeverityLevel
}

// ResolveVocabularyConfig returns name, or fallback when name is empty. An
// empty fallback means DefaultVocabularyConfig. The second result reports
// whether the fallback was substituted.
func ResolveVocabularyConfig(name, fallback string) (string, bool) {
	if strings.TrimSpace(name) != "" {
		return name, false
	}
	if strings.TrimSpace(fallback) == "" {
		fallback = DefaultVocabularyConfig
	}
	return fallback, true
}

// RequestOption configures a Request built with NewRequest.
type RequestOption func(*Request)

// NewRequest builds a request with default flags, vocabulary configuration
// and severity floor.
func NewRequest(objective Objective, fileName string, document io.ReadCloser, opts ...RequestOption) Request {
	r := Request{
		Objective:        objective,
		FileName:         fileName,
		Document:         document,
		VocabularyConfig: DefaultVocabularyConfig,
		Severity:         DefaultSeverityLevel,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// WithReferenceFileName sets the reference document name.
func WithReferenceFileName(name string) RequestOption {
	return func(r *Request) {
		r.ReferenceFileName = name
	}
}

// WithContentFlags sets the content validation flags.
func WithContentFlags(flags ContentFlags) RequestOption {
	return func(r *Request) {
		r.Flags = flags
	}
}

// WithVocabularyConfig sets the vocabulary configuration name.
func WithVocabularyConfig(name string) RequestOption {
	return func(r *Request) {
		r.VocabularyConfig = name
	}
}

// WithSeverity sets the severity floor.
func WithSeverity(level SeverityLevel) RequestOption {
	return func(r *Request) {
		if level.IsValid() {
			r.Severity = level
		}
	}
}

// Option configures the validation engine.
type Option func(*Options)

// Options holds engine configuration.
type Options struct {
	// CollectMetrics enables per-stage metric collection
	CollectMetrics bool

	// EchoContents copies the raw document text into result metadata
	EchoContents bool

	// DefaultVocabularyConfig replaces DefaultVocabularyConfig for this engine
	DefaultVocabularyConfig string

	// StageTimeout bounds each engine call (0 = no timeout)
	StageTimeout time.Duration
}

// DefaultOptions returns the default engine configuration.
func DefaultOptions() *Options {
	return &Options{
		CollectMetrics:          true,
		EchoContents:            true,
		DefaultVocabularyConfig: DefaultVocabularyConfig,
	}
}

// WithMetrics enables or disables metric collection.
func WithMetrics(enable bool) Option {
	return func(o *Options) {
		o.CollectMetrics = enable
	}
}

// WithEchoContents enables or disables copying the document text into metadata.
func WithEchoContents(enable bool) Option {
	return func(o *Options) {
		o.EchoContents = enable
	}
}

// WithDefaultVocabularyConfig sets the configuration used when a request names none.
func WithDefaultVocabularyConfig(name string) Option {
	return func(o *Options) {
		if strings.TrimSpace(name) != "" {
			o.DefaultVocabularyConfig = name
		}
	}
}

// WithStageTimeout bounds each engine call.
func WithStageTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d >= 0 {
			o.StageTimeout = d
		}
	}
}
