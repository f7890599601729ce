package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	ccdavalidator "github.com/gofhir/ccdavalidator"
	"github.com/gofhir/ccdavalidator/config"
	"github.com/gofhir/ccdavalidator/engine"
	"github.com/gofhir/ccdavalidator/outcome"
	"github.com/gofhir/ccdavalidator/pipeline"
	"github.com/gofhir/ccdavalidator/telemetry"
	"github.com/gofhir/ccdavalidator/worker"
)

const instrumentationName = "github.com/gofhir/ccdavalidator"

// validateFlags holds the per-invocation request settings.
type validateFlags struct {
	configPath       string
	engineURL        string
	objective        string
	reference        string
	vocabularyConfig string
	severity         string
	flags            ccdavalidator.ContentFlags
	output           string
	where            string
	workers          int
	telemetry        bool
}

func newValidateCmd() *cobra.Command {
	vf := &validateFlags{}

	cmd := &cobra.Command{
		Use:   "validate [flags] <file>...",
		Short: "Validate one or more C-CDA documents",
		Example: `  ccda-validator validate --objective 170.315_b1_ToC_Amb ccd.xml
  ccda-validator validate --objective C-CDA_IG_Only --output fhir *.xml
  cat ccd.xml | ccda-validator validate --objective NonSpecificCCDA -`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, vf, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&vf.configPath, "config", "", "Path to a YAML configuration file")
	f.StringVar(&vf.engineURL, "engine-url", "", "Base URL of the validation engines (overrides config)")
	f.StringVar(&vf.objective, "objective", "", "Validation objective (see 'objectives')")
	f.StringVar(&vf.reference, "reference", "", "Reference document file name for content validation")
	f.StringVar(&vf.vocabularyConfig, "vocabulary-config", "", "Vocabulary configuration (empty = configured default)")
	f.StringVar(&vf.severity, "severity", "", "Severity floor: INFO, WARNING, ERROR")
	f.BoolVar(&vf.flags.CuresUpdate, "cures-update", false, "Apply Cures Update content rules")
	f.BoolVar(&vf.flags.SVAP2022, "svap2022", false, "Apply SVAP 2022 content rules")
	f.BoolVar(&vf.flags.SVAP2023, "svap2023", false, "Apply SVAP 2023 content rules")
	f.BoolVar(&vf.flags.USCDIv4, "uscdiv4", false, "Apply USCDI v4 content rules")
	f.StringVar(&vf.output, "output", "text", "Output format: text, json, fhir")
	f.StringVar(&vf.where, "where", "", "FHIRPath filter evaluated against each finding as an OperationOutcome")
	f.IntVar(&vf.workers, "workers", 0, "Concurrent validations (overrides config)")
	f.BoolVar(&vf.telemetry, "telemetry", false, "Report spans and metrics to the global OpenTelemetry providers")
	_ = cmd.MarkFlagRequired("objective")

	return cmd
}

func runValidate(cmd *cobra.Command, vf *validateFlags, args []string) error {
	switch vf.output {
	case outputText, outputJSON, outputFHIR:
	default:
		return exitError(exitUsage, "unknown output format %q", vf.output)
	}

	cfg, err := loadConfig(cmd, vf)
	if err != nil {
		return exitError(exitUsage, "%v", err)
	}

	severity := cfg.Validation.Severity
	if vf.severity != "" {
		if severity, err = ccdavalidator.ParseSeverityLevel(vf.severity); err != nil {
			return exitError(exitUsage, "%v", err)
		}
	}

	var query *outcome.Query
	if vf.where != "" {
		query = outcome.NewQuery(0)
		if _, err := query.Compile(vf.where); err != nil {
			return exitError(exitUsage, "%v", err)
		}
	}

	log, err := cfg.Logger(cmd.ErrOrStderr())
	if err != nil {
		return exitError(exitUsage, "%v", err)
	}

	v := engine.NewWithEngines(cfg.Engines.Build(), cfg.Options()...)
	defer v.Close()
	v.SetLogger(log)

	if vf.telemetry {
		tracing := telemetry.NewTracingObserver(otel.GetTracerProvider().Tracer(instrumentationName))
		metrics, err := telemetry.NewMetricsObserver(otel.GetMeterProvider().Meter(instrumentationName))
		if err != nil {
			return fmt.Errorf("creating metric instruments: %w", err)
		}
		v.SetEventHandler(pipeline.MultiEventHandler(tracing.Handle, metrics.Handle))
	}

	reqOpts := []ccdavalidator.RequestOption{
		ccdavalidator.WithReferenceFileName(vf.reference),
		ccdavalidator.WithContentFlags(vf.flags),
		ccdavalidator.WithVocabularyConfig(vf.vocabularyConfig),
		ccdavalidator.WithSeverity(severity),
	}
	objective := ccdavalidator.Objective(vf.objective)

	jobs, openFailed := openJobs(cmd, args, objective, reqOpts)
	log.Debug("validating %d document(s) with %d worker(s)", len(jobs), cfg.Workers)

	batch := worker.NewBatchValidator(v, cfg.Workers).ValidateBatch(cmd.Context(), jobs)

	reports := make([]report, 0, len(batch.Results))
	for _, jr := range batch.Results {
		r := report{name: jr.ID, duration: jr.Duration, err: jr.Error, result: jr.Result}
		if query != nil && jr.Result != nil {
			filtered, err := query.FilterResult(vf.where, jr.Result)
			if err != nil {
				return exitError(exitUsage, "%v", err)
			}
			r.shown = filtered
		} else {
			r.shown = jr.Result
		}
		reports = append(reports, r)
	}

	if err := writeReports(cmd.OutOrStdout(), vf.output, reports); err != nil {
		return err
	}

	if openFailed || batch.HasErrors() {
		return exitError(exitValidation, "validation failed")
	}
	return nil
}

// loadConfig reads the configuration file, if any, and applies flag
// overrides.
func loadConfig(cmd *cobra.Command, vf *validateFlags) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if vf.configPath != "" {
		loaded, err := config.LoadFromFile(vf.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if vf.engineURL != "" {
		cfg.Engines.BaseURL = vf.engineURL
		cfg.Engines.StructuralURL = ""
		cfg.Engines.VocabularyURL = ""
		cfg.Engines.ContentURL = ""
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = vf.workers
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		cfg.Logging.Format = format
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openJobs opens every named document. "-" reads standard input; other
// arguments are glob patterns. Documents that cannot be opened are reported
// on stderr and left out of the batch.
func openJobs(cmd *cobra.Command, args []string, objective ccdavalidator.Objective, opts []ccdavalidator.RequestOption) ([]worker.Job, bool) {
	var jobs []worker.Job
	failed := false
	stderr := cmd.ErrOrStderr()

	for _, arg := range args {
		if arg == "-" {
			doc := io.NopCloser(cmd.InOrStdin())
			jobs = append(jobs, worker.Job{ID: "stdin", Request: ccdavalidator.NewRequest(objective, "stdin", doc, opts...)})
			continue
		}

		matches, err := filepath.Glob(arg)
		if err != nil {
			fmt.Fprintf(stderr, "Error with pattern '%s': %v\n", arg, err)
			failed = true
			continue
		}
		if len(matches) == 0 {
			fmt.Fprintf(stderr, "No files match pattern: %s\n", arg)
			failed = true
			continue
		}

		for _, path := range matches {
			doc, err := os.Open(path)
			if err != nil {
				fmt.Fprintf(stderr, "Error reading %s: %v\n", path, err)
				failed = true
				continue
			}
			jobs = append(jobs, worker.Job{
				ID:      path,
				Request: ccdavalidator.NewRequest(objective, filepath.Base(path), doc, opts...),
			})
		}
	}
	return jobs, failed
}
