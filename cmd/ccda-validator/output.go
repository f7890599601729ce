package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	ccdavalidator "github.com/gofhir/ccdavalidator"
	"github.com/gofhir/ccdavalidator/outcome"
)

// Output formats.
const (
	outputText = "text"
	outputJSON = "json"
	outputFHIR = "fhir"
)

// report is one validated document ready for printing.
type report struct {
	name     string
	duration time.Duration
	err      error

	// result is the full envelope; shown is what survived the --where filter
	result *ccdavalidator.Result
	shown  *ccdavalidator.Result
}

func writeReports(w io.Writer, format string, reports []report) error {
	switch format {
	case outputJSON:
		results := make([]*ccdavalidator.Result, 0, len(reports))
		for _, r := range reports {
			if r.shown != nil {
				results = append(results, r.shown)
			}
		}
		return writeJSON(w, results)
	case outputFHIR:
		outcomes := make([]map[string]any, 0, len(reports))
		for _, r := range reports {
			if r.shown != nil {
				outcomes = append(outcomes, outcome.FromResult(r.shown))
			}
		}
		return writeJSON(w, outcomes)
	default:
		for _, r := range reports {
			printTextReport(w, r)
		}
		return nil
	}
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printTextReport(w io.Writer, r report) {
	fmt.Fprintf(w, "== %s ==\n", r.name)
	if r.err != nil {
		fmt.Fprintf(w, "Status: FAILED\nError: %v\n\n", r.err)
		return
	}

	meta := r.result.Metadata
	status := "VALID"
	switch {
	case meta.ServiceError:
		status = "SERVICE ERROR"
	case r.result.HasErrors():
		status = "INVALID"
	}

	fmt.Fprintf(w, "Status: %s\n", status)
	fmt.Fprintf(w, "Objective: %s\n", meta.Objective)
	if meta.DocumentType != "" || meta.DocumentVersion != "" {
		fmt.Fprintf(w, "Document: %s %s\n", meta.DocumentType, meta.DocumentVersion)
	}
	if meta.ServiceError {
		fmt.Fprintf(w, "Service error: %s\n", meta.ServiceErrorMessage)
	}

	errs, warnings, info := countSeverities(r.result.Findings)
	fmt.Fprintf(w, "Errors: %d, Warnings: %d, Info: %d\n", errs, warnings, info)
	fmt.Fprintf(w, "Duration: %s\n", r.duration.Round(time.Microsecond))

	if len(r.shown.Findings) > 0 {
		fmt.Fprintln(w, "\nFindings:")
		for _, f := range r.shown.Findings {
			location := ""
			if f.XPath != "" {
				location = " @ " + f.XPath
			}
			fmt.Fprintf(w, "  %s [%s] %s%s\n", severityLabel(f.Type.Severity()), f.Stage, f.Description, location)
		}
	}

	fmt.Fprintln(w)
}

func countSeverities(findings []ccdavalidator.Finding) (errs, warnings, info int) {
	for _, f := range findings {
		switch f.Type.Severity() {
		case ccdavalidator.SeverityError:
			errs++
		case ccdavalidator.SeverityWarning:
			warnings++
		default:
			info++
		}
	}
	return errs, warnings, info
}

func severityLabel(s ccdavalidator.SeverityLevel) string {
	switch s {
	case ccdavalidator.SeverityError:
		return "ERROR"
	case ccdavalidator.SeverityWarning:
		return "WARN "
	default:
		return "INFO "
	}
}
