package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ccdavalidator "github.com/gofhir/ccdavalidator"
)

// engineServer fakes the three remote engines. structural is the JSON body
// returned by the structural endpoint.
type engineServer struct {
	*httptest.Server
	vocabularyCalls atomic.Int32
	contentCalls    atomic.Int32
}

func newEngineServer(t *testing.T, structural string) *engineServer {
	t.Helper()
	es := &engineServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/structural", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(structural))
	})
	mux.HandleFunc("/vocabulary", func(w http.ResponseWriter, _ *http.Request) {
		es.vocabularyCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"findings":[{"type":"ONC 2015 S&CC Vocabulary Validation Conformance Warning","description":"code not in value set","xPath":"/ClinicalDocument/code"}],"coverage":{"configurationCount":3}}`))
	})
	mux.HandleFunc("/content", func(w http.ResponseWriter, _ *http.Request) {
		es.contentCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"findings":[]}`))
	})
	es.Server = httptest.NewServer(mux)
	t.Cleanup(es.Close)
	return es
}

const cleanStructural = `{"findings":[],"facts":{"documentType":"Continuity of Care Document","version":"R2.1"}}`

const schemaErrorStructural = `{"findings":[{"type":"C-CDA MDHT Conformance Error","isSchemaError":true,"description":"element not allowed"}],"facts":{"version":"R2.1"}}`

func executeCommand(args ...string) (stdout, stderr string, err error) {
	return executeWithInput("", args...)
}

func executeWithInput(stdin string, args ...string) (stdout, stderr string, err error) {
	root := newRootCmd()
	var outBuf, errBuf bytes.Buffer
	root.SetOut(&outBuf)
	root.SetErr(&errBuf)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err = root.Execute()
	return outBuf.String(), errBuf.String(), err
}

func writeDocument(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("<ClinicalDocument/>"), 0o644))
	return path
}

func exitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return -1
}

func TestValidate_Text(t *testing.T) {
	srv := newEngineServer(t, cleanStructural)
	path := writeDocument(t, "ccd.xml")

	stdout, _, err := executeCommand("validate", "--engine-url", srv.URL, "--log-level", "none",
		"--objective", string(ccdavalidator.ObjectiveB1ToCAmb), path)
	require.NoError(t, err)

	assert.Contains(t, stdout, "== "+path+" ==")
	assert.Contains(t, stdout, "Status: VALID")
	assert.Contains(t, stdout, "Document: Continuity of Care Document R2.1")
	assert.Contains(t, stdout, "Errors: 0, Warnings: 1, Info: 0")
	assert.Contains(t, stdout, "WARN  [vocabulary] code not in value set @ /ClinicalDocument/code")
	assert.Equal(t, int32(1), srv.vocabularyCalls.Load())
	assert.Equal(t, int32(1), srv.contentCalls.Load())
}

func TestValidate_SchemaErrorFails(t *testing.T) {
	srv := newEngineServer(t, schemaErrorStructural)
	path := writeDocument(t, "broken.xml")

	stdout, _, err := executeCommand("validate", "--engine-url", srv.URL, "--log-level", "none",
		"--objective", string(ccdavalidator.ObjectiveB1ToCAmb), "--output", "json", path)
	require.Error(t, err)
	assert.Equal(t, exitValidation, exitCode(err))

	var results []ccdavalidator.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "broken.xml", results[0].Metadata.FileName)
	assert.Len(t, results[0].Findings, 1)
	assert.Zero(t, srv.vocabularyCalls.Load(), "schema errors skip vocabulary")
	assert.Zero(t, srv.contentCalls.Load())
}

func TestValidate_FHIROutputWithFilter(t *testing.T) {
	srv := newEngineServer(t, cleanStructural)

	stdout, _, err := executeWithInput("<ClinicalDocument/>",
		"validate", "--engine-url", srv.URL, "--log-level", "none",
		"--objective", string(ccdavalidator.ObjectiveCCDAIGPlusVocab),
		"--output", "fhir", "--where", "issue.severity = 'error'", "-")
	require.NoError(t, err)

	var outcomes []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &outcomes))
	require.Len(t, outcomes, 1)
	assert.Equal(t, "OperationOutcome", outcomes[0]["resourceType"])

	issues, ok := outcomes[0]["issue"].([]any)
	require.True(t, ok)
	require.Len(t, issues, 1, "the warning is filtered out")
	assert.Equal(t, "information", issues[0].(map[string]any)["severity"])
}

func TestValidate_UsageErrors(t *testing.T) {
	path := writeDocument(t, "ccd.xml")

	tests := []struct {
		name string
		args []string
	}{
		{"bad output", []string{"--output", "yaml"}},
		{"bad severity", []string{"--severity", "loud"}},
		{"bad filter", []string{"--where", "issue.("}},
		{"bad engine URL", []string{"--engine-url", "not a url"}},
		{"missing config", []string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"validate", "--objective", string(ccdavalidator.ObjectiveB1ToCAmb)}, tt.args...)
			args = append(args, path)
			_, _, err := executeCommand(args...)
			require.Error(t, err)
			assert.Equal(t, exitUsage, exitCode(err))
		})
	}
}

func TestValidate_MissingFile(t *testing.T) {
	srv := newEngineServer(t, cleanStructural)

	_, stderr, err := executeCommand("validate", "--engine-url", srv.URL, "--log-level", "none",
		"--objective", string(ccdavalidator.ObjectiveB1ToCAmb), filepath.Join(t.TempDir(), "none-*.xml"))
	require.Error(t, err)
	assert.Equal(t, exitValidation, exitCode(err))
	assert.Contains(t, stderr, "No files match pattern")
}

func TestValidate_RequiresObjective(t *testing.T) {
	_, _, err := executeCommand("validate", writeDocument(t, "ccd.xml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "objective")
}

func TestValidate_ConfigFile(t *testing.T) {
	srv := newEngineServer(t, cleanStructural)
	cfgPath := filepath.Join(t.TempDir(), "ccda-validator.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("engines:\n  base_url: "+srv.URL+"\nlogging:\n  level: none\n"), 0o644))

	_, _, err := executeCommand("validate", "--config", cfgPath,
		"--objective", string(ccdavalidator.ObjectiveCCDAIGOnly), writeDocument(t, "ccd.xml"))
	require.NoError(t, err)
	assert.Zero(t, srv.vocabularyCalls.Load(), "IG-only objectives never run vocabulary")
}

func TestObjectives(t *testing.T) {
	stdout, _, err := executeCommand("objectives")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, len(ccdavalidator.KnownObjectives())+1)

	rows := make(map[string][]string)
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		rows[fields[0]] = fields[1:]
	}
	assert.Equal(t, []string{"yes", "yes"}, rows[string(ccdavalidator.ObjectiveB1ToCAmb)])
	assert.Equal(t, []string{"yes", "no"}, rows[string(ccdavalidator.ObjectiveB4CCDSAmb)])
	assert.Equal(t, []string{"no", "no"}, rows[string(ccdavalidator.ObjectiveCCDAIGOnly)])
	assert.Equal(t, []string{"no", "no"}, rows[string(ccdavalidator.ObjectiveClinicalOfficeVisitSummary)])
}

func TestRootCmd(t *testing.T) {
	root := newRootCmd()
	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "validate")
	assert.Contains(t, names, "objectives")
}
