// Package remote implements the validation engine contracts over HTTP for
// engines deployed as separate services.
//
// Each stage is a JSON POST to {base}/structural, {base}/vocabulary or
// {base}/content. A 2xx response decodes into the stage's result struct. A
// non-2xx response may carry {"errorKind": ..., "message": ...}; the kind is
// carried over so the pipeline reports the right service error message.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"

	ccdavalidator "github.com/gofhir/ccdavalidator"
	"github.com/gofhir/ccdavalidator/service"
)

// Endpoint paths relative to the base URL.
const (
	PathStructural = "/structural"
	PathVocabulary = "/vocabulary"
	PathContent    = "/content"
)

// Error kinds as named in remote error bodies.
const (
	KindNameIO           = "io"
	KindNameParse        = "parse"
	KindNameTypeMismatch = "typeMismatch"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Client talks to a remote validation service. It implements all three
// engine contracts and is safe for concurrent use.
type Client struct {
	base       string
	httpClient *http.Client
	timeout    time.Duration
	headers    http.Header
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds each request. Zero means no per-request bound beyond
// the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.timeout = d
		}
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Add(key, value)
	}
}

// New creates a Client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base:       strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Engines returns the client wired as all three engines.
func (c *Client) Engines() service.Engines {
	return service.Engines{Structural: c, Vocabulary: c, Content: c}
}

// BaseURL returns the service base URL.
func (c *Client) BaseURL() string {
	return c.base
}

// structuralResponse allows services that only report the US Realm Header
// templateId extension instead of a resolved version.
type structuralResponse struct {
	service.StructuralResult
	HeaderExtension *string `json:"headerExtension,omitempty"`
}

// ValidateStructure posts the request to the structural endpoint.
func (c *Client) ValidateStructure(ctx context.Context, req service.StructuralRequest) (*service.StructuralResult, error) {
	var resp structuralResponse
	if err := c.post(ctx, ccdavalidator.StageStructural, PathStructural, req, &resp); err != nil {
		return nil, err
	}
	if resp.Facts.Version == "" && resp.HeaderExtension != nil {
		resp.Facts.Version = ccdavalidator.VersionForHeaderExtension(*resp.HeaderExtension)
	}
	return &resp.StructuralResult, nil
}

// ValidateVocabulary posts the request to the vocabulary endpoint.
func (c *Client) ValidateVocabulary(ctx context.Context, req service.VocabularyRequest) (*service.VocabularyResult, error) {
	var resp service.VocabularyResult
	if err := c.post(ctx, ccdavalidator.StageVocabulary, PathVocabulary, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ValidateContent posts the request to the content endpoint.
func (c *Client) ValidateContent(ctx context.Context, req service.ContentRequest) (*service.ContentResult, error) {
	var resp service.ContentResult
	if err := c.post(ctx, ccdavalidator.StageContent, PathContent, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, stage ccdavalidator.Stage, path string, in, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(in)
	if err != nil {
		return pkgerrors.Wrapf(err, "encoding %s request", stage)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrapf(err, "building %s request", stage)
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrapf(err, "%s service request failed", stage)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(stage, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrapf(err, "decoding %s response", stage)
	}
	return nil
}

// errorBody is the error document returned by remote engines.
type errorBody struct {
	ErrorKind string `json:"errorKind"`
	Message   string `json:"message"`
}

// decodeError turns a non-2xx response into an error. 404 means the service
// does not offer the stage.
func decodeError(stage ccdavalidator.Stage, resp *http.Response) error {
	if resp.StatusCode == http.StatusNotFound {
		return pkgerrors.Wrapf(service.ErrNotSupported, "%s service", stage)
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err != nil || eb.Message == "" {
		eb.Message = strings.TrimSpace(string(raw))
	}
	if eb.Message == "" {
		eb.Message = resp.Status
	}

	kind := ParseKind(eb.ErrorKind)
	if kind == ccdavalidator.KindUnclassified {
		return pkgerrors.Errorf("%s service returned %s: %s", stage, resp.Status, eb.Message)
	}
	return ccdavalidator.NewStageError(kind, stage, pkgerrors.New(eb.Message))
}

// ParseKind maps a remote error kind name to an ErrorKind. Unknown names are
// unclassified.
func ParseKind(name string) ccdavalidator.ErrorKind {
	switch strings.TrimSpace(name) {
	case KindNameIO:
		return ccdavalidator.KindIO
	case KindNameParse:
		return ccdavalidator.KindParse
	case KindNameTypeMismatch:
		return ccdavalidator.KindTypeMismatch
	default:
		return ccdavalidator.KindUnclassified
	}
}
