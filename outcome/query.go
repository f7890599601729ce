package outcome

import (
	"encoding/json"

	"github.com/gofhir/fhirpath"
	pkgerrors "github.com/pkg/errors"

	ccdavalidator "github.com/gofhir/ccdavalidator"
	"github.com/gofhir/ccdavalidator/cache"
)

// DefaultQueryCacheSize is the number of compiled expressions a Query keeps.
const DefaultQueryCacheSize = 64

// Query evaluates FHIRPath expressions against rendered outcomes. Compiled
// expressions are cached; a Query is safe for concurrent use.
type Query struct {
	exprs *cache.Cache[string, *fhirpath.Expression]
}

// NewQuery creates a Query caching up to capacity compiled expressions.
func NewQuery(capacity int) *Query {
	if capacity <= 0 {
		capacity = DefaultQueryCacheSize
	}
	return &Query{exprs: cache.New[string, *fhirpath.Expression](capacity)}
}

// Compile returns the compiled form of expr, compiling it on first use.
func (q *Query) Compile(expr string) (*fhirpath.Expression, error) {
	compiled, err := q.exprs.GetOrLoad(expr, func() (*fhirpath.Expression, error) {
		return fhirpath.Compile(expr)
	})
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "invalid FHIRPath expression %q", expr)
	}
	return compiled, nil
}

// Evaluate evaluates expr against a JSON resource.
func (q *Query) Evaluate(expr string, resource []byte) (fhirpath.Collection, error) {
	compiled, err := q.Compile(expr)
	if err != nil {
		return nil, err
	}
	out, err := compiled.Evaluate(resource)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "evaluating FHIRPath expression %q", expr)
	}
	return out, nil
}

// Matches reports whether expr is true for resource. An empty result is
// false; a non-boolean, non-empty result is true.
func (q *Query) Matches(expr string, resource []byte) (bool, error) {
	out, err := q.Evaluate(expr, resource)
	if err != nil {
		return false, err
	}
	if out.Empty() {
		return false, nil
	}
	b, err := out.ToBoolean()
	if err != nil {
		return true, nil
	}
	return b, nil
}

// Filter returns the findings for which expr is true. Each finding is
// evaluated as a single-issue OperationOutcome, so expressions address the
// issue as issue.severity, issue.code, issue.details.coding.code and so on.
func (q *Query) Filter(expr string, findings []ccdavalidator.Finding) ([]ccdavalidator.Finding, error) {
	if _, err := q.Compile(expr); err != nil {
		return nil, err
	}

	out := make([]ccdavalidator.Finding, 0, len(findings))
	for _, f := range findings {
		resource, err := json.Marshal(map[string]any{
			"resourceType": "OperationOutcome",
			"issue":        []any{Issue(f)},
		})
		if err != nil {
			return nil, pkgerrors.Wrap(err, "encoding finding")
		}

		ok, err := q.Matches(expr, resource)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// FilterResult returns a copy of result holding only the findings for which
// expr is true. Metadata is unchanged.
func (q *Query) FilterResult(expr string, result *ccdavalidator.Result) (*ccdavalidator.Result, error) {
	findings, err := q.Filter(expr, result.Findings)
	if err != nil {
		return nil, err
	}
	clone := result.Clone()
	clone.Findings = findings
	return clone, nil
}

// CacheStats returns statistics for the compiled expression cache.
func (q *Query) CacheStats() cache.Stats {
	return q.exprs.Stats()
}
