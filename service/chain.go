package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/gofhir/ccdavalidator/cache"
)

// --- Engine chains ---

// StructuralChain implements StructuralValidator by trying engines in order.
// An engine that returns ErrNotSupported passes the request on; any other
// outcome ends the chain.
type StructuralChain struct {
	engines []StructuralValidator
}

// NewStructuralChain creates a new structural chain.
func NewStructuralChain(engines ...StructuralValidator) *StructuralChain {
	return &StructuralChain{engines: engines}
}

// ValidateStructure tries each engine until one handles the request.
func (c *StructuralChain) ValidateStructure(ctx context.Context, req StructuralRequest) (*StructuralResult, error) {
	for _, e := range c.engines {
		res, err := e.ValidateStructure(ctx, req)
		if errors.Is(err, ErrNotSupported) {
			continue
		}
		return res, err
	}
	return nil, ErrNotSupported
}

// Add appends an engine to the chain.
func (c *StructuralChain) Add(e StructuralValidator) {
	c.engines = append(c.engines, e)
}

// VocabularyChain implements VocabularyValidator by trying engines in order.
type VocabularyChain struct {
	engines []VocabularyValidator
}

// NewVocabularyChain creates a new vocabulary chain.
func NewVocabularyChain(engines ...VocabularyValidator) *VocabularyChain {
	return &VocabularyChain{engines: engines}
}

// ValidateVocabulary tries each engine until one handles the request.
func (c *VocabularyChain) ValidateVocabulary(ctx context.Context, req VocabularyRequest) (*VocabularyResult, error) {
	for _, e := range c.engines {
		res, err := e.ValidateVocabulary(ctx, req)
		if errors.Is(err, ErrNotSupported) {
			continue
		}
		return res, err
	}
	return nil, ErrNotSupported
}

// Add appends an engine to the chain.
func (c *VocabularyChain) Add(e VocabularyValidator) {
	c.engines = append(c.engines, e)
}

// ContentChain implements ContentValidator by trying engines in order.
type ContentChain struct {
	engines []ContentValidator
}

// NewContentChain creates a new content chain.
func NewContentChain(engines ...ContentValidator) *ContentChain {
	return &ContentChain{engines: engines}
}

// ValidateContent tries each engine until one handles the request.
func (c *ContentChain) ValidateContent(ctx context.Context, req ContentRequest) (*ContentResult, error) {
	for _, e := range c.engines {
		res, err := e.ValidateContent(ctx, req)
		if errors.Is(err, ErrNotSupported) {
			continue
		}
		return res, err
	}
	return nil, ErrNotSupported
}

// Add appends an engine to the chain.
func (c *ContentChain) Add(e ContentValidator) {
	c.engines = append(c.engines, e)
}

// --- Caching wrapper ---

// CachingVocabulary wraps a VocabularyValidator with an LRU cache keyed by
// document digest, configuration and severity floor. Vocabulary checks are
// deterministic for that key, and documents are often resubmitted
// unchanged while structural or content issues are fixed.
//
// Failures are not cached.
type CachingVocabulary struct {
	engine VocabularyValidator
	cache  *cache.Cache[string, *VocabularyResult]
}

// NewCachingVocabulary creates a caching wrapper holding up to capacity
// results.
func NewCachingVocabulary(engine VocabularyValidator, capacity int) *CachingVocabulary {
	return &CachingVocabulary{
		engine: engine,
		cache:  cache.New[string, *VocabularyResult](capacity),
	}
}

// ValidateVocabulary checks the cache first, then calls the wrapped engine.
func (c *CachingVocabulary) ValidateVocabulary(ctx context.Context, req VocabularyRequest) (*VocabularyResult, error) {
	key := vocabularyKey(req)

	if res, ok := c.cache.Get(key); ok {
		return cloneVocabulary(res), nil
	}

	res, err := c.engine.ValidateVocabulary(ctx, req)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = &VocabularyResult{}
	}

	c.cache.Set(key, cloneVocabulary(res))
	return res, nil
}

// Stats returns the cache statistics.
func (c *CachingVocabulary) Stats() cache.Stats {
	return c.cache.Stats()
}

func vocabularyKey(req VocabularyRequest) string {
	sum := sha256.Sum256([]byte(req.Document))
	return strings.Join([]string{
		string(req.Objective),
		req.ReferenceFileName,
		req.VocabularyConfig,
		req.Severity.String(),
		hex.EncodeToString(sum[:]),
	}, "|")
}

func cloneVocabulary(res *VocabularyResult) *VocabularyResult {
	out := &VocabularyResult{Coverage: res.Coverage}
	if res.Findings != nil {
		out.Findings = append(out.Findings, res.Findings...)
	}
	return out
}
