package analyzer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"

	"github.com/maypok86/otter"

	"github.com/mvp-joe/codegenius/internal/extractor"
)

// resultCache memoizes extraction results by path and content.
// A nil *resultCache is a disabled cache.
type resultCache struct {
	cache otter.Cache[string, extractor.Result]
}

func newResultCache(capacity int) (*resultCache, error) {
	if capacity <= 0 {
		return nil, nil
	}

	cache, err := otter.MustBuilder[string, extractor.Result](capacity).
		CollectStats().
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build result cache: %w", err)
	}

	return &resultCache{cache: cache}, nil
}

// cacheKey hashes the path and the content together; the separator keeps
// ("ab", "c") and ("a", "bc") apart.
func cacheKey(path string, source []byte) string {
	h := sha256.New()
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(source)
	return hex.EncodeToString(h.Sum(nil))
}

func (c *resultCache) get(key string) (extractor.Result, bool) {
	if c == nil {
		return extractor.Result{}, false
	}
	result, ok := c.cache.Get(key)
	if !ok {
		return extractor.Result{}, false
	}
	return cloneResult(result), true
}

func (c *resultCache) set(key string, result extractor.Result) {
	if c == nil {
		return
	}
	c.cache.Set(key, cloneResult(result))
}

// cloneResult copies the slices so entries never share backing arrays with
// results handed to callers.
func cloneResult(r extractor.Result) extractor.Result {
	r.Functions = slices.Clone(r.Functions)
	r.Classes = slices.Clone(r.Classes)
	r.Calls = slices.Clone(r.Calls)
	return r
}

func (c *resultCache) hits() int64 {
	if c == nil {
		return 0
	}
	return c.cache.Stats().Hits()
}

func (c *resultCache) close() {
	if c == nil {
		return
	}
	c.cache.Close()
}
