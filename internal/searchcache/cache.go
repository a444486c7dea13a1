// Package searchcache memoizes geocode results for repeated queries within a
// session.
package searchcache

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/urbanperceptions/survey-client/internal/api"
)

type Cache struct {
	mu  sync.Mutex
	lru *lru.Cache[string, []api.GeocodeResult]
}

func New(size int) *Cache {
	if size <= 0 {
		size = 128
	}
	c, _ := lru.New[string, []api.GeocodeResult](size)
	return &Cache{lru: c}
}

func (c *Cache) Get(query string) ([]api.GeocodeResult, bool) {
	k := Key(query)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Get(k)
}

func (c *Cache) Put(query string, results []api.GeocodeResult) {
	k := Key(query)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(k, results)
}

// Key normalizes a query (lowercase, collapsed whitespace) and hashes it, so
// trivially different spellings of the same search share an entry.
func Key(query string) string {
	norm := collapseWhitespace(strings.ToLower(strings.TrimSpace(query)))
	return fmt.Sprintf("q=%016x", xxhash.Sum64String(norm))
}

func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	wasWS := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if !wasWS {
				b.WriteByte(' ')
				wasWS = true
			}
			continue
		}
		b.WriteRune(r)
		wasWS = false
	}
	return strings.TrimSpace(b.String())
}
