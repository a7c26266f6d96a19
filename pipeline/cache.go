package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/tsawler/pdfhtml/model"
)

// Cache is the document-wide font cache. Each font is processed at most
// once; concurrent first requests for the same font share one computation.
// Stored results are never modified.
type Cache struct {
	group singleflight.Group

	mu   sync.Mutex
	done map[model.FontRef]*FontResult
	runs map[model.FontRef]int
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		done: make(map[model.FontRef]*FontResult),
		runs: make(map[model.FontRef]int),
	}
}

// Get returns the result for ref, computing it with fn on first use.
//
// fn runs on a context detached from ctx, so a caller that gives up waiting
// neither aborts the computation nor leaves a partial entry behind: Get
// returns ctx.Err() and the result is stored when fn finishes.
func (c *Cache) Get(ctx context.Context, ref model.FontRef, fn func(context.Context) *FontResult) (*FontResult, error) {
	if r, ok := c.Lookup(ref); ok {
		return r, nil
	}
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(ref.String(), func() (any, error) {
		if r, ok := c.Lookup(ref); ok {
			return r, nil
		}
		c.mu.Lock()
		c.runs[ref]++
		c.mu.Unlock()

		r := fn(detached)

		c.mu.Lock()
		c.done[ref] = r
		c.mu.Unlock()
		return r, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val.(*FontResult), nil
	}
}

// Lookup returns a stored result without computing anything.
func (c *Cache) Lookup(ref model.FontRef) (*FontResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.done[ref]
	return r, ok
}

// Runs reports how many times the computation for ref has started.
func (c *Cache) Runs(ref model.FontRef) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runs[ref]
}

// Results returns a copy of every stored result.
func (c *Cache) Results() map[model.FontRef]*FontResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[model.FontRef]*FontResult, len(c.done))
	for k, v := range c.done {
		out[k] = v
	}
	return out
}
