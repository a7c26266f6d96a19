package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tsawler/pdfhtml/model"
)

func TestCacheSingleFlight(t *testing.T) {
	c := NewCache()
	key := model.FontRef{Number: 5}
	release := make(chan struct{})
	var calls atomic.Int32

	const n = 50
	results := make([]*FontResult, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := c.Get(context.Background(), key, func(context.Context) *FontResult {
				calls.Add(1)
				<-release
				return &FontResult{Ref: key, Family: "pdf-f5-0"}
			})
			if err != nil {
				t.Error(err)
			}
			results[i] = r
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 || c.Runs(key) != 1 {
		t.Errorf("computed %d times (Runs %d), want 1", calls.Load(), c.Runs(key))
	}
	for i, r := range results {
		if r != results[0] {
			t.Fatalf("result %d differs from result 0", i)
		}
	}

	// Later requests are served from the memo.
	r, err := c.Get(context.Background(), key, func(context.Context) *FontResult {
		t.Error("recomputed a stored font")
		return nil
	})
	if err != nil || r != results[0] {
		t.Errorf("Get after completion = %v, %v", r, err)
	}
}

func TestCacheCancelledWaiter(t *testing.T) {
	c := NewCache()
	key := model.FontRef{Number: 9}
	started := make(chan struct{})
	release := make(chan struct{})
	var sawCancel atomic.Bool

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := c.Get(ctx, key, func(fctx context.Context) *FontResult {
			close(started)
			<-release
			sawCancel.Store(fctx.Err() != nil)
			return &FontResult{Ref: key}
		})
		errc <- err
	}()

	<-started
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled Get returned %v", err)
	}
	close(release)

	// The computation finishes and is stored despite the cancellation.
	r, err := c.Get(context.Background(), key, func(context.Context) *FontResult {
		return &FontResult{Ref: key, Family: "second"}
	})
	if err != nil {
		t.Fatal(err)
	}
	if r.Family == "second" {
		t.Error("cancellation discarded the first computation")
	}
	if c.Runs(key) != 1 {
		t.Errorf("Runs = %d, want 1", c.Runs(key))
	}
	if sawCancel.Load() {
		t.Error("computation saw the waiter's cancellation")
	}
	if len(c.Results()) != 1 {
		t.Errorf("Results() = %v", c.Results())
	}
}
