package cache

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingObserver struct {
	hits, misses, shared, evicted, failed atomic.Int32
}

func (o *countingObserver) Hit()     { o.hits.Add(1) }
func (o *countingObserver) Miss()    { o.misses.Add(1) }
func (o *countingObserver) Shared()  { o.shared.Add(1) }
func (o *countingObserver) Evicted() { o.evicted.Add(1) }
func (o *countingObserver) Failed()  { o.failed.Add(1) }

func TestGetCachesValue(t *testing.T) {
	c, err := NewSingleFlight[string, int](10)
	if err != nil {
		t.Fatalf("NewSingleFlight() error = %v", err)
	}

	calls := 0
	compute := func() (int, error) {
		calls++
		return 7, nil
	}
	for i := 0; i < 3; i++ {
		got, err := c.Get("k", compute)
		if err != nil || got != 7 {
			t.Fatalf("Get() = %d, %v", got, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected compute once, got %d", calls)
	}
}

func TestGetConcurrentCallersShareOneComputation(t *testing.T) {
	obs := &countingObserver{}
	c, err := NewSingleFlight[string, []string](10, WithObserver(obs))
	if err != nil {
		t.Fatalf("NewSingleFlight() error = %v", err)
	}

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	compute := func() ([]string, error) {
		calls.Add(1)
		close(started)
		<-release
		return []string{"doc-1", "doc-2"}, nil
	}

	results := make([][]string, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		results[0], _ = c.Get("elephant", compute)
	}()
	<-started
	go func() {
		defer wg.Done()
		results[1], _ = c.Get("elephant", compute)
	}()

	deadline := time.Now().Add(time.Second)
	for obs.shared.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("second caller never joined the in-flight computation")
		}
		time.Sleep(time.Millisecond)
	}
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("expected exactly one computation, got %d", calls.Load())
	}
	if fmt.Sprint(results[0]) != fmt.Sprint(results[1]) || len(results[0]) != 2 {
		t.Fatalf("callers received different results: %v vs %v", results[0], results[1])
	}
}

func TestGetFailureSharedAndNotCached(t *testing.T) {
	obs := &countingObserver{}
	c, err := NewSingleFlight[string, int](10, WithObserver(obs))
	if err != nil {
		t.Fatalf("NewSingleFlight() error = %v", err)
	}

	errBackend := errors.New("backend down")
	started := make(chan struct{})
	release := make(chan struct{})
	errs := make(chan error, 2)

	go func() {
		_, err := c.Get("k", func() (int, error) {
			close(started)
			<-release
			return 0, errBackend
		})
		errs <- err
	}()
	<-started
	go func() {
		_, err := c.Get("k", func() (int, error) {
			t.Errorf("waiter must not run its own computation")
			return 0, nil
		})
		errs <- err
	}()

	deadline := time.Now().Add(time.Second)
	for obs.shared.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("waiter never joined")
		}
		time.Sleep(time.Millisecond)
	}
	close(release)
	for i := 0; i < 2; i++ {
		if err := <-errs; !errors.Is(err, errBackend) {
			t.Fatalf("expected shared failure, got %v", err)
		}
	}

	if c.Contains("k") {
		t.Fatalf("failed computation must not be cached")
	}
	retried := false
	got, err := c.Get("k", func() (int, error) {
		retried = true
		return 3, nil
	})
	if err != nil || got != 3 || !retried {
		t.Fatalf("expected retry with new compute, got %d, %v, retried=%v", got, err, retried)
	}
	if obs.failed.Load() != 1 {
		t.Fatalf("expected 1 failure event, got %d", obs.failed.Load())
	}
}

func TestGetPanicReleasesWaiters(t *testing.T) {
	c, err := NewSingleFlight[string, int](10)
	if err != nil {
		t.Fatalf("NewSingleFlight() error = %v", err)
	}
	_, err = c.Get("k", func() (int, error) { panic("boom") })
	if err == nil {
		t.Fatalf("expected panic to surface as error")
	}
	got, err := c.Get("k", func() (int, error) { return 1, nil })
	if err != nil || got != 1 {
		t.Fatalf("expected recompute after panic, got %d, %v", got, err)
	}
}

func TestCacheStaysWithinBound(t *testing.T) {
	obs := &countingObserver{}
	c, err := NewSingleFlight[string, int](1000, WithObserver(obs))
	if err != nil {
		t.Fatalf("NewSingleFlight() error = %v", err)
	}
	for i := 0; i < 1001; i++ {
		i := i
		if _, err := c.Get(fmt.Sprintf("q-%d", i), func() (int, error) { return i, nil }); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
	}
	if c.Len() != 1000 {
		t.Fatalf("expected 1000 entries, got %d", c.Len())
	}
	if obs.evicted.Load() != 1 {
		t.Fatalf("expected one eviction, got %d", obs.evicted.Load())
	}
}

func TestShrinkDropsOldest(t *testing.T) {
	c, err := NewSingleFlight[int, int](10)
	if err != nil {
		t.Fatalf("NewSingleFlight() error = %v", err)
	}
	for i := 0; i < 8; i++ {
		i := i
		_, _ = c.Get(i, func() (int, error) { return i, nil })
	}

	if removed := c.Shrink(0.25); removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if c.Contains(0) || c.Contains(1) || !c.Contains(2) {
		t.Fatalf("expected oldest entries to be dropped")
	}
	if c.Shrink(0) != 0 {
		t.Fatalf("zero fraction must not remove entries")
	}
}
