// Package testutil provides fixtures and helpers shared by the package
// tests: an in-memory granule source, synthetic granule builders, a
// capturing log handler and the error channel pattern for goroutines.
package testutil

import (
	"sync"
	"testing"
)

// =============================================================================
// Error Channel Pattern
// =============================================================================

// GoroutineTest collects errors from goroutines and reports them on Wait.
//
// t.Fatal in a goroutine only exits that goroutine, so functions passed to
// Go return an error instead.
//
//	gt := testutil.NewGoroutineTest(t)
//	for i := 0; i < 4; i++ {
//	    gt.Go(func() error { return readIndex() })
//	}
//	gt.Wait()
type GoroutineTest struct {
	t    testing.TB
	wg   sync.WaitGroup
	mu   sync.Mutex
	errs []error
}

// NewGoroutineTest creates a GoroutineTest.
func NewGoroutineTest(t testing.TB) *GoroutineTest {
	return &GoroutineTest{t: t}
}

// Go runs fn in a goroutine and records its error.
func (gt *GoroutineTest) Go(fn func() error) {
	gt.wg.Add(1)
	go func() {
		defer gt.wg.Done()
		if err := fn(); err != nil {
			gt.mu.Lock()
			gt.errs = append(gt.errs, err)
			gt.mu.Unlock()
		}
	}()
}

// Wait waits for all goroutines and fails the test if any returned an error.
func (gt *GoroutineTest) Wait() {
	gt.t.Helper()
	gt.wg.Wait()

	gt.mu.Lock()
	defer gt.mu.Unlock()
	if len(gt.errs) == 0 {
		return
	}
	gt.t.Errorf("goroutine test failed with %d error(s):", len(gt.errs))
	for i, err := range gt.errs {
		gt.t.Errorf("  [%d] %v", i+1, err)
	}
	gt.t.FailNow()
}
