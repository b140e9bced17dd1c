package scanengine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestScanner(t *testing.T, sets map[string]*ScanSet) *Scanner {
	t.Helper()
	pools := map[string]*Pool{"default": NewPool("default", 8)}
	env := &Environment{}
	return New(pools, sets, env, func(error) {})
}

func TestScannerNoSetNamesReturnsNil(t *testing.T) {
	sc := newTestScanner(t, nil)
	v, err := sc.Scan(context.Background(), "192.0.2.1", nil, nil)
	if err != nil || v != nil {
		t.Fatal("expected (nil, nil) for no scanset names, got", v, err)
	}
}

func TestScannerUnknownSetFailsSynchronously(t *testing.T) {
	sc := newTestScanner(t, nil)
	_, err := sc.Scan(context.Background(), "192.0.2.1", []string{"nope"}, nil)
	if err == nil {
		t.Fatal("expected an UnknownSetError")
	}
	if _, ok := err.(*UnknownSetError); !ok {
		t.Errorf("expected *UnknownSetError, got %T: %v", err, err)
	}
}

func TestScannerInvalidTarget(t *testing.T) {
	sets := map[string]*ScanSet{"default": {Name: "default", Timeout: time.Second}}
	sc := newTestScanner(t, sets)
	_, err := sc.Scan(context.Background(), "not-an-ip", []string{"default"}, nil)
	if err != ErrInvalidTarget {
		t.Fatal("expected ErrInvalidTarget, got", err)
	}
}

func TestScannerPositiveVerdict(t *testing.T) {
	probe := Probe{ID: "bad", Run: func(ctx context.Context, scan *Scan, env *Environment) (string, error) {
		return "open relay", nil
	}}
	sets := map[string]*ScanSet{
		"default": {Name: "default", Timeout: time.Second, Probes: []Attachment{{PoolName: "default", Probe: probe}}},
	}
	sc := newTestScanner(t, sets)
	v, err := sc.Scan(context.Background(), "192.0.2.1", []string{"default"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v == nil || v.Reason != "open relay" {
		t.Fatal("expected a positive verdict, got", v)
	}
	if sc.ActiveCount() != 0 {
		t.Error("scan should be removed from active map once published, count =", sc.ActiveCount())
	}
}

func TestScannerCoalescesConcurrentScansForSameIP(t *testing.T) {
	release := make(chan struct{})
	var runs int32

	probe := Probe{ID: "slow", Run: func(ctx context.Context, scan *Scan, env *Environment) (string, error) {
		atomic.AddInt32(&runs, 1)
		select {
		case <-release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
		return "coalesced", nil
	}}
	sets := map[string]*ScanSet{
		"default": {Name: "default", Timeout: 5 * time.Second, Probes: []Attachment{{PoolName: "default", Probe: probe}}},
	}
	sc := newTestScanner(t, sets)

	const callers = 10
	results := make([]*Verdict, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = sc.Scan(context.Background(), "192.0.2.1", []string{"default"}, nil)
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&runs); got != 1 {
		t.Fatalf("expected exactly one probe run across %d coalesced callers, got %d", callers, got)
	}
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatal(errs[i])
		}
		if results[i] == nil || results[i].Reason != "coalesced" {
			t.Errorf("caller %d got a different verdict: %v", i, results[i])
		}
	}
}

func TestScannerContextCancelDuringWait(t *testing.T) {
	block := make(chan struct{})
	probe := Probe{ID: "block", Run: func(ctx context.Context, scan *Scan, env *Environment) (string, error) {
		<-block
		return "", ctx.Err()
	}}
	sets := map[string]*ScanSet{
		"default": {Name: "default", Timeout: 5 * time.Second, Probes: []Attachment{{PoolName: "default", Probe: probe}}},
	}
	sc := newTestScanner(t, sets)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := sc.Scan(ctx, "192.0.2.1", []string{"default"}, nil)
	if err == nil {
		t.Fatal("expected the caller's ctx cancellation to surface as an error")
	}
	close(block)
}

func TestScannerUnknownPoolLogsAndContinues(t *testing.T) {
	probe := Probe{ID: "good", Run: func(ctx context.Context, scan *Scan, env *Environment) (string, error) {
		return "caught", nil
	}}
	sets := map[string]*ScanSet{
		"default": {Name: "default", Timeout: time.Second, Probes: []Attachment{
			{PoolName: "does-not-exist", Probe: Probe{ID: "orphan", Run: probe.Run}},
			{PoolName: "default", Probe: probe},
		}},
	}
	var loggedErr error
	pools := map[string]*Pool{"default": NewPool("default", 4)}
	sc := New(pools, sets, &Environment{}, func(err error) { loggedErr = err })

	v, err := sc.Scan(context.Background(), "192.0.2.1", []string{"default"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v == nil || v.Reason != "caught" {
		t.Fatal("expected the valid probe to still produce a verdict, got", v)
	}
	if loggedErr == nil {
		t.Error("expected the unknown pool reference to be logged")
	}
}
