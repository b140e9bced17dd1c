package scanengine

import (
	"context"
	"errors"
	"sync"
	"time"
)

// checkKey is the dedup key for an attached probe: the same probe ID at the same timeout is
// idempotent; the same probe ID at a different timeout is a distinct attachment.
type checkKey struct {
	id      string
	timeout time.Duration
}

// Scan coordinates every probe attached for a single target IP. It is created lazily by Scanner the
// first time a target is submitted and is removed from the Scanner's active map exactly when it
// publishes its verdict.
type Scan struct {
	ip string

	mu         sync.Mutex
	checks     map[checkKey]struct{}      // Every (probe,timeout) ever attached - dedup key
	running    map[checkKey]context.CancelFunc
	started    bool
	published  bool
	result     *Verdict
	errorSinks []func(error)

	done chan struct{} // Closed exactly once, when result/published are final

	onPublish func(*Verdict) // Called (without mu held) the moment this Scan publishes
}

// NewScan constructs a standalone Scan for ip, with no probes attached and no owning Scanner. It
// exists so a Probe.Run can be exercised directly in tests without a full Scanner/Pool setup; only
// IP() is meaningful on a Scan built this way.
func NewScan(ip string) *Scan {
	return newScan(ip)
}

func newScan(ip string) *Scan {
	return &Scan{
		ip:      ip,
		checks:  make(map[checkKey]struct{}),
		running: make(map[checkKey]context.CancelFunc),
		done:    make(chan struct{}),
	}
}

// IP returns the normalised target address this Scan was created for.
func (s *Scan) IP() string {
	return s.ip
}

// Done returns a channel closed once Scan has published its verdict.
func (s *Scan) Done() <-chan struct{} {
	return s.done
}

// Result returns the published verdict. Only valid to call after Done() has fired.
func (s *Scan) Result() *Verdict {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

func (s *Scan) addErrorSink(sink func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorSinks = append(s.errorSinks, sink)
}

// attach runs the attach algorithm described in scanengine's design: dedup, pool acquisition,
// independent timeout, and completion handling including first-match cancellation.
func (s *Scan) attach(pool *Pool, probe Probe, set *ScanSet, env *Environment) {
	s.mu.Lock()
	if s.published {
		s.mu.Unlock()
		return
	}
	key := checkKey{id: probe.ID, timeout: set.Timeout}
	if _, exists := s.checks[key]; exists {
		s.mu.Unlock()
		return
	}
	s.checks[key] = struct{}{}

	ctx, cancel := context.WithCancel(context.Background())
	s.running[key] = cancel
	s.mu.Unlock()

	go s.runProbe(ctx, cancel, key, pool, probe, set, env)
}

// runProbe performs one probe's full lifecycle: arm the set's timeout, acquire the named pool
// token, run the probe, and hand the outcome back to finishCheck. Every path releases the pool
// token it acquired.
func (s *Scan) runProbe(ctx context.Context, cancel context.CancelFunc, key checkKey, pool *Pool, probe Probe, set *ScanSet, env *Environment) {
	// Timeouts do not auto-dismiss on completion: cancelling an already-finished context is a
	// no-op, so we don't bother stopping this timer early.
	time.AfterFunc(set.Timeout, cancel)

	if err := pool.Acquire(ctx); err != nil {
		s.finishCheck(key, "", err, set)
		return
	}
	defer pool.Release()

	reason, err := probe.Run(ctx, s, env)
	s.finishCheck(key, reason, err, set)
}

// finishCheck applies completion handling: remove from running, report non-cancellation errors to
// every sink, publish a non-nil verdict on first match (cancelling siblings), and publish a clean
// nil verdict once started and nothing is left running.
func (s *Scan) finishCheck(key checkKey, reason string, err error, set *ScanSet) {
	var sinksToNotify []func(error)
	var justPublished *Verdict
	var publishedNow bool

	s.mu.Lock()
	delete(s.running, key)

	switch {
	case err != nil:
		if errors.Is(err, context.Canceled) {
			// Swallowed: cancellation is expected and not a probe failure.
		} else {
			sinksToNotify = append(sinksToNotify, s.errorSinks...)
		}
	case reason != "" && !s.published:
		v := &Verdict{Set: set, Reason: reason}
		s.result = v
		s.published = true
		justPublished = v
		publishedNow = true
		close(s.done)

		// Cancel every other in-flight probe. Iteration is safe under concurrent
		// completions because those completions also need s.mu, which we hold.
		for _, c := range s.running {
			c()
		}
	}

	if !s.published && s.started && len(s.running) == 0 {
		s.published = true
		publishedNow = true
		close(s.done)
	}
	s.mu.Unlock()

	for _, sink := range sinksToNotify {
		sink(err)
	}

	if publishedNow && s.onPublish != nil {
		s.onPublish(justPublished)
	}
}

// start marks every initially-requested probe as attached. If all of them already finished
// synchronously, the Scan resolves immediately; otherwise it waits for the last one to finish.
func (s *Scan) start() {
	var publishedNow bool

	s.mu.Lock()
	s.started = true
	if !s.published && len(s.running) == 0 {
		s.published = true
		publishedNow = true
		close(s.done)
	}
	s.mu.Unlock()

	if publishedNow && s.onPublish != nil {
		s.onPublish(nil)
	}
}
