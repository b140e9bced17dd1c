package scanengine

import (
	"context"
	"fmt"
	"net"
	"sync"
)

// Scanner is the public entry point to the scan engine: it owns the named pools, the configured
// ScanSets, the shared Environment, and the map of currently active per-ip Scans used for
// coalescing.
type Scanner struct {
	pools    map[string]*Pool
	scanSets map[string]*ScanSet
	env      *Environment

	errLog func(error) // Default error sink, always present on every Scan

	mu     sync.Mutex
	active map[string]*Scan
}

// New constructs a Scanner. pools maps pool name to *Pool (already sized); scanSets maps scanset
// name to *ScanSet; env carries the shared probe resources and target parameters. errLog receives
// every ProbeFailure regardless of which caller's errHandler was supplied and must be non-nil (use
// a no-op func if you genuinely want to discard these).
func New(pools map[string]*Pool, scanSets map[string]*ScanSet, env *Environment, errLog func(error)) *Scanner {
	return &Scanner{
		pools:    pools,
		scanSets: scanSets,
		env:      env,
		errLog:   errLog,
		active:   make(map[string]*Scan),
	}
}

// normalizeIP parses ip as either v4 or v6 and returns its canonical string form.
func normalizeIP(ip string) (string, bool) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", false
	}
	return parsed.String(), true
}

// Scan attaches every probe named by setNames to a (possibly newly created, possibly already
// in-flight) Scan for ip and waits for its verdict. An empty setNames returns (nil, nil)
// immediately with no work performed. Unknown set names fail synchronously with *UnknownSetError,
// before any probe is attached. A malformed ip fails with ErrInvalidTarget. errHandler, if
// non-nil, is appended to the scan's error sinks alongside the Scanner's default log sink.
func (sc *Scanner) Scan(ctx context.Context, ip string, setNames []string, errHandler func(error)) (*Verdict, error) {
	sets := make([]*ScanSet, 0, len(setNames))
	for _, name := range setNames {
		set, ok := sc.scanSets[name]
		if !ok {
			return nil, &UnknownSetError{Name: name}
		}
		sets = append(sets, set)
	}
	if len(sets) == 0 {
		return nil, nil
	}

	normIP, ok := normalizeIP(ip)
	if !ok {
		return nil, ErrInvalidTarget
	}

	scan := sc.scanFor(normIP, errHandler)

	for _, set := range sets {
		for _, att := range set.Probes {
			pool, ok := sc.pools[att.PoolName]
			if !ok {
				// Configuration bug: a scanset names a pool that doesn't exist. This is
				// caught at bootstrap time (see internal/config) so it should not occur
				// here, but we fail the individual probe safely rather than panic.
				sc.errLog(fmt.Errorf("scanengine: scanset %q references unknown pool %q", set.Name, att.PoolName))
				continue
			}
			scan.attach(pool, att.Probe, set, sc.env)
		}
	}
	scan.start()

	select {
	case <-scan.Done():
		return scan.Result(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// scanFor returns the active Scan for ip, creating and registering one if none is in flight.
func (sc *Scanner) scanFor(ip string, errHandler func(error)) *Scan {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	scan, exists := sc.active[ip]
	if !exists {
		scan = newScan(ip)
		scan.errorSinks = append(scan.errorSinks, sc.errLog)
		scan.onPublish = func(*Verdict) {
			sc.mu.Lock()
			delete(sc.active, ip)
			sc.mu.Unlock()
		}
		sc.active[ip] = scan
	}
	if errHandler != nil {
		scan.addErrorSink(errHandler)
	}
	return scan
}

// Pools returns the configured pools, keyed by name, for use by the stats command.
func (sc *Scanner) Pools() map[string]*Pool {
	return sc.pools
}

// ActiveCount returns the number of scans currently in flight.
func (sc *Scanner) ActiveCount() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return len(sc.active)
}
