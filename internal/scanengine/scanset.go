package scanengine

import (
	"context"
	"time"
)

// ProbeFunc is the common signature every probe implements: run a single-shot probe against
// scan.IP() using env for parameters and shared resources, returning a non-empty human-readable
// reason string on a positive match or an empty string for "not a proxy". A returned error other
// than ctx.Err() is reported to the owning Scan's error sinks and never converts to a positive
// verdict.
type ProbeFunc func(ctx context.Context, scan *Scan, env *Environment) (reason string, err error)

// Probe pairs a ProbeFunc with a stable identity used for dedup purposes. Two attachments with the
// same ID and the same ScanSet.Timeout are the same attachment; the same ID at a different timeout
// is a distinct attachment. Go function values are not comparable, so an explicit ID (typically
// "<probename>:<args>") stands in for the check identity the source implementation gets for free by
// comparing bound methods.
type Probe struct {
	ID  string
	Run ProbeFunc
}

// Attachment names the pool a Probe runs under.
type Attachment struct {
	PoolName string
	Probe    Probe
}

// ScanSet is an immutable bundle built once at startup and referenced by name thereafter: a
// timeout shared by every attached probe, the ordered probes themselves, and the action templates
// and reason templates applied to a positive verdict.
type ScanSet struct {
	Name    string
	Timeout time.Duration
	Probes  []Attachment
	Actions []string

	// UserReason and OperReason are templates in which {REASON} is replaced by a positive
	// verdict's reason string. The expanded UserReason is what {REASON} becomes in the action
	// templates; the expanded OperReason is only written to the KILL log line. Empty means "use
	// the raw reason verbatim".
	UserReason string
	OperReason string
}

// Verdict is the result of a Scan: the ScanSet whose probe matched and the reason it gave.
type Verdict struct {
	Set    *ScanSet
	Reason string
}
