package ircpresence

import (
	"fmt"
	"sync"
	"time"
)

// connTracker tracks connection/reconnection counts and cumulative uptime for one IRC network, for
// the stats command and periodic reporter.Reporter output. Adapted from the teacher's
// connectiontracker package: that type tracks concurrent HTTP connections and sessions, which
// doesn't apply to a single reconnecting IRC client, so this keeps only what does - connect count
// and time-connected - in the same Name()/Report(resetCounters) shape.
type connTracker struct {
	name string
	now  func() time.Time

	mu          sync.Mutex
	connects    int
	connectedAt time.Time
	connected   bool
	totalUptime time.Duration
}

func newConnTracker(name string) *connTracker {
	return &connTracker{name: name, now: time.Now}
}

// connected records a successful (re)connection. Called on RPL_WELCOME.
func (t *connTracker) connected() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connects++
	t.connected = true
	t.connectedAt = t.now()
}

func (t *connTracker) disconnected() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.connected {
		t.totalUptime += t.now().Sub(t.connectedAt)
		t.connected = false
	}
}

// Name implements reporter.Reporter.
func (t *connTracker) Name() string {
	return fmt.Sprintf("IRC %s", t.name)
}

// Report implements reporter.Reporter.
func (t *connTracker) Report(resetCounters bool) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	uptime := t.totalUptime
	if t.connected {
		uptime += t.now().Sub(t.connectedAt)
	}
	report := fmt.Sprintf("connects=%d connected=%v uptime=%0.1fs",
		t.connects, t.connected, uptime.Seconds())

	if resetCounters {
		t.connects = 0
		t.totalUptime = 0
		if t.connected {
			t.connectedAt = t.now()
		}
	}
	return report
}
