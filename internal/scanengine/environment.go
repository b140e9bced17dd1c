package scanengine

import (
	"context"
	"net"
)

// Resolver is the narrow DNS lookup surface probes need. *net.Resolver satisfies it; tests supply a
// fake.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
	LookupAddr(ctx context.Context, addr string) ([]string, error)
}

// Environment carries the resources and target parameters every probe needs, replacing the
// duck-typed "env" object of the system this package reimplements with an explicit, fixed-field
// record.
type Environment struct {
	Resolver    Resolver
	BindAddress string // Local address to bind outgoing probe connections to, if set

	TargetIP      string   // Address the suspected proxy is asked to relay to
	TargetPort    int      // Port the suspected proxy is asked to relay to
	TargetURL     string   // URL used by the HTTP GET/POST probes
	TargetStrings []string // Substrings that indicate a successful relay
	MaxBytes      int      // Abort a line probe once more than this many bytes of complete lines are read without a match
}

var _ Resolver = (*net.Resolver)(nil)
