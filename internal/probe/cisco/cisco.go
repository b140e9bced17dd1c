// Package cisco implements the classic Cisco IOS "telnet relay" probe: an unauthenticated exec-mode
// prompt that accepts a bare "telnet host port" command and opens the outbound connection for us.
package cisco

import (
	"context"
	"fmt"

	"github.com/markdingo/trustydns-opm/internal/probe/lineprobe"
	"github.com/markdingo/trustydns-opm/internal/scanengine"
)

// New returns a probe that connects to port and sends "cisco" followed by a telnet command.
func New(port int) scanengine.Probe {
	return scanengine.Probe{
		ID: fmt.Sprintf("cisco:%d", port),
		Run: func(ctx context.Context, scan *scanengine.Scan, env *scanengine.Environment) (string, error) {
			addr := fmt.Sprintf("%s:%d", scan.IP(), port)
			payload := lineprobe.JoinLines("cisco", fmt.Sprintf("telnet %s %d", env.TargetIP, env.TargetPort))
			matched, err := lineprobe.Run(ctx, addr, env.BindAddress, payload, env.TargetStrings, env.MaxBytes)
			if err != nil || !matched {
				return "", err
			}
			return fmt.Sprintf("cisco router (telnet) (%d)", port), nil
		},
	}
}
