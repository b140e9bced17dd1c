// Package wingate implements the Wingate relay probe: a single unadorned "host:port" line is the
// entire request a genuine Wingate gateway needs to start relaying.
package wingate

import (
	"context"
	"fmt"

	"github.com/markdingo/trustydns-opm/internal/probe/lineprobe"
	"github.com/markdingo/trustydns-opm/internal/scanengine"
)

// New returns a probe that connects to port and sends "target_ip:target_port".
func New(port int) scanengine.Probe {
	return scanengine.Probe{
		ID: fmt.Sprintf("wingate:%d", port),
		Run: func(ctx context.Context, scan *scanengine.Scan, env *scanengine.Environment) (string, error) {
			addr := fmt.Sprintf("%s:%d", scan.IP(), port)
			payload := lineprobe.JoinLines(fmt.Sprintf("%s:%d", env.TargetIP, env.TargetPort))
			matched, err := lineprobe.Run(ctx, addr, env.BindAddress, payload, env.TargetStrings, env.MaxBytes)
			if err != nil || !matched {
				return "", err
			}
			return fmt.Sprintf("Wingate (%d)", port), nil
		},
	}
}
