// Package httpproxy implements the HTTP CONNECT, POST, and GET open-proxy probes: each writes a
// fixed request asking the suspect host to relay to env.TargetIP/env.TargetPort or env.TargetURL,
// then watches the reply for env.TargetStrings.
package httpproxy

import (
	"context"
	"fmt"

	"github.com/markdingo/trustydns-opm/internal/probe/lineprobe"
	"github.com/markdingo/trustydns-opm/internal/scanengine"
)

// Connect returns a probe that issues "CONNECT target:port HTTP/1.0" against port.
func Connect(port int) scanengine.Probe {
	return newProbe(fmt.Sprintf("httpproxy.connect:%d", port), port, "HTTP CONNECT", func(env *scanengine.Environment) []byte {
		return lineprobe.JoinLines(fmt.Sprintf("CONNECT %s:%d HTTP/1.0", env.TargetIP, env.TargetPort), "")
	})
}

// Post returns a probe that issues a POST of the literal body "quit" to env.TargetURL.
func Post(port int) scanengine.Probe {
	return newProbe(fmt.Sprintf("httpproxy.post:%d", port), port, "HTTP POST", func(env *scanengine.Environment) []byte {
		return lineprobe.JoinLines(
			fmt.Sprintf("POST %s HTTP/1.0", env.TargetURL),
			"Content-type: text/plain",
			"Content-length: 5",
			"",
			"quit",
			"")
	})
}

// Get returns a probe that issues "GET env.TargetURL HTTP/1.0".
func Get(port int) scanengine.Probe {
	return newProbe(fmt.Sprintf("httpproxy.get:%d", port), port, "HTTP GET", func(env *scanengine.Environment) []byte {
		return lineprobe.JoinLines(fmt.Sprintf("GET %s HTTP/1.0", env.TargetURL), "")
	})
}

func newProbe(id string, port int, name string, payload func(*scanengine.Environment) []byte) scanengine.Probe {
	return scanengine.Probe{
		ID: id,
		Run: func(ctx context.Context, scan *scanengine.Scan, env *scanengine.Environment) (string, error) {
			addr := fmt.Sprintf("%s:%d", scan.IP(), port)
			matched, err := lineprobe.Run(ctx, addr, env.BindAddress, payload(env), env.TargetStrings, env.MaxBytes)
			if err != nil || !matched {
				return "", err
			}
			return fmt.Sprintf("%s (%d)", name, port), nil
		},
	}
}
