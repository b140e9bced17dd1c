package httphash

import (
	"github.com/markdingo/trustydns-opm/internal/probe"
	"github.com/markdingo/trustydns-opm/internal/scanengine"
)

const defaultGet = "GET / HTTP/1.0\r\n\r\n"

func init() {
	probe.Register("http-hash", factory(false))
	probe.Register("http-hash-tls", factory(true))
}

// factory expects args = [port, hashes, send?]: hashes maps a hex sha1 digest to the description
// reported when it's seen; send, if present, overrides the default "GET / HTTP/1.0" request.
func factory(useTLS bool) probe.Factory {
	return func(args []interface{}) (scanengine.Probe, error) {
		port, err := probe.IntArg(args, 0, "http-hash")
		if err != nil {
			return scanengine.Probe{}, err
		}
		raw, err := probe.StringMapArg(args, 1, "http-hash")
		if err != nil {
			return scanengine.Probe{}, err
		}
		send := probe.OptStringArg(args, 2)
		if send == "" {
			send = defaultGet
		}
		return New(port, Hashes(raw), send, useTLS), nil
	}
}
