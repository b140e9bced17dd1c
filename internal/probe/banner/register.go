package banner

import (
	"github.com/markdingo/trustydns-opm/internal/probe"
	"github.com/markdingo/trustydns-opm/internal/scanengine"
)

func init() {
	probe.Register("banner", factory(false))
	probe.Register("banner-tls", factory(true))
}

// factory expects args = [port, groups, preamble?]: groups maps a group name to the set of lines
// that must all be present for that group to match; preamble, if present, is written before
// reading begins.
func factory(useTLS bool) probe.Factory {
	return func(args []interface{}) (scanengine.Probe, error) {
		port, err := probe.IntArg(args, 0, "banner")
		if err != nil {
			return scanengine.Probe{}, err
		}
		groups, err := probe.StringSliceMapArg(args, 1, "banner")
		if err != nil {
			return scanengine.Probe{}, err
		}
		preamble := probe.OptStringArg(args, 2)
		return New(port, Groups(groups), preamble, useTLS), nil
	}
}
