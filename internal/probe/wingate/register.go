package wingate

import (
	"github.com/markdingo/trustydns-opm/internal/probe"
	"github.com/markdingo/trustydns-opm/internal/scanengine"
)

func init() {
	probe.Register("wingate", factory)
}

func factory(args []interface{}) (scanengine.Probe, error) {
	port, err := probe.IntArg(args, 0, "wingate")
	if err != nil {
		return scanengine.Probe{}, err
	}
	return New(port), nil
}
