package cisco

import (
	"github.com/markdingo/trustydns-opm/internal/probe"
	"github.com/markdingo/trustydns-opm/internal/scanengine"
)

func init() {
	probe.Register("cisco", factory)
}

func factory(args []interface{}) (scanengine.Probe, error) {
	port, err := probe.IntArg(args, 0, "cisco")
	if err != nil {
		return scanengine.Probe{}, err
	}
	return New(port), nil
}
