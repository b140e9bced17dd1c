package dnsbl

import (
	"github.com/markdingo/trustydns-opm/internal/probe"
	"github.com/markdingo/trustydns-opm/internal/scanengine"
)

func init() {
	probe.Register("dnsbl", factory)
}

// factory expects args = [zone, reasons, nameserver?]: zone is the DNSBL zone to query under;
// reasons maps a reply's last octet to a description; nameserver, if present, overrides the
// system resolver with an explicit "host:port" to query.
func factory(args []interface{}) (scanengine.Probe, error) {
	zone, err := probe.StringArg(args, 0, "dnsbl")
	if err != nil {
		return scanengine.Probe{}, err
	}
	reasons, err := probe.ByteStringMapArg(args, 1, "dnsbl")
	if err != nil {
		return scanengine.Probe{}, err
	}
	nameserver := probe.OptStringArg(args, 2)
	return New(zone, Reasons(reasons), nameserver), nil
}
