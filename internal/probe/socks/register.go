package socks

import (
	"github.com/markdingo/trustydns-opm/internal/probe"
	"github.com/markdingo/trustydns-opm/internal/scanengine"
)

func init() {
	probe.Register("socks4", factory("socks4", Socks4))
	probe.Register("socks5", factory("socks5", Socks5))
}

func factory(who string, build func(int) scanengine.Probe) probe.Factory {
	return func(args []interface{}) (scanengine.Probe, error) {
		port, err := probe.IntArg(args, 0, who)
		if err != nil {
			return scanengine.Probe{}, err
		}
		return build(port), nil
	}
}
