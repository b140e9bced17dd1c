package httpproxy

import (
	"github.com/markdingo/trustydns-opm/internal/probe"
	"github.com/markdingo/trustydns-opm/internal/scanengine"
)

func init() {
	probe.Register("http-connect", factory("httpproxy:http-connect", Connect))
	probe.Register("http-post", factory("httpproxy:http-post", Post))
	probe.Register("http-get", factory("httpproxy:http-get", Get))
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
