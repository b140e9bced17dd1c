package tlscert

import (
	"fmt"

	"github.com/markdingo/trustydns-opm/internal/probe"
	"github.com/markdingo/trustydns-opm/internal/scanengine"
)

func init() {
	probe.Register("tls-cert", factory)
}

// factory expects args = [port, patterns]: patterns maps a regex over a candidate key (sha1:, scn:,
// son:, icn:, ion:, san:) to the description reported on a full match.
func factory(args []interface{}) (scanengine.Probe, error) {
	port, err := probe.IntArg(args, 0, "tls-cert")
	if err != nil {
		return scanengine.Probe{}, err
	}
	raw, err := probe.StringMapArg(args, 1, "tls-cert")
	if err != nil {
		return scanengine.Probe{}, err
	}
	entries := make([]Entry, 0, len(raw))
	for pattern, description := range raw {
		entry, err := Compile(pattern, description)
		if err != nil {
			return scanengine.Probe{}, fmt.Errorf("tls-cert: %w", err)
		}
		entries = append(entries, entry)
	}
	return New(port, entries), nil
}
