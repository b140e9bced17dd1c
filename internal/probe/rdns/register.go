package rdns

import (
	"fmt"

	"github.com/markdingo/trustydns-opm/internal/probe"
	"github.com/markdingo/trustydns-opm/internal/scanengine"
)

func init() {
	probe.Register("rdns", factory)
}

// factory expects args = [patterns]: patterns maps a regex to the description reported on a full
// match against the scan target's PTR name.
func factory(args []interface{}) (scanengine.Probe, error) {
	raw, err := probe.StringMapArg(args, 0, "rdns")
	if err != nil {
		return scanengine.Probe{}, err
	}
	entries := make([]Entry, 0, len(raw))
	for pattern, description := range raw {
		entry, err := Compile(pattern, description)
		if err != nil {
			return scanengine.Probe{}, fmt.Errorf("rdns: %w", err)
		}
		entries = append(entries, entry)
	}
	return New("rdns", entries), nil
}
