// Package probe holds the static probe registry: each probe subpackage (httpproxy, wingate, cisco,
// socks, dnsbl, rdns, tlscert, banner, httphash) registers its probe-name(s) from an init() in this
// package's Factories map, in place of the dynamic plugin discovery of the system this package
// reimplements. internal/config builds a Scanner's ScanSets by looking up each scanset's configured
// protocol names here and calling the resulting Factory with the YAML-decoded arguments that
// followed the pool/probe name in the config document.
package probe

import "github.com/markdingo/trustydns-opm/internal/scanengine"

// Factory builds one scanengine.Probe from the positional arguments that follow a probe name in a
// scanset's protocols entry, e.g. ["pool1", "socks4", 1080] supplies args = [1080].
type Factory func(args []interface{}) (scanengine.Probe, error)

// Factories is the static name -> Factory registry, populated by every probe subpackage's init().
var Factories = make(map[string]Factory)

// Register adds a named factory. Called only from subpackage init() functions; a duplicate name is
// a build-time programming error and panics immediately rather than silently shadowing.
func Register(name string, f Factory) {
	if _, exists := Factories[name]; exists {
		panic("probe: duplicate factory registration for " + name)
	}
	Factories[name] = f
}
