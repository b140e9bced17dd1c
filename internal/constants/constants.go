/*
Package constants provides common values used across all trustydns-opm packages. Usage is to call
the global Get() function which returns the Constants by value ensuring that any modifications made
(accidental or otherwise) will not affect other modules when they call Get().

Typically usage:

    consts := constants.Get()
    fmt.Println("I am", consts.ProgramName, "based on", consts.PackageURL)

The primary reason for making this a constructed struct rather than the more typical const () block
is so that it can be fed directly into templating packages for printing usage messages.
*/
package constants

// Constants contains the system-wide constants
type Constants struct {
	ProgramName string
	Version     string
	PackageName string
	PackageURL  string

	DefaultVerdictCacheTTL   string // time.ParseDuration-compatible string
	DefaultVerdictCacheSize  int
	DefaultImmunityCacheSize int

	DefaultMessagePenaltySecs int // rfc1459-style output rate limiting
	DefaultMessageBurstSecs   int

	DefaultStatusReportInterval string

	SpoofedIP string // Sentinel ip value an ircd substitutes for a spoofed I-line
}

var readOnlyConstants *Constants

// createReadOnlyConstants creates a read-only copy of the Constants which is copied whenever a
// caller asks for the constants set. The main reason for returning a struct is so that callers can
// inspect and/or use packages that introspect - particularly */template packages.
func createReadOnlyConstants() {
	readOnlyConstants = &Constants{
		ProgramName: "trustydns-opm",
		Version:     "v0.1.0",
		PackageName: "Trusty Open Proxy Monitor",
		PackageURL:  "https://github.com/markdingo/trustydns-opm",

		DefaultVerdictCacheTTL:   "120s",
		DefaultVerdictCacheSize:  100,
		DefaultImmunityCacheSize: 100,

		DefaultMessagePenaltySecs: 2,
		DefaultMessageBurstSecs:   10,

		DefaultStatusReportInterval: "15m",

		SpoofedIP: "0",
	}
}

func init() {
	createReadOnlyConstants()
}

// Get returns a copy of the Constant struct. Return by value so internal values cannot be
// inadvertently changed by callers.
func Get() Constants {
	return *readOnlyConstants
}
