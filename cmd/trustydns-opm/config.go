package main

type config struct {
	gops    bool
	help    bool
	verbose bool
	version bool

	configFile string

	// forceSelect accepts a sub-optimal network implementation rather than refusing to start. The
	// original Twisted program used this to accept a reactor with no epoll/kqueue support; Go's
	// runtime scheduler has no equivalent choice to make, so this flag is a accepted-but-unused
	// no-op kept for CLI compatibility (see DESIGN.md).
	forceSelect bool

	keepResolver bool // Use net.DefaultResolver instead of a freshly constructed &net.Resolver{}
	forceLimits bool  // Skip the soft FD-limit sanity check against the configured pool sizes

	ircLog string // Path to also append the IRC presences' own log lines to ("" disables); raw IRC lines are not written

	cpuprofile, memprofile string

	setuidName, setgidName, chrootDir string
}
