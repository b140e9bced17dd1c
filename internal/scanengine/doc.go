/*
Package scanengine is the bounded-concurrency, pool-partitioned probe runner at the core of
trustydns-opm. For any given IP it fans out every probe named by one or more ScanSets across named
resource pools, coalesces duplicate work for the same IP, applies first-match short-circuiting
across heterogeneous probes, enforces a per-probe wall-clock timeout, and supports synchronous
cancellation of the probes still running once a verdict has been reached.

Motivation for the pool partitioning: without it, a burst of connections from the same host (or a
deliberate flood) could exhaust file descriptors on a single slow probe class and starve every other
scan in progress. A timeout of 30s, 300 scans in parallel and one connection a second needs roughly
9000 file descriptors if every probe shares one pool; splitting FD budget across named pools lets
fast probe classes keep making progress while a slow class backs up.

Typical usage:

	scanner := scanengine.New(pools, scanSets, env, errLog)
	verdict, err := scanner.Scan(ctx, ip, []string{"default"}, nil)
	if verdict != nil {
	    fmt.Println(verdict.Set.Name, verdict.Reason)
	}

Scans for the same ip submitted while one is already in flight attach additional probes (and error
sinks) to the existing Scan rather than starting a second one; all callers observe the same verdict.
*/
package scanengine
