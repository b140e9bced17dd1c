// trustydns-opm watches IRC server connection notices and probes new clients for open proxies.
package main

import (
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/gops/agent"
	"golang.org/x/sys/unix"

	"github.com/markdingo/trustydns-opm/internal/config"
	"github.com/markdingo/trustydns-opm/internal/constants"
	"github.com/markdingo/trustydns-opm/internal/ircpresence"
	"github.com/markdingo/trustydns-opm/internal/osutil"
	"github.com/markdingo/trustydns-opm/internal/reporter"
	"github.com/markdingo/trustydns-opm/internal/scanengine"

	// Every probe subpackage registers itself into internal/probe.Factories from its init(); the
	// registry is useless without these blank imports, same role as a plugin.getPlugins() scan in
	// the system this package replaces.
	_ "github.com/markdingo/trustydns-opm/internal/probe/banner"
	_ "github.com/markdingo/trustydns-opm/internal/probe/cisco"
	_ "github.com/markdingo/trustydns-opm/internal/probe/dnsbl"
	_ "github.com/markdingo/trustydns-opm/internal/probe/httphash"
	_ "github.com/markdingo/trustydns-opm/internal/probe/httpproxy"
	_ "github.com/markdingo/trustydns-opm/internal/probe/rdns"
	_ "github.com/markdingo/trustydns-opm/internal/probe/socks"
	_ "github.com/markdingo/trustydns-opm/internal/probe/tlscert"
	_ "github.com/markdingo/trustydns-opm/internal/probe/wingate"
)

var (
	consts = constants.Get()
	cfg    *config
	scfg   *ircLogFile

	stdout io.Writer
	stderr io.Writer

	startTime                = time.Now()
	mainStarted, mainStopped bool
	stopChannel              chan os.Signal
	flagSet                  *flag.FlagSet
)

// ircLogFile holds the optional --irc-log file across a mainInit/mainExecute cycle so it can be
// closed on exit.
type ircLogFile struct {
	f *os.File
}

//////////////////////////////////////////////////////////////////////

func fatal(args ...interface{}) int {
	fmt.Fprint(stderr, "Fatal: ", consts.ProgramName, ": ")
	fmt.Fprintln(stderr, args...)
	return 1
}

func stopMain() {
	stopChannel <- syscall.SIGINT
}

func mainInit(out io.Writer, err io.Writer) {
	cfg = &config{}
	scfg = nil
	stdout = out
	stderr = err
	mainStarted = false
	mainStopped = false
	stopChannel = make(chan os.Signal, 4)
	signal.Notify(stopChannel, syscall.SIGINT, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGUSR1)
}

func main() {
	mainInit(os.Stdout, os.Stderr)
	os.Exit(mainExecute(os.Args))
}

func mainExecute(args []string) int {
	flagSet = flag.NewFlagSet(args[0], flag.ContinueOnError)
	flagSet.SetOutput(stderr)
	err := parseCommandLine(args)
	if err != nil {
		return 1
	}
	if cfg.help {
		usage(stdout)
		return 0
	}
	if cfg.version {
		fmt.Fprintln(stdout, consts.ProgramName, "Version:", consts.Version)
		return 0
	}
	if len(cfg.configFile) == 0 {
		return fatal("Must supply exactly one configuration file")
	}

	built, err := config.Load(cfg.configFile)
	if err != nil {
		return fatal(err)
	}

	if !cfg.forceLimits {
		if err := checkFDLimit(built.PoolSizes); err != nil {
			return fatal(err)
		}
	}

	var ircOut io.Writer = stdout
	if len(cfg.ircLog) > 0 {
		f, err := os.OpenFile(cfg.ircLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fatal(err)
		}
		scfg = &ircLogFile{f: f}
		ircOut = &teeWriter{a: stdout, b: f}
	}

	if cfg.keepResolver {
		built.Environment.Resolver = net.DefaultResolver
	} else {
		built.Environment.Resolver = &net.Resolver{}
	}

	var reporters []reporter.Reporter
	errLog := func(err error) {
		if cfg.verbose {
			fmt.Fprintln(stderr, "Error:", err)
		}
	}

	sc := scanengine.New(built.Pools, built.ScanSets, built.Environment, errLog)

	var servers []*server
	for _, pcfg := range built.Presences {
		client, err := ircpresence.New(pcfg, sc, ircOut, errLog)
		if err != nil {
			return fatal(err)
		}
		s := &server{client: client}
		servers = append(servers, s)
		reporters = append(reporters, s)
	}

	if cfg.gops {
		if err := agent.Listen(agent.Options{}); err != nil {
			return fatal(err)
		}
		defer agent.Close()
	}

	if len(cfg.cpuprofile) > 0 {
		f, err := os.Create(cfg.cpuprofile)
		if err != nil {
			return fatal(err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fatal(err)
		}
		defer pprof.StopCPUProfile()
	}

	var memProfileFile *os.File
	if len(cfg.memprofile) > 0 {
		memProfileFile, err = os.Create(cfg.memprofile)
		if err != nil {
			return fatal(err)
		}
		defer memProfileFile.Close()
	}

	if cfg.verbose {
		fmt.Fprintln(stdout, consts.ProgramName, consts.Version, "Starting", len(servers), "IRC presence(s)")
	}

	wg := &sync.WaitGroup{}
	for _, s := range servers {
		s.start(wg)
		if cfg.verbose {
			fmt.Fprintln(stdout, "Starting", s.Name())
		}
	}

	err = osutil.Constrain(cfg.setuidName, cfg.setgidName, cfg.chrootDir)
	if err != nil {
		return fatal(err)
	}
	if cfg.verbose {
		fmt.Fprintf(stdout, "Constraints: %s\n", osutil.ConstraintReport())
	}

	mainStarted = true
	statusInterval := 15 * time.Minute
	nextStatusIn := nextInterval(time.Now(), statusInterval)

Running:
	for {
		select {
		case s := <-stopChannel:
			if s == syscall.SIGUSR1 {
				statusReport("User1", false, reporters)
				break
			}
			if cfg.verbose {
				fmt.Fprintln(stdout, "\nSignal", s)
			}
			break Running

		case <-time.After(nextStatusIn):
			if cfg.verbose {
				statusReport("Status", true, reporters)
			}
			nextStatusIn = nextInterval(time.Now(), statusInterval)
		}
	}

	for _, s := range servers {
		s.stop()
	}

	mainStopped = true
	wg.Wait()

	if scfg != nil {
		scfg.f.Close()
	}

	if cfg.verbose {
		statusReport("Status", true, reporters)
		fmt.Fprintln(stdout, consts.ProgramName, consts.Version, "Exiting after", uptime())
	}

	if memProfileFile != nil {
		runtime.GC()
		if err := pprof.WriteHeapProfile(memProfileFile); err != nil {
			return fatal(err)
		}
	}

	return 0
}

// checkFDLimit verifies the process' soft RLIMIT_NOFILE is at least the sum of configured pool
// sizes, matching spec's §5 "Resource policy" (checked at boot) and conf.py's postOptions check.
func checkFDLimit(poolSizes map[string]int) error {
	need := config.TotalPoolSize(poolSizes)
	var rlim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlim); err != nil {
		return fmt.Errorf("main:checkFDLimit:%w", err)
	}
	if uint64(need) > rlim.Cur {
		return fmt.Errorf("main:checkFDLimit: soft FD limit %d is less than the sum of pool sizes %d"+
			" (use --force-limits to override)", rlim.Cur, need)
	}
	return nil
}

func nextInterval(now time.Time, interval time.Duration) time.Duration {
	return now.Truncate(interval).Add(interval).Sub(now)
}

func uptime() string {
	return time.Now().Sub(startTime).Truncate(time.Second).String()
}

func statusReport(what string, resetCounters bool, reporters []reporter.Reporter) {
	fmt.Fprintln(stdout, "Status Up:", consts.ProgramName, consts.Version, uptime())
	for _, r := range reporters {
		reps := strings.Split(r.Report(resetCounters), "\n")
		for _, s := range reps {
			if len(s) > 0 {
				fmt.Fprintf(stdout, "%s %s: %s\n", what, r.Name(), s)
			}
		}
	}
}
