package main

import (
	"fmt"
	"io"
	"text/template"
)

const usageMessageTemplate = `
NAME
          {{.ProgramName}} -- {{.PackageName}}

SYNOPSIS
          {{.ProgramName}} [options] config-file

DESCRIPTION
          {{.ProgramName}} connects to one or more IRC networks, watches for server connection
          notices, extracts the connecting client's address and probes it for open proxies, TOR
          exit capability and other abuse vectors. A positive match triggers the configured action
          templates (typically a KILL) and is cached to avoid re-scanning the same address.

          Configuration is entirely declarative: a single YAML document names the resource pools,
          the named sets of probes ("scansets") each mask of hostmasks maps to, and the IRC
          networks to join. See the example configuration shipped alongside this program.

          Operators can interact with a running {{.ProgramName}} over the control channel named in
          the configuration document, addressing it as "<nick>: command ..." or "!topm command
          ...". Available commands are check, stats, help, decache and immune.

OPTIONS
          [-v] [-h] [--version]
          [--force-select] [--keep-resolver] [--force-limits]
          [--irc-log file]
          [--gops] [--cpu-profile file] [--mem-profile file]
          [--user userName] [--group groupName] [--chroot directory]
          config-file

`

func usage(out io.Writer) {
	tmpl, err := template.New("usage").Parse(usageMessageTemplate)
	if err != nil {
		panic(err)
	}
	if err := tmpl.Execute(out, consts); err != nil {
		panic(err)
	}
	flagSet.SetOutput(out)
	flagSet.PrintDefaults()
	fmt.Fprintln(out, "\nVersion:", consts.Version)
}

// parseCommandLine sets up the flags-to-config mapping and parses the supplied command line
// arguments. It starts from scratch each time to make it easier for test wrappers to use.
func parseCommandLine(args []string) error {
	flagSet.BoolVar(&cfg.help, "h", false, "Print usage message to Stdout then exit(0)")
	flagSet.BoolVar(&cfg.verbose, "v", false, "Verbose status and stats - otherwise only errors are output")
	flagSet.BoolVar(&cfg.version, "version", false, "Print version and exit")

	flagSet.BoolVar(&cfg.forceSelect, "force-select", false,
		"Accept a sub-optimal network implementation rather than refusing to start (no-op on this runtime)")
	flagSet.BoolVar(&cfg.keepResolver, "keep-resolver", false,
		"Use net.DefaultResolver instead of a freshly constructed resolver")
	flagSet.BoolVar(&cfg.forceLimits, "force-limits", false,
		"Skip the soft FD-limit check against the sum of configured pool sizes")

	flagSet.StringVar(&cfg.ircLog, "irc-log", "", "Also append the IRC presences' log lines (as printed to stdout) to `file`; raw IRC traffic is not logged")

	flagSet.BoolVar(&cfg.gops, "gops", false, "Start github.com/google/gops agent")
	flagSet.StringVar(&cfg.cpuprofile, "cpu-profile", "", "write cpu profile to `file`")
	flagSet.StringVar(&cfg.memprofile, "mem-profile", "", "write mem profile to `file`")

	flagSet.StringVar(&cfg.setuidName, "user", "", "setuid `username` to constrain process after start-up (disabled for Linux)")
	flagSet.StringVar(&cfg.setgidName, "group", "", "setgid `groupname` to constrain process after start-up (disabled for Linux)")
	flagSet.StringVar(&cfg.chrootDir, "chroot", "", "chroot `directory` to constrain process after start-up")

	err := flagSet.Parse(args[1:])
	if err != nil {
		return err
	}

	if flagSet.NArg() == 1 {
		cfg.configFile = flagSet.Arg(0)
	}
	return nil
}
