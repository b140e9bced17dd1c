package ircpresence

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	irc "github.com/kofany/go-ircevo"

	"github.com/markdingo/trustydns-opm/internal/scanengine"
)

// addressPrefixes returns the forms a command line may be addressed to the bot with:
// "<nick> ", "<nick>: ", "<nick>, ", "<nick>; ", or the fixed "!topm " alias.
func (c *Client) addressPrefixes() []string {
	nick := c.cfg.Nick
	return []string{nick + " ", nick + ": ", nick + ", ", nick + "; ", "!topm "}
}

// onPrivmsg implements the command interface (§ Command interface). Only messages sent to the
// configured control channel are considered; private messages are rejected, matching the source's
// access-control-via-channel-membership design.
func (c *Client) onPrivmsg(e *irc.Event) {
	if len(e.Arguments) == 0 {
		return
	}
	target := e.Arguments[0]
	if target != c.cfg.Channel {
		return
	}
	message := e.Message()

	var rest string
	matched := false
	for _, prefix := range c.addressPrefixes() {
		if strings.HasPrefix(message, prefix) {
			rest = strings.TrimSpace(message[len(prefix):])
			matched = true
			break
		}
	}
	if !matched {
		return
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return
	}
	command, args := fields[0], fields[1:]

	switch command {
	case "check":
		c.cmdCheck(e.Nick, args)
	case "stats":
		c.cmdStats()
	case "help":
		c.cmdHelp()
	case "decache":
		c.cmdDecache(args)
	case "immune":
		c.cmdImmune(args)
	}
}

func (c *Client) reply(format string, a ...interface{}) {
	c.sendLine(fmt.Sprintf("PRIVMSG %s :%s", c.cfg.Channel, fmt.Sprintf(format, a...)))
}

func (c *Client) cmdCheck(requester string, args []string) {
	if len(args) == 0 {
		c.reply("check what?")
		return
	}
	target := args[0]
	setNames := args[1:]
	if len(setNames) == 0 {
		setNames = []string{"default"}
	}

	var ip string
	if net.ParseIP(target) != nil {
		ip = target
	} else {
		addrs, err := c.resolveHost(target)
		if err != nil || len(addrs) == 0 {
			c.reply("%s did not resolve", target)
			return
		}
		ip = addrs[0]
	}

	errHandler := func(err error) {
		c.reply("failure: %s", err)
	}
	verdict, err := c.scanner.Scan(context.Background(), ip, setNames, errHandler)
	if err != nil {
		var unknown *scanengine.UnknownSetError
		if errors.As(err, &unknown) {
			c.reply("unknown scanset %s", unknown.Name)
			return
		}
		c.reply("failure: %s", err)
		return
	}
	if verdict == nil {
		c.reply("%s is clean", target)
		return
	}
	c.reply("%s is bad: %s", target, verdict.Reason)
}

func (c *Client) resolveHost(host string) ([]string, error) {
	if c.resolveHostFn != nil {
		return c.resolveHostFn(host)
	}
	return net.LookupHost(host)
}

func (c *Client) cmdStats() {
	names := make([]string, 0, len(c.scanner.Pools()))
	for name := range c.scanner.Pools() {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		pool := c.scanner.Pools()[name]
		if free := pool.Free(); free > 0 {
			c.reply("%s: %d free", name, free)
		} else {
			c.reply("%s: %d queued", name, pool.Queued())
		}
	}
	c.reply("%d checks in progress", c.scanner.ActiveCount())
}

func (c *Client) cmdHelp() {
	c.reply("commands: check stats help decache immune")
}

func (c *Client) cmdDecache(args []string) {
	if len(args) == 0 {
		c.verdictCache.Clear()
		c.reply("verdict cache cleared")
		return
	}
	if c.verdictCache.Delete(args[0]) {
		c.reply("decached %s", args[0])
	} else {
		c.reply("%s not cached", args[0])
	}
}

// cmdImmune consumes two positional arguments (ip, seconds); any further arguments are ignored, per
// earlier variants of the source that passed a third, unused one.
func (c *Client) cmdImmune(args []string) {
	if len(args) < 2 {
		c.reply("usage: immune <ip> <seconds>")
		return
	}
	ip := args[0]
	secs, err := strconv.Atoi(args[1])
	if err != nil {
		c.reply("bad seconds: %s", args[1])
		return
	}
	c.immuneCache.Set(ip, true, time.Duration(secs)*time.Second)
	c.reply("immune %s for %ds", ip, secs)
}
