package ircpresence

import (
	"context"
	"fmt"
	"net"
	"strings"

	irc "github.com/kofany/go-ircevo"

	"github.com/markdingo/trustydns-opm/internal/scanengine"
)

// cachedVerdict is what the verdict cache stores for one ip. A nil Set means "scanned clean".
type cachedVerdict struct {
	Set    *scanengine.ScanSet
	Reason string
}

// onNotice implements the notice pipeline (§ Notice pipeline): parse a server NOTICE for a newly
// connected user, select scansets by hostmask, and scan.
func (c *Client) onNotice(e *irc.Event) {
	if e.Nick != "" { // Has a full nick!user@host prefix: from a user, not the server.
		return
	}
	if c.cfg.ConnRegex == nil {
		return
	}

	message := e.Message()
	match := c.cfg.ConnRegex.FindStringSubmatch(message)
	if match == nil {
		return
	}

	groups := make(map[string]string, len(match))
	for i, name := range c.cfg.ConnRegex.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		groups[name] = match[i]
	}

	nick, user, ip := groups["nick"], groups["user"], groups["ip"]
	host := groups["host"]
	if host == "" {
		host = ip
	}

	if net.ParseIP(ip) == nil { // Also catches the SpoofedIP sentinel ("0"), which doesn't parse.
		return
	}

	matchMask := fmt.Sprintf("%s!%s@%s", nick, user, ip) // §4.3 mask matching is against the ip form.
	hostmask := fmt.Sprintf("%s!%s@%s", nick, user, host) // {MASK} display uses the host form.

	setNames := c.selectScanSets(matchMask)
	if len(setNames) == 0 {
		return
	}

	if c.immuneCache.Contains(ip) {
		c.log(fmt.Sprintf("IMMUNE %s", hostmask))
		return
	}

	if c.verdictCache.Contains(ip) {
		v, _ := c.verdictCache.Get(ip)
		c.applyVerdict(nick, user, ip, host, hostmask, v.(*cachedVerdict))
		return
	}

	go c.scanAndReport(nick, user, ip, host, hostmask, setNames)
}

// selectScanSets unions the scansets of every configured mask matching hostmask.
func (c *Client) selectScanSets(hostmask string) []string {
	seen := map[string]struct{}{}
	var names []string
	for _, m := range c.masks {
		if !m.match(hostmask) {
			continue
		}
		for _, s := range m.sets {
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			names = append(names, s)
		}
	}
	return names
}

func (c *Client) scanAndReport(nick, user, ip, host, hostmask string, setNames []string) {
	errHandler := func(err error) {
		c.errLog(fmt.Errorf("ircpresence:scan %s:%w", ip, err))
	}

	verdict, err := c.scanner.Scan(context.Background(), ip, setNames, errHandler)
	if err != nil {
		c.errLog(fmt.Errorf("ircpresence:scan %s:%w", ip, err))
		return
	}

	cv := &cachedVerdict{}
	if verdict != nil {
		cv.Set = verdict.Set
		cv.Reason = verdict.Reason
	}
	c.verdictCache.Set(ip, cv, c.cfg.VerdictCacheTTL)

	c.applyVerdict(nick, user, ip, host, hostmask, cv)
}

// applyVerdict expands and emits every action template of a positive verdict's ScanSet, or logs a
// clean result. Per the supplemented user-reason/oper-reason split, the reason shown to the user in
// {REASON} and the reason recorded in the operator-facing log line are formatted independently.
func (c *Client) applyVerdict(nick, user, ip, host, hostmask string, cv *cachedVerdict) {
	if cv == nil || cv.Set == nil {
		c.log(fmt.Sprintf("GOOD %s", hostmask))
		return
	}

	userReason := formatReason(cv.Set.UserReason, cv.Reason)
	operReason := formatReason(cv.Set.OperReason, cv.Reason)

	f := fields{ip: ip, nick: nick, user: user, host: host, mask: hostmask, chan_: c.cfg.Channel, reason: userReason}
	for _, tmpl := range cv.Set.Actions {
		c.sendLine(expand(tmpl, f))
	}

	c.log(fmt.Sprintf("KILL %s for %s", hostmask, operReason))
}

// formatReason applies tmpl (a {REASON}-placeholder template) to raw, or returns raw verbatim if
// tmpl is empty.
func formatReason(tmpl, raw string) string {
	if tmpl == "" {
		return raw
	}
	return strings.ReplaceAll(tmpl, "{REASON}", raw)
}
