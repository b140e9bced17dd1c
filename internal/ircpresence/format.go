package ircpresence

import (
	"math/rand"
	"strconv"
	"strings"
)

// fields holds the substitution values for one action-template expansion. Absent fields expand to
// the empty string, matching the source's format-or-skip behaviour.
type fields struct {
	ip, nick, user, host, mask, chan_, reason string
}

// expand replaces every {PLACEHOLDER} in tmpl with its field value. {RANDOM} is replaced with a
// fresh integer in [160,320) on every call, matching the source's per-line jitter value used to
// dodge naive duplicate-line flood filters on some ircds.
func expand(tmpl string, f fields) string {
	r := strings.NewReplacer(
		"{IP}", f.ip,
		"{NICK}", f.nick,
		"{USER}", f.user,
		"{HOST}", f.host,
		"{MASK}", f.mask,
		"{CHAN}", f.chan_,
		"{REASON}", f.reason,
		"{RANDOM}", strconv.Itoa(160+rand.Intn(320-160)),
	)
	return r.Replace(tmpl)
}
