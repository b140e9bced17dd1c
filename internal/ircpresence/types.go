package ircpresence

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/markdingo/trustydns-opm/internal/cache"
	"github.com/markdingo/trustydns-opm/internal/ircchallenge"
	"github.com/markdingo/trustydns-opm/internal/scanengine"
)

// OnConnectMsg is one configured message sent immediately after RPL_WELCOME, before any operator
// auth or JOIN.
type OnConnectMsg struct {
	Target, Message string
}

// Config is everything one IRC network's presence needs, corresponding to one entry of the
// configuration document's top-level "irc" mapping.
type Config struct {
	Host, Port  string
	SSL         bool
	Nick        string
	Username    string
	Channel     string
	Password    string
	OperName    string
	OperPass    string
	OperKey     string // Path to an RSA private key file; non-empty selects CHALLENGE auth over plain OPER
	OperMode    string
	Away        string
	ConnRegex   *regexp.Regexp // Named groups: nick, user, ip, and optionally host
	Masks       map[string][]string
	OnConnectMsgs []OnConnectMsg
	Verbose     bool
	FloodExempt bool

	VerdictCacheTTL  time.Duration
	VerdictCacheSize int
	ImmunityCacheSize int

	MessagePenalty time.Duration
	MessageBurst   time.Duration
}

func (c *Config) addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Client is one reconnecting IRC presence: one network connection, its notice pipeline, its
// command interface and its rate-limited output queue.
type Client struct {
	cfg     *Config
	scanner *scanengine.Scanner
	masks   []*mask

	verdictCache *cache.Cache
	immuneCache  *cache.Cache
	tracker      *connTracker
	errLog       func(error)
	out          io.Writer

	connFactory   func(*Config) (Conn, error)
	conn          Conn
	queue         *outputQueue
	challenge     *ircchallenge.Challenge
	resolveHostFn func(string) ([]string, error) // overridable in tests; nil means net.LookupHost
}

// New builds a Client for cfg. scanner runs probe sets on demand; out receives informational lines
// (GOOD/KILL/IMMUNE, one per notice processed); errLog receives unexpected errors (config or
// connection problems) that don't have a more specific home.
func New(cfg *Config, scanner *scanengine.Scanner, out io.Writer, errLog func(error)) (*Client, error) {
	masks := make([]*mask, 0, len(cfg.Masks))
	for pattern, sets := range cfg.Masks {
		m, err := newMask(pattern, sets)
		if err != nil {
			return nil, fmt.Errorf("ircpresence:New:%w", err)
		}
		masks = append(masks, m)
	}

	c := &Client{
		cfg:          cfg,
		scanner:      scanner,
		masks:        masks,
		verdictCache: cache.New(cfg.VerdictCacheSize),
		immuneCache:  cache.New(cfg.ImmunityCacheSize),
		tracker:      newConnTracker(cfg.Nick + "@" + cfg.Host),
		errLog:       errLog,
		out:          out,
		connFactory:  newConn,
	}
	c.queue = newOutputQueue(cfg.MessagePenalty, cfg.MessageBurst, c.sendRaw)
	return c, nil
}

// log writes one informational line (GOOD/KILL/IMMUNE) to the configured writer.
func (c *Client) log(line string) {
	if c.out != nil {
		fmt.Fprintln(c.out, line)
	}
}

// sendLine queues line for rate-limited delivery.
func (c *Client) sendLine(line string) {
	c.queue.enqueue(line)
}

// sendRaw is the queue's delivery callback: the point where a line actually reaches the wire.
func (c *Client) sendRaw(line string) {
	if c.conn != nil {
		c.conn.SendRawf("%s", line)
	}
}

// Run connects, processes events until the connection drops or ctx is cancelled, and reconnects
// with exponential backoff, matching the reconnecting-client posture of the system this package
// replaces. It returns only when ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	backoff := time.Second
	const maxBackoff = 5 * time.Minute

	for ctx.Err() == nil {
		conn, err := c.connFactory(c.cfg)
		if err != nil {
			c.errLog(fmt.Errorf("ircpresence:Run:%w", err))
			if !sleepOrDone(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}
		c.conn = conn
		c.signOn()

		if err := conn.Connect(c.cfg.addr()); err != nil {
			c.errLog(fmt.Errorf("ircpresence:Run:connect %s:%w", c.cfg.addr(), err))
			if !sleepOrDone(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}

		backoff = time.Second
		conn.Loop() // Blocks until disconnected
		c.tracker.disconnected()

		if ctx.Err() != nil {
			return nil
		}
		if !sleepOrDone(ctx, backoff) {
			return nil
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
	return nil
}

// Stop disconnects the current connection, if any, causing Run's Loop() call to return.
func (c *Client) Stop() {
	if c.conn != nil {
		c.conn.Quit()
		c.conn.Disconnect()
	}
	c.queue.stop()
}

// Tracker exposes the connection tracker for periodic reporter.Reporter output.
func (c *Client) Tracker() *connTracker {
	return c.tracker
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		next = max
	}
	return next
}
