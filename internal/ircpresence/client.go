package ircpresence

import (
	"fmt"

	irc "github.com/kofany/go-ircevo"

	"github.com/markdingo/trustydns-opm/internal/ircchallenge"
	"github.com/markdingo/trustydns-opm/internal/tlsutil"
)

// Conn is the subset of *irc.Connection the presence pipeline depends on, narrowed so the
// connect/join sequence, notice pipeline and command interface can be tested without a live IRC
// server.
type Conn interface {
	AddCallback(event string, callback func(*irc.Event)) string
	Connect(server string) error
	Loop()
	Quit()
	Disconnect()
	SendRawf(format string, a ...interface{})
	Privmsg(target, message string)
	Join(channel string)
}

var _ Conn = (*irc.Connection)(nil)

// newConn builds the real go-ircevo connection for cfg. Split out from Client so tests can supply
// a fake Conn instead.
func newConn(cfg *Config) (Conn, error) {
	username := cfg.Username
	if username == "" {
		username = cfg.Nick
	}
	conn := irc.IRC(cfg.Nick, username)
	conn.Password = cfg.Password
	conn.Debug = cfg.Verbose
	conn.UseTLS = cfg.SSL
	if cfg.SSL {
		tlsCfg, err := tlsutil.NewClientTLSConfig(true, nil, "", "")
		if err != nil {
			return nil, fmt.Errorf("ircpresence:newConn:%w", err)
		}
		conn.TLSConfig = tlsCfg
	}
	return conn, nil
}

// signOn wires the numeric/notice callbacks that implement the connect/join sequence (§ Join
// sequence) and the CHALLENGE state machine. It does not dial; Run connects afterwards.
func (c *Client) signOn() {
	c.conn.AddCallback("001", func(e *irc.Event) { c.onWelcome() })
	c.conn.AddCallback("381", func(e *irc.Event) { c.onYoureOper() })
	c.conn.AddCallback("740", func(e *irc.Event) { c.onRSAChallenge(e) })
	c.conn.AddCallback("741", func(e *irc.Event) { c.onEndOfRSAChallenge() })
	c.conn.AddCallback("NOTICE", func(e *irc.Event) { c.onNotice(e) })
	c.conn.AddCallback("PRIVMSG", func(e *irc.Event) { c.onPrivmsg(e) })
}

func (c *Client) onWelcome() {
	c.tracker.connected()

	for _, m := range c.cfg.OnConnectMsgs {
		c.conn.Privmsg(m.Target, m.Message)
	}

	if c.cfg.OperName != "" {
		switch {
		case c.cfg.OperKey != "":
			ch, err := ircchallenge.New(c.cfg.OperKey, c.cfg.OperPass)
			if err != nil {
				c.errLog(fmt.Errorf("ircpresence:onWelcome:%w", err))
				break
			}
			c.challenge = ch
			c.sendLine(fmt.Sprintf("CHALLENGE %s", c.cfg.OperName))
		case c.cfg.OperPass != "":
			c.sendLine(fmt.Sprintf("OPER %s %s", c.cfg.OperName, c.cfg.OperPass))
		}
	}

	if c.cfg.Away != "" {
		c.sendLine(fmt.Sprintf("AWAY :%s", c.cfg.Away))
	}
	c.conn.Join(c.cfg.Channel)
}

func (c *Client) onYoureOper() {
	if c.cfg.OperMode != "" {
		c.sendLine(fmt.Sprintf("MODE %s %s", c.cfg.Nick, c.cfg.OperMode))
	}
	if c.cfg.FloodExempt {
		c.queue.setFloodExempt(true)
	}
}

func (c *Client) onRSAChallenge(e *irc.Event) {
	if c.challenge == nil {
		return
	}
	if len(e.Arguments) > 1 {
		c.challenge.Push(e.Arguments[1])
	}
}

func (c *Client) onEndOfRSAChallenge() {
	if c.challenge == nil {
		return
	}
	resp, err := c.challenge.Finalize()
	c.challenge = nil
	if err != nil {
		c.errLog(fmt.Errorf("ircpresence:onEndOfRSAChallenge:%w", err))
		return
	}
	c.sendLine(fmt.Sprintf("CHALLENGE +%s", resp))
}
