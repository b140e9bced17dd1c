package main

// server wraps one IRC network's presence with the goroutine/lifecycle bookkeeping main.go needs:
// starting it, stopping it in an orderly fashion, and exposing it for periodic status reports. This
// mirrors cmd/trustydns-proxy/server.go's role of wrapping one dns.Server per listen
// address/transport, just with one ircpresence.Client per configured IRC network instead.

import (
	"context"
	"io"
	"sync"

	"github.com/markdingo/trustydns-opm/internal/ircpresence"
)

type server struct {
	client *ircpresence.Client

	cancel context.CancelFunc
}

// start launches the presence's reconnecting Run loop in its own goroutine. wg.Done() is called
// once Run returns, which it does only when ctx is cancelled by stop.
func (t *server) start(wg *sync.WaitGroup) {
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel

	wg.Add(1)
	go func() {
		defer wg.Done()
		t.client.Run(ctx)
	}()
}

// stop requests an orderly shutdown: cancels the reconnect loop's context and disconnects the
// current connection, if any, so Run's blocking Loop() call returns promptly.
func (t *server) stop() {
	if t.cancel != nil {
		t.cancel()
	}
	t.client.Stop()
}

func (t *server) Name() string {
	return t.client.Tracker().Name()
}

func (t *server) Report(resetCounters bool) string {
	return t.client.Tracker().Report(resetCounters)
}

// teeWriter mirrors writes to both targets; used when --irc-log is set so the informational
// GOOD/KILL/IMMUNE lines of a presence still reach stdout as well as the log file.
type teeWriter struct {
	a, b io.Writer
}

func (t *teeWriter) Write(p []byte) (int, error) {
	if _, err := t.a.Write(p); err != nil {
		return 0, err
	}
	return t.b.Write(p)
}
