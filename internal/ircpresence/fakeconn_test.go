package ircpresence

import (
	"fmt"
	"sync"

	irc "github.com/kofany/go-ircevo"
)

// fakeConn is a Conn that records every raw line sent, appending "\r\n" the way a real IRC
// connection's SendRaw does, and tracks Join/Privmsg calls for assertions.
type fakeConn struct {
	mu        sync.Mutex
	raw       []string
	joined    []string
	privmsgs  []string
	connected bool
	connectTo string
}

func (f *fakeConn) AddCallback(event string, callback func(*irc.Event)) string { return "" }
func (f *fakeConn) Connect(server string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	f.connectTo = server
	return nil
}
func (f *fakeConn) Loop()       {}
func (f *fakeConn) Quit()       {}
func (f *fakeConn) Disconnect() {}
func (f *fakeConn) SendRawf(format string, a ...interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw = append(f.raw, fmt.Sprintf(format, a...)+"\r\n")
}
func (f *fakeConn) Privmsg(target, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.privmsgs = append(f.privmsgs, target+":"+message)
}
func (f *fakeConn) Join(channel string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = append(f.joined, channel)
}

func (f *fakeConn) rawLines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.raw...)
}
