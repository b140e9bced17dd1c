/*
Package ircpresence is the IRC-facing half of the monitor: a reconnecting client that watches a
network's connection notices, matches newly-joined hostmasks against operator-configured scansets,
calls the scan engine, and emits rate-limited operator actions for positive verdicts. It also
answers interactive commands in the control channel.

Everything here is built around a narrow Conn interface so the notice/command pipeline can be
tested without a live IRC server; Client wires that interface to github.com/kofany/go-ircevo.
*/
package ircpresence
