package serverconn

import (
	"context"

	"github.com/zt8989/ed2k-serverconn/ed2k"
)

// Settings is the read-only configuration snapshot the connection needs
// from its host. It is deliberately narrow: only the fields the state
// machine, codec and timers consult.
type Settings struct {
	ServerHostname          string
	ServerPort              uint16
	ClientHash              ed2k.Hash
	ClientName              string
	ListenPort              uint16
	PeerConnectTimeoutSec   int
	ServerTimeoutSec        int
	ServerKeepAliveTimeoutSec int
	MaxInflatedFrameBytes   uint32
	ServerFlags             uint32
	EmuleVersion            uint32
	ObfuscateHandshake      bool
}

// AlertSink is the capability a session exposes for posting and filtering
// alerts. ShouldPost lets the host skip work (e.g. assembling a
// SearchResult's entries) for alert kinds nobody is listening for.
type AlertSink interface {
	Post(Alert)
	ShouldPost(AlertKind) bool
}

// SourceHandle is the possibly-dead reference FindTransfer returns. A dead
// handle simply means the matching transfer went away between the request
// and the response; the caller drops the frame rather than erroring.
type SourceHandle interface {
	Live() bool
	SetSources(peers []ed2k.SourceEndpoint)
}

// TransferFinder is the narrow lookup surface the connection needs to
// deliver OP_FOUNDSOURCES results to whichever transfer asked for them.
// Ownership of the transfer catalog itself stays with the host.
type TransferFinder interface {
	FindTransfer(hash ed2k.Hash) SourceHandle
}

// Session is the complete capability surface a ServerConnection requires
// from its host: settings, alerts, transfer lookup, lifecycle
// notifications, and an executor to run the connection's single-threaded
// loop on.
type Session interface {
	Settings() Settings
	Alerts() AlertSink
	TransferFinder
	ServerReady(clientID, fileCount, userCount, tcpFlags, auxPort uint32)
	ServerStopped()
	Executor() Executor
}

// Executor is the shared single-threaded scheduler the connection borrows
// from its host; it never owns one. A context.Context based executor keeps
// this library free of a bespoke scheduling abstraction.
type Executor interface {
	Go(func(context.Context))
}
