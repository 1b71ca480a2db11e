package serverconn

import (
	"context"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/zt8989/ed2k-serverconn/ed2k"
)

// syncExecutor runs every scheduled function on its own goroutine, the
// simplest thing that satisfies Executor for a test.
type syncExecutor struct{}

func (syncExecutor) Go(fn func(context.Context)) { go fn(context.Background()) }

// recordingAlertSink collects every alert it is handed, guarded by a mutex
// since the control loop posts from its own goroutine.
type recordingAlertSink struct {
	mu     sync.Mutex
	alerts []Alert
}

func (s *recordingAlertSink) Post(a Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
}

func (s *recordingAlertSink) ShouldPost(AlertKind) bool { return true }

func (s *recordingAlertSink) snapshot() []Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Alert(nil), s.alerts...)
}

// fakeSourceHandle is the minimal SourceHandle a test transfer needs.
type fakeSourceHandle struct {
	mu      sync.Mutex
	live    bool
	sources []ed2k.SourceEndpoint
}

func (h *fakeSourceHandle) Live() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.live
}

func (h *fakeSourceHandle) SetSources(peers []ed2k.SourceEndpoint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sources = peers
}

func (h *fakeSourceHandle) snapshot() []ed2k.SourceEndpoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]ed2k.SourceEndpoint(nil), h.sources...)
}

type fakeTransferFinder struct {
	mu     sync.Mutex
	byHash map[ed2k.Hash]*fakeSourceHandle
}

func (f *fakeTransferFinder) FindTransfer(hash ed2k.Hash) SourceHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.byHash[hash]
	if !ok {
		return nil
	}
	return h
}

type testSession struct {
	settings Settings
	alerts   *recordingAlertSink
	finder   *fakeTransferFinder

	mu           sync.Mutex
	readyCalled  bool
	readyClient  uint32
	stoppedCh    chan struct{}
	stoppedOnce  sync.Once
}

func newTestSession(settings Settings) *testSession {
	return &testSession{
		settings:  settings,
		alerts:    &recordingAlertSink{},
		finder:    &fakeTransferFinder{byHash: map[ed2k.Hash]*fakeSourceHandle{}},
		stoppedCh: make(chan struct{}),
	}
}

func (s *testSession) Settings() Settings          { return s.settings }
func (s *testSession) Alerts() AlertSink           { return s.alerts }
func (s *testSession) FindTransfer(h ed2k.Hash) SourceHandle { return s.finder.FindTransfer(h) }
func (s *testSession) Executor() Executor          { return syncExecutor{} }

func (s *testSession) ServerReady(clientID, fileCount, userCount, tcpFlags, auxPort uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readyCalled = true
	s.readyClient = clientID
}

func (s *testSession) ServerStopped() {
	s.stoppedOnce.Do(func() { close(s.stoppedCh) })
}

func (s *testSession) wasReady() (bool, uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readyCalled, s.readyClient
}

func startTestListener(t *testing.T) (net.Listener, string, uint16) {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatal(err)
	}
	return ln, host, uint16(port)
}

func waitForState(t *testing.T, c *ServerConnection, want State) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s, got %s", want, c.State())
}

func acceptAndReadLogin(t *testing.T, ln net.Listener) net.Conn {
	t.Helper()
	conn, err := ln.Accept()
	if err != nil {
		t.Fatal(err)
	}
	opcode, _, _, err := ed2k.ReadFrame(conn, 0)
	if err != nil {
		t.Fatal(err)
	}
	if opcode != ed2k.OpLoginRequest {
		t.Fatalf("expected OP_LOGINREQUEST first, got 0x%x", opcode)
	}
	return conn
}

func sendServerStatusAndIDChange(t *testing.T, conn net.Conn, clientID uint32) {
	t.Helper()
	status := ed2k.ServerStatus{UserCount: 10, FileCount: 20}
	statusBuf := ed2k.NewBuffer(8)
	statusBuf.PutUInt32LE(status.UserCount)
	statusBuf.PutUInt32LE(status.FileCount)
	if _, err := conn.Write(ed2k.EncodeFrame(ed2k.OpServerStatus, statusBuf.Bytes())); err != nil {
		t.Fatal(err)
	}

	idBuf := ed2k.NewBuffer(4)
	idBuf.PutUInt32LE(clientID)
	if _, err := conn.Write(ed2k.EncodeFrame(ed2k.OpIDChange, idBuf.Bytes())); err != nil {
		t.Fatal(err)
	}
}

func TestServerConnectionReachesReadyAndFiresAlert(t *testing.T) {
	ln, host, port := startTestListener(t)
	defer ln.Close()

	hash, _ := ed2k.ParseHash("0102030405060708090a0b0c0d0e0f10")
	session := newTestSession(Settings{
		ServerHostname:            host,
		ServerPort:                port,
		ClientHash:                hash,
		ClientName:                "test-client",
		ListenPort:                4662,
		PeerConnectTimeoutSec:     5,
		ServerTimeoutSec:          5,
		ServerKeepAliveTimeoutSec: 5,
	})

	conn := NewServerConnection(session)
	conn.Start()
	defer conn.Close(nil)

	serverSide := acceptAndReadLogin(t, ln)
	defer serverSide.Close()
	sendServerStatusAndIDChange(t, serverSide, 0xAABBCCDD)

	waitForState(t, conn, StateReady)

	ready, clientID := session.wasReady()
	if !ready || clientID != 0xAABBCCDD {
		t.Fatalf("expected ServerReady(0xAABBCCDD), got ready=%v id=0x%x", ready, clientID)
	}

	var sawInit bool
	for _, a := range session.alerts.snapshot() {
		if a.Kind == KindServerConnectionInitialized {
			sawInit = true
		}
	}
	if !sawInit {
		t.Fatal("expected a server_connection_initialized alert")
	}
}

func TestServerConnectionDeliversFoundSourcesToLiveTransfer(t *testing.T) {
	ln, host, port := startTestListener(t)
	defer ln.Close()

	hash, _ := ed2k.ParseHash("0102030405060708090a0b0c0d0e0f10")
	fileHash, _ := ed2k.ParseHash("1112131415161718191a1b1c1d1e1f10")
	session := newTestSession(Settings{
		ServerHostname:            host,
		ServerPort:                port,
		ClientHash:                hash,
		ClientName:                "test-client",
		ListenPort:                4662,
		PeerConnectTimeoutSec:     5,
		ServerTimeoutSec:          5,
		ServerKeepAliveTimeoutSec: 5,
	})
	handle := &fakeSourceHandle{live: true}
	session.finder.byHash[fileHash] = handle

	conn := NewServerConnection(session)
	conn.Start()
	defer conn.Close(nil)

	serverSide := acceptAndReadLogin(t, ln)
	defer serverSide.Close()
	sendServerStatusAndIDChange(t, serverSide, 1)
	waitForState(t, conn, StateReady)

	conn.PostSourcesRequest(fileHash, 12345)
	if op, _, _, err := ed2k.ReadFrame(serverSide, 0); err != nil || op != ed2k.OpGetSources {
		t.Fatalf("expected OP_GETSOURCES, got op=0x%x err=%v", op, err)
	}

	found := ed2k.NewBuffer(0)
	found.PutHash([16]byte(fileHash))
	found.PutUInt8(1)
	found.PutUInt32LE(999)
	found.PutUInt16LE(4662)
	if _, err := serverSide.Write(ed2k.EncodeFrame(ed2k.OpFoundSources, found.Bytes())); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(handle.snapshot()) == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	sources := handle.snapshot()
	if len(sources) != 1 || sources[0].ClientID != 999 {
		t.Fatalf("expected one delivered source with ClientID 999, got %+v", sources)
	}
}

func TestServerConnectionCloseIsIdempotentAndNotifiesSession(t *testing.T) {
	ln, host, port := startTestListener(t)
	defer ln.Close()

	hash, _ := ed2k.ParseHash("0102030405060708090a0b0c0d0e0f10")
	session := newTestSession(Settings{
		ServerHostname:        host,
		ServerPort:            port,
		ClientHash:            hash,
		ClientName:            "test-client",
		PeerConnectTimeoutSec: 5,
		ServerTimeoutSec:      5,
	})

	conn := NewServerConnection(session)
	conn.Start()

	serverSide := acceptAndReadLogin(t, ln)
	defer serverSide.Close()

	conn.Close(nil)
	conn.Close(nil) // idempotent: must not panic or double-notify

	select {
	case <-session.stoppedCh:
	case <-time.After(2 * time.Second):
		t.Fatal("ServerStopped was never called")
	}
	waitForState(t, conn, StateClosed)
}

func TestServerConnectionTimesOutWithoutServerActivity(t *testing.T) {
	ln, host, port := startTestListener(t)
	defer ln.Close()

	hash, _ := ed2k.ParseHash("0102030405060708090a0b0c0d0e0f10")
	session := newTestSession(Settings{
		ServerHostname:        host,
		ServerPort:            port,
		ClientHash:            hash,
		ClientName:            "test-client",
		PeerConnectTimeoutSec: 5,
		ServerTimeoutSec:      1,
	})

	conn := NewServerConnection(session)
	conn.Start()
	defer conn.Close(nil)

	serverSide := acceptAndReadLogin(t, ln)
	defer serverSide.Close()

	waitForState(t, conn, StateClosed)

	var sawFailure bool
	for _, a := range session.alerts.snapshot() {
		if a.Kind == KindServerConnectionFailed {
			sawFailure = true
		}
	}
	if !sawFailure {
		t.Fatal("expected a server_connection_failed alert on timeout")
	}
}
