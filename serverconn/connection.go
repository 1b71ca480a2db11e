package serverconn

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/zt8989/ed2k-serverconn/ed2k"
	"github.com/zt8989/ed2k-serverconn/logging"
)

// State is one position in the connection's lifecycle.
type State int32

const (
	StateIdle State = iota
	StateResolving
	StateConnecting
	StateLoggingIn
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateConnecting:
		return "connecting"
	case StateLoggingIn:
		return "logging_in"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ServerConnection is the long-lived session to one ed2k index server: a
// single control loop owns the socket, the timers, the write queue and the
// cached server-reported fields, so none of that state needs a lock. Every
// other goroutine talks to it only through the exported Post*/Close/Start
// methods, which hand a closure to the control loop rather than touching
// state directly.
type ServerConnection struct {
	session Session
	metrics *Metrics

	hostname string
	port     uint16

	state   atomic.Int32
	actions chan func()
	done    chan struct{}

	// control-loop-owned; changed only by run() and the control loop. The
	// writer goroutine also uses conn, remote and crypt (via writeRaw) to
	// send frames.
	conn        net.Conn
	remote      string
	timers      timers
	crypt       *obfuscationHandshake
	writeQueue  [][]byte
	writeBusy   bool
	writeReqCh  chan []byte
	writeRespCh chan error
	frameCh     chan frameEvent

	clientID    uint32
	tcpFlags    uint32
	auxPort     uint32
	userCount   uint32
	fileCount   uint32
	sawIDChange bool
	sawStatus   bool
	readyFired  bool
	stopped     bool
}

type frameEvent struct {
	opcode  uint8
	payload []byte
	dropped bool
	err     error
}

// NewServerConnection builds a connection bound to one session. Nothing
// happens until Start is called.
func NewServerConnection(session Session) *ServerConnection {
	settings := session.Settings()
	c := &ServerConnection{
		session:     session,
		hostname:    settings.ServerHostname,
		port:        settings.ServerPort,
		actions:     make(chan func(), 32),
		done:        make(chan struct{}),
		writeReqCh:  make(chan []byte, 1),
		writeRespCh: make(chan error, 1),
		frameCh:     make(chan frameEvent, 8),
	}
	c.state.Store(int32(StateIdle))
	return c
}

// SetMetrics attaches an optional metrics sink. Passing nil is not
// required; simply never calling SetMetrics leaves c.metrics nil, and every
// metrics update below is skipped by its own c.metrics != nil check.
func (c *ServerConnection) SetMetrics(m *Metrics) {
	c.metrics = m
}

// State returns the current lifecycle state. Safe to call from any
// goroutine.
func (c *ServerConnection) State() State {
	return State(c.state.Load())
}

func (c *ServerConnection) setState(s State) {
	c.state.Store(int32(s))
	if c.metrics != nil {
		c.metrics.State.Set(float64(s))
	}
}

// IsStopped reports whether the connection has reached Closed.
func (c *ServerConnection) IsStopped() bool {
	return c.State() == StateClosed
}

// Initializing reports whether the connection has not yet reached Ready or
// Closed.
func (c *ServerConnection) Initializing() bool {
	switch c.State() {
	case StateIdle, StateResolving, StateConnecting, StateLoggingIn:
		return true
	default:
		return false
	}
}

// ServerEndpoint reports the configured server address, resolved form once
// known.
func (c *ServerConnection) ServerEndpoint() string {
	if c.remote != "" {
		return c.remote
	}
	return net.JoinHostPort(c.hostname, strconv.Itoa(int(c.port)))
}

// Start begins connecting. Idempotent once Resolving or later.
func (c *ServerConnection) Start() {
	if !c.transitionFromIdle() {
		return
	}
	c.session.Executor().Go(c.run)
}

func (c *ServerConnection) transitionFromIdle() bool {
	return c.state.CompareAndSwap(int32(StateIdle), int32(StateResolving))
}

// Close tears the connection down. Idempotent; err is nil for a
// caller-requested shutdown and non-nil for a failure the connection itself
// observed.
func (c *ServerConnection) Close(err error) {
	c.dispatch(func() { c.close(err) })
}

// PostSearchRequest enqueues an OP_SEARCHREQUEST frame carrying an
// already-encoded search tree. A no-op once stopped.
func (c *ServerConnection) PostSearchRequest(tree []byte) {
	c.dispatch(func() { c.enqueue(ed2k.OpSearchRequest, ed2k.SearchRequest{Tree: tree}.Encode()) })
}

// PostSourcesRequest enqueues an OP_GETSOURCES frame for hash/size. A no-op
// once stopped.
func (c *ServerConnection) PostSourcesRequest(hash ed2k.Hash, size uint64) {
	c.dispatch(func() { c.enqueue(ed2k.OpGetSources, ed2k.GetSources{Hash: hash, Size: size}.Encode()) })
}

// PostAnnounce enqueues an OP_OFFERFILES frame. An empty files slice is
// indistinguishable on the wire from a keepalive. A no-op once stopped.
func (c *ServerConnection) PostAnnounce(files []ed2k.FileDescriptor) {
	c.dispatch(func() { c.enqueue(ed2k.OpOfferFiles, ed2k.OfferFiles{Files: files}.Encode()) })
}

// dispatch hands fn to the control loop, dropping it silently if the
// connection has already exited (matches the "re-check is_stopped before
// touching state" cancellation contract: the loop itself is gone, so there
// is nothing left to touch).
func (c *ServerConnection) dispatch(fn func()) {
	select {
	case c.actions <- fn:
	case <-c.done:
	}
}

func (c *ServerConnection) run(ctx context.Context) {
	settings := c.session.Settings()

	endpoint, err := c.resolve(ctx, settings)
	if err != nil {
		c.closeFromLoopStart(NewError(KindResolveFailed, err))
		return
	}
	c.remote = endpoint

	c.setState(StateConnecting)
	if c.metrics != nil {
		c.metrics.ConnectAttempts.Inc()
	}
	conn, err := net.DialTimeout("tcp4", endpoint, time.Duration(settings.PeerConnectTimeoutSec)*time.Second)
	if err != nil {
		if c.metrics != nil {
			c.metrics.ConnectFailures.Inc()
		}
		c.closeFromLoopStart(NewError(KindConnectFailed, err))
		return
	}
	c.conn = conn

	reader := io.Reader(conn)
	if settings.ObfuscateHandshake {
		reader, err = c.performHandshake(conn, settings)
		if err != nil {
			c.closeFromLoopStart(NewError(KindConnectFailed, err))
			return
		}
	}

	c.setState(StateLoggingIn)
	login := ed2k.LoginRequest{
		Hash:         settings.ClientHash,
		ClientID:     0,
		Port:         settings.ListenPort,
		ClientName:   settings.ClientName,
		ServerFlags:  settings.ServerFlags,
		EmuleVersion: settings.EmuleVersion,
	}
	loginFrame := ed2k.EncodeFrame(ed2k.OpLoginRequest, login.Encode())
	if err := c.writeRaw(loginFrame); err != nil {
		c.closeFromLoopStart(NewError(KindIOFailed, err))
		return
	}

	// The login write happens before the reader goroutine is launched so the
	// server never sees us reading before we have sent our own greeting.
	go c.readLoop(reader, settings.MaxInflatedFrameBytes)
	go c.writeLoop()

	c.timers.operation.arm(time.Duration(settings.ServerTimeoutSec) * time.Second)
	c.loop()
}

func (c *ServerConnection) closeFromLoopStart(err error) {
	c.close(err)
}

func (c *ServerConnection) resolve(ctx context.Context, settings Settings) (string, error) {
	resolveCtx, cancel := context.WithTimeout(ctx, time.Duration(settings.PeerConnectTimeoutSec)*time.Second)
	defer cancel()
	addrs, err := net.DefaultResolver.LookupIPAddr(resolveCtx, c.hostname)
	if err != nil {
		return "", err
	}
	for _, a := range addrs {
		if ip4 := a.IP.To4(); ip4 != nil {
			return net.JoinHostPort(ip4.String(), strconv.Itoa(int(c.port))), nil
		}
	}
	return "", fmt.Errorf("no IPv4 address for %s", c.hostname)
}

// performHandshake runs the obfuscation handshake as initiator and returns
// the reader subsequent frames should be read from.
func (c *ServerConnection) performHandshake(conn net.Conn, settings Settings) (io.Reader, error) {
	h := newObfuscationHandshake(settings.ClientHash)
	randKey, err := randBuf(4)
	if err != nil {
		return nil, err
	}
	pad, err := randBuf(randIntn(16))
	if err != nil {
		return nil, err
	}
	key := uint32(randKey[0]) | uint32(randKey[1])<<8 | uint32(randKey[2])<<16 | uint32(randKey[3])<<24
	protoByte, err := randBuf(1)
	if err != nil {
		return nil, err
	}
	out, err := h.build(protoByte[0], key, pad)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(out); err != nil {
		return nil, err
	}
	reply := make([]byte, 512)
	n, err := conn.Read(reply)
	if err != nil {
		return nil, err
	}
	if _, _, err := h.decrypt(reply[:n]); err != nil {
		return nil, err
	}
	c.crypt = h
	return &cryptReader{r: conn, h: h}, nil
}

// cryptReader decrypts every byte read from the underlying obfuscated
// connection before the framer ever sees it.
type cryptReader struct {
	r io.Reader
	h *obfuscationHandshake
}

func (cr *cryptReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		plain, _, derr := cr.h.decrypt(p[:n])
		if derr != nil {
			return 0, derr
		}
		copy(p[:n], plain)
	}
	return n, err
}

func (c *ServerConnection) writeRaw(frame []byte) error {
	opcode := frame[ed2k.HeaderLen-1]
	payloadLen := len(frame) - ed2k.HeaderLen
	if c.crypt != nil {
		frame = c.crypt.encrypt(frame)
	}
	_, err := c.conn.Write(frame)
	if err == nil {
		logFrame("send", c.remote, opcode, payloadLen)
		if c.metrics != nil {
			c.metrics.FramesSent.Inc()
			c.metrics.BytesOut.Add(float64(len(frame)))
		}
	}
	return err
}

func (c *ServerConnection) readLoop(r io.Reader, maxInflated uint32) {
	for {
		opcode, payload, dropped, err := ed2k.ReadFrame(r, maxInflated)
		select {
		case c.frameCh <- frameEvent{opcode: opcode, payload: payload, dropped: dropped, err: err}:
		case <-c.done:
			return
		}
		if err != nil {
			return
		}
	}
}

func (c *ServerConnection) writeLoop() {
	for {
		select {
		case frame := <-c.writeReqCh:
			err := c.writeRaw(frame)
			select {
			case c.writeRespCh <- err:
			case <-c.done:
				return
			}
			if err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// loop is the single control goroutine: it is the only code that changes
// the fields above after run() hands off to it.
func (c *ServerConnection) loop() {
	for {
		select {
		case fn := <-c.actions:
			fn()
		case ev := <-c.frameCh:
			c.timers.operation.arm(c.operationTimeout())
			if ev.err != nil {
				c.close(NewError(KindIOFailed, ev.err))
				return
			}
			if ev.dropped {
				logging.Debugf("serverconn: dropped undecodable compressed frame, opcode=0x%x", ev.opcode)
				continue
			}
			c.handleFrame(ev.opcode, ev.payload)
		case err := <-c.writeRespCh:
			c.onWriteDone(err)
			if err != nil {
				c.close(NewError(KindIOFailed, err))
				return
			}
		case <-c.timers.operation.C():
			c.close(NewError(KindTimedOut, fmt.Errorf("no activity within timeout")))
			return
		case <-c.timers.keepalive.C():
			c.enqueue(ed2k.OpOfferFiles, ed2k.OfferFiles{}.Encode())
			c.timers.keepalive.arm(time.Duration(c.session.Settings().ServerKeepAliveTimeoutSec) * time.Second)
		case <-c.done:
			return
		}
		if c.stopped {
			return
		}
	}
}

func (c *ServerConnection) operationTimeout() time.Duration {
	return time.Duration(c.session.Settings().ServerTimeoutSec) * time.Second
}

// maxQueuedFrames is a soft cap on the unbounded write queue the wire
// protocol itself imposes none of; past this, post_* calls drop the frame
// rather than let a stalled peer grow memory without bound.
const maxQueuedFrames = 1024

// enqueue appends an outbound frame and, if nothing else is in flight,
// schedules it for the write loop immediately.
func (c *ServerConnection) enqueue(opcode uint8, payload []byte) {
	if c.stopped {
		return
	}
	if len(c.writeQueue) >= maxQueuedFrames {
		logging.Warnf("serverconn: write queue full, dropping opcode 0x%x", opcode)
		return
	}
	frame := ed2k.EncodeFrame(opcode, payload)
	c.writeQueue = append(c.writeQueue, frame)
	if !c.writeBusy {
		c.scheduleHeadWrite()
	}
}

func (c *ServerConnection) scheduleHeadWrite() {
	if len(c.writeQueue) == 0 {
		return
	}
	c.writeBusy = true
	c.timers.operation.arm(c.operationTimeout())
	select {
	case c.writeReqCh <- c.writeQueue[0]:
	case <-c.done:
	}
}

func (c *ServerConnection) onWriteDone(err error) {
	if err != nil || len(c.writeQueue) == 0 {
		return
	}
	c.writeQueue = c.writeQueue[1:]
	if len(c.writeQueue) > 0 {
		c.scheduleHeadWrite()
	} else {
		c.writeBusy = false
	}
}

func (c *ServerConnection) handleFrame(opcode uint8, payload []byte) {
	msg, recognized, err := ed2k.DecodeMessage(opcode, payload)
	if err != nil {
		c.close(err)
		return
	}
	logFrame("recv", c.remote, opcode, len(payload))
	if c.metrics != nil {
		c.metrics.FramesReceived.Inc()
		c.metrics.BytesIn.Add(float64(len(payload) + ed2k.HeaderLen))
	}
	if !recognized {
		logging.Debugf("serverconn: unhandled opcode 0x%x, len=%d", opcode, len(payload))
		return
	}

	switch m := msg.(type) {
	case ed2k.ServerMessage:
		c.postAlert(serverMessageAlert(m.Text), KindServerMessage)
	case ed2k.ServerStatus:
		c.userCount, c.fileCount = m.UserCount, m.FileCount
		c.sawStatus = true
		c.postAlert(serverStatusAlert(m.UserCount, m.FileCount), KindServerStatus)
		c.maybeFireReady()
	case ed2k.IDChange:
		c.clientID, c.tcpFlags, c.auxPort = m.ClientID, m.TCPFlags, m.AuxPort
		c.sawIDChange = true
		c.maybeFireReady()
	case ed2k.ServerIdent:
		logging.Debugf("serverconn: server ident hash=%s ip=%d port=%d", m.Hash, m.IPv4, m.Port)
	case ed2k.ServerList:
		logging.Debugf("serverconn: server list, %d entries", len(m.Servers))
	case ed2k.FoundSources:
		c.deliverSources(m)
	case ed2k.SearchResult:
		c.postSearchResult(m)
	case ed2k.Reject, ed2k.Disconnect, ed2k.UsersList, ed2k.CallbackRequested:
		logging.Debugf("serverconn: received opcode 0x%x", opcode)
	}
}

func (c *ServerConnection) maybeFireReady() {
	if c.readyFired || !c.sawIDChange || !c.sawStatus {
		return
	}
	c.readyFired = true
	c.timers.keepalive.arm(time.Duration(c.session.Settings().ServerKeepAliveTimeoutSec) * time.Second)
	c.session.ServerReady(c.clientID, c.fileCount, c.userCount, c.tcpFlags, c.auxPort)
	c.postAlert(serverConnectionInitializedAlert(c.clientID, c.fileCount, c.userCount), KindServerConnectionInitialized)
	c.setState(StateReady)
}

func (c *ServerConnection) deliverSources(m ed2k.FoundSources) {
	handle := c.session.FindTransfer(m.Hash)
	if handle == nil || !handle.Live() {
		return
	}
	handle.SetSources(m.Peers)
}

func (c *ServerConnection) postSearchResult(m ed2k.SearchResult) {
	if !c.session.Alerts().ShouldPost(KindSearchResult) {
		return
	}
	entries := make([]SearchResultEntry, 0, len(m.Files))
	for _, f := range m.Files {
		name, _ := f.Tags.GetString(ed2k.NumericName(ed2k.TagFileName))
		size, _ := f.Tags.GetUint32(ed2k.NumericName(ed2k.TagSize))
		entries = append(entries, SearchResultEntry{Hash: f.Hash.String(), Name: name, Size: uint64(size)})
	}
	c.postAlert(searchResultAlert(entries), KindSearchResult)
}

func (c *ServerConnection) postAlert(a Alert, kind AlertKind) {
	if !c.session.Alerts().ShouldPost(kind) {
		return
	}
	c.session.Alerts().Post(a)
	if c.metrics != nil {
		c.metrics.AlertsPosted.WithLabelValues(string(kind)).Inc()
	}
}

// close tears everything down. Idempotent: a second call observes c.stopped
// already true and returns immediately.
func (c *ServerConnection) close(err error) {
	if c.stopped {
		return
	}
	c.stopped = true
	c.setState(StateClosed)
	c.timers.disarmAll()
	if c.conn != nil {
		c.conn.Close()
	}
	close(c.done)
	if err != nil {
		c.postAlert(serverConnectionFailedAlert(err), KindServerConnectionFailed)
	}
	c.session.ServerStopped()
}
