package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wayfare-dev/wayfare/pkg/location"
	"github.com/wayfare-dev/wayfare/pkg/protocol"
	"github.com/wayfare-dev/wayfare/pkg/router"
	"github.com/wayfare-dev/wayfare/pkg/vdom"
)

// Session is one connected browser tab. It owns a Router and a single
// event-loop goroutine; the loop is the only code that touches the
// router, which is how the core's single-writer discipline is upheld.
//
// Session implements router.Substrate: substrate commands become wire
// ops buffered during event handling and flushed as one frame.
type Session[R, S, M any] struct {
	// Identity
	ID        string
	CreatedAt time.Time

	conn    *websocket.Conn
	writeMu sync.Mutex // Protects conn writes
	closed  atomic.Bool

	rt  *router.Router[R, S, M]
	cfg *Config
	log *slog.Logger

	events     chan *protocol.Event
	dispatchCh chan func()
	done       chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	// Grab correlation. Touched only on the event loop.
	grabSeq uint64
	grabs   map[uint64]router.GrabToken

	// Running subscriptions keyed by page location.
	subCancels map[string]context.CancelFunc

	// Ops buffered while handling one event, flushed afterwards.
	pendingOps []protocol.Op

	// Metrics
	eventCount atomic.Uint64
	dropCount  atomic.Uint64
}

// generateSessionID generates a cryptographically random session ID.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// SECURITY: fatal on entropy failure, weak IDs are dangerous
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(b)
}

// newSession creates a session for conn and builds its router anchored
// at initial. The initial page's commands are started immediately.
func newSession[R, S, M any](
	conn *websocket.Conn,
	initial location.Location,
	codec router.Codec[R],
	provider router.Provider[R, S, M],
	routerCfg *router.Config[R],
	cfg *Config,
) *Session[R, S, M] {
	id := generateSessionID()
	ctx, cancel := context.WithCancel(context.Background())

	s := &Session[R, S, M]{
		ID:         id,
		CreatedAt:  time.Now(),
		conn:       conn,
		cfg:        cfg,
		log:        cfg.Logger.With("session_id", id),
		events:     make(chan *protocol.Event, cfg.EventQueueSize),
		dispatchCh: make(chan func(), cfg.EventQueueSize),
		done:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
		grabs:      make(map[uint64]router.GrabToken),
		subCancels: make(map[string]context.CancelFunc),
	}

	if routerCfg == nil {
		routerCfg = router.DefaultConfig[R]()
	}
	if routerCfg.Logger == nil {
		routerCfg = routerCfg.Clone()
		routerCfg.Logger = s.log
	}

	rt, cmds := router.New(initial, s, codec, provider, routerCfg)
	s.rt = rt
	s.runCommands(cmds)
	s.reconcileSubscriptions()

	return s
}

// Run starts the read pump and processes events until the connection
// closes. It blocks; callers run it in the connection's goroutine.
func (s *Session[R, S, M]) Run() {
	go s.readLoop()

	var pingCh <-chan time.Time
	if s.cfg.PingInterval > 0 {
		ticker := time.NewTicker(s.cfg.PingInterval)
		defer ticker.Stop()
		pingCh = ticker.C
	}

	// New buffered substrate ops (the initial viewport grab).
	s.flush()

	for {
		select {
		case <-s.done:
			return
		case <-pingCh:
			s.sendPing()
		case fn := <-s.dispatchCh:
			fn()
			s.flush()
		case ev := <-s.events:
			s.handleEvent(ev)
			s.flush()
		}
	}
}

// sendPing sends a heartbeat ping. The client's pong arrives on the
// read loop and extends the read deadline like any other message.
func (s *Session[R, S, M]) sendPing() {
	frame := protocol.EncodeControl(&protocol.Control{
		Type:      protocol.ControlPing,
		Timestamp: uint64(time.Now().UnixMilli()),
	})
	if err := s.writeFrame(frame); err != nil {
		s.log.Debug("ping failed, closing", "err", err)
		s.Close()
	}
}

// readLoop pumps client frames into the event channel.
func (s *Session[R, S, M]) readLoop() {
	defer s.Close()

	s.conn.SetReadLimit(s.cfg.MaxMessageSize)

	for {
		if s.cfg.ReadTimeout > 0 {
			_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		}
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("read loop ended", "err", err)
			}
			return
		}

		if len(data) > 0 && protocol.FrameType(data[0]) == protocol.FrameControl {
			s.handleControl(data)
			continue
		}

		ev, err := protocol.DecodeEvent(data)
		if err != nil {
			s.log.Warn("undecodable event frame", "err", err)
			continue
		}

		if err := s.enqueue(ev); err != nil {
			s.dropCount.Add(1)
			s.log.Warn("dropping event", "err", err, "type", ev.Type.String())
		}
	}
}

// enqueue hands an event to the event loop without blocking the read
// pump. A full queue means the loop is badly behind; the event is the
// casualty, not the connection.
func (s *Session[R, S, M]) enqueue(ev *protocol.Event) error {
	select {
	case s.events <- ev:
		return nil
	default:
		return ErrEventQueueFull
	}
}

// handleControl processes an inbound control frame on the read pump.
// A pong needs no action beyond the read itself, which already
// extended the deadline; a client-initiated ping is answered in kind.
func (s *Session[R, S, M]) handleControl(data []byte) {
	ctrl, err := protocol.DecodeControl(data)
	if err != nil {
		s.log.Warn("undecodable control frame", "err", err)
		return
	}
	if ctrl.Type != protocol.ControlPing {
		return
	}
	pong := protocol.EncodeControl(&protocol.Control{
		Type:      protocol.ControlPong,
		Timestamp: ctrl.Timestamp,
	})
	if err := s.writeFrame(pong); err != nil {
		s.log.Debug("pong failed", "err", err)
	}
}

// handleEvent routes one client event into the router.
func (s *Session[R, S, M]) handleEvent(ev *protocol.Event) {
	s.eventCount.Add(1)

	switch ev.Type {
	case protocol.EventLinkClicked:
		if ev.External {
			s.rt.External(ev.Href)
			return
		}
		loc, err := location.Parse(ev.Href)
		if err != nil {
			s.log.Warn("rejected link target", "href", ev.Href, "err", err)
			return
		}
		s.rt.HandleURLRequest(loc, false)

	case protocol.EventURLChanged:
		loc, err := location.Parse(ev.Href)
		if err != nil {
			s.log.Warn("rejected location", "href", ev.Href, "err", err)
			return
		}
		cmds := s.rt.HandleURLChanged(loc)
		s.syncView()
		s.reconcileSubscriptions()
		s.runCommands(cmds)

	case protocol.EventViewport:
		grab, ok := s.grabs[ev.GrabID]
		if !ok {
			// Reply to a grab this session no longer tracks.
			s.log.Debug("dropping unmatched viewport reply", "grab_id", ev.GrabID)
			return
		}
		delete(s.grabs, ev.GrabID)
		s.rt.HandleViewportGrabbed(grab, router.Viewport{X: ev.X, Y: ev.Y})

	default:
		s.log.Warn("unhandled event type", "type", ev.Type.String())
	}
}

// =============================================================================
// router.Substrate Implementation
// =============================================================================

// PushLocation implements router.Substrate.
func (s *Session[R, S, M]) PushLocation(loc location.Location) {
	s.queueOp(protocol.NewNavPushOp(loc.Key()))
}

// ReplaceLocation implements router.Substrate.
func (s *Session[R, S, M]) ReplaceLocation(loc location.Location) {
	s.queueOp(protocol.NewNavReplaceOp(loc.Key()))
}

// LeaveApp implements router.Substrate.
func (s *Session[R, S, M]) LeaveApp(url string) {
	s.queueOp(protocol.NewLeaveAppOp(url))
}

// FetchViewport implements router.Substrate. The grab is parked under
// a fresh correlation id until the client's viewport reply lands.
func (s *Session[R, S, M]) FetchViewport(grab router.GrabToken) {
	s.grabSeq++
	id := s.grabSeq
	s.grabs[id] = grab
	s.queueOp(protocol.NewGetViewportOp(id))
}

// SetViewport implements router.Substrate.
func (s *Session[R, S, M]) SetViewport(vp router.Viewport) {
	s.queueOp(protocol.NewScrollToOp(vp.X, vp.Y))
}

// Delay implements router.Substrate. The expiry re-enters through the
// dispatch channel so the reply is processed on the event loop.
func (s *Session[R, S, M]) Delay(token router.DelayToken, d time.Duration) {
	time.AfterFunc(d, func() {
		s.Dispatch(func() {
			s.rt.HandleDelayElapsed(token)
		})
	})
}

// =============================================================================
// Commands, Subscriptions, View Sync
// =============================================================================

// Dispatch runs fn on the session's event loop. It is safe to call
// from any goroutine; fn is discarded if the session is closed.
func (s *Session[R, S, M]) Dispatch(fn func()) {
	select {
	case s.dispatchCh <- fn:
	case <-s.done:
	}
}

// runCommands starts each command in its own goroutine. Emitted
// messages re-enter the event loop tagged with the command's origin.
func (s *Session[R, S, M]) runCommands(cmds []router.Command[M]) {
	for _, c := range cmds {
		cmd := c
		go cmd.Cmd(s.ctx, func(msg M) {
			s.Dispatch(func() {
				s.deliver(cmd.Origin, msg)
			})
		})
	}
}

// deliver routes a command or subscription reply into the router.
// Updates can change what a page subscribes to, so the subscription
// set is reconciled after every delivery.
func (s *Session[R, S, M]) deliver(origin router.Origin, msg M) {
	var cmds []router.Command[M]
	if loc, bg := origin.Location(); bg {
		cmds = s.rt.DispatchTo(loc, msg)
	} else {
		cmds = s.rt.Dispatch(msg)
		s.syncView()
	}
	s.reconcileSubscriptions()
	s.runCommands(cmds)
}

// reconcileSubscriptions aligns running subscriptions with the
// router's current set: start subscriptions of newly cached pages,
// cancel those whose page no longer subscribes.
//
// The foreground/background tag is resolved at delivery time, so a
// subscription started while its page was displayed keeps ticking as a
// background feed after the user navigates away.
func (s *Session[R, S, M]) reconcileSubscriptions() {
	subs := s.rt.Subscriptions()

	active := make(map[string]bool, len(subs))
	for _, sub := range subs {
		key := sub.Location.Key()
		active[key] = true
		if _, running := s.subCancels[key]; running {
			continue
		}

		ctx, cancel := context.WithCancel(s.ctx)
		s.subCancels[key] = cancel
		loc := sub.Location
		go sub.Sub(ctx, func(msg M) {
			s.Dispatch(func() {
				if loc.Equal(s.rt.CurrentLocation()) {
					s.deliver(router.Foreground(), msg)
				} else {
					s.deliver(router.Background(loc), msg)
				}
			})
		})
	}

	for key, cancel := range s.subCancels {
		if !active[key] {
			cancel()
			delete(s.subCancels, key)
		}
	}
}

// syncView pushes the current layout to the client.
func (s *Session[R, S, M]) syncView() {
	layout := s.rt.Render()
	if layout.HasTitle {
		s.queueOp(protocol.NewSetTitleOp(layout.Title))
	}
	s.queueOp(protocol.NewRenderHTMLOp(vdom.RenderHTML(layout.Content...)))
}

// =============================================================================
// Wire Plumbing
// =============================================================================

// queueOp buffers an op for the next flush.
func (s *Session[R, S, M]) queueOp(op protocol.Op) {
	s.pendingOps = append(s.pendingOps, op)
}

// flush sends all buffered ops as a single frame.
func (s *Session[R, S, M]) flush() {
	if len(s.pendingOps) == 0 {
		return
	}
	ops := s.pendingOps
	s.pendingOps = nil

	if err := s.writeFrame(protocol.EncodeOps(ops)); err != nil {
		s.log.Debug("write failed, closing", "err", err)
		s.Close()
	}
}

// writeFrame writes one binary message under the write lock.
func (s *Session[R, S, M]) writeFrame(data []byte) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.cfg.WriteTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
	if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return NewSessionError(s.ID, "write", err)
	}
	return nil
}

// Close shuts the session down: subscriptions and commands are
// cancelled, the connection is closed, the event loop drains out.
// Close is idempotent.
func (s *Session[R, S, M]) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.cancel()
	close(s.done)
	_ = s.conn.Close()
	s.log.Debug("session closed",
		"events", s.eventCount.Load(),
		"dropped", s.dropCount.Load())
}

// IsClosed reports whether the session has been closed.
func (s *Session[R, S, M]) IsClosed() bool {
	return s.closed.Load()
}

// Done returns a channel closed when the session shuts down.
func (s *Session[R, S, M]) Done() <-chan struct{} {
	return s.done
}

// Router exposes the session's router for host-side queries.
func (s *Session[R, S, M]) Router() *router.Router[R, S, M] {
	return s.rt
}
