package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wayfare-dev/wayfare/pkg/location"
	"github.com/wayfare-dev/wayfare/pkg/protocol"
	"github.com/wayfare-dev/wayfare/pkg/router"
	"github.com/wayfare-dev/wayfare/pkg/vdom"
)

// =============================================================================
// Fixtures
// =============================================================================

type hostRoute struct {
	name string
}

type hostCodec struct{}

func (hostCodec) Parse(loc location.Location) hostRoute {
	switch loc.Path {
	case "/":
		return hostRoute{name: "home"}
	case "/about":
		return hostRoute{name: "about"}
	default:
		return hostRoute{name: "missing"}
	}
}

type hostState struct {
	route hostRoute
}

type hostProvider struct{}

func (hostProvider) Init(r hostRoute) (hostState, router.Cmd[string]) {
	return hostState{route: r}, nil
}

func (hostProvider) Update(msg string, s hostState) (hostState, router.Cmd[string]) {
	return s, nil
}

func (hostProvider) Render(s hostState) router.Layout {
	return router.Layout{
		Title:    strings.ToUpper(s.route.name[:1]) + s.route.name[1:],
		HasTitle: true,
		Content:  []*vdom.VNode{vdom.El("h1", nil, vdom.Text(s.route.name))},
	}
}

func (hostProvider) Subscriptions(s hostState) router.Sub[string] {
	return nil
}

// armProvider only subscribes once an update has armed it, so its
// subscription set changes as a consequence of message delivery.
type armState struct {
	armed bool
	ticks int
}

type armProvider struct{}

func (armProvider) Init(r hostRoute) (armState, router.Cmd[string]) {
	return armState{}, func(ctx context.Context, emit func(string)) {
		emit("arm")
	}
}

func (armProvider) Update(msg string, s armState) (armState, router.Cmd[string]) {
	switch msg {
	case "arm":
		s.armed = true
	case "tick":
		s.ticks++
	}
	return s, nil
}

func (armProvider) Render(s armState) router.Layout {
	return router.Layout{
		Content: []*vdom.VNode{vdom.Text(fmt.Sprintf("ticks=%d", s.ticks))},
	}
}

func (armProvider) Subscriptions(s armState) router.Sub[string] {
	if !s.armed {
		return nil
	}
	return func(ctx context.Context, emit func(string)) {
		tick := time.NewTicker(20 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				emit("tick")
			}
		}
	}
}

func newHost(t *testing.T, cfg *Config) (*Server[hostRoute, hostState, string], *httptest.Server) {
	t.Helper()
	srv := New[hostRoute, hostState, string](
		hostCodec{},
		func() router.Provider[hostRoute, hostState, string] { return hostProvider{} },
		nil,
		cfg,
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

// dialWS opens a session WebSocket reporting loc as the current location.
func dialWS(t *testing.T, ts *httptest.Server, loc string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/_wayfare/ws?loc=" + loc
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readOps reads one server frame and decodes it as an ops batch.
func readOps(t *testing.T, conn *websocket.Conn) []protocol.Op {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	ops, err := protocol.DecodeOps(data)
	if err != nil {
		t.Fatalf("decode ops: %v", err)
	}
	return ops
}

func sendEvent(t *testing.T, conn *websocket.Conn, ev *protocol.Event) {
	t.Helper()
	if err := conn.WriteMessage(websocket.BinaryMessage, protocol.EncodeEvent(ev)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// =============================================================================
// Tests
// =============================================================================

func TestShellRendersPage(t *testing.T) {
	_, ts := newHost(t, nil)

	resp, err := ts.Client().Get(ts.URL + "/about")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	buf := make([]byte, 4096)
	n, _ := resp.Body.Read(buf)
	body := string(buf[:n])

	if !strings.Contains(body, "<h1>about</h1>") {
		t.Errorf("shell missing rendered content: %q", body)
	}
	if !strings.Contains(body, "<title>About</title>") {
		t.Errorf("shell missing title: %q", body)
	}
	if !strings.Contains(body, ClientJSPath) {
		t.Errorf("shell missing client script tag: %q", body)
	}
}

func TestClientJSServed(t *testing.T) {
	_, ts := newHost(t, nil)

	resp, err := ts.Client().Get(ts.URL + ClientJSPath)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "javascript") {
		t.Errorf("content type = %q", ct)
	}
}

func TestWebSocketNavigationFlow(t *testing.T) {
	srv, ts := newHost(t, nil)
	conn := dialWS(t, ts, "/")

	// The session opens by grabbing the initial viewport.
	ops := readOps(t, conn)
	if len(ops) != 1 || ops[0].Type != protocol.OpGetViewport {
		t.Fatalf("initial ops = %+v, want one GetViewport", ops)
	}
	sendEvent(t, conn, &protocol.Event{Type: protocol.EventViewport, GrabID: ops[0].GrabID, X: 0, Y: 120})

	if got := srv.SessionCount(); got != 1 {
		t.Errorf("SessionCount() = %d, want 1", got)
	}

	// Click an internal link. The server grabs the viewport first.
	sendEvent(t, conn, &protocol.Event{Type: protocol.EventLinkClicked, Href: "/about"})
	ops = readOps(t, conn)
	if len(ops) != 1 || ops[0].Type != protocol.OpGetViewport {
		t.Fatalf("ops after click = %+v, want one GetViewport", ops)
	}

	// Reply with the scroll offset; the push follows immediately.
	sendEvent(t, conn, &protocol.Event{Type: protocol.EventViewport, GrabID: ops[0].GrabID, X: 0, Y: 450})
	ops = readOps(t, conn)
	if len(ops) != 1 || ops[0].Type != protocol.OpNavPush || ops[0].URL != "/about" {
		t.Fatalf("ops after grab = %+v, want NavPush /about", ops)
	}

	// Confirm the history change; the new page's view comes back.
	sendEvent(t, conn, &protocol.Event{Type: protocol.EventURLChanged, Href: "/about"})
	ops = readOps(t, conn)

	var gotTitle, gotHTML string
	for _, op := range ops {
		switch op.Type {
		case protocol.OpSetTitle:
			gotTitle = op.Title
		case protocol.OpRenderHTML:
			gotHTML = op.HTML
		case protocol.OpScrollTo:
			t.Errorf("unexpected ScrollTo: no viewport stored for /about yet")
		}
	}
	if gotTitle != "About" {
		t.Errorf("title = %q, want About", gotTitle)
	}
	if !strings.Contains(gotHTML, "<h1>about</h1>") {
		t.Errorf("html = %q, want about page", gotHTML)
	}
}

func TestWebSocketViewportRestoredOnReturn(t *testing.T) {
	_, ts := newHost(t, nil)
	conn := dialWS(t, ts, "/")

	// Seed the home viewport through the initial grab.
	ops := readOps(t, conn)
	sendEvent(t, conn, &protocol.Event{Type: protocol.EventViewport, GrabID: ops[0].GrabID, X: 0, Y: 777})

	// Navigate away and back.
	for _, target := range []string{"/about", "/"} {
		sendEvent(t, conn, &protocol.Event{Type: protocol.EventLinkClicked, Href: target})
		ops = readOps(t, conn)
		sendEvent(t, conn, &protocol.Event{Type: protocol.EventViewport, GrabID: ops[0].GrabID, X: 0, Y: 5})
		ops = readOps(t, conn)
		if ops[0].Type != protocol.OpNavPush {
			t.Fatalf("expected NavPush, got %+v", ops[0])
		}
		sendEvent(t, conn, &protocol.Event{Type: protocol.EventURLChanged, Href: target})
		ops = readOps(t, conn)
	}

	// The return to "/" must carry a ScrollTo with the stored offset.
	// Note the stored value is the one captured when leaving "/", which
	// overwrote the initial 777.
	var restored *protocol.Op
	for i := range ops {
		if ops[i].Type == protocol.OpScrollTo {
			restored = &ops[i]
		}
	}
	if restored == nil {
		t.Fatal("no ScrollTo op on return to /")
	}
	if restored.Y != 5 {
		t.Errorf("restored Y = %d, want 5", restored.Y)
	}
}

func TestWebSocketExternalLinkLeavesApp(t *testing.T) {
	_, ts := newHost(t, nil)
	conn := dialWS(t, ts, "/")

	ops := readOps(t, conn)
	sendEvent(t, conn, &protocol.Event{Type: protocol.EventViewport, GrabID: ops[0].GrabID})

	sendEvent(t, conn, &protocol.Event{
		Type:     protocol.EventLinkClicked,
		Href:     "https://example.com/docs",
		External: true,
	})
	ops = readOps(t, conn)
	if len(ops) != 1 || ops[0].Type != protocol.OpLeaveApp {
		t.Fatalf("ops = %+v, want one LeaveApp", ops)
	}
	if ops[0].URL != "https://example.com/docs" {
		t.Errorf("leave url = %q", ops[0].URL)
	}
}

func TestWebSocketSubscriptionArmedByUpdate(t *testing.T) {
	srv := New[hostRoute, armState, string](
		hostCodec{},
		func() router.Provider[hostRoute, armState, string] { return armProvider{} },
		nil,
		nil,
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	conn := dialWS(t, ts, "/")
	ops := readOps(t, conn)
	sendEvent(t, conn, &protocol.Event{Type: protocol.EventViewport, GrabID: ops[0].GrabID})

	// Init's command arms the subscription through Update, so the
	// ticker only exists after that delivery. Every tick after it
	// re-renders with a higher count.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(deadline)
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		frameOps, err := protocol.DecodeOps(data)
		if err != nil {
			continue
		}
		for _, op := range frameOps {
			if op.Type == protocol.OpRenderHTML &&
				strings.Contains(op.HTML, "ticks=") &&
				!strings.Contains(op.HTML, "ticks=0") {
				return
			}
		}
	}
	t.Fatal("subscription armed by an update never delivered a tick")
}

func TestHeartbeatKeepsIdleSessionAlive(t *testing.T) {
	srv, ts := newHost(t, &Config{
		ReadTimeout:  300 * time.Millisecond,
		PingInterval: 100 * time.Millisecond,
	})
	conn := dialWS(t, ts, "/")

	ops := readOps(t, conn)
	sendEvent(t, conn, &protocol.Event{Type: protocol.EventViewport, GrabID: ops[0].GrabID})

	// Stay idle apart from answering pings. Without the heartbeat the
	// read deadline would cut the connection long before stop.
	stop := time.Now().Add(900 * time.Millisecond)
	pings := 0
	for time.Now().Before(stop) {
		_ = conn.SetReadDeadline(stop.Add(200 * time.Millisecond))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("connection dropped while idle: %v", err)
		}
		ctrl, err := protocol.DecodeControl(data)
		if err != nil || ctrl.Type != protocol.ControlPing {
			continue
		}
		pings++
		pong := protocol.EncodeControl(&protocol.Control{
			Type:      protocol.ControlPong,
			Timestamp: ctrl.Timestamp,
		})
		if err := conn.WriteMessage(websocket.BinaryMessage, pong); err != nil {
			t.Fatalf("pong: %v", err)
		}
	}

	if pings == 0 {
		t.Fatal("no ping received")
	}
	if got := srv.SessionCount(); got != 1 {
		t.Errorf("SessionCount() = %d, want 1", got)
	}
}

func TestEnqueueFullQueue(t *testing.T) {
	s := &Session[hostRoute, hostState, string]{
		events: make(chan *protocol.Event, 1),
		done:   make(chan struct{}),
	}

	if err := s.enqueue(&protocol.Event{Type: protocol.EventURLChanged}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	err := s.enqueue(&protocol.Event{Type: protocol.EventURLChanged})
	if !errors.Is(err, ErrEventQueueFull) {
		t.Errorf("err = %v, want ErrEventQueueFull", err)
	}
}

func TestWebSocketRejectsBadLocation(t *testing.T) {
	_, ts := newHost(t, nil)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/_wayfare/ws?loc=" + "%5Cbad"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != 400 {
		t.Fatalf("expected 400 response, got %+v", resp)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), ErrBadLocation.Error()) {
		t.Errorf("body = %q, want it to carry %q", body, ErrBadLocation.Error())
	}
}

func TestShutdownClosesSessions(t *testing.T) {
	srv, ts := newHost(t, nil)
	conn := dialWS(t, ts, "/")
	readOps(t, conn)

	if err := srv.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if got := srv.SessionCount(); got != 0 {
		t.Errorf("SessionCount() after shutdown = %d, want 0", got)
	}
}
