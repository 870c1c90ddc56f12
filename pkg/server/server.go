package server

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	clientdist "github.com/wayfare-dev/wayfare/client/dist"
	"github.com/wayfare-dev/wayfare/pkg/location"
	"github.com/wayfare-dev/wayfare/pkg/router"
	"github.com/wayfare-dev/wayfare/pkg/vdom"
)

// ClientJSPath is where the navigation client bundle is served.
const ClientJSPath = "/_wayfare/client.js"

// Server hosts an application over HTTP and WebSocket. Every page GET
// is answered with a server-rendered shell; the shell's client script
// opens a WebSocket back to WSPath and from then on navigation runs
// through the session's router.
type Server[R, S, M any] struct {
	codec     router.Codec[R]
	provider  func() router.Provider[R, S, M]
	routerCfg *router.Config[R]

	cfg *Config
	log *slog.Logger

	upgrader websocket.Upgrader
	handler  http.Handler

	mu       sync.RWMutex
	sessions map[string]*Session[R, S, M]

	httpServer *http.Server
}

// New creates a Server. The provider factory is invoked once per
// connected tab so providers may carry per-tab state. routerCfg may be
// nil for defaults; it is cloned per session.
func New[R, S, M any](
	codec router.Codec[R],
	provider func() router.Provider[R, S, M],
	routerCfg *router.Config[R],
	cfg *Config,
) *Server[R, S, M] {
	cfg = cfg.withDefaults()

	s := &Server[R, S, M]{
		codec:     codec,
		provider:  provider,
		routerCfg: routerCfg,
		cfg:       cfg,
		log:       cfg.Logger.With("component", "server"),
		sessions:  make(map[string]*Session[R, S, M]),
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     cfg.CheckOrigin,
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(chimw.Recoverer)

	mux.Get(cfg.WSPath, s.handleWebSocket)
	mux.Get(ClientJSPath, s.handleClientJS)
	if cfg.EnableMetricsEndpoint {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.NotFound(s.handleShell)

	s.handler = mux
	return s
}

// Handler returns the server's HTTP handler for mounting under an
// outer mux or for httptest.
func (s *Server[R, S, M]) Handler() http.Handler {
	return s.handler
}

// SessionCount returns the number of live sessions.
func (s *Server[R, S, M]) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// handleWebSocket upgrades the connection and runs a session for it.
// The client reports its location in the "loc" query parameter.
func (s *Server[R, S, M]) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	initial, err := location.Parse(r.URL.Query().Get("loc"))
	if err != nil {
		s.log.Warn("rejected session location", "err", err)
		http.Error(w, ErrBadLocation.Error(), http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}

	sess := newSession(conn, initial, s.codec, s.provider(), s.routerCfg, s.cfg)
	s.track(sess)
	defer s.untrack(sess)

	s.log.Info("session started",
		"session_id", sess.ID,
		"location", initial.Key(),
		"remote", r.RemoteAddr)

	sess.Run()
}

func (s *Server[R, S, M]) track(sess *Session[R, S, M]) {
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
}

func (s *Server[R, S, M]) untrack(sess *Session[R, S, M]) {
	s.mu.Lock()
	delete(s.sessions, sess.ID)
	s.mu.Unlock()
	sess.Close()
}

// handleClientJS serves the embedded navigation client.
func (s *Server[R, S, M]) handleClientJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(clientdist.WayfareJS)
}

// handleShell renders the SPA shell for a page GET. The page is built
// through a throwaway provider so first paint carries real content;
// the WebSocket session re-renders once connected.
func (s *Server[R, S, M]) handleShell(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Path
	if r.URL.RawQuery != "" {
		raw += "?" + r.URL.RawQuery
	}
	loc, err := location.Parse(raw)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	p := s.provider()
	state, _ := p.Init(s.codec.Parse(loc))
	layout := p.Render(state)

	var b strings.Builder
	b.WriteString("<!doctype html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	if layout.HasTitle {
		fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(layout.Title))
	}
	fmt.Fprintf(&b, "<script src=%q data-ws-path=%q defer></script>\n", ClientJSPath, s.cfg.WSPath)
	b.WriteString("</head>\n<body>\n<div id=\"wayfare-root\">")
	b.WriteString(vdom.RenderHTML(layout.Content...))
	b.WriteString("</div>\n</body>\n</html>\n")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprint(w, b.String())
}

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully within the configured shutdown timeout.
func (s *Server[R, S, M]) ListenAndServe(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", s.cfg.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	return s.Shutdown()
}

// Shutdown closes all sessions and stops the HTTP server.
func (s *Server[R, S, M]) Shutdown() error {
	s.log.Info("shutting down", "sessions", s.SessionCount())

	s.mu.Lock()
	for id, sess := range s.sessions {
		sess.Close()
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
