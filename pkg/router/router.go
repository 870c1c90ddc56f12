package router

import (
	"log/slog"
	"sort"
	"time"

	"github.com/wayfare-dev/wayfare/pkg/location"
)

// page is a cached page entry. The location is kept alongside the
// state so background subscriptions and messages can be tagged with
// the exact location value, not just its key.
type page[S any] struct {
	loc   location.Location
	state S
}

// Router owns the page cache, the viewport cache, the current
// route/location and the navigation-intent machinery. All fields are
// private; mutation happens exclusively through the handler methods.
//
// The Router is not safe for concurrent use: callers serialize events
// (see package server for an event-loop host).
type Router[R, S, M any] struct {
	nav      Substrate
	codec    Codec[R]
	provider Provider[R, S, M]

	cache      CachePolicy[R]
	exceptions map[string]struct{}
	delay      time.Duration
	onNotice   func(Notice)
	obs        Observer
	log        *slog.Logger

	current   location.Location
	base      location.Location
	route     R
	pages     map[string]page[S]
	viewports map[string]Viewport
}

// New constructs a Router anchored at initial, creates the initial
// page, and issues a viewport fetch (push=false) so the initial
// location's scroll offset is recorded once the substrate replies.
//
// The returned commands are the initial page's deferred effects; the
// host runs them and feeds replies back through Dispatch.
func New[R, S, M any](
	initial location.Location,
	nav Substrate,
	codec Codec[R],
	provider Provider[R, S, M],
	cfg *Config[R],
) (*Router[R, S, M], []Command[M]) {
	if cfg == nil {
		cfg = DefaultConfig[R]()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	obs := cfg.Observer
	if obs == nil {
		obs = NopObserver{}
	}

	exceptions := make(map[string]struct{}, len(cfg.ExceptionPaths))
	for _, p := range cfg.ExceptionPaths {
		if loc, err := location.Parse(p); err == nil {
			exceptions[loc.Path] = struct{}{}
		}
	}

	r := &Router[R, S, M]{
		nav:        nav,
		codec:      codec,
		provider:   provider,
		cache:      cfg.Cache,
		exceptions: exceptions,
		delay:      cfg.NavigationDelay,
		onNotice:   cfg.OnNotice,
		obs:        obs,
		log:        logger,
		current:    initial,
		base:       initial.Base(),
		pages:      make(map[string]page[S]),
		viewports:  make(map[string]Viewport),
	}

	r.route = codec.Parse(initial)
	state, cmd := provider.Init(r.route)
	r.pages[initial.Key()] = page[S]{loc: initial, state: state}
	r.obs.PageCacheMiss()

	// Seed the viewport cache for the initial location. Push is false:
	// no navigation command follows this grab.
	nav.FetchViewport(GrabToken{From: initial, Target: initial, Push: false, Mode: NavPush})

	r.log.Debug("router initialized", "location", initial.Key())
	return r, commands[M](Foreground(), cmd)
}

// commands wraps a possibly-nil Cmd into a command slice.
func commands[M any](origin Origin, cmd Cmd[M]) []Command[M] {
	if cmd == nil {
		return nil
	}
	return []Command[M]{{Origin: origin, Cmd: cmd}}
}

// =============================================================================
// Inbound Events
// =============================================================================

// HandleURLRequest processes a user navigation request reported by the
// substrate (a link click). External requests leave the application
// immediately; so do requests for configured exception paths. Anything
// else starts the grab-then-navigate sequence with mode NavPush.
func (r *Router[R, S, M]) HandleURLRequest(target location.Location, external bool) {
	if external {
		r.log.Debug("external navigation", "url", target.Key())
		r.obs.LeaveApp(target.Key())
		r.nav.LeaveApp(target.Key())
		return
	}
	r.request(target, NavPush)
}

// request starts an internal navigation toward target.
func (r *Router[R, S, M]) request(target location.Location, mode NavMode) {
	if _, excepted := r.exceptions[target.Path]; excepted {
		r.log.Debug("exception path, leaving app", "path", target.Path)
		r.obs.LeaveApp(target.Key())
		r.nav.LeaveApp(target.Key())
		return
	}

	// The viewport of the page being left must be read before the
	// location changes; the grab reply carries the navigation forward.
	r.obs.NavigationRequested(mode, target)
	r.nav.FetchViewport(GrabToken{
		From:   r.current,
		Target: target,
		Push:   true,
		Mode:   mode,
	})
}

// HandleViewportGrabbed processes the substrate's reply to a viewport
// fetch. The viewport is stored under the location captured in the
// token, then the navigation proceeds: immediately, or after the
// configured delay, or, for push=false grabs, not at all.
func (r *Router[R, S, M]) HandleViewportGrabbed(grab GrabToken, vp Viewport) {
	r.viewports[grab.From.Key()] = vp
	r.obs.ViewportCaptured()

	if !grab.Push {
		return
	}

	if r.delay > 0 {
		r.notify(NavigationRequested{Target: grab.Target, Mode: grab.Mode})
		r.nav.Delay(DelayToken{Target: grab.Target, Mode: grab.Mode}, r.delay)
		return
	}

	r.commit(grab.Target, grab.Mode)
}

// HandleDelayElapsed processes the expiry of a navigation delay.
func (r *Router[R, S, M]) HandleDelayElapsed(token DelayToken) {
	r.commit(token.Target, token.Mode)
}

// commit issues the push/replace command for target.
func (r *Router[R, S, M]) commit(target location.Location, mode NavMode) {
	r.obs.NavigationCommitted(mode, target)
	switch mode {
	case NavReplace:
		r.nav.ReplaceLocation(target)
	default:
		r.nav.PushLocation(target)
	}
}

// HandleURLChanged processes the substrate's confirmation that the
// active location changed (including browser back/forward). It
// resolves the route, looks up or creates the page state, restores a
// stored viewport if one exists, and notifies the listener.
func (r *Router[R, S, M]) HandleURLChanged(next location.Location) []Command[M] {
	route := r.codec.Parse(next)
	cmds := r.resolvePage(next, route)

	r.current = next
	r.route = route

	if vp, ok := r.viewports[next.Key()]; ok {
		r.obs.ViewportRestored()
		r.nav.SetViewport(vp)
	}

	r.log.Debug("location changed", "location", next.Key())
	r.obs.LocationChanged(next)
	r.notify(LocationChanged{Location: next})
	return cmds
}

// resolvePage performs the page cache resolution for a location and
// its route: create on first visit, and on revisit either reuse or
// recreate per the eviction policy.
func (r *Router[R, S, M]) resolvePage(loc location.Location, route R) []Command[M] {
	key := loc.Key()

	if _, ok := r.pages[key]; !ok {
		state, cmd := r.provider.Init(route)
		r.pages[key] = page[S]{loc: loc, state: state}
		r.obs.PageCacheMiss()
		return commands[M](Foreground(), cmd)
	}

	if r.cache.Keep(route) {
		r.obs.PageCacheHit()
		return nil
	}

	state, cmd := r.provider.Init(route)
	r.pages[key] = page[S]{loc: loc, state: state}
	r.obs.PageEvicted()
	return commands[M](Foreground(), cmd)
}

// Dispatch routes a foreground message to the current page. A message
// arriving for a location no longer cached is dropped silently.
func (r *Router[R, S, M]) Dispatch(msg M) []Command[M] {
	return r.deliver(r.current, msg, Foreground())
}

// DispatchTo routes a background message to the cached page at loc,
// independent of the current location. This is how inactive pages keep
// ticking while not displayed.
func (r *Router[R, S, M]) DispatchTo(loc location.Location, msg M) []Command[M] {
	return r.deliver(loc, msg, Background(loc))
}

func (r *Router[R, S, M]) deliver(loc location.Location, msg M, origin Origin) []Command[M] {
	key := loc.Key()
	entry, ok := r.pages[key]
	if !ok {
		// Stale message: the entry was evicted after the message was
		// produced. Dropped without error or effect.
		r.log.Debug("dropping stale page message", "location", key)
		r.obs.MessageDropped()
		return nil
	}

	state, cmd := r.provider.Update(msg, entry.state)
	entry.state = state
	r.pages[key] = entry
	r.obs.MessageDelivered(origin.IsBackground())
	return commands[M](origin, cmd)
}

// =============================================================================
// Public Operations
// =============================================================================

// Redirect navigates to path resolved against the base location,
// pushing a history entry.
func (r *Router[R, S, M]) Redirect(path string) error {
	target, err := r.base.Resolve(path)
	if err != nil {
		return err
	}
	r.request(target, NavPush)
	return nil
}

// Replace navigates to path resolved against the base location,
// replacing the current history entry.
func (r *Router[R, S, M]) Replace(path string) error {
	target, err := r.base.Resolve(path)
	if err != nil {
		return err
	}
	r.request(target, NavReplace)
	return nil
}

// External leaves the application for url. Always issues a leave-app
// command, regardless of configuration.
func (r *Router[R, S, M]) External(url string) {
	r.obs.LeaveApp(url)
	r.nav.LeaveApp(url)
}

// Reload re-resolves the current location's route and recreates its
// page state, bypassing the eviction policy. The location and the
// viewport cache are untouched.
func (r *Router[R, S, M]) Reload() []Command[M] {
	r.route = r.codec.Parse(r.current)
	state, cmd := r.provider.Init(r.route)
	r.pages[r.current.Key()] = page[S]{loc: r.current, state: state}
	r.obs.PageEvicted()
	return commands[M](Foreground(), cmd)
}

// =============================================================================
// Queries
// =============================================================================

// CurrentLocation returns the current location.
func (r *Router[R, S, M]) CurrentLocation() location.Location { return r.current }

// BaseLocation returns the base location used for relative redirects.
func (r *Router[R, S, M]) BaseLocation() location.Location { return r.base }

// CurrentRoute returns the codec's output for the current location.
func (r *Router[R, S, M]) CurrentRoute() R { return r.route }

// CurrentPage returns the cached page state for the current location.
// Absence is a valid, non-error result.
func (r *Router[R, S, M]) CurrentPage() (S, bool) {
	entry, ok := r.pages[r.current.Key()]
	return entry.state, ok
}

// CurrentViewport returns the stored viewport for the current
// location. Absence means "restore nothing".
func (r *Router[R, S, M]) CurrentViewport() (Viewport, bool) {
	vp, ok := r.viewports[r.current.Key()]
	return vp, ok
}

// =============================================================================
// Render and Subscriptions
// =============================================================================

// Render produces the current page's layout. Rendering a location with
// no cached page should be unreachable, but degrades to an explicit
// internal-error layout rather than an undefined state.
func (r *Router[R, S, M]) Render() Layout {
	entry, ok := r.pages[r.current.Key()]
	if !ok {
		r.log.Error("no cached page for current location", "location", r.current.Key())
		return fallbackLayout(r.current)
	}
	return r.provider.Render(entry.state)
}

// Subscriptions collects the subscription of every cached page. The
// current page's subscription is tagged foreground; every other page's
// is tagged with its own location. Results are ordered by cache key
// for determinism.
func (r *Router[R, S, M]) Subscriptions() []Subscription[M] {
	keys := make([]string, 0, len(r.pages))
	for key := range r.pages {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	curKey := r.current.Key()
	subs := make([]Subscription[M], 0, len(keys))
	for _, key := range keys {
		entry := r.pages[key]
		sub := r.provider.Subscriptions(entry.state)
		if sub == nil {
			continue
		}
		origin := Foreground()
		if key != curKey {
			origin = Background(entry.loc)
		}
		subs = append(subs, Subscription[M]{Location: entry.loc, Origin: origin, Sub: sub})
	}
	return subs
}

func (r *Router[R, S, M]) notify(n Notice) {
	if r.onNotice != nil {
		r.onNotice(n)
	}
}
