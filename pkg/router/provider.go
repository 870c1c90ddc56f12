package router

import (
	"context"
	"time"

	"github.com/wayfare-dev/wayfare/pkg/location"
	"github.com/wayfare-dev/wayfare/pkg/vdom"
)

// =============================================================================
// Collaborator Interfaces
// =============================================================================

// Codec turns a location into an application route.
//
// Parse must be pure and total: it always terminates and never fails.
// Applications map unrecognized or malformed locations to their own
// not-found route value; the core never special-cases it.
type Codec[R any] interface {
	Parse(loc location.Location) R
}

// CodecFunc adapts a plain function to the Codec interface.
type CodecFunc[R any] func(loc location.Location) R

// Parse implements Codec.
func (f CodecFunc[R]) Parse(loc location.Location) R { return f(loc) }

// Cmd is a deferred page effect. The host runs it and feeds every
// emitted message back to the router through the session's dispatch,
// tagged with the Origin it was handed out with. A nil Cmd means no
// effect.
type Cmd[M any] func(ctx context.Context, emit func(M))

// Sub describes a background subscription owned by a cached page. The
// host runs it until the context is cancelled; emitted messages
// re-enter tagged with the page's location. A nil Sub means the page
// has no subscription.
type Sub[M any] func(ctx context.Context, emit func(M))

// Provider supplies the per-route page lifecycle.
type Provider[R, S, M any] interface {
	// Init produces the initial page state for a route, plus a deferred
	// command.
	Init(route R) (S, Cmd[M])

	// Update advances a page state with a page-scoped message.
	Update(msg M, state S) (S, Cmd[M])

	// Render produces the renderable layout for a page state.
	Render(state S) Layout

	// Subscriptions describes the page's background subscription.
	Subscriptions(state S) Sub[M]
}

// Layout is the renderable description of a page.
type Layout struct {
	// Title is the document title. HasTitle distinguishes "no title"
	// from an intentionally empty one.
	Title    string
	HasTitle bool

	// ContainerAttrs are attributes for the page container element.
	ContainerAttrs []vdom.Attr

	// Content is the page body.
	Content []*vdom.VNode
}

// WithTitle returns a copy of the layout carrying a title.
func (l Layout) WithTitle(title string) Layout {
	l.Title = title
	l.HasTitle = true
	return l
}

// =============================================================================
// Navigation Substrate
// =============================================================================

// Viewport is a scroll offset associated with a location.
type Viewport struct {
	X int
	Y int
}

// NavMode selects between pushing a new history entry and replacing
// the current one.
type NavMode uint8

const (
	NavPush NavMode = iota
	NavReplace
)

// String returns the string representation of the NavMode.
func (m NavMode) String() string {
	switch m {
	case NavPush:
		return "push"
	case NavReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// GrabToken correlates a viewport fetch with its reply. All fields are
// captured at request time; replies are resolved against these values,
// never against the router's state when the reply lands.
type GrabToken struct {
	// From is the location whose viewport is being read (the page
	// being left). The grabbed viewport is stored under this key.
	From location.Location

	// Target is the location the navigation is heading to.
	Target location.Location

	// Push is false for the initial load's capture, which records the
	// viewport without issuing any navigation command afterwards.
	Push bool

	// Mode is the history operation to perform once the grab lands.
	Mode NavMode
}

// DelayToken correlates a navigation delay with its expiry.
type DelayToken struct {
	Target location.Location
	Mode   NavMode
}

// Substrate is the host-provided navigation facility: the thing that
// actually changes the active location, leaves the application, and
// reads or sets the viewport. The router owns its substrate handle
// exclusively.
//
// FetchViewport and Delay are asynchronous round-trips: the substrate
// replies by feeding HandleViewportGrabbed / HandleDelayElapsed back
// through the router's event loop with the same token.
type Substrate interface {
	// PushLocation makes loc the active location, adding a history entry.
	PushLocation(loc location.Location)

	// ReplaceLocation makes loc the active location in place.
	ReplaceLocation(loc location.Location)

	// LeaveApp performs a full (non-SPA) navigation to url.
	LeaveApp(url string)

	// FetchViewport asynchronously reads the current viewport.
	FetchViewport(grab GrabToken)

	// SetViewport restores a scroll offset. Fire-and-forget.
	SetViewport(vp Viewport)

	// Delay schedules a DelayElapsed reply after d.
	Delay(token DelayToken, d time.Duration)
}

// =============================================================================
// Command and Subscription Tagging
// =============================================================================

// Origin records where a command or subscription came from, so its
// eventual replies re-enter as foreground or background messages
// consistently with where they originated.
type Origin struct {
	background bool
	loc        location.Location
}

// Foreground tags output of the currently displayed page.
func Foreground() Origin {
	return Origin{}
}

// Background tags output of the cached page at loc.
func Background(loc location.Location) Origin {
	return Origin{background: true, loc: loc}
}

// IsBackground reports whether this origin is a non-current cached page.
func (o Origin) IsBackground() bool { return o.background }

// Location returns the tagged page location for background origins.
func (o Origin) Location() (location.Location, bool) {
	return o.loc, o.background
}

// Command is a provider command handed to the host for execution,
// tagged with its origin.
type Command[M any] struct {
	Origin Origin
	Cmd    Cmd[M]
}

// Subscription is a cached page's subscription. Location is the owning
// page's cache key; Origin is Foreground for the currently displayed
// page and Background(Location) for every other cached page.
type Subscription[M any] struct {
	Location location.Location
	Origin   Origin
	Sub      Sub[M]
}
