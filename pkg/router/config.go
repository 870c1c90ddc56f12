package router

import (
	"log/slog"
	"time"

	"github.com/wayfare-dev/wayfare/pkg/location"
)

// Config holds configuration for a Router.
type Config[R any] struct {
	// Cache is the page cache eviction policy.
	// Default: Always.
	Cache CachePolicy[R]

	// ExceptionPaths are paths that force a full reload (LeaveApp)
	// instead of an in-app transition, for pages whose state must
	// never be reused, e.g. credential forms. Matched against the
	// canonical target path, query and fragment excluded.
	ExceptionPaths []string

	// NavigationDelay, when non-zero, postpones the push/replace
	// command after a viewport grab, so the host can animate the
	// transition before the new content mounts.
	// Default: 0 (no delay).
	NavigationDelay time.Duration

	// OnNotice, when set, receives navigation notices.
	OnNotice func(Notice)

	// Logger is the structured logger for the router.
	// Default: slog.Default().
	Logger *slog.Logger

	// Observer receives instrumentation callbacks.
	// Default: no instrumentation.
	Observer Observer
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig[R any]() *Config[R] {
	return &Config[R]{
		Cache: Always[R](),
	}
}

// Clone returns a copy of the Config.
func (c *Config[R]) Clone() *Config[R] {
	if c == nil {
		return nil
	}
	clone := *c
	clone.ExceptionPaths = append([]string(nil), c.ExceptionPaths...)
	return &clone
}

// =============================================================================
// Notices
// =============================================================================

// Notice is a navigation notification delivered to Config.OnNotice.
type Notice interface {
	notice()
}

// NavigationRequested is emitted when a delayed navigation has been
// scheduled, immediately after the viewport grab completed. It gives
// the host a chance to start a transition animation before the
// location actually changes.
type NavigationRequested struct {
	Target location.Location
	Mode   NavMode
}

func (NavigationRequested) notice() {}

// LocationChanged is emitted once the substrate confirms a location
// change and the page cache has been resolved for it.
type LocationChanged struct {
	Location location.Location
}

func (LocationChanged) notice() {}

// =============================================================================
// Observer
// =============================================================================

// Observer receives instrumentation callbacks from the router. All
// methods are invoked synchronously on the router's event discipline
// and must not call back into the router.
//
// Embed NopObserver to implement a subset.
type Observer interface {
	// NavigationRequested fires when an internal navigation request is
	// accepted (viewport grab issued).
	NavigationRequested(mode NavMode, target location.Location)

	// NavigationCommitted fires when the push/replace command is
	// issued to the substrate.
	NavigationCommitted(mode NavMode, target location.Location)

	// LocationChanged fires when a location change completes.
	LocationChanged(loc location.Location)

	// LeaveApp fires when a leave-app command is issued.
	LeaveApp(url string)

	// PageCacheHit fires when a revisited location reuses its state.
	PageCacheHit()

	// PageCacheMiss fires when a location is initialized for the
	// first time.
	PageCacheMiss()

	// PageEvicted fires when a revisited location's state is
	// recreated because the policy declined to cache it.
	PageEvicted()

	// ViewportCaptured fires when a viewport grab reply is stored.
	ViewportCaptured()

	// ViewportRestored fires when a stored viewport is replayed.
	ViewportRestored()

	// MessageDelivered fires when a page message reaches its page.
	MessageDelivered(background bool)

	// MessageDropped fires when a stale page message is discarded.
	MessageDropped()
}

// NopObserver implements Observer with no-ops.
type NopObserver struct{}

func (NopObserver) NavigationRequested(NavMode, location.Location) {}
func (NopObserver) NavigationCommitted(NavMode, location.Location) {}
func (NopObserver) LocationChanged(location.Location)              {}
func (NopObserver) LeaveApp(string)                                {}
func (NopObserver) PageCacheHit()                                  {}
func (NopObserver) PageCacheMiss()                                 {}
func (NopObserver) PageEvicted()                                   {}
func (NopObserver) ViewportCaptured()                              {}
func (NopObserver) ViewportRestored()                              {}
func (NopObserver) MessageDelivered(bool)                          {}
func (NopObserver) MessageDropped()                                {}
