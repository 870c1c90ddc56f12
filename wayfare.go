// Package wayfare provides the public API for the wayfare navigation
// framework.
//
// This is the recommended import for most applications:
//
//	import "github.com/wayfare-dev/wayfare"
//
// An application supplies a route codec and a page provider; wayfare
// runs the page cache, viewport restoration and navigation state
// machine on the server and drives the browser through a thin
// WebSocket client:
//
//	app := wayfare.NewApp(codec, newProvider,
//	    wayfare.WithAddr(":8080"),
//	)
//	app.SetCachePolicy(router.Never[Route]())
//	app.Run(context.Background())
package wayfare

import (
	"github.com/wayfare-dev/wayfare/pkg/location"
	"github.com/wayfare-dev/wayfare/pkg/router"
	"github.com/wayfare-dev/wayfare/pkg/vdom"
)

// =============================================================================
// Locations
// =============================================================================

// Location is a normalized in-app address, the page and viewport cache
// key.
type Location = location.Location

// ParseLocation parses and canonicalizes a raw address.
var ParseLocation = location.Parse

// MustParseLocation is ParseLocation that panics on invalid input.
var MustParseLocation = location.MustParse

// =============================================================================
// Views
// =============================================================================

// VNode is a compact HTML node.
type VNode = vdom.VNode

// Attr is an HTML attribute.
type Attr = vdom.Attr

// Layout is a rendered page: optional title plus content nodes.
type Layout = router.Layout

// Viewport is a scroll offset.
type Viewport = router.Viewport

// Node constructors, re-exported from pkg/vdom.
var (
	El   = vdom.El
	Text = vdom.Text
	Raw  = vdom.Raw
	A    = vdom.A
)

// =============================================================================
// Navigation
// =============================================================================

// NavMode distinguishes history pushes from replacements.
type NavMode = router.NavMode

// Navigation modes.
const (
	NavPush    = router.NavPush
	NavReplace = router.NavReplace
)

// Notice is a navigation notification delivered to the OnNotice hook.
type Notice = router.Notice

// NavigationRequested is emitted when a delayed navigation has been
// scheduled.
type NavigationRequested = router.NavigationRequested

// LocationChanged is emitted once a location change completes.
type LocationChanged = router.LocationChanged

// Observer receives instrumentation callbacks from the router.
type Observer = router.Observer
