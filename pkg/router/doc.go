// Package router implements the wayfare routing core: the page cache,
// the viewport cache and the navigation state machine that sit between
// a host application and its navigation substrate.
//
// The Router is generic over three application-defined types:
//
//	R: the route, produced from a Location by the application's Codec
//	S: the per-page state, opaque to the core
//	M: the page message type
//
// The core owns no goroutines and takes no locks. It processes one
// inbound event to completion before the next; serializing events is
// the caller's job (package server provides a per-session event loop
// that does exactly that).
//
// # Navigation flow
//
// A navigation request does not change the location directly. The
// router first asks the substrate for the current viewport so the
// scroll position of the page being left can be remembered. Once the
// grab reply arrives it pushes or replaces the location, optionally
// after a configured delay. The substrate confirms the
// change with a URL-changed event, at which point the page cache is
// consulted and the stored viewport, if any, is restored.
//
// Each asynchronous round-trip is correlated by a token capturing the
// locations involved at request time, so a late reply belonging to a
// superseded navigation is resolved against its own captured target
// rather than whatever is current when it lands.
package router
