// Package server hosts wayfare routers over HTTP and WebSocket.
//
// It provides the production implementation of router.Substrate: each
// connected browser tab gets a Session that owns one Router and a
// single event-loop goroutine. The loop serializes every inbound event
// (link clicks, history changes, viewport replies, delay expiries,
// page messages) so the router's single-writer discipline holds
// without locks in the core.
//
// Page GETs are answered with the SPA shell: the requested page is
// rendered server-side through the application's Provider and the thin
// navigation client takes over in the browser.
package server
