package middleware

import (
	"github.com/wayfare-dev/wayfare/pkg/location"
	"github.com/wayfare-dev/wayfare/pkg/router"
)

// multiObserver fans callbacks out to several observers in order.
type multiObserver []router.Observer

// Multi combines observers into one. Nil entries are skipped.
func Multi(observers ...router.Observer) router.Observer {
	out := make(multiObserver, 0, len(observers))
	for _, obs := range observers {
		if obs != nil {
			out = append(out, obs)
		}
	}
	return out
}

func (m multiObserver) NavigationRequested(mode router.NavMode, target location.Location) {
	for _, o := range m {
		o.NavigationRequested(mode, target)
	}
}

func (m multiObserver) NavigationCommitted(mode router.NavMode, target location.Location) {
	for _, o := range m {
		o.NavigationCommitted(mode, target)
	}
}

func (m multiObserver) LocationChanged(loc location.Location) {
	for _, o := range m {
		o.LocationChanged(loc)
	}
}

func (m multiObserver) LeaveApp(url string) {
	for _, o := range m {
		o.LeaveApp(url)
	}
}

func (m multiObserver) PageCacheHit() {
	for _, o := range m {
		o.PageCacheHit()
	}
}

func (m multiObserver) PageCacheMiss() {
	for _, o := range m {
		o.PageCacheMiss()
	}
}

func (m multiObserver) PageEvicted() {
	for _, o := range m {
		o.PageEvicted()
	}
}

func (m multiObserver) ViewportCaptured() {
	for _, o := range m {
		o.ViewportCaptured()
	}
}

func (m multiObserver) ViewportRestored() {
	for _, o := range m {
		o.ViewportRestored()
	}
}

func (m multiObserver) MessageDelivered(background bool) {
	for _, o := range m {
		o.MessageDelivered(background)
	}
}

func (m multiObserver) MessageDropped() {
	for _, o := range m {
		o.MessageDropped()
	}
}
