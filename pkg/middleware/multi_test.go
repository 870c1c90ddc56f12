package middleware

import (
	"testing"

	"github.com/wayfare-dev/wayfare/pkg/location"
	"github.com/wayfare-dev/wayfare/pkg/router"
)

type countingObserver struct {
	router.NopObserver
	hits int
}

func (c *countingObserver) PageCacheHit() { c.hits++ }

func TestMultiFansOut(t *testing.T) {
	a := &countingObserver{}
	b := &countingObserver{}

	obs := Multi(a, nil, b)
	obs.PageCacheHit()
	obs.PageCacheHit()

	if a.hits != 2 || b.hits != 2 {
		t.Errorf("hits = %d/%d, want 2/2", a.hits, b.hits)
	}
}

func TestMultiCoversInterface(t *testing.T) {
	obs := Multi(&countingObserver{})
	loc := location.MustParse("/x")

	// None of these may panic with embedded no-ops.
	obs.NavigationRequested(router.NavPush, loc)
	obs.NavigationCommitted(router.NavReplace, loc)
	obs.LocationChanged(loc)
	obs.LeaveApp("https://example.com")
	obs.PageCacheMiss()
	obs.PageEvicted()
	obs.ViewportCaptured()
	obs.ViewportRestored()
	obs.MessageDelivered(true)
	obs.MessageDropped()
}
