package router

import (
	"github.com/wayfare-dev/wayfare/pkg/location"
	"github.com/wayfare-dev/wayfare/pkg/vdom"
)

// fallbackLayout is the visible degradation for the
// missing-cache-entry invariant violation: an explicit internal-error
// page instead of a crash.
func fallbackLayout(loc location.Location) Layout {
	return Layout{
		Title:    "Internal error",
		HasTitle: true,
		ContainerAttrs: []vdom.Attr{
			vdom.A("class", "wayfare-error"),
		},
		Content: []*vdom.VNode{
			vdom.El("h1", nil, vdom.Text("Internal error")),
			vdom.El("p", nil,
				vdom.Text("No page state exists for "),
				vdom.El("code", nil, vdom.Text(loc.Key())),
				vdom.Text("."),
			),
		},
	}
}
