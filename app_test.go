package wayfare

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wayfare-dev/wayfare/pkg/router"
	"github.com/wayfare-dev/wayfare/pkg/vdom"
)

type demoRoute struct{ name string }

type demoCodec struct{}

func (demoCodec) Parse(loc Location) demoRoute {
	if loc.Path == "/" {
		return demoRoute{name: "home"}
	}
	return demoRoute{name: "missing"}
}

type demoState struct{ route demoRoute }

type demoProvider struct{}

func (demoProvider) Init(r demoRoute) (demoState, router.Cmd[string]) {
	return demoState{route: r}, nil
}

func (demoProvider) Update(msg string, s demoState) (demoState, router.Cmd[string]) {
	return s, nil
}

func (demoProvider) Render(s demoState) Layout {
	return Layout{Content: []*vdom.VNode{El("p", nil, Text(s.route.name))}}
}

func (demoProvider) Subscriptions(s demoState) router.Sub[string] { return nil }

func newDemoApp(opts ...Option) *App[demoRoute, demoState, string] {
	return NewApp(
		demoCodec{},
		func() router.Provider[demoRoute, demoState, string] { return demoProvider{} },
		opts...,
	)
}

func TestOptionsReachConfigs(t *testing.T) {
	app := newDemoApp(
		WithAddr(":9999"),
		WithNavigationDelay(150*time.Millisecond),
		WithExceptionPaths("/login", "/logout"),
	)

	if app.cfg.Addr != ":9999" {
		t.Errorf("Addr = %q", app.cfg.Addr)
	}
	if app.routerCfg.NavigationDelay != 150*time.Millisecond {
		t.Errorf("NavigationDelay = %v", app.routerCfg.NavigationDelay)
	}
	if len(app.routerCfg.ExceptionPaths) != 2 {
		t.Errorf("ExceptionPaths = %v", app.routerCfg.ExceptionPaths)
	}
}

func TestSetCachePolicy(t *testing.T) {
	app := newDemoApp()
	app.SetCachePolicy(router.Never[demoRoute]())

	if app.routerCfg.Cache.Mode() != router.CacheNever {
		t.Errorf("cache mode = %v, want Never", app.routerCfg.Cache.Mode())
	}
}

func TestHandlerServesShell(t *testing.T) {
	app := newDemoApp()
	ts := httptest.NewServer(app.Handler())
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	buf := make([]byte, 4096)
	n, _ := resp.Body.Read(buf)
	if !strings.Contains(string(buf[:n]), "<p>home</p>") {
		t.Errorf("shell missing rendered page: %q", string(buf[:n]))
	}
}

func TestReExportedConstructors(t *testing.T) {
	node := El("div", []Attr{{Key: "class", Value: "x"}}, Text("hi"))
	if got := vdom.RenderHTML(node); got != `<div class="x">hi</div>` {
		t.Errorf("RenderHTML = %q", got)
	}

	loc := MustParseLocation("//a//b/")
	if loc.Path != "/a/b" {
		t.Errorf("canonical path = %q", loc.Path)
	}
}
