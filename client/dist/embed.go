package clientdist

import _ "embed"

// WayfareJS is the thin navigation client.
//
// It is served by the host at "/_wayfare/client.js".
//go:embed wayfare.js
var WayfareJS []byte
