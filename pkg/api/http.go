// Package api exposes the app surface over HTTP: home widgets, the
// content feed with engagement, the chat assistant, the viewer probe and
// the operator tree under /v1/admin. Role enforcement happens in the
// auth middleware; handlers here only read X-Role-Name when they need to
// distinguish operator calls.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"studyhub/pkg/content"
	"studyhub/pkg/viewer"
)

// Deps carries the shared services handlers need.
type Deps struct {
	Agg      *content.Aggregator
	Viewer   *viewer.Client
	Greeting string
}

var deps Deps

// Handler builds the /v1 router.
func Handler(d Deps) http.Handler {
	deps = d
	r := mux.NewRouter()
	v1 := r.PathPrefix("/v1").Subrouter()
	RegisterHome(v1)
	RegisterFeed(v1)
	RegisterChat(v1)
	RegisterViewer(v1)
	RegisterAdmin(v1.PathPrefix("/admin").Subrouter())
	return r
}
