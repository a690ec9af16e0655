package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Route is a guarded endpoint. Permission names come from the shared catalog.
type Route struct {
	Method     string
	Pattern    string
	Permission string
	Handler    http.HandlerFunc
}

// Mount registers routes on r, each behind its permission guard.
func (g Gate) Mount(r chi.Router, routes []Route) {
	for _, rt := range routes {
		r.With(g.Require(rt.Permission)).Method(rt.Method, rt.Pattern, rt.Handler)
	}
}
