package webhook

import (
	"strings"

	"github.com/goliatone/go-topgg/core"
	"github.com/gorilla/mux"
)

const RouteName = "topgg.webhook"

// Mount binds router at path on r. An empty path uses the default mount.
// Method filtering stays in Router so that non-POST requests receive 405.
func Mount(r *mux.Router, path string, router *Router) *mux.Route {
	path = strings.TrimSpace(path)
	if path == "" {
		path = core.DefaultWebhookPath
	}
	return r.Path(path).Handler(router).Name(RouteName)
}

// NewMux returns a gorilla router with only the webhook route mounted.
func NewMux(path string, router *Router) *mux.Router {
	r := mux.NewRouter()
	Mount(r, path, router)
	return r
}
