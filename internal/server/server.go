package server

import (
	"net/http"
	"strings"
)

// Handler is implemented by request handlers that declare the path
// patterns they serve.
type Handler interface {
	http.Handler
	Routes() []string
}

// BasicRouter is a minimal HTTP router over [http.ServeMux]. The
// enrollment flow registers a single callback handler on it; anything
// else answers 404 from the mux.
type BasicRouter struct {
	mux *http.ServeMux
}

// NewBasicRouter creates an empty [BasicRouter].
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{mux: http.NewServeMux()}
}

// Handle registers handler for the given HTTP method and path; other
// methods on the same path answer 405.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	r.mux.Handle(path, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !strings.EqualFold(req.Method, method) {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handler.ServeHTTP(w, req)
	}))
}

// Handler registers every route a [Handler] declares, restricted to GET
// since the OAuth redirect is the only traffic this router ever sees.
func (r *BasicRouter) Handler(handler Handler) {
	for _, route := range handler.Routes() {
		r.Handle(http.MethodGet, route, handler)
	}
}

// ServeHTTP implements [http.Handler] for the entire router.
func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}
