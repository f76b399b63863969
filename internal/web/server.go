package web

import (
	"context"
	"log"
	"net"
	"net/http"

	"github.com/patcharin/perkstream/internal/web/api"
)

// Server is the HTTP server for the perkstream API and event stream.
type Server struct {
	httpServer *http.Server
}

// NewServer creates a new Server serving the given API.
func NewServer(addr string, a *api.API) *Server {
	mux := http.NewServeMux()
	a.RegisterRoutes(mux)

	return &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: corsMiddleware(mux),
		},
	}
}

// Start begins listening and serving HTTP requests.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	log.Printf("http server listening on %s", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server. Event streams never
// finish on their own, so callers give Shutdown a deadline and fall back
// to Close, which drops the remaining connections; each stream's deferred
// cleanup then deregisters it.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Close immediately closes the server and all active connections.
func (s *Server) Close() error {
	return s.httpServer.Close()
}

// corsMiddleware adds permissive CORS headers for development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
