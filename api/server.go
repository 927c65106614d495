/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestLogger: Structured request logging (zerolog)
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/stock/*     Stock ledger and bulk adjustments
  /api/items/*     Item listing and item creation
  /api/orders/*    Two-phase order workflow
  /api/scenarios/* Demo scenarios
  /*               Static files (frontend), API index fallback

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, log zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Stock routes
		r.Route("/stock", func(r chi.Router) {
			r.Get("/", h.ListStock)
			r.Get("/search", h.SearchStock)
			r.Post("/add", h.AddStock)
			r.Post("/remove", h.RemoveStock)
			r.Post("/bulk-add", h.BulkAddStock)
			r.Post("/bulk-remove", h.BulkRemoveStock)
			r.Post("/order-check", h.OrderCheck)
			r.Post("/submit-order", h.SubmitOrder)
			r.Get("/{itemName}", h.GetStock)
		})

		// Item routes
		r.Route("/items", func(r chi.Router) {
			r.Get("/", h.ListItemNames)
			r.Post("/bulk-add", h.BulkAddItems)
		})

		// Order routes
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.ListOrders)
			r.Post("/reserve", h.ReserveOrder)
			r.Post("/execute", h.ExecuteOrder)
			r.Get("/{orderNumber}", h.GetOrder)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	// Serve static files (frontend build) when present, else an API index.
	staticDir := "./web/dist"
	if _, err := os.Stat(staticDir); err == nil {
		fileServer := http.FileServer(http.Dir(staticDir))
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			fullPath := filepath.Join(staticDir, r.URL.Path)
			if _, err := os.Stat(fullPath); os.IsNotExist(err) {
				// SPA routing: serve index.html
				http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
				return
			}
			fileServer.ServeHTTP(w, r)
		})
	} else {
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Stock Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Stock Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/stock">/api/stock</a> - Stock overview</li>
<li><a href="/api/items">/api/items</a> - Item names</li>
<li><a href="/api/orders">/api/orders</a> - Orders</li>
<li><a href="/api/scenarios">/api/scenarios</a> - Demo scenarios</li>
</ul>
</body>
</html>`))
		})
	}

	return r
}

// requestLogger logs one structured line per request.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
