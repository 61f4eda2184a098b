package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/tripforge/tripforge/internal/api/itinerary"
	"github.com/tripforge/tripforge/internal/api/routegen"
)

// Config contains dependencies needed for the router setup
type Config struct {
	RouteGenHandler  *routegen.Handler
	ItineraryHandler *itinerary.Handler
	AllowedOrigins   []string
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (like logger, requestID, recoverer) are expected
// to be applied *before* mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	// Heartbeat/Health check endpoint
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/routes", func(r chi.Router) {
			r.Post("/generate", cfg.RouteGenHandler.CreateRoute)
			r.Get("/jobs/{jobID}", cfg.RouteGenHandler.GetJob)
			r.Post("/expand", cfg.RouteGenHandler.ExpandRoute)
			r.Post("/insertion-cost", cfg.RouteGenHandler.InsertionCost)
		})
		r.Post("/itineraries/generate", cfg.ItineraryHandler.GenerateItinerary)
	})

	return r
}
