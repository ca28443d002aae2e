package router

import (
	"net/http"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/adapter/http/handler"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/adapter/http/middleware"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/platform/metrics"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the HTTP API. Every route resolves the caller when a
// bearer token is present; write routes and personal lists require one.
func NewRouter(h *handler.AnnonceHandler, jwtSecret string, m *metrics.MetricsManager, log *logger.Logger) http.Handler {
	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(middleware.Logger(log))
	mux.Use(middleware.Metrics(m))
	mux.Use(chimw.Recoverer)

	mux.Get("/healthz", h.Health)

	mux.Group(func(r chi.Router) {
		r.Use(middleware.JWTAuth(jwtSecret, log))

		SetupAnnonceRoutes(r, h)
	})
	return mux
}

// SetupAnnonceRoutes registers listing, image and favorite routes on r.
func SetupAnnonceRoutes(r chi.Router, h *handler.AnnonceHandler) {
	r.Get("/api/annonces", h.HandleSearchAnnonces)
	r.Get("/api/annonces/{id}", h.HandleGetAnnonce)
	r.Get("/api/annonces/{id}/images", h.HandleListImages)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser)

		r.Post("/api/annonces", h.HandleCreateAnnonce)
		r.Patch("/api/annonces/{id}", h.HandleUpdateAnnonce)
		r.Delete("/api/annonces/{id}", h.HandleDeleteAnnonce)
		r.Get("/api/me/annonces", h.HandleListMyAnnonces)

		r.Post("/api/annonces/{id}/images", h.HandleUploadImages)
		r.Delete("/api/annonces/{id}/images", h.HandleDeleteImage)

		r.Put("/api/annonces/{id}/favorite", h.HandleToggleFavorite)
		r.Get("/api/favorites", h.HandleListFavorites)
	})
}
