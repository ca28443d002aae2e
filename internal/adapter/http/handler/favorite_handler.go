package handler

import (
	"fmt"
	"net/http"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/adapter/http/middleware"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/listing/domain"
	"github.com/go-chi/chi/v5"
)

func (h *AnnonceHandler) HandleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	var req favoriteRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.IsFavorite == nil {
		h.writeError(w, r, fmt.Errorf("%w: isFavorite is required", domain.ErrValidation))
		return
	}

	id := chi.URLParam(r, "id")
	isFavorite, err := h.favorites.Toggle(r.Context(), middleware.UserIDFromContext(r.Context()), id, *req.IsFavorite)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":         true,
		"annonceId":  id,
		"isFavorite": isFavorite,
	})
}

func (h *AnnonceHandler) HandleListFavorites(w http.ResponseWriter, r *http.Request) {
	pageNum, err := queryPage(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := h.favorites.List(r.Context(), middleware.UserIDFromContext(r.Context()), pageNum)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toPageResponse(page))
}
