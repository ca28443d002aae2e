package handler

import (
	"net/http"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/adapter/http/middleware"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/listing/domain"
	"github.com/go-chi/chi/v5"
)

// HandleCreateAnnonce creates a listing for the caller. A repeated clientRef
// returns the existing listing with created=false.
func (h *AnnonceHandler) HandleCreateAnnonce(w http.ResponseWriter, r *http.Request) {
	var req createAnnonceRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.listings.Create(r.Context(), middleware.UserIDFromContext(r.Context()), req.toInput())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if !res.Created {
		status = http.StatusOK
	}
	h.writeJSON(w, status, map[string]interface{}{
		"ok":      true,
		"created": res.Created,
		"annonce": toAnnonceResponse(res.Record, false),
	})
}

func (h *AnnonceHandler) HandleGetAnnonce(w http.ResponseWriter, r *http.Request) {
	view, err := h.listings.Get(r.Context(), chi.URLParam(r, "id"), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"annonce": toAnnonceResponse(view.Listing, view.IsFavorite),
	})
}

func (h *AnnonceHandler) HandleUpdateAnnonce(w http.ResponseWriter, r *http.Request) {
	var req updateAnnonceRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	listing, err := h.listings.Update(r.Context(), chi.URLParam(r, "id"), middleware.UserIDFromContext(r.Context()), req.toInput())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"annonce": toAnnonceResponse(listing, false),
	})
}

func (h *AnnonceHandler) HandleDeleteAnnonce(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.listings.SoftDelete(r.Context(), id, middleware.UserIDFromContext(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":        true,
		"annonceId": id,
	})
}

// HandleSearchAnnonces serves the public catalogue. q switches to semantic
// candidate selection; all other parameters are exact-match filters.
func (h *AnnonceHandler) HandleSearchAnnonces(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	page, err := h.search.Search(r.Context(), filter, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toPageResponse(page))
}

// HandleListMyAnnonces lists the caller's own listings, drafts included.
func (h *AnnonceHandler) HandleListMyAnnonces(w http.ResponseWriter, r *http.Request) {
	pageNum, err := queryPage(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := h.search.ListOwn(r.Context(), middleware.UserIDFromContext(r.Context()), pageNum)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toPageResponse(page))
}

func parseFilter(r *http.Request) (domain.Filter, error) {
	f := domain.Filter{
		TypeAnnonceID: queryString(r, "typeAnnonceId"),
		CategoryID:    queryString(r, "categoryId"),
		SubcategoryID: queryString(r, "subcategoryId"),
		RegionID:      queryString(r, "regionId"),
		CityID:        queryString(r, "cityId"),
		Query:         r.URL.Query().Get("q"),
	}

	var err error
	if f.Price, err = queryFloat(r, "price"); err != nil {
		return f, err
	}
	if f.IsSponsored, err = queryBool(r, "isSponsored"); err != nil {
		return f, err
	}
	if f.DirectNegotiation, err = queryBool(r, "directNegotiation"); err != nil {
		return f, err
	}
	if f.Page, err = queryPage(r); err != nil {
		return f, err
	}
	return f, nil
}
