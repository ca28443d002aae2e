package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/listing/usecase"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/platform/logger"
	"go.uber.org/zap"
)

const maxJSONBody = 1 << 20

// AnnonceHandler serves the listing, image and favorite endpoints.
type AnnonceHandler struct {
	listings  *usecase.ListingUsecase
	assets    *usecase.AssetUsecase
	search    *usecase.SearchUsecase
	favorites *usecase.FavoriteUsecase
	logger    *logger.Logger
}

func NewAnnonceHandler(
	listings *usecase.ListingUsecase,
	assets *usecase.AssetUsecase,
	search *usecase.SearchUsecase,
	favorites *usecase.FavoriteUsecase,
	log *logger.Logger,
) *AnnonceHandler {
	return &AnnonceHandler{
		listings:  listings,
		assets:    assets,
		search:    search,
		favorites: favorites,
		logger:    log.Named("AnnonceHandler"),
	}
}

// Health reports liveness.
func (h *AnnonceHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AnnonceHandler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *AnnonceHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	}
	h.writeJSON(w, status, errorResponse{OK: false, Error: errorBody{Code: code, Message: message}})
}

func (h *AnnonceHandler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w: request body exceeds %d bytes", domain.ErrValidation, maxJSONBody)
		}
		return fmt.Errorf("%w: invalid request body: %v", domain.ErrValidation, err)
	}
	return nil
}

// queryString returns a trimmed query parameter, or nil when blank.
func queryString(r *http.Request, key string) *string {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil
	}
	return &v
}

func queryBool(r *http.Request, key string) (*bool, error) {
	raw := queryString(r, key)
	if raw == nil {
		return nil, nil
	}
	v, err := strconv.ParseBool(*raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a boolean", domain.ErrValidation, key)
	}
	return &v, nil
}

func queryFloat(r *http.Request, key string) (*float64, error) {
	raw := queryString(r, key)
	if raw == nil {
		return nil, nil
	}
	v, err := strconv.ParseFloat(*raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%w: %s must be a number", domain.ErrValidation, key)
	}
	return &v, nil
}

// queryPage parses ?page=. Absent means 1; values below 1 are clamped by the
// usecases.
func queryPage(r *http.Request) (int, error) {
	raw := queryString(r, "page")
	if raw == nil {
		return 1, nil
	}
	page, err := strconv.Atoi(*raw)
	if err != nil {
		return 0, fmt.Errorf("%w: page must be an integer", domain.ErrValidation)
	}
	return page, nil
}
