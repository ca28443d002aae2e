package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/adapter/http/handler"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/adapter/repository/memory"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/listing/usecase"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/platform/metrics"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type memoryBlobs struct {
	mu sync.Mutex
	n  int
}

func (b *memoryBlobs) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.n++
	return "http://blobs.local/annonce-images/" + key, nil
}

type stubSemantic struct {
	ids []string
	err error
}

func (s *stubSemantic) Search(ctx context.Context, query string) ([]string, error) {
	return s.ids, s.err
}

type apiEnv struct {
	server   *httptest.Server
	metrics  *metrics.MetricsManager
	semantic *stubSemantic
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	log := logger.NewNop()
	m := metrics.NewMetricsManager("annonce-service")

	listings := memory.NewListingRepository()
	images := memory.NewImageRepository()
	links := memory.NewLinkRepository()
	favorites := memory.NewFavoriteRepository()
	semantic := &stubSemantic{}

	projector := usecase.NewProjector(listings, images, links, nil, log)
	h := handler.NewAnnonceHandler(
		usecase.NewListingUsecase(listings, favorites, log, usecase.WithListingMetrics(m)),
		usecase.NewAssetUsecase(listings, images, links, &memoryBlobs{}, memory.TxRunner{}, projector, nil, m, log),
		usecase.NewSearchUsecase(listings, favorites, semantic, m, log),
		usecase.NewFavoriteUsecase(favorites, listings, m, log),
		log,
	)

	srv := httptest.NewServer(NewRouter(h, testSecret, m, log))
	t.Cleanup(srv.Close)
	return &apiEnv{server: srv, metrics: m, semantic: semantic}
}

func token(t *testing.T, userID string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (e *apiEnv) do(t *testing.T, method, path, userID string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, userID))
	}
	return e.send(t, req)
}

func (e *apiEnv) send(t *testing.T, req *http.Request) (int, map[string]interface{}) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

type upload struct {
	name        string
	contentType string
	data        []byte
}

func (e *apiEnv) upload(t *testing.T, listingID, userID string, files []upload, mainIndex string) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images[]"; filename=%q`, f.name))
		hdr.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	if mainIndex != "" {
		require.NoError(t, mw.WriteField("mainIndex", mainIndex))
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, e.server.URL+"/api/annonces/"+listingID+"/images", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token(t, userID))
	return e.send(t, req)
}

func jpegUpload(name string) upload {
	return upload{name: name, contentType: "image/jpeg", data: []byte("\xff\xd8\xff" + name)}
}

func (e *apiEnv) create(t *testing.T, userID string, body map[string]interface{}) string {
	t.Helper()
	status, out := e.do(t, http.MethodPost, "/api/annonces", userID, body)
	require.Equal(t, http.StatusCreated, status, out)
	return out["annonce"].(map[string]interface{})["id"].(string)
}

func errorCode(out map[string]interface{}) string {
	errBody, _ := out["error"].(map[string]interface{})
	code, _ := errBody["code"].(string)
	return code
}

func TestHealthz(t *testing.T) {
	env := newAPIEnv(t)

	status, out := env.do(t, http.MethodGet, "/healthz", "", nil)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", out["status"])
}

func TestAuth_RequiredRoutesRejectAnonymous(t *testing.T) {
	env := newAPIEnv(t)

	status, out := env.do(t, http.MethodPost, "/api/annonces", "", map[string]interface{}{"typeAnnonceId": "1", "description": "villa"})

	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, false, out["ok"])
	assert.Equal(t, "UNAUTHORIZED", errorCode(out))
}

func TestAuth_InvalidTokenRejectedEvenOnPublicRoutes(t *testing.T) {
	env := newAPIEnv(t)
	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/api/annonces", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer not-a-jwt")

	status, out := env.send(t, req)

	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(out))
}

func TestCreate_ValidationAndIdempotency(t *testing.T) {
	env := newAPIEnv(t)

	status, out := env.do(t, http.MethodPost, "/api/annonces", "u1", map[string]interface{}{"typeAnnonceId": "1", "description": "  "})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(out))

	body := map[string]interface{}{"typeAnnonceId": 1, "description": "villa", "price": "", "clientRef": "form-42"}
	status, first := env.do(t, http.MethodPost, "/api/annonces", "u1", body)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, true, first["created"])
	annonce := first["annonce"].(map[string]interface{})
	assert.Equal(t, "1", annonce["typeAnnonceId"])
	assert.Nil(t, annonce["price"])
	assert.Equal(t, false, annonce["haveImage"])

	status, second := env.do(t, http.MethodPost, "/api/annonces", "u1", body)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, second["created"])
	assert.Equal(t, annonce["id"], second["annonce"].(map[string]interface{})["id"])
}

func TestImageScenario_UploadThenDeleteCover(t *testing.T) {
	env := newAPIEnv(t)
	id := env.create(t, "owner", map[string]interface{}{"typeAnnonceId": "1", "description": "villa"})

	status, out := env.do(t, http.MethodGet, "/api/annonces/"+id, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, out["annonce"].(map[string]interface{})["haveImage"])

	status, out = env.upload(t, id, "owner", []upload{jpegUpload("a.jpg"), jpegUpload("b.jpg")}, "1")
	require.Equal(t, http.StatusOK, status, out)
	images := out["images"].([]interface{})
	require.Len(t, images, 2)
	first := images[0].(map[string]interface{})
	second := images[1].(map[string]interface{})
	assert.Equal(t, false, first["isMain"])
	assert.Equal(t, true, second["isMain"])
	assert.Equal(t, second["url"], out["firstImagePath"])

	status, out = env.do(t, http.MethodGet, "/api/annonces/"+id+"/images", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, out["haveImage"])
	assert.Equal(t, second["url"], out["firstImagePath"])
	assert.Len(t, out["images"], 2)

	status, out = env.do(t, http.MethodDelete, "/api/annonces/"+id+"/images?url="+url.QueryEscape(second["url"].(string)), "owner", nil)
	require.Equal(t, http.StatusOK, status, out)
	assert.Equal(t, second["url"], out["removed"])
	assert.Equal(t, []interface{}{first["url"]}, out["remaining"])
	assert.Equal(t, true, out["haveImage"])
	assert.Equal(t, first["url"], out["firstImagePath"])

	status, out = env.do(t, http.MethodDelete, "/api/annonces/"+id+"/images?url="+url.QueryEscape(second["url"].(string)), "owner", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(out))
}

func TestUpload_Errors(t *testing.T) {
	env := newAPIEnv(t)
	id := env.create(t, "owner", map[string]interface{}{"typeAnnonceId": "1", "description": "villa"})

	status, out := env.upload(t, id, "intruder", []upload{jpegUpload("a.jpg")}, "")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(out))

	status, out = env.upload(t, id, "owner", []upload{{name: "doc.pdf", contentType: "application/pdf", data: []byte("%PDF-1.4")}}, "")
	assert.Equal(t, http.StatusUnsupportedMediaType, status)
	assert.Equal(t, "UNSUPPORTED_MEDIA_TYPE", errorCode(out))

	status, out = env.upload(t, id, "owner", nil, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "NO_FILES", errorCode(out))

	status, out = env.upload(t, id, "owner", []upload{jpegUpload("a.jpg")}, "first")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(out))
}

func TestUpdateAndDelete_OwnerOnly(t *testing.T) {
	env := newAPIEnv(t)
	id := env.create(t, "owner", map[string]interface{}{"typeAnnonceId": "1", "description": "villa", "price": 100})

	status, out := env.do(t, http.MethodPatch, "/api/annonces/"+id, "intruder", map[string]interface{}{"description": "mine now"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(out))

	status, out = env.do(t, http.MethodPatch, "/api/annonces/"+id, "owner", map[string]interface{}{"price": "250.5", "title": "Sea view"})
	require.Equal(t, http.StatusOK, status, out)
	annonce := out["annonce"].(map[string]interface{})
	assert.Equal(t, 250.5, annonce["price"])
	assert.Equal(t, "Sea view", annonce["title"])
	assert.Equal(t, "villa", annonce["description"])

	status, out = env.do(t, http.MethodDelete, "/api/annonces/"+id, "owner", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, id, out["annonceId"])

	status, _ = env.do(t, http.MethodGet, "/api/annonces/"+id, "owner", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSearch_PaginationAndFilters(t *testing.T) {
	env := newAPIEnv(t)
	for i := 0; i < 17; i++ {
		env.create(t, "seller", map[string]interface{}{"typeAnnonceId": "1", "description": fmt.Sprintf("item %d", i), "price": 500})
	}
	env.create(t, "seller", map[string]interface{}{"typeAnnonceId": "1", "description": "cheap", "price": 50})

	status, out := env.do(t, http.MethodGet, "/api/annonces?price=500", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(17), out["totalCount"])
	assert.Equal(t, float64(2), out["totalPages"])
	assert.Equal(t, float64(1), out["currentPage"])
	assert.Len(t, out["annonces"], 16)

	status, out = env.do(t, http.MethodGet, "/api/annonces?price=500&page=2", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, out["annonces"], 1)

	status, out = env.do(t, http.MethodGet, "/api/annonces?price=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(out))

	status, out = env.do(t, http.MethodGet, "/api/annonces?isSponsored=maybe", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(out))
}

func TestSearch_SemanticEmptyYieldsNoResults(t *testing.T) {
	env := newAPIEnv(t)
	env.create(t, "seller", map[string]interface{}{"typeAnnonceId": "1", "description": "villa"})
	env.semantic.ids = []string{}

	status, out := env.do(t, http.MethodGet, "/api/annonces?q=villa", "", nil)

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), out["totalCount"])
	assert.Equal(t, float64(1), out["totalPages"])
	assert.Equal(t, []interface{}{}, out["annonces"])
}

func TestFavorites_ToggleListAndOverlay(t *testing.T) {
	env := newAPIEnv(t)
	id := env.create(t, "seller", map[string]interface{}{"typeAnnonceId": "1", "description": "villa"})

	status, out := env.do(t, http.MethodPut, "/api/annonces/"+id+"/favorite", "buyer", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(out))

	status, out = env.do(t, http.MethodPut, "/api/annonces/"+id+"/favorite", "buyer", map[string]interface{}{"isFavorite": true})
	require.Equal(t, http.StatusOK, status, out)
	assert.Equal(t, id, out["annonceId"])
	assert.Equal(t, true, out["isFavorite"])

	status, out = env.do(t, http.MethodGet, "/api/annonces/"+id, "buyer", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, out["annonce"].(map[string]interface{})["isFavorite"])

	status, out = env.do(t, http.MethodGet, "/api/favorites", "buyer", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), out["totalCount"])

	status, out = env.do(t, http.MethodPut, "/api/annonces/"+id+"/favorite", "buyer", map[string]interface{}{"isFavorite": false})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, out["isFavorite"])

	status, out = env.do(t, http.MethodGet, "/api/favorites", "buyer", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), out["totalCount"])
}

func TestMyAnnonces_IncludesDrafts(t *testing.T) {
	env := newAPIEnv(t)
	env.create(t, "seller", map[string]interface{}{"typeAnnonceId": "1", "description": "draft", "isPublished": false})
	env.create(t, "seller", map[string]interface{}{"typeAnnonceId": "1", "description": "live"})

	status, out := env.do(t, http.MethodGet, "/api/me/annonces", "seller", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), out["totalCount"])

	status, out = env.do(t, http.MethodGet, "/api/annonces", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), out["totalCount"])
}

func TestMetrics_LabelledByRoutePattern(t *testing.T) {
	env := newAPIEnv(t)
	id := env.create(t, "seller", map[string]interface{}{"typeAnnonceId": "1", "description": "villa"})

	env.do(t, http.MethodGet, "/api/annonces/"+id, "", nil)
	env.do(t, http.MethodGet, "/api/annonces/"+id, "", nil)

	got := testutil.ToFloat64(env.metrics.HTTPRequestsTotal.WithLabelValues("GET", "/api/annonces/{id}", "200"))
	assert.Equal(t, 2.0, got)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.ListingsCreatedTotal))
}

func TestPagination_HugePageReturnsEmptyPage(t *testing.T) {
	env := newAPIEnv(t)
	id := env.create(t, "seller", map[string]interface{}{"typeAnnonceId": "1", "description": "villa"})
	status, _ := env.do(t, http.MethodPut, "/api/annonces/"+id+"/favorite", "buyer", map[string]interface{}{"isFavorite": true})
	require.Equal(t, http.StatusOK, status)

	for _, path := range []string{"/api/annonces", "/api/favorites", "/api/me/annonces"} {
		t.Run(path, func(t *testing.T) {
			user := "buyer"
			if path == "/api/me/annonces" {
				user = "seller"
			}
			status, out := env.do(t, http.MethodGet, path+"?page=9223372036854775807", user, nil)

			require.Equal(t, http.StatusOK, status, out)
			assert.Equal(t, float64(1), out["totalCount"])
			assert.Equal(t, []interface{}{}, out["annonces"])
		})
	}
}

func TestSearch_RejectsNonFinitePrice(t *testing.T) {
	env := newAPIEnv(t)

	for _, price := range []string{"NaN", "Inf", "-Inf"} {
		status, out := env.do(t, http.MethodGet, "/api/annonces?price="+price, "", nil)
		assert.Equal(t, http.StatusBadRequest, status, price)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(out), price)
	}

	status, out := env.do(t, http.MethodPost, "/api/annonces", "seller", map[string]interface{}{"typeAnnonceId": "1", "description": "villa", "price": "NaN"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(out))
}
