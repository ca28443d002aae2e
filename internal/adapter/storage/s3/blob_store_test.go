package s3

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/platform/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedPut struct {
	path        string
	contentType string
	body        []byte
}

func newFakeS3(t *testing.T) (*minio.Client, *[]recordedPut) {
	t.Helper()
	var (
		mu   sync.Mutex
		puts []recordedPut
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusOK)
			return
		}
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		puts = append(puts, recordedPut{path: r.URL.Path, contentType: r.Header.Get("Content-Type"), body: body})
		mu.Unlock()
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	client, err := minio.New(u.Host, &minio.Options{
		Creds:  credentials.NewStaticV4("key", "secret", ""),
		Secure: false,
		Region: "us-east-1",
	})
	require.NoError(t, err)
	return client, &puts
}

func TestBlobStore_Put(t *testing.T) {
	client, puts := newFakeS3(t)
	store := NewBlobStore(client, "annonce-images", logger.NewNop())

	got, err := store.Put(context.Background(), "listings/l1/abc.jpg", []byte("jpeg-bytes"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, client.EndpointURL().String()+"/annonce-images/listings/l1/abc.jpg", got)

	require.Len(t, *puts, 1)
	put := (*puts)[0]
	assert.Equal(t, "/annonce-images/listings/l1/abc.jpg", put.path)
	assert.Equal(t, "image/jpeg", put.contentType)
	assert.Contains(t, string(put.body), "jpeg-bytes")
}

func TestBlobStore_PutFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	client, err := minio.New(u.Host, &minio.Options{
		Creds:  credentials.NewStaticV4("key", "secret", ""),
		Region: "us-east-1",
	})
	require.NoError(t, err)

	store := NewBlobStore(client, "annonce-images", logger.NewNop())
	_, err = store.Put(context.Background(), "listings/l1/x.png", []byte("png"), "image/png")
	assert.Error(t, err)
}
