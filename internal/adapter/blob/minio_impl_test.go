package blob

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedPut struct {
	path        string
	contentType string
	size        string
}

// fakeS3 accepts single-part PUTs and remembers them.
func fakeS3(t *testing.T) (*httptest.Server, func() []recordedPut) {
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
		size := r.Header.Get("X-Amz-Decoded-Content-Length")
		if size == "" {
			size = strconv.Itoa(len(body))
		}
		mu.Lock()
		puts = append(puts, recordedPut{path: r.URL.Path, contentType: r.Header.Get("Content-Type"), size: size})
		mu.Unlock()
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	return srv, func() []recordedPut {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedPut(nil), puts...)
	}
}

func TestPutBytes(t *testing.T) {
	srv, recorded := fakeS3(t)

	repo, err := NewMinioRepo(Config{
		Endpoint:        srv.URL,
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Bucket:          "images",
		PublicURL:       "https://pub.example.com/",
		Region:          "auto",
	})
	require.NoError(t, err)

	data := []byte("not really a jpeg")
	url, err := repo.PutBytes(context.Background(), data, "abc_nature.jpg", "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "https://pub.example.com/abc_nature.jpg", url)

	puts := recorded()
	require.Len(t, puts, 1)
	assert.Equal(t, "/images/abc_nature.jpg", puts[0].path)
	assert.Equal(t, "image/jpeg", puts[0].contentType)
	assert.Equal(t, strconv.Itoa(len(data)), puts[0].size)
}

func TestPutBytesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	repo, err := NewMinioRepo(Config{Endpoint: srv.URL, Bucket: "images", Region: "auto", PublicURL: "https://pub.example.com"})
	require.NoError(t, err)

	_, err = repo.PutBytes(context.Background(), []byte("x"), "a.jpg", "image/jpeg")
	assert.Error(t, err)
}

func TestNewMinioRepoRequiresBucket(t *testing.T) {
	_, err := NewMinioRepo(Config{Endpoint: "localhost:9000"})
	assert.Error(t, err)
}

func TestPublicURLFallsBackToEndpoint(t *testing.T) {
	repo, err := NewMinioRepo(Config{Endpoint: "localhost:9000", Bucket: "images", Region: "auto"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/images/a.jpg", repo.PublicURL("a.jpg"))
}

func TestSplitEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		useSSL   bool
		host     string
		secure   bool
	}{
		{"localhost:9000", false, "localhost:9000", false},
		{"acct.r2.cloudflarestorage.com", true, "acct.r2.cloudflarestorage.com", true},
		{"https://acct.r2.cloudflarestorage.com/", false, "acct.r2.cloudflarestorage.com", true},
		{"http://minio:9000", true, "minio:9000", false},
	}
	for _, tt := range tests {
		host, secure, err := splitEndpoint(tt.endpoint, tt.useSSL)
		require.NoError(t, err, tt.endpoint)
		assert.Equal(t, tt.host, host, tt.endpoint)
		assert.Equal(t, tt.secure, secure, tt.endpoint)
	}

	_, _, err := splitEndpoint("https://", false)
	assert.Error(t, err)
}
