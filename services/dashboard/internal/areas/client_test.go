package areas

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return NewClient(url, 5*time.Second, 1<<20, Properties{ID: "id", Name: "nombre_asp"})
}

func TestClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Contains(t, r.Header.Get("Accept"), "application/geo+json")
		w.Header().Set("Content-Type", "application/geo+json")
		_, _ = w.Write([]byte(sampleCollection))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	assert.Equal(t, srv.URL, c.URL())

	got, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Parque Nacional Corcovado", got[0].Name)
}

func TestClient_FetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
		},
		{
			name: "not geojson",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>maintenance</html>"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := newTestClient(srv.URL).Fetch(context.Background())
			assert.ErrorIs(t, err, ErrFetch)
		})
	}
}

func TestClient_FetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrFetch)
}

func TestClient_FetchBodyOverLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleCollection))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, 64, Properties{})
	_, err := c.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.NotContains(t, err.Error(), "decode")
}

func TestClient_FetchBodyAtLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleCollection))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, int64(len(sampleCollection)), Properties{})
	got, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestClient_FetchCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleCollection))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClient(srv.URL).Fetch(ctx)
	assert.ErrorIs(t, err, ErrFetch)
}
