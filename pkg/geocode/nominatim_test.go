package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"guia-turismo-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return NewClient(config.GeocodeConfig{BaseURL: url, CountryCodes: "BR", UserAgent: "guia-test"})
}

func TestGeocode_Found(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Ouro Preto", q.Get("q"))
		assert.Equal(t, "BR", q.Get("countrycodes"))
		assert.Equal(t, "1", q.Get("limit"))
		assert.Equal(t, "1", q.Get("polygon_geojson"))
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "guia-test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`[{"lat":"-20.3856","lon":"-43.5035","display_name":"Ouro Preto, MG",
			"geojson":{"type":"Point","coordinates":[-43.5035,-20.3856]}}]`))
	}))
	defer srv.Close()

	p, err := newTestClient(srv.URL).Geocode(context.Background(), " Ouro Preto ")
	require.NoError(t, err)
	assert.InDelta(t, -20.3856, p.Lat, 1e-6)
	assert.InDelta(t, -43.5035, p.Lon, 1e-6)
	assert.Equal(t, "Ouro Preto, MG", p.DisplayName)
	assert.JSONEq(t, `{"type":"Point","coordinates":[-43.5035,-20.3856]}`, string(p.GeoJSON))
}

func TestGeocode_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Geocode(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = newTestClient(srv.URL).Geocode(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGeocode_Non200IsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Geocode(context.Background(), "Recife")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGeocode_NoPolygon(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"lat":"-3.1","lon":"-60.0"}]`))
	}))
	defer srv.Close()

	p, err := newTestClient(srv.URL).Geocode(context.Background(), "Manaus")
	require.NoError(t, err)
	assert.Nil(t, p.GeoJSON)
}
