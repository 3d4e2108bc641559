package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"gigmarket/pkg/httpx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const geocodeBody = `{
	"status": "OK",
	"results": [{
		"place_id": "ChIJ1",
		"formatted_address": "Allen Ave, Ikeja, Lagos, Nigeria",
		"address_components": [
			{"long_name": "Ikeja", "types": ["locality", "political"]},
			{"long_name": "Lagos", "types": ["administrative_area_level_1", "political"]}
		],
		"geometry": {"location": {"lat": 6.6018, "lng": 3.3515}}
	}]
}`

func TestGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocode/json", r.URL.Path)
		assert.Equal(t, "Allen Avenue Ikeja", r.URL.Query().Get("address"))
		assert.Equal(t, "mapkey", r.URL.Query().Get("key"))
		w.Write([]byte(geocodeBody))
	}))
	defer srv.Close()

	c := NewGoogleClient(srv.URL, "mapkey", "")
	places, err := c.Geocode(context.Background(), "Allen Avenue Ikeja")
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "ChIJ1", places[0].PlaceID)
	assert.Equal(t, "Lagos", places[0].State)
	assert.Equal(t, "Ikeja", places[0].City)
	assert.InDelta(t, 6.6018, places[0].Lat, 1e-9)
}

func TestReverse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "6.601800,3.351500", r.URL.Query().Get("latlng"))
		w.Write([]byte(geocodeBody))
	}))
	defer srv.Close()

	c := NewGoogleClient(srv.URL, "mapkey", "")
	places, err := c.Reverse(context.Background(), 6.6018, 3.3515)
	require.NoError(t, err)
	assert.Len(t, places, 1)
}

func TestAutocomplete_ZeroResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/place/autocomplete/json", r.URL.Path)
		assert.Equal(t, "country:ng", r.URL.Query().Get("components"))
		w.Write([]byte(`{"status":"ZERO_RESULTS","predictions":[]}`))
	}))
	defer srv.Close()

	c := NewGoogleClient(srv.URL, "mapkey", "")
	preds, err := c.Autocomplete(context.Background(), "zzzz")
	require.NoError(t, err)
	assert.Empty(t, preds)
}

func TestGeocode_DeniedIsGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"The provided API key is invalid.","results":[]}`))
	}))
	defer srv.Close()

	c := NewGoogleClient(srv.URL, "bad", "")
	_, err := c.Geocode(context.Background(), "Lagos")
	require.Error(t, err)
	assert.True(t, httpx.IsGatewayError(err))
	assert.Equal(t, "The provided API key is invalid.", err.Error())
}
