package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gigmarket/internal/maps"
	"gigmarket/pkg/httpx"
)

const gatewayName = "google_maps"

// GoogleClient calls the Geocoding and Places Autocomplete web services.
type GoogleClient struct {
	BaseURL string
	APIKey  string
	Region  string
	caller  *httpx.Caller
}

func NewGoogleClient(baseURL, apiKey, proxyAddr string) *GoogleClient {
	return &GoogleClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Region:  "ng",
		caller:  httpx.NewCaller(gatewayName, httpx.NewClient(proxyAddr, 10*time.Second)),
	}
}

type addressComponent struct {
	LongName string   `json:"long_name"`
	Types    []string `json:"types"`
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		PlaceID           string             `json:"place_id"`
		FormattedAddress  string             `json:"formatted_address"`
		AddressComponents []addressComponent `json:"address_components"`
		Geometry          struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

type autocompleteResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Predictions  []struct {
		PlaceID     string `json:"place_id"`
		Description string `json:"description"`
	} `json:"predictions"`
}

func (c *GoogleClient) get(ctx context.Context, path, endpoint string, q url.Values, out any) error {
	q.Set("key", c.APIKey)
	req, err := httpx.NewJSONRequest(ctx, http.MethodGet, c.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	_, err = c.caller.Do(req, endpoint, out)
	return err
}

func checkStatus(status, msg string) error {
	switch status {
	case "OK", "ZERO_RESULTS":
		return nil
	}
	if msg == "" {
		msg = fmt.Sprintf("maps lookup failed: %s", status)
	}
	return &httpx.GatewayError{Gateway: gatewayName, Message: msg}
}

func (c *GoogleClient) Geocode(ctx context.Context, address string) ([]maps.Place, error) {
	q := url.Values{}
	q.Set("address", address)
	q.Set("region", c.Region)

	var resp geocodeResponse
	if err := c.get(ctx, "/geocode/json", "geocode", q, &resp); err != nil {
		return nil, err
	}
	if err := checkStatus(resp.Status, resp.ErrorMessage); err != nil {
		return nil, err
	}
	return toPlaces(resp), nil
}

func (c *GoogleClient) Reverse(ctx context.Context, lat, lng float64) ([]maps.Place, error) {
	q := url.Values{}
	q.Set("latlng", strconv.FormatFloat(lat, 'f', 6, 64)+","+strconv.FormatFloat(lng, 'f', 6, 64))

	var resp geocodeResponse
	if err := c.get(ctx, "/geocode/json", "reverse", q, &resp); err != nil {
		return nil, err
	}
	if err := checkStatus(resp.Status, resp.ErrorMessage); err != nil {
		return nil, err
	}
	return toPlaces(resp), nil
}

func (c *GoogleClient) Autocomplete(ctx context.Context, input string) ([]maps.Prediction, error) {
	q := url.Values{}
	q.Set("input", input)
	q.Set("components", "country:"+c.Region)

	var resp autocompleteResponse
	if err := c.get(ctx, "/place/autocomplete/json", "autocomplete", q, &resp); err != nil {
		return nil, err
	}
	if err := checkStatus(resp.Status, resp.ErrorMessage); err != nil {
		return nil, err
	}

	out := make([]maps.Prediction, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		out = append(out, maps.Prediction{PlaceID: p.PlaceID, Description: p.Description})
	}
	return out, nil
}

func toPlaces(resp geocodeResponse) []maps.Place {
	out := make([]maps.Place, 0, len(resp.Results))
	for _, r := range resp.Results {
		p := maps.Place{
			PlaceID:          r.PlaceID,
			FormattedAddress: r.FormattedAddress,
			Lat:              r.Geometry.Location.Lat,
			Lng:              r.Geometry.Location.Lng,
		}
		for _, ac := range r.AddressComponents {
			for _, t := range ac.Types {
				switch t {
				case "administrative_area_level_1":
					p.State = ac.LongName
				case "locality":
					p.City = ac.LongName
				}
			}
		}
		out = append(out, p)
	}
	return out
}
