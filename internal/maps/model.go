package maps

import "errors"

var (
	ErrEmptyQuery         = errors.New("query is required")
	ErrInvalidCoordinates = errors.New("lat and lng must be valid coordinates")
)

type Place struct {
	PlaceID          string  `json:"place_id"`
	FormattedAddress string  `json:"formatted_address"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	State            string  `json:"state,omitempty"`
	City             string  `json:"city,omitempty"`
}

type Prediction struct {
	PlaceID     string `json:"place_id"`
	Description string `json:"description"`
}

// ValidCoordinates reports whether lat/lng are on the globe.
func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
