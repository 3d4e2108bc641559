package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"gigmarket/internal/maps"
	"gigmarket/internal/maps/service"
	"gigmarket/pkg/httpx"
	"gigmarket/pkg/response"
)

type Handler struct {
	Service *service.Service
}

func NewMapsHandler(s *service.Service) *Handler {
	return &Handler{Service: s}
}

func (h *Handler) Geocode(w http.ResponseWriter, r *http.Request) {
	places, err := h.Service.Geocode(r.Context(), r.URL.Query().Get("address"))
	if err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{"success": true, "results": places})
}

func (h *Handler) Reverse(w http.ResponseWriter, r *http.Request) {
	lat, err1 := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, err2 := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if err1 != nil || err2 != nil {
		writeError(w, maps.ErrInvalidCoordinates)
		return
	}

	places, err := h.Service.Reverse(r.Context(), lat, lng)
	if err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{"success": true, "results": places})
}

func (h *Handler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	preds, err := h.Service.Autocomplete(r.Context(), r.URL.Query().Get("input"))
	if err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{"success": true, "predictions": preds})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, maps.ErrEmptyQuery), errors.Is(err, maps.ErrInvalidCoordinates), httpx.IsGatewayError(err):
		response.Error(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("Maps lookup failed: %v", err)
		response.Error(w, http.StatusInternalServerError, "internal error")
	}
}
