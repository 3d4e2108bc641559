package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"gigmarket/internal/api/dto"
	"gigmarket/internal/media"
	"gigmarket/internal/media/service"
	"gigmarket/pkg/middleware"
	"gigmarket/pkg/response"
)

type Handler struct {
	Service *service.Service
}

func NewMediaHandler(s *service.Service) *Handler {
	return &Handler{Service: s}
}

func (h *Handler) UploadURL(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req dto.UploadURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := dto.Validate.Struct(req); err != nil {
		middleware.HandleValidationError(w, err)
		return
	}

	up, err := h.Service.UploadURL(r.Context(), userID, req.ContentType)
	if err != nil {
		switch {
		case errors.Is(err, media.ErrUnsupportedType):
			response.Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, media.ErrNotConfigured):
			response.Error(w, http.StatusServiceUnavailable, err.Error())
		default:
			log.Printf("Upload URL failed: %v", err)
			response.Error(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	response.JSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*media.Upload
	}{true, up})
}
