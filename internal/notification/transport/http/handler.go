package http

import (
	"errors"
	"net/http"
	"strconv"

	"gigmarket/internal/notification"
	"gigmarket/internal/notification/service"
	"gigmarket/pkg/middleware"
	"gigmarket/pkg/response"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Service *service.Service
}

func NewHandler(s *service.Service) *Handler {
	return &Handler{Service: s}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	list, err := h.Service.List(r.Context(), userID)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "failed to load notifications")
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"notifications": list,
	})
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	if err := h.Service.MarkRead(r.Context(), userID, id); err != nil {
		if errors.Is(err, notification.ErrNotFound) {
			response.Error(w, http.StatusNotFound, err.Error())
			return
		}
		response.Error(w, http.StatusInternalServerError, "failed to update notification")
		return
	}

	response.JSON(w, http.StatusOK, map[string]bool{"success": true})
}
