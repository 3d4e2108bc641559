package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"gigmarket/internal/api/dto"
	"gigmarket/internal/user"
	"gigmarket/internal/user/service"
	"gigmarket/pkg/middleware"
	"gigmarket/pkg/response"
)

type Handler struct {
	UserService *service.UserService
}

func NewHandler(us *service.UserService) *Handler {
	return &Handler{UserService: us}
}

// Me returns the caller's profile with the subscription countdown.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	p, err := h.UserService.Profile(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    p,
	})
}

func (h *Handler) Onboarding(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req dto.OnboardingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := dto.Validate.Struct(req); err != nil {
		middleware.HandleValidationError(w, err)
		return
	}

	step, err := h.UserService.AdvanceOnboarding(r.Context(), userID, req.Step)
	if err != nil {
		writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"onboarding_step": step,
	})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, user.ErrNotFound):
		response.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, user.ErrInvalidStep), errors.Is(err, user.ErrPhoneNotVerified):
		response.Error(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("User request failed: %v", err)
		response.Error(w, http.StatusInternalServerError, "internal error")
	}
}
