package http

import (
	"errors"
	"net/http"

	"gigmarket/internal/subscription"
	"gigmarket/internal/subscription/service"
	"gigmarket/pkg/middleware"
	"gigmarket/pkg/response"
)

type Handler struct {
	SubscriptionService *service.Service
}

func NewSubscriptionHandler(ss *service.Service) *Handler {
	return &Handler{SubscriptionService: ss}
}

// Prices lists plan prices for a currency (NGN by default).
func (h *Handler) Prices(w http.ResponseWriter, r *http.Request) {
	currency := r.URL.Query().Get("currency")
	if currency == "" {
		currency = "NGN"
	}

	prices, err := h.SubscriptionService.Prices(r.Context(), currency)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "failed to load prices")
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"currency_symbol": subscription.CurrencySymbol(currency),
		"prices":          prices,
	})
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	countdown, err := h.SubscriptionService.Status(r.Context(), userID)
	if err != nil {
		if errors.Is(err, subscription.ErrNotFound) {
			response.Error(w, http.StatusNotFound, err.Error())
			return
		}
		response.Error(w, http.StatusInternalServerError, "failed to load subscription")
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"subscription": countdown,
	})
}
