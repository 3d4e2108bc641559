package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"gigmarket/internal/api/dto"
	"gigmarket/internal/payment"
	"gigmarket/internal/payment/repository"
	"gigmarket/internal/payment/service"
	"gigmarket/internal/subscription"
	"gigmarket/pkg/httpx"
	"gigmarket/pkg/middleware"
	"gigmarket/pkg/response"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const eventChargeCompleted = "charge.completed"

type PaymentService interface {
	Initiate(ctx context.Context, in service.InitiateInput) (*service.InitiateResult, error)
	Verify(ctx context.Context, transactionID, txRef string) (*service.VerifyResult, error)
	Attempt(ctx context.Context, userID uuid.UUID, txRef string) (*payment.Attempt, error)
}

type Handler struct {
	Service     PaymentService
	WebhookHash string
}

func NewPaymentHandler(s PaymentService, webhookHash string) *Handler {
	return &Handler{Service: s, WebhookHash: webhookHash}
}

func (h *Handler) Initiate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req dto.InitiatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := dto.Validate.Struct(req); err != nil {
		middleware.HandleValidationError(w, err)
		return
	}

	res, err := h.Service.Initiate(r.Context(), service.InitiateInput{
		UserID:        userID,
		Plan:          req.Plan,
		Currency:      req.Currency,
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		RedirectURL:   req.RedirectURL,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*service.InitiateResult
	}{true, res})
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.UserID(r.Context()); !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req dto.VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := dto.Validate.Struct(req); err != nil {
		middleware.HandleValidationError(w, err)
		return
	}

	res, err := h.Service.Verify(r.Context(), string(req.TransactionID), req.TxRef)
	if err != nil {
		writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"subscription": res,
	})
}

// Attempt lets the client poll the state of a payment it started, e.g.
// after returning from the hosted payment page.
func (h *Handler) Attempt(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	a, err := h.Service.Attempt(r.Context(), userID, chi.URLParam(r, "tx_ref"))
	if err != nil {
		if errors.Is(err, repository.ErrAttemptNotFound) {
			response.Error(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"attempt": a,
	})
}

// Webhook accepts Flutterwave event callbacks. The event only tells us which
// transaction to look at; the outcome is always re-read from the gateway.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	hash := r.Header.Get("verif-hash")
	if h.WebhookHash == "" || subtle.ConstantTimeCompare([]byte(hash), []byte(h.WebhookHash)) != 1 {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var ev dto.WebhookEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if ev.Event != eventChargeCompleted {
		response.JSON(w, http.StatusOK, map[string]interface{}{"success": true, "ignored": true})
		return
	}

	res, err := h.Service.Verify(r.Context(), string(ev.Data.ID), ev.Data.TxRef)
	if err != nil {
		log.Printf("Webhook verification failed for %s: %v", ev.Data.TxRef, err)
		writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"subscription": res,
	})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, payment.ErrActivationFailed):
		response.Error(w, http.StatusInternalServerError, payment.ErrActivationFailed.Error())
	case errors.Is(err, subscription.ErrUnknownPlan),
		errors.Is(err, subscription.ErrPriceNotFound),
		errors.Is(err, payment.ErrMissingFields),
		errors.Is(err, payment.ErrPaymentNotSuccessful),
		errors.Is(err, payment.ErrTxRefMismatch),
		errors.Is(err, payment.ErrMissingMetadata),
		httpx.IsGatewayError(err):
		response.Error(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("Payment request failed: %v", err)
		response.Error(w, http.StatusInternalServerError, "internal error")
	}
}
