package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"gigmarket/internal/api/dto"
	"gigmarket/internal/otp"
	"gigmarket/pkg/httpx"
	"gigmarket/pkg/middleware"
	"gigmarket/pkg/response"
)

type OTPService interface {
	Send(ctx context.Context, phone string) error
	Verify(ctx context.Context, phone, code string) error
}

type Handler struct {
	Service OTPService
}

func NewSMSHandler(s OTPService) *Handler {
	return &Handler{Service: s}
}

// SMS dispatches on action: send_verification or verify_code.
func (h *Handler) SMS(w http.ResponseWriter, r *http.Request) {
	var req dto.SMSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := dto.Validate.Struct(req); err != nil {
		middleware.HandleValidationError(w, err)
		return
	}

	var (
		err error
		msg string
	)
	switch req.Action {
	case dto.ActionSendVerification:
		err = h.Service.Send(r.Context(), req.Phone)
		msg = "Verification code sent"
	case dto.ActionVerifyCode:
		err = h.Service.Verify(r.Context(), req.Phone, req.Code)
		msg = "Phone number verified"
	}
	if err != nil {
		writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": msg,
	})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, otp.ErrInvalidPhone),
		errors.Is(err, otp.ErrNoPendingCode),
		errors.Is(err, otp.ErrCodeExpired),
		errors.Is(err, otp.ErrInvalidCode),
		httpx.IsGatewayError(err):
		response.Error(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("SMS request failed: %v", err)
		response.Error(w, http.StatusInternalServerError, "internal error")
	}
}
