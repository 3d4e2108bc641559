package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	"gigmarket/internal/otp"
	"gigmarket/pkg/httpx"
)

const gatewayName = "termii"

// TermiiClient wraps the Termii token and messaging endpoints.
type TermiiClient struct {
	BaseURL  string
	APIKey   string
	SenderID string
	caller   *httpx.Caller
}

func NewTermiiClient(baseURL, apiKey, senderID, proxyAddr string) *TermiiClient {
	return &TermiiClient{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		APIKey:   apiKey,
		SenderID: senderID,
		caller:   httpx.NewCaller(gatewayName, httpx.NewClient(proxyAddr, 15*time.Second)),
	}
}

type sendTokenRequest struct {
	APIKey         string `json:"api_key"`
	MessageType    string `json:"message_type"`
	To             string `json:"to"`
	From           string `json:"from"`
	Channel        string `json:"channel"`
	PinAttempts    int    `json:"pin_attempts"`
	PinTimeToLive  int    `json:"pin_time_to_live"`
	PinLength      int    `json:"pin_length"`
	PinPlaceholder string `json:"pin_placeholder"`
	MessageText    string `json:"message_text"`
	PinType        string `json:"pin_type"`
}

type sendTokenResponse struct {
	PinID     string `json:"pinId"`
	To        string `json:"to"`
	SMSStatus string `json:"smsStatus"`
	Message   string `json:"message"`
}

type verifyTokenRequest struct {
	APIKey string `json:"api_key"`
	PinID  string `json:"pin_id"`
	Pin    string `json:"pin"`
}

type verifyTokenResponse struct {
	PinID    string      `json:"pinId"`
	Verified interface{} `json:"verified"`
	MSISDN   string      `json:"msisdn"`
	Message  string      `json:"message"`
}

type sendMessageRequest struct {
	To      string `json:"to"`
	From    string `json:"from"`
	SMS     string `json:"sms"`
	Type    string `json:"type"`
	Channel string `json:"channel"`
	APIKey  string `json:"api_key"`
}

type sendMessageResponse struct {
	MessageID string `json:"message_id"`
	Message   string `json:"message"`
}

func (c *TermiiClient) post(ctx context.Context, path, endpoint string, body, out any) (int, error) {
	req, err := httpx.NewJSONRequest(ctx, http.MethodPost, c.BaseURL+path, body)
	if err != nil {
		return 0, err
	}
	return c.caller.Do(req, endpoint, out)
}

func gatewayError(msg, fallback string) error {
	if msg == "" {
		msg = fallback
	}
	return &httpx.GatewayError{Gateway: gatewayName, Message: msg}
}

// SendToken asks Termii to generate and deliver a pin. The returned pinId is
// the only thing kept locally.
func (c *TermiiClient) SendToken(ctx context.Context, phone string) (string, error) {
	var resp sendTokenResponse
	status, err := c.post(ctx, "/api/sms/otp/send", "otp_send", sendTokenRequest{
		APIKey:         c.APIKey,
		MessageType:    "NUMERIC",
		To:             phone,
		From:           c.SenderID,
		Channel:        "generic",
		PinAttempts:    3,
		PinTimeToLive:  int(otp.CodeTTL / time.Minute),
		PinLength:      6,
		PinPlaceholder: "< 1234 >",
		MessageText:    "Your GigMarket verification code is < 1234 >. It expires in 10 minutes.",
		PinType:        "NUMERIC",
	}, &resp)
	if err != nil {
		return "", err
	}
	if status >= http.StatusBadRequest || resp.PinID == "" {
		return "", gatewayError(resp.Message, "failed to send verification code")
	}
	return resp.PinID, nil
}

// VerifyToken checks a pin against Termii. Termii answers verified as either
// a boolean or the strings "True" / "Expired".
func (c *TermiiClient) VerifyToken(ctx context.Context, pinID, pin string) (bool, error) {
	var resp verifyTokenResponse
	status, err := c.post(ctx, "/api/sms/otp/verify", "otp_verify", verifyTokenRequest{
		APIKey: c.APIKey,
		PinID:  pinID,
		Pin:    pin,
	}, &resp)
	if err != nil {
		return false, err
	}

	switch v := resp.Verified.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(v) {
		case "true":
			return true, nil
		case "expired":
			return false, otp.ErrCodeExpired
		}
		return false, nil
	}

	if status >= http.StatusBadRequest {
		return false, gatewayError(resp.Message, "failed to verify code")
	}
	return false, nil
}

// SendMessage delivers a plain text SMS.
func (c *TermiiClient) SendMessage(ctx context.Context, phone, text string) error {
	var resp sendMessageResponse
	status, err := c.post(ctx, "/api/sms/send", "sms_send", sendMessageRequest{
		To:      phone,
		From:    c.SenderID,
		SMS:     text,
		Type:    "plain",
		Channel: "generic",
		APIKey:  c.APIKey,
	}, &resp)
	if err != nil {
		return err
	}
	if status >= http.StatusBadRequest || resp.MessageID == "" {
		return gatewayError(resp.Message, "failed to send SMS")
	}
	return nil
}
