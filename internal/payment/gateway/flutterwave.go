package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gigmarket/internal/payment"
	"gigmarket/pkg/httpx"
)

const gatewayName = "flutterwave"

// FlutterwaveClient talks to the Flutterwave v3 REST API.
type FlutterwaveClient struct {
	BaseURL   string
	SecretKey string
	caller    *httpx.Caller
}

func NewFlutterwaveClient(baseURL, secretKey, proxyAddr string) *FlutterwaveClient {
	return &FlutterwaveClient{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		SecretKey: secretKey,
		caller:    httpx.NewCaller(gatewayName, httpx.NewClient(proxyAddr, 30*time.Second)),
	}
}

type flwCustomer struct {
	Email       string `json:"email"`
	Name        string `json:"name,omitempty"`
	PhoneNumber string `json:"phonenumber,omitempty"`
}

type flwCustomizations struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type flwPaymentRequest struct {
	TxRef          string            `json:"tx_ref"`
	Amount         float64           `json:"amount"`
	Currency       string            `json:"currency"`
	RedirectURL    string            `json:"redirect_url"`
	Customer       flwCustomer       `json:"customer"`
	Customizations flwCustomizations `json:"customizations"`
	Meta           payment.Meta      `json:"meta"`
}

type flwPaymentResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Link string `json:"link"`
	} `json:"data"`
}

type flwVerifyResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ID       int64        `json:"id"`
		TxRef    string       `json:"tx_ref"`
		Status   string       `json:"status"`
		Amount   float64      `json:"amount"`
		Currency string       `json:"currency"`
		Meta     payment.Meta `json:"meta"`
	} `json:"data"`
}

func (c *FlutterwaveClient) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	req, err := httpx.NewJSONRequest(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	return req, nil
}

// CreatePayment creates a hosted payment page and returns its link.
func (c *FlutterwaveClient) CreatePayment(ctx context.Context, pr payment.PaymentRequest) (string, error) {
	body := flwPaymentRequest{
		TxRef:       pr.TxRef,
		Amount:      pr.Amount,
		Currency:    pr.Currency,
		RedirectURL: pr.RedirectURL,
		Customer: flwCustomer{
			Email:       pr.Customer.Email,
			Name:        pr.Customer.Name,
			PhoneNumber: pr.Customer.Phone,
		},
		Customizations: flwCustomizations{
			Title:       pr.Title,
			Description: pr.Description,
		},
		Meta: pr.Meta,
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/payments", body)
	if err != nil {
		return "", err
	}

	var resp flwPaymentResponse
	if _, err := c.caller.Do(req, "payments", &resp); err != nil {
		return "", err
	}

	if resp.Status != "success" || resp.Data.Link == "" {
		msg := resp.Message
		if msg == "" {
			msg = "failed to create payment link"
		}
		return "", &httpx.GatewayError{Gateway: gatewayName, Message: msg}
	}
	return resp.Data.Link, nil
}

// VerifyTransaction looks the transaction up by the gateway's own id.
func (c *FlutterwaveClient) VerifyTransaction(ctx context.Context, transactionID string) (*payment.Transaction, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/transactions/"+url.PathEscape(transactionID)+"/verify", nil)
	if err != nil {
		return nil, err
	}

	var resp flwVerifyResponse
	if _, err := c.caller.Do(req, "verify", &resp); err != nil {
		return nil, err
	}

	if resp.Status != "success" {
		msg := resp.Message
		if msg == "" {
			msg = fmt.Sprintf("transaction %s could not be verified", transactionID)
		}
		return nil, &httpx.GatewayError{Gateway: gatewayName, Message: msg}
	}

	return &payment.Transaction{
		ID:            strconv.FormatInt(resp.Data.ID, 10),
		Status:        resp.Status,
		PaymentStatus: resp.Data.Status,
		TxRef:         resp.Data.TxRef,
		Amount:        resp.Data.Amount,
		Currency:      resp.Data.Currency,
		Meta:          resp.Data.Meta,
	}, nil
}
