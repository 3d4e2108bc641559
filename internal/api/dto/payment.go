package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type InitiatePaymentRequest struct {
	Plan          string `json:"plan" validate:"required,oneof=monthly semi_annual yearly"`
	Currency      string `json:"currency" validate:"required,len=3,alpha"`
	CustomerEmail string `json:"customer_email" validate:"required,email"`
	CustomerName  string `json:"customer_name" validate:"required,max=120"`
	CustomerPhone string `json:"customer_phone" validate:"omitempty,max=20"`
	RedirectURL   string `json:"redirect_url" validate:"required,url"`
}

// FlexibleID accepts both 4851234 and "4851234".
type FlexibleID string

func (f *FlexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("transaction_id must be a string or a number")
	}
	*f = FlexibleID(n.String())
	return nil
}

type VerifyPaymentRequest struct {
	TransactionID FlexibleID `json:"transaction_id" validate:"required"`
	TxRef         string     `json:"tx_ref" validate:"required"`
}

// WebhookEvent is the subset of a Flutterwave webhook body used to trigger
// verification. Status fields in the body are ignored.
type WebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		ID    FlexibleID `json:"id"`
		TxRef string     `json:"tx_ref"`
	} `json:"data"`
}
