package dto

const (
	ActionSendVerification = "send_verification"
	ActionVerifyCode       = "verify_code"
)

type SMSRequest struct {
	Phone  string `json:"phone" validate:"required,min=7,max=20"`
	Action string `json:"action" validate:"required,oneof=send_verification verify_code"`
	Code   string `json:"code" validate:"required_if=Action verify_code,omitempty,numeric,min=4,max=8"`
}
