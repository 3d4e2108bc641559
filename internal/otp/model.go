package otp

import (
	"errors"
	"strings"
	"time"
)

const (
	ModePin  = "pin"
	ModeCode = "code"
)

// CodeTTL is how long an issued code or pin stays valid.
const CodeTTL = 10 * time.Minute

const (
	StateNone     = "none"
	StateIssued   = "code_issued"
	StateVerified = "verified"
	StateExpired  = "expired"
)

var (
	ErrInvalidPhone  = errors.New("invalid phone number")
	ErrNoPendingCode = errors.New("no verification code was requested for this phone")
	ErrCodeExpired   = errors.New("verification code has expired")
	ErrInvalidCode   = errors.New("invalid verification code")
)

// Verification is the per-phone record. A new send overwrites it.
type Verification struct {
	Phone      string
	CodeHash   string
	PinID      string
	ExpiresAt  time.Time
	Verified   bool
	VerifiedAt *time.Time
	CreatedAt  time.Time
}

// State reports where the record is in none -> code_issued -> verified|expired.
func (v *Verification) State(now time.Time) string {
	switch {
	case v == nil:
		return StateNone
	case v.Verified:
		return StateVerified
	case now.After(v.ExpiresAt):
		return StateExpired
	default:
		return StateIssued
	}
}

// NormalizePhone converts local Nigerian numbers to international format
// without the plus: "0803 123 4567" and "+2348031234567" both become
// "2348031234567".
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	phone := b.String()
	if strings.HasPrefix(phone, "0") {
		phone = "234" + phone[1:]
	}
	if len(phone) < 10 || len(phone) > 15 {
		return "", ErrInvalidPhone
	}
	return phone, nil
}
