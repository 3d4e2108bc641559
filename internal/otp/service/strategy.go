package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"gigmarket/internal/otp"
	"gigmarket/pkg/hash"
)

// Strategy issues and checks codes for one OTP mode.
type Strategy interface {
	// Issue delivers a fresh code to phone and returns what to store.
	Issue(ctx context.Context, phone string) (otp.Verification, error)
	// Check compares code against a stored, unexpired record.
	Check(ctx context.Context, v *otp.Verification, code string) error
}

type TokenGateway interface {
	SendToken(ctx context.Context, phone string) (string, error)
	VerifyToken(ctx context.Context, pinID, pin string) (bool, error)
}

type MessageSender interface {
	SendMessage(ctx context.Context, phone, text string) error
}

// PinStrategy leaves code generation and comparison to the SMS provider and
// keeps only the opaque pin id.
type PinStrategy struct {
	gateway TokenGateway
}

func NewPinStrategy(gateway TokenGateway) *PinStrategy {
	return &PinStrategy{gateway: gateway}
}

func (s *PinStrategy) Issue(ctx context.Context, phone string) (otp.Verification, error) {
	pinID, err := s.gateway.SendToken(ctx, phone)
	if err != nil {
		return otp.Verification{}, err
	}
	return otp.Verification{Phone: phone, PinID: pinID}, nil
}

func (s *PinStrategy) Check(ctx context.Context, v *otp.Verification, code string) error {
	if v.PinID == "" {
		return otp.ErrNoPendingCode
	}
	ok, err := s.gateway.VerifyToken(ctx, v.PinID, code)
	if err != nil {
		return err
	}
	if !ok {
		return otp.ErrInvalidCode
	}
	return nil
}

// CodeStrategy generates a 6-digit code locally, texts it and stores only its
// bcrypt hash.
type CodeStrategy struct {
	sender   MessageSender
	generate func() (string, error)
}

func NewCodeStrategy(sender MessageSender) *CodeStrategy {
	return &CodeStrategy{sender: sender, generate: GenerateCode}
}

func (s *CodeStrategy) Issue(ctx context.Context, phone string) (otp.Verification, error) {
	code, err := s.generate()
	if err != nil {
		return otp.Verification{}, err
	}
	hashed, err := hash.HashCode(code)
	if err != nil {
		return otp.Verification{}, fmt.Errorf("hash code: %w", err)
	}

	text := fmt.Sprintf("Your GigMarket verification code is %s. It expires in 10 minutes.", code)
	if err := s.sender.SendMessage(ctx, phone, text); err != nil {
		return otp.Verification{}, err
	}
	return otp.Verification{Phone: phone, CodeHash: hashed}, nil
}

func (s *CodeStrategy) Check(ctx context.Context, v *otp.Verification, code string) error {
	if v.CodeHash == "" {
		return otp.ErrNoPendingCode
	}
	if !hash.CheckCode(v.CodeHash, code) {
		return otp.ErrInvalidCode
	}
	return nil
}

// GenerateCode returns a uniformly random 6-digit code.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// NewStrategy picks the strategy for an OTP_MODE value.
func NewStrategy(mode string, gateway interface {
	TokenGateway
	MessageSender
}) (Strategy, error) {
	switch mode {
	case otp.ModePin:
		return NewPinStrategy(gateway), nil
	case otp.ModeCode:
		return NewCodeStrategy(gateway), nil
	default:
		return nil, fmt.Errorf("unknown OTP mode %q", mode)
	}
}
