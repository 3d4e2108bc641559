package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gigmarket/internal/logging"
	"gigmarket/internal/metrics"
	"gigmarket/internal/notification"
	"gigmarket/internal/outbox"
	"gigmarket/internal/payment"
	"gigmarket/internal/payment/repository"
	"gigmarket/internal/subscription"

	"github.com/google/uuid"
)

// inlineGrace keeps the background dispatcher off messages that are about
// to be dispatched inline.
const inlineGrace = time.Minute

type Gateway interface {
	CreatePayment(ctx context.Context, req payment.PaymentRequest) (string, error)
	VerifyTransaction(ctx context.Context, transactionID string) (*payment.Transaction, error)
}

type PaymentRepository interface {
	CreateAttempt(ctx context.Context, a *payment.Attempt) error
	GetAttempt(ctx context.Context, txRef string) (*payment.Attempt, error)
	CompleteAttempt(ctx context.Context, txRef, gatewayTxID string, verifiedAt time.Time) error
	ActivateSubscription(ctx context.Context, userID uuid.UUID, plan subscription.Plan, expiresAt time.Time, msgs ...outbox.Message) error
}

type PriceLookup interface {
	Price(ctx context.Context, plan subscription.Plan, currency, userType string) (*subscription.Price, error)
}

type UserTypeLookup interface {
	UserType(ctx context.Context, userID uuid.UUID) (string, error)
}

// SideEffects applies outbox messages right away and returns how many
// failed; failures stay queued.
type SideEffects interface {
	Dispatch(ctx context.Context, msgs ...outbox.Message) int
}

type Service struct {
	gateway     Gateway
	repo        PaymentRepository
	prices      PriceLookup
	users       UserTypeLookup
	effects     SideEffects
	log         logging.Logger
	txRefPrefix string
	now         func() time.Time
}

func NewService(gateway Gateway, repo PaymentRepository, prices PriceLookup, users UserTypeLookup, effects SideEffects, log logging.Logger, txRefPrefix string) *Service {
	return &Service{
		gateway:     gateway,
		repo:        repo,
		prices:      prices,
		users:       users,
		effects:     effects,
		log:         log.With("component", "payment"),
		txRefPrefix: txRefPrefix,
		now:         time.Now,
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type InitiateInput struct {
	UserID        uuid.UUID
	Plan          string
	Currency      string
	CustomerEmail string
	CustomerName  string
	CustomerPhone string
	RedirectURL   string
}

type InitiateResult struct {
	PaymentLink    string  `json:"payment_link"`
	TxRef          string  `json:"tx_ref"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	CurrencySymbol string  `json:"currency_symbol"`
}

// TxRef builds {prefix}_{first 8 of user id}_{plan}_{unix millis}.
func TxRef(prefix string, userID uuid.UUID, plan subscription.Plan, at time.Time) string {
	return fmt.Sprintf("%s_%s_%s_%d", prefix, userID.String()[:8], plan, at.UnixMilli())
}

func (s *Service) Initiate(ctx context.Context, in InitiateInput) (*InitiateResult, error) {
	plan, err := subscription.ParsePlan(in.Plan)
	if err != nil {
		return nil, err
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))

	userType := ""
	if s.users != nil {
		if userType, err = s.users.UserType(ctx, in.UserID); err != nil {
			s.log.Warn(ctx, "user type lookup failed, using generic price", "user_id", in.UserID, "err", err)
			userType = ""
		}
	}

	price, err := s.prices.Price(ctx, plan, currency, userType)
	if err != nil {
		return nil, err
	}

	txRef := TxRef(s.txRefPrefix, in.UserID, plan, s.now())
	link, err := s.gateway.CreatePayment(ctx, payment.PaymentRequest{
		TxRef:       txRef,
		Amount:      price.Amount,
		Currency:    currency,
		RedirectURL: in.RedirectURL,
		Customer: payment.Customer{
			Email: in.CustomerEmail,
			Name:  in.CustomerName,
			Phone: in.CustomerPhone,
		},
		Title:       "GigMarket subscription",
		Description: fmt.Sprintf("%s plan", plan),
		Meta: payment.Meta{
			UserID: in.UserID.String(),
			Plan:   string(plan),
		},
	})
	if err != nil {
		return nil, err
	}

	attempt := &payment.Attempt{
		TxRef:       txRef,
		UserID:      in.UserID,
		Plan:        plan,
		Currency:    currency,
		Amount:      price.Amount,
		Status:      payment.StatusPending,
		PaymentLink: link,
	}
	if err := s.repo.CreateAttempt(ctx, attempt); err != nil {
		s.log.Error(ctx, "payment attempt not recorded", "tx_ref", txRef, "user_id", in.UserID, "err", err)
	}

	return &InitiateResult{
		PaymentLink:    link,
		TxRef:          txRef,
		Amount:         price.Amount,
		Currency:       currency,
		CurrencySymbol: subscription.CurrencySymbol(currency),
	}, nil
}

type VerifyResult struct {
	Plan     subscription.Plan `json:"plan"`
	Expiry   time.Time         `json:"expiry"`
	Amount   float64           `json:"amount"`
	Currency string            `json:"currency"`
}

// Verify re-checks the transaction with the gateway and activates the
// subscription. Calling it again for the same tx_ref sets the expiry again
// from the current time.
func (s *Service) Verify(ctx context.Context, transactionID, txRef string) (*VerifyResult, error) {
	transactionID = strings.TrimSpace(transactionID)
	txRef = strings.TrimSpace(txRef)
	if transactionID == "" || txRef == "" {
		return nil, payment.ErrMissingFields
	}

	tx, err := s.gateway.VerifyTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.Status != "success" || tx.PaymentStatus != "successful" {
		return nil, payment.ErrPaymentNotSuccessful
	}
	if tx.TxRef != txRef {
		s.log.Warn(ctx, "tx_ref mismatch", "expected", txRef, "got", tx.TxRef, "transaction_id", transactionID)
		return nil, payment.ErrTxRefMismatch
	}

	userID, err := uuid.Parse(tx.Meta.UserID)
	if err != nil || tx.Meta.Plan == "" {
		return nil, payment.ErrMissingMetadata
	}
	plan := subscription.Plan(tx.Meta.Plan)

	now := s.now()
	expiry, err := subscription.ExpiryFor(now, plan)
	if err != nil {
		return nil, err
	}

	msgs, err := s.sideEffects(userID, plan, expiry, tx, now)
	if err != nil {
		return nil, err
	}

	if err := s.repo.ActivateSubscription(ctx, userID, plan, expiry, msgs...); err != nil {
		s.log.Error(ctx, "subscription activation failed after confirmed payment",
			"tx_ref", txRef, "transaction_id", transactionID, "user_id", userID, "plan", plan, "err", err)
		return nil, fmt.Errorf("%w: %v", payment.ErrActivationFailed, err)
	}
	metrics.SubscriptionsActivated.WithLabelValues(string(plan)).Inc()

	if failed := s.effects.Dispatch(ctx, msgs...); failed > 0 {
		s.log.Warn(ctx, "payment side effects queued for retry", "tx_ref", txRef, "failed", failed)
	}

	return &VerifyResult{
		Plan:     plan,
		Expiry:   expiry,
		Amount:   tx.Amount,
		Currency: tx.Currency,
	}, nil
}

func (s *Service) sideEffects(userID uuid.UUID, plan subscription.Plan, expiry time.Time, tx *payment.Transaction, now time.Time) ([]outbox.Message, error) {
	notBefore := now.Add(inlineGrace)

	completed, err := outbox.NewMessage(payment.KindAttemptCompleted, payment.AttemptCompleted{
		TxRef:       tx.TxRef,
		GatewayTxID: tx.ID,
		VerifiedAt:  now,
	}, notBefore)
	if err != nil {
		return nil, err
	}

	notice, err := outbox.NewMessage(notification.KindCreate, notification.Notification{
		UserID:  userID,
		Title:   "Subscription activated",
		Message: fmt.Sprintf("Your %s subscription is active until %s.", planLabel(plan), expiry.Format("02 Jan 2006")),
		Type:    notification.TypeSubscription,
	}, notBefore)
	if err != nil {
		return nil, err
	}

	return []outbox.Message{completed, notice}, nil
}

// Attempt returns the caller's own payment attempt. Attempts of other users
// are reported as not found.
func (s *Service) Attempt(ctx context.Context, userID uuid.UUID, txRef string) (*payment.Attempt, error) {
	a, err := s.repo.GetAttempt(ctx, txRef)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, repository.ErrAttemptNotFound
	}
	return a, nil
}

// HandleAttemptCompleted is the outbox handler for payment.KindAttemptCompleted.
func (s *Service) HandleAttemptCompleted(ctx context.Context, payload json.RawMessage) error {
	var ev payment.AttemptCompleted
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("decode attempt completed: %w", err)
	}

	err := s.repo.CompleteAttempt(ctx, ev.TxRef, ev.GatewayTxID, ev.VerifiedAt)
	if errors.Is(err, repository.ErrAttemptNotFound) {
		s.log.Warn(ctx, "completed payment has no recorded attempt", "tx_ref", ev.TxRef)
		return nil
	}
	return err
}

func planLabel(p subscription.Plan) string {
	switch p {
	case subscription.PlanSemiAnnual:
		return "6-month"
	default:
		return string(p)
	}
}
