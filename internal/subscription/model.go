package subscription

import (
	"errors"
	"strings"
	"time"
)

type Plan string

const (
	PlanFree       Plan = "free"
	PlanMonthly    Plan = "monthly"
	PlanSemiAnnual Plan = "semi_annual"
	PlanYearly     Plan = "yearly"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusExpired  = "expired"
)

var (
	ErrUnknownPlan   = errors.New("unknown subscription plan")
	ErrPriceNotFound = errors.New("price not found for plan and currency")
	ErrNotFound      = errors.New("user not found")
)

// Subscription is the subscription state kept on the user row.
type Subscription struct {
	Plan             Plan       `json:"plan"`
	Status           string     `json:"status"`
	ExpiresAt        *time.Time `json:"expiry"`
	CanAccessContact bool       `json:"can_access_contact"`
}

type Price struct {
	Plan     Plan    `json:"plan"`
	Currency string  `json:"currency"`
	UserType string  `json:"user_type,omitempty"`
	Amount   float64 `json:"amount"`
}

// ParsePlan accepts only paid plans.
func ParsePlan(s string) (Plan, error) {
	switch p := Plan(strings.TrimSpace(s)); p {
	case PlanMonthly, PlanSemiAnnual, PlanYearly:
		return p, nil
	default:
		return "", ErrUnknownPlan
	}
}

// ExpiryFor returns now plus the plan's fixed calendar offset. It never looks
// at a previous expiry, so renewing early does not stack.
func ExpiryFor(now time.Time, plan Plan) (time.Time, error) {
	switch plan {
	case PlanMonthly:
		return now.AddDate(0, 1, 0), nil
	case PlanSemiAnnual:
		return now.AddDate(0, 6, 0), nil
	case PlanYearly:
		return now.AddDate(1, 0, 0), nil
	default:
		return time.Time{}, ErrUnknownPlan
	}
}

// Countdown is what the client renders as "N days left".
type Countdown struct {
	Plan             Plan       `json:"plan"`
	Status           string     `json:"status"`
	Active           bool       `json:"active"`
	ExpiresAt        *time.Time `json:"expiry,omitempty"`
	DaysLeft         int        `json:"days_left"`
	HoursLeft        int        `json:"hours_left"`
	MinutesLeft      int        `json:"minutes_left"`
	CanAccessContact bool       `json:"can_access_contact"`
}

func (s Subscription) Countdown(now time.Time) Countdown {
	c := Countdown{
		Plan:      s.Plan,
		Status:    s.Status,
		ExpiresAt: s.ExpiresAt,
	}

	if s.Status != StatusActive || s.ExpiresAt == nil {
		if c.Status == "" {
			c.Status = StatusInactive
		}
		return c
	}

	left := s.ExpiresAt.Sub(now)
	if left <= 0 {
		c.Status = StatusExpired
		return c
	}

	c.Active = true
	c.CanAccessContact = s.CanAccessContact
	c.DaysLeft = int(left / (24 * time.Hour))
	c.HoursLeft = int(left%(24*time.Hour)) / int(time.Hour)
	c.MinutesLeft = int(left%time.Hour) / int(time.Minute)
	return c
}

var currencySymbols = map[string]string{
	"NGN": "₦",
	"USD": "$",
	"GHS": "₵",
	"KES": "KSh",
	"ZAR": "R",
	"EUR": "€",
	"GBP": "£",
}

func CurrencySymbol(code string) string {
	if s, ok := currencySymbols[strings.ToUpper(code)]; ok {
		return s
	}
	return code
}
