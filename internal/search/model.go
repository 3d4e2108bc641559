package search

import (
	"errors"

	"github.com/google/uuid"
)

const (
	ModeText     = "text"
	ModeCategory = "category"
	ModeLocation = "location"
)

const (
	DefaultLimit = 20
	MaxLimit     = 50
)

var ErrEmptyQuery = errors.New("at least one of q, category, state or city is required")

// Weight is the score a provider earns for matching a mode.
var Weight = map[string]int{
	ModeText:     3,
	ModeCategory: 2,
	ModeLocation: 1,
}

// SubscribedBonus is added once for providers with an active subscription.
const SubscribedBonus = 1

type Query struct {
	Text     string
	Category string
	State    string
	City     string
	Limit    int
}

// Provider is one row returned by search_providers.
type Provider struct {
	ID           uuid.UUID `db:"provider_id" json:"id"`
	BusinessName string    `db:"business_name" json:"business_name"`
	Category     string    `db:"category" json:"category"`
	State        string    `db:"state" json:"state"`
	City         string    `db:"city" json:"city"`
	Rating       float64   `db:"rating" json:"rating"`
	Subscribed   bool      `db:"subscribed" json:"subscribed"`
}

type Result struct {
	Provider
	Score     int      `json:"score"`
	MatchedBy []string `json:"matched_by"`
}
