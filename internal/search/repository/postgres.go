package repository

import (
	"context"
	"fmt"

	"gigmarket/internal/search"

	"github.com/jmoiron/sqlx"
)

type SearchRepository struct {
	DB *sqlx.DB
}

func NewSearchRepository(db *sqlx.DB) *SearchRepository {
	return &SearchRepository{DB: db}
}

// SearchProviders calls the search_providers database function for one mode.
func (r *SearchRepository) SearchProviders(ctx context.Context, mode, term, state, city string, limit int) ([]search.Provider, error) {
	var out []search.Provider
	err := r.DB.SelectContext(ctx, &out,
		`SELECT provider_id, business_name, category, state, city, rating, subscribed
		 FROM search_providers($1, $2, $3, $4, $5)`,
		mode, term, state, city, limit)
	if err != nil {
		return nil, fmt.Errorf("search providers (%s): %w", mode, err)
	}
	return out, nil
}
