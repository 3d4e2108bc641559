package service

import (
	"context"
	"sort"
	"strings"

	"gigmarket/internal/search"

	"github.com/google/uuid"
)

type SearchRepository interface {
	SearchProviders(ctx context.Context, mode, term, state, city string, limit int) ([]search.Provider, error)
}

type Service struct {
	repo SearchRepository
}

func NewService(repo SearchRepository) *Service {
	return &Service{repo: repo}
}

// Search runs one lookup per populated criterion and merges the rows: a
// provider's score is the sum of the weights of the modes it matched, plus a
// bonus when subscribed.
func (s *Service) Search(ctx context.Context, q search.Query) ([]search.Result, error) {
	q.Text = strings.TrimSpace(q.Text)
	q.Category = strings.TrimSpace(q.Category)
	q.State = strings.TrimSpace(q.State)
	q.City = strings.TrimSpace(q.City)

	if q.Text == "" && q.Category == "" && q.State == "" && q.City == "" {
		return nil, search.ErrEmptyQuery
	}

	limit := q.Limit
	if limit <= 0 {
		limit = search.DefaultLimit
	}
	if limit > search.MaxLimit {
		limit = search.MaxLimit
	}

	type lookup struct {
		mode, term string
	}
	var lookups []lookup
	if q.Text != "" {
		lookups = append(lookups, lookup{search.ModeText, q.Text})
	}
	if q.Category != "" {
		lookups = append(lookups, lookup{search.ModeCategory, q.Category})
	}
	if q.State != "" || q.City != "" {
		lookups = append(lookups, lookup{search.ModeLocation, ""})
	}

	byID := make(map[uuid.UUID]*search.Result)
	for _, l := range lookups {
		rows, err := s.repo.SearchProviders(ctx, l.mode, l.term, q.State, q.City, search.MaxLimit)
		if err != nil {
			return nil, err
		}
		for _, p := range rows {
			r, ok := byID[p.ID]
			if !ok {
				r = &search.Result{Provider: p}
				if p.Subscribed {
					r.Score += search.SubscribedBonus
				}
				byID[p.ID] = r
			}
			if contains(r.MatchedBy, l.mode) {
				continue
			}
			r.MatchedBy = append(r.MatchedBy, l.mode)
			r.Score += search.Weight[l.mode]
		}
	}

	results := make([]search.Result, 0, len(byID))
	for _, r := range byID {
		results = append(results, *r)
	}
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		return a.BusinessName < b.BusinessName
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
