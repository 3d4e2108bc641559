package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"gigmarket/internal/logging"
	"gigmarket/internal/maps"
	"gigmarket/internal/metrics"
)

type Client interface {
	Geocode(ctx context.Context, address string) ([]maps.Place, error)
	Reverse(ctx context.Context, lat, lng float64) ([]maps.Place, error)
	Autocomplete(ctx context.Context, input string) ([]maps.Prediction, error)
}

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Service proxies map lookups and caches the answers. Cache failures only
// cost an upstream call.
type Service struct {
	client Client
	cache  Cache
	ttl    time.Duration
	log    logging.Logger
}

// NewService accepts a nil cache.
func NewService(client Client, cache Cache, ttl time.Duration, log logging.Logger) *Service {
	return &Service{
		client: client,
		cache:  cache,
		ttl:    ttl,
		log:    log.With("component", "maps"),
	}
}

func (s *Service) Geocode(ctx context.Context, address string) ([]maps.Place, error) {
	address = normalize(address)
	if address == "" {
		return nil, maps.ErrEmptyQuery
	}
	var out []maps.Place
	err := s.cached(ctx, "geocode", address, &out, func() (any, error) {
		return s.client.Geocode(ctx, address)
	})
	return out, err
}

func (s *Service) Reverse(ctx context.Context, lat, lng float64) ([]maps.Place, error) {
	if !maps.ValidCoordinates(lat, lng) {
		return nil, maps.ErrInvalidCoordinates
	}
	// ~11m grid so nearby taps share an entry.
	key := strconv.FormatFloat(lat, 'f', 4, 64) + "," + strconv.FormatFloat(lng, 'f', 4, 64)
	var out []maps.Place
	err := s.cached(ctx, "reverse", key, &out, func() (any, error) {
		return s.client.Reverse(ctx, lat, lng)
	})
	return out, err
}

func (s *Service) Autocomplete(ctx context.Context, input string) ([]maps.Prediction, error) {
	input = normalize(input)
	if input == "" {
		return nil, maps.ErrEmptyQuery
	}
	var out []maps.Prediction
	err := s.cached(ctx, "autocomplete", input, &out, func() (any, error) {
		return s.client.Autocomplete(ctx, input)
	})
	return out, err
}

func (s *Service) cached(ctx context.Context, kind, query string, out any, fetch func() (any, error)) error {
	key := CacheKey(kind, query)

	if s.cache != nil {
		b, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.log.Warn(ctx, "maps cache read failed", "key", key, "err", err)
		} else if ok && json.Unmarshal(b, out) == nil {
			metrics.MapsCacheLookups.WithLabelValues("hit").Inc()
			return nil
		}
		metrics.MapsCacheLookups.WithLabelValues("miss").Inc()
	}

	v, err := fetch()
	if err != nil {
		return err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, b, s.ttl); err != nil {
			s.log.Warn(ctx, "maps cache write failed", "key", key, "err", err)
		}
	}
	return nil
}

// CacheKey is kind:sha256(query).
func CacheKey(kind, query string) string {
	sum := sha256.Sum256([]byte(query))
	return kind + ":" + hex.EncodeToString(sum[:])
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
