package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/darkodi/shorturl/internal/logger"
	"github.com/darkodi/shorturl/internal/model"
	"github.com/darkodi/shorturl/internal/repository"
	"github.com/darkodi/shorturl/internal/validator"
)

// Custom errors for the service layer
var (
	ErrInvalidURL  = errors.New("invalid URL")
	ErrURLNotFound = errors.New("short URL not found")
	ErrPersistence = errors.New("persistence failure")
)

// Store is the mapping store: urls rows and their stats counters.
// Lookups return repository.ErrNotFound when nothing matches.
type Store interface {
	FindIDByURL(ctx context.Context, url string) (string, error)
	FindURLByID(ctx context.Context, id string) (string, error)
	InsertMapping(ctx context.Context, id, url string) error
	InsertStats(ctx context.Context, id string) error
	IncrementVisits(ctx context.Context, id string) error
	Visits(ctx context.Context, id string) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// URLService handles business logic for URL operations. It holds no
// per-request state and is safe for concurrent use.
type URLService struct {
	store    Store
	resolver *Resolver
	baseURL  string // prepended verbatim, e.g. "http://localhost:8080/"
	log      *logger.Logger
}

// NewURLService creates a new service instance
func NewURLService(store Store, gen IDGenerator, baseURL string, log *logger.Logger) *URLService {
	return &URLService{
		store:    store,
		resolver: NewResolver(gen, store, log),
		baseURL:  baseURL,
		log:      log,
	}
}

// Shorten returns the short URL for rawURL, reusing the existing id when
// the canonical URL was shortened before
func (s *URLService) Shorten(ctx context.Context, rawURL string) (string, error) {
	// ============ STEP 1: Validation ============
	longURL, err := validator.Normalize(rawURL)
	if err != nil {
		s.log.Warn("rejected url", "input", rawURL, "error", err.Error())
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	// ============ STEP 2: Dedup ============
	id, err := s.store.FindIDByURL(ctx, longURL)
	switch {
	case err == nil:
		return s.baseURL + id, nil
	case !errors.Is(err, repository.ErrNotFound):
		s.log.Error("url lookup failed", "url", longURL, "error", err.Error())
		return "", fmt.Errorf("%w: find id: %v", ErrPersistence, err)
	}

	// ============ STEP 3: Allocate ============
	id, err = s.resolver.Allocate(ctx)
	if err != nil {
		return "", err
	}

	// ============ STEP 4: Persist ============
	if err := s.store.InsertMapping(ctx, id, longURL); err != nil {
		s.log.Error("failed to insert url mapping", "id", id, "url", longURL, "error", err.Error())
		return "", fmt.Errorf("%w: insert mapping: %v", ErrPersistence, err)
	}

	// No rollback of the mapping if this fails
	if err := s.store.InsertStats(ctx, id); err != nil {
		s.log.Error("failed to insert stats", "id", id, "error", err.Error())
		return "", fmt.Errorf("%w: insert stats: %v", ErrPersistence, err)
	}

	s.log.Info("url shortened", "id", id, "url", longURL)
	return s.baseURL + id, nil
}

// Resolve finds the original URL and increments its visit count. The URL
// is only returned once the visit has been recorded.
func (s *URLService) Resolve(ctx context.Context, id string) (string, error) {
	longURL, err := s.store.FindURLByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrURLNotFound
	}
	if err != nil {
		s.log.Error("id lookup failed", "id", id, "error", err.Error())
		return "", fmt.Errorf("%w: find url: %v", ErrPersistence, err)
	}

	if err := s.store.IncrementVisits(ctx, id); err != nil {
		s.log.Error("failed to increment visits", "id", id, "error", err.Error())
		return "", fmt.Errorf("%w: increment visits: %v", ErrPersistence, err)
	}

	return longURL, nil
}

// Stats returns the url and visit count for id
func (s *URLService) Stats(ctx context.Context, id string) (*model.VisitStats, error) {
	longURL, err := s.store.FindURLByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrURLNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find url: %v", ErrPersistence, err)
	}

	visits, err := s.store.Visits(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: read visits: %v", ErrPersistence, err)
	}

	return &model.VisitStats{ID: id, URL: longURL, VisitsCount: visits}, nil
}

// Ping reports whether the store is reachable
func (s *URLService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
