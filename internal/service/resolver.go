package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/darkodi/shorturl/internal/logger"
	"github.com/darkodi/shorturl/internal/repository"
)

// IDGenerator produces candidate ids
type IDGenerator interface {
	Generate() string
}

// Resolver allocates ids that are free in the store at the time of the check.
// The check is not atomic with the later insert; a concurrent allocation of
// the same id surfaces as a duplicate-key error on insert.
type Resolver struct {
	gen   IDGenerator
	store Store
	log   *logger.Logger
}

// NewResolver creates a resolver
func NewResolver(gen IDGenerator, store Store, log *logger.Logger) *Resolver {
	return &Resolver{gen: gen, store: store, log: log.With("component", "resolver")}
}

// Allocate generates candidates until one is not present in the store.
// There is no retry cap; only ctx cancellation stops the loop.
func (r *Resolver) Allocate(ctx context.Context) (string, error) {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		id := r.gen.Generate()
		_, err := r.store.FindURLByID(ctx, id)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			if attempt > 1 {
				r.log.Info("id allocated after collisions", "id", id, "attempts", attempt)
			}
			return id, nil
		case err != nil:
			r.log.Error("id lookup failed", "id", id, "error", err.Error())
			return "", fmt.Errorf("%w: check id %q: %v", ErrPersistence, id, err)
		default:
			r.log.Debug("id collision, retrying", "id", id, "attempt", attempt)
		}
	}
}
