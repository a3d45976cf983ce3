package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// store is the behaviour every backend must share
type store interface {
	FindIDByURL(ctx context.Context, url string) (string, error)
	FindURLByID(ctx context.Context, id string) (string, error)
	InsertMapping(ctx context.Context, id, url string) error
	InsertStats(ctx context.Context, id string) error
	IncrementVisits(ctx context.Context, id string) error
	Visits(ctx context.Context, id string) (int64, error)
	Ping(ctx context.Context) error
}

var (
	_ store = (*SQLRepository)(nil)
	_ store = (*RedisRepository)(nil)
)

// runStoreTests exercises a backend; ids and urls are unique per call so a
// shared server can be reused
func runStoreTests(t *testing.T, s store) {
	ctx := context.Background()

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, s.Ping(ctx))
	})

	t.Run("lookups on empty store", func(t *testing.T) {
		_, err := s.FindIDByURL(ctx, "https://never.example/")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = s.FindURLByID(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = s.Visits(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("insert and find both ways", func(t *testing.T) {
		require.NoError(t, s.InsertMapping(ctx, "abc", "https://example.com/a"))
		require.NoError(t, s.InsertStats(ctx, "abc"))

		url, err := s.FindURLByID(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/a", url)

		id, err := s.FindIDByURL(ctx, "https://example.com/a")
		require.NoError(t, err)
		assert.Equal(t, "abc", id)

		visits, err := s.Visits(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, int64(0), visits)
	})

	t.Run("ids are case sensitive", func(t *testing.T) {
		_, err := s.FindURLByID(ctx, "ABC")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("duplicate id is rejected", func(t *testing.T) {
		require.NoError(t, s.InsertMapping(ctx, "dup", "https://example.com/first"))
		require.NoError(t, s.InsertStats(ctx, "dup"))

		err := s.InsertMapping(ctx, "dup", "https://example.com/second")
		assert.ErrorIs(t, err, ErrDuplicateID)

		err = s.InsertStats(ctx, "dup")
		assert.ErrorIs(t, err, ErrDuplicateID)

		url, err := s.FindURLByID(ctx, "dup")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/first", url)
	})

	t.Run("increment counts visits", func(t *testing.T) {
		require.NoError(t, s.InsertMapping(ctx, "cnt", "https://example.com/count"))
		require.NoError(t, s.InsertStats(ctx, "cnt"))

		for i := 0; i < 5; i++ {
			require.NoError(t, s.IncrementVisits(ctx, "cnt"))
		}

		visits, err := s.Visits(ctx, "cnt")
		require.NoError(t, err)
		assert.Equal(t, int64(5), visits)
	})

	t.Run("increment without stats row fails", func(t *testing.T) {
		require.NoError(t, s.InsertMapping(ctx, "orphan", "https://example.com/orphan"))

		err := s.IncrementVisits(ctx, "orphan")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("concurrent increments are not lost", func(t *testing.T) {
		require.NoError(t, s.InsertMapping(ctx, "hot", "https://example.com/hot"))
		require.NoError(t, s.InsertStats(ctx, "hot"))

		const workers, perWorker = 8, 25
		var wg sync.WaitGroup
		errs := make(chan error, workers*perWorker)
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < perWorker; i++ {
					errs <- s.IncrementVisits(ctx, "hot")
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		visits, err := s.Visits(ctx, "hot")
		require.NoError(t, err)
		assert.Equal(t, int64(workers*perWorker), visits)
	})

	t.Run("first id for a url wins lookups", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			require.NoError(t, s.InsertMapping(ctx, fmt.Sprintf("same%d", i), "https://example.com/same"))
		}

		id, err := s.FindIDByURL(ctx, "https://example.com/same")
		require.NoError(t, err)
		assert.Contains(t, []string{"same0", "same1", "same2"}, id)
	})
}
