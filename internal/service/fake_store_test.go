package service

import (
	"context"
	"sync"

	"github.com/darkodi/shorturl/internal/repository"
)

// fakeStore is an in-memory Store with injectable failures
type fakeStore struct {
	mu     sync.Mutex
	urls   map[string]string // id -> url
	ids    map[string]string // url -> id
	visits map[string]int64

	findIDErr    error
	findURLErr   error
	insertURLErr error
	insertStErr  error
	incrementErr error

	insertMappingCalls int
	insertStatsCalls   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		urls:   make(map[string]string),
		ids:    make(map[string]string),
		visits: make(map[string]int64),
	}
}

func (f *fakeStore) FindIDByURL(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findIDErr != nil {
		return "", f.findIDErr
	}
	id, ok := f.ids[url]
	if !ok {
		return "", repository.ErrNotFound
	}
	return id, nil
}

func (f *fakeStore) FindURLByID(_ context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findURLErr != nil {
		return "", f.findURLErr
	}
	url, ok := f.urls[id]
	if !ok {
		return "", repository.ErrNotFound
	}
	return url, nil
}

func (f *fakeStore) InsertMapping(_ context.Context, id, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertMappingCalls++
	if f.insertURLErr != nil {
		return f.insertURLErr
	}
	if _, ok := f.urls[id]; ok {
		return repository.ErrDuplicateID
	}
	f.urls[id] = url
	if _, ok := f.ids[url]; !ok {
		f.ids[url] = id
	}
	return nil
}

func (f *fakeStore) InsertStats(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertStatsCalls++
	if f.insertStErr != nil {
		return f.insertStErr
	}
	if _, ok := f.visits[id]; ok {
		return repository.ErrDuplicateID
	}
	f.visits[id] = 0
	return nil
}

func (f *fakeStore) IncrementVisits(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incrementErr != nil {
		return f.incrementErr
	}
	if _, ok := f.visits[id]; !ok {
		return repository.ErrNotFound
	}
	f.visits[id]++
	return nil
}

func (f *fakeStore) Visits(_ context.Context, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.visits[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	return n, nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func (f *fakeStore) Close() error { return nil }

// scriptedGenerator hands out the given ids in order, then repeats the last
type scriptedGenerator struct {
	mu    sync.Mutex
	ids   []string
	calls int
}

func (g *scriptedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.calls
	if i >= len(g.ids) {
		i = len(g.ids) - 1
	}
	g.calls++
	return g.ids[i]
}
