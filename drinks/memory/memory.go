// Package memory provides an in-process drinks.Store. Contents are lost on
// restart.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/ggoodman/coffee-shop-go/drinks"
)

// Store is a mutex-guarded map keyed by id. Ids increase monotonically and are
// never reused.
type Store struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]drinks.Drink
}

var _ drinks.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{nextID: 1, items: make(map[int64]drinks.Drink)}
}

func (s *Store) List(ctx context.Context) ([]drinks.Drink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]drinks.Drink, 0, len(s.items))
	for _, d := range s.items {
		out = append(out, clone(d))
	}
	slices.SortFunc(out, func(a, b drinks.Drink) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *Store) Get(ctx context.Context, id int64) (drinks.Drink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.items[id]
	if !ok {
		return drinks.Drink{}, drinks.ErrNotFound
	}
	return clone(d), nil
}

func (s *Store) Create(ctx context.Context, d drinks.Drink) (drinks.Drink, error) {
	if err := d.Validate(); err != nil {
		return drinks.Drink{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.titleTaken(d.Title, 0) {
		return drinks.Drink{}, drinks.ErrDuplicateTitle
	}
	d.ID = s.nextID
	s.nextID++
	s.items[d.ID] = clone(d)
	return clone(d), nil
}

func (s *Store) Update(ctx context.Context, id int64, p drinks.Patch) (drinks.Drink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.items[id]
	if !ok {
		return drinks.Drink{}, drinks.ErrNotFound
	}
	next := p.Apply(clone(cur))
	if err := next.Validate(); err != nil {
		return drinks.Drink{}, err
	}
	if s.titleTaken(next.Title, id) {
		return drinks.Drink{}, drinks.ErrDuplicateTitle
	}
	s.items[id] = clone(next)
	return next, nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return drinks.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *Store) Close() error { return nil }

// titleTaken must be called with mu held.
func (s *Store) titleTaken(title string, except int64) bool {
	for id, d := range s.items {
		if id != except && d.Title == title {
			return true
		}
	}
	return false
}

func clone(d drinks.Drink) drinks.Drink {
	d.Recipe = slices.Clone(d.Recipe)
	return d
}
