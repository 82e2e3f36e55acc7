package service

import (
	"slices"
	"strings"
	"sync"
	"time"

	"apicourse/internal/apperr"
	"apicourse/internal/model"
)

// ItemSearch narrows ItemStore.Search. Nil fields are ignored.
type ItemSearch struct {
	Name     string
	MinPrice *float64
	MaxPrice *float64
	// Tags matches items carrying any of the listed tags.
	Tags []string
}

// ItemStore is an in-memory CRUD store for items. IDs are never reused.
type ItemStore struct {
	mu     sync.RWMutex
	items  map[int64]model.Item
	nextID int64
	now    func() time.Time
}

func NewItemStore() *ItemStore {
	return &ItemStore{items: make(map[int64]model.Item), now: time.Now}
}

func (s *ItemStore) List() []model.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Item, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it)
	}
	slices.SortFunc(out, func(a, b model.Item) int { return int(a.ID - b.ID) })
	return out
}

func (s *ItemStore) Get(id int64) (model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.items[id]
	if !ok {
		return model.Item{}, apperr.NotFound("item", id)
	}
	return it, nil
}

func (s *ItemStore) Create(in model.ItemInput) model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	it := fromInput(s.nextID, in)
	it.CreatedAt = s.now().UTC()
	s.items[it.ID] = it
	return it
}

// Replace overwrites every field but keeps the creation time.
func (s *ItemStore) Replace(id int64, in model.ItemInput) (model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.items[id]
	if !ok {
		return model.Item{}, apperr.NotFound("item", id)
	}
	it := fromInput(id, in)
	it.CreatedAt = old.CreatedAt
	now := s.now().UTC()
	it.UpdatedAt = &now
	s.items[id] = it
	return it, nil
}

// Patch applies only the fields set in p.
func (s *ItemStore) Patch(id int64, p model.ItemPatch) (model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		return model.Item{}, apperr.NotFound("item", id)
	}
	if p.Name != nil {
		it.Name = *p.Name
	}
	if p.Description != nil {
		it.Description = p.Description
	}
	if p.Price != nil {
		it.Price = *p.Price
	}
	if p.Tax != nil {
		it.Tax = p.Tax
	}
	if p.Tags != nil {
		it.Tags = slices.Clone(*p.Tags)
	}
	now := s.now().UTC()
	it.UpdatedAt = &now
	s.items[id] = it
	return it, nil
}

func (s *ItemStore) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return apperr.NotFound("item", id)
	}
	delete(s.items, id)
	return nil
}

func (s *ItemStore) Search(f ItemSearch) []model.Item {
	name := strings.ToLower(f.Name)
	out := make([]model.Item, 0)
	for _, it := range s.List() {
		if name != "" && !strings.Contains(strings.ToLower(it.Name), name) {
			continue
		}
		if f.MinPrice != nil && it.Price < *f.MinPrice {
			continue
		}
		if f.MaxPrice != nil && it.Price > *f.MaxPrice {
			continue
		}
		if len(f.Tags) > 0 && !slices.ContainsFunc(f.Tags, func(t string) bool { return slices.Contains(it.Tags, t) }) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func fromInput(id int64, in model.ItemInput) model.Item {
	it := model.Item{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		Tax:         in.Tax,
		Tags:        slices.Clone(in.Tags),
	}
	if in.Price != nil {
		it.Price = *in.Price
	}
	if it.Tags == nil {
		it.Tags = []string{}
	}
	return it
}
