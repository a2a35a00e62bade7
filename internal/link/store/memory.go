package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"publink/internal/link/models"
	"publink/pkg/platform/sentinel"
)

type InMemoryLinkStore struct {
	mu    sync.RWMutex
	links map[uuid.UUID]*models.Link
	codes map[string]uuid.UUID
}

func NewInMemoryLinkStore() *InMemoryLinkStore {
	return &InMemoryLinkStore{
		links: make(map[uuid.UUID]*models.Link),
		codes: make(map[string]uuid.UUID),
	}
}

func (s *InMemoryLinkStore) Create(_ context.Context, l *models.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.codes[l.ShortCode]; taken {
		return sentinel.ErrConflict
	}
	cp := *l
	s.links[l.ID] = &cp
	s.codes[l.ShortCode] = l.ID
	return nil
}

func (s *InMemoryLinkStore) FindByID(_ context.Context, id uuid.UUID) (*models.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if l, ok := s.links[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryLinkStore) FindByShortCode(_ context.Context, shortCode string) (*models.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.codes[shortCode]; ok {
		cp := *s.links[id]
		return &cp, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryLinkStore) Update(_ context.Context, l *models.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.links[l.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.codes, existing.ShortCode)
	cp := *l
	s.links[l.ID] = &cp
	s.codes[l.ShortCode] = l.ID
	return nil
}

func (s *InMemoryLinkStore) IncrementClickCount(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	l.ClickCount++
	return nil
}

type InMemoryRuleStore struct {
	mu    sync.RWMutex
	rules map[uuid.UUID][]models.RoutingRule
}

func NewInMemoryRuleStore() *InMemoryRuleStore {
	return &InMemoryRuleStore{rules: make(map[uuid.UUID][]models.RoutingRule)}
}

func (s *InMemoryRuleStore) ListByLink(_ context.Context, linkID uuid.UUID) ([]models.RoutingRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.rules[linkID]
	out := make([]models.RoutingRule, len(stored))
	copy(out, stored)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (s *InMemoryRuleStore) ReplaceForLink(_ context.Context, linkID uuid.UUID, rules []models.RoutingRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]models.RoutingRule, len(rules))
	for i, r := range rules {
		r.LinkID = linkID
		r.Position = i
		stored[i] = r
	}
	s.rules[linkID] = stored
	return nil
}
