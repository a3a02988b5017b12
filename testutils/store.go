// testutils/store.go
package testutils

import (
	"context"
	"sync"

	"modguard/matcher"
	"modguard/store"
)

// InMemoryStore is a full in-memory implementation of store.Store for tests.
// SetError makes every subsequent operation fail, for exercising the
// fail-open and failed-command paths.
type InMemoryStore struct {
	mu          sync.RWMutex
	rules       []store.Rule
	trusted     map[string]struct{}
	calls       int
	errToReturn error
}

var _ store.Store = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{trusted: make(map[string]struct{})}
}

func (s *InMemoryStore) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errToReturn = err
}

func (s *InMemoryStore) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errToReturn = nil
}

// Calls returns the number of store operations performed so far.
func (s *InMemoryStore) Calls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls
}

func (s *InMemoryStore) CreateRule(ctx context.Context, pattern string, severity store.Severity) (*store.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.errToReturn != nil {
		return nil, s.errToReturn
	}
	if !severity.Valid() {
		return nil, store.ErrInvalidSeverity
	}
	if _, err := matcher.Compile(pattern); err != nil {
		return nil, store.ErrInvalidPattern
	}

	maxID := 0
	for _, r := range s.rules {
		if r.ID > maxID {
			maxID = r.ID
		}
	}
	rule := store.Rule{ID: maxID + 1, Pattern: pattern, Severity: severity}
	s.rules = append(s.rules, rule)
	return &rule, nil
}

func (s *InMemoryStore) ListRules(ctx context.Context) ([]store.Rule, error) {
	s.mu.Lock()
	s.calls++
	err := s.errToReturn
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Rule, len(s.rules))
	copy(out, s.rules)
	return out, nil
}

func (s *InMemoryStore) DeleteRule(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.errToReturn != nil {
		return s.errToReturn
	}
	for i, r := range s.rules {
		if r.ID == id {
			s.rules = append(s.rules[:i], s.rules[i+1:]...)
			return nil
		}
	}
	return store.ErrRuleNotFound
}

func (s *InMemoryStore) IsTrusted(ctx context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.errToReturn != nil {
		return false, s.errToReturn
	}
	_, ok := s.trusted[userID]
	return ok, nil
}

func (s *InMemoryStore) AddTrusted(ctx context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.errToReturn != nil {
		return false, s.errToReturn
	}
	if _, ok := s.trusted[userID]; ok {
		return false, nil
	}
	s.trusted[userID] = struct{}{}
	return true, nil
}

func (s *InMemoryStore) RemoveTrusted(ctx context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.errToReturn != nil {
		return false, s.errToReturn
	}
	if _, ok := s.trusted[userID]; !ok {
		return false, nil
	}
	delete(s.trusted, userID)
	return true, nil
}

func (s *InMemoryStore) Close() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errToReturn
}
