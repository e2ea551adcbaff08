package categories

import (
	"context"
	"sync"

	"wellbeing/internal/types"
)

// MappingSource is the durable home of category definitions.
// AddRule and RemoveRule must be durable when they return.
type MappingSource interface {
	Load(ctx context.Context) ([]types.CategoryInfo, error)
	AddRule(ctx context.Context, rule types.CategoryRule) error
	RemoveRule(ctx context.Context, rule types.CategoryRule) error
}

// StaticSource serves a fixed set of categories. Writes mutate the in-memory copy.
type StaticSource struct {
	mu         sync.Mutex
	categories []types.CategoryInfo
	err        error
}

// NewStaticSource creates a source over categories
func NewStaticSource(categories ...types.CategoryInfo) *StaticSource {
	return &StaticSource{categories: categories}
}

// FailWith makes every subsequent Load return err; nil clears it
func (s *StaticSource) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *StaticSource) Load(ctx context.Context) ([]types.CategoryInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]types.CategoryInfo, len(s.categories))
	for i, c := range s.categories {
		c.Apps = append([]string(nil), c.Apps...)
		out[i] = c
	}
	return out, nil
}

func (s *StaticSource) AddRule(ctx context.Context, rule types.CategoryRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	s.categories, err = addRule(s.categories, rule)
	return err
}

func (s *StaticSource) RemoveRule(ctx context.Context, rule types.CategoryRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	s.categories, err = removeRule(s.categories, rule)
	return err
}
