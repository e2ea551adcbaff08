package categories

import (
	"context"
	"sync"
	"time"

	repoerrors "wellbeing/internal/infrastructure/errors"
	"wellbeing/internal/infrastructure/logging"
	"wellbeing/internal/types"
)

// LoadState describes the outcome of the most recent Reload
type LoadState struct {
	LoadedAt  time.Time
	RuleCount int
	Err       error
}

// Resolver owns the current RuleSet. Rules change only through Reload, so a
// mapping edit takes effect on the next aggregation run, not the current one.
type Resolver struct {
	source MappingSource
	logger logging.Logger
	nowFn  func() time.Time

	mu      sync.RWMutex
	current *RuleSet
	state   LoadState
}

// NewResolver creates a resolver with an empty rule set
func NewResolver(source MappingSource, logger logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Resolver{
		source:  source,
		logger:  logger,
		nowFn:   time.Now,
		current: NewRuleSet(nil),
	}
}

// Reload loads the rules from the source and installs them as the current snapshot.
// On failure the previous snapshot stays in place and a CategoryLoad error is returned.
func (r *Resolver) Reload(ctx context.Context) (*RuleSet, error) {
	infos, err := r.source.Load(ctx)
	if err != nil {
		if !repoerrors.IsCategoryLoad(err) {
			err = repoerrors.CategoryLoadFailure("Resolver.Reload", err, "")
		}
		r.mu.Lock()
		r.state = LoadState{LoadedAt: r.nowFn(), RuleCount: r.current.Len(), Err: err}
		r.mu.Unlock()
		logging.LogError(r.logger, err, "Resolver.Reload", nil)
		return nil, err
	}

	rs := NewRuleSet(infos)

	r.mu.Lock()
	r.current = rs
	r.state = LoadState{LoadedAt: r.nowFn(), RuleCount: rs.Len()}
	r.mu.Unlock()

	r.logger.Debug("Category rules loaded", "rules", rs.Len(), "categories", len(infos))
	return rs, nil
}

// Snapshot returns the current rule set
func (r *Resolver) Snapshot() *RuleSet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Resolve resolves against the current snapshot
func (r *Resolver) Resolve(appName, processName string) string {
	return r.Snapshot().Resolve(appName, processName)
}

// State returns the outcome of the last Reload
func (r *Resolver) State() LoadState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// AddRule writes a rule through the source. It is not visible until the next Reload.
func (r *Resolver) AddRule(ctx context.Context, rule types.CategoryRule) error {
	if err := r.source.AddRule(ctx, rule); err != nil {
		return err
	}
	r.logger.Info("Category rule added", "app_name", rule.Pattern, "category", rule.Category)
	return nil
}

// RemoveRule removes a rule through the source. It is not visible until the next Reload.
func (r *Resolver) RemoveRule(ctx context.Context, rule types.CategoryRule) error {
	if err := r.source.RemoveRule(ctx, rule); err != nil {
		return err
	}
	r.logger.Info("Category rule removed", "app_name", rule.Pattern, "category", rule.Category)
	return nil
}
