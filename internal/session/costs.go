package session

import (
	"context"
	"strings"

	"novoape/internal/core"
	"novoape/internal/persist"
)

// SetProjectName renames the project.
func (s *Session) SetProjectName(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyName
	}
	if len(name) > core.MaxNameLength {
		return core.ErrNameTooLong
	}
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	s.state.ProjectName = name
	s.persistLocked(ctx, func(ctx context.Context, uid string) persist.Outcome {
		return s.store.SaveProjectName(ctx, uid, name)
	})
	return nil
}

// AddInitialCost appends a cost worth zero and due today.
func (s *Session) AddInitialCost(ctx context.Context, name string) (core.InitialCost, error) {
	cost := core.InitialCost{
		ID:      s.newID(),
		Name:    strings.TrimSpace(name),
		DueDate: s.today(),
	}
	if err := cost.Validate(); err != nil {
		return core.InitialCost{}, err
	}
	if err := s.lock(); err != nil {
		return core.InitialCost{}, err
	}
	defer s.mu.Unlock()
	s.state.InitialCosts = append(s.state.InitialCosts, cost)
	s.saveLocked(ctx, core.CollectionInitialCosts, cost)
	return cost, nil
}

// UpdateInitialCost sets the value and due date of a cost.
func (s *Session) UpdateInitialCost(ctx context.Context, id string, value core.Money, dueDate core.Date) (core.InitialCost, error) {
	if err := value.Validate(); err != nil {
		return core.InitialCost{}, err
	}
	return s.updateInitialCost(ctx, id, func(c *core.InitialCost) error {
		c.Value = value
		c.DueDate = dueDate
		return nil
	})
}

func (s *Session) RenameInitialCost(ctx context.Context, id, name string) (core.InitialCost, error) {
	return s.updateInitialCost(ctx, id, func(c *core.InitialCost) error {
		c.Name = strings.TrimSpace(name)
		return nil
	})
}

// InitialCostPatch names the fields to change. Nil fields keep their value.
type InitialCostPatch struct {
	Name    *string
	Value   *core.Money
	DueDate *core.Date
}

// PatchInitialCost applies every field of p at once. The merged cost is
// validated before anything changes, and one write is issued.
func (s *Session) PatchInitialCost(ctx context.Context, id string, p InitialCostPatch) (core.InitialCost, error) {
	return s.updateInitialCost(ctx, id, func(c *core.InitialCost) error {
		if p.Name != nil {
			c.Name = strings.TrimSpace(*p.Name)
		}
		if p.Value != nil {
			c.Value = *p.Value
		}
		if p.DueDate != nil {
			c.DueDate = *p.DueDate
		}
		return nil
	})
}

func (s *Session) updateInitialCost(ctx context.Context, id string, change func(*core.InitialCost) error) (core.InitialCost, error) {
	if err := s.lock(); err != nil {
		return core.InitialCost{}, err
	}
	defer s.mu.Unlock()
	i := core.IndexOf(s.state.InitialCosts, id)
	if i < 0 {
		return core.InitialCost{}, core.ErrNotFound
	}
	next := s.state.InitialCosts[i]
	if err := change(&next); err != nil {
		return core.InitialCost{}, err
	}
	if err := next.Validate(); err != nil {
		return core.InitialCost{}, err
	}
	s.state.InitialCosts = replaceAt(s.state.InitialCosts, i, next)
	s.saveLocked(ctx, core.CollectionInitialCosts, next)
	return next, nil
}

func (s *Session) RemoveInitialCost(ctx context.Context, id string) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	var ok bool
	if s.state.InitialCosts, ok = removeKey(s.state.InitialCosts, id); !ok {
		return core.ErrNotFound
	}
	s.deleteLocked(ctx, core.CollectionInitialCosts, id)
	return nil
}

// RecurringCostInput holds the caller supplied fields of a new bill.
type RecurringCostInput struct {
	Name   string
	Value  core.Money
	DueDay int
}

func (s *Session) AddRecurringCost(ctx context.Context, in RecurringCostInput) (core.RecurringCost, error) {
	cost := core.RecurringCost{
		ID:     s.newID(),
		Name:   strings.TrimSpace(in.Name),
		Value:  in.Value,
		DueDay: in.DueDay,
	}
	if err := cost.Validate(); err != nil {
		return core.RecurringCost{}, err
	}
	if err := s.lock(); err != nil {
		return core.RecurringCost{}, err
	}
	defer s.mu.Unlock()
	s.state.RecurringCosts = append(s.state.RecurringCosts, cost)
	s.saveLocked(ctx, core.CollectionRecurringCosts, cost)
	return cost, nil
}

func (s *Session) RenameRecurringCost(ctx context.Context, id, name string) (core.RecurringCost, error) {
	return s.updateRecurringCost(ctx, id, func(c *core.RecurringCost) { c.Name = strings.TrimSpace(name) })
}

func (s *Session) SetRecurringCostValue(ctx context.Context, id string, value core.Money) (core.RecurringCost, error) {
	return s.updateRecurringCost(ctx, id, func(c *core.RecurringCost) { c.Value = value })
}

func (s *Session) SetRecurringCostDueDay(ctx context.Context, id string, day int) (core.RecurringCost, error) {
	return s.updateRecurringCost(ctx, id, func(c *core.RecurringCost) { c.DueDay = day })
}

type RecurringCostPatch struct {
	Name   *string
	Value  *core.Money
	DueDay *int
}

// PatchRecurringCost applies every field of p in one validated write.
func (s *Session) PatchRecurringCost(ctx context.Context, id string, p RecurringCostPatch) (core.RecurringCost, error) {
	return s.updateRecurringCost(ctx, id, func(c *core.RecurringCost) {
		if p.Name != nil {
			c.Name = strings.TrimSpace(*p.Name)
		}
		if p.Value != nil {
			c.Value = *p.Value
		}
		if p.DueDay != nil {
			c.DueDay = *p.DueDay
		}
	})
}

func (s *Session) updateRecurringCost(ctx context.Context, id string, change func(*core.RecurringCost)) (core.RecurringCost, error) {
	if err := s.lock(); err != nil {
		return core.RecurringCost{}, err
	}
	defer s.mu.Unlock()
	i := core.IndexOf(s.state.RecurringCosts, id)
	if i < 0 {
		return core.RecurringCost{}, core.ErrNotFound
	}
	next := s.state.RecurringCosts[i]
	change(&next)
	if err := next.Validate(); err != nil {
		return core.RecurringCost{}, err
	}
	s.state.RecurringCosts = replaceAt(s.state.RecurringCosts, i, next)
	s.saveLocked(ctx, core.CollectionRecurringCosts, next)
	return next, nil
}

func (s *Session) RemoveRecurringCost(ctx context.Context, id string) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	var ok bool
	if s.state.RecurringCosts, ok = removeKey(s.state.RecurringCosts, id); !ok {
		return core.ErrNotFound
	}
	s.deleteLocked(ctx, core.CollectionRecurringCosts, id)
	return nil
}

// Bills returns the status of every recurring cost on the session's today.
func (s *Session) Bills() []core.BillStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.BillStatuses(s.state.RecurringCosts, s.now())
}

func (s *Session) saveLocked(ctx context.Context, collection string, item persist.Record) {
	s.persistLocked(ctx, func(ctx context.Context, uid string) persist.Outcome {
		return s.store.Save(ctx, uid, collection, item)
	})
}

func (s *Session) deleteLocked(ctx context.Context, collection, id string) {
	s.persistLocked(ctx, func(ctx context.Context, uid string) persist.Outcome {
		return s.store.Delete(ctx, uid, collection, id)
	})
}

// replaceAt returns a copy of items with position i set to v. Earlier
// snapshots keep the old slice.
func replaceAt[T any](items []T, i int, v T) []T {
	out := append([]T(nil), items...)
	out[i] = v
	return out
}

func removeKey[T interface{ Key() string }](items []T, id string) ([]T, bool) {
	i := core.IndexOf(items, id)
	if i < 0 {
		return items, false
	}
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...), true
}
