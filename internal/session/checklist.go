package session

import (
	"context"

	"novoape/internal/core"
	"novoape/internal/persist"
)

// ToggleChecklistItem flips one item and saves its whole section, the unit
// the checklist is stored in.
func (s *Session) ToggleChecklistItem(ctx context.Context, itemID string) (core.ChecklistItem, error) {
	if err := s.lock(); err != nil {
		return core.ChecklistItem{}, err
	}
	defer s.mu.Unlock()
	for si, section := range s.state.Checklist {
		i := core.IndexOf(section.Items, itemID)
		if i < 0 {
			continue
		}
		next := section.Clone()
		next.Items[i].Completed = !next.Items[i].Completed
		s.state.Checklist = replaceAt(s.state.Checklist, si, next)

		saved := next.Clone()
		s.persistLocked(ctx, func(ctx context.Context, uid string) persist.Outcome {
			return s.store.SaveChecklistSection(ctx, uid, saved)
		})
		return next.Items[i], nil
	}
	return core.ChecklistItem{}, core.ErrNotFound
}

// ChecklistProgress is the share of completed items, 0 to 100.
func (s *Session) ChecklistProgress() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.ChecklistProgress(s.state.Checklist)
}
