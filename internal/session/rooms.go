package session

import (
	"context"
	"strings"

	"novoape/internal/core"
)

// AddRoom appends an empty room of zero area.
func (s *Session) AddRoom(ctx context.Context, name string) (core.Room, error) {
	room := core.Room{
		ID:        s.newID(),
		Name:      strings.TrimSpace(name),
		Repairs:   []core.RepairItem{},
		Materials: []core.MaterialItem{},
		Labor:     []core.LaborItem{},
	}
	if err := room.Validate(); err != nil {
		return core.Room{}, err
	}
	if err := s.lock(); err != nil {
		return core.Room{}, err
	}
	defer s.mu.Unlock()
	s.state.Rooms = append(s.state.Rooms, room)
	s.saveLocked(ctx, core.CollectionRooms, room.Clone())
	return room.Clone(), nil
}

func (s *Session) RenameRoom(ctx context.Context, id, name string) (core.Room, error) {
	return s.updateRoom(ctx, id, func(r *core.Room) error {
		r.Name = strings.TrimSpace(name)
		return nil
	})
}

func (s *Session) SetRoomArea(ctx context.Context, id string, squareMeters float64) (core.Room, error) {
	return s.updateRoom(ctx, id, func(r *core.Room) error {
		r.SquareMeters = squareMeters
		return nil
	})
}

type RoomPatch struct {
	Name         *string
	SquareMeters *float64
}

// PatchRoom renames and resizes a room in one validated write.
func (s *Session) PatchRoom(ctx context.Context, id string, p RoomPatch) (core.Room, error) {
	return s.updateRoom(ctx, id, func(r *core.Room) error {
		if p.Name != nil {
			r.Name = strings.TrimSpace(*p.Name)
		}
		if p.SquareMeters != nil {
			r.SquareMeters = *p.SquareMeters
		}
		return nil
	})
}

// RemoveRoom drops the room with all its sub-items. One delete is issued:
// sub-items live inside the room document.
func (s *Session) RemoveRoom(ctx context.Context, id string) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	var ok bool
	if s.state.Rooms, ok = removeKey(s.state.Rooms, id); !ok {
		return core.ErrNotFound
	}
	s.deleteLocked(ctx, core.CollectionRooms, id)
	return nil
}

func (s *Session) AddRepair(ctx context.Context, roomID, description string) (core.RepairItem, error) {
	item := core.RepairItem{ID: s.newID(), Description: strings.TrimSpace(description)}
	if err := item.Validate(); err != nil {
		return core.RepairItem{}, err
	}
	_, err := s.updateRoom(ctx, roomID, func(r *core.Room) error {
		r.Repairs = append(r.Repairs, item)
		return nil
	})
	return item, err
}

// ToggleRepair flips the completed flag of one repair.
func (s *Session) ToggleRepair(ctx context.Context, roomID, repairID string) (core.RepairItem, error) {
	var item core.RepairItem
	_, err := s.updateRoom(ctx, roomID, func(r *core.Room) error {
		i := core.IndexOf(r.Repairs, repairID)
		if i < 0 {
			return core.ErrNotFound
		}
		r.Repairs[i].Completed = !r.Repairs[i].Completed
		item = r.Repairs[i]
		return nil
	})
	return item, err
}

func (s *Session) RemoveRepair(ctx context.Context, roomID, repairID string) error {
	_, err := s.updateRoom(ctx, roomID, func(r *core.Room) error {
		var ok bool
		if r.Repairs, ok = removeKey(r.Repairs, repairID); !ok {
			return core.ErrNotFound
		}
		return nil
	})
	return err
}

// MaterialInput holds the caller supplied fields of a new material.
type MaterialInput struct {
	Name      string
	Quantity  float64
	UnitPrice core.Money
}

func (s *Session) AddMaterial(ctx context.Context, roomID string, in MaterialInput) (core.MaterialItem, error) {
	item := core.MaterialItem{
		ID:        s.newID(),
		Name:      strings.TrimSpace(in.Name),
		Quantity:  in.Quantity,
		UnitPrice: in.UnitPrice,
	}
	if err := item.Validate(); err != nil {
		return core.MaterialItem{}, err
	}
	_, err := s.updateRoom(ctx, roomID, func(r *core.Room) error {
		r.Materials = append(r.Materials, item)
		return nil
	})
	return item, err
}

func (s *Session) RemoveMaterial(ctx context.Context, roomID, materialID string) error {
	_, err := s.updateRoom(ctx, roomID, func(r *core.Room) error {
		var ok bool
		if r.Materials, ok = removeKey(r.Materials, materialID); !ok {
			return core.ErrNotFound
		}
		return nil
	})
	return err
}

// LaborInput holds the caller supplied fields of a new labor entry.
type LaborInput struct {
	ProviderName string
	Phone        string
	Price        core.Money
}

func (s *Session) AddLabor(ctx context.Context, roomID string, in LaborInput) (core.LaborItem, error) {
	item := core.LaborItem{
		ID:           s.newID(),
		ProviderName: strings.TrimSpace(in.ProviderName),
		Phone:        strings.TrimSpace(in.Phone),
		Price:        in.Price,
	}
	if err := item.Validate(); err != nil {
		return core.LaborItem{}, err
	}
	_, err := s.updateRoom(ctx, roomID, func(r *core.Room) error {
		r.Labor = append(r.Labor, item)
		return nil
	})
	return item, err
}

func (s *Session) RemoveLabor(ctx context.Context, roomID, laborID string) error {
	_, err := s.updateRoom(ctx, roomID, func(r *core.Room) error {
		var ok bool
		if r.Labor, ok = removeKey(r.Labor, laborID); !ok {
			return core.ErrNotFound
		}
		return nil
	})
	return err
}

// updateRoom applies change to a deep copy of the room and, when the result
// validates, stores it and saves the whole room document.
func (s *Session) updateRoom(ctx context.Context, id string, change func(*core.Room) error) (core.Room, error) {
	if err := s.lock(); err != nil {
		return core.Room{}, err
	}
	defer s.mu.Unlock()
	i := core.IndexOf(s.state.Rooms, id)
	if i < 0 {
		return core.Room{}, core.ErrNotFound
	}
	next := s.state.Rooms[i].Clone()
	if err := change(&next); err != nil {
		return core.Room{}, err
	}
	if err := next.Validate(); err != nil {
		return core.Room{}, err
	}
	s.state.Rooms = replaceAt(s.state.Rooms, i, next)
	s.saveLocked(ctx, core.CollectionRooms, next.Clone())
	return next.Clone(), nil
}
