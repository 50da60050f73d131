package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"novoape/internal/core"
	"novoape/internal/docstore"
	"novoape/internal/log"
)

// Loaded is the project a user has persisted. ProjectName is empty when the
// profile is missing or has none; an empty collection was never written.
type Loaded struct {
	ProjectName    string
	InitialCosts   []core.InitialCost
	Rooms          []core.Room
	Purchases      []core.PurchaseItem
	RecurringCosts []core.RecurringCost
	Checklist      []core.ChecklistSection
}

// Empty reports whether nothing at all was persisted.
func (l *Loaded) Empty() bool {
	return l.ProjectName == "" &&
		len(l.InitialCosts) == 0 &&
		len(l.Rooms) == 0 &&
		len(l.Purchases) == 0 &&
		len(l.RecurringCosts) == 0 &&
		len(l.Checklist) == 0
}

// Load reads the profile and the five collections of uid concurrently. Any
// failure is logged and returns a nil result together with the error; there
// is no retry.
func (a *Adapter) Load(ctx context.Context, uid string) (*Loaded, error) {
	start := a.now()
	out, err := a.load(ctx, uid)
	a.metrics.ObserveLoad(time.Since(start))
	if err != nil {
		a.events.LogError(ctx, "Failed to load project", err, log.OpLoad,
			log.NewFields().WithDocument(uid, "", ""))
		return nil, err
	}
	a.logger.DebugContext(ctx, "Project loaded",
		log.FieldUserID, uid,
		"rooms", len(out.Rooms),
		"purchases", len(out.Purchases))
	return out, nil
}

func (a *Adapter) load(ctx context.Context, uid string) (*Loaded, error) {
	profilePath, err := docstore.UserDoc(uid)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	out := &Loaded{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		body, err := a.store.Get(gctx, profilePath)
		if errors.Is(err, docstore.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load profile: %w", err)
		}
		var p core.Profile
		if err := json.Unmarshal(body, &p); err != nil {
			a.logger.WarnContext(ctx, "Ignoring unreadable profile",
				log.FieldDocPath, profilePath.String(),
				log.FieldError, err.Error())
			return nil
		}
		out.ProjectName = p.ProjectName
		return nil
	})
	g.Go(func() error {
		var err error
		out.InitialCosts, err = listCollection[core.InitialCost](gctx, a, uid, core.CollectionInitialCosts)
		return err
	})
	g.Go(func() error {
		var err error
		out.Rooms, err = listCollection[core.Room](gctx, a, uid, core.CollectionRooms)
		return err
	})
	g.Go(func() error {
		var err error
		out.Purchases, err = listCollection[core.PurchaseItem](gctx, a, uid, core.CollectionPurchases)
		return err
	})
	g.Go(func() error {
		var err error
		out.RecurringCosts, err = listCollection[core.RecurringCost](gctx, a, uid, core.CollectionRecurringCosts)
		return err
	})
	g.Go(func() error {
		var err error
		out.Checklist, err = listCollection[core.ChecklistSection](gctx, a, uid, core.CollectionChecklist)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i := range out.Rooms {
		out.Rooms[i] = normalizeRoom(out.Rooms[i])
	}
	out.Checklist = core.OrderChecklist(out.Checklist)
	return out, nil
}

// listCollection decodes every document of a collection. A document that
// does not decode is skipped with a warning; its id always comes from the
// document path.
func listCollection[T any](ctx context.Context, a *Adapter, uid, collection string) ([]T, error) {
	path, err := docstore.CollectionPath(uid, collection)
	if err != nil {
		return nil, err
	}
	docs, err := a.store.List(ctx, path)
	a.metrics.ObserveStore(collection, log.OpLoad, err)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", collection, err)
	}
	items := make([]T, 0, len(docs))
	for _, d := range docs {
		var item T
		if err := json.Unmarshal(d.Body, &item); err != nil {
			a.logger.WarnContext(ctx, "Skipping unreadable document",
				log.FieldCollection, collection,
				log.FieldItemID, d.ID,
				log.FieldError, err.Error())
			continue
		}
		setID(&item, d.ID)
		items = append(items, item)
	}
	return items, nil
}

func setID(item any, id string) {
	switch v := item.(type) {
	case *core.InitialCost:
		v.ID = id
	case *core.Room:
		v.ID = id
	case *core.PurchaseItem:
		v.ID = id
	case *core.RecurringCost:
		v.ID = id
	case *core.ChecklistSection:
		v.ID = id
	}
}

func normalizeRoom(r core.Room) core.Room {
	if r.Repairs == nil {
		r.Repairs = []core.RepairItem{}
	}
	if r.Materials == nil {
		r.Materials = []core.MaterialItem{}
	}
	if r.Labor == nil {
		r.Labor = []core.LaborItem{}
	}
	return r
}

// SaveSnapshot writes every record of s for uid. It is used to seed a store
// and returns the first failed outcome's error.
func (a *Adapter) SaveSnapshot(ctx context.Context, uid string, s core.Snapshot) error {
	var errs []error
	collect := func(o Outcome) {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	collect(a.SaveProjectName(ctx, uid, s.ProjectName))
	for _, c := range s.InitialCosts {
		collect(a.Save(ctx, uid, core.CollectionInitialCosts, c))
	}
	for _, r := range s.Rooms {
		collect(a.Save(ctx, uid, core.CollectionRooms, r))
	}
	for _, p := range s.Purchases {
		collect(a.Save(ctx, uid, core.CollectionPurchases, p))
	}
	for _, r := range s.RecurringCosts {
		collect(a.Save(ctx, uid, core.CollectionRecurringCosts, r))
	}
	for _, sec := range s.Checklist {
		collect(a.SaveChecklistSection(ctx, uid, sec))
	}
	if len(errs) > 0 {
		return fmt.Errorf("seed %s: %w", uid, errs[0])
	}
	return nil
}
