package session

import (
	"context"
	"slices"
	"strings"

	"novoape/internal/core"
)

// PurchaseInput holds the caller supplied fields of a purchase. A zero
// PurchaseDate means today.
type PurchaseInput struct {
	Store         string
	ItemName      string
	Price         core.Money
	PaymentMethod string
	PurchaseDate  core.Date
}

func (s *Session) purchaseFrom(id string, in PurchaseInput) core.PurchaseItem {
	p := core.PurchaseItem{
		ID:            id,
		Store:         strings.TrimSpace(in.Store),
		ItemName:      strings.TrimSpace(in.ItemName),
		Price:         in.Price,
		PaymentMethod: strings.TrimSpace(in.PaymentMethod),
		PurchaseDate:  in.PurchaseDate,
	}
	if p.PurchaseDate.IsZero() {
		p.PurchaseDate = s.today()
	}
	return p
}

func (s *Session) AddPurchase(ctx context.Context, in PurchaseInput) (core.PurchaseItem, error) {
	p := s.purchaseFrom(s.newID(), in)
	if err := p.Validate(); err != nil {
		return core.PurchaseItem{}, err
	}
	if err := s.lock(); err != nil {
		return core.PurchaseItem{}, err
	}
	defer s.mu.Unlock()
	s.state.Purchases = append(s.state.Purchases, p)
	s.saveLocked(ctx, core.CollectionPurchases, p)
	return p, nil
}

// UpdatePurchase replaces every field of a purchase but its id.
func (s *Session) UpdatePurchase(ctx context.Context, id string, in PurchaseInput) (core.PurchaseItem, error) {
	p := s.purchaseFrom(id, in)
	if err := p.Validate(); err != nil {
		return core.PurchaseItem{}, err
	}
	if err := s.lock(); err != nil {
		return core.PurchaseItem{}, err
	}
	defer s.mu.Unlock()
	i := core.IndexOf(s.state.Purchases, id)
	if i < 0 {
		return core.PurchaseItem{}, core.ErrNotFound
	}
	s.state.Purchases = replaceAt(s.state.Purchases, i, p)
	s.saveLocked(ctx, core.CollectionPurchases, p)
	return p, nil
}

func (s *Session) RemovePurchase(ctx context.Context, id string) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	var ok bool
	if s.state.Purchases, ok = removeKey(s.state.Purchases, id); !ok {
		return core.ErrNotFound
	}
	s.deleteLocked(ctx, core.CollectionPurchases, id)
	return nil
}

// PurchaseGroups groups the current purchases.
func (s *Session) PurchaseGroups(by core.GroupBy) []core.PurchaseGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.GroupPurchases(s.state.Purchases, by)
}

// AddPaymentMethod adds a method to this session's list. The list is never
// persisted and a duplicate is ignored.
func (s *Session) AddPaymentMethod(method string) error {
	method = strings.TrimSpace(method)
	if method == "" {
		return core.ErrEmptyName
	}
	if len(method) > core.MaxNameLength {
		return core.ErrNameTooLong
	}
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if !slices.Contains(s.state.PaymentMethods, method) {
		s.state.PaymentMethods = append(slices.Clip(s.state.PaymentMethods), method)
	}
	return nil
}

func (s *Session) PaymentMethods() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.PaymentMethods)
}
