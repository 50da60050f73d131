package core

import (
	"fmt"
	"sort"
	"strings"
)

// GroupBy selects how purchases are grouped.
type GroupBy string

const (
	GroupByStore   GroupBy = "store"
	GroupByPayment GroupBy = "payment"
	GroupByMonth   GroupBy = "month"
)

// Fallback keys for purchases missing the grouping field.
const (
	UnknownStore   = "Outros"
	UnknownPayment = "Não especificado"
	UnknownMonth   = "Sem data"
)

// ParseGroupBy accepts "store", "payment" or "month".
func ParseGroupBy(s string) (GroupBy, error) {
	switch g := GroupBy(strings.ToLower(strings.TrimSpace(s))); g {
	case GroupByStore, GroupByPayment, GroupByMonth:
		return g, nil
	default:
		return "", fmt.Errorf("%w: unknown grouping %q", ErrValidation, s)
	}
}

// PurchaseGroup is one bucket of purchases with its subtotal.
type PurchaseGroup struct {
	Key   string         `json:"key"`
	Items []PurchaseItem `json:"items"`
	Total Money          `json:"total"`
}

// SortPurchasesByDate returns a copy ordered newest first. Purchases on the
// same day keep their insertion order.
func SortPurchasesByDate(items []PurchaseItem) []PurchaseItem {
	out := append([]PurchaseItem{}, items...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PurchaseDate.After(out[j].PurchaseDate.Time)
	})
	return out
}

func groupKey(p PurchaseItem, by GroupBy) string {
	switch by {
	case GroupByPayment:
		if strings.TrimSpace(p.PaymentMethod) == "" {
			return UnknownPayment
		}
		return p.PaymentMethod
	case GroupByMonth:
		if p.PurchaseDate.IsZero() {
			return UnknownMonth
		}
		return p.PurchaseDate.MonthKey()
	default:
		if strings.TrimSpace(p.Store) == "" {
			return UnknownStore
		}
		return p.Store
	}
}

// GroupPurchases buckets items by store, payment method or month. Month
// groups are ordered newest first with undated purchases last; the other
// groupings are ordered by key. Items within a group are newest first.
func GroupPurchases(items []PurchaseItem, by GroupBy) []PurchaseGroup {
	index := map[string]int{}
	var groups []PurchaseGroup
	for _, p := range SortPurchasesByDate(items) {
		key := groupKey(p, by)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, PurchaseGroup{Key: key})
		}
		groups[i].Items = append(groups[i].Items, p)
		groups[i].Total = groups[i].Total.Add(p.Price)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i].Key, groups[j].Key
		if by == GroupByMonth {
			if a == UnknownMonth || b == UnknownMonth {
				return b == UnknownMonth && a != UnknownMonth
			}
			return a > b
		}
		return a < b
	})
	return groups
}
