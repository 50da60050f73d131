package core

import (
	"fmt"
	"sort"
	"time"
)

// BillState classifies a recurring bill relative to today.
type BillState string

const (
	BillOverdue  BillState = "overdue"
	BillDueSoon  BillState = "due_soon"
	BillUpcoming BillState = "upcoming"
)

// DueSoonWindow is how many days ahead a bill counts as due soon.
const DueSoonWindow = 7

// BillStatus is the dashboard view of one recurring cost.
type BillStatus struct {
	Cost          RecurringCost `json:"cost"`
	State         BillState     `json:"state"`
	EffectiveDay  int           `json:"effectiveDay"`
	DaysRemaining int           `json:"daysRemaining"`
	Label         string        `json:"label"`
}

// EffectiveDueDay clamps dueDay to the last day of today's month, so a bill
// due on the 31st falls on the 30th in April and on the 28th or 29th in February.
func EffectiveDueDay(dueDay int, today time.Time) int {
	lastDay := time.Date(today.Year(), today.Month()+1, 0, 0, 0, 0, 0, today.Location()).Day()
	if dueDay > lastDay {
		return lastDay
	}
	if dueDay < 1 {
		return 1
	}
	return dueDay
}

// BillStatusOn computes the status of cost within today's month.
func BillStatusOn(cost RecurringCost, today time.Time) BillStatus {
	day := EffectiveDueDay(cost.DueDay, today)
	remaining := day - today.Day()
	st := BillStatus{Cost: cost, EffectiveDay: day, DaysRemaining: remaining}
	switch {
	case remaining < 0:
		st.State = BillOverdue
		st.Label = fmt.Sprintf("Venceu dia %d", day)
	case remaining <= DueSoonWindow:
		st.State = BillDueSoon
		st.Label = fmt.Sprintf("Vence em %d dias", remaining)
	default:
		st.State = BillUpcoming
		st.Label = fmt.Sprintf("Vence dia %d", day)
	}
	return st
}

// BillStatuses returns the status of every cost ordered by due day.
func BillStatuses(costs []RecurringCost, today time.Time) []BillStatus {
	sorted := append([]RecurringCost{}, costs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].DueDay < sorted[j].DueDay })
	out := make([]BillStatus, 0, len(sorted))
	for _, c := range sorted {
		out = append(out, BillStatusOn(c, today))
	}
	return out
}
