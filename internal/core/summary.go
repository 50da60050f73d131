package core

import "math"

// Snapshot is a read-consistent copy of one project's state.
type Snapshot struct {
	ProjectName    string             `json:"projectName"`
	InitialCosts   []InitialCost      `json:"initialCosts"`
	Rooms          []Room             `json:"rooms"`
	Purchases      []PurchaseItem     `json:"purchases"`
	RecurringCosts []RecurringCost    `json:"recurringCosts"`
	Checklist      []ChecklistSection `json:"checklist"`
	PaymentMethods []string           `json:"paymentMethods"`
}

// Clone deep-copies every collection.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		ProjectName:    s.ProjectName,
		InitialCosts:   append([]InitialCost{}, s.InitialCosts...),
		Purchases:      append([]PurchaseItem{}, s.Purchases...),
		RecurringCosts: append([]RecurringCost{}, s.RecurringCosts...),
		PaymentMethods: append([]string{}, s.PaymentMethods...),
		Rooms:          make([]Room, len(s.Rooms)),
		Checklist:      make([]ChecklistSection, len(s.Checklist)),
	}
	for i, r := range s.Rooms {
		out.Rooms[i] = r.Clone()
	}
	for i, sec := range s.Checklist {
		out.Checklist[i] = sec.Clone()
	}
	return out
}

// MaterialsTotal is the sum of quantity times unit price.
func (r Room) MaterialsTotal() Money {
	var total Money
	for _, m := range r.Materials {
		total = total.Add(m.UnitPrice.Times(m.Quantity))
	}
	return total
}

func (r Room) LaborTotal() Money {
	var total Money
	for _, l := range r.Labor {
		total = total.Add(l.Price)
	}
	return total
}

// Total is the derived room cost. It is never stored.
func (r Room) Total() Money {
	return r.MaterialsTotal().Add(r.LaborTotal())
}

// RepairsDone counts completed repairs.
func (r Room) RepairsDone() int {
	n := 0
	for _, it := range r.Repairs {
		if it.Completed {
			n++
		}
	}
	return n
}

func InitialCostsTotal(costs []InitialCost) Money {
	var total Money
	for _, c := range costs {
		total = total.Add(c.Value)
	}
	return total
}

func RoomsTotal(rooms []Room) Money {
	var total Money
	for _, r := range rooms {
		total = total.Add(r.Total())
	}
	return total
}

func PurchasesTotal(items []PurchaseItem) Money {
	var total Money
	for _, p := range items {
		total = total.Add(p.Price)
	}
	return total
}

// RecurringMonthlyTotal sums every recurring bill once.
func RecurringMonthlyTotal(costs []RecurringCost) Money {
	var total Money
	for _, c := range costs {
		total = total.Add(c.Value)
	}
	return total
}

// TotalArea sums the floor area of every room.
func TotalArea(rooms []Room) float64 {
	var area float64
	for _, r := range rooms {
		area += r.SquareMeters
	}
	return area
}

// GrandTotal is initial costs plus room costs plus purchases. Recurring
// bills are monthly and stay out of it.
func (s Snapshot) GrandTotal() Money {
	return InitialCostsTotal(s.InitialCosts).
		Add(RoomsTotal(s.Rooms)).
		Add(PurchasesTotal(s.Purchases))
}

// ChecklistProgress returns round(completed/total*100) across every
// section, or 0 when there are no items.
func ChecklistProgress(sections []ChecklistSection) int {
	total, done := 0, 0
	for _, s := range sections {
		for _, it := range s.Items {
			total++
			if it.Completed {
				done++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}

// LastPurchase returns the most recently added purchase.
func (s Snapshot) LastPurchase() (PurchaseItem, bool) {
	if len(s.Purchases) == 0 {
		return PurchaseItem{}, false
	}
	return s.Purchases[len(s.Purchases)-1], true
}

// RoomSummary carries one room's derived totals.
type RoomSummary struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	SquareMeters   float64 `json:"squareMeters"`
	MaterialsTotal Money   `json:"materialsTotal"`
	LaborTotal     Money   `json:"laborTotal"`
	Total          Money   `json:"total"`
	RepairsDone    int     `json:"repairsDone"`
	RepairsTotal   int     `json:"repairsTotal"`
}

// Summary holds every value derived from a Snapshot for the dashboard.
type Summary struct {
	GrandTotal        Money         `json:"grandTotal"`
	InitialCostsTotal Money         `json:"initialCostsTotal"`
	RoomsTotal        Money         `json:"roomsTotal"`
	PurchasesTotal    Money         `json:"purchasesTotal"`
	RecurringMonthly  Money         `json:"recurringMonthly"`
	TotalArea         float64       `json:"totalArea"`
	ChecklistProgress int           `json:"checklistProgress"`
	Rooms             []RoomSummary `json:"rooms"`
	LastPurchase      *PurchaseItem `json:"lastPurchase,omitempty"`
}

// Summarize recomputes every derived value.
func (s Snapshot) Summarize() Summary {
	sum := Summary{
		GrandTotal:        s.GrandTotal(),
		InitialCostsTotal: InitialCostsTotal(s.InitialCosts),
		RoomsTotal:        RoomsTotal(s.Rooms),
		PurchasesTotal:    PurchasesTotal(s.Purchases),
		RecurringMonthly:  RecurringMonthlyTotal(s.RecurringCosts),
		TotalArea:         TotalArea(s.Rooms),
		ChecklistProgress: ChecklistProgress(s.Checklist),
		Rooms:             make([]RoomSummary, 0, len(s.Rooms)),
	}
	for _, r := range s.Rooms {
		sum.Rooms = append(sum.Rooms, RoomSummary{
			ID:             r.ID,
			Name:           r.Name,
			SquareMeters:   r.SquareMeters,
			MaterialsTotal: r.MaterialsTotal(),
			LaborTotal:     r.LaborTotal(),
			Total:          r.Total(),
			RepairsDone:    r.RepairsDone(),
			RepairsTotal:   len(r.Repairs),
		})
	}
	if p, ok := s.LastPurchase(); ok {
		sum.LastPurchase = &p
	}
	return sum
}
