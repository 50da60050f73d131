package core

import (
	"errors"
	"fmt"
	"strings"
)

// Collection names as they appear under users/{uid}.
const (
	CollectionInitialCosts   = "initialCosts"
	CollectionRooms          = "rooms"
	CollectionPurchases      = "purchases"
	CollectionRecurringCosts = "recurringCosts"
	CollectionChecklist      = "checklist"
)

// Collections lists every per-user collection in load order.
var Collections = []string{
	CollectionInitialCosts,
	CollectionRooms,
	CollectionPurchases,
	CollectionRecurringCosts,
	CollectionChecklist,
}

type (
	InitialCost struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Value   Money  `json:"value"`
		DueDate Date   `json:"dueDate"`
	}

	RepairItem struct {
		ID          string `json:"id"`
		Description string `json:"description"`
		Completed   bool   `json:"completed"`
	}

	MaterialItem struct {
		ID        string  `json:"id"`
		Name      string  `json:"name"`
		Quantity  float64 `json:"quantity"`
		UnitPrice Money   `json:"unitPrice"`
	}

	LaborItem struct {
		ID           string `json:"id"`
		ProviderName string `json:"providerName"`
		Phone        string `json:"phone"`
		Price        Money  `json:"price"`
	}

	// Room owns its repairs, materials and labor; they are stored inside the
	// room document and never on their own.
	Room struct {
		ID           string         `json:"id"`
		Name         string         `json:"name"`
		SquareMeters float64        `json:"squareMeters"`
		Repairs      []RepairItem   `json:"repairs"`
		Materials    []MaterialItem `json:"materials"`
		Labor        []LaborItem    `json:"labor"`
	}

	PurchaseItem struct {
		ID            string `json:"id"`
		Store         string `json:"store"`
		ItemName      string `json:"itemName"`
		Price         Money  `json:"price"`
		PaymentMethod string `json:"paymentMethod"`
		PurchaseDate  Date   `json:"purchaseDate"`
	}

	RecurringCost struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Value  Money  `json:"value"`
		DueDay int    `json:"dueDay"`
	}

	ChecklistItem struct {
		ID        string `json:"id"`
		Text      string `json:"text"`
		Completed bool   `json:"completed"`
	}

	// ChecklistSection is persisted as a single document: toggling any item
	// rewrites the whole section.
	ChecklistSection struct {
		ID    string          `json:"id"`
		Title string          `json:"title"`
		Items []ChecklistItem `json:"items"`
	}

	User struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	// Profile is the users/{uid} document.
	Profile struct {
		ProjectName string `json:"projectName,omitempty"`
	}
)

var (
	// ErrValidation is wrapped by every input validation error below.
	ErrValidation = errors.New("validation failed")

	ErrEmptyName        = fmt.Errorf("%w: name is required", ErrValidation)
	ErrEmptyDescription = fmt.Errorf("%w: description is required", ErrValidation)
	ErrEmptyStore       = fmt.Errorf("%w: store is required", ErrValidation)
	ErrEmptyItemName    = fmt.Errorf("%w: item name is required", ErrValidation)
	ErrEmptyProvider    = fmt.Errorf("%w: provider name is required", ErrValidation)
	ErrEmptyTitle       = fmt.Errorf("%w: title is required", ErrValidation)
	ErrEmptyText        = fmt.Errorf("%w: text is required", ErrValidation)
	ErrEmptyID          = fmt.Errorf("%w: id is required", ErrValidation)
	ErrInvalidAmount    = fmt.Errorf("%w: amount must not be negative", ErrValidation)
	ErrInvalidQuantity  = fmt.Errorf("%w: quantity must be positive", ErrValidation)
	ErrInvalidArea      = fmt.Errorf("%w: area must not be negative", ErrValidation)
	ErrInvalidDueDay    = fmt.Errorf("%w: due day must be between 1 and 31", ErrValidation)
	ErrNameTooLong      = fmt.Errorf("%w: name too long (max %d characters)", ErrValidation, MaxNameLength)

	// ErrNotFound reports an update or toggle addressed to an unknown id.
	ErrNotFound = errors.New("record not found")
)

// MaxNameLength bounds every free-text field.
const MaxNameLength = 200

// IsValidation reports whether err is an input validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func requireText(s string, empty error) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return empty
	}
	if len(s) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

// ValidateName checks a required name field.
func ValidateName(name string) error {
	return requireText(name, ErrEmptyName)
}

func (c InitialCost) Validate() error {
	if err := requireText(c.Name, ErrEmptyName); err != nil {
		return err
	}
	return c.Value.Validate()
}

func (r RepairItem) Validate() error {
	return requireText(r.Description, ErrEmptyDescription)
}

func (m MaterialItem) Validate() error {
	if err := requireText(m.Name, ErrEmptyName); err != nil {
		return err
	}
	if m.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	return m.UnitPrice.Validate()
}

func (l LaborItem) Validate() error {
	if err := requireText(l.ProviderName, ErrEmptyProvider); err != nil {
		return err
	}
	return l.Price.Validate()
}

func (r Room) Validate() error {
	if err := requireText(r.Name, ErrEmptyName); err != nil {
		return err
	}
	if r.SquareMeters < 0 {
		return ErrInvalidArea
	}
	for _, it := range r.Repairs {
		if err := it.Validate(); err != nil {
			return err
		}
	}
	for _, it := range r.Materials {
		if err := it.Validate(); err != nil {
			return err
		}
	}
	for _, it := range r.Labor {
		if err := it.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (p PurchaseItem) Validate() error {
	if err := requireText(p.Store, ErrEmptyStore); err != nil {
		return err
	}
	if err := requireText(p.ItemName, ErrEmptyItemName); err != nil {
		return err
	}
	return p.Price.Validate()
}

// ValidateDueDay checks a day-of-month in 1..31.
func ValidateDueDay(day int) error {
	if day < 1 || day > 31 {
		return ErrInvalidDueDay
	}
	return nil
}

func (r RecurringCost) Validate() error {
	if err := requireText(r.Name, ErrEmptyName); err != nil {
		return err
	}
	if err := r.Value.Validate(); err != nil {
		return err
	}
	return ValidateDueDay(r.DueDay)
}

func (s ChecklistSection) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return ErrEmptyID
	}
	if err := requireText(s.Title, ErrEmptyTitle); err != nil {
		return err
	}
	for _, it := range s.Items {
		if err := requireText(it.Text, ErrEmptyText); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy so callers never share sub-item slices.
func (r Room) Clone() Room {
	out := r
	out.Repairs = append([]RepairItem{}, r.Repairs...)
	out.Materials = append([]MaterialItem{}, r.Materials...)
	out.Labor = append([]LaborItem{}, r.Labor...)
	return out
}

// Clone returns a deep copy of the section and its items.
func (s ChecklistSection) Clone() ChecklistSection {
	out := s
	out.Items = append([]ChecklistItem{}, s.Items...)
	return out
}

// Key returns the document id a record is stored under.
func (c InitialCost) Key() string      { return c.ID }
func (r Room) Key() string             { return r.ID }
func (p PurchaseItem) Key() string     { return p.ID }
func (r RecurringCost) Key() string    { return r.ID }
func (s ChecklistSection) Key() string { return s.ID }

func (r RepairItem) Key() string    { return r.ID }
func (m MaterialItem) Key() string  { return m.ID }
func (l LaborItem) Key() string     { return l.ID }
func (c ChecklistItem) Key() string { return c.ID }

// IndexOf returns the position of the record keyed id, or -1.
func IndexOf[T interface{ Key() string }](items []T, id string) int {
	for i, it := range items {
		if it.Key() == id {
			return i
		}
	}
	return -1
}
