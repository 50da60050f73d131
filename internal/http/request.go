package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"novoape/internal/core"
	"novoape/internal/session"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

// decodeBody reads exactly one JSON value into dst, rejecting unknown
// fields.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}

// amount accepts a number of reais (15.5) or a decimal string ("15,50" or
// "15.50").
type amount struct {
	core.Money
}

func (a *amount) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		m, err := core.ParseAmount(s)
		if err != nil {
			return err
		}
		a.Money = m
		return nil
	}
	return a.Money.UnmarshalJSON(b)
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

type (
	credentialsRequest struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	nameRequest struct {
		Name string `json:"name"`
	}

	initialCostPatch struct {
		Name    *string    `json:"name"`
		Value   *amount    `json:"value"`
		DueDate *core.Date `json:"dueDate"`
	}

	roomPatch struct {
		Name         *string  `json:"name"`
		SquareMeters *float64 `json:"squareMeters"`
	}

	repairRequest struct {
		Description string `json:"description"`
	}

	materialRequest struct {
		Name      string  `json:"name"`
		Quantity  float64 `json:"quantity"`
		UnitPrice amount  `json:"unitPrice"`
	}

	laborRequest struct {
		ProviderName string `json:"providerName"`
		Phone        string `json:"phone"`
		Price        amount `json:"price"`
	}

	purchaseRequest struct {
		Store         string    `json:"store"`
		ItemName      string    `json:"itemName"`
		Price         amount    `json:"price"`
		PaymentMethod string    `json:"paymentMethod"`
		PurchaseDate  core.Date `json:"purchaseDate"`
	}

	recurringCostRequest struct {
		Name   string `json:"name"`
		Value  amount `json:"value"`
		DueDay int    `json:"dueDay"`
	}

	recurringCostPatch struct {
		Name   *string `json:"name"`
		Value  *amount `json:"value"`
		DueDay *int    `json:"dueDay"`
	}
)

// sanitized returns a copy of name cleaned the same way as every other
// text field, or nil when it was not sent.
func sanitized(name *string) *string {
	if name == nil {
		return nil
	}
	clean := sanitizeInput(*name)
	return &clean
}

func (a *amount) moneyPtr() *core.Money {
	if a == nil {
		return nil
	}
	m := a.Money
	return &m
}

func (p initialCostPatch) patch() session.InitialCostPatch {
	return session.InitialCostPatch{Name: sanitized(p.Name), Value: p.Value.moneyPtr(), DueDate: p.DueDate}
}

func (p roomPatch) patch() session.RoomPatch {
	return session.RoomPatch{Name: sanitized(p.Name), SquareMeters: p.SquareMeters}
}

func (p recurringCostPatch) patch() session.RecurringCostPatch {
	return session.RecurringCostPatch{Name: sanitized(p.Name), Value: p.Value.moneyPtr(), DueDay: p.DueDay}
}
