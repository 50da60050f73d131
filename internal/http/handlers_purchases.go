package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"novoape/internal/core"
	"novoape/internal/session"
)

func (req purchaseRequest) input() session.PurchaseInput {
	return session.PurchaseInput{
		Store:         sanitizeInput(req.Store),
		ItemName:      sanitizeInput(req.ItemName),
		Price:         req.Price.Money,
		PaymentMethod: sanitizeInput(req.PaymentMethod),
		PurchaseDate:  req.PurchaseDate,
	}
}

// listPurchases returns purchases newest first.
func (s *Server) listPurchases(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, core.SortPurchasesByDate(sessionFrom(r).Snapshot().Purchases))
}

func (s *Server) addPurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	item, err := sessionFrom(r).AddPurchase(r.Context(), req.input())
	if err != nil {
		writeMappedError(r.Context(), w, "add_purchase", err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) updatePurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	item, err := sessionFrom(r).UpdatePurchase(r.Context(), chi.URLParam(r, "id"), req.input())
	if err != nil {
		writeMappedError(r.Context(), w, "update_purchase", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) removePurchase(w http.ResponseWriter, r *http.Request) {
	if err := sessionFrom(r).RemovePurchase(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeMappedError(r.Context(), w, "remove_purchase", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) purchaseGroups(w http.ResponseWriter, r *http.Request) {
	by, err := core.ParseGroupBy(r.URL.Query().Get("by"))
	if err != nil {
		writeMappedError(r.Context(), w, "purchase_groups", err)
		return
	}
	groups := sessionFrom(r).PurchaseGroups(by)
	if groups == nil {
		groups = []core.PurchaseGroup{}
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) listPaymentMethods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).PaymentMethods())
}

func (s *Server) addPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	sess := sessionFrom(r)
	if err := sess.AddPaymentMethod(sanitizeInput(req.Name)); err != nil {
		writeMappedError(r.Context(), w, "add_payment_method", err)
		return
	}
	writeJSON(w, http.StatusOK, sess.PaymentMethods())
}

type checklistResponse struct {
	Sections []core.ChecklistSection `json:"sections"`
	Progress int                     `json:"progress"`
}

func (s *Server) getChecklist(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	writeJSON(w, http.StatusOK, checklistResponse{
		Sections: sess.Snapshot().Checklist,
		Progress: sess.ChecklistProgress(),
	})
}

func (s *Server) toggleChecklistItem(w http.ResponseWriter, r *http.Request) {
	item, err := sessionFrom(r).ToggleChecklistItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeMappedError(r.Context(), w, "toggle_checklist_item", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}
