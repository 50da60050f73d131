package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"novoape/internal/core"
	"novoape/internal/session"
)

type snapshotResponse struct {
	Snapshot core.Snapshot `json:"snapshot"`
	Summary  core.Summary  `json:"summary"`
}

func (s *Server) getSnapshot(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	writeJSON(w, http.StatusOK, snapshotResponse{
		Snapshot: sess.Snapshot(),
		Summary:  sess.Summary(),
	})
}

func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).Summary())
}

func (s *Server) setProjectName(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if err := sessionFrom(r).SetProjectName(r.Context(), sanitizeInput(req.Name)); err != nil {
		writeMappedError(r.Context(), w, "set_project_name", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"projectName": sessionFrom(r).Snapshot().ProjectName})
}

func (s *Server) listInitialCosts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).Snapshot().InitialCosts)
}

func (s *Server) addInitialCost(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	cost, err := sessionFrom(r).AddInitialCost(r.Context(), sanitizeInput(req.Name))
	if err != nil {
		writeMappedError(r.Context(), w, "add_initial_cost", err)
		return
	}
	writeJSON(w, http.StatusCreated, cost)
}

func findByKey[T interface{ Key() string }](items []T, id string) (T, bool) {
	if i := core.IndexOf(items, id); i >= 0 {
		return items[i], true
	}
	var zero T
	return zero, false
}

// patchInitialCost applies the sent fields in one step; a rejected patch
// changes nothing.
func (s *Server) patchInitialCost(w http.ResponseWriter, r *http.Request) {
	var req initialCostPatch
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	cost, err := sessionFrom(r).PatchInitialCost(r.Context(), chi.URLParam(r, "id"), req.patch())
	if err != nil {
		writeMappedError(r.Context(), w, "update_initial_cost", err)
		return
	}
	writeJSON(w, http.StatusOK, cost)
}

func (s *Server) removeInitialCost(w http.ResponseWriter, r *http.Request) {
	if err := sessionFrom(r).RemoveInitialCost(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeMappedError(r.Context(), w, "remove_initial_cost", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listRecurringCosts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).Snapshot().RecurringCosts)
}

func (s *Server) addRecurringCost(w http.ResponseWriter, r *http.Request) {
	var req recurringCostRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	cost, err := sessionFrom(r).AddRecurringCost(r.Context(), session.RecurringCostInput{
		Name:   sanitizeInput(req.Name),
		Value:  req.Value.Money,
		DueDay: req.DueDay,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "add_recurring_cost", err)
		return
	}
	writeJSON(w, http.StatusCreated, cost)
}

func (s *Server) patchRecurringCost(w http.ResponseWriter, r *http.Request) {
	var req recurringCostPatch
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	cost, err := sessionFrom(r).PatchRecurringCost(r.Context(), chi.URLParam(r, "id"), req.patch())
	if err != nil {
		writeMappedError(r.Context(), w, "update_recurring_cost", err)
		return
	}
	writeJSON(w, http.StatusOK, cost)
}

func (s *Server) removeRecurringCost(w http.ResponseWriter, r *http.Request) {
	if err := sessionFrom(r).RemoveRecurringCost(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeMappedError(r.Context(), w, "remove_recurring_cost", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listBills(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).Bills())
}
