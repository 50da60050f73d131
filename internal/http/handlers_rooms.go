package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"novoape/internal/core"
	"novoape/internal/session"
)

func (s *Server) listRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).Snapshot().Rooms)
}

func (s *Server) getRoom(w http.ResponseWriter, r *http.Request) {
	room, ok := findByKey(sessionFrom(r).Snapshot().Rooms, chi.URLParam(r, "id"))
	if !ok {
		writeMappedError(r.Context(), w, "get_room", core.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *Server) addRoom(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	room, err := sessionFrom(r).AddRoom(r.Context(), sanitizeInput(req.Name))
	if err != nil {
		writeMappedError(r.Context(), w, "add_room", err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

func (s *Server) patchRoom(w http.ResponseWriter, r *http.Request) {
	var req roomPatch
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	room, err := sessionFrom(r).PatchRoom(r.Context(), chi.URLParam(r, "id"), req.patch())
	if err != nil {
		writeMappedError(r.Context(), w, "update_room", err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *Server) removeRoom(w http.ResponseWriter, r *http.Request) {
	if err := sessionFrom(r).RemoveRoom(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeMappedError(r.Context(), w, "remove_room", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addRepair(w http.ResponseWriter, r *http.Request) {
	var req repairRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	item, err := sessionFrom(r).AddRepair(r.Context(), chi.URLParam(r, "id"), sanitizeInput(req.Description))
	if err != nil {
		writeMappedError(r.Context(), w, "add_repair", err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) toggleRepair(w http.ResponseWriter, r *http.Request) {
	item, err := sessionFrom(r).ToggleRepair(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemID"))
	if err != nil {
		writeMappedError(r.Context(), w, "toggle_repair", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) removeRepair(w http.ResponseWriter, r *http.Request) {
	if err := sessionFrom(r).RemoveRepair(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemID")); err != nil {
		writeMappedError(r.Context(), w, "remove_repair", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addMaterial(w http.ResponseWriter, r *http.Request) {
	var req materialRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	item, err := sessionFrom(r).AddMaterial(r.Context(), chi.URLParam(r, "id"), session.MaterialInput{
		Name:      sanitizeInput(req.Name),
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice.Money,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "add_material", err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) removeMaterial(w http.ResponseWriter, r *http.Request) {
	if err := sessionFrom(r).RemoveMaterial(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemID")); err != nil {
		writeMappedError(r.Context(), w, "remove_material", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addLabor(w http.ResponseWriter, r *http.Request) {
	var req laborRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	item, err := sessionFrom(r).AddLabor(r.Context(), chi.URLParam(r, "id"), session.LaborInput{
		ProviderName: sanitizeInput(req.ProviderName),
		Phone:        sanitizeInput(req.Phone),
		Price:        req.Price.Money,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "add_labor", err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) removeLabor(w http.ResponseWriter, r *http.Request) {
	if err := sessionFrom(r).RemoveLabor(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemID")); err != nil {
		writeMappedError(r.Context(), w, "remove_labor", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
