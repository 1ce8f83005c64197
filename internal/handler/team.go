package handler

import (
	"encoding/json"
	"net/http"

	custommiddleware "github.com/mmeshcher/fieldservice-dashboard/internal/middleware"
	"github.com/mmeshcher/fieldservice-dashboard/internal/session"
	"github.com/mmeshcher/fieldservice-dashboard/internal/team"
)

// teamID берёт бригаду пользователя, которого пропустил RequireSession.
func teamID(r *http.Request) (int64, error) {
	u, ok := custommiddleware.GetUserFromContext(r.Context())
	if !ok {
		return 0, session.ErrNotAuthenticated
	}
	if u.TeamID == nil {
		return 0, team.ErrNoTeam
	}
	return *u.TeamID, nil
}

// ListTeams возвращает список бригад техников.
func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.teams.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, teams)
}

// GetTeam возвращает бригаду текущего пользователя.
func (h *Handler) GetTeam(w http.ResponseWriter, r *http.Request) {
	id, err := teamID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	t, err := h.teams.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, t)
}

// UpdateTeam изменяет название и перерывы бригады текущего пользователя.
func (h *Handler) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	var req team.Update
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id, err := teamID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	t, err := h.teams.Update(r.Context(), id, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, t)
}
