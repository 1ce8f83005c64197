package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/fieldservice-dashboard/internal/session"
)

// maxProfileForm ограничивает размер формы профиля вместе с аватаром.
const maxProfileForm = 10 << 20

// GetSession возвращает текущий снимок сессии.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.Snapshot())
}

// Login выполняет вход по email и паролю.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req session.Credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	snap, err := h.sessions.Login(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// Logout завершает сессию. Ответ всегда успешный.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout(r.Context())
	writeJSON(w, http.StatusOK, h.sessions.Snapshot())
}

// RefreshSession повторно запрашивает профиль у бэкенда.
func (h *Handler) RefreshSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.FetchProfile(r.Context()))
}

// Register регистрирует новую учётную запись без входа в неё.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req session.Registration
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	user, err := h.sessions.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// Activate подтверждает учётную запись по токену из письма.
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Activate(r.Context(), r.URL.Query().Get("token")); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateProfile принимает multipart-форму профиля с необязательным аватаром.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxProfileForm); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	upd := session.ProfileUpdate{
		Name:    formValue(r, "name"),
		Address: formValue(r, "address"),
		Contact: formValue(r, "contact"),
	}

	file, header, err := r.FormFile("avatar")
	switch {
	case err == nil:
		defer file.Close()
		upd.Avatar = file
		upd.AvatarFilename = header.Filename
	case errors.Is(err, http.ErrMissingFile):
	default:
		h.logger.Warn("read avatar error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	snap, err := h.sessions.UpdateProfile(r.Context(), upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// formValue возвращает значение поля формы или nil, если поле не передано.
func formValue(r *http.Request, key string) *string {
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}
