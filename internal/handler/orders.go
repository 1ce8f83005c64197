package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/fieldservice-dashboard/internal/apperror"
	"github.com/mmeshcher/fieldservice-dashboard/internal/backend"
	"github.com/mmeshcher/fieldservice-dashboard/internal/model"
	"github.com/mmeshcher/fieldservice-dashboard/internal/order"
)

type createOrderResponse struct {
	ID int64 `json:"id"`
}

func orderID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// ListOrders возвращает страницу заказов с поиском по ключевым словам.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	page, ok := queryInt(r, "page")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	orders, err := h.orders.List(r.Context(), backend.OrdersQuery{
		Keywords: r.URL.Query().Get("keywords"),
		Limit:    limit,
		Page:     page,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// GetOrder загружает заказ и возвращает его вместе с доступными действиями.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if _, err := h.orders.Load(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeView(w, id)
}

// TransitionOrder запрашивает смену статуса заказа.
func (h *Handler) TransitionOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	target, err := model.ParseOrderStatus(chi.URLParam(r, "status"))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if _, err := h.orders.RequestTransition(r.Context(), id, target); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeView(w, id)
}

func (h *Handler) writeView(w http.ResponseWriter, id int64) {
	view, ok := h.orders.View(id)
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// OrderHistory возвращает журнал смен статуса заказа.
func (h *Handler) OrderHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	entries, err := h.orders.History(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if len(entries) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// CreateOrder создаёт заказ из черновика формы.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var draft order.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		var verr *apperror.ValidationError
		if errors.As(err, &verr) {
			h.writeError(w, r, verr)
			return
		}
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id, err := h.orders.CreateOrder(r.Context(), draft)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createOrderResponse{ID: id})
}

// ListServices возвращает каталог услуг.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.orders.Services(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, services)
}
