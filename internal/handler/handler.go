// Package handler содержит HTTP API дашборда для слоя отображения.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/fieldservice-dashboard/internal/apperror"
	"github.com/mmeshcher/fieldservice-dashboard/internal/backend"
	"github.com/mmeshcher/fieldservice-dashboard/internal/journal"
	"github.com/mmeshcher/fieldservice-dashboard/internal/model"
	"github.com/mmeshcher/fieldservice-dashboard/internal/order"
	"github.com/mmeshcher/fieldservice-dashboard/internal/session"
	"github.com/mmeshcher/fieldservice-dashboard/internal/team"
)

// Sessions определяет операции менеджера сессии, используемые обработчиками.
type Sessions interface {
	Snapshot() session.Snapshot
	Login(ctx context.Context, c session.Credentials) (session.Snapshot, error)
	Logout(ctx context.Context)
	FetchProfile(ctx context.Context) session.Snapshot
	Register(ctx context.Context, r session.Registration) (*model.User, error)
	Activate(ctx context.Context, token string) error
	UpdateProfile(ctx context.Context, upd session.ProfileUpdate) (session.Snapshot, error)
}

// Orders определяет операции контроллера заказов.
type Orders interface {
	List(ctx context.Context, q backend.OrdersQuery) (*model.Page[model.Order], error)
	Load(ctx context.Context, id int64) (*model.Order, error)
	View(id int64) (order.View, bool)
	RequestTransition(ctx context.Context, id int64, target model.OrderStatus) (*model.Order, error)
	CreateOrder(ctx context.Context, d order.Draft) (int64, error)
	History(ctx context.Context, id int64) ([]journal.Entry, error)
	Services(ctx context.Context) ([]model.Service, error)
}

// Teams определяет операции над бригадами техников.
type Teams interface {
	List(ctx context.Context) ([]model.TechnicianTeam, error)
	Get(ctx context.Context, id int64) (*model.TechnicianTeam, error)
	Update(ctx context.Context, id int64, upd team.Update) (*model.TechnicianTeam, error)
}

// Handler реализует HTTP-обработчики дашборда.
type Handler struct {
	sessions Sessions
	orders   Orders
	teams    Teams
	logger   *zap.Logger
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Sessions, o Orders, t Teams, logger *zap.Logger) *Handler {
	return &Handler{
		sessions: s,
		orders:   o,
		teams:    t,
		logger:   logger,
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

type validationResponse struct {
	Message string                `json:"message"`
	Errors  []apperror.FieldError `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

// writeError переводит ошибку в HTTP-ответ с сообщением, пригодным для показа пользователю.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr    *apperror.ValidationError
		authErr *apperror.AuthError
		actErr  *apperror.ActivationError
		trErr   *apperror.TransitionError
	)

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Message: verr.Error(), Errors: verr.Fields})
	case errors.As(err, &authErr):
		writeMessage(w, http.StatusUnauthorized, authErr.Message)
	case errors.As(err, &actErr):
		writeMessage(w, http.StatusBadRequest, actErr.Message)
	case apperror.IsTransport(err):
		h.logger.Warn("backend unavailable", zap.String("uri", r.RequestURI), zap.Error(err))
		writeMessage(w, http.StatusBadGateway, "Service unavailable, please try again later")
	case errors.Is(err, order.ErrRequestPending):
		writeMessage(w, http.StatusConflict, err.Error())
	case errors.As(err, &trErr):
		writeMessage(w, http.StatusConflict, trErr.Message)
	case errors.Is(err, team.ErrNotTeamMember), errors.Is(err, team.ErrNoTeam):
		writeMessage(w, http.StatusForbidden, err.Error())
	default:
		if apiErr, ok := backend.AsAPIError(err); ok && apiErr.StatusCode == http.StatusNotFound {
			writeMessage(w, http.StatusNotFound, backend.MessageOf(err, http.StatusText(http.StatusNotFound)))
			return
		}
		h.logger.Error("request failed", zap.String("uri", r.RequestURI), zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, backend.MessageOf(err, http.StatusText(http.StatusInternalServerError)))
	}
}
