// Package order реализует контроллер жизненного цикла сервисных заказов:
// политику смены статусов по ролям, запросы переходов и создание заказов.
package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/fieldservice-dashboard/internal/apperror"
	"github.com/mmeshcher/fieldservice-dashboard/internal/backend"
	"github.com/mmeshcher/fieldservice-dashboard/internal/journal"
	"github.com/mmeshcher/fieldservice-dashboard/internal/model"
	"github.com/mmeshcher/fieldservice-dashboard/internal/session"
)

const (
	msgTransitionFailed    = "Failed to update order status"
	msgTransitionForbidden = "This status change is not available for your role"
)

// ErrRequestPending возвращается, если по заказу уже ожидается ответ на смену статуса.
var ErrRequestPending = errors.New("status change already in progress")

// API описывает вызовы бэкенда, которые использует контроллер.
type API interface {
	ListOrders(ctx context.Context, q backend.OrdersQuery) (*model.Page[model.Order], error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	CreateOrder(ctx context.Context, in model.CreateOrder) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus) (*backend.StatusUpdate, error)
	ListServices(ctx context.Context) ([]model.Service, error)
}

// View содержит локальное представление заказа для экрана деталей.
type View struct {
	Order   *model.Order        `json:"order"`
	Actions []model.OrderStatus `json:"actions"`
	Request RequestState        `json:"request"`
}

// entry хранит локальное состояние одного заказа. issued растёт при каждом запросе,
// который может изменить заказ. applied хранит номер последнего применённого ответа.
type entry struct {
	order   *model.Order
	issued  uint64
	applied uint64
	req     RequestState
}

// Controller владеет локальными копиями заказов и применяет к ним ответы бэкенда.
type Controller struct {
	api      API
	sessions session.Reader
	journal  journal.Journal
	logger   *zap.Logger
	now      func() time.Time

	mu         sync.Mutex
	orders     map[int64]*entry
	generation uint64
}

// NewController создаёт контроллер заказов.
func NewController(api API, sessions session.Reader, j journal.Journal, logger *zap.Logger) *Controller {
	if j == nil {
		j = journal.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		api:      api,
		sessions: sessions,
		journal:  j,
		logger:   logger,
		now:      time.Now,
		orders:   make(map[int64]*entry),
	}
}

func cloneOrder(o *model.Order) *model.Order {
	if o == nil {
		return nil
	}
	c := *o
	return &c
}

func (c *Controller) entryLocked(id int64) *entry {
	e, ok := c.orders[id]
	if !ok {
		e = &entry{req: idle()}
		c.orders[id] = e
	}
	return e
}

// ticket выдаёт номер очередного запроса по заказу.
func (c *Controller) ticket(id int64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(id)
	e.issued++
	return e.issued
}

// syncSessionLocked сбрасывает локальные копии заказов, если с момента их
// загрузки сменился пользователь сессии.
func (c *Controller) syncSessionLocked(snap session.Snapshot) {
	if snap.Generation == c.generation {
		return
	}
	if len(c.orders) > 0 {
		c.logger.Debug("session changed, order cache dropped", zap.Int("orders", len(c.orders)))
	}
	c.orders = make(map[int64]*entry)
	c.generation = snap.Generation
}

func (c *Controller) authenticated() (session.Snapshot, error) {
	snap := c.sessions.Snapshot()

	c.mu.Lock()
	c.syncSessionLocked(snap)
	c.mu.Unlock()

	if !snap.Authenticated {
		return snap, session.ErrNotAuthenticated
	}
	return snap, nil
}

// List возвращает страницу заказов.
func (c *Controller) List(ctx context.Context, q backend.OrdersQuery) (*model.Page[model.Order], error) {
	if _, err := c.authenticated(); err != nil {
		return nil, err
	}
	page, err := c.api.ListOrders(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return page, nil
}

// Load загружает заказ с бэкенда. Ответ, обогнанный более поздним запросом по
// тому же заказу, отбрасывается, и возвращается актуальная локальная копия.
func (c *Controller) Load(ctx context.Context, id int64) (*model.Order, error) {
	snap, err := c.authenticated()
	if err != nil {
		return nil, err
	}

	t := c.ticket(id)

	o, err := c.api.GetOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != snap.Generation {
		return cloneOrder(o), nil
	}
	e := c.entryLocked(id)
	if t > e.applied {
		e.order = cloneOrder(o)
		e.applied = t
	} else {
		c.logger.Debug("stale order response discarded",
			zap.Int64("orderID", id), zap.Uint64("ticket", t), zap.Uint64("applied", e.applied))
	}
	return cloneOrder(e.order), nil
}

// View возвращает локальное представление заказа и доступные текущей роли действия.
func (c *Controller) View(id int64) (View, bool) {
	snap := c.sessions.Snapshot()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.syncSessionLocked(snap)
	e, ok := c.orders[id]
	if !ok || e.order == nil {
		return View{}, false
	}

	var actions []model.OrderStatus
	if snap.Authenticated {
		actions = Allowed(snap.Privileged(), e.order.Status)
	}
	return View{
		Order:   cloneOrder(e.order),
		Actions: actions,
		Request: e.req,
	}, true
}

// RequestTransition запрашивает смену статуса заказа. Переход, запрещённый политикой,
// отклоняется без обращения к бэкенду. Локальный статус меняется только после
// успешного ответа и выводится из строки статуса, которую вернул бэкенд.
func (c *Controller) RequestTransition(ctx context.Context, id int64, target model.OrderStatus) (*model.Order, error) {
	snap, err := c.authenticated()
	if err != nil {
		return nil, err
	}

	if _, ok := c.View(id); !ok {
		if _, err := c.Load(ctx, id); err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	e := c.entryLocked(id)
	if e.order == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("order %d is not loaded", id)
	}
	from := e.order.Status

	if !CanTransition(snap.Privileged(), from, target) {
		c.mu.Unlock()
		c.record(ctx, snap, id, from, target, journal.OutcomeRejected, msgTransitionForbidden)
		return nil, &apperror.TransitionError{
			OrderID: id,
			From:    string(from),
			To:      string(target),
			Message: msgTransitionForbidden,
		}
	}
	if e.req.Kind == RequestPending {
		c.mu.Unlock()
		return nil, ErrRequestPending
	}

	e.req = pending(target)
	e.issued++
	t := e.issued
	c.mu.Unlock()

	upd, err := c.api.UpdateOrderStatus(ctx, id, target)
	if err != nil {
		msg := backend.MessageOf(err, msgTransitionFailed)
		c.setRequest(e, failed(target, msg))
		c.logger.Warn("order status update failed",
			zap.Int64("orderID", id), zap.String("target", string(target)), zap.Error(err))
		c.record(ctx, snap, id, from, target, journal.OutcomeFailed, msg)
		return nil, &apperror.TransitionError{OrderID: id, From: string(from), To: string(target), Message: msg, Err: err}
	}

	status, err := model.ParseOrderStatus(upd.Status)
	if err != nil {
		c.setRequest(e, failed(target, msgTransitionFailed))
		c.record(ctx, snap, id, from, target, journal.OutcomeFailed, err.Error())
		return nil, &apperror.TransitionError{OrderID: id, From: string(from), To: string(target), Message: msgTransitionFailed, Err: err}
	}

	c.mu.Lock()
	if t > e.applied {
		e.order.Status = status
		if upd.ModifiedBy != "" {
			e.order.ModifiedBy = upd.ModifiedBy
		}
		if upd.ModifiedAt != nil {
			e.order.ModifiedAt = upd.ModifiedAt
		}
		e.applied = t
	}
	e.req = succeeded(target)
	out := cloneOrder(e.order)
	c.mu.Unlock()

	c.logger.Info("order status changed",
		zap.Int64("orderID", id), zap.String("from", string(from)), zap.String("to", string(status)))
	c.record(ctx, snap, id, from, status, journal.OutcomeSucceeded, "")
	return out, nil
}

// setRequest меняет состояние запроса у конкретной записи. Запись, сброшенная
// при смене сессии, в кэш не возвращается.
func (c *Controller) setRequest(e *entry, st RequestState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e.req = st
}

func (c *Controller) record(ctx context.Context, snap session.Snapshot, id int64, from, to model.OrderStatus, outcome journal.Outcome, msg string) {
	var actor int64
	if snap.User != nil {
		actor = snap.User.ID
	}
	err := c.journal.Record(ctx, journal.Entry{
		OrderID:   id,
		ActorID:   actor,
		From:      from,
		To:        to,
		Outcome:   outcome,
		Message:   msg,
		CreatedAt: c.now().UTC(),
	})
	if err != nil {
		c.logger.Error("journal record failed", zap.Int64("orderID", id), zap.Error(err))
	}
}

// History возвращает журнал запросов смены статуса по заказу.
func (c *Controller) History(ctx context.Context, id int64) ([]journal.Entry, error) {
	if _, err := c.authenticated(); err != nil {
		return nil, err
	}
	return c.journal.History(ctx, id)
}

// Services возвращает каталог услуг для формы создания заказа.
func (c *Controller) Services(ctx context.Context) ([]model.Service, error) {
	if _, err := c.authenticated(); err != nil {
		return nil, err
	}
	return c.api.ListServices(ctx)
}
