// Package journal хранит журнал запросов на смену статуса заказов, отправленных из дашборда.
package journal

import (
	"context"
	"time"

	"github.com/mmeshcher/fieldservice-dashboard/internal/model"
)

// Outcome описывает итог запроса на смену статуса.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeRejected  Outcome = "rejected"
	OutcomeFailed    Outcome = "failed"
)

// Entry описывает одну запись журнала.
type Entry struct {
	OrderID   int64             `json:"orderId"`
	ActorID   int64             `json:"actorId"`
	From      model.OrderStatus `json:"from"`
	To        model.OrderStatus `json:"to"`
	Outcome   Outcome           `json:"outcome"`
	Message   string            `json:"message,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Journal описывает хранилище журнала.
type Journal interface {
	Record(ctx context.Context, e Entry) error
	History(ctx context.Context, orderID int64) ([]Entry, error)
	Close() error
}

// Nop не хранит записи. Используется, когда БД не настроена.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

func (Nop) History(context.Context, int64) ([]Entry, error) { return nil, nil }

func (Nop) Close() error { return nil }
