package order

import "github.com/mmeshcher/fieldservice-dashboard/internal/model"

// Привилегированная роль (оператор) может только отменить незавершённый заказ.
// Остальные роли (исполнитель) могут только продвигать заказ вперёд и не могут его отменить.
var (
	privilegedTransitions = map[model.OrderStatus][]model.OrderStatus{
		model.OrderStatusTodo:       {model.OrderStatusCancelled},
		model.OrderStatusInProgress: {model.OrderStatusCancelled},
	}
	fulfillerTransitions = map[model.OrderStatus][]model.OrderStatus{
		model.OrderStatusTodo:       {model.OrderStatusInProgress},
		model.OrderStatusInProgress: {model.OrderStatusDone},
	}
)

// Allowed возвращает статусы, в которые роль может перевести заказ из статуса from.
// Для терминальных статусов список пуст.
func Allowed(privileged bool, from model.OrderStatus) []model.OrderStatus {
	table := fulfillerTransitions
	if privileged {
		table = privilegedTransitions
	}
	targets := table[from]
	out := make([]model.OrderStatus, len(targets))
	copy(out, targets)
	return out
}

// CanTransition сообщает, разрешён ли переход from -> to для роли.
func CanTransition(privileged bool, from, to model.OrderStatus) bool {
	for _, st := range Allowed(privileged, from) {
		if st == to {
			return true
		}
	}
	return false
}
