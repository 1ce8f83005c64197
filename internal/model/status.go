package model

import (
	"fmt"
	"strings"
)

// OrderStatus описывает состояние заказа в жизненном цикле. Значение хранится в форме,
// которую использует бэкенд в путях и ответах.
type OrderStatus string

const (
	OrderStatusTodo       OrderStatus = "to-do"
	OrderStatusInProgress OrderStatus = "in-progress"
	OrderStatusDone       OrderStatus = "done"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var orderStatuses = []OrderStatus{
	OrderStatusTodo,
	OrderStatusInProgress,
	OrderStatusDone,
	OrderStatusCancelled,
}

// ParseOrderStatus приводит строку статуса к перечислению. Регистр не учитывается,
// подчёркивания и пробелы трактуются как дефисы, так что "IN_PROGRESS" и "in-progress" равнозначны.
func ParseOrderStatus(s string) (OrderStatus, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", "-", " ", "-").Replace(norm)

	for _, st := range orderStatuses {
		if string(st) == norm || strings.ReplaceAll(string(st), "-", "") == norm {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// Terminal сообщает, что из статуса нет переходов.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDone || s == OrderStatusCancelled
}

// Valid сообщает, является ли значение известным статусом.
func (s OrderStatus) Valid() bool {
	for _, st := range orderStatuses {
		if st == s {
			return true
		}
	}
	return false
}
