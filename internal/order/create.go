package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/fieldservice-dashboard/internal/apperror"
	"github.com/mmeshcher/fieldservice-dashboard/internal/backend"
	"github.com/mmeshcher/fieldservice-dashboard/internal/model"
	"github.com/mmeshcher/fieldservice-dashboard/internal/validation"
)

// Draft содержит данные формы создания заказа. Повтор идентификатора услуги в ServiceIDs
// увеличивает её количество.
type Draft struct {
	Name              string         `json:"name"`
	Description       string         `json:"description"`
	Priority          model.Priority `json:"priority"`
	StartDate         time.Time      `json:"start_date"`
	EndDate           time.Time      `json:"end_date"`
	LocationAddress   string         `json:"location_address"`
	LocationLatitude  *float64       `json:"location_latitude,omitempty"`
	LocationLongitude *float64       `json:"location_longitude,omitempty"`
	TeamID            int64          `json:"teamId"`
	ServiceIDs        []int64        `json:"services"`
}

// draftTimeLayouts перечисляет принимаемые форматы дат. Значения без зоны,
// как их отдаёт поле datetime-local, трактуются в локальном времени.
var draftTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// UnmarshalJSON разбирает черновик, принимая даты в RFC 3339 и в формате
// datetime-local. Нераспознанная дата возвращается как ошибка поля.
func (d *Draft) UnmarshalJSON(b []byte) error {
	type plain Draft
	aux := struct {
		*plain
		StartDate json.RawMessage `json:"start_date"`
		EndDate   json.RawMessage `json:"end_date"`
	}{plain: (*plain)(d)}

	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	verr := &apperror.ValidationError{}
	var ok bool
	if d.StartDate, ok = parseDraftTime(aux.StartDate); !ok {
		verr.Add("start_date", "Start date has an invalid format")
	}
	if d.EndDate, ok = parseDraftTime(aux.EndDate); !ok {
		verr.Add("end_date", "End date has an invalid format")
	}
	return verr.OrNil()
}

func parseDraftTime(raw json.RawMessage) (time.Time, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, false
	}
	if s == "" {
		return time.Time{}, true
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	for _, layout := range draftTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// LineItem описывает услугу заказа с количеством и ценой на момент заказа.
type LineItem struct {
	ServiceID int64
	Quantity  int
	Price     float64
}

// LineItems сопоставляет выбранные услуги с каталогом, сохраняя порядок первого выбора.
func LineItems(catalog []model.Service, ids []int64) ([]LineItem, error) {
	prices := make(map[int64]float64, len(catalog))
	for _, s := range catalog {
		prices[s.ID] = s.Price
	}

	var (
		items []LineItem
		index = make(map[int64]int, len(ids))
	)
	verr := &apperror.ValidationError{}
	for _, id := range ids {
		price, ok := prices[id]
		if !ok {
			verr.Add("services", fmt.Sprintf("Service %d is not available", id))
			continue
		}
		if i, seen := index[id]; seen {
			items[i].Quantity++
			continue
		}
		index[id] = len(items)
		items = append(items, LineItem{ServiceID: id, Quantity: 1, Price: price})
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return items, nil
}

// TotalCost считает сумму price × quantity в целых центах, чтобы не накапливать
// погрешность float64.
func TotalCost(items []LineItem) float64 {
	var cents int64
	for _, it := range items {
		cents += int64(math.Round(it.Price*100)) * int64(it.Quantity)
	}
	return float64(cents) / 100
}

// CreateOrder проверяет черновик, считает итоговую стоимость по каталогу услуг и
// создаёт заказ от имени текущего пользователя. Возвращает идентификатор, присвоенный бэкендом.
func (c *Controller) CreateOrder(ctx context.Context, d Draft) (int64, error) {
	snap, err := c.authenticated()
	if err != nil {
		return 0, err
	}

	in := model.CreateOrder{
		Name:              d.Name,
		Description:       d.Description,
		Priority:          d.Priority,
		StartDate:         d.StartDate,
		EndDate:           d.EndDate,
		LocationAddress:   d.LocationAddress,
		LocationLatitude:  d.LocationLatitude,
		LocationLongitude: d.LocationLongitude,
		TeamID:            d.TeamID,
		CustomerID:        snap.User.ID,
		Services:          d.ServiceIDs,
	}
	if err := validation.ValidateCreateOrder(in, c.now()); err != nil {
		return 0, err
	}

	catalog, err := c.api.ListServices(ctx)
	if err != nil {
		return 0, fmt.Errorf("load services: %w", err)
	}
	items, err := LineItems(catalog, d.ServiceIDs)
	if err != nil {
		return 0, err
	}
	in.TotalCost = TotalCost(items)

	created, err := c.api.CreateOrder(ctx, in)
	if err != nil {
		if verr, ok := backend.ValidationErrorOf(err); ok {
			return 0, verr
		}
		c.logger.Error("create order failed", zap.Int64("customerID", in.CustomerID), zap.Error(err))
		return 0, fmt.Errorf("create order: %w", err)
	}
	if created.ID == 0 {
		return 0, errors.New("create order: backend returned no id")
	}

	c.logger.Info("order created", zap.Int64("orderID", created.ID), zap.Float64("totalCost", in.TotalCost))
	return created.ID, nil
}
