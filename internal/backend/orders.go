package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mmeshcher/fieldservice-dashboard/internal/model"
)

const (
	pathOrders          = "/orders"
	pathTechnicianTeams = "/technician-teams"
	pathServices        = "/services"
)

// OrdersQuery содержит параметры списка заказов. Нулевые значения не передаются.
type OrdersQuery struct {
	Keywords string
	Limit    int
	Page     int
}

func (q OrdersQuery) values() url.Values {
	v := url.Values{}
	if q.Keywords != "" {
		v.Set("keywords", q.Keywords)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	return v
}

// StatusUpdate содержит поля заказа, которые бэкенд возвращает после смены статуса.
// Статус оставлен строкой: его нормализует вызывающая сторона.
type StatusUpdate struct {
	ID         int64      `json:"id"`
	Status     string     `json:"status"`
	ModifiedBy string     `json:"modified_by,omitempty"`
	ModifiedAt *time.Time `json:"modified_at,omitempty"`
}

// ListOrders возвращает страницу заказов.
func (c *Client) ListOrders(ctx context.Context, q OrdersQuery) (*model.Page[model.Order], error) {
	var page model.Page[model.Order]
	if err := c.do(ctx, request{method: http.MethodGet, path: pathOrders, query: q.values()}, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetOrder возвращает заказ по идентификатору.
func (c *Client) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	var o model.Order
	if err := c.do(ctx, request{method: http.MethodGet, path: fmt.Sprintf("%s/%d", pathOrders, id)}, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOrder создаёт заказ и возвращает его с присвоенным идентификатором.
func (c *Client) CreateOrder(ctx context.Context, in model.CreateOrder) (*model.Order, error) {
	req, err := jsonRequest(http.MethodPost, pathOrders, in)
	if err != nil {
		return nil, err
	}
	var o model.Order
	if err := c.do(ctx, req, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// UpdateOrderStatus запрашивает смену статуса заказа.
func (c *Client) UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus) (*StatusUpdate, error) {
	path := fmt.Sprintf("%s/%d/status/%s", pathOrders, id, url.PathEscape(string(status)))
	var upd StatusUpdate
	if err := c.do(ctx, request{method: http.MethodPatch, path: path}, &upd); err != nil {
		return nil, err
	}
	return &upd, nil
}

// ListServices возвращает каталог услуг.
func (c *Client) ListServices(ctx context.Context) ([]model.Service, error) {
	var raw json.RawMessage
	if err := c.do(ctx, request{method: http.MethodGet, path: pathServices}, &raw); err != nil {
		return nil, err
	}
	return decodeList[model.Service](raw)
}

// ListTeams возвращает бригады техников.
func (c *Client) ListTeams(ctx context.Context) ([]model.TechnicianTeam, error) {
	var raw json.RawMessage
	if err := c.do(ctx, request{method: http.MethodGet, path: pathTechnicianTeams}, &raw); err != nil {
		return nil, err
	}
	return decodeList[model.TechnicianTeam](raw)
}

// GetTeam возвращает бригаду по идентификатору.
func (c *Client) GetTeam(ctx context.Context, id int64) (*model.TechnicianTeam, error) {
	var t model.TechnicianTeam
	if err := c.do(ctx, request{method: http.MethodGet, path: fmt.Sprintf("%s/%d", pathTechnicianTeams, id)}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTeam частично обновляет данные бригады.
func (c *Client) UpdateTeam(ctx context.Context, id int64, in model.UpdateTechnicianTeam) (*model.TechnicianTeam, error) {
	req, err := jsonRequest(http.MethodPatch, fmt.Sprintf("%s/%d", pathTechnicianTeams, id), in)
	if err != nil {
		return nil, err
	}
	var t model.TechnicianTeam
	if err := c.do(ctx, req, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
