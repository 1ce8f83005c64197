// Package model содержит доменные сущности дашборда сервисных заказов.
package model

import "time"

// PrivilegedRoleID содержит идентификатор роли оператора, которому разрешена только отмена заказов.
const PrivilegedRoleID int64 = 2

// Role описывает роль пользователя в бэкенде.
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// UserStatus описывает статус учётной записи.
type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusInactive UserStatus = "INACTIVE"
)

// User представляет пользователя, возвращаемого бэкендом в профиле.
type User struct {
	ID             int64      `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	Name           string     `json:"name"`
	Address        string     `json:"address,omitempty"`
	IsTwoFAEnabled bool       `json:"isTwoFAEnabled"`
	Contact        string     `json:"contact,omitempty"`
	Avatar         string     `json:"avatar,omitempty"`
	Status         UserStatus `json:"status,omitempty"`
	Role           Role       `json:"role"`
	TeamID         *int64     `json:"teamId,omitempty"`
	CreatedAt      *time.Time `json:"createdAt,omitempty"`
	UpdatedAt      *time.Time `json:"updatedAt,omitempty"`
}

// IsPrivileged сообщает, принадлежит ли пользователь привилегированной роли.
func (u *User) IsPrivileged() bool {
	return u != nil && u.Role.ID == PrivilegedRoleID
}

// Clone возвращает независимую копию пользователя.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.TeamID != nil {
		v := *u.TeamID
		c.TeamID = &v
	}
	return &c
}

// Priority описывает приоритет заказа.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Valid сообщает, является ли значение допустимым приоритетом.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Service описывает услугу из каталога.
type Service struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Icon        string  `json:"icon,omitempty"`
}

// OrderService описывает строку заказа: услугу, количество и цену на момент заказа.
type OrderService struct {
	ID              int64   `json:"id"`
	Service         Service `json:"service"`
	Quantity        int     `json:"quantity"`
	PriceAtOrdering float64 `json:"price_at_ordering"`
}

// Order описывает сервисный заказ.
type Order struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Status            OrderStatus     `json:"status"`
	Priority          Priority        `json:"priority"`
	StartDate         time.Time       `json:"start_date"`
	EndDate           time.Time       `json:"end_date"`
	TotalCost         float64         `json:"total_cost"`
	LocationAddress   string          `json:"location_address"`
	LocationLatitude  *float64        `json:"location_latitude,omitempty"`
	LocationLongitude *float64        `json:"location_longitude,omitempty"`
	TeamID            int64           `json:"teamId"`
	Team              *TechnicianTeam `json:"team,omitempty"`
	CustomerID        int64           `json:"customerId"`
	Customer          *User           `json:"customer,omitempty"`
	Services          []OrderService  `json:"orderToService,omitempty"`
	CreatedBy         string          `json:"created_by,omitempty"`
	CreatedAt         *time.Time      `json:"createdAt,omitempty"`
	ModifiedBy        string          `json:"modified_by,omitempty"`
	ModifiedAt        *time.Time      `json:"modified_at,omitempty"`
}

// CreateOrder описывает тело запроса на создание заказа.
type CreateOrder struct {
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	Priority          Priority  `json:"priority"`
	StartDate         time.Time `json:"start_date"`
	EndDate           time.Time `json:"end_date"`
	TotalCost         float64   `json:"total_cost"`
	LocationAddress   string    `json:"location_address"`
	LocationLatitude  *float64  `json:"location_latitude,omitempty"`
	LocationLongitude *float64  `json:"location_longitude,omitempty"`
	TeamID            int64     `json:"teamId"`
	CustomerID        int64     `json:"customerId"`
	Services          []int64   `json:"services"`
}

// DailyBreak описывает ежедневный перерыв бригады в формате HH:mm.
type DailyBreak struct {
	StartHour string `json:"start_hour"`
	EndHour   string `json:"end_hour"`
}

// BusyTime описывает интервал занятости бригады, привязанный к заказу.
type BusyTime struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	OrderID   int64     `json:"order_id"`
}

// TechnicianTeam описывает бригаду техников и её расписание.
type TechnicianTeam struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	BusyTimes   []BusyTime   `json:"busyTimes,omitempty"`
	DailyBreaks []DailyBreak `json:"dailyBreaks,omitempty"`
	Orders      []Order      `json:"orders,omitempty"`
	Technicians []User       `json:"technicians,omitempty"`
}

// UpdateTechnicianTeam описывает частичное обновление данных бригады. Пустой, но не nil
// список перерывов удаляет все перерывы.
type UpdateTechnicianTeam struct {
	Name        *string       `json:"name,omitempty"`
	DailyBreaks *[]DailyBreak `json:"dailyBreaks,omitempty"`
}

// Page описывает страницу постраничного ответа бэкенда.
type Page[T any] struct {
	CurrentPage int  `json:"currentPage"`
	Next        *int `json:"next"`
	Previous    *int `json:"previous"`
	PageSize    int  `json:"pageSize"`
	Results     []T  `json:"results"`
	TotalItems  int  `json:"totalItems"`
}
