// Package apperror описывает таксономию ошибок дашборда.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

// AuthReason уточняет причину ошибки аутентификации.
type AuthReason string

const (
	AuthInvalidCredentials AuthReason = "invalid_credentials"
	AuthInactive           AuthReason = "inactive"
	AuthUnavailable        AuthReason = "unavailable"
	AuthProfile            AuthReason = "profile"
	AuthRequired           AuthReason = "required"
)

// AuthError возвращается при неудачном входе или отсутствии активной сессии.
type AuthError struct {
	Reason  AuthReason
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("auth %s: %s", e.Reason, e.Message)
	}
	return fmt.Sprintf("auth %s", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// FieldError описывает ошибку валидации одного поля.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError содержит список ошибок по полям для отображения рядом с формой.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Field == "" {
			parts = append(parts, f.Message)
			continue
		}
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add добавляет ошибку поля.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil возвращает nil, если ошибок полей нет.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// ActivationError возвращается, если токен активации недействителен, истёк или уже использован.
type ActivationError struct {
	Message string
	Err     error
}

func (e *ActivationError) Error() string { return "activation failed: " + e.Message }

func (e *ActivationError) Unwrap() error { return e.Err }

// TransitionError возвращается при запрещённой или отклонённой смене статуса заказа.
type TransitionError struct {
	OrderID int64
	From    string
	To      string
	Message string
	Err     error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("order %d: transition %s -> %s: %s", e.OrderID, e.From, e.To, e.Message)
}

func (e *TransitionError) Unwrap() error { return e.Err }

// TransportError означает недоступность сети или сервиса без бизнес-смысла.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport сообщает, вызвана ли ошибка недоступностью бэкенда.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
