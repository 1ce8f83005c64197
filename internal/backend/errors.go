package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/mmeshcher/fieldservice-dashboard/internal/apperror"
)

// StatusCode описывает прикладной код ошибки, который бэкенд кладёт в поле code.
// Клиент декодирует его, но решения принимает только по HTTP-статусу и тексту сообщения.
type StatusCode int

const (
	CodeSuccess              StatusCode = 1001
	CodeValidationError      StatusCode = 1002
	CodeInternalServerError  StatusCode = 1003
	CodeNotFound             StatusCode = 1004
	CodeUnauthorizedAccess   StatusCode = 1005
	CodeTokenExpired         StatusCode = 1006
	CodeTooManyTries         StatusCode = 1007
	CodeServiceUnavailable   StatusCode = 1008
	CodeThrottleError        StatusCode = 1009
	CodeForbidden            StatusCode = 1010
	CodeIncorrectOldPassword StatusCode = 1011
	CodeUserInactive         StatusCode = 1012
	CodeBadRequest           StatusCode = 1013
	CodeInvalidCredentials   StatusCode = 1014
	CodeInvalidRefreshToken  StatusCode = 1015
	CodeUnsupportedFileType  StatusCode = 1016
	CodeOtpRequired          StatusCode = 1017
	CodeDefaultItemDeleteErr StatusCode = 1018
	CodeRefreshTokenExpired  StatusCode = 1019
)

// APIError описывает ответ бэкенда с кодом вне диапазона 2xx.
type APIError struct {
	StatusCode int
	Code       StatusCode
	Message    string
	Fields     []apperror.FieldError
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend status %d", e.StatusCode)
}

// AsAPIError извлекает APIError из цепочки ошибок.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// MessageOf возвращает сообщение бэкенда, если оно есть, иначе fallback.
func MessageOf(err error, fallback string) string {
	if apiErr, ok := AsAPIError(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// ValidationErrorOf превращает ошибку валидации бэкенда в ValidationError.
func ValidationErrorOf(err error) (*apperror.ValidationError, bool) {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return nil, false
	}
	if len(apiErr.Fields) > 0 {
		return &apperror.ValidationError{Fields: apiErr.Fields}, true
	}
	if (apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusUnprocessableEntity) && apiErr.Message != "" {
		return &apperror.ValidationError{Fields: []apperror.FieldError{{Message: apiErr.Message}}}, true
	}
	return nil, false
}

type errorBody struct {
	StatusCode int             `json:"statusCode"`
	Code       StatusCode      `json:"code"`
	Message    json.RawMessage `json:"message"`
	Error      string          `json:"error"`
}

type constraintViolation struct {
	Property    string                `json:"property"`
	Constraints map[string]string     `json:"constraints"`
	Children    []constraintViolation `json:"children"`
}

func decodeError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		apiErr.Code = body.Code
		apiErr.Message, apiErr.Fields = decodeMessage(body.Message)
	}

	// 5xx без сообщения не несёт бизнес-смысла: для пользователя это недоступность сервиса
	if resp.StatusCode >= http.StatusInternalServerError && apiErr.Message == "" && len(apiErr.Fields) == 0 {
		return &apperror.TransportError{Op: op, Err: apiErr}
	}
	return apiErr
}

// decodeMessage поддерживает три формы поля message: строку, массив строк и
// массив нарушений ограничений с полями property и constraints.
func decodeMessage(raw json.RawMessage) (string, []apperror.FieldError) {
	if len(raw) == 0 {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return "", nil
	}

	var fields []apperror.FieldError
	for _, item := range items {
		var text string
		if err := json.Unmarshal(item, &text); err == nil {
			fields = append(fields, apperror.FieldError{Message: text})
			continue
		}
		var v constraintViolation
		if err := json.Unmarshal(item, &v); err == nil {
			fields = append(fields, flattenViolation("", v)...)
		}
	}

	msg := ""
	if len(fields) > 0 {
		msg = fields[0].Message
	}
	return msg, fields
}

func flattenViolation(prefix string, v constraintViolation) []apperror.FieldError {
	field := v.Property
	if prefix != "" {
		field = prefix + "." + v.Property
	}

	keys := make([]string, 0, len(v.Constraints))
	for k := range v.Constraints {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]apperror.FieldError, 0, len(keys))
	for _, k := range keys {
		out = append(out, apperror.FieldError{Field: field, Message: v.Constraints[k]})
	}
	for _, child := range v.Children {
		out = append(out, flattenViolation(field, child)...)
	}
	return out
}
