package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/mmeshcher/fieldservice-dashboard/internal/backend"
)

const requestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// GetRequestID возвращает идентификатор запроса из контекста.
func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// RequestID присваивает запросу идентификатор (или берёт X-Request-ID клиента)
// и передаёт его дальше в запросы к бэкенду.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		ctx = backend.WithRequestID(ctx, id)
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
