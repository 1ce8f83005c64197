// Package middleware содержит HTTP middleware дашборда.
package middleware

import (
	"context"
	"net/http"

	"github.com/mmeshcher/fieldservice-dashboard/internal/model"
	"github.com/mmeshcher/fieldservice-dashboard/internal/session"
)

type contextKey string

const userKey contextKey = "user"

// RequireSession пропускает запрос, только если сессия аутентифицирована.
// Пока стартовая проверка сессии не завершена, отвечает 503.
func RequireSession(sessions session.Reader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap := sessions.Snapshot()
			if !snap.Ready {
				w.Header().Set("Retry-After", "1")
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
			if !snap.Authenticated {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, snap.User)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserFromContext извлекает пользователя, сохранённого RequireSession.
func GetUserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}
