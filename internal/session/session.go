// Package session реализует менеджер сессии аутентифицированного пользователя.
//
// Manager единолично владеет сессией. Остальные компоненты получают только
// Snapshot: копию пользователя и производные флаги.
package session

import (
	"context"
	"io"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/mmeshcher/fieldservice-dashboard/internal/apperror"
	"github.com/mmeshcher/fieldservice-dashboard/internal/backend"
	"github.com/mmeshcher/fieldservice-dashboard/internal/model"
	"github.com/mmeshcher/fieldservice-dashboard/internal/validation"
)

const (
	msgInvalidCredentials = "Invalid email or password"
	msgActivationFailed   = "Something went wrong. Please try again."
	msgUnavailable        = "Service unavailable"
)

// API описывает вызовы бэкенда, которые использует менеджер сессии.
type API interface {
	Login(ctx context.Context, in backend.LoginRequest) error
	Profile(ctx context.Context) (*model.User, error)
	Logout(ctx context.Context) error
	Register(ctx context.Context, in backend.RegisterRequest) (*model.User, error)
	ActivateAccount(ctx context.Context, token string) error
	UpdateProfile(ctx context.Context, form backend.ProfileForm) error
	ResetCookies() error
}

// Reader даёт доступ к сессии только для чтения.
type Reader interface {
	Snapshot() Snapshot
}

// Snapshot описывает неизменяемый снимок сессии. Generation меняется при каждой
// смене пользователя, включая вход и выход.
type Snapshot struct {
	User          *model.User `json:"user"`
	Authenticated bool        `json:"isAuthenticated"`
	Ready         bool        `json:"ready"`
	Generation    uint64      `json:"-"`
}

// Privileged сообщает, что пользователь снимка принадлежит привилегированной роли.
func (s Snapshot) Privileged() bool {
	return s.User.IsPrivileged()
}

// Credentials содержит данные для входа.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

// Registration содержит данные для регистрации учётной записи.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Password string `json:"password"`
}

// ProfileUpdate содержит изменения профиля. Nil-поля не отправляются.
type ProfileUpdate struct {
	Name           *string
	Address        *string
	Contact        *string
	AvatarFilename string
	Avatar         io.Reader
}

// Manager хранит сессию и выполняет операции входа и выхода.
type Manager struct {
	api    API
	logger *zap.Logger

	mu         sync.RWMutex
	user       *model.User
	ready      bool
	generation uint64
}

// NewManager создаёт менеджер в неаутентифицированном состоянии.
func NewManager(api API, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		api:    api,
		logger: logger,
	}
}

// Snapshot возвращает текущий снимок сессии.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Snapshot{
		User:          m.user.Clone(),
		Authenticated: m.user != nil,
		Ready:         m.ready,
		Generation:    m.generation,
	}
}

func (m *Manager) set(u *model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !sameUser(m.user, u) {
		m.generation++
	}
	m.user = u.Clone()
	m.ready = true
}

func sameUser(a, b *model.User) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}

// Bootstrap проверяет наличие активной сессии при старте приложения.
func (m *Manager) Bootstrap(ctx context.Context) Snapshot {
	return m.FetchProfile(ctx)
}

// FetchProfile запрашивает профиль. Любая ошибка, включая отсутствие сессии,
// переводит менеджер в неаутентифицированное состояние и не возвращается вызывающему.
func (m *Manager) FetchProfile(ctx context.Context) Snapshot {
	if err := m.refresh(ctx); err != nil {
		m.logger.Info("fetch profile failed, session cleared", zap.Error(err))
	}
	return m.Snapshot()
}

func (m *Manager) refresh(ctx context.Context) error {
	u, err := m.api.Profile(ctx)
	if err != nil {
		m.set(nil)
		return err
	}
	m.set(u)
	return nil
}

// Login выполняет вход и обновляет профиль. При ошибке сессия остаётся неаутентифицированной.
func (m *Manager) Login(ctx context.Context, c Credentials) (Snapshot, error) {
	err := m.api.Login(ctx, backend.LoginRequest{
		Username: c.Email,
		Password: c.Password,
		Remember: c.Remember,
	})
	if err != nil {
		m.set(nil)
		m.logger.Warn("login failed", zap.String("email", c.Email), zap.Error(err))
		return m.Snapshot(), loginError(err)
	}

	if err := m.refresh(ctx); err != nil {
		m.logger.Warn("profile after login failed", zap.String("email", c.Email), zap.Error(err))
		return m.Snapshot(), &apperror.AuthError{
			Reason:  apperror.AuthProfile,
			Message: backend.MessageOf(err, "Failed to load user profile"),
			Err:     err,
		}
	}

	snap := m.Snapshot()
	m.logger.Info("user logged in", zap.Int64("userID", snap.User.ID))
	return snap, nil
}

func loginError(err error) error {
	if apperror.IsTransport(err) {
		return &apperror.AuthError{Reason: apperror.AuthUnavailable, Message: msgUnavailable, Err: err}
	}

	reason := apperror.AuthInvalidCredentials
	if apiErr, ok := backend.AsAPIError(err); ok {
		switch {
		case apiErr.StatusCode >= http.StatusInternalServerError:
			return &apperror.AuthError{
				Reason:  apperror.AuthUnavailable,
				Message: backend.MessageOf(err, msgUnavailable),
				Err:     err,
			}
		case apiErr.StatusCode == http.StatusForbidden:
			reason = apperror.AuthInactive
		}
	}
	return &apperror.AuthError{
		Reason:  reason,
		Message: backend.MessageOf(err, msgInvalidCredentials),
		Err:     err,
	}
}

// Logout завершает сессию на бэкенде и безусловно очищает локальное состояние.
// Повторный вызов безопасен.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.api.Logout(ctx); err != nil {
		m.logger.Warn("logout request failed", zap.Error(err))
	}
	if err := m.api.ResetCookies(); err != nil {
		m.logger.Error("reset cookies failed", zap.Error(err))
	}
	m.set(nil)
}

// Register создаёт учётную запись. Сессию не аутентифицирует: учётная запись
// активируется отдельно по ссылке из письма.
func (m *Manager) Register(ctx context.Context, r Registration) (*model.User, error) {
	if err := validation.ValidateRegistration(r.Username, r.Email, r.FullName, r.Password); err != nil {
		return nil, err
	}

	u, err := m.api.Register(ctx, backend.RegisterRequest{
		Username: r.Username,
		Email:    r.Email,
		Name:     r.FullName,
		Password: r.Password,
	})
	if err != nil {
		if verr, ok := backend.ValidationErrorOf(err); ok {
			return nil, verr
		}
		m.logger.Warn("register failed", zap.String("email", r.Email), zap.Error(err))
		return nil, err
	}
	return u, nil
}

// Activate погашает токен активации учётной записи.
func (m *Manager) Activate(ctx context.Context, token string) error {
	if token == "" {
		return &apperror.ActivationError{Message: "activation token is missing"}
	}

	if err := m.api.ActivateAccount(ctx, token); err != nil {
		m.logger.Warn("account activation failed", zap.Error(err))
		return &apperror.ActivationError{
			Message: backend.MessageOf(err, msgActivationFailed),
			Err:     err,
		}
	}
	return nil
}

// ErrNotAuthenticated возвращается операциями, которым нужна активная сессия.
var ErrNotAuthenticated = &apperror.AuthError{Reason: apperror.AuthRequired, Message: "login required"}

// UpdateProfile отправляет изменения профиля и перечитывает его.
func (m *Manager) UpdateProfile(ctx context.Context, upd ProfileUpdate) (Snapshot, error) {
	if !m.Snapshot().Authenticated {
		return m.Snapshot(), ErrNotAuthenticated
	}

	form := backend.ProfileForm{
		Fields:         map[string]string{},
		AvatarFilename: upd.AvatarFilename,
		Avatar:         upd.Avatar,
	}
	if upd.Name != nil {
		form.Fields["name"] = *upd.Name
	}
	if upd.Address != nil {
		form.Fields["address"] = *upd.Address
	}
	if upd.Contact != nil {
		form.Fields["contact"] = *upd.Contact
	}

	if err := m.api.UpdateProfile(ctx, form); err != nil {
		if verr, ok := backend.ValidationErrorOf(err); ok {
			return m.Snapshot(), verr
		}
		if apiErr, ok := backend.AsAPIError(err); ok && apiErr.StatusCode == http.StatusUnauthorized {
			m.set(nil)
			return m.Snapshot(), ErrNotAuthenticated
		}
		return m.Snapshot(), err
	}

	return m.FetchProfile(ctx), nil
}
