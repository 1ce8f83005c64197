package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/mmeshcher/fieldservice-dashboard/internal/model"
)

const (
	pathLogin           = "/auth/login"
	pathRegister        = "/auth/register"
	pathProfile         = "/auth/profile"
	pathActivateAccount = "/auth/activate-account"
	pathLogout          = "/logout"
)

// LoginRequest описывает тело запроса входа. В поле username бэкенд ожидает e-mail.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

// RegisterRequest описывает тело запроса регистрации.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// ProfileForm содержит поля multipart-формы обновления профиля.
type ProfileForm struct {
	Fields         map[string]string
	AvatarFilename string
	Avatar         io.Reader
}

// Login выполняет вход. Сессионный cookie сохраняется в клиенте.
func (c *Client) Login(ctx context.Context, in LoginRequest) error {
	req, err := jsonRequest(http.MethodPost, pathLogin, in)
	if err != nil {
		return err
	}
	return c.do(ctx, req, nil)
}

// Profile возвращает профиль пользователя текущей сессии.
func (c *Client) Profile(ctx context.Context) (*model.User, error) {
	var u model.User
	if err := c.do(ctx, request{method: http.MethodGet, path: pathProfile}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Logout завершает сессию на стороне бэкенда.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodPost, path: pathLogout}, nil)
}

// Register создаёт учётную запись.
func (c *Client) Register(ctx context.Context, in RegisterRequest) (*model.User, error) {
	req, err := jsonRequest(http.MethodPost, pathRegister, in)
	if err != nil {
		return nil, err
	}
	var u model.User
	if err := c.do(ctx, req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ActivateAccount погашает одноразовый токен активации.
func (c *Client) ActivateAccount(ctx context.Context, token string) error {
	return c.do(ctx, request{
		method: http.MethodGet,
		path:   pathActivateAccount,
		query:  url.Values{"token": []string{token}},
	}, nil)
}

// UpdateProfile отправляет multipart-форму профиля.
func (c *Client) UpdateProfile(ctx context.Context, form ProfileForm) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for k, v := range form.Fields {
		if err := mw.WriteField(k, v); err != nil {
			return fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if form.Avatar != nil {
		fw, err := mw.CreateFormFile("avatar", form.AvatarFilename)
		if err != nil {
			return fmt.Errorf("create avatar part: %w", err)
		}
		if _, err := io.Copy(fw, form.Avatar); err != nil {
			return fmt.Errorf("copy avatar: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}

	return c.do(ctx, request{
		method:      http.MethodPut,
		path:        pathProfile,
		body:        &buf,
		contentType: mw.FormDataContentType(),
	}, nil)
}
