// Package backend предоставляет клиент REST-бэкенда сервисных заказов.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mmeshcher/fieldservice-dashboard/internal/apperror"
)

const requestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// WithRequestID кладёт идентификатор входящего запроса в контекст, чтобы передать его бэкенду.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// Client инкапсулирует HTTP-взаимодействие с бэкендом. Аутентификация держится
// на сессионном cookie, который бэкенд выставляет при входе.
type Client struct {
	baseURL string
	timeout time.Duration

	mu         sync.RWMutex
	httpClient *http.Client
}

// NewClient создаёт клиент бэкенда по указанному адресу.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		return nil, errors.New("backend base url is empty")
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	c := &Client{
		baseURL: base,
		timeout: timeout,
	}
	if err := c.ResetCookies(); err != nil {
		return nil, err
	}
	return c, nil
}

// ResetCookies забывает все cookie, полученные от бэкенда.
func (c *Client) ResetCookies() error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("create cookie jar: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.httpClient = &http.Client{
		Jar:     jar,
		Timeout: c.timeout,
	}
	return nil
}

func (c *Client) client() *http.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.httpClient
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

func jsonRequest(method, path string, in any) (request, error) {
	req := request{method: method, path: path}
	if in == nil {
		return req, nil
	}
	b, err := json.Marshal(in)
	if err != nil {
		return req, fmt.Errorf("encode request: %w", err)
	}
	req.body = bytes.NewReader(b)
	req.contentType = "application/json"
	return req, nil
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	op := r.method + " " + r.path

	req, err := http.NewRequestWithContext(ctx, r.method, u, r.body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		req.Header.Set(requestIDHeader, id)
	}

	resp, err := c.client().Do(req)
	if err != nil {
		return &apperror.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(op, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

// decodeList разбирает ответ, который бэкенд отдаёт либо массивом, либо страницей.
func decodeList[T any](raw json.RawMessage) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		return items, nil
	}

	var page struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	return page.Results, nil
}
