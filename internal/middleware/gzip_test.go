package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoHandler отвечает телом запроса с тем же Content-Type.
func echoHandler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	defer r.Body.Close()

	w.Header().Set("Content-Type", r.Header.Get("Content-Type"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("echo: " + string(body)))
}

func gzipped(t *testing.T, s string) io.Reader {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return &buf
}

func TestGzipMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		gzipRequest    bool
		acceptEncoding string
		contentType    string
		wantEncoding   string
	}{
		{name: "json compressed", body: `{"status":"done"}`, acceptEncoding: "gzip", contentType: "application/json", wantEncoding: "gzip"},
		{name: "html compressed", body: "<p>ok</p>", acceptEncoding: "gzip, deflate", contentType: "text/html", wantEncoding: "gzip"},
		{name: "client without gzip", body: `{"a":1}`, contentType: "application/json"},
		{name: "binary passthrough", body: "avatar bytes", acceptEncoding: "gzip", contentType: "image/png"},
		{name: "gzip request body", body: `{"name":"x"}`, gzipRequest: true, acceptEncoding: "gzip", contentType: "application/json", wantEncoding: "gzip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reqBody io.Reader = strings.NewReader(tt.body)
			if tt.gzipRequest {
				reqBody = gzipped(t, tt.body)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/orders", reqBody)
			req.Header.Set("Content-Type", tt.contentType)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			if tt.gzipRequest {
				req.Header.Set("Content-Encoding", "gzip")
			}

			w := httptest.NewRecorder()
			GzipMiddleware(http.HandlerFunc(echoHandler)).ServeHTTP(w, req)

			res := w.Result()
			defer res.Body.Close()

			assert.Equal(t, http.StatusOK, res.StatusCode)
			assert.Equal(t, tt.contentType, res.Header.Get("Content-Type"))
			assert.Equal(t, tt.wantEncoding, res.Header.Get("Content-Encoding"))

			var body io.Reader = res.Body
			if tt.wantEncoding == "gzip" {
				gr, err := gzip.NewReader(res.Body)
				require.NoError(t, err)
				defer gr.Close()
				body = gr
			}
			got, err := io.ReadAll(body)
			require.NoError(t, err)
			assert.Equal(t, "echo: "+tt.body, string(got))
		})
	}
}
