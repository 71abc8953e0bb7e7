package thttp

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCORS(t *testing.T) {
	handler := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := w.Write([]byte("hello"))
		assert.NoError(t, err)
	}))

	tests := []struct {
		name          string
		method        string
		headers       map[string]string
		allowOrigin   string
		exposeHeaders string
		body          string
	}{
		{
			name:   "same origin",
			method: http.MethodGet,
			body:   "hello",
		},
		{
			name:          "cross origin",
			method:        http.MethodGet,
			headers:       map[string]string{"Origin": "http://elsewhere"},
			allowOrigin:   "*",
			exposeHeaders: "Content-Length,Content-Range",
			body:          "hello",
		},
		{
			name:   "preflight",
			method: http.MethodOptions,
			headers: map[string]string{
				"Origin":                         "http://elsewhere",
				"Access-Control-Request-Method":  http.MethodPut,
				"Access-Control-Request-Headers": "Content-Type",
			},
			allowOrigin: "*",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(tc.method, "http://localhost/", nil)
			for k, v := range tc.headers {
				r.Header.Set(k, v)
			}
			res := Test(handler, r)
			defer res.Body.Close()

			assert.Equal(t, http.StatusOK, res.StatusCode)
			assert.Equal(t, tc.allowOrigin, res.Header.Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tc.exposeHeaders, res.Header.Get("Access-Control-Expose-Headers"))
			body, err := io.ReadAll(res.Body)
			require.NoError(t, err)
			assert.Equal(t, tc.body, string(body))
		})
	}
}

func TestNewCORS(t *testing.T) {
	handler := NewCORS(CORSConfig{
		Origins:     []string{"https://a.example", "https://b.example"},
		Methods:     []string{http.MethodGet, http.MethodPut},
		Credentials: true,
		MaxAge:      600,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	preflight := func(origin, method string) *http.Response {
		r := httptest.NewRequest(http.MethodOptions, "http://localhost/", nil)
		r.Header.Set("Origin", origin)
		r.Header.Set("Access-Control-Request-Method", method)
		r.Header.Set("Access-Control-Request-Headers", "Content-Type")
		res := Test(handler, r)
		res.Body.Close()
		return res
	}

	res := preflight("https://b.example", http.MethodPut)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "https://b.example", res.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", res.Header.Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "600", res.Header.Get("Access-Control-Max-Age"))
	assert.Equal(t, "Content-Type", res.Header.Get("Access-Control-Allow-Headers"), "default request headers apply")
	assert.Equal(t, "Origin", res.Header.Get("Vary"))

	res = preflight("https://b.example", http.MethodDelete)
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)

	res = preflight("https://c.example", http.MethodGet)
	assert.Empty(t, res.Header.Get("Access-Control-Allow-Origin"))
}
