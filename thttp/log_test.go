package thttp

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ridge/launch/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog(t *testing.T) {
	ctx, logs := test.ContextWithLogs(t)

	handler := Log(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		w.WriteHeader(http.StatusAccepted)
		_, err = w.Write(data)
		assert.NoError(t, err)
	}))

	r := httptest.NewRequest(http.MethodPost, "http://localhost/echo", strings.NewReader("hello"))
	res := TestCtx(ctx, handler, r)
	assert.Equal(t, http.StatusAccepted, res.StatusCode)
	body, err := io.ReadAll(res.Body)
	assert.NoError(t, err)
	assert.Equal(t, []byte("hello"), body)
	res.Body.Close()

	ended := logs.FilterMessage("HTTP request handling ended").All()
	require.Len(t, ended, 1)
	fields := ended[0].ContextMap()
	assert.Equal(t, int64(http.StatusAccepted), fields["statusCode"])
	assert.Equal(t, int64(5), fields["bytes"])
	assert.Equal(t, "POST", fields["method"])
	assert.Equal(t, "http://localhost/echo", fields["url"])
}

func TestCommonLogger(t *testing.T) {
	var out bytes.Buffer
	handler := CommonLogger(&out)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTeapot)
	}))

	res := Test(handler, httptest.NewRequest(http.MethodGet, "/pot?x=1", nil))
	res.Body.Close()
	assert.Equal(t, http.StatusTeapot, res.StatusCode)
	assert.Contains(t, out.String(), `"GET /pot?x=1 HTTP/1.1" 418 5`)
	assert.True(t, strings.HasSuffix(out.String(), "\n"))
}
