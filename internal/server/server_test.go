package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestProbes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := New(ctx, ":0")

	rec := get(t, srv.Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"HEALTHY"}`, rec.Body.String())

	rec = get(t, srv.Handler(), "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"SERVING"}`, rec.Body.String())

	cancel()
	rec = get(t, srv.Handler(), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"NOT_SERVING"}`, rec.Body.String())
}

func TestRoutesAndMiddleware(t *testing.T) {
	var wrapped []string
	srv := New(context.Background(), ":0",
		WithRoutes(func(mux *http.ServeMux) {
			mux.HandleFunc("GET /hello", func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("hello"))
			})
		}),
		WithMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("# metrics"))
		})),
		WithMiddleware(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				wrapped = append(wrapped, r.URL.Path)
				next.ServeHTTP(w, r)
			})
		}),
	)

	assert.Equal(t, "hello", get(t, srv.Handler(), "/hello").Body.String())
	assert.Equal(t, "# metrics", get(t, srv.Handler(), "/metrics").Body.String())
	assert.Equal(t, http.StatusNotFound, get(t, srv.Handler(), "/nope").Code)
	assert.Equal(t, []string{"/hello", "/metrics", "/nope"}, wrapped)
}

func TestServeAndShutdown(t *testing.T) {
	srv := New(context.Background(), "127.0.0.1:0")
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(lis) }()

	resp, err := http.Get("http://" + lis.Addr().String() + "/healthz")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"HEALTHY"}`, string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.ErrorIs(t, <-done, http.ErrServerClosed)
}

func TestShutdown_NilServer(t *testing.T) {
	assert.NoError(t, (&Server{}).Shutdown(context.Background()))
}
