package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const (
	DefaultReadTimeout  = 1 * time.Minute
	DefaultWriteTimeout = 1 * time.Minute
)

type Server struct {
	srv *http.Server
}

type options struct {
	routes       []func(*http.ServeMux)
	metrics      http.Handler
	middleware   func(http.Handler) http.Handler
	readTimeout  time.Duration
	writeTimeout time.Duration
}

type Option func(*options)

// WithRoutes registers application routes on the server mux.
func WithRoutes(register func(mux *http.ServeMux)) Option {
	return func(o *options) {
		o.routes = append(o.routes, register)
	}
}

// WithMetricsHandler serves h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(o *options) {
		o.metrics = h
	}
}

// WithMiddleware wraps the whole mux.
func WithMiddleware(mw func(http.Handler) http.Handler) Option {
	return func(o *options) {
		o.middleware = mw
	}
}

func WithTimeouts(read, write time.Duration) Option {
	return func(o *options) {
		if read > 0 {
			o.readTimeout = read
		}
		if write > 0 {
			o.writeTimeout = write
		}
	}
}

func New(ctx context.Context, address string, opts ...Option) *Server {
	o := options{
		readTimeout:  DefaultReadTimeout,
		writeTimeout: DefaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	mux := http.NewServeMux()
	for _, register := range o.routes {
		register(mux)
	}
	if o.metrics != nil {
		mux.Handle("GET /metrics", o.metrics)
	}

	// Liveliness and readiness probes
	mux.HandleFunc("GET /healthz", healthZHandleFunc())
	mux.HandleFunc("GET /readyz", readyZHandleFunc(ctx))

	var handler http.Handler = mux
	if o.middleware != nil {
		handler = o.middleware(handler)
	}

	srv := &http.Server{
		Addr: address,
		// Use h2c, so we can serve HTTP/2 without TLS.
		Handler: h2c.NewHandler(
			handler,
			&http2.Server{},
		),
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       o.readTimeout,
		WriteTimeout:      o.writeTimeout,
		MaxHeaderBytes:    16 * 1024, // 16KiB
		BaseContext: func(listener net.Listener) context.Context {
			return ctx
		},
	}

	return &Server{
		srv: srv,
	}
}

// Handler returns the root handler, probes and middleware included.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) Serve(l net.Listener) error {
	return s.srv.Serve(l)
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

var (
	statusHealthy    = []byte(`{"status":"HEALTHY"}`)
	statusNotServing = []byte(`{"status":"NOT_SERVING"}`)
	statusServing    = []byte(`{"status":"SERVING"}`)
)

func readyZHandleFunc(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Content-Type", "application/json")
		if ctx.Err() != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write(statusNotServing)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write(statusServing)
	}
}

func healthZHandleFunc() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(statusHealthy)
	}
}
