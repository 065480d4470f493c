package router

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shaibs3/geoadmin/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Handler is implemented by every route group
type Handler interface {
	RegisterRoutes(router *mux.Router, logger *zap.Logger)
}

// Router wraps the mux router with logging, metrics, recovery and rate
// limiting
type Router struct {
	router   *mux.Router
	limiter  *rate.Limiter
	logger   *zap.Logger
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// NewRouter builds the router. Extra middlewares run after the built-in
// ones, in the order given, for every matched route.
func NewRouter(limiter *rate.Limiter, tel *telemetry.Telemetry, logger *zap.Logger, handlers []Handler, middlewares ...mux.MiddlewareFunc) *Router {
	base := logger
	logger = logger.Named("router")
	meter := telemetry.MeterOrNoop(tel)

	requests, err := meter.Int64Counter("http_requests_total",
		metric.WithDescription("Number of HTTP requests served"))
	if err != nil {
		logger.Warn("failed to create request counter", zap.Error(err))
	}
	duration, err := meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("s"))
	if err != nil {
		logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	rt := &Router{
		router:   mux.NewRouter(),
		limiter:  limiter,
		logger:   logger,
		requests: requests,
		duration: duration,
	}

	rt.router.Use(rt.recoverMiddleware, rt.loggingMiddleware, rt.rateLimitMiddleware)
	for _, mw := range middlewares {
		rt.router.Use(mw)
	}

	if tel != nil {
		rt.router.Handle("/metrics", tel.Handler()).Methods(http.MethodGet)
	}
	for _, h := range handlers {
		h.RegisterRoutes(rt.router, base)
	}
	rt.router.NotFoundHandler = rt.loggingMiddleware(http.NotFoundHandler())

	return rt
}

// ServeHTTP implements http.Handler
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.router.ServeHTTP(w, r)
}

// CreateServer returns an http.Server serving the router on addr
func (rt *Router) CreateServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           rt,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (rt *Router) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		route := routeTemplate(r)
		attrs := metric.WithAttributes(
			attribute.String("method", r.Method),
			attribute.String("route", route),
			attribute.Int("status", rec.status),
		)
		if rt.requests != nil {
			rt.requests.Add(r.Context(), 1, attrs)
		}
		if rt.duration != nil {
			rt.duration.Record(r.Context(), elapsed.Seconds(), attrs)
		}

		rt.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", elapsed),
			zap.String("remote", r.RemoteAddr),
		)
	})
}

func (rt *Router) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rt.limiter != nil && !rt.limiter.Allow() {
			rt.logger.Warn("rate limit exceeded", zap.String("path", r.URL.Path))
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rt *Router) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				rt.logger.Error("handler panicked",
					zap.Any("panic", v),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"),
				)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
