// Package server exposes the trip control plane, the realtime gateway and
// the operational endpoints over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/technopolitica/fleet-live/internal/auth"
	"github.com/technopolitica/fleet-live/internal/domain"
	"github.com/technopolitica/fleet-live/internal/log"
	"github.com/technopolitica/fleet-live/internal/metrics"
)

// TripService is the trip lifecycle surface the control plane drives.
type TripService interface {
	StartTrip(ctx context.Context, params domain.StartTripParams) (domain.Trip, error)
	EndTrip(ctx context.Context, driverID string) (domain.Trip, error)
	ActiveTrip(ctx context.Context, driverID string) (domain.Trip, error)
}

type BusLookup interface {
	FetchBus(ctx context.Context, busID string) (domain.Bus, error)
}

type FleetReader interface {
	SnapshotAll() []domain.VehicleTelemetry
}

// Env holds everything the router dispatches to.
type Env struct {
	Trips          TripService
	Buses          BusLookup
	Fleet          FleetReader
	Realtime       http.Handler
	Verifier       auth.Verifier
	Logger         log.Logger
	RequestTimeout time.Duration
}

type contextKey int

const contextKeyAuth contextKey = iota

func GetAuthInfo(r *http.Request) (authInfo domain.AuthInfo) {
	ctx := r.Context()
	authInfo, ok := ctx.Value(contextKeyAuth).(domain.AuthInfo)
	if !ok {
		panic("missing required AuthInfo")
	}
	return
}

func authentication(verifier auth.Verifier, logger log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authInfo, err := auth.Authenticate(r, verifier)
			if err != nil {
				logger.Debug("rejected request", "path", r.URL.Path, "error", err)
				w.Header().Set("WWW-Authenticate", `Bearer, charset="UTF-8"`)
				renderError(w, r, logger, err)
				return
			}
			r = r.WithContext(context.WithValue(r.Context(), contextKeyAuth, authInfo))
			next.ServeHTTP(w, r)
		})
	}
}

func requireRole(role domain.Role, logger log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetAuthInfo(r).Role != role {
				renderError(w, r, logger, fmt.Errorf("only a %s may use this endpoint: %w", role, domain.ErrForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// printLogger feeds chi's request log lines into the structured logger.
type printLogger struct {
	logger log.Logger
}

func (p printLogger) Print(v ...interface{}) {
	p.logger.Info(fmt.Sprint(v...))
}

func statusFor(errType domain.ApiErrorType) int {
	switch errType {
	case domain.ApiErrorTypeBadParam, domain.ApiErrorTypeMissingParam, domain.ApiErrorTypeConflict:
		return http.StatusBadRequest
	case domain.ApiErrorTypeNotFound:
		return http.StatusNotFound
	case domain.ApiErrorTypeForbidden:
		return http.StatusForbidden
	case domain.ApiErrorTypeUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func renderError(w http.ResponseWriter, r *http.Request, logger log.Logger, err error) {
	apiErr := domain.ApiErrorFrom(err)
	status := statusFor(apiErr.Type)
	if status == http.StatusInternalServerError {
		logger.Error(err, "request failed", "method", r.Method, "path", r.URL.Path)
	}
	render.Status(r, status)
	render.JSON(w, r, apiErr)
}

func New(env *Env) *chi.Mux {
	logger := env.Logger
	if logger == nil {
		logger = log.WithName("http")
	}
	requestTimeout := env.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = NewOptions().RequestTimeout
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: printLogger{logger}, NoColor: true}))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Heartbeat("/health"))

	router.Method(http.MethodGet, "/metrics", metrics.Handler())
	if env.Realtime != nil {
		router.Method(http.MethodGet, "/ws", env.Realtime)
	}

	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Get("/fleet", fleetHandler(env))
		r.Mount("/buses", NewBusesRouter(env, logger))
		r.Group(func(r chi.Router) {
			r.Use(authentication(env.Verifier, logger))
			r.Use(requireRole(domain.RoleDriver, logger))
			r.Mount("/trips", NewTripsRouter(env, logger))
		})
	})

	return router
}

// Server serves handler until its context is cancelled.
type Server struct {
	opts    *Options
	handler http.Handler
	logger  log.Logger
	ready   chan net.Addr
}

func NewServer(opts *Options, handler http.Handler) *Server {
	return &Server{
		opts:    opts,
		handler: handler,
		logger:  log.WithName("http"),
		ready:   make(chan net.Addr, 1),
	}
}

// Ready yields the listening address once the server accepts connections.
func (s *Server) Ready() <-chan net.Addr {
	return s.ready
}

func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Addr, err)
	}
	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan error, 1)
	go func() {
		done <- httpServer.Serve(listener)
	}()
	s.logger.Info("listening", "url", "http://"+listener.Addr().String())
	s.ready <- listener.Addr()

	select {
	case err = <-done:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err = httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}
