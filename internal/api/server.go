// internal/api/server.go
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/tamzrod/erv-bridge/internal/poller"
	"github.com/tamzrod/erv-bridge/internal/registers"
	"github.com/tamzrod/erv-bridge/internal/status"
)

// Service is what the API needs from the telemetry service.
type Service interface {
	Snapshot() poller.TelemetrySnapshot
	Link() status.Link
	Registers() *registers.Map
	Subscribe(buffer int) (<-chan poller.Event, func())

	SetFanSpeed(ctx context.Context, side poller.Side, pct int) error
	SetSystemPower(ctx context.Context, on bool) error
	ReadRegister(ctx context.Context, name string) (uint16, registers.Value, error)
	WriteRegister(ctx context.Context, name string, v registers.Value) error
}

// Config holds API server configuration.
type Config struct {
	Listen string
	WSPath string

	PingInterval time.Duration
	WriteTimeout time.Duration
}

// Server is the HTTP/JSON and WebSocket interface of the bridge.
type Server struct {
	svc      Service
	cfg      Config
	log      zerolog.Logger
	upgrader websocket.Upgrader
	srv      *http.Server
}

func NewServer(svc Service, cfg Config, log zerolog.Logger) *Server {
	if cfg.WSPath == "" {
		cfg.WSPath = "/ws"
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	return &Server{
		svc: svc,
		cfg: cfg,
		log: log.With().Str("component", "api").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Trusted local network; any dashboard origin may connect.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.requestID, s.accessLog)

	// System
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc(s.cfg.WSPath, s.handleWebSocket).Methods(http.MethodGet)

	// API v1
	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/snapshot", s.handleSnapshot).Methods(http.MethodGet)
	v1.HandleFunc("/link", s.handleLink).Methods(http.MethodGet)
	v1.HandleFunc("/fans/{side}", s.handleSetFan).Methods(http.MethodPut)
	v1.HandleFunc("/power", s.handleSetPower).Methods(http.MethodPut)
	v1.HandleFunc("/registers", s.handleListRegisters).Methods(http.MethodGet)
	v1.HandleFunc("/registers/{name}", s.handleReadRegister).Methods(http.MethodGet)
	v1.HandleFunc("/registers/{name}", s.handleWriteRegister).Methods(http.MethodPut)

	return r
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return err
	}

	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.log.Info().Str("listen", ln.Addr().String()).Msg("api listening")

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("api server stopped")
		}
	}()
	return nil
}

// Stop stops the API server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}
