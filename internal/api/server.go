// Package api implements the HTTP and WebSocket gateway a browser front end
// uses to read the counter and submit transactions.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	mapset "github.com/deckarep/golang-set"
	"github.com/ethereum/go-ethereum/log"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/tos-network/starkcounter/counter"
	"github.com/tos-network/starkcounter/metrics"
	"github.com/tos-network/starkcounter/notify"
	"github.com/tos-network/starkcounter/params"
	"github.com/tos-network/starkcounter/transactor"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Config holds the gateway settings.
type Config struct {
	Addr        string   `toml:",omitempty"`
	CORSOrigins []string `toml:",omitempty"`
	JWTSecret   string   `toml:",omitempty"` // path of the write request secret
	Metrics     bool     `toml:"-"`          // serve the Prometheus endpoint
}

// DefaultConfig serves on localhost only.
var DefaultConfig = Config{
	Addr: "127.0.0.1:8550",
}

// Backend is what the gateway serves.
type Backend struct {
	Network *params.Network
	Actions *counter.Actions
	Feed    *counter.Feed

	// Notifications, when set, is exposed at /api/notifications.
	Notifications *notify.Recorder
}

// Option configures a Server.
type Option func(*Server)

// Server is the gateway.
type Server struct {
	cfg       Config
	backend   Backend
	tx        *transactor.Transactor
	jwtSecret []byte
	upgrader  websocket.Upgrader
	handler   http.Handler
	conns     mapset.Set // open WebSocket connections
}

// New creates a gateway for backend.
func New(cfg Config, backend Backend, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		backend: backend,
		tx:      backend.Actions.Transactor,
		conns:   mapset.NewSet(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	router := httprouter.New()
	router.GET("/api/counter", s.getCounter)
	router.POST("/api/counter/:action", s.authorized(s.postAction))
	router.GET("/api/events", s.getEvents)
	router.GET("/api/tx", s.getTx)
	router.GET("/api/notifications", s.getNotifications)
	router.GET("/api/ws", s.serveWS)
	if cfg.Metrics {
		router.Handler(http.MethodGet, metrics.Path, metrics.Handler())
	}
	s.handler = newCorsHandler(router, cfg.CORSOrigins)
	return s
}

func newCorsHandler(srv http.Handler, allowedOrigins []string) http.Handler {
	// disable CORS support if user has not specified a custom CORS configuration
	if len(allowedOrigins) == 0 {
		return srv
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"*"},
		MaxAge:         600,
	})
	return c.Handler(srv)
}

// checkOrigin accepts same-host requests and the configured CORS origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

// Handler returns the gateway's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves the gateway and keeps the event feed in sync until ctx is
// cancelled or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.serve(ctx, listener)
}

func (s *Server) serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{Handler: s.handler, ReadHeaderTimeout: 10 * time.Second}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("HTTP gateway started", "url", "http://"+listener.Addr().String(), "cors", s.cfg.CORSOrigins)
		if err := srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if s.backend.Feed != nil {
		g.Go(func() error {
			if err := s.backend.Feed.Watch(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.closeConns()
		log.Info("HTTP gateway stopped", "endpoint", listener.Addr())
		return err
	})
	return g.Wait()
}
