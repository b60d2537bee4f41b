package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/tablesync/tablesync/internal/dispatch"
	"github.com/tablesync/tablesync/internal/handlers"
	"github.com/tablesync/tablesync/internal/server/middleware"
	"github.com/tablesync/tablesync/pkg/auth"
	"github.com/tablesync/tablesync/pkg/config"
	"github.com/tablesync/tablesync/pkg/dice"
	"github.com/tablesync/tablesync/pkg/rooms"
	"github.com/tablesync/tablesync/pkg/store"
	"github.com/tablesync/tablesync/pkg/store/memstore"
	"github.com/tablesync/tablesync/pkg/transport"
)

var errConnectionCycled = errors.New("connection cycled by a newer connection")

type App struct {
	logger     *slog.Logger
	config     *config.Config
	registry   *rooms.Registry
	dispatcher *dispatch.Dispatcher
	conns      *connectionSet
	wg         sync.WaitGroup
	http       *http.Server

	ctx context.Context
}

// NewApp wires the session core: store, authenticator, room registry,
// dispatcher and handlers, behind the HTTP endpoints.
func NewApp(rootCtx context.Context, logger *slog.Logger, cfg *config.Config) (*App, error) {
	st := memstore.New(logger)
	if cfg.Store.SeedFile != "" {
		if err := st.LoadSeedFile(cfg.Store.SeedFile); err != nil {
			return nil, fmt.Errorf("load seed %s: %w", cfg.Store.SeedFile, err)
		}
	}

	var sessions store.Sessions = st
	if cfg.Auth.Mode == config.AuthModeJWT {
		jwtSessions, err := auth.NewJWTSessions(cfg.Auth.JWTSecret)
		if err != nil {
			return nil, err
		}
		sessions = jwtSessions
	}
	authenticator := auth.NewAuthenticator(logger, sessions, st)

	var opts []dispatch.Option
	if cfg.Dispatch.RateLimit != "" {
		limit, period, err := dispatch.ParseRate(cfg.Dispatch.RateLimit)
		if err != nil {
			return nil, err
		}
		opts = append(opts, dispatch.WithRateLimiter(dispatch.NewRateLimiter(limit, period)))
	}

	registry := rooms.NewRegistry(logger)
	dispatcher := dispatch.New(logger, registry, opts...)
	handlers.New(logger, registry, authenticator, st, dice.NewRoller(uint64(time.Now().UnixNano()))).Register(dispatcher)

	app := &App{
		logger:     logger,
		config:     cfg,
		registry:   registry,
		dispatcher: dispatcher,
		conns:      newConnectionSet(),
		ctx:        rootCtx,
	}
	app.http = &http.Server{
		Addr:    cfg.Server.Address,
		Handler: app.Handler(),
		BaseContext: func(net.Listener) context.Context {
			return app.ctx
		},
	}
	return app, nil
}

// Handler returns the HTTP routes of the app.
func (a *App) Handler() http.Handler {
	cycler := func(ip string) {
		if oldest, ok := a.conns.oldestByIP(ip); ok {
			a.logger.Info("Cycling connection: closing oldest", slog.String("ip", ip), slog.String("connID", oldest.ID().String()))
			oldest.Close(errConnectionCycled)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/ws",
		middleware.Chain(http.HandlerFunc(a.upgradeHandler),
			middleware.RequestMetadataMiddleware(),
			middleware.NewRequestLogger(a.logger),
			middleware.NewConnectionLimiter(a.logger, a.conns.countByIP, cycler, a.config.Server.ConnectionLimit),
			middleware.NewHandshakeToken(a.logger),
		),
	)
	mux.HandleFunc("/healthz", a.healthHandler)
	return mux
}

func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Server starting", slog.String("addr", a.http.Addr))
		if err := a.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-a.ctx.Done():
	}
	return a.Shutdown()
}

func (a *App) upgradeHandler(w http.ResponseWriter, r *http.Request) {
	var ip string
	if reqMeta, ok := middleware.ReqMetadataFrom(r.Context()); ok {
		ip = reqMeta.IP
	}
	connLogger := a.logger.With(slog.String("remoteAddr", ip))

	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		connLogger.Error("Failed to accept websocket connection", slog.Any("error", err))
		return
	}

	conn := transport.NewConnection(
		r.Context(),
		&a.wg,
		wsConn,
		transport.Config{
			ReadTimeout: a.config.Transport.ReadTimeout,
			SendQueue:   a.config.Transport.SendQueue,
		},
		transport.Handlers{
			OnOpen: func(c *transport.Connection) {
				a.conns.add(c, ip)
				a.dispatcher.Open(c)
			},
			OnMessage: func(ctx context.Context, c *transport.Connection, msg []byte) {
				a.dispatcher.Handle(ctx, c, msg)
			},
			OnError: func(c *transport.Connection, err error) {
				a.dispatcher.TransportError(c, err)
			},
			OnClose: func(c *transport.Connection, err error) {
				a.conns.remove(c.ID())
				a.dispatcher.Close(c)
			},
		},
		connLogger,
	)
	conn.Run()
	<-conn.Done()
}

type healthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	Rooms       int    `json:"rooms"`
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(healthResponse{
		Status:      "ok",
		Connections: a.conns.len(),
		Rooms:       a.registry.RoomCount(),
	})
}

// Shutdown stops accepting requests, closes every websocket and waits for
// their cleanup to finish.
func (a *App) Shutdown() error {
	a.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.http.Shutdown(shutdownCtx); err != nil {
		return err
	}

	a.logger.Info("Closing all active connections...", slog.Int("count", a.conns.len()))
	for _, conn := range a.conns.all() {
		conn.Close(errors.New("graceful shutdown"))
	}

	a.wg.Wait()
	a.logger.Info("Server shut down gracefully.")
	return nil
}
