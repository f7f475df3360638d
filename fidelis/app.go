package fidelis

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/alovak/fidelis-loyalty/internal/middleware"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"
)

// App serves the Fidelis HTTP API and is responsible for starting and
// stopping it.
type App struct {
	srv    *http.Server
	wg     *sync.WaitGroup
	Addr   string
	logger *slog.Logger
	config *Config
	client *Client
}

func NewApp(logger *slog.Logger, config *Config) *App {
	logger = logger.With(slog.String("app", "fidelis"))

	if config == nil {
		config = DefaultConfig()
	}

	return &App{
		wg:     &sync.WaitGroup{},
		logger: logger,
		config: config,
	}
}

// WithClient makes the app serve c instead of building one from config.
func (a *App) WithClient(c *Client) *App {
	a.client = c
	return a
}

func (a *App) Start() error {
	a.logger.Info("starting app...")

	if a.client == nil {
		client, err := NewFromConfig(a.config, a.logger)
		if err != nil {
			return fmt.Errorf("creating fidelis client: %w", err)
		}
		a.client = client
	}

	router := chi.NewRouter()
	router.Use(middleware.NewStructuredLogger(a.logger))

	api := NewAPI(a.client)
	api.AppendRoutes(router)

	router.Get("/-/live", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	l, err := net.Listen("tcp", a.config.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening tcp port: %w", err)
	}

	a.Addr = l.Addr().String()

	a.srv = &http.Server{
		Handler: router,
	}

	a.wg.Add(1)
	go func() {
		a.logger.Info("http server started", slog.String("addr", a.Addr))

		if err := a.srv.Serve(l); err != nil {
			if err != http.ErrServerClosed {
				a.logger.Error("starting http server", "err", err)
			}

			a.logger.Info("http server stopped")
		}

		a.wg.Done()
	}()

	return nil
}

func (a *App) Shutdown() {
	a.logger.Info("shutting down app...")

	if a.srv != nil {
		a.srv.Shutdown(context.Background())
	}

	a.wg.Wait()

	a.logger.Info("app stopped")
}
