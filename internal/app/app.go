package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/redis/go-redis/v9"

	"github.com/abrezinsky/pizzarate/internal/auth"
	"github.com/abrezinsky/pizzarate/internal/config"
	"github.com/abrezinsky/pizzarate/internal/handlers"
	"github.com/abrezinsky/pizzarate/internal/identity"
	"github.com/abrezinsky/pizzarate/internal/logger"
	"github.com/abrezinsky/pizzarate/internal/pubsub"
	"github.com/abrezinsky/pizzarate/internal/repository"
	"github.com/abrezinsky/pizzarate/internal/services"
	"github.com/abrezinsky/pizzarate/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

// App holds all application dependencies
type App struct {
	log      logger.Logger
	cfg      *config.Config
	handlers *handlers.Handlers
	repo     repository.FullRepository
	hub      *websocket.Hub
	redis    *redis.Client
	cancel   context.CancelFunc
}

// New wires storage, identity, live updates and the HTTP layer from cfg.
// Background goroutines stop when Close is called.
func New(ctx context.Context, log logger.Logger, cfg *config.Config) (*App, error) {
	ctx, cancel := context.WithCancel(ctx)
	a := &App{log: log, cfg: cfg, cancel: cancel}

	var fb *firebase.App
	if cfg.UsesFirebase() {
		var err error
		fb, err = identity.NewFirebaseApp(ctx, cfg.Firebase.CredentialsPath, cfg.Firebase.ProjectID)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	repo, err := openStore(ctx, cfg, fb)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.repo = repo

	provider, err := newProvider(ctx, cfg, fb)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.hub = websocket.New(log, cfg.Server.CORSOrigins)
	a.hub.Start(ctx)

	var broadcaster services.Broadcaster = a.hub
	if cfg.Redis.URL != "" {
		a.redis, err = pubsub.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			a.Close()
			return nil, err
		}
		fanout := pubsub.New(log, a.redis, "", a.hub)
		if err := fanout.Start(ctx); err != nil {
			a.Close()
			return nil, err
		}
		broadcaster = fanout
	}

	identitySvc := services.NewIdentityService(log, repo, broadcaster)

	a.handlers = handlers.New(handlers.Deps{
		Identity:    identitySvc,
		Membership:  services.NewMembershipService(log, repo, broadcaster),
		Events:      services.NewEventService(log, repo, broadcaster),
		Pizzas:      services.NewPizzaService(log, repo, broadcaster),
		Ratings:     services.NewRatingService(log, repo, broadcaster),
		Provider:    provider,
		Auth:        auth.New(log, provider, identitySvc),
		Hub:         a.hub,
		Store:       repo,
		Log:         log,
		BaseURL:     cfg.Server.BaseURL,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	log.Info("Application initialized",
		"storage", cfg.Database.Driver,
		"auth", cfg.Firebase.AuthMode,
		"redis", cfg.Redis.URL != "")
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config, fb *firebase.App) (repository.FullRepository, error) {
	switch cfg.Database.Driver {
	case config.DriverFirestore:
		return repository.NewFirestore(ctx, fb)
	case config.DriverSQLite:
		return repository.New(cfg.Database.Path)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Database.Driver)
}

func newProvider(ctx context.Context, cfg *config.Config, fb *firebase.App) (identity.Provider, error) {
	if cfg.Firebase.AuthMode == config.AuthModeFirebase {
		return identity.NewFirebaseProvider(ctx, fb)
	}
	return identity.NewHeaderProvider(), nil
}

// Handler returns the HTTP handler with all middleware applied
func (a *App) Handler() http.Handler {
	return a.handlers.Handler()
}

// Close stops background work and releases connections
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("Failed to close redis client", "error", err)
		}
	}
	if a.repo != nil {
		if err := a.repo.Close(); err != nil {
			a.log.Warn("Failed to close store", "error", err)
		}
	}
}

// Run serves HTTP on addr until ctx is cancelled, then shuts down gracefully
func (a *App) Run(ctx context.Context, addr string) error {
	a.setDefaultBaseURL(addr)

	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("Server starting", "addr", addr, "url", a.handlers.BaseURL)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// setDefaultBaseURL points invite links at the LAN address when no public
// base URL is configured
func (a *App) setDefaultBaseURL(addr string) {
	if a.handlers.BaseURL != "" {
		return
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		a.log.Warn("Cannot derive base URL", "addr", addr, "error", err)
		return
	}
	a.handlers.BaseURL = fmt.Sprintf("http://%s", net.JoinHostPort(getPreferredIP(realNetworkProvider{}), port))
	a.log.Info("Default base URL set", "url", a.handlers.BaseURL)
}

// networkInterface wraps net.Interface for testing
type networkInterface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

type realInterface struct {
	iface net.Interface
}

func (r realInterface) Flags() net.Flags {
	return r.iface.Flags
}

func (r realInterface) Addrs() ([]net.Addr, error) {
	return r.iface.Addrs()
}

// networkProvider lists network interfaces
type networkProvider interface {
	Interfaces() ([]networkInterface, error)
}

type realNetworkProvider struct{}

func (realNetworkProvider) Interfaces() ([]networkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	result := make([]networkInterface, len(ifaces))
	for i, iface := range ifaces {
		result[i] = realInterface{iface: iface}
	}
	return result, nil
}

// getPreferredIP returns the IPv4 address phones on the same network are most
// likely to reach. Private addresses win over public ones; localhost is the
// last resort.
func getPreferredIP(provider networkProvider) string {
	ifaces, err := provider.Interfaces()
	if err != nil {
		return "localhost"
	}

	var fallback net.IP
	for _, iface := range ifaces {
		flags := iface.Flags()
		if flags&net.FlagUp == 0 || flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			ip := addrIP(addr)
			if ip == nil || ip.To4() == nil || ip.IsLoopback() {
				continue
			}
			if ip.IsPrivate() {
				return ip.String()
			}
			if fallback == nil {
				fallback = ip
			}
		}
	}

	if fallback != nil {
		return fallback.String()
	}
	return "localhost"
}

func addrIP(addr net.Addr) net.IP {
	switch v := addr.(type) {
	case *net.IPNet:
		return v.IP
	case *net.IPAddr:
		return v.IP
	}
	return nil
}
