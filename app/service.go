// Package app assembles the configured stores, gateways and the dispatch
// engine into a runnable service.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/medride/dispatch/api"
	"github.com/medride/dispatch/config"
	"github.com/medride/dispatch/core/dispatch"
	"github.com/medride/dispatch/core/driver"
	"github.com/medride/dispatch/core/events"
	"github.com/medride/dispatch/core/history"
	"github.com/medride/dispatch/core/location"
	coremetrics "github.com/medride/dispatch/core/metrics"
	"github.com/medride/dispatch/core/ride"
	"github.com/medride/dispatch/core/user"
	infralocation "github.com/medride/dispatch/infra/location"
	"github.com/medride/dispatch/infra/logger"
	"github.com/medride/dispatch/infra/metrics"
	"github.com/medride/dispatch/infra/notify"
	"github.com/medride/dispatch/infra/store"
	"github.com/medride/dispatch/internal/eventbus"
)

// Service owns the wired collaborators and the HTTP listener.
type Service struct {
	Engine  *dispatch.Engine
	cfg     *config.Config
	server  *http.Server
	sweeper *ride.Sweeper
	hub     *notify.WSGateway
	bus     *eventbus.Bus
	db      *store.DB
	log     logger.Logger
}

// New creates a Service from the configuration.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	svc := &Service{cfg: cfg, bus: eventbus.New(), log: logg}

	var (
		drivers driver.Registry
		rides   ride.Store
		users   user.Store
		hist    history.Store
	)
	switch cfg.Storage.Rides {
	case "postgres":
		db, err := store.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		svc.db = db
		drivers = store.NewDriverRegistry(db)
		rides = store.NewRideStore(db)
		users = store.NewUserStore(db)
		hist = store.NewHistoryStore(db)
	default:
		drivers = driver.NewMemoryRegistry()
		rides = ride.NewMemoryStore()
		users = user.NewMemoryStore()
		hist = history.NewMemoryStore()
	}

	var locations location.Store
	if cfg.Storage.Locations == "redis" {
		rs, err := infralocation.NewRedisStore(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		locations = rs
	} else {
		locations = location.NewMemoryStore()
	}

	var gateway notify.Gateway
	switch cfg.Notify.Mode {
	case "mqtt":
		gw, err := notify.NewMQTTGateway(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt gateway: %w", err)
		}
		gateway = gw
	case "ws":
		svc.hub = notify.NewWSGateway()
		gateway = svc.hub
	default:
		gateway = notify.NewMockGateway()
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PromAddr != "" {
		sink, err := metrics.NewPromSink()
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.Influx.URL != "" {
		in := cfg.Metrics.Influx
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(in.URL, in.Token, in.Org, in.Bucket))
	}
	var sink coremetrics.Sink
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	engine, err := dispatch.NewEngine(drivers, locations, rides, gateway, cfg.Dispatch, sink, svc.bus, logger.New("dispatch"))
	if err != nil {
		return nil, fmt.Errorf("dispatch engine: %w", err)
	}
	svc.Engine = engine
	svc.sweeper = ride.NewSweeper(rides, cfg.Dispatch.SweepInterval(), logger.New("sweeper"))

	auth := api.NewAuthenticator(cfg.Auth.Secret)
	var hub api.DriverHub
	if svc.hub != nil {
		hub = svc.hub
	}
	server := api.NewServer(engine, drivers, locations, users, hist, hub, auth, logger.New("api"))
	svc.server = &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return svc, nil
}

// watchEvents drains the bus into the log so operators can follow dispatch
// activity without a metrics backend.
func (s *Service) watchEvents(ctx context.Context) {
	sub := s.bus.Subscribe()
	defer s.bus.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			switch e := ev.(type) {
			case events.RideEvent:
				if e.Forwarded {
					s.log.Infof("ride %s forwarded to %d candidates", e.RequestUID, e.Candidates)
				} else {
					s.log.Infof("ride %s requested, %d candidates", e.RequestUID, e.Candidates)
				}
			case events.ExclusionEvent:
				s.log.Infof("ride %s excluded driver %s", e.RequestUID, e.DriverUID)
			case events.DeliveryEvent:
				if e.Err != nil {
					s.log.Warnf("ride %s delivery to %s failed: %v", e.RequestUID, e.DriverUID, e.Err)
				} else {
					s.log.Debugf("ride %s delivered to %s in %s", e.RequestUID, e.DriverUID, e.Latency)
				}
			}
		}
	}
}

// Run starts the sweeper, metrics endpoint and HTTP listener, and blocks
// until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	go s.sweeper.Run(ctx)
	go s.watchEvents(ctx)
	if s.cfg.Metrics.PromAddr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PromAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", s.cfg.HTTP.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	if s.db != nil {
		s.db.Close()
	}
	return nil
}
