// Package app assembles the mini app client: gateway, host runtime, and the
// three stores, plus the lifecycle-managed background services.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/smolville/miniapp/internal/app/services/ads"
	"github.com/smolville/miniapp/internal/app/services/events"
	"github.com/smolville/miniapp/internal/app/services/meetings"
	"github.com/smolville/miniapp/internal/app/system"
	"github.com/smolville/miniapp/internal/config"
	"github.com/smolville/miniapp/internal/gateway"
	"github.com/smolville/miniapp/internal/host"
	"github.com/smolville/miniapp/pkg/logger"
)

// Options carries the application dependencies. Nil fields default: config
// to the built-in defaults, the gateway to a client for the configured
// backend, and the host runtime to the no-op implementation.
type Options struct {
	Config  *config.Config
	Gateway *gateway.Client
	Host    host.Runtime
	Log     *logger.Logger
}

// Application ties the stores together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Gateway  *gateway.Client
	Host     host.Runtime
	Events   *events.Service
	Meetings *meetings.Service
	Ads      *ads.Service
}

// New builds a fully initialised application.
func New(opts Options) (*Application, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	log := opts.Log
	if log == nil {
		log = logger.NewDefault("app")
	}

	gw := opts.Gateway
	if gw == nil {
		var err error
		gw, err = gateway.New(gateway.Config{
			BaseURL:    cfg.BackendURL,
			HTTPClient: &http.Client{Timeout: cfg.RequestTimeout},
			Log:        log.WithField("component", "gateway"),
		})
		if err != nil {
			return nil, fmt.Errorf("configure gateway: %w", err)
		}
	}

	rt := opts.Host
	if rt == nil {
		rt = host.NewNop(log)
	}

	eventsSvc := events.New(gw, rt, log.WithField("store", "events"))
	meetingsSvc := meetings.New(gw, rt, gw.BaseURL(), log.WithField("store", "meetings"))
	adsSvc := ads.New(gw, log.WithField("store", "ads"))

	manager := system.NewManager()
	if cfg.RefreshInterval > 0 {
		refresher := NewRefresher(eventsSvc, meetingsSvc, adsSvc, log)
		refresher.interval = cfg.RefreshInterval
		if err := refresher.register(manager); err != nil {
			return nil, err
		}
	}

	return &Application{
		manager:  manager,
		log:      log,
		Gateway:  gw,
		Host:     rt,
		Events:   eventsSvc,
		Meetings: meetingsSvc,
		Ads:      adsSvc,
	}, nil
}

// Sync performs the initial fetch of every store, the mount-time load the
// screens expect before first render.
func (a *Application) Sync(ctx context.Context) {
	a.Events.FetchEvents(ctx)
	a.Meetings.FetchMeetings(ctx)
	a.Ads.FetchAds(ctx)
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered background services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all background services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
