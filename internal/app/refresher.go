package app

import (
	"context"
	"sync"
	"time"

	"github.com/smolville/miniapp/internal/app/services/ads"
	"github.com/smolville/miniapp/internal/app/services/events"
	"github.com/smolville/miniapp/internal/app/services/meetings"
	"github.com/smolville/miniapp/internal/app/system"
	"github.com/smolville/miniapp/pkg/logger"
)

var _ system.Service = (*Refresher)(nil)

// Refresher periodically re-syncs every store so the view state tracks the
// backend between user-triggered fetches.
type Refresher struct {
	events   *events.Service
	meetings *meetings.Service
	ads      *ads.Service
	log      *logger.Logger
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewRefresher creates a lifecycle-managed store refresher.
func NewRefresher(events *events.Service, meetings *meetings.Service, ads *ads.Service, log *logger.Logger) *Refresher {
	if log == nil {
		log = logger.NewDefault("refresher")
	}
	return &Refresher{
		events:   events,
		meetings: meetings,
		ads:      ads,
		log:      log,
		interval: 5 * time.Minute,
	}
}

func (r *Refresher) register(manager *system.Manager) error {
	return manager.Register(r)
}

func (r *Refresher) Name() string { return "store-refresher" }

func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				r.tick(runCtx)
			}
		}
	}()

	r.log.Info("store refresher started")
	return nil
}

func (r *Refresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.log.Info("store refresher stopped")
	return nil
}

func (r *Refresher) tick(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if r.events != nil {
		r.events.FetchEvents(ctx)
	}
	if r.meetings != nil {
		r.meetings.FetchMeetings(ctx)
	}
	if r.ads != nil {
		r.ads.FetchAds(ctx)
	}
}
