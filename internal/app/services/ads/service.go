// Package ads holds the marketplace store backing the market screen.
package ads

import (
	"context"
	"sync"

	"github.com/smolville/miniapp/internal/app/domain/ad"
	"github.com/smolville/miniapp/pkg/logger"
)

// Gateway is the backend surface the ads store needs.
type Gateway interface {
	Ads(ctx context.Context) ([]ad.Ad, error)
}

// Service owns the advertisement list.
type Service struct {
	gw  Gateway
	log *logger.Logger

	mu      sync.RWMutex
	ads     []ad.Ad
	loading bool
	errMsg  string
}

// New constructs the ads store.
func New(gw Gateway, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("ads")
	}
	return &Service{gw: gw, log: log, loading: true}
}

// FetchAds replaces the advertisement list from the backend. Failures set
// the visible error message.
func (s *Service) FetchAds(ctx context.Context) {
	s.mu.Lock()
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	list, err := s.gw.Ads(ctx)
	if err != nil {
		s.log.WithError(err).Error("fetch ads failed")
		s.mu.Lock()
		s.errMsg = "Не удалось загрузить объявления"
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.ads = list
	s.mu.Unlock()
	s.log.WithField("count", len(list)).Info("ads loaded")
}

// Ads returns a copy of the advertisement list.
func (s *Service) Ads() []ad.Ad {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ad.Ad, len(s.ads))
	copy(out, s.ads)
	return out
}

func (s *Service) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the visible error message, empty when the last fetch was clean.
func (s *Service) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}
