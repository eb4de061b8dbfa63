// Package events holds the event store: the list of published events, the
// filter and tab view state, and the attend/unattend operations.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/smolville/miniapp/internal/app/badge"
	"github.com/smolville/miniapp/internal/app/domain/event"
	"github.com/smolville/miniapp/internal/gateway"
	"github.com/smolville/miniapp/internal/host"
	"github.com/smolville/miniapp/pkg/logger"
)

// Tab selects the time bucket of the event list.
type Tab string

const (
	TabFuture Tab = "future"
	TabPast   Tab = "past"
)

// FilterAll matches every event category.
const FilterAll = "all"

// fetchErrorMessage is the user-visible error set when the event list cannot
// be loaded over the network.
const fetchErrorMessage = "Не удалось загрузить события"

// Gateway is the backend surface the event store needs.
type Gateway interface {
	ServerStatus(ctx context.Context) (gateway.Status, error)
	Events(ctx context.Context) ([]event.Event, error)
	AttendEvent(ctx context.Context, eventID, userID int64) (gateway.ActionResult, error)
	UnattendEvent(ctx context.Context, eventID, userID int64) (gateway.ActionResult, error)
	CheckEventAttendance(ctx context.Context, eventID, userID int64) (bool, error)
	EventAttendeesCount(ctx context.Context, eventID int64) (int, error)
}

// Service owns the reactive event state. All mutation runs under the service
// mutex, so overlapping attend and unattend calls serialize instead of racing
// on the shared attendee counts.
type Service struct {
	gw   Gateway
	host host.Runtime
	log  *logger.Logger
	now  func() time.Time

	mu              sync.RWMutex
	events          []event.Event
	loading         bool
	errMsg          string
	activeFilter    string
	activeTab       Tab
	selected        *event.Event
	serverAvailable bool
	serverStatus    string
}

// New constructs the event store.
func New(gw Gateway, rt host.Runtime, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("events")
	}
	return &Service{
		gw:              gw,
		host:            rt,
		log:             log,
		now:             time.Now,
		loading:         true,
		activeFilter:    FilterAll,
		activeTab:       TabFuture,
		serverAvailable: true,
	}
}

// FetchEvents replaces the event list from the backend. It first probes the
// status endpoint; a confirmed-unavailable backend, a malformed payload, and
// a transport failure all fall back to the fixed mock list, so the operation
// never fails from the caller's point of view. Only the transport failure
// sets the visible error message.
func (s *Service) FetchEvents(ctx context.Context) {
	s.mu.Lock()
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	s.checkServerStatus(ctx)
	if !s.ServerAvailable() {
		s.log.WithField("reason", s.ServerStatusMessage()).Warn("backend unavailable, serving mock events")
		s.loadMockEvents()
		return
	}

	list, err := s.gw.Events(ctx)
	if err != nil {
		if errors.Is(err, gateway.ErrMalformedResponse) {
			s.log.Warn("events payload malformed, serving mock events")
		} else {
			s.log.WithError(err).Error("fetch events failed, serving mock events")
			s.mu.Lock()
			s.errMsg = fetchErrorMessage
			s.mu.Unlock()
		}
		s.loadMockEvents()
		return
	}

	for i := range list {
		if list[i].AttendeesCount < 0 {
			list[i].AttendeesCount = 0
		}
	}

	s.mu.Lock()
	s.events = list
	s.mu.Unlock()
	s.log.WithField("count", len(list)).Info("events loaded")
}

func (s *Service) checkServerStatus(ctx context.Context) {
	st, err := s.gw.ServerStatus(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case err != nil:
		s.serverAvailable = false
		s.serverStatus = "Ошибка соединения"
	case st.Available == 0:
		s.serverAvailable = false
		s.serverStatus = st.Message
		if s.serverStatus == "" {
			s.serverStatus = "Технические работы"
		}
	default:
		s.serverAvailable = true
		s.serverStatus = ""
	}
}

// FilteredEvents derives the view: the intersection of the category filter
// and the future/past tab, evaluated against the current instant. Events with
// unparseable dates land in the past bucket.
func (s *Service) FilteredEvents() []event.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	out := make([]event.Event, 0, len(s.events))
	for _, ev := range s.events {
		if s.activeFilter != FilterAll && ev.Type != s.activeFilter {
			continue
		}
		t, ok := ev.Time()
		isFuture := ok && t.After(now)
		if (s.activeTab == TabFuture) != isFuture {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// AttendEvent registers the acting user for an event and optimistically
// bumps the local attendee count. Transport errors are logged and reported
// as false, never raised.
func (s *Service) AttendEvent(ctx context.Context, eventID int64) bool {
	res, err := s.gw.AttendEvent(ctx, eventID, s.host.User().ID)
	if err != nil {
		s.log.WithError(err).WithField("event_id", eventID).Error("attend event failed")
		return false
	}
	if !res.Success {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == eventID {
			s.events[i].AttendeesCount++
			break
		}
	}
	return true
}

// UnattendEvent removes the registration and decrements the local count,
// never below zero.
func (s *Service) UnattendEvent(ctx context.Context, eventID int64) bool {
	res, err := s.gw.UnattendEvent(ctx, eventID, s.host.User().ID)
	if err != nil {
		s.log.WithError(err).WithField("event_id", eventID).Error("unattend event failed")
		return false
	}
	if !res.Success {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == eventID {
			if s.events[i].AttendeesCount > 0 {
				s.events[i].AttendeesCount--
			}
			break
		}
	}
	return true
}

// CheckUserAttendance reports whether the acting user attends the event.
// Any failure reads as false.
func (s *Service) CheckUserAttendance(ctx context.Context, eventID int64) bool {
	attending, err := s.gw.CheckEventAttendance(ctx, eventID, s.host.User().ID)
	if err != nil {
		s.log.WithError(err).WithField("event_id", eventID).Error("check attendance failed")
		return false
	}
	return attending
}

// EventAttendeesCount fetches the server-side attendee count. Failures read
// as zero.
func (s *Service) EventAttendeesCount(ctx context.Context, eventID int64) int {
	count, err := s.gw.EventAttendeesCount(ctx, eventID)
	if err != nil {
		s.log.WithError(err).WithField("event_id", eventID).Error("fetch attendees count failed")
		return 0
	}
	return count
}

// SetFilter sets the active category filter.
func (s *Service) SetFilter(filter string) {
	s.mu.Lock()
	s.activeFilter = filter
	s.mu.Unlock()
}

// SetTab sets the active time bucket.
func (s *Service) SetTab(tab Tab) {
	s.mu.Lock()
	s.activeTab = tab
	s.mu.Unlock()
}

// SelectEvent records the event the user opened.
func (s *Service) SelectEvent(ev event.Event) {
	s.mu.Lock()
	s.selected = &ev
	s.mu.Unlock()
}

// ClearSelectedEvent drops the selection.
func (s *Service) ClearSelectedEvent() {
	s.mu.Lock()
	s.selected = nil
	s.mu.Unlock()
}

// SelectedEvent returns the open event, if any.
func (s *Service) SelectedEvent() (event.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == nil {
		return event.Event{}, false
	}
	return *s.selected, true
}

// Events returns a copy of the full event list.
func (s *Service) Events() []event.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]event.Event, len(s.events))
	copy(out, s.events)
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

func (s *Service) ActiveFilter() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeFilter
}

func (s *Service) ActiveTab() Tab {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeTab
}

func (s *Service) ServerAvailable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.serverAvailable
}

// ServerStatusMessage returns the human-readable backend status, empty while
// the backend is serving.
func (s *Service) ServerStatusMessage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.serverStatus
}

var monthsGenitive = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// FormatDate renders a wire date as "18 января 2026".
func (s *Service) FormatDate(dateStr string) string {
	if dateStr == "" {
		return "Без даты"
	}
	t, ok := event.ParseTime(dateStr)
	if !ok {
		return "Неверная дата"
	}
	return fmt.Sprintf("%d %s %d", t.Day(), monthsGenitive[t.Month()-1], t.Year())
}

// AttendeesBadgeStyle maps an attendee count to its badge colors.
func (s *Service) AttendeesBadgeStyle(count int) badge.Style {
	return badge.Attendees(count)
}
