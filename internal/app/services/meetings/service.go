// Package meetings holds the meeting store: the normalized meeting list, the
// derived active and past views, and the identity-gated mutations with their
// user notifications.
package meetings

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/smolville/miniapp/internal/app/badge"
	"github.com/smolville/miniapp/internal/app/domain/meeting"
	"github.com/smolville/miniapp/internal/gateway"
	"github.com/smolville/miniapp/internal/host"
	"github.com/smolville/miniapp/pkg/logger"
)

// User-facing notification and error texts.
const (
	msgLoginRequired   = "Войдите в систему"
	msgFetchFailed     = "Не удалось загрузить встречи"
	msgCreated         = "Встреча успешно создана!"
	msgCreateFailed    = "Ошибка при создании встречи"
	msgJoined          = "Вы присоединились к встрече!"
	msgJoinRejected    = "Ошибка присоединения"
	msgJoinFailed      = "Ошибка при присоединении"
	msgLeft            = "Вы вышли из встречи"
	msgLeaveRejected   = "Ошибка выхода"
	msgLeaveFailed     = "Ошибка при выходе"
	fallbackUsername   = "Smolville_bot"
)

// Gateway is the backend surface the meeting store needs.
type Gateway interface {
	Meetings(ctx context.Context) ([]meeting.Wire, error)
	CreateMeeting(ctx context.Context, form gateway.CreateMeetingForm) (gateway.CreateMeetingResult, error)
	AttendMeeting(ctx context.Context, meetToken string, userID int64) (gateway.ActionResult, error)
	UnattendMeeting(ctx context.Context, meetToken string, userID int64) (gateway.ActionResult, error)
	CheckMeetingAttendance(ctx context.Context, meetToken string, userID int64) (bool, error)
	AddMeetingView(ctx context.Context, meetToken string, userID int64) error
	MeetingCreator(ctx context.Context, meetToken string) (string, error)
}

// CreateForm carries the user-entered meeting fields.
type CreateForm struct {
	Title       string
	Description string
	Date        string
	Type        string
	AgeLimit    int
	Location    string
	MapLink     string
	Image       []byte
	ImageName   string
}

// CreateResult is the outcome of CreateMeeting. Message carries the server's
// or transport's explanation when Success is false.
type CreateResult struct {
	Success bool
	Message string
	Data    json.RawMessage
}

// Service owns the reactive meeting state. Every held meeting has passed
// through meeting.Normalize, so display fields are always defined. Mutations
// run under the service mutex.
type Service struct {
	gw        Gateway
	host      host.Runtime
	log       *logger.Logger
	imageBase string
	now       func() time.Time

	mu              sync.RWMutex
	meetings        []meeting.Meeting
	loading         bool
	errMsg          string
	selected        *meeting.Meeting
	showCreateModal bool
}

// New constructs the meeting store. imageBase is the backend base URL used
// to absolutize relative image paths.
func New(gw Gateway, rt host.Runtime, imageBase string, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("meetings")
	}
	return &Service{
		gw:        gw,
		host:      rt,
		log:       log,
		imageBase: imageBase,
		now:       time.Now,
		loading:   true,
	}
}

// FetchMeetings replaces the meeting list from the backend. Unlike the event
// store there is no mock fallback: transport failures and malformed payloads
// surface as the visible error message.
func (s *Service) FetchMeetings(ctx context.Context) {
	s.mu.Lock()
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	wires, err := s.gw.Meetings(ctx)
	if err != nil {
		s.log.WithError(err).Error("fetch meetings failed")
		s.mu.Lock()
		s.errMsg = msgFetchFailed
		s.mu.Unlock()
		return
	}

	now := s.now()
	list := make([]meeting.Meeting, 0, len(wires))
	for _, w := range wires {
		list = append(list, meeting.Normalize(w, s.imageBase, now))
	}

	s.mu.Lock()
	s.meetings = list
	s.mu.Unlock()
	s.log.WithField("count", len(list)).Info("meetings loaded")
}

// ActiveMeetings derives the upcoming view: meetings with a future date and
// a status other than ended, soonest first. Meetings whose date cannot be
// parsed are classified by status alone.
func (s *Service) ActiveMeetings() []meeting.Meeting {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	out := make([]meeting.Meeting, 0, len(s.meetings))
	for _, m := range s.meetings {
		t, ok := m.Time()
		if !ok {
			if m.Status {
				out = append(out, m)
			}
			continue
		}
		if t.After(now) && m.Status {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, _ := out[i].Time()
		tj, _ := out[j].Time()
		return ti.Before(tj)
	})
	return out
}

// PastMeetings derives the archive view: meetings already over or explicitly
// ended, most recent first.
func (s *Service) PastMeetings() []meeting.Meeting {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	out := make([]meeting.Meeting, 0, len(s.meetings))
	for _, m := range s.meetings {
		t, ok := m.Time()
		if !ok {
			if !m.Status {
				out = append(out, m)
			}
			continue
		}
		if !t.After(now) || !m.Status {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, _ := out[i].Time()
		tj, _ := out[j].Time()
		return tj.Before(ti)
	})
	return out
}

// CreateMeeting packages the form and the acting user into a multipart
// request. Without a resolved identity it emits a single "log in"
// notification and performs no network call. On success the whole list is
// re-fetched and a success notification is emitted.
func (s *Service) CreateMeeting(ctx context.Context, form CreateForm) CreateResult {
	user := s.host.User()
	if user.ID == 0 {
		s.host.Notify(msgLoginRequired, host.NoticeError)
		return CreateResult{}
	}

	username := user.Username
	if username == "" {
		username = fallbackUsername
	}

	res, err := s.gw.CreateMeeting(ctx, gateway.CreateMeetingForm{
		Title:       form.Title,
		Description: form.Description,
		Date:        form.Date,
		Type:        form.Type,
		AgeLimit:    form.AgeLimit,
		Location:    form.Location,
		MapLink:     form.MapLink,
		Image:       form.Image,
		ImageName:   form.ImageName,
		UserID:      user.ID,
		Username:    username,
	})
	if err != nil {
		s.log.WithError(err).Error("create meeting failed")
		s.host.Notify(msgCreateFailed, host.NoticeError)
		return CreateResult{Message: err.Error()}
	}
	if !res.Success {
		s.host.Notify(res.Message, host.NoticeError)
		return CreateResult{Message: res.Message}
	}

	s.FetchMeetings(ctx)
	s.host.Notify(msgCreated, host.NoticeSuccess)
	return CreateResult{Success: true, Data: res.Data}
}

// AttendMeeting registers the acting user and optimistically bumps the local
// attendee count.
func (s *Service) AttendMeeting(ctx context.Context, meetToken string) bool {
	user := s.host.User()
	if user.ID == 0 {
		s.host.Notify(msgLoginRequired, host.NoticeError)
		return false
	}

	res, err := s.gw.AttendMeeting(ctx, meetToken, user.ID)
	if err != nil {
		s.log.WithError(err).WithField("meet_token", meetToken).Error("attend meeting failed")
		s.host.Notify(msgJoinFailed, host.NoticeError)
		return false
	}
	if !res.Success {
		msg := res.Message
		if msg == "" {
			msg = msgJoinRejected
		}
		s.host.Notify(msg, host.NoticeError)
		return false
	}

	s.mu.Lock()
	for i := range s.meetings {
		if s.meetings[i].MeetToken == meetToken {
			s.meetings[i].AttendeesCount++
			break
		}
	}
	s.mu.Unlock()

	s.host.Notify(msgJoined, host.NoticeSuccess)
	return true
}

// UnattendMeeting removes the registration and decrements the local count,
// never below zero.
func (s *Service) UnattendMeeting(ctx context.Context, meetToken string) bool {
	user := s.host.User()
	if user.ID == 0 {
		s.host.Notify(msgLoginRequired, host.NoticeError)
		return false
	}

	res, err := s.gw.UnattendMeeting(ctx, meetToken, user.ID)
	if err != nil {
		s.log.WithError(err).WithField("meet_token", meetToken).Error("unattend meeting failed")
		s.host.Notify(msgLeaveFailed, host.NoticeError)
		return false
	}
	if !res.Success {
		msg := res.Message
		if msg == "" {
			msg = msgLeaveRejected
		}
		s.host.Notify(msg, host.NoticeError)
		return false
	}

	s.mu.Lock()
	for i := range s.meetings {
		if s.meetings[i].MeetToken == meetToken {
			if s.meetings[i].AttendeesCount > 0 {
				s.meetings[i].AttendeesCount--
			}
			break
		}
	}
	s.mu.Unlock()

	s.host.Notify(msgLeft, host.NoticeSuccess)
	return true
}

// CheckUserAttendance reports whether the acting user attends the meeting.
// A response without the attendance field and any failure read as false.
func (s *Service) CheckUserAttendance(ctx context.Context, meetToken string) bool {
	attending, err := s.gw.CheckMeetingAttendance(ctx, meetToken, s.host.User().ID)
	if err != nil {
		s.log.WithError(err).WithField("meet_token", meetToken).Error("check attendance failed")
		return false
	}
	return attending
}

// AddMeetView posts a view-count increment and optimistically bumps the
// local counter. Without a resolved identity it silently does nothing.
func (s *Service) AddMeetView(ctx context.Context, meetToken string) bool {
	user := s.host.User()
	if user.ID == 0 {
		return false
	}

	if err := s.gw.AddMeetingView(ctx, meetToken, user.ID); err != nil {
		s.log.WithError(err).WithField("meet_token", meetToken).Error("add meeting view failed")
		return false
	}

	s.mu.Lock()
	for i := range s.meetings {
		if s.meetings[i].MeetToken == meetToken {
			s.meetings[i].ViewCount++
			break
		}
	}
	s.mu.Unlock()
	return true
}

// MeetingCreator returns the creator's username, or empty when unknown.
func (s *Service) MeetingCreator(ctx context.Context, meetToken string) string {
	username, err := s.gw.MeetingCreator(ctx, meetToken)
	if err != nil {
		s.log.WithError(err).WithField("meet_token", meetToken).Error("fetch meeting creator failed")
		return ""
	}
	return username
}

// SelectMeeting records the meeting the user opened.
func (s *Service) SelectMeeting(m meeting.Meeting) {
	s.mu.Lock()
	s.selected = &m
	s.mu.Unlock()
}

// ClearSelectedMeeting drops the selection.
func (s *Service) ClearSelectedMeeting() {
	s.mu.Lock()
	s.selected = nil
	s.mu.Unlock()
}

// SelectedMeeting returns the open meeting, if any.
func (s *Service) SelectedMeeting() (meeting.Meeting, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == nil {
		return meeting.Meeting{}, false
	}
	return *s.selected, true
}

// OpenCreateModal and CloseCreateModal toggle the creation dialog state the
// view renders.
func (s *Service) OpenCreateModal() {
	s.mu.Lock()
	s.showCreateModal = true
	s.mu.Unlock()
}

func (s *Service) CloseCreateModal() {
	s.mu.Lock()
	s.showCreateModal = false
	s.mu.Unlock()
}

func (s *Service) CreateModalVisible() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.showCreateModal
}

// Meetings returns a copy of the normalized meeting list.
func (s *Service) Meetings() []meeting.Meeting {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]meeting.Meeting, len(s.meetings))
	copy(out, s.meetings)
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

var monthsGenitive = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// FormatDate renders a wire date relative to the current day: "Сегодня,
// 19:00", "Завтра, 19:00", or "18 января 2026, 19:00".
func (s *Service) FormatDate(dateStr string) string {
	if dateStr == "" {
		return "Без даты"
	}
	t, ok := meeting.ParseTime(dateStr)
	if !ok {
		return "Неверная дата"
	}

	now := s.now()
	t = t.In(now.Location())
	clock := fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())

	switch {
	case sameDay(t, now):
		return "Сегодня, " + clock
	case sameDay(t, now.AddDate(0, 0, 1)):
		return "Завтра, " + clock
	default:
		return fmt.Sprintf("%d %s %d, %s", t.Day(), monthsGenitive[t.Month()-1], t.Year(), clock)
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// FormatAgeLimit renders an age limit as "18+" or the unrestricted label.
func (s *Service) FormatAgeLimit(ageLimit int) string {
	if ageLimit > 0 {
		return fmt.Sprintf("%d+", ageLimit)
	}
	return "Без ограничений"
}

// StatusBadgeStyle colors the completion badge.
func (s *Service) StatusBadgeStyle(completed bool) badge.Style {
	return badge.Status(completed)
}

// AttendeesBadgeStyle maps an attendee count to its badge colors.
func (s *Service) AttendeesBadgeStyle(count int) badge.Style {
	return badge.Attendees(count)
}
