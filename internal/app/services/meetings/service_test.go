package meetings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smolville/miniapp/internal/app/domain/meeting"
	"github.com/smolville/miniapp/internal/gateway"
	"github.com/smolville/miniapp/internal/host"
)

// stubRuntime records notifications and serves a fixed identity.
type stubRuntime struct {
	user    host.User
	notices []host.Notification
}

func (r *stubRuntime) Ready() bool           { return r.user.ID != 0 }
func (r *stubRuntime) Expand()               {}
func (r *stubRuntime) User() host.User       { return r.user }
func (r *stubRuntime) ShowBackButton(func()) {}
func (r *stubRuntime) HideBackButton()       {}
func (r *stubRuntime) OpenLink(string)       {}
func (r *stubRuntime) Notify(message string, kind host.NotificationKind) {
	r.notices = append(r.notices, host.Notification{Message: message, Kind: kind})
}

type fakeGateway struct {
	meetingsFn func() ([]meeting.Wire, error)
	createFn   func(form gateway.CreateMeetingForm) (gateway.CreateMeetingResult, error)
	attendFn   func(meetToken string, userID int64) (gateway.ActionResult, error)
	leaveFn    func(meetToken string, userID int64) (gateway.ActionResult, error)
	checkFn    func(meetToken string, userID int64) (bool, error)
	viewFn     func(meetToken string, userID int64) error
	creatorFn  func(meetToken string) (string, error)

	createCalls int
	attendCalls int
}

func (f *fakeGateway) Meetings(context.Context) ([]meeting.Wire, error) {
	if f.meetingsFn != nil {
		return f.meetingsFn()
	}
	return nil, nil
}

func (f *fakeGateway) CreateMeeting(_ context.Context, form gateway.CreateMeetingForm) (gateway.CreateMeetingResult, error) {
	f.createCalls++
	if f.createFn != nil {
		return f.createFn(form)
	}
	return gateway.CreateMeetingResult{Success: true}, nil
}

func (f *fakeGateway) AttendMeeting(_ context.Context, meetToken string, userID int64) (gateway.ActionResult, error) {
	f.attendCalls++
	if f.attendFn != nil {
		return f.attendFn(meetToken, userID)
	}
	return gateway.ActionResult{Success: true}, nil
}

func (f *fakeGateway) UnattendMeeting(_ context.Context, meetToken string, userID int64) (gateway.ActionResult, error) {
	if f.leaveFn != nil {
		return f.leaveFn(meetToken, userID)
	}
	return gateway.ActionResult{Success: true}, nil
}

func (f *fakeGateway) CheckMeetingAttendance(_ context.Context, meetToken string, userID int64) (bool, error) {
	if f.checkFn != nil {
		return f.checkFn(meetToken, userID)
	}
	return false, nil
}

func (f *fakeGateway) AddMeetingView(_ context.Context, meetToken string, userID int64) error {
	if f.viewFn != nil {
		return f.viewFn(meetToken, userID)
	}
	return nil
}

func (f *fakeGateway) MeetingCreator(_ context.Context, meetToken string) (string, error) {
	if f.creatorFn != nil {
		return f.creatorFn(meetToken)
	}
	return "", nil
}

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestService(gw *fakeGateway, rt host.Runtime) *Service {
	s := New(gw, rt, "https://backend.example", nil)
	s.now = func() time.Time { return testNow }
	return s
}

func wireMeeting(token, date string) meeting.Wire {
	return meeting.Wire{MeetToken: token, Title: "Встреча " + token, Date: date}
}

func TestFetchMeetingsNormalizes(t *testing.T) {
	gw := &fakeGateway{
		meetingsFn: func() ([]meeting.Wire, error) {
			return []meeting.Wire{{MeetToken: "abc", ImageURL: "/images/1.jpeg"}}, nil
		},
	}
	s := newTestService(gw, &stubRuntime{})

	s.FetchMeetings(context.Background())

	list := s.Meetings()
	if len(list) != 1 {
		t.Fatalf("got %d meetings, want 1", len(list))
	}
	m := list[0]
	if m.Title != meeting.DefaultTitle {
		t.Fatalf("got title %q", m.Title)
	}
	if m.ImageURL != "https://backend.example/images/1.jpeg" {
		t.Fatalf("got image %q", m.ImageURL)
	}
	if !m.Status {
		t.Fatal("absent status must normalize to active")
	}
}

func TestFetchMeetingsError(t *testing.T) {
	gw := &fakeGateway{
		meetingsFn: func() ([]meeting.Wire, error) {
			return nil, errors.New("read: connection reset")
		},
	}
	s := newTestService(gw, &stubRuntime{})

	s.FetchMeetings(context.Background())

	if s.Err() != msgFetchFailed {
		t.Fatalf("got error %q, want %q", s.Err(), msgFetchFailed)
	}
	if len(s.Meetings()) != 0 {
		t.Fatal("no meetings expected after failed fetch")
	}
}

func TestActiveAndPastSplit(t *testing.T) {
	ended := false
	gw := &fakeGateway{
		meetingsFn: func() ([]meeting.Wire, error) {
			return []meeting.Wire{
				wireMeeting("later", "2026-04-20T18:00:00Z"),
				wireMeeting("soon", "2026-03-15T18:00:00Z"),
				wireMeeting("over", "2026-02-01T18:00:00Z"),
				{MeetToken: "killed", Title: "X", Date: "2026-04-01T18:00:00Z", Status: &ended},
			}, nil
		},
	}
	s := newTestService(gw, &stubRuntime{})
	s.FetchMeetings(context.Background())

	active := s.ActiveMeetings()
	if len(active) != 2 {
		t.Fatalf("got %d active meetings, want 2", len(active))
	}
	if active[0].MeetToken != "soon" || active[1].MeetToken != "later" {
		t.Fatalf("active order wrong: %q, %q", active[0].MeetToken, active[1].MeetToken)
	}

	past := s.PastMeetings()
	if len(past) != 2 {
		t.Fatalf("got %d past meetings, want 2", len(past))
	}
	if past[0].MeetToken != "killed" || past[1].MeetToken != "over" {
		t.Fatalf("past order wrong: %q, %q", past[0].MeetToken, past[1].MeetToken)
	}
}

func TestCreateMeetingRequiresIdentity(t *testing.T) {
	gw := &fakeGateway{}
	rt := &stubRuntime{}
	s := newTestService(gw, rt)

	res := s.CreateMeeting(context.Background(), CreateForm{Title: "Шахматы"})

	if res.Success {
		t.Fatal("create without identity must fail")
	}
	if gw.createCalls != 0 {
		t.Fatalf("gateway called %d times without identity", gw.createCalls)
	}
	if len(rt.notices) != 1 || rt.notices[0].Message != msgLoginRequired {
		t.Fatalf("got notices %+v, want single %q", rt.notices, msgLoginRequired)
	}
}

func TestCreateMeetingSuccess(t *testing.T) {
	var gotForm gateway.CreateMeetingForm
	gw := &fakeGateway{
		createFn: func(form gateway.CreateMeetingForm) (gateway.CreateMeetingResult, error) {
			gotForm = form
			return gateway.CreateMeetingResult{Success: true}, nil
		},
		meetingsFn: func() ([]meeting.Wire, error) {
			return []meeting.Wire{wireMeeting("fresh", "2026-04-01T18:00:00Z")}, nil
		},
	}
	rt := &stubRuntime{user: host.User{ID: 42, FirstName: "Иван"}}
	s := newTestService(gw, rt)

	res := s.CreateMeeting(context.Background(), CreateForm{Title: "Шахматы", AgeLimit: 12})

	if !res.Success {
		t.Fatalf("create failed: %q", res.Message)
	}
	if gotForm.UserID != 42 {
		t.Fatalf("got user_id %d, want 42", gotForm.UserID)
	}
	if gotForm.Username != fallbackUsername {
		t.Fatalf("empty username must fall back, got %q", gotForm.Username)
	}
	if len(s.Meetings()) != 1 {
		t.Fatal("successful create must re-fetch the list")
	}
	if len(rt.notices) != 1 || rt.notices[0].Message != msgCreated || rt.notices[0].Kind != host.NoticeSuccess {
		t.Fatalf("got notices %+v", rt.notices)
	}
}

func TestCreateMeetingServerReject(t *testing.T) {
	gw := &fakeGateway{
		createFn: func(gateway.CreateMeetingForm) (gateway.CreateMeetingResult, error) {
			return gateway.CreateMeetingResult{Success: false, Message: "дата в прошлом"}, nil
		},
	}
	rt := &stubRuntime{user: host.User{ID: 42}}
	s := newTestService(gw, rt)

	res := s.CreateMeeting(context.Background(), CreateForm{Title: "Шахматы"})

	if res.Success || res.Message != "дата в прошлом" {
		t.Fatalf("got %+v", res)
	}
	if len(rt.notices) != 1 || rt.notices[0].Message != "дата в прошлом" {
		t.Fatalf("got notices %+v", rt.notices)
	}
}

func TestCreateMeetingTransportError(t *testing.T) {
	gw := &fakeGateway{
		createFn: func(gateway.CreateMeetingForm) (gateway.CreateMeetingResult, error) {
			return gateway.CreateMeetingResult{}, errors.New("dial tcp: connection refused")
		},
	}
	rt := &stubRuntime{user: host.User{ID: 42}}
	s := newTestService(gw, rt)

	res := s.CreateMeeting(context.Background(), CreateForm{Title: "Шахматы"})

	if res.Success || res.Message == "" {
		t.Fatalf("got %+v", res)
	}
	if len(rt.notices) != 1 || rt.notices[0].Message != msgCreateFailed {
		t.Fatalf("got notices %+v", rt.notices)
	}
}

func TestAttendMeeting(t *testing.T) {
	gw := &fakeGateway{
		meetingsFn: func() ([]meeting.Wire, error) {
			return []meeting.Wire{wireMeeting("abc", "2026-04-01T18:00:00Z")}, nil
		},
	}
	rt := &stubRuntime{user: host.User{ID: 42}}
	s := newTestService(gw, rt)
	s.FetchMeetings(context.Background())

	if !s.AttendMeeting(context.Background(), "abc") {
		t.Fatal("attend must succeed")
	}
	if got := s.Meetings()[0].AttendeesCount; got != 1 {
		t.Fatalf("got count %d, want 1", got)
	}
	if len(rt.notices) != 1 || rt.notices[0].Message != msgJoined {
		t.Fatalf("got notices %+v", rt.notices)
	}
}

func TestAttendMeetingRequiresIdentity(t *testing.T) {
	gw := &fakeGateway{}
	rt := &stubRuntime{}
	s := newTestService(gw, rt)

	if s.AttendMeeting(context.Background(), "abc") {
		t.Fatal("attend without identity must fail")
	}
	if gw.attendCalls != 0 {
		t.Fatalf("gateway called %d times without identity", gw.attendCalls)
	}
	if len(rt.notices) != 1 || rt.notices[0].Message != msgLoginRequired {
		t.Fatalf("got notices %+v", rt.notices)
	}
}

func TestAttendMeetingRejectedUsesFallbackMessage(t *testing.T) {
	gw := &fakeGateway{
		attendFn: func(string, int64) (gateway.ActionResult, error) {
			return gateway.ActionResult{Success: false}, nil
		},
	}
	rt := &stubRuntime{user: host.User{ID: 42}}
	s := newTestService(gw, rt)

	if s.AttendMeeting(context.Background(), "abc") {
		t.Fatal("rejected attend must report false")
	}
	if len(rt.notices) != 1 || rt.notices[0].Message != msgJoinRejected {
		t.Fatalf("got notices %+v", rt.notices)
	}
}

func TestUnattendMeetingFloorsAtZero(t *testing.T) {
	gw := &fakeGateway{
		meetingsFn: func() ([]meeting.Wire, error) {
			return []meeting.Wire{wireMeeting("abc", "2026-04-01T18:00:00Z")}, nil
		},
	}
	rt := &stubRuntime{user: host.User{ID: 42}}
	s := newTestService(gw, rt)
	s.FetchMeetings(context.Background())

	if !s.UnattendMeeting(context.Background(), "abc") {
		t.Fatal("unattend must succeed")
	}
	if got := s.Meetings()[0].AttendeesCount; got != 0 {
		t.Fatalf("count must not go negative, got %d", got)
	}
	if len(rt.notices) != 1 || rt.notices[0].Message != msgLeft {
		t.Fatalf("got notices %+v", rt.notices)
	}
}

func TestAddMeetView(t *testing.T) {
	gw := &fakeGateway{
		meetingsFn: func() ([]meeting.Wire, error) {
			return []meeting.Wire{wireMeeting("abc", "2026-04-01T18:00:00Z")}, nil
		},
	}
	rt := &stubRuntime{user: host.User{ID: 42}}
	s := newTestService(gw, rt)
	s.FetchMeetings(context.Background())

	if !s.AddMeetView(context.Background(), "abc") {
		t.Fatal("view must register")
	}
	if got := s.Meetings()[0].ViewCount; got != 1 {
		t.Fatalf("got view count %d, want 1", got)
	}

	guest := newTestService(gw, &stubRuntime{})
	if guest.AddMeetView(context.Background(), "abc") {
		t.Fatal("guest view must be dropped")
	}
}

func TestCheckUserAttendanceErrorReadsFalse(t *testing.T) {
	gw := &fakeGateway{
		checkFn: func(string, int64) (bool, error) {
			return true, errors.New("boom")
		},
	}
	s := newTestService(gw, &stubRuntime{user: host.User{ID: 42}})

	if s.CheckUserAttendance(context.Background(), "abc") {
		t.Fatal("failed check must read false")
	}
}

func TestMeetingCreator(t *testing.T) {
	gw := &fakeGateway{
		creatorFn: func(meetToken string) (string, error) {
			if meetToken == "abc" {
				return "smolville_admin", nil
			}
			return "", errors.New("not found")
		},
	}
	s := newTestService(gw, &stubRuntime{})

	if got := s.MeetingCreator(context.Background(), "abc"); got != "smolville_admin" {
		t.Fatalf("got %q", got)
	}
	if got := s.MeetingCreator(context.Background(), "zzz"); got != "" {
		t.Fatalf("failed lookup must read empty, got %q", got)
	}
}

func TestFormatDate(t *testing.T) {
	s := newTestService(&fakeGateway{}, &stubRuntime{})

	cases := []struct {
		in   string
		want string
	}{
		{"2026-03-10T19:00:00Z", "Сегодня, 19:00"},
		{"2026-03-11T09:30:00Z", "Завтра, 09:30"},
		{"2026-01-18T19:00:00Z", "18 января 2026, 19:00"},
		{"", "Без даты"},
		{"мусор", "Неверная дата"},
	}
	for _, tc := range cases {
		if got := s.FormatDate(tc.in); got != tc.want {
			t.Fatalf("FormatDate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatAgeLimit(t *testing.T) {
	s := newTestService(&fakeGateway{}, &stubRuntime{})

	if got := s.FormatAgeLimit(18); got != "18+" {
		t.Fatalf("got %q", got)
	}
	if got := s.FormatAgeLimit(0); got != "Без ограничений" {
		t.Fatalf("got %q", got)
	}
}

func TestCreateModalToggle(t *testing.T) {
	s := newTestService(&fakeGateway{}, &stubRuntime{})

	if s.CreateModalVisible() {
		t.Fatal("modal must start hidden")
	}
	s.OpenCreateModal()
	if !s.CreateModalVisible() {
		t.Fatal("modal must be visible after open")
	}
	s.CloseCreateModal()
	if s.CreateModalVisible() {
		t.Fatal("modal must be hidden after close")
	}
}
