package host

import "testing"

func TestNopRuntimeServesGuest(t *testing.T) {
	n := NewNop(nil)

	if n.Ready() {
		t.Fatal("nop runtime must never be ready")
	}
	if got := n.User(); got != Guest {
		t.Fatalf("got user %+v, want guest", got)
	}
}

func TestWebAppGuestUntilInit(t *testing.T) {
	w := NewWebApp(User{ID: 42, FirstName: "Иван"}, nil)

	if w.Ready() {
		t.Fatal("runtime must start uninitialized")
	}
	if got := w.User(); got != Guest {
		t.Fatalf("uninitialized runtime must serve guest, got %+v", got)
	}

	w.Init()
	if !w.Ready() || !w.Expanded() {
		t.Fatal("Init must mark ready and expand")
	}
	if got := w.User(); got.ID != 42 {
		t.Fatalf("got user %+v", got)
	}

	w.Init()
	if !w.Ready() {
		t.Fatal("repeated Init must keep the runtime ready")
	}
}

func TestWebAppBackButton(t *testing.T) {
	w := NewWebApp(User{ID: 42}, nil)

	w.ShowBackButton(func() {})
	if w.BackButtonVisible() {
		t.Fatal("back button must be ignored before Init")
	}

	w.Init()
	var pressed int
	w.ShowBackButton(func() { pressed++ })
	if !w.BackButtonVisible() {
		t.Fatal("back button must be visible")
	}
	if !w.PressBack() {
		t.Fatal("press must invoke the callback")
	}
	if pressed != 1 {
		t.Fatalf("callback invoked %d times, want 1", pressed)
	}

	w.HideBackButton()
	if w.BackButtonVisible() {
		t.Fatal("back button must be hidden")
	}
	if w.PressBack() {
		t.Fatal("press with hidden button must be a no-op")
	}
}

func TestWebAppNotifications(t *testing.T) {
	w := NewWebApp(User{ID: 42}, nil)
	w.Init()

	w.Notify("Вы присоединились к встрече!", NoticeSuccess)
	w.Notify("Ошибка выхода", NoticeError)

	got := w.DrainNotifications()
	if len(got) != 2 {
		t.Fatalf("got %d notifications, want 2", len(got))
	}
	if got[0].Kind != NoticeSuccess || got[1].Kind != NoticeError {
		t.Fatalf("got %+v", got)
	}

	if rest := w.DrainNotifications(); len(rest) != 0 {
		t.Fatalf("drain must clear the buffer, got %d", len(rest))
	}
}
