// Package host adapts the embedding Telegram WebApp environment. Consumers
// depend on the Runtime capability interface and receive a concrete
// implementation from the application root: a validated WebApp session when
// the client runs inside Telegram, or the no-op runtime everywhere else.
package host

import (
	"sync"

	"github.com/smolville/miniapp/pkg/logger"
)

// User identifies the acting Telegram user.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username,omitempty"`
}

// Guest is the identity used when no host runtime is available.
var Guest = User{ID: 0, FirstName: "Гость"}

// NotificationKind classifies a user-facing notification.
type NotificationKind string

const (
	NoticeSuccess NotificationKind = "success"
	NoticeError   NotificationKind = "error"
)

// Notification is a message surfaced to the user, with the haptic/popup
// treatment chosen by Kind.
type Notification struct {
	Message string
	Kind    NotificationKind
}

// Runtime is the capability surface of the embedding host. Implementations
// without a real bridge degrade every operation to a no-op or a log line.
type Runtime interface {
	// Ready reports whether the host bridge finished initializing.
	Ready() bool
	// Expand asks the host to expand the web view to full height.
	Expand()
	// User returns the acting user, or Guest when identity is unavailable.
	User() User
	// ShowBackButton displays the host back button and installs its callback.
	ShowBackButton(onBack func())
	// HideBackButton removes the host back button.
	HideBackButton()
	// OpenLink opens an external URL through the host.
	OpenLink(url string)
	// Notify surfaces a message to the user.
	Notify(message string, kind NotificationKind)
}

// Nop is the runtime used outside Telegram. Identity is the guest
// placeholder and every host operation degrades to a log line.
type Nop struct {
	log *logger.Logger
}

// NewNop creates the no-op runtime.
func NewNop(log *logger.Logger) *Nop {
	if log == nil {
		log = logger.NewDefault("host")
	}
	return &Nop{log: log}
}

func (n *Nop) Ready() bool                { return false }
func (n *Nop) Expand()                    {}
func (n *Nop) User() User                 { return Guest }
func (n *Nop) ShowBackButton(func())      {}
func (n *Nop) HideBackButton()            {}
func (n *Nop) OpenLink(url string)        { n.log.WithField("url", url).Info("open link") }
func (n *Nop) Notify(message string, kind NotificationKind) {
	n.log.WithField("kind", string(kind)).Info(message)
}

// WebApp is the runtime for a validated Telegram WebApp session. It tracks
// the chrome state the real bridge would own and buffers notifications for
// the rendering surface to drain. It has two states, uninitialized and
// ready; Init transitions once and there is no teardown.
type WebApp struct {
	mu            sync.Mutex
	ready         bool
	expanded      bool
	user          User
	backVisible   bool
	onBack        func()
	notifications []Notification
	log           *logger.Logger
}

// NewWebApp creates an uninitialized WebApp runtime for the given user.
func NewWebApp(user User, log *logger.Logger) *WebApp {
	if log == nil {
		log = logger.NewDefault("host")
	}
	return &WebApp{user: user, log: log}
}

// Init marks the bridge ready and expands the view, mirroring the
// ready/expand handshake the host expects on mount. Calling it again is a
// no-op.
func (w *WebApp) Init() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ready {
		return
	}
	w.ready = true
	w.expanded = true
	w.log.WithField("user_id", w.user.ID).Info("host runtime ready")
}

func (w *WebApp) Ready() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ready
}

func (w *WebApp) Expand() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.expanded = true
}

// Expanded reports whether the view has been expanded to full height.
func (w *WebApp) Expanded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.expanded
}

func (w *WebApp) User() User {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.ready {
		return Guest
	}
	return w.user
}

func (w *WebApp) ShowBackButton(onBack func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.ready {
		return
	}
	w.backVisible = true
	w.onBack = onBack
}

func (w *WebApp) HideBackButton() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.backVisible = false
	w.onBack = nil
}

// BackButtonVisible reports whether the back button is currently shown.
func (w *WebApp) BackButtonVisible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.backVisible
}

// PressBack invokes the installed back callback, as the host does when the
// user taps the button. Returns false when no button is shown.
func (w *WebApp) PressBack() bool {
	w.mu.Lock()
	onBack := w.onBack
	visible := w.backVisible
	w.mu.Unlock()
	if !visible || onBack == nil {
		return false
	}
	onBack()
	return true
}

func (w *WebApp) OpenLink(url string) {
	w.log.WithField("url", url).Info("open link")
}

func (w *WebApp) Notify(message string, kind NotificationKind) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.notifications = append(w.notifications, Notification{Message: message, Kind: kind})
}

// DrainNotifications returns and clears the buffered notifications.
func (w *WebApp) DrainNotifications() []Notification {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := w.notifications
	w.notifications = nil
	return out
}
