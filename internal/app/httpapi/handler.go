// Package httpapi exposes the store state over a local REST surface for the
// rendering layer embedding the client.
package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	app "github.com/smolville/miniapp/internal/app"
	"github.com/smolville/miniapp/internal/app/services/events"
	"github.com/smolville/miniapp/internal/app/services/meetings"
	"github.com/smolville/miniapp/internal/host"
)

const maxRequestBody = 1 << 20 // 1MiB

// handler bundles HTTP endpoints for the application stores.
type handler struct {
	app *app.Application
}

// NewHandler returns a router exposing the client REST API.
func NewHandler(application *app.Application) http.Handler {
	h := &handler{app: application}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", h.status).Methods(http.MethodGet)
	api.HandleFunc("/refresh", h.refresh).Methods(http.MethodPost)
	api.HandleFunc("/notifications", h.notifications).Methods(http.MethodGet)

	api.HandleFunc("/events", h.listEvents).Methods(http.MethodGet)
	api.HandleFunc("/events/filtered", h.filteredEvents).Methods(http.MethodGet)
	api.HandleFunc("/events/filters", h.setFilters).Methods(http.MethodPut)
	api.HandleFunc("/events/{id:[0-9]+}/attend", h.attendEvent).Methods(http.MethodPost)
	api.HandleFunc("/events/{id:[0-9]+}/unattend", h.unattendEvent).Methods(http.MethodPost)
	api.HandleFunc("/events/{id:[0-9]+}/attendance", h.eventAttendance).Methods(http.MethodGet)

	api.HandleFunc("/meetings", h.listMeetings).Methods(http.MethodGet)
	api.HandleFunc("/meetings", h.createMeeting).Methods(http.MethodPost)
	api.HandleFunc("/meetings/active", h.activeMeetings).Methods(http.MethodGet)
	api.HandleFunc("/meetings/past", h.pastMeetings).Methods(http.MethodGet)
	api.HandleFunc("/meetings/{token}/attend", h.attendMeeting).Methods(http.MethodPost)
	api.HandleFunc("/meetings/{token}/unattend", h.unattendMeeting).Methods(http.MethodPost)
	api.HandleFunc("/meetings/{token}/view", h.viewMeeting).Methods(http.MethodPost)
	api.HandleFunc("/meetings/{token}/attendance", h.meetingAttendance).Methods(http.MethodGet)
	api.HandleFunc("/meetings/{token}/creator", h.meetingCreator).Methods(http.MethodGet)

	api.HandleFunc("/ads", h.listAds).Methods(http.MethodGet)

	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   "miniapp",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *handler) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"server_available": h.app.Events.ServerAvailable(),
		"status_message":   h.app.Events.ServerStatusMessage(),
		"host_ready":       h.app.Host.Ready(),
		"user":             h.app.Host.User(),
	})
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	h.app.Sync(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) notifications(w http.ResponseWriter, _ *http.Request) {
	out := []map[string]string{}
	if webApp, ok := h.app.Host.(*host.WebApp); ok {
		for _, n := range webApp.DrainNotifications() {
			out = append(out, map[string]string{
				"message": n.Message,
				"kind":    string(n.Kind),
			})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) listEvents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Events.Events())
}

func (h *handler) filteredEvents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"filter": h.app.Events.ActiveFilter(),
		"tab":    h.app.Events.ActiveTab(),
		"events": h.app.Events.FilteredEvents(),
	})
}

func (h *handler) setFilters(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Filter string `json:"filter"`
		Tab    string `json:"tab"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if payload.Filter != "" {
		h.app.Events.SetFilter(payload.Filter)
	}
	switch payload.Tab {
	case "":
	case string(events.TabFuture):
		h.app.Events.SetTab(events.TabFuture)
	case string(events.TabPast):
		h.app.Events.SetTab(events.TabPast)
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown tab %q", payload.Tab))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) attendEvent(w http.ResponseWriter, r *http.Request) {
	ok := h.app.Events.AttendEvent(r.Context(), eventID(r))
	writeJSON(w, http.StatusOK, map[string]bool{"success": ok})
}

func (h *handler) unattendEvent(w http.ResponseWriter, r *http.Request) {
	ok := h.app.Events.UnattendEvent(r.Context(), eventID(r))
	writeJSON(w, http.StatusOK, map[string]bool{"success": ok})
}

func (h *handler) eventAttendance(w http.ResponseWriter, r *http.Request) {
	attending := h.app.Events.CheckUserAttendance(r.Context(), eventID(r))
	writeJSON(w, http.StatusOK, map[string]bool{"is_attending": attending})
}

func (h *handler) listMeetings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Meetings.Meetings())
}

func (h *handler) activeMeetings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Meetings.ActiveMeetings())
}

func (h *handler) pastMeetings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Meetings.PastMeetings())
}

func (h *handler) createMeeting(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Date        string `json:"date"`
		Type        string `json:"type"`
		AgeLimit    int    `json:"age_limit"`
		Location    string `json:"location"`
		MapLink     string `json:"map_link"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res := h.app.Meetings.CreateMeeting(r.Context(), meetings.CreateForm{
		Title:       payload.Title,
		Description: payload.Description,
		Date:        payload.Date,
		Type:        payload.Type,
		AgeLimit:    payload.AgeLimit,
		Location:    payload.Location,
		MapLink:     payload.MapLink,
	})

	status := http.StatusCreated
	if !res.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]any{
		"success": res.Success,
		"message": res.Message,
		"data":    res.Data,
	})
}

func (h *handler) attendMeeting(w http.ResponseWriter, r *http.Request) {
	ok := h.app.Meetings.AttendMeeting(r.Context(), meetToken(r))
	writeJSON(w, http.StatusOK, map[string]bool{"success": ok})
}

func (h *handler) unattendMeeting(w http.ResponseWriter, r *http.Request) {
	ok := h.app.Meetings.UnattendMeeting(r.Context(), meetToken(r))
	writeJSON(w, http.StatusOK, map[string]bool{"success": ok})
}

func (h *handler) viewMeeting(w http.ResponseWriter, r *http.Request) {
	ok := h.app.Meetings.AddMeetView(r.Context(), meetToken(r))
	writeJSON(w, http.StatusOK, map[string]bool{"success": ok})
}

func (h *handler) meetingAttendance(w http.ResponseWriter, r *http.Request) {
	attending := h.app.Meetings.CheckUserAttendance(r.Context(), meetToken(r))
	writeJSON(w, http.StatusOK, map[string]bool{"is_attending": attending})
}

func (h *handler) meetingCreator(w http.ResponseWriter, r *http.Request) {
	username := h.app.Meetings.MeetingCreator(r.Context(), meetToken(r))
	if username == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"username": username})
}

func (h *handler) listAds(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Ads.Ads())
}

func eventID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func meetToken(r *http.Request) string {
	return mux.Vars(r)["token"]
}

func decodeJSON(body io.Reader, out any) error {
	dec := json.NewDecoder(io.LimitReader(body, maxRequestBody))
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
