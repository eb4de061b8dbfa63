// Package gateway implements the HTTP client for the Smolville backend.
// Every backend endpoint has exactly one method here; each is a thin
// pass-through that returns the parsed body or the transport error unchanged.
// There is no retry, backoff, or caching at this layer.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/smolville/miniapp/internal/app/domain/ad"
	"github.com/smolville/miniapp/internal/app/domain/event"
	"github.com/smolville/miniapp/internal/app/domain/meeting"
	"github.com/smolville/miniapp/internal/app/metrics"
	"github.com/smolville/miniapp/pkg/logger"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultMaxBodySize = 1 << 20 // 1MiB
)

// ErrMalformedResponse reports a list body that is neither a bare JSON array
// nor a {"data": [...]} envelope. Stores use it to tell shape errors from
// transport errors.
var ErrMalformedResponse = errors.New("gateway: malformed response")

// Config configures the backend client.
type Config struct {
	// BaseURL is the backend base URL (e.g. https://hundredtries.ru/smolville/server).
	BaseURL string
	// HTTPClient executes requests. When nil, a default client with the fixed
	// 10 second timeout is used.
	HTTPClient *http.Client
	// MaxBodyBytes caps response bodies to prevent memory exhaustion.
	MaxBodyBytes int64
	// Log receives one record per response or transport error.
	Log *logger.Logger
}

// Client talks to the Smolville backend over HTTP.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	maxBodyBytes int64
	log          *logger.Logger
}

// New creates a backend client.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("gateway: BaseURL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("gateway: BaseURL must be a valid URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("gateway: BaseURL scheme must be http or https")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if client.Timeout == 0 {
		client.Timeout = defaultTimeout
	}

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodySize
	}

	log := cfg.Log
	if log == nil {
		log = logger.NewDefault("gateway")
	}

	return &Client{
		baseURL:      baseURL,
		httpClient:   client,
		maxBodyBytes: maxBodyBytes,
		log:          log,
	}, nil
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// ServerStatus probes GET /api/STATUS.
func (c *Client) ServerStatus(ctx context.Context) (Status, error) {
	body, err := c.get(ctx, "/api/STATUS", nil)
	if err != nil {
		return Status{}, err
	}
	var st Status
	if err := json.Unmarshal(body, &st); err != nil {
		return Status{}, fmt.Errorf("gateway: decode status: %w", err)
	}
	return st, nil
}

// Events lists published events.
func (c *Client) Events(ctx context.Context) ([]event.Event, error) {
	body, err := c.get(ctx, "/api/v1/events", nil)
	if err != nil {
		return nil, err
	}
	var events []event.Event
	if err := decodeList(body, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// AttendEvent registers the user for an event.
func (c *Client) AttendEvent(ctx context.Context, eventID, userID int64) (ActionResult, error) {
	return c.postAction(ctx, "/api/v1/event/attend", map[string]any{
		"event_id": eventID,
		"user_id":  userID,
	})
}

// UnattendEvent removes the user's registration from an event.
func (c *Client) UnattendEvent(ctx context.Context, eventID, userID int64) (ActionResult, error) {
	return c.postAction(ctx, "/api/v1/event/unattend", map[string]any{
		"event_id": eventID,
		"user_id":  userID,
	})
}

// CheckEventAttendance reports whether the user is registered for an event.
func (c *Client) CheckEventAttendance(ctx context.Context, eventID, userID int64) (bool, error) {
	path := fmt.Sprintf("/api/v1/event/check/%d/%d", eventID, userID)
	body, err := c.get(ctx, path, nil)
	if err != nil {
		return false, err
	}
	var out struct {
		IsAttending bool `json:"is_attending"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return false, fmt.Errorf("gateway: decode attendance: %w", err)
	}
	return out.IsAttending, nil
}

// EventAttendeesCount returns the server-side attendee count for an event.
func (c *Client) EventAttendeesCount(ctx context.Context, eventID int64) (int, error) {
	path := fmt.Sprintf("/api/v1/event/attendees/%d", eventID)
	body, err := c.get(ctx, path, nil)
	if err != nil {
		return 0, err
	}
	var out struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("gateway: decode attendees count: %w", err)
	}
	return out.Count, nil
}

// Meetings lists meetings in their raw wire form. Normalization is the
// meeting store's job.
func (c *Client) Meetings(ctx context.Context) ([]meeting.Wire, error) {
	body, err := c.get(ctx, "/api/v1/meetings", nil)
	if err != nil {
		return nil, err
	}
	var meetings []meeting.Wire
	if err := decodeList(body, &meetings); err != nil {
		return nil, err
	}
	return meetings, nil
}

// CreateMeeting posts a multipart meeting creation form.
func (c *Client) CreateMeeting(ctx context.Context, form CreateMeetingForm) (CreateMeetingResult, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"title":       form.Title,
		"description": form.Description,
		"date":        form.Date,
		"type":        form.Type,
		"age_limit":   strconv.Itoa(form.AgeLimit),
		"location":    form.Location,
		"map_link":    form.MapLink,
		"user_id":     strconv.FormatInt(form.UserID, 10),
		"username":    form.Username,
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return CreateMeetingResult{}, fmt.Errorf("gateway: write form field %s: %w", name, err)
		}
	}
	if len(form.Image) > 0 {
		name := form.ImageName
		if name == "" {
			name = "image"
		}
		part, err := w.CreateFormFile("file", name)
		if err != nil {
			return CreateMeetingResult{}, fmt.Errorf("gateway: create file part: %w", err)
		}
		if _, err := part.Write(form.Image); err != nil {
			return CreateMeetingResult{}, fmt.Errorf("gateway: write file part: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return CreateMeetingResult{}, fmt.Errorf("gateway: finalize form: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/api/v1/meeting/create", nil, &buf, w.FormDataContentType())
	if err != nil {
		return CreateMeetingResult{}, err
	}
	var out CreateMeetingResult
	if err := json.Unmarshal(body, &out); err != nil {
		return CreateMeetingResult{}, fmt.Errorf("gateway: decode create meeting: %w", err)
	}
	return out, nil
}

// AttendMeeting registers the user for a meeting.
func (c *Client) AttendMeeting(ctx context.Context, meetToken string, userID int64) (ActionResult, error) {
	return c.postAction(ctx, "/api/v1/meeting/attend", map[string]any{
		"meet_token": meetToken,
		"user_id":    userID,
	})
}

// UnattendMeeting removes the user's registration from a meeting.
func (c *Client) UnattendMeeting(ctx context.Context, meetToken string, userID int64) (ActionResult, error) {
	return c.postAction(ctx, "/api/v1/meeting/unattend", map[string]any{
		"meet_token": meetToken,
		"user_id":    userID,
	})
}

// CheckMeetingAttendance reports whether the user attends a meeting. A body
// without the is_attending field reads as false.
func (c *Client) CheckMeetingAttendance(ctx context.Context, meetToken string, userID int64) (bool, error) {
	query := url.Values{}
	query.Set("meet_token", meetToken)
	query.Set("user_id", strconv.FormatInt(userID, 10))
	body, err := c.get(ctx, "/api/v1/meeting/checkAttendance", query)
	if err != nil {
		return false, err
	}
	var out struct {
		IsAttending bool `json:"is_attending"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return false, fmt.Errorf("gateway: decode attendance: %w", err)
	}
	return out.IsAttending, nil
}

// AddMeetingView posts a view-count increment for a meeting.
func (c *Client) AddMeetingView(ctx context.Context, meetToken string, userID int64) error {
	payload := map[string]any{
		"meet_token": meetToken,
		"user_id":    userID,
	}
	_, err := c.postJSON(ctx, "/api/v1/meeting/watchMeet", payload)
	return err
}

// MeetingCreator returns the meeting creator's display username.
func (c *Client) MeetingCreator(ctx context.Context, meetToken string) (string, error) {
	path := "/api/v1/meeting/profile/" + url.PathEscape(meetToken)
	body, err := c.get(ctx, path, nil)
	if err != nil {
		return "", err
	}
	var out struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("gateway: decode creator profile: %w", err)
	}
	return out.Username, nil
}

// Ads lists marketplace advertisements.
func (c *Client) Ads(ctx context.Context) ([]ad.Ad, error) {
	body, err := c.get(ctx, "/api/v1/ads", nil)
	if err != nil {
		return nil, err
	}
	var ads []ad.Ad
	if err := decodeList(body, &ads); err != nil {
		return nil, err
	}
	return ads, nil
}

func (c *Client) postAction(ctx context.Context, path string, payload map[string]any) (ActionResult, error) {
	body, err := c.postJSON(ctx, path, payload)
	if err != nil {
		return ActionResult{}, err
	}
	var out ActionResult
	if err := json.Unmarshal(body, &out); err != nil {
		return ActionResult{}, fmt.Errorf("gateway: decode action result: %w", err)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, query, nil, "")
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("gateway: encode payload: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, nil, bytes.NewReader(encoded), "application/json")
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("gateway: create request: %w", err)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.RecordGatewayCall(path, time.Since(start), err)
	if err != nil {
		c.log.WithError(err).WithField("path", path).Error("backend request failed")
		return nil, fmt.Errorf("gateway: execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
	if err != nil {
		c.log.WithError(err).WithField("path", path).Error("read backend response")
		return nil, fmt.Errorf("gateway: read response: %w", err)
	}

	c.log.WithField("path", path).WithField("status", resp.StatusCode).Debug("backend response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(data))
		if len(msg) > 256 {
			msg = msg[:256]
		}
		if msg != "" {
			return nil, fmt.Errorf("gateway: %s: %s", resp.Status, msg)
		}
		return nil, fmt.Errorf("gateway: %s", resp.Status)
	}
	return data, nil
}

// decodeList accepts either a bare JSON array or a {"data": [...]} envelope
// and unmarshals the array into out. Anything else is ErrMalformedResponse.
func decodeList(body []byte, out any) error {
	if !gjson.ValidBytes(body) {
		return ErrMalformedResponse
	}
	list := gjson.ParseBytes(body)
	if !list.IsArray() {
		list = list.Get("data")
		if !list.IsArray() {
			return ErrMalformedResponse
		}
	}
	if err := json.Unmarshal([]byte(list.Raw), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
