// Package meeting holds the user-created meeting model and its normalization
// rules. Every meeting fetched from the backend passes through Normalize
// before it reaches a store, so display code never sees an undefined field.
package meeting

import (
	"strings"
	"time"
)

// PlaceholderImageURL is used when the backend sends no meeting image.
const PlaceholderImageURL = "https://via.placeholder.com/400x200/333/666?text=Встреча"

// Defaults filled in by Normalize.
const (
	DefaultTitle    = "Без названия"
	DefaultType     = "Встреча"
	DefaultLocation = "Не указано"
)

// Wire is the meeting payload exactly as the backend sends it. Optional
// fields are pointers so Normalize can tell "absent" from a zero value.
type Wire struct {
	MeetToken      string `json:"meet_token"`
	UserTokenID    string `json:"user_token_id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Date           string `json:"date"`
	Type           string `json:"type"`
	Location       string `json:"location"`
	AgeLimit       int    `json:"age_limit"`
	MapLink        string `json:"map_link"`
	ImageURL       string `json:"image_url"`
	Status         *bool  `json:"status"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
	AttendeesCount *int   `json:"attendees_count"`
	ViewCount      int    `json:"view_count"`
	Creator        string `json:"creator"`
}

// Meeting is the canonical, fully defaulted meeting shape held by the store.
// MeetToken is an opaque identifier, not a database key. Status true means
// the meeting is active; the backend omits the field for active meetings.
type Meeting struct {
	MeetToken      string `json:"meet_token"`
	UserTokenID    string `json:"user_token_id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Date           string `json:"date"`
	Type           string `json:"type"`
	Location       string `json:"location"`
	AgeLimit       int    `json:"age_limit"`
	MapLink        string `json:"map_link"`
	ImageURL       string `json:"image_url"`
	Status         bool   `json:"status"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
	AttendeesCount int    `json:"attendees_count"`
	ViewCount      int    `json:"view_count"`
	Creator        string `json:"creator"`
	CreatedBy      string `json:"created_by"`
}

// Normalize converts a wire meeting into the canonical shape. Relative image
// paths are rewritten onto imageBase; an absent date defaults to now. The
// function is idempotent: normalizing the wire form of a normalized meeting
// yields the same meeting.
func Normalize(w Wire, imageBase string, now time.Time) Meeting {
	m := Meeting{
		MeetToken:   w.MeetToken,
		UserTokenID: w.UserTokenID,
		Title:       w.Title,
		Description: w.Description,
		Date:        w.Date,
		Type:        w.Type,
		Location:    w.Location,
		AgeLimit:    w.AgeLimit,
		MapLink:     w.MapLink,
		ImageURL:    w.ImageURL,
		Status:      w.Status == nil || *w.Status,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
		ViewCount:   w.ViewCount,
		Creator:     w.Creator,
		CreatedBy:   w.UserTokenID,
	}

	if m.Title == "" {
		m.Title = DefaultTitle
	}
	if m.Date == "" {
		m.Date = now.UTC().Format(time.RFC3339)
	}
	if m.Type == "" {
		m.Type = DefaultType
	}
	if m.Location == "" {
		m.Location = DefaultLocation
	}
	if m.AgeLimit < 0 {
		m.AgeLimit = 0
	}
	switch {
	case m.ImageURL == "":
		m.ImageURL = PlaceholderImageURL
	case strings.HasPrefix(m.ImageURL, "/"):
		m.ImageURL = strings.TrimRight(imageBase, "/") + m.ImageURL
	}
	if w.AttendeesCount != nil && *w.AttendeesCount > 0 {
		m.AttendeesCount = *w.AttendeesCount
	}
	if m.ViewCount < 0 {
		m.ViewCount = 0
	}
	if m.CreatedBy == "" {
		m.CreatedBy = "unknown"
	}
	return m
}

// AsWire converts a meeting back to its wire form. Used to re-run
// normalization, mainly in tests.
func (m Meeting) AsWire() Wire {
	status := m.Status
	attendees := m.AttendeesCount
	return Wire{
		MeetToken:      m.MeetToken,
		UserTokenID:    m.UserTokenID,
		Title:          m.Title,
		Description:    m.Description,
		Date:           m.Date,
		Type:           m.Type,
		Location:       m.Location,
		AgeLimit:       m.AgeLimit,
		MapLink:        m.MapLink,
		ImageURL:       m.ImageURL,
		Status:         &status,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		AttendeesCount: &attendees,
		ViewCount:      m.ViewCount,
		Creator:        m.Creator,
	}
}

// Time parses the wire date. The second return is false when the value is
// missing or unparseable; callers degrade to status-only classification.
func (m Meeting) Time() (time.Time, bool) {
	return ParseTime(m.Date)
}

var wireLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime decodes a backend timestamp.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range wireLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
