// Package event holds the city event model served by the backend.
package event

import "time"

// Event represents a published city event. The list is replaced wholesale on
// every fetch; only AttendeesCount is mutated client-side, as an optimistic
// echo of attend and unattend calls.
type Event struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	Type           string `json:"type"`
	Date           string `json:"date"`
	Location       string `json:"location"`
	ImageURL       string `json:"image_url"`
	Description    string `json:"description"`
	MapLink        string `json:"map_link"`
	AttendeesCount int    `json:"attendees_count"`
}

// Time parses the wire date. The second return is false when the backend sent
// an empty or unparseable value.
func (e Event) Time() (time.Time, bool) {
	return ParseTime(e.Date)
}

var wireLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime decodes a backend timestamp such as 2026-01-18T09:00:00.000000Z.
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
