package gateway

import "encoding/json"

// Status is the payload of GET /api/STATUS. Available is 1 while the backend
// is serving and 0 during maintenance windows.
type Status struct {
	Available int    `json:"available"`
	Message   string `json:"status"`
}

// ActionResult is the common acknowledgement returned by mutating endpoints.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// CreateMeetingResult mirrors the response of POST /api/v1/meeting/create.
type CreateMeetingResult struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// CreateMeetingForm carries the multipart payload for meeting creation.
// Image is optional; when empty no file part is written.
type CreateMeetingForm struct {
	Title       string
	Description string
	Date        string
	Type        string
	AgeLimit    int
	Location    string
	MapLink     string
	Image       []byte
	ImageName   string
	UserID      int64
	Username    string
}
