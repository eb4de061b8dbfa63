// Package badge maps store state to the fixed badge color buckets the view
// layer renders. Both the event and meeting screens use the same attendee
// thresholds.
package badge

// Style is the pair of CSS colors applied to a badge.
type Style struct {
	Background string `json:"background"`
	Color      string `json:"color"`
}

// Attendees maps an attendee count to one of four fixed buckets:
// 0, 1-4, 5-14, 15+.
func Attendees(count int) Style {
	switch {
	case count <= 0:
		return Style{Background: "rgba(255, 255, 255, 0.3)", Color: "#fff"}
	case count < 5:
		return Style{Background: "rgba(0, 255, 204, 0.9)", Color: "#000"}
	case count < 15:
		return Style{Background: "rgba(255, 152, 0, 0.9)", Color: "#000"}
	default:
		return Style{Background: "rgba(233, 30, 99, 0.9)", Color: "#fff"}
	}
}

// Status colors a meeting badge by completion state.
func Status(completed bool) Style {
	if completed {
		return Style{Background: "rgba(107, 114, 128, 0.9)", Color: "white"}
	}
	return Style{Background: "rgba(59, 130, 246, 0.9)", Color: "white"}
}
