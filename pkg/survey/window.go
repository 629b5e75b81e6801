package survey

import "time"

// WindowState describes where now falls relative to a form's open window.
type WindowState string

const (
	WindowNotStarted WindowState = "not-started"
	WindowOpen       WindowState = "open"
	WindowClosed     WindowState = "closed"
)

// Window evaluates the time window. Unset bounds are unbounded.
func Window(now time.Time, openAt, closeAt *time.Time) WindowState {
	if openAt != nil && now.Before(*openAt) {
		return WindowNotStarted
	}
	if closeAt != nil && now.After(*closeAt) {
		return WindowClosed
	}
	return WindowOpen
}

// Progress returns the completion percentage for a paginated form, rounded to
// the nearest integer. page is zero based.
func Progress(page, total int) int {
	if total <= 0 {
		return 0
	}
	if page < 0 {
		page = 0
	}
	if page >= total {
		return 100
	}
	return ((page+1)*200 + total) / (2 * total)
}
