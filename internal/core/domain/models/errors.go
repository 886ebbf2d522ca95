package models

import "fmt"

// HardAPIError is an authentication, authorization or rate-limit response
// from the search API. Unlike the API's empty-page boundary behavior it
// must never be absorbed: treating it as exhaustion would report an author
// as having zero works when the real cause is access denial.
type HardAPIError struct {
	StatusCode int
	Body       string
}

func (e *HardAPIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("search API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("search API returned status %d: %s", e.StatusCode, e.Body)
}

// IsHardStatus reports whether an HTTP status must propagate as a hard
// failure instead of being handled as an exhaustion boundary.
func IsHardStatus(code int) bool {
	switch code {
	case 401, 403, 429:
		return true
	}
	return false
}
