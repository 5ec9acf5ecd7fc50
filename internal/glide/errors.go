package glide

import "fmt"

// APIError is a non-2xx response from the Glide API. The status code and
// body are kept so the sync engine can decide retryability.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("glide api error: status %d: %s", e.StatusCode, e.Body)
}

// RateLimited reports whether this is a 429-class response.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == 429
}

// Retryable reports whether the call is worth repeating. 5xx and 429 are
// transient; other 4xx responses need a config or payload fix first.
func (e *APIError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
