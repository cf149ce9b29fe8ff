package classifier

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrOverloaded marks a transient overload of the classification model. It is the only
// failure the Gateway retries.
var ErrOverloaded = errors.New("classifier overloaded")

// StatusError is returned by HTTPClient for a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("classifier returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("classifier returned status %d: %s", e.StatusCode, e.Body)
}

// Is reports a 503 as ErrOverloaded.
func (e *StatusError) Is(target error) bool {
	return target == ErrOverloaded && e.StatusCode == http.StatusServiceUnavailable
}

func isClientError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode >= 400 && se.StatusCode < 500
}
