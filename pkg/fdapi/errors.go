package fdapi

import (
	"errors"
	"fmt"
)

// RetBanned is the envelope code returned when a banned user tries to post.
const RetBanned = 4

var (
	ErrAPI    = errors.New("freegle api error")
	ErrConfig = errors.New("invalid client config")
)

// APIError describes a failed call: either a non-2xx HTTP status or a v1 envelope with ret != 0.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Ret        int
	Status     string
}

func (e *APIError) Error() string {
	if e.Ret != 0 {
		return fmt.Sprintf("%s %s: ret %d: %s", e.Method, e.URL, e.Ret, e.Status)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Status)
}

func (e *APIError) Is(target error) bool {
	return target == ErrAPI
}

func (e *APIError) Banned() bool {
	return e.Ret == RetBanned
}

// LogPolicy decides whether a failed call is logged by the client. The error is returned either way.
type LogPolicy func(err error) bool

var (
	LogAlways LogPolicy = func(error) bool { return true }
	LogNever  LogPolicy = func(error) bool { return false }
)

// LogIf maps the boolean logError flag used by most calls to a policy.
func LogIf(log bool) LogPolicy {
	if log {
		return LogAlways
	}
	return LogNever
}

// logUnlessBanned skips banned-user failures, those are surfaced to the user by the caller.
func logUnlessBanned(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Banned() {
		return false
	}
	return true
}

// IsBanned reports whether err is a banned-user envelope error.
func IsBanned(err error) bool {
	return !logUnlessBanned(err)
}
