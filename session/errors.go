package session

import "errors"

var (
	// ErrNotAuthenticated is returned when an operation needs a bearer token
	// and none is present.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrStaleSession is returned when a result arrived for a session
	// generation that has since been reset or replaced. The result was
	// discarded.
	ErrStaleSession = errors.New("session changed while request was in flight")
	// ErrCredentialsRequired is returned by Login for an empty username or
	// password.
	ErrCredentialsRequired = errors.New("username and password are required")
	// ErrMalformedLogin is returned when the backend reported success but
	// omitted the access token or user record.
	ErrMalformedLogin = errors.New("login response missing access token or user")
)

// backendMessenger is implemented by transport errors that carry a
// human-readable message from the backend.
type backendMessenger interface {
	BackendMessage() string
}

// backendMessage extracts the backend-supplied message from err, if any.
func backendMessage(err error) string {
	var bm backendMessenger
	if errors.As(err, &bm) {
		return bm.BackendMessage()
	}
	return ""
}
