package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jmcleod/adconsole/session"
)

// ErrorKind classifies a failed call.
type ErrorKind string

const (
	KindConnectivity         ErrorKind = "connectivity"
	KindAuthorizationExpired ErrorKind = "expired"
	KindAuthorizationDenied  ErrorKind = "denied"
	KindValidation           ErrorKind = "validation"
	KindServer               ErrorKind = "server"
	// KindStale marks a response that arrived after the session it was
	// issued under was reset or replaced. It is discarded without side
	// effects.
	KindStale ErrorKind = "stale"
)

var (
	ErrConnectivity         = errors.New("backend unreachable")
	ErrAuthorizationExpired = errors.New("authorization expired")
	ErrAuthorizationDenied  = errors.New("authorization denied")
	ErrValidation           = errors.New("request validation failed")
	ErrServer               = errors.New("server error")
)

var kindSentinels = map[ErrorKind]error{
	KindConnectivity:         ErrConnectivity,
	KindAuthorizationExpired: ErrAuthorizationExpired,
	KindAuthorizationDenied:  ErrAuthorizationDenied,
	KindValidation:           ErrValidation,
	KindServer:               ErrServer,
	KindStale:                session.ErrStaleSession,
}

// Classify maps a call outcome to an ErrorKind. The empty kind means
// success. It has no side effects.
func Classify(status int, transportErr error) ErrorKind {
	switch {
	case transportErr != nil:
		return KindConnectivity
	case status >= 200 && status < 300:
		return ""
	case status == http.StatusUnauthorized:
		return KindAuthorizationExpired
	case status == http.StatusForbidden:
		return KindAuthorizationDenied
	case status == http.StatusUnprocessableEntity:
		return KindValidation
	default:
		return KindServer
	}
}

// Error is returned for every failed gateway call.
type Error struct {
	Kind      ErrorKind
	Method    string
	Path      string
	Status    int
	Message   string          // backend "error" text, if any
	Details   json.RawMessage // backend "details", if any
	RequestID string
	Err       error           // transport error for KindConnectivity
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindConnectivity:
		return fmt.Sprintf("%s %s: %s: %v", e.Method, e.Path, e.Kind, e.Err)
	case e.Kind == KindStale:
		return fmt.Sprintf("%s %s: discarded stale response", e.Method, e.Path)
	case e.Message != "":
		return fmt.Sprintf("%s %s: %s (%d): %s", e.Method, e.Path, e.Kind, e.Status, e.Message)
	default:
		return fmt.Sprintf("%s %s: %s (%d)", e.Method, e.Path, e.Kind, e.Status)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind. A 401 discarded as stale
// still matches ErrAuthorizationExpired.
func (e *Error) Is(target error) bool {
	if target == ErrAuthorizationExpired && e.Status == http.StatusUnauthorized {
		return true
	}
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}

// BackendMessage returns the backend-supplied message.
func (e *Error) BackendMessage() string { return e.Message }

// KindOf returns the kind of a gateway error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}

// errorBody is the backend's failure shape. Some auth middleware answers
// with "msg" or "message" instead of "error".
type errorBody struct {
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Msg     string          `json:"msg"`
	Details json.RawMessage `json:"details"`
}

func parseErrorBody(body []byte) (string, json.RawMessage) {
	var eb errorBody
	if len(body) == 0 || json.Unmarshal(body, &eb) != nil {
		return "", nil
	}
	switch {
	case eb.Error != "":
		return eb.Error, eb.Details
	case eb.Message != "":
		return eb.Message, eb.Details
	default:
		return eb.Msg, eb.Details
	}
}
