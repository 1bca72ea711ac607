// Package apierr maps Google API failures onto a small error taxonomy.
//
// Every error produced by a service wrapper is an *Error carrying the API
// family it came from and, when the HTTP status is one we recognise, a kind.
// Callers match with errors.Is against either axis:
//
//	errors.Is(err, apierr.ErrCalendar) // any Calendar failure
//	errors.Is(err, apierr.ErrNotFound) // a 404 from any family
package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

// Family identifies which Google API produced an error.
type Family string

const (
	Gmail    Family = "gmail"
	Calendar Family = "calendar"
	Tasks    Family = "tasks"
	Drive    Family = "drive"
	Auth     Family = "auth"
)

// Family sentinels.
var (
	ErrGmail    = errors.New("gmail error")
	ErrCalendar = errors.New("calendar error")
	ErrTasks    = errors.New("tasks error")
	ErrDrive    = errors.New("drive error")
	ErrAuth     = errors.New("authentication error")
)

// Kind sentinels, keyed off the provider's HTTP status.
var (
	ErrInvalidQuery = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorised (invalid credentials)")
	ErrPermission   = errors.New("permission denied")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrTooLarge     = errors.New("payload too large")
	ErrRateLimited  = errors.New("rate limit exceeded")
)

// ErrInvalid marks input rejected locally, before any network call.
var ErrInvalid = errors.New("invalid argument")

// ErrMissingConfig is returned when neither a usable token nor application
// credentials are available. There is no recovery path short of the operator
// supplying credentials.json.
var ErrMissingConfig = errors.New("missing application credentials")

// Error is a failed provider operation.
type Error struct {
	Family Family
	Kind   error // one of the kind sentinels; nil when the status is unrecognised
	Op     string
	Code   int
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Family) + ": " + e.Op
	if e.Kind != nil {
		msg += ": " + e.Kind.Error()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is this error's family or kind sentinel.
func (e *Error) Is(target error) bool {
	if target == familySentinel(e.Family) {
		return true
	}
	return e.Kind != nil && target == e.Kind
}

func familySentinel(f Family) error {
	switch f {
	case Gmail:
		return ErrGmail
	case Calendar:
		return ErrCalendar
	case Tasks:
		return ErrTasks
	case Drive:
		return ErrDrive
	case Auth:
		return ErrAuth
	default:
		return nil
	}
}

// FromGoogle wraps err as a family error for op. Status codes carried by a
// *googleapi.Error select the kind; anything else (transport failures,
// decoding errors) becomes a kindless family error. Errors that are already
// *Error, or that wrap ErrInvalid, pass through untouched.
func FromGoogle(family Family, op string, err error) error {
	if err == nil {
		return nil
	}
	var already *Error
	if errors.As(err, &already) || errors.Is(err, ErrInvalid) {
		return err
	}
	out := &Error{Family: family, Op: op, Err: err}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		out.Code = gerr.Code
		out.Kind = kindForStatus(gerr.Code)
	}
	return out
}

func kindForStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrInvalidQuery
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrPermission
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusRequestEntityTooLarge:
		return ErrTooLarge
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return nil
	}
}

// New builds a family error with an explicit kind, for failures detected
// without an HTTP status (e.g. a folder path that does not resolve).
func New(family Family, kind error, op string, err error) error {
	return &Error{Family: family, Kind: kind, Op: op, Err: err}
}

// Invalidf returns a validation error wrapping ErrInvalid.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// IsNotFound reports whether err is a 404 from any family.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsPermission reports whether err is a 403 from any family.
func IsPermission(err error) bool { return errors.Is(err, ErrPermission) }

// IsInvalid reports whether err was a local validation failure.
func IsInvalid(err error) bool { return errors.Is(err, ErrInvalid) }
