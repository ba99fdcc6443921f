package classeviva

import (
	"fmt"
	"net/http"

	"github.com/gablilli/selfhosted-classeviva/core"
)

// Error is a failed upstream call. Kind is core.ErrUpstreamRejected or core.ErrUpstreamUnreachable.
type Error struct {
	Route  string
	Op     string
	Status int
	Kind   error
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("classeviva %s via %s: %v", e.Op, e.Route, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Cause lets errors.Cause reach the kind.
func (e *Error) Cause() error { return e.Kind }

func (e *Error) Unwrap() error { return e.Kind }

// classify maps an upstream status to an error kind.
// Only an explicit refusal of the credentials or token is a rejection; any other status may be a relay or upstream fault.
func classify(status int) error {
	switch status {
	case http.StatusUnauthorized, http.StatusUnprocessableEntity:
		return core.ErrUpstreamRejected
	}
	return core.ErrUpstreamUnreachable
}
