package core

import "github.com/pkg/errors"

var (
	// ErrUpstreamUnreachable means the school-records service could not be reached or answered garbage.
	ErrUpstreamUnreachable = errors.New("upstream unreachable")
	// ErrUpstreamRejected means the school-records service refused the credentials or token.
	ErrUpstreamRejected = errors.New("upstream rejected credentials")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// IsUpstreamRejected reports whether err was caused by the upstream refusing credentials.
func IsUpstreamRejected(err error) bool {
	return err != nil && (errors.Cause(err) == ErrUpstreamRejected || errors.Is(err, ErrUpstreamRejected))
}
