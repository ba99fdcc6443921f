package session

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/gablilli/selfhosted-classeviva/core/grade"
)

const (
	SourceDemo      = "demo"
	SourceSynthetic = "synthetic"

	demoName = "Mario Rossi"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

type (
	Credentials struct {
		Username string
		Password string
	}

	// Identity is what the upstream tells about an authenticated student.
	Identity struct {
		UpstreamToken string
		UserID        string
		FirstName     string
		LastName      string
	}

	// Session is an acquired login, ready to be handed to the client.
	Session struct {
		Token     string    `json:"token"`
		UserID    string    `json:"id"`
		Name      string    `json:"name"`
		Username  string    `json:"username"`
		Source    string    `json:"source"`
		ExpiresAt time.Time `json:"expiresAt"`
	}

	// User is the cached identity of a student, keyed by username.
	User struct {
		ID            int64     `json:"id"`
		Username      string    `json:"username"`
		UpstreamToken string    `json:"-"`
		FirstName     string    `json:"firstName"`
		LastName      string    `json:"lastName"`
		UpdatedAt     time.Time `json:"updatedAt"`
	}
)

// DisplayName joins first and last name, or returns fallback when both are empty.
func (id Identity) DisplayName(fallback string) string {
	if name := strings.TrimSpace(id.FirstName + " " + id.LastName); name != "" {
		return name
	}
	return fallback
}

// IsDemo reports whether the username is the demo sentinel.
func IsDemo(username string) bool {
	return grade.IsDemo(username)
}

// Authenticator logs a student in through one upstream route.
type Authenticator interface {
	Name() string
	Authenticate(ctx context.Context, creds Credentials) (Identity, error)
}

type Repository interface {
	// UpsertUser creates the user or overwrites its token and names (last write wins).
	UpsertUser(ctx context.Context, usr User) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
}
