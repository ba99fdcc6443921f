package session

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/gablilli/selfhosted-classeviva/core"
)

type ServiceInterface interface {
	Acquire(ctx context.Context, creds Credentials) (Session, error)
	GetUser(ctx context.Context, username string) (User, error)
}

type Service struct {
	authenticators []Authenticator
	repo           Repository
	tokens         *TokenIssuer
	logger         core.Logger
	conf           *core.Config
}

var _ ServiceInterface = (*Service)(nil)

func NewService(authenticators []Authenticator, repo Repository, tokens *TokenIssuer, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		authenticators: authenticators,
		repo:           repo,
		tokens:         tokens,
		logger:         logger,
		conf:           conf,
	}
}

// Acquire logs the student in.
// The demo username never reaches the upstream. Otherwise the authenticators are tried in order;
// rejected credentials return ErrInvalidCredentials, while an unreachable upstream yields a synthetic session.
func (svc *Service) Acquire(ctx context.Context, creds Credentials) (Session, error) {
	creds.Username = core.CleanString(creds.Username)
	if err := creds.validate(); err != nil {
		return Session{}, err
	}

	if IsDemo(creds.Username) {
		ident := Identity{UserID: creds.Username, FirstName: demoName}
		svc.persist(ctx, creds.Username, ident)
		return svc.issue(SourceDemo, creds.Username, ident.DisplayName(creds.Username), ident)
	}

	ident, source, err := svc.authenticate(ctx, creds)
	switch {
	case err == nil:
		if ident.UserID == "" {
			ident.UserID = creds.Username
		}
		svc.persist(ctx, creds.Username, ident)
		return svc.issue(source, creds.Username, ident.DisplayName(creds.Username), ident)
	case core.IsUpstreamRejected(err):
		return Session{}, ErrInvalidCredentials
	case errors.Cause(err) == core.ErrUpstreamUnreachable:
		svc.logger.Warn(fmt.Sprintf("upstream unreachable for %s, issuing a synthetic session", creds.Username), err)
		// nothing was acquired, so the cached identity is left untouched
		ident = Identity{UserID: creds.Username}
		return svc.issue(SourceSynthetic, creds.Username, "Studente "+creds.Username, ident)
	default:
		return Session{}, errors.Wrap(err, "authenticating")
	}
}

func (svc *Service) authenticate(ctx context.Context, creds Credentials) (Identity, string, error) {
	ctx, cancel := context.WithTimeout(ctx, svc.totalTimeout())
	defer cancel()

	strategies := make([]core.Strategy[Identity], 0, len(svc.authenticators))
	for _, a := range svc.authenticators {
		a := a
		strategies = append(strategies, core.Strategy[Identity]{
			Name: a.Name(),
			Try: func(ctx context.Context) (Identity, error) {
				return a.Authenticate(ctx, creds)
			},
		})
	}

	ident, outcomes, err := core.FirstSuccess(ctx, core.ChainOptions{
		AttemptTimeout: svc.conf.Upstream.AttemptTimeout,
		Logger:         svc.logger,
	}, strategies...)
	if err != nil {
		return Identity{}, "", err
	}
	// the winner comes right after the failed attempts
	return ident, strategies[len(outcomes)].Name, nil
}

func (svc *Service) issue(source, username, name string, ident Identity) (Session, error) {
	claims := svc.tokens.NewClaims(ident.UserID, username, name, source, ident.UpstreamToken)
	token, err := svc.tokens.GenerateToken(claims)
	if err != nil {
		return Session{}, errors.Wrap(err, "generating token")
	}
	return Session{
		Token:     token,
		UserID:    ident.UserID,
		Name:      name,
		Username:  username,
		Source:    source,
		ExpiresAt: time.Unix(claims.ExpiresAt, 0),
	}, nil
}

// persist caches the identity; a cache failure never fails the login.
func (svc *Service) persist(ctx context.Context, username string, ident Identity) {
	if svc.repo == nil {
		return
	}
	_, err := svc.repo.UpsertUser(ctx, User{
		Username:      username,
		UpstreamToken: ident.UpstreamToken,
		FirstName:     ident.FirstName,
		LastName:      ident.LastName,
		UpdatedAt:     NowFunc().UTC(),
	})
	if err != nil {
		svc.logger.Error("caching user", errors.Wrap(err, "upserting user"))
	}
}

// GetUser returns the cached identity of a student.
func (svc *Service) GetUser(ctx context.Context, username string) (User, error) {
	if svc.repo == nil {
		return User{}, ErrUserNotFound
	}
	usr, err := svc.repo.GetUserByUsername(ctx, core.CleanString(username))
	if err != nil {
		if errors.Cause(err) == ErrUserNotFound {
			return User{}, ErrUserNotFound
		}
		return User{}, errors.Wrap(err, "getting user by username")
	}
	return usr, nil
}

func (svc *Service) totalTimeout() time.Duration {
	if svc.conf.Upstream.TotalTimeout > 0 {
		return svc.conf.Upstream.TotalTimeout
	}
	return 25 * time.Second
}

func (creds Credentials) validate() error {
	var flds []core.FieldError
	if creds.Username == "" {
		flds = append(flds, core.FieldError{Field: "username", Error: "this field is required"})
	}
	if creds.Password == "" {
		flds = append(flds, core.FieldError{Field: "password", Error: "this field is required"})
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}
