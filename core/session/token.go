package session

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	NowFunc = time.Now // mockable

	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims represents the authorization claims transmitted via a JWT.
// The upstream token rides along so grade requests can reach the upstream without server-side state.
type Claims struct {
	jwt.StandardClaims
	Username      string `json:"username,omitempty"`
	Name          string `json:"name,omitempty"`
	Source        string `json:"source,omitempty"`
	UpstreamToken string `json:"cvToken,omitempty"`
}

// UserID is the canonical id of the student the token was issued to.
func (c Claims) UserID() string {
	return c.Subject
}

// TokenIssuer signs and verifies session tokens with HS256.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewTokenIssuer(secret, issuer string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

// SigningKey is the HMAC key tokens are signed with.
func (ti *TokenIssuer) SigningKey() []byte {
	return ti.secret
}

// NewClaims builds the claims of a fresh session.
func (ti *TokenIssuer) NewClaims(userID, username, name, source, upstreamToken string) *Claims {
	now := NowFunc()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.New().String(),
			Issuer:    ti.issuer,
			Subject:   userID,
			ExpiresAt: now.Add(ti.ttl).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username:      username,
		Name:          name,
		Source:        source,
		UpstreamToken: upstreamToken,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func (ti *TokenIssuer) GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(ti.secret)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// ParseToken verifies the signature and expiry of a token and returns its claims.
func (ti *TokenIssuer) ParseToken(tokenStr string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ti.secret, nil
	})
	if err != nil {
		if vErr, ok := err.(*jwt.ValidationError); ok && vErr.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
