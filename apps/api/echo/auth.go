package echoapi

import (
	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/gablilli/selfhosted-classeviva/core/session"
)

const contextTokenKey = "sessionToken"

// newJWTConfig returns the session auth middleware config.
// A missing or malformed Authorization header is a 401; a bad or expired token is a 403.
func newJWTConfig(tokens *session.TokenIssuer) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    tokens.SigningKey(),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(session.Claims),
		ErrorHandler: func(err error) error {
			if err == middleware.ErrJWTMissing {
				return errMissingToken
			}
			return errInvalidToken
		},
	}
}

func authMiddleware(tokens *session.TokenIssuer) echo.MiddlewareFunc {
	return middleware.JWTWithConfig(newJWTConfig(tokens))
}

func getContextClaims(ctx echo.Context) (*session.Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*session.Claims); ok && claims.UserID() != "" {
			return claims, nil
		}
	}
	return nil, errInvalidToken
}
