package session

import (
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer(t *testing.T) {
	ti := NewTokenIssuer("s3cr3t", "Classeviva Dashboard", 24*time.Hour)

	claims := ti.NewClaims("S1234567X", "S1234567X", "Anna Bianchi", "direct", "cv-token")
	token, err := ti.GenerateToken(claims)
	require.NoError(t, err)

	parsed, err := ti.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "S1234567X", parsed.UserID())
	assert.Equal(t, "Anna Bianchi", parsed.Name)
	assert.Equal(t, "cv-token", parsed.UpstreamToken)
	assert.Equal(t, "Classeviva Dashboard", parsed.Issuer)
	assert.NotEmpty(t, parsed.Id)
	assert.Equal(t, claims.IssuedAt+int64((24*time.Hour).Seconds()), parsed.ExpiresAt)
}

func TestTokenIssuer_ParseToken_errors(t *testing.T) {
	ti := NewTokenIssuer("s3cr3t", "app", time.Hour)
	other := NewTokenIssuer("another secret", "app", time.Hour)

	valid, err := ti.GenerateToken(ti.NewClaims("u1", "u1", "U", "direct", ""))
	require.NoError(t, err)
	foreign, err := other.GenerateToken(other.NewClaims("u1", "u1", "U", "direct", ""))
	require.NoError(t, err)

	NowFunc = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := ti.GenerateToken(ti.NewClaims("u1", "u1", "U", "direct", ""))
	NowFunc = time.Now
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, ti.NewClaims("u1", "u1", "U", "direct", "")).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "garbage", token: "not-a-jwt", wantErr: ErrTokenInvalid},
		{name: "tampered", token: valid + "x", wantErr: ErrTokenInvalid},
		{name: "wrong secret", token: foreign, wantErr: ErrTokenInvalid},
		{name: "alg none", token: none, wantErr: ErrTokenInvalid},
		{name: "expired", token: expired, wantErr: ErrTokenExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ti.ParseToken(tt.token)
			assert.Equal(t, tt.wantErr, err)
		})
	}
}
