package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager("secret", "filestore", time.Minute)

	token, err := m.Issue(1001)
	require.NoError(t, err)

	actor, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), actor)
}

func TestTokenManager_Rejects(t *testing.T) {
	m := NewTokenManager("secret", "filestore", time.Minute)

	other, err := NewTokenManager("other", "filestore", time.Minute).Issue(1)
	require.NoError(t, err)
	wrongIssuer, err := NewTokenManager("secret", "elsewhere", time.Minute).Issue(1)
	require.NoError(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &ServiceClaims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "filestore",
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	expiredToken, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)

	badSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, &ServiceClaims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:  "filestore",
		Subject: "alice",
	}})
	badSubjectToken, err := badSubject.SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"wrong secret", other, ErrInvalidToken},
		{"wrong issuer", wrongIssuer, ErrInvalidToken},
		{"expired", expiredToken, ErrTokenExpired},
		{"non numeric subject", badSubjectToken, ErrInvalidToken},
		{"garbage", "not-a-token", ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Verify(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestExtractTokenFromHeader(t *testing.T) {
	token, err := ExtractTokenFromHeader("Bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	for _, h := range []string{"", "Bearer ", "Basic abc", "bearer abc"} {
		_, err := ExtractTokenFromHeader(h)
		assert.ErrorIs(t, err, ErrInvalidHeader, h)
	}
}
