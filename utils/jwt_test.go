package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	token, err := m.GenerateToken(42, "a@b.c")
	require.NoError(t, err)

	claims, err := m.ParseToken(token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)
	assert.Equal(t, "a@b.c", claims.Email)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestJWTRejects(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	token, err := m.GenerateToken(1, "a@b.c")
	require.NoError(t, err)

	_, err = NewJWTManager("other", time.Hour).ParseToken(token)
	assert.Error(t, err, "wrong key")

	expired, err := NewJWTManager("secret", -time.Minute).GenerateToken(1, "a@b.c")
	require.NoError(t, err)
	_, err = m.ParseToken(expired)
	assert.Error(t, err, "expired")

	_, err = m.ParseToken("not.a.jwt")
	assert.Error(t, err)
}

func TestClaimsUserIDRequiresNumericSubject(t *testing.T) {
	c := &Claims{}
	c.Subject = "abc"
	_, err := c.UserID()
	assert.Error(t, err)
	c.Subject = "0"
	_, err = c.UserID()
	assert.Error(t, err)
}
