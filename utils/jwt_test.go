package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", time.Minute)

	token, err := svc.GenerateToken("user-1", "asha@example.com", "user")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "asha@example.com", claims.Email)
	assert.Equal(t, "lifeline", claims.Issuer)
}

func TestJWTRejectsForeignSignature(t *testing.T) {
	token, err := NewJWTService("one", time.Minute).GenerateToken("user-1", "", "user")
	require.NoError(t, err)

	_, err = NewJWTService("two", time.Minute).ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTRejectsExpired(t *testing.T) {
	svc := NewJWTService("test-secret", time.Nanosecond)
	token, err := svc.GenerateToken("user-1", "", "user")
	require.NoError(t, err)

	time.Sleep(1100 * time.Millisecond)
	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}
