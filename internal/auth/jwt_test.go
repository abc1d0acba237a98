package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner_RoundTrip(t *testing.T) {
	s := NewSigner("secret", time.Minute)

	token, claims, err := s.GenerateToken("alice")
	require.NoError(t, err)
	assert.Len(t, claims.ID, 26)

	got, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, claims.ID, got.ID)
}

func TestSigner_UniqueIDs(t *testing.T) {
	s := NewSigner("secret", time.Minute)
	_, a, err := s.GenerateToken("alice")
	require.NoError(t, err)
	_, b, err := s.GenerateToken("alice")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestSigner_WrongSecret(t *testing.T) {
	token, _, err := NewSigner("access", time.Minute).GenerateToken("alice")
	require.NoError(t, err)

	_, err = NewSigner("refresh", time.Minute).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSigner_Expired(t *testing.T) {
	s := NewSigner("secret", time.Minute)
	s.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, _, err := s.GenerateToken("alice")
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSigner_Garbage(t *testing.T) {
	_, err := NewSigner("secret", time.Minute).ValidateToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)
	assert.True(t, ComparePassword(hash, "hunter22"))
	assert.False(t, ComparePassword(hash, "hunter23"))
}
