package magiclink

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booking-service/internal/storage/kv"
)

func TestManager_RoundTrip(t *testing.T) {
	m := New("test-secret", time.Hour, kv.NewMemory())

	token, err := m.Issue("booking-1", "jordan@example.com", ActionConfirm)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.Verify(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, "booking-1", claims.BookingID)
	assert.Equal(t, "jordan@example.com", claims.CustomerEmail)
	assert.Equal(t, ActionConfirm, claims.Action)
}

func TestManager_SingleUse(t *testing.T) {
	m := New("test-secret", time.Hour, kv.NewMemory())

	token, err := m.Issue("booking-1", "jordan@example.com", ActionCancel)
	require.NoError(t, err)

	_, err = m.Verify(context.Background(), token)
	require.NoError(t, err)

	_, err = m.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenUsed)
}

func TestManager_IndependentTokens(t *testing.T) {
	// Consuming the confirm link must not burn the cancel link.
	m := New("test-secret", time.Hour, kv.NewMemory())

	confirm, err := m.Issue("booking-1", "jordan@example.com", ActionConfirm)
	require.NoError(t, err)
	cancel, err := m.Issue("booking-1", "jordan@example.com", ActionCancel)
	require.NoError(t, err)

	_, err = m.Verify(context.Background(), confirm)
	require.NoError(t, err)

	_, err = m.Verify(context.Background(), cancel)
	assert.NoError(t, err)
}

func TestManager_Expired(t *testing.T) {
	m := New("test-secret", -time.Minute, kv.NewMemory())

	token, err := m.Issue("booking-1", "jordan@example.com", ActionConfirm)
	require.NoError(t, err)

	_, err = m.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_WrongSecret(t *testing.T) {
	issuer := New("secret-a", time.Hour, kv.NewMemory())
	verifier := New("secret-b", time.Hour, kv.NewMemory())

	token, err := issuer.Issue("booking-1", "jordan@example.com", ActionConfirm)
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_GarbageToken(t *testing.T) {
	m := New("test-secret", time.Hour, kv.NewMemory())

	_, err := m.Verify(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
