package kv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_Incr(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	n, err := m.Incr(ctx, "counter", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = m.Incr(ctx, "counter", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestMemory_IncrExpires(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.Incr(ctx, "counter", -time.Second)
	require.NoError(t, err)

	n, err := m.Incr(ctx, "counter", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "expired counter restarts")
}

func TestMemory_SetOnce(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	ok, err := m.SetOnce(ctx, "token", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.SetOnce(ctx, "token", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_SetOnceExpires(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	ok, err := m.SetOnce(ctx, "token", -time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = m.SetOnce(ctx, "token", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "expired mark can be set again")
}

func TestMemory_KeysAreIndependent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.Incr(ctx, "a", time.Hour)
	require.NoError(t, err)

	n, err := m.Incr(ctx, "b", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
