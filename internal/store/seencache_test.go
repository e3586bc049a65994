package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeenCache_NilIsSafe(t *testing.T) {
	var c *SeenCache
	ctx := context.Background()

	assert.False(t, c.IsSeen(ctx, "BV1any"))
	c.MarkSeen(ctx, "BV1any")
	assert.NoError(t, c.Close())
}

func TestNewSeenCache_EmptyURL(t *testing.T) {
	assert.Nil(t, NewSeenCache(""))
}

func TestNewSeenCache_BadURL(t *testing.T) {
	assert.Nil(t, NewSeenCache("not a redis url"))
}

func TestNewSeenCache_Unreachable(t *testing.T) {
	// Port 1 is never a redis server; the ping fails and the cache stays off.
	assert.Nil(t, NewSeenCache("redis://127.0.0.1:1"))
}
