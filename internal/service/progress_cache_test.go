package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressKeyScopedToUser(t *testing.T) {
	assert.Equal(t, "import:progress:1:abc", progressKey(1, "abc"))
	assert.NotEqual(t, progressKey(1, "abc"), progressKey(2, "abc"),
		"two users must never share a cache entry for the same reference")
}

func TestProgressCacheDisabledWithoutRedis(t *testing.T) {
	c := NewProgressCache(nil)
	c.Set(context.Background(), 1, Progress{Reference: "abc"})

	_, ok := c.Get(context.Background(), 1, "abc")
	assert.False(t, ok)
}
