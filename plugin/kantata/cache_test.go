package kantata

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameCacheBasics(t *testing.T) {
	c := newNameCache(2, time.Minute)

	_, ok := c.get("user:1")
	assert.False(t, ok)

	c.set("user:1", "Jane Doe")
	name, ok := c.get("user:1")
	require.True(t, ok)
	assert.Equal(t, "Jane Doe", name)

	// Overwrite refreshes in place.
	c.set("user:1", "Jane D.")
	name, _ = c.get("user:1")
	assert.Equal(t, "Jane D.", name)
	assert.Equal(t, 1, c.size())
}

func TestNameCacheEvictsOldest(t *testing.T) {
	c := newNameCache(2, time.Minute)
	c.set("user:1", "a")
	c.set("user:2", "b")

	// Touch user:1 so user:2 becomes the eviction candidate.
	_, ok := c.get("user:1")
	require.True(t, ok)

	c.set("user:3", "c")
	assert.Equal(t, 2, c.size())

	_, ok = c.get("user:2")
	assert.False(t, ok)
	_, ok = c.get("user:1")
	assert.True(t, ok)
	_, ok = c.get("user:3")
	assert.True(t, ok)
}

func TestNameCacheExpiry(t *testing.T) {
	c := newNameCache(10, time.Nanosecond)
	c.set("user:1", "Jane Doe")
	time.Sleep(time.Millisecond)

	_, ok := c.get("user:1")
	assert.False(t, ok)
}

func TestUserNameServedFromCache(t *testing.T) {
	var hits atomic.Int32
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(t, w, map[string]any{
			"count":   1,
			"results": []map[string]any{{"key": "users", "id": "42"}},
			"users": map[string]any{
				"42": map[string]any{"full_name": "Jane Doe"},
			},
		})
	}))

	ctx := context.Background()
	assert.Equal(t, "Jane Doe", client.UserName(ctx, 42))
	assert.Equal(t, "Jane Doe", client.UserName(ctx, 42))
	assert.EqualValues(t, 1, hits.Load())
}

func TestFailedLookupNotCached(t *testing.T) {
	var hits atomic.Int32
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "not found", http.StatusNotFound)
	}))

	ctx := context.Background()
	assert.Equal(t, "User 42", client.UserName(ctx, 42))
	assert.Equal(t, "User 42", client.UserName(ctx, 42))
	assert.EqualValues(t, 2, hits.Load())
}
