package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeenCache_AddAndContains(t *testing.T) {
	c := newSeenCache(4)

	assert.False(t, c.contains("us1"))
	c.add("us1")
	assert.True(t, c.contains("us1"))
}

func TestSeenCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newSeenCache(2)
	c.add("a")
	c.add("b")
	c.add("c") // evicts a

	assert.False(t, c.contains("a"))
	assert.True(t, c.contains("b"))
	assert.True(t, c.contains("c"))
}

func TestSeenCache_ContainsRefreshesRecency(t *testing.T) {
	c := newSeenCache(2)
	c.add("a")
	c.add("b")
	assert.True(t, c.contains("a")) // a becomes most recent
	c.add("c")                      // evicts b

	assert.True(t, c.contains("a"))
	assert.False(t, c.contains("b"))
	assert.True(t, c.contains("c"))
}

func TestSeenCache_ReAddIsIdempotent(t *testing.T) {
	c := newSeenCache(2)
	c.add("a")
	c.add("a")
	c.add("b")

	assert.True(t, c.contains("a"))
	assert.True(t, c.contains("b"))
}
