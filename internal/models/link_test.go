package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLinkIsExpired(t *testing.T) {
	expiry := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Nil ExpiresAt Never Expires", func(t *testing.T) {
		link := Link{}
		assert.False(t, link.IsExpired(expiry.AddDate(100, 0, 0)))
	})

	t.Run("Before Expiry", func(t *testing.T) {
		link := Link{ExpiresAt: &expiry}
		assert.False(t, link.IsExpired(expiry.Add(-time.Second)))
	})

	t.Run("At Exact Expiry Instant", func(t *testing.T) {
		link := Link{ExpiresAt: &expiry}
		assert.False(t, link.IsExpired(expiry), "strict comparison: still valid at the exact instant")
	})

	t.Run("One Millisecond Past Expiry", func(t *testing.T) {
		link := Link{ExpiresAt: &expiry}
		assert.True(t, link.IsExpired(expiry.Add(time.Millisecond)))
	})
}
