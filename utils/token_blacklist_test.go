package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBlacklistInMemory(t *testing.T) {
	SetRedis(nil)

	BlacklistToken("live", time.Now().Add(time.Hour))
	assert.True(t, IsTokenBlacklisted("live"))
	assert.False(t, IsTokenBlacklisted("never-seen"))

	BlacklistToken("already-expired", time.Now().Add(-time.Second))
	assert.False(t, IsTokenBlacklisted("already-expired"))

	blacklistMu.Lock()
	blacklist["stale"] = time.Now().Add(-time.Minute)
	blacklistMu.Unlock()
	assert.GreaterOrEqual(t, PurgeExpiredTokens(), 1)
	blacklistMu.RLock()
	_, ok := blacklist["stale"]
	blacklistMu.RUnlock()
	assert.False(t, ok)
	assert.True(t, IsTokenBlacklisted("live"))
}
