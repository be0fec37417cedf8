package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type userIDCacheEntry struct {
	value  string
	expire time.Time
}

var (
	userIDCache            = make(map[string]userIDCacheEntry)
	userIDCacheMu          sync.RWMutex
	userIDCacheCleanupOnce sync.Once
)

const (
	userIDTTL                = time.Hour
	userIDCacheCleanupPeriod = 15 * time.Minute
)

func startUserIDCacheCleanup() {
	go func() {
		ticker := time.NewTicker(userIDCacheCleanupPeriod)
		defer ticker.Stop()
		for range ticker.C {
			purgeExpiredUserIDs()
		}
	}()
}

func purgeExpiredUserIDs() {
	now := time.Now()
	userIDCacheMu.Lock()
	for key, entry := range userIDCache {
		if !entry.expire.After(now) {
			delete(userIDCache, key)
		}
	}
	userIDCacheMu.Unlock()
}

func isValidUserID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// defaultUserID returns a generated user id that stays stable for one bot while it
// keeps being used, so anonymous turns against the same bot share a user.
func defaultUserID(botID string) string {
	if botID == "" {
		return uuid.NewString()
	}

	userIDCacheCleanupOnce.Do(startUserIDCacheCleanup)

	now := time.Now()
	userIDCacheMu.Lock()
	defer userIDCacheMu.Unlock()

	entry, ok := userIDCache[botID]
	if !ok || !entry.expire.After(now) || !isValidUserID(entry.value) {
		entry.value = uuid.NewString()
	}
	entry.expire = now.Add(userIDTTL)
	userIDCache[botID] = entry
	return entry.value
}
