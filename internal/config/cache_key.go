package config

import (
	"fmt"
	"strings"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// LiveAttemptKey returns the cache key for an attempt's live snapshot
func (r *CacheKeyStruct) LiveAttemptKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:live", attemptID)
}

// SessionAttemptsKey returns the set of attempt ids seen in a quiz session
func (r *CacheKeyStruct) SessionAttemptsKey(sessionID string) string {
	return fmt.Sprintf("session:%s:attempts", sessionID)
}

// ShuffledOrderKey returns the cache key for a student's shuffled questions.
// Registration numbers are case-insensitive.
func (r *CacheKeyStruct) ShuffledOrderKey(sessionID, regNo string) string {
	return fmt.Sprintf("session:%s:student:%s:shuffled_questions", sessionID, strings.ToUpper(regNo))
}

// SessionMonitorChannel returns the Redis PubSub channel name for a session monitor
func (r *CacheKeyStruct) SessionMonitorChannel(sessionID string) string {
	return fmt.Sprintf("session:%s:monitor", sessionID)
}

// RateLimitKey returns the counter key for a client IP on a route group
func (r *CacheKeyStruct) RateLimitKey(group, ip string) string {
	return fmt.Sprintf("ratelimit:%s:%s", group, ip)
}

var CacheKey = NewCacheKeyStruct()
