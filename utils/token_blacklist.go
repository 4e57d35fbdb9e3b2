package utils

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

var (
	revoked   = map[string]time.Time{}
	revokedMu sync.RWMutex
)

// tokenKey stores a digest instead of the bearer token itself.
func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "session:revoked:" + hex.EncodeToString(sum[:])
}

// RevokeToken marks a session token as logged out until it would have expired anyway.
func RevokeToken(token string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	key := tokenKey(token)
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, key, "1", ttl).Err(); err == nil {
			return
		}
	}
	revokedMu.Lock()
	pruneRevokedLocked(time.Now())
	revoked[key] = expiresAt
	revokedMu.Unlock()
}

// IsTokenRevoked checks if a token was revoked before natural expiration.
func IsTokenRevoked(token string) bool {
	key := tokenKey(token)
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if n, err := rc.Exists(ctx, key).Result(); err == nil && n > 0 {
			return true
		}
	}
	revokedMu.RLock()
	expiresAt, ok := revoked[key]
	revokedMu.RUnlock()
	return ok && time.Now().Before(expiresAt)
}

func pruneRevokedLocked(now time.Time) {
	for k, exp := range revoked {
		if now.After(exp) {
			delete(revoked, k)
		}
	}
}
