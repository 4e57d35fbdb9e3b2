package utils

import (
	"context"
	"sync"
	"time"
)

type stateEntry struct {
	provider  string
	expiresAt time.Time
}

var (
	stateStore   = map[string]stateEntry{}
	stateStoreMu sync.Mutex
)

// SaveState stores an OAuth state token bound to its provider, with a TTL to mitigate CSRF.
func SaveState(state, provider string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, "oauth:state:"+state, provider, ttl).Err(); err == nil {
			return
		}
	}
	stateStoreMu.Lock()
	stateStore[state] = stateEntry{provider: provider, expiresAt: time.Now().Add(ttl)}
	stateStoreMu.Unlock()
}

// ConsumeState validates and removes a state token. It only succeeds for the provider it was issued for.
func ConsumeState(state, provider string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if v, err := rc.GetDel(ctx, "oauth:state:"+state).Result(); err == nil {
			return v == provider
		}
	}
	stateStoreMu.Lock()
	entry, ok := stateStore[state]
	if ok {
		delete(stateStore, state)
	}
	stateStoreMu.Unlock()
	if !ok {
		return false
	}
	return entry.provider == provider && time.Now().Before(entry.expiresAt)
}
