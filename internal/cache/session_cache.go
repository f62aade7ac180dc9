package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/SAP-F-2025/adaptive-assessment/internal/models"
)

const (
	sessionKeyPrefix = "adaptive:session:"
	reportKeyPrefix  = "adaptive:report:"
)

func SessionKey(id string) string { return sessionKeyPrefix + id }
func ReportKey(id string) string  { return reportKeyPrefix + id }

// SessionCache stores session snapshots and final reports. The database
// stays the source of truth; every write there is followed by a Put here.
type SessionCache struct {
	cache CacheService
	ttl   time.Duration
}

func NewSessionCache(cache CacheService, ttl time.Duration) *SessionCache {
	return &SessionCache{cache: cache, ttl: ttl}
}

// cachedSession carries the pending item snapshot, which the session's own
// JSON form leaves out.
type cachedSession struct {
	*models.Session
	PendingItem *models.ItemSnapshot `json:"pending_item,omitempty"`
}

func (c *SessionCache) GetSession(ctx context.Context, id string) (*models.Session, error) {
	entry := cachedSession{Session: &models.Session{}}
	if err := c.cache.Get(ctx, SessionKey(id), &entry); err != nil {
		return nil, err
	}
	entry.Session.SetPending(entry.PendingItem)
	return entry.Session, nil
}

func (c *SessionCache) PutSession(ctx context.Context, session *models.Session) error {
	entry := cachedSession{Session: session, PendingItem: session.Pending()}
	return c.cache.Set(ctx, SessionKey(session.ID), entry, c.ttl)
}

func (c *SessionCache) GetReport(ctx context.Context, sessionID string) (*models.SessionReport, error) {
	var report models.SessionReport
	if err := c.cache.Get(ctx, ReportKey(sessionID), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *SessionCache) PutReport(ctx context.Context, report *models.SessionReport) error {
	// Reports never change once written.
	return c.cache.Set(ctx, ReportKey(report.SessionID), report, 0)
}

func (c *SessionCache) Invalidate(ctx context.Context, id string) error {
	if err := c.cache.Delete(ctx, SessionKey(id)); err != nil {
		return err
	}
	return c.cache.Delete(ctx, ReportKey(id))
}

// MemoryCache is an in-process CacheService for tests and single-node runs
// without Redis. TTLs are honoured lazily on read.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value for %s: %w", key, err)
	}
	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || (!entry.expiresAt.IsZero() && m.now().After(entry.expiresAt)) {
		return ErrCacheMiss
	}
	return json.Unmarshal(entry.data, dest)
}

func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) DeletePattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if matched, _ := path.Match(pattern, key); matched {
			delete(m.entries, key)
		}
	}
	return nil
}
