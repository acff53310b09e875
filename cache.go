package session

import (
	"encoding/json"
	"time"

	"github.com/goliatone/go-errors"
)

// DefaultCacheWindow is how long a cached profile stays fresh. Past the
// window the cache is treated as absent and dropped.
const DefaultCacheWindow = 5 * 24 * time.Hour

// CacheStatus describes what a cached profile is good for.
type CacheStatus string

const (
	// CacheComplete means every profile field was present when cached,
	// so ambient resolution can skip the identity store entirely.
	CacheComplete CacheStatus = "complete"
	// CacheIncomplete means only a projection was cached.
	CacheIncomplete CacheStatus = "incomplete"
	// CacheMissing means there is nothing usable.
	CacheMissing CacheStatus = "no-cache"
)

func ParseCacheStatus(raw string) CacheStatus {
	switch CacheStatus(raw) {
	case CacheComplete, CacheIncomplete:
		return CacheStatus(raw)
	}
	return CacheMissing
}

type cacheEnvelope struct {
	Profile  *UserProfile `json:"profile"`
	StoredAt time.Time    `json:"stored_at"`
}

// SessionCache keeps the resolved profile next to the tokens so repeat
// visits inside the window never touch the identity store.
type SessionCache struct {
	storage Storage
	window  time.Duration
	logger  Logger
	now     func() time.Time
}

func NewSessionCache(storage Storage, window time.Duration, logger Logger) *SessionCache {
	if logger == nil {
		logger = defLogger{}
	}
	if window <= 0 {
		window = DefaultCacheWindow
	}
	return &SessionCache{
		storage: storage,
		window:  window,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock overrides the cache clock, mainly for tests.
func (c *SessionCache) WithClock(now func() time.Time) *SessionCache {
	if now != nil {
		c.now = now
	}
	return c
}

// Get returns the cached profile for the email, or CacheMissing when
// there is none, it belongs to someone else, or it has gone stale.
// Stale entries are dropped on read.
func (c *SessionCache) Get(email string) (*UserProfile, CacheStatus) {
	if c.storage == nil {
		return nil, CacheMissing
	}

	raw := c.storage.Get(UserInfoKey)
	if raw == "" {
		return nil, CacheMissing
	}

	var envelope cacheEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil || envelope.Profile == nil {
		c.logger.Debug("dropping undecodable profile cache")
		c.Invalidate()
		return nil, CacheMissing
	}

	if email != "" && envelope.Profile.Email != email {
		c.Invalidate()
		return nil, CacheMissing
	}

	// an entry aged exactly one window is already stale
	if c.now().Sub(envelope.StoredAt) >= c.window {
		c.logger.Debug("profile cache for %s is stale", envelope.Profile.Email)
		c.Invalidate()
		return nil, CacheMissing
	}

	return envelope.Profile, c.Status()
}

// Put caches the profile and records whether it is a full record or a
// projection.
func (c *SessionCache) Put(profile *UserProfile, status CacheStatus) error {
	if c.storage == nil || profile == nil {
		return nil
	}
	if status != CacheComplete {
		status = CacheIncomplete
	}

	raw, err := json.Marshal(cacheEnvelope{Profile: profile, StoredAt: c.now()})
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to encode profile cache")
	}

	if err := c.storage.Set(UserInfoKey, string(raw)); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to store profile cache")
	}
	if err := c.storage.Set(CacheStatusKey, string(status)); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to store cache status")
	}

	return nil
}

// Status reports the recorded cache status without reading the profile.
func (c *SessionCache) Status() CacheStatus {
	if c.storage == nil {
		return CacheMissing
	}
	return ParseCacheStatus(c.storage.Get(CacheStatusKey))
}

// Invalidate drops the cached profile and its status marker.
func (c *SessionCache) Invalidate() {
	if c.storage == nil {
		return
	}
	_ = c.storage.Remove(UserInfoKey)
	_ = c.storage.Remove(CacheStatusKey)
}
