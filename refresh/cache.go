// Package refresh keeps an in-memory copy of the committed face model and
// decides, via snapshot modification time, when that copy must be reloaded.
// Readers always see a complete model generation; replacement is wholesale.
package refresh

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mindwatch/facevault/model"
	"github.com/mindwatch/facevault/store"
)

// DefaultAutoRefreshInterval is the period of the background refresh loop.
const DefaultAutoRefreshInterval = 5 * time.Minute

// Source is the durable side of the cache. *store.Store satisfies it.
type Source interface {
	ModTime() time.Time
	Load() (*model.Snapshot, error)
	Metadata() *store.Metadata
}

// Cache is a mtime-gated read cache over a Source. It is safe for
// concurrent use. A failed reload keeps the previous generation; serving
// stale beats serving nothing.
type Cache struct {
	source Source
	logger *slog.Logger
	now    func() time.Time

	mu          sync.RWMutex
	encodings   [][]float32
	identities  []string
	known       map[string]int
	loadedMtime time.Time
	lastRefresh time.Time
	refreshes   int

	autoMu   sync.Mutex
	autoStop chan struct{}
	autoDone chan struct{}
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock injects the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// NewCache creates a Cache over the given source. The cache starts empty;
// call Refresh (or StartAutoRefresh) to populate it.
func NewCache(source Source, opts ...Option) *Cache {
	c := &Cache{
		source: source,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Report describes the outcome of one refresh decision.
type Report struct {
	Refreshed   bool      `json:"refreshed"`
	Reason      string    `json:"reason"`
	OldCount    int       `json:"old_count"`
	NewCount    int       `json:"new_count"`
	Version     string    `json:"version,omitempty"`
	RefreshTime time.Time `json:"refresh_time"`
}

// Refresh reloads the cached model when the durable snapshot's modification
// time differs from the one the cache last loaded. When force is true the
// mtime gate is skipped. An unchanged mtime is a no-op that performs no
// snapshot I/O.
func (c *Cache) Refresh(force bool) (Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rep := Report{OldCount: len(c.encodings), RefreshTime: c.now()}

	mtime := c.source.ModTime()
	if mtime.IsZero() {
		rep.Reason = "no model on disk"
		rep.NewCount = rep.OldCount
		return rep, nil
	}
	if !force && mtime.Equal(c.loadedMtime) {
		rep.Reason = "model unchanged"
		rep.NewCount = rep.OldCount
		return rep, nil
	}

	snap, err := c.source.Load()
	if err != nil {
		// Keep the previous generation.
		c.logger.Error("model refresh failed, keeping cached generation", "error", err)
		rep.Reason = "load failed"
		rep.NewCount = rep.OldCount
		return rep, fmt.Errorf("refresh: %w", err)
	}
	if snap == nil {
		rep.Reason = "no model on disk"
		rep.NewCount = rep.OldCount
		return rep, nil
	}

	c.replace(snap, mtime)
	rep.Refreshed = true
	if force {
		rep.Reason = "forced"
	} else {
		rep.Reason = "model file changed"
	}
	rep.NewCount = len(c.encodings)
	if meta := c.source.Metadata(); meta != nil {
		rep.Version = meta.Version
	}

	c.logger.Info("model cache refreshed",
		"reason", rep.Reason,
		"old_count", rep.OldCount,
		"new_count", rep.NewCount,
	)
	return rep, nil
}

// ForceRefresh reloads unconditionally.
func (c *Cache) ForceRefresh() (Report, error) {
	return c.Refresh(true)
}

// replace installs a new cache generation. Callers hold c.mu.
func (c *Cache) replace(snap *model.Snapshot, mtime time.Time) {
	c.encodings = snap.Encodings
	c.identities = snap.Identities
	c.known = make(map[string]int, len(snap.Identities))
	for i := len(snap.Identities) - 1; i >= 0; i-- {
		c.known[snap.Identities[i]] = i
	}
	c.loadedMtime = mtime
	c.lastRefresh = c.now()
	c.refreshes++
}

// Current returns the cached generation as parallel slices. The returned
// outer slices are the caller's to keep; the embedding rows are shared and
// must be treated as read-only.
func (c *Cache) Current() ([][]float32, []string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	encodings := make([][]float32, len(c.encodings))
	copy(encodings, c.encodings)
	identities := make([]string, len(c.identities))
	copy(identities, c.identities)
	return encodings, identities
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.encodings)
}

// IsKnown reports whether the token has at least one cached record.
func (c *Cache) IsKnown(token string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.known[token]
	return ok
}

// IndexOf returns the first cached row index for the token, or -1.
func (c *Cache) IndexOf(token string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.known[token]
	if !ok {
		return -1
	}
	return i
}

// Status is a point-in-time description of the cache.
type Status struct {
	CachedEncodings  int       `json:"cached_encodings"`
	UniqueIdentities int       `json:"unique_identities"`
	LastRefresh      time.Time `json:"last_refresh"`
	RefreshCount     int       `json:"refresh_count"`
	LoadedModTime    time.Time `json:"loaded_mod_time"`
	AutoRefresh      bool      `json:"auto_refresh_running"`
}

// Status returns a snapshot of the cache state.
func (c *Cache) Status() Status {
	c.mu.RLock()
	st := Status{
		CachedEncodings:  len(c.encodings),
		UniqueIdentities: len(c.known),
		LastRefresh:      c.lastRefresh,
		RefreshCount:     c.refreshes,
		LoadedModTime:    c.loadedMtime,
	}
	c.mu.RUnlock()

	c.autoMu.Lock()
	st.AutoRefresh = c.autoStop != nil
	c.autoMu.Unlock()
	return st
}

// StartAutoRefresh launches the background refresh loop. A non-positive
// interval uses DefaultAutoRefreshInterval. Starting an already-running loop
// is a no-op.
func (c *Cache) StartAutoRefresh(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultAutoRefreshInterval
	}

	c.autoMu.Lock()
	defer c.autoMu.Unlock()
	if c.autoStop != nil {
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	c.autoStop = stop
	c.autoDone = done

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if _, err := c.Refresh(false); err != nil {
					c.logger.Error("auto-refresh failed", "error", err)
				}
			}
		}
	}()

	c.logger.Info("auto-refresh started", "interval", interval)
}

// StopAutoRefresh stops the background loop and waits for it to exit.
// Stopping a stopped cache is a no-op.
func (c *Cache) StopAutoRefresh() {
	c.autoMu.Lock()
	stop, done := c.autoStop, c.autoDone
	c.autoStop, c.autoDone = nil, nil
	c.autoMu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
	c.logger.Info("auto-refresh stopped")
}
