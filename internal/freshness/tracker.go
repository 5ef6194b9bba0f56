package freshness

import (
	"time"

	"github.com/benbjohnson/clock"

	"go-offline-cache/internal/models"
)

// Tracker stamps cache entries with their capture time and judges their
// freshness against the max-age of their request class
type Tracker struct {
	clock   clock.Clock
	maxAges map[models.RequestClass]time.Duration
}

// NewTracker creates a tracker using the given clock and per-class max-ages
func NewTracker(clk clock.Clock, maxAges map[models.RequestClass]time.Duration) *Tracker {
	ages := make(map[models.RequestClass]time.Duration, len(maxAges))
	for class, maxAge := range maxAges {
		ages[class] = maxAge
	}
	return &Tracker{clock: clk, maxAges: ages}
}

// Now returns the tracker's current time
func (t *Tracker) Now() time.Time {
	return t.clock.Now()
}

// Stamp wraps a network response into an entry captured now
func (t *Tracker) Stamp(req *models.Request, class models.RequestClass, resp *models.Response) *models.CacheEntry {
	u := *req.URL
	u.Fragment = ""
	u.RawFragment = ""

	return &models.CacheEntry{
		URL:      u.String(),
		Class:    class,
		CachedAt: t.clock.Now().UnixMilli(),
		Response: *resp.Clone(),
	}
}

// MaxAge returns the freshness window of a class. Zero means no window is configured.
func (t *Tracker) MaxAge(class models.RequestClass) time.Duration {
	return t.maxAges[class]
}

// Age returns how long ago the entry was captured
func (t *Tracker) Age(entry *models.CacheEntry) time.Duration {
	return entry.Age(t.clock.Now())
}

// IsFresh reports whether the entry is younger than the max-age of class
func (t *Tracker) IsFresh(entry *models.CacheEntry, class models.RequestClass) bool {
	return entry.IsFresh(t.clock.Now(), t.MaxAge(class))
}
