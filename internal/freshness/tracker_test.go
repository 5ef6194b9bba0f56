package freshness

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-offline-cache/internal/models"
)

func TestTracker_Stamp(t *testing.T) {
	clk := clock.NewMock()
	clk.Add(1700000000 * time.Second)
	tracker := NewTracker(clk, nil)

	u, err := url.Parse("https://api.aladhan.com/v1/timings?city=Cairo#today")
	require.NoError(t, err)
	req := &models.Request{Method: http.MethodGet, URL: u}
	resp := &models.Response{StatusCode: http.StatusOK, Header: http.Header{"X": []string{"1"}}, Body: []byte("{}")}

	entry := tracker.Stamp(req, models.RequestClassPrayerAPI, resp)

	assert.Equal(t, "https://api.aladhan.com/v1/timings?city=Cairo", entry.URL)
	assert.Equal(t, models.RequestClassPrayerAPI, entry.Class)
	assert.Equal(t, clk.Now().UnixMilli(), entry.CachedAt)
	assert.Equal(t, resp.Body, entry.Response.Body)

	resp.Body[0] = '['
	assert.Equal(t, []byte("{}"), entry.Response.Body, "entry must not alias the response body")
	assert.Equal(t, "https://api.aladhan.com/v1/timings?city=Cairo#today", req.URL.String(), "request must not be modified")
}

func TestTracker_FreshnessBoundary(t *testing.T) {
	clk := clock.NewMock()
	tracker := NewTracker(clk, map[models.RequestClass]time.Duration{
		models.RequestClassInternalAPI: 5 * time.Minute,
	})

	entry := &models.CacheEntry{CachedAt: clk.Now().UnixMilli()}

	tests := []struct {
		elapsed time.Duration
		fresh   bool
	}{
		{0, true},
		{4*time.Minute + 59*time.Second, true},
		{5*time.Minute - time.Millisecond, true},
		{5 * time.Minute, false},
		{5*time.Minute + time.Second, false},
	}

	var elapsed time.Duration
	for _, tt := range tests {
		clk.Add(tt.elapsed - elapsed)
		elapsed = tt.elapsed

		assert.Equal(t, tt.elapsed, tracker.Age(entry))
		assert.Equal(t, tt.fresh, tracker.IsFresh(entry, models.RequestClassInternalAPI), "age %v", tt.elapsed)
	}
}

func TestTracker_MaxAge(t *testing.T) {
	maxAges := map[models.RequestClass]time.Duration{models.RequestClassStatic: 7 * 24 * time.Hour}
	tracker := NewTracker(clock.NewMock(), maxAges)

	maxAges[models.RequestClassStatic] = time.Second

	assert.Equal(t, 7*24*time.Hour, tracker.MaxAge(models.RequestClassStatic), "tracker keeps its own copy")
	assert.Zero(t, tracker.MaxAge(models.RequestClassOther))
}
