package strategy

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"go-offline-cache/internal/freshness"
	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/metrics"
	"go-offline-cache/internal/models"
	"go-offline-cache/internal/network"
)

// Source tells where a served response came from
type Source string

const (
	SourceCache    Source = "cache"
	SourceNetwork  Source = "network"
	SourceFallback Source = "fallback" // stored entry served because the network failed
)

// Result is the outcome of a strategy
type Result struct {
	Response *models.Response
	Source   Source
}

// Env carries the collaborators a strategy works with for one request
type Env struct {
	Class      models.RequestClass
	Namespace  interfaces.Namespace
	Fetcher    interfaces.Fetcher
	Tracker    *freshness.Tracker
	Background *Background
	Policy     StorePolicy
	Logger     *zap.Logger
}

// Func answers a request by combining the namespace and the network
type Func func(ctx context.Context, req *models.Request, env *Env) (*Result, error)

// ForClass returns the strategy applied to a request class
func ForClass(class models.RequestClass) Func {
	switch class {
	case models.RequestClassStatic:
		return CacheFirst
	case models.RequestClassInternalAPI:
		return NetworkFirst
	case models.RequestClassPrayerAPI:
		return StaleWhileRevalidate
	default:
		return CacheFirstWithRefresh
	}
}

type fetchOutcome struct {
	resp *models.Response
	err  error
}

// fetchKind labels a fetch as awaited by the caller or as a refresh of an
// entry that was already served
type fetchKind string

const (
	fetchForeground fetchKind = "foreground"
	fetchRefresh    fetchKind = "refresh"
)

// startFetch dispatches a network fetch as a tracked background task. The
// task runs detached from ctx, stores a storable response in the namespace
// and then delivers the outcome on the returned channel.
func startFetch(ctx context.Context, req *models.Request, env *Env, kind fetchKind) <-chan fetchOutcome {
	out := make(chan fetchOutcome, 1)
	detached := context.WithoutCancel(ctx)

	env.Background.Go("fetch "+req.URL.String(), func() {
		resp, err := env.Fetcher.Fetch(detached, req)
		if err != nil {
			metrics.RecordFetch(string(env.Class), string(kind), "failed")
			out <- fetchOutcome{err: asNetworkError(err)}
			return
		}

		if ok, reason := env.Policy.Storable(req, env.Class, resp); ok {
			store(detached, req, resp, env, kind)
		} else {
			metrics.RecordFetch(string(env.Class), string(kind), "not_stored")
			env.Logger.Debug("Network response not stored",
				zap.String("url", req.URL.String()),
				zap.Int("status", resp.StatusCode),
				zap.String("reason", reason))
		}
		out <- fetchOutcome{resp: resp}
	})

	return out
}

// store stamps and writes a response. Write failures are logged and swallowed.
func store(ctx context.Context, req *models.Request, resp *models.Response, env *Env, kind fetchKind) {
	entry := env.Tracker.Stamp(req, env.Class, resp)
	if err := env.Namespace.Put(ctx, req, entry); err != nil {
		metrics.RecordFetch(string(env.Class), string(kind), "store_error")
		env.Logger.Warn("Failed to store network response",
			zap.String("namespace", env.Namespace.Name()),
			zap.String("url", req.URL.String()),
			zap.Error(err))
		return
	}
	metrics.RecordFetch(string(env.Class), string(kind), "stored")
}

// await waits for a dispatched fetch or for the caller to give up.
// The fetch itself keeps running in the latter case.
func await(ctx context.Context, ch <-chan fetchOutcome) fetchOutcome {
	select {
	case outcome := <-ch:
		return outcome
	case <-ctx.Done():
		return fetchOutcome{err: ctx.Err()}
	}
}

func asNetworkError(err error) error {
	if errors.Is(err, network.ErrNetwork) {
		return err
	}
	return fmt.Errorf("%w: %w", network.ErrNetwork, err)
}
