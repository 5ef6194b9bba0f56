package strategy

import (
	"context"
	"errors"

	"go-offline-cache/internal/models"
)

// CacheFirst serves a stored entry whenever there is one, regardless of its
// age, and goes to the network only on a miss
func CacheFirst(ctx context.Context, req *models.Request, env *Env) (*Result, error) {
	entry, found, err := env.Namespace.Match(ctx, req)
	if err != nil {
		return nil, err
	}
	if found {
		return &Result{Response: entry.ServedResponse(), Source: SourceCache}, nil
	}

	outcome := await(ctx, startFetch(ctx, req, env, fetchForeground))
	if outcome.err != nil {
		return nil, outcome.err
	}
	return &Result{Response: outcome.resp, Source: SourceNetwork}, nil
}

// NetworkFirst prefers the network and falls back to a stored entry younger
// than the class max-age when the network fails
func NetworkFirst(ctx context.Context, req *models.Request, env *Env) (*Result, error) {
	outcome := await(ctx, startFetch(ctx, req, env, fetchForeground))
	if outcome.err == nil {
		return &Result{Response: outcome.resp, Source: SourceNetwork}, nil
	}
	if ctx.Err() != nil {
		return nil, outcome.err
	}

	entry, found, err := env.Namespace.Match(ctx, req)
	if err != nil {
		return nil, errors.Join(outcome.err, err)
	}
	if found && env.Tracker.IsFresh(entry, env.Class) {
		return &Result{Response: entry.ServedResponse(), Source: SourceFallback}, nil
	}
	return nil, outcome.err
}

// StaleWhileRevalidate always refreshes the entry in the background. A fresh
// entry is served at once; otherwise the refresh is awaited and the stale
// entry is only used if the refresh fails.
func StaleWhileRevalidate(ctx context.Context, req *models.Request, env *Env) (*Result, error) {
	entry, found, err := env.Namespace.Match(ctx, req)
	if err != nil {
		return nil, err
	}

	fresh := found && env.Tracker.IsFresh(entry, env.Class)
	kind := fetchForeground
	if fresh {
		kind = fetchRefresh
	}
	pending := startFetch(ctx, req, env, kind)

	if fresh {
		return &Result{Response: entry.ServedResponse(), Source: SourceCache}, nil
	}

	outcome := await(ctx, pending)
	if outcome.err == nil {
		return &Result{Response: outcome.resp, Source: SourceNetwork}, nil
	}
	if found && ctx.Err() == nil {
		return &Result{Response: entry.ServedResponse(), Source: SourceFallback}, nil
	}
	return nil, outcome.err
}

// CacheFirstWithRefresh serves any stored entry and refreshes it in the
// background. Without an entry the network response is awaited.
func CacheFirstWithRefresh(ctx context.Context, req *models.Request, env *Env) (*Result, error) {
	entry, found, err := env.Namespace.Match(ctx, req)
	if err != nil {
		return nil, err
	}

	kind := fetchForeground
	if found {
		kind = fetchRefresh
	}
	pending := startFetch(ctx, req, env, kind)

	if found {
		return &Result{Response: entry.ServedResponse(), Source: SourceCache}, nil
	}

	outcome := await(ctx, pending)
	if outcome.err != nil {
		return nil, outcome.err
	}
	return &Result{Response: outcome.resp, Source: SourceNetwork}, nil
}
