package strategy

import (
	"context"

	"go.uber.org/zap"

	"go-offline-cache/internal/freshness"
	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/metrics"
	"go-offline-cache/internal/models"
)

// Executor applies the strategy of a request class against the namespaces
// of one application version
type Executor struct {
	storage    interfaces.CacheStorage
	namespaces models.Namespaces
	fetcher    interfaces.Fetcher
	tracker    *freshness.Tracker
	background *Background
	policy     StorePolicy
	logger     *zap.Logger
}

// NewExecutor creates an executor for the given namespace set
func NewExecutor(
	storage interfaces.CacheStorage,
	namespaces models.Namespaces,
	fetcher interfaces.Fetcher,
	tracker *freshness.Tracker,
	background *Background,
	policy StorePolicy,
	logger *zap.Logger,
) *Executor {
	return &Executor{
		storage:    storage,
		namespaces: namespaces,
		fetcher:    fetcher,
		tracker:    tracker,
		background: background,
		policy:     policy,
		logger:     logger,
	}
}

// Execute answers a classified request
func (e *Executor) Execute(ctx context.Context, req *models.Request, class models.RequestClass) (*Result, error) {
	defer metrics.TimeStrategy(string(class))()

	ns, err := e.storage.Open(ctx, e.namespaces.Name(class.NamespaceKind()))
	if err != nil {
		metrics.RecordStrategyError(string(class))
		return nil, err
	}

	env := &Env{
		Class:      class,
		Namespace:  ns,
		Fetcher:    e.fetcher,
		Tracker:    e.tracker,
		Background: e.background,
		Policy:     e.policy,
		Logger:     e.logger,
	}

	result, err := ForClass(class)(ctx, req, env)
	if err != nil {
		metrics.RecordStrategyError(string(class))
		e.logger.Debug("Strategy failed",
			zap.String("class", string(class)),
			zap.String("url", req.URL.String()),
			zap.Error(err))
		return nil, err
	}

	metrics.RecordResponse(string(class), string(result.Source))
	return result, nil
}

// Wait blocks until every background fetch has finished
func (e *Executor) Wait() {
	e.background.Wait()
}
