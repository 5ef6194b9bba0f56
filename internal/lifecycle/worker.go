package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"go-offline-cache/internal/freshness"
	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/metrics"
	"go-offline-cache/internal/models"
	"go-offline-cache/internal/strategy"
)

var (
	// ErrInstallFailed is returned when the precache manifest could not be stored
	ErrInstallFailed = errors.New("install failed")
	// ErrInvalidState is returned when a lifecycle step runs out of order
	ErrInvalidState = errors.New("invalid lifecycle state")
)

// State is the lifecycle state of a worker
type State string

const (
	StateNew        State = "new"
	StateInstalling State = "installing"
	StateInstalled  State = "installed"
	StateActivating State = "activating"
	StateActivated  State = "activated"
	StateRedundant  State = "redundant"
)

// WorkerConfig describes the version a worker serves
type WorkerConfig struct {
	Namespaces           models.Namespaces
	Origin               *url.URL
	Precache             []string
	OfflinePage          string
	SkipWaitingOnInstall bool
	StorePolicy          strategy.StorePolicy
}

// Worker is one version of the offline cache. It is installed and activated
// once; afterwards it answers intercepted requests until a newer version
// replaces it.
type Worker struct {
	mu          sync.RWMutex
	state       State
	skipWaiting bool

	config   WorkerConfig
	storage  interfaces.CacheStorage
	fetcher  interfaces.Fetcher
	tracker  *freshness.Tracker
	executor *strategy.Executor
	logger   *zap.Logger
}

// NewWorker creates a worker in the new state
func NewWorker(
	cfg WorkerConfig,
	storage interfaces.CacheStorage,
	fetcher interfaces.Fetcher,
	tracker *freshness.Tracker,
	background *strategy.Background,
	logger *zap.Logger,
) *Worker {
	logger = logger.With(zap.String("version", cfg.Namespaces.Version))
	return &Worker{
		state:    StateNew,
		config:   cfg,
		storage:  storage,
		fetcher:  fetcher,
		tracker:  tracker,
		executor: strategy.NewExecutor(storage, cfg.Namespaces, fetcher, tracker, background, cfg.StorePolicy, logger),
		logger:   logger,
	}
}

// Version returns the application version the worker serves
func (w *Worker) Version() string {
	return w.config.Namespaces.Version
}

// Namespaces returns the namespace set of the worker's version
func (w *Worker) Namespaces() models.Namespaces {
	return w.config.Namespaces
}

// State returns the current lifecycle state
func (w *Worker) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// SkipWaitingRequested reports whether the worker asked to take over without waiting
func (w *Worker) SkipWaitingRequested() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.skipWaiting
}

// SkipWaiting asks for the worker to be activated as soon as it is installed
func (w *Worker) SkipWaiting() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.skipWaiting = true
}

func (w *Worker) transition(from, to State) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != from {
		return fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidState, w.state, to)
	}
	w.state = to
	metrics.RecordLifecycleEvent(string(to))
	return nil
}

func (w *Worker) setState(state State) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = state
	metrics.RecordLifecycleEvent(string(state))
}

// Install fetches the whole precache manifest and stores it in the static
// namespace. Either every entry is stored or none is; on failure the worker
// becomes redundant.
func (w *Worker) Install(ctx context.Context) error {
	if err := w.transition(StateNew, StateInstalling); err != nil {
		return err
	}
	w.logger.Info("Installing version", zap.Int("precache", len(w.config.Precache)))

	requests, err := w.manifestRequests()
	if err != nil {
		return w.failInstall(err)
	}

	responses, err := w.fetchManifest(ctx, requests)
	if err != nil {
		return w.failInstall(err)
	}

	if err := w.storeManifest(ctx, requests, responses); err != nil {
		return w.failInstall(err)
	}

	w.mu.Lock()
	w.state = StateInstalled
	if w.config.SkipWaitingOnInstall {
		w.skipWaiting = true
	}
	w.mu.Unlock()

	metrics.RecordLifecycleEvent(string(StateInstalled))
	w.logger.Info("Installed version")
	return nil
}

func (w *Worker) manifestRequests() ([]*models.Request, error) {
	requests := make([]*models.Request, 0, len(w.config.Precache))
	for _, path := range w.config.Precache {
		ref, err := url.Parse(path)
		if err != nil {
			return nil, fmt.Errorf("invalid precache path %q: %w", path, err)
		}
		req, err := models.NewGetRequest(w.config.Origin.ResolveReference(ref).String())
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, nil
}

func (w *Worker) fetchManifest(ctx context.Context, requests []*models.Request) ([]*models.Response, error) {
	responses := make([]*models.Response, len(requests))

	g, gctx := errgroup.WithContext(ctx)
	for i, req := range requests {
		g.Go(func() error {
			resp, err := w.fetcher.Fetch(gctx, req)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", req.URL, err)
			}
			if !resp.OK() {
				return fmt.Errorf("fetch %s: unexpected status %d", req.URL, resp.StatusCode)
			}
			responses[i] = resp
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return responses, nil
}

func (w *Worker) storeManifest(ctx context.Context, requests []*models.Request, responses []*models.Response) error {
	ns, err := w.storage.Open(ctx, w.config.Namespaces.Name(models.NamespaceStatic))
	if err != nil {
		return err
	}

	for i, req := range requests {
		entry := w.tracker.Stamp(req, models.RequestClassStatic, responses[i])
		if err := ns.Put(ctx, req, entry); err != nil {
			w.rollback(ctx, ns, requests[:i])
			return err
		}
	}
	return nil
}

// rollback removes entries written by a failed install
func (w *Worker) rollback(ctx context.Context, ns interfaces.Namespace, written []*models.Request) {
	for _, req := range written {
		if _, err := ns.Delete(ctx, req); err != nil {
			w.logger.Warn("Failed to roll back precache entry", zap.String("url", req.URL.String()), zap.Error(err))
		}
	}
}

func (w *Worker) failInstall(err error) error {
	w.setState(StateRedundant)
	w.logger.Error("Install failed", zap.Error(err))
	return fmt.Errorf("%w: %w", ErrInstallFailed, err)
}

// Activate deletes the namespaces of every other version of the application
// and marks the worker active
func (w *Worker) Activate(ctx context.Context) error {
	if err := w.transition(StateInstalled, StateActivating); err != nil {
		return err
	}

	deleted, err := w.deleteForeignNamespaces(ctx)
	if err != nil {
		// stay installed so activation can be retried
		w.setState(StateInstalled)
		return fmt.Errorf("activate %s: %w", w.Version(), err)
	}

	w.setState(StateActivated)
	w.logger.Info("Activated version", zap.Strings("deleted_namespaces", deleted))
	return nil
}

func (w *Worker) deleteForeignNamespaces(ctx context.Context) ([]string, error) {
	names, err := w.storage.Names(ctx)
	if err != nil {
		return nil, err
	}

	var deleted []string
	for _, name := range names {
		if !w.config.Namespaces.IsForeign(name) {
			continue
		}
		if _, err := w.storage.Delete(ctx, name); err != nil {
			return deleted, err
		}
		deleted = append(deleted, name)
	}
	return deleted, nil
}

// MarkRedundant retires the worker
func (w *Worker) MarkRedundant() {
	w.setState(StateRedundant)
	w.logger.Info("Version is redundant")
}

// Handle answers a classified request with the strategy of its class
func (w *Worker) Handle(ctx context.Context, req *models.Request, class models.RequestClass) (*strategy.Result, error) {
	return w.executor.Execute(ctx, req, class)
}

// OfflinePage returns the precached offline fallback document if it is stored
func (w *Worker) OfflinePage(ctx context.Context) (*models.Response, bool) {
	if w.config.OfflinePage == "" {
		return nil, false
	}

	ref, err := url.Parse(w.config.OfflinePage)
	if err != nil {
		return nil, false
	}
	req, err := models.NewGetRequest(w.config.Origin.ResolveReference(ref).String())
	if err != nil {
		return nil, false
	}

	ns, err := w.storage.Open(ctx, w.config.Namespaces.Name(models.NamespaceStatic))
	if err != nil {
		return nil, false
	}

	entry, found, err := ns.Match(ctx, req)
	if err != nil {
		w.logger.Warn("Failed to read offline page", zap.Error(err))
		return nil, false
	}
	if !found {
		return nil, false
	}
	return entry.ServedResponse(), true
}

// Wait blocks until the worker's background fetches have finished
func (w *Worker) Wait() {
	w.executor.Wait()
}
