package lifecycle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	// ErrNotActivated is returned when no version controls requests yet
	ErrNotActivated = errors.New("no active version")
	// ErrNoWaitingVersion is returned when there is no installed version to activate
	ErrNoWaitingVersion = errors.New("no version is waiting")
)

// Listener is notified about registration changes the host page cares about
type Listener interface {
	// UpdateAvailable is called when a version finished installing while
	// another version controls requests
	UpdateAvailable(version string)
	// ControllerChanged is called when a version takes control
	ControllerChanged(version string)
}

// Registration tracks the active and the waiting worker
type Registration struct {
	// installMu serializes installs. mu guards waiting and activation and is
	// never held while precaching.
	installMu sync.Mutex
	mu        sync.Mutex
	active    atomic.Pointer[Worker]
	waiting   *Worker

	newWorker func() *Worker
	listener  Listener
	logger    *zap.Logger
}

// NewRegistration creates a registration. newWorker builds a worker for the
// currently deployed version; listener may be nil.
func NewRegistration(newWorker func() *Worker, listener Listener, logger *zap.Logger) *Registration {
	return &Registration{
		newWorker: newWorker,
		listener:  listener,
		logger:    logger,
	}
}

// Active returns the worker controlling requests, or nil
func (r *Registration) Active() *Worker {
	return r.active.Load()
}

// Waiting returns the installed worker waiting to take control, or nil
func (r *Registration) Waiting() *Worker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.waiting
}

// Update installs the deployed version unless it is already active or
// waiting. It returns the worker serving that version.
func (r *Registration) Update(ctx context.Context) (*Worker, error) {
	w := r.newWorker()

	r.installMu.Lock()
	defer r.installMu.Unlock()

	r.mu.Lock()
	for _, existing := range []*Worker{r.active.Load(), r.waiting} {
		if existing != nil && existing.Version() == w.Version() {
			r.mu.Unlock()
			return existing, nil
		}
	}
	r.mu.Unlock()

	if err := r.register(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// Register installs w. Without a controlling version, or when w asked to
// skip waiting, w is activated right away; otherwise it becomes the waiting
// version.
func (r *Registration) Register(ctx context.Context, w *Worker) error {
	r.installMu.Lock()
	defer r.installMu.Unlock()
	return r.register(ctx, w)
}

// register must be called with installMu held
func (r *Registration) register(ctx context.Context, w *Worker) error {
	if err := w.Install(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if previous := r.waiting; previous != nil && previous != w {
		previous.MarkRedundant()
	}
	r.waiting = w

	hasController := r.active.Load() != nil
	if hasController && r.listener != nil {
		r.listener.UpdateAvailable(w.Version())
	}

	if !hasController || w.SkipWaitingRequested() {
		return r.activateWaiting(ctx)
	}

	r.logger.Info("Version installed and waiting", zap.String("version", w.Version()))
	return nil
}

// SkipWaiting activates the waiting version now
func (r *Registration) SkipWaiting(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.waiting == nil {
		return ErrNoWaitingVersion
	}
	r.waiting.SkipWaiting()
	return r.activateWaiting(ctx)
}

// activateWaiting must be called with mu held
func (r *Registration) activateWaiting(ctx context.Context) error {
	w := r.waiting
	if err := w.Activate(ctx); err != nil {
		return err
	}

	r.waiting = nil
	previous := r.active.Swap(w)
	if previous != nil {
		previous.MarkRedundant()
	}

	if r.listener != nil {
		r.listener.ControllerChanged(w.Version())
	}
	return nil
}
