package strategy

import (
	"sync"

	"go.uber.org/zap"
)

// Background runs detached tasks and keeps track of them so that shutdown
// and tests can wait for every in-flight task
type Background struct {
	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewBackground creates a task tracker
func NewBackground(logger *zap.Logger) *Background {
	return &Background{logger: logger}
}

// Go runs fn in its own goroutine. A panic in fn is logged, not propagated.
func (b *Background) Go(name string, fn func()) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("Background task panicked", zap.String("task", name), zap.Any("panic", r))
			}
		}()
		fn()
	}()
}

// Wait blocks until every task started so far has finished
func (b *Background) Wait() {
	b.wg.Wait()
}
