package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/lifecycle"
	"go-offline-cache/internal/metrics"
	"go-offline-cache/internal/models"
)

// Snapshot is the host-facing view of the offline cache
type Snapshot struct {
	Version         string `json:"version,omitempty"`
	State           string `json:"state"`
	WaitingVersion  string `json:"waitingVersion,omitempty"`
	UpdateAvailable bool   `json:"updateAvailable"`
	IsOnline        bool   `json:"isOnline"`
}

// Channel executes control messages sent by the host page
type Channel struct {
	registration *lifecycle.Registration
	storage      interfaces.CacheStorage
	state        *HostState
	logger       *zap.Logger
}

// NewChannel creates a control channel
func NewChannel(registration *lifecycle.Registration, storage interfaces.CacheStorage, state *HostState, logger *zap.Logger) *Channel {
	return &Channel{
		registration: registration,
		storage:      storage,
		state:        state,
		logger:       logger,
	}
}

// ParseMessage decodes a control message
func ParseMessage(data []byte) (models.ControlMessage, error) {
	var msg models.ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("invalid control message: %w", err)
	}
	return msg, nil
}

// Handle executes a control message. Unknown message types are ignored.
func (c *Channel) Handle(ctx context.Context, msg models.ControlMessage) error {
	if !msg.IsKnown() {
		c.logger.Debug("Ignoring unknown control message", zap.String("type", string(msg.Type)))
		metrics.RecordControlMessage("unknown")
		return nil
	}
	metrics.RecordControlMessage(string(msg.Type))

	switch msg.Type {
	case models.MessageTypeClearCache:
		return c.clearAll(ctx)
	case models.MessageTypeSkipWaiting:
		return c.skipWaiting(ctx)
	}
	return nil
}

func (c *Channel) clearAll(ctx context.Context) error {
	deleted, err := c.storage.DeleteAll(ctx)
	if err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	c.logger.Info("Cleared all cache namespaces", zap.Int("deleted", deleted))
	return nil
}

func (c *Channel) skipWaiting(ctx context.Context) error {
	err := c.registration.SkipWaiting(ctx)
	if errors.Is(err, lifecycle.ErrNoWaitingVersion) {
		c.logger.Debug("Skip waiting requested without a waiting version")
		err = nil
	}
	if err != nil {
		return fmt.Errorf("skip waiting: %w", err)
	}

	c.state.ClearUpdateAvailable()
	return nil
}

// UpdateServiceWorker activates the waiting version and asks the host to reload
func (c *Channel) UpdateServiceWorker(ctx context.Context) error {
	if err := c.Handle(ctx, models.ControlMessage{Type: models.MessageTypeSkipWaiting}); err != nil {
		return err
	}
	c.state.RequestReload()
	return nil
}

// ClearCache sends CLEAR_CACHE and deletes every namespace once more from the
// host side, covering entries written while the message was processed
func (c *Channel) ClearCache(ctx context.Context) error {
	if err := c.Handle(ctx, models.ControlMessage{Type: models.MessageTypeClearCache}); err != nil {
		return err
	}
	return c.clearAll(ctx)
}

// Snapshot returns the current host-facing state
func (c *Channel) Snapshot() Snapshot {
	snapshot := Snapshot{
		State:           "unregistered",
		UpdateAvailable: c.state.UpdateAvailableFlag(),
		IsOnline:        c.state.IsOnline(),
	}
	if active := c.registration.Active(); active != nil {
		snapshot.Version = active.Version()
		snapshot.State = string(active.State())
	}
	if waiting := c.registration.Waiting(); waiting != nil {
		snapshot.WaitingVersion = waiting.Version()
	}
	return snapshot
}

// State returns the host state the channel reports on
func (c *Channel) State() *HostState {
	return c.state
}
