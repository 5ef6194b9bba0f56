package control

import (
	"sync"

	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/lifecycle"
	"go-offline-cache/internal/metrics"
)

// EventType names a host-facing notification
type EventType string

const (
	EventUpdateAvailable  EventType = "update-available"
	EventOnline           EventType = "online"
	EventOffline          EventType = "offline"
	EventControllerChange EventType = "controller-change"
	EventReload           EventType = "reload"
)

// Event is delivered to host subscribers
type Event struct {
	Type    EventType `json:"type"`
	Version string    `json:"version,omitempty"`
}

var (
	_ interfaces.ConnectivityObserver = (*HostState)(nil)
	_ lifecycle.Listener              = (*HostState)(nil)
)

// HostState holds the update and connectivity flags the host page observes
// and fans out their transitions to subscribers
type HostState struct {
	mu              sync.RWMutex
	online          bool
	updateAvailable bool
	subscribers     map[int]chan Event
	nextID          int
}

// NewHostState creates the host state, assuming the network is reachable
func NewHostState() *HostState {
	metrics.SetOnline(true)
	return &HostState{
		online:      true,
		subscribers: make(map[int]chan Event),
	}
}

// IsOnline reports the last known connectivity
func (h *HostState) IsOnline() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.online
}

// UpdateAvailableFlag reports whether a new version is installed while an older one is in control
func (h *HostState) UpdateAvailableFlag() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.updateAvailable
}

// SetOnline records connectivity and notifies subscribers on transitions
func (h *HostState) SetOnline(online bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.online == online {
		return
	}
	h.online = online
	metrics.SetOnline(online)

	if online {
		h.publish(Event{Type: EventOnline})
	} else {
		h.publish(Event{Type: EventOffline})
	}
}

// UpdateAvailable marks that a new version is ready
func (h *HostState) UpdateAvailable(version string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.updateAvailable = true
	h.publish(Event{Type: EventUpdateAvailable, Version: version})
}

// ControllerChanged notifies subscribers that another version took control
func (h *HostState) ControllerChanged(version string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.publish(Event{Type: EventControllerChange, Version: version})
}

// RequestReload asks subscribers to reload so the current version serves them
func (h *HostState) RequestReload() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.publish(Event{Type: EventReload})
}

// ClearUpdateAvailable resets the update flag
func (h *HostState) ClearUpdateAvailable() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updateAvailable = false
}

// Subscribe returns a channel of events and a function ending the
// subscription. Events are dropped for subscribers whose buffer is full.
func (h *HostState) Subscribe(buffer int) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Event, buffer)
	h.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subscribers, id)
			close(ch)
		})
	}
}

// publish must be called with mu held
func (h *HostState) publish(event Event) {
	for _, ch := range h.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
