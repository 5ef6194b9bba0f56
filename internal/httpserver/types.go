package httpserver

import "go-offline-cache/internal/control"

// ControlPrefix is the path prefix of the host control API
const ControlPrefix = "/__offline"

const maxControlBodySize = 64 << 10

// ControlResponse represents the result of a control operation
type ControlResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error,omitempty"`
	State   *control.Snapshot `json:"state,omitempty"`
}
