package models

// MessageType identifies a control message sent by the host page
type MessageType string

const (
	MessageTypeClearCache  MessageType = "CLEAR_CACHE"
	MessageTypeSkipWaiting MessageType = "SKIP_WAITING"
)

// ControlMessage is a structured message delivered on the control channel
type ControlMessage struct {
	Type MessageType `json:"type"`
}

// IsKnown reports whether the message type is recognized
func (m ControlMessage) IsKnown() bool {
	switch m.Type {
	case MessageTypeClearCache, MessageTypeSkipWaiting:
		return true
	default:
		return false
	}
}
