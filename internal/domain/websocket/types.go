// internal/domain/websocket/types.go
package websocket

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType represents different real-time event types
type EventType string

const (
	// Connection events
	EventTypePing      EventType = "ping"
	EventTypePong      EventType = "pong"
	EventTypeConnected EventType = "connected"
	EventTypeError     EventType = "error"

	// Session events (server -> client)
	EventTypeAuthenticated     EventType = "session:authenticated"
	EventTypePermissionsLoaded EventType = "session:permissions_loaded"
	EventTypeProfileUpdated    EventType = "session:profile_updated"
	EventTypeLoggedOut         EventType = "session:logged_out"

	// Capability queries
	EventTypeCapabilitiesGet EventType = "capabilities:get"
	EventTypeCapabilities    EventType = "capabilities"

	// Carousel events
	EventTypeCarouselUpdated EventType = "carousel:updated"

	// Subscription events
	EventTypeSubscribe   EventType = "subscribe"
	EventTypeUnsubscribe EventType = "unsubscribe"
)

// WSMessage is the universal message format
type WSMessage struct {
	Type      EventType              `json:"type"`
	Data      interface{}            `json:"data,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	ID        string                 `json:"id,omitempty"`
}

// ChannelType names a stream clients can subscribe to.
type ChannelType string

const (
	ChannelSession  ChannelType = "session"
	ChannelCarousel ChannelType = "carousel"
)

// SubscribeRequest sent by client to subscribe to specific channels
type SubscribeRequest struct {
	Channels []ChannelType `json:"channels"`
}

// UnsubscribeRequest sent by client to unsubscribe from channels
type UnsubscribeRequest struct {
	Channels []ChannelType `json:"channels"`
}

// CapabilitiesRequest asks for the capability set of one module.
type CapabilitiesRequest struct {
	Module string `json:"module"`
}

// ErrorData for error events
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// SessionEventData for session events
type SessionEventData struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason,omitempty"`
	Message   string `json:"message,omitempty"`
}

// PermissionsLoadedData announces that group permissions were attached.
type PermissionsLoadedData struct {
	GroupID string   `json:"group_id"`
	Modules []string `json:"modules"`
}

// CarouselEventData describes a change to the carousel.
type CarouselEventData struct {
	Action  string  `json:"action"` // created, updated, deleted, reordered
	ItemID  int64   `json:"item_id,omitempty"`
	ItemIDs []int64 `json:"item_ids,omitempty"`
}

// Helper to create messages
func NewMessage(eventType EventType, data interface{}) *WSMessage {
	return &WSMessage{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
		ID:        ulid.Make().String(),
	}
}

func (m *WSMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ParseMessage(data []byte) (*WSMessage, error) {
	var msg WSMessage
	err := json.Unmarshal(data, &msg)
	return &msg, err
}
