// internal/websocket/handler/capabilities.go
package handler

import (
	"context"
	"fmt"
	"strings"

	wstypes "memoriza-service/internal/domain/websocket"
	"memoriza-service/internal/pkg/permission"
	ws "memoriza-service/internal/websocket"
)

// CapabilitiesHandler answers capability queries over the socket so the UI
// can gate buttons without a round trip through the REST API.
type CapabilitiesHandler struct{}

func NewCapabilitiesHandler() *CapabilitiesHandler {
	return &CapabilitiesHandler{}
}

// SupportedEvents returns events this handler supports
func (h *CapabilitiesHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{wstypes.EventTypeCapabilitiesGet}
}

// HandleMessage processes capability messages
func (h *CapabilitiesHandler) HandleMessage(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	if msg.Type != wstypes.EventTypeCapabilitiesGet {
		return fmt.Errorf("%w: %s", ws.ErrUnsupportedEvent, msg.Type)
	}

	var req wstypes.CapabilitiesRequest
	if err := ws.DecodeData(msg.Data, &req); err != nil {
		return err
	}
	module := strings.TrimSpace(req.Module)
	if module == "" {
		return fmt.Errorf("%w: module is required", ws.ErrInvalidPayload)
	}

	sess := client.Session()
	state := sess.Snapshot()
	caps := permission.Evaluate(module, state.User, sess.IsAdmin())

	reply := wstypes.NewMessage(wstypes.EventTypeCapabilities, caps)
	reply.Metadata = map[string]interface{}{"request_id": msg.ID}
	client.SendMessage(reply)
	return nil
}
