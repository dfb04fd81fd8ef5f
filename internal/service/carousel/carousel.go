// internal/service/carousel/carousel.go
package carousel

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sort"
	"sync"

	"memoriza-service/internal/backend"
	"memoriza-service/internal/domain/carousel"
	wstypes "memoriza-service/internal/domain/websocket"
	"memoriza-service/internal/metrics"
	xerrors "memoriza-service/internal/pkg/errors"

	"go.uber.org/zap"
)

const (
	msgUnavailable = "Could not reach the server. Check your connection and try again."
	msgForbidden   = "You do not have permission to manage the carousel."
	msgNotFound    = "Carousel item not found."
	msgReorderIDs  = "The new order must list every carousel item exactly once."
	msgReorderFail = "Could not save the new order. The previous order was restored."
	msgUnexpected  = "Something went wrong. Please try again."
)

// Backend is the carousel part of the Memoriza API.
type Backend interface {
	ListCarouselItems(ctx context.Context, token string) ([]carousel.Item, error)
	CreateCarouselItem(ctx context.Context, token string, item carousel.Item) (*carousel.Item, error)
	UpdateCarouselItem(ctx context.Context, token string, item carousel.Item) (*carousel.Item, error)
	DeleteCarouselItem(ctx context.Context, token string, id int64) error
	ReorderCarouselItems(ctx context.Context, token string, entries []carousel.ReorderEntry) error
}

// EventPublisher notifies clients watching the carousel.
type EventPublisher interface {
	PublishCarousel(msg *wstypes.WSMessage)
}

// CarouselService keeps the ordered admin view of the carousel and forwards
// every change to the backend.
type CarouselService struct {
	backend Backend
	events  EventPublisher
	metrics metrics.Recorder
	logger  *zap.Logger

	mu      sync.Mutex
	items   []carousel.Item
	version uint64
}

func NewCarouselService(backend Backend, events EventPublisher, recorder metrics.Recorder, logger *zap.Logger) *CarouselService {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &CarouselService{
		backend: backend,
		events:  events,
		metrics: recorder,
		logger:  logger,
	}
}

// List refreshes the local view from the backend, ordered by display order.
func (s *CarouselService) List(ctx context.Context, token string) ([]carousel.Item, error) {
	items, err := s.backend.ListCarouselItems(ctx, token)
	if err != nil {
		return nil, s.mapError("list", err)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].DisplayOrder < items[j].DisplayOrder
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	s.version++
	return slices.Clone(items), nil
}

// Items returns the current local view.
func (s *CarouselService) Items() []carousel.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// Create validates in and appends the item after the backend's current last
// one. Invalid input never reaches the backend.
func (s *CarouselService) Create(ctx context.Context, token string, in carousel.ItemInput) (*carousel.Item, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, xerrors.Public(err.Error(), xerrors.ErrValidation)
	}

	if _, err := s.List(ctx, token); err != nil {
		return nil, err
	}

	item := in.ToItem()
	s.mu.Lock()
	item.DisplayOrder = len(s.items)
	item.IsPrimary = len(s.items) == 0
	s.mu.Unlock()

	created, err := s.backend.CreateCarouselItem(ctx, token, item)
	if err != nil {
		return nil, s.mapError("create", err)
	}

	s.mu.Lock()
	s.items = append(s.items, *created)
	s.version++
	s.mu.Unlock()

	s.logger.Info("carousel item created", zap.Int64("item_id", created.ID), zap.String("template", created.Template))
	s.publish(wstypes.CarouselEventData{Action: "created", ItemID: created.ID})
	return created, nil
}

// Update validates in and replaces item id. Position in the carousel is kept.
func (s *CarouselService) Update(ctx context.Context, token string, id int64, in carousel.ItemInput) (*carousel.Item, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, xerrors.Public(err.Error(), xerrors.ErrValidation)
	}

	item := in.ToItem()
	item.ID = id
	s.mu.Lock()
	if idx := s.indexOf(id); idx >= 0 {
		item.DisplayOrder = s.items[idx].DisplayOrder
		item.IsPrimary = s.items[idx].IsPrimary
	}
	s.mu.Unlock()

	updated, err := s.backend.UpdateCarouselItem(ctx, token, item)
	if err != nil {
		return nil, s.mapError("update", err)
	}

	s.mu.Lock()
	if idx := s.indexOf(id); idx >= 0 {
		s.items[idx] = *updated
		s.version++
	}
	s.mu.Unlock()

	s.logger.Info("carousel item updated", zap.Int64("item_id", id))
	s.publish(wstypes.CarouselEventData{Action: "updated", ItemID: id})
	return updated, nil
}

// Delete removes item id.
func (s *CarouselService) Delete(ctx context.Context, token string, id int64) error {
	if err := s.backend.DeleteCarouselItem(ctx, token, id); err != nil {
		return s.mapError("delete", err)
	}

	s.mu.Lock()
	if idx := s.indexOf(id); idx >= 0 {
		s.items = slices.Delete(s.items, idx, idx+1)
		s.version++
	}
	s.mu.Unlock()

	s.logger.Info("carousel item deleted", zap.Int64("item_id", id))
	s.publish(wstypes.CarouselEventData{Action: "deleted", ItemID: id})
	return nil
}

// Reorder applies the new order locally right away and then saves it. ids
// must list every item of the backend's carousel exactly once; the first one
// becomes the primary banner. An order that does not match the local view is
// checked again against a fresh listing before it is rejected. When the save
// fails the previous order comes back, unless the view has changed in the
// meantime.
func (s *CarouselService) Reorder(ctx context.Context, token string, ids []int64) ([]carousel.Item, error) {
	s.mu.Lock()
	empty := len(s.items) == 0
	s.mu.Unlock()
	refreshed := false
	if empty {
		if _, err := s.List(ctx, token); err != nil {
			return nil, err
		}
		refreshed = true
	}

	s.mu.Lock()
	reordered, ok := s.permute(ids)
	if !ok && !refreshed {
		s.mu.Unlock()
		if _, err := s.List(ctx, token); err != nil {
			return nil, err
		}
		s.mu.Lock()
		reordered, ok = s.permute(ids)
	}
	if !ok {
		s.mu.Unlock()
		return nil, xerrors.Public(msgReorderIDs, xerrors.ErrValidation)
	}
	previous := slices.Clone(s.items)
	s.items = reordered
	s.version++
	version := s.version
	s.mu.Unlock()

	if err := s.backend.ReorderCarouselItems(ctx, token, carousel.BuildReorder(reordered)); err != nil {
		s.mu.Lock()
		restored := s.version == version
		if restored {
			s.items = previous
			s.version++
		}
		s.mu.Unlock()

		if restored {
			s.metrics.RecordReorderRollback()
		}
		s.logger.Warn("carousel reorder failed",
			zap.Int64s("item_ids", ids),
			zap.Bool("rolled_back", restored),
		)
		mapped := s.mapError("reorder", err)
		if se, ok := backend.AsStatus(err); (ok && se.IsAuthFailure()) || !restored {
			return nil, mapped
		}
		return nil, xerrors.Public(msgReorderFail, mapped)
	}

	s.logger.Info("carousel reordered", zap.Int64s("item_ids", ids))
	s.publish(wstypes.CarouselEventData{Action: "reordered", ItemIDs: ids})
	return slices.Clone(reordered), nil
}

// permute builds the view in the order of ids. Callers hold s.mu.
func (s *CarouselService) permute(ids []int64) ([]carousel.Item, bool) {
	if len(ids) != len(s.items) {
		return nil, false
	}

	byID := make(map[int64]carousel.Item, len(s.items))
	for _, it := range s.items {
		byID[it.ID] = it
	}

	out := make([]carousel.Item, 0, len(ids))
	for i, id := range ids {
		it, ok := byID[id]
		if !ok {
			return nil, false
		}
		delete(byID, id)
		it.DisplayOrder = i
		it.IsPrimary = i == 0
		out = append(out, it)
	}
	return out, true
}

func (s *CarouselService) indexOf(id int64) int {
	return slices.IndexFunc(s.items, func(it carousel.Item) bool { return it.ID == id })
}

func (s *CarouselService) mapError(op string, err error) error {
	if backend.IsTransport(err) {
		s.logger.Error("carousel backend unreachable", zap.String("op", op), zap.Error(err))
		return xerrors.Public(msgUnavailable, fmt.Errorf("%w: %v", xerrors.ErrUnavailable, err))
	}

	se, ok := backend.AsStatus(err)
	if !ok {
		s.logger.Error("carousel request failed", zap.String("op", op), zap.Error(err))
		return xerrors.Public(msgUnexpected, fmt.Errorf("%w: %v", xerrors.ErrInternal, err))
	}

	s.logger.Warn("carousel request rejected",
		zap.String("op", op),
		zap.Int("status", se.StatusCode),
		zap.String("body", se.Body),
	)
	switch {
	case se.IsAuthFailure():
		return xerrors.Public(msgForbidden, fmt.Errorf("%w: %v", xerrors.ErrForbidden, err))
	case se.StatusCode == http.StatusNotFound:
		return xerrors.Public(msgNotFound, fmt.Errorf("%w: %v", xerrors.ErrNotFound, err))
	case se.StatusCode == http.StatusBadRequest || se.StatusCode == http.StatusUnprocessableEntity:
		msg := se.Message
		if msg == "" {
			msg = "Invalid carousel item."
		}
		return xerrors.Public(msg, fmt.Errorf("%w: %v", xerrors.ErrInvalidInput, err))
	default:
		return xerrors.Public(msgUnexpected, fmt.Errorf("%w: %v", xerrors.ErrInternal, err))
	}
}

func (s *CarouselService) publish(data wstypes.CarouselEventData) {
	if s.events == nil {
		return
	}
	s.events.PublishCarousel(wstypes.NewMessage(wstypes.EventTypeCarouselUpdated, data))
}
