package carousel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"memoriza-service/internal/backend"
	"memoriza-service/internal/domain/carousel"
	wstypes "memoriza-service/internal/domain/websocket"
	xerrors "memoriza-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type fakeBackend struct {
	mu         sync.Mutex
	items      []carousel.Item
	nextID     int64
	requests   int
	reorderErr error
	reordered  []carousel.ReorderEntry
	onReorder  func()
}

func (f *fakeBackend) ListCarouselItems(context.Context, string) ([]carousel.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	return append([]carousel.Item(nil), f.items...), nil
}

func (f *fakeBackend) CreateCarouselItem(_ context.Context, _ string, item carousel.Item) (*carousel.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	f.nextID++
	item.ID = f.nextID
	f.items = append(f.items, item)
	return &item, nil
}

func (f *fakeBackend) UpdateCarouselItem(_ context.Context, _ string, item carousel.Item) (*carousel.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	return &item, nil
}

func (f *fakeBackend) DeleteCarouselItem(context.Context, string, int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	return nil
}

func (f *fakeBackend) ReorderCarouselItems(_ context.Context, _ string, entries []carousel.ReorderEntry) error {
	f.mu.Lock()
	f.requests++
	f.reordered = entries
	hook := f.onReorder
	err := f.reorderErr
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return err
}

func (f *fakeBackend) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []wstypes.CarouselEventData
}

func (p *recordingPublisher) PublishCarousel(msg *wstypes.WSMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, msg.Data.(wstypes.CarouselEventData))
}

type rollbackCounter struct {
	mu    sync.Mutex
	count int
}

func (r *rollbackCounter) RecordLogin(string, string)                      {}
func (r *rollbackCounter) RecordPermissionFetch(string)                    {}
func (r *rollbackCounter) RecordBackendRequest(string, int, time.Duration) {}
func (r *rollbackCounter) SetActiveSessions(int)                           {}
func (r *rollbackCounter) RecordReorderRollback() {
	r.mu.Lock()
	r.count++
	r.mu.Unlock()
}

func seeded() *fakeBackend {
	return &fakeBackend{
		nextID: 3,
		items: []carousel.Item{
			{ID: 2, Title: "Inverno", ImageURL: "/img/2.jpg", Template: carousel.TemplateTextLeft, DisplayOrder: 1},
			{ID: 1, ImageURL: "/img/1.jpg", Template: carousel.TemplateFullImage, DisplayOrder: 0, IsPrimary: true},
			{ID: 3, Title: "Promo", ImageURL: "/img/3.jpg", Template: carousel.TemplateCentered, DisplayOrder: 2},
		},
	}
}

func ids(items []carousel.Item) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestListOrdersByDisplayOrder(t *testing.T) {
	svc := NewCarouselService(seeded(), nil, nil, zap.NewNop())

	items, err := svc.List(context.Background(), "tok")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := ids(items); !equalIDs(got, []int64{1, 2, 3}) {
		t.Errorf("order = %v", got)
	}
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name  string
		input carousel.ItemInput
		valid bool
	}{
		{"full image without title", carousel.ItemInput{ImageURL: "/a.jpg"}, true},
		{"text left without title", carousel.ItemInput{ImageURL: "/a.jpg", Template: carousel.TemplateTextLeft}, false},
		{"blank title", carousel.ItemInput{ImageURL: "/a.jpg", Template: carousel.TemplateCentered, Title: "   "}, false},
		{"text right with title", carousel.ItemInput{ImageURL: "/a.jpg", Template: carousel.TemplateTextRight, Title: "Novidades"}, true},
		{"unknown template", carousel.ItemInput{ImageURL: "/a.jpg", Template: "split", Title: "x"}, false},
		{"missing image", carousel.ItemInput{Title: "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := &fakeBackend{}
			svc := NewCarouselService(fb, nil, nil, zap.NewNop())

			_, err := svc.Create(context.Background(), "tok", tt.input)
			if tt.valid {
				if err != nil {
					t.Fatalf("Create: %v", err)
				}
				return
			}
			if !errors.Is(err, xerrors.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if fb.requestCount() != 0 {
				t.Error("invalid input reached the backend")
			}
		})
	}
}

func TestCreateAppendsAndPublishes(t *testing.T) {
	fb := &fakeBackend{}
	pub := &recordingPublisher{}
	svc := NewCarouselService(fb, pub, nil, zap.NewNop())

	first, err := svc.Create(context.Background(), "tok", carousel.ItemInput{ImageURL: "/a.jpg"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := svc.Create(context.Background(), "tok", carousel.ItemInput{ImageURL: "/b.jpg"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if !first.IsPrimary || first.DisplayOrder != 0 {
		t.Errorf("first item = %+v", first)
	}
	if second.IsPrimary || second.DisplayOrder != 1 {
		t.Errorf("second item = %+v", second)
	}
	if len(pub.events) != 2 || pub.events[1].Action != "created" || pub.events[1].ItemID != second.ID {
		t.Errorf("events = %+v", pub.events)
	}
}

func TestCreateUsesBackendPosition(t *testing.T) {
	fb := &fakeBackend{
		nextID: 2,
		items: []carousel.Item{
			{ID: 1, ImageURL: "/img/1.jpg", Template: carousel.TemplateFullImage, DisplayOrder: 0, IsPrimary: true},
			{ID: 2, ImageURL: "/img/2.jpg", Template: carousel.TemplateFullImage, DisplayOrder: 1},
		},
	}
	// fresh process: nothing listed yet
	svc := NewCarouselService(fb, nil, nil, zap.NewNop())

	created, err := svc.Create(context.Background(), "tok", carousel.ItemInput{ImageURL: "/img/3.jpg"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.IsPrimary || created.DisplayOrder != 2 {
		t.Errorf("created = %+v", created)
	}

	primaries := 0
	for _, it := range fb.items {
		if it.IsPrimary {
			primaries++
		}
	}
	if primaries != 1 {
		t.Errorf("backend has %d primary items", primaries)
	}
	if got := ids(svc.Items()); !equalIDs(got, []int64{1, 2, 3}) {
		t.Errorf("view = %v", got)
	}
}

func TestReorderRefreshesStaleView(t *testing.T) {
	fb := &fakeBackend{
		nextID: 2,
		items: []carousel.Item{
			{ID: 1, ImageURL: "/img/1.jpg", Template: carousel.TemplateFullImage, DisplayOrder: 0, IsPrimary: true},
			{ID: 2, ImageURL: "/img/2.jpg", Template: carousel.TemplateFullImage, DisplayOrder: 1},
		},
	}
	svc := NewCarouselService(fb, nil, nil, zap.NewNop())
	if _, err := svc.List(context.Background(), "tok"); err != nil {
		t.Fatalf("List: %v", err)
	}

	// another replica adds an item after this view was loaded
	fb.mu.Lock()
	fb.items = append(fb.items, carousel.Item{ID: 3, ImageURL: "/img/3.jpg", Template: carousel.TemplateFullImage, DisplayOrder: 2})
	fb.mu.Unlock()

	items, err := svc.Reorder(context.Background(), "tok", []int64{3, 1, 2})
	if err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	if got := ids(items); !equalIDs(got, []int64{3, 1, 2}) {
		t.Errorf("order = %v", got)
	}
	if len(fb.reordered) != 3 || fb.reordered[0].ImageID != 3 || !fb.reordered[0].IsPrimary {
		t.Errorf("payload = %+v", fb.reordered)
	}
}

func TestReorderSendsPayload(t *testing.T) {
	fb := seeded()
	pub := &recordingPublisher{}
	svc := NewCarouselService(fb, pub, nil, zap.NewNop())
	if _, err := svc.List(context.Background(), "tok"); err != nil {
		t.Fatalf("List: %v", err)
	}

	items, err := svc.Reorder(context.Background(), "tok", []int64{3, 1, 2})
	if err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	if got := ids(items); !equalIDs(got, []int64{3, 1, 2}) {
		t.Errorf("order = %v", got)
	}

	want := []carousel.ReorderEntry{
		{ImageID: 3, DisplayOrder: 0, IsPrimary: true},
		{ImageID: 1, DisplayOrder: 1},
		{ImageID: 2, DisplayOrder: 2},
	}
	if len(fb.reordered) != len(want) {
		t.Fatalf("payload = %+v", fb.reordered)
	}
	for i := range want {
		if fb.reordered[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, fb.reordered[i], want[i])
		}
	}
	if len(pub.events) != 1 || pub.events[0].Action != "reordered" {
		t.Errorf("events = %+v", pub.events)
	}
}

func TestReorderLoadsViewWhenEmpty(t *testing.T) {
	fb := seeded()
	svc := NewCarouselService(fb, nil, nil, zap.NewNop())

	if _, err := svc.Reorder(context.Background(), "tok", []int64{2, 3, 1}); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	if got := ids(svc.Items()); !equalIDs(got, []int64{2, 3, 1}) {
		t.Errorf("order = %v", got)
	}
}

func TestReorderRejectsNonPermutation(t *testing.T) {
	cases := map[string][]int64{
		"missing":   {1, 2},
		"duplicate": {1, 1, 2},
		"unknown":   {1, 2, 9},
	}
	for name, order := range cases {
		t.Run(name, func(t *testing.T) {
			fb := seeded()
			svc := NewCarouselService(fb, nil, nil, zap.NewNop())
			if _, err := svc.List(context.Background(), "tok"); err != nil {
				t.Fatalf("List: %v", err)
			}
			_, err := svc.Reorder(context.Background(), "tok", order)
			if !errors.Is(err, xerrors.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if fb.reordered != nil {
				t.Error("invalid order reached the backend")
			}
		})
	}
}

func TestReorderRollsBackOnFailure(t *testing.T) {
	fb := seeded()
	fb.reorderErr = &backend.StatusError{Endpoint: backend.EndpointCarouselReorder, StatusCode: 500}
	counter := &rollbackCounter{}
	pub := &recordingPublisher{}
	svc := NewCarouselService(fb, pub, counter, zap.NewNop())
	if _, err := svc.List(context.Background(), "tok"); err != nil {
		t.Fatalf("List: %v", err)
	}

	var during []int64
	fb.onReorder = func() { during = ids(svc.Items()) }

	_, err := svc.Reorder(context.Background(), "tok", []int64{3, 2, 1})
	if err == nil {
		t.Fatal("expected error")
	}
	if xerrors.PublicMessage(err, "") != msgReorderFail {
		t.Errorf("message = %q", xerrors.PublicMessage(err, ""))
	}
	if !equalIDs(during, []int64{3, 2, 1}) {
		t.Errorf("view was not updated before the request: %v", during)
	}
	if got := ids(svc.Items()); !equalIDs(got, []int64{1, 2, 3}) {
		t.Errorf("order after rollback = %v", got)
	}
	if !svc.Items()[0].IsPrimary {
		t.Error("primary flag not restored")
	}
	if counter.count != 1 {
		t.Errorf("rollbacks = %d", counter.count)
	}
	if len(pub.events) != 0 {
		t.Errorf("failed reorder published %+v", pub.events)
	}
}

func TestReorderKeepsNewerView(t *testing.T) {
	fb := seeded()
	fb.reorderErr = &backend.TransportError{Endpoint: backend.EndpointCarouselReorder, Err: errors.New("timeout")}
	counter := &rollbackCounter{}
	svc := NewCarouselService(fb, nil, counter, zap.NewNop())
	if _, err := svc.List(context.Background(), "tok"); err != nil {
		t.Fatalf("List: %v", err)
	}

	// a refresh lands while the reorder request is in flight
	fb.onReorder = func() {
		fb.mu.Lock()
		fb.items = fb.items[:2]
		fb.mu.Unlock()
		if _, err := svc.List(context.Background(), "tok"); err != nil {
			t.Errorf("List: %v", err)
		}
	}

	_, err := svc.Reorder(context.Background(), "tok", []int64{3, 2, 1})
	if !errors.Is(err, xerrors.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if got := ids(svc.Items()); !equalIDs(got, []int64{1, 2}) {
		t.Errorf("newer view was overwritten: %v", got)
	}
	if counter.count != 0 {
		t.Errorf("rollbacks = %d", counter.count)
	}
}
