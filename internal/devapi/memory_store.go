// internal/devapi/memory_store.go
package devapi

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"memoriza-service/internal/domain/auth"
	"memoriza-service/internal/domain/carousel"
	xerrors "memoriza-service/internal/pkg/errors"
)

// MemoryStore keeps everything in process memory.
type MemoryStore struct {
	mu sync.RWMutex

	accounts      map[string]*auth.Account // by lower-cased e-mail
	nextAccountID int64

	groups map[int64]*auth.PermissionGroup

	items      map[int64]carousel.Item
	nextItemID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*auth.Account),
		groups:   make(map[int64]*auth.PermissionGroup),
		items:    make(map[int64]carousel.Item),
	}
}

func (m *MemoryStore) FindAccount(_ context.Context, email string) (*auth.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryStore) CreateAccount(_ context.Context, a *auth.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(a.Email))
	if _, exists := m.accounts[key]; exists {
		return xerrors.ErrDuplicateEntry
	}

	m.nextAccountID++
	a.ID = m.nextAccountID
	a.CreatedAt = time.Now()
	cp := *a
	m.accounts[key] = &cp
	return nil
}

func (m *MemoryStore) GetGroup(_ context.Context, id int64) (*auth.PermissionGroup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.groups[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return cloneGroup(g), nil
}

func (m *MemoryStore) SaveGroup(_ context.Context, g *auth.PermissionGroup) error {
	id, err := strconv.ParseInt(g.ID, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: group id %q", xerrors.ErrInvalidInput, g.ID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[id] = cloneGroup(g)
	return nil
}

func (m *MemoryStore) ListCarousel(_ context.Context) ([]carousel.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := slices.Collect(maps.Values(m.items))
	sort.Slice(items, func(i, j int) bool {
		if items[i].DisplayOrder != items[j].DisplayOrder {
			return items[i].DisplayOrder < items[j].DisplayOrder
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (m *MemoryStore) CreateCarousel(_ context.Context, it *carousel.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.nextItemID++
	it.ID = m.nextItemID
	it.CreatedAt = &now
	it.UpdatedAt = &now
	m.items[it.ID] = *it
	return nil
}

func (m *MemoryStore) UpdateCarousel(_ context.Context, it *carousel.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.items[it.ID]
	if !ok {
		return xerrors.ErrNotFound
	}

	now := time.Now()
	it.DisplayOrder = current.DisplayOrder
	it.IsPrimary = current.IsPrimary
	it.CreatedAt = current.CreatedAt
	it.UpdatedAt = &now
	m.items[it.ID] = *it
	return nil
}

func (m *MemoryStore) DeleteCarousel(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[id]; !ok {
		return xerrors.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

// ReorderCarousel applies all entries or none.
func (m *MemoryStore) ReorderCarousel(_ context.Context, entries []carousel.ReorderEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range entries {
		if _, ok := m.items[e.ImageID]; !ok {
			return fmt.Errorf("%w: carousel item %d", xerrors.ErrNotFound, e.ImageID)
		}
	}

	now := time.Now()
	for _, e := range entries {
		it := m.items[e.ImageID]
		it.DisplayOrder = e.DisplayOrder
		it.IsPrimary = e.IsPrimary
		it.UpdatedAt = &now
		m.items[e.ImageID] = it
	}
	return nil
}

func cloneGroup(g *auth.PermissionGroup) *auth.PermissionGroup {
	cp := &auth.PermissionGroup{ID: g.ID, Name: g.Name}
	cp.Permissions = make([]auth.ModulePermission, len(g.Permissions))
	for i, p := range g.Permissions {
		cp.Permissions[i] = auth.ModulePermission{Module: p.Module, Actions: maps.Clone(p.Actions)}
	}
	return cp
}
