package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"memoriza-service/internal/domain/auth"
	"memoriza-service/internal/domain/carousel"
	xerrors "memoriza-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// newTestStore connects to TEST_DATABASE_URL and resets the schema. The tests
// are skipped without it.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, `DROP TABLE IF EXISTS carousel_items, accounts, group_permissions, permission_groups`); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := NewDB(pool).Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return NewStore(pool)
}

func TestAccounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := &auth.PermissionGroup{ID: "7", Name: "Estoque"}
	if err := store.SaveGroup(ctx, group); err != nil {
		t.Fatalf("SaveGroup: %v", err)
	}

	gid := int64(7)
	a := &auth.Account{Email: "Func@Memoriza.com", PasswordHash: "x", FirstName: "Bia", EmployeeGroupID: &gid}
	if err := store.CreateAccount(ctx, a); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if a.ID == 0 {
		t.Error("id not filled")
	}

	got, err := store.FindAccount(ctx, "func@memoriza.com")
	if err != nil {
		t.Fatalf("FindAccount: %v", err)
	}
	if got.EmployeeGroupID == nil || *got.EmployeeGroupID != 7 || got.UserGroupID != nil {
		t.Errorf("groups = %v, %v", got.EmployeeGroupID, got.UserGroupID)
	}

	if err := store.CreateAccount(ctx, &auth.Account{Email: "func@memoriza.com", PasswordHash: "y"}); !errors.Is(err, xerrors.ErrDuplicateEntry) {
		t.Errorf("duplicate: %v", err)
	}
	if _, err := store.FindAccount(ctx, "nobody@memoriza.com"); !errors.Is(err, xerrors.ErrNotFound) {
		t.Errorf("missing: %v", err)
	}
}

func TestGroups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := &auth.PermissionGroup{ID: "8", Name: "Marketing", Permissions: []auth.ModulePermission{
		{Module: "carousel", Actions: map[string]any{"view": true, "edit": "true", "delete": false}},
	}}
	if err := store.SaveGroup(ctx, group); err != nil {
		t.Fatalf("SaveGroup: %v", err)
	}

	got, err := store.GetGroup(ctx, 8)
	if err != nil {
		t.Fatalf("GetGroup: %v", err)
	}
	if len(got.Permissions) != 1 {
		t.Fatalf("permissions = %+v", got.Permissions)
	}
	actions := got.Permissions[0].Actions
	if actions["view"] != true || actions["edit"] != true {
		t.Errorf("actions = %v", actions)
	}
	if _, ok := actions["delete"]; ok {
		t.Error("revoked action stored")
	}

	if _, err := store.GetGroup(ctx, 99); !errors.Is(err, xerrors.ErrNotFound) {
		t.Errorf("missing group: %v", err)
	}
}

func TestCarousel(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := &carousel.Item{ImageURL: "/a.jpg", Template: carousel.TemplateFullImage, IsPrimary: true, IsActive: true}
	second := &carousel.Item{ImageURL: "/b.jpg", Template: carousel.TemplateFullImage, DisplayOrder: 1, IsActive: true}
	for _, it := range []*carousel.Item{first, second} {
		if err := store.CreateCarousel(ctx, it); err != nil {
			t.Fatalf("CreateCarousel: %v", err)
		}
	}

	entries := carousel.BuildReorder([]carousel.Item{*second, *first})
	if err := store.ReorderCarousel(ctx, entries); err != nil {
		t.Fatalf("ReorderCarousel: %v", err)
	}

	items, err := store.ListCarousel(ctx)
	if err != nil {
		t.Fatalf("ListCarousel: %v", err)
	}
	if len(items) != 2 || items[0].ID != second.ID || !items[0].IsPrimary || items[1].IsPrimary {
		t.Errorf("items = %+v", items)
	}

	bad := append(entries, carousel.ReorderEntry{ImageID: 999, DisplayOrder: 2})
	if err := store.ReorderCarousel(ctx, bad); !errors.Is(err, xerrors.ErrNotFound) {
		t.Errorf("unknown item: %v", err)
	}

	second.Title = "Novo"
	if err := store.UpdateCarousel(ctx, second); err != nil {
		t.Fatalf("UpdateCarousel: %v", err)
	}
	if err := store.DeleteCarousel(ctx, first.ID); err != nil {
		t.Fatalf("DeleteCarousel: %v", err)
	}
	if err := store.DeleteCarousel(ctx, first.ID); !errors.Is(err, xerrors.ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
}
