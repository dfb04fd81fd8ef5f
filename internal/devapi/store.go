// internal/devapi/store.go
package devapi

import (
	"context"

	"memoriza-service/internal/domain/auth"
	"memoriza-service/internal/domain/carousel"
)

// Store persists the development backend's data. Missing records are
// reported as xerrors.ErrNotFound and duplicate e-mails as
// xerrors.ErrDuplicateEntry.
type Store interface {
	FindAccount(ctx context.Context, email string) (*auth.Account, error)
	CreateAccount(ctx context.Context, a *auth.Account) error

	GetGroup(ctx context.Context, id int64) (*auth.PermissionGroup, error)
	SaveGroup(ctx context.Context, g *auth.PermissionGroup) error

	ListCarousel(ctx context.Context) ([]carousel.Item, error)
	CreateCarousel(ctx context.Context, it *carousel.Item) error
	UpdateCarousel(ctx context.Context, it *carousel.Item) error
	DeleteCarousel(ctx context.Context, id int64) error
	ReorderCarousel(ctx context.Context, entries []carousel.ReorderEntry) error
}
