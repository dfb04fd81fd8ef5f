// internal/devapi/seed.go
package devapi

import (
	"context"
	"errors"
	"fmt"

	"memoriza-service/internal/domain/auth"
	"memoriza-service/internal/domain/carousel"
	xerrors "memoriza-service/internal/pkg/errors"

	"golang.org/x/crypto/bcrypt"
)

// Seeded groups.
const (
	GroupCustomers int64 = 1
	GroupStock     int64 = 7
	GroupMarketing int64 = 8
)

// DevPassword is the password of every seeded account.
const DevPassword = "memoriza123"

// Seeded accounts.
const (
	OwnerEmail     = "dona@memoriza.com"
	StockEmail     = "estoque@memoriza.com"
	MarketingEmail = "marketing@memoriza.com"
	CustomerEmail  = "cliente@memoriza.com"
)

func int64Ptr(v int64) *int64 { return &v }

func seedGroups() []*auth.PermissionGroup {
	return []*auth.PermissionGroup{
		{ID: "1", Name: "Clientes", Permissions: []auth.ModulePermission{}},
		{ID: "7", Name: "Estoque", Permissions: []auth.ModulePermission{
			{Module: "produtos", Actions: map[string]any{"view": true, "create": true, "edit": true}},
			{Module: "categorias", Actions: map[string]any{"view": true}},
			{Module: "carousel", Actions: map[string]any{"view": true}},
		}},
		{ID: "8", Name: "Marketing", Permissions: []auth.ModulePermission{
			{Module: "carousel", Actions: map[string]any{"view": true, "create": true, "edit": true, "delete": true}},
			{Module: "dashboard", Actions: map[string]any{"view": true, "export": true}},
			{Module: "pedidos", Actions: map[string]any{"view": true, "update_status": true}},
		}},
	}
}

func seedAccounts() []auth.Account {
	return []auth.Account{
		{Email: OwnerEmail, FirstName: "Marina", LastName: "Alves", IsAdmin: true},
		// admin flag inside an employee group grants nothing beyond the group
		{Email: StockEmail, FirstName: "Paulo", LastName: "Reis", IsAdmin: true, EmployeeGroupID: int64Ptr(GroupStock)},
		{Email: MarketingEmail, FirstName: "Lia", EmployeeGroupID: int64Ptr(GroupMarketing)},
		{Email: CustomerEmail, FirstName: "Rita", LastName: "Souza", UserGroupID: int64Ptr(GroupCustomers)},
	}
}

func seedCarousel() []carousel.Item {
	return []carousel.Item{
		{Title: "Coleção Outono", Subtitle: "Peças novas toda semana", ButtonText: "Ver coleção",
			ButtonLink: "/colecao/outono", ImageURL: "/images/banners/outono.jpg",
			Template: carousel.TemplateTextLeft, DisplayOrder: 0, IsPrimary: true, IsActive: true},
		{ImageURL: "/images/banners/frete-gratis.jpg", Template: carousel.TemplateFullImage,
			DisplayOrder: 1, IsActive: true},
	}
}

// Seed loads groups, accounts and banners into store. Existing accounts are
// kept and banners are only added to an empty carousel, so it can run on
// every start.
func Seed(ctx context.Context, store Store, bcryptCost int) error {
	for _, g := range seedGroups() {
		if err := store.SaveGroup(ctx, g); err != nil {
			return fmt.Errorf("seed group %s: %w", g.ID, err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DevPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}
	for _, a := range seedAccounts() {
		a.PasswordHash = string(hash)
		if err := store.CreateAccount(ctx, &a); err != nil && !errors.Is(err, xerrors.ErrDuplicateEntry) {
			return fmt.Errorf("seed account %s: %w", a.Email, err)
		}
	}

	items, err := store.ListCarousel(ctx)
	if err != nil {
		return fmt.Errorf("list carousel: %w", err)
	}
	if len(items) > 0 {
		return nil
	}
	for _, it := range seedCarousel() {
		if err := store.CreateCarousel(ctx, &it); err != nil {
			return fmt.Errorf("seed carousel: %w", err)
		}
	}
	return nil
}
