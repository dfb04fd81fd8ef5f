// internal/repository/postgres/carousel_repo.go
package postgres

import (
	"context"
	"fmt"

	"memoriza-service/internal/domain/carousel"
	xerrors "memoriza-service/internal/pkg/errors"
)

type CarouselRepository struct {
	db *DB
}

func NewCarouselRepository(db *DB) *CarouselRepository {
	return &CarouselRepository{db: db}
}

const carouselColumns = `id, title, subtitle, button_text, button_link, image_url, template,
	display_order, is_primary, is_active, created_at, updated_at`

// ListCarousel returns every item in display order
func (r *CarouselRepository) ListCarousel(ctx context.Context) ([]carousel.Item, error) {
	rows, err := r.db.Pool().Query(ctx, `SELECT `+carouselColumns+` FROM carousel_items ORDER BY display_order, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list carousel items: %w", err)
	}
	defer rows.Close()

	items := []carousel.Item{}
	for rows.Next() {
		var it carousel.Item
		if err := rows.Scan(
			&it.ID, &it.Title, &it.Subtitle, &it.ButtonText, &it.ButtonLink, &it.ImageURL, &it.Template,
			&it.DisplayOrder, &it.IsPrimary, &it.IsActive, &it.CreatedAt, &it.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan carousel item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// CreateCarousel inserts it, filling ID and timestamps
func (r *CarouselRepository) CreateCarousel(ctx context.Context, it *carousel.Item) error {
	query := `
		INSERT INTO carousel_items (title, subtitle, button_text, button_link, image_url, template,
		                            display_order, is_primary, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	err := r.db.Pool().QueryRow(ctx, query,
		it.Title, it.Subtitle, it.ButtonText, it.ButtonLink, it.ImageURL, it.Template,
		it.DisplayOrder, it.IsPrimary, it.IsActive,
	).Scan(&it.ID, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create carousel item: %w", err)
	}
	return nil
}

// UpdateCarousel replaces the content of it. Order and primary flag are only
// changed through ReorderCarousel.
func (r *CarouselRepository) UpdateCarousel(ctx context.Context, it *carousel.Item) error {
	query := `
		UPDATE carousel_items
		SET title = $1, subtitle = $2, button_text = $3, button_link = $4, image_url = $5,
		    template = $6, is_active = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING display_order, is_primary, created_at, updated_at
	`

	err := r.db.Pool().QueryRow(ctx, query,
		it.Title, it.Subtitle, it.ButtonText, it.ButtonLink, it.ImageURL, it.Template, it.IsActive, it.ID,
	).Scan(&it.DisplayOrder, &it.IsPrimary, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return xerrors.ErrNotFound
		}
		return fmt.Errorf("failed to update carousel item: %w", err)
	}
	return nil
}

// DeleteCarousel removes item id
func (r *CarouselRepository) DeleteCarousel(ctx context.Context, id int64) error {
	tag, err := r.db.Pool().Exec(ctx, `DELETE FROM carousel_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete carousel item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// ReorderCarousel applies every entry in one transaction
func (r *CarouselRepository) ReorderCarousel(ctx context.Context, entries []carousel.ReorderEntry) error {
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		tag, err := tx.Exec(ctx, `
			UPDATE carousel_items
			SET display_order = $1, is_primary = $2, updated_at = NOW()
			WHERE id = $3
		`, e.DisplayOrder, e.IsPrimary, e.ImageID)
		if err != nil {
			return fmt.Errorf("failed to reorder item %d: %w", e.ImageID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: carousel item %d", xerrors.ErrNotFound, e.ImageID)
		}
	}

	return tx.Commit(ctx)
}
