package wishlist

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"figurehub/pkg/models"
)

// Repo stores (user, product, status) tuples. Product ids are references
// into the catalog; the repo never reads the shard store itself.
type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Upsert inserts or updates one wishlist entry.
func (r *Repo) Upsert(ctx context.Context, item models.WishlistItem) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO wishlist_items (user_id, product_id, status, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id, product_id) DO UPDATE SET
			status = excluded.status,
			updated_at = CURRENT_TIMESTAMP
	`, item.UserID, item.ProductID, item.Status)
	if err != nil {
		return fmt.Errorf("upsert wishlist item: %w", err)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, userID, productID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM wishlist_items
		WHERE user_id = ? AND product_id = ?
	`, userID, productID)
	if err != nil {
		return false, fmt.Errorf("delete wishlist item: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) Get(ctx context.Context, userID, productID string) (*models.WishlistItem, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT user_id, product_id, status, updated_at
		FROM wishlist_items
		WHERE user_id = ? AND product_id = ?
	`, userID, productID)

	var it models.WishlistItem
	var updated time.Time
	if err := row.Scan(&it.UserID, &it.ProductID, &it.Status, &updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get wishlist item: %w", err)
	}
	it.UpdatedAt = updated
	return &it, nil
}

func (r *Repo) List(ctx context.Context, userID, status string) ([]models.WishlistItem, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if status == "" {
		rows, err = r.DB.QueryContext(ctx, `
			SELECT user_id, product_id, status, updated_at
			FROM wishlist_items
			WHERE user_id = ?
			ORDER BY updated_at DESC
		`, userID)
	} else {
		rows, err = r.DB.QueryContext(ctx, `
			SELECT user_id, product_id, status, updated_at
			FROM wishlist_items
			WHERE user_id = ? AND status = ?
			ORDER BY updated_at DESC
		`, userID, status)
	}
	if err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	defer rows.Close()

	var out []models.WishlistItem
	for rows.Next() {
		var it models.WishlistItem
		var updated time.Time
		if err := rows.Scan(&it.UserID, &it.ProductID, &it.Status, &updated); err != nil {
			return nil, fmt.Errorf("scan wishlist row: %w", err)
		}
		it.UpdatedAt = updated
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}
