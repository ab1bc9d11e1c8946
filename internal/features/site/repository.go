// Package site — repository.go: операции с таблицей notices.
package site

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ActiveNotices возвращает активные объявления в порядке показа.
func (r *Repository) ActiveNotices(ctx context.Context, limit int) ([]*Notice, error) {
	query := `
		SELECT id, title, content, is_active, display_order, created_at, updated_at
		FROM notices
		WHERE is_active
		ORDER BY display_order ASC, created_at DESC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса объявлений: %w", err)
	}
	defer rows.Close()

	var out []*Notice
	for rows.Next() {
		var n Notice
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &n.IsActive, &n.DisplayOrder, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования объявления: %w", err)
		}
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}

// Create добавляет объявление.
func (r *Repository) Create(ctx context.Context, n *Notice) (int64, error) {
	query := `
		INSERT INTO notices (title, content, is_active, display_order)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRow(ctx, query, n.Title, n.Content, n.IsActive, n.DisplayOrder).Scan(&id); err != nil {
		return 0, fmt.Errorf("ошибка создания объявления: %w", err)
	}
	return id, nil
}

// SetActive включает или скрывает объявление.
func (r *Repository) SetActive(ctx context.Context, id int64, isActive bool) error {
	_, err := r.db.Exec(ctx,
		`UPDATE notices SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, isActive)
	if err != nil {
		return fmt.Errorf("ошибка смены статуса объявления: %w", err)
	}
	return nil
}
