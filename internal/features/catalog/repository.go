// Package catalog — repository.go: запросы к таблицам categories и materials.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xujiafei/mingrixueba-server/internal/common"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// AllCategories загружает все категории одним запросом — дерево
// строится в памяти, рекурсивный SQL не используется.
func (r *Repository) AllCategories(ctx context.Context) ([]*Category, error) {
	query := `
		SELECT id, name, level, grade, subject, parent_id, sort_order
		FROM categories
		ORDER BY sort_order ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса категорий: %w", err)
	}
	defer rows.Close()

	var out []*Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Level, &c.Grade, &c.Subject, &c.ParentID, &c.SortOrder); err != nil {
			return nil, fmt.Errorf("ошибка сканирования категории: %w", err)
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}

const materialColumns = `id, title, description, file_url, price, grade, subject, subject_id,
       category_id, is_free, status, download_count, view_count, page_count, created_at, updated_at`

func scanMaterial(row pgx.Row) (*Material, error) {
	var m Material
	err := row.Scan(
		&m.ID, &m.Title, &m.Description, &m.FileURL, &m.Price, &m.Grade, &m.Subject,
		&m.SubjectID, &m.CategoryID, &m.IsFree, &m.Status, &m.DownloadCount,
		&m.ViewCount, &m.PageCount, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func collectMaterials(rows pgx.Rows) ([]*Material, error) {
	defer rows.Close()
	var out []*Material
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования материала: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}

// GetMaterial возвращает материал по ID.
func (r *Repository) GetMaterial(ctx context.Context, id int64) (*Material, error) {
	query := `SELECT ` + materialColumns + ` FROM materials WHERE id = $1`
	m, err := scanMaterial(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("id=%d: %w", id, common.ErrMaterialNotFound)
		}
		return nil, fmt.Errorf("ошибка чтения материала: %w", err)
	}
	return m, nil
}

// MaterialsInCategories возвращает опубликованные материалы в заданных
// категориях (обычно — все листья семестра).
func (r *Repository) MaterialsInCategories(ctx context.Context, categoryIDs []int64) ([]*Material, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT ` + materialColumns + `
		FROM materials
		WHERE category_id = ANY($1) AND status = 'published'
		ORDER BY subject ASC, title ASC
	`
	rows, err := r.db.Query(ctx, query, categoryIDs)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса материалов: %w", err)
	}
	return collectMaterials(rows)
}

// SubjectGroupCount считает предметные группы среди опубликованных
// материалов в категориях: по subject_id, а у материалов без группы —
// по названию предмета.
func (r *Repository) SubjectGroupCount(ctx context.Context, categoryIDs []int64) (int, error) {
	if len(categoryIDs) == 0 {
		return 0, nil
	}
	query := `
		SELECT COUNT(DISTINCT COALESCE(subject_id::text, subject))
		FROM materials
		WHERE category_id = ANY($1) AND status = 'published'
	`
	var count int
	if err := r.db.QueryRow(ctx, query, categoryIDs).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта предметных групп: %w", err)
	}
	return count, nil
}

// PublishedCount считает опубликованные материалы в категориях.
func (r *Repository) PublishedCount(ctx context.Context, categoryIDs []int64) (int, error) {
	if len(categoryIDs) == 0 {
		return 0, nil
	}
	query := `SELECT COUNT(*) FROM materials WHERE category_id = ANY($1) AND status = 'published'`
	var count int
	if err := r.db.QueryRow(ctx, query, categoryIDs).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта материалов: %w", err)
	}
	return count, nil
}

// SearchMaterials ищет опубликованные материалы по названию.
func (r *Repository) SearchMaterials(ctx context.Context, keyword string, limit int) ([]*Material, error) {
	query := `
		SELECT ` + materialColumns + `
		FROM materials
		WHERE status = 'published' AND title ILIKE $1
		ORDER BY download_count DESC, id ASC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, "%"+keyword+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска материалов: %w", err)
	}
	return collectMaterials(rows)
}

// BumpDownloadCount увеличивает счётчик скачиваний материала.
func (r *Repository) BumpDownloadCount(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE materials SET download_count = download_count + 1, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка обновления счётчика скачиваний: %w", err)
	}
	return nil
}

// BumpViewCount увеличивает счётчик просмотров материала.
func (r *Repository) BumpViewCount(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE materials SET view_count = view_count + 1, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка обновления счётчика просмотров: %w", err)
	}
	return nil
}
