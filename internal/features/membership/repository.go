// Package membership — repository.go выполняет операции с таблицами
// membership_packages и user_memberships.
package membership

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

const packageColumns = `id, name, description, price, duration_days, level, tier,
       features, is_active, order_index, created_at, updated_at`

func scanPackage(row pgx.Row) (*Package, error) {
	var p Package
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.DurationDays, &p.Level,
		&p.Tier, &p.Features, &p.IsActive, &p.OrderIndex, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePackage добавляет тарифный пакет и возвращает его ID.
func (r *Repository) CreatePackage(ctx context.Context, p *Package) (int64, error) {
	query := `
		INSERT INTO membership_packages (name, description, price, duration_days, level, tier, features, is_active, order_index)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRow(ctx, query,
		p.Name, p.Description, p.Price, p.DurationDays, p.Level, p.Tier,
		p.Features, p.IsActive, p.OrderIndex,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ошибка создания пакета: %w", err)
	}
	return id, nil
}

// UpdatePackage обновляет все редактируемые поля пакета.
func (r *Repository) UpdatePackage(ctx context.Context, p *Package) error {
	query := `
		UPDATE membership_packages
		SET name = $2, description = $3, price = $4, duration_days = $5,
		    level = $6, tier = $7, features = $8, order_index = $9, updated_at = NOW()
		WHERE id = $1
	`
	ct, err := r.db.Exec(ctx, query,
		p.ID, p.Name, p.Description, p.Price, p.DurationDays, p.Level, p.Tier,
		p.Features, p.OrderIndex,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления пакета: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("id=%d: %w", p.ID, common.ErrPackageNotFound)
	}
	return nil
}

// SetPackageStatus включает или выключает пакет в витрине.
func (r *Repository) SetPackageStatus(ctx context.Context, id int64, isActive bool) error {
	ct, err := r.db.Exec(ctx,
		`UPDATE membership_packages SET is_active = $2, updated_at = NOW() WHERE id = $1`,
		id, isActive)
	if err != nil {
		return fmt.Errorf("ошибка смены статуса пакета: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("id=%d: %w", id, common.ErrPackageNotFound)
	}
	return nil
}

// PackageReferenced проверяет, есть ли подписки или заказы по пакету.
// Пакет с историей удалять нельзя — только выключать.
func (r *Repository) PackageReferenced(ctx context.Context, id int64) (bool, error) {
	query := `
		SELECT EXISTS(SELECT 1 FROM user_memberships WHERE package_id = $1)
		    OR EXISTS(SELECT 1 FROM orders WHERE package_id = $1)
	`
	var referenced bool
	if err := r.db.QueryRow(ctx, query, id).Scan(&referenced); err != nil {
		return false, fmt.Errorf("ошибка проверки ссылок на пакет: %w", err)
	}
	return referenced, nil
}

// DeletePackage удаляет пакет без истории.
func (r *Repository) DeletePackage(ctx context.Context, id int64) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM membership_packages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления пакета: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("id=%d: %w", id, common.ErrPackageNotFound)
	}
	return nil
}

// GetPackage возвращает пакет по ID.
func (r *Repository) GetPackage(ctx context.Context, id int64) (*Package, error) {
	query := `SELECT ` + packageColumns + ` FROM membership_packages WHERE id = $1`
	p, err := scanPackage(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("id=%d: %w", id, common.ErrPackageNotFound)
		}
		return nil, fmt.Errorf("ошибка чтения пакета: %w", err)
	}
	return p, nil
}

// ListPackages возвращает пакеты витрины в порядке order_index.
func (r *Repository) ListPackages(ctx context.Context, onlyActive bool) ([]*Package, error) {
	query := `SELECT ` + packageColumns + ` FROM membership_packages`
	if onlyActive {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY order_index ASC, id ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса пакетов: %w", err)
	}
	defer rows.Close()

	var out []*Package
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования пакета: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}

const membershipColumns = `id, user_id, package_id, tier, start_at, expiry_at, created_at`

func scanMembership(row pgx.Row) (*Membership, error) {
	var m Membership
	err := row.Scan(&m.ID, &m.UserID, &m.PackageID, &m.Tier, &m.StartAt, &m.ExpiryAt, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// InsertMembership добавляет запись в историю подписок.
func (r *Repository) InsertMembership(ctx context.Context, m *Membership) (int64, error) {
	query := `
		INSERT INTO user_memberships (user_id, package_id, tier, start_at, expiry_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRow(ctx, query, m.UserID, m.PackageID, m.Tier, m.StartAt, m.ExpiryAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ошибка записи подписки: %w", err)
	}
	return id, nil
}

// LatestMembership возвращает последнюю запись истории подписок
// пользователя независимо от её срока. nil без ошибки, если истории нет.
func (r *Repository) LatestMembership(ctx context.Context, userID int64) (*Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM user_memberships
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	m, err := scanMembership(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка чтения подписки: %w", err)
	}
	return m, nil
}

// History возвращает историю подписок пользователя, новые сверху.
func (r *Repository) History(ctx context.Context, userID int64, limit int) ([]*Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM user_memberships
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса истории подписок: %w", err)
	}
	defer rows.Close()

	var out []*Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования подписки: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}
