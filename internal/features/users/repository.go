// Package users — repository.go отвечает за все операции с таблицей users в БД.
// Каждая функция выполняет один SQL-запрос и возвращает результат или ошибку.
package users

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

const userColumns = `id, telegram_id, openid, username, nickname, avatar_url, role,
       is_active, points, last_login_at, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.TelegramID, &u.OpenID, &u.Username, &u.Nickname, &u.AvatarURL,
		&u.Role, &u.IsActive, &u.Points, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create добавляет нового пользователя.
// На конфликте по telegram_id обновляет только имя/username и время входа
// (не трогает роль/статус/баллы).
func (r *Repository) Create(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (telegram_id, openid, username, nickname, avatar_url, role, is_active, points, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, NOW())
		ON CONFLICT (telegram_id) DO UPDATE
		SET username = EXCLUDED.username,
		    nickname = EXCLUDED.nickname,
		    last_login_at = NOW(),
		    updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query,
		u.TelegramID, u.OpenID, u.Username, u.Nickname, u.AvatarURL, u.Role, u.IsActive,
	)
	if err != nil {
		return fmt.Errorf("ошибка создания/обновления пользователя: %w", err)
	}
	return nil
}

// GetByID возвращает пользователя по внутреннему ID.
// Если не найден — common.ErrUserNotFound.
func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("id=%d: %w", id, common.ErrUserNotFound)
		}
		return nil, fmt.Errorf("ошибка чтения пользователя (id=%d): %w", id, err)
	}
	return u, nil
}

// GetByTelegramID возвращает пользователя по Telegram ID.
func (r *Repository) GetByTelegramID(ctx context.Context, telegramID int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`
	u, err := scanUser(r.db.QueryRow(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("telegram_id=%d: %w", telegramID, common.ErrUserNotFound)
		}
		return nil, fmt.Errorf("ошибка чтения пользователя (telegram_id=%d): %w", telegramID, err)
	}
	return u, nil
}

// GetByUsername находит пользователя по @username (без учёта регистра).
func (r *Repository) GetByUsername(ctx context.Context, username string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(username) = LOWER($1)`
	u, err := scanUser(r.db.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("username=%s: %w", username, common.ErrUserNotFound)
		}
		return nil, fmt.Errorf("ошибка чтения пользователя (username=%s): %w", username, err)
	}
	return u, nil
}

// UpdateStatus включает или блокирует пользователя.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, isActive bool) error {
	query := `UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`
	ct, err := r.db.Exec(ctx, query, id, isActive)
	if err != nil {
		return fmt.Errorf("ошибка обновления статуса: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("id=%d: %w", id, common.ErrUserNotFound)
	}
	return nil
}

// List возвращает страницу пользователей, опционально с поиском
// по username/nickname (для админки).
func (r *Repository) List(ctx context.Context, keyword string, limit, offset int) ([]*User, int64, error) {
	where := ""
	args := []interface{}{}
	if keyword != "" {
		where = `WHERE username ILIKE $1 OR nickname ILIKE $1`
		args = append(args, "%"+keyword+"%")
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM users ` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта пользователей: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT `+userColumns+`
		FROM users %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка запроса пользователей: %w", err)
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, total, nil
}
