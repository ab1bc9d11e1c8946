// Package exchange — repository.go: операции с таблицей semester_exchanges.
package exchange

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xujiafei/mingrixueba-server/internal/common"
	"github.com/xujiafei/mingrixueba-server/internal/db/postgres"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const exchangeColumns = `id, user_id, semester_id, points_spent, debit_id, exchanged_at, active`

func scanExchange(row pgx.Row) (*Exchange, error) {
	var e Exchange
	err := row.Scan(&e.ID, &e.UserID, &e.SemesterID, &e.PointsSpent, &e.DebitID, &e.ExchangedAt, &e.Active)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Insert записывает обмен внутри транзакции. Нарушение частичного
// уникального индекса (повторный активный обмен) отображается
// в ErrAlreadyExchanged.
func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, e *Exchange) (int64, error) {
	query := `
		INSERT INTO semester_exchanges (user_id, semester_id, points_spent, debit_id, active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id, exchanged_at
	`
	var id int64
	err := tx.QueryRow(ctx, query, e.UserID, e.SemesterID, e.PointsSpent, e.DebitID).
		Scan(&id, &e.ExchangedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return 0, fmt.Errorf("semester_id=%d: %w", e.SemesterID, common.ErrAlreadyExchanged)
		}
		return 0, fmt.Errorf("ошибка записи обмена: %w", err)
	}
	return id, nil
}

// GetActive возвращает активный обмен пользователя по семестру,
// nil если его нет.
func (r *Repository) GetActive(ctx context.Context, userID, semesterID int64) (*Exchange, error) {
	query := `
		SELECT ` + exchangeColumns + `
		FROM semester_exchanges
		WHERE user_id = $1 AND semester_id = $2 AND active
	`
	e, err := scanExchange(r.db.QueryRow(ctx, query, userID, semesterID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка чтения обмена: %w", err)
	}
	return e, nil
}

// GetByID возвращает обмен по ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Exchange, error) {
	query := `SELECT ` + exchangeColumns + ` FROM semester_exchanges WHERE id = $1`
	e, err := scanExchange(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("id=%d: %w", id, common.ErrSemesterNotFound)
		}
		return nil, fmt.Errorf("ошибка чтения обмена: %w", err)
	}
	return e, nil
}

// ActiveSemesterIDs возвращает активно обменянные семестры пользователя.
func (r *Repository) ActiveSemesterIDs(ctx context.Context, userID int64) (map[int64]bool, error) {
	rows, err := r.db.Query(ctx,
		`SELECT semester_id FROM semester_exchanges WHERE user_id = $1 AND active`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса обменов: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования semester_id: %w", err)
		}
		out[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}

// ListByUser возвращает обмены пользователя, новые сверху.
func (r *Repository) ListByUser(ctx context.Context, userID int64, onlyActive bool) ([]*Exchange, error) {
	query := `SELECT ` + exchangeColumns + ` FROM semester_exchanges WHERE user_id = $1`
	if onlyActive {
		query += ` AND active`
	}
	query += ` ORDER BY exchanged_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса обменов: %w", err)
	}
	defer rows.Close()

	var out []*Exchange
	for rows.Next() {
		e, err := scanExchange(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования обмена: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}

// Deactivate гасит активный обмен внутри транзакции отмены.
func (r *Repository) Deactivate(ctx context.Context, tx pgx.Tx, id int64) error {
	ct, err := tx.Exec(ctx,
		`UPDATE semester_exchanges SET active = FALSE WHERE id = $1 AND active`, id)
	if err != nil {
		return fmt.Errorf("ошибка деактивации обмена: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("id=%d: %w", id, common.ErrSemesterNotFound)
	}
	return nil
}
