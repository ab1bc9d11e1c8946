// Package points — repository.go выполняет все операции с таблицами
// point_grants и point_debits. Мутации принимают pgx.Tx: движок собирает
// несколько шагов (блокировка, расход, расщепление, запись списания,
// пересчёт кэша) в одну транзакцию БД.
package points

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xujiafei/mingrixueba-server/internal/common"
)

// dbtx — общий интерфейс pgxpool.Pool и pgx.Tx, чтобы читающие методы
// работали и из пула (снапшотное чтение), и изнутри транзакции.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Pool отдаёт пул соединений — его используют сервисы, собирающие
// межмодульные транзакции (например, обмен семестра).
func (r *Repository) Pool() *pgxpool.Pool {
	return r.db
}

const grantColumns = `id, user_id, amount, source, source_id, acquired_at, expires_at, status, created_at`

func scanGrant(row pgx.Row) (*Grant, error) {
	var g Grant
	err := row.Scan(
		&g.ID, &g.UserID, &g.Amount, &g.Source, &g.SourceID,
		&g.AcquiredAt, &g.ExpiresAt, &g.Status, &g.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func collectGrants(rows pgx.Rows) ([]*Grant, error) {
	defer rows.Close()
	var out []*Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования начисления: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения начислений: %w", err)
	}
	return out, nil
}

// LockUser блокирует строку пользователя на время транзакции.
// Это сериализует все мутации журнала одного пользователя: два
// параллельных списания не увидят один и тот же доступный баланс.
func (r *Repository) LockUser(ctx context.Context, tx pgx.Tx, userID int64) error {
	var id int64
	err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("id=%d: %w", userID, common.ErrUserNotFound)
		}
		return fmt.Errorf("ошибка блокировки пользователя: %w", err)
	}
	return nil
}

// ActiveGrantsForUpdate читает активные несгоревшие начисления
// пользователя в порядке FIFO и блокирует их строки до конца транзакции.
// Сгоревшие, но ещё не убранные начисления не попадают в выборку.
func (r *Repository) ActiveGrantsForUpdate(ctx context.Context, tx pgx.Tx, userID int64, now time.Time) ([]*Grant, error) {
	query := `
		SELECT ` + grantColumns + `
		FROM point_grants
		WHERE user_id = $1 AND status = 'active'
		  AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY acquired_at ASC, id ASC
		FOR UPDATE
	`
	rows, err := tx.Query(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки активных начислений: %w", err)
	}
	return collectGrants(rows)
}

// ExpiredActiveGrantsForUpdate читает активные начисления с истёкшим
// сроком — кандидатов на уборку — и блокирует их строки.
func (r *Repository) ExpiredActiveGrantsForUpdate(ctx context.Context, tx pgx.Tx, userID int64, now time.Time) ([]*Grant, error) {
	query := `
		SELECT ` + grantColumns + `
		FROM point_grants
		WHERE user_id = $1 AND status = 'active'
		  AND expires_at IS NOT NULL AND expires_at <= $2
		ORDER BY acquired_at ASC, id ASC
		FOR UPDATE
	`
	rows, err := tx.Query(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки сгоревших начислений: %w", err)
	}
	return collectGrants(rows)
}

// InsertGrant добавляет новое начисление и возвращает его ID.
func (r *Repository) InsertGrant(ctx context.Context, tx pgx.Tx, g *Grant) (int64, error) {
	query := `
		INSERT INTO point_grants (user_id, amount, source, source_id, acquired_at, expires_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var id int64
	err := tx.QueryRow(ctx, query,
		g.UserID, g.Amount, g.Source, g.SourceID, g.AcquiredAt, g.ExpiresAt, g.Status,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ошибка записи начисления: %w", err)
	}
	return id, nil
}

// MarkGrantsUsed помечает начисления использованными.
// Сумма записи при этом не меняется — остаток оформляется отдельным
// начислением (см. planConsumption).
func (r *Repository) MarkGrantsUsed(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx,
		`UPDATE point_grants SET status = 'used' WHERE id = ANY($1) AND status = 'active'`, ids)
	if err != nil {
		return fmt.Errorf("ошибка пометки начислений использованными: %w", err)
	}
	return nil
}

// MarkGrantsExpired помечает начисления сгоревшими.
func (r *Repository) MarkGrantsExpired(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx,
		`UPDATE point_grants SET status = 'expired' WHERE id = ANY($1) AND status = 'active'`, ids)
	if err != nil {
		return fmt.Errorf("ошибка пометки начислений сгоревшими: %w", err)
	}
	return nil
}

// InsertDebit добавляет запись о списании и возвращает её ID.
func (r *Repository) InsertDebit(ctx context.Context, tx pgx.Tx, d *Debit) (int64, error) {
	query := `
		INSERT INTO point_debits (user_id, amount, reason, remark)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var id int64
	err := tx.QueryRow(ctx, query, d.UserID, d.Amount, d.Reason, d.Remark).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ошибка записи списания: %w", err)
	}
	return id, nil
}

// RecomputeBalance пересчитывает кэш баланса на users.points из живой
// суммы активных несгоревших начислений и возвращает новое значение.
// Вызывается в конце каждой мутации журнала.
func (r *Repository) RecomputeBalance(ctx context.Context, tx pgx.Tx, userID int64, now time.Time) (int64, error) {
	query := `
		UPDATE users
		SET points = (
			SELECT COALESCE(SUM(amount), 0)
			FROM point_grants
			WHERE user_id = $1 AND status = 'active'
			  AND (expires_at IS NULL OR expires_at > $2)
		), updated_at = NOW()
		WHERE id = $1
		RETURNING points
	`
	var balance int64
	if err := tx.QueryRow(ctx, query, userID, now).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("id=%d: %w", userID, common.ErrUserNotFound)
		}
		return 0, fmt.Errorf("ошибка пересчёта баланса: %w", err)
	}
	return balance, nil
}

// LiveBalance считает доступный баланс напрямую из журнала, минуя кэш.
// Используется для проверок перед списанием и для сверки инварианта.
func (r *Repository) LiveBalance(ctx context.Context, q dbtx, userID int64, now time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM point_grants
		WHERE user_id = $1 AND status = 'active'
		  AND (expires_at IS NULL OR expires_at > $2)
	`
	var balance int64
	if err := q.QueryRow(ctx, query, userID, now).Scan(&balance); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта баланса: %w", err)
	}
	return balance, nil
}

// CachedBalance читает кэшированный баланс со строки пользователя.
func (r *Repository) CachedBalance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := r.db.QueryRow(ctx, `SELECT points FROM users WHERE id = $1`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("id=%d: %w", userID, common.ErrUserNotFound)
		}
		return 0, fmt.Errorf("ошибка чтения кэша баланса: %w", err)
	}
	return balance, nil
}

// ActiveGrants читает активные несгоревшие начисления без блокировки —
// снапшотное чтение для показа пользователю.
func (r *Repository) ActiveGrants(ctx context.Context, userID int64, now time.Time) ([]*Grant, error) {
	query := `
		SELECT ` + grantColumns + `
		FROM point_grants
		WHERE user_id = $1 AND status = 'active'
		  AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY expires_at ASC NULLS LAST, acquired_at ASC
	`
	rows, err := r.db.Query(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки начислений: %w", err)
	}
	return collectGrants(rows)
}

// UsersWithExpirableGrants возвращает пользователей, у которых есть
// активные начисления с истёкшим сроком. Используется ночной уборкой.
func (r *Repository) UsersWithExpirableGrants(ctx context.Context, now time.Time) ([]int64, error) {
	query := `
		SELECT DISTINCT user_id
		FROM point_grants
		WHERE status = 'active' AND expires_at IS NOT NULL AND expires_at <= $1
	`
	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки пользователей для уборки: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования user_id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}

// ExpiringSoonTotals возвращает по каждому пользователю сумму баллов,
// сгорающих в окне (now, cutoff], и ближайший срок. Для рассылки
// предупреждений «баллы скоро сгорят».
func (r *Repository) ExpiringSoonTotals(ctx context.Context, now, cutoff time.Time) ([]*ExpiringTotal, error) {
	query := `
		SELECT u.telegram_id, SUM(g.amount), MIN(g.expires_at)
		FROM point_grants g
		JOIN users u ON u.id = g.user_id
		WHERE g.status = 'active' AND u.is_active
		  AND g.expires_at > $1 AND g.expires_at <= $2
		GROUP BY u.telegram_id
	`
	rows, err := r.db.Query(ctx, query, now, cutoff)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки сгорающих баллов: %w", err)
	}
	defer rows.Close()

	var out []*ExpiringTotal
	for rows.Next() {
		var e ExpiringTotal
		if err := rows.Scan(&e.TelegramID, &e.Amount, &e.Earliest); err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}

// History возвращает страницу объединённой истории операций:
// начисления и списания в одном списке, новые сверху.
func (r *Repository) History(ctx context.Context, userID int64, limit, offset int) ([]*HistoryEntry, error) {
	query := `
		SELECT kind, amount, label, status, created_at FROM (
			SELECT 'grant' AS kind, amount, source AS label, status, created_at
			FROM point_grants WHERE user_id = $1
			UNION ALL
			SELECT 'debit' AS kind, -amount, reason AS label, '' AS status, created_at
			FROM point_debits WHERE user_id = $1
		) ops
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса истории: %w", err)
	}
	defer rows.Close()

	var out []*HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.Kind, &e.Amount, &e.Label, &e.Status, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования истории: %w", err)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}
