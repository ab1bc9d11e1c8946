// Package access — repository.go: операции с таблицей download_logs.
// Upsert-методы имеют tx-варианты: обмен семестра пишет записи доступа
// в одной транзакции со списанием баллов.
package access

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

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

const recordColumns = `id, user_id, material_id, access_type, expiry_at, exchange_id, order_id, created_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.MaterialID, &rec.AccessType,
		&rec.ExpiryAt, &rec.ExchangeID, &rec.OrderID, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// upsertSQL — одна запись доступа на пару (user_id, material_id).
// Повторная выдача обновляет тип, срок и ссылки.
const upsertSQL = `
	INSERT INTO download_logs (user_id, material_id, access_type, expiry_at, exchange_id, order_id)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (user_id, material_id) DO UPDATE
	SET access_type = EXCLUDED.access_type,
	    expiry_at = EXCLUDED.expiry_at,
	    exchange_id = EXCLUDED.exchange_id,
	    order_id = EXCLUDED.order_id
`

// Upsert записывает или обновляет запись доступа.
func (r *Repository) Upsert(ctx context.Context, q dbtx, rec *Record) error {
	_, err := q.Exec(ctx, upsertSQL,
		rec.UserID, rec.MaterialID, rec.AccessType, rec.ExpiryAt, rec.ExchangeID, rec.OrderID)
	if err != nil {
		return fmt.Errorf("ошибка записи доступа: %w", err)
	}
	return nil
}

// UpsertBatch записывает записи доступа пачкой (pgx.Batch) —
// обмен семестра выдаёт доступ ко всем материалам одним проходом.
func (r *Repository) UpsertBatch(ctx context.Context, tx pgx.Tx, records []*Record) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(upsertSQL,
			rec.UserID, rec.MaterialID, rec.AccessType, rec.ExpiryAt, rec.ExchangeID, rec.OrderID)
	}
	br := tx.SendBatch(ctx, batch)
	defer br.Close()
	for range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("ошибка пакетной записи доступа: %w", err)
		}
	}
	return nil
}

// Get возвращает запись доступа пользователя к материалу, nil если её нет.
func (r *Repository) Get(ctx context.Context, userID, materialID int64) (*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM download_logs WHERE user_id = $1 AND material_id = $2`
	rec, err := scanRecord(r.db.QueryRow(ctx, query, userID, materialID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка чтения записи доступа: %w", err)
	}
	return rec, nil
}

// ForMaterials возвращает записи доступа пользователя к набору
// материалов одним запросом (для пакетной проверки).
func (r *Repository) ForMaterials(ctx context.Context, userID int64, materialIDs []int64) (map[int64]*Record, error) {
	if len(materialIDs) == 0 {
		return map[int64]*Record{}, nil
	}
	query := `SELECT ` + recordColumns + ` FROM download_logs WHERE user_id = $1 AND material_id = ANY($2)`
	rows, err := r.db.Query(ctx, query, userID, materialIDs)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса записей доступа: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]*Record, len(materialIDs))
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи доступа: %w", err)
		}
		out[rec.MaterialID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}

// ListByUser возвращает записи доступа пользователя, новые сверху.
func (r *Repository) ListByUser(ctx context.Context, userID int64, limit int) ([]*Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM download_logs
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса записей доступа: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи доступа: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}

// RevokeByExchange удаляет записи доступа, выданные обменом.
// Вызывается при отмене обмена в той же транзакции, что и возврат баллов.
func (r *Repository) RevokeByExchange(ctx context.Context, q dbtx, exchangeID int64) error {
	_, err := q.Exec(ctx, `DELETE FROM download_logs WHERE exchange_id = $1`, exchangeID)
	if err != nil {
		return fmt.Errorf("ошибка отзыва записей доступа: %w", err)
	}
	return nil
}

// ExchangeRecords строит записи доступа для материалов обменянного
// семестра. Тариф points даёт бессрочный доступ, остальные — до expiry.
func ExchangeRecords(userID, exchangeID int64, materialIDs []int64, expiry *time.Time) []*Record {
	out := make([]*Record, 0, len(materialIDs))
	for _, mid := range materialIDs {
		out = append(out, &Record{
			UserID:     userID,
			MaterialID: mid,
			AccessType: TypeExchange,
			ExpiryAt:   expiry,
			ExchangeID: &exchangeID,
		})
	}
	return out
}
