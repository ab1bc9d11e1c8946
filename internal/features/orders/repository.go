// Package orders — repository.go: операции с таблицей orders.
package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

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

const orderColumns = `id, order_no, user_id, order_type, amount, status, payment_method, paid_at,
       material_id, package_id, user_membership_id, points_amount, points_expiry_days,
       created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.OrderNo, &o.UserID, &o.OrderType, &o.Amount, &o.Status,
		&o.PaymentMethod, &o.PaidAt, &o.MaterialID, &o.PackageID, &o.UserMembershipID,
		&o.PointsAmount, &o.PointsExpiryDays, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Insert создаёт заказ и возвращает его ID.
func (r *Repository) Insert(ctx context.Context, o *Order) (int64, error) {
	query := `
		INSERT INTO orders (order_no, user_id, order_type, amount, status, payment_method,
		                    material_id, package_id, points_amount, points_expiry_days)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRow(ctx, query,
		o.OrderNo, o.UserID, o.OrderType, o.Amount, o.Status, o.PaymentMethod,
		o.MaterialID, o.PackageID, o.PointsAmount, o.PointsExpiryDays,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ошибка создания заказа: %w", err)
	}
	return id, nil
}

// GetByNo возвращает заказ по номеру.
func (r *Repository) GetByNo(ctx context.Context, orderNo string) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_no = $1`
	o, err := scanOrder(r.db.QueryRow(ctx, query, orderNo))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order_no=%s: %w", orderNo, common.ErrOrderNotFound)
		}
		return nil, fmt.Errorf("ошибка чтения заказа: %w", err)
	}
	return o, nil
}

// MarkPaid переводит заказ pending → paid. Возвращает ErrOrderNotPending,
// если заказ уже обработан — на этом держится идемпотентность колбэка.
func (r *Repository) MarkPaid(ctx context.Context, orderNo, paymentMethod string, paidAt time.Time) (*Order, error) {
	query := `
		UPDATE orders
		SET status = 'paid', payment_method = $2, paid_at = $3, updated_at = NOW()
		WHERE order_no = $1 AND status = 'pending'
		RETURNING ` + orderColumns + `
	`
	o, err := scanOrder(r.db.QueryRow(ctx, query, orderNo, paymentMethod, paidAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order_no=%s: %w", orderNo, common.ErrOrderNotPending)
		}
		return nil, fmt.Errorf("ошибка оплаты заказа: %w", err)
	}
	return o, nil
}

// SetStatus переводит заказ в новый статус (отмена, возврат).
func (r *Repository) SetStatus(ctx context.Context, orderNo, status string) error {
	ct, err := r.db.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE order_no = $1`, orderNo, status)
	if err != nil {
		return fmt.Errorf("ошибка смены статуса заказа: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("order_no=%s: %w", orderNo, common.ErrOrderNotFound)
	}
	return nil
}

// LinkMembership привязывает выданную подписку к заказу.
func (r *Repository) LinkMembership(ctx context.Context, orderID, membershipID int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE orders SET user_membership_id = $2, updated_at = NOW() WHERE id = $1`,
		orderID, membershipID)
	if err != nil {
		return fmt.Errorf("ошибка привязки подписки к заказу: %w", err)
	}
	return nil
}

// ListByUser возвращает заказы пользователя, новые сверху.
func (r *Repository) ListByUser(ctx context.Context, userID int64, limit int) ([]*Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса заказов: %w", err)
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования заказа: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}
