// Package orders — заказы: покупка материала, пакета подписки или баллов.
// Платёжного шлюза нет: заказ создаётся со статусом pending, а колбэк
// оплаты помечает его оплаченным и запускает выдачу.
package orders

import "time"

// Типы заказа.
const (
	TypeMaterial   = "material"
	TypeMembership = "membership"
	TypePoints     = "points"
)

// Статусы заказа.
const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusCancelled = "cancelled"
	StatusRefunded  = "refunded"
)

// Order — заказ пользователя.
type Order struct {
	ID            int64      `db:"id"`
	OrderNo       string     `db:"order_no"` // Уникальный номер для платёжных колбэков
	UserID        int64      `db:"user_id"`
	OrderType     string     `db:"order_type"`
	Amount        int64      `db:"amount"` // В копейках
	Status        string     `db:"status"`
	PaymentMethod string     `db:"payment_method"`
	PaidAt        *time.Time `db:"paid_at"`

	// Предмет заказа — заполнено одно из трёх
	MaterialID       *int64 `db:"material_id"`
	PackageID        *int64 `db:"package_id"`
	UserMembershipID *int64 `db:"user_membership_id"` // Подписка, выданная этим заказом

	// Для заказов баллов
	PointsAmount     int64 `db:"points_amount"`
	PointsExpiryDays int   `db:"points_expiry_days"` // 0 = срок по умолчанию

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
