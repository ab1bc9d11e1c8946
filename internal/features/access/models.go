// Package access — резолвер прав доступа к материалам.
// Решение принимается по фиксированной цепочке правил над записями
// доступа (download_logs), текущим тарифом и обменянными семестрами.
package access

import "time"

// Типы записи доступа.
const (
	TypeDirect     = "direct"     // Прямая покупка материала
	TypeExchange   = "exchange"   // Получен обменом семестра на баллы
	TypeMembership = "membership" // Выдан подпиской
)

// Причины положительного решения (для логов и истории).
const (
	ReasonFree     = "free"      // Бесплатный материал
	ReasonDirect   = "direct"    // Действующая запись доступа
	ReasonFullTier = "full_tier" // Полный тариф покрывает класс
	ReasonExchange = "exchange"  // Семестр обменян при тарифе single/double
)

// Record — запись доступа пользователя к материалу.
// На пару (user_id, material_id) существует не больше одной записи;
// повторный обмен обновляет её (upsert).
type Record struct {
	ID         int64      `db:"id"`
	UserID     int64      `db:"user_id"`
	MaterialID int64      `db:"material_id"`
	AccessType string     `db:"access_type"`
	ExpiryAt   *time.Time `db:"expiry_at"` // nil = бессрочно
	ExchangeID *int64     `db:"exchange_id"`
	OrderID    *int64     `db:"order_id"`
	CreatedAt  time.Time  `db:"created_at"`
}

// Valid сообщает, даёт ли запись доступ в момент now.
// Запись типа exchange действует и после истечения срока: обмен
// совершён — материал остаётся у пользователя.
func (r *Record) Valid(now time.Time) bool {
	if r.AccessType == TypeExchange {
		return true
	}
	return r.ExpiryAt == nil || r.ExpiryAt.After(now)
}

// Decision — результат проверки доступа.
type Decision struct {
	Allowed bool
	Reason  string // Одна из Reason-констант; пусто при отказе
}
