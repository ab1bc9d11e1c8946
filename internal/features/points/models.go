// Package points — ядро баллов: журнал начислений и списаний.
// models.go описывает структуры таблиц point_grants и point_debits.
//
// Журнал append-only: записи о начислениях никогда не удаляются
// и их сумма никогда не меняется. Частичное использование начисления
// оформляется расщеплением: старая запись помечается used, остаток
// оформляется новой активной записью с теми же датами.
package points

import "time"

// Источники начисления баллов.
const (
	SourcePurchase       = "purchase"        // Покупка баллов (оплаченный заказ)
	SourceAdminGrant     = "admin_grant"     // Начисление администратором
	SourceExchangeRefund = "exchange_refund" // Возврат за отменённый обмен
)

// Причины списания баллов.
const (
	ReasonExchange       = "exchange"        // Обмен семестра на баллы
	ReasonAdminDeduction = "admin_deduction" // Списание администратором
	ReasonReset          = "reset"           // Полный сброс баланса
	ReasonExpire         = "expire"          // Сгорание по сроку
)

// Статусы начисления.
const (
	StatusActive  = "active"  // Баллы доступны
	StatusUsed    = "used"    // Баллы израсходованы (полностью либо запись расщеплена)
	StatusExpired = "expired" // Баллы сгорели по сроку
)

// Grant — одно начисление баллов пользователю.
// Инварианты: Amount > 0 всегда; статус меняется только
// active→used или active→expired, обратных переходов нет.
type Grant struct {
	ID         int64      `db:"id"`
	UserID     int64      `db:"user_id"`
	Amount     int64      `db:"amount"`
	Source     string     `db:"source"`
	SourceID   *int64     `db:"source_id"`   // Связанный заказ/обмен (может быть nil)
	AcquiredAt time.Time  `db:"acquired_at"` // Момент получения (определяет порядок FIFO)
	ExpiresAt  *time.Time `db:"expires_at"`  // nil = бессрочные баллы
	Status     string     `db:"status"`
	CreatedAt  time.Time  `db:"created_at"`
}

// Expired сообщает, сгорело ли начисление к моменту now.
// Используется при «ленивом» чтении: запись со статусом active,
// но с прошедшим сроком, считается нулём ещё до уборки.
func (g *Grant) Expired(now time.Time) bool {
	return g.ExpiresAt != nil && !g.ExpiresAt.After(now)
}

// Debit — запись о снятии баллов с пользователя.
// Каждое списание обеспечено расходом одного или нескольких
// начислений, чьи использованные суммы дают ровно Amount.
type Debit struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Amount    int64     `db:"amount"`
	Reason    string    `db:"reason"`
	Remark    string    `db:"remark"` // Человекочитаемое пояснение (для аудита админ-операций)
	CreatedAt time.Time `db:"created_at"`
}

// GrantWithCountdown — начисление с обратным отсчётом до сгорания,
// для вывода пользователю «сколько и когда сгорит».
type GrantWithCountdown struct {
	Grant         *Grant
	DaysRemaining int  // 0 для бессрочных
	ExpiringSoon  bool // Сгорит в ближайшие N дней (порог из конфига)
}

// BalanceSummary — сводка баланса пользователя.
type BalanceSummary struct {
	Total        int64                 // Сумма активных несгоревших баллов
	ExpiringSoon int64                 // Из них сгорит в ближайшие N дней
	Grants       []*GrantWithCountdown // Активные начисления по возрастанию срока
}

// ExpiringTotal — сколько баллов пользователя сгорит в ближайшее время
// и ближайший срок. Используется рассылкой предупреждений.
type ExpiringTotal struct {
	TelegramID int64
	Amount     int64
	Earliest   time.Time
}

// HistoryEntry — строка объединённой истории операций
// (начисления и списания в одном списке).
type HistoryEntry struct {
	Kind      string    // "grant" или "debit"
	Amount    int64     // Положительное для начислений, отрицательное для списаний
	Label     string    // Источник или причина
	Status    string    // Статус начисления, для списаний пусто
	CreatedAt time.Time
}
