// Package exchange — обмен семестра на баллы: пользователь один раз
// платит баллами за семестр и получает доступ ко всем его материалам.
package exchange

import "time"

// Exchange — факт обмена семестра. Активный обмен на пару
// (user_id, semester_id) может быть только один — это закреплено
// частичным уникальным индексом.
type Exchange struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	SemesterID  int64     `db:"semester_id"`
	PointsSpent int64     `db:"points_spent"`
	DebitID     int64     `db:"debit_id"` // Списание баллов, обеспечившее обмен
	ExchangedAt time.Time `db:"exchanged_at"`
	Active      bool      `db:"active"`
}

// Result — итог успешного обмена для показа пользователю.
type Result struct {
	Exchange      *Exchange
	MaterialCount int   // Сколько материалов открыто
	NewBalance    int64 // Баланс после списания
}
