// Package membership — подписки: тарифные пакеты и история подписок
// пользователей. Текущий тариф пользователя определяется последней
// записью в user_memberships; никаких кэшей тарифа на users нет.
package membership

import "time"

// Тарифы подписки в порядке появления в продукте.
const (
	TierNone        = "none"         // Подписки нет
	TierPoints      = "points"       // Покупатель баллов (обмены бессрочны)
	TierSingle      = "single"       // Один семестр
	TierDouble      = "double"       // Два семестра
	TierPrimaryFull = "primary_full" // Вся начальная школа (1-6 класс)
	TierJuniorFull  = "junior_full"  // Вся средняя школа (7-9 класс)
)

// Уровни школы для пакетов и диапазонов классов.
const (
	LevelPrimary = "primary"
	LevelJunior  = "junior"
)

// ValidTier проверяет, что строка — известный тариф.
func ValidTier(tier string) bool {
	switch tier {
	case TierNone, TierPoints, TierSingle, TierDouble, TierPrimaryFull, TierJuniorFull:
		return true
	}
	return false
}

// FullTierCoversGrade сообщает, покрывает ли полный тариф класс материала.
// Начальная школа — классы 1..6, средняя — 7..9. Класс 0 (дошкольный)
// не входит ни в один диапазон.
func FullTierCoversGrade(tier string, grade int) bool {
	switch tier {
	case TierPrimaryFull:
		return grade >= 1 && grade <= 6
	case TierJuniorFull:
		return grade >= 7 && grade <= 9
	}
	return false
}

// Package — тарифный пакет подписки, который можно купить.
type Package struct {
	ID           int64      `db:"id"`
	Name         string     `db:"name"`
	Description  string     `db:"description"`
	Price        int64      `db:"price"` // В копейках
	DurationDays *int       `db:"duration_days"` // nil = бессрочный пакет
	Level        string     `db:"level"`         // primary | junior
	Tier         string     `db:"tier"`
	Features     []string   `db:"features"` // JSONB-список преимуществ
	IsActive     bool       `db:"is_active"`
	OrderIndex   int        `db:"order_index"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

// Membership — одна запись истории подписок. История append-only:
// продление или смена тарифа добавляют новую строку.
type Membership struct {
	ID        int64      `db:"id"`
	UserID    int64      `db:"user_id"`
	PackageID *int64     `db:"package_id"` // nil для админ-выдачи и авто-повышения
	Tier      string     `db:"tier"`
	StartAt   time.Time  `db:"start_at"`
	ExpiryAt  *time.Time `db:"expiry_at"` // nil = бессрочно
	CreatedAt time.Time  `db:"created_at"`
}

// Active сообщает, действует ли подписка в момент now.
func (m *Membership) Active(now time.Time) bool {
	return m.ExpiryAt == nil || m.ExpiryAt.After(now)
}

// Standing — текущее положение пользователя: тариф из последней записи
// истории и признак её действия. Тариф заполнен даже для истёкшей
// подписки — часть проверок доступа смотрит на тариф независимо от срока.
type Standing struct {
	Tier     string
	Active   bool
	ExpiryAt *time.Time // nil = бессрочно либо подписки нет
}
