// Package access — resolver.go: чистая логика решения о доступе.
// Функция не трогает БД — все входы собирает сервис, поэтому цепочка
// правил тестируется таблицей без базы.
package access

import (
	"time"

	"github.com/xujiafei/mingrixueba-server/internal/features/membership"
)

// resolveInput — всё, что нужно для решения о доступе к одному материалу.
type resolveInput struct {
	Free       bool
	Grade      int
	SemesterID int64           // 0, если материал вне семестров
	Record     *Record         // Запись доступа пользователя к материалу (может быть nil)
	Tier       string          // Тариф из последней записи истории подписок
	Exchanged  map[int64]bool  // Активно обменянные семестры пользователя
	Now        time.Time
}

// decide применяет цепочку правил в фиксированном порядке.
// Порядок закреплён: бесплатность, личная запись доступа, полный тариф,
// обмен при семестровом тарифе. Первое сработавшее правило решает.
func decide(in resolveInput) Decision {
	// 1. Бесплатные материалы доступны всем
	if in.Free {
		return Decision{Allowed: true, Reason: ReasonFree}
	}

	// 2. Личная запись доступа. Запись типа exchange действует
	// и после срока, остальные — только до истечения.
	if in.Record != nil && in.Record.Valid(in.Now) {
		return Decision{Allowed: true, Reason: ReasonDirect}
	}

	// 3. Полный тариф покрывает класс материала независимо от срока
	// подписки: правило смотрит только на тариф последней записи.
	if membership.FullTierCoversGrade(in.Tier, in.Grade) {
		return Decision{Allowed: true, Reason: ReasonFullTier}
	}

	// 4. Семестровые тарифы открывают обменянные семестры
	if (in.Tier == membership.TierSingle || in.Tier == membership.TierDouble) &&
		in.SemesterID != 0 && in.Exchanged[in.SemesterID] {
		return Decision{Allowed: true, Reason: ReasonExchange}
	}

	return Decision{}
}
