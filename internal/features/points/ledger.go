// Package points — ledger.go содержит чистую логику планирования операций
// над журналом: какие начисления расходуются при списании (FIFO),
// какие сгорели при уборке. Планировщики не трогают БД — они получают
// срез начислений и возвращают план, который репозиторий исполняет
// внутри транзакции. Это позволяет тестировать инварианты журнала
// без базы данных.
package points

import (
	"time"

	"github.com/xujiafei/mingrixueba-server/internal/common"
)

// grantUse — элемент плана списания: сколько баллов берём из начисления.
// Remainder > 0 только у последнего, частично использованного начисления:
// на эту сумму создаётся новая активная запись с теми же source,
// acquired_at и expires_at (расщепление вместо изменения суммы).
type grantUse struct {
	Grant     *Grant
	Used      int64
	Remainder int64
}

// grantExpiry вычисляет срок сгорания нового начисления.
// expiryDays == nil — срок по умолчанию (defaultExpiry, ноль — бессрочно);
// *expiryDays <= 0 — явно бессрочное начисление; иначе — now + дни.
func grantExpiry(now time.Time, expiryDays *int, defaultExpiry time.Duration) *time.Time {
	switch {
	case expiryDays == nil:
		if defaultExpiry > 0 {
			t := now.Add(defaultExpiry)
			return &t
		}
	case *expiryDays > 0:
		t := now.AddDate(0, 0, *expiryDays)
		return &t
	}
	return nil
}

// setPointsDelta переводит текущий и целевой баланс в операцию:
// сколько начислить либо списать. Обе суммы нулевые при равенстве.
func setPointsDelta(current, target int64) (grantAmount, deductAmount int64) {
	if target > current {
		return target - current, 0
	}
	if target < current {
		return 0, current - target
	}
	return 0, 0
}

// availablePoints суммирует активные несгоревшие начисления.
// Начисления с прошедшим сроком не считаются, даже если уборка
// ещё не пометила их expired (ленивое чтение).
func availablePoints(grants []*Grant, now time.Time) int64 {
	var total int64
	for _, g := range grants {
		if g.Status != StatusActive || g.Expired(now) {
			continue
		}
		total += g.Amount
	}
	return total
}

// planConsumption строит план списания amount баллов из начислений grants.
// Начисления должны быть отсортированы по acquired_at по возрастанию:
// старые баллы расходуются первыми (FIFO).
//
// Возвращает InsufficientPointsError с точными суммами, если активных
// несгоревших баллов меньше amount. План либо покрывает сумму целиком,
// либо не возвращается вовсе — частичных списаний не бывает.
func planConsumption(grants []*Grant, amount int64, now time.Time) ([]grantUse, error) {
	if amount <= 0 {
		return nil, common.ErrInvalidAmount
	}

	available := availablePoints(grants, now)
	if available < amount {
		return nil, &common.InsufficientPointsError{Required: amount, Available: available}
	}

	var plan []grantUse
	remaining := amount
	for _, g := range grants {
		if remaining == 0 {
			break
		}
		if g.Status != StatusActive || g.Expired(now) {
			continue
		}
		if g.Amount <= remaining {
			// Начисление расходуется целиком
			plan = append(plan, grantUse{Grant: g, Used: g.Amount})
			remaining -= g.Amount
		} else {
			// Разрез попал в середину: остаток оформим новой записью
			plan = append(plan, grantUse{Grant: g, Used: remaining, Remainder: g.Amount - remaining})
			remaining = 0
		}
	}
	return plan, nil
}

// planSweep отбирает активные начисления, сгоревшие к моменту now,
// и возвращает их вместе с суммарным количеством сгоревших баллов.
// Повторный вызов после уборки возвращает пустой план — уборка идемпотентна.
func planSweep(grants []*Grant, now time.Time) ([]*Grant, int64) {
	var expired []*Grant
	var total int64
	for _, g := range grants {
		if g.Status != StatusActive || !g.Expired(now) {
			continue
		}
		expired = append(expired, g)
		total += g.Amount
	}
	return expired, total
}
