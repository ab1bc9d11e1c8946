// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях сервера.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отправлять пользователю понятные сообщения.
package common

import (
	"errors"
	"fmt"
)

// Ошибки баллов (начисление, списание, обмен)
var (
	// ErrInvalidAmount — некорректная сумма баллов (ноль или отрицательная)
	ErrInvalidAmount = errors.New("сумма баллов должна быть положительной")
	// ErrInsufficientPoints — недостаточно активных баллов на счёте
	ErrInsufficientPoints = errors.New("недостаточно баллов на счёте")
	// ErrAlreadyExchanged — этот семестр уже обменян пользователем
	ErrAlreadyExchanged = errors.New("этот семестр уже обменян")
	// ErrTransactionConflict — конфликт параллельных транзакций, операцию можно повторить
	ErrTransactionConflict = errors.New("конфликт транзакций, повторите операцию")
)

// Ошибки справочников и пользователей
var (
	// ErrUserNotFound — пользователь не найден в базе
	ErrUserNotFound = errors.New("пользователь не найден")
	// ErrMaterialNotFound — материал не найден или снят с публикации
	ErrMaterialNotFound = errors.New("материал не найден")
	// ErrSemesterNotFound — категория-семестр не найдена
	ErrSemesterNotFound = errors.New("семестр не найден")
	// ErrCategoryNotFound — категория не найдена
	ErrCategoryNotFound = errors.New("категория не найдена")
	// ErrPackageNotFound — абонемент не найден
	ErrPackageNotFound = errors.New("абонемент не найден")
	// ErrPackageInUse — абонемент уже покупали, удалять нельзя
	ErrPackageInUse = errors.New("абонемент уже покупали, удаление невозможно")
	// ErrInvalidTier — неизвестный тип абонемента
	ErrInvalidTier = errors.New("неизвестный тип абонемента")
	// ErrOrderNotFound — заказ не найден
	ErrOrderNotFound = errors.New("заказ не найден")
	// ErrOrderNotPending — заказ уже обработан или отменён
	ErrOrderNotPending = errors.New("заказ уже обработан или отменён")
)

// Ошибки админки
var (
	// ErrNotAdmin — пользователь не является администратором
	ErrNotAdmin = errors.New("у вас нет прав администратора")
	// ErrWrongPassword — неверный пароль
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
	// ErrSessionExpired — сессия истекла
	ErrSessionExpired = errors.New("сессия истекла, авторизуйтесь заново")
)

// InsufficientPointsError — расширенный вариант ErrInsufficientPoints.
// Несёт точные суммы, чтобы вызывающий слой мог объяснить пользователю,
// сколько баллов не хватает при неудачном обмене.
type InsufficientPointsError struct {
	Required  int64 // Сколько баллов требовалось
	Available int64 // Сколько активных баллов было на момент проверки
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("недостаточно баллов: нужно %d, доступно %d", e.Required, e.Available)
}

// Is позволяет errors.Is(err, common.ErrInsufficientPoints) находить
// типизированную ошибку без потери сумм.
func (e *InsufficientPointsError) Is(target error) bool {
	return target == ErrInsufficientPoints
}
