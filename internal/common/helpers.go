// Package common содержит общие утилиты, используемые во всём проекте.
// helpers.go: форматирование баллов, дат и работа с временем.
package common

import (
	"fmt"
	"time"
)

// FormatPoints форматирует количество баллов в читабельную строку.
// Пример: FormatPoints(150) → "150 баллов"
func FormatPoints(n int64) string {
	return fmt.Sprintf("%d %s", n, PluralizePoints(n))
}

// FormatDateTime форматирует время в формат "02.01.2006 15:04".
// Используется для отображения дат операций с баллами.
func FormatDateTime(t time.Time) string {
	return t.Local().Format("02.01.2006 15:04")
}

// FormatDate форматирует только дату: "02.01.2006".
// Используется для сроков действия баллов и абонементов.
func FormatDate(t time.Time) string {
	return t.Local().Format("02.01.2006")
}

// DaysUntil возвращает число полных дней до момента t (округление вверх).
// Для моментов в прошлом возвращает 0.
func DaysUntil(t time.Time, now time.Time) int {
	if !t.After(now) {
		return 0
	}
	d := t.Sub(now)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) > 0 {
		days++
	}
	return days
}
