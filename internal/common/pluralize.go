// Package common — pluralize.go содержит русскую плюрализацию
// доменных слов: баллы, дни, материалы, семестры.
package common

import "math"

// pluralForm выбирает одну из трёх форм слова для числа n по правилам
// русского языка:
//   - n%10==1 И n%100!=11 → one (1, 21, 31, 101, ...)
//   - n%10 в [2,4] И n%100 НЕ в [12,14] → few (2, 3, 4, 22, ...)
//   - остальные случаи → many (0, 5-20, 25-30, 100, ...)
func pluralForm(n int64, one, few, many string) string {
	absN := int64(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return one
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return few
	}
	return many
}

// PluralizePoints возвращает правильную форму слова «балл».
//
// Примеры:
//
//	PluralizePoints(1)  → "балл"
//	PluralizePoints(3)  → "балла"
//	PluralizePoints(5)  → "баллов"
//	PluralizePoints(21) → "балл"
func PluralizePoints(n int64) string {
	return pluralForm(n, "балл", "балла", "баллов")
}

// PluralizeDays возвращает правильную форму слова «день».
func PluralizeDays(n int) string {
	return pluralForm(int64(n), "день", "дня", "дней")
}

// PluralizeMaterials возвращает правильную форму слова «материал».
func PluralizeMaterials(n int) string {
	return pluralForm(int64(n), "материал", "материала", "материалов")
}

// PluralizeSemesters возвращает правильную форму слова «семестр».
func PluralizeSemesters(n int) string {
	return pluralForm(int64(n), "семестр", "семестра", "семестров")
}
