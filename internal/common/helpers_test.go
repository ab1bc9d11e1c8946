package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDaysUntil(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Ровно сутки
	assert.Equal(t, 1, DaysUntil(now.Add(24*time.Hour), now))
	// Неполные сутки округляются вверх
	assert.Equal(t, 1, DaysUntil(now.Add(time.Hour), now))
	assert.Equal(t, 2, DaysUntil(now.Add(25*time.Hour), now))
	// Прошлое и настоящее — ноль
	assert.Equal(t, 0, DaysUntil(now, now))
	assert.Equal(t, 0, DaysUntil(now.Add(-time.Hour), now))
}
