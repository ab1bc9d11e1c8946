package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPluralizePoints(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "баллов"},
		{1, "балл"},
		{2, "балла"},
		{4, "балла"},
		{5, "баллов"},
		{11, "баллов"},
		{12, "баллов"},
		{14, "баллов"},
		{21, "балл"},
		{22, "балла"},
		{25, "баллов"},
		{100, "баллов"},
		{101, "балл"},
		{111, "баллов"},
		{-3, "балла"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PluralizePoints(tt.n), "n=%d", tt.n)
	}
}

func TestPluralizeDays(t *testing.T) {
	assert.Equal(t, "день", PluralizeDays(1))
	assert.Equal(t, "дня", PluralizeDays(3))
	assert.Equal(t, "дней", PluralizeDays(7))
	assert.Equal(t, "день", PluralizeDays(31))
}

func TestPluralizeMaterials(t *testing.T) {
	assert.Equal(t, "материал", PluralizeMaterials(1))
	assert.Equal(t, "материала", PluralizeMaterials(2))
	assert.Equal(t, "материалов", PluralizeMaterials(19))
}

func TestFormatPoints(t *testing.T) {
	assert.Equal(t, "150 баллов", FormatPoints(150))
	assert.Equal(t, "1 балл", FormatPoints(1))
	assert.Equal(t, "42 балла", FormatPoints(42))
}
