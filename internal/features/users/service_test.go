package users

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseUserRef(t *testing.T) {
	tests := []struct {
		name     string
		ref      string
		wantID   int64
		wantName string
		byID     bool
	}{
		{"с собакой", "@vasya", 0, "vasya", false},
		{"голый username", "vasya", 0, "vasya", false},
		{"числовой ID", "42", 42, "", true},
		{"ID с пробелами", " 42 ", 42, "", true},
		{"цифры в username", "vasya2000", 0, "vasya2000", false},
		{"отрицательное число — не ID", "-5", 0, "-5", false},
		{"ноль — не ID", "0", 0, "0", false},
		{"числовой username за собакой", "@12345", 0, "12345", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, username, byID := parseUserRef(tt.ref)
			assert.Equal(t, tt.byID, byID)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantName, username)
		})
	}
}
