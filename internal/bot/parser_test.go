package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	p := NewCommandParser()

	tests := []struct {
		name      string
		input     string
		wantCmd   string
		wantArgs  []string
		isCommand bool
	}{
		{"восклицательный знак", "!баллы", "баллы", nil, true},
		{"точка", ".баллы", "баллы", nil, true},
		{"слэш", "/история", "история", nil, true},
		{"с аргументом", "!обменять 12", "обменять", []string{"12"}, true},
		{"несколько аргументов", "!материалы математика 3 класс", "материалы", []string{"математика", "3", "класс"}, true},
		{"верхний регистр команды", "!БАЛЛЫ", "баллы", nil, true},
		{"пробелы вокруг", "  !баллы  ", "баллы", nil, true},
		{"без префикса", "баллы", "", nil, false},
		{"только префикс", "!", "", nil, false},
		{"префикс и пробелы", "!   ", "", nil, false},
		{"пустая строка", "", "", nil, false},
		{"обычный текст", "привет, бот", "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args, ok := p.ParseCommand(tt.input)
			assert.Equal(t, tt.isCommand, ok)
			assert.Equal(t, tt.wantCmd, cmd)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}
