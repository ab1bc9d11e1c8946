package points

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpiringSoonNotices_DisabledThreshold(t *testing.T) {
	// Нулевой порог выключает рассылку предупреждений: выборка
	// из журнала не выполняется вовсе
	s := NewService(nil, nil, 365, 0, 1)

	notices, err := s.ExpiringSoonNotices(context.Background())
	require.NoError(t, err)
	assert.Nil(t, notices)
}
