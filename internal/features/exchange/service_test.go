package exchange

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xujiafei/mingrixueba-server/internal/common"
)

// fakeSteps записывает порядок вызовов шагов транзакции и умеет
// ронять любой из них.
type fakeSteps struct {
	calls []string

	deductErr error
	insertErr error
	grantErr  error

	debitID int64
	balance int64
	exID    int64

	grantedMaterials []int64
	grantedExpiry    *time.Time
}

func (f *fakeSteps) deduct(_ context.Context, _ pgx.Tx, _, _ int64, _ string) (int64, int64, error) {
	f.calls = append(f.calls, "deduct")
	if f.deductErr != nil {
		return 0, 0, f.deductErr
	}
	return f.debitID, f.balance, nil
}

func (f *fakeSteps) insertExchange(_ context.Context, _ pgx.Tx, _ *Exchange) (int64, error) {
	f.calls = append(f.calls, "insert")
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	return f.exID, nil
}

func (f *fakeSteps) grantAccess(_ context.Context, _ pgx.Tx, _, _ int64, materialIDs []int64, expiry *time.Time) error {
	f.calls = append(f.calls, "grant")
	if f.grantErr != nil {
		return f.grantErr
	}
	f.grantedMaterials = materialIDs
	f.grantedExpiry = expiry
	return nil
}

func TestRunExchangeTx(t *testing.T) {
	ctx := context.Background()

	t.Run("успех: списание, запись, доступ", func(t *testing.T) {
		steps := &fakeSteps{debitID: 77, balance: 5, exID: 13}
		ex := &Exchange{UserID: 1, SemesterID: 9, PointsSpent: 10}
		expiry := time.Now().AddDate(0, 0, 180)

		balance, err := runExchangeTx(ctx, nil, steps, ex, []int64{3, 4}, &expiry, "Обмен семестра «1 класс, осень»")
		require.NoError(t, err)

		assert.Equal(t, []string{"deduct", "insert", "grant"}, steps.calls)
		assert.Equal(t, int64(5), balance)
		assert.Equal(t, int64(77), ex.DebitID)
		assert.Equal(t, int64(13), ex.ID)
		assert.Equal(t, []int64{3, 4}, steps.grantedMaterials)
		assert.Equal(t, &expiry, steps.grantedExpiry)
	})

	t.Run("недостаточно баллов: запись и доступ не выполняются", func(t *testing.T) {
		steps := &fakeSteps{
			deductErr: &common.InsufficientPointsError{Required: 10, Available: 3},
		}
		ex := &Exchange{UserID: 1, SemesterID: 9, PointsSpent: 10}

		_, err := runExchangeTx(ctx, nil, steps, ex, []int64{3}, nil, "Обмен")
		var ipe *common.InsufficientPointsError
		require.ErrorAs(t, err, &ipe)

		assert.Equal(t, []string{"deduct"}, steps.calls)
		assert.Zero(t, ex.ID)
	})

	t.Run("повторный обмен: цепочка рвётся после списания", func(t *testing.T) {
		// Такой откат гарантирует, что при конфликте уникального
		// индекса не остаётся ни списания, ни записи обмена
		steps := &fakeSteps{debitID: 77, balance: 5, insertErr: common.ErrAlreadyExchanged}
		ex := &Exchange{UserID: 1, SemesterID: 9, PointsSpent: 10}

		_, err := runExchangeTx(ctx, nil, steps, ex, []int64{3}, nil, "Обмен")
		require.ErrorIs(t, err, common.ErrAlreadyExchanged)

		assert.Equal(t, []string{"deduct", "insert"}, steps.calls)
		assert.Empty(t, steps.grantedMaterials)
	})

	t.Run("ошибка выдачи доступа отдаётся наружу", func(t *testing.T) {
		steps := &fakeSteps{debitID: 77, balance: 5, exID: 13, grantErr: errors.New("upsert failed")}
		ex := &Exchange{UserID: 1, SemesterID: 9, PointsSpent: 10}

		_, err := runExchangeTx(ctx, nil, steps, ex, []int64{3}, nil, "Обмен")
		require.EqualError(t, err, "upsert failed")
		assert.Equal(t, []string{"deduct", "insert", "grant"}, steps.calls)
	})
}
