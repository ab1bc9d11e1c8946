package points

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xujiafei/mingrixueba-server/internal/common"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func grant(id int64, amount int64, acquiredDaysAgo int, expiresInDays *int) *Grant {
	g := &Grant{
		ID:         id,
		UserID:     1,
		Amount:     amount,
		Source:     SourcePurchase,
		AcquiredAt: testNow.AddDate(0, 0, -acquiredDaysAgo),
		Status:     StatusActive,
	}
	if expiresInDays != nil {
		t := testNow.AddDate(0, 0, *expiresInDays)
		g.ExpiresAt = &t
	}
	return g
}

func days(n int) *int { return &n }

func TestGrantExpiry(t *testing.T) {
	const year = 365 * 24 * time.Hour

	t.Run("без срока действует срок по умолчанию", func(t *testing.T) {
		got := grantExpiry(testNow, nil, year)
		require.NotNil(t, got)
		assert.Equal(t, testNow.Add(year), *got)
	})

	t.Run("нулевой срок по умолчанию — бессрочно", func(t *testing.T) {
		assert.Nil(t, grantExpiry(testNow, nil, 0))
	})

	t.Run("явный срок в днях", func(t *testing.T) {
		got := grantExpiry(testNow, days(30), year)
		require.NotNil(t, got)
		assert.Equal(t, testNow.AddDate(0, 0, 30), *got)
	})

	t.Run("явный ноль — бессрочно даже при сроке по умолчанию", func(t *testing.T) {
		assert.Nil(t, grantExpiry(testNow, days(0), year))
		assert.Nil(t, grantExpiry(testNow, days(-1), year))
	})
}

func TestSetPointsDelta(t *testing.T) {
	tests := []struct {
		name            string
		current, target int64
		grant, deduct   int64
	}{
		{"добор до цели", 30, 100, 70, 0},
		{"списание лишнего", 100, 30, 0, 70},
		{"баланс уже целевой", 50, 50, 0, 0},
		{"обнуление", 50, 0, 0, 50},
		{"с нуля", 0, 25, 25, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grant, deduct := setPointsDelta(tt.current, tt.target)
			assert.Equal(t, tt.grant, grant)
			assert.Equal(t, tt.deduct, deduct)
		})
	}
}

func TestAvailablePoints(t *testing.T) {
	t.Run("сумма активных начислений", func(t *testing.T) {
		grants := []*Grant{
			grant(1, 30, 10, days(30)),
			grant(2, 20, 5, nil),
		}
		assert.Equal(t, int64(50), availablePoints(grants, testNow))
	})

	t.Run("сгоревшие и использованные не считаются", func(t *testing.T) {
		used := grant(2, 40, 8, nil)
		used.Status = StatusUsed
		grants := []*Grant{
			grant(1, 30, 400, days(-5)), // срок прошёл, уборка ещё не была
			used,
			grant(3, 10, 1, days(100)),
		}
		assert.Equal(t, int64(10), availablePoints(grants, testNow))
	})

	t.Run("начисление ровно на границе срока сгорело", func(t *testing.T) {
		g := grant(1, 25, 365, nil)
		g.ExpiresAt = &testNow
		assert.Equal(t, int64(0), availablePoints([]*Grant{g}, testNow))
	})
}

func TestPlanConsumption(t *testing.T) {
	t.Run("старые баллы расходуются первыми", func(t *testing.T) {
		grants := []*Grant{
			grant(1, 30, 20, days(30)),
			grant(2, 50, 10, days(60)),
		}
		plan, err := planConsumption(grants, 30, testNow)
		require.NoError(t, err)
		require.Len(t, plan, 1)
		assert.Equal(t, int64(1), plan[0].Grant.ID)
		assert.Equal(t, int64(30), plan[0].Used)
		assert.Equal(t, int64(0), plan[0].Remainder)
	})

	t.Run("частичное использование оставляет остаток", func(t *testing.T) {
		grants := []*Grant{
			grant(1, 30, 20, days(30)),
			grant(2, 50, 10, days(60)),
		}
		plan, err := planConsumption(grants, 45, testNow)
		require.NoError(t, err)
		require.Len(t, plan, 2)

		assert.Equal(t, int64(30), plan[0].Used)
		assert.Equal(t, int64(0), plan[0].Remainder)

		assert.Equal(t, int64(2), plan[1].Grant.ID)
		assert.Equal(t, int64(15), plan[1].Used)
		assert.Equal(t, int64(35), plan[1].Remainder)
	})

	t.Run("сгоревшее начисление пропускается", func(t *testing.T) {
		grants := []*Grant{
			grant(1, 100, 400, days(-10)),
			grant(2, 40, 10, days(60)),
		}
		plan, err := planConsumption(grants, 40, testNow)
		require.NoError(t, err)
		require.Len(t, plan, 1)
		assert.Equal(t, int64(2), plan[0].Grant.ID)
	})

	t.Run("недостаточно баллов", func(t *testing.T) {
		grants := []*Grant{grant(1, 30, 5, days(30))}
		_, err := planConsumption(grants, 31, testNow)
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrInsufficientPoints)

		var ipe *common.InsufficientPointsError
		require.True(t, errors.As(err, &ipe))
		assert.Equal(t, int64(31), ipe.Required)
		assert.Equal(t, int64(30), ipe.Available)
	})

	t.Run("сгоревшие баллы не спасают баланс", func(t *testing.T) {
		grants := []*Grant{
			grant(1, 100, 400, days(-10)),
			grant(2, 5, 10, days(60)),
		}
		_, err := planConsumption(grants, 10, testNow)
		assert.ErrorIs(t, err, common.ErrInsufficientPoints)
	})

	t.Run("некорректная сумма", func(t *testing.T) {
		grants := []*Grant{grant(1, 30, 5, days(30))}
		_, err := planConsumption(grants, 0, testNow)
		assert.ErrorIs(t, err, common.ErrInvalidAmount)
		_, err = planConsumption(grants, -5, testNow)
		assert.ErrorIs(t, err, common.ErrInvalidAmount)
	})

	t.Run("списание ровно в ноль", func(t *testing.T) {
		grants := []*Grant{
			grant(1, 10, 20, days(30)),
			grant(2, 15, 10, nil),
		}
		plan, err := planConsumption(grants, 25, testNow)
		require.NoError(t, err)
		require.Len(t, plan, 2)
		var used int64
		for _, u := range plan {
			used += u.Used
			assert.Equal(t, int64(0), u.Remainder)
		}
		assert.Equal(t, int64(25), used)
	})
}

// Сценарий из жизни: покупка 100 баллов, обмен за 30, затем обмен за 45.
// После двух обменов остаётся запись на 25 с исходной датой получения.
func TestPlanConsumption_SequentialSpend(t *testing.T) {
	g := grant(1, 100, 30, days(335))

	plan, err := planConsumption([]*Grant{g}, 30, testNow)
	require.NoError(t, err)
	require.Len(t, plan, 1)
	require.Equal(t, int64(70), plan[0].Remainder)

	// Остаток оформляется новой записью с теми же датами
	rest := &Grant{
		ID:         2,
		UserID:     g.UserID,
		Amount:     plan[0].Remainder,
		Source:     g.Source,
		AcquiredAt: g.AcquiredAt,
		ExpiresAt:  g.ExpiresAt,
		Status:     StatusActive,
	}

	plan, err = planConsumption([]*Grant{rest}, 45, testNow)
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, int64(45), plan[0].Used)
	assert.Equal(t, int64(25), plan[0].Remainder)
	assert.Equal(t, g.AcquiredAt, plan[0].Grant.AcquiredAt)
	assert.Equal(t, g.ExpiresAt, plan[0].Grant.ExpiresAt)
}

// Путь новичка: начислили 10 баллов, обмен списал 5 — на счету
// остаётся 5 с исходными датами, а обмен ещё одного семестра за 10
// уже не по карману.
func TestPlanConsumption_SpendThenOverdraw(t *testing.T) {
	g := grant(1, 10, 0, days(365))

	plan, err := planConsumption([]*Grant{g}, 5, testNow)
	require.NoError(t, err)
	require.Len(t, plan, 1)
	require.Equal(t, int64(5), plan[0].Used)
	require.Equal(t, int64(5), plan[0].Remainder)

	rest := &Grant{
		ID:         2,
		UserID:     g.UserID,
		Amount:     plan[0].Remainder,
		Source:     g.Source,
		AcquiredAt: g.AcquiredAt,
		ExpiresAt:  g.ExpiresAt,
		Status:     StatusActive,
	}
	assert.Equal(t, int64(5), availablePoints([]*Grant{rest}, testNow))

	_, err = planConsumption([]*Grant{rest}, 10, testNow)
	var ipe *common.InsufficientPointsError
	require.True(t, errors.As(err, &ipe))
	assert.Equal(t, int64(10), ipe.Required)
	assert.Equal(t, int64(5), ipe.Available)
}

func TestPlanSweep(t *testing.T) {
	t.Run("отбирает только активные сгоревшие", func(t *testing.T) {
		used := grant(3, 50, 500, days(-100))
		used.Status = StatusUsed
		grants := []*Grant{
			grant(1, 30, 400, days(-10)),
			grant(2, 20, 5, days(60)),
			used,
			grant(4, 15, 370, days(-1)),
		}
		expired, total := planSweep(grants, testNow)
		require.Len(t, expired, 2)
		assert.Equal(t, int64(45), total)
		assert.Equal(t, int64(1), expired[0].ID)
		assert.Equal(t, int64(4), expired[1].ID)
	})

	t.Run("повторная уборка пуста", func(t *testing.T) {
		g := grant(1, 30, 400, days(-10))
		expired, total := planSweep([]*Grant{g}, testNow)
		require.Len(t, expired, 1)
		require.Equal(t, int64(30), total)

		// Уборка пометила начисление — второй проход ничего не находит
		g.Status = StatusExpired
		expired, total = planSweep([]*Grant{g}, testNow)
		assert.Empty(t, expired)
		assert.Equal(t, int64(0), total)
	})

	t.Run("бессрочные не сгорают", func(t *testing.T) {
		expired, total := planSweep([]*Grant{grant(1, 30, 1000, nil)}, testNow)
		assert.Empty(t, expired)
		assert.Equal(t, int64(0), total)
	})
}
