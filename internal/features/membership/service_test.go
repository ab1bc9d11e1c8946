package membership

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func membershipRow(tier string, expiryInDays *int) *Membership {
	m := &Membership{ID: 1, UserID: 1, Tier: tier, StartAt: testNow.AddDate(0, 0, -30)}
	if expiryInDays != nil {
		t := testNow.AddDate(0, 0, *expiryInDays)
		m.ExpiryAt = &t
	}
	return m
}

func days(n int) *int { return &n }

func TestResolveStanding(t *testing.T) {
	t.Run("без истории тариф none", func(t *testing.T) {
		st := resolveStanding(nil, testNow)
		assert.Equal(t, TierNone, st.Tier)
		assert.False(t, st.Active)
	})

	t.Run("действующая подписка", func(t *testing.T) {
		st := resolveStanding(membershipRow(TierDouble, days(100)), testNow)
		assert.Equal(t, TierDouble, st.Tier)
		assert.True(t, st.Active)
	})

	t.Run("истёкшая подписка сохраняет тариф", func(t *testing.T) {
		st := resolveStanding(membershipRow(TierPrimaryFull, days(-5)), testNow)
		assert.Equal(t, TierPrimaryFull, st.Tier)
		assert.False(t, st.Active)
	})

	t.Run("бессрочная подписка всегда действует", func(t *testing.T) {
		st := resolveStanding(membershipRow(TierPoints, nil), testNow)
		assert.Equal(t, TierPoints, st.Tier)
		assert.True(t, st.Active)
	})
}

func TestExtensionBase(t *testing.T) {
	t.Run("действующая подписка того же тарифа продлевается от срока", func(t *testing.T) {
		m := membershipRow(TierSingle, days(40))
		base := extensionBase(m, TierSingle, testNow)
		assert.Equal(t, *m.ExpiryAt, base)
	})

	t.Run("истёкшая подписка продлевается от текущего момента", func(t *testing.T) {
		m := membershipRow(TierSingle, days(-10))
		assert.Equal(t, testNow, extensionBase(m, TierSingle, testNow))
	})

	t.Run("другой тариф стартует заново", func(t *testing.T) {
		m := membershipRow(TierSingle, days(40))
		assert.Equal(t, testNow, extensionBase(m, TierDouble, testNow))
	})

	t.Run("без истории от текущего момента", func(t *testing.T) {
		assert.Equal(t, testNow, extensionBase(nil, TierSingle, testNow))
	})
}

func TestFullTierCoversGrade(t *testing.T) {
	cases := []struct {
		tier  string
		grade int
		want  bool
	}{
		{TierPrimaryFull, 1, true},
		{TierPrimaryFull, 6, true},
		{TierPrimaryFull, 7, false},
		{TierPrimaryFull, 0, false}, // дошкольные материалы вне диапазонов
		{TierJuniorFull, 7, true},
		{TierJuniorFull, 9, true},
		{TierJuniorFull, 6, false},
		{TierSingle, 3, false},
		{TierPoints, 3, false},
		{TierNone, 3, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FullTierCoversGrade(c.tier, c.grade),
			"tier=%s grade=%d", c.tier, c.grade)
	}
}

func TestValidTier(t *testing.T) {
	for _, tier := range []string{TierNone, TierPoints, TierSingle, TierDouble, TierPrimaryFull, TierJuniorFull} {
		assert.True(t, ValidTier(tier), tier)
	}
	assert.False(t, ValidTier("vip"))
	assert.False(t, ValidTier(""))
}
