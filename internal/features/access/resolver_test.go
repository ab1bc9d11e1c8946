package access

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/xujiafei/mingrixueba-server/internal/features/membership"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func record(accessType string, expiryInDays *int) *Record {
	r := &Record{ID: 1, UserID: 1, MaterialID: 1, AccessType: accessType}
	if expiryInDays != nil {
		t := testNow.AddDate(0, 0, *expiryInDays)
		r.ExpiryAt = &t
	}
	return r
}

func days(n int) *int { return &n }

func TestDecide(t *testing.T) {
	cases := []struct {
		name    string
		in      resolveInput
		allowed bool
		reason  string
	}{
		{
			name:    "бесплатный материал доступен без подписки",
			in:      resolveInput{Free: true, Tier: membership.TierNone},
			allowed: true,
			reason:  ReasonFree,
		},
		{
			name:    "действующая прямая запись",
			in:      resolveInput{Grade: 3, Record: record(TypeDirect, days(10)), Tier: membership.TierNone},
			allowed: true,
			reason:  ReasonDirect,
		},
		{
			name: "истёкшая прямая запись не даёт доступа",
			in:   resolveInput{Grade: 3, Record: record(TypeDirect, days(-1)), Tier: membership.TierNone},
		},
		{
			name:    "запись обмена действует и после срока",
			in:      resolveInput{Grade: 3, Record: record(TypeExchange, days(-30)), Tier: membership.TierSingle},
			allowed: true,
			reason:  ReasonDirect,
		},
		{
			name:    "бессрочная запись подписки",
			in:      resolveInput{Grade: 3, Record: record(TypeMembership, nil), Tier: membership.TierNone},
			allowed: true,
			reason:  ReasonDirect,
		},
		{
			name:    "полный тариф покрывает класс",
			in:      resolveInput{Grade: 4, Tier: membership.TierPrimaryFull},
			allowed: true,
			reason:  ReasonFullTier,
		},
		{
			name:    "полный тариф действует и с истёкшей подпиской",
			in:      resolveInput{Grade: 8, Tier: membership.TierJuniorFull},
			allowed: true,
			reason:  ReasonFullTier,
		},
		{
			name: "полный тариф чужого диапазона",
			in:   resolveInput{Grade: 8, Tier: membership.TierPrimaryFull},
		},
		{
			name: "дошкольный класс вне диапазонов полного тарифа",
			in:   resolveInput{Grade: 0, Tier: membership.TierPrimaryFull},
		},
		{
			name: "single: обменянный семестр",
			in: resolveInput{
				Grade: 3, SemesterID: 10, Tier: membership.TierSingle,
				Exchanged: map[int64]bool{10: true},
			},
			allowed: true,
			reason:  ReasonExchange,
		},
		{
			name: "single: необменянный семестр",
			in: resolveInput{
				Grade: 3, SemesterID: 11, Tier: membership.TierSingle,
				Exchanged: map[int64]bool{10: true},
			},
		},
		{
			name: "points: обмен без записи доступа не открывает семестр",
			in: resolveInput{
				Grade: 3, SemesterID: 10, Tier: membership.TierPoints,
				Exchanged: map[int64]bool{10: true},
			},
		},
		{
			name: "none: платный материал недоступен",
			in:   resolveInput{Grade: 3, SemesterID: 10, Tier: membership.TierNone},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			in := c.in
			in.Now = testNow
			d := decide(in)
			assert.Equal(t, c.allowed, d.Allowed)
			assert.Equal(t, c.reason, d.Reason)
		})
	}
}

// Порядок правил закреплён: личная запись побеждает полный тариф,
// бесплатность побеждает всё.
func TestDecidePrecedence(t *testing.T) {
	d := decide(resolveInput{
		Free: true, Grade: 3, Record: record(TypeDirect, days(10)),
		Tier: membership.TierPrimaryFull, Now: testNow,
	})
	assert.Equal(t, ReasonFree, d.Reason)

	d = decide(resolveInput{
		Grade: 3, Record: record(TypeDirect, days(10)),
		Tier: membership.TierPrimaryFull, Now: testNow,
	})
	assert.Equal(t, ReasonDirect, d.Reason)
}
