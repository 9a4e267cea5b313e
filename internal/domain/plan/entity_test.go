// internal/domain/plan/entity_test.go
package plan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBillingCycleValid(t *testing.T) {
	assert.True(t, CycleWeekly.Valid())
	assert.True(t, CycleMonthly.Valid())
	assert.True(t, CycleYearly.Valid())
	assert.False(t, BillingCycle("daily").Valid())
	assert.False(t, BillingCycle("").Valid())
}

func TestAddPeriod(t *testing.T) {
	cases := []struct {
		name  string
		cycle BillingCycle
		from  time.Time
		want  time.Time
	}{
		{"weekly", CycleWeekly, day(2024, time.January, 15), day(2024, time.January, 22)},
		{"monthly", CycleMonthly, day(2024, time.January, 15), day(2024, time.February, 15)},
		{"yearly", CycleYearly, day(2024, time.January, 15), day(2025, time.January, 15)},
		// time.AddDate normalizes out-of-range days rather than clamping.
		{"monthly from jan 31", CycleMonthly, day(2024, time.January, 31), day(2024, time.March, 2)},
		{"yearly from leap day", CycleYearly, day(2024, time.February, 29), day(2025, time.March, 1)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.cycle.AddPeriod(tc.from)
			assert.True(t, tc.want.Equal(got), "want %s, got %s", tc.want, got)
		})
	}
}
