package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthArithmetic(t *testing.T) {
	jan := NewMonth(2024, time.January)
	dec := NewMonth(2023, time.December)

	assert.Equal(t, 2024, jan.Year())
	assert.Equal(t, time.January, jan.MonthOfYear())
	assert.Equal(t, dec, jan.Add(-1))
	assert.Equal(t, 1, jan.Sub(dec))
	assert.Equal(t, -13, dec.Sub(jan.Add(12)))
	assert.True(t, dec < jan)
}

func TestMonthOfTruncates(t *testing.T) {
	ts := time.Date(2024, time.February, 29, 23, 59, 0, 0, time.UTC)

	m := MonthOf(ts)

	assert.Equal(t, "2024-02", m.String())
	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), m.Start())
}

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth(" 2023-11 ")
	require.NoError(t, err)
	assert.Equal(t, NewMonth(2023, time.November), m)

	_, err = ParseMonth("2023/11")
	assert.Error(t, err)
}

func TestMonthRange(t *testing.T) {
	first := NewMonth(2023, time.November)
	last := NewMonth(2024, time.February)

	months := MonthRange(first, last)

	require.Len(t, months, 4)
	assert.Equal(t, "2023-11", months[0].String())
	assert.Equal(t, "2024-02", months[3].String())
	assert.Nil(t, MonthRange(last, first))
	assert.Len(t, MonthRange(first, first), 1)
}

func TestRecordGet(t *testing.T) {
	r := Record{Fields: map[string]string{"state": "  ca "}}

	assert.Equal(t, "ca", r.Get("state"))
	assert.Equal(t, "", r.Get("missing"))
}

func TestNormalizeRule(t *testing.T) {
	assert.Equal(t, RuleRolling12m, NormalizeRule(""))
	assert.Equal(t, RuleCalendarPrev, NormalizeRule(" Calendar_Prev "))
	assert.True(t, NormalizeRule("NONE").Known())
	assert.False(t, NormalizeRule("quarterly").Known())
}
