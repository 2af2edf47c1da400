package fiscal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentWindow_BeforeDeadline(t *testing.T) {
	now := time.Date(2026, time.February, 1, 10, 0, 0, 0, time.UTC)

	w, err := CurrentWindow(now, "03-27")
	require.NoError(t, err)

	assert.Equal(t, "2025-2026", w.Label)
	assert.Equal(t, 2026, w.Deadline.Year())
	assert.Equal(t, time.March, w.Deadline.Month())
	assert.Equal(t, 27, w.Deadline.Day())
	assert.Equal(t, 23, w.Deadline.Hour())
}

func TestCurrentWindow_OnDeadlineDay(t *testing.T) {
	// The deadline date itself is still inside the closing fiscal year.
	now := time.Date(2026, time.March, 27, 18, 30, 0, 0, time.UTC)

	w, err := CurrentWindow(now, "03-27")
	require.NoError(t, err)

	assert.Equal(t, "2025-2026", w.Label)
	assert.False(t, now.After(w.Deadline))
}

func TestCurrentWindow_AfterDeadline(t *testing.T) {
	now := time.Date(2026, time.March, 28, 0, 0, 1, 0, time.UTC)

	w, err := CurrentWindow(now, "03-27")
	require.NoError(t, err)

	assert.Equal(t, "2026-2027", w.Label)
	assert.True(t, now.After(w.Deadline))
}

func TestCurrentWindow_DecemberYearEnd(t *testing.T) {
	now := time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)

	w, err := CurrentWindow(now, "12-31")
	require.NoError(t, err)

	assert.Equal(t, "2024-2025", w.Label)
	assert.Equal(t, time.December, w.Deadline.Month())
	assert.Equal(t, 31, w.Deadline.Day())
}

func TestCurrentWindow_LeapDayClampsInNonLeapYear(t *testing.T) {
	now := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)

	w, err := CurrentWindow(now, "02-29")
	require.NoError(t, err)

	assert.Equal(t, time.February, w.Deadline.Month())
	assert.Equal(t, 28, w.Deadline.Day())
}

func TestCurrentWindow_LeapDayKeptInLeapYear(t *testing.T) {
	now := time.Date(2028, time.January, 10, 0, 0, 0, 0, time.UTC)

	w, err := CurrentWindow(now, "02-29")
	require.NoError(t, err)

	assert.Equal(t, 29, w.Deadline.Day())
}

func TestCurrentWindow_InvalidConfig(t *testing.T) {
	now := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	for _, bad := range []string{"", "13-01", "00-10", "02-30", "04-31", "1231", "ab-cd"} {
		_, err := CurrentWindow(now, bad)
		assert.ErrorIs(t, err, ErrInvalidFiscalConfig, "input %q", bad)
	}
}
