package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bangkok = time.FixedZone("ICT", 7*60*60)

func at(hour, minute int) time.Time {
	return time.Date(2024, 3, 10, hour, minute, 0, 0, bangkok)
}

func defaultWindow(t *testing.T) Window {
	t.Helper()
	w, err := NewWindow(bangkok, 13, 1)
	require.NoError(t, err)
	return w
}

func TestIsWithinWrappingWindow(t *testing.T) {
	w := defaultWindow(t)

	for _, hour := range []int{13, 0, 23, 18} {
		assert.True(t, w.IsWithin(at(hour, 30)), "hour %d should be inside", hour)
	}
	for _, hour := range []int{1, 12, 6} {
		assert.False(t, w.IsWithin(at(hour, 30)), "hour %d should be outside", hour)
	}
}

func TestIsWithinUsesWindowTimezone(t *testing.T) {
	w := defaultWindow(t)

	// 06:00 UTC is 13:00 in Bangkok.
	assert.True(t, w.IsWithin(time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC)))
	// 19:00 UTC is 02:00 in Bangkok.
	assert.False(t, w.IsWithin(time.Date(2024, 3, 10, 19, 0, 0, 0, time.UTC)))
}

func TestIsWithinNonWrappingWindow(t *testing.T) {
	w, err := NewWindow(bangkok, 9, 17)
	require.NoError(t, err)

	assert.True(t, w.IsWithin(at(9, 0)))
	assert.True(t, w.IsWithin(at(16, 59)))
	assert.False(t, w.IsWithin(at(17, 0)))
	assert.False(t, w.IsWithin(at(8, 59)))
}

func TestNextRunInsideWindowIsNextHour(t *testing.T) {
	w := defaultWindow(t)

	assert.True(t, at(16, 0).Equal(w.NextRun(at(15, 42))))
	assert.True(t, time.Date(2024, 3, 11, 0, 0, 0, 0, bangkok).Equal(w.NextRun(at(23, 5))))
}

func TestNextRunOutsideWindowIsTodaysOpening(t *testing.T) {
	w := defaultWindow(t)

	assert.True(t, at(13, 0).Equal(w.NextRun(at(7, 15))))
	assert.True(t, at(13, 0).Equal(w.NextRun(at(1, 0))))
}

func TestNewWindowRejectsBadInput(t *testing.T) {
	_, err := NewWindow(nil, 13, 1)
	assert.Error(t, err)
	_, err = NewWindow(bangkok, 24, 1)
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	w := defaultWindow(t)
	assert.Equal(t, "10.03.2024 13:00:00 ICT", w.Format(at(13, 0)))
}
