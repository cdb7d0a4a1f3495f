package schedule

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestBuildSlots_MorningWindow(t *testing.T) {
	tpl := &Template{
		StartMinutes:  8 * 60,
		EndMinutes:    12 * 60,
		SlotMinutes:   20,
		BufferMinutes: 10,
	}

	slots, err := buildSlots(tpl, nil)
	require.NoError(t, err)
	require.Len(t, slots, 8)

	wantStarts := []string{"08:00", "08:30", "09:00", "09:30", "10:00", "10:30", "11:00", "11:30"}
	for i, slot := range slots {
		assert.Equal(t, wantStarts[i], slot.Start)
		assert.Equal(t, slot.StartMinutes+20, slot.EndMinutes)
		assert.True(t, slot.Available)
		assert.Nil(t, slot.AppointmentID)
	}

	// Starts are spaced by duration plus buffer.
	for i := 1; i < len(slots); i++ {
		assert.Equal(t, 30, slots[i].StartMinutes-slots[i-1].StartMinutes)
	}
}

func TestBuildSlots_TrailingPartialSlotDropped(t *testing.T) {
	// 09:00-09:50 with 20+10 spacing: starts at 09:00 and 09:30; a slot
	// starting 09:30 ends exactly at 09:50, but one more would overflow.
	tpl := &Template{
		StartMinutes:  9 * 60,
		EndMinutes:    9*60 + 50,
		SlotMinutes:   20,
		BufferMinutes: 10,
	}

	slots, err := buildSlots(tpl, nil)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "09:30", slots[1].Start)
	assert.Equal(t, "09:50", slots[1].End)
}

func TestBuildSlots_BreakWindowExcluded(t *testing.T) {
	tpl := &Template{
		StartMinutes:      8 * 60,
		EndMinutes:        17 * 60,
		SlotMinutes:       20,
		BufferMinutes:     10,
		BreakStartMinutes: intPtr(12 * 60),
		BreakEndMinutes:   intPtr(13 * 60),
	}

	slots, err := buildSlots(tpl, nil)
	require.NoError(t, err)

	for _, slot := range slots {
		overlaps := slot.StartMinutes < 13*60 && 12*60 < slot.EndMinutes
		assert.False(t, overlaps, "slot %s intersects the break window", slot.Start)
	}

	// The 11:50-12:10 candidate straddles the break start and must be gone,
	// while 11:30 before it and 13:00 onward survive.
	starts := make(map[string]bool, len(slots))
	for _, slot := range slots {
		starts[slot.Start] = true
	}
	assert.True(t, starts["11:30"])
	assert.False(t, starts["12:00"])
	assert.True(t, starts["13:00"])
}

func TestBuildSlots_BookedMinuteMarksExactlyOneSlot(t *testing.T) {
	tpl := &Template{
		StartMinutes:  8 * 60,
		EndMinutes:    12 * 60,
		SlotMinutes:   20,
		BufferMinutes: 10,
	}
	apptID := uuid.New()

	slots, err := buildSlots(tpl, map[int]uuid.UUID{8*60 + 30: apptID})
	require.NoError(t, err)

	var bookedCount int
	for _, slot := range slots {
		if !slot.Available {
			bookedCount++
			assert.Equal(t, "08:30", slot.Start)
			require.NotNil(t, slot.AppointmentID)
			assert.Equal(t, apptID, *slot.AppointmentID)
		} else {
			assert.Nil(t, slot.AppointmentID)
		}
	}
	assert.Equal(t, 1, bookedCount)
}

func TestBuildSlots_ZeroBufferPacksSlotsBackToBack(t *testing.T) {
	tpl := &Template{
		StartMinutes: 8 * 60,
		EndMinutes:   9 * 60,
		SlotMinutes:  20,
	}

	slots, err := buildSlots(tpl, nil)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, "08:00", slots[0].Start)
	assert.Equal(t, "08:20", slots[0].End)
	assert.Equal(t, "08:20", slots[1].Start)
	assert.Equal(t, "08:40", slots[2].Start)
}

func TestBuildSlots_MalformedWindow(t *testing.T) {
	_, err := buildSlots(&Template{StartMinutes: 600, EndMinutes: 600}, nil)
	assert.ErrorIs(t, err, ErrMalformedTemplate)

	_, err = buildSlots(&Template{StartMinutes: -10, EndMinutes: 60}, nil)
	assert.ErrorIs(t, err, ErrMalformedTemplate)
}

func TestParseClock(t *testing.T) {
	m, err := ParseClock("08:30")
	require.NoError(t, err)
	assert.Equal(t, 510, m)

	m, err = ParseClock("7:30")
	require.NoError(t, err)
	assert.Equal(t, 450, m)

	for _, bad := range []string{"25:00", "nope", "12:34:56", "7: 5", "08:30Z", ""} {
		_, err = ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "08:05", FormatClock(485))
	assert.Equal(t, "00:00", FormatClock(0))
	assert.Equal(t, "23:59", FormatClock(23*60+59))
}
