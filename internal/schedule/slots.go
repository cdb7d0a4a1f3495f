package schedule

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrMalformedTemplate = errors.New("schedule template has an invalid time window")
)

// buildSlots expands a template into ordered slots for one date. Adjacent
// slot starts are spaced by slot+buffer minutes and no slot may intersect
// the break window [break_start, break_end). A slot is marked booked when an
// appointment starts at exactly its start minute.
func buildSlots(tpl *Template, booked map[int]uuid.UUID) ([]Slot, error) {
	if tpl.StartMinutes < 0 || tpl.EndMinutes <= tpl.StartMinutes {
		return nil, ErrMalformedTemplate
	}

	size := tpl.SlotMinutes
	if size <= 0 {
		size = DefaultSlotMinutes
	}
	gap := tpl.BufferMinutes
	if gap < 0 {
		gap = DefaultBufferMinutes
	}

	slots := make([]Slot, 0, (tpl.EndMinutes-tpl.StartMinutes)/(size+gap)+1)
	for cursor := tpl.StartMinutes; cursor+size <= tpl.EndMinutes; cursor += size + gap {
		if overlapsBreak(tpl, cursor, cursor+size) {
			continue
		}

		slot := Slot{
			Start:        FormatClock(cursor),
			End:          FormatClock(cursor + size),
			StartMinutes: cursor,
			EndMinutes:   cursor + size,
			Available:    true,
		}

		if id, ok := booked[cursor]; ok {
			apptID := id
			slot.Available = false
			slot.AppointmentID = &apptID
		}

		slots = append(slots, slot)
	}

	return slots, nil
}

func overlapsBreak(tpl *Template, from, to int) bool {
	if tpl.BreakStartMinutes == nil || tpl.BreakEndMinutes == nil {
		return false
	}
	return from < *tpl.BreakEndMinutes && *tpl.BreakStartMinutes < to
}

func summarize(date string, slots []Slot) *DaySlots {
	day := &DaySlots{
		Date:  date,
		Slots: slots,
		Total: len(slots),
	}
	for _, s := range slots {
		if s.Available {
			day.AvailableCount++
		} else {
			day.BookedCount++
		}
	}
	return day
}
