package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const dateFormat = "2006-01-02"

var (
	ErrInvalidTemplate = errors.New("invalid schedule template")
	ErrSlotNotBookable = errors.New("requested time is not a bookable slot")
	ErrSlotBooked      = errors.New("requested slot is already booked")
)

type Service struct {
	templates    Repository
	appointments AppointmentSource
	log          zerolog.Logger
}

func NewService(templates Repository, appointments AppointmentSource, log zerolog.Logger) *Service {
	return &Service{
		templates:    templates,
		appointments: appointments,
		log:          log.With().Str("component", "schedule").Logger(),
	}
}

// DaySlots generates the agenda for one calendar date. The weekday comes from
// the date's own calendar fields, never from a UTC-normalized timestamp, so a
// Monday stays a Monday across midnight boundaries. A missing template is a
// normal empty result, not an error.
func (s *Service) DaySlots(ctx context.Context, professionalID, healthUnitID uuid.UUID, date time.Time) (*DaySlots, error) {
	tpl, err := s.templates.GetByWeekday(ctx, professionalID, healthUnitID, date.Weekday())
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			return summarize(date.Format(dateFormat), []Slot{}), nil
		}
		return nil, fmt.Errorf("load template: %w", err)
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	bookedTimes, err := s.appointments.ListBookedTimes(ctx, professionalID, healthUnitID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("load booked times: %w", err)
	}

	booked := make(map[int]uuid.UUID, len(bookedTimes))
	for _, b := range bookedTimes {
		booked[b.StartMinutes] = b.AppointmentID
	}

	slots, err := buildSlots(tpl, booked)
	if err != nil {
		return nil, err
	}

	return summarize(date.Format(dateFormat), slots), nil
}

// NextAvailableDays scans forward from the given date and keeps only days
// that still have at least one free slot. The window is capped at 60 days.
func (s *Service) NextAvailableDays(ctx context.Context, professionalID, healthUnitID uuid.UUID, from time.Time, days int) ([]DayAvailability, error) {
	if days <= 0 {
		days = 7
	}
	if days > 60 {
		days = 60
	}

	result := make([]DayAvailability, 0, days)
	for i := 0; i < days; i++ {
		date := from.AddDate(0, 0, i)

		day, err := s.DaySlots(ctx, professionalID, healthUnitID, date)
		if err != nil {
			return nil, err
		}
		if day.AvailableCount == 0 {
			continue
		}

		result = append(result, DayAvailability{
			Date:           day.Date,
			Weekday:        date.Weekday().String(),
			AvailableCount: day.AvailableCount,
		})
	}

	return result, nil
}

// ValidateSlot re-generates the agenda for the instant's date and checks that
// the exact time exists and is free. Slot lists previously handed to clients
// are never trusted at booking time.
func (s *Service) ValidateSlot(ctx context.Context, professionalID, healthUnitID uuid.UUID, at time.Time) error {
	day, err := s.DaySlots(ctx, professionalID, healthUnitID, at)
	if err != nil {
		return err
	}

	want := MinutesOfDay(at)
	for _, slot := range day.Slots {
		if slot.StartMinutes == want {
			if !slot.Available {
				return ErrSlotBooked
			}
			return nil
		}
	}

	return ErrSlotNotBookable
}

// CreateTemplate validates and stores a weekly availability window.
func (s *Service) CreateTemplate(ctx context.Context, tpl Template) (*Template, error) {
	if tpl.Weekday < time.Sunday || tpl.Weekday > time.Saturday {
		return nil, fmt.Errorf("%w: weekday must be 0-6", ErrInvalidTemplate)
	}
	if tpl.StartMinutes < 0 || tpl.EndMinutes <= tpl.StartMinutes {
		return nil, fmt.Errorf("%w: start_time must come before end_time", ErrInvalidTemplate)
	}
	if tpl.SlotMinutes == 0 {
		tpl.SlotMinutes = DefaultSlotMinutes
	}
	if tpl.SlotMinutes < 0 {
		return nil, fmt.Errorf("%w: slot_duration_min must be positive", ErrInvalidTemplate)
	}
	// Zero is a legitimate buffer, it means back-to-back slots.
	if tpl.BufferMinutes < 0 {
		return nil, fmt.Errorf("%w: buffer_min must not be negative", ErrInvalidTemplate)
	}

	if (tpl.BreakStartMinutes == nil) != (tpl.BreakEndMinutes == nil) {
		return nil, fmt.Errorf("%w: break window needs both start and end", ErrInvalidTemplate)
	}
	if tpl.BreakStartMinutes != nil {
		if *tpl.BreakStartMinutes >= *tpl.BreakEndMinutes {
			return nil, fmt.Errorf("%w: break_start must come before break_end", ErrInvalidTemplate)
		}
		if *tpl.BreakStartMinutes < tpl.StartMinutes || *tpl.BreakEndMinutes > tpl.EndMinutes {
			return nil, fmt.Errorf("%w: break window must fit inside the availability window", ErrInvalidTemplate)
		}
	}

	created, err := s.templates.Create(ctx, &tpl)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("professional_id", created.ProfessionalID.String()).
		Str("health_unit_id", created.HealthUnitID.String()).
		Int("weekday", int(created.Weekday)).
		Msg("schedule template created")

	return created, nil
}

func (s *Service) ListTemplates(ctx context.Context, professionalID uuid.UUID) ([]Template, error) {
	templates, err := s.templates.ListByProfessional(ctx, professionalID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}
