package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kxtukI/med.sys-sub000/internal/clinic"
	"github.com/kxtukI/med.sys-sub000/internal/redislock"
	"github.com/kxtukI/med.sys-sub000/internal/schedule"
)

const (
	dateFormat        = "2006-01-02"
	maxCalendarWindow = 30
)

var (
	ErrPastDateTime            = errors.New("appointment time is in the past")
	ErrOutsideWorkingHours     = errors.New("requested time is outside the unit working hours")
	ErrProfessionalNotAtUnit   = errors.New("professional not available at this unit")
	ErrSlotTaken               = errors.New("slot already has an appointment")
	ErrBookingContended        = errors.New("slot is currently being booked, please retry")
	ErrAppointmentTerminal     = errors.New("appointment is already completed or canceled")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrInvalidToken            = errors.New("invalid cancellation token")
	ErrCalendarWindow          = errors.New("calendar window must span between 1 and 30 days")
)

// ReferralRequiredError rejects a specialist booking without a usable
// referral. It carries the blocking specialty.
type ReferralRequiredError struct {
	Specialty string
}

func (e *ReferralRequiredError) Error() string {
	return fmt.Sprintf("an approved referral for %s is required", e.Specialty)
}

// SlotValidator re-checks that a requested instant is a free generated slot.
// Implemented by the schedule service.
type SlotValidator interface {
	ValidateSlot(ctx context.Context, professionalID, healthUnitID uuid.UUID, at time.Time) error
}

// ReminderScheduler creates the reminder cascade after a booking commits.
// Implemented by the notification service.
type ReminderScheduler interface {
	ScheduleReminders(ctx context.Context, detail *Detail) error
}

// TokenChecker matches an escalation token against the one issued for an
// appointment. Implemented by the notification repository.
type TokenChecker interface {
	MatchEscalationToken(ctx context.Context, appointmentID uuid.UUID, token string) (bool, error)
}

type Service struct {
	repo      Repository
	clinic    clinic.Repository
	slots     SlotValidator
	locker    redislock.Locker
	reminders ReminderScheduler
	tokens    TokenChecker
	log       zerolog.Logger
	now       func() time.Time
}

func NewService(
	repo Repository,
	clinicRepo clinic.Repository,
	slots SlotValidator,
	locker redislock.Locker,
	reminders ReminderScheduler,
	tokens TokenChecker,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		clinic:    clinicRepo,
		slots:     slots,
		locker:    locker,
		reminders: reminders,
		tokens:    tokens,
		log:       log.With().Str("component", "appointment").Logger(),
		now:       time.Now,
	}
}

// SetNow overrides the clock for tests.
func (s *Service) SetNow(now func() time.Time) {
	s.now = now
}

type BookParams struct {
	PatientID      uuid.UUID
	ProfessionalID uuid.UUID
	HealthUnitID   uuid.UUID
	DateTime       time.Time
	Specialty      string
}

// Book runs the ordered validation chain and commits the appointment.
// Validations fail fast and in a fixed order: past check, unit working
// hours, professional-unit association, exact-datetime collision, referral
// gate. The collision re-check and the insert run inside a booking lock so
// two concurrent requests for the same slot cannot both commit. The reminder
// cascade is scheduled after the transaction and never fails the booking.
func (s *Service) Book(ctx context.Context, p BookParams) (*Detail, error) {
	if p.DateTime.Before(s.now()) {
		return nil, ErrPastDateTime
	}

	patient, err := s.clinic.GetPatientByID(ctx, p.PatientID)
	if err != nil {
		if errors.Is(err, clinic.ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	unit, professional, err := s.checkTimeAndAssociation(ctx, p.ProfessionalID, p.HealthUnitID, p.DateTime)
	if err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetActiveAt(ctx, p.ProfessionalID, p.DateTime); err != nil && !errors.Is(err, ErrAppointmentNotFound) {
		return nil, fmt.Errorf("collision check: %w", err)
	} else if existing != nil {
		return nil, ErrSlotTaken
	}

	specialty := p.Specialty
	if specialty == "" {
		specialty = clinic.DefaultSpecialty
	}

	var referralID *uuid.UUID
	if specialty != clinic.DefaultSpecialty {
		// Expiry is judged at booking time. A referral valid today may book
		// an appointment past its own valid_until date.
		referral, err := s.clinic.FindApprovedReferral(ctx, p.PatientID, specialty, s.now())
		if err != nil {
			if errors.Is(err, clinic.ErrReferralNotFound) {
				return nil, &ReferralRequiredError{Specialty: specialty}
			}
			return nil, fmt.Errorf("load referral: %w", err)
		}
		referralID = &referral.ID
	}

	var created *Appointment

	err = s.locker.WithBookingLock(ctx, p.ProfessionalID, p.DateTime, func(lockCtx context.Context) error {
		// Authoritative re-checks inside the critical section.
		if err := s.ensureSlotFree(lockCtx, p.ProfessionalID, p.HealthUnitID, p.DateTime); err != nil {
			return err
		}

		appt := &Appointment{
			PatientID:      p.PatientID,
			ProfessionalID: p.ProfessionalID,
			HealthUnitID:   p.HealthUnitID,
			DateTime:       p.DateTime,
			Specialty:      specialty,
			Status:         StatusScheduled,
		}

		var err error
		created, err = s.repo.CreateScheduled(lockCtx, appt, referralID)
		if err != nil {
			if errors.Is(err, ErrReferralUnavailable) {
				return &ReferralRequiredError{Specialty: specialty}
			}
			return fmt.Errorf("create appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, redislock.ErrLockNotAcquired) {
			return nil, ErrBookingContended
		}
		return nil, err
	}

	detail := &Detail{
		Appointment:  *created,
		Patient:      patient,
		Professional: professional,
		HealthUnit:   unit,
	}

	// Best effort: a failure here must not fail the booking.
	if s.reminders != nil {
		if err := s.reminders.ScheduleReminders(ctx, detail); err != nil {
			s.log.Warn().Err(err).
				Str("appointment_id", created.ID.String()).
				Msg("could not schedule reminder cascade")
		}
	}

	s.log.Info().
		Str("appointment_id", created.ID.String()).
		Str("professional_id", p.ProfessionalID.String()).
		Time("date_time", p.DateTime).
		Msg("appointment booked")

	return detail, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Detail, error) {
	detail, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	return detail, nil
}

type UpdateParams struct {
	DateTime  *time.Time
	Specialty *string
	Status    *Status
}

// Update applies a partial update to a still-scheduled appointment. A time
// change re-runs the full time validation chain against the new instant.
func (s *Service) Update(ctx context.Context, id uuid.UUID, p UpdateParams) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status.Terminal() {
		return nil, ErrAppointmentTerminal
	}

	newDateTime := appt.DateTime
	newSpecialty := appt.Specialty
	timeChanged := false

	if p.DateTime != nil && !p.DateTime.Equal(appt.DateTime) {
		newDateTime = *p.DateTime
		timeChanged = true
	}
	if p.Specialty != nil && *p.Specialty != "" {
		newSpecialty = *p.Specialty
	}

	current := appt

	if timeChanged {
		if newDateTime.Before(s.now()) {
			return nil, ErrPastDateTime
		}
		if _, _, err := s.checkTimeAndAssociation(ctx, appt.ProfessionalID, appt.HealthUnitID, newDateTime); err != nil {
			return nil, err
		}

		err = s.locker.WithBookingLock(ctx, appt.ProfessionalID, newDateTime, func(lockCtx context.Context) error {
			if err := s.ensureSlotFree(lockCtx, appt.ProfessionalID, appt.HealthUnitID, newDateTime); err != nil {
				return err
			}

			updated, err := s.repo.UpdateFields(lockCtx, id, newDateTime, newSpecialty)
			if err != nil {
				if errors.Is(err, ErrAppointmentNotFound) {
					return ErrAppointmentTerminal
				}
				return fmt.Errorf("reschedule appointment: %w", err)
			}
			current = updated
			return nil
		})
		if err != nil {
			if errors.Is(err, redislock.ErrLockNotAcquired) {
				return nil, ErrBookingContended
			}
			return nil, err
		}
	} else if p.Specialty != nil && newSpecialty != appt.Specialty {
		updated, err := s.repo.UpdateFields(ctx, id, newDateTime, newSpecialty)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return nil, ErrAppointmentTerminal
			}
			return nil, err
		}
		current = updated
	}

	if p.Status != nil && *p.Status != current.Status {
		if *p.Status != StatusCompleted && *p.Status != StatusCanceled {
			return nil, ErrInvalidStatusTransition
		}
		updated, err := s.repo.UpdateStatus(ctx, id, StatusScheduled, *p.Status)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return nil, ErrAppointmentTerminal
			}
			return nil, err
		}
		current = updated
	}

	return current, nil
}

// Cancel soft-cancels a scheduled appointment. A consumed referral stays
// used; reverting it is a product decision, not ours to take here.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status.Terminal() {
		return nil, ErrAppointmentTerminal
	}

	canceled, err := s.repo.UpdateStatus(ctx, id, StatusScheduled, StatusCanceled)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrAppointmentTerminal
		}
		return nil, err
	}

	s.log.Info().Str("appointment_id", id.String()).Msg("appointment canceled")
	return canceled, nil
}

// Complete marks a scheduled appointment as done.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status.Terminal() {
		return nil, ErrAppointmentTerminal
	}

	completed, err := s.repo.UpdateStatus(ctx, id, StatusScheduled, StatusCompleted)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrAppointmentTerminal
		}
		return nil, err
	}
	return completed, nil
}

// Calendar buckets the professional's appointments per day over a window of
// at most 30 days, inclusive of both endpoints.
func (s *Service) Calendar(ctx context.Context, professionalID uuid.UUID, start, end time.Time) ([]DayAgenda, error) {
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location())

	if endDay.Before(startDay) {
		return nil, ErrCalendarWindow
	}
	// Count calendar days, not elapsed hours. A window crossing a DST
	// shift is not 23 or 25 hours longer than it looks.
	days := 0
	for d := startDay; !d.After(endDay); d = d.AddDate(0, 0, 1) {
		days++
		if days > maxCalendarWindow {
			return nil, ErrCalendarWindow
		}
	}

	appts, err := s.repo.ListBetween(ctx, professionalID, startDay, endDay.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	buckets := make(map[string][]Appointment, days)
	for _, a := range appts {
		key := a.DateTime.Format(dateFormat)
		buckets[key] = append(buckets[key], a)
	}

	agenda := make([]DayAgenda, 0, days)
	for i := 0; i < days; i++ {
		date := startDay.AddDate(0, 0, i).Format(dateFormat)
		dayAppts := buckets[date]

		stats := DayStats{Total: len(dayAppts)}
		for _, a := range dayAppts {
			switch a.Status {
			case StatusScheduled:
				stats.Scheduled++
			case StatusCompleted:
				stats.Completed++
			case StatusCanceled:
				stats.Canceled++
			}
		}

		agenda = append(agenda, DayAgenda{
			Date:         date,
			Appointments: dayAppts,
			Stats:        stats,
		})
	}

	return agenda, nil
}

// CancelByToken consumes an escalation token. It succeeds only while the
// appointment is still scheduled, which is what makes the token single-use.
func (s *Service) CancelByToken(ctx context.Context, appointmentID uuid.UUID, token string) (*Appointment, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	appt, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	ok, err := s.tokens.MatchEscalationToken(ctx, appointmentID, token)
	if err != nil {
		return nil, fmt.Errorf("match escalation token: %w", err)
	}
	if !ok {
		return nil, ErrInvalidToken
	}

	if appt.Status != StatusScheduled {
		return nil, ErrAppointmentTerminal
	}

	canceled, err := s.repo.UpdateStatus(ctx, appointmentID, StatusScheduled, StatusCanceled)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrAppointmentTerminal
		}
		return nil, err
	}

	s.log.Info().Str("appointment_id", appointmentID.String()).Msg("appointment canceled by token")
	return canceled, nil
}

// checkTimeAndAssociation loads the unit and the professional, checks the
// unit's working hours and the professional's active association at the
// instant. Shared by booking and reschedule.
func (s *Service) checkTimeAndAssociation(ctx context.Context, professionalID, healthUnitID uuid.UUID, at time.Time) (*clinic.HealthUnit, *clinic.Professional, error) {
	unit, err := s.clinic.GetHealthUnitByID(ctx, healthUnitID)
	if err != nil {
		if errors.Is(err, clinic.ErrHealthUnitNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("load health unit: %w", err)
	}

	minutes := schedule.MinutesOfDay(at)
	if minutes < unit.OpensAtMinutes || minutes >= unit.ClosesAtMinutes {
		return nil, nil, ErrOutsideWorkingHours
	}

	professional, err := s.clinic.GetProfessionalByID(ctx, professionalID)
	if err != nil {
		if errors.Is(err, clinic.ErrProfessionalNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("load professional: %w", err)
	}

	active, err := s.clinic.HasActiveAssociation(ctx, professionalID, healthUnitID, at)
	if err != nil {
		return nil, nil, fmt.Errorf("check association: %w", err)
	}
	if !active {
		return nil, nil, ErrProfessionalNotAtUnit
	}

	return unit, professional, nil
}

func (s *Service) ensureSlotFree(ctx context.Context, professionalID, healthUnitID uuid.UUID, at time.Time) error {
	if err := s.slots.ValidateSlot(ctx, professionalID, healthUnitID, at); err != nil {
		if errors.Is(err, schedule.ErrSlotBooked) {
			return ErrSlotTaken
		}
		return err
	}

	existing, err := s.repo.GetActiveAt(ctx, professionalID, at)
	if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
		return fmt.Errorf("collision check: %w", err)
	}
	if existing != nil {
		return ErrSlotTaken
	}

	return nil
}
