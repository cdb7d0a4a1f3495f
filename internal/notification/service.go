package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kxtukI/med.sys-sub000/internal/appointment"
	"github.com/kxtukI/med.sys-sub000/internal/clinic"
	"github.com/kxtukI/med.sys-sub000/internal/config"
	"github.com/kxtukI/med.sys-sub000/internal/sms"
)

const dispatchBatchLimit = 200

var (
	ErrNotResendable = errors.New("only failed notifications can be resent")
)

type Service struct {
	repo         Repository
	appointments appointment.Repository
	clinic       clinic.Repository
	gateway      sms.Gateway
	cfg          config.Config
	log          zerolog.Logger
	now          func() time.Time
}

func NewService(
	repo Repository,
	appointments appointment.Repository,
	clinicRepo clinic.Repository,
	gateway sms.Gateway,
	cfg config.Config,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:         repo,
		appointments: appointments,
		clinic:       clinicRepo,
		gateway:      gateway,
		cfg:          cfg,
		log:          log.With().Str("component", "notification").Logger(),
		now:          time.Now,
	}
}

// SetNow overrides the clock for tests.
func (s *Service) SetNow(now func() time.Time) {
	s.now = now
}

// ScheduleReminders creates the three-row reminder cascade for a fresh
// booking: 24 hours before, 08:00 on the appointment day, and one hour
// before. Called outside the booking transaction; the caller treats any
// error as non-fatal.
func (s *Service) ScheduleReminders(ctx context.Context, d *appointment.Detail) error {
	t := d.DateTime
	morning := time.Date(t.Year(), t.Month(), t.Day(), 8, 0, 0, 0, t.Location())

	message := reminderMessage(d)
	apptID := d.ID

	cascade := []struct {
		typ Type
		at  time.Time
	}{
		{TypeReminderDayBefore, t.Add(-24 * time.Hour)},
		{TypeReminderMorning, morning},
		{TypeReminderHour, t.Add(-time.Hour)},
	}

	rows := make([]Notification, 0, len(cascade))
	for _, c := range cascade {
		rows = append(rows, Notification{
			TargetType:    TargetPatient,
			TargetID:      d.PatientID,
			AppointmentID: &apptID,
			Type:          c.typ,
			Message:       message,
			Channel:       ChannelSMS,
			Status:        StatusPending,
			ScheduledFor:  c.at,
		})
	}

	if err := s.repo.CreateBatch(ctx, rows); err != nil {
		return fmt.Errorf("schedule reminders: %w", err)
	}

	s.log.Info().
		Str("appointment_id", apptID.String()).
		Msg("reminder cascade scheduled")

	return nil
}

// DispatchDue sends every pending notification whose time has come. One
// row's failure is recorded on the row and never stops the batch. A failed
// row stays failed; there is no automatic retry.
func (s *Service) DispatchDue(ctx context.Context) error {
	now := s.now()

	due, err := s.repo.FindDuePending(ctx, now, dispatchBatchLimit)
	if err != nil {
		return fmt.Errorf("find due notifications: %w", err)
	}

	for _, n := range due {
		s.dispatchRow(ctx, n)
	}

	if len(due) > 0 {
		s.log.Info().Int("count", len(due)).Msg("dispatch cycle complete")
	}

	return nil
}

func (s *Service) dispatchRow(ctx context.Context, n Notification) {
	phone, err := s.resolvePhone(ctx, n)
	if err != nil {
		s.fail(ctx, n.ID, err.Error())
		return
	}

	// Bound the gateway call so one slow send cannot hang the batch.
	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	err = s.gateway.Send(sendCtx, phone, n.Message)
	cancel()
	if err != nil {
		s.fail(ctx, n.ID, err.Error())
		return
	}

	sent, err := s.repo.MarkSent(ctx, n.ID, s.now())
	if err != nil {
		s.log.Error().Err(err).Str("notification_id", n.ID.String()).Msg("mark sent failed")
		return
	}
	if !sent {
		s.log.Warn().Str("notification_id", n.ID.String()).Msg("notification was already sent")
	}
}

func (s *Service) resolvePhone(ctx context.Context, n Notification) (string, error) {
	var phone *string

	switch n.TargetType {
	case TargetPatient:
		patient, err := s.clinic.GetPatientByID(ctx, n.TargetID)
		if err != nil {
			return "", fmt.Errorf("resolve patient: %w", err)
		}
		phone = patient.Phone
	case TargetProfessional:
		professional, err := s.clinic.GetProfessionalByID(ctx, n.TargetID)
		if err != nil {
			return "", fmt.Errorf("resolve professional: %w", err)
		}
		phone = professional.Phone
	default:
		return "", fmt.Errorf("unknown target type %q", n.TargetType)
	}

	if phone == nil || *phone == "" {
		return "", errors.New("no phone number on file")
	}
	return *phone, nil
}

func (s *Service) fail(ctx context.Context, id uuid.UUID, note string) {
	s.log.Warn().Str("notification_id", id.String()).Str("reason", note).Msg("notification failed")
	if err := s.repo.MarkFailed(ctx, id, note); err != nil {
		s.log.Error().Err(err).Str("notification_id", id.String()).Msg("mark failed errored")
	}
}

// EscalateLate scans for appointments still scheduled past the grace period
// and issues at most one token-bearing late notification each. The
// appointment itself is left untouched; the patient must act via the
// cancellation link.
func (s *Service) EscalateLate(ctx context.Context) error {
	cutoff := s.now().Add(-s.cfg.GracePeriod)

	late, err := s.appointments.FindLateScheduled(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("find late appointments: %w", err)
	}

	for _, appt := range late {
		if err := s.escalateOne(ctx, appt); err != nil {
			s.log.Error().Err(err).
				Str("appointment_id", appt.ID.String()).
				Msg("escalation failed")
		}
	}

	return nil
}

func (s *Service) escalateOne(ctx context.Context, appt appointment.Appointment) error {
	exists, err := s.repo.HasEscalation(ctx, appt.ID)
	if err != nil {
		return fmt.Errorf("check escalation: %w", err)
	}
	if exists {
		return nil
	}

	detail, err := s.appointments.GetDetail(ctx, appt.ID)
	if err != nil {
		return fmt.Errorf("load appointment detail: %w", err)
	}

	token := uuid.NewString()
	link := fmt.Sprintf("%s/cancel-by-token/%s?token=%s", s.cfg.CancelLinkBaseURL, appt.ID, token)

	apptID := appt.ID
	_, err = s.repo.Create(ctx, &Notification{
		TargetType:    TargetPatient,
		TargetID:      appt.PatientID,
		AppointmentID: &apptID,
		Type:          TypeLate,
		Message:       lateMessage(detail, link),
		Channel:       ChannelSMS,
		Status:        StatusPending,
		ScheduledFor:  s.now(),
		Token:         &token,
	})
	if err != nil {
		return fmt.Errorf("create late notification: %w", err)
	}

	s.log.Info().
		Str("appointment_id", appt.ID.String()).
		Msg("late appointment escalated")

	return nil
}

// Resend re-attempts delivery of a failed notification. This is the only
// path out of the failed state.
func (s *Service) Resend(ctx context.Context, id uuid.UUID) (*Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Status != StatusFailed {
		return nil, ErrNotResendable
	}

	s.dispatchRow(ctx, *n)

	return s.repo.GetByID(ctx, id)
}

func reminderMessage(d *appointment.Detail) string {
	return fmt.Sprintf(
		"Hello %s, you have an appointment with %s at %s on %s at %s.",
		d.Patient.Name,
		d.Professional.Name,
		d.HealthUnit.Name,
		d.DateTime.Format("2006-01-02"),
		d.DateTime.Format("15:04"),
	)
}

func lateMessage(d *appointment.Detail, link string) string {
	return fmt.Sprintf(
		"Hello %s, your appointment at %s scheduled for %s %s has passed without check-in. If you cannot attend, cancel it here: %s",
		d.Patient.Name,
		d.HealthUnit.Name,
		d.DateTime.Format("2006-01-02"),
		d.DateTime.Format("15:04"),
		link,
	)
}
