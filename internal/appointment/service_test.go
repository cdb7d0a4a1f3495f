package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kxtukI/med.sys-sub000/internal/clinic"
	"github.com/kxtukI/med.sys-sub000/internal/redislock"
	"github.com/kxtukI/med.sys-sub000/internal/schedule"
)

// --- fakes ---

type fakeClinicRepo struct {
	patients      map[uuid.UUID]*clinic.Patient
	professionals map[uuid.UUID]*clinic.Professional
	units         map[uuid.UUID]*clinic.HealthUnit
	associations  map[uuid.UUID]map[uuid.UUID]bool
	referrals     map[uuid.UUID]*clinic.Referral
}

func newFakeClinicRepo() *fakeClinicRepo {
	return &fakeClinicRepo{
		patients:      make(map[uuid.UUID]*clinic.Patient),
		professionals: make(map[uuid.UUID]*clinic.Professional),
		units:         make(map[uuid.UUID]*clinic.HealthUnit),
		associations:  make(map[uuid.UUID]map[uuid.UUID]bool),
		referrals:     make(map[uuid.UUID]*clinic.Referral),
	}
}

func (f *fakeClinicRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*clinic.Patient, error) {
	if p, ok := f.patients[id]; ok {
		return p, nil
	}
	return nil, clinic.ErrPatientNotFound
}

func (f *fakeClinicRepo) GetProfessionalByID(_ context.Context, id uuid.UUID) (*clinic.Professional, error) {
	if p, ok := f.professionals[id]; ok {
		return p, nil
	}
	return nil, clinic.ErrProfessionalNotFound
}

func (f *fakeClinicRepo) GetHealthUnitByID(_ context.Context, id uuid.UUID) (*clinic.HealthUnit, error) {
	if u, ok := f.units[id]; ok {
		return u, nil
	}
	return nil, clinic.ErrHealthUnitNotFound
}

func (f *fakeClinicRepo) HasActiveAssociation(_ context.Context, professionalID, healthUnitID uuid.UUID, _ time.Time) (bool, error) {
	return f.associations[professionalID][healthUnitID], nil
}

func (f *fakeClinicRepo) FindApprovedReferral(_ context.Context, patientID uuid.UUID, specialty string, at time.Time) (*clinic.Referral, error) {
	for _, r := range f.referrals {
		if r.PatientID == patientID && r.ToSpecialty == specialty && r.Usable(at) {
			return r, nil
		}
	}
	return nil, clinic.ErrReferralNotFound
}

type fakeApptRepo struct {
	clinic *fakeClinicRepo
	appts  map[uuid.UUID]*Appointment
}

func newFakeApptRepo(c *fakeClinicRepo) *fakeApptRepo {
	return &fakeApptRepo{clinic: c, appts: make(map[uuid.UUID]*Appointment)}
}

func (f *fakeApptRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	if a, ok := f.appts[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, ErrAppointmentNotFound
}

func (f *fakeApptRepo) GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	a, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{
		Appointment:  *a,
		Patient:      f.clinic.patients[a.PatientID],
		Professional: f.clinic.professionals[a.ProfessionalID],
		HealthUnit:   f.clinic.units[a.HealthUnitID],
	}, nil
}

func (f *fakeApptRepo) GetActiveAt(_ context.Context, professionalID uuid.UUID, at time.Time) (*Appointment, error) {
	for _, a := range f.appts {
		if a.ProfessionalID == professionalID && a.DateTime.Equal(at) && a.Status != StatusCanceled {
			copied := *a
			return &copied, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (f *fakeApptRepo) CreateScheduled(_ context.Context, appt *Appointment, consumeReferralID *uuid.UUID) (*Appointment, error) {
	if consumeReferralID != nil {
		r, ok := f.clinic.referrals[*consumeReferralID]
		if !ok || r.Status != clinic.ReferralApproved {
			return nil, ErrReferralUnavailable
		}
		r.Status = clinic.ReferralUsed
	}

	created := *appt
	created.ID = uuid.New()
	f.appts[created.ID] = &created

	copied := created
	return &copied, nil
}

func (f *fakeApptRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	a, ok := f.appts[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	copied := *a
	return &copied, nil
}

func (f *fakeApptRepo) UpdateFields(_ context.Context, id uuid.UUID, dateTime time.Time, specialty string) (*Appointment, error) {
	a, ok := f.appts[id]
	if !ok || a.Status != StatusScheduled {
		return nil, ErrAppointmentNotFound
	}
	a.DateTime = dateTime
	a.Specialty = specialty
	copied := *a
	return &copied, nil
}

func (f *fakeApptRepo) ListBetween(_ context.Context, professionalID uuid.UUID, start, end time.Time) ([]Appointment, error) {
	var out []Appointment
	for _, a := range f.appts {
		if a.ProfessionalID == professionalID && !a.DateTime.Before(start) && a.DateTime.Before(end) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeApptRepo) FindLateScheduled(_ context.Context, cutoff time.Time) ([]Appointment, error) {
	var out []Appointment
	for _, a := range f.appts {
		if a.Status == StatusScheduled && !a.DateTime.After(cutoff) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeApptRepo) ListBookedTimes(_ context.Context, professionalID, healthUnitID uuid.UUID, dayStart, dayEnd time.Time) ([]schedule.BookedTime, error) {
	var out []schedule.BookedTime
	for _, a := range f.appts {
		if a.ProfessionalID == professionalID && a.HealthUnitID == healthUnitID &&
			a.Status != StatusCanceled && !a.DateTime.Before(dayStart) && a.DateTime.Before(dayEnd) {
			out = append(out, schedule.BookedTime{
				StartMinutes:  schedule.MinutesOfDay(a.DateTime),
				AppointmentID: a.ID,
			})
		}
	}
	return out, nil
}

type stubSlotValidator struct {
	err error
}

func (s *stubSlotValidator) ValidateSlot(context.Context, uuid.UUID, uuid.UUID, time.Time) error {
	return s.err
}

type passthroughLocker struct{}

func (passthroughLocker) WithBookingLock(ctx context.Context, _ uuid.UUID, _ time.Time, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type contendedLocker struct{}

func (contendedLocker) WithBookingLock(context.Context, uuid.UUID, time.Time, func(ctx context.Context) error) error {
	return redislock.ErrLockNotAcquired
}

type captureReminders struct {
	details []*Detail
	err     error
}

func (c *captureReminders) ScheduleReminders(_ context.Context, d *Detail) error {
	if c.err != nil {
		return c.err
	}
	c.details = append(c.details, d)
	return nil
}

type stubTokenChecker struct {
	tokens map[uuid.UUID]string
}

func (s *stubTokenChecker) MatchEscalationToken(_ context.Context, appointmentID uuid.UUID, token string) (bool, error) {
	return s.tokens[appointmentID] == token, nil
}

// --- fixture ---

type fixture struct {
	svc       *Service
	clinic    *fakeClinicRepo
	repo      *fakeApptRepo
	slots     *stubSlotValidator
	reminders *captureReminders
	tokens    *stubTokenChecker

	patientID      uuid.UUID
	professionalID uuid.UUID
	unitID         uuid.UUID
	now            time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		clinic:    newFakeClinicRepo(),
		slots:     &stubSlotValidator{},
		reminders: &captureReminders{},
		tokens:    &stubTokenChecker{tokens: make(map[uuid.UUID]string)},

		patientID:      uuid.New(),
		professionalID: uuid.New(),
		unitID:         uuid.New(),
		now:            time.Date(2025, 12, 1, 12, 0, 0, 0, time.Local),
	}
	f.repo = newFakeApptRepo(f.clinic)

	phone := "+15550100"
	f.clinic.patients[f.patientID] = &clinic.Patient{ID: f.patientID, Name: "Ana Souza", Phone: &phone}
	f.clinic.professionals[f.professionalID] = &clinic.Professional{ID: f.professionalID, Name: "Dr. Lima", Specialty: clinic.DefaultSpecialty}
	f.clinic.units[f.unitID] = &clinic.HealthUnit{
		ID:              f.unitID,
		Name:            "Central Unit",
		OpensAtMinutes:  7 * 60,
		ClosesAtMinutes: 18 * 60,
	}
	f.clinic.associations[f.professionalID] = map[uuid.UUID]bool{f.unitID: true}

	f.svc = NewService(f.repo, f.clinic, f.slots, passthroughLocker{}, f.reminders, f.tokens, zerolog.Nop())
	f.svc.SetNow(func() time.Time { return f.now })
	return f
}

func (f *fixture) bookParams(at time.Time) BookParams {
	return BookParams{
		PatientID:      f.patientID,
		ProfessionalID: f.professionalID,
		HealthUnitID:   f.unitID,
		DateTime:       at,
	}
}

func (f *fixture) addApprovedReferral(specialty string, validUntil *time.Time) uuid.UUID {
	id := uuid.New()
	f.clinic.referrals[id] = &clinic.Referral{
		ID:          id,
		PatientID:   f.patientID,
		ToSpecialty: specialty,
		Status:      clinic.ReferralApproved,
		ValidUntil:  validUntil,
	}
	return id
}

func futureSlot(f *fixture) time.Time {
	return time.Date(2025, 12, 10, 14, 0, 0, 0, time.Local)
}

// --- Book ---

func TestBook_Succeeds(t *testing.T) {
	f := newFixture(t)
	at := futureSlot(f)

	detail, err := f.svc.Book(context.Background(), f.bookParams(at))
	require.NoError(t, err)

	assert.Equal(t, StatusScheduled, detail.Status)
	assert.Equal(t, clinic.DefaultSpecialty, detail.Specialty)
	assert.True(t, detail.DateTime.Equal(at))
	require.NotNil(t, detail.Patient)
	assert.Equal(t, "Ana Souza", detail.Patient.Name)
	require.NotNil(t, detail.Professional)
	require.NotNil(t, detail.HealthUnit)

	require.Len(t, f.reminders.details, 1)
	assert.Equal(t, detail.ID, f.reminders.details[0].ID)
}

func TestBook_PastRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Book(context.Background(), f.bookParams(f.now.Add(-time.Hour)))
	assert.ErrorIs(t, err, ErrPastDateTime)
	assert.Empty(t, f.repo.appts)
}

func TestBook_UnknownPatient(t *testing.T) {
	f := newFixture(t)
	p := f.bookParams(futureSlot(f))
	p.PatientID = uuid.New()

	_, err := f.svc.Book(context.Background(), p)
	assert.ErrorIs(t, err, clinic.ErrPatientNotFound)
}

func TestBook_UnknownUnit(t *testing.T) {
	f := newFixture(t)
	p := f.bookParams(futureSlot(f))
	p.HealthUnitID = uuid.New()

	_, err := f.svc.Book(context.Background(), p)
	assert.ErrorIs(t, err, clinic.ErrHealthUnitNotFound)
}

func TestBook_OutsideWorkingHours(t *testing.T) {
	f := newFixture(t)
	early := time.Date(2025, 12, 10, 6, 0, 0, 0, time.Local)

	_, err := f.svc.Book(context.Background(), f.bookParams(early))
	assert.ErrorIs(t, err, ErrOutsideWorkingHours)

	// Closing time itself is exclusive.
	closing := time.Date(2025, 12, 10, 18, 0, 0, 0, time.Local)
	_, err = f.svc.Book(context.Background(), f.bookParams(closing))
	assert.ErrorIs(t, err, ErrOutsideWorkingHours)
}

func TestBook_UnassociatedUnitFailsBeforeWrite(t *testing.T) {
	f := newFixture(t)
	otherUnit := uuid.New()
	f.clinic.units[otherUnit] = &clinic.HealthUnit{
		ID:              otherUnit,
		Name:            "North Unit",
		OpensAtMinutes:  7 * 60,
		ClosesAtMinutes: 18 * 60,
	}

	p := f.bookParams(futureSlot(f))
	p.HealthUnitID = otherUnit

	_, err := f.svc.Book(context.Background(), p)
	assert.ErrorIs(t, err, ErrProfessionalNotAtUnit)
	assert.Empty(t, f.repo.appts)
	assert.Empty(t, f.reminders.details)
}

func TestBook_SlotCollision(t *testing.T) {
	f := newFixture(t)
	at := futureSlot(f)

	_, err := f.svc.Book(context.Background(), f.bookParams(at))
	require.NoError(t, err)

	otherPatient := uuid.New()
	f.clinic.patients[otherPatient] = &clinic.Patient{ID: otherPatient, Name: "Bruno Reis"}
	p := f.bookParams(at)
	p.PatientID = otherPatient

	_, err = f.svc.Book(context.Background(), p)
	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.Len(t, f.repo.appts, 1)
}

func TestBook_CanceledSlotIsReusable(t *testing.T) {
	f := newFixture(t)
	at := futureSlot(f)

	first, err := f.svc.Book(context.Background(), f.bookParams(at))
	require.NoError(t, err)
	_, err = f.svc.Cancel(context.Background(), first.ID)
	require.NoError(t, err)

	second, err := f.svc.Book(context.Background(), f.bookParams(at))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestBook_SpecialistRequiresReferral(t *testing.T) {
	f := newFixture(t)
	p := f.bookParams(futureSlot(f))
	p.Specialty = "cardiology"

	_, err := f.svc.Book(context.Background(), p)

	var refErr *ReferralRequiredError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, "cardiology", refErr.Specialty)
	assert.Empty(t, f.repo.appts)
}

func TestBook_ReferralConsumedOnce(t *testing.T) {
	f := newFixture(t)
	referralID := f.addApprovedReferral("cardiology", nil)

	p := f.bookParams(futureSlot(f))
	p.Specialty = "cardiology"

	detail, err := f.svc.Book(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "cardiology", detail.Specialty)
	assert.Equal(t, clinic.ReferralUsed, f.clinic.referrals[referralID].Status)

	// The same referral cannot gate a second booking.
	p2 := f.bookParams(futureSlot(f).Add(time.Hour))
	p2.Specialty = "cardiology"

	_, err = f.svc.Book(context.Background(), p2)
	var refErr *ReferralRequiredError
	assert.ErrorAs(t, err, &refErr)
}

func TestBook_ExpiredReferralRejected(t *testing.T) {
	f := newFixture(t)
	expired := f.now.Add(-time.Hour)
	f.addApprovedReferral("cardiology", &expired)

	p := f.bookParams(futureSlot(f))
	p.Specialty = "cardiology"

	_, err := f.svc.Book(context.Background(), p)
	var refErr *ReferralRequiredError
	assert.ErrorAs(t, err, &refErr)
}

func TestBook_ReferralExpiryJudgedAtBookingTime(t *testing.T) {
	f := newFixture(t)

	// Valid for another day, while the appointment is nine days out. The
	// gate checks expiry now, not at the appointment instant.
	validUntil := f.now.Add(24 * time.Hour)
	referralID := f.addApprovedReferral("cardiology", &validUntil)

	p := f.bookParams(futureSlot(f))
	p.Specialty = "cardiology"

	detail, err := f.svc.Book(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "cardiology", detail.Specialty)
	assert.Equal(t, clinic.ReferralUsed, f.clinic.referrals[referralID].Status)
}

func TestBook_LockContention(t *testing.T) {
	f := newFixture(t)
	f.svc = NewService(f.repo, f.clinic, f.slots, contendedLocker{}, f.reminders, f.tokens, zerolog.Nop())
	f.svc.SetNow(func() time.Time { return f.now })

	_, err := f.svc.Book(context.Background(), f.bookParams(futureSlot(f)))
	assert.ErrorIs(t, err, ErrBookingContended)
	assert.Empty(t, f.repo.appts)
}

func TestBook_SlotGridRejection(t *testing.T) {
	f := newFixture(t)
	f.slots.err = schedule.ErrSlotNotBookable

	_, err := f.svc.Book(context.Background(), f.bookParams(futureSlot(f)))
	assert.ErrorIs(t, err, schedule.ErrSlotNotBookable)

	f.slots.err = schedule.ErrSlotBooked
	_, err = f.svc.Book(context.Background(), f.bookParams(futureSlot(f)))
	assert.ErrorIs(t, err, ErrSlotTaken)
}

func TestBook_ReminderFailureDoesNotFailBooking(t *testing.T) {
	f := newFixture(t)
	f.reminders.err = errors.New("notification store down")

	detail, err := f.svc.Book(context.Background(), f.bookParams(futureSlot(f)))
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, detail.Status)
}

// --- Update ---

func TestUpdate_RescheduleRevalidatesNewTime(t *testing.T) {
	f := newFixture(t)
	booked, err := f.svc.Book(context.Background(), f.bookParams(futureSlot(f)))
	require.NoError(t, err)

	early := time.Date(2025, 12, 11, 6, 0, 0, 0, time.Local)
	_, err = f.svc.Update(context.Background(), booked.ID, UpdateParams{DateTime: &early})
	assert.ErrorIs(t, err, ErrOutsideWorkingHours)

	past := f.now.Add(-time.Hour)
	_, err = f.svc.Update(context.Background(), booked.ID, UpdateParams{DateTime: &past})
	assert.ErrorIs(t, err, ErrPastDateTime)

	newTime := time.Date(2025, 12, 11, 9, 0, 0, 0, time.Local)
	updated, err := f.svc.Update(context.Background(), booked.ID, UpdateParams{DateTime: &newTime})
	require.NoError(t, err)
	assert.True(t, updated.DateTime.Equal(newTime))
	assert.Equal(t, StatusScheduled, updated.Status)
}

func TestUpdate_RescheduleOntoTakenSlot(t *testing.T) {
	f := newFixture(t)
	first, err := f.svc.Book(context.Background(), f.bookParams(futureSlot(f)))
	require.NoError(t, err)

	otherPatient := uuid.New()
	f.clinic.patients[otherPatient] = &clinic.Patient{ID: otherPatient, Name: "Bruno Reis"}
	p := f.bookParams(futureSlot(f).Add(time.Hour))
	p.PatientID = otherPatient
	second, err := f.svc.Book(context.Background(), p)
	require.NoError(t, err)

	target := first.DateTime
	_, err = f.svc.Update(context.Background(), second.ID, UpdateParams{DateTime: &target})
	assert.ErrorIs(t, err, ErrSlotTaken)
}

func TestUpdate_TerminalIsImmutable(t *testing.T) {
	f := newFixture(t)
	booked, err := f.svc.Book(context.Background(), f.bookParams(futureSlot(f)))
	require.NoError(t, err)
	_, err = f.svc.Cancel(context.Background(), booked.ID)
	require.NoError(t, err)

	newTime := futureSlot(f).Add(2 * time.Hour)
	_, err = f.svc.Update(context.Background(), booked.ID, UpdateParams{DateTime: &newTime})
	assert.ErrorIs(t, err, ErrAppointmentTerminal)
}

func TestUpdate_StatusTransitions(t *testing.T) {
	f := newFixture(t)
	booked, err := f.svc.Book(context.Background(), f.bookParams(futureSlot(f)))
	require.NoError(t, err)

	bogus := Status("confirmed")
	_, err = f.svc.Update(context.Background(), booked.ID, UpdateParams{Status: &bogus})
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	done := StatusCompleted
	updated, err := f.svc.Update(context.Background(), booked.ID, UpdateParams{Status: &done})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, updated.Status)

	_, err = f.svc.Update(context.Background(), booked.ID, UpdateParams{Status: &done})
	assert.ErrorIs(t, err, ErrAppointmentTerminal)
}

// --- Cancel / Complete ---

func TestCancel(t *testing.T) {
	f := newFixture(t)
	referralID := f.addApprovedReferral("cardiology", nil)

	p := f.bookParams(futureSlot(f))
	p.Specialty = "cardiology"
	booked, err := f.svc.Book(context.Background(), p)
	require.NoError(t, err)

	canceled, err := f.svc.Cancel(context.Background(), booked.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, canceled.Status)

	// The row survives as canceled and the consumed referral stays used.
	stored, err := f.repo.GetByID(context.Background(), booked.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, stored.Status)
	assert.Equal(t, clinic.ReferralUsed, f.clinic.referrals[referralID].Status)

	_, err = f.svc.Cancel(context.Background(), booked.ID)
	assert.ErrorIs(t, err, ErrAppointmentTerminal)
}

func TestCancel_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Cancel(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestComplete(t *testing.T) {
	f := newFixture(t)
	booked, err := f.svc.Book(context.Background(), f.bookParams(futureSlot(f)))
	require.NoError(t, err)

	completed, err := f.svc.Complete(context.Background(), booked.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)

	_, err = f.svc.Complete(context.Background(), booked.ID)
	assert.ErrorIs(t, err, ErrAppointmentTerminal)
}

// --- Calendar ---

func TestCalendar(t *testing.T) {
	f := newFixture(t)

	mon := time.Date(2025, 12, 8, 9, 0, 0, 0, time.Local)
	wed := time.Date(2025, 12, 10, 14, 0, 0, 0, time.Local)

	first, err := f.svc.Book(context.Background(), f.bookParams(mon))
	require.NoError(t, err)
	_, err = f.svc.Book(context.Background(), f.bookParams(wed))
	require.NoError(t, err)
	_, err = f.svc.Cancel(context.Background(), first.ID)
	require.NoError(t, err)

	start := time.Date(2025, 12, 8, 0, 0, 0, 0, time.Local)
	end := time.Date(2025, 12, 12, 0, 0, 0, 0, time.Local)

	agenda, err := f.svc.Calendar(context.Background(), f.professionalID, start, end)
	require.NoError(t, err)

	// Every day in the window shows up, empty days included.
	require.Len(t, agenda, 5)
	assert.Equal(t, "2025-12-08", agenda[0].Date)
	assert.Equal(t, 1, agenda[0].Stats.Total)
	assert.Equal(t, 1, agenda[0].Stats.Canceled)

	assert.Equal(t, "2025-12-09", agenda[1].Date)
	assert.Equal(t, 0, agenda[1].Stats.Total)
	assert.Empty(t, agenda[1].Appointments)

	assert.Equal(t, "2025-12-10", agenda[2].Date)
	assert.Equal(t, 1, agenda[2].Stats.Scheduled)
}

func TestCalendar_WindowBounds(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2025, 12, 8, 0, 0, 0, 0, time.Local)

	_, err := f.svc.Calendar(context.Background(), f.professionalID, start, start.AddDate(0, 0, 40))
	assert.ErrorIs(t, err, ErrCalendarWindow)

	_, err = f.svc.Calendar(context.Background(), f.professionalID, start, start.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, ErrCalendarWindow)

	// A single day is the smallest valid window.
	agenda, err := f.svc.Calendar(context.Background(), f.professionalID, start, start)
	require.NoError(t, err)
	assert.Len(t, agenda, 1)
}

func TestCalendar_WindowAcrossDSTShift(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	f := newFixture(t)

	// 30 calendar days containing the November fall-back Sunday, which
	// adds a wall-clock hour to the window.
	start := time.Date(2025, 10, 15, 0, 0, 0, 0, loc)
	end := time.Date(2025, 11, 13, 0, 0, 0, 0, loc)

	agenda, err := f.svc.Calendar(context.Background(), f.professionalID, start, end)
	require.NoError(t, err)
	require.Len(t, agenda, 30)
	assert.Equal(t, "2025-10-15", agenda[0].Date)
	assert.Equal(t, "2025-11-13", agenda[29].Date)
}

// --- CancelByToken ---

func TestCancelByToken(t *testing.T) {
	f := newFixture(t)
	booked, err := f.svc.Book(context.Background(), f.bookParams(futureSlot(f)))
	require.NoError(t, err)

	token := uuid.NewString()
	f.tokens.tokens[booked.ID] = token

	_, err = f.svc.CancelByToken(context.Background(), booked.ID, "wrong")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = f.svc.CancelByToken(context.Background(), booked.ID, "")
	assert.ErrorIs(t, err, ErrInvalidToken)

	canceled, err := f.svc.CancelByToken(context.Background(), booked.ID, token)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, canceled.Status)

	// The link is single-use: the appointment is no longer scheduled.
	_, err = f.svc.CancelByToken(context.Background(), booked.ID, token)
	assert.ErrorIs(t, err, ErrAppointmentTerminal)
}

func TestCancelByToken_UnknownAppointment(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CancelByToken(context.Background(), uuid.New(), uuid.NewString())
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}
