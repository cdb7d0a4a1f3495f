package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/kxtukI/med.sys-sub000/internal/appointment"
	"github.com/kxtukI/med.sys-sub000/internal/schedule"
)

type CreateAppointmentRequest struct {
	PatientID      string `json:"patient_id"`
	ProfessionalID string `json:"professional_id"`
	HealthUnitID   string `json:"health_unit_id"`
	DateTime       string `json:"date_time"`
	Specialty      string `json:"specialty,omitempty"`
}

type UpdateAppointmentRequest struct {
	DateTime  *string `json:"date_time,omitempty"`
	Specialty *string `json:"specialty,omitempty"`
	Status    *string `json:"status,omitempty"`
}

type AppointmentResponse struct {
	ID             uuid.UUID `json:"id"`
	PatientID      uuid.UUID `json:"patient_id"`
	ProfessionalID uuid.UUID `json:"professional_id"`
	HealthUnitID   uuid.UUID `json:"health_unit_id"`
	DateTime       time.Time `json:"date_time"`
	Specialty      string    `json:"specialty"`
	Status         string    `json:"status"`
}

type PersonResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type AppointmentDetailResponse struct {
	AppointmentResponse
	Patient      PersonResponse `json:"patient"`
	Professional PersonResponse `json:"professional"`
	HealthUnit   PersonResponse `json:"health_unit"`
}

type CreateTemplateRequest struct {
	ProfessionalID  string  `json:"professional_id"`
	HealthUnitID    string  `json:"health_unit_id"`
	DayOfWeek       int     `json:"day_of_week"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	SlotDurationMin int     `json:"slot_duration_min,omitempty"`
	BufferMin       *int    `json:"buffer_min,omitempty"`
	BreakStart      *string `json:"break_start,omitempty"`
	BreakEnd        *string `json:"break_end,omitempty"`
}

type TemplateResponse struct {
	ID              uuid.UUID `json:"id"`
	ProfessionalID  uuid.UUID `json:"professional_id"`
	HealthUnitID    uuid.UUID `json:"health_unit_id"`
	DayOfWeek       int       `json:"day_of_week"`
	StartTime       string    `json:"start_time"`
	EndTime         string    `json:"end_time"`
	SlotDurationMin int       `json:"slot_duration_min"`
	BufferMin       int       `json:"buffer_min"`
	BreakStart      *string   `json:"break_start,omitempty"`
	BreakEnd        *string   `json:"break_end,omitempty"`
}

type NextAvailableResponse struct {
	Days []schedule.DayAvailability `json:"days"`
}

type CalendarResponse struct {
	ProfessionalID uuid.UUID             `json:"professional_id"`
	StartDate      string                `json:"start_date"`
	EndDate        string                `json:"end_date"`
	Days           []CalendarDayResponse `json:"days"`
}

type CalendarDayResponse struct {
	Date         string                `json:"date"`
	Appointments []AppointmentResponse `json:"appointments"`
	Stats        appointment.DayStats  `json:"stats"`
}

type NotificationResponse struct {
	ID            uuid.UUID  `json:"id"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	Type          string     `json:"type"`
	Status        string     `json:"status"`
	ScheduledFor  time.Time  `json:"scheduled_for"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	ErrorNote     *string    `json:"error_note,omitempty"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:             a.ID,
		PatientID:      a.PatientID,
		ProfessionalID: a.ProfessionalID,
		HealthUnitID:   a.HealthUnitID,
		DateTime:       a.DateTime,
		Specialty:      a.Specialty,
		Status:         string(a.Status),
	}
}

func toDetailResponse(d *appointment.Detail) AppointmentDetailResponse {
	return AppointmentDetailResponse{
		AppointmentResponse: toAppointmentResponse(&d.Appointment),
		Patient:             PersonResponse{ID: d.Patient.ID, Name: d.Patient.Name},
		Professional:        PersonResponse{ID: d.Professional.ID, Name: d.Professional.Name},
		HealthUnit:          PersonResponse{ID: d.HealthUnit.ID, Name: d.HealthUnit.Name},
	}
}

func toTemplateResponse(t *schedule.Template) TemplateResponse {
	resp := TemplateResponse{
		ID:              t.ID,
		ProfessionalID:  t.ProfessionalID,
		HealthUnitID:    t.HealthUnitID,
		DayOfWeek:       int(t.Weekday),
		StartTime:       schedule.FormatClock(t.StartMinutes),
		EndTime:         schedule.FormatClock(t.EndMinutes),
		SlotDurationMin: t.SlotMinutes,
		BufferMin:       t.BufferMinutes,
	}
	if t.BreakStartMinutes != nil {
		bs := schedule.FormatClock(*t.BreakStartMinutes)
		resp.BreakStart = &bs
	}
	if t.BreakEndMinutes != nil {
		be := schedule.FormatClock(*t.BreakEndMinutes)
		resp.BreakEnd = &be
	}
	return resp
}
