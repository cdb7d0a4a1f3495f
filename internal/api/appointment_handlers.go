package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kxtukI/med.sys-sub000/internal/appointment"
	"github.com/kxtukI/med.sys-sub000/internal/clinic"
	"github.com/kxtukI/med.sys-sub000/internal/schedule"
)

func createAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		professionalID, err := uuid.Parse(req.ProfessionalID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_professional_id", "professional_id must be a valid UUID")
			return
		}
		healthUnitID, err := uuid.Parse(req.HealthUnitID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_health_unit_id", "health_unit_id must be a valid UUID")
			return
		}

		dateTime, err := parseDateTime(req.DateTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date_time", "date_time must be ISO-8601")
			return
		}

		detail, err := svc.Book(r.Context(), appointment.BookParams{
			PatientID:      patientID,
			ProfessionalID: professionalID,
			HealthUnitID:   healthUnitID,
			DateTime:       dateTime,
			Specialty:      req.Specialty,
		})
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toDetailResponse(detail))
	}
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseAppointmentID(w, r)
		if !ok {
			return
		}

		detail, err := svc.Get(r.Context(), id)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toDetailResponse(detail))
	}
}

func updateAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseAppointmentID(w, r)
		if !ok {
			return
		}

		var req UpdateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		params := appointment.UpdateParams{
			Specialty: req.Specialty,
		}

		if req.DateTime != nil {
			dt, err := parseDateTime(*req.DateTime)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date_time", "date_time must be ISO-8601")
				return
			}
			params.DateTime = &dt
		}

		if req.Status != nil {
			status := appointment.Status(*req.Status)
			if status != appointment.StatusCompleted && status != appointment.StatusCanceled {
				writeError(w, http.StatusBadRequest, "invalid_status", "status must be completed or canceled")
				return
			}
			params.Status = &status
		}

		updated, err := svc.Update(r.Context(), id, params)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(updated))
	}
}

func deleteAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseAppointmentID(w, r)
		if !ok {
			return
		}

		canceled, err := svc.Cancel(r.Context(), id)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(canceled))
	}
}

func calendarHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		professionalID, err := uuid.Parse(q.Get("professional_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_professional_id", "professional_id must be a valid UUID")
			return
		}

		start, err := time.ParseInLocation("2006-01-02", q.Get("start_date"), time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_date", "start_date must be YYYY-MM-DD")
			return
		}
		end, err := time.ParseInLocation("2006-01-02", q.Get("end_date"), time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end_date", "end_date must be YYYY-MM-DD")
			return
		}

		agenda, err := svc.Calendar(r.Context(), professionalID, start, end)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		days := make([]CalendarDayResponse, 0, len(agenda))
		for _, day := range agenda {
			appts := make([]AppointmentResponse, 0, len(day.Appointments))
			for i := range day.Appointments {
				appts = append(appts, toAppointmentResponse(&day.Appointments[i]))
			}
			days = append(days, CalendarDayResponse{
				Date:         day.Date,
				Appointments: appts,
				Stats:        day.Stats,
			})
		}

		writeJSON(w, http.StatusOK, CalendarResponse{
			ProfessionalID: professionalID,
			StartDate:      start.Format("2006-01-02"),
			EndDate:        end.Format("2006-01-02"),
			Days:           days,
		})
	}
}

func cancelByTokenHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "appointment_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment_id must be a valid UUID")
			return
		}

		canceled, err := svc.CancelByToken(r.Context(), id, r.URL.Query().Get("token"))
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(canceled))
	}
}

func parseAppointmentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// parseDateTime accepts RFC 3339 and the common zone-less ISO-8601 forms,
// interpreted in local civil time.
func parseDateTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognized date_time format")
}

func handleAppointmentError(w http.ResponseWriter, err error) {
	var referralErr *appointment.ReferralRequiredError

	switch {
	case errors.Is(err, clinic.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, clinic.ErrProfessionalNotFound):
		writeError(w, http.StatusNotFound, "professional_not_found", err.Error())
	case errors.Is(err, clinic.ErrHealthUnitNotFound):
		writeError(w, http.StatusNotFound, "health_unit_not_found", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrPastDateTime):
		writeError(w, http.StatusBadRequest, "past_date_time", err.Error())
	case errors.Is(err, appointment.ErrOutsideWorkingHours):
		writeError(w, http.StatusUnprocessableEntity, "outside_working_hours", err.Error())
	case errors.Is(err, appointment.ErrProfessionalNotAtUnit):
		writeError(w, http.StatusUnprocessableEntity, "professional_not_at_unit", err.Error())
	case errors.Is(err, schedule.ErrSlotNotBookable):
		writeError(w, http.StatusUnprocessableEntity, "slot_not_bookable", err.Error())
	case errors.Is(err, appointment.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_taken", err.Error())
	case errors.Is(err, appointment.ErrBookingContended):
		writeError(w, http.StatusConflict, "booking_contended", "slot is currently being booked, please retry shortly")
	case errors.As(err, &referralErr):
		writeError(w, http.StatusForbidden, "referral_required", referralErr.Error())
	case errors.Is(err, appointment.ErrAppointmentTerminal):
		writeError(w, http.StatusConflict, "appointment_terminal", err.Error())
	case errors.Is(err, appointment.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, appointment.ErrInvalidToken):
		writeError(w, http.StatusForbidden, "invalid_token", err.Error())
	case errors.Is(err, appointment.ErrCalendarWindow):
		writeError(w, http.StatusBadRequest, "invalid_calendar_window", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
