package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kxtukI/med.sys-sub000/internal/schedule"
)

func appointmentSlotsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		professionalID, healthUnitID, ok := parseSlotPath(w, r)
		if !ok {
			return
		}

		date, err := time.ParseInLocation("2006-01-02", chi.URLParam(r, "date"), time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		day, err := svc.DaySlots(r.Context(), professionalID, healthUnitID, date)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, day)
	}
}

func nextAvailableDaysHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		professionalID, healthUnitID, ok := parseSlotPath(w, r)
		if !ok {
			return
		}

		days := 0
		if v := r.URL.Query().Get("days"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "invalid_days", "days must be a positive integer")
				return
			}
			days = n
		}

		available, err := svc.NextAvailableDays(r.Context(), professionalID, healthUnitID, time.Now(), days)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, NextAvailableResponse{Days: available})
	}
}

func createTemplateHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateTemplateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
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

		start, err := schedule.ParseClock(req.StartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_time", "start_time must be HH:MM")
			return
		}
		end, err := schedule.ParseClock(req.EndTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end_time", "end_time must be HH:MM")
			return
		}

		// An omitted buffer_min gets the default; an explicit 0 means
		// back-to-back slots.
		buffer := schedule.DefaultBufferMinutes
		if req.BufferMin != nil {
			buffer = *req.BufferMin
		}

		tpl := schedule.Template{
			ProfessionalID: professionalID,
			HealthUnitID:   healthUnitID,
			Weekday:        time.Weekday(req.DayOfWeek),
			StartMinutes:   start,
			EndMinutes:     end,
			SlotMinutes:    req.SlotDurationMin,
			BufferMinutes:  buffer,
		}

		if req.BreakStart != nil {
			bs, err := schedule.ParseClock(*req.BreakStart)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_break_start", "break_start must be HH:MM")
				return
			}
			tpl.BreakStartMinutes = &bs
		}
		if req.BreakEnd != nil {
			be, err := schedule.ParseClock(*req.BreakEnd)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_break_end", "break_end must be HH:MM")
				return
			}
			tpl.BreakEndMinutes = &be
		}

		created, err := svc.CreateTemplate(r.Context(), tpl)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toTemplateResponse(created))
	}
}

func listTemplatesHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		professionalID, err := uuid.Parse(chi.URLParam(r, "professional_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_professional_id", "professional_id must be a valid UUID")
			return
		}

		templates, err := svc.ListTemplates(r.Context(), professionalID)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		out := make([]TemplateResponse, 0, len(templates))
		for i := range templates {
			out = append(out, toTemplateResponse(&templates[i]))
		}

		writeJSON(w, http.StatusOK, out)
	}
}

func parseSlotPath(w http.ResponseWriter, r *http.Request) (professionalID, healthUnitID uuid.UUID, ok bool) {
	professionalID, err := uuid.Parse(chi.URLParam(r, "professional_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_professional_id", "professional_id must be a valid UUID")
		return uuid.Nil, uuid.Nil, false
	}

	healthUnitID, err = uuid.Parse(chi.URLParam(r, "health_unit_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_health_unit_id", "health_unit_id must be a valid UUID")
		return uuid.Nil, uuid.Nil, false
	}

	return professionalID, healthUnitID, true
}

func handleScheduleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrInvalidTemplate):
		writeError(w, http.StatusBadRequest, "invalid_template", err.Error())
	case errors.Is(err, schedule.ErrTemplateExists):
		writeError(w, http.StatusConflict, "template_exists", err.Error())
	case errors.Is(err, schedule.ErrMalformedTemplate):
		writeError(w, http.StatusInternalServerError, "malformed_template", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
