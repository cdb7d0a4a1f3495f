package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kxtukI/med.sys-sub000/internal/notification"
)

// The job endpoints run the same code paths as the worker, for operational
// recovery when a cycle needs to be forced.

func runPendingNotificationsHandler(svc *notification.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DispatchDue(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, "dispatch_failed", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func runLateAppointmentsHandler(svc *notification.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.EscalateLate(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, "escalation_failed", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func resendNotificationHandler(svc *notification.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_notification_id", "id must be a valid UUID")
			return
		}

		n, err := svc.Resend(r.Context(), id)
		if err != nil {
			switch {
			case errors.Is(err, notification.ErrNotificationNotFound):
				writeError(w, http.StatusNotFound, "notification_not_found", err.Error())
			case errors.Is(err, notification.ErrNotResendable):
				writeError(w, http.StatusConflict, "not_resendable", err.Error())
			default:
				writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			}
			return
		}

		writeJSON(w, http.StatusOK, NotificationResponse{
			ID:            n.ID,
			AppointmentID: n.AppointmentID,
			Type:          string(n.Type),
			Status:        string(n.Status),
			ScheduledFor:  n.ScheduledFor,
			SentAt:        n.SentAt,
			ErrorNote:     n.ErrorNote,
		})
	}
}
