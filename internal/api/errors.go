package api

import (
	"errors"
	"net/http"

	"github.com/clinicwave/clinic-scheduling/internal/appointment"
	"github.com/clinicwave/clinic-scheduling/internal/clinic"
	"github.com/clinicwave/clinic-scheduling/internal/packages"
	"github.com/clinicwave/clinic-scheduling/internal/waitlist"
)

// translateError maps service sentinels to an HTTP status and a stable error
// code. Unknown errors come back as 500 INTERNAL so handlers never leak
// internals to the client.
func translateError(err error) (int, string, string) {
	var conflict *packages.SessionConflictError
	if errors.As(err, &conflict) {
		return http.StatusConflict, "SESSION_CONFLICT", conflict.Error()
	}

	switch {
	case errors.Is(err, clinic.ErrPatientNotFound):
		return http.StatusNotFound, "PATIENT_NOT_FOUND", err.Error()
	case errors.Is(err, clinic.ErrServiceNotFound):
		return http.StatusNotFound, "SERVICE_NOT_FOUND", err.Error()
	case errors.Is(err, clinic.ErrStaffNotFound):
		return http.StatusNotFound, "STAFF_NOT_FOUND", err.Error()
	case errors.Is(err, clinic.ErrClinicNotFound):
		return http.StatusNotFound, "CLINIC_NOT_FOUND", err.Error()
	case errors.Is(err, clinic.ErrPhoneExists):
		return http.StatusConflict, "PHONE_EXISTS", err.Error()
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		return http.StatusNotFound, "APPOINTMENT_NOT_FOUND", err.Error()
	case errors.Is(err, appointment.ErrSlotUnavailable):
		return http.StatusConflict, "SLOT_UNAVAILABLE", err.Error()
	case errors.Is(err, appointment.ErrScheduleBusy):
		return http.StatusConflict, "SCHEDULE_BUSY", err.Error()
	case errors.Is(err, appointment.ErrInvalidStatus):
		return http.StatusConflict, "INVALID_STATUS", err.Error()
	case errors.Is(err, appointment.ErrInvalidCancelReason),
		errors.Is(err, appointment.ErrInvalidTimeWindow):
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error()
	case errors.Is(err, packages.ErrPackageNotFound):
		return http.StatusNotFound, "PACKAGE_NOT_FOUND", err.Error()
	case errors.Is(err, packages.ErrInvalidPackageStatus):
		return http.StatusConflict, "INVALID_PACKAGE_STATUS", err.Error()
	case errors.Is(err, packages.ErrSessionNotInPackage):
		return http.StatusBadRequest, "SESSION_NOT_IN_PACKAGE", err.Error()
	case errors.Is(err, packages.ErrInvalidSessionCount),
		errors.Is(err, packages.ErrInvalidInterval):
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error()
	case errors.Is(err, waitlist.ErrWaitlistNotFound),
		errors.Is(err, waitlist.ErrOfferNotFound):
		return http.StatusNotFound, "WAITLIST_NOT_FOUND", err.Error()
	case errors.Is(err, waitlist.ErrInvalidEntryStatus):
		return http.StatusConflict, "INVALID_WAITLIST_STATUS", err.Error()
	case errors.Is(err, waitlist.ErrMissingOfferStaff):
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error()
	default:
		return http.StatusInternalServerError, "INTERNAL", "an unexpected error occurred"
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	status, code, details := translateError(err)
	writeError(w, status, code, details)
}
