package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/clinicwave/clinic-scheduling/internal/appointment"
)

func (s *Server) handleCreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	date, ok := parseDate(w, "date", req.Date)
	if !ok {
		return
	}
	start, ok := parseClock(w, "startTime", req.StartTime)
	if !ok {
		return
	}

	appt, err := s.appointments.CreateAppointment(r.Context(), ClinicID(r.Context()), UserID(r.Context()), appointment.CreateInput{
		PatientID: uuid.MustParse(req.PatientID),
		StaffID:   uuid.MustParse(req.StaffID),
		ServiceID: uuid.MustParse(req.ServiceID),
		Date:      date,
		StartTime: start,
		Type:      appointment.TypeSingle,
		Source:    appointment.SourceDirect,
		Notes:     req.Notes,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (s *Server) handleGetAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	appt, err := s.appointments.GetAppointment(r.Context(), ClinicID(r.Context()), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (s *Server) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f appointment.Filter

	if v := q.Get("dateFrom"); v != "" {
		d, ok := parseDate(w, "dateFrom", v)
		if !ok {
			return
		}
		f.DateFrom = &d
	}
	if v := q.Get("dateTo"); v != "" {
		d, ok := parseDate(w, "dateTo", v)
		if !ok {
			return
		}
		f.DateTo = &d
	}
	if v := q.Get("staffId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "staffId must be a valid UUID")
			return
		}
		f.StaffID = &id
	}
	if v := q.Get("patientId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "patientId must be a valid UUID")
			return
		}
		f.PatientID = &id
	}
	if v := q.Get("status"); v != "" {
		st := appointment.Status(v)
		f.Status = &st
	}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.Limit, _ = strconv.Atoi(q.Get("limit"))

	page, err := s.appointments.ListAppointments(r.Context(), ClinicID(r.Context()), f)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":       toAppointmentResponses(page.Data),
		"pagination": page.Pagination,
	})
}

func (s *Server) handleCancelAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var req CancelAppointmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	appt, err := s.appointments.CancelAppointment(r.Context(), ClinicID(r.Context()), id, appointment.Status(req.Reason), req.CheckWaitlist)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	appt, err := s.appointments.UpdateStatus(r.Context(), ClinicID(r.Context()), id, appointment.Status(req.Status))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

// handleGetAvailability answers "which slots are still open" for one staff
// member, one service, one date.
func (s *Server) handleGetAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date, ok := parseDate(w, "date", q.Get("date"))
	if !ok {
		return
	}
	staffID, err := uuid.Parse(q.Get("staffId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "staffId must be a valid UUID")
		return
	}
	serviceID, err := uuid.Parse(q.Get("serviceId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "serviceId must be a valid UUID")
		return
	}

	slots, err := s.appointments.GetAvailability(r.Context(), ClinicID(r.Context()), date, staffID, serviceID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":  date.Format(dateLayout),
		"slots": toSlotResponses(slots),
	})
}
