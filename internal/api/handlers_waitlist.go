package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/clinicwave/clinic-scheduling/internal/waitlist"
)

func (s *Server) handleAddWaitlist(w http.ResponseWriter, r *http.Request) {
	var req AddWaitlistRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input := waitlist.AddInput{
		PatientID: uuid.MustParse(req.PatientID),
		ServiceID: uuid.MustParse(req.ServiceID),
		Priority:  req.Priority,
		Notes:     req.Notes,
	}
	if req.PreferredStaffID != nil {
		id := uuid.MustParse(*req.PreferredStaffID)
		input.PreferredStaffID = &id
	}
	var ok bool
	if input.PreferredDateStart, ok = optionalDate(w, "preferredDateStart", req.PreferredDateStart); !ok {
		return
	}
	if input.PreferredDateEnd, ok = optionalDate(w, "preferredDateEnd", req.PreferredDateEnd); !ok {
		return
	}
	if input.PreferredTimeStart, ok = optionalClock(w, "preferredTimeStart", req.PreferredTimeStart); !ok {
		return
	}
	if input.PreferredTimeEnd, ok = optionalClock(w, "preferredTimeEnd", req.PreferredTimeEnd); !ok {
		return
	}
	for _, d := range req.PreferredDaysOfWeek {
		input.PreferredDaysOfWeek = append(input.PreferredDaysOfWeek, time.Weekday(d))
	}

	entry, err := s.waitlist.AddToWaitlist(r.Context(), ClinicID(r.Context()), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWaitlistResponse(entry))
}

// handleAcceptOffer books the offered slot for the waiting patient. The body
// restates the slot so a stale dashboard cannot book a window the patient
// never saw.
func (s *Server) handleAcceptOffer(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var req AcceptOfferRequest
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
	appt, err := s.waitlist.AcceptWaitlistOffer(r.Context(), ClinicID(r.Context()), id, date, start)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (s *Server) handleCancelWaitlist(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	entry, err := s.waitlist.CancelWaitlist(r.Context(), ClinicID(r.Context()), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWaitlistResponse(entry))
}

func (s *Server) handleGetWaitlistEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	entry, err := s.waitlist.GetEntry(r.Context(), ClinicID(r.Context()), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWaitlistResponse(entry))
}

func (s *Server) handleListWaitlist(w http.ResponseWriter, r *http.Request) {
	var status *waitlist.Status
	if v := r.URL.Query().Get("status"); v != "" {
		st := waitlist.Status(v)
		status = &st
	}
	entries, err := s.waitlist.GetWaitlist(r.Context(), ClinicID(r.Context()), status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]WaitlistResponse, len(entries))
	for i := range entries {
		out[i] = toWaitlistResponse(&entries[i])
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": out})
}

func (s *Server) handleWaitlistStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.waitlist.GetWaitlistStats(r.Context(), ClinicID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
