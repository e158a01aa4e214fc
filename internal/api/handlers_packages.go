package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/clinicwave/clinic-scheduling/internal/packages"
)

func (s *Server) handleCreatePackage(w http.ResponseWriter, r *http.Request) {
	var req CreatePackageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	startDate, ok := parseDate(w, "startDate", req.StartDate)
	if !ok {
		return
	}
	startTime, ok := parseClock(w, "startTime", req.StartTime)
	if !ok {
		return
	}

	pkg, sessions, err := s.packages.CreatePackage(r.Context(), ClinicID(r.Context()), UserID(r.Context()), packages.CreateInput{
		PatientID:     uuid.MustParse(req.PatientID),
		StaffID:       uuid.MustParse(req.StaffID),
		ServiceID:     uuid.MustParse(req.ServiceID),
		TotalSessions: req.TotalSessions,
		IntervalDays:  req.IntervalDays,
		StartDate:     startDate,
		StartTime:     startTime,
		TotalPrice:    req.TotalPrice,
		Notes:         req.Notes,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, PackageWithSessionsResponse{
		Package:  toPackageResponse(pkg),
		Sessions: toAppointmentResponses(sessions),
	})
}

func (s *Server) handleGetPackage(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	pkg, sessions, err := s.packages.GetPackage(r.Context(), ClinicID(r.Context()), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PackageWithSessionsResponse{
		Package:  toPackageResponse(pkg),
		Sessions: toAppointmentResponses(sessions),
	})
}

func (s *Server) handleListPackages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var patientID *uuid.UUID
	if v := q.Get("patientId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "patientId must be a valid UUID")
			return
		}
		patientID = &id
	}
	var status *packages.Status
	if v := q.Get("status"); v != "" {
		st := packages.Status(v)
		status = &st
	}

	items, err := s.packages.ListPackages(r.Context(), ClinicID(r.Context()), patientID, status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]PackageResponse, len(items))
	for i := range items {
		out[i] = toPackageResponse(&items[i])
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": out})
}

func (s *Server) handlePausePackage(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	pkg, err := s.packages.PausePackage(r.Context(), ClinicID(r.Context()), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPackageResponse(pkg))
}

func (s *Server) handleResumePackage(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var req ResumePackageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	newStart, ok := parseDate(w, "newStartDate", req.NewStartDate)
	if !ok {
		return
	}
	pkg, sessions, err := s.packages.ResumePackage(r.Context(), ClinicID(r.Context()), id, newStart)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PackageWithSessionsResponse{
		Package:  toPackageResponse(pkg),
		Sessions: toAppointmentResponses(sessions),
	})
}

func (s *Server) handleCancelPackage(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	pkg, err := s.packages.CancelPackage(r.Context(), ClinicID(r.Context()), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPackageResponse(pkg))
}

func (s *Server) handleCompletePackage(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	pkg, err := s.packages.CompletePackage(r.Context(), ClinicID(r.Context()), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPackageResponse(pkg))
}

func (s *Server) handleRescheduleSession(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var req RescheduleSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	newDate, ok := parseDate(w, "newDate", req.NewDate)
	if !ok {
		return
	}
	newStart, ok := parseClock(w, "newStartTime", req.NewStartTime)
	if !ok {
		return
	}
	appt, err := s.packages.RescheduleSession(r.Context(), ClinicID(r.Context()), id, uuid.MustParse(req.AppointmentID), newDate, newStart)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (s *Server) handlePackageStats(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	stats, err := s.packages.GetPackageStats(r.Context(), ClinicID(r.Context()), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
