package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/clinicwave/clinic-scheduling/internal/appointment"
	"github.com/clinicwave/clinic-scheduling/internal/clinic"
)

type PatientResponse struct {
	ID          string  `json:"id"`
	FullName    string  `json:"fullName"`
	Phone       string  `json:"phone"`
	Email       *string `json:"email,omitempty"`
	DateOfBirth *string `json:"dateOfBirth,omitempty"`
	Gender      *string `json:"gender,omitempty"`
	Address     *string `json:"address,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

func toPatientResponse(p *clinic.Patient) PatientResponse {
	resp := PatientResponse{
		ID:       p.ID.String(),
		FullName: p.FullName,
		Phone:    p.Phone,
		Email:    p.Email,
		Gender:   p.Gender,
		Address:  p.Address,
		Notes:    p.Notes,
	}
	if p.DateOfBirth != nil {
		dob := p.DateOfBirth.Format(dateLayout)
		resp.DateOfBirth = &dob
	}
	return resp
}

func (s *Server) handleCreatePatient(w http.ResponseWriter, r *http.Request) {
	var req CreatePatientRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	dob, ok := optionalDate(w, "dateOfBirth", req.DateOfBirth)
	if !ok {
		return
	}
	patient, err := s.patients.CreatePatient(r.Context(), ClinicID(r.Context()), clinic.CreatePatientInput{
		FullName:    req.FullName,
		Phone:       req.Phone,
		Email:       req.Email,
		DateOfBirth: dob,
		Gender:      req.Gender,
		Address:     req.Address,
		Notes:       req.Notes,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPatientResponse(patient))
}

func (s *Server) handleGetPatient(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	patient, err := s.patients.GetPatient(r.Context(), ClinicID(r.Context()), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPatientResponse(patient))
}

func (s *Server) handleSearchPatients(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	patients, err := s.patients.SearchPatients(r.Context(), ClinicID(r.Context()), query, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]PatientResponse, len(patients))
	for i := range patients {
		out[i] = toPatientResponse(&patients[i])
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": out})
}

func (s *Server) handlePatientHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	clinicID := ClinicID(r.Context())
	if _, err := s.patients.GetPatient(r.Context(), clinicID, id); err != nil {
		writeServiceError(w, err)
		return
	}

	q := r.URL.Query()
	f := appointment.Filter{PatientID: &id}
	if v := q.Get("status"); v != "" {
		st := appointment.Status(v)
		f.Status = &st
	}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.Limit, _ = strconv.Atoi(q.Get("limit"))

	page, err := s.appointments.ListAppointments(r.Context(), clinicID, f)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkgs, err := s.packages.ListPackages(r.Context(), clinicID, &id, nil)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkgOut := make([]PackageResponse, len(pkgs))
	for i := range pkgs {
		pkgOut[i] = toPackageResponse(&pkgs[i])
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":       toAppointmentResponses(page.Data),
		"pagination": page.Pagination,
		"packages":   pkgOut,
	})
}

func (s *Server) handleUpdatePatient(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var req UpdatePatientRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	dob, ok := optionalDate(w, "dateOfBirth", req.DateOfBirth)
	if !ok {
		return
	}
	patient, err := s.patients.UpdatePatient(r.Context(), ClinicID(r.Context()), id, clinic.UpdatePatientInput{
		FullName:    req.FullName,
		Phone:       req.Phone,
		Email:       req.Email,
		DateOfBirth: dob,
		Gender:      req.Gender,
		Address:     req.Address,
		Notes:       req.Notes,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPatientResponse(patient))
}
