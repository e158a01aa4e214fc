package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/clinicwave/clinic-scheduling/internal/appointment"
	"github.com/clinicwave/clinic-scheduling/internal/clinic"
	"github.com/clinicwave/clinic-scheduling/internal/notify"
	"github.com/clinicwave/clinic-scheduling/internal/packages"
	"github.com/clinicwave/clinic-scheduling/internal/schedule"
	"github.com/clinicwave/clinic-scheduling/internal/waitlist"
)

// The handler layer depends on these narrow interfaces rather than the
// concrete services so tests can drive it with in-memory stubs.

type AppointmentService interface {
	CreateAppointment(ctx context.Context, clinicID, createdBy uuid.UUID, input appointment.CreateInput) (*appointment.Appointment, error)
	CancelAppointment(ctx context.Context, clinicID, id uuid.UUID, reason appointment.Status, checkWaitlist bool) (*appointment.Appointment, error)
	UpdateStatus(ctx context.Context, clinicID, id uuid.UUID, to appointment.Status) (*appointment.Appointment, error)
	GetAppointment(ctx context.Context, clinicID, id uuid.UUID) (*appointment.Appointment, error)
	ListAppointments(ctx context.Context, clinicID uuid.UUID, f appointment.Filter) (*appointment.Page, error)
	CountByStatus(ctx context.Context, clinicID uuid.UUID, from, to *time.Time) (map[appointment.Status]int, error)
	GetAvailability(ctx context.Context, clinicID uuid.UUID, date time.Time, staffID, serviceID uuid.UUID) ([]schedule.Interval, error)
}

type PackageService interface {
	CreatePackage(ctx context.Context, clinicID, createdBy uuid.UUID, input packages.CreateInput) (*packages.Package, []appointment.Appointment, error)
	GetPackage(ctx context.Context, clinicID, id uuid.UUID) (*packages.Package, []appointment.Appointment, error)
	ListPackages(ctx context.Context, clinicID uuid.UUID, patientID *uuid.UUID, status *packages.Status) ([]packages.Package, error)
	PausePackage(ctx context.Context, clinicID, id uuid.UUID) (*packages.Package, error)
	ResumePackage(ctx context.Context, clinicID, id uuid.UUID, newStartDate time.Time) (*packages.Package, []appointment.Appointment, error)
	CancelPackage(ctx context.Context, clinicID, id uuid.UUID) (*packages.Package, error)
	CompletePackage(ctx context.Context, clinicID, id uuid.UUID) (*packages.Package, error)
	RescheduleSession(ctx context.Context, clinicID, packageID, appointmentID uuid.UUID, newDate time.Time, newStart schedule.TimeOfDay) (*appointment.Appointment, error)
	GetPackageStats(ctx context.Context, clinicID, id uuid.UUID) (*packages.Stats, error)
	CountByStatus(ctx context.Context, clinicID uuid.UUID) (map[packages.Status]int, error)
}

type WaitlistService interface {
	AddToWaitlist(ctx context.Context, clinicID uuid.UUID, input waitlist.AddInput) (*waitlist.Entry, error)
	AcceptWaitlistOffer(ctx context.Context, clinicID, waitlistID uuid.UUID, date time.Time, startTime schedule.TimeOfDay) (*appointment.Appointment, error)
	CancelWaitlist(ctx context.Context, clinicID, id uuid.UUID) (*waitlist.Entry, error)
	GetEntry(ctx context.Context, clinicID, id uuid.UUID) (*waitlist.Entry, error)
	GetWaitlist(ctx context.Context, clinicID uuid.UUID, status *waitlist.Status) ([]waitlist.Entry, error)
	GetWaitlistStats(ctx context.Context, clinicID uuid.UUID) (*waitlist.Stats, error)
}

type PatientService interface {
	CreatePatient(ctx context.Context, clinicID uuid.UUID, input clinic.CreatePatientInput) (*clinic.Patient, error)
	GetPatient(ctx context.Context, clinicID, patientID uuid.UUID) (*clinic.Patient, error)
	SearchPatients(ctx context.Context, clinicID uuid.UUID, query string, limit int) ([]clinic.Patient, error)
	UpdatePatient(ctx context.Context, clinicID, patientID uuid.UUID, input clinic.UpdatePatientInput) (*clinic.Patient, error)
}

type InboundWebhook interface {
	Handle(ctx context.Context, clinicID uuid.UUID, msg notify.InboundMessage) (*notify.Reply, error)
}

type Server struct {
	appointments AppointmentService
	packages     PackageService
	waitlist     WaitlistService
	patients     PatientService
	webhook      InboundWebhook
	logger       *zap.Logger
}

func NewServer(
	appointments AppointmentService,
	pkgs PackageService,
	wl WaitlistService,
	patients PatientService,
	webhook InboundWebhook,
	logger *zap.Logger,
) *Server {
	return &Server{
		appointments: appointments,
		packages:     pkgs,
		waitlist:     wl,
		patients:     patients,
		webhook:      webhook,
		logger:       logger,
	}
}

// Router assembles the full HTTP surface. Health and metrics sit outside the
// clinic-scoped group because probes and scrapers carry no tenant header.
func (s *Server) Router(health *HealthHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(s.logger))

	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ClinicContextMiddleware)

		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", s.handleCreateAppointment)
			r.Get("/", s.handleListAppointments)
			r.Get("/availability", s.handleGetAvailability)
			r.Get("/{id}", s.handleGetAppointment)
			r.Post("/{id}/cancel", s.handleCancelAppointment)
			r.Patch("/{id}/status", s.handleUpdateStatus)
		})

		r.Route("/packages", func(r chi.Router) {
			r.Post("/", s.handleCreatePackage)
			r.Get("/", s.handleListPackages)
			r.Get("/{id}", s.handleGetPackage)
			r.Get("/{id}/stats", s.handlePackageStats)
			r.Post("/{id}/pause", s.handlePausePackage)
			r.Post("/{id}/resume", s.handleResumePackage)
			r.Post("/{id}/cancel", s.handleCancelPackage)
			r.Post("/{id}/complete", s.handleCompletePackage)
			r.Post("/{id}/reschedule", s.handleRescheduleSession)
		})

		r.Route("/waitlist", func(r chi.Router) {
			r.Post("/", s.handleAddWaitlist)
			r.Get("/", s.handleListWaitlist)
			r.Get("/stats", s.handleWaitlistStats)
			r.Get("/{id}", s.handleGetWaitlistEntry)
			r.Post("/{id}/accept", s.handleAcceptOffer)
			r.Post("/{id}/cancel", s.handleCancelWaitlist)
		})

		r.Route("/patients", func(r chi.Router) {
			r.Post("/", s.handleCreatePatient)
			r.Get("/", s.handleSearchPatients)
			r.Get("/{id}", s.handleGetPatient)
			r.Get("/{id}/appointments", s.handlePatientHistory)
			r.Patch("/{id}", s.handleUpdatePatient)
		})

		r.Post("/webhooks/whatsapp", s.handleWhatsAppWebhook)
		r.Get("/dashboard/stats", s.handleDashboardStats)
	})

	return r
}
