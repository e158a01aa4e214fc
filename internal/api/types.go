package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicwave/clinic-scheduling/internal/appointment"
	"github.com/clinicwave/clinic-scheduling/internal/packages"
	"github.com/clinicwave/clinic-scheduling/internal/schedule"
	"github.com/clinicwave/clinic-scheduling/internal/waitlist"
)

// Dates are "2006-01-02", times of day "15:04", both clinic-local.

type CreateAppointmentRequest struct {
	PatientID string  `json:"patientId" validate:"required,uuid4"`
	StaffID   string  `json:"staffId" validate:"required,uuid4"`
	ServiceID string  `json:"serviceId" validate:"required,uuid4"`
	Date      string  `json:"date" validate:"required"`
	StartTime string  `json:"startTime" validate:"required"`
	Notes     *string `json:"notes,omitempty"`
}

type CancelAppointmentRequest struct {
	Reason        string `json:"reason" validate:"required,oneof=cancelled_by_patient cancelled_by_clinic"`
	CheckWaitlist bool   `json:"checkWaitlist"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed completed cancelled_by_patient cancelled_by_clinic"`
}

type AppointmentResponse struct {
	ID                   uuid.UUID  `json:"id"`
	PatientID            uuid.UUID  `json:"patientId"`
	StaffID              uuid.UUID  `json:"staffId"`
	ServiceID            uuid.UUID  `json:"serviceId"`
	Date                 string     `json:"date"`
	StartTime            string     `json:"startTime"`
	EndTime              string     `json:"endTime"`
	Status               string     `json:"status"`
	Type                 string     `json:"type"`
	Source               string     `json:"source"`
	PackageID            *uuid.UUID `json:"packageId,omitempty"`
	PackageSessionNumber *int       `json:"packageSessionNumber,omitempty"`
	Notes                *string    `json:"notes,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                   a.ID,
		PatientID:            a.PatientID,
		StaffID:              a.StaffID,
		ServiceID:            a.ServiceID,
		Date:                 a.Date.Format("2006-01-02"),
		StartTime:            a.StartTime.String(),
		EndTime:              a.EndTime.String(),
		Status:               string(a.Status),
		Type:                 string(a.Type),
		Source:               string(a.Source),
		PackageID:            a.PackageID,
		PackageSessionNumber: a.PackageSessionNumber,
		Notes:                a.Notes,
		CreatedAt:            a.CreatedAt,
	}
}

func toAppointmentResponses(items []appointment.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, len(items))
	for i := range items {
		out[i] = toAppointmentResponse(&items[i])
	}
	return out
}

type SlotResponse struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

func toSlotResponses(slots []schedule.Interval) []SlotResponse {
	out := make([]SlotResponse, len(slots))
	for i, s := range slots {
		out[i] = SlotResponse{StartTime: s.Start.String(), EndTime: s.End.String()}
	}
	return out
}

type CreatePackageRequest struct {
	PatientID     string   `json:"patientId" validate:"required,uuid4"`
	StaffID       string   `json:"staffId" validate:"required,uuid4"`
	ServiceID     string   `json:"serviceId" validate:"required,uuid4"`
	TotalSessions int      `json:"totalSessions" validate:"required,min=1"`
	IntervalDays  int      `json:"intervalDays" validate:"required,min=1"`
	StartDate     string   `json:"startDate" validate:"required"`
	StartTime     string   `json:"startTime" validate:"required"`
	TotalPrice    *float64 `json:"totalPrice,omitempty" validate:"omitempty,gt=0"`
	Notes         *string  `json:"notes,omitempty"`
}

type ResumePackageRequest struct {
	NewStartDate string `json:"newStartDate" validate:"required"`
}

type RescheduleSessionRequest struct {
	AppointmentID string `json:"appointmentId" validate:"required,uuid4"`
	NewDate       string `json:"newDate" validate:"required"`
	NewStartTime  string `json:"newStartTime" validate:"required"`
}

type PackageResponse struct {
	ID              uuid.UUID  `json:"id"`
	PatientID       uuid.UUID  `json:"patientId"`
	StaffID         uuid.UUID  `json:"staffId"`
	ServiceID       uuid.UUID  `json:"serviceId"`
	TotalSessions   int        `json:"totalSessions"`
	IntervalDays    int        `json:"intervalDays"`
	StartDate       string     `json:"startDate"`
	ExpectedEndDate string     `json:"expectedEndDate"`
	StartTime       string     `json:"startTime"`
	TotalPrice      *float64   `json:"totalPrice,omitempty"`
	PricePerSession *float64   `json:"pricePerSession,omitempty"`
	Status          string     `json:"status"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func toPackageResponse(p *packages.Package) PackageResponse {
	return PackageResponse{
		ID:              p.ID,
		PatientID:       p.PatientID,
		StaffID:         p.StaffID,
		ServiceID:       p.ServiceID,
		TotalSessions:   p.TotalSessions,
		IntervalDays:    p.IntervalDays,
		StartDate:       p.StartDate.Format("2006-01-02"),
		ExpectedEndDate: p.ExpectedEndDate.Format("2006-01-02"),
		StartTime:       p.StartTime.String(),
		TotalPrice:      p.TotalPrice,
		PricePerSession: p.PricePerSession,
		Status:          string(p.Status),
		CompletedAt:     p.CompletedAt,
		CreatedAt:       p.CreatedAt,
	}
}

type PackageWithSessionsResponse struct {
	Package  PackageResponse       `json:"package"`
	Sessions []AppointmentResponse `json:"sessions"`
}

type AddWaitlistRequest struct {
	PatientID           string  `json:"patientId" validate:"required,uuid4"`
	ServiceID           string  `json:"serviceId" validate:"required,uuid4"`
	PreferredStaffID    *string `json:"preferredStaffId,omitempty" validate:"omitempty,uuid4"`
	PreferredDateStart  *string `json:"preferredDateStart,omitempty"`
	PreferredDateEnd    *string `json:"preferredDateEnd,omitempty"`
	PreferredTimeStart  *string `json:"preferredTimeStart,omitempty"`
	PreferredTimeEnd    *string `json:"preferredTimeEnd,omitempty"`
	PreferredDaysOfWeek []int   `json:"preferredDaysOfWeek,omitempty" validate:"omitempty,dive,min=0,max=6"`
	Priority            int     `json:"priority" validate:"min=0"`
	Notes               *string `json:"notes,omitempty"`
}

type AcceptOfferRequest struct {
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"startTime" validate:"required"`
}

type WaitlistResponse struct {
	ID                  uuid.UUID  `json:"id"`
	PatientID           uuid.UUID  `json:"patientId"`
	ServiceID           uuid.UUID  `json:"serviceId"`
	PreferredStaffID    *uuid.UUID `json:"preferredStaffId,omitempty"`
	Priority            int        `json:"priority"`
	Status              string     `json:"status"`
	OfferedAt           *time.Time `json:"offeredAt,omitempty"`
	FilledAppointmentID *uuid.UUID `json:"filledAppointmentId,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
}

func toWaitlistResponse(e *waitlist.Entry) WaitlistResponse {
	return WaitlistResponse{
		ID:                  e.ID,
		PatientID:           e.PatientID,
		ServiceID:           e.ServiceID,
		PreferredStaffID:    e.PreferredStaffID,
		Priority:            e.Priority,
		Status:              string(e.Status),
		OfferedAt:           e.OfferedAt,
		FilledAppointmentID: e.FilledAppointmentID,
		CreatedAt:           e.CreatedAt,
	}
}

type CreatePatientRequest struct {
	FullName    string  `json:"fullName" validate:"required,min=2"`
	Phone       string  `json:"phone" validate:"required,e164"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	DateOfBirth *string `json:"dateOfBirth,omitempty"`
	Gender      *string `json:"gender,omitempty" validate:"omitempty,oneof=male female"`
	Address     *string `json:"address,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

type UpdatePatientRequest struct {
	FullName    *string `json:"fullName,omitempty" validate:"omitempty,min=2"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,e164"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	DateOfBirth *string `json:"dateOfBirth,omitempty"`
	Gender      *string `json:"gender,omitempty" validate:"omitempty,oneof=male female"`
	Address     *string `json:"address,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

type WebhookMessageRequest struct {
	From      string  `json:"from" validate:"required"`
	Body      string  `json:"body" validate:"required"`
	MessageID string  `json:"messageId"`
	ContextID *string `json:"contextId,omitempty"`
}

type WebhookReplyResponse struct {
	Intent   string `json:"intent"`
	Response string `json:"response"`
}

type DashboardStatsResponse struct {
	Appointments map[string]int  `json:"appointments"`
	Packages     map[string]int  `json:"packages"`
	Waitlist     *waitlist.Stats `json:"waitlist"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
