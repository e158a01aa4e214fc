package api

import (
	"net/http"
	"time"

	"github.com/clinicwave/clinic-scheduling/internal/notify"
)

// handleWhatsAppWebhook receives one inbound patient message, already
// unwrapped from the provider envelope by the messaging gateway.
func (s *Server) handleWhatsAppWebhook(w http.ResponseWriter, r *http.Request) {
	var req WebhookMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	reply, err := s.webhook.Handle(r.Context(), ClinicID(r.Context()), notify.InboundMessage{
		From:      req.From,
		Body:      req.Body,
		MessageID: req.MessageID,
		ContextID: req.ContextID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, WebhookReplyResponse{
		Intent:   string(reply.Intent),
		Response: reply.Response,
	})
}

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var from, to *time.Time
	if v := q.Get("dateFrom"); v != "" {
		d, ok := parseDate(w, "dateFrom", v)
		if !ok {
			return
		}
		from = &d
	}
	if v := q.Get("dateTo"); v != "" {
		d, ok := parseDate(w, "dateTo", v)
		if !ok {
			return
		}
		to = &d
	}

	counts, err := s.appointments.CountByStatus(r.Context(), ClinicID(r.Context()), from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	byStatus := make(map[string]int, len(counts))
	for st, n := range counts {
		byStatus[string(st)] = n
	}

	wlStats, err := s.waitlist.GetWaitlistStats(r.Context(), ClinicID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkgCounts, err := s.packages.CountByStatus(r.Context(), ClinicID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkgByStatus := make(map[string]int, len(pkgCounts))
	for st, n := range pkgCounts {
		pkgByStatus[string(st)] = n
	}

	writeJSON(w, http.StatusOK, DashboardStatsResponse{
		Appointments: byStatus,
		Packages:     pkgByStatus,
		Waitlist:     wlStats,
	})
}
