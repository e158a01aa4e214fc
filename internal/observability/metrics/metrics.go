package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for booking and waitlist
// flows. All receivers are nil-safe so services can run without a registry.
type SchedulingMetrics struct {
	bookingsTotal       *prometheus.CounterVec
	bookingConflicts    prometheus.Counter
	cancellationsTotal  *prometheus.CounterVec
	waitlistOffersTotal prometheus.Counter
	waitlistFillsTotal  prometheus.Counter
	offerExpiriesTotal  prometheus.Counter
	availabilityLatency prometheus.Histogram
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicwave",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Appointments created, by type and source",
		}, []string{"type", "source"}),
		bookingConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinicwave",
			Subsystem: "scheduling",
			Name:      "booking_conflicts_total",
			Help:      "Booking attempts rejected because the slot was taken",
		}),
		cancellationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicwave",
			Subsystem: "scheduling",
			Name:      "cancellations_total",
			Help:      "Appointments cancelled, by reason",
		}, []string{"reason"}),
		waitlistOffersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinicwave",
			Subsystem: "waitlist",
			Name:      "offers_total",
			Help:      "Waitlist offers made for freed slots",
		}),
		waitlistFillsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinicwave",
			Subsystem: "waitlist",
			Name:      "fills_total",
			Help:      "Waitlist offers accepted and booked",
		}),
		offerExpiriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinicwave",
			Subsystem: "waitlist",
			Name:      "offer_expiries_total",
			Help:      "Waitlist offers expired unanswered",
		}),
		availabilityLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinicwave",
			Subsystem: "scheduling",
			Name:      "availability_latency_seconds",
			Help:      "Latency of availability computation",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.bookingsTotal,
		m.bookingConflicts,
		m.cancellationsTotal,
		m.waitlistOffersTotal,
		m.waitlistFillsTotal,
		m.offerExpiriesTotal,
		m.availabilityLatency,
	)
	return m
}

func (m *SchedulingMetrics) ObserveBooking(apptType, source string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(apptType, source).Inc()
}

func (m *SchedulingMetrics) ObserveBookingConflict() {
	if m == nil {
		return
	}
	m.bookingConflicts.Inc()
}

func (m *SchedulingMetrics) ObserveCancellation(reason string) {
	if m == nil {
		return
	}
	m.cancellationsTotal.WithLabelValues(reason).Inc()
}

func (m *SchedulingMetrics) ObserveWaitlistOffer() {
	if m == nil {
		return
	}
	m.waitlistOffersTotal.Inc()
}

func (m *SchedulingMetrics) ObserveWaitlistFill() {
	if m == nil {
		return
	}
	m.waitlistFillsTotal.Inc()
}

func (m *SchedulingMetrics) ObserveOfferExpiry() {
	if m == nil {
		return
	}
	m.offerExpiriesTotal.Inc()
}

func (m *SchedulingMetrics) ObserveAvailabilityLatency(seconds float64) {
	if m == nil {
		return
	}
	m.availabilityLatency.Observe(seconds)
}
