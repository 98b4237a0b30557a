package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Nuthana-am/careslot/services/booking-service/internal/availability"
	"github.com/Nuthana-am/careslot/services/booking-service/internal/booking"
	"github.com/Nuthana-am/careslot/services/booking-service/internal/calendar"
	"github.com/Nuthana-am/careslot/services/booking-service/internal/interval"
	"github.com/Nuthana-am/careslot/services/booking-service/internal/model"
	"github.com/Nuthana-am/careslot/services/booking-service/internal/storage"
)

type BookingHandler struct {
	engine   *booking.Engine
	resolver *availability.Resolver
	bookings *storage.BookingRepository
	users    *storage.UserRepository
	secret   string
}

func NewBookingHandler(
	engine *booking.Engine,
	resolver *availability.Resolver,
	bookings *storage.BookingRepository,
	users *storage.UserRepository,
	secret string,
) *BookingHandler {
	return &BookingHandler{
		engine:   engine,
		resolver: resolver,
		bookings: bookings,
		users:    users,
		secret:   secret,
	}
}

type bookingResponse struct {
	ID           string     `json:"id"`
	ProviderID   string     `json:"provider_id"`
	RequesterID  string     `json:"requester_id"`
	StartAt      time.Time  `json:"start_at"`
	EndAt        time.Time  `json:"end_at"`
	Status       string     `json:"status"`
	Note         string     `json:"note,omitempty"`
	ReminderSent bool       `json:"reminder_sent"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type slotResponse struct {
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
}

func toBookingResponse(b model.Booking) bookingResponse {
	return bookingResponse{
		ID:           b.ID,
		ProviderID:   b.ProviderID,
		RequesterID:  b.RequesterID,
		StartAt:      b.StartAt,
		EndAt:        b.EndAt,
		Status:       b.Status,
		Note:         b.Note,
		ReminderSent: b.ReminderSent,
		CancelledAt:  b.CancelledAt,
		CreatedAt:    b.CreatedAt,
	}
}

// Slots returns a provider's free intervals for one calendar day.
func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if _, err := bearerClaims(r, h.secret); err != nil {
		http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
		return
	}

	providerID := strings.TrimSpace(r.URL.Query().Get("provider_id"))
	if providerID == "" {
		http.Error(w, "provider_id is required", http.StatusBadRequest)
		return
	}
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		http.Error(w, "date is required (YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	durationMins := 30
	if v := r.URL.Query().Get("duration_minutes"); v != "" {
		durationMins, err = strconv.Atoi(v)
		if err != nil || durationMins <= 0 || durationMins > 1440 {
			http.Error(w, "invalid duration_minutes", http.StatusBadRequest)
			return
		}
	}

	candidates, err := h.resolver.Resolve(r.Context(), providerID, date, time.Duration(durationMins)*time.Minute)
	if err != nil {
		writeDomainError(w, err, "failed to resolve availability")
		return
	}

	free := candidates
	if len(candidates) > 0 {
		dayStart := candidates[0].Start
		dayEnd := candidates[len(candidates)-1].End
		existing, err := h.bookings.ListScheduled(r.Context(), providerID, dayStart, dayEnd)
		if err != nil {
			writeDomainError(w, err, "failed to load bookings")
			return
		}
		free = availability.FilterFree(candidates, existing)
	}

	out := make([]slotResponse, 0, len(free))
	for _, iv := range free {
		out = append(out, slotResponse{StartAt: iv.Start, EndAt: iv.End})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(out)
}

// Create books a slot for the authenticated requester.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, err := bearerClaims(r, h.secret)
	if err != nil {
		http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
		return
	}

	var req struct {
		ProviderID string `json:"provider_id"`
		StartAt    string `json:"start_at"`
		EndAt      string `json:"end_at"`
		Note       string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ProviderID = strings.TrimSpace(req.ProviderID)
	if req.ProviderID == "" {
		http.Error(w, "provider_id is required", http.StatusBadRequest)
		return
	}
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartAt))
	if err != nil {
		http.Error(w, "invalid start_at (RFC3339)", http.StatusBadRequest)
		return
	}
	end, err := time.Parse(time.RFC3339, strings.TrimSpace(req.EndAt))
	if err != nil {
		http.Error(w, "invalid end_at (RFC3339)", http.StatusBadRequest)
		return
	}

	b, err := h.engine.Book(r.Context(), req.ProviderID, claims.Sub, interval.Interval{Start: start, End: end}, strings.TrimSpace(req.Note))
	if err != nil {
		writeDomainError(w, err, "failed to book appointment")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toBookingResponse(*b))
}

// List returns the authenticated party's bookings, hosted or requested
// depending on their role.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, err := bearerClaims(r, h.secret)
	if err != nil {
		http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
		return
	}

	items, err := h.bookings.ListByUser(r.Context(), claims.Sub, claims.Role)
	if err != nil {
		writeDomainError(w, err, "failed to list appointments")
		return
	}

	out := make([]bookingResponse, 0, len(items))
	for _, b := range items {
		out = append(out, toBookingResponse(b))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(out)
}

// Cancel releases a scheduled slot. Either party may cancel.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, err := bearerClaims(r, h.secret)
	if err != nil {
		http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
		return
	}

	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	if err := h.engine.Cancel(r.Context(), id, claims.Sub); err != nil {
		writeDomainError(w, err, "failed to cancel appointment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ICS exports one booking as an iCalendar document for the requesting party.
func (h *BookingHandler) ICS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, err := bearerClaims(r, h.secret)
	if err != nil {
		http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
		return
	}

	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	b, err := h.bookings.GetBooking(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "failed to load appointment")
		return
	}
	if claims.Sub != b.ProviderID && claims.Sub != b.RequesterID {
		http.Error(w, "not a party to this appointment", http.StatusForbidden)
		return
	}

	provider, err := h.users.GetByID(r.Context(), b.ProviderID)
	if err != nil {
		writeDomainError(w, err, "failed to load provider")
		return
	}
	requester, err := h.users.GetByID(r.Context(), b.RequesterID)
	if err != nil {
		writeDomainError(w, err, "failed to load requester")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="appointment.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(calendar.AppointmentICS(b, provider, requester)))
}

func writeDomainError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, model.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, model.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, model.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, model.ErrSlotUnavailable):
		http.Error(w, "slot unavailable", http.StatusConflict)
	case errors.Is(err, model.ErrInvalidState):
		http.Error(w, "appointment is not scheduled", http.StatusConflict)
	default:
		http.Error(w, fallback, http.StatusInternalServerError)
	}
}
