package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Nuthana-am/careslot/services/booking-service/internal/model"
	"github.com/Nuthana-am/careslot/services/booking-service/internal/storage"
)

type RulesHandler struct {
	rules  *storage.RuleRepository
	secret string
}

func NewRulesHandler(rules *storage.RuleRepository, secret string) *RulesHandler {
	return &RulesHandler{rules: rules, secret: secret}
}

type ruleResponse struct {
	ID          int64  `json:"id"`
	ProviderID  string `json:"provider_id"`
	Weekday     int    `json:"weekday"`
	StartMinute int    `json:"start_minute"`
	EndMinute   int    `json:"end_minute"`
}

// Create adds a weekly availability window for the authenticated provider.
func (h *RulesHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, err := bearerClaims(r, h.secret)
	if err != nil {
		http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
		return
	}
	if claims.Role != model.RoleProvider {
		http.Error(w, "only providers can manage availability", http.StatusForbidden)
		return
	}

	var req struct {
		Weekday     int `json:"weekday"`
		StartMinute int `json:"start_minute"`
		EndMinute   int `json:"end_minute"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.Weekday < 0 || req.Weekday > 6 {
		http.Error(w, "weekday must be between 0 and 6", http.StatusBadRequest)
		return
	}
	if req.StartMinute < 0 || req.StartMinute >= 1440 || req.EndMinute <= 0 || req.EndMinute > 1440 || req.StartMinute >= req.EndMinute {
		http.Error(w, "invalid start_minute/end_minute", http.StatusBadRequest)
		return
	}

	id, err := h.rules.Create(r.Context(), model.AvailabilityRule{
		ProviderID:  claims.Sub,
		Weekday:     time.Weekday(req.Weekday),
		StartMinute: req.StartMinute,
		EndMinute:   req.EndMinute,
	})
	if err != nil {
		http.Error(w, "failed to create availability rule", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"id": id})
}

// List returns a provider's weekly windows. Providers see their own by
// default; anyone may inspect another provider's with ?provider_id=.
func (h *RulesHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, err := bearerClaims(r, h.secret)
	if err != nil {
		http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
		return
	}

	providerID := strings.TrimSpace(r.URL.Query().Get("provider_id"))
	if providerID == "" {
		if claims.Role != model.RoleProvider {
			http.Error(w, "provider_id is required", http.StatusBadRequest)
			return
		}
		providerID = claims.Sub
	}

	rules, err := h.rules.ListByProvider(r.Context(), providerID)
	if err != nil {
		http.Error(w, "failed to list availability rules", http.StatusInternalServerError)
		return
	}

	out := make([]ruleResponse, 0, len(rules))
	for _, rule := range rules {
		out = append(out, ruleResponse{
			ID:          rule.ID,
			ProviderID:  rule.ProviderID,
			Weekday:     int(rule.Weekday),
			StartMinute: rule.StartMinute,
			EndMinute:   rule.EndMinute,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(out)
}

func (h *RulesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, err := bearerClaims(r, h.secret)
	if err != nil {
		http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
		return
	}
	if claims.Role != model.RoleProvider {
		http.Error(w, "only providers can manage availability", http.StatusForbidden)
		return
	}

	idStr := strings.TrimSpace(r.URL.Query().Get("id"))
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	if err := h.rules.Delete(r.Context(), id, claims.Sub); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			http.Error(w, "availability rule not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to delete availability rule", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
