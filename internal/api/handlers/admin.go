package handlers

import (
	"net/http"
	"pickup-dispatch-service/internal/api/dto"
	"pickup-dispatch-service/internal/domain"
	"pickup-dispatch-service/internal/services"
	"strconv"
)

type AdminHandler struct {
	Sweep      *services.InactivitySweep
	WindowDays int
}

// Inactive lists identities of ?role= with no activity in the last ?days=.
func (h *AdminHandler) Inactive(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	role, err := domain.ParseRole(r.URL.Query().Get("role"))
	if err != nil {
		writeDomainError(w, r, domain.NewValidationError("role", err.Error()))
		return
	}
	days, ok := h.windowDays(w, r)
	if !ok {
		return
	}

	ids, err := h.Sweep.FindInactive(r.Context(), role, days)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	res := dto.InactiveResponse{Role: string(role), WindowDays: days, Identities: make([]dto.IdentityResponse, 0, len(ids))}
	for _, id := range ids {
		res.Identities = append(res.Identities, dto.IdentityResponse{
			ID:           id.ID,
			Name:         id.Name,
			Email:        id.Email,
			Role:         string(id.Role),
			LastActivity: id.LastActivity,
		})
	}
	writeJSON(w, r, http.StatusOK, res)
}

// RunSweep notifies inactive residents and collectors now.
func (h *AdminHandler) RunSweep(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	days, ok := h.windowDays(w, r)
	if !ok {
		return
	}

	res := dto.SweepResponse{Reports: make([]dto.SweepReportResponse, 0, 2)}
	for _, role := range []domain.Role{domain.RoleResident, domain.RoleCollector} {
		rep, err := h.Sweep.Run(r.Context(), role, days)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		res.Reports = append(res.Reports, dto.SweepReportResponse{
			Role:     string(rep.Role),
			Inactive: rep.Inactive,
			Notified: rep.Notified,
			Failed:   rep.Failed,
		})
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *AdminHandler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	p, ok := principal(w, r)
	if !ok {
		return false
	}
	if !p.IsAdmin() {
		writeError(w, r, http.StatusForbidden, "forbidden")
		return false
	}
	return true
}

func (h *AdminHandler) windowDays(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		if h.WindowDays > 0 {
			return h.WindowDays, true
		}
		return services.DefaultInactivityWindowDays, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 || days > 365 {
		writeDomainError(w, r, domain.NewValidationError("days", "must be an integer between 1 and 365"))
		return 0, false
	}
	return days, true
}
