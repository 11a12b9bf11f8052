package handlers

import (
	"net/http"
	"net/mail"
	"pickup-dispatch-service/internal/api/dto"
	"pickup-dispatch-service/internal/domain"
	"pickup-dispatch-service/internal/ports"
	"pickup-dispatch-service/internal/services"
	"strings"

	"github.com/google/uuid"
)

// CenterHandler covers center administration and the per-center views.
// New centers are inserted into Geo so dispatch sees them immediately.
type CenterHandler struct {
	Centers ports.CenterRepository
	Users   ports.UserRepository
	Pickups ports.PickupRepository
	Geo     *services.GeoIndex
}

func (h *CenterHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if !p.IsAdmin() {
		writeError(w, r, http.StatusForbidden, "forbidden")
		return
	}

	var req dto.CreateCenterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeDomainError(w, r, domain.NewValidationError("name", "is required"))
		return
	}
	if req.Location == nil {
		writeDomainError(w, r, domain.NewValidationError("location", "is required"))
		return
	}
	loc := req.Location.Coordinates()
	if err := loc.Validate(); err != nil {
		writeDomainError(w, r, domain.NewValidationError("location", err.Error()))
		return
	}

	c := domain.Center{Name: name, Location: loc}
	if err := h.Centers.CreateCenter(r.Context(), &c); err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.Geo.Upsert(c)
	writeJSON(w, r, http.StatusCreated, dto.CenterFrom(c))
}

// RegisterCollector creates a collector account bound to the center.
func (h *CenterHandler) RegisterCollector(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if !p.IsAdmin() {
		writeError(w, r, http.StatusForbidden, "forbidden")
		return
	}
	centerID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req dto.RegisterCollectorRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeDomainError(w, r, domain.NewValidationError("name", "is required"))
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeDomainError(w, r, domain.NewValidationError("email", "is not a valid address"))
		return
	}
	if _, err := h.Centers.GetCenter(r.Context(), centerID); err != nil {
		writeDomainError(w, r, err)
		return
	}

	u := domain.User{
		Name:        name,
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Role:        domain.RoleCollector,
		CenterID:    &centerID,
		IsAvailable: true,
	}
	if err := h.Users.CreateUser(r.Context(), &u); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, dto.CollectorResponse{
		ID:          u.ID,
		Name:        u.Name,
		CenterID:    centerID,
		IsAvailable: u.IsAvailable,
	})
}

func (h *CenterHandler) ListPickups(w http.ResponseWriter, r *http.Request) {
	centerID, ok := h.authorizeView(w, r)
	if !ok {
		return
	}
	reqs, err := h.Pickups.ListByCenter(r.Context(), centerID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.ListPickupsResponse{Pickups: dto.PickupsFrom(reqs)})
}

func (h *CenterHandler) ListCollectors(w http.ResponseWriter, r *http.Request) {
	centerID, ok := h.authorizeView(w, r)
	if !ok {
		return
	}
	cs, err := h.Centers.ListCollectors(r.Context(), centerID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.CollectorsFrom(cs))
}

func (h *CenterHandler) authorizeView(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	p, ok := principal(w, r)
	if !ok {
		return uuid.Nil, false
	}
	if !p.CanViewCenter() {
		writeError(w, r, http.StatusForbidden, "forbidden")
		return uuid.Nil, false
	}
	centerID, ok := pathID(w, r, "id")
	if !ok {
		return uuid.Nil, false
	}
	if _, err := h.Centers.GetCenter(r.Context(), centerID); err != nil {
		writeDomainError(w, r, err)
		return uuid.Nil, false
	}
	return centerID, true
}
