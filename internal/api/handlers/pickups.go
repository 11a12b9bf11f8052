package handlers

import (
	"net/http"
	"pickup-dispatch-service/internal/api/dto"
	"pickup-dispatch-service/internal/domain"
	"pickup-dispatch-service/internal/ports"
	"pickup-dispatch-service/internal/services"
	"time"

	"github.com/google/uuid"
)

// PickupHandler exposes dispatch, lifecycle transitions and the per-role
// pickup views.
type PickupHandler struct {
	Dispatcher *services.Dispatcher
	Lifecycle  *services.LifecycleMachine
	Pickups    ports.PickupRepository
	Addresses  ports.AddressBook
	Users      ports.UserRepository
}

func (h *PickupHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req dto.CreatePickupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := services.CreatePickupRequest{Address: req.Address, WasteType: req.WasteType, Urgency: req.Urgency}
	if req.Location != nil {
		c := req.Location.Coordinates()
		in.Location = &c
	}
	created, err := h.Dispatcher.CreatePickup(r.Context(), p, in)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, dto.PickupFrom(*created))
}

func (h *PickupHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	req, err := h.Pickups.GetPickup(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if !p.CanView(req) {
		writeError(w, r, http.StatusForbidden, "forbidden")
		return
	}
	writeJSON(w, r, http.StatusOK, dto.PickupFrom(*req))
}

func (h *PickupHandler) Transition(w http.ResponseWriter, r *http.Request) {
	var body dto.TransitionRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	to, ok := domain.ParseStatus(body.Status)
	if !ok {
		writeJSON(w, r, http.StatusBadRequest, errorBody{Error: "unknown status " + body.Status, Field: "status"})
		return
	}
	h.transition(w, r, to)
}

func (h *PickupHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, domain.StatusCompleted)
}

func (h *PickupHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, domain.StatusCanceled)
}

func (h *PickupHandler) transition(w http.ResponseWriter, r *http.Request, to domain.Status) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	out, err := h.Lifecycle.Transition(r.Context(), id, to, p)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.PickupFrom(*out))
}

// History lists the caller's own requests, newest first.
func (h *PickupHandler) History(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if !p.IsResident() {
		writeError(w, r, http.StatusForbidden, "only residents have a pickup history")
		return
	}

	reqs, err := h.Pickups.ListByRequester(r.Context(), p.SubjectID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var last *time.Time
	if u, err := h.Users.GetUser(r.Context(), p.SubjectID); err == nil {
		last = u.LastWastePickup
	}
	writeJSON(w, r, http.StatusOK, dto.HistoryResponse{Pickups: dto.PickupsFrom(reqs), LastWastePickup: last})
}

func (h *PickupHandler) SavedAddresses(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if !p.IsResident() {
		writeError(w, r, http.StatusForbidden, "only residents have saved addresses")
		return
	}

	addrs, err := h.Addresses.ListAddresses(r.Context(), p.SubjectID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	res := dto.ListSavedAddressesResponse{Addresses: make([]dto.SavedAddressResponse, 0, len(addrs))}
	for _, a := range addrs {
		res.Addresses = append(res.Addresses, dto.SavedAddressResponse{
			Address:   a.Address,
			Location:  dto.LocationFrom(a.Location),
			WasteType: a.WasteType,
			Urgency:   string(a.Urgency),
		})
	}
	writeJSON(w, r, http.StatusOK, res)
}

// CollectorQueue lists the open requests assigned to the calling collector.
func (h *PickupHandler) CollectorQueue(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if !p.IsCollector() || p.SubjectID == uuid.Nil {
		writeError(w, r, http.StatusForbidden, "only collectors have a queue")
		return
	}

	reqs, err := h.Pickups.ListOpenByCollector(r.Context(), p.SubjectID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.ListPickupsResponse{Pickups: dto.PickupsFrom(reqs)})
}
