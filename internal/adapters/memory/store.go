package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"pickup-dispatch-service/internal/domain"
	"pickup-dispatch-service/internal/ports"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var errOpenRequestExists = errors.New("collector already has an open request")

// Store is an in-process ports.Store. Transactions are serialised by a single
// mutex and rolled back from an undo journal, which makes ClaimNext trivially
// linearizable. Intended for tests and single-node demos.
type Store struct {
	mu        sync.Mutex
	centers   map[uuid.UUID]domain.Center
	users     map[uuid.UUID]domain.User
	pickups   map[uuid.UUID]domain.PickupRequest
	addresses map[uuid.UUID][]domain.SavedAddress
	now       func() time.Time
}

var _ ports.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		centers:   make(map[uuid.UUID]domain.Center),
		users:     make(map[uuid.UUID]domain.User),
		pickups:   make(map[uuid.UUID]domain.PickupRequest),
		addresses: make(map[uuid.UUID][]domain.SavedAddress),
		now:       time.Now,
	}
}

// SetClock replaces the time source used for lastAssignedAt.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// tx stages writes against the store while the store mutex is held.
type tx struct {
	s    *Store
	undo []func()
}

func (t *tx) ClaimNext(_ context.Context, centerID uuid.UUID) (uuid.UUID, error) {
	prev, err := t.s.claimLocked(centerID)
	if err != nil {
		return uuid.Nil, err
	}
	t.undo = append(t.undo, func() { t.s.users[prev.ID] = prev })
	return prev.ID, nil
}

func (t *tx) Release(_ context.Context, collectorID uuid.UUID) error {
	prev, err := t.s.releaseLocked(collectorID)
	if err != nil {
		return err
	}
	t.undo = append(t.undo, func() { t.s.users[prev.ID] = prev })
	return nil
}

func (t *tx) InsertPickup(_ context.Context, req *domain.PickupRequest) error {
	if _, ok := t.s.pickups[req.ID]; ok {
		return fmt.Errorf("insert pickup %s: duplicate id", req.ID)
	}
	if req.CollectorID != nil && req.Status.IsOpen() {
		for _, p := range t.s.pickups {
			if p.CollectorID != nil && *p.CollectorID == *req.CollectorID && p.Status.IsOpen() {
				return fmt.Errorf("insert pickup %s: %w", req.ID, errOpenRequestExists)
			}
		}
	}
	t.s.pickups[req.ID] = clonePickup(*req)
	id := req.ID
	t.undo = append(t.undo, func() { delete(t.s.pickups, id) })
	return nil
}

func (t *tx) GetPickupForUpdate(_ context.Context, id uuid.UUID) (*domain.PickupRequest, error) {
	p, ok := t.s.pickups[id]
	if !ok {
		return nil, fmt.Errorf("pickup %s: %w", id, domain.ErrNotFound)
	}
	out := clonePickup(p)
	return &out, nil
}

func (t *tx) UpdatePickupStatus(_ context.Context, id uuid.UUID, status domain.Status, completedAt *time.Time) error {
	prev, ok := t.s.pickups[id]
	if !ok {
		return fmt.Errorf("pickup %s: %w", id, domain.ErrNotFound)
	}
	next := clonePickup(prev)
	next.Status = status
	next.CompletedAt = cloneTime(completedAt)
	t.s.pickups[id] = next
	t.undo = append(t.undo, func() { t.s.pickups[id] = prev })
	return nil
}

func (t *tx) TouchResident(_ context.Context, residentID uuid.UUID, at time.Time) error {
	prev, ok := t.s.users[residentID]
	if !ok {
		// residents are owned by the identity collaborator and may be unknown here
		return nil
	}
	next := prev
	next.LastWastePickup = &at
	t.s.users[residentID] = next
	t.undo = append(t.undo, func() { t.s.users[residentID] = prev })
	return nil
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{s: s}
	if err := fn(ctx, t); err != nil {
		for i := len(t.undo) - 1; i >= 0; i-- {
			t.undo[i]()
		}
		return err
	}
	return nil
}

func (s *Store) ClaimNext(_ context.Context, centerID uuid.UUID) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, err := s.claimLocked(centerID)
	if err != nil {
		return uuid.Nil, err
	}
	return prev.ID, nil
}

func (s *Store) Release(_ context.Context, collectorID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.releaseLocked(collectorID)
	return err
}

// claimLocked flips the chosen collector and returns its previous state.
func (s *Store) claimLocked(centerID uuid.UUID) (domain.User, error) {
	var (
		best  domain.User
		found bool
	)
	for _, u := range s.users {
		if u.Role != domain.RoleCollector || !u.IsAvailable || u.CenterID == nil || *u.CenterID != centerID {
			continue
		}
		if !found || assignedBefore(u, best) {
			best, found = u, true
		}
	}
	if !found {
		return domain.User{}, ports.ErrNoneAvailable
	}

	next := best
	now := s.now().UTC()
	next.IsAvailable = false
	next.LastAssignedAt = &now
	s.users[best.ID] = next
	return best, nil
}

func (s *Store) releaseLocked(collectorID uuid.UUID) (domain.User, error) {
	u, ok := s.users[collectorID]
	if !ok || u.Role != domain.RoleCollector {
		return domain.User{}, fmt.Errorf("release collector %s: %w", collectorID, domain.ErrNotFound)
	}
	next := u
	next.IsAvailable = true
	s.users[collectorID] = next
	return u, nil
}

// assignedBefore orders never-assigned collectors first, then by oldest
// assignment, then by id.
func assignedBefore(a, b domain.User) bool {
	switch {
	case a.LastAssignedAt == nil && b.LastAssignedAt != nil:
		return true
	case a.LastAssignedAt != nil && b.LastAssignedAt == nil:
		return false
	case a.LastAssignedAt != nil && !a.LastAssignedAt.Equal(*b.LastAssignedAt):
		return a.LastAssignedAt.Before(*b.LastAssignedAt)
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}

func (s *Store) ListCenters(_ context.Context) ([]domain.Center, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Center, 0, len(s.centers))
	for _, c := range s.centers {
		out = append(out, s.withRosterLocked(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetCenter(_ context.Context, id uuid.UUID) (*domain.Center, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.centers[id]
	if !ok {
		return nil, fmt.Errorf("center %s: %w", id, domain.ErrNotFound)
	}
	c = s.withRosterLocked(c)
	return &c, nil
}

func (s *Store) CreateCenter(_ context.Context, c *domain.Center) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}
	if _, ok := s.centers[c.ID]; ok {
		return fmt.Errorf("create center %s: duplicate id", c.ID)
	}
	stored := *c
	stored.CollectorIDs = nil
	s.centers[c.ID] = stored
	return nil
}

// withRosterLocked fills CollectorIDs from the users that point at c.
func (s *Store) withRosterLocked(c domain.Center) domain.Center {
	ids := make([]uuid.UUID, 0)
	for _, u := range s.users {
		if u.Role == domain.RoleCollector && u.CenterID != nil && *u.CenterID == c.ID {
			ids = append(ids, u.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
	c.CollectorIDs = ids
	return c
}

func (s *Store) ListCollectors(_ context.Context, centerID uuid.UUID) ([]domain.Collector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Collector, 0)
	for _, u := range s.users {
		if u.Role != domain.RoleCollector || u.CenterID == nil || *u.CenterID != centerID {
			continue
		}
		out = append(out, domain.Collector{
			ID:             u.ID,
			Name:           u.Name,
			CenterID:       *u.CenterID,
			IsAvailable:    u.IsAvailable,
			LastAssignedAt: cloneTime(u.LastAssignedAt),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetPickup(_ context.Context, id uuid.UUID) (*domain.PickupRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pickups[id]
	if !ok {
		return nil, fmt.Errorf("pickup %s: %w", id, domain.ErrNotFound)
	}
	out := clonePickup(p)
	return &out, nil
}

func (s *Store) ListByRequester(_ context.Context, requesterID uuid.UUID) ([]domain.PickupRequest, error) {
	return s.listPickups(func(p domain.PickupRequest) bool { return p.RequesterID == requesterID }), nil
}

func (s *Store) ListOpenByCollector(_ context.Context, collectorID uuid.UUID) ([]domain.PickupRequest, error) {
	return s.listPickups(func(p domain.PickupRequest) bool {
		return p.CollectorID != nil && *p.CollectorID == collectorID && p.Status.IsOpen()
	}), nil
}

func (s *Store) ListByCenter(_ context.Context, centerID uuid.UUID) ([]domain.PickupRequest, error) {
	return s.listPickups(func(p domain.PickupRequest) bool { return p.CenterID == centerID }), nil
}

// listPickups returns matching requests, newest first.
func (s *Store) listPickups(match func(domain.PickupRequest) bool) []domain.PickupRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.PickupRequest, 0)
	for _, p := range s.pickups {
		if match(p) {
			out = append(out, clonePickup(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	return out
}

func (s *Store) SaveAddress(_ context.Context, userID uuid.UUID, addr domain.SavedAddress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.addresses[userID] {
		if a.SameAs(addr) {
			return nil
		}
	}
	s.addresses[userID] = append(s.addresses[userID], addr)
	return nil
}

func (s *Store) ListAddresses(_ context.Context, userID uuid.UUID) ([]domain.SavedAddress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.SavedAddress{}, s.addresses[userID]...), nil
}

func (s *Store) GetUser(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return &u, nil
}

func (s *Store) CreateUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}
	if _, ok := s.users[u.ID]; ok {
		return fmt.Errorf("create user %s: duplicate id", u.ID)
	}
	if u.Role == domain.RoleCollector {
		if u.CenterID == nil {
			return domain.NewValidationError("center_id", "collectors must belong to a center")
		}
		if _, ok := s.centers[*u.CenterID]; !ok {
			return fmt.Errorf("create user: center %s: %w", *u.CenterID, domain.ErrNotFound)
		}
	}
	s.users[u.ID] = *u
	return nil
}

func (s *Store) ListActivity(_ context.Context, role domain.Role) ([]domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest map[uuid.UUID]time.Time
	if role == domain.RoleCollector {
		latest = make(map[uuid.UUID]time.Time)
		for _, p := range s.pickups {
			if p.Status != domain.StatusCompleted || p.CollectorID == nil || p.CompletedAt == nil {
				continue
			}
			if cur, ok := latest[*p.CollectorID]; !ok || p.CompletedAt.After(cur) {
				latest[*p.CollectorID] = *p.CompletedAt
			}
		}
	}

	out := make([]domain.Identity, 0)
	for _, u := range s.users {
		if u.Role != role {
			continue
		}
		id := domain.Identity{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
		switch role {
		case domain.RoleResident:
			id.LastActivity = cloneTime(u.LastWastePickup)
		case domain.RoleCollector:
			if t, ok := latest[u.ID]; ok {
				id.LastActivity = &t
			}
		}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func clonePickup(p domain.PickupRequest) domain.PickupRequest {
	if p.CollectorID != nil {
		id := *p.CollectorID
		p.CollectorID = &id
	}
	p.CompletedAt = cloneTime(p.CompletedAt)
	return p
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
