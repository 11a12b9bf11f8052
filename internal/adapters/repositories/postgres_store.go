package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"pickup-dispatch-service/internal/domain"
	"pickup-dispatch-service/internal/ports"
	"time"

	"github.com/google/uuid"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres-backed implementation of the Store port.
type PostgresStore struct {
	DB *sql.DB
}

var _ ports.Store = (*PostgresStore)(nil)

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{DB: db}
}

const claimNextQuery = `
	UPDATE users
	SET is_available = FALSE, last_assigned_at = now()
	WHERE id = (
		SELECT id FROM users
		WHERE center_id = $1 AND role = 'collector' AND is_available
		ORDER BY last_assigned_at ASC NULLS FIRST, id
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	) AND is_available
	RETURNING id;
	`

// claimNext selects and flips one collector in a single statement. Rows
// locked by a concurrent claim are skipped rather than waited on, so two
// claims never return the same collector.
func claimNext(ctx context.Context, q queryer, centerID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.QueryRowContext(ctx, claimNextQuery, centerID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, ports.ErrNoneAvailable
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("claim collector center=%s: %w", centerID, err)
	}
	return id, nil
}

func release(ctx context.Context, q queryer, collectorID uuid.UUID) error {
	res, err := q.ExecContext(ctx, `
	UPDATE users SET is_available = TRUE
	WHERE id = $1 AND role = 'collector';
	`, collectorID)
	if err != nil {
		return fmt.Errorf("release collector %s: %w", collectorID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("release collector %s: %w", collectorID, domain.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) ClaimNext(ctx context.Context, centerID uuid.UUID) (uuid.UUID, error) {
	return claimNext(ctx, s.DB, centerID)
}

func (s *PostgresStore) Release(ctx context.Context, collectorID uuid.UUID) error {
	return release(ctx, s.DB, collectorID)
}

type pgTx struct{ tx *sql.Tx }

func (t pgTx) ClaimNext(ctx context.Context, centerID uuid.UUID) (uuid.UUID, error) {
	return claimNext(ctx, t.tx, centerID)
}

func (t pgTx) Release(ctx context.Context, collectorID uuid.UUID) error {
	return release(ctx, t.tx, collectorID)
}

func (t pgTx) InsertPickup(ctx context.Context, req *domain.PickupRequest) error {
	_, err := t.tx.ExecContext(ctx, `
	INSERT INTO pickup_requests (
		id, requester_id, center_id, collector_id, address, lon, lat,
		waste_type, urgency, status, requested_at, completed_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`,
		req.ID, req.RequesterID, req.CenterID, nullUUID(req.CollectorID), req.Address,
		req.Location.Lon, req.Location.Lat, req.WasteType, string(req.Urgency),
		string(req.Status), req.RequestedAt, nullTime(req.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("insert pickup %s: %w", req.ID, err)
	}
	return nil
}

func (t pgTx) GetPickupForUpdate(ctx context.Context, id uuid.UUID) (*domain.PickupRequest, error) {
	row := t.tx.QueryRowContext(ctx, selectPickupQuery+` WHERE id = $1 FOR UPDATE;`, id)
	p, err := scanPickup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pickup %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get pickup %s for update: %w", id, err)
	}
	return p, nil
}

func (t pgTx) UpdatePickupStatus(ctx context.Context, id uuid.UUID, status domain.Status, completedAt *time.Time) error {
	res, err := t.tx.ExecContext(ctx, `
	UPDATE pickup_requests SET status = $2, completed_at = $3 WHERE id = $1;
	`, id, string(status), nullTime(completedAt))
	if err != nil {
		return fmt.Errorf("update pickup %s status: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("pickup %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (t pgTx) TouchResident(ctx context.Context, residentID uuid.UUID, at time.Time) error {
	// Requesters unknown to this database are owned elsewhere; zero rows is fine.
	if _, err := t.tx.ExecContext(ctx, `
	UPDATE users SET last_waste_pickup = $2 WHERE id = $1;
	`, residentID, at); err != nil {
		return fmt.Errorf("touch resident %s: %w", residentID, err)
	}
	return nil
}

// WithinTx runs fn in a READ COMMITTED transaction.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	if s.DB == nil {
		return errors.New("postgres store: DB is nil")
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(ctx, pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const selectPickupQuery = `
	SELECT id, requester_id, center_id, collector_id, address, lon, lat,
		waste_type, urgency, status, requested_at, completed_at
	FROM pickup_requests`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPickup(row rowScanner) (*domain.PickupRequest, error) {
	var (
		p         domain.PickupRequest
		collector uuid.NullUUID
		completed sql.NullTime
		urgency   string
		status    string
	)
	if err := row.Scan(
		&p.ID, &p.RequesterID, &p.CenterID, &collector, &p.Address,
		&p.Location.Lon, &p.Location.Lat, &p.WasteType, &urgency, &status,
		&p.RequestedAt, &completed,
	); err != nil {
		return nil, err
	}
	if collector.Valid {
		id := collector.UUID
		p.CollectorID = &id
	}
	if completed.Valid {
		t := completed.Time
		p.CompletedAt = &t
	}
	p.Urgency = domain.ParseUrgency(urgency)
	p.Status = domain.Status(status)
	return &p, nil
}

func (s *PostgresStore) GetPickup(ctx context.Context, id uuid.UUID) (*domain.PickupRequest, error) {
	p, err := scanPickup(s.DB.QueryRowContext(ctx, selectPickupQuery+` WHERE id = $1;`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pickup %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get pickup %s: %w", id, err)
	}
	return p, nil
}

func (s *PostgresStore) listPickups(ctx context.Context, where string, arg any) ([]domain.PickupRequest, error) {
	rows, err := s.DB.QueryContext(ctx, selectPickupQuery+` WHERE `+where+` ORDER BY requested_at DESC, id;`, arg)
	if err != nil {
		return nil, fmt.Errorf("list pickups: query pickup_requests table: %w", err)
	}
	defer rows.Close()

	out := make([]domain.PickupRequest, 0, 16)
	for rows.Next() {
		p, err := scanPickup(rows)
		if err != nil {
			return nil, fmt.Errorf("list pickups: scan row: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pickups: row iteration: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]domain.PickupRequest, error) {
	return s.listPickups(ctx, `requester_id = $1`, requesterID)
}

func (s *PostgresStore) ListOpenByCollector(ctx context.Context, collectorID uuid.UUID) ([]domain.PickupRequest, error) {
	return s.listPickups(ctx, `collector_id = $1 AND status IN ('pending', 'assigned')`, collectorID)
}

func (s *PostgresStore) ListByCenter(ctx context.Context, centerID uuid.UUID) ([]domain.PickupRequest, error) {
	return s.listPickups(ctx, `center_id = $1`, centerID)
}

func (s *PostgresStore) ListCenters(ctx context.Context) ([]domain.Center, error) {
	rows, err := s.DB.QueryContext(ctx, `
	SELECT id, name, lon, lat, created_at FROM centers ORDER BY name, id;
	`)
	if err != nil {
		return nil, fmt.Errorf("list centers: query centers table: %w", err)
	}
	defer rows.Close()

	centers := make([]domain.Center, 0, 16)
	for rows.Next() {
		var c domain.Center
		if err := rows.Scan(&c.ID, &c.Name, &c.Location.Lon, &c.Location.Lat, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("list centers: scan row: %w", err)
		}
		centers = append(centers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list centers: row iteration: %w", err)
	}

	rosters, err := s.rosters(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list centers: %w", err)
	}
	for i := range centers {
		centers[i].CollectorIDs = rosters[centers[i].ID]
	}
	return centers, nil
}

// rosters maps center id to its collector ids; centerID narrows the scan.
func (s *PostgresStore) rosters(ctx context.Context, centerID *uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	rows, err := s.DB.QueryContext(ctx, `
	SELECT center_id, id FROM users
	WHERE role = 'collector' AND center_id IS NOT NULL
		AND ($1::uuid IS NULL OR center_id = $1)
	ORDER BY center_id, id;
	`, nullUUID(centerID))
	if err != nil {
		return nil, fmt.Errorf("query collector rosters: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]uuid.UUID)
	for rows.Next() {
		var center, id uuid.UUID
		if err := rows.Scan(&center, &id); err != nil {
			return nil, fmt.Errorf("scan collector roster: %w", err)
		}
		out[center] = append(out[center], id)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetCenter(ctx context.Context, id uuid.UUID) (*domain.Center, error) {
	var c domain.Center
	err := s.DB.QueryRowContext(ctx, `
	SELECT id, name, lon, lat, created_at FROM centers WHERE id = $1;
	`, id).Scan(&c.ID, &c.Name, &c.Location.Lon, &c.Location.Lat, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("center %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get center %s: %w", id, err)
	}

	rosters, err := s.rosters(ctx, &id)
	if err != nil {
		return nil, fmt.Errorf("get center %s: %w", id, err)
	}
	c.CollectorIDs = rosters[id]
	return &c, nil
}

func (s *PostgresStore) CreateCenter(ctx context.Context, c *domain.Center) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if _, err := s.DB.ExecContext(ctx, `
	INSERT INTO centers (id, name, lon, lat, created_at) VALUES ($1, $2, $3, $4, $5);
	`, c.ID, c.Name, c.Location.Lon, c.Location.Lat, c.CreatedAt); err != nil {
		return fmt.Errorf("create center %q: %w", c.Name, err)
	}
	return nil
}

func (s *PostgresStore) ListCollectors(ctx context.Context, centerID uuid.UUID) ([]domain.Collector, error) {
	rows, err := s.DB.QueryContext(ctx, `
	SELECT id, name, center_id, is_available, last_assigned_at
	FROM users
	WHERE role = 'collector' AND center_id = $1
	ORDER BY name, id;
	`, centerID)
	if err != nil {
		return nil, fmt.Errorf("list collectors: query users table: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Collector, 0, 8)
	for rows.Next() {
		var (
			c        domain.Collector
			assigned sql.NullTime
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.CenterID, &c.IsAvailable, &assigned); err != nil {
			return nil, fmt.Errorf("list collectors: scan row: %w", err)
		}
		c.LastAssignedAt = timePtr(assigned)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list collectors: row iteration: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SaveAddress(ctx context.Context, userID uuid.UUID, addr domain.SavedAddress) error {
	if _, err := s.DB.ExecContext(ctx, `
	INSERT INTO saved_addresses (user_id, address, lon, lat, waste_type, urgency)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (user_id, address, lon, lat) DO NOTHING;
	`, userID, addr.Address, addr.Location.Lon, addr.Location.Lat, addr.WasteType, string(addr.Urgency)); err != nil {
		return fmt.Errorf("save address user=%s: %w", userID, err)
	}
	return nil
}

func (s *PostgresStore) ListAddresses(ctx context.Context, userID uuid.UUID) ([]domain.SavedAddress, error) {
	rows, err := s.DB.QueryContext(ctx, `
	SELECT address, lon, lat, waste_type, urgency
	FROM saved_addresses
	WHERE user_id = $1
	ORDER BY created_at, address;
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: query saved_addresses table: %w", err)
	}
	defer rows.Close()

	out := make([]domain.SavedAddress, 0, 8)
	for rows.Next() {
		var (
			a       domain.SavedAddress
			urgency string
		)
		if err := rows.Scan(&a.Address, &a.Location.Lon, &a.Location.Lat, &a.WasteType, &urgency); err != nil {
			return nil, fmt.Errorf("list addresses: scan row: %w", err)
		}
		a.Urgency = domain.ParseUrgency(urgency)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list addresses: row iteration: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var (
		u                domain.User
		role             string
		center           uuid.NullUUID
		assigned, pickup sql.NullTime
	)
	err := s.DB.QueryRowContext(ctx, `
	SELECT id, name, email, role, center_id, is_available, last_assigned_at, last_waste_pickup, created_at
	FROM users WHERE id = $1;
	`, id).Scan(&u.ID, &u.Name, &u.Email, &role, &center, &u.IsAvailable, &assigned, &pickup, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	u.Role = domain.Role(role)
	if center.Valid {
		c := center.UUID
		u.CenterID = &c
	}
	u.LastAssignedAt = timePtr(assigned)
	u.LastWastePickup = timePtr(pickup)
	return &u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *domain.User) error {
	if u.Role == domain.RoleCollector && u.CenterID == nil {
		return domain.NewValidationError("center_id", "collectors must belong to a center")
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if _, err := s.DB.ExecContext(ctx, `
	INSERT INTO users (id, name, email, role, center_id, is_available, last_assigned_at, last_waste_pickup, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`,
		u.ID, u.Name, u.Email, string(u.Role), nullUUID(u.CenterID), u.IsAvailable,
		nullTime(u.LastAssignedAt), nullTime(u.LastWastePickup), u.CreatedAt,
	); err != nil {
		return fmt.Errorf("create user %s: %w", u.ID, err)
	}
	return nil
}

func (s *PostgresStore) ListActivity(ctx context.Context, role domain.Role) ([]domain.Identity, error) {
	var q string
	switch role {
	case domain.RoleResident:
		q = `
		SELECT id, name, email, role, last_waste_pickup
		FROM users WHERE role = 'resident'
		ORDER BY email, id;
		`
	case domain.RoleCollector:
		q = `
		SELECT u.id, u.name, u.email, u.role, MAX(p.completed_at)
		FROM users u
		LEFT JOIN pickup_requests p
			ON p.collector_id = u.id AND p.status = 'completed'
		WHERE u.role = 'collector'
		GROUP BY u.id, u.name, u.email, u.role
		ORDER BY u.email, u.id;
		`
	default:
		return nil, domain.NewValidationError("role", "must be resident or collector")
	}

	rows, err := s.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list activity %s: %w", role, err)
	}
	defer rows.Close()

	out := make([]domain.Identity, 0, 64)
	for rows.Next() {
		var (
			id   domain.Identity
			r    string
			last sql.NullTime
		)
		if err := rows.Scan(&id.ID, &id.Name, &id.Email, &r, &last); err != nil {
			return nil, fmt.Errorf("list activity %s: scan row: %w", role, err)
		}
		id.Role = domain.Role(r)
		id.LastActivity = timePtr(last)
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list activity %s: row iteration: %w", role, err)
	}
	return out, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
