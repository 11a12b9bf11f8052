package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"pickup-dispatch-service/internal/adapters/memory"
	"pickup-dispatch-service/internal/adapters/routing"
	"pickup-dispatch-service/internal/api/authn"
	"pickup-dispatch-service/internal/domain"
	"pickup-dispatch-service/internal/services"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	h         http.Handler
	auth      *authn.Authenticator
	store     *memory.Store
	center    domain.Center
	collector uuid.UUID
	provider  *routing.MockRouteProvider
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	center := domain.Center{Name: "Westlands", Location: domain.Coordinates{Lon: 36.80, Lat: -1.26}}
	require.NoError(t, store.CreateCenter(ctx, &center))
	collector := domain.User{Name: "Wanjiru", Email: "wanjiru@example.com", Role: domain.RoleCollector, CenterID: &center.ID, IsAvailable: true}
	require.NoError(t, store.CreateUser(ctx, &collector))

	geo, err := services.LoadGeoIndex(ctx, store)
	require.NoError(t, err)
	provider := routing.NewMockRouteProvider()
	auth := authn.New("test-secret")

	h := NewRouter(Deps{
		Log:        zerolog.Nop(),
		Auth:       auth,
		Store:      store,
		Geo:        geo,
		Dispatcher: services.NewDispatcher(store, geo),
		Lifecycle:  services.NewLifecycleMachine(store, nil, zerolog.Nop()),
		Routes:     services.NewRouteCache(memory.NewRouteStore(), provider, services.RouteCacheConfig{}, nil, zerolog.Nop()),
		Sweep:      services.NewInactivitySweep(store, &nopNotifier{}, nil, zerolog.Nop()),
	})
	return &testServer{h: h, auth: auth, store: store, center: center, collector: collector.ID, provider: provider}
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, domain.Identity, string, string) error { return nil }

func (s *testServer) token(t *testing.T, id uuid.UUID, role domain.Role) string {
	t.Helper()
	tok, err := s.auth.NewToken(domain.Principal{SubjectID: id, Role: role}, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) resident(t *testing.T) string {
	t.Helper()
	u := domain.User{Name: "Amani", Email: uuid.NewString() + "@example.com", Role: domain.RoleResident}
	require.NoError(t, s.store.CreateUser(context.Background(), &u))
	return s.token(t, u.ID, domain.RoleResident)
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func pickupBody() map[string]any {
	return map[string]any{
		"address":    "Ring Rd Parklands",
		"location":   map[string]float64{"lng": 36.81, "lat": -1.262},
		"waste_type": "plastic",
		"urgency":    "high",
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	code, body := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestRequiresToken(t *testing.T) {
	s := newTestServer(t)
	code, _ := s.do(t, http.MethodPost, "/pickups", "", pickupBody())
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestPickupFlow(t *testing.T) {
	s := newTestServer(t)
	resident := s.resident(t)
	collector := s.token(t, s.collector, domain.RoleCollector)

	code, created := s.do(t, http.MethodPost, "/pickups", resident, pickupBody())
	require.Equal(t, http.StatusCreated, code, created)
	assert.Equal(t, s.collector.String(), created["collector_id"])
	assert.Equal(t, "pending", created["status"])
	id := created["id"].(string)

	code, busy := s.do(t, http.MethodPost, "/pickups", resident, pickupBody())
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, true, busy["retryable"])

	code, queue := s.do(t, http.MethodGet, "/pickups/collector", collector, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, queue["pickups"], 1)

	code, _ = s.do(t, http.MethodPost, "/pickups/"+id+"/complete", resident, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, done := s.do(t, http.MethodPost, "/pickups/"+id+"/complete", collector, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "completed", done["status"])
	assert.NotNil(t, done["completed_at"])

	code, again := s.do(t, http.MethodPost, "/pickups/"+id+"/transition", collector, map[string]string{"status": "canceled"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "completed", again["current_status"])

	code, history := s.do(t, http.MethodGet, "/pickups/history", resident, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, history["pickups"], 1)
	assert.NotNil(t, history["last_waste_pickup"])

	code, saved := s.do(t, http.MethodGet, "/pickups/saved-addresses", resident, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, saved["addresses"], 1)
}

func TestCreatePickupErrors(t *testing.T) {
	s := newTestServer(t)
	resident := s.resident(t)

	body := pickupBody()
	body["location"] = map[string]float64{"lng": 10, "lat": 10}
	code, res := s.do(t, http.MethodPost, "/pickups", resident, body)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, true, res["retryable"])

	body = pickupBody()
	delete(body, "address")
	code, res = s.do(t, http.MethodPost, "/pickups", resident, body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "address", res["field"])

	code, _ = s.do(t, http.MethodPost, "/pickups", s.token(t, s.collector, domain.RoleCollector), pickupBody())
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodGet, "/pickups/not-a-uuid", resident, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/pickups/"+uuid.NewString(), resident, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRouteLookup(t *testing.T) {
	s := newTestServer(t)
	collector := s.token(t, s.collector, domain.RoleCollector)
	body := map[string]any{"start": []float64{36.8, -1.26}, "end": []float64{36.82, -1.28}}

	code, first := s.do(t, http.MethodPost, "/routes", collector, body)
	require.Equal(t, http.StatusOK, code, first)
	assert.Equal(t, false, first["cached"])
	assert.NotNil(t, first["geometry"])

	code, second := s.do(t, http.MethodPost, "/routes", collector, body)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, second["cached"])
	assert.Equal(t, first["distance_meters"], second["distance_meters"])
	assert.Equal(t, 1, s.provider.Calls())

	code, _ = s.do(t, http.MethodPost, "/routes", s.resident(t), body)
	assert.Equal(t, http.StatusForbidden, code)

	s.provider.Err = routing.ErrNoRoute
	code, res := s.do(t, http.MethodPost, "/routes", collector, map[string]any{"start": []float64{1, 1}, "end": []float64{2, 2}})
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, true, res["retryable"])
}

func TestCenterAdministration(t *testing.T) {
	s := newTestServer(t)
	admin := s.token(t, uuid.New(), domain.RoleAdmin)

	code, _ := s.do(t, http.MethodPost, "/centers", s.resident(t), map[string]any{"name": "x", "location": map[string]float64{"lng": 1, "lat": 1}})
	assert.Equal(t, http.StatusForbidden, code)

	code, center := s.do(t, http.MethodPost, "/centers", admin, map[string]any{
		"name": "Kisumu Depot", "location": map[string]float64{"lng": 34.76, "lat": -0.09},
	})
	require.Equal(t, http.StatusCreated, code, center)
	centerID := center["id"].(string)

	code, col := s.do(t, http.MethodPost, "/centers/"+centerID+"/collectors", admin, map[string]string{"name": "Otieno", "email": "otieno@example.com"})
	require.Equal(t, http.StatusCreated, code, col)

	code, list := s.do(t, http.MethodGet, "/centers/"+centerID+"/collectors", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, list["collectors"], 1)

	body := pickupBody()
	body["location"] = map[string]float64{"lng": 34.761, "lat": -0.091}
	code, created := s.do(t, http.MethodPost, "/pickups", s.resident(t), body)
	require.Equal(t, http.StatusCreated, code, created)
	assert.Equal(t, centerID, created["center_id"])
	assert.Equal(t, col["id"], created["collector_id"])

	code, pickups := s.do(t, http.MethodGet, "/centers/"+centerID+"/pickups", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, pickups["pickups"], 1)
}

func TestAdminInactive(t *testing.T) {
	s := newTestServer(t)
	admin := s.token(t, uuid.New(), domain.RoleAdmin)
	s.resident(t)

	code, res := s.do(t, http.MethodGet, "/admin/inactive?role=resident&days=7", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, res["identities"], 1)

	code, _ = s.do(t, http.MethodGet, "/admin/inactive?role=admin", admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/admin/inactive?role=resident&days=0", admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, sweep := s.do(t, http.MethodPost, "/admin/sweep", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, sweep["reports"], 2)
}
