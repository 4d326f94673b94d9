package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saan-system/dispatch/internal/domain/entity"
	"github.com/saan-system/dispatch/internal/domain/repository"
	"github.com/saan-system/dispatch/internal/platform/apperror"
	"github.com/saan-system/dispatch/internal/platform/events"
	"github.com/saan-system/dispatch/internal/platform/hub"
	"github.com/saan-system/dispatch/internal/platform/routingclient"
	"github.com/saan-system/dispatch/internal/platform/tspclient"
)

// fakeRepo is an in-memory ParcelRepository for dispatcher tests.
type fakeRepo struct {
	parcels       map[int64]*entity.Parcel
	lastCompleted *entity.Parcel
}

func newFakeRepo(parcels ...*entity.Parcel) *fakeRepo {
	r := &fakeRepo{parcels: map[int64]*entity.Parcel{}}
	for _, p := range parcels {
		r.parcels[p.ID] = p
	}
	return r
}

func (r *fakeRepo) GetByID(ctx context.Context, id int64) (*entity.Parcel, error) {
	p, ok := r.parcels[id]
	if !ok {
		return nil, apperror.New(apperror.KindNotFound, "parcel not found")
	}
	return p, nil
}

func (r *fakeRepo) FindPending(ctx context.Context, status entity.Status, driverField repository.DriverField, driverID int64, scheduledCutoff *time.Time) ([]*entity.Parcel, error) {
	var out []*entity.Parcel
	for _, p := range r.parcels {
		if p.Status != status || p.IsDeleted {
			continue
		}
		var owner *int64
		if driverField == repository.FieldPickupDriver {
			owner = p.PickupDriverID
		} else {
			owner = p.DeliveryDriverID
		}
		if owner == nil || *owner != driverID {
			continue
		}
		if scheduledCutoff != nil && p.PickupScheduledDate != nil && p.PickupScheduledDate.After(*scheduledCutoff) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *fakeRepo) FindLastCompletedToday(ctx context.Context, driverField repository.DriverField, driverID int64, tsField repository.TimestampField, today time.Time) (*entity.Parcel, error) {
	return r.lastCompleted, nil
}

func (r *fakeRepo) AssignPickupDriver(ctx context.Context, id, driverID int64, scheduledDate time.Time) (bool, error) {
	p := r.parcels[id]
	if p.PickupDriverID != nil {
		return false, nil
	}
	p.PickupDriverID = &driverID
	p.PickupScheduledDate = &scheduledDate
	return true, nil
}

func (r *fakeRepo) CompletePickup(ctx context.Context, id, driverID int64, now time.Time) error {
	p := r.parcels[id]
	if p.Status != entity.StatusPickupPending || p.PickupDriverID == nil || *p.PickupDriverID != driverID {
		return apperror.New(apperror.KindConflict, "state guard failed")
	}
	p.Status = entity.StatusPickupCompleted
	p.PickupCompletedAt = &now
	return nil
}

func (r *fakeRepo) CompleteDelivery(ctx context.Context, id, driverID int64, now time.Time) error {
	p := r.parcels[id]
	if p.Status != entity.StatusDeliveryPending || p.DeliveryDriverID == nil || *p.DeliveryDriverID != driverID {
		return apperror.New(apperror.KindConflict, "state guard failed")
	}
	p.Status = entity.StatusDeliveryCompleted
	p.DeliveryCompletedAt = &now
	return nil
}

func (r *fakeRepo) CountPendingPickupAcrossAllDrivers(ctx context.Context, today time.Time) (int64, error) {
	return 0, nil
}
func (r *fakeRepo) CountPickupCompletedToday(ctx context.Context, today time.Time) (int64, error) {
	return 0, nil
}
func (r *fakeRepo) ImportPickupCompletedToDelivery(ctx context.Context, today time.Time) ([]*entity.Parcel, error) {
	return nil, nil
}
func (r *fakeRepo) FindDeliveryPendingUnassigned(ctx context.Context, today time.Time) ([]*entity.Parcel, error) {
	return nil, nil
}
func (r *fakeRepo) SetDeliveryDriver(ctx context.Context, id, driverID int64) error { return nil }
func (r *fakeRepo) StatusCounts(ctx context.Context) (map[entity.Status]int64, error) {
	return nil, nil
}

// newTestDispatcher wires a Dispatcher against fake routing/TSP servers so
// the online routing algorithm can run without a network dependency.
func newTestDispatcher(t *testing.T, cap Capability, repo repository.ParcelRepository) (*Dispatcher, *hub.State) {
	t.Helper()

	routingServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"coordinates":  [2]float64{127.0, 37.5},
				"confidence":   0.95,
				"display_name": "test",
				"district":     "강남구",
			})
		case "/route":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"trip": map[string]interface{}{
					"summary": map[string]interface{}{"time": 100.0, "length": 1.0},
					"legs":    []interface{}{},
				},
			})
		case "/sources_to_targets":
			var body struct {
				Sources []interface{} `json:"sources"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			n := len(body.Sources)
			row := make([][]map[string]float64, n)
			for i := range row {
				row[i] = make([]map[string]float64, n)
				for j := range row[i] {
					if i != j {
						row[i][j] = map[string]float64{"time": 10, "distance": 1}
					}
				}
			}
			json.NewEncoder(w).Encode(map[string]interface{}{"sources_to_targets": row})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(routingServer.Close)

	tspServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Matrix [][]int `json:"matrix"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		n := len(body.Matrix)
		tour := make([]int, n)
		for i := range tour {
			tour[i] = i
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"tour": tour, "tour_length": 0})
	}))
	t.Cleanup(tspServer.Close)

	routing := routingclient.New(routingServer.URL)
	tsp := tspclient.New(tspServer.URL)
	hubState := hub.New()
	log := logrus.New().WithField("service", "test")
	hubLoc := entity.Location{Lat: 37.5665, Lon: 126.9780, Name: "hub"}

	return New(cap, repo, routing, tsp, hubState, events.NoOpPublisher{}, hubLoc, time.UTC, log), hubState
}

func pickupCapability() Capability {
	noPendingWaitUntil := 12 * time.Hour
	return Capability{
		Name:               "pickup",
		PendingStatus:      entity.StatusPickupPending,
		CompletedStatus:    entity.StatusPickupCompleted,
		DriverField:        repository.FieldPickupDriver,
		TimestampField:     repository.FieldPickupCompletedAt,
		DriverIDMin:        entity.PickupDriverIDMin,
		DriverIDMax:        entity.PickupDriverIDMax,
		StartOfDay:         7 * time.Hour,
		HasCutoff:          true,
		NoPendingWaitUntil: &noPendingWaitUntil,
		Complete: func(ctx context.Context, repo repository.ParcelRepository, id, driverID int64, now time.Time) error {
			return repo.CompletePickup(ctx, id, driverID, now)
		},
	}
}

func TestDispatcher_Next_InvalidDriver(t *testing.T) {
	d, _ := newTestDispatcher(t, pickupCapability(), newFakeRepo())
	_, err := d.Next(context.Background(), 99, time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC))

	ae, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.KindPrecondition, ae.Kind)
}

func TestDispatcher_Next_BeforeStartOfDay(t *testing.T) {
	d, _ := newTestDispatcher(t, pickupCapability(), newFakeRepo())
	result, err := d.Next(context.Background(), 1, time.Date(2026, 7, 31, 6, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, result.Status)
	assert.Greater(t, result.WaitMinutes, 0)
}

func TestDispatcher_Next_EmptyPendingBeforeCutoff_WaitingForOrders(t *testing.T) {
	d, _ := newTestDispatcher(t, pickupCapability(), newFakeRepo())
	result, err := d.Next(context.Background(), 1, time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	assert.Equal(t, StatusWaitingForOrders, result.Status)
}

func TestDispatcher_Next_EmptyPendingAfterCutoff_ReturnToHub(t *testing.T) {
	d, _ := newTestDispatcher(t, pickupCapability(), newFakeRepo())
	result, err := d.Next(context.Background(), 1, time.Date(2026, 7, 31, 13, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	assert.Equal(t, StatusReturnToHub, result.Status)
	assert.True(t, result.IsLast)
}

func TestDispatcher_Next_AtHubWithNoPending_ReturnsAtHub(t *testing.T) {
	d, hubState := newTestDispatcher(t, pickupCapability(), newFakeRepo())
	hubState.Set(1)

	result, err := d.Next(context.Background(), 1, time.Date(2026, 7, 31, 13, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, StatusAtHub, result.Status)
}

func TestDispatcher_Next_SingleStop_SkipsMatrixAndTSP(t *testing.T) {
	scheduled := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	parcel := &entity.Parcel{
		ID: 1, Addr: "서울 강남구 테헤란로 152", Status: entity.StatusPickupPending,
		PickupDriverID: int64Ptr(1), PickupScheduledDate: &scheduled,
	}
	d, _ := newTestDispatcher(t, pickupCapability(), newFakeRepo(parcel))

	result, err := d.Next(context.Background(), 1, time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, StatusOK, result.Status)
	assert.Equal(t, int64(1), result.NextDestination.ID)
	assert.True(t, result.IsLast)
}

func TestDispatcher_Next_MultipleStops_ClearsAtHubFlag(t *testing.T) {
	scheduled := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	p1 := &entity.Parcel{ID: 1, Addr: "a", Status: entity.StatusPickupPending, PickupDriverID: int64Ptr(1), PickupScheduledDate: &scheduled}
	p2 := &entity.Parcel{ID: 2, Addr: "b", Status: entity.StatusPickupPending, PickupDriverID: int64Ptr(1), PickupScheduledDate: &scheduled}
	d, hubState := newTestDispatcher(t, pickupCapability(), newFakeRepo(p1, p2))
	hubState.Set(1)

	result, err := d.Next(context.Background(), 1, time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, StatusOK, result.Status)
	assert.Equal(t, 2, result.Remaining)
	assert.False(t, hubState.IsAtHub(1))
}

func TestDispatcher_Complete_WrongOwner_Returns403(t *testing.T) {
	parcel := &entity.Parcel{ID: 1, Status: entity.StatusPickupPending, PickupDriverID: int64Ptr(4)}
	d, _ := newTestDispatcher(t, pickupCapability(), newFakeRepo(parcel))

	err := d.Complete(context.Background(), 5, 1, time.Now())
	ae, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.KindForbidden, ae.Kind)
	assert.Equal(t, http.StatusForbidden, ae.StatusCode())
	assert.Equal(t, entity.StatusPickupPending, parcel.Status)
}

func TestDispatcher_Complete_CorrectOwner_Transitions(t *testing.T) {
	parcel := &entity.Parcel{ID: 1, Status: entity.StatusPickupPending, PickupDriverID: int64Ptr(5)}
	d, _ := newTestDispatcher(t, pickupCapability(), newFakeRepo(parcel))

	err := d.Complete(context.Background(), 5, 1, time.Now())
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPickupCompleted, parcel.Status)
}

func TestDispatcher_HubArrived_WithPendingFails(t *testing.T) {
	scheduled := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	parcel := &entity.Parcel{ID: 1, Status: entity.StatusPickupPending, PickupDriverID: int64Ptr(1), PickupScheduledDate: &scheduled}
	d, hubState := newTestDispatcher(t, pickupCapability(), newFakeRepo(parcel))

	err := d.HubArrived(context.Background(), 1, time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC))
	ae, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.KindPrecondition, ae.Kind)
	assert.False(t, hubState.IsAtHub(1))
}

func TestDispatcher_HubArrived_NoPendingSucceeds(t *testing.T) {
	d, hubState := newTestDispatcher(t, pickupCapability(), newFakeRepo())

	err := d.HubArrived(context.Background(), 1, time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, hubState.IsAtHub(1))
}

func int64Ptr(v int64) *int64 { return &v }
