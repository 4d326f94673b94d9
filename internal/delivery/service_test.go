package delivery

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saan-system/dispatch/internal/domain/entity"
	"github.com/saan-system/dispatch/internal/domain/repository"
	"github.com/saan-system/dispatch/internal/platform/events"
)

// fakeRepo is a minimal in-memory ParcelRepository covering only what the
// Delivery Dispatcher's Service exercises.
type fakeRepo struct {
	toImport   []*entity.Parcel
	unassigned []*entity.Parcel
	assigned   map[int64]int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{assigned: map[int64]int64{}}
}

func (r *fakeRepo) GetByID(ctx context.Context, id int64) (*entity.Parcel, error) { return nil, nil }

func (r *fakeRepo) FindPending(ctx context.Context, status entity.Status, driverField repository.DriverField, driverID int64, scheduledCutoff *time.Time) ([]*entity.Parcel, error) {
	return nil, nil
}

func (r *fakeRepo) FindLastCompletedToday(ctx context.Context, driverField repository.DriverField, driverID int64, tsField repository.TimestampField, today time.Time) (*entity.Parcel, error) {
	return nil, nil
}

func (r *fakeRepo) AssignPickupDriver(ctx context.Context, id, driverID int64, scheduledDate time.Time) (bool, error) {
	return false, nil
}
func (r *fakeRepo) CompletePickup(ctx context.Context, id, driverID int64, now time.Time) error {
	return nil
}
func (r *fakeRepo) CompleteDelivery(ctx context.Context, id, driverID int64, now time.Time) error {
	return nil
}
func (r *fakeRepo) CountPendingPickupAcrossAllDrivers(ctx context.Context, today time.Time) (int64, error) {
	return 0, nil
}
func (r *fakeRepo) CountPickupCompletedToday(ctx context.Context, today time.Time) (int64, error) {
	return 0, nil
}

func (r *fakeRepo) ImportPickupCompletedToDelivery(ctx context.Context, today time.Time) ([]*entity.Parcel, error) {
	return r.toImport, nil
}

func (r *fakeRepo) FindDeliveryPendingUnassigned(ctx context.Context, today time.Time) ([]*entity.Parcel, error) {
	return r.unassigned, nil
}

func (r *fakeRepo) SetDeliveryDriver(ctx context.Context, id, driverID int64) error {
	r.assigned[id] = driverID
	return nil
}

func (r *fakeRepo) StatusCounts(ctx context.Context) (map[entity.Status]int64, error) {
	return nil, nil
}

func newTestService(t *testing.T, repo *fakeRepo) *Service {
	t.Helper()
	log := logrus.New().WithField("service", "test")
	return NewService(repo, nil, nil, nil, events.NoOpPublisher{}, entity.Location{}, time.UTC, log)
}

// recordingPublisher keeps the last payload of each event type so tests can
// inspect what the service published.
type recordingPublisher struct {
	events map[string]map[string]interface{}
}

func (p *recordingPublisher) Publish(ctx context.Context, eventType string, data interface{}) error {
	if p.events == nil {
		p.events = map[string]map[string]interface{}{}
	}
	payload, _ := data.(map[string]interface{})
	p.events[eventType] = payload
	return nil
}

func TestService_Import_BucketsByDistrict(t *testing.T) {
	repo := newFakeRepo()
	repo.toImport = []*entity.Parcel{
		{ID: 1, Addr: "서울 강남구 테헤란로 152"},
		{ID: 2, Addr: "서울 강남구 역삼로 1"},
		{ID: 3, Addr: "서울 송파구 올림픽로 300"},
	}
	pub := &recordingPublisher{}
	s := NewService(repo, nil, nil, nil, pub, entity.Location{}, time.UTC, logrus.New().WithField("service", "test"))

	count, err := s.Import(context.Background(), time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, map[string]int{"강남구": 2, "송파구": 1}, pub.events["delivery.imported"]["by_district"])
}

func TestService_Import_UnresolvableDistrictBucketsUnknown(t *testing.T) {
	repo := newFakeRepo()
	repo.toImport = []*entity.Parcel{{ID: 1, Addr: "이름 없는 장소"}}
	pub := &recordingPublisher{}
	s := NewService(repo, nil, nil, nil, pub, entity.Location{}, time.UTC, logrus.New().WithField("service", "test"))

	count, err := s.Import(context.Background(), time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, map[string]int{"unknown": 1}, pub.events["delivery.imported"]["by_district"])
}

func TestService_Assign_AssignsDeliveryDriverFromDistrict(t *testing.T) {
	repo := newFakeRepo()
	repo.unassigned = []*entity.Parcel{{ID: 1, Addr: "서울 강남구 테헤란로 152"}}
	s := newTestService(t, repo)

	assignedCount, err := s.Assign(context.Background(), time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, assignedCount)
	assert.Equal(t, int64(entity.DeliveryDriverIDMax), repo.assigned[1])
}

func TestService_Assign_SkipsUnresolvableDistrict(t *testing.T) {
	repo := newFakeRepo()
	repo.unassigned = []*entity.Parcel{{ID: 1, Addr: "알 수 없는 주소"}}
	s := newTestService(t, repo)

	assignedCount, err := s.Assign(context.Background(), time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 0, assignedCount)
	_, ok := repo.assigned[1]
	assert.False(t, ok)
}

func TestService_Assign_HandlesMultipleDistrictsIndependently(t *testing.T) {
	repo := newFakeRepo()
	repo.unassigned = []*entity.Parcel{
		{ID: 1, Addr: "서울 강남구 테헤란로 152"},
		{ID: 2, Addr: "서울 송파구 올림픽로 300"},
	}
	s := newTestService(t, repo)

	assignedCount, err := s.Assign(context.Background(), time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 2, assignedCount)
	assert.Equal(t, int64(entity.DeliveryDriverIDMax), repo.assigned[1])
	assert.Equal(t, int64(entity.DeliveryDriverIDMin+2), repo.assigned[2])
}
