// Package delivery is the Delivery Dispatcher (spec §4.D): structurally
// identical to the Pickup Dispatcher (shared dispatch.Dispatcher for
// /next, /complete, /hub-arrived, /status) plus the pickup->delivery
// cutover pipeline.
package delivery

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/saan-system/dispatch/internal/dispatch"
	"github.com/saan-system/dispatch/internal/domain/entity"
	"github.com/saan-system/dispatch/internal/domain/repository"
	"github.com/saan-system/dispatch/internal/platform/apperror"
	"github.com/saan-system/dispatch/internal/platform/events"
	"github.com/saan-system/dispatch/internal/platform/hub"
	"github.com/saan-system/dispatch/internal/platform/routingclient"
	"github.com/saan-system/dispatch/internal/platform/tspclient"
)

// Service is the Delivery Dispatcher.
type Service struct {
	dispatcher *dispatch.Dispatcher
	repo       repository.ParcelRepository
	routing    *routingclient.Client
	events     events.Publisher
	loc        *time.Location
	log        *logrus.Entry
}

func NewCapability() dispatch.Capability {
	return dispatch.Capability{
		Name:            "delivery",
		PendingStatus:   entity.StatusDeliveryPending,
		CompletedStatus: entity.StatusDeliveryCompleted,
		DriverField:     repository.FieldDeliveryDriver,
		TimestampField:  repository.FieldDeliveryCompletedAt,
		DriverIDMin:     entity.DeliveryDriverIDMin,
		DriverIDMax:     entity.DeliveryDriverIDMax,
		StartOfDay:      15 * time.Hour,
		HasCutoff:       false,
		// NoPendingWaitUntil left nil: deliveries have no intake cutoff, so
		// an empty pending set always means return to hub (see DESIGN.md).
		Complete: func(ctx context.Context, repo repository.ParcelRepository, id, driverID int64, now time.Time) error {
			return repo.CompleteDelivery(ctx, id, driverID, now)
		},
	}
}

func NewService(
	repo repository.ParcelRepository,
	routing *routingclient.Client,
	tsp *tspclient.Client,
	hubState *hub.State,
	publisher events.Publisher,
	hubLocation entity.Location,
	loc *time.Location,
	log *logrus.Entry,
) *Service {
	return &Service{
		dispatcher: dispatch.New(NewCapability(), repo, routing, tsp, hubState, publisher, hubLocation, loc, log),
		repo:       repo,
		routing:    routing,
		events:     publisher,
		loc:        loc,
		log:        log.WithField("side", "delivery"),
	}
}

func (s *Service) Next(ctx context.Context, driverID int64, now time.Time) (*dispatch.NextResult, error) {
	return s.dispatcher.Next(ctx, driverID, now)
}

func (s *Service) Complete(ctx context.Context, driverID, parcelID int64, now time.Time) error {
	return s.dispatcher.Complete(ctx, driverID, parcelID, now)
}

func (s *Service) HubArrived(ctx context.Context, driverID int64, now time.Time) error {
	return s.dispatcher.HubArrived(ctx, driverID, now)
}

func (s *Service) Status(ctx context.Context, driverID int64, now time.Time) (*dispatch.StatusReport, error) {
	return s.dispatcher.Status(ctx, driverID, now)
}

func dateOnly(now time.Time, loc *time.Location) time.Time {
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// ImportResult describes a per-district import report: counts of parcels
// moved from PICKUP_COMPLETED to DELIVERY_PENDING. Import computes these
// per-district counts but only publishes them with the delivery.imported
// event; the POST /delivery/import response carries transitioned_count
// alone, and nothing in the package builds an ImportResult.
type ImportResult struct {
	TransitionedCount int              `json:"transitioned_count"`
	ByDistrict        map[string]int   `json:"by_district"`
}

// Import transitions every PICKUP_COMPLETED parcel completed today with no
// delivery driver to DELIVERY_PENDING (spec §4.D POST /delivery/import).
func (s *Service) Import(ctx context.Context, today time.Time) (int, error) {
	parcels, err := s.repo.ImportPickupCompletedToDelivery(ctx, today)
	if err != nil {
		return 0, apperror.Wrap(apperror.KindUpstreamFatal, "import pickup completed to delivery", err)
	}

	byDistrict := make(map[string]int)
	for _, p := range parcels {
		district := s.resolveDistrict(ctx, p.FullAddress())
		if district == "" {
			district = "unknown"
		}
		byDistrict[district]++
	}

	if s.events != nil {
		_ = s.events.Publish(ctx, "delivery.imported", map[string]interface{}{
			"transitioned_count": len(parcels),
			"by_district":        byDistrict,
		})
	}

	s.log.WithField("count", len(parcels)).Info("imported pickup-completed parcels to delivery")
	return len(parcels), nil
}

// Assign resolves a district and delivery driver for every unassigned
// DELIVERY_PENDING parcel (spec §4.D POST /delivery/assign).
func (s *Service) Assign(ctx context.Context, today time.Time) (int, error) {
	parcels, err := s.repo.FindDeliveryPendingUnassigned(ctx, today)
	if err != nil {
		return 0, apperror.Wrap(apperror.KindUpstreamFatal, "find delivery pending unassigned", err)
	}

	assigned := 0
	for _, p := range parcels {
		district := s.resolveDistrict(ctx, p.FullAddress())
		if district == "" {
			s.log.WithField("parcel_id", p.ID).Warn("delivery district unresolvable, skipping assignment")
			continue
		}
		driverID, err := entity.ResolveDeliveryDriver(district)
		if err != nil {
			s.log.WithField("parcel_id", p.ID).WithError(err).Warn("delivery district has no mapped driver")
			continue
		}
		if err := s.repo.SetDeliveryDriver(ctx, p.ID, driverID); err != nil {
			s.log.WithField("parcel_id", p.ID).WithError(err).Warn("assign delivery driver failed")
			continue
		}
		assigned++
	}

	if s.events != nil {
		_ = s.events.Publish(ctx, "delivery.assigned", map[string]interface{}{
			"assigned_count": assigned,
		})
	}

	return assigned, nil
}

func (s *Service) resolveDistrict(ctx context.Context, addr string) string {
	if s.routing != nil {
		if result, err := s.routing.Search(ctx, addr); err == nil && result.District != "" {
			return result.District
		}
	}
	return entity.DistrictFromText(addr)
}
