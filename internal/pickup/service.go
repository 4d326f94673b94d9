// Package pickup is the Pickup Dispatcher (spec §4.C): webhook intake,
// cutoff scheduling, and the batch-handoff trigger, wrapping the shared
// dispatch.Dispatcher for /next, /complete, /hub-arrived and /status.
package pickup

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

// cutoffHour is the 12:00 local boundary from spec §4.C; a webhook
// arriving at or after this hour is scheduled for tomorrow.
const cutoffHour = 12

// Handoff is the callback the pickup service invokes once all pickups for
// the day are complete (spec §4.D: "invoked automatically by
// /pickup/all-completed").
type Handoff interface {
	Import(ctx context.Context, today time.Time) (importedCount int, err error)
	Assign(ctx context.Context, today time.Time) (assignedCount int, err error)
}

// Service is the Pickup Dispatcher.
type Service struct {
	dispatcher *dispatch.Dispatcher
	repo       repository.ParcelRepository
	routing    *routingclient.Client
	events     events.Publisher
	loc        *time.Location
	handoff    Handoff
	log        *logrus.Entry
}

func NewCapability() dispatch.Capability {
	startOfDay := 7 * time.Hour
	noPendingWaitUntil := cutoffHour * time.Hour
	return dispatch.Capability{
		Name:               "pickup",
		PendingStatus:      entity.StatusPickupPending,
		CompletedStatus:    entity.StatusPickupCompleted,
		DriverField:        repository.FieldPickupDriver,
		TimestampField:     repository.FieldPickupCompletedAt,
		DriverIDMin:        entity.PickupDriverIDMin,
		DriverIDMax:        entity.PickupDriverIDMax,
		StartOfDay:         startOfDay,
		HasCutoff:          true,
		NoPendingWaitUntil: &noPendingWaitUntil,
		Complete: func(ctx context.Context, repo repository.ParcelRepository, id, driverID int64, now time.Time) error {
			return repo.CompletePickup(ctx, id, driverID, now)
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
		log:        log.WithField("side", "pickup"),
	}
}

// SetHandoff wires the Delivery Dispatcher's import/assign cutover,
// invoked synchronously once AllCompleted reports completed=true (spec
// §4.C GET /pickup/all-completed).
func (s *Service) SetHandoff(h Handoff) { s.handoff = h }

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

// Webhook is the intake endpoint: resolves a district from the parcel's
// address, maps district to pickup driver, assigns, and schedules
// pickup_scheduled_date per the 12:00 cutoff (spec §4.C POST
// /pickup/webhook).
func (s *Service) Webhook(ctx context.Context, parcelID int64, now time.Time) (*dispatch.WebhookResult, error) {
	parcel, err := s.repo.GetByID(ctx, parcelID)
	if err != nil {
		return nil, err
	}

	if parcel.PickupDriverID != nil {
		return &dispatch.WebhookResult{Status: "already_processed"}, nil
	}

	district := s.resolveDistrict(ctx, parcel.FullAddress())
	if district == "" {
		return nil, apperror.New(apperror.KindPrecondition, "district unresolvable")
	}

	driverID, err := entity.ResolvePickupDriver(district)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindPrecondition, "district unresolvable", err)
	}

	local := now.In(s.loc)
	scheduledDate := dateOnly(local, s.loc)
	scheduledTomorrow := local.Hour() >= cutoffHour
	if scheduledTomorrow {
		scheduledDate = scheduledDate.AddDate(0, 0, 1)
	}

	assigned, err := s.repo.AssignPickupDriver(ctx, parcelID, driverID, scheduledDate)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindUpstreamFatal, "assign pickup driver", err)
	}
	if !assigned {
		return &dispatch.WebhookResult{Status: "already_processed"}, nil
	}

	if s.events != nil {
		_ = s.events.Publish(ctx, "pickup.assigned", map[string]interface{}{
			"parcel_id": parcelID,
			"driver_id": driverID,
			"district":  district,
		})
	}

	if scheduledTomorrow {
		return &dispatch.WebhookResult{
			Status:        "scheduled_tomorrow",
			District:      district,
			DriverID:      driverID,
			ScheduledDate: scheduledDate.Format("2006-01-02"),
		}, nil
	}
	return &dispatch.WebhookResult{
		Status:       "success",
		District:     district,
		DriverID:     driverID,
		ScheduledFor: "today",
	}, nil
}

// AllCompletedResult is the response of GET /pickup/all-completed.
type AllCompletedResult struct {
	Completed      bool  `json:"completed"`
	Remaining      int64 `json:"remaining"`
	CompletedCount int64 `json:"completed_count"`
	ImportStatus   int   `json:"import_status,omitempty"`
	AssignStatus   int   `json:"assign_status,omitempty"`
}

// AllCompleted reports the aggregate pickup state and, when every pickup
// for today is done, synchronously triggers the delivery cutover (spec
// §4.C GET /pickup/all-completed, §4.D).
func (s *Service) AllCompleted(ctx context.Context, now time.Time) (*AllCompletedResult, error) {
	today := dateOnly(now, s.loc)

	remaining, err := s.repo.CountPendingPickupAcrossAllDrivers(ctx, today)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindUpstreamFatal, "count pending pickups", err)
	}
	completedCount, err := s.repo.CountPickupCompletedToday(ctx, today)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindUpstreamFatal, "count completed pickups", err)
	}

	result := &AllCompletedResult{
		Completed:      remaining == 0,
		Remaining:      remaining,
		CompletedCount: completedCount,
	}

	if !result.Completed || completedCount == 0 || s.handoff == nil {
		return result, nil
	}

	if _, err := s.handoff.Import(ctx, today); err != nil {
		s.log.WithError(err).Error("delivery import failed")
		result.ImportStatus = apperror.StatusCode(err)
	} else {
		result.ImportStatus = 200
	}

	if _, err := s.handoff.Assign(ctx, today); err != nil {
		s.log.WithError(err).Error("delivery assign failed")
		result.AssignStatus = apperror.StatusCode(err)
	} else {
		result.AssignStatus = 200
	}

	return result, nil
}

// resolveDistrict prefers the geocoder's structured district (spec §6's
// address.region_2depth_name, surfaced by the Traffic Proxy's /search),
// falling back to the textual "...구" suffix when the geocoder has nothing
// or is unreachable (spec §4.C: "via geocoder, with textual fallback").
func (s *Service) resolveDistrict(ctx context.Context, addr string) string {
	if s.routing != nil {
		if result, err := s.routing.Search(ctx, addr); err == nil && result.District != "" {
			return result.District
		}
	}
	return entity.DistrictFromText(addr)
}

func dateOnly(now time.Time, loc *time.Location) time.Time {
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
