package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/saan-system/dispatch/internal/domain/entity"
	"github.com/saan-system/dispatch/internal/domain/repository"
	"github.com/saan-system/dispatch/internal/platform/apperror"
	"github.com/saan-system/dispatch/internal/platform/events"
	"github.com/saan-system/dispatch/internal/platform/hub"
	"github.com/saan-system/dispatch/internal/platform/routingclient"
	"github.com/saan-system/dispatch/internal/platform/tspclient"
)

// Dispatcher is the one "Dispatch" component of Design Note §9, shared
// between the pickup and delivery services and parameterized by a
// Capability.
type Dispatcher struct {
	cap      Capability
	repo     repository.ParcelRepository
	routing  *routingclient.Client
	tsp      *tspclient.Client
	hub      *hub.State
	events   events.Publisher
	hubLoc   entity.Location
	loc      *time.Location
	log      *logrus.Entry
}

func New(
	cap Capability,
	repo repository.ParcelRepository,
	routing *routingclient.Client,
	tsp *tspclient.Client,
	hubState *hub.State,
	publisher events.Publisher,
	hubLocation entity.Location,
	location *time.Location,
	log *logrus.Entry,
) *Dispatcher {
	return &Dispatcher{
		cap:     cap,
		repo:    repo,
		routing: routing,
		tsp:     tsp,
		hub:     hubState,
		events:  publisher,
		hubLoc:  hubLocation,
		loc:     location,
		log:     log.WithField("side", cap.Name),
	}
}

func todayAt(now time.Time, loc *time.Location, d time.Duration) time.Time {
	y, m, day := now.In(loc).Date()
	return time.Date(y, m, day, 0, 0, 0, 0, loc).Add(d)
}

func dateOnly(now time.Time, loc *time.Location) time.Time {
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Next implements the online routing algorithm common to both sides
// (spec §4.C steps 1-11).
func (d *Dispatcher) Next(ctx context.Context, driverID int64, now time.Time) (*NextResult, error) {
	if !d.cap.IsValidDriver(driverID) {
		return nil, apperror.New(apperror.KindPrecondition, "driver id out of range")
	}

	local := now.In(d.loc)
	startOfDay := todayAt(now, d.loc, d.cap.StartOfDay)
	if local.Before(startOfDay) {
		return &NextResult{
			Status:      StatusWaiting,
			WaitMinutes: int(startOfDay.Sub(local).Minutes()) + 1,
		}, nil
	}

	today := dateOnly(now, d.loc)
	var scheduledCutoff *time.Time
	if d.cap.HasCutoff {
		scheduledCutoff = &today
	}

	pending, err := d.repo.FindPending(ctx, d.cap.PendingStatus, d.cap.DriverField, driverID, scheduledCutoff)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindUpstreamFatal, "load pending parcels", err)
	}

	atHub := d.hub.IsAtHub(driverID)
	current, err := d.currentLocation(ctx, driverID, today, atHub)
	if err != nil {
		return nil, err
	}

	if len(pending) == 0 {
		return d.handleEmpty(ctx, driverID, atHub, local, current)
	}

	d.hub.Clear(driverID)

	stops, err := d.geocodeAll(ctx, pending)
	if err != nil {
		return nil, err
	}

	var chosenIdx int
	if len(pending) == 1 {
		chosenIdx = 0
	} else {
		chosenIdx, err = d.chooseNext(ctx, current, stops)
		if err != nil {
			d.log.WithError(err).Warn("tsp unavailable, falling back to first pending")
			chosenIdx = 0
		}
	}

	chosen := pending[chosenIdx]
	destLoc := stops[chosenIdx]
	route := d.routeOrFallback(ctx, current, destLoc)

	return &NextResult{
		Status:          StatusOK,
		NextDestination: chosen,
		Route:           route,
		IsLast:          len(pending) == 1,
		Remaining:       len(pending),
		CurrentLocation: &current,
	}, nil
}

func (d *Dispatcher) currentLocation(ctx context.Context, driverID int64, today time.Time, atHub bool) (entity.Location, error) {
	if atHub {
		return d.hubLoc, nil
	}

	last, err := d.repo.FindLastCompletedToday(ctx, d.cap.DriverField, driverID, d.cap.TimestampField, today)
	if err != nil {
		return entity.Location{}, apperror.Wrap(apperror.KindUpstreamFatal, "load last completed parcel", err)
	}
	if last == nil {
		return d.hubLoc, nil
	}

	result, err := d.routing.Search(ctx, last.FullAddress())
	if err != nil {
		d.log.WithError(err).Warn("geocode current location failed, using hub")
		return d.hubLoc, nil
	}
	return entity.Location{Lat: result.Lat, Lon: result.Lon, Name: last.FullAddress()}, nil
}

func (d *Dispatcher) handleEmpty(ctx context.Context, driverID int64, atHub bool, local time.Time, current entity.Location) (*NextResult, error) {
	if atHub {
		return &NextResult{Status: StatusAtHub, Remaining: 0, CurrentLocation: &current}, nil
	}

	if d.cap.NoPendingWaitUntil != nil {
		waitUntil := todayAt(local, d.loc, *d.cap.NoPendingWaitUntil)
		if local.Before(waitUntil) {
			return &NextResult{
				Status:     StatusWaitingForOrders,
				CutoffTime: fmt.Sprintf("%02d:%02d", int(d.cap.NoPendingWaitUntil.Hours()), int(d.cap.NoPendingWaitUntil.Minutes())%60),
				Remaining:  0,
			}, nil
		}
	}

	route := d.routeOrFallback(ctx, current, d.hubLoc)
	return &NextResult{
		Status:    StatusReturnToHub,
		Route:     route,
		IsLast:    true,
		Remaining: 0,
	}, nil
}

func (d *Dispatcher) geocodeAll(ctx context.Context, parcels []*entity.Parcel) ([]entity.Location, error) {
	locs := make([]entity.Location, len(parcels))
	for i, p := range parcels {
		result, err := d.routing.Search(ctx, p.FullAddress())
		if err != nil {
			return nil, apperror.Wrap(apperror.KindUpstreamFatal, "geocode pending parcel", err)
		}
		locs[i] = entity.Location{Lat: result.Lat, Lon: result.Lon, Name: p.FullAddress()}
	}
	return locs, nil
}

// chooseNext builds the (N+1)x(N+1) matrix over [current, stops...],
// solves it, and returns the index (into stops) of the tour's successor
// to node 0 (spec §4.C steps 8-9).
func (d *Dispatcher) chooseNext(ctx context.Context, current entity.Location, stops []entity.Location) (int, error) {
	locations := make([]entity.Location, 0, len(stops)+1)
	locations = append(locations, current)
	locations = append(locations, stops...)

	matrix, err := d.routing.Matrix(ctx, locations)
	if err != nil {
		return 0, fmt.Errorf("build matrix: %w", err)
	}

	tour, _, err := d.tsp.Solve(ctx, matrix)
	if err != nil {
		return 0, fmt.Errorf("solve tsp: %w", err)
	}

	idxOf0 := -1
	for i, node := range tour {
		if node == 0 {
			idxOf0 = i
			break
		}
	}
	if idxOf0 == -1 {
		return 0, fmt.Errorf("tour does not contain start node")
	}

	for step := 1; step <= len(tour); step++ {
		next := tour[(idxOf0+step)%len(tour)]
		if next != 0 {
			return next - 1, nil
		}
	}
	return 0, fmt.Errorf("tour never leaves start node")
}

// routeOrFallback degrades to a straight-line two-point route (spec §7:
// "routing -> raw straight-line waypoints") rather than failing the whole
// request when the routing engine is unreachable.
func (d *Dispatcher) routeOrFallback(ctx context.Context, from, to entity.Location) *entity.Route {
	route, err := d.routing.Route(ctx, []entity.Location{from, to}, true)
	if err == nil {
		return route
	}
	d.log.WithError(err).Warn("routing engine unavailable, falling back to straight line")
	return &entity.Route{
		Coordinates: []entity.Coordinate{{Lat: from.Lat, Lon: from.Lon}, {Lat: to.Lat, Lon: to.Lon}},
		Waypoints: []entity.Waypoint{
			{Lat: from.Lat, Lon: from.Lon, Name: from.Name},
			{Lat: to.Lat, Lon: to.Lon, Name: to.Name, Instruction: "직진"},
		},
	}
}

// Complete authorizes and applies the side's completion transition (spec
// §4.C POST /pickup/complete and its delivery mirror).
func (d *Dispatcher) Complete(ctx context.Context, driverID, parcelID int64, now time.Time) error {
	parcel, err := d.repo.GetByID(ctx, parcelID)
	if err != nil {
		return err
	}

	var owner *int64
	if d.cap.DriverField == repository.FieldDeliveryDriver {
		owner = parcel.DeliveryDriverID
	} else {
		owner = parcel.PickupDriverID
	}
	if owner == nil || *owner != driverID {
		return apperror.New(apperror.KindForbidden, "권한이 없습니다")
	}

	if err := d.cap.Complete(ctx, d.repo, parcelID, driverID, now); err != nil {
		return err
	}

	if d.events != nil {
		_ = d.events.Publish(ctx, d.cap.Name+".completed", map[string]interface{}{
			"parcel_id": parcelID,
			"driver_id": driverID,
		})
	}
	return nil
}

// HubArrived requires zero pending stops before marking the driver at
// hub (spec §4.C POST /pickup/hub-arrived).
func (d *Dispatcher) HubArrived(ctx context.Context, driverID int64, now time.Time) error {
	if !d.cap.IsValidDriver(driverID) {
		return apperror.New(apperror.KindPrecondition, "driver id out of range")
	}

	today := dateOnly(now, d.loc)
	var scheduledCutoff *time.Time
	if d.cap.HasCutoff {
		scheduledCutoff = &today
	}

	pending, err := d.repo.FindPending(ctx, d.cap.PendingStatus, d.cap.DriverField, driverID, scheduledCutoff)
	if err != nil {
		return apperror.Wrap(apperror.KindUpstreamFatal, "load pending parcels", err)
	}
	if len(pending) > 0 {
		return apperror.New(apperror.KindPrecondition, "pending stops remain")
	}

	d.hub.Set(driverID)
	return nil
}

// Status is the read-only introspection endpoint supplemented from the
// Python original's status reporting (original_source/main_service.py).
func (d *Dispatcher) Status(ctx context.Context, driverID int64, now time.Time) (*StatusReport, error) {
	today := dateOnly(now, d.loc)
	var scheduledCutoff *time.Time
	if d.cap.HasCutoff {
		scheduledCutoff = &today
	}

	pending, err := d.repo.FindPending(ctx, d.cap.PendingStatus, d.cap.DriverField, driverID, scheduledCutoff)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindUpstreamFatal, "load pending parcels", err)
	}

	counts, err := d.repo.StatusCounts(ctx)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindUpstreamFatal, "load status counts", err)
	}
	byStatus := make(map[string]int64, len(counts))
	for status, n := range counts {
		byStatus[string(status)] = n
	}

	return &StatusReport{
		Driver:  driverID,
		AtHub:   d.hub.IsAtHub(driverID),
		Pending: len(pending),
		Counts:  byStatus,
	}, nil
}
