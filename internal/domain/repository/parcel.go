package repository

import (
	"context"
	"time"

	"github.com/saan-system/dispatch/internal/domain/entity"
)

// DriverField selects which of a parcel's two driver columns a query
// concerns, so a single repository implementation can serve both the
// pickup and the delivery side of the Dispatcher (Design Note §9:
// "Polymorphism over dispatch sides").
type DriverField int

const (
	FieldPickupDriver DriverField = iota
	FieldDeliveryDriver
)

// TimestampField selects which completion timestamp a query concerns.
type TimestampField int

const (
	FieldPickupCompletedAt TimestampField = iota
	FieldDeliveryCompletedAt
)

// ParcelRepository is the dispatcher's view onto the external relational
// parcel store (spec §6). Every mutating method is a single guarded
// statement — see spec §5: "UPDATE ... WHERE status = <expected> is the
// guard; a transition succeeds iff the row was in the expected
// precondition."
type ParcelRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Parcel, error)

	// FindPending returns non-deleted parcels in the given status assigned
	// to driverID via driverField. If scheduledCutoff is non-nil, only
	// parcels with PickupScheduledDate <= *scheduledCutoff are returned
	// (the pickup side's scheduling constraint; delivery passes nil).
	FindPending(ctx context.Context, status entity.Status, driverField DriverField, driverID int64, scheduledCutoff *time.Time) ([]*entity.Parcel, error)

	// FindLastCompletedToday returns the most recently completed parcel for
	// driverID today, by tsField, or nil if none. Used to derive a driver's
	// current location.
	FindLastCompletedToday(ctx context.Context, driverField DriverField, driverID int64, tsField TimestampField, today time.Time) (*entity.Parcel, error)

	// AssignPickupDriver sets pickup_driver_id and pickup_scheduled_date,
	// guarded on pickup_driver_id currently being unset. Returns
	// (false, nil) if the parcel already had a driver (the webhook's
	// "already_processed" idempotence, spec §5/§8).
	AssignPickupDriver(ctx context.Context, id, driverID int64, scheduledDate time.Time) (assigned bool, err error)

	// CompletePickup transitions id from PICKUP_PENDING to
	// PICKUP_COMPLETED, guarded on status and owning driver. Returns
	// ErrConflict if the guard fails (wrong state or not owned by driverID).
	CompletePickup(ctx context.Context, id, driverID int64, now time.Time) error

	// CompleteDelivery mirrors CompletePickup for the delivery side.
	CompleteDelivery(ctx context.Context, id, driverID int64, now time.Time) error

	// CountPendingPickupAcrossAllDrivers counts PICKUP_PENDING parcels
	// scheduled for today or earlier, across every driver — used by
	// /pickup/all-completed.
	CountPendingPickupAcrossAllDrivers(ctx context.Context, today time.Time) (int64, error)

	// CountPickupCompletedToday counts parcels whose pickup_completed_at
	// falls on today.
	CountPickupCompletedToday(ctx context.Context, today time.Time) (int64, error)

	// ImportPickupCompletedToDelivery transitions every parcel in
	// PICKUP_COMPLETED with pickup_completed_at today and no delivery
	// driver to DELIVERY_PENDING, returning the transitioned parcels so
	// the caller can bucket counts by district.
	ImportPickupCompletedToDelivery(ctx context.Context, today time.Time) ([]*entity.Parcel, error)

	// FindDeliveryPendingUnassigned returns DELIVERY_PENDING parcels with
	// pickup_completed_at today and no delivery driver yet.
	FindDeliveryPendingUnassigned(ctx context.Context, today time.Time) ([]*entity.Parcel, error)

	// SetDeliveryDriver assigns a delivery driver to an unassigned
	// DELIVERY_PENDING parcel.
	SetDeliveryDriver(ctx context.Context, id, driverID int64) error

	// StatusCounts returns the live count of parcels per lifecycle state,
	// for the read-only status introspection endpoint.
	StatusCounts(ctx context.Context) (map[entity.Status]int64, error)
}
