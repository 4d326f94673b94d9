// Package dispatch is the shared "Dispatch" component from Design Note §9:
// pickup and delivery differ only in a handful of parameters, so one
// Dispatcher implements the state machine and online routing algorithm
// once, instantiated twice with a different Capability.
package dispatch

import (
	"context"
	"time"

	"github.com/saan-system/dispatch/internal/domain/entity"
	"github.com/saan-system/dispatch/internal/domain/repository"
)

// Capability is the parameter set Design Note §9 calls out: pending_query,
// completed_query, current_location_timestamp_field, state_transitions,
// start_time_of_day, driver_id_range, has_cutoff.
type Capability struct {
	// Name identifies the side for logging ("pickup" or "delivery").
	Name string

	PendingStatus   entity.Status
	CompletedStatus entity.Status

	DriverField     repository.DriverField
	TimestampField  repository.TimestampField

	DriverIDMin int64
	DriverIDMax int64

	// StartOfDay is the local time-of-day before which /next returns
	// "waiting" (07:00 for pickup, 15:00 for delivery).
	StartOfDay time.Duration

	// HasCutoff scopes FindPending's scheduledCutoff argument: only the
	// pickup side filters on pickup_scheduled_date.
	HasCutoff bool

	// NoPendingWaitUntil, if non-nil, is the local time-of-day before which
	// an empty pending set with no at-hub flag yields "waiting_for_orders"
	// instead of "return_to_hub". Pickup sets this to the 12:00 cutoff;
	// delivery leaves it nil (no intake cutoff implies no "more orders may
	// still arrive" window — see DESIGN.md).
	NoPendingWaitUntil *time.Duration

	// Complete performs the side-specific guarded completion transition.
	Complete func(ctx context.Context, repo repository.ParcelRepository, id, driverID int64, now time.Time) error
}

// IsValidDriver reports whether driverID falls in this capability's range.
func (c Capability) IsValidDriver(driverID int64) bool {
	return driverID >= c.DriverIDMin && driverID <= c.DriverIDMax
}
