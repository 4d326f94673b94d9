package dispatch

import "github.com/saan-system/dispatch/internal/domain/entity"

// Status values for NextResult; "ok" carries a real stop, the rest mirror
// spec §4.C's status vocabulary.
const (
	StatusOK               = "ok"
	StatusWaiting          = "waiting"
	StatusWaitingForOrders = "waiting_for_orders"
	StatusReturnToHub      = "return_to_hub"
	StatusAtHub            = "at_hub"
)

// NextResult is the Dispatcher's answer to "what should this driver do
// next" (spec §4.C GET /pickup/next and its delivery mirror).
type NextResult struct {
	Status           string          `json:"status"`
	NextDestination  *entity.Parcel  `json:"next_destination,omitempty"`
	Route            *entity.Route   `json:"route,omitempty"`
	IsLast           bool            `json:"is_last,omitempty"`
	Remaining        int             `json:"remaining_pickups"`
	CurrentLocation  *entity.Location `json:"current_location,omitempty"`
	CutoffTime       string          `json:"cutoff_time,omitempty"`
	WaitMinutes      int             `json:"wait_minutes,omitempty"`
}

// WebhookResult is the outcome of a pickup-webhook intake (spec §4.C
// POST /pickup/webhook).
type WebhookResult struct {
	Status        string `json:"status"`
	District      string `json:"district,omitempty"`
	DriverID      int64  `json:"driverId,omitempty"`
	ScheduledFor  string `json:"scheduled_for,omitempty"`
	ScheduledDate string `json:"scheduled_date,omitempty"`
}

// StatusReport is the read-only introspection response supplemented from
// the Python original's status endpoint (original_source/main_service.py).
type StatusReport struct {
	Driver    int64          `json:"driver,omitempty"`
	AtHub     bool           `json:"at_hub"`
	Pending   int            `json:"pending"`
	Counts    map[string]int64 `json:"counts,omitempty"`
}
