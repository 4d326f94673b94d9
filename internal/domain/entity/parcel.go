package entity

import "time"

// Status is the lifecycle state of a parcel. States progress monotonically:
// PickupPending -> PickupCompleted -> DeliveryPending -> DeliveryCompleted.
type Status string

const (
	StatusPickupPending     Status = "PICKUP_PENDING"
	StatusPickupCompleted   Status = "PICKUP_COMPLETED"
	StatusDeliveryPending   Status = "DELIVERY_PENDING"
	StatusDeliveryCompleted Status = "DELIVERY_COMPLETED"
)

// Parcel is the primary dispatch entity, persisted in the external relational
// store. Soft-deleted parcels (IsDeleted) are excluded from every query.
type Parcel struct {
	ID         int64  `json:"id" db:"id"`
	OwnerID    int64  `json:"owner_id" db:"owner_id"`
	Product    string `json:"product_name" db:"product_name"`
	Size       string `json:"size" db:"size"`
	Recipient  string `json:"recipient_name" db:"recipient_name"`
	Phone      string `json:"recipient_phone" db:"recipient_phone"`
	Addr       string `json:"recipient_addr" db:"recipient_addr"`
	DetailAddr string `json:"detail_addr,omitempty" db:"detail_addr"`
	IsDeleted  bool   `json:"-" db:"is_deleted"`

	Status Status `json:"status" db:"status"`

	PickupDriverID   *int64 `json:"pickup_driver_id,omitempty" db:"pickup_driver_id"`
	DeliveryDriverID *int64 `json:"delivery_driver_id,omitempty" db:"delivery_driver_id"`

	PickupScheduledDate *time.Time `json:"pickup_scheduled_date,omitempty" db:"pickup_scheduled_date"`
	PickupCompletedAt   *time.Time `json:"pickup_completed_at,omitempty" db:"pickup_completed_at"`
	DeliveryCompletedAt *time.Time `json:"delivery_completed_at,omitempty" db:"delivery_completed_at"`

	IsNextPickupTarget   bool `json:"is_next_pickup_target" db:"is_next_pickup_target"`
	IsNextDeliveryTarget bool `json:"is_next_delivery_target" db:"is_next_delivery_target"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsPickupEligible reports whether a driver may act on this parcel during
// the pickup flow: pending, scheduled for today or earlier, not deleted.
func (p *Parcel) IsPickupEligible(today time.Time) bool {
	if p.IsDeleted || p.Status != StatusPickupPending {
		return false
	}
	if p.PickupScheduledDate == nil {
		return false
	}
	return !p.PickupScheduledDate.After(today)
}

// IsDeliveryEligible reports whether a driver may act on this parcel during
// the delivery flow.
func (p *Parcel) IsDeliveryEligible() bool {
	return !p.IsDeleted && p.Status == StatusDeliveryPending
}

// FullAddress joins the recipient address with the optional detail address,
// the string geocoders and district-extraction operate on.
func (p *Parcel) FullAddress() string {
	if p.DetailAddr == "" {
		return p.Addr
	}
	return p.Addr + " " + p.DetailAddr
}
