package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/saan-system/dispatch/internal/domain/entity"
	"github.com/saan-system/dispatch/internal/domain/repository"
)

// ParcelRepository is the Postgres-backed implementation of
// repository.ParcelRepository, grounded on
// shipping/internal/infrastructure/database's *postgres.go repositories:
// sqlx.DB, one method per query, guarded single-statement mutations whose
// RowsAffected is checked to detect a failed state-guard (spec §5, §7).
type ParcelRepository struct {
	db *sqlx.DB
}

func NewParcelRepository(db *sqlx.DB) *ParcelRepository {
	return &ParcelRepository{db: db}
}

const parcelColumns = `id, owner_id, product_name, size, recipient_name, recipient_phone,
	recipient_addr, detail_addr, is_deleted, status, pickup_driver_id, delivery_driver_id,
	pickup_scheduled_date, pickup_completed_at, delivery_completed_at,
	is_next_pickup_target, is_next_delivery_target, created_at`

func (r *ParcelRepository) GetByID(ctx context.Context, id int64) (*entity.Parcel, error) {
	var p entity.Parcel
	query := `SELECT ` + parcelColumns + ` FROM parcels WHERE id = $1 AND is_deleted = false`
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get parcel %d: %w", id, err)
	}
	return &p, nil
}

func driverColumn(f repository.DriverField) string {
	if f == repository.FieldDeliveryDriver {
		return "delivery_driver_id"
	}
	return "pickup_driver_id"
}

func timestampColumn(f repository.TimestampField) string {
	if f == repository.FieldDeliveryCompletedAt {
		return "delivery_completed_at"
	}
	return "pickup_completed_at"
}

func (r *ParcelRepository) FindPending(ctx context.Context, status entity.Status, driverField repository.DriverField, driverID int64, scheduledCutoff *time.Time) ([]*entity.Parcel, error) {
	query := fmt.Sprintf(`SELECT %s FROM parcels
		WHERE is_deleted = false AND status = $1 AND %s = $2`, parcelColumns, driverColumn(driverField))
	args := []interface{}{status, driverID}

	if scheduledCutoff != nil {
		query += ` AND pickup_scheduled_date <= $3`
		args = append(args, *scheduledCutoff)
	}
	query += ` ORDER BY created_at ASC`

	var parcels []*entity.Parcel
	if err := r.db.SelectContext(ctx, &parcels, query, args...); err != nil {
		return nil, fmt.Errorf("find pending parcels: %w", err)
	}
	return parcels, nil
}

func (r *ParcelRepository) FindLastCompletedToday(ctx context.Context, driverField repository.DriverField, driverID int64, tsField repository.TimestampField, today time.Time) (*entity.Parcel, error) {
	query := fmt.Sprintf(`SELECT %s FROM parcels
		WHERE is_deleted = false AND %s = $1 AND %s::date = $2::date
		ORDER BY %s DESC LIMIT 1`, parcelColumns, driverColumn(driverField), timestampColumn(tsField), timestampColumn(tsField))

	var p entity.Parcel
	if err := r.db.GetContext(ctx, &p, query, driverID, today); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find last completed: %w", err)
	}
	return &p, nil
}

// AssignPickupDriver is the webhook's idempotent assignment: the guard is
// "pickup_driver_id IS NULL", so a second call for an already-assigned
// parcel affects zero rows and is reported as "already processed" rather
// than an error (spec §4.C, §5, §8).
func (r *ParcelRepository) AssignPickupDriver(ctx context.Context, id, driverID int64, scheduledDate time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE parcels
		SET pickup_driver_id = $1, pickup_scheduled_date = $2, status = $3
		WHERE id = $4 AND is_deleted = false AND pickup_driver_id IS NULL`,
		driverID, scheduledDate, entity.StatusPickupPending, id)
	if err != nil {
		return false, fmt.Errorf("assign pickup driver: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("assign pickup driver rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *ParcelRepository) CompletePickup(ctx context.Context, id, driverID int64, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE parcels
		SET status = $1, pickup_completed_at = $2
		WHERE id = $3 AND is_deleted = false AND status = $4 AND pickup_driver_id = $5`,
		entity.StatusPickupCompleted, now, id, entity.StatusPickupPending, driverID)
	if err != nil {
		return fmt.Errorf("complete pickup: %w", err)
	}
	return checkGuard(res)
}

func (r *ParcelRepository) CompleteDelivery(ctx context.Context, id, driverID int64, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE parcels
		SET status = $1, delivery_completed_at = $2
		WHERE id = $3 AND is_deleted = false AND status = $4 AND delivery_driver_id = $5`,
		entity.StatusDeliveryCompleted, now, id, entity.StatusDeliveryPending, driverID)
	if err != nil {
		return fmt.Errorf("complete delivery: %w", err)
	}
	return checkGuard(res)
}

func checkGuard(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrConflict
	}
	return nil
}

func (r *ParcelRepository) CountPendingPickupAcrossAllDrivers(ctx context.Context, today time.Time) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM parcels
		WHERE is_deleted = false AND status = $1 AND pickup_scheduled_date <= $2`,
		entity.StatusPickupPending, today)
	if err != nil {
		return 0, fmt.Errorf("count pending pickups: %w", err)
	}
	return count, nil
}

func (r *ParcelRepository) CountPickupCompletedToday(ctx context.Context, today time.Time) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM parcels
		WHERE is_deleted = false AND pickup_completed_at::date = $1::date`, today)
	if err != nil {
		return 0, fmt.Errorf("count pickup completed today: %w", err)
	}
	return count, nil
}

// ImportPickupCompletedToDelivery is the cutover's first half (spec §4.D
// POST /delivery/import): every PICKUP_COMPLETED parcel completed today
// with no delivery driver moves to DELIVERY_PENDING.
func (r *ParcelRepository) ImportPickupCompletedToDelivery(ctx context.Context, today time.Time) ([]*entity.Parcel, error) {
	query := fmt.Sprintf(`
		UPDATE parcels
		SET status = $1
		WHERE is_deleted = false AND status = $2 AND pickup_completed_at::date = $3::date
			AND delivery_driver_id IS NULL
		RETURNING %s`, parcelColumns)

	var parcels []*entity.Parcel
	if err := r.db.SelectContext(ctx, &parcels, query,
		entity.StatusDeliveryPending, entity.StatusPickupCompleted, today); err != nil {
		return nil, fmt.Errorf("import pickup completed to delivery: %w", err)
	}
	return parcels, nil
}

func (r *ParcelRepository) FindDeliveryPendingUnassigned(ctx context.Context, today time.Time) ([]*entity.Parcel, error) {
	query := fmt.Sprintf(`SELECT %s FROM parcels
		WHERE is_deleted = false AND status = $1 AND pickup_completed_at::date = $2::date
			AND delivery_driver_id IS NULL
		ORDER BY created_at ASC`, parcelColumns)

	var parcels []*entity.Parcel
	if err := r.db.SelectContext(ctx, &parcels, query, entity.StatusDeliveryPending, today); err != nil {
		return nil, fmt.Errorf("find delivery pending unassigned: %w", err)
	}
	return parcels, nil
}

func (r *ParcelRepository) SetDeliveryDriver(ctx context.Context, id, driverID int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE parcels SET delivery_driver_id = $1
		WHERE id = $2 AND is_deleted = false AND status = $3 AND delivery_driver_id IS NULL`,
		driverID, id, entity.StatusDeliveryPending)
	if err != nil {
		return fmt.Errorf("set delivery driver: %w", err)
	}
	return checkGuard(res)
}

func (r *ParcelRepository) StatusCounts(ctx context.Context) (map[entity.Status]int64, error) {
	rows, err := r.db.QueryxContext(ctx, `
		SELECT status, COUNT(*) FROM parcels WHERE is_deleted = false GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[entity.Status]int64)
	for rows.Next() {
		var status entity.Status
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
