package farms

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AssetRepo serves the equipment and facilities tables, selected by Kind.
type AssetRepo struct {
	DB   *pgxpool.Pool
	Kind AssetKind
}

func NewEquipmentRepo(db *pgxpool.Pool) *AssetRepo { return &AssetRepo{DB: db, Kind: KindEquipment} }
func NewFacilityRepo(db *pgxpool.Pool) *AssetRepo  { return &AssetRepo{DB: db, Kind: KindFacility} }

const assetColumns = `id, farm_id, name, type, status, last_maintenance_date, next_maintenance_date, notes, created_at`

func (r *AssetRepo) table() string {
	if r.Kind == KindFacility {
		return "facilities"
	}
	return "equipment"
}

func scanAsset(row pgx.Row) (Asset, error) {
	var a Asset
	err := row.Scan(&a.ID, &a.FarmID, &a.Name, &a.Type, &a.Status,
		&a.LastMaintenanceDate, &a.NextMaintenanceDate, &a.Notes, &a.CreatedAt)
	return a, err
}

func (r *AssetRepo) Create(ctx context.Context, a Asset) (Asset, error) {
	if a.Status == "" {
		a.Status = StatusOperational
	}
	if !r.Kind.ValidStatus(a.Status) {
		return Asset{}, fmt.Errorf("%w: %s for %s", ErrInvalidStatus, a.Status, r.Kind)
	}
	out, err := scanAsset(r.DB.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO %s (farm_id, name, type, status, last_maintenance_date, next_maintenance_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s`, r.table(), assetColumns),
		a.FarmID, a.Name, a.Type, a.Status, a.LastMaintenanceDate, a.NextMaintenanceDate, a.Notes))
	return out, insertErr(err)
}

func (r *AssetRepo) Get(ctx context.Context, id int64) (Asset, error) {
	a, err := scanAsset(r.DB.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE id=$1`, assetColumns, r.table()), id))
	return a, notFound(err)
}

func (r *AssetRepo) List(ctx context.Context, f Filter) ([]Asset, error) {
	rows, err := r.DB.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE ($1::bigint = 0 OR farm_id = $1)
		ORDER BY name, id LIMIT $2 OFFSET $3`, assetColumns, r.table()), f.FarmID, f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AssetRepo) Update(ctx context.Context, id int64, c AssetChanges) (Asset, error) {
	if c.Status != nil && !r.Kind.ValidStatus(*c.Status) {
		return Asset{}, fmt.Errorf("%w: %s for %s", ErrInvalidStatus, *c.Status, r.Kind)
	}
	a, err := scanAsset(r.DB.QueryRow(ctx, fmt.Sprintf(`
		UPDATE %s SET
			name = COALESCE($2, name),
			type = COALESCE($3, type),
			status = COALESCE($4, status),
			next_maintenance_date = COALESCE($5, next_maintenance_date),
			notes = COALESCE($6, notes)
		WHERE id=$1
		RETURNING %s`, r.table(), assetColumns),
		id, c.Name, c.Type, c.Status, c.NextMaintenanceDate, c.Notes))
	return a, notFound(err)
}

func (r *AssetRepo) Delete(ctx context.Context, id int64) error {
	return execDelete(ctx, r.DB, r.table(), id)
}

// CompleteMaintenance records a finished maintenance and puts the asset back in operation.
// A nil next date clears the schedule.
func (r *AssetRepo) CompleteMaintenance(ctx context.Context, id int64, done time.Time, next *time.Time) (Asset, error) {
	if next != nil && next.Before(done) {
		return Asset{}, fmt.Errorf("next maintenance %s is before %s", next.Format(time.DateOnly), done.Format(time.DateOnly))
	}
	a, err := scanAsset(r.DB.QueryRow(ctx, fmt.Sprintf(`
		UPDATE %s SET
			last_maintenance_date = $2,
			next_maintenance_date = $3,
			status = 'operational'
		WHERE id=$1
		RETURNING %s`, r.table(), assetColumns), id, done, next))
	return a, notFound(err)
}

// ListScheduledMaintenance returns equipment and facilities with a next maintenance date on
// or before until, skipping retired equipment and closed facilities. Overdue items are included.
func ListScheduledMaintenance(ctx context.Context, db *pgxpool.Pool, until time.Time) ([]MaintenanceItem, error) {
	rows, err := db.Query(ctx, `
		SELECT 'equipment', e.id, e.farm_id, f.name, e.name, e.status, e.next_maintenance_date
		FROM equipment e JOIN farms f ON f.id = e.farm_id
		WHERE e.next_maintenance_date IS NOT NULL AND e.next_maintenance_date <= $1
		  AND e.status <> 'retired'
		UNION ALL
		SELECT 'facility', c.id, c.farm_id, f.name, c.name, c.status, c.next_maintenance_date
		FROM facilities c JOIN farms f ON f.id = c.farm_id
		WHERE c.next_maintenance_date IS NOT NULL AND c.next_maintenance_date <= $1
		  AND c.status <> 'closed'
		ORDER BY 7, 4, 5`, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []MaintenanceItem{}
	for rows.Next() {
		var (
			it   MaintenanceItem
			kind string
		)
		if err := rows.Scan(&kind, &it.ID, &it.FarmID, &it.FarmName, &it.Name, &it.Status, &it.NextMaintenanceDate); err != nil {
			return nil, err
		}
		it.Kind = AssetKind(kind)
		out = append(out, it)
	}
	return out, rows.Err()
}

// MaintenanceStore adapts ListScheduledMaintenance to a method set.
type MaintenanceStore struct{ DB *pgxpool.Pool }

func (s MaintenanceStore) ListScheduledMaintenance(ctx context.Context, until time.Time) ([]MaintenanceItem, error) {
	return ListScheduledMaintenance(ctx, s.DB, until)
}
