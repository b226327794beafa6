package farms

import "time"

type Farm struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Company   string    `json:"company"`
	Address   string    `json:"address"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
}

type Supplier struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Category  string    `json:"category"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Asset is a piece of equipment or a facility; both are tracked for maintenance the same way.
type Asset struct {
	ID                  int64      `json:"id"`
	FarmID              int64      `json:"farm_id"`
	Name                string     `json:"name"`
	Type                string     `json:"type"`
	Status              string     `json:"status"`
	LastMaintenanceDate *time.Time `json:"last_maintenance_date"`
	NextMaintenanceDate *time.Time `json:"next_maintenance_date"`
	Notes               string     `json:"notes"`
	CreatedAt           time.Time  `json:"created_at"`
}

type AssetKind string

const (
	KindEquipment AssetKind = "equipment"
	KindFacility  AssetKind = "facility"
)

const (
	StatusOperational = "operational"
	StatusMaintenance = "maintenance"
	StatusBroken      = "broken"
	StatusRetired     = "retired"
	StatusClosed      = "closed"
)

// ValidStatus reports whether status is allowed for the kind.
func (k AssetKind) ValidStatus(status string) bool {
	switch status {
	case StatusOperational, StatusMaintenance:
		return true
	case StatusBroken, StatusRetired:
		return k == KindEquipment
	case StatusClosed:
		return k == KindFacility
	}
	return false
}

// MaintenanceItem is one scheduled maintenance entry for the summary and dashboard.
type MaintenanceItem struct {
	Kind                AssetKind `json:"kind"`
	ID                  int64     `json:"id"`
	FarmID              int64     `json:"farm_id"`
	FarmName            string    `json:"farm_name"`
	Name                string    `json:"name"`
	Status              string    `json:"status"`
	NextMaintenanceDate time.Time `json:"next_maintenance_date"`
}

type Filter struct {
	FarmID int64
	Limit  int
	Offset int
}

type FarmChanges struct {
	Name      *string
	Company   *string
	Address   *string
	Latitude  *float64
	Longitude *float64
}

type SupplierChanges struct {
	Name     *string
	Email    *string
	Phone    *string
	Category *string
	Active   *bool
}

type AssetChanges struct {
	Name                *string
	Type                *string
	Status              *string
	NextMaintenanceDate *time.Time
	Notes               *string
}
