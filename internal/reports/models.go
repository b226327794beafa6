package reports

import "time"

type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// Rank orders urgencies, critical first.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyCritical:
		return 0
	case UrgencyHigh:
		return 1
	case UrgencyMedium:
		return 2
	case UrgencyLow:
		return 3
	}
	return 4
}

type Report struct {
	ID          int64     `json:"id"`
	FarmID      int64     `json:"farm_id"`
	EquipmentID *int64    `json:"equipment_id"`
	FacilityID  *int64    `json:"facility_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Urgency     Urgency   `json:"urgency"`
	Status      Status    `json:"status"`
	ReportedBy  string    `json:"reported_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// filled on list queries used by the summary email
	FarmName string `json:"farm_name,omitempty"`
}

type Filter struct {
	FarmID  int64
	Status  Status
	Urgency Urgency
	Limit   int
	Offset  int
}

type Changes struct {
	Title       *string
	Description *string
	Urgency     *Urgency
	EquipmentID *int64
	FacilityID  *int64
}
