package models

import "time"

// Role is the closed set of account roles.
type Role string

const (
	RoleSuperAdmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleTechnician Role = "technician"
	RoleClient     Role = "client"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleTechnician, RoleClient:
		return true
	}
	return false
}

// Staff reports whether the role belongs to plant personnel
// (anyone who can hold multiple plant assignments).
func (r Role) Staff() bool {
	return r == RoleAdmin || r == RoleTechnician
}

// User represents a system account.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Plant represents a water-treatment plant.
type Plant struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
	// ClientID is the legacy single-owner column, superseded by plant_users.
	ClientID  *int64    `json:"client_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PlantAssignment links a user to a plant. A client user holds at most one
// assignment at any time; staff have no cap.
type PlantAssignment struct {
	UserID     int64     `json:"user_id"`
	PlantID    int64     `json:"plant_id"`
	UserKind   Role      `json:"user_kind"` // technician or client
	AssignedAt time.Time `json:"assigned_at"`
}

// PlantWithRelations is the plant detail view returned after assignment
// mutations and on plant detail reads.
type PlantWithRelations struct {
	Plant
	Technicians []User      `json:"technicians"`
	Clients     []User      `json:"clients"`
	LatestDatum *PlantDatum `json:"latest_datum,omitempty"`
}

// PlantDatum is a single sensor reading.
type PlantDatum struct {
	ID         int64     `json:"id"`
	PlantID    int64     `json:"plant_id"`
	Level      float64   `json:"level"`
	FlowRate   float64   `json:"flow_rate"`
	Chlorine   float64   `json:"chlorine"`
	RecordedAt time.Time `json:"recorded_at"`
}

// PlantMetric is the latest reading for one plant, used by the metrics
// aggregate.
type PlantMetric struct {
	PlantID    int64     `json:"plant_id"`
	PlantName  string    `json:"plant_name"`
	Level      float64   `json:"level"`
	FlowRate   float64   `json:"flow_rate"`
	Chlorine   float64   `json:"chlorine"`
	RecordedAt time.Time `json:"recorded_at"`
}

// IncidenceStatus is the closed set of incidence states.
type IncidenceStatus string

const (
	IncidencePending    IncidenceStatus = "pending"
	IncidenceInProgress IncidenceStatus = "in_progress"
	IncidenceResolved   IncidenceStatus = "resolved"
)

// Valid reports whether s is a known incidence status.
func (s IncidenceStatus) Valid() bool {
	switch s {
	case IncidencePending, IncidenceInProgress, IncidenceResolved:
		return true
	}
	return false
}

// Incidence is a reported problem at a plant.
type Incidence struct {
	ID          int64            `json:"id"`
	PlantID     int64            `json:"plant_id"`
	ReportedBy  int64            `json:"reported_by"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Status      IncidenceStatus  `json:"status"`
	Photos      []IncidencePhoto `json:"photos,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// IncidencePhoto references an uploaded photo in blob storage.
type IncidencePhoto struct {
	ID          int64     `json:"id"`
	IncidenceID int64     `json:"incidence_id"`
	ObjectKey   string    `json:"object_key"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// MaintenanceStatus is the closed set of maintenance states.
type MaintenanceStatus string

const (
	MaintenanceScheduled  MaintenanceStatus = "scheduled"
	MaintenanceInProgress MaintenanceStatus = "in_progress"
	MaintenanceCompleted  MaintenanceStatus = "completed"
)

// Valid reports whether s is a known maintenance status.
func (s MaintenanceStatus) Valid() bool {
	switch s {
	case MaintenanceScheduled, MaintenanceInProgress, MaintenanceCompleted:
		return true
	}
	return false
}

// Maintenance is a scheduled maintenance visit.
type Maintenance struct {
	ID           int64             `json:"id"`
	PlantID      int64             `json:"plant_id"`
	AssignedTo   *int64            `json:"assigned_to,omitempty"`
	Description  string            `json:"description"`
	Status       MaintenanceStatus `json:"status"`
	ScheduledFor time.Time         `json:"scheduled_for"`
	Checklist    []ChecklistItem   `json:"checklist,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// ChecklistItem is one step of a maintenance visit.
type ChecklistItem struct {
	ID            int64  `json:"id"`
	MaintenanceID int64  `json:"maintenance_id"`
	Label         string `json:"label"`
	Done          bool   `json:"done"`
}

// Report is a generated report document stored in blob storage.
type Report struct {
	ID          int64     `json:"id"`
	PlantID     int64     `json:"plant_id"`
	RequestedBy int64     `json:"requested_by"`
	Title       string    `json:"title"`
	ObjectKey   string    `json:"-"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	GeneratedAt time.Time `json:"generated_at"`
}
