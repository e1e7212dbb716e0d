package api

import "time"

type createPlantRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

type updatePlantRequest struct {
	Name     *string `json:"name"`
	Location *string `json:"location"`
}

type assignRequest struct {
	UserID int64 `json:"userId"`
}

type insertReadingRequest struct {
	PlantID    int64      `json:"plantId"`
	Level      float64    `json:"level"`
	FlowRate   float64    `json:"flowRate"`
	Chlorine   float64    `json:"chlorine"`
	RecordedAt *time.Time `json:"recordedAt"`
}

type createIncidenceRequest struct {
	PlantID     int64  `json:"plantId"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type createMaintenanceRequest struct {
	PlantID      int64     `json:"plantId"`
	AssignedTo   *int64    `json:"assignedTo"`
	Description  string    `json:"description"`
	ScheduledFor time.Time `json:"scheduledFor"`
	Checklist    []string  `json:"checklist"`
}

type checklistItemRequest struct {
	Done bool `json:"done"`
}

type generateReportRequest struct {
	PlantID int64  `json:"plantId"`
	From    string `json:"from"`
	To      string `json:"to"`
}
