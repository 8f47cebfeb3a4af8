package domain

import "time"

// Settings is the single-row system configuration edited from the admin panel.
type Settings struct {
	ID                 int64
	CompanyName        string
	Address            string
	Phone              string
	Email              string
	WorkingHours       string
	Description        string
	Website            string
	MaintenanceMode    bool
	MaintenanceMessage string
	UpdatedAt          *time.Time
}
