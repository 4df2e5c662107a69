package models

import "time"

// SelectedGym is a row of user_selected_gyms.
type SelectedGym struct {
	ID              int64      `json:"id" db:"id"`
	UserID          int64      `json:"user_id" db:"user_id"`
	ClubID          int64      `json:"club_id" db:"club_id"`
	MembershipID    *int64     `json:"membership_id,omitempty" db:"membership_id"`
	Status          string     `json:"status" db:"status"`
	SelectedAt      time.Time  `json:"selected_at" db:"selected_at"`
	EffectiveFrom   time.Time  `json:"effective_from" db:"effective_from"`
	EffectiveTo     *time.Time `json:"effective_to,omitempty" db:"effective_to"`
	ReplacingClubID *int64     `json:"replacing_club_id,omitempty" db:"replacing_club_id"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`

	ClubName    string `json:"club_name,omitempty"`
	StatusLabel string `json:"status_label,omitempty"`
	Credits     int    `json:"credits"`
}

// DailyAccessOverview is the response of GET /daily-access.
type DailyAccessOverview struct {
	Gyms            []SelectedGym `json:"gyms"`
	MaxGyms         int           `json:"max_gyms"`
	SlotsUsed       int           `json:"slots_used"`
	NextBillingDate time.Time     `json:"next_billing_date"`
}
