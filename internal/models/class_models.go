package models

import "time"

// Class is a scheduled session at a club.
type Class struct {
	ID          int64     `json:"id" db:"id"`
	ClubID      int64     `json:"club_id" db:"club_id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	Instructor  *string   `json:"instructor,omitempty" db:"instructor"`
	Intensity   *string   `json:"intensity,omitempty" db:"intensity"`
	StartTime   time.Time `json:"start_time" db:"start_time"`
	EndTime     time.Time `json:"end_time" db:"end_time"`
	Capacity    int       `json:"capacity" db:"capacity"`
	BookedSpots int       `json:"booked_spots" db:"booked_spots"`
	Credits     int       `json:"credits" db:"credits"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`

	ClubName  string `json:"club_name,omitempty"`
	SpotsLeft int    `json:"spots_left"`
}

// FillSpotsLeft computes SpotsLeft from capacity and booked spots.
func (c *Class) FillSpotsLeft() {
	c.SpotsLeft = c.Capacity - c.BookedSpots
	if c.SpotsLeft < 0 {
		c.SpotsLeft = 0
	}
}

// HasStarted reports whether the class start time is at or before now.
func (c *Class) HasStarted(now time.Time) bool {
	return !c.StartTime.After(now)
}

// ClassFilters defines the available filters for listing classes.
type ClassFilters struct {
	ClubID      *int64     `form:"club_id"`
	Date        *string    `form:"date"` // YYYY-MM-DD in the configured timezone
	From        *time.Time `form:"-"`
	To          *time.Time `form:"-"`
	IncludePast bool       `form:"include_past"`
	Page        int        `form:"page"`
	PageSize    int        `form:"page_size"`
}

// ClassPayload is used to create or update a class.
type ClassPayload struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Instructor  *string `json:"instructor"`
	Intensity   *string `json:"intensity"`
	StartTime   *string `json:"start_time"` // RFC3339
	EndTime     *string `json:"end_time"`
	Capacity    *int    `json:"capacity"`
	Credits     *int    `json:"credits"`
}
