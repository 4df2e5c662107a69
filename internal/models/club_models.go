package models

import "time"

// Club is a gym, studio or other venue users can visit.
type Club struct {
	ID          int64     `json:"id" db:"id"`
	OwnerID     *int64    `json:"owner_id,omitempty" db:"owner_id"`
	Name        string    `json:"name" db:"name"`
	Type        string    `json:"type" db:"type"`
	Description *string   `json:"description,omitempty" db:"description"`
	Address     *string   `json:"address,omitempty" db:"address"`
	City        *string   `json:"city,omitempty" db:"city"`
	PostalCode  *string   `json:"postal_code,omitempty" db:"postal_code"`
	Latitude    *float64  `json:"latitude,omitempty" db:"latitude"`
	Longitude   *float64  `json:"longitude,omitempty" db:"longitude"`
	Credits     int       `json:"credits" db:"credits"` // credits per direct visit
	OpenHours   *string   `json:"open_hours,omitempty" db:"open_hours"`
	ImageURL    *string   `json:"image_url,omitempty" db:"image_url"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`

	// Computed
	Rating          float64  `json:"rating"`
	ReviewCount     int      `json:"review_count"`
	UpcomingClasses int      `json:"upcoming_classes"`
	DistanceKm      *float64 `json:"distance_km,omitempty"`
	IsFavorite      bool     `json:"is_favorite"`
}

// ClubFilters defines the available filters for listing clubs.
type ClubFilters struct {
	Search    *string  `form:"search"`
	Type      *string  `form:"type"`
	City      *string  `form:"city"`
	MinRating *float64 `form:"min_rating"`
	Latitude  *float64 `form:"lat"`
	Longitude *float64 `form:"lng"`
	RadiusKm  *float64 `form:"radius_km"`
	OwnerID   *int64   `form:"-"`
	Page      int      `form:"page"`
	PageSize  int      `form:"page_size"`
}

// ClubPayload is used to create or update a club.
type ClubPayload struct {
	OwnerID     *int64  `json:"owner_id"`
	Name        *string `json:"name"`
	Type        *string `json:"type"`
	Description *string `json:"description"`
	Address     *string `json:"address"`
	City        *string `json:"city"`
	PostalCode  *string `json:"postal_code"`
	Credits     *int    `json:"credits"`
	OpenHours   *string `json:"open_hours"`
	ImageURL    *string `json:"image_url"`
	IsActive    *bool   `json:"is_active"`
}

// Favorite marks a club as a user's favourite.
type Favorite struct {
	UserID    int64     `json:"user_id"`
	ClubID    int64     `json:"club_id"`
	CreatedAt time.Time `json:"created_at"`
	Club      *Club     `json:"club,omitempty"`
}
