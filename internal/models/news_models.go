package models

import "time"

const (
	NewsStatusActive  = "active"
	NewsStatusDraft   = "draft"
	NewsStatusExpired = "expired"
)

var newsTypes = map[string]bool{
	"new_class":    true,
	"event":        true,
	"update":       true,
	"promo":        true,
	"announcement": true,
}

// IsValidNewsType checks if the provided string is a known news type.
func IsValidNewsType(t string) bool {
	return newsTypes[t]
}

// News is an item in the news feed, global when ClubID is nil.
type News struct {
	ID          int64      `json:"id" db:"id"`
	ClubID      *int64     `json:"club_id,omitempty" db:"club_id"`
	Title       string     `json:"title" db:"title"`
	Description *string    `json:"description,omitempty" db:"description"`
	Content     *string    `json:"content,omitempty" db:"content"`
	Type        string     `json:"type" db:"type"`
	ImageURL    *string    `json:"image_url,omitempty" db:"image_url"`
	ActionText  *string    `json:"action_text,omitempty" db:"action_text"`
	Priority    int        `json:"priority" db:"priority"`
	Status      string     `json:"status" db:"status"`
	PublishedAt time.Time  `json:"published_at" db:"published_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	ClubName    *string    `json:"club_name,omitempty"`
}

// NewsFilters for GET /news.
type NewsFilters struct {
	ClubID *int64 `form:"club_id"`
	Limit  int    `form:"limit"`
}

// NewsPayload is the body of POST /news.
type NewsPayload struct {
	ClubID      *int64     `json:"club_id"`
	Title       string     `json:"title" binding:"required"`
	Description *string    `json:"description"`
	Content     *string    `json:"content"`
	Type        string     `json:"type" binding:"required"`
	ImageURL    *string    `json:"image_url"`
	ActionText  *string    `json:"action_text"`
	Priority    int        `json:"priority"`
	Status      *string    `json:"status"`
	PublishedAt *time.Time `json:"published_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
}
