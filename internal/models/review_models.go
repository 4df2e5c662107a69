package models

import "time"

// Review is a user's rating of a club.
type Review struct {
	ID           int64     `json:"id" db:"id"`
	UserID       int64     `json:"user_id" db:"user_id"`
	ClubID       int64     `json:"club_id" db:"club_id"`
	Rating       int       `json:"rating" db:"rating"`
	Comment      *string   `json:"comment,omitempty" db:"comment"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
	ReviewerName string    `json:"reviewer_name,omitempty"`
}

// ReviewPayload is the body of POST /clubs/:id/reviews.
type ReviewPayload struct {
	Rating  int     `json:"rating" binding:"required"`
	Comment *string `json:"comment"`
}
