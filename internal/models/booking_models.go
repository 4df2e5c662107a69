package models

import "time"

// BookingStatus defines the type for booking statuses
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusNoShow    BookingStatus = "no_show"
)

// IsValidBookingStatus checks if the provided status string is a valid BookingStatus.
func IsValidBookingStatus(status string) bool {
	switch BookingStatus(status) {
	case BookingStatusPending,
		BookingStatusConfirmed,
		BookingStatusCancelled,
		BookingStatusCompleted,
		BookingStatusNoShow:
		return true
	default:
		return false
	}
}

// Booking is a reserved class spot or a direct gym visit (ClassID nil).
type Booking struct {
	ID            int64      `json:"id" db:"id"`
	UserID        int64      `json:"user_id" db:"user_id"`
	ClubID        int64      `json:"club_id" db:"club_id"`
	ClassID       *int64     `json:"class_id,omitempty" db:"class_id"`
	Status        string     `json:"status" db:"status"`
	CreditsUsed   int        `json:"credits_used" db:"credits_used"`
	BookingCode   string     `json:"booking_code" db:"booking_code"`
	ScheduledAt   time.Time  `json:"scheduled_at" db:"scheduled_at"`
	IsDailyAccess bool       `json:"is_daily_access" db:"is_daily_access"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CheckedInAt   *time.Time `json:"checked_in_at,omitempty" db:"checked_in_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`

	// Joined details
	ClubName       string     `json:"club_name,omitempty"`
	ClassName      *string    `json:"class_name,omitempty"`
	ClassStartTime *time.Time `json:"class_start_time,omitempty"`
	ClassEndTime   *time.Time `json:"class_end_time,omitempty"`
	StatusLabel    string     `json:"status_label,omitempty"`
}

// BookingFilters defines the available filters for querying bookings.
type BookingFilters struct {
	UserID   *int64  `form:"-"`
	ClubID   *int64  `form:"club_id"`
	Status   *string `form:"status"`
	Upcoming *bool   `form:"upcoming"`
	Page     int     `form:"page"`
	PageSize int     `form:"page_size"`
}

// Visit records a check-in at a club.
type Visit struct {
	ID          int64     `json:"id" db:"id"`
	UserID      int64     `json:"user_id" db:"user_id"`
	ClubID      int64     `json:"club_id" db:"club_id"`
	BookingID   *int64    `json:"booking_id,omitempty" db:"booking_id"`
	CreditsUsed int       `json:"credits_used" db:"credits_used"`
	VisitedAt   time.Time `json:"visited_at" db:"visited_at"`
	ClubName    string    `json:"club_name,omitempty"`
}
