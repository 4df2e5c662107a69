package models

import "time"

// UserDashboard holds key metrics for the home screen.
type UserDashboard struct {
	CreditsTotal          int        `json:"credits_total"`
	CreditsUsed           int        `json:"credits_used"`
	CreditsRemaining      int        `json:"credits_remaining"`
	NextBillingDate       *time.Time `json:"next_billing_date,omitempty"`
	UpcomingBookingsCount int        `json:"upcoming_bookings_count"`
	NextBooking           *Booking   `json:"next_booking,omitempty"`
	VisitsThisPeriod      int        `json:"visits_this_period"`
	DailyAccessGymsCount  int        `json:"daily_access_gyms_count"`
	FavoritesCount        int        `json:"favorites_count"`
	MembershipStatus      string     `json:"membership_status"`
	MembershipStatusLabel string     `json:"membership_status_label"`
}

// ClubPayoutItem is one gym's share of Daily Access credits for a cycle.
type ClubPayoutItem struct {
	ClubID   int64  `json:"club_id"`
	ClubName string `json:"club_name"`
	Credits  int    `json:"credits"`
	Members  int    `json:"members"`
}
