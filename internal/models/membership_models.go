package models

import "time"

// Derived membership statuses shown to the user.
const (
	MembershipStatusActive     = "active"
	MembershipStatusCancelling = "cancelling"
	MembershipStatusPastDue    = "past_due"
	MembershipStatusInactive   = "inactive"
)

// MembershipPlan is a row of the plan catalogue.
type MembershipPlan struct {
	ID                 int64     `json:"id" db:"id"`
	Code               string    `json:"code" db:"code"`
	Title              string    `json:"title" db:"title"`
	Description        *string   `json:"description,omitempty" db:"description"`
	Price              int64     `json:"price" db:"price"` // öre
	Credits            int       `json:"credits" db:"credits"`
	IsDailyAccess      bool      `json:"is_daily_access" db:"is_daily_access"`
	MaxDailyAccessGyms int       `json:"max_daily_access_gyms" db:"max_daily_access_gyms"`
	StripePriceID      *string   `json:"-" db:"stripe_price_id"`
	Features           []string  `json:"features" db:"features"`
	SortOrder          int       `json:"sort_order" db:"sort_order"`
	IsActive           bool      `json:"is_active" db:"is_active"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// Membership is a user's subscription to a plan for the current billing cycle.
type Membership struct {
	ID                   int64           `json:"id" db:"id"`
	UserID               int64           `json:"user_id" db:"user_id"`
	PlanID               int64           `json:"plan_id" db:"plan_id"`
	Credits              int             `json:"credits" db:"credits"`
	CreditsUsed          int             `json:"credits_used" db:"credits_used"`
	IsActive             bool            `json:"is_active" db:"is_active"`
	StartDate            time.Time       `json:"start_date" db:"start_date"`
	NextBillingDate      time.Time       `json:"next_billing_date" db:"next_billing_date"`
	BillingAnchorDay     int             `json:"-" db:"billing_anchor_day"`
	StripeSubscriptionID *string         `json:"-" db:"stripe_subscription_id"`
	SubscriptionStatus   string          `json:"subscription_status" db:"subscription_status"`
	CancelAtPeriodEnd    bool            `json:"cancel_at_period_end" db:"cancel_at_period_end"`
	CreatedAt            time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at" db:"updated_at"`
	Plan                 *MembershipPlan `json:"plan,omitempty"`

	CreditsRemaining int    `json:"credits_remaining"`
	Status           string `json:"status"`
	StatusLabel      string `json:"status_label,omitempty"`
}

// Remaining is credits minus credits_used, never negative.
func (m *Membership) Remaining() int {
	if r := m.Credits - m.CreditsUsed; r > 0 {
		return r
	}
	return 0
}

// DisplayStatus collapses the stored flags into the status the app shows.
func (m *Membership) DisplayStatus() string {
	switch {
	case !m.IsActive:
		return MembershipStatusInactive
	case m.SubscriptionStatus == "past_due" || m.SubscriptionStatus == "unpaid":
		return MembershipStatusPastDue
	case m.CancelAtPeriodEnd:
		return MembershipStatusCancelling
	default:
		return MembershipStatusActive
	}
}

// IsDailyAccess reports whether the attached plan is a Daily Access plan.
func (m *Membership) IsDailyAccess() bool {
	return m.Plan != nil && m.Plan.IsDailyAccess
}
