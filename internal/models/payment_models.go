package models

import "time"

// Payment statuses recorded from invoice webhooks.
const (
	PaymentStatusSucceeded = "succeeded"
	PaymentStatusFailed    = "failed"
)

// Payment is an invoice outcome reported by the payment processor.
type Payment struct {
	ID             int64     `json:"id" db:"id"`
	UserID         int64     `json:"user_id" db:"user_id"`
	InvoiceID      string    `json:"invoice_id" db:"invoice_id"`
	SubscriptionID *string   `json:"subscription_id,omitempty" db:"subscription_id"`
	Amount         int64     `json:"amount" db:"amount"` // öre
	Currency       string    `json:"currency" db:"currency"`
	Status         string    `json:"status" db:"status"`
	InvoiceURL     *string   `json:"invoice_url,omitempty" db:"invoice_url"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// PaymentMethod is a stored card.
type PaymentMethod struct {
	ID        string `json:"id"`
	Brand     string `json:"brand"`
	Last4     string `json:"last4"`
	ExpMonth  int64  `json:"exp_month"`
	ExpYear   int64  `json:"exp_year"`
	IsDefault bool   `json:"is_default"`
}

// SubscriptionInfo merges the processor's subscription with the local membership.
type SubscriptionInfo struct {
	SubscriptionID    string      `json:"subscription_id,omitempty"`
	Status            string      `json:"status"`
	CurrentPeriodEnd  *time.Time  `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd bool        `json:"cancel_at_period_end"`
	Membership        *Membership `json:"membership,omitempty"`
}
