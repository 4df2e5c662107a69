// Package billing wraps the payment processor behind a small Gateway
// interface so services never touch processor types directly.
package billing

import (
	"context"
	"errors"
	"time"

	"fitpass_backend/internal/models"
)

var (
	ErrNotConfigured    = errors.New("payment processor not configured")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrProcessor        = errors.New("payment processor error")
	ErrCardDeclined     = errors.New("card declined")
)

// Webhook event types handled by the billing service.
const (
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
	EventInvoiceSucceeded    = "invoice.payment_succeeded"
	EventInvoiceFailed       = "invoice.payment_failed"

	BillingReasonCycle = "subscription_cycle"
)

// Subscription is the processor's view of a recurring charge.
type Subscription struct {
	ID                string
	CustomerID        string
	Status            string
	PriceID           string
	CurrentPeriodEnd  time.Time
	CancelAtPeriodEnd bool
}

// Invoice is the subset of an invoice needed to record a payment.
type Invoice struct {
	ID             string
	CustomerID     string
	SubscriptionID string
	Amount         int64
	Currency       string
	BillingReason  string
	URL            string
	PeriodEnd      time.Time
}

// Event is a verified webhook event. Exactly one of Subscription or Invoice
// is set for the handled types; both are nil for anything else.
type Event struct {
	ID           string
	Type         string
	Subscription *Subscription
	Invoice      *Invoice
}

// Gateway is the set of payment processor calls the API makes.
type Gateway interface {
	CreateCustomer(ctx context.Context, userID int64, email, name string) (string, error)
	CreateSetupIntent(ctx context.Context, customerID string) (string, error)
	ListPaymentMethods(ctx context.Context, customerID string) ([]models.PaymentMethod, error)
	AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error
	DetachPaymentMethod(ctx context.Context, paymentMethodID string) error
	SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error
	DefaultPaymentMethod(ctx context.Context, customerID string) (string, error)

	CreateSubscription(ctx context.Context, customerID, priceID, idempotencyKey string) (*Subscription, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	ChangeSubscriptionPrice(ctx context.Context, subscriptionID, priceID string) (*Subscription, error)
	SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (*Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error

	ParseWebhook(payload []byte, signature string) (*Event, error)
}
