package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fitpass_backend/internal/billing"
	"fitpass_backend/internal/metrics"
	"fitpass_backend/internal/models"
	"fitpass_backend/internal/repositories"
	"fitpass_backend/pkg/utils"
)

var (
	ErrDefaultMethodInUse    = errors.New("the default payment method is used by an active subscription")
	ErrPaymentMethodNotFound = errors.New("payment method not found")
)

type AttachPaymentMethodRequest struct {
	PaymentMethodID string `json:"payment_method_id" binding:"required"`
	SetDefault      bool   `json:"set_default"`
}

// BillingService exposes payment methods, payment history and processor webhooks.
type BillingService interface {
	ListPaymentMethods(ctx context.Context, userID int64) ([]models.PaymentMethod, error)
	CreateSetupIntent(ctx context.Context, userID int64) (string, error)
	AttachPaymentMethod(ctx context.Context, userID int64, req AttachPaymentMethodRequest) ([]models.PaymentMethod, error)
	SetDefaultPaymentMethod(ctx context.Context, userID int64, paymentMethodID string) ([]models.PaymentMethod, error)
	DetachPaymentMethod(ctx context.Context, userID int64, paymentMethodID string) error
	GetHistory(userID int64, page, pageSize int) ([]models.Payment, int, error)
	GetSubscription(ctx context.Context, userID int64) (*models.SubscriptionInfo, error)
	HandleWebhook(payload []byte, signature string) error
}

type billingService struct {
	gateway         billing.Gateway
	userRepo        repositories.UserRepository
	membershipRepo  repositories.MembershipRepository
	selectedGymRepo repositories.SelectedGymRepository
	paymentRepo     repositories.PaymentRepository
	db              *sql.DB
	loc             *time.Location
}

// BillingDeps groups the repositories the billing service works with.
type BillingDeps struct {
	Users        repositories.UserRepository
	Memberships  repositories.MembershipRepository
	SelectedGyms repositories.SelectedGymRepository
	Payments     repositories.PaymentRepository
}

// NewBillingService creates the billing service. gateway may be nil, in which
// case every processor-backed operation returns billing.ErrNotConfigured.
func NewBillingService(gateway billing.Gateway, deps BillingDeps, db *sql.DB, loc *time.Location) BillingService {
	if loc == nil {
		loc = time.UTC
	}
	return &billingService{
		gateway:         gateway,
		userRepo:        deps.Users,
		membershipRepo:  deps.Memberships,
		selectedGymRepo: deps.SelectedGyms,
		paymentRepo:     deps.Payments,
		db:              db,
		loc:             loc,
	}
}

func (s *billingService) loadUser(userID int64) (*models.User, error) {
	user, err := s.userRepo.FindUserByID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// ensureCustomer returns the user's processor customer id, creating the customer on first use.
func (s *billingService) ensureCustomer(ctx context.Context, userID int64) (string, error) {
	user, err := s.loadUser(userID)
	if err != nil {
		return "", err
	}
	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		return *user.StripeCustomerID, nil
	}
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	customerID, err := s.gateway.CreateCustomer(ctx, user.ID, user.Email, name)
	if err != nil {
		return "", err
	}
	if err := s.userRepo.SetStripeCustomerID(s.db, user.ID, customerID); err != nil {
		return "", fmt.Errorf("failed to store customer id: %w", err)
	}
	return customerID, nil
}

// existingCustomer returns "" when the user has never been registered with the processor.
func (s *billingService) existingCustomer(userID int64) (string, error) {
	user, err := s.loadUser(userID)
	if err != nil {
		return "", err
	}
	return utils.StrValue(user.StripeCustomerID), nil
}

func (s *billingService) ListPaymentMethods(ctx context.Context, userID int64) ([]models.PaymentMethod, error) {
	if s.gateway == nil {
		return nil, billing.ErrNotConfigured
	}
	customerID, err := s.existingCustomer(userID)
	if err != nil {
		return nil, err
	}
	if customerID == "" {
		return []models.PaymentMethod{}, nil
	}
	return s.gateway.ListPaymentMethods(ctx, customerID)
}

func (s *billingService) CreateSetupIntent(ctx context.Context, userID int64) (string, error) {
	if s.gateway == nil {
		return "", billing.ErrNotConfigured
	}
	customerID, err := s.ensureCustomer(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.gateway.CreateSetupIntent(ctx, customerID)
}

func (s *billingService) AttachPaymentMethod(ctx context.Context, userID int64, req AttachPaymentMethodRequest) ([]models.PaymentMethod, error) {
	if s.gateway == nil {
		return nil, billing.ErrNotConfigured
	}
	customerID, err := s.ensureCustomer(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.gateway.AttachPaymentMethod(ctx, customerID, req.PaymentMethodID); err != nil {
		return nil, err
	}
	setDefault := req.SetDefault
	if !setDefault {
		current, err := s.gateway.DefaultPaymentMethod(ctx, customerID)
		if err != nil {
			return nil, err
		}
		setDefault = current == ""
	}
	if setDefault {
		if err := s.gateway.SetDefaultPaymentMethod(ctx, customerID, req.PaymentMethodID); err != nil {
			return nil, err
		}
	}
	return s.gateway.ListPaymentMethods(ctx, customerID)
}

// ownedMethod checks the payment method belongs to the customer.
func (s *billingService) ownedMethod(ctx context.Context, customerID, paymentMethodID string) (*models.PaymentMethod, error) {
	methods, err := s.gateway.ListPaymentMethods(ctx, customerID)
	if err != nil {
		return nil, err
	}
	for i := range methods {
		if methods[i].ID == paymentMethodID {
			return &methods[i], nil
		}
	}
	return nil, ErrPaymentMethodNotFound
}

func (s *billingService) SetDefaultPaymentMethod(ctx context.Context, userID int64, paymentMethodID string) ([]models.PaymentMethod, error) {
	if s.gateway == nil {
		return nil, billing.ErrNotConfigured
	}
	customerID, err := s.existingCustomer(userID)
	if err != nil {
		return nil, err
	}
	if customerID == "" {
		return nil, ErrPaymentMethodNotFound
	}
	if _, err := s.ownedMethod(ctx, customerID, paymentMethodID); err != nil {
		return nil, err
	}
	if err := s.gateway.SetDefaultPaymentMethod(ctx, customerID, paymentMethodID); err != nil {
		return nil, err
	}
	return s.gateway.ListPaymentMethods(ctx, customerID)
}

// DetachPaymentMethod removes a card. The default card stays while a subscription depends on it.
func (s *billingService) DetachPaymentMethod(ctx context.Context, userID int64, paymentMethodID string) error {
	if s.gateway == nil {
		return billing.ErrNotConfigured
	}
	customerID, err := s.existingCustomer(userID)
	if err != nil {
		return err
	}
	if customerID == "" {
		return ErrPaymentMethodNotFound
	}
	pm, err := s.ownedMethod(ctx, customerID, paymentMethodID)
	if err != nil {
		return err
	}
	if pm.IsDefault {
		m, err := s.membershipRepo.GetActiveMembership(userID)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("failed to check membership: %w", err)
		}
		if err == nil && m.StripeSubscriptionID != nil {
			return ErrDefaultMethodInUse
		}
	}
	return s.gateway.DetachPaymentMethod(ctx, paymentMethodID)
}

func (s *billingService) GetHistory(userID int64, page, pageSize int) ([]models.Payment, int, error) {
	page, pageSize = normalizePage(page, pageSize)
	payments, total, err := s.paymentRepo.GetPaymentsByUser(userID, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get payment history: %w", err)
	}
	return payments, total, nil
}

// GetSubscription merges the processor's live subscription with the local membership.
func (s *billingService) GetSubscription(ctx context.Context, userID int64) (*models.SubscriptionInfo, error) {
	m, err := s.membershipRepo.GetActiveMembership(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNoActiveMembership
		}
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}
	decorateMembership(m)
	info := &models.SubscriptionInfo{
		Status:            m.SubscriptionStatus,
		CancelAtPeriodEnd: m.CancelAtPeriodEnd,
		Membership:        m,
	}
	if m.StripeSubscriptionID == nil || s.gateway == nil {
		end := m.NextBillingDate
		info.CurrentPeriodEnd = &end
		return info, nil
	}
	sub, err := s.gateway.GetSubscription(ctx, *m.StripeSubscriptionID)
	if err != nil {
		return nil, err
	}
	info.SubscriptionID = sub.ID
	info.Status = sub.Status
	info.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
	if !sub.CurrentPeriodEnd.IsZero() {
		end := sub.CurrentPeriodEnd
		info.CurrentPeriodEnd = &end
	}
	return info, nil
}

// HandleWebhook verifies and processes a processor event. Only signature and
// configuration problems are returned; processing failures are logged and
// counted so the processor does not keep retrying.
func (s *billingService) HandleWebhook(payload []byte, signature string) error {
	if s.gateway == nil {
		return billing.ErrNotConfigured
	}
	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		metrics.RecordWebhookEvent("", "rejected")
		return err
	}

	result, err := s.processEvent(event)
	if err != nil {
		utils.LogError(err, "Webhook processing failed for event "+event.ID+" ("+event.Type+")")
		result = "error"
	}
	metrics.RecordWebhookEvent(event.Type, result)
	return nil
}

func (s *billingService) processEvent(event *billing.Event) (string, error) {
	switch {
	case event.Subscription != nil:
		return s.onSubscription(event.Type, event.Subscription)
	case event.Invoice != nil:
		return s.onInvoice(event.Type, event.Invoice)
	default:
		return "ignored", nil
	}
}

func (s *billingService) onSubscription(eventType string, sub *billing.Subscription) (string, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	m, err := s.membershipRepo.GetMembershipBySubscriptionForUpdate(tx, sub.ID)
	if errors.Is(err, repositories.ErrNotFound) {
		return "ignored", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load membership: %w", err)
	}

	m.SubscriptionStatus = sub.Status
	m.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
	if eventType == billing.EventSubscriptionDeleted {
		if sub.Status == "" {
			m.SubscriptionStatus = "canceled"
		}
		if m.IsActive {
			m.IsActive = false
			if err := releaseSelections(tx, s.selectedGymRepo, m.UserID, m.NextBillingDate, true); err != nil {
				return "", err
			}
		}
	}
	if err := s.membershipRepo.UpdateMembership(tx, m); err != nil {
		return "", fmt.Errorf("failed to update membership: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit subscription update: %w", err)
	}
	return "processed", nil
}

// onInvoice records the payment. A paid renewal invoice also rolls the
// membership over; a retried event finds the payment already recorded and stops there.
func (s *billingService) onInvoice(eventType string, inv *billing.Invoice) (string, error) {
	user, err := s.userRepo.FindUserByStripeCustomerID(inv.CustomerID)
	if errors.Is(err, repositories.ErrNotFound) {
		return "ignored", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to find customer: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	status := models.PaymentStatusSucceeded
	if eventType == billing.EventInvoiceFailed {
		status = models.PaymentStatusFailed
	}
	payment := &models.Payment{
		UserID:         user.ID,
		InvoiceID:      inv.ID,
		SubscriptionID: utils.NewNullString(inv.SubscriptionID),
		Amount:         inv.Amount,
		Currency:       inv.Currency,
		Status:         status,
		InvoiceURL:     utils.NewNullString(inv.URL),
	}
	created, err := s.paymentRepo.RecordPayment(tx, payment)
	if err != nil {
		return "", fmt.Errorf("failed to record payment: %w", err)
	}
	if !created {
		return "duplicate", nil
	}

	if inv.SubscriptionID != "" {
		m, err := s.membershipRepo.GetMembershipBySubscriptionForUpdate(tx, inv.SubscriptionID)
		switch {
		case errors.Is(err, repositories.ErrNotFound):
		case err != nil:
			return "", fmt.Errorf("failed to load membership: %w", err)
		case status == models.PaymentStatusFailed:
			m.SubscriptionStatus = "past_due"
			if err := s.membershipRepo.UpdateMembership(tx, m); err != nil {
				return "", fmt.Errorf("failed to mark membership past due: %w", err)
			}
		default:
			m.SubscriptionStatus = "active"
			if inv.BillingReason == billing.BillingReasonCycle && m.IsActive {
				if err := renewMembership(tx, s.membershipRepo, s.selectedGymRepo, m, s.loc); err != nil {
					return "", err
				}
			} else if err := s.membershipRepo.UpdateMembership(tx, m); err != nil {
				return "", fmt.Errorf("failed to update membership: %w", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit invoice: %w", err)
	}
	return "processed", nil
}
