package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fitpass_backend/internal/billing"
	"fitpass_backend/internal/config"
	"fitpass_backend/internal/dailyaccess"
	"fitpass_backend/internal/labels"
	"fitpass_backend/internal/models"
	"fitpass_backend/internal/repositories"
	"fitpass_backend/pkg/utils"

	"github.com/google/uuid"
)

var (
	ErrPlanNotFound          = errors.New("membership plan not found")
	ErrMembershipExists      = errors.New("user already has an active membership")
	ErrSamePlan              = errors.New("membership is already on this plan")
	ErrPaymentMethodRequired = errors.New("a default payment method is required")
)

type PlanRequest struct {
	PlanID int64 `json:"plan_id" binding:"required"`
}

// MembershipService manages the plan catalogue and the user's membership lifecycle.
type MembershipService interface {
	SyncPlans(plans []config.PlanConfig) error
	ListPlans() ([]models.MembershipPlan, error)
	GetMembership(userID int64) (*models.Membership, error)
	StartMembership(ctx context.Context, userID, planID int64) (*models.Membership, error)
	ChangePlan(ctx context.Context, userID, planID int64) (*models.Membership, error)
	CancelMembership(ctx context.Context, userID int64) (*models.Membership, error)
	ResumeMembership(ctx context.Context, userID int64) (*models.Membership, error)
	RenewMembership(membershipID int64, at time.Time) (*models.Membership, error)
	RenewDue(at time.Time) (int, error)
}

type membershipService struct {
	membershipRepo  repositories.MembershipRepository
	selectedGymRepo repositories.SelectedGymRepository
	userRepo        repositories.UserRepository
	gateway         billing.Gateway // nil when payments are not configured
	db              *sql.DB
	loc             *time.Location
	now             func() time.Time
}

func NewMembershipService(
	mr repositories.MembershipRepository,
	sr repositories.SelectedGymRepository,
	ur repositories.UserRepository,
	gateway billing.Gateway,
	db *sql.DB,
	loc *time.Location,
) MembershipService {
	if loc == nil {
		loc = time.UTC
	}
	return &membershipService{
		membershipRepo:  mr,
		selectedGymRepo: sr,
		userRepo:        ur,
		gateway:         gateway,
		db:              db,
		loc:             loc,
		now:             time.Now,
	}
}

func decorateMembership(m *models.Membership) *models.Membership {
	m.CreditsRemaining = m.Remaining()
	m.Status = m.DisplayStatus()
	m.StatusLabel = labels.Membership(m.Status)
	return m
}

// renewMembership rolls m over at its billing date: credits reset and the
// cycle advances one month, or the membership ends when it was set to cancel.
// Daily Access changes due at the boundary are applied in the same transaction.
// Billing dates are calendar dates in loc, whatever zone the driver returned them in.
func renewMembership(executor repositories.SQLExecutor, mr repositories.MembershipRepository, sr repositories.SelectedGymRepository, m *models.Membership, loc *time.Location) error {
	boundary := m.NextBillingDate.In(loc)
	if m.CancelAtPeriodEnd {
		m.IsActive = false
		m.SubscriptionStatus = "canceled"
		if err := releaseSelections(executor, sr, m.UserID, boundary, true); err != nil {
			return err
		}
		if err := mr.UpdateMembership(executor, m); err != nil {
			return fmt.Errorf("failed to deactivate membership: %w", err)
		}
		return nil
	}

	anchor := m.BillingAnchorDay
	if anchor <= 0 {
		anchor = m.StartDate.In(loc).Day()
	}
	m.StartDate = boundary
	m.NextBillingDate = dailyaccess.AddMonth(boundary, anchor)
	m.CreditsUsed = 0
	if m.Plan != nil {
		m.Credits = m.Plan.Credits
	}
	if err := mr.UpdateMembership(executor, m); err != nil {
		return fmt.Errorf("failed to renew membership: %w", err)
	}
	if _, err := applyDueSelections(executor, sr, m.UserID, boundary); err != nil {
		return err
	}
	return nil
}

// SyncPlans upserts the configured catalogue and retires plans no longer listed.
func (s *membershipService) SyncPlans(plans []config.PlanConfig) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	codes := make([]string, 0, len(plans))
	for _, pc := range plans {
		plan := &models.MembershipPlan{
			Code:               pc.Code,
			Title:              pc.Title,
			Description:        utils.NewNullString(pc.Description),
			Price:              pc.Price,
			Credits:            pc.Credits,
			IsDailyAccess:      pc.IsDailyAccess,
			MaxDailyAccessGyms: pc.MaxDailyAccessGyms,
			StripePriceID:      utils.NewNullString(pc.StripePriceID),
			Features:           pc.Features,
			SortOrder:          pc.SortOrder,
			IsActive:           true,
		}
		if _, err := s.membershipRepo.UpsertPlan(tx, plan); err != nil {
			return fmt.Errorf("failed to upsert plan %s: %w", pc.Code, err)
		}
		codes = append(codes, pc.Code)
	}
	retired, err := s.membershipRepo.DeactivatePlansNotIn(tx, codes)
	if err != nil {
		return fmt.Errorf("failed to retire old plans: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit plan sync: %w", err)
	}
	utils.LogInfo("Membership plans synced", map[string]interface{}{"plans": len(codes), "retired": retired})
	return nil
}

func (s *membershipService) ListPlans() ([]models.MembershipPlan, error) {
	plans, err := s.membershipRepo.GetPlans(true)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}

func (s *membershipService) GetMembership(userID int64) (*models.Membership, error) {
	m, err := s.membershipRepo.GetActiveMembership(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNoActiveMembership
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return decorateMembership(m), nil
}

func (s *membershipService) activePlan(planID int64) (*models.MembershipPlan, error) {
	plan, err := s.membershipRepo.GetPlanByID(planID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}
	if !plan.IsActive {
		return nil, ErrPlanNotFound
	}
	return plan, nil
}

// subscribe creates a processor subscription when the plan is billed through it.
func (s *membershipService) subscribe(ctx context.Context, userID int64, plan *models.MembershipPlan) (*billing.Subscription, error) {
	if s.gateway == nil || plan.StripePriceID == nil {
		return nil, nil
	}
	user, err := s.userRepo.FindUserByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.StripeCustomerID == nil {
		return nil, ErrPaymentMethodRequired
	}
	pm, err := s.gateway.DefaultPaymentMethod(ctx, *user.StripeCustomerID)
	if err != nil {
		return nil, err
	}
	if pm == "" {
		return nil, ErrPaymentMethodRequired
	}
	return s.gateway.CreateSubscription(ctx, *user.StripeCustomerID, *plan.StripePriceID, "membership-"+uuid.NewString())
}

func (s *membershipService) StartMembership(ctx context.Context, userID, planID int64) (*models.Membership, error) {
	plan, err := s.activePlan(planID)
	if err != nil {
		return nil, err
	}
	if _, err := s.membershipRepo.GetActiveMembership(userID); err == nil {
		return nil, ErrMembershipExists
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	sub, err := s.subscribe(ctx, userID, plan)
	if err != nil {
		return nil, err
	}

	now := s.now().In(s.loc)
	m := &models.Membership{
		UserID:           userID,
		PlanID:           plan.ID,
		Credits:          plan.Credits,
		StartDate:        now,
		NextBillingDate:  dailyaccess.AddMonth(now, now.Day()),
		BillingAnchorDay: now.Day(),
		Plan:             plan,
	}
	if sub != nil {
		m.StripeSubscriptionID = &sub.ID
		m.SubscriptionStatus = sub.Status
	}
	if _, err := s.membershipRepo.CreateMembership(s.db, m); err != nil {
		if sub != nil {
			if cerr := s.gateway.CancelSubscription(ctx, sub.ID); cerr != nil {
				utils.LogError(cerr, "Failed to cancel orphaned subscription "+sub.ID)
			}
		}
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrMembershipExists
		}
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}
	utils.LogInfo("Membership started", map[string]interface{}{"user_id": userID, "plan": plan.Code})
	return decorateMembership(m), nil
}

// ChangePlan switches plans immediately. credits_used is clamped to the new
// allowance and leaving Daily Access winds the pinned gyms down at the next billing date.
func (s *membershipService) ChangePlan(ctx context.Context, userID, planID int64) (*models.Membership, error) {
	plan, err := s.activePlan(planID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	m, err := activeMembershipForUpdate(tx, s.membershipRepo, userID)
	if err != nil {
		return nil, err
	}
	if m.PlanID == plan.ID {
		return nil, ErrSamePlan
	}
	if s.gateway != nil && m.StripeSubscriptionID != nil && plan.StripePriceID != nil {
		sub, err := s.gateway.ChangeSubscriptionPrice(ctx, *m.StripeSubscriptionID, *plan.StripePriceID)
		if err != nil {
			return nil, err
		}
		m.SubscriptionStatus = sub.Status
	}

	wasDailyAccess := m.IsDailyAccess()
	m.PlanID = plan.ID
	m.Plan = plan
	m.Credits = plan.Credits
	if m.CreditsUsed > m.Credits {
		m.CreditsUsed = m.Credits
	}
	if err := s.membershipRepo.UpdateMembership(tx, m); err != nil {
		return nil, fmt.Errorf("failed to change plan: %w", err)
	}
	if wasDailyAccess && !plan.IsDailyAccess {
		if err := releaseSelections(tx, s.selectedGymRepo, userID, m.NextBillingDate, false); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit plan change: %w", err)
	}
	return decorateMembership(m), nil
}

func (s *membershipService) setCancelAtPeriodEnd(ctx context.Context, userID int64, cancel bool) (*models.Membership, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	m, err := activeMembershipForUpdate(tx, s.membershipRepo, userID)
	if err != nil {
		return nil, err
	}
	if m.CancelAtPeriodEnd == cancel {
		return decorateMembership(m), nil
	}
	if s.gateway != nil && m.StripeSubscriptionID != nil {
		sub, err := s.gateway.SetCancelAtPeriodEnd(ctx, *m.StripeSubscriptionID, cancel)
		if err != nil {
			return nil, err
		}
		m.SubscriptionStatus = sub.Status
	}
	m.CancelAtPeriodEnd = cancel
	if err := s.membershipRepo.UpdateMembership(tx, m); err != nil {
		return nil, fmt.Errorf("failed to update membership: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit membership update: %w", err)
	}
	return decorateMembership(m), nil
}

// CancelMembership keeps the membership until the end of the paid period.
func (s *membershipService) CancelMembership(ctx context.Context, userID int64) (*models.Membership, error) {
	return s.setCancelAtPeriodEnd(ctx, userID, true)
}

func (s *membershipService) ResumeMembership(ctx context.Context, userID int64) (*models.Membership, error) {
	return s.setCancelAtPeriodEnd(ctx, userID, false)
}

// RenewMembership rolls the membership over every billing date up to at.
func (s *membershipService) RenewMembership(membershipID int64, at time.Time) (*models.Membership, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	m, err := s.membershipRepo.GetMembershipByIDForUpdate(tx, membershipID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNoActiveMembership
		}
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}
	for m.IsActive && !m.NextBillingDate.After(at) {
		if err := renewMembership(tx, s.membershipRepo, s.selectedGymRepo, m, s.loc); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit renewal: %w", err)
	}
	return decorateMembership(m), nil
}

// RenewDue renews memberships billed outside the payment processor.
func (s *membershipService) RenewDue(at time.Time) (int, error) {
	ids, err := s.membershipRepo.GetDueMembershipIDs(at, true)
	if err != nil {
		return 0, fmt.Errorf("failed to list due memberships: %w", err)
	}
	renewed := 0
	var firstErr error
	for _, id := range ids {
		if _, err := s.RenewMembership(id, at); err != nil {
			utils.LogWarn(err, "Membership renewal failed", map[string]interface{}{"membership_id": id})
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		renewed++
	}
	return renewed, firstErr
}
