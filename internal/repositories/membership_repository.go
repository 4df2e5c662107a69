package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fitpass_backend/internal/models"

	"github.com/lib/pq"
)

// MembershipRepository defines the interface for plan catalogue and membership database operations.
type MembershipRepository interface {
	// MembershipPlan methods
	UpsertPlan(executor SQLExecutor, plan *models.MembershipPlan) (int64, error)
	DeactivatePlansNotIn(executor SQLExecutor, codes []string) (int64, error)
	GetPlans(activeOnly bool) ([]models.MembershipPlan, error)
	GetPlanByID(id int64) (*models.MembershipPlan, error)

	// Membership methods
	CreateMembership(executor SQLExecutor, m *models.Membership) (int64, error)
	GetActiveMembership(userID int64) (*models.Membership, error) // joins plan
	GetActiveMembershipForUpdate(executor SQLExecutor, userID int64) (*models.Membership, error)
	GetMembershipBySubscriptionForUpdate(executor SQLExecutor, subscriptionID string) (*models.Membership, error)
	UpdateMembership(executor SQLExecutor, m *models.Membership) error
	AddCreditsUsed(executor SQLExecutor, membershipID int64, delta int) (int, error) // Returns new credits_used
	GetDueMembershipIDs(at time.Time, withoutSubscription bool) ([]int64, error)
	GetMembershipByIDForUpdate(executor SQLExecutor, id int64) (*models.Membership, error)
}

type membershipRepository struct {
	db *sql.DB
}

// NewMembershipRepository creates a new instance of MembershipRepository.
func NewMembershipRepository(db *sql.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

// --- MembershipPlan Methods ---

const planColumns = `p.id, p.code, p.title, p.description, p.price, p.credits, p.is_daily_access, p.max_daily_access_gyms,
	p.stripe_price_id, p.features, p.sort_order, p.is_active, p.created_at, p.updated_at`

func planDest(p *models.MembershipPlan) []interface{} {
	return []interface{}{
		&p.ID, &p.Code, &p.Title, &p.Description, &p.Price, &p.Credits, &p.IsDailyAccess, &p.MaxDailyAccessGyms,
		&p.StripePriceID, pq.Array(&p.Features), &p.SortOrder, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	}
}

// UpsertPlan inserts or updates the plan identified by its code.
func (r *membershipRepository) UpsertPlan(executor SQLExecutor, plan *models.MembershipPlan) (int64, error) {
	query := `INSERT INTO membership_plans (code, title, description, price, credits, is_daily_access, max_daily_access_gyms,
	                                        stripe_price_id, features, sort_order, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE, NOW(), NOW())
	          ON CONFLICT (code) DO UPDATE SET
	            title = EXCLUDED.title, description = EXCLUDED.description, price = EXCLUDED.price,
	            credits = EXCLUDED.credits, is_daily_access = EXCLUDED.is_daily_access,
	            max_daily_access_gyms = EXCLUDED.max_daily_access_gyms, stripe_price_id = EXCLUDED.stripe_price_id,
	            features = EXCLUDED.features, sort_order = EXCLUDED.sort_order, is_active = TRUE, updated_at = NOW()
	          RETURNING id`
	features := plan.Features
	if features == nil {
		features = []string{}
	}
	err := executor.QueryRow(query,
		plan.Code, plan.Title, plan.Description, plan.Price, plan.Credits, plan.IsDailyAccess, plan.MaxDailyAccessGyms,
		plan.StripePriceID, pq.Array(features), plan.SortOrder,
	).Scan(&plan.ID)
	if err != nil {
		return 0, classify(err, fmt.Sprintf("upserting plan %s", plan.Code))
	}
	plan.IsActive = true
	return plan.ID, nil
}

// DeactivatePlansNotIn hides plans that left the catalogue. Existing memberships keep their plan row.
func (r *membershipRepository) DeactivatePlansNotIn(executor SQLExecutor, codes []string) (int64, error) {
	res, err := executor.Exec(`UPDATE membership_plans SET is_active = FALSE, updated_at = NOW()
	                           WHERE is_active AND NOT (code = ANY($1))`, pq.Array(codes))
	if err != nil {
		return 0, classify(err, "deactivating plans")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *membershipRepository) GetPlans(activeOnly bool) ([]models.MembershipPlan, error) {
	query := `SELECT ` + planColumns + ` FROM membership_plans p`
	if activeOnly {
		query += ` WHERE p.is_active`
	}
	query += ` ORDER BY p.sort_order ASC, p.price ASC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("%w: querying plans: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	plans := []models.MembershipPlan{}
	for rows.Next() {
		var p models.MembershipPlan
		if err := rows.Scan(planDest(&p)...); err != nil {
			return nil, fmt.Errorf("%w: scanning plan: %v", ErrDatabaseError, err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating plans: %v", ErrDatabaseError, err)
	}
	return plans, nil
}

func (r *membershipRepository) GetPlanByID(id int64) (*models.MembershipPlan, error) {
	var p models.MembershipPlan
	if err := r.db.QueryRow(`SELECT `+planColumns+` FROM membership_plans p WHERE p.id = $1`, id).Scan(planDest(&p)...); err != nil {
		return nil, classify(err, fmt.Sprintf("getting plan %d", id))
	}
	return &p, nil
}

// --- Membership Methods ---

const membershipColumns = `m.id, m.user_id, m.plan_id, m.credits, m.credits_used, m.is_active, m.start_date,
	m.next_billing_date, m.billing_anchor_day, m.stripe_subscription_id, m.subscription_status,
	m.cancel_at_period_end, m.created_at, m.updated_at`

func scanMembership(row scanner) (*models.Membership, error) {
	var m models.Membership
	var p models.MembershipPlan
	dest := []interface{}{
		&m.ID, &m.UserID, &m.PlanID, &m.Credits, &m.CreditsUsed, &m.IsActive, &m.StartDate,
		&m.NextBillingDate, &m.BillingAnchorDay, &m.StripeSubscriptionID, &m.SubscriptionStatus,
		&m.CancelAtPeriodEnd, &m.CreatedAt, &m.UpdatedAt,
	}
	dest = append(dest, planDest(&p)...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	m.Plan = &p
	return &m, nil
}

const membershipFrom = ` FROM memberships m JOIN membership_plans p ON p.id = m.plan_id`

// CreateMembership inserts an active membership. A second active membership for the user is a duplicate key.
func (r *membershipRepository) CreateMembership(executor SQLExecutor, m *models.Membership) (int64, error) {
	query := `INSERT INTO memberships (user_id, plan_id, credits, credits_used, is_active, start_date, next_billing_date,
	                                   billing_anchor_day, stripe_subscription_id, subscription_status, cancel_at_period_end,
	                                   created_at, updated_at)
	          VALUES ($1, $2, $3, $4, TRUE, $5, $6, $7, $8, $9, FALSE, $10, $10)
	          RETURNING id`
	currentTime := time.Now()
	if m.SubscriptionStatus == "" {
		m.SubscriptionStatus = "active"
	}
	err := executor.QueryRow(query,
		m.UserID, m.PlanID, m.Credits, m.CreditsUsed, m.StartDate, m.NextBillingDate,
		m.BillingAnchorDay, m.StripeSubscriptionID, m.SubscriptionStatus, currentTime,
	).Scan(&m.ID)
	if err != nil {
		return 0, classify(err, "creating membership")
	}
	m.IsActive = true
	m.CreatedAt = currentTime
	m.UpdatedAt = currentTime
	return m.ID, nil
}

func (r *membershipRepository) GetActiveMembership(userID int64) (*models.Membership, error) {
	m, err := scanMembership(r.db.QueryRow(`SELECT `+membershipColumns+`, `+planColumns+membershipFrom+
		` WHERE m.user_id = $1 AND m.is_active`, userID))
	if err != nil {
		return nil, classify(err, "getting active membership")
	}
	return m, nil
}

func (r *membershipRepository) GetActiveMembershipForUpdate(executor SQLExecutor, userID int64) (*models.Membership, error) {
	m, err := scanMembership(executor.QueryRow(`SELECT `+membershipColumns+`, `+planColumns+membershipFrom+
		` WHERE m.user_id = $1 AND m.is_active FOR UPDATE OF m`, userID))
	if err != nil {
		return nil, classify(err, "locking active membership")
	}
	return m, nil
}

func (r *membershipRepository) GetMembershipBySubscriptionForUpdate(executor SQLExecutor, subscriptionID string) (*models.Membership, error) {
	m, err := scanMembership(executor.QueryRow(`SELECT `+membershipColumns+`, `+planColumns+membershipFrom+
		` WHERE m.stripe_subscription_id = $1 ORDER BY m.is_active DESC, m.id DESC LIMIT 1 FOR UPDATE OF m`, subscriptionID))
	if err != nil {
		return nil, classify(err, "locking membership by subscription")
	}
	return m, nil
}

func (r *membershipRepository) GetMembershipByIDForUpdate(executor SQLExecutor, id int64) (*models.Membership, error) {
	m, err := scanMembership(executor.QueryRow(`SELECT `+membershipColumns+`, `+planColumns+membershipFrom+
		` WHERE m.id = $1 FOR UPDATE OF m`, id))
	if err != nil {
		return nil, classify(err, fmt.Sprintf("locking membership %d", id))
	}
	return m, nil
}

func (r *membershipRepository) UpdateMembership(executor SQLExecutor, m *models.Membership) error {
	query := `UPDATE memberships SET plan_id = $1, credits = $2, credits_used = $3, is_active = $4, start_date = $5,
	                 next_billing_date = $6, billing_anchor_day = $7, stripe_subscription_id = $8,
	                 subscription_status = $9, cancel_at_period_end = $10, updated_at = $11
	          WHERE id = $12`
	m.UpdatedAt = time.Now()
	res, err := executor.Exec(query,
		m.PlanID, m.Credits, m.CreditsUsed, m.IsActive, m.StartDate,
		m.NextBillingDate, m.BillingAnchorDay, m.StripeSubscriptionID,
		m.SubscriptionStatus, m.CancelAtPeriodEnd, m.UpdatedAt, m.ID,
	)
	if err != nil {
		return classify(err, "updating membership")
	}
	return expectOneRow(res, "updating membership", ErrNotFound)
}

// AddCreditsUsed moves credits_used by delta and refuses to leave [0, credits].
func (r *membershipRepository) AddCreditsUsed(executor SQLExecutor, membershipID int64, delta int) (int, error) {
	var used int
	err := executor.QueryRow(`UPDATE memberships SET credits_used = credits_used + $2, updated_at = NOW()
	                          WHERE id = $1 AND is_active AND credits_used + $2 BETWEEN 0 AND credits
	                          RETURNING credits_used`, membershipID, delta).Scan(&used)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: membership %d cannot move credits_used by %d", ErrCheckViolation, membershipID, delta)
		}
		return 0, classify(err, "updating credits used")
	}
	return used, nil
}

// GetDueMembershipIDs lists active memberships whose billing date has passed.
func (r *membershipRepository) GetDueMembershipIDs(at time.Time, withoutSubscription bool) ([]int64, error) {
	query := `SELECT id FROM memberships WHERE is_active AND next_billing_date <= $1`
	if withoutSubscription {
		query += ` AND stripe_subscription_id IS NULL`
	}
	query += ` ORDER BY next_billing_date ASC`
	rows, err := r.db.Query(query, at)
	if err != nil {
		return nil, fmt.Errorf("%w: querying due memberships: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scanning membership id: %v", ErrDatabaseError, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating due memberships: %v", ErrDatabaseError, err)
	}
	return ids, nil
}
