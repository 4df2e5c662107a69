package services

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"fitpass_backend/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newMembershipFixture(t *testing.T, m *models.Membership) (*membershipService, *fakeMemberships, *fakeSelectedGyms, sqlmock.Sqlmock) {
	db, mock := newTxMock(t)
	memberships := &fakeMemberships{m: m, plans: map[int64]*models.MembershipPlan{
		4: {ID: 4, Code: "daily", Credits: 30, IsDailyAccess: true, MaxDailyAccessGyms: 3, IsActive: true},
		9: {ID: 9, Code: "basic", Credits: 10, IsActive: true},
	}}
	selected := &fakeSelectedGyms{}
	svc := NewMembershipService(memberships, selected, &fakeUsers{users: map[int64]*models.User{}}, nil, db, time.UTC).(*membershipService)
	svc.now = func() time.Time { return testNow }
	t.Cleanup(func() { assert.NoError(t, mock.ExpectationsWereMet()) })
	return svc, memberships, selected, mock
}

func endOfJanuaryMembership() *models.Membership {
	return &models.Membership{
		ID: 3, UserID: 42, PlanID: 9, Credits: 20, CreditsUsed: 12, IsActive: true,
		StartDate:        time.Date(2025, 1, 31, 9, 0, 0, 0, time.UTC),
		NextBillingDate:  time.Date(2025, 2, 28, 9, 0, 0, 0, time.UTC),
		BillingAnchorDay: 31,
		Plan:             &models.MembershipPlan{ID: 9, Credits: 24},
	}
}

func TestRenewMembershipResetsCreditsAndKeepsAnchor(t *testing.T) {
	svc, memberships, selected, mock := newMembershipFixture(t, endOfJanuaryMembership())
	boundary := time.Date(2025, 2, 28, 9, 0, 0, 0, time.UTC)
	pending := sel(1, 5, "pending", testNow)
	pending.EffectiveFrom = boundary
	selected.rows = []models.SelectedGym{pending}
	expectTx(mock, true)

	m, err := svc.RenewMembership(3, boundary.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, m.CreditsUsed)
	assert.Equal(t, 24, m.Credits)
	assert.Equal(t, 24, m.CreditsRemaining)
	assert.Equal(t, boundary, m.StartDate)
	assert.Equal(t, time.Date(2025, 3, 31, 9, 0, 0, 0, time.UTC), m.NextBillingDate)
	assert.Equal(t, 1, memberships.updates)
	assert.Equal(t, "active", selected.status(5))
}

func TestRenewMembershipCatchesUpMissedCycles(t *testing.T) {
	svc, memberships, _, mock := newMembershipFixture(t, endOfJanuaryMembership())
	expectTx(mock, true)

	m, err := svc.RenewMembership(3, time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 4, 30, 9, 0, 0, 0, time.UTC), m.NextBillingDate)
	assert.Equal(t, 2, memberships.updates)
}

func TestRenewMembershipEndsCancelledMembership(t *testing.T) {
	m := endOfJanuaryMembership()
	m.CancelAtPeriodEnd = true
	svc, _, selected, mock := newMembershipFixture(t, m)
	selected.rows = []models.SelectedGym{sel(1, 5, "active", testNow), sel(2, 6, "pending_removal", testNow)}
	expectTx(mock, true)

	got, err := svc.RenewMembership(3, m.NextBillingDate)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, models.MembershipStatusInactive, got.Status)
	assert.Equal(t, "removed", selected.status(5))
	assert.Equal(t, "removed", selected.status(6))
}

func TestRenewMembershipUsesConfiguredZone(t *testing.T) {
	stockholm, err := time.LoadLocation("Europe/Stockholm")
	require.NoError(t, err)
	start := time.Date(2026, 2, 1, 0, 30, 0, 0, stockholm)
	boundary := time.Date(2026, 3, 1, 0, 30, 0, 0, stockholm)
	// the driver hands timestamptz back in the session zone
	m := &models.Membership{
		ID: 3, UserID: 42, PlanID: 9, Credits: 10, CreditsUsed: 4, IsActive: true,
		StartDate:        start.UTC(),
		NextBillingDate:  boundary.UTC(),
		BillingAnchorDay: 1,
		Plan:             &models.MembershipPlan{ID: 9, Credits: 10},
	}
	svc, memberships, _, mock := newMembershipFixture(t, m)
	svc.loc = stockholm
	expectTx(mock, true)

	got, err := svc.RenewMembership(3, boundary.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, got.StartDate.Equal(boundary), "start %s", got.StartDate)
	assert.True(t, got.NextBillingDate.Equal(time.Date(2026, 4, 1, 0, 30, 0, 0, stockholm)), "next %s", got.NextBillingDate)
	assert.Equal(t, 1, memberships.updates)
}

func TestRenewMembershipMissingAnchorUsesLocalStartDay(t *testing.T) {
	stockholm, err := time.LoadLocation("Europe/Stockholm")
	require.NoError(t, err)
	m := &models.Membership{
		ID: 3, UserID: 42, PlanID: 9, Credits: 10, IsActive: true,
		StartDate:       time.Date(2026, 2, 1, 0, 30, 0, 0, stockholm).UTC(),
		NextBillingDate: time.Date(2026, 3, 1, 0, 30, 0, 0, stockholm).UTC(),
		Plan:            &models.MembershipPlan{ID: 9, Credits: 10},
	}
	svc, _, _, mock := newMembershipFixture(t, m)
	svc.loc = stockholm
	expectTx(mock, true)

	got, err := svc.RenewMembership(3, time.Date(2026, 3, 1, 1, 0, 0, 0, stockholm))
	require.NoError(t, err)
	local := got.NextBillingDate.In(stockholm)
	assert.Equal(t, time.April, local.Month())
	assert.Equal(t, 1, local.Day())
}

func TestChangePlanLeavingDailyAccess(t *testing.T) {
	m := &models.Membership{
		ID: 3, UserID: 42, PlanID: 4, Credits: 30, CreditsUsed: 14, IsActive: true,
		NextBillingDate: nextBilling, Plan: &models.MembershipPlan{ID: 4, Credits: 30, IsDailyAccess: true},
	}
	svc, _, selected, mock := newMembershipFixture(t, m)
	selected.rows = []models.SelectedGym{sel(1, 5, "active", testNow), sel(2, 6, "pending", testNow)}
	expectTx(mock, true)

	got, err := svc.ChangePlan(context.Background(), 42, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.PlanID)
	assert.Equal(t, 10, got.Credits)
	assert.Equal(t, 10, got.CreditsUsed)
	assert.Equal(t, 0, got.CreditsRemaining)
	assert.Equal(t, "pending_removal", selected.status(5))
	assert.Equal(t, "removed", selected.status(6))
	require.NotNil(t, selected.rows[0].EffectiveTo)
	assert.Equal(t, nextBilling, *selected.rows[0].EffectiveTo)
}

func TestChangePlanToSamePlan(t *testing.T) {
	svc, _, _, mock := newMembershipFixture(t, endOfJanuaryMembership())
	expectTx(mock, false)

	_, err := svc.ChangePlan(context.Background(), 42, 9)
	assert.ErrorIs(t, err, ErrSamePlan)
}

func TestChangePlanUnknownPlan(t *testing.T) {
	svc, _, _, _ := newMembershipFixture(t, endOfJanuaryMembership())

	_, err := svc.ChangePlan(context.Background(), 42, 77)
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestStartMembershipRejectsSecondMembership(t *testing.T) {
	svc, _, _, _ := newMembershipFixture(t, endOfJanuaryMembership())

	_, err := svc.StartMembership(context.Background(), 42, 4)
	assert.ErrorIs(t, err, ErrMembershipExists)
}

func TestStartMembershipNeedsDefaultPaymentMethod(t *testing.T) {
	svc, memberships, _, _ := newMembershipFixture(t, nil)
	memberships.plans[4].StripePriceID = strPtr("price_daily")
	svc.userRepo = &fakeUsers{users: map[int64]*models.User{42: {ID: 42, StripeCustomerID: strPtr("cus_1")}}}
	svc.gateway = &fakeGateway{}

	_, err := svc.StartMembership(context.Background(), 42, 4)
	assert.ErrorIs(t, err, ErrPaymentMethodRequired)
}

func TestCancelAndResumeMembership(t *testing.T) {
	m := endOfJanuaryMembership()
	m.StripeSubscriptionID = strPtr("sub_1")
	svc, _, _, mock := newMembershipFixture(t, m)
	gw := &fakeGateway{}
	svc.gateway = gw
	expectTx(mock, true)
	expectTx(mock, true)

	got, err := svc.CancelMembership(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, got.CancelAtPeriodEnd)
	assert.Equal(t, models.MembershipStatusCancelling, got.Status)

	got, err = svc.ResumeMembership(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, got.CancelAtPeriodEnd)
	assert.Equal(t, models.MembershipStatusActive, got.Status)
	assert.Equal(t, []bool{true, false}, gw.cancelRequests)
}
