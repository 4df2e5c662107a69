package services

import (
	"testing"
	"time"

	"fitpass_backend/internal/models"
	"fitpass_backend/internal/repositories"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nextBilling = testNow.AddDate(0, 0, 20)

func newDailyAccessFixture(t *testing.T, dailyAccess bool) (*dailyAccessService, *fakeSelectedGyms, sqlmock.Sqlmock) {
	db, mock := newTxMock(t)
	selected := &fakeSelectedGyms{}
	memberships := &fakeMemberships{m: &models.Membership{
		ID: 3, UserID: 42, Credits: 30, IsActive: true, NextBillingDate: nextBilling,
		Plan: &models.MembershipPlan{ID: 4, Credits: 30, IsDailyAccess: dailyAccess, MaxDailyAccessGyms: 3},
	}}
	clubs := &fakeClubs{clubs: map[int64]*models.Club{}}
	for id := int64(5); id <= 9; id++ {
		clubs.clubs[id] = &models.Club{ID: id, IsActive: true}
	}
	svc := NewDailyAccessService(selected, memberships, clubs, db).(*dailyAccessService)
	svc.now = func() time.Time { return testNow }
	t.Cleanup(func() { assert.NoError(t, mock.ExpectationsWereMet()) })
	return svc, selected, mock
}

func expectTx(mock sqlmock.Sqlmock, commit bool) {
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

func sel(id, clubID int64, status string, selectedAt time.Time) models.SelectedGym {
	return models.SelectedGym{ID: id, UserID: 42, ClubID: clubID, Status: status, SelectedAt: selectedAt, EffectiveFrom: selectedAt}
}

func TestAddGymFirstIsActiveLaterArePending(t *testing.T) {
	svc, selected, mock := newDailyAccessFixture(t, true)
	expectTx(mock, true)
	expectTx(mock, true)

	first, err := svc.AddGym(42, 5)
	require.NoError(t, err)
	assert.Equal(t, "active", first.Status)
	assert.Equal(t, "Aktiv", first.StatusLabel)
	assert.Equal(t, testNow, first.EffectiveFrom)

	second, err := svc.AddGym(42, 6)
	require.NoError(t, err)
	assert.Equal(t, "pending", second.Status)
	assert.Equal(t, nextBilling, second.EffectiveFrom)
	assert.Len(t, selected.rows, 2)
}

func TestAddGymRequiresDailyAccessPlan(t *testing.T) {
	svc, _, mock := newDailyAccessFixture(t, false)
	expectTx(mock, false)

	_, err := svc.AddGym(42, 5)
	assert.ErrorIs(t, err, ErrNotDailyAccessPlan)
}

func TestAddGymSlotsFull(t *testing.T) {
	svc, selected, mock := newDailyAccessFixture(t, true)
	selected.rows = []models.SelectedGym{
		sel(1, 5, "active", testNow), sel(2, 6, "pending", testNow), sel(3, 7, "pending", testNow),
	}
	expectTx(mock, false)

	_, err := svc.AddGym(42, 8)
	assert.ErrorIs(t, err, ErrMaxDailyAccessGyms)
}

func TestAddGymPendingRemovalFreesSlot(t *testing.T) {
	svc, selected, mock := newDailyAccessFixture(t, true)
	selected.rows = []models.SelectedGym{
		sel(1, 5, "pending_removal", testNow), sel(2, 6, "active", testNow), sel(3, 7, "pending", testNow),
	}
	expectTx(mock, true)

	sg, err := svc.AddGym(42, 8)
	require.NoError(t, err)
	assert.Equal(t, "pending", sg.Status)
}

func TestAddGymAlreadySelected(t *testing.T) {
	svc, selected, mock := newDailyAccessFixture(t, true)
	selected.rows = []models.SelectedGym{sel(1, 5, "active", testNow)}
	expectTx(mock, false)

	_, err := svc.AddGym(42, 5)
	assert.ErrorIs(t, err, ErrGymAlreadySelected)
}

func TestAddGymAlreadySelectedWhenSlotsFull(t *testing.T) {
	svc, selected, mock := newDailyAccessFixture(t, true)
	selected.rows = []models.SelectedGym{
		sel(1, 5, "active", testNow), sel(2, 6, "pending", testNow), sel(3, 7, "pending", testNow),
	}
	expectTx(mock, false)

	_, err := svc.AddGym(42, 6)
	assert.ErrorIs(t, err, ErrGymAlreadySelected)
}

func TestReAddPendingRemovalRevertsToActive(t *testing.T) {
	svc, selected, mock := newDailyAccessFixture(t, true)
	end := nextBilling
	row := sel(1, 5, "pending_removal", testNow)
	row.EffectiveTo = &end
	selected.rows = []models.SelectedGym{row}
	expectTx(mock, true)

	sg, err := svc.AddGym(42, 5)
	require.NoError(t, err)
	assert.Equal(t, "active", sg.Status)
	assert.Nil(t, selected.rows[0].EffectiveTo)
	assert.Len(t, selected.rows, 1)
}

func TestRemoveActiveGymWaitsForBillingDate(t *testing.T) {
	svc, selected, mock := newDailyAccessFixture(t, true)
	selected.rows = []models.SelectedGym{sel(1, 5, "active", testNow)}
	expectTx(mock, true)

	sg, err := svc.RemoveGym(42, 5)
	require.NoError(t, err)
	assert.Equal(t, "pending_removal", sg.Status)
	require.NotNil(t, sg.EffectiveTo)
	assert.Equal(t, nextBilling, *sg.EffectiveTo)
}

func TestRemovePendingRemovalConflicts(t *testing.T) {
	svc, selected, mock := newDailyAccessFixture(t, true)
	selected.rows = []models.SelectedGym{sel(1, 5, "pending_removal", testNow)}
	expectTx(mock, false)

	_, err := svc.RemoveGym(42, 5)
	assert.ErrorIs(t, err, ErrDailyAccessForbidden)
}

func TestRemoveReplacementRestoresReplacedGym(t *testing.T) {
	svc, selected, mock := newDailyAccessFixture(t, true)
	selected.rows = []models.SelectedGym{sel(1, 5, "active", testNow)}
	expectTx(mock, true)
	expectTx(mock, true)

	replacement, err := svc.ReplaceGym(42, 5, 6)
	require.NoError(t, err)
	assert.Equal(t, "pending", replacement.Status)
	require.NotNil(t, replacement.ReplacingClubID)
	assert.Equal(t, int64(5), *replacement.ReplacingClubID)
	assert.Equal(t, "pending_replacement", selected.status(5))

	_, err = svc.RemoveGym(42, 6)
	require.NoError(t, err)
	assert.Equal(t, "active", selected.status(5))
	assert.Equal(t, "removed", selected.status(6))
}

func TestUndoReplacement(t *testing.T) {
	svc, selected, mock := newDailyAccessFixture(t, true)
	selected.rows = []models.SelectedGym{sel(1, 5, "active", testNow)}
	expectTx(mock, true)
	expectTx(mock, true)

	_, err := svc.ReplaceGym(42, 5, 6)
	require.NoError(t, err)

	sg, err := svc.UndoChange(42, 5)
	require.NoError(t, err)
	assert.Equal(t, "active", sg.Status)
	assert.Equal(t, "removed", selected.status(6))
}

func TestUndoWithoutPendingChange(t *testing.T) {
	svc, selected, mock := newDailyAccessFixture(t, true)
	selected.rows = []models.SelectedGym{sel(1, 5, "active", testNow)}
	expectTx(mock, false)

	_, err := svc.UndoChange(42, 5)
	assert.ErrorIs(t, err, ErrNoPendingChange)
}

func TestReplaceRequiresActiveGym(t *testing.T) {
	svc, selected, mock := newDailyAccessFixture(t, true)
	selected.rows = []models.SelectedGym{sel(1, 5, "pending", testNow)}
	expectTx(mock, false)

	_, err := svc.ReplaceGym(42, 5, 6)
	assert.ErrorIs(t, err, ErrDailyAccessForbidden)
}

func TestOverviewSplitsCreditsOverGrantingGyms(t *testing.T) {
	svc, selected, _ := newDailyAccessFixture(t, true)
	selected.rows = []models.SelectedGym{
		sel(1, 5, "active", testNow.Add(-2*time.Hour)),
		sel(2, 6, "pending_removal", testNow.Add(-time.Hour)),
		sel(3, 7, "pending", testNow),
	}

	o, err := svc.GetOverview(42)
	require.NoError(t, err)
	assert.Equal(t, 3, o.MaxGyms)
	assert.Equal(t, 2, o.SlotsUsed)
	assert.Equal(t, nextBilling, o.NextBillingDate)
	require.Len(t, o.Gyms, 3)
	assert.Equal(t, 15, o.Gyms[0].Credits)
	assert.Equal(t, 15, o.Gyms[1].Credits)
	assert.Equal(t, 0, o.Gyms[2].Credits)
	assert.Equal(t, "Väntar på aktivering", o.Gyms[2].StatusLabel)
}

func TestApplyDueSelections(t *testing.T) {
	boundary := nextBilling
	replaced := sel(1, 5, "pending_replacement", testNow)
	replaced.EffectiveTo = &boundary
	incoming := sel(2, 6, "pending", testNow)
	incoming.EffectiveFrom = boundary
	later := sel(3, 7, "pending", testNow)
	later.EffectiveFrom = boundary.AddDate(0, 1, 0)
	selected := &fakeSelectedGyms{rows: []models.SelectedGym{replaced, incoming, later}}

	n, err := applyDueSelections(nil, selected, 42, boundary)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "removed", selected.status(5))
	assert.Equal(t, "active", selected.status(6))
	assert.Equal(t, "pending", selected.status(7))
}

func TestGetPayoutsAggregatesPerClub(t *testing.T) {
	svc, selected, _ := newDailyAccessFixture(t, true)
	row := func(userID, clubID int64, credits int, at time.Time) repositories.PayoutRow {
		return repositories.PayoutRow{UserID: userID, Credits: credits, Gym: models.SelectedGym{
			UserID: userID, ClubID: clubID, Status: "active", SelectedAt: at, ClubName: "Club",
		}}
	}
	selected.payouts = []repositories.PayoutRow{
		row(1, 5, 30, testNow), row(1, 6, 30, testNow.Add(time.Hour)),
		row(2, 5, 31, testNow), row(2, 6, 31, testNow.Add(time.Hour)), row(2, 7, 31, testNow.Add(2*time.Hour)),
	}

	items, err := svc.GetPayouts()
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, models.ClubPayoutItem{ClubID: 5, ClubName: "Club", Credits: 26, Members: 2}, items[0])
	assert.Equal(t, models.ClubPayoutItem{ClubID: 6, ClubName: "Club", Credits: 25, Members: 2}, items[1])
	assert.Equal(t, models.ClubPayoutItem{ClubID: 7, ClubName: "Club", Credits: 10, Members: 1}, items[2])
}
