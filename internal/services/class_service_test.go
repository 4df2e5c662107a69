package services

import (
	"testing"
	"time"

	"fitpass_backend/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var clubOwner = Actor{UserID: 77, Role: models.RoleClub}

type classFixture struct {
	svc         *classService
	classes     *fakeClasses
	bookings    *fakeBookings
	memberships *fakeMemberships
	mock        sqlmock.Sqlmock
}

func newClassFixture(t *testing.T) *classFixture {
	db, mock := newTxMock(t)
	owner := int64(77)
	f := &classFixture{
		classes: &fakeClasses{classes: map[int64]*models.Class{
			1: {ID: 1, ClubID: 5, Name: "Spinning", Capacity: 10, BookedSpots: 4, Credits: 2,
				StartTime: testNow.Add(24 * time.Hour), EndTime: testNow.Add(25 * time.Hour)},
		}},
		bookings: &fakeBookings{},
		memberships: &fakeMemberships{m: &models.Membership{
			ID: 3, UserID: 42, Credits: 10, CreditsUsed: 6, IsActive: true,
		}},
		mock: mock,
	}
	clubs := &fakeClubs{clubs: map[int64]*models.Club{5: {ID: 5, OwnerID: &owner, Name: "Nordic Gym", IsActive: true}}}
	f.svc = NewClassService(f.classes, clubs, f.bookings, f.memberships, db, time.UTC).(*classService)
	f.svc.now = func() time.Time { return testNow }
	t.Cleanup(func() { assert.NoError(t, mock.ExpectationsWereMet()) })
	return f
}

func classBooking(id, userID int64, credits int) *models.Booking {
	classID := int64(1)
	return &models.Booking{ID: id, UserID: userID, ClubID: 5, ClassID: &classID, Status: "confirmed", CreditsUsed: credits}
}

func intPtr(i int) *int { return &i }

func TestCreateClass(t *testing.T) {
	f := newClassFixture(t)
	payload := models.ClassPayload{
		Name:      strPtr("  Yoga "),
		StartTime: strPtr(testNow.Add(48 * time.Hour).Format(time.RFC3339)),
		EndTime:   strPtr(testNow.Add(49 * time.Hour).Format(time.RFC3339)),
		Capacity:  intPtr(12),
	}

	class, err := f.svc.CreateClass(clubOwner, 5, payload)
	require.NoError(t, err)
	assert.Equal(t, "Yoga", class.Name)
	assert.Equal(t, int64(5), class.ClubID)
	assert.Equal(t, 1, class.Credits)
	assert.Equal(t, 12, class.Capacity)
}

func TestCreateClassValidation(t *testing.T) {
	f := newClassFixture(t)
	start := testNow.Add(48 * time.Hour)

	cases := map[string]models.ClassPayload{
		"end before start": {Name: strPtr("Yoga"), Capacity: intPtr(5),
			StartTime: strPtr(start.Format(time.RFC3339)), EndTime: strPtr(start.Add(-time.Hour).Format(time.RFC3339))},
		"end equals start": {Name: strPtr("Yoga"), Capacity: intPtr(5),
			StartTime: strPtr(start.Format(time.RFC3339)), EndTime: strPtr(start.Format(time.RFC3339))},
		"zero capacity": {Name: strPtr("Yoga"), Capacity: intPtr(0),
			StartTime: strPtr(start.Format(time.RFC3339)), EndTime: strPtr(start.Add(time.Hour).Format(time.RFC3339))},
		"in the past": {Name: strPtr("Yoga"), Capacity: intPtr(5),
			StartTime: strPtr(testNow.Add(-2 * time.Hour).Format(time.RFC3339)), EndTime: strPtr(testNow.Add(-time.Hour).Format(time.RFC3339))},
		"bad time": {Name: strPtr("Yoga"), Capacity: intPtr(5),
			StartTime: strPtr("tomorrow"), EndTime: strPtr(start.Format(time.RFC3339))},
		"missing capacity": {Name: strPtr("Yoga"),
			StartTime: strPtr(start.Format(time.RFC3339)), EndTime: strPtr(start.Add(time.Hour).Format(time.RFC3339))},
	}
	for name, payload := range cases {
		_, err := f.svc.CreateClass(clubOwner, 5, payload)
		assert.ErrorIs(t, err, ErrClassValidation, name)
	}
	assert.Len(t, f.classes.classes, 1)
}

func TestCreateClassForOtherClubIsForbidden(t *testing.T) {
	f := newClassFixture(t)
	_, err := f.svc.CreateClass(Actor{UserID: 78, Role: models.RoleClub}, 5, models.ClassPayload{})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateClassCapacityBelowBooked(t *testing.T) {
	f := newClassFixture(t)
	expectTx(f.mock, false)

	_, err := f.svc.UpdateClass(clubOwner, 1, models.ClassPayload{Capacity: intPtr(3)})
	assert.ErrorIs(t, err, ErrCapacityBelowBooked)
	assert.Equal(t, 10, f.classes.classes[1].Capacity)
}

func TestUpdateClassEndBeforeStart(t *testing.T) {
	f := newClassFixture(t)
	expectTx(f.mock, false)

	end := testNow.Add(23 * time.Hour).Format(time.RFC3339)
	_, err := f.svc.UpdateClass(clubOwner, 1, models.ClassPayload{EndTime: &end})
	assert.ErrorIs(t, err, ErrClassValidation)
}

func TestUpdateClassCapacityDownToBooked(t *testing.T) {
	f := newClassFixture(t)
	expectTx(f.mock, true)

	class, err := f.svc.UpdateClass(clubOwner, 1, models.ClassPayload{Capacity: intPtr(4)})
	require.NoError(t, err)
	assert.Equal(t, 4, class.Capacity)
	assert.Equal(t, 4, class.BookedSpots)
}

func TestDeleteClassWithBookingsRefusedByDefault(t *testing.T) {
	f := newClassFixture(t)
	f.bookings.bookings = []*models.Booking{classBooking(1, 42, 2)}
	expectTx(f.mock, false)

	_, err := f.svc.DeleteClass(clubOwner, 1, false)
	assert.ErrorIs(t, err, ErrClassHasBookings)
	assert.Contains(t, f.classes.classes, int64(1))
	assert.Equal(t, "confirmed", f.bookings.bookings[0].Status)
	assert.Equal(t, 6, f.memberships.m.CreditsUsed)
}

func TestDeleteClassCancelsAndRefundsBookings(t *testing.T) {
	f := newClassFixture(t)
	cancelled := classBooking(3, 42, 1)
	cancelled.Status = "cancelled"
	f.bookings.bookings = []*models.Booking{classBooking(1, 42, 2), classBooking(2, 42, 3), cancelled}
	expectTx(f.mock, true)

	n, err := f.svc.DeleteClass(clubOwner, 1, true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NotContains(t, f.classes.classes, int64(1))
	assert.Equal(t, "cancelled", f.bookings.bookings[0].Status)
	assert.Equal(t, "cancelled", f.bookings.bookings[1].Status)
	assert.Equal(t, 1, f.memberships.m.CreditsUsed)
	assert.Equal(t, "cancelled", f.bookings.bookings[2].Status)
	assert.Nil(t, f.bookings.bookings[2].CancelledAt)
}

func TestDeleteClassWithoutBookings(t *testing.T) {
	f := newClassFixture(t)
	expectTx(f.mock, true)

	n, err := f.svc.DeleteClass(clubOwner, 1, false)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, f.classes.classes)
}

func TestDeleteClassByOtherClubIsForbidden(t *testing.T) {
	f := newClassFixture(t)
	expectTx(f.mock, false)

	_, err := f.svc.DeleteClass(Actor{UserID: 78, Role: models.RoleClub}, 1, true)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Contains(t, f.classes.classes, int64(1))
}

func TestListClassesByLocalDate(t *testing.T) {
	f := newClassFixture(t)
	stockholm, err := time.LoadLocation("Europe/Stockholm")
	require.NoError(t, err)
	f.svc.loc = stockholm

	var got models.ClassFilters
	f.svc.classRepo = &recordingClasses{fakeClasses: f.classes, filters: &got}
	date := "2025-03-11"
	_, _, err = f.svc.ListClasses(models.ClassFilters{Date: &date})
	require.NoError(t, err)
	require.NotNil(t, got.From)
	assert.True(t, got.From.Equal(time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)))
	assert.True(t, got.To.Equal(time.Date(2025, 3, 11, 23, 0, 0, 0, time.UTC)))
}

type recordingClasses struct {
	*fakeClasses
	filters *models.ClassFilters
}

func (r *recordingClasses) GetClasses(filters models.ClassFilters) ([]models.Class, int, error) {
	*r.filters = filters
	return nil, 0, nil
}
