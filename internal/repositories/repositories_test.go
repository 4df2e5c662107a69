package repositories

import (
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"fitpass_backend/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, classify(sql.ErrNoRows, "op"), ErrNotFound)
	assert.ErrorIs(t, classify(&pq.Error{Code: "23505"}, "op"), ErrDuplicateKey)
	assert.ErrorIs(t, classify(&pq.Error{Code: "23514"}, "op"), ErrCheckViolation)
	assert.ErrorIs(t, classify(&pq.Error{Code: "23503"}, "op"), ErrForeignKey)
	assert.ErrorIs(t, classify(errors.New("boom"), "op"), ErrDatabaseError)
}

func TestPaginate(t *testing.T) {
	q, args := paginate("SELECT 1", []interface{}{"a"}, 2, 3, 10)
	assert.Equal(t, "SELECT 1 LIMIT $2 OFFSET $3", q)
	assert.Equal(t, []interface{}{"a", 10, 20}, args)

	q, args = paginate("SELECT 1", nil, 1, 1, 0)
	assert.Equal(t, "SELECT 1", q)
	assert.Empty(t, args)
}

func TestCreateUserLowercasesEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("anna@example.se", "hash", "Anna", "Berg", nil, nil, nil, nil, nil, nil, models.RoleUser, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	u := &models.User{Email: "  Anna@Example.SE ", FirstName: "Anna", LastName: "Berg"}
	id, err := repo.CreateUser(db, u, "hash")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, "anna@example.se", u.Email)
	assert.True(t, u.IsActive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	_, err := repo.CreateUser(db, &models.User{Email: "a@b.se"}, "hash")
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestFindUserByEmailNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery("FROM users WHERE email = \\$1").
		WithArgs("nobody@example.se").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindUserByEmail("Nobody@example.se")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdjustBookedSpotsFull(t *testing.T) {
	db, mock := newMock(t)
	repo := NewClassRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE classes SET booked_spots = booked_spots + $2")).
		WithArgs(int64(3), 1).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.AdjustBookedSpots(db, 3, 1)
	assert.ErrorIs(t, err, ErrCheckViolation)
}

func TestAddCreditsUsed(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMembershipRepository(db)

	mock.ExpectQuery("UPDATE memberships SET credits_used").
		WithArgs(int64(5), 2).
		WillReturnRows(sqlmock.NewRows([]string{"credits_used"}).AddRow(6))
	used, err := repo.AddCreditsUsed(db, 5, 2)
	require.NoError(t, err)
	assert.Equal(t, 6, used)

	mock.ExpectQuery("UPDATE memberships SET credits_used").
		WithArgs(int64(5), 10).
		WillReturnError(sql.ErrNoRows)
	_, err = repo.AddCreditsUsed(db, 5, 10)
	assert.ErrorIs(t, err, ErrCheckViolation)
	require.NoError(t, mock.ExpectationsWereMet())
}

var selectedGymCols = []string{"id", "user_id", "club_id", "membership_id", "status", "selected_at", "effective_from",
	"effective_to", "replacing_club_id", "created_at", "updated_at", "name"}

func TestGetSelectionsExcludesRemoved(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSelectedGymRepository(db)
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("AND s.status <> 'removed' ORDER BY s.selected_at ASC")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(selectedGymCols).
			AddRow(1, 1, 10, nil, "active", now, now, nil, nil, now, now, "Nordic Gym").
			AddRow(2, 1, 11, nil, "pending", now, now.AddDate(0, 1, 0), nil, nil, now, now, "Studio Puls"))

	sels, err := repo.GetSelections(db, 1, false)
	require.NoError(t, err)
	require.Len(t, sels, 2)
	assert.Equal(t, "Nordic Gym", sels[0].ClubName)
	assert.Equal(t, "pending", sels[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSelectionDuplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSelectedGymRepository(db)

	mock.ExpectQuery("INSERT INTO user_selected_gyms").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "user_selected_gyms_live_idx"})

	_, err := repo.CreateSelection(db, &models.SelectedGym{UserID: 1, ClubID: 10, Status: "pending"})
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestUpdateSelectionMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSelectedGymRepository(db)

	mock.ExpectExec("UPDATE user_selected_gyms SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateSelection(db, &models.SelectedGym{ID: 99, Status: "removed"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordPaymentIdempotent(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPaymentRepository(db)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO payments").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, now))
	mock.ExpectQuery("INSERT INTO payments").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}))

	p := &models.Payment{UserID: 1, InvoiceID: "in_1", Amount: 29900, Currency: "sek", Status: models.PaymentStatusSucceeded}
	created, err := repo.RecordPayment(db, p)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(1), p.ID)

	created, err = repo.RecordPayment(db, p)
	require.NoError(t, err)
	assert.False(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReviewsByClubPaginates(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReviewRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("LIMIT $2 OFFSET $3")).
		WithArgs(int64(4), 10, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "club_id", "rating", "comment", "created_at", "updated_at", "first_name", "total_count"}).
			AddRow(1, 2, 4, 5, "Toppen", now, now, "Erik", 11))

	reviews, total, err := repo.GetReviewsByClub(4, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	require.Len(t, reviews, 1)
	assert.Equal(t, "Erik", reviews[0].ReviewerName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpireNews(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNewsRepository(db)
	now := time.Now()

	mock.ExpectExec("UPDATE news SET status = 'expired'").
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.ExpireNews(db, now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestDeleteClassKeepsRow(t *testing.T) {
	db, mock := newMock(t)
	repo := NewClassRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE classes SET deleted_at = NOW()")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.DeleteClass(db, 3))

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND deleted_at IS NULL")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.DeleteClass(db, 3), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetClassByIDSkipsDeleted(t *testing.T) {
	db, mock := newMock(t)
	repo := NewClassRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE cl.id = $1 AND cl.deleted_at IS NULL")).
		WithArgs(int64(3)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetClassByID(3)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

var newsCols = []string{"id", "club_id", "title", "description", "content", "type", "image_url", "action_text", "priority",
	"status", "published_at", "expires_at", "created_at", "updated_at", "name"}

func TestGetPublishedNewsHidesDraftsScheduledAndExpired(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNewsRepository(db)
	now := time.Now()
	club := int64(5)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE n.status = 'active' AND n.published_at <= $1 AND (n.expires_at IS NULL OR n.expires_at > $1)") +
		".*" + regexp.QuoteMeta("(n.club_id = $2 OR n.club_id IS NULL) ORDER BY n.priority DESC, n.published_at DESC LIMIT $3")).
		WithArgs(now, club, 20).
		WillReturnRows(sqlmock.NewRows(newsCols).
			AddRow(1, nil, "Ny klass", nil, nil, "new_class", nil, nil, 2, "active", now, nil, now, now, nil))

	items, err := repo.GetPublishedNews(models.NewsFilters{ClubID: &club, Limit: 20}, now)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].ClubID)
	require.NoError(t, mock.ExpectationsWereMet())
}

var clubCols = []string{"id", "owner_id", "name", "type", "description", "address", "city", "postal_code", "latitude", "longitude",
	"credits", "open_hours", "image_url", "is_active", "created_at", "updated_at",
	"rating", "review_count", "upcoming_classes", "is_favorite", "distance_km", "total_count"}

func TestGetClubsOrdersByDistance(t *testing.T) {
	db, mock := newMock(t)
	repo := NewClubRepository(db)
	now := time.Now()
	lat, lng, radius := 59.33, 18.06, 10.0
	search := "gym"

	mock.ExpectQuery(regexp.QuoteMeta("AS distance_km FROM clubs c") + ".*" +
		regexp.QuoteMeta("WHERE name ILIKE $4 AND distance_km <= $5 ORDER BY distance_km ASC NULLS LAST, name ASC LIMIT $6")).
		WithArgs(int64(42), lat, lng, "%gym%", radius, 20).
		WillReturnRows(sqlmock.NewRows(clubCols).
			AddRow(5, nil, "Nordic Gym", "gym", nil, nil, "Stockholm", nil, 59.331, 18.061, 2, nil, nil, true, now, now, 4.5, 2, 1, true, 0.12, 2).
			AddRow(6, nil, "Gym Syd", "gym", nil, nil, "Stockholm", nil, 59.30, 18.07, 1, nil, nil, true, now, now, 0.0, 0, 0, false, 3.4, 2))

	clubs, total, err := repo.GetClubs(models.ClubFilters{
		Search: &search, Latitude: &lat, Longitude: &lng, RadiusKm: &radius, Page: 1, PageSize: 20,
	}, 42)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, clubs, 2)
	require.NotNil(t, clubs[0].DistanceKm)
	assert.Equal(t, 0.12, *clubs[0].DistanceKm)
	assert.True(t, clubs[0].IsFavorite)
	assert.Equal(t, 4.5, clubs[0].Rating)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetClubsWithoutCoordinatesOrdersByName(t *testing.T) {
	db, mock := newMock(t)
	repo := NewClubRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("NULL::float8 AS distance_km") + ".*" + regexp.QuoteMeta("ORDER BY name ASC LIMIT $2 OFFSET $3")).
		WithArgs(int64(0), 20, 20).
		WillReturnRows(sqlmock.NewRows(clubCols))

	clubs, total, err := repo.GetClubs(models.ClubFilters{Page: 2, PageSize: 20}, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, clubs)
	require.NoError(t, mock.ExpectationsWereMet())
}
