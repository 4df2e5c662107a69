package services

import (
	"strings"
	"testing"

	"fitpass_backend/internal/models"
	"fitpass_backend/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReviews struct {
	repositories.ReviewRepository
	saved []models.Review
}

func (f *fakeReviews) UpsertReview(_ repositories.SQLExecutor, r *models.Review) (*models.Review, error) {
	for i := range f.saved {
		if f.saved[i].UserID == r.UserID && f.saved[i].ClubID == r.ClubID {
			r.ID = f.saved[i].ID
			f.saved[i] = *r
			return r, nil
		}
	}
	r.ID = int64(len(f.saved) + 1)
	f.saved = append(f.saved, *r)
	return r, nil
}

func newReviewFixture(t *testing.T) (*reviewService, *fakeReviews, *fakeVisits) {
	db, _ := newTxMock(t)
	reviews := &fakeReviews{}
	visits := &fakeVisits{visits: []models.Visit{{ID: 1, UserID: 42, ClubID: 5, VisitedAt: testNow}}}
	clubs := &fakeClubs{clubs: map[int64]*models.Club{5: {ID: 5, IsActive: true}, 6: {ID: 6, IsActive: true}}}
	svc := NewReviewService(reviews, clubs, visits, db).(*reviewService)
	return svc, reviews, visits
}

func TestSubmitReviewAfterVisit(t *testing.T) {
	svc, reviews, _ := newReviewFixture(t)

	r, err := svc.SubmitReview(42, 5, models.ReviewPayload{Rating: 4, Comment: strPtr("  Bra gym  ")})
	require.NoError(t, err)
	assert.Equal(t, 4, r.Rating)
	require.NotNil(t, r.Comment)
	assert.Equal(t, "Bra gym", *r.Comment)

	// A second review replaces the first.
	_, err = svc.SubmitReview(42, 5, models.ReviewPayload{Rating: 2, Comment: strPtr("   ")})
	require.NoError(t, err)
	require.Len(t, reviews.saved, 1)
	assert.Equal(t, 2, reviews.saved[0].Rating)
	assert.Nil(t, reviews.saved[0].Comment)
}

func TestSubmitReviewRequiresVisit(t *testing.T) {
	svc, reviews, _ := newReviewFixture(t)

	_, err := svc.SubmitReview(42, 6, models.ReviewPayload{Rating: 5})
	assert.ErrorIs(t, err, ErrReviewNotAllowed)
	_, err = svc.SubmitReview(43, 5, models.ReviewPayload{Rating: 5})
	assert.ErrorIs(t, err, ErrReviewNotAllowed)
	assert.Empty(t, reviews.saved)
}

func TestSubmitReviewRatingBounds(t *testing.T) {
	svc, reviews, _ := newReviewFixture(t)

	for _, rating := range []int{0, -1, 6} {
		_, err := svc.SubmitReview(42, 5, models.ReviewPayload{Rating: rating})
		assert.ErrorIs(t, err, ErrReviewValidation, "rating %d", rating)
	}
	for _, rating := range []int{1, 5} {
		_, err := svc.SubmitReview(42, 5, models.ReviewPayload{Rating: rating})
		assert.NoError(t, err, "rating %d", rating)
	}
	assert.Len(t, reviews.saved, 1)
}

func TestSubmitReviewCommentLength(t *testing.T) {
	svc, _, _ := newReviewFixture(t)

	_, err := svc.SubmitReview(42, 5, models.ReviewPayload{Rating: 3, Comment: strPtr(strings.Repeat("å", maxCommentLength+1))})
	assert.ErrorIs(t, err, ErrReviewValidation)
	_, err = svc.SubmitReview(42, 5, models.ReviewPayload{Rating: 3, Comment: strPtr(strings.Repeat("å", maxCommentLength))})
	assert.NoError(t, err)
}

func TestSubmitReviewUnknownClub(t *testing.T) {
	svc, _, _ := newReviewFixture(t)

	_, err := svc.SubmitReview(42, 99, models.ReviewPayload{Rating: 3})
	assert.ErrorIs(t, err, ErrClubNotFound)
}
