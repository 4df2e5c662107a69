package repositories

import (
	"database/sql"
	"fmt"

	"fitpass_backend/internal/models"
)

// ReviewRepository defines the interface for club review database operations.
type ReviewRepository interface {
	UpsertReview(executor SQLExecutor, review *models.Review) (*models.Review, error)
	DeleteReview(executor SQLExecutor, userID, clubID int64) error
	GetReviewsByClub(clubID int64, page, pageSize int) ([]models.Review, int, error)
}

type reviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

// UpsertReview keeps one review per user and club.
func (r *reviewRepository) UpsertReview(executor SQLExecutor, review *models.Review) (*models.Review, error) {
	query := `INSERT INTO reviews (user_id, club_id, rating, comment, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, NOW(), NOW())
	          ON CONFLICT ON CONSTRAINT reviews_user_club_key
	          DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment, updated_at = NOW()
	          RETURNING id, created_at, updated_at`
	err := executor.QueryRow(query, review.UserID, review.ClubID, review.Rating, review.Comment).
		Scan(&review.ID, &review.CreatedAt, &review.UpdatedAt)
	if err != nil {
		return nil, classify(err, "upserting review")
	}
	return review, nil
}

func (r *reviewRepository) DeleteReview(executor SQLExecutor, userID, clubID int64) error {
	res, err := executor.Exec(`DELETE FROM reviews WHERE user_id = $1 AND club_id = $2`, userID, clubID)
	if err != nil {
		return classify(err, "deleting review")
	}
	return expectOneRow(res, "deleting review", ErrNotFound)
}

func (r *reviewRepository) GetReviewsByClub(clubID int64, page, pageSize int) ([]models.Review, int, error) {
	query, args := paginate(`SELECT rv.id, rv.user_id, rv.club_id, rv.rating, rv.comment, rv.created_at, rv.updated_at,
	                                u.first_name, COUNT(*) OVER() AS total_count
	                         FROM reviews rv JOIN users u ON u.id = rv.user_id
	                         WHERE rv.club_id = $1
	                         ORDER BY rv.created_at DESC`, []interface{}{clubID}, 2, page, pageSize)
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying reviews: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	reviews := []models.Review{}
	total := 0
	for rows.Next() {
		var rv models.Review
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.ClubID, &rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.UpdatedAt,
			&rv.ReviewerName, &total); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning review: %v", ErrDatabaseError, err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating reviews: %v", ErrDatabaseError, err)
	}
	return reviews, total, nil
}
