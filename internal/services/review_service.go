package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"fitpass_backend/internal/models"
	"fitpass_backend/internal/repositories"
)

var (
	ErrReviewNotFound   = errors.New("review not found")
	ErrReviewValidation = errors.New("review data validation error")
	ErrReviewNotAllowed = errors.New("only members who visited the club can review it")
)

const maxCommentLength = 1000

type ReviewService interface {
	ListReviews(clubID int64, page, pageSize int) ([]models.Review, int, error)
	SubmitReview(userID, clubID int64, payload models.ReviewPayload) (*models.Review, error)
	DeleteReview(userID, clubID int64) error
}

type reviewService struct {
	reviewRepo repositories.ReviewRepository
	clubRepo   repositories.ClubRepository
	visitRepo  repositories.VisitRepository
	db         *sql.DB
}

func NewReviewService(rr repositories.ReviewRepository, cr repositories.ClubRepository, vr repositories.VisitRepository, db *sql.DB) ReviewService {
	return &reviewService{reviewRepo: rr, clubRepo: cr, visitRepo: vr, db: db}
}

func (s *reviewService) ListReviews(clubID int64, page, pageSize int) ([]models.Review, int, error) {
	page, pageSize = normalizePage(page, pageSize)
	reviews, total, err := s.reviewRepo.GetReviewsByClub(clubID, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, total, nil
}

// SubmitReview creates or replaces the user's review of a club they have visited.
func (s *reviewService) SubmitReview(userID, clubID int64, payload models.ReviewPayload) (*models.Review, error) {
	if payload.Rating < 1 || payload.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrReviewValidation)
	}
	var comment *string
	if payload.Comment != nil {
		c := strings.TrimSpace(*payload.Comment)
		if utf8.RuneCountInString(c) > maxCommentLength {
			return nil, fmt.Errorf("%w: comment must be at most %d characters", ErrReviewValidation, maxCommentLength)
		}
		if c != "" {
			comment = &c
		}
	}

	if _, err := s.clubRepo.GetClubByID(clubID, 0); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrClubNotFound
		}
		return nil, fmt.Errorf("failed to load club: %w", err)
	}
	visited, err := s.visitRepo.HasVisited(userID, clubID)
	if err != nil {
		return nil, fmt.Errorf("failed to check visits: %w", err)
	}
	if !visited {
		return nil, ErrReviewNotAllowed
	}

	review := &models.Review{UserID: userID, ClubID: clubID, Rating: payload.Rating, Comment: comment}
	saved, err := s.reviewRepo.UpsertReview(s.db, review)
	if err != nil {
		return nil, fmt.Errorf("failed to save review: %w", err)
	}
	return saved, nil
}

func (s *reviewService) DeleteReview(userID, clubID int64) error {
	if err := s.reviewRepo.DeleteReview(s.db, userID, clubID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrReviewNotFound
		}
		return fmt.Errorf("failed to delete review: %w", err)
	}
	return nil
}
