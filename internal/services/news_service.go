package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fitpass_backend/internal/models"
	"fitpass_backend/internal/repositories"
	"fitpass_backend/pkg/utils"
)

var (
	ErrNewsNotFound   = errors.New("news item not found")
	ErrNewsValidation = errors.New("news data validation error")
)

type NewsService interface {
	ListNews(filters models.NewsFilters) ([]models.News, error)
	GetNews(id int64) (*models.News, error)
	CreateNews(actor Actor, payload models.NewsPayload) (*models.News, error)
	ExpireNews(at time.Time) (int64, error)
}

type newsService struct {
	newsRepo repositories.NewsRepository
	clubRepo repositories.ClubRepository
	db       *sql.DB
	now      func() time.Time
}

func NewNewsService(nr repositories.NewsRepository, cr repositories.ClubRepository, db *sql.DB) NewsService {
	return &newsService{newsRepo: nr, clubRepo: cr, db: db, now: time.Now}
}

func (s *newsService) ListNews(filters models.NewsFilters) ([]models.News, error) {
	_, filters.Limit = normalizePage(1, filters.Limit)
	items, err := s.newsRepo.GetPublishedNews(filters, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list news: %w", err)
	}
	return items, nil
}

// GetNews returns a published item. Drafts and expired items are not found.
func (s *newsService) GetNews(id int64) (*models.News, error) {
	n, err := s.newsRepo.GetNewsByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNewsNotFound
		}
		return nil, fmt.Errorf("failed to get news: %w", err)
	}
	now := s.now()
	if n.Status != models.NewsStatusActive || n.PublishedAt.After(now) || (n.ExpiresAt != nil && !n.ExpiresAt.After(now)) {
		return nil, ErrNewsNotFound
	}
	return n, nil
}

// CreateNews publishes an item. Admins may post globally or for any club;
// club users only for clubs they own.
func (s *newsService) CreateNews(actor Actor, payload models.NewsPayload) (*models.News, error) {
	if utils.IsEmpty(payload.Title) {
		return nil, fmt.Errorf("%w: title is required", ErrNewsValidation)
	}
	if !models.IsValidNewsType(payload.Type) {
		return nil, fmt.Errorf("%w: unknown type '%s'", ErrNewsValidation, payload.Type)
	}

	if payload.ClubID == nil {
		if !actor.IsAdmin() {
			return nil, ErrForbidden
		}
	} else {
		club, err := s.clubRepo.GetClubByID(*payload.ClubID, 0)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, ErrClubNotFound
			}
			return nil, fmt.Errorf("failed to load club: %w", err)
		}
		if !canManageClub(actor, club) {
			return nil, ErrForbidden
		}
	}

	now := s.now()
	news := &models.News{
		ClubID:      payload.ClubID,
		Title:       strings.TrimSpace(payload.Title),
		Description: payload.Description,
		Content:     payload.Content,
		Type:        payload.Type,
		ImageURL:    payload.ImageURL,
		ActionText:  payload.ActionText,
		Priority:    payload.Priority,
		Status:      models.NewsStatusActive,
		PublishedAt: now,
		ExpiresAt:   payload.ExpiresAt,
	}
	if payload.Status != nil {
		if *payload.Status != models.NewsStatusActive && *payload.Status != models.NewsStatusDraft {
			return nil, fmt.Errorf("%w: status must be active or draft", ErrNewsValidation)
		}
		news.Status = *payload.Status
	}
	if payload.PublishedAt != nil {
		news.PublishedAt = *payload.PublishedAt
	}
	if news.ExpiresAt != nil && !news.ExpiresAt.After(news.PublishedAt) {
		return nil, fmt.Errorf("%w: expires_at must be after published_at", ErrNewsValidation)
	}

	if _, err := s.newsRepo.CreateNews(s.db, news); err != nil {
		return nil, fmt.Errorf("failed to create news: %w", err)
	}
	return news, nil
}

func (s *newsService) ExpireNews(at time.Time) (int64, error) {
	n, err := s.newsRepo.ExpireNews(s.db, at)
	if err != nil {
		return 0, fmt.Errorf("failed to expire news: %w", err)
	}
	return n, nil
}
