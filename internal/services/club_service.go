package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"fitpass_backend/internal/models"
	"fitpass_backend/internal/repositories"
	"fitpass_backend/pkg/utils"
)

var (
	ErrClubValidation   = errors.New("club data validation error")
	ErrFavoriteNotFound = errors.New("club is not a favorite")
)

const defaultRadiusKm = 25.0

// ClubService handles club browsing, club administration and favourites.
type ClubService interface {
	ListClubs(filters models.ClubFilters, viewerID int64) ([]models.Club, int, error)
	GetClub(id, viewerID int64) (*models.Club, error)
	CreateClub(ctx context.Context, payload models.ClubPayload) (*models.Club, error)
	UpdateClub(ctx context.Context, actor Actor, id int64, payload models.ClubPayload) (*models.Club, error)
	AddFavorite(userID, clubID int64) error
	RemoveFavorite(userID, clubID int64) error
	GetFavorites(userID int64) ([]models.Favorite, error)
}

type clubService struct {
	clubRepo     repositories.ClubRepository
	favoriteRepo repositories.FavoriteRepository
	db           *sql.DB
	geocoder     AddressGeocoder
}

func NewClubService(cr repositories.ClubRepository, fr repositories.FavoriteRepository, db *sql.DB, geocoder AddressGeocoder) ClubService {
	return &clubService{clubRepo: cr, favoriteRepo: fr, db: db, geocoder: geocoder}
}

func (s *clubService) ListClubs(filters models.ClubFilters, viewerID int64) ([]models.Club, int, error) {
	filters.Page, filters.PageSize = normalizePage(filters.Page, filters.PageSize)
	if (filters.Latitude == nil) != (filters.Longitude == nil) {
		return nil, 0, fmt.Errorf("%w: lat and lng must be given together", ErrClubValidation)
	}
	if filters.Latitude != nil && filters.RadiusKm == nil {
		r := defaultRadiusKm
		filters.RadiusKm = &r
	}
	if filters.Search != nil {
		filters.Search = utils.NewNullString(*filters.Search)
	}
	clubs, total, err := s.clubRepo.GetClubs(filters, viewerID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list clubs: %w", err)
	}
	return clubs, total, nil
}

func (s *clubService) GetClub(id, viewerID int64) (*models.Club, error) {
	club, err := s.clubRepo.GetClubByID(id, viewerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrClubNotFound
		}
		return nil, fmt.Errorf("failed to get club: %w", err)
	}
	return club, nil
}

// applyClubPayload copies the non-nil fields and reports whether the address moved.
func applyClubPayload(club *models.Club, p models.ClubPayload) (bool, error) {
	addressChanged := false
	if p.OwnerID != nil {
		club.OwnerID = p.OwnerID
	}
	if p.Name != nil {
		if utils.IsEmpty(*p.Name) {
			return false, fmt.Errorf("%w: name cannot be empty", ErrClubValidation)
		}
		club.Name = strings.TrimSpace(*p.Name)
	}
	if p.Type != nil {
		club.Type = strings.TrimSpace(*p.Type)
	}
	if p.Description != nil {
		club.Description = utils.NewNullString(*p.Description)
	}
	if p.Address != nil {
		club.Address = utils.NewNullString(*p.Address)
		addressChanged = true
	}
	if p.City != nil {
		club.City = utils.NewNullString(*p.City)
		addressChanged = true
	}
	if p.PostalCode != nil {
		pc := utils.NewNullString(*p.PostalCode)
		if pc != nil {
			if !utils.IsValidPostalCode(*pc) {
				return false, fmt.Errorf("%w: postal code must be in the format NNN NN", ErrClubValidation)
			}
			normalized := utils.NormalizePostalCode(*pc)
			pc = &normalized
		}
		club.PostalCode = pc
		addressChanged = true
	}
	if p.Credits != nil {
		if *p.Credits < 0 {
			return false, fmt.Errorf("%w: credits cannot be negative", ErrClubValidation)
		}
		club.Credits = *p.Credits
	}
	if p.OpenHours != nil {
		club.OpenHours = utils.NewNullString(*p.OpenHours)
	}
	if p.ImageURL != nil {
		club.ImageURL = utils.NewNullString(*p.ImageURL)
	}
	if p.IsActive != nil {
		club.IsActive = *p.IsActive
	}
	return addressChanged, nil
}

func (s *clubService) geocodeClub(ctx context.Context, club *models.Club) {
	club.Latitude, club.Longitude = nil, nil
	if s.geocoder == nil || club.Address == nil {
		return
	}
	parts := []string{*club.Address}
	if club.PostalCode != nil || club.City != nil {
		parts = append(parts, strings.TrimSpace(utils.StrValue(club.PostalCode)+" "+utils.StrValue(club.City)))
	}
	ctx, cancel := context.WithTimeout(ctx, geocodeTimeout)
	defer cancel()
	place, err := s.geocoder.Geocode(ctx, strings.Join(parts, ", "))
	if err != nil {
		utils.LogWarn(err, "Geocoding club address failed", map[string]interface{}{"club_id": club.ID})
		return
	}
	club.Latitude = &place.Latitude
	club.Longitude = &place.Longitude
}

func (s *clubService) CreateClub(ctx context.Context, payload models.ClubPayload) (*models.Club, error) {
	if payload.Name == nil {
		return nil, fmt.Errorf("%w: name is required", ErrClubValidation)
	}
	club := &models.Club{Type: "gym", Credits: 1, IsActive: true}
	addressChanged, err := applyClubPayload(club, payload)
	if err != nil {
		return nil, err
	}
	if addressChanged {
		s.geocodeClub(ctx, club)
	}
	id, err := s.clubRepo.CreateClub(s.db, club)
	if err != nil {
		if errors.Is(err, repositories.ErrForeignKey) {
			return nil, fmt.Errorf("%w: owner does not exist", ErrClubValidation)
		}
		return nil, fmt.Errorf("failed to create club: %w", err)
	}
	return s.GetClub(id, 0)
}

// UpdateClub lets admins edit any club and club users edit the clubs they own.
// Only admins may transfer ownership.
func (s *clubService) UpdateClub(ctx context.Context, actor Actor, id int64, payload models.ClubPayload) (*models.Club, error) {
	club, err := s.GetClub(id, 0)
	if err != nil {
		return nil, err
	}
	if !canManageClub(actor, club) {
		return nil, ErrForbidden
	}
	if payload.OwnerID != nil && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	addressChanged, err := applyClubPayload(club, payload)
	if err != nil {
		return nil, err
	}
	if addressChanged {
		s.geocodeClub(ctx, club)
	}
	if err := s.clubRepo.UpdateClub(s.db, club); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrClubNotFound
		}
		return nil, fmt.Errorf("failed to update club: %w", err)
	}
	return s.GetClub(id, 0)
}

func canManageClub(actor Actor, club *models.Club) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.Role == models.RoleClub && club.OwnerID != nil && *club.OwnerID == actor.UserID
}

func (s *clubService) AddFavorite(userID, clubID int64) error {
	if _, err := s.GetClub(clubID, 0); err != nil {
		return err
	}
	if err := s.favoriteRepo.AddFavorite(s.db, userID, clubID); err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

func (s *clubService) RemoveFavorite(userID, clubID int64) error {
	if err := s.favoriteRepo.RemoveFavorite(s.db, userID, clubID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrFavoriteNotFound
		}
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}

func (s *clubService) GetFavorites(userID int64) ([]models.Favorite, error) {
	favorites, err := s.favoriteRepo.GetFavorites(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get favorites: %w", err)
	}
	return favorites, nil
}
