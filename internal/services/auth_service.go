package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"fitpass_backend/internal/geocoding"
	"fitpass_backend/internal/models"
	"fitpass_backend/internal/repositories"
	"fitpass_backend/pkg/utils"

	"golang.org/x/crypto/bcrypt"
)

// --- Custom Service Errors ---
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrTokenGeneration    = errors.New("failed to generate token")
)

const (
	minPasswordLength = 8
	maxNameLength     = 100
	geocodeTimeout    = 5 * time.Second
)

// AddressGeocoder resolves a postal address to coordinates.
type AddressGeocoder interface {
	Geocode(ctx context.Context, address string) (*geocoding.Place, error)
}

// --- AuthService Interface ---
type AuthService interface {
	Register(ctx context.Context, payload models.RegistrationPayload) (*models.AuthResponse, error)
	Login(creds models.Credentials) (*models.AuthResponse, error)
	RefreshToken(refreshToken string) (*models.AuthResponse, error)
	GetProfile(userID int64) (*models.User, error)
	UpdateProfile(ctx context.Context, userID int64, payload models.ProfileUpdatePayload) (*models.User, error)
}

// --- authService Implementation ---
type authService struct {
	userRepo repositories.UserRepository
	db       *sql.DB
	geocoder AddressGeocoder // optional
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(userRepo repositories.UserRepository, db *sql.DB, geocoder AddressGeocoder) AuthService {
	return &authService{userRepo: userRepo, db: db, geocoder: geocoder}
}

// validateAddress requires all address parts once any is given.
func validateAddress(v *ValidationError, street, postalCode, city *string) {
	given := strings.TrimSpace(utils.StrValue(street)) != "" ||
		strings.TrimSpace(utils.StrValue(postalCode)) != "" ||
		strings.TrimSpace(utils.StrValue(city)) != ""
	if postalCode != nil && strings.TrimSpace(*postalCode) != "" && !utils.IsValidPostalCode(*postalCode) {
		v.add("postal_code", "postal code must be in the format NNN NN")
	}
	if !given {
		return
	}
	if utils.IsEmpty(utils.StrValue(street)) {
		v.add("street", "street is required when an address is given")
	}
	if utils.IsEmpty(utils.StrValue(postalCode)) {
		v.add("postal_code", "postal code is required when an address is given")
	}
	if utils.IsEmpty(utils.StrValue(city)) {
		v.add("city", "city is required when an address is given")
	}
}

func validateName(v *ValidationError, field, value string) {
	if utils.IsEmpty(value) {
		v.add(field, "is required")
	} else if utf8.RuneCountInString(value) > maxNameLength {
		v.add(field, fmt.Sprintf("must be at most %d characters", maxNameLength))
	}
}

// ValidateRegistration checks every step of the registration form and reports all problems at once.
func ValidateRegistration(p models.RegistrationPayload) error {
	v := &ValidationError{}
	validateName(v, "first_name", p.FirstName)
	validateName(v, "last_name", p.LastName)
	if !utils.IsValidEmail(p.Email) {
		v.add("email", "must be a valid email address")
	}
	if !utils.IsStrongPassword(p.Password, minPasswordLength) {
		v.add("password", fmt.Sprintf("must be at least %d characters and contain a letter and a digit", minPasswordLength))
	}
	if p.Phone != nil && strings.TrimSpace(*p.Phone) != "" && !utils.IsValidPhone(*p.Phone) {
		v.add("phone", "must contain 7-15 digits")
	}
	validateAddress(v, p.Street, p.PostalCode, p.City)
	return v.errOrNil()
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	return utils.NewNullString(strings.TrimSpace(*s))
}

// geocodeUser fills coordinates from the user's address. Failures only log.
func (s *authService) geocodeUser(ctx context.Context, user *models.User) {
	if s.geocoder == nil || !user.HasAddress() {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, geocodeTimeout)
	defer cancel()
	address := fmt.Sprintf("%s, %s %s", *user.Street, *user.PostalCode, *user.City)
	place, err := s.geocoder.Geocode(ctx, address)
	if err != nil {
		utils.LogWarn(err, "Geocoding user address failed", map[string]interface{}{"user_id": user.ID})
		return
	}
	user.Latitude = &place.Latitude
	user.Longitude = &place.Longitude
}

func (s *authService) issueTokens(user *models.User) (*models.AuthResponse, error) {
	accessToken, err := utils.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}
	refreshToken, err := utils.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}
	user.PasswordHash = ""
	return &models.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(utils.AccessTokenTTL().Seconds()),
		User:         user,
	}, nil
}

// Register validates the form, creates the account and signs the user in.
func (s *authService) Register(ctx context.Context, payload models.RegistrationPayload) (*models.AuthResponse, error) {
	if err := ValidateRegistration(payload); err != nil {
		return nil, err
	}

	hashedPasswordBytes, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:     payload.Email,
		FirstName: strings.TrimSpace(payload.FirstName),
		LastName:  strings.TrimSpace(payload.LastName),
		Phone:     trimmedOrNil(payload.Phone),
		Street:    trimmedOrNil(payload.Street),
		City:      trimmedOrNil(payload.City),
		Role:      models.RoleUser,
	}
	if pc := trimmedOrNil(payload.PostalCode); pc != nil {
		normalized := utils.NormalizePostalCode(*pc)
		user.PostalCode = &normalized
	}
	s.geocodeUser(ctx, user)

	if _, err := s.userRepo.CreateUser(s.db, user, string(hashedPasswordBytes)); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	return s.issueTokens(user)
}

// Login handles user login and token generation.
func (s *authService) Login(creds models.Credentials) (*models.AuthResponse, error) {
	user, err := s.userRepo.FindUserByEmail(creds.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login attempt failed: %w", err)
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issueTokens(user)
}

// RefreshToken exchanges a refresh token for a new token pair.
func (s *authService) RefreshToken(refreshToken string) (*models.AuthResponse, error) {
	claims, err := utils.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	user, err := s.userRepo.FindUserByID(claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to load user for refresh: %w", err)
	}
	if !user.IsActive {
		return nil, ErrInvalidToken
	}
	return s.issueTokens(user)
}

// GetProfile retrieves a user's profile by their ID.
func (s *authService) GetProfile(userID int64) (*models.User, error) {
	user, err := s.userRepo.FindUserByID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to retrieve user profile: %w", err)
	}
	user.PasswordHash = ""
	return user, nil
}

// UpdateProfile applies the non-nil fields and re-geocodes a changed address.
func (s *authService) UpdateProfile(ctx context.Context, userID int64, payload models.ProfileUpdatePayload) (*models.User, error) {
	user, err := s.GetProfile(userID)
	if err != nil {
		return nil, err
	}

	v := &ValidationError{}
	if payload.FirstName != nil {
		validateName(v, "first_name", *payload.FirstName)
		user.FirstName = strings.TrimSpace(*payload.FirstName)
	}
	if payload.LastName != nil {
		validateName(v, "last_name", *payload.LastName)
		user.LastName = strings.TrimSpace(*payload.LastName)
	}
	if payload.Phone != nil {
		if strings.TrimSpace(*payload.Phone) != "" && !utils.IsValidPhone(*payload.Phone) {
			v.add("phone", "must contain 7-15 digits")
		}
		user.Phone = trimmedOrNil(payload.Phone)
	}

	addressChanged := payload.Street != nil || payload.PostalCode != nil || payload.City != nil
	if payload.Street != nil {
		user.Street = trimmedOrNil(payload.Street)
	}
	if payload.PostalCode != nil {
		user.PostalCode = trimmedOrNil(payload.PostalCode)
	}
	if payload.City != nil {
		user.City = trimmedOrNil(payload.City)
	}
	if addressChanged {
		validateAddress(v, user.Street, user.PostalCode, user.City)
	}
	if err := v.errOrNil(); err != nil {
		return nil, err
	}

	if addressChanged {
		if user.PostalCode != nil {
			normalized := utils.NormalizePostalCode(*user.PostalCode)
			user.PostalCode = &normalized
		}
		user.Latitude, user.Longitude = nil, nil
		s.geocodeUser(ctx, user)
	}

	if err := s.userRepo.UpdateProfile(s.db, user); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}
