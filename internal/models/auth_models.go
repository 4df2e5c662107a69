package models

import "time"

// User roles stored in users.role.
const (
	RoleUser  = "user"
	RoleClub  = "club"
	RoleAdmin = "admin"
)

// IsValidRole checks if the provided string is a known role.
func IsValidRole(role string) bool {
	return role == RoleUser || role == RoleClub || role == RoleAdmin
}

// User represents an account in the system
type User struct {
	ID               int64     `json:"id"`
	Email            string    `json:"email" db:"email"`
	PasswordHash     string    `json:"-" db:"password_hash"` // '-' means don't send in JSON response
	FirstName        string    `json:"first_name" db:"first_name"`
	LastName         string    `json:"last_name" db:"last_name"`
	Phone            *string   `json:"phone,omitempty" db:"phone"`
	Street           *string   `json:"street,omitempty" db:"street"`
	PostalCode       *string   `json:"postal_code,omitempty" db:"postal_code"`
	City             *string   `json:"city,omitempty" db:"city"`
	Latitude         *float64  `json:"latitude,omitempty" db:"latitude"`
	Longitude        *float64  `json:"longitude,omitempty" db:"longitude"`
	Role             string    `json:"role" db:"role"`
	StripeCustomerID *string   `json:"-" db:"stripe_customer_id"`
	IsActive         bool      `json:"is_active" db:"is_active"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// HasAddress reports whether all address parts are present.
func (u *User) HasAddress() bool {
	return u.Street != nil && u.PostalCode != nil && u.City != nil
}

// Credentials for login request
type Credentials struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegistrationPayload is the body of the multi-step registration form.
type RegistrationPayload struct {
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	Email      string  `json:"email"`
	Password   string  `json:"password"`
	Phone      *string `json:"phone,omitempty"`
	Street     *string `json:"street,omitempty"`
	PostalCode *string `json:"postal_code,omitempty"`
	City       *string `json:"city,omitempty"`
}

// ProfileUpdatePayload updates the caller's own profile. Nil fields are left unchanged.
type ProfileUpdatePayload struct {
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	Phone      *string `json:"phone"`
	Street     *string `json:"street"`
	PostalCode *string `json:"postal_code"`
	City       *string `json:"city"`
}

// RefreshTokenPayload for the refresh endpoint.
type RefreshTokenPayload struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// AuthResponse is returned by login, register and refresh.
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	User         *User  `json:"user,omitempty"`
}
