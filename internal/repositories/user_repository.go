package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"fitpass_backend/internal/models"
)

// UserRepository defines the interface for user account database operations.
type UserRepository interface {
	CreateUser(executor SQLExecutor, user *models.User, hashedPassword string) (int64, error)
	FindUserByEmail(email string) (*models.User, error) // PasswordHash populated
	FindUserByID(userID int64) (*models.User, error)
	FindUserByStripeCustomerID(customerID string) (*models.User, error)
	UpdateProfile(executor SQLExecutor, user *models.User) error
	SetStripeCustomerID(executor SQLExecutor, userID int64, customerID string) error
}

type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, password_hash, first_name, last_name, phone, street, postal_code, city,
	latitude, longitude, role, stripe_customer_id, is_active, created_at, updated_at`

func scanUser(row scanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Phone, &u.Street, &u.PostalCode, &u.City,
		&u.Latitude, &u.Longitude, &u.Role, &u.StripeCustomerID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser inserts a new user. Emails are stored lowercased.
func (r *userRepository) CreateUser(executor SQLExecutor, user *models.User, hashedPassword string) (int64, error) {
	query := `INSERT INTO users (email, password_hash, first_name, last_name, phone, street, postal_code, city,
	                             latitude, longitude, role, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, TRUE, $12, $12)
	          RETURNING id`

	if user.Role == "" {
		user.Role = models.RoleUser
	}
	currentTime := time.Now()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	var userID int64
	err := executor.QueryRow(query,
		user.Email, hashedPassword, user.FirstName, user.LastName, user.Phone, user.Street, user.PostalCode, user.City,
		user.Latitude, user.Longitude, user.Role, currentTime,
	).Scan(&userID)
	if err != nil {
		return 0, classify(err, "creating user")
	}
	user.ID = userID
	user.IsActive = true
	user.CreatedAt = currentTime
	user.UpdatedAt = currentTime
	return userID, nil
}

func (r *userRepository) FindUserByEmail(email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(r.db.QueryRow(query, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		return nil, classify(err, "finding user by email")
	}
	return u, nil
}

func (r *userRepository) FindUserByID(userID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.db.QueryRow(query, userID))
	if err != nil {
		return nil, classify(err, fmt.Sprintf("finding user by ID %d", userID))
	}
	return u, nil
}

func (r *userRepository) FindUserByStripeCustomerID(customerID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE stripe_customer_id = $1`
	u, err := scanUser(r.db.QueryRow(query, customerID))
	if err != nil {
		return nil, classify(err, "finding user by stripe customer")
	}
	return u, nil
}

// UpdateProfile writes the editable profile columns.
func (r *userRepository) UpdateProfile(executor SQLExecutor, user *models.User) error {
	query := `UPDATE users SET first_name = $1, last_name = $2, phone = $3, street = $4, postal_code = $5,
	                 city = $6, latitude = $7, longitude = $8, updated_at = $9
	          WHERE id = $10`
	user.UpdatedAt = time.Now()
	res, err := executor.Exec(query,
		user.FirstName, user.LastName, user.Phone, user.Street, user.PostalCode,
		user.City, user.Latitude, user.Longitude, user.UpdatedAt, user.ID,
	)
	if err != nil {
		return classify(err, "updating profile")
	}
	return expectOneRow(res, "updating profile", ErrNotFound)
}

func (r *userRepository) SetStripeCustomerID(executor SQLExecutor, userID int64, customerID string) error {
	res, err := executor.Exec(`UPDATE users SET stripe_customer_id = $1, updated_at = NOW() WHERE id = $2`, customerID, userID)
	if err != nil {
		return classify(err, "setting stripe customer")
	}
	return expectOneRow(res, "setting stripe customer", ErrNotFound)
}
