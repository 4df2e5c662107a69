package repositories

import (
	"database/sql"
	"fmt"

	"fitpass_backend/internal/models"
)

// FavoriteRepository stores the clubs a user has marked as favourites.
type FavoriteRepository interface {
	AddFavorite(executor SQLExecutor, userID, clubID int64) error
	RemoveFavorite(executor SQLExecutor, userID, clubID int64) error
	GetFavorites(userID int64) ([]models.Favorite, error)
	CountFavorites(userID int64) (int, error)
}

type favoriteRepository struct {
	db *sql.DB
}

func NewFavoriteRepository(db *sql.DB) FavoriteRepository {
	return &favoriteRepository{db: db}
}

// AddFavorite is idempotent.
func (r *favoriteRepository) AddFavorite(executor SQLExecutor, userID, clubID int64) error {
	_, err := executor.Exec(`INSERT INTO favorites (user_id, club_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, clubID)
	if err != nil {
		return classify(err, "adding favorite")
	}
	return nil
}

func (r *favoriteRepository) RemoveFavorite(executor SQLExecutor, userID, clubID int64) error {
	res, err := executor.Exec(`DELETE FROM favorites WHERE user_id = $1 AND club_id = $2`, userID, clubID)
	if err != nil {
		return classify(err, "removing favorite")
	}
	return expectOneRow(res, "removing favorite", ErrNotFound)
}

func (r *favoriteRepository) GetFavorites(userID int64) ([]models.Favorite, error) {
	query := `SELECT f.user_id, f.club_id, f.created_at, c.name, c.type, c.address, c.city, c.image_url, c.credits
	          FROM favorites f JOIN clubs c ON c.id = f.club_id
	          WHERE f.user_id = $1
	          ORDER BY f.created_at DESC`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying favorites: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	favorites := []models.Favorite{}
	for rows.Next() {
		var f models.Favorite
		club := models.Club{IsFavorite: true, IsActive: true}
		if err := rows.Scan(&f.UserID, &f.ClubID, &f.CreatedAt, &club.Name, &club.Type, &club.Address, &club.City,
			&club.ImageURL, &club.Credits); err != nil {
			return nil, fmt.Errorf("%w: scanning favorite: %v", ErrDatabaseError, err)
		}
		club.ID = f.ClubID
		f.Club = &club
		favorites = append(favorites, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating favorites: %v", ErrDatabaseError, err)
	}
	return favorites, nil
}

func (r *favoriteRepository) CountFavorites(userID int64) (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM favorites WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, classify(err, "counting favorites")
	}
	return n, nil
}
