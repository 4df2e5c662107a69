package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"fitpass_backend/internal/models"
)

// ClubRepository defines the interface for club-related database operations.
type ClubRepository interface {
	CreateClub(executor SQLExecutor, club *models.Club) (int64, error)
	GetClubByID(id int64, viewerID int64) (*models.Club, error)
	GetClubs(filters models.ClubFilters, viewerID int64) ([]models.Club, int, error) // Clubs, total count, error
	UpdateClub(executor SQLExecutor, club *models.Club) error
}

type clubRepository struct {
	db *sql.DB
}

// NewClubRepository creates a new instance of ClubRepository.
func NewClubRepository(db *sql.DB) ClubRepository {
	return &clubRepository{db: db}
}

const clubBaseColumns = `c.id, c.owner_id, c.name, c.type, c.description, c.address, c.city, c.postal_code,
	c.latitude, c.longitude, c.credits, c.open_hours, c.image_url, c.is_active, c.created_at, c.updated_at`

// clubStats adds rating, review count, upcoming classes and the viewer's favourite flag. $1 is the viewer id.
const clubStats = `
	COALESCE(rv.avg_rating, 0) AS rating,
	COALESCE(rv.review_count, 0) AS review_count,
	(SELECT COUNT(*) FROM classes cl WHERE cl.club_id = c.id AND cl.deleted_at IS NULL AND cl.start_time > NOW()) AS upcoming_classes,
	EXISTS (SELECT 1 FROM favorites f WHERE f.club_id = c.id AND f.user_id = $1) AS is_favorite`

const clubRatingJoin = `
	LEFT JOIN (SELECT club_id, AVG(rating)::float8 AS avg_rating, COUNT(*) AS review_count
	           FROM reviews GROUP BY club_id) rv ON rv.club_id = c.id`

// haversineSQL is the great-circle distance in km from ($2, $3) to the club.
const haversineSQL = `6371 * 2 * ASIN(SQRT(
	POWER(SIN(RADIANS(c.latitude - $2) / 2), 2) +
	COS(RADIANS($2)) * COS(RADIANS(c.latitude)) * POWER(SIN(RADIANS(c.longitude - $3) / 2), 2)))`

func scanClub(row scanner, withTotal bool) (*models.Club, int, error) {
	var club models.Club
	var total int
	dest := []interface{}{
		&club.ID, &club.OwnerID, &club.Name, &club.Type, &club.Description, &club.Address, &club.City, &club.PostalCode,
		&club.Latitude, &club.Longitude, &club.Credits, &club.OpenHours, &club.ImageURL, &club.IsActive,
		&club.CreatedAt, &club.UpdatedAt,
		&club.Rating, &club.ReviewCount, &club.UpcomingClasses, &club.IsFavorite, &club.DistanceKm,
	}
	if withTotal {
		dest = append(dest, &total)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, 0, err
	}
	return &club, total, nil
}

func (r *clubRepository) CreateClub(executor SQLExecutor, club *models.Club) (int64, error) {
	query := `INSERT INTO clubs (owner_id, name, type, description, address, city, postal_code, latitude, longitude,
	                             credits, open_hours, image_url, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
	          RETURNING id`
	currentTime := time.Now()
	err := executor.QueryRow(query,
		club.OwnerID, club.Name, club.Type, club.Description, club.Address, club.City, club.PostalCode,
		club.Latitude, club.Longitude, club.Credits, club.OpenHours, club.ImageURL, club.IsActive, currentTime,
	).Scan(&club.ID)
	if err != nil {
		return 0, classify(err, "creating club")
	}
	club.CreatedAt = currentTime
	club.UpdatedAt = currentTime
	return club.ID, nil
}

func (r *clubRepository) GetClubByID(id int64, viewerID int64) (*models.Club, error) {
	query := `SELECT ` + clubBaseColumns + `,` + clubStats + `, NULL::float8 AS distance_km
	          FROM clubs c` + clubRatingJoin + `
	          WHERE c.id = $2`
	club, _, err := scanClub(r.db.QueryRow(query, viewerID, id), false)
	if err != nil {
		return nil, classify(err, fmt.Sprintf("getting club %d", id))
	}
	return club, nil
}

// GetClubs lists active clubs. With coordinates the distance is computed and
// results are ordered nearest first; otherwise by name.
func (r *clubRepository) GetClubs(filters models.ClubFilters, viewerID int64) ([]models.Club, int, error) {
	args := []interface{}{viewerID}
	argCount := 2
	distance := "NULL::float8"
	withDistance := filters.Latitude != nil && filters.Longitude != nil
	if withDistance {
		distance = haversineSQL
		args = append(args, *filters.Latitude, *filters.Longitude)
		argCount = 4
	}

	var qb strings.Builder
	qb.WriteString(`WITH listed AS (SELECT ` + clubBaseColumns + `,` + clubStats + `, ` + distance + ` AS distance_km
	          FROM clubs c` + clubRatingJoin + ` WHERE c.is_active)
	          SELECT *, COUNT(*) OVER() AS total_count FROM listed`)

	var conditions []string
	if filters.Search != nil && strings.TrimSpace(*filters.Search) != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", argCount))
		args = append(args, "%"+strings.TrimSpace(*filters.Search)+"%")
		argCount++
	}
	if filters.Type != nil && *filters.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argCount))
		args = append(args, *filters.Type)
		argCount++
	}
	if filters.City != nil && *filters.City != "" {
		conditions = append(conditions, fmt.Sprintf("city ILIKE $%d", argCount))
		args = append(args, *filters.City)
		argCount++
	}
	if filters.MinRating != nil {
		conditions = append(conditions, fmt.Sprintf("rating >= $%d", argCount))
		args = append(args, *filters.MinRating)
		argCount++
	}
	if filters.OwnerID != nil {
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", argCount))
		args = append(args, *filters.OwnerID)
		argCount++
	}
	if withDistance && filters.RadiusKm != nil {
		conditions = append(conditions, fmt.Sprintf("distance_km <= $%d", argCount))
		args = append(args, *filters.RadiusKm)
		argCount++
	}
	if len(conditions) > 0 {
		qb.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	if withDistance {
		qb.WriteString(" ORDER BY distance_km ASC NULLS LAST, name ASC")
	} else {
		qb.WriteString(" ORDER BY name ASC")
	}
	query, args := paginate(qb.String(), args, argCount, filters.Page, filters.PageSize)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying clubs: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	clubs := []models.Club{}
	totalCount := 0
	for rows.Next() {
		club, total, err := scanClub(rows, true)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: scanning club: %v", ErrDatabaseError, err)
		}
		clubs = append(clubs, *club)
		totalCount = total
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating club rows: %v", ErrDatabaseError, err)
	}
	return clubs, totalCount, nil
}

func (r *clubRepository) UpdateClub(executor SQLExecutor, club *models.Club) error {
	query := `UPDATE clubs SET owner_id = $1, name = $2, type = $3, description = $4, address = $5, city = $6,
	                 postal_code = $7, latitude = $8, longitude = $9, credits = $10, open_hours = $11,
	                 image_url = $12, is_active = $13, updated_at = $14
	          WHERE id = $15`
	club.UpdatedAt = time.Now()
	res, err := executor.Exec(query,
		club.OwnerID, club.Name, club.Type, club.Description, club.Address, club.City,
		club.PostalCode, club.Latitude, club.Longitude, club.Credits, club.OpenHours,
		club.ImageURL, club.IsActive, club.UpdatedAt, club.ID,
	)
	if err != nil {
		return classify(err, "updating club")
	}
	return expectOneRow(res, "updating club", ErrNotFound)
}
