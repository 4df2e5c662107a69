package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"fitpass_backend/internal/models"
)

// VisitRepository records check-ins.
type VisitRepository interface {
	CreateVisit(executor SQLExecutor, visit *models.Visit) (int64, error)
	GetVisits(userID int64, page, pageSize int) ([]models.Visit, int, error)
	CountVisitsSince(userID int64, since time.Time) (int, error)
	HasVisited(userID, clubID int64) (bool, error)
}

type visitRepository struct {
	db *sql.DB
}

func NewVisitRepository(db *sql.DB) VisitRepository {
	return &visitRepository{db: db}
}

func (r *visitRepository) CreateVisit(executor SQLExecutor, visit *models.Visit) (int64, error) {
	if visit.VisitedAt.IsZero() {
		visit.VisitedAt = time.Now()
	}
	err := executor.QueryRow(`INSERT INTO visits (user_id, club_id, booking_id, credits_used, visited_at)
	                          VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		visit.UserID, visit.ClubID, visit.BookingID, visit.CreditsUsed, visit.VisitedAt,
	).Scan(&visit.ID)
	if err != nil {
		return 0, classify(err, "creating visit")
	}
	return visit.ID, nil
}

func (r *visitRepository) GetVisits(userID int64, page, pageSize int) ([]models.Visit, int, error) {
	query, args := paginate(`SELECT v.id, v.user_id, v.club_id, v.booking_id, v.credits_used, v.visited_at, c.name,
	                                COUNT(*) OVER() AS total_count
	                         FROM visits v JOIN clubs c ON c.id = v.club_id
	                         WHERE v.user_id = $1
	                         ORDER BY v.visited_at DESC`, []interface{}{userID}, 2, page, pageSize)
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying visits: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	visits := []models.Visit{}
	total := 0
	for rows.Next() {
		var v models.Visit
		if err := rows.Scan(&v.ID, &v.UserID, &v.ClubID, &v.BookingID, &v.CreditsUsed, &v.VisitedAt, &v.ClubName, &total); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning visit: %v", ErrDatabaseError, err)
		}
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating visits: %v", ErrDatabaseError, err)
	}
	return visits, total, nil
}

func (r *visitRepository) CountVisitsSince(userID int64, since time.Time) (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM visits WHERE user_id = $1 AND visited_at >= $2`, userID, since).Scan(&n); err != nil {
		return 0, classify(err, "counting visits")
	}
	return n, nil
}

func (r *visitRepository) HasVisited(userID, clubID int64) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM visits WHERE user_id = $1 AND club_id = $2)`, userID, clubID).Scan(&exists); err != nil {
		return false, classify(err, "checking visits")
	}
	return exists, nil
}
