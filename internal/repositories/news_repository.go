package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"fitpass_backend/internal/models"
)

// NewsRepository defines the interface for news feed database operations.
type NewsRepository interface {
	CreateNews(executor SQLExecutor, news *models.News) (int64, error)
	GetNewsByID(id int64) (*models.News, error)
	GetPublishedNews(filters models.NewsFilters, now time.Time) ([]models.News, error)
	ExpireNews(executor SQLExecutor, now time.Time) (int64, error)
}

type newsRepository struct {
	db *sql.DB
}

func NewNewsRepository(db *sql.DB) NewsRepository {
	return &newsRepository{db: db}
}

const newsColumns = `n.id, n.club_id, n.title, n.description, n.content, n.type, n.image_url, n.action_text, n.priority,
	n.status, n.published_at, n.expires_at, n.created_at, n.updated_at, c.name`

func scanNews(row scanner) (*models.News, error) {
	var n models.News
	err := row.Scan(&n.ID, &n.ClubID, &n.Title, &n.Description, &n.Content, &n.Type, &n.ImageURL, &n.ActionText,
		&n.Priority, &n.Status, &n.PublishedAt, &n.ExpiresAt, &n.CreatedAt, &n.UpdatedAt, &n.ClubName)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *newsRepository) CreateNews(executor SQLExecutor, news *models.News) (int64, error) {
	query := `INSERT INTO news (club_id, title, description, content, type, image_url, action_text, priority, status,
	                            published_at, expires_at, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
	          RETURNING id`
	currentTime := time.Now()
	err := executor.QueryRow(query,
		news.ClubID, news.Title, news.Description, news.Content, news.Type, news.ImageURL, news.ActionText,
		news.Priority, news.Status, news.PublishedAt, news.ExpiresAt, currentTime,
	).Scan(&news.ID)
	if err != nil {
		return 0, classify(err, "creating news")
	}
	news.CreatedAt = currentTime
	news.UpdatedAt = currentTime
	return news.ID, nil
}

func (r *newsRepository) GetNewsByID(id int64) (*models.News, error) {
	n, err := scanNews(r.db.QueryRow(`SELECT `+newsColumns+` FROM news n LEFT JOIN clubs c ON c.id = n.club_id WHERE n.id = $1`, id))
	if err != nil {
		return nil, classify(err, fmt.Sprintf("getting news %d", id))
	}
	return n, nil
}

// GetPublishedNews returns active items visible at now. A club filter also includes global items.
func (r *newsRepository) GetPublishedNews(filters models.NewsFilters, now time.Time) ([]models.News, error) {
	query := `SELECT ` + newsColumns + ` FROM news n LEFT JOIN clubs c ON c.id = n.club_id
	          WHERE n.status = 'active' AND n.published_at <= $1 AND (n.expires_at IS NULL OR n.expires_at > $1)`
	args := []interface{}{now}
	argCount := 2
	if filters.ClubID != nil {
		query += fmt.Sprintf(" AND (n.club_id = $%d OR n.club_id IS NULL)", argCount)
		args = append(args, *filters.ClubID)
		argCount++
	}
	query += " ORDER BY n.priority DESC, n.published_at DESC"
	query, args = paginate(query, args, argCount, 1, filters.Limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying news: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	items := []models.News{}
	for rows.Next() {
		n, err := scanNews(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning news: %v", ErrDatabaseError, err)
		}
		items = append(items, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating news: %v", ErrDatabaseError, err)
	}
	return items, nil
}

// ExpireNews flips active items past expires_at to expired.
func (r *newsRepository) ExpireNews(executor SQLExecutor, now time.Time) (int64, error) {
	res, err := executor.Exec(`UPDATE news SET status = 'expired', updated_at = $1
	                           WHERE status = 'active' AND expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, classify(err, "expiring news")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: expiring news: rows affected: %v", ErrDatabaseError, err)
	}
	return n, nil
}
