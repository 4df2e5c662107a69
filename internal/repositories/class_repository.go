package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"fitpass_backend/internal/models"
)

// ClassRepository defines the interface for class-related database operations.
type ClassRepository interface {
	CreateClass(executor SQLExecutor, class *models.Class) (int64, error)
	GetClassByID(id int64) (*models.Class, error)
	GetClassForUpdate(executor SQLExecutor, id int64) (*models.Class, error) // locks the row
	GetClasses(filters models.ClassFilters) ([]models.Class, int, error)
	UpdateClass(executor SQLExecutor, class *models.Class) error
	AdjustBookedSpots(executor SQLExecutor, id int64, delta int) error
	DeleteClass(executor SQLExecutor, id int64) error
}

type classRepository struct {
	db *sql.DB
}

// NewClassRepository creates a new instance of ClassRepository.
func NewClassRepository(db *sql.DB) ClassRepository {
	return &classRepository{db: db}
}

const classColumns = `cl.id, cl.club_id, cl.name, cl.description, cl.instructor, cl.intensity, cl.start_time, cl.end_time,
	cl.capacity, cl.booked_spots, cl.credits, cl.created_at, cl.updated_at, c.name`

func scanClass(row scanner, withTotal bool) (*models.Class, int, error) {
	var class models.Class
	var total int
	dest := []interface{}{
		&class.ID, &class.ClubID, &class.Name, &class.Description, &class.Instructor, &class.Intensity,
		&class.StartTime, &class.EndTime, &class.Capacity, &class.BookedSpots, &class.Credits,
		&class.CreatedAt, &class.UpdatedAt, &class.ClubName,
	}
	if withTotal {
		dest = append(dest, &total)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, 0, err
	}
	class.FillSpotsLeft()
	return &class, total, nil
}

func (r *classRepository) CreateClass(executor SQLExecutor, class *models.Class) (int64, error) {
	query := `INSERT INTO classes (club_id, name, description, instructor, intensity, start_time, end_time,
	                               capacity, booked_spots, credits, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $10, $10)
	          RETURNING id`
	currentTime := time.Now()
	err := executor.QueryRow(query,
		class.ClubID, class.Name, class.Description, class.Instructor, class.Intensity, class.StartTime, class.EndTime,
		class.Capacity, class.Credits, currentTime,
	).Scan(&class.ID)
	if err != nil {
		return 0, classify(err, "creating class")
	}
	class.CreatedAt = currentTime
	class.UpdatedAt = currentTime
	class.FillSpotsLeft()
	return class.ID, nil
}

func (r *classRepository) GetClassByID(id int64) (*models.Class, error) {
	query := `SELECT ` + classColumns + ` FROM classes cl JOIN clubs c ON c.id = cl.club_id
	          WHERE cl.id = $1 AND cl.deleted_at IS NULL`
	class, _, err := scanClass(r.db.QueryRow(query, id), false)
	if err != nil {
		return nil, classify(err, fmt.Sprintf("getting class %d", id))
	}
	return class, nil
}

func (r *classRepository) GetClassForUpdate(executor SQLExecutor, id int64) (*models.Class, error) {
	query := `SELECT ` + classColumns + ` FROM classes cl JOIN clubs c ON c.id = cl.club_id
	          WHERE cl.id = $1 AND cl.deleted_at IS NULL FOR UPDATE OF cl`
	class, _, err := scanClass(executor.QueryRow(query, id), false)
	if err != nil {
		return nil, classify(err, fmt.Sprintf("locking class %d", id))
	}
	return class, nil
}

func (r *classRepository) GetClasses(filters models.ClassFilters) ([]models.Class, int, error) {
	var qb strings.Builder
	qb.WriteString(`SELECT ` + classColumns + `, COUNT(*) OVER() AS total_count
	          FROM classes cl JOIN clubs c ON c.id = cl.club_id`)

	conditions := []string{"c.is_active", "cl.deleted_at IS NULL"}
	var args []interface{}
	argCount := 1

	if filters.ClubID != nil {
		conditions = append(conditions, fmt.Sprintf("cl.club_id = $%d", argCount))
		args = append(args, *filters.ClubID)
		argCount++
	}
	if filters.From != nil {
		conditions = append(conditions, fmt.Sprintf("cl.start_time >= $%d", argCount))
		args = append(args, *filters.From)
		argCount++
	}
	if filters.To != nil {
		conditions = append(conditions, fmt.Sprintf("cl.start_time < $%d", argCount))
		args = append(args, *filters.To)
		argCount++
	}
	if !filters.IncludePast {
		conditions = append(conditions, "cl.start_time > NOW()")
	}
	qb.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	qb.WriteString(" ORDER BY cl.start_time ASC, cl.id ASC")
	query, args := paginate(qb.String(), args, argCount, filters.Page, filters.PageSize)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying classes: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	classes := []models.Class{}
	totalCount := 0
	for rows.Next() {
		class, total, err := scanClass(rows, true)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: scanning class: %v", ErrDatabaseError, err)
		}
		classes = append(classes, *class)
		totalCount = total
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating class rows: %v", ErrDatabaseError, err)
	}
	return classes, totalCount, nil
}

func (r *classRepository) UpdateClass(executor SQLExecutor, class *models.Class) error {
	query := `UPDATE classes SET name = $1, description = $2, instructor = $3, intensity = $4, start_time = $5,
	                 end_time = $6, capacity = $7, credits = $8, updated_at = $9
	          WHERE id = $10 AND deleted_at IS NULL`
	class.UpdatedAt = time.Now()
	res, err := executor.Exec(query,
		class.Name, class.Description, class.Instructor, class.Intensity, class.StartTime,
		class.EndTime, class.Capacity, class.Credits, class.UpdatedAt, class.ID,
	)
	if err != nil {
		return classify(err, "updating class")
	}
	return expectOneRow(res, "updating class", ErrNotFound)
}

// AdjustBookedSpots adds delta to booked_spots, refusing to leave [0, capacity].
func (r *classRepository) AdjustBookedSpots(executor SQLExecutor, id int64, delta int) error {
	query := `UPDATE classes SET booked_spots = booked_spots + $2, updated_at = NOW()
	          WHERE id = $1 AND deleted_at IS NULL AND booked_spots + $2 BETWEEN 0 AND capacity`
	res, err := executor.Exec(query, id, delta)
	if err != nil {
		return classify(err, "adjusting booked spots")
	}
	return expectOneRow(res, "adjusting booked spots", ErrCheckViolation)
}

// DeleteClass hides the class. The row stays so bookings and visits keep pointing at it.
func (r *classRepository) DeleteClass(executor SQLExecutor, id int64) error {
	res, err := executor.Exec(`UPDATE classes SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return classify(err, "deleting class")
	}
	return expectOneRow(res, "deleting class", ErrNotFound)
}
