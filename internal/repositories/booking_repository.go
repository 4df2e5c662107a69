package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"fitpass_backend/internal/models"
)

// BookingRepository defines the interface for booking-related database operations.
type BookingRepository interface {
	CreateBooking(executor SQLExecutor, booking *models.Booking) (*models.Booking, error)
	GetBookingByID(id int64) (*models.Booking, error) // joins club and class
	GetBookingForUpdate(executor SQLExecutor, id int64) (*models.Booking, error)
	GetBookingByCodeForUpdate(executor SQLExecutor, code string) (*models.Booking, error)
	GetBookings(filters models.BookingFilters) ([]models.Booking, int, error) // Bookings, total count. Joins.
	GetConfirmedByClass(executor SQLExecutor, classID int64) ([]models.Booking, error)
	HasConfirmedBooking(executor SQLExecutor, userID, classID int64) (bool, error)
	HasDirectVisit(executor SQLExecutor, userID, clubID int64, from, to time.Time) (bool, error)
	MarkCancelled(executor SQLExecutor, id int64, at time.Time) error
	MarkCompleted(executor SQLExecutor, id int64, at time.Time) error
	CountUpcoming(userID int64, now time.Time) (int, error)
	GetNextUpcoming(userID int64, now time.Time) (*models.Booking, error)
}

type bookingRepository struct {
	db *sql.DB
}

// NewBookingRepository creates a new instance of BookingRepository.
func NewBookingRepository(db *sql.DB) BookingRepository {
	return &bookingRepository{db: db}
}

const selectBookingFields = `
	b.id, b.user_id, b.club_id, b.class_id, b.status, b.credits_used, b.booking_code, b.scheduled_at,
	b.is_daily_access, b.cancelled_at, b.checked_in_at, b.created_at, b.updated_at,
	c.name, cl.name, cl.start_time, cl.end_time`

const getBookingJoins = `
	FROM bookings b
	JOIN clubs c ON c.id = b.club_id
	LEFT JOIN classes cl ON cl.id = b.class_id`

// scanBookingRow scans a single booking row and its joined details.
func scanBookingRow(row scanner, isList bool) (*models.Booking, int, error) {
	var b models.Booking
	var totalCount int
	dest := []interface{}{
		&b.ID, &b.UserID, &b.ClubID, &b.ClassID, &b.Status, &b.CreditsUsed, &b.BookingCode, &b.ScheduledAt,
		&b.IsDailyAccess, &b.CancelledAt, &b.CheckedInAt, &b.CreatedAt, &b.UpdatedAt,
		&b.ClubName, &b.ClassName, &b.ClassStartTime, &b.ClassEndTime,
	}
	if isList {
		dest = append(dest, &totalCount)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, 0, err
	}
	return &b, totalCount, nil
}

func (r *bookingRepository) CreateBooking(executor SQLExecutor, booking *models.Booking) (*models.Booking, error) {
	query := `INSERT INTO bookings
	            (user_id, club_id, class_id, status, credits_used, booking_code, scheduled_at, is_daily_access, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
	          RETURNING id`

	currentTime := time.Now()
	err := executor.QueryRow(query,
		booking.UserID, booking.ClubID, booking.ClassID, booking.Status, booking.CreditsUsed,
		booking.BookingCode, booking.ScheduledAt, booking.IsDailyAccess, currentTime,
	).Scan(&booking.ID)
	if err != nil {
		return nil, classify(err, "creating booking")
	}
	booking.CreatedAt = currentTime
	booking.UpdatedAt = currentTime
	return booking, nil
}

func (r *bookingRepository) GetBookingByID(id int64) (*models.Booking, error) {
	query := "SELECT " + selectBookingFields + getBookingJoins + " WHERE b.id = $1"
	booking, _, err := scanBookingRow(r.db.QueryRow(query, id), false)
	if err != nil {
		return nil, classify(err, fmt.Sprintf("getting booking %d", id))
	}
	return booking, nil
}

func (r *bookingRepository) GetBookingForUpdate(executor SQLExecutor, id int64) (*models.Booking, error) {
	query := "SELECT " + selectBookingFields + getBookingJoins + " WHERE b.id = $1 FOR UPDATE OF b"
	booking, _, err := scanBookingRow(executor.QueryRow(query, id), false)
	if err != nil {
		return nil, classify(err, fmt.Sprintf("locking booking %d", id))
	}
	return booking, nil
}

func (r *bookingRepository) GetBookingByCodeForUpdate(executor SQLExecutor, code string) (*models.Booking, error) {
	query := "SELECT " + selectBookingFields + getBookingJoins + " WHERE b.booking_code = $1 FOR UPDATE OF b"
	booking, _, err := scanBookingRow(executor.QueryRow(query, strings.ToUpper(strings.TrimSpace(code))), false)
	if err != nil {
		return nil, classify(err, "locking booking by code")
	}
	return booking, nil
}

func (r *bookingRepository) GetBookings(filters models.BookingFilters) ([]models.Booking, int, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString("SELECT " + selectBookingFields + ", COUNT(*) OVER() AS total_count " + getBookingJoins)

	var conditions []string
	var args []interface{}
	argCount := 1

	if filters.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("b.user_id = $%d", argCount))
		args = append(args, *filters.UserID)
		argCount++
	}
	if filters.ClubID != nil {
		conditions = append(conditions, fmt.Sprintf("b.club_id = $%d", argCount))
		args = append(args, *filters.ClubID)
		argCount++
	}
	if filters.Status != nil && *filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("b.status = $%d", argCount))
		args = append(args, *filters.Status)
		argCount++
	}
	order := " ORDER BY b.scheduled_at DESC"
	if filters.Upcoming != nil {
		if *filters.Upcoming {
			conditions = append(conditions, "b.scheduled_at >= NOW()")
			order = " ORDER BY b.scheduled_at ASC"
		} else {
			conditions = append(conditions, "b.scheduled_at < NOW()")
		}
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(order)
	query, args := paginate(queryBuilder.String(), args, argCount, filters.Page, filters.PageSize)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying bookings: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	bookings := []models.Booking{}
	totalCount := 0
	for rows.Next() {
		booking, scannedTotalCount, scanErr := scanBookingRow(rows, true)
		if scanErr != nil {
			return nil, 0, fmt.Errorf("%w: scanning booking: %v", ErrDatabaseError, scanErr)
		}
		bookings = append(bookings, *booking)
		totalCount = scannedTotalCount // same for all rows from OVER()
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating booking rows: %v", ErrDatabaseError, err)
	}
	return bookings, totalCount, nil
}

func (r *bookingRepository) GetConfirmedByClass(executor SQLExecutor, classID int64) ([]models.Booking, error) {
	query := "SELECT " + selectBookingFields + getBookingJoins +
		" WHERE b.class_id = $1 AND b.status = 'confirmed' ORDER BY b.id FOR UPDATE OF b"
	rows, err := executor.Query(query, classID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying class bookings: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	bookings := []models.Booking{}
	for rows.Next() {
		b, _, err := scanBookingRow(rows, false)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning booking: %v", ErrDatabaseError, err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating booking rows: %v", ErrDatabaseError, err)
	}
	return bookings, nil
}

func (r *bookingRepository) HasConfirmedBooking(executor SQLExecutor, userID, classID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM bookings WHERE user_id = $1 AND class_id = $2 AND status = 'confirmed')`
	if err := executor.QueryRow(query, userID, classID).Scan(&exists); err != nil {
		return false, classify(err, "checking existing booking")
	}
	return exists, nil
}

// HasDirectVisit reports a non-cancelled direct visit at the club scheduled in [from, to).
func (r *bookingRepository) HasDirectVisit(executor SQLExecutor, userID, clubID int64, from, to time.Time) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM bookings
	          WHERE user_id = $1 AND club_id = $2 AND class_id IS NULL AND status <> 'cancelled'
	            AND scheduled_at >= $3 AND scheduled_at < $4)`
	if err := executor.QueryRow(query, userID, clubID, from, to).Scan(&exists); err != nil {
		return false, classify(err, "checking direct visit")
	}
	return exists, nil
}

func (r *bookingRepository) MarkCancelled(executor SQLExecutor, id int64, at time.Time) error {
	res, err := executor.Exec(`UPDATE bookings SET status = 'cancelled', cancelled_at = $2, updated_at = $2
	                           WHERE id = $1 AND status = 'confirmed'`, id, at)
	if err != nil {
		return classify(err, "cancelling booking")
	}
	return expectOneRow(res, "cancelling booking", ErrCheckViolation)
}

func (r *bookingRepository) MarkCompleted(executor SQLExecutor, id int64, at time.Time) error {
	res, err := executor.Exec(`UPDATE bookings SET status = 'completed', checked_in_at = $2, updated_at = $2
	                           WHERE id = $1 AND status = 'confirmed'`, id, at)
	if err != nil {
		return classify(err, "completing booking")
	}
	return expectOneRow(res, "completing booking", ErrCheckViolation)
}

func (r *bookingRepository) CountUpcoming(userID int64, now time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM bookings WHERE user_id = $1 AND status = 'confirmed' AND scheduled_at >= $2`,
		userID, now).Scan(&n)
	if err != nil {
		return 0, classify(err, "counting upcoming bookings")
	}
	return n, nil
}

func (r *bookingRepository) GetNextUpcoming(userID int64, now time.Time) (*models.Booking, error) {
	query := "SELECT " + selectBookingFields + getBookingJoins +
		" WHERE b.user_id = $1 AND b.status = 'confirmed' AND b.scheduled_at >= $2 ORDER BY b.scheduled_at ASC LIMIT 1"
	b, _, err := scanBookingRow(r.db.QueryRow(query, userID, now), false)
	if err != nil {
		return nil, classify(err, "getting next booking")
	}
	return b, nil
}
