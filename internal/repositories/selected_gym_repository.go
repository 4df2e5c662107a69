package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"fitpass_backend/internal/models"
)

// PayoutRow is one granting selection of a user with an active Daily Access membership.
type PayoutRow struct {
	UserID  int64
	Credits int
	Gym     models.SelectedGym
}

// SelectedGymRepository defines the interface for Daily Access selection database operations.
type SelectedGymRepository interface {
	GetSelections(executor SQLExecutor, userID int64, includeRemoved bool) ([]models.SelectedGym, error)
	CreateSelection(executor SQLExecutor, sg *models.SelectedGym) (int64, error)
	UpdateSelection(executor SQLExecutor, sg *models.SelectedGym) error
	HasAccess(executor SQLExecutor, userID, clubID int64) (bool, error)
	CountGranting(userID int64) (int, error)
	GetUsersWithDueChanges(at time.Time) ([]int64, error)
	GetPayoutRows() ([]PayoutRow, error)
}

type selectedGymRepository struct {
	db *sql.DB
}

// NewSelectedGymRepository creates a new instance of SelectedGymRepository.
func NewSelectedGymRepository(db *sql.DB) SelectedGymRepository {
	return &selectedGymRepository{db: db}
}

const selectedGymColumns = `s.id, s.user_id, s.club_id, s.membership_id, s.status, s.selected_at, s.effective_from,
	s.effective_to, s.replacing_club_id, s.created_at, s.updated_at, c.name`

func scanSelectedGym(row scanner) (*models.SelectedGym, error) {
	var sg models.SelectedGym
	err := row.Scan(&sg.ID, &sg.UserID, &sg.ClubID, &sg.MembershipID, &sg.Status, &sg.SelectedAt, &sg.EffectiveFrom,
		&sg.EffectiveTo, &sg.ReplacingClubID, &sg.CreatedAt, &sg.UpdatedAt, &sg.ClubName)
	if err != nil {
		return nil, err
	}
	return &sg, nil
}

// GetSelections returns the user's selections in selection order.
func (r *selectedGymRepository) GetSelections(executor SQLExecutor, userID int64, includeRemoved bool) ([]models.SelectedGym, error) {
	query := `SELECT ` + selectedGymColumns + ` FROM user_selected_gyms s JOIN clubs c ON c.id = s.club_id WHERE s.user_id = $1`
	if !includeRemoved {
		query += ` AND s.status <> 'removed'`
	}
	query += ` ORDER BY s.selected_at ASC, s.id ASC`

	rows, err := executor.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying selected gyms: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	selections := []models.SelectedGym{}
	for rows.Next() {
		sg, err := scanSelectedGym(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning selected gym: %v", ErrDatabaseError, err)
		}
		selections = append(selections, *sg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating selected gyms: %v", ErrDatabaseError, err)
	}
	return selections, nil
}

// CreateSelection inserts a selection. A second live row for the same club is a duplicate key.
func (r *selectedGymRepository) CreateSelection(executor SQLExecutor, sg *models.SelectedGym) (int64, error) {
	query := `INSERT INTO user_selected_gyms (user_id, club_id, membership_id, status, selected_at, effective_from,
	                                          effective_to, replacing_club_id, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
	          RETURNING id`
	currentTime := time.Now()
	if sg.SelectedAt.IsZero() {
		sg.SelectedAt = currentTime
	}
	err := executor.QueryRow(query,
		sg.UserID, sg.ClubID, sg.MembershipID, sg.Status, sg.SelectedAt, sg.EffectiveFrom,
		sg.EffectiveTo, sg.ReplacingClubID, currentTime,
	).Scan(&sg.ID)
	if err != nil {
		return 0, classify(err, "creating selected gym")
	}
	sg.CreatedAt = currentTime
	sg.UpdatedAt = currentTime
	return sg.ID, nil
}

func (r *selectedGymRepository) UpdateSelection(executor SQLExecutor, sg *models.SelectedGym) error {
	query := `UPDATE user_selected_gyms SET status = $1, effective_from = $2, effective_to = $3,
	                 replacing_club_id = $4, membership_id = $5, updated_at = $6
	          WHERE id = $7`
	sg.UpdatedAt = time.Now()
	res, err := executor.Exec(query, sg.Status, sg.EffectiveFrom, sg.EffectiveTo, sg.ReplacingClubID,
		sg.MembershipID, sg.UpdatedAt, sg.ID)
	if err != nil {
		return classify(err, "updating selected gym")
	}
	return expectOneRow(res, "updating selected gym", ErrNotFound)
}

// HasAccess reports whether the club is one of the user's pinned gyms this cycle.
func (r *selectedGymRepository) HasAccess(executor SQLExecutor, userID, clubID int64) (bool, error) {
	var ok bool
	err := executor.QueryRow(`SELECT EXISTS (SELECT 1 FROM user_selected_gyms
	                          WHERE user_id = $1 AND club_id = $2
	                            AND status IN ('active', 'pending_removal', 'pending_replacement'))`, userID, clubID).Scan(&ok)
	if err != nil {
		return false, classify(err, "checking daily access")
	}
	return ok, nil
}

func (r *selectedGymRepository) CountGranting(userID int64) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM user_selected_gyms
	                      WHERE user_id = $1 AND status IN ('active', 'pending_removal', 'pending_replacement')`, userID).Scan(&n)
	if err != nil {
		return 0, classify(err, "counting daily access gyms")
	}
	return n, nil
}

// GetUsersWithDueChanges lists users holding a pending change whose date has come.
func (r *selectedGymRepository) GetUsersWithDueChanges(at time.Time) ([]int64, error) {
	rows, err := r.db.Query(`SELECT DISTINCT user_id FROM user_selected_gyms
	                         WHERE (status = 'pending' AND effective_from <= $1)
	                            OR (status IN ('pending_removal', 'pending_replacement') AND effective_to <= $1)
	                         ORDER BY user_id`, at)
	if err != nil {
		return nil, fmt.Errorf("%w: querying due selections: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scanning user id: %v", ErrDatabaseError, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating due selections: %v", ErrDatabaseError, err)
	}
	return ids, nil
}

// GetPayoutRows returns granting selections of active Daily Access members with their plan credits.
func (r *selectedGymRepository) GetPayoutRows() ([]PayoutRow, error) {
	query := `SELECT m.credits, ` + selectedGymColumns + `
	          FROM user_selected_gyms s
	          JOIN clubs c ON c.id = s.club_id
	          JOIN memberships m ON m.user_id = s.user_id AND m.is_active
	          JOIN membership_plans p ON p.id = m.plan_id AND p.is_daily_access
	          WHERE s.status IN ('active', 'pending_removal', 'pending_replacement')
	          ORDER BY s.user_id, s.selected_at, s.id`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("%w: querying payout rows: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	out := []PayoutRow{}
	for rows.Next() {
		var row PayoutRow
		sg := &row.Gym
		if err := rows.Scan(&row.Credits, &sg.ID, &sg.UserID, &sg.ClubID, &sg.MembershipID, &sg.Status, &sg.SelectedAt,
			&sg.EffectiveFrom, &sg.EffectiveTo, &sg.ReplacingClubID, &sg.CreatedAt, &sg.UpdatedAt, &sg.ClubName); err != nil {
			return nil, fmt.Errorf("%w: scanning payout row: %v", ErrDatabaseError, err)
		}
		row.UserID = sg.UserID
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating payout rows: %v", ErrDatabaseError, err)
	}
	return out, nil
}
