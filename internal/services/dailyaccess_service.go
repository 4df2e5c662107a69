package services

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"fitpass_backend/internal/dailyaccess"
	"fitpass_backend/internal/labels"
	"fitpass_backend/internal/models"
	"fitpass_backend/internal/repositories"
	"fitpass_backend/pkg/utils"
)

var (
	ErrNotDailyAccessPlan   = errors.New("membership plan does not include daily access")
	ErrMaxDailyAccessGyms   = errors.New("all daily access slots are in use")
	ErrGymAlreadySelected   = errors.New("gym is already selected")
	ErrGymNotSelected       = errors.New("gym is not selected")
	ErrNoPendingChange      = errors.New("gym has no pending change to undo")
	ErrSameGym              = errors.New("replacement gym must differ from the current gym")
	ErrDailyAccessForbidden = errors.New("change not allowed for the gym's current status")
)

type ReplaceGymRequest struct {
	NewClubID int64 `json:"new_club_id" binding:"required"`
}

type AddGymRequest struct {
	ClubID int64 `json:"club_id" binding:"required"`
}

// DailyAccessService manages the gyms a Daily Access member has pinned.
type DailyAccessService interface {
	GetOverview(userID int64) (*models.DailyAccessOverview, error)
	AddGym(userID, clubID int64) (*models.SelectedGym, error)
	RemoveGym(userID, clubID int64) (*models.SelectedGym, error)
	ReplaceGym(userID, clubID, newClubID int64) (*models.SelectedGym, error)
	UndoChange(userID, clubID int64) (*models.SelectedGym, error)
	ApplyDueChanges(at time.Time) (int, error)
	GetPayouts() ([]models.ClubPayoutItem, error)
}

type dailyAccessService struct {
	selectedGymRepo repositories.SelectedGymRepository
	membershipRepo  repositories.MembershipRepository
	clubRepo        repositories.ClubRepository
	db              *sql.DB
	now             func() time.Time
}

func NewDailyAccessService(
	sr repositories.SelectedGymRepository,
	mr repositories.MembershipRepository,
	cr repositories.ClubRepository,
	db *sql.DB,
) DailyAccessService {
	return &dailyAccessService{selectedGymRepo: sr, membershipRepo: mr, clubRepo: cr, db: db, now: time.Now}
}

func toSelections(rows []models.SelectedGym) []dailyaccess.Selection {
	out := make([]dailyaccess.Selection, len(rows))
	for i, r := range rows {
		out[i] = dailyaccess.Selection{
			ClubID:          r.ClubID,
			Status:          dailyaccess.Status(r.Status),
			SelectedAt:      r.SelectedAt,
			EffectiveFrom:   r.EffectiveFrom,
			EffectiveTo:     r.EffectiveTo,
			ReplacingClubID: r.ReplacingClubID,
		}
	}
	return out
}

func findLive(rows []models.SelectedGym, clubID int64) *models.SelectedGym {
	for i := range rows {
		if rows[i].ClubID == clubID && dailyaccess.Status(rows[i].Status).IsLive() {
			return &rows[i]
		}
	}
	return nil
}

func maxGymsFor(plan *models.MembershipPlan) int {
	if plan != nil && plan.MaxDailyAccessGyms > 0 && plan.MaxDailyAccessGyms < dailyaccess.MaxGyms {
		return plan.MaxDailyAccessGyms
	}
	return dailyaccess.MaxGyms
}

// transition moves a row through the state machine and persists it.
func transition(executor repositories.SQLExecutor, repo repositories.SelectedGymRepository, row *models.SelectedGym, action dailyaccess.Action, effectiveTo *time.Time) error {
	next, err := dailyaccess.Transition(dailyaccess.Status(row.Status), action)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDailyAccessForbidden, err)
	}
	row.Status = string(next)
	row.EffectiveTo = effectiveTo
	if next == dailyaccess.StatusActive {
		row.EffectiveTo = nil
	}
	if err := repo.UpdateSelection(executor, row); err != nil {
		return fmt.Errorf("failed to update selection: %w", err)
	}
	return nil
}

// applyDueSelections activates and expires the user's selections whose date has come.
func applyDueSelections(executor repositories.SQLExecutor, repo repositories.SelectedGymRepository, userID int64, at time.Time) (int, error) {
	rows, err := repo.GetSelections(executor, userID, false)
	if err != nil {
		return 0, fmt.Errorf("failed to load selections: %w", err)
	}
	changes := dailyaccess.ApplyDue(toSelections(rows), at)
	for _, ch := range changes {
		row := findLive(rows, ch.ClubID)
		if row == nil || row.Status != string(ch.From) {
			continue
		}
		action := dailyaccess.ActionActivate
		if ch.To == dailyaccess.StatusRemoved {
			action = dailyaccess.ActionExpire
		}
		if err := transition(executor, repo, row, action, row.EffectiveTo); err != nil {
			return 0, err
		}
	}
	return len(changes), nil
}

// releaseSelections winds down the selections of a user leaving Daily Access.
// With immediate set every live row is removed now; otherwise gyms in use stay
// usable until until and pending additions are dropped.
func releaseSelections(executor repositories.SQLExecutor, repo repositories.SelectedGymRepository, userID int64, until time.Time, immediate bool) error {
	rows, err := repo.GetSelections(executor, userID, false)
	if err != nil {
		return fmt.Errorf("failed to load selections: %w", err)
	}
	for i := range rows {
		row := &rows[i]
		end := until
		switch {
		case immediate:
			row.Status = string(dailyaccess.StatusRemoved)
		case row.Status == string(dailyaccess.StatusPending):
			row.Status = string(dailyaccess.StatusRemoved)
		default:
			row.Status = string(dailyaccess.StatusPendingRemoval)
		}
		row.EffectiveTo = &end
		if err := repo.UpdateSelection(executor, row); err != nil {
			return fmt.Errorf("failed to release selection: %w", err)
		}
	}
	return nil
}

func (s *dailyAccessService) dailyAccessMembership(executor repositories.SQLExecutor, userID int64) (*models.Membership, error) {
	m, err := activeMembershipForUpdate(executor, s.membershipRepo, userID)
	if err != nil {
		return nil, err
	}
	if !m.IsDailyAccess() {
		return nil, ErrNotDailyAccessPlan
	}
	return m, nil
}

func (s *dailyAccessService) requireClub(clubID int64) error {
	club, err := s.clubRepo.GetClubByID(clubID, 0)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrClubNotFound
		}
		return fmt.Errorf("failed to load club: %w", err)
	}
	if !club.IsActive {
		return ErrClubNotFound
	}
	return nil
}

func (s *dailyAccessService) GetOverview(userID int64) (*models.DailyAccessOverview, error) {
	m, err := s.membershipRepo.GetActiveMembership(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNoActiveMembership
		}
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}
	if !m.IsDailyAccess() {
		return nil, ErrNotDailyAccessPlan
	}
	rows, err := s.selectedGymRepo.GetSelections(s.db, userID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load selections: %w", err)
	}

	shares := map[int64]int{}
	for _, a := range dailyaccess.DistributeCredits(m.Credits, toSelections(rows)) {
		shares[a.ClubID] = a.Credits
	}
	for i := range rows {
		rows[i].StatusLabel = labels.DailyAccess(rows[i].Status)
		rows[i].Credits = shares[rows[i].ClubID]
	}
	return &models.DailyAccessOverview{
		Gyms:            rows,
		MaxGyms:         maxGymsFor(m.Plan),
		SlotsUsed:       dailyaccess.SlotsUsed(toSelections(rows)),
		NextBillingDate: m.NextBillingDate,
	}, nil
}

// AddGym pins a club. The very first gym is active at once; later ones wait
// for the next billing date.
func (s *dailyAccessService) AddGym(userID, clubID int64) (*models.SelectedGym, error) {
	if err := s.requireClub(clubID); err != nil {
		return nil, err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	m, err := s.dailyAccessMembership(tx, userID)
	if err != nil {
		return nil, err
	}
	rows, err := s.selectedGymRepo.GetSelections(tx, userID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load selections: %w", err)
	}
	existing := findLive(rows, clubID)
	if existing != nil && existing.Status != string(dailyaccess.StatusPendingRemoval) {
		return nil, ErrGymAlreadySelected
	}
	sels := toSelections(rows)
	if dailyaccess.SlotsUsed(sels) >= maxGymsFor(m.Plan) {
		return nil, ErrMaxDailyAccessGyms
	}

	var result *models.SelectedGym
	if existing != nil {
		if err := transition(tx, s.selectedGymRepo, existing, dailyaccess.ActionUndo, nil); err != nil {
			return nil, err
		}
		result = existing
	} else {
		now := s.now()
		sg := &models.SelectedGym{
			UserID:        userID,
			ClubID:        clubID,
			MembershipID:  &m.ID,
			Status:        string(dailyaccess.StatusPending),
			SelectedAt:    now,
			EffectiveFrom: m.NextBillingDate,
		}
		if !dailyaccess.HasLive(sels) {
			sg.Status = string(dailyaccess.StatusActive)
			sg.EffectiveFrom = now
		}
		if _, err := s.selectedGymRepo.CreateSelection(tx, sg); err != nil {
			if errors.Is(err, repositories.ErrDuplicateKey) {
				return nil, ErrGymAlreadySelected
			}
			return nil, fmt.Errorf("failed to add gym: %w", err)
		}
		result = sg
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit gym selection: %w", err)
	}
	result.StatusLabel = labels.DailyAccess(result.Status)
	return result, nil
}

// RemoveGym schedules an active gym for removal at the next billing date, or
// drops a pending gym right away.
func (s *dailyAccessService) RemoveGym(userID, clubID int64) (*models.SelectedGym, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	m, err := s.dailyAccessMembership(tx, userID)
	if err != nil {
		return nil, err
	}
	rows, err := s.selectedGymRepo.GetSelections(tx, userID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load selections: %w", err)
	}
	row := findLive(rows, clubID)
	if row == nil {
		return nil, ErrGymNotSelected
	}

	switch dailyaccess.Status(row.Status) {
	case dailyaccess.StatusActive:
		end := m.NextBillingDate
		if err := transition(tx, s.selectedGymRepo, row, dailyaccess.ActionRemove, &end); err != nil {
			return nil, err
		}
	case dailyaccess.StatusPending:
		now := s.now()
		if err := transition(tx, s.selectedGymRepo, row, dailyaccess.ActionRemove, &now); err != nil {
			return nil, err
		}
		if row.ReplacingClubID != nil {
			if replaced := findLive(rows, *row.ReplacingClubID); replaced != nil &&
				replaced.Status == string(dailyaccess.StatusPendingReplacement) {
				if err := transition(tx, s.selectedGymRepo, replaced, dailyaccess.ActionUndo, nil); err != nil {
					return nil, err
				}
			}
		}
	default:
		return nil, fmt.Errorf("%w: gym is %s", ErrDailyAccessForbidden, row.Status)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit gym removal: %w", err)
	}
	row.StatusLabel = labels.DailyAccess(row.Status)
	return row, nil
}

// ReplaceGym swaps an active gym for another from the next billing date.
func (s *dailyAccessService) ReplaceGym(userID, clubID, newClubID int64) (*models.SelectedGym, error) {
	if clubID == newClubID {
		return nil, ErrSameGym
	}
	if err := s.requireClub(newClubID); err != nil {
		return nil, err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	m, err := s.dailyAccessMembership(tx, userID)
	if err != nil {
		return nil, err
	}
	rows, err := s.selectedGymRepo.GetSelections(tx, userID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load selections: %w", err)
	}
	old := findLive(rows, clubID)
	if old == nil {
		return nil, ErrGymNotSelected
	}
	if findLive(rows, newClubID) != nil {
		return nil, ErrGymAlreadySelected
	}
	end := m.NextBillingDate
	if err := transition(tx, s.selectedGymRepo, old, dailyaccess.ActionReplace, &end); err != nil {
		return nil, err
	}
	replacement := &models.SelectedGym{
		UserID:          userID,
		ClubID:          newClubID,
		MembershipID:    &m.ID,
		Status:          string(dailyaccess.StatusPending),
		SelectedAt:      s.now(),
		EffectiveFrom:   m.NextBillingDate,
		ReplacingClubID: &old.ClubID,
	}
	if _, err := s.selectedGymRepo.CreateSelection(tx, replacement); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrGymAlreadySelected
		}
		return nil, fmt.Errorf("failed to add replacement gym: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit gym replacement: %w", err)
	}
	replacement.StatusLabel = labels.DailyAccess(replacement.Status)
	return replacement, nil
}

// UndoChange cancels a pending removal or replacement of a gym.
func (s *dailyAccessService) UndoChange(userID, clubID int64) (*models.SelectedGym, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	m, err := s.dailyAccessMembership(tx, userID)
	if err != nil {
		return nil, err
	}
	rows, err := s.selectedGymRepo.GetSelections(tx, userID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load selections: %w", err)
	}
	row := findLive(rows, clubID)
	if row == nil {
		return nil, ErrGymNotSelected
	}

	switch dailyaccess.Status(row.Status) {
	case dailyaccess.StatusPendingRemoval:
		if dailyaccess.SlotsUsed(toSelections(rows)) >= maxGymsFor(m.Plan) {
			return nil, ErrMaxDailyAccessGyms
		}
	case dailyaccess.StatusPendingReplacement:
		now := s.now()
		for i := range rows {
			r := &rows[i]
			if r.Status == string(dailyaccess.StatusPending) && r.ReplacingClubID != nil && *r.ReplacingClubID == clubID {
				if err := transition(tx, s.selectedGymRepo, r, dailyaccess.ActionRemove, &now); err != nil {
					return nil, err
				}
			}
		}
	default:
		return nil, ErrNoPendingChange
	}
	if err := transition(tx, s.selectedGymRepo, row, dailyaccess.ActionUndo, nil); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit undo: %w", err)
	}
	row.StatusLabel = labels.DailyAccess(row.Status)
	return row, nil
}

// ApplyDueChanges brings every user's selections up to date, one transaction per user.
func (s *dailyAccessService) ApplyDueChanges(at time.Time) (int, error) {
	userIDs, err := s.selectedGymRepo.GetUsersWithDueChanges(at)
	if err != nil {
		return 0, fmt.Errorf("failed to list due selections: %w", err)
	}
	total := 0
	var firstErr error
	for _, userID := range userIDs {
		n, err := s.applyForUser(userID, at)
		if err != nil {
			utils.LogWarn(err, "Applying daily access changes failed", map[string]interface{}{"user_id": userID})
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		total += n
	}
	return total, firstErr
}

func (s *dailyAccessService) applyForUser(userID int64, at time.Time) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	n, err := applyDueSelections(tx, s.selectedGymRepo, userID, at)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit daily access changes: %w", err)
	}
	return n, nil
}

// GetPayouts sums, per club, the credit shares of every Daily Access member's pinned gyms.
func (s *dailyAccessService) GetPayouts() ([]models.ClubPayoutItem, error) {
	rows, err := s.selectedGymRepo.GetPayoutRows()
	if err != nil {
		return nil, fmt.Errorf("failed to load payout rows: %w", err)
	}

	type member struct {
		credits int
		gyms    []models.SelectedGym
	}
	members := map[int64]*member{}
	var order []int64
	for _, r := range rows {
		mem, ok := members[r.UserID]
		if !ok {
			mem = &member{credits: r.Credits}
			members[r.UserID] = mem
			order = append(order, r.UserID)
		}
		mem.gyms = append(mem.gyms, r.Gym)
	}

	items := map[int64]*models.ClubPayoutItem{}
	for _, userID := range order {
		mem := members[userID]
		names := map[int64]string{}
		for _, g := range mem.gyms {
			names[g.ClubID] = g.ClubName
		}
		for _, a := range dailyaccess.DistributeCredits(mem.credits, toSelections(mem.gyms)) {
			item, ok := items[a.ClubID]
			if !ok {
				item = &models.ClubPayoutItem{ClubID: a.ClubID, ClubName: names[a.ClubID]}
				items[a.ClubID] = item
			}
			item.Credits += a.Credits
			item.Members++
		}
	}

	out := make([]models.ClubPayoutItem, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClubID < out[j].ClubID })
	return out, nil
}
