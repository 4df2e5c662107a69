package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"fitpass_backend/internal/models"
	"fitpass_backend/internal/repositories"
)

// Errors shared by several services.
var (
	ErrForbidden          = errors.New("operation not permitted for this user")
	ErrNoActiveMembership = errors.New("no active membership")
	ErrClubNotFound       = errors.New("club not found")
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID int64
	Role   string
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// ValidationError collects field level problems so they can be reported together.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

// errOrNil returns the ValidationError only when it holds something.
func (e *ValidationError) errOrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func normalizePage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// activeMembershipForUpdate locks the user's active membership inside tx.
func activeMembershipForUpdate(executor repositories.SQLExecutor, repo repositories.MembershipRepository, userID int64) (*models.Membership, error) {
	m, err := repo.GetActiveMembershipForUpdate(executor, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNoActiveMembership
		}
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}
	return m, nil
}

// refundCredits gives credits back to the user's active membership. The refund
// is capped at credits_used, since a renewal in between already reset the count.
func refundCredits(executor repositories.SQLExecutor, repo repositories.MembershipRepository, userID int64, credits int) (int, error) {
	if credits <= 0 {
		return 0, nil
	}
	m, err := repo.GetActiveMembershipForUpdate(executor, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load membership for refund: %w", err)
	}
	refund := credits
	if refund > m.CreditsUsed {
		refund = m.CreditsUsed
	}
	if refund == 0 {
		return 0, nil
	}
	if _, err := repo.AddCreditsUsed(executor, m.ID, -refund); err != nil {
		return 0, fmt.Errorf("failed to refund credits: %w", err)
	}
	return refund, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
