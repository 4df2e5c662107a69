// Package dailyaccess holds the rules for Daily Access gym selections:
// the status transitions, slot counting, credit distribution and the
// billing-cycle dates at which deferred changes take effect.
package dailyaccess

import (
	"errors"
	"fmt"
	"time"
)

// Status of a user_selected_gyms row.
type Status string

const (
	StatusPending            Status = "pending"
	StatusActive             Status = "active"
	StatusPendingRemoval     Status = "pending_removal"
	StatusPendingReplacement Status = "pending_replacement"
	StatusRemoved            Status = "removed"
)

// MaxGyms is the upper bound on selections counting toward the next cycle.
const MaxGyms = 3

// IsValidStatus checks if the provided string is a known selection status.
func IsValidStatus(status string) bool {
	switch Status(status) {
	case StatusPending, StatusActive, StatusPendingRemoval, StatusPendingReplacement, StatusRemoved:
		return true
	default:
		return false
	}
}

// IsLive is true for every status except removed.
func (s Status) IsLive() bool {
	return s != StatusRemoved && s != ""
}

// CountsTowardSlots is true when the selection will be active next cycle.
func (s Status) CountsTowardSlots() bool {
	return s == StatusActive || s == StatusPending
}

// GrantsAccess is true when visits at the gym are covered in the current cycle.
func (s Status) GrantsAccess() bool {
	return s == StatusActive || s == StatusPendingRemoval || s == StatusPendingReplacement
}

// Action is a user or system operation on one selection.
type Action string

const (
	ActionRemove   Action = "remove"   // user removes the gym
	ActionReplace  Action = "replace"  // user swaps the gym for another
	ActionUndo     Action = "undo"     // user cancels a pending removal/replacement
	ActionActivate Action = "activate" // billing boundary reached for a pending gym
	ActionExpire   Action = "expire"   // billing boundary reached for a leaving gym
)

var ErrInvalidTransition = errors.New("invalid daily access status transition")

// Transition returns the status a selection moves to when action is applied.
func Transition(from Status, action Action) (Status, error) {
	switch action {
	case ActionRemove:
		switch from {
		case StatusActive:
			return StatusPendingRemoval, nil
		case StatusPending:
			// never took effect, so it can go right away
			return StatusRemoved, nil
		}
	case ActionReplace:
		if from == StatusActive {
			return StatusPendingReplacement, nil
		}
	case ActionUndo:
		if from == StatusPendingRemoval || from == StatusPendingReplacement {
			return StatusActive, nil
		}
	case ActionActivate:
		if from == StatusPending {
			return StatusActive, nil
		}
	case ActionExpire:
		if from == StatusPendingRemoval || from == StatusPendingReplacement {
			return StatusRemoved, nil
		}
	}
	return from, fmt.Errorf("%w: cannot %s a gym in status %q", ErrInvalidTransition, action, from)
}

// Selection is the subset of a selection row the rules need.
type Selection struct {
	ClubID          int64
	Status          Status
	SelectedAt      time.Time
	EffectiveFrom   time.Time
	EffectiveTo     *time.Time
	ReplacingClubID *int64
}

// SlotsUsed counts selections that occupy a slot in the next cycle.
func SlotsUsed(selections []Selection) int {
	n := 0
	for _, s := range selections {
		if s.Status.CountsTowardSlots() {
			n++
		}
	}
	return n
}

// HasLive reports whether any selection is not removed.
func HasLive(selections []Selection) bool {
	for _, s := range selections {
		if s.Status.IsLive() {
			return true
		}
	}
	return false
}

// Change describes one status update produced by ApplyDue.
type Change struct {
	ClubID int64
	From   Status
	To     Status
}

// ApplyDue returns the changes that take effect at the given instant:
// pending gyms whose effective_from has passed become active and leaving
// gyms whose effective_to has passed are removed.
func ApplyDue(selections []Selection, at time.Time) []Change {
	var changes []Change
	for _, s := range selections {
		switch s.Status {
		case StatusPending:
			if !s.EffectiveFrom.After(at) {
				changes = append(changes, Change{ClubID: s.ClubID, From: s.Status, To: StatusActive})
			}
		case StatusPendingRemoval, StatusPendingReplacement:
			if s.EffectiveTo != nil && !s.EffectiveTo.After(at) {
				changes = append(changes, Change{ClubID: s.ClubID, From: s.Status, To: StatusRemoved})
			}
		}
	}
	return changes
}
