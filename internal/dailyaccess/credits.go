package dailyaccess

import "sort"

// Allocation is the share of a Daily Access membership's credits attributed to one gym.
type Allocation struct {
	ClubID  int64 `json:"club_id"`
	Credits int   `json:"credits"`
}

// SplitCredits divides total credits over n gyms. Every gym gets total/n and
// the remainder goes one credit at a time to the first gyms.
func SplitCredits(total, n int) []int {
	if n <= 0 || total < 0 {
		return nil
	}
	shares := make([]int, n)
	base, rest := total/n, total%n
	for i := range shares {
		shares[i] = base
		if i < rest {
			shares[i]++
		}
	}
	return shares
}

// DistributeCredits allocates total credits across the selections that grant
// access this cycle, earliest selection first.
func DistributeCredits(total int, selections []Selection) []Allocation {
	var granting []Selection
	for _, s := range selections {
		if s.Status.GrantsAccess() {
			granting = append(granting, s)
		}
	}
	sort.SliceStable(granting, func(i, j int) bool {
		if granting[i].SelectedAt.Equal(granting[j].SelectedAt) {
			return granting[i].ClubID < granting[j].ClubID
		}
		return granting[i].SelectedAt.Before(granting[j].SelectedAt)
	})

	shares := SplitCredits(total, len(granting))
	out := make([]Allocation, 0, len(granting))
	for i, s := range granting {
		out = append(out, Allocation{ClubID: s.ClubID, Credits: shares[i]})
	}
	return out
}
