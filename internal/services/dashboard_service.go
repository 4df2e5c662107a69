package services

import (
	"errors"
	"fmt"
	"time"

	"fitpass_backend/internal/labels"
	"fitpass_backend/internal/models"
	"fitpass_backend/internal/repositories"
)

// DashboardService assembles the home screen summary.
type DashboardService interface {
	GetUserDashboard(userID int64) (*models.UserDashboard, error)
}

type dashboardService struct {
	membershipRepo  repositories.MembershipRepository
	bookingRepo     repositories.BookingRepository
	visitRepo       repositories.VisitRepository
	selectedGymRepo repositories.SelectedGymRepository
	favoriteRepo    repositories.FavoriteRepository
	now             func() time.Time
}

// DashboardDeps groups the repositories the dashboard reads from.
type DashboardDeps struct {
	Memberships  repositories.MembershipRepository
	Bookings     repositories.BookingRepository
	Visits       repositories.VisitRepository
	SelectedGyms repositories.SelectedGymRepository
	Favorites    repositories.FavoriteRepository
}

func NewDashboardService(deps DashboardDeps) DashboardService {
	return &dashboardService{
		membershipRepo:  deps.Memberships,
		bookingRepo:     deps.Bookings,
		visitRepo:       deps.Visits,
		selectedGymRepo: deps.SelectedGyms,
		favoriteRepo:    deps.Favorites,
		now:             time.Now,
	}
}

// GetUserDashboard works without a membership; credit fields then stay zero.
func (s *dashboardService) GetUserDashboard(userID int64) (*models.UserDashboard, error) {
	now := s.now()
	d := &models.UserDashboard{MembershipStatus: models.MembershipStatusInactive}

	periodStart := now.AddDate(0, -1, 0)
	m, err := s.membershipRepo.GetActiveMembership(userID)
	switch {
	case err == nil:
		d.CreditsTotal = m.Credits
		d.CreditsUsed = m.CreditsUsed
		d.CreditsRemaining = m.Remaining()
		next := m.NextBillingDate
		d.NextBillingDate = &next
		d.MembershipStatus = m.DisplayStatus()
		periodStart = m.StartDate
		if d.DailyAccessGymsCount, err = s.selectedGymRepo.CountGranting(userID); err != nil {
			return nil, fmt.Errorf("failed to count daily access gyms: %w", err)
		}
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}
	d.MembershipStatusLabel = labels.Membership(d.MembershipStatus)

	if d.UpcomingBookingsCount, err = s.bookingRepo.CountUpcoming(userID, now); err != nil {
		return nil, fmt.Errorf("failed to count upcoming bookings: %w", err)
	}
	if d.UpcomingBookingsCount > 0 {
		next, err := s.bookingRepo.GetNextUpcoming(userID, now)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("failed to load next booking: %w", err)
		}
		if next != nil {
			d.NextBooking = withLabel(next)
		}
	}
	if d.VisitsThisPeriod, err = s.visitRepo.CountVisitsSince(userID, periodStart); err != nil {
		return nil, fmt.Errorf("failed to count visits: %w", err)
	}
	if d.FavoritesCount, err = s.favoriteRepo.CountFavorites(userID); err != nil {
		return nil, fmt.Errorf("failed to count favorites: %w", err)
	}
	return d, nil
}
