package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fitpass_backend/internal/labels"
	"fitpass_backend/internal/metrics"
	"fitpass_backend/internal/models"
	"fitpass_backend/internal/repositories"
	"fitpass_backend/pkg/utils"

	"github.com/google/uuid"
)

// --- Custom Service Errors for Booking ---
var (
	ErrBookingNotFound       = errors.New("booking not found")
	ErrClassFull             = errors.New("class is fully booked")
	ErrClassStarted          = errors.New("class has already started")
	ErrAlreadyBooked         = errors.New("class is already booked")
	ErrDirectVisitExists     = errors.New("a visit to this club is already booked for that day")
	ErrInsufficientCredits   = errors.New("not enough credits")
	ErrBookingNotCancellable = errors.New("booking cannot be cancelled")
	ErrBookingInPast         = errors.New("past bookings cannot be cancelled")
	ErrAlreadyCheckedIn      = errors.New("booking is already checked in")
	ErrBookingNotConfirmed   = errors.New("booking is not confirmed")
	ErrBookingValidation     = errors.New("booking data validation error")
)

const (
	bookingCodeLength = 8
	kindClass         = "class"
	kindDirectVisit   = "direct_visit"
)

// --- Booking DTOs ---
type CreateBookingRequest struct {
	ClassID int64 `json:"class_id" binding:"required"`
}

type DirectVisitRequest struct {
	ClubID int64   `json:"club_id" binding:"required"`
	Date   *string `json:"date"` // YYYY-MM-DD, defaults to today
}

type CheckInRequest struct {
	BookingCode string `json:"booking_code" binding:"required"`
}

// CancelResult reports what a cancellation gave back.
type CancelResult struct {
	Booking         *models.Booking `json:"booking"`
	CreditsRefunded int             `json:"credits_refunded"`
}

// --- BookingService Interface ---
type BookingService interface {
	BookClass(userID int64, req CreateBookingRequest) (*models.Booking, error)
	BookDirectVisit(userID int64, req DirectVisitRequest) (*models.Booking, error)
	GetBookings(filters models.BookingFilters) ([]models.Booking, int, error)
	GetBooking(actor Actor, id int64) (*models.Booking, error)
	CancelBooking(userID, id int64) (*CancelResult, error)
	CheckIn(actor Actor, code string) (*models.Booking, error)
	GetVisits(userID int64, page, pageSize int) ([]models.Visit, int, error)
}

// --- bookingService Implementation ---
type bookingService struct {
	bookingRepo     repositories.BookingRepository
	classRepo       repositories.ClassRepository
	clubRepo        repositories.ClubRepository
	membershipRepo  repositories.MembershipRepository
	selectedGymRepo repositories.SelectedGymRepository
	visitRepo       repositories.VisitRepository
	db              *sql.DB
	cancelWindow    time.Duration
	loc             *time.Location
	now             func() time.Time
}

// BookingDeps groups the repositories the booking service works with.
type BookingDeps struct {
	Bookings     repositories.BookingRepository
	Classes      repositories.ClassRepository
	Clubs        repositories.ClubRepository
	Memberships  repositories.MembershipRepository
	SelectedGyms repositories.SelectedGymRepository
	Visits       repositories.VisitRepository
}

// NewBookingService creates a new instance of BookingService.
func NewBookingService(deps BookingDeps, db *sql.DB, cancelWindow time.Duration, loc *time.Location) BookingService {
	if loc == nil {
		loc = time.UTC
	}
	return &bookingService{
		bookingRepo:     deps.Bookings,
		classRepo:       deps.Classes,
		clubRepo:        deps.Clubs,
		membershipRepo:  deps.Memberships,
		selectedGymRepo: deps.SelectedGyms,
		visitRepo:       deps.Visits,
		db:              db,
		cancelWindow:    cancelWindow,
		loc:             loc,
		now:             time.Now,
	}
}

func newBookingCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:bookingCodeLength]
}

func withLabel(b *models.Booking) *models.Booking {
	b.StatusLabel = labels.Booking(b.Status)
	return b
}

// chargeVisit decides what a visit at clubID costs the user and charges it.
// Visits at a pinned Daily Access gym are free. The selection is checked even
// when the plan no longer includes Daily Access: gyms pending removal after a
// plan change stay covered until the next billing date.
func (s *bookingService) chargeVisit(tx *sql.Tx, m *models.Membership, clubID int64, credits int) (int, bool, error) {
	ok, err := s.selectedGymRepo.HasAccess(tx, m.UserID, clubID)
	if err != nil {
		return 0, false, fmt.Errorf("failed to check daily access: %w", err)
	}
	if ok {
		return 0, true, nil
	}
	if credits == 0 {
		return 0, false, nil
	}
	if m.Remaining() < credits {
		return 0, false, fmt.Errorf("%w: %d needed, %d left", ErrInsufficientCredits, credits, m.Remaining())
	}
	if _, err := s.membershipRepo.AddCreditsUsed(tx, m.ID, credits); err != nil {
		if errors.Is(err, repositories.ErrCheckViolation) {
			return 0, false, ErrInsufficientCredits
		}
		return 0, false, fmt.Errorf("failed to charge credits: %w", err)
	}
	return credits, false, nil
}

// BookClass reserves a spot in a class. The class row stays locked for the
// whole transaction so concurrent bookings cannot overfill it.
func (s *bookingService) BookClass(userID int64, req CreateBookingRequest) (*models.Booking, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	class, err := s.classRepo.GetClassForUpdate(tx, req.ClassID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrClassNotFound
		}
		return nil, fmt.Errorf("failed to load class: %w", err)
	}
	if class.HasStarted(s.now()) {
		return nil, ErrClassStarted
	}
	if class.BookedSpots >= class.Capacity {
		return nil, ErrClassFull
	}
	booked, err := s.bookingRepo.HasConfirmedBooking(tx, userID, class.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing booking: %w", err)
	}
	if booked {
		return nil, ErrAlreadyBooked
	}

	m, err := activeMembershipForUpdate(tx, s.membershipRepo, userID)
	if err != nil {
		return nil, err
	}
	charged, dailyAccess, err := s.chargeVisit(tx, m, class.ClubID, class.Credits)
	if err != nil {
		return nil, err
	}
	if err := s.classRepo.AdjustBookedSpots(tx, class.ID, 1); err != nil {
		if errors.Is(err, repositories.ErrCheckViolation) {
			return nil, ErrClassFull
		}
		return nil, fmt.Errorf("failed to reserve spot: %w", err)
	}

	booking := &models.Booking{
		UserID:        userID,
		ClubID:        class.ClubID,
		ClassID:       &class.ID,
		Status:        string(models.BookingStatusConfirmed),
		CreditsUsed:   charged,
		BookingCode:   newBookingCode(),
		ScheduledAt:   class.StartTime,
		IsDailyAccess: dailyAccess,
	}
	if _, err := s.bookingRepo.CreateBooking(tx, booking); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrAlreadyBooked
		}
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit booking: %w", err)
	}
	metrics.RecordBooking("created", kindClass)
	return s.GetBooking(Actor{UserID: userID}, booking.ID)
}

// BookDirectVisit books a gym visit without a class, at most one per club and day.
func (s *bookingService) BookDirectVisit(userID int64, req DirectVisitRequest) (*models.Booking, error) {
	now := s.now().In(s.loc)
	today := startOfDay(now)
	day := today
	if req.Date != nil && strings.TrimSpace(*req.Date) != "" {
		parsed, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(*req.Date), s.loc)
		if err != nil {
			return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrBookingValidation)
		}
		if parsed.Before(today) {
			return nil, fmt.Errorf("%w: date cannot be in the past", ErrBookingValidation)
		}
		day = parsed
	}
	scheduledAt := day
	if day.Equal(today) {
		scheduledAt = now
	}

	club, err := s.clubRepo.GetClubByID(req.ClubID, 0)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrClubNotFound
		}
		return nil, fmt.Errorf("failed to load club: %w", err)
	}
	if !club.IsActive {
		return nil, ErrClubNotFound
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// the membership row lock serialises concurrent visits of one user
	m, err := activeMembershipForUpdate(tx, s.membershipRepo, userID)
	if err != nil {
		return nil, err
	}
	exists, err := s.bookingRepo.HasDirectVisit(tx, userID, club.ID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to check existing visit: %w", err)
	}
	if exists {
		return nil, ErrDirectVisitExists
	}
	charged, dailyAccess, err := s.chargeVisit(tx, m, club.ID, club.Credits)
	if err != nil {
		return nil, err
	}

	booking := &models.Booking{
		UserID:        userID,
		ClubID:        club.ID,
		Status:        string(models.BookingStatusConfirmed),
		CreditsUsed:   charged,
		BookingCode:   newBookingCode(),
		ScheduledAt:   scheduledAt,
		IsDailyAccess: dailyAccess,
	}
	if _, err := s.bookingRepo.CreateBooking(tx, booking); err != nil {
		return nil, fmt.Errorf("failed to create visit booking: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit visit booking: %w", err)
	}
	metrics.RecordBooking("created", kindDirectVisit)
	return s.GetBooking(Actor{UserID: userID}, booking.ID)
}

func (s *bookingService) GetBookings(filters models.BookingFilters) ([]models.Booking, int, error) {
	filters.Page, filters.PageSize = normalizePage(filters.Page, filters.PageSize)
	if filters.Status != nil && !models.IsValidBookingStatus(*filters.Status) {
		return nil, 0, fmt.Errorf("%w: invalid status '%s'", ErrBookingValidation, *filters.Status)
	}
	bookings, total, err := s.bookingRepo.GetBookings(filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get bookings: %w", err)
	}
	for i := range bookings {
		withLabel(&bookings[i])
	}
	return bookings, total, nil
}

// GetBooking returns a booking visible to the actor: its owner, the club owner or an admin.
func (s *bookingService) GetBooking(actor Actor, id int64) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetBookingByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking by ID: %w", err)
	}
	if booking.UserID != actor.UserID && !actor.IsAdmin() {
		if actor.Role != models.RoleClub {
			return nil, ErrBookingNotFound
		}
		club, err := s.clubRepo.GetClubByID(booking.ClubID, 0)
		if err != nil || !canManageClub(actor, club) {
			return nil, ErrBookingNotFound
		}
	}
	return withLabel(booking), nil
}

// CancelBooking cancels the caller's confirmed booking. Credits come back only
// when cancelling before the cancellation window opens; the class spot is
// always released.
func (s *bookingService) CancelBooking(userID, id int64) (*CancelResult, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	booking, err := s.bookingRepo.GetBookingForUpdate(tx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if booking.UserID != userID {
		return nil, ErrBookingNotFound
	}
	if booking.Status != string(models.BookingStatusConfirmed) {
		return nil, fmt.Errorf("%w: status is %s", ErrBookingNotCancellable, booking.Status)
	}

	now := s.now()
	refundable := true
	kind := kindDirectVisit
	if booking.ClassID != nil {
		kind = kindClass
		class, err := s.classRepo.GetClassForUpdate(tx, *booking.ClassID)
		if err != nil {
			return nil, fmt.Errorf("failed to load class: %w", err)
		}
		if class.HasStarted(now) {
			return nil, ErrBookingInPast
		}
		refundable = now.Before(class.StartTime.Add(-s.cancelWindow))
		if err := s.classRepo.AdjustBookedSpots(tx, class.ID, -1); err != nil {
			return nil, fmt.Errorf("failed to release spot: %w", err)
		}
	} else if startOfDay(booking.ScheduledAt.In(s.loc)).Before(startOfDay(now.In(s.loc))) {
		return nil, ErrBookingInPast
	}

	if err := s.bookingRepo.MarkCancelled(tx, booking.ID, now); err != nil {
		if errors.Is(err, repositories.ErrCheckViolation) {
			return nil, ErrBookingNotCancellable
		}
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}
	refunded := 0
	if refundable {
		if refunded, err = refundCredits(tx, s.membershipRepo, userID, booking.CreditsUsed); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit cancellation: %w", err)
	}
	metrics.RecordBooking("cancelled", kind)

	updated, err := s.GetBooking(Actor{UserID: userID}, id)
	if err != nil {
		return nil, err
	}
	return &CancelResult{Booking: updated, CreditsRefunded: refunded}, nil
}

// CheckIn marks a booking as completed at the club's front desk and records the visit.
func (s *bookingService) CheckIn(actor Actor, code string) (*models.Booking, error) {
	code = strings.TrimSpace(code)
	if len(code) != bookingCodeLength {
		return nil, fmt.Errorf("%w: booking code must be %d characters", ErrBookingValidation, bookingCodeLength)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	booking, err := s.bookingRepo.GetBookingByCodeForUpdate(tx, code)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	club, err := s.clubRepo.GetClubByID(booking.ClubID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load club: %w", err)
	}
	if !canManageClub(actor, club) {
		return nil, ErrForbidden
	}
	switch booking.Status {
	case string(models.BookingStatusConfirmed):
	case string(models.BookingStatusCompleted):
		return nil, ErrAlreadyCheckedIn
	default:
		return nil, fmt.Errorf("%w: status is %s", ErrBookingNotConfirmed, booking.Status)
	}

	now := s.now()
	if err := s.bookingRepo.MarkCompleted(tx, booking.ID, now); err != nil {
		return nil, fmt.Errorf("failed to complete booking: %w", err)
	}
	visit := &models.Visit{
		UserID:      booking.UserID,
		ClubID:      booking.ClubID,
		BookingID:   &booking.ID,
		CreditsUsed: booking.CreditsUsed,
		VisitedAt:   now,
	}
	if _, err := s.visitRepo.CreateVisit(tx, visit); err != nil {
		return nil, fmt.Errorf("failed to record visit: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit check-in: %w", err)
	}

	kind := kindDirectVisit
	if booking.ClassID != nil {
		kind = kindClass
	}
	metrics.RecordBooking("checked_in", kind)
	utils.LogInfo("Booking checked in", map[string]interface{}{"booking_id": booking.ID, "club_id": booking.ClubID})
	return s.GetBooking(Actor{UserID: booking.UserID}, booking.ID)
}

func (s *bookingService) GetVisits(userID int64, page, pageSize int) ([]models.Visit, int, error) {
	page, pageSize = normalizePage(page, pageSize)
	visits, total, err := s.visitRepo.GetVisits(userID, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get visits: %w", err)
	}
	return visits, total, nil
}
