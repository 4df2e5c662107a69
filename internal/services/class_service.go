package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fitpass_backend/internal/metrics"
	"fitpass_backend/internal/models"
	"fitpass_backend/internal/repositories"
	"fitpass_backend/pkg/utils"
)

var (
	ErrClassNotFound       = errors.New("class not found")
	ErrClassValidation     = errors.New("class data validation error")
	ErrClassHasBookings    = errors.New("class has confirmed bookings")
	ErrCapacityBelowBooked = errors.New("capacity cannot be lower than booked spots")
)

// ClassService manages the class schedule of clubs.
type ClassService interface {
	ListClasses(filters models.ClassFilters) ([]models.Class, int, error)
	GetClass(id int64) (*models.Class, error)
	CreateClass(actor Actor, clubID int64, payload models.ClassPayload) (*models.Class, error)
	UpdateClass(actor Actor, id int64, payload models.ClassPayload) (*models.Class, error)
	DeleteClass(actor Actor, id int64, cancelBookings bool) (int, error) // number of bookings cancelled
}

type classService struct {
	classRepo      repositories.ClassRepository
	clubRepo       repositories.ClubRepository
	bookingRepo    repositories.BookingRepository
	membershipRepo repositories.MembershipRepository
	db             *sql.DB
	loc            *time.Location
	now            func() time.Time
}

func NewClassService(
	classRepo repositories.ClassRepository,
	clubRepo repositories.ClubRepository,
	bookingRepo repositories.BookingRepository,
	membershipRepo repositories.MembershipRepository,
	db *sql.DB,
	loc *time.Location,
) ClassService {
	if loc == nil {
		loc = time.UTC
	}
	return &classService{
		classRepo:      classRepo,
		clubRepo:       clubRepo,
		bookingRepo:    bookingRepo,
		membershipRepo: membershipRepo,
		db:             db,
		loc:            loc,
		now:            time.Now,
	}
}

// ListClasses resolves a date filter to that calendar day in the configured timezone.
func (s *classService) ListClasses(filters models.ClassFilters) ([]models.Class, int, error) {
	filters.Page, filters.PageSize = normalizePage(filters.Page, filters.PageSize)
	if filters.Date != nil && *filters.Date != "" {
		day, err := time.ParseInLocation("2006-01-02", *filters.Date, s.loc)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrClassValidation)
		}
		end := day.AddDate(0, 0, 1)
		filters.From, filters.To = &day, &end
	}
	if filters.From != nil && filters.To != nil && !filters.To.After(*filters.From) {
		return nil, 0, fmt.Errorf("%w: 'to' must be after 'from'", ErrClassValidation)
	}
	classes, total, err := s.classRepo.GetClasses(filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list classes: %w", err)
	}
	return classes, total, nil
}

func (s *classService) GetClass(id int64) (*models.Class, error) {
	class, err := s.classRepo.GetClassByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrClassNotFound
		}
		return nil, fmt.Errorf("failed to get class: %w", err)
	}
	return class, nil
}

func (s *classService) authorize(actor Actor, clubID int64) error {
	club, err := s.clubRepo.GetClubByID(clubID, 0)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrClubNotFound
		}
		return fmt.Errorf("failed to load club: %w", err)
	}
	if !canManageClub(actor, club) {
		return ErrForbidden
	}
	return nil
}

func parseClassTime(field string, value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(*value))
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC3339", ErrClassValidation, field)
	}
	return &t, nil
}

func applyClassPayload(class *models.Class, p models.ClassPayload) error {
	if p.Name != nil {
		if utils.IsEmpty(*p.Name) {
			return fmt.Errorf("%w: name cannot be empty", ErrClassValidation)
		}
		class.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		class.Description = utils.NewNullString(*p.Description)
	}
	if p.Instructor != nil {
		class.Instructor = utils.NewNullString(*p.Instructor)
	}
	if p.Intensity != nil {
		class.Intensity = utils.NewNullString(*p.Intensity)
	}
	start, err := parseClassTime("start_time", p.StartTime)
	if err != nil {
		return err
	}
	if start != nil {
		class.StartTime = *start
	}
	end, err := parseClassTime("end_time", p.EndTime)
	if err != nil {
		return err
	}
	if end != nil {
		class.EndTime = *end
	}
	if !class.EndTime.After(class.StartTime) {
		return fmt.Errorf("%w: end_time must be after start_time", ErrClassValidation)
	}
	if p.Capacity != nil {
		class.Capacity = *p.Capacity
	}
	if class.Capacity < 1 {
		return fmt.Errorf("%w: capacity must be at least 1", ErrClassValidation)
	}
	if class.Capacity < class.BookedSpots {
		return fmt.Errorf("%w: %d spots are already booked", ErrCapacityBelowBooked, class.BookedSpots)
	}
	if p.Credits != nil {
		if *p.Credits < 0 {
			return fmt.Errorf("%w: credits cannot be negative", ErrClassValidation)
		}
		class.Credits = *p.Credits
	}
	return nil
}

func (s *classService) CreateClass(actor Actor, clubID int64, payload models.ClassPayload) (*models.Class, error) {
	if err := s.authorize(actor, clubID); err != nil {
		return nil, err
	}
	if payload.Name == nil || payload.StartTime == nil || payload.EndTime == nil || payload.Capacity == nil {
		return nil, fmt.Errorf("%w: name, start_time, end_time and capacity are required", ErrClassValidation)
	}
	class := &models.Class{ClubID: clubID, Credits: 1}
	if err := applyClassPayload(class, payload); err != nil {
		return nil, err
	}
	if !class.StartTime.After(s.now()) {
		return nil, fmt.Errorf("%w: start_time must be in the future", ErrClassValidation)
	}
	id, err := s.classRepo.CreateClass(s.db, class)
	if err != nil {
		return nil, fmt.Errorf("failed to create class: %w", err)
	}
	return s.GetClass(id)
}

func (s *classService) UpdateClass(actor Actor, id int64, payload models.ClassPayload) (*models.Class, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	class, err := s.classRepo.GetClassForUpdate(tx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrClassNotFound
		}
		return nil, fmt.Errorf("failed to load class: %w", err)
	}
	if err := s.authorize(actor, class.ClubID); err != nil {
		return nil, err
	}
	if err := applyClassPayload(class, payload); err != nil {
		return nil, err
	}
	if err := s.classRepo.UpdateClass(tx, class); err != nil {
		if errors.Is(err, repositories.ErrCheckViolation) {
			return nil, ErrCapacityBelowBooked
		}
		return nil, fmt.Errorf("failed to update class: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit class update: %w", err)
	}
	return s.GetClass(id)
}

// DeleteClass hides a class from the schedule. With confirmed bookings it refuses unless
// cancelBookings is set, in which case every booking is cancelled and refunded
// in the same transaction.
func (s *classService) DeleteClass(actor Actor, id int64, cancelBookings bool) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	class, err := s.classRepo.GetClassForUpdate(tx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return 0, ErrClassNotFound
		}
		return 0, fmt.Errorf("failed to load class: %w", err)
	}
	if err := s.authorize(actor, class.ClubID); err != nil {
		return 0, err
	}

	bookings, err := s.bookingRepo.GetConfirmedByClass(tx, id)
	if err != nil {
		return 0, fmt.Errorf("failed to load class bookings: %w", err)
	}
	if len(bookings) > 0 && !cancelBookings {
		return 0, fmt.Errorf("%w: %d bookings", ErrClassHasBookings, len(bookings))
	}

	now := s.now()
	for _, b := range bookings {
		if err := s.bookingRepo.MarkCancelled(tx, b.ID, now); err != nil {
			return 0, fmt.Errorf("failed to cancel booking %d: %w", b.ID, err)
		}
		if _, err := refundCredits(tx, s.membershipRepo, b.UserID, b.CreditsUsed); err != nil {
			return 0, err
		}
	}
	if err := s.classRepo.DeleteClass(tx, id); err != nil {
		return 0, fmt.Errorf("failed to delete class: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit class deletion: %w", err)
	}
	for range bookings {
		metrics.RecordBooking("cancelled", "class")
	}
	utils.LogInfo("Class deleted", map[string]interface{}{"class_id": id, "cancelled_bookings": len(bookings)})
	return len(bookings), nil
}
