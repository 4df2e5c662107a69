package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"fitpass_backend/internal/billing"
	"fitpass_backend/internal/models"
	"fitpass_backend/internal/repositories"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

// Repository fakes embed the interface so each test only implements what it touches.

func newTxMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

type fakeMemberships struct {
	repositories.MembershipRepository
	m       *models.Membership
	plans   map[int64]*models.MembershipPlan
	updates int
}

func (f *fakeMemberships) active() (*models.Membership, error) {
	if f.m == nil || !f.m.IsActive {
		return nil, repositories.ErrNotFound
	}
	return f.m, nil
}

func (f *fakeMemberships) GetActiveMembership(int64) (*models.Membership, error) { return f.active() }

func (f *fakeMemberships) GetActiveMembershipForUpdate(repositories.SQLExecutor, int64) (*models.Membership, error) {
	return f.active()
}

func (f *fakeMemberships) GetMembershipByIDForUpdate(_ repositories.SQLExecutor, id int64) (*models.Membership, error) {
	if f.m == nil || f.m.ID != id {
		return nil, repositories.ErrNotFound
	}
	return f.m, nil
}

func (f *fakeMemberships) GetMembershipBySubscriptionForUpdate(_ repositories.SQLExecutor, sub string) (*models.Membership, error) {
	if f.m == nil || f.m.StripeSubscriptionID == nil || *f.m.StripeSubscriptionID != sub {
		return nil, repositories.ErrNotFound
	}
	return f.m, nil
}

func (f *fakeMemberships) GetPlanByID(id int64) (*models.MembershipPlan, error) {
	p, ok := f.plans[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return p, nil
}

func (f *fakeMemberships) AddCreditsUsed(_ repositories.SQLExecutor, id int64, delta int) (int, error) {
	if f.m == nil || f.m.ID != id {
		return 0, repositories.ErrCheckViolation
	}
	used := f.m.CreditsUsed + delta
	if used < 0 || used > f.m.Credits {
		return 0, repositories.ErrCheckViolation
	}
	f.m.CreditsUsed = used
	return used, nil
}

func (f *fakeMemberships) UpdateMembership(_ repositories.SQLExecutor, m *models.Membership) error {
	f.m = m
	f.updates++
	return nil
}

type fakeClasses struct {
	repositories.ClassRepository
	classes map[int64]*models.Class
}

func (f *fakeClasses) GetClassForUpdate(_ repositories.SQLExecutor, id int64) (*models.Class, error) {
	c, ok := f.classes[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeClasses) AdjustBookedSpots(_ repositories.SQLExecutor, id int64, delta int) error {
	c := f.classes[id]
	if c.BookedSpots+delta < 0 || c.BookedSpots+delta > c.Capacity {
		return repositories.ErrCheckViolation
	}
	c.BookedSpots += delta
	return nil
}

func (f *fakeClasses) GetClassByID(id int64) (*models.Class, error) {
	return f.GetClassForUpdate(nil, id)
}

func (f *fakeClasses) CreateClass(_ repositories.SQLExecutor, c *models.Class) (int64, error) {
	c.ID = int64(len(f.classes) + 100)
	stored := *c
	f.classes[c.ID] = &stored
	return c.ID, nil
}

func (f *fakeClasses) UpdateClass(_ repositories.SQLExecutor, c *models.Class) error {
	if _, ok := f.classes[c.ID]; !ok {
		return repositories.ErrNotFound
	}
	stored := *c
	f.classes[c.ID] = &stored
	return nil
}

func (f *fakeClasses) DeleteClass(_ repositories.SQLExecutor, id int64) error {
	if _, ok := f.classes[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.classes, id)
	return nil
}

type fakeBookings struct {
	repositories.BookingRepository
	bookings []*models.Booking
}

func (f *fakeBookings) find(id int64) (*models.Booking, error) {
	for _, b := range f.bookings {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeBookings) CreateBooking(_ repositories.SQLExecutor, b *models.Booking) (*models.Booking, error) {
	b.ID = int64(len(f.bookings) + 1)
	f.bookings = append(f.bookings, b)
	return b, nil
}

func (f *fakeBookings) GetBookingByID(id int64) (*models.Booking, error) {
	b, err := f.find(id)
	if err != nil {
		return nil, err
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBookings) GetBookingForUpdate(_ repositories.SQLExecutor, id int64) (*models.Booking, error) {
	return f.GetBookingByID(id)
}

func (f *fakeBookings) HasConfirmedBooking(_ repositories.SQLExecutor, userID, classID int64) (bool, error) {
	for _, b := range f.bookings {
		if b.UserID == userID && b.ClassID != nil && *b.ClassID == classID && b.Status == "confirmed" {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBookings) HasDirectVisit(_ repositories.SQLExecutor, userID, clubID int64, from, to time.Time) (bool, error) {
	for _, b := range f.bookings {
		if b.UserID == userID && b.ClubID == clubID && b.ClassID == nil && b.Status != "cancelled" &&
			!b.ScheduledAt.Before(from) && b.ScheduledAt.Before(to) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBookings) MarkCancelled(_ repositories.SQLExecutor, id int64, at time.Time) error {
	b, err := f.find(id)
	if err != nil {
		return err
	}
	b.Status = "cancelled"
	b.CancelledAt = &at
	return nil
}

func (f *fakeBookings) GetBookingByCodeForUpdate(_ repositories.SQLExecutor, code string) (*models.Booking, error) {
	for _, b := range f.bookings {
		if b.BookingCode == code {
			cp := *b
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeBookings) GetConfirmedByClass(_ repositories.SQLExecutor, classID int64) ([]models.Booking, error) {
	var out []models.Booking
	for _, b := range f.bookings {
		if b.ClassID != nil && *b.ClassID == classID && b.Status == "confirmed" {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBookings) MarkCompleted(_ repositories.SQLExecutor, id int64, at time.Time) error {
	b, err := f.find(id)
	if err != nil {
		return err
	}
	b.Status = "completed"
	b.CheckedInAt = &at
	return nil
}

type fakeVisits struct {
	repositories.VisitRepository
	visits []models.Visit
}

func (f *fakeVisits) CreateVisit(_ repositories.SQLExecutor, v *models.Visit) (int64, error) {
	v.ID = int64(len(f.visits) + 1)
	f.visits = append(f.visits, *v)
	return v.ID, nil
}

func (f *fakeVisits) HasVisited(userID, clubID int64) (bool, error) {
	for _, v := range f.visits {
		if v.UserID == userID && v.ClubID == clubID {
			return true, nil
		}
	}
	return false, nil
}

type fakeClubs struct {
	repositories.ClubRepository
	clubs       map[int64]*models.Club
	lastFilters models.ClubFilters
}

func (f *fakeClubs) GetClubByID(id, _ int64) (*models.Club, error) {
	c, ok := f.clubs[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeClubs) GetClubs(filters models.ClubFilters, _ int64) ([]models.Club, int, error) {
	f.lastFilters = filters
	var out []models.Club
	for _, c := range f.clubs {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (f *fakeClubs) UpdateClub(_ repositories.SQLExecutor, c *models.Club) error {
	if _, ok := f.clubs[c.ID]; !ok {
		return repositories.ErrNotFound
	}
	stored := *c
	f.clubs[c.ID] = &stored
	return nil
}

type fakeSelectedGyms struct {
	repositories.SelectedGymRepository
	rows    []models.SelectedGym
	payouts []repositories.PayoutRow
}

func (f *fakeSelectedGyms) GetSelections(_ repositories.SQLExecutor, userID int64, includeRemoved bool) ([]models.SelectedGym, error) {
	var out []models.SelectedGym
	for _, r := range f.rows {
		if r.UserID == userID && (includeRemoved || r.Status != "removed") {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSelectedGyms) CreateSelection(_ repositories.SQLExecutor, sg *models.SelectedGym) (int64, error) {
	for _, r := range f.rows {
		if r.UserID == sg.UserID && r.ClubID == sg.ClubID && r.Status != "removed" {
			return 0, repositories.ErrDuplicateKey
		}
	}
	sg.ID = int64(len(f.rows) + 1)
	f.rows = append(f.rows, *sg)
	return sg.ID, nil
}

func (f *fakeSelectedGyms) UpdateSelection(_ repositories.SQLExecutor, sg *models.SelectedGym) error {
	for i := range f.rows {
		if f.rows[i].ID == sg.ID {
			f.rows[i] = *sg
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (f *fakeSelectedGyms) HasAccess(_ repositories.SQLExecutor, userID, clubID int64) (bool, error) {
	for _, r := range f.rows {
		if r.UserID == userID && r.ClubID == clubID &&
			(r.Status == "active" || r.Status == "pending_removal" || r.Status == "pending_replacement") {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSelectedGyms) CountGranting(userID int64) (int, error) {
	n := 0
	for _, r := range f.rows {
		if r.UserID == userID && (r.Status == "active" || r.Status == "pending_removal" || r.Status == "pending_replacement") {
			n++
		}
	}
	return n, nil
}

func (f *fakeSelectedGyms) GetPayoutRows() ([]repositories.PayoutRow, error) { return f.payouts, nil }

func (f *fakeSelectedGyms) status(clubID int64) string {
	for _, r := range f.rows {
		if r.ClubID == clubID && r.Status != "removed" {
			return r.Status
		}
	}
	return "removed"
}

type fakeUsers struct {
	repositories.UserRepository
	users map[int64]*models.User
}

func (f *fakeUsers) FindUserByID(id int64) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) FindUserByEmail(email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUsers) FindUserByStripeCustomerID(customerID string) (*models.User, error) {
	for _, u := range f.users {
		if u.StripeCustomerID != nil && *u.StripeCustomerID == customerID {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

type fakePayments struct {
	repositories.PaymentRepository
	recorded map[string]bool
}

func (f *fakePayments) RecordPayment(_ repositories.SQLExecutor, p *models.Payment) (bool, error) {
	key := p.InvoiceID + "/" + p.Status
	if f.recorded[key] {
		return false, nil
	}
	f.recorded[key] = true
	return true, nil
}

// fakeGateway answers webhook parsing and the subscription calls; the rest panic via the nil embed.
type fakeGateway struct {
	billing.Gateway
	event          *billing.Event
	defaultMethod  string
	cancelRequests []bool
}

func (f *fakeGateway) ParseWebhook([]byte, string) (*billing.Event, error) {
	if f.event == nil {
		return nil, billing.ErrInvalidSignature
	}
	return f.event, nil
}

func (f *fakeGateway) DefaultPaymentMethod(context.Context, string) (string, error) {
	return f.defaultMethod, nil
}

func (f *fakeGateway) SetCancelAtPeriodEnd(_ context.Context, id string, cancel bool) (*billing.Subscription, error) {
	f.cancelRequests = append(f.cancelRequests, cancel)
	return &billing.Subscription{ID: id, Status: "active", CancelAtPeriodEnd: cancel}, nil
}

func (f *fakeUsers) CreateUser(_ repositories.SQLExecutor, u *models.User, hash string) (int64, error) {
	if _, err := f.FindUserByEmail(u.Email); err == nil {
		return 0, repositories.ErrDuplicateKey
	}
	u.ID = int64(len(f.users) + 1)
	u.PasswordHash = hash
	u.IsActive = true
	stored := *u
	f.users[u.ID] = &stored
	return u.ID, nil
}

func (f *fakeUsers) UpdateProfile(_ repositories.SQLExecutor, u *models.User) error {
	if _, ok := f.users[u.ID]; !ok {
		return repositories.ErrNotFound
	}
	stored := *u
	f.users[u.ID] = &stored
	return nil
}
