package handlers

import (
	"net/http"

	"fitpass_backend/internal/models"
	"fitpass_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// BookingHandler holds the booking service.
type BookingHandler struct {
	bookingService services.BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(bs services.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bs}
}

// CreateBooking books a spot in a class.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req services.CreateBookingRequest
	if !bindJSON(c, &req) {
		return
	}

	booking, err := h.bookingService.BookClass(userID, req)
	if err != nil {
		respondServiceError(c, err, "CreateBooking: error from bookingService.BookClass")
		return
	}
	c.JSON(http.StatusCreated, booking)
}

// CreateDirectVisit books a gym visit without a class.
func (h *BookingHandler) CreateDirectVisit(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req services.DirectVisitRequest
	if !bindJSON(c, &req) {
		return
	}

	booking, err := h.bookingService.BookDirectVisit(userID, req)
	if err != nil {
		respondServiceError(c, err, "CreateDirectVisit: error from bookingService.BookDirectVisit")
		return
	}
	c.JSON(http.StatusCreated, booking)
}

// GetBookings lists the caller's own bookings.
func (h *BookingHandler) GetBookings(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var filters models.BookingFilters
	if !bindQuery(c, &filters) {
		return
	}
	filters.UserID = &userID
	filters.Page, filters.PageSize = normalizePage(filters.Page, filters.PageSize)

	bookings, total, err := h.bookingService.GetBookings(filters)
	if err != nil {
		respondServiceError(c, err, "GetBookings: error from bookingService.GetBookings")
		return
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	respondPage(c, bookings, total, filters.Page, filters.PageSize)
}

// GetBookingByID handles fetching a single booking by ID.
func (h *BookingHandler) GetBookingByID(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	bookingID, ok := paramID(c, "id")
	if !ok {
		return
	}

	booking, err := h.bookingService.GetBooking(actor, bookingID)
	if err != nil {
		respondServiceError(c, err, "GetBookingByID: error from bookingService.GetBooking")
		return
	}
	c.JSON(http.StatusOK, booking)
}

// CancelBooking cancels the caller's booking and reports the refunded credits.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	bookingID, ok := paramID(c, "id")
	if !ok {
		return
	}

	result, err := h.bookingService.CancelBooking(userID, bookingID)
	if err != nil {
		respondServiceError(c, err, "CancelBooking: error from bookingService.CancelBooking")
		return
	}
	c.JSON(http.StatusOK, result)
}

// CheckIn marks a booking as completed at the club's front desk.
func (h *BookingHandler) CheckIn(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req services.CheckInRequest
	if !bindJSON(c, &req) {
		return
	}

	booking, err := h.bookingService.CheckIn(actor, req.BookingCode)
	if err != nil {
		respondServiceError(c, err, "CheckIn: error from bookingService.CheckIn")
		return
	}
	c.JSON(http.StatusOK, booking)
}

// GetVisits lists the caller's visit history.
func (h *BookingHandler) GetVisits(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	page, pageSize := pagination(c)

	visits, total, err := h.bookingService.GetVisits(userID, page, pageSize)
	if err != nil {
		respondServiceError(c, err, "GetVisits: error from bookingService.GetVisits")
		return
	}
	if visits == nil {
		visits = []models.Visit{}
	}
	respondPage(c, visits, total, page, pageSize)
}
