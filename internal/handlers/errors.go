package handlers

import (
	"errors"
	"net/http"

	"fitpass_backend/internal/billing"
	"fitpass_backend/internal/geocoding"
	"fitpass_backend/internal/services"
	"fitpass_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

type errorMapping struct {
	err     error
	status  int
	code    string
	message string
	sv      string
}

// errorMappings is checked in order with errors.Is; the first match wins.
var errorMappings = []errorMapping{
	// auth
	{services.ErrInvalidCredentials, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid email or password.", "Fel e-postadress eller lösenord."},
	{services.ErrInvalidToken, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid or expired token.", "Din session har gått ut. Logga in igen."},
	{services.ErrEmailExists, http.StatusConflict, utils.ErrCodeConflict, "Email already exists.", "E-postadressen används redan."},
	{services.ErrUserNotFound, http.StatusNotFound, utils.ErrCodeNotFound, "User not found.", "Användaren hittades inte."},
	{services.ErrForbidden, http.StatusForbidden, utils.ErrCodeForbidden, "You do not have permission to perform this action.", "Du saknar behörighet."},

	// clubs and classes
	{services.ErrClubNotFound, http.StatusNotFound, utils.ErrCodeNotFound, "Club not found.", "Anläggningen hittades inte."},
	{services.ErrFavoriteNotFound, http.StatusNotFound, utils.ErrCodeNotFound, "Club is not a favorite.", ""},
	{services.ErrClubValidation, http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid club data.", ""},
	{services.ErrClassNotFound, http.StatusNotFound, utils.ErrCodeNotFound, "Class not found.", "Passet hittades inte."},
	{services.ErrClassValidation, http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid class data.", ""},
	{services.ErrClassHasBookings, http.StatusConflict, utils.ErrCodeConflict, "Class has confirmed bookings.", "Passet har bokningar. Ställ in det i stället."},
	{services.ErrCapacityBelowBooked, http.StatusConflict, utils.ErrCodeConflict, "Capacity cannot be lower than booked spots.", ""},

	// bookings
	{services.ErrBookingNotFound, http.StatusNotFound, utils.ErrCodeNotFound, "Booking not found.", "Bokningen hittades inte."},
	{services.ErrClassFull, http.StatusConflict, utils.ErrCodeConflict, "Class is fully booked.", "Passet är fullbokat."},
	{services.ErrClassStarted, http.StatusConflict, utils.ErrCodeConflict, "Class has already started.", "Passet har redan börjat."},
	{services.ErrAlreadyBooked, http.StatusConflict, utils.ErrCodeConflict, "You have already booked this class.", "Du har redan bokat det här passet."},
	{services.ErrDirectVisitExists, http.StatusConflict, utils.ErrCodeConflict, "A visit to this club is already booked for that day.", "Du har redan ett besök bokat den dagen."},
	{services.ErrInsufficientCredits, http.StatusPaymentRequired, utils.ErrCodePaymentRequired, "Not enough credits.", "Du har inte tillräckligt med krediter."},
	{services.ErrBookingNotCancellable, http.StatusConflict, utils.ErrCodeConflict, "Booking cannot be cancelled.", "Bokningen kan inte avbokas."},
	{services.ErrBookingInPast, http.StatusConflict, utils.ErrCodeConflict, "Past bookings cannot be cancelled.", "Passet har redan varit."},
	{services.ErrAlreadyCheckedIn, http.StatusConflict, utils.ErrCodeConflict, "Booking is already checked in.", "Bokningen är redan incheckad."},
	{services.ErrBookingNotConfirmed, http.StatusConflict, utils.ErrCodeConflict, "Booking is not confirmed.", ""},
	{services.ErrBookingValidation, http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid booking data.", ""},

	// memberships and daily access
	{services.ErrNoActiveMembership, http.StatusPaymentRequired, utils.ErrCodePaymentRequired, "No active membership.", "Du har inget aktivt medlemskap."},
	{services.ErrPlanNotFound, http.StatusNotFound, utils.ErrCodeNotFound, "Membership plan not found.", ""},
	{services.ErrMembershipExists, http.StatusConflict, utils.ErrCodeConflict, "You already have an active membership.", "Du har redan ett aktivt medlemskap."},
	{services.ErrSamePlan, http.StatusConflict, utils.ErrCodeConflict, "Membership is already on this plan.", ""},
	{services.ErrPaymentMethodRequired, http.StatusPaymentRequired, utils.ErrCodePaymentRequired, "A default payment method is required.", "Lägg till ett betalkort först."},
	{services.ErrNotDailyAccessPlan, http.StatusForbidden, utils.ErrCodeForbidden, "Your membership does not include Daily Access.", "Ditt medlemskap ingår inte i Daily Access."},
	{services.ErrMaxDailyAccessGyms, http.StatusConflict, utils.ErrCodeConflict, "All Daily Access slots are in use.", "Du har redan valt max antal gym."},
	{services.ErrGymAlreadySelected, http.StatusConflict, utils.ErrCodeConflict, "Gym is already selected.", "Gymmet är redan valt."},
	{services.ErrGymNotSelected, http.StatusNotFound, utils.ErrCodeNotFound, "Gym is not selected.", ""},
	{services.ErrNoPendingChange, http.StatusConflict, utils.ErrCodeConflict, "Gym has no pending change.", ""},
	{services.ErrSameGym, http.StatusBadRequest, utils.ErrCodeValidationFailed, "Replacement gym must differ from the current gym.", ""},
	{services.ErrDailyAccessForbidden, http.StatusConflict, utils.ErrCodeConflict, "Change not allowed for the gym's current status.", "Ändringen är inte möjlig just nu."},

	// reviews and news
	{services.ErrReviewNotFound, http.StatusNotFound, utils.ErrCodeNotFound, "Review not found.", ""},
	{services.ErrReviewValidation, http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid review.", ""},
	{services.ErrReviewNotAllowed, http.StatusForbidden, utils.ErrCodeForbidden, "Only members who visited the club can review it.", "Du kan bara betygsätta anläggningar du besökt."},
	{services.ErrNewsNotFound, http.StatusNotFound, utils.ErrCodeNotFound, "News item not found.", ""},
	{services.ErrNewsValidation, http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid news item.", ""},

	// billing
	{billing.ErrNotConfigured, http.StatusServiceUnavailable, utils.ErrCodeServiceUnavailable, "Payments are not available.", "Betalningar är inte tillgängliga just nu."},
	{billing.ErrInvalidSignature, http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid webhook signature.", ""},
	{billing.ErrCardDeclined, http.StatusPaymentRequired, utils.ErrCodePaymentRequired, "The card was declined.", "Kortet nekades."},
	{billing.ErrProcessor, http.StatusBadGateway, utils.ErrCodeServiceUnavailable, "Payment processor error.", "Något gick fel med betalningen."},
	{services.ErrDefaultMethodInUse, http.StatusConflict, utils.ErrCodeConflict, "The default payment method is used by an active subscription.", "Standardkortet används av ditt medlemskap."},
	{services.ErrPaymentMethodNotFound, http.StatusNotFound, utils.ErrCodeNotFound, "Payment method not found.", ""},

	// geocoding
	{geocoding.ErrQueryTooShort, http.StatusBadRequest, utils.ErrCodeValidationFailed, "Query must be at least 3 characters.", ""},
	{geocoding.ErrInvalidCoords, http.StatusBadRequest, utils.ErrCodeValidationFailed, "Coordinates out of range.", ""},
	{geocoding.ErrNotFound, http.StatusNotFound, utils.ErrCodeNotFound, "No matching address found.", "Adressen hittades inte."},
	{geocoding.ErrNotConfigured, http.StatusServiceUnavailable, utils.ErrCodeServiceUnavailable, "Address lookup is not available.", ""},
	{geocoding.ErrProviderFailed, http.StatusServiceUnavailable, utils.ErrCodeServiceUnavailable, "Address lookup failed.", "Adressökningen misslyckades."},
}

// respondServiceError maps a service error to its HTTP response. Unknown errors are logged as 500s.
func respondServiceError(c *gin.Context, err error, op string) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		utils.RespondFieldErrors(c, verr.Fields)
		return
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			if m.status >= http.StatusInternalServerError {
				utils.LogError(err, op)
			}
			apiErr := utils.NewAPIError(m.status, m.code, m.message, err.Error())
			if m.sv != "" {
				apiErr.WithSwedish(m.sv)
			}
			utils.RespondWithError(c, apiErr)
			return
		}
	}
	utils.LogError(err, op)
	utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Something went wrong.", "Internal error").
		WithSwedish("Något gick fel. Försök igen."))
}
