package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fitpass_backend/internal/billing"
	"fitpass_backend/internal/geocoding"
	"fitpass_backend/internal/middleware"
	"fitpass_backend/internal/models"
	"fitpass_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type errorBody struct {
	Error struct {
		Code      string            `json:"code"`
		Message   string            `json:"message"`
		MessageSV string            `json:"message_sv"`
		Fields    map[string]string `json:"fields"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// asUser simulates AuthMiddleware.
func asUser(userID int64, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Set(middleware.ContextUserRole, role)
		c.Next()
	}
}

type fakeBookingService struct {
	services.BookingService
	bookErr     error
	lastClassID int64
	lastFilters models.BookingFilters
}

func (f *fakeBookingService) BookClass(userID int64, req services.CreateBookingRequest) (*models.Booking, error) {
	f.lastClassID = req.ClassID
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	return &models.Booking{ID: 7, UserID: userID, ClassID: &req.ClassID, Status: string(models.BookingStatusConfirmed), CreditsUsed: 2}, nil
}

func (f *fakeBookingService) GetBookings(filters models.BookingFilters) ([]models.Booking, int, error) {
	f.lastFilters = filters
	return nil, 0, nil
}

func (f *fakeBookingService) CancelBooking(userID, id int64) (*services.CancelResult, error) {
	return &services.CancelResult{Booking: &models.Booking{ID: id, UserID: userID, Status: string(models.BookingStatusCancelled)}, CreditsRefunded: 2}, nil
}

func bookingRouter(svc services.BookingService, userID int64) *gin.Engine {
	h := NewBookingHandler(svc)
	r := gin.New()
	g := r.Group("", asUser(userID, models.RoleUser))
	g.POST("/bookings", h.CreateBooking)
	g.GET("/bookings", h.GetBookings)
	g.DELETE("/bookings/:id", h.CancelBooking)
	return r
}

func TestCreateBooking(t *testing.T) {
	svc := &fakeBookingService{}
	r := bookingRouter(svc, 42)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(`{"class_id":11}`)))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int64(11), svc.lastClassID)
	var b models.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	assert.Equal(t, int64(42), b.UserID)
	assert.Equal(t, 2, b.CreditsUsed)
}

func TestCreateBookingErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		code    string
		swedish string
	}{
		{"class full", services.ErrClassFull, http.StatusConflict, "CONFLICT", "Passet är fullbokat."},
		{"wrapped", fmt.Errorf("booking class 11: %w", services.ErrAlreadyBooked), http.StatusConflict, "CONFLICT", "Du har redan bokat det här passet."},
		{"no credits", services.ErrInsufficientCredits, http.StatusPaymentRequired, "PAYMENT_REQUIRED", "Du har inte tillräckligt med krediter."},
		{"no membership", services.ErrNoActiveMembership, http.StatusPaymentRequired, "PAYMENT_REQUIRED", "Du har inget aktivt medlemskap."},
		{"class not found", services.ErrClassNotFound, http.StatusNotFound, "NOT_FOUND", "Passet hittades inte."},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Något gick fel. Försök igen."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := bookingRouter(&fakeBookingService{bookErr: tc.err}, 42)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(`{"class_id":11}`)))

			assert.Equal(t, tc.status, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, tc.code, body.Error.Code)
			assert.Equal(t, tc.swedish, body.Error.MessageSV)
		})
	}
}

func TestCreateBookingValidationErrorListsFields(t *testing.T) {
	verr := &services.ValidationError{Fields: map[string]string{"date": "must be YYYY-MM-DD"}}
	r := bookingRouter(&fakeBookingService{bookErr: verr}, 42)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(`{"class_id":11}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "VALIDATION_FAILED", body.Error.Code)
	assert.Equal(t, "must be YYYY-MM-DD", body.Error.Fields["date"])
}

func TestCreateBookingRejectsBadPayload(t *testing.T) {
	svc := &fakeBookingService{}
	r := bookingRouter(svc, 42)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, svc.lastClassID)
}

func TestBookingRequiresUser(t *testing.T) {
	h := NewBookingHandler(&fakeBookingService{})
	r := gin.New()
	r.POST("/bookings", h.CreateBooking)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(`{"class_id":11}`)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetBookingsScopesToCaller(t *testing.T) {
	svc := &fakeBookingService{}
	r := bookingRouter(svc, 42)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bookings?user_id=99&page_size=500", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.lastFilters.UserID)
	assert.Equal(t, int64(42), *svc.lastFilters.UserID)
	assert.Equal(t, 100, svc.lastFilters.PageSize)
	assert.JSONEq(t, `{"data":[],"total":0,"page":1,"page_size":100}`, w.Body.String())
}

func TestCancelBookingInvalidID(t *testing.T) {
	r := bookingRouter(&fakeBookingService{}, 42)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/bookings/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/bookings/5", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"credits_refunded":2`)
}

type fakeBillingService struct {
	services.BillingService
	err       error
	payload   []byte
	signature string
}

func (f *fakeBillingService) HandleWebhook(payload []byte, signature string) error {
	f.payload = payload
	f.signature = signature
	return f.err
}

func webhookRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	return req
}

func TestStripeWebhookPassesRawBody(t *testing.T) {
	svc := &fakeBillingService{}
	r := gin.New()
	r.POST("/webhooks/stripe", NewBillingHandler(svc).StripeWebhook)

	raw := `{"id":"evt_1",  "type":"invoice.paid"}`
	w := httptest.NewRecorder()
	r.ServeHTTP(w, webhookRequest(raw))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, raw, string(svc.payload))
	assert.Equal(t, "t=1,v1=abc", svc.signature)
	assert.JSONEq(t, `{"received":true}`, w.Body.String())
}

func TestStripeWebhookErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{billing.ErrInvalidSignature, http.StatusBadRequest},
		{billing.ErrNotConfigured, http.StatusServiceUnavailable},
		{fmt.Errorf("charge: %w", billing.ErrProcessor), http.StatusBadGateway},
	}
	for _, tc := range cases {
		r := gin.New()
		r.POST("/webhooks/stripe", NewBillingHandler(&fakeBillingService{err: tc.err}).StripeWebhook)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, webhookRequest(`{}`))
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
	}
}

func TestStripeWebhookRejectsOversizedBody(t *testing.T) {
	svc := &fakeBillingService{}
	r := gin.New()
	r.POST("/webhooks/stripe", NewBillingHandler(svc).StripeWebhook)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, webhookRequest(strings.Repeat("x", int(maxWebhookBodyBytes)+1)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, svc.payload)
}

type fakeGeocoder struct {
	places []geocoding.Place
	err    error
	query  string
}

func (f *fakeGeocoder) Autocomplete(_ context.Context, query string) ([]geocoding.Place, error) {
	f.query = query
	return f.places, f.err
}

func (f *fakeGeocoder) Geocode(_ context.Context, address string) (*geocoding.Place, error) {
	f.query = address
	if f.err != nil {
		return nil, f.err
	}
	return &f.places[0], nil
}

func (f *fakeGeocoder) Reverse(_ context.Context, lat, lng float64) (*geocoding.Place, error) {
	f.query = fmt.Sprintf("%.4f,%.4f", lat, lng)
	if f.err != nil {
		return nil, f.err
	}
	return &f.places[0], nil
}

func geocodeRouter(g Geocoder) *gin.Engine {
	h := NewGeocodeHandler(g)
	r := gin.New()
	r.GET("/geocode/autocomplete", h.Autocomplete)
	r.GET("/geocode/search", h.Search)
	r.GET("/geocode/reverse", h.Reverse)
	return r
}

func TestGeocodeAutocomplete(t *testing.T) {
	g := &fakeGeocoder{places: []geocoding.Place{{FormattedAddress: "Storgatan 1, Stockholm", Provider: "google"}}}
	w := httptest.NewRecorder()
	geocodeRouter(g).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/geocode/autocomplete?q=Storg", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Storg", g.query)
	assert.Contains(t, w.Body.String(), "Storgatan 1, Stockholm")
}

func TestGeocodeAutocompleteEmptyIsArray(t *testing.T) {
	w := httptest.NewRecorder()
	geocodeRouter(&fakeGeocoder{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/geocode/autocomplete?q=Zzzz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())
}

func TestGeocodeErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{geocoding.ErrQueryTooShort, http.StatusBadRequest},
		{geocoding.ErrNotFound, http.StatusNotFound},
		{geocoding.ErrProviderFailed, http.StatusServiceUnavailable},
		{geocoding.ErrNotConfigured, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		geocodeRouter(&fakeGeocoder{err: tc.err}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/geocode/search?address=St", nil))
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
	}
}

func TestGeocodeReverse(t *testing.T) {
	g := &fakeGeocoder{places: []geocoding.Place{{FormattedAddress: "Drottninggatan 5", Latitude: 59.33, Longitude: 18.06}}}

	w := httptest.NewRecorder()
	geocodeRouter(g).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/geocode/reverse?lat=59.33&lng=18.06", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "59.3300,18.0600", g.query)

	w = httptest.NewRecorder()
	geocodeRouter(g).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/geocode/reverse?lat=north", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNormalizePage(t *testing.T) {
	cases := []struct{ page, size, wantPage, wantSize int }{
		{0, 0, 1, 20},
		{-3, 10, 1, 10},
		{4, 1000, 4, 100},
	}
	for _, tc := range cases {
		p, s := normalizePage(tc.page, tc.size)
		assert.Equal(t, tc.wantPage, p)
		assert.Equal(t, tc.wantSize, s)
	}
}
