package handlers

import (
	"io"
	"net/http"

	"fitpass_backend/internal/models"
	"fitpass_backend/internal/services"
	"fitpass_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

const maxWebhookBodyBytes = int64(65536)

// BillingHandler serves payment methods, payment history and the processor webhook.
type BillingHandler struct {
	billingService services.BillingService
}

func NewBillingHandler(bs services.BillingService) *BillingHandler {
	return &BillingHandler{billingService: bs}
}

func (h *BillingHandler) GetPaymentMethods(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	methods, err := h.billingService.ListPaymentMethods(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err, "GetPaymentMethods: error from billingService.ListPaymentMethods")
		return
	}
	if methods == nil {
		methods = []models.PaymentMethod{}
	}
	c.JSON(http.StatusOK, gin.H{"data": methods})
}

// CreateSetupIntent returns the client secret the app uses to collect a card.
func (h *BillingHandler) CreateSetupIntent(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	secret, err := h.billingService.CreateSetupIntent(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err, "CreateSetupIntent: error from billingService.CreateSetupIntent")
		return
	}
	c.JSON(http.StatusOK, gin.H{"client_secret": secret})
}

func (h *BillingHandler) AttachPaymentMethod(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req services.AttachPaymentMethodRequest
	if !bindJSON(c, &req) {
		return
	}

	methods, err := h.billingService.AttachPaymentMethod(c.Request.Context(), userID, req)
	if err != nil {
		respondServiceError(c, err, "AttachPaymentMethod: error from billingService.AttachPaymentMethod")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": methods})
}

func (h *BillingHandler) SetDefaultPaymentMethod(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	methods, err := h.billingService.SetDefaultPaymentMethod(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "SetDefaultPaymentMethod: error from billingService.SetDefaultPaymentMethod")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": methods})
}

func (h *BillingHandler) DetachPaymentMethod(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.billingService.DetachPaymentMethod(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondServiceError(c, err, "DetachPaymentMethod: error from billingService.DetachPaymentMethod")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BillingHandler) GetHistory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	page, pageSize := pagination(c)

	payments, total, err := h.billingService.GetHistory(userID, page, pageSize)
	if err != nil {
		respondServiceError(c, err, "GetHistory: error from billingService.GetHistory")
		return
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	respondPage(c, payments, total, page, pageSize)
}

func (h *BillingHandler) GetSubscription(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	info, err := h.billingService.GetSubscription(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err, "GetSubscription: error from billingService.GetSubscription")
		return
	}
	c.JSON(http.StatusOK, info)
}

// StripeWebhook verifies and processes a processor event. The raw body is
// needed for signature verification, so it is read before any binding.
func (h *BillingHandler) StripeWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.LogWarn(err, "Webhook: error reading request body")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Error reading request body.", err.Error()))
		return
	}

	if err := h.billingService.HandleWebhook(payload, c.GetHeader("Stripe-Signature")); err != nil {
		respondServiceError(c, err, "StripeWebhook: error from billingService.HandleWebhook")
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
