package handlers

import (
	"net/http"

	"fitpass_backend/internal/models"
	"fitpass_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// MembershipHandler serves the plan catalogue and the caller's membership.
type MembershipHandler struct {
	membershipService services.MembershipService
}

func NewMembershipHandler(ms services.MembershipService) *MembershipHandler {
	return &MembershipHandler{membershipService: ms}
}

func (h *MembershipHandler) GetPlans(c *gin.Context) {
	plans, err := h.membershipService.ListPlans()
	if err != nil {
		respondServiceError(c, err, "GetPlans: error from membershipService.ListPlans")
		return
	}
	if plans == nil {
		plans = []models.MembershipPlan{}
	}
	c.JSON(http.StatusOK, gin.H{"data": plans})
}

func (h *MembershipHandler) GetMembership(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	m, err := h.membershipService.GetMembership(userID)
	if err != nil {
		respondServiceError(c, err, "GetMembership: error from membershipService.GetMembership")
		return
	}
	c.JSON(http.StatusOK, m)
}

// StartMembership subscribes the caller to a plan.
func (h *MembershipHandler) StartMembership(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req services.PlanRequest
	if !bindJSON(c, &req) {
		return
	}

	m, err := h.membershipService.StartMembership(c.Request.Context(), userID, req.PlanID)
	if err != nil {
		respondServiceError(c, err, "StartMembership: error from membershipService.StartMembership")
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *MembershipHandler) ChangePlan(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req services.PlanRequest
	if !bindJSON(c, &req) {
		return
	}

	m, err := h.membershipService.ChangePlan(c.Request.Context(), userID, req.PlanID)
	if err != nil {
		respondServiceError(c, err, "ChangePlan: error from membershipService.ChangePlan")
		return
	}
	c.JSON(http.StatusOK, m)
}

// CancelMembership ends the membership at the close of the paid period.
func (h *MembershipHandler) CancelMembership(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	m, err := h.membershipService.CancelMembership(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err, "CancelMembership: error from membershipService.CancelMembership")
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *MembershipHandler) ResumeMembership(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	m, err := h.membershipService.ResumeMembership(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err, "ResumeMembership: error from membershipService.ResumeMembership")
		return
	}
	c.JSON(http.StatusOK, m)
}
