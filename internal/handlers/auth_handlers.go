package handlers

import (
	"net/http"

	"fitpass_backend/internal/models"
	"fitpass_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// AuthHandler holds the authentication service.
type AuthHandler struct {
	authService services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(as services.AuthService) *AuthHandler {
	return &AuthHandler{authService: as}
}

// Register handles the registration form.
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegistrationPayload
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "Register: error from authService.Register")
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.Credentials
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.authService.Login(req)
	if err != nil {
		respondServiceError(c, err, "Login: error from authService.Login")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RefreshToken exchanges a refresh token for a new token pair.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req models.RefreshTokenPayload
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.authService.RefreshToken(req.RefreshToken)
	if err != nil {
		respondServiceError(c, err, "RefreshToken: error from authService.RefreshToken")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetCurrentUser retrieves the profile of the currently authenticated user.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.authService.GetProfile(userID)
	if err != nil {
		respondServiceError(c, err, "GetCurrentUser: error from authService.GetProfile")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) UpdateCurrentUser(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req models.ProfileUpdatePayload
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.authService.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		respondServiceError(c, err, "UpdateCurrentUser: error from authService.UpdateProfile")
		return
	}
	c.JSON(http.StatusOK, user)
}

// Logout acknowledges the logout. Tokens are stateless, so the client discards them.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully. Please discard your token."})
}
