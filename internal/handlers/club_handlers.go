package handlers

import (
	"net/http"

	"fitpass_backend/internal/models"
	"fitpass_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// ClubHandler serves clubs, favorites and club reviews.
type ClubHandler struct {
	clubService   services.ClubService
	reviewService services.ReviewService
}

func NewClubHandler(cs services.ClubService, rs services.ReviewService) *ClubHandler {
	return &ClubHandler{clubService: cs, reviewService: rs}
}

// GetClubs lists clubs, nearest first when coordinates are given.
func (h *ClubHandler) GetClubs(c *gin.Context) {
	var filters models.ClubFilters
	if !bindQuery(c, &filters) {
		return
	}
	filters.Page, filters.PageSize = normalizePage(filters.Page, filters.PageSize)

	clubs, total, err := h.clubService.ListClubs(filters, optionalUserID(c))
	if err != nil {
		respondServiceError(c, err, "GetClubs: error from clubService.ListClubs")
		return
	}
	if clubs == nil {
		clubs = []models.Club{}
	}
	respondPage(c, clubs, total, filters.Page, filters.PageSize)
}

func (h *ClubHandler) GetClubByID(c *gin.Context) {
	clubID, ok := paramID(c, "id")
	if !ok {
		return
	}

	club, err := h.clubService.GetClub(clubID, optionalUserID(c))
	if err != nil {
		respondServiceError(c, err, "GetClubByID: error from clubService.GetClub")
		return
	}
	c.JSON(http.StatusOK, club)
}

// CreateClub is admin only; the route applies the role check.
func (h *ClubHandler) CreateClub(c *gin.Context) {
	var req models.ClubPayload
	if !bindJSON(c, &req) {
		return
	}

	club, err := h.clubService.CreateClub(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "CreateClub: error from clubService.CreateClub")
		return
	}
	c.JSON(http.StatusCreated, club)
}

func (h *ClubHandler) UpdateClub(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	clubID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req models.ClubPayload
	if !bindJSON(c, &req) {
		return
	}

	club, err := h.clubService.UpdateClub(c.Request.Context(), actor, clubID, req)
	if err != nil {
		respondServiceError(c, err, "UpdateClub: error from clubService.UpdateClub")
		return
	}
	c.JSON(http.StatusOK, club)
}

func (h *ClubHandler) AddFavorite(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	clubID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.clubService.AddFavorite(userID, clubID); err != nil {
		respondServiceError(c, err, "AddFavorite: error from clubService.AddFavorite")
		return
	}
	c.JSON(http.StatusOK, gin.H{"club_id": clubID, "is_favorite": true})
}

func (h *ClubHandler) RemoveFavorite(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	clubID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.clubService.RemoveFavorite(userID, clubID); err != nil {
		respondServiceError(c, err, "RemoveFavorite: error from clubService.RemoveFavorite")
		return
	}
	c.JSON(http.StatusOK, gin.H{"club_id": clubID, "is_favorite": false})
}

// GetFavorites lists the caller's favourite clubs.
func (h *ClubHandler) GetFavorites(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	favorites, err := h.clubService.GetFavorites(userID)
	if err != nil {
		respondServiceError(c, err, "GetFavorites: error from clubService.GetFavorites")
		return
	}
	if favorites == nil {
		favorites = []models.Favorite{}
	}
	c.JSON(http.StatusOK, gin.H{"data": favorites})
}

// GetReviews lists a club's reviews with the reviewer's first name.
func (h *ClubHandler) GetReviews(c *gin.Context) {
	clubID, ok := paramID(c, "id")
	if !ok {
		return
	}
	page, pageSize := pagination(c)

	reviews, total, err := h.reviewService.ListReviews(clubID, page, pageSize)
	if err != nil {
		respondServiceError(c, err, "GetReviews: error from reviewService.ListReviews")
		return
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	respondPage(c, reviews, total, page, pageSize)
}

// SubmitReview creates or replaces the caller's review of a club.
func (h *ClubHandler) SubmitReview(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	clubID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req models.ReviewPayload
	if !bindJSON(c, &req) {
		return
	}

	review, err := h.reviewService.SubmitReview(userID, clubID, req)
	if err != nil {
		respondServiceError(c, err, "SubmitReview: error from reviewService.SubmitReview")
		return
	}
	c.JSON(http.StatusOK, review)
}

func (h *ClubHandler) DeleteReview(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	clubID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.reviewService.DeleteReview(userID, clubID); err != nil {
		respondServiceError(c, err, "DeleteReview: error from reviewService.DeleteReview")
		return
	}
	c.Status(http.StatusNoContent)
}
