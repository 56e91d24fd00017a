package app

import (
	"net/http"
	"strconv"

	"reelview/internal/service"
	"reelview/internal/util"

	"github.com/gin-gonic/gin"
)

type ReviewHandler struct {
	reviewService  service.ReviewService
	commentService service.CommentService
}

func NewReviewHandler(reviewService service.ReviewService, commentService service.CommentService) *ReviewHandler {
	return &ReviewHandler{
		reviewService:  reviewService,
		commentService: commentService,
	}
}

type CreateReviewRequest struct {
	MovieTitle string `json:"movie_title" binding:"required"`
	Title      string `json:"title" binding:"required"`
	Body       string `json:"body" binding:"required"`
	Rating     int    `json:"rating" binding:"required,min=1,max=10"`
}

// CreateReview handles review creation
// POST /api/v1/reviews
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	review, err := h.reviewService.CreateReview(userID.(string), req.MovieTitle, req.Title, req.Body, req.Rating)
	if err != nil {
		util.ErrorResponse(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	util.SuccessResponse(c, http.StatusCreated, "Review created successfully", gin.H{"review": review})
}

// GetReviews handles listing reviews
// GET /api/v1/reviews
func (h *ReviewHandler) GetReviews(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	reviews, err := h.reviewService.ListReviews(limit, offset)
	if err != nil {
		util.ErrorResponse(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Reviews retrieved successfully", gin.H{
		"reviews": reviews,
		"limit":   limit,
		"offset":  offset,
	})
}

// GetReview handles getting a review by ID
// GET /api/v1/reviews/:id
func (h *ReviewHandler) GetReview(c *gin.Context) {
	reviewID := c.Param("id")
	if reviewID == "" {
		util.BadRequest(c, "Review ID is required")
		return
	}

	review, err := h.reviewService.GetReview(reviewID)
	if err != nil {
		util.NotFound(c, err.Error())
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Review retrieved successfully", gin.H{"review": review})
}

// GetComments handles getting the comment list for a review
// GET /api/v1/reviews/:id/comments
func (h *ReviewHandler) GetComments(c *gin.Context) {
	reviewID := c.Param("id")
	if reviewID == "" {
		util.BadRequest(c, "Review ID is required")
		return
	}

	comments, err := h.commentService.GetComments(reviewID)
	if err != nil {
		util.ErrorResponse(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Comments retrieved successfully", gin.H{"comments": comments})
}

// VoteHelpful handles marking a review as helpful
// POST /api/v1/reviews/:id/helpful
func (h *ReviewHandler) VoteHelpful(c *gin.Context) {
	reviewID := c.Param("id")
	if reviewID == "" {
		util.BadRequest(c, "Review ID is required")
		return
	}

	voter, ok := voterIdentity(c)
	if !ok {
		util.Unauthorized(c, "Authentication or X-Device-ID header required")
		return
	}

	alreadyVoted, err := h.reviewService.VoteHelpful(reviewID, voter)
	if err != nil {
		util.ErrorResponse(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Vote recorded", gin.H{"already_voted": alreadyVoted})
}

// CheckHelpful handles checking whether the voter marked a review as helpful
// GET /api/v1/reviews/:id/helpful
func (h *ReviewHandler) CheckHelpful(c *gin.Context) {
	reviewID := c.Param("id")
	if reviewID == "" {
		util.BadRequest(c, "Review ID is required")
		return
	}

	voter, ok := voterIdentity(c)
	if !ok {
		util.Unauthorized(c, "Authentication or X-Device-ID header required")
		return
	}

	voted, err := h.reviewService.HasVoted(reviewID, voter)
	if err != nil {
		util.ErrorResponse(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Vote status retrieved", gin.H{"voted": voted})
}
