package app

import (
	"net/http"
	"strings"

	"reelview/internal/model"
	"reelview/internal/service"
	"reelview/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type CommentHandler struct {
	commentService service.CommentService
}

func NewCommentHandler(commentService service.CommentService) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
	}
}

// RegisterValidations adds the custom "reaction" rule to gin's validator so
// request binding rejects unknown reaction types before the service runs.
func RegisterValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("reaction", func(fl validator.FieldLevel) bool {
			return model.ReactionType(fl.Field().String()).IsValid()
		})
	}
}

type CreateCommentRequest struct {
	ReviewID string       `json:"review_id" binding:"required"`
	ParentID *string      `json:"parent_id"`
	Body     string       `json:"body" binding:"required"`
	Author   model.Author `json:"author"`
}

type UpdateCommentRequest struct {
	Body string `json:"body" binding:"required"`
}

type ReportCommentRequest struct {
	Reason string `json:"reason"`
}

type ToggleReactionRequest struct {
	Type string `json:"type" binding:"required,reaction"`
}

// CreateComment handles comment creation
// POST /api/v1/comments
func (h *CommentHandler) CreateComment(c *gin.Context) {
	var req CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	// An authenticated request always comments as itself; the descriptor in
	// the body only matters for guest and anonymous traffic.
	author := req.Author
	if userID, exists := c.Get("userID"); exists {
		author = model.Author{Kind: model.AuthorUser, UserID: userID.(string)}
	} else if author.Kind == "" {
		author = model.Author{Kind: model.AuthorAnonymous}
	}

	comment, err := h.commentService.CreateComment(req.ReviewID, req.ParentID, req.Body, author)
	if err != nil {
		util.ErrorResponse(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	util.SuccessResponse(c, http.StatusCreated, "Comment created successfully", gin.H{"comment": comment})
}

// UpdateComment handles comment body edits
// PUT /api/v1/comments/:id
func (h *CommentHandler) UpdateComment(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	commentID := c.Param("id")
	if commentID == "" {
		util.BadRequest(c, "Comment ID is required")
		return
	}

	var req UpdateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	comment, err := h.commentService.UpdateBody(commentID, req.Body, model.UserIdentity(userID.(string)))
	if err != nil {
		status := http.StatusBadRequest
		if err == service.ErrNotCommenter {
			status = http.StatusForbidden
		}
		util.ErrorResponse(c, status, err.Error(), nil)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Comment updated successfully", gin.H{"comment": comment})
}

// ReportComment handles flagging a comment for moderation
// POST /api/v1/comments/:id/report
func (h *CommentHandler) ReportComment(c *gin.Context) {
	commentID := c.Param("id")
	if commentID == "" {
		util.BadRequest(c, "Comment ID is required")
		return
	}

	var req ReportCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	comment, err := h.commentService.ReportComment(commentID, req.Reason)
	if err != nil {
		util.NotFound(c, err.Error())
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Comment reported", gin.H{"comment": comment})
}

// DeleteComment handles comment deletion
// DELETE /api/v1/comments/:id
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	commentID := c.Param("id")
	if commentID == "" {
		util.BadRequest(c, "Comment ID is required")
		return
	}

	err := h.commentService.DeleteComment(commentID, model.UserIdentity(userID.(string)), isAdmin(c))
	if err != nil {
		status := http.StatusBadRequest
		if err == service.ErrNotCommenter {
			status = http.StatusForbidden
		}
		util.ErrorResponse(c, status, err.Error(), nil)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Comment deleted successfully", nil)
}

// ToggleReaction handles one reaction toggle press
// POST /api/v1/comments/:id/reactions
func (h *CommentHandler) ToggleReaction(c *gin.Context) {
	commentID := c.Param("id")
	if commentID == "" {
		util.BadRequest(c, "Comment ID is required")
		return
	}

	voter, ok := voterIdentity(c)
	if !ok {
		util.Unauthorized(c, "Authentication or X-Device-ID header required")
		return
	}

	var req ToggleReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	comment, err := h.commentService.ToggleReaction(commentID, voter, model.ReactionType(req.Type))
	if err != nil {
		util.ErrorResponse(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Reaction toggled", gin.H{"comment": comment})
}

// GetReactions handles fetching the voter's reactions for a set of comments
// GET /api/v1/comments/reactions?ids=a,b,c
func (h *CommentHandler) GetReactions(c *gin.Context) {
	voter, ok := voterIdentity(c)
	if !ok {
		util.Unauthorized(c, "Authentication or X-Device-ID header required")
		return
	}

	idsParam := c.Query("ids")
	if idsParam == "" {
		util.SuccessResponse(c, http.StatusOK, "Reactions retrieved successfully", gin.H{"reactions": []model.Reaction{}})
		return
	}

	ids := strings.Split(idsParam, ",")
	byComment, err := h.commentService.GetVoterReactions(voter, ids)
	if err != nil {
		util.ErrorResponse(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	reactions := make([]model.Reaction, 0, len(byComment))
	for commentID, typ := range byComment {
		reactions = append(reactions, model.Reaction{
			CommentID: commentID,
			VoterID:   voter.Value,
			Type:      typ,
		})
	}

	util.SuccessResponse(c, http.StatusOK, "Reactions retrieved successfully", gin.H{"reactions": reactions})
}
