package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"reviewhub/internal/domain"
	"reviewhub/internal/middleware"
)

// CommentRequest creates a comment; author and review are server-assigned.
type CommentRequest struct {
	Text string `json:"text" binding:"required"`
}

// CommentUpdateRequest patches a comment's text.
type CommentUpdateRequest struct {
	Text *string `json:"text"`
}

// CommentResponse embeds the author username.
type CommentResponse struct {
	ID      uint      `json:"id"`
	Text    string    `json:"text"`
	Author  string    `json:"author"`
	PubDate time.Time `json:"pub_date"`
}

func newCommentResponse(cm *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:      cm.ID,
		Text:    cm.Text,
		Author:  cm.Author.Username,
		PubDate: cm.CreatedAt,
	}
}

// parentReview resolves the :review_id path parameter or answers 404.
// Comments are keyed by review alone.
func parentReview(c *gin.Context, db *gorm.DB) (*domain.Review, bool) {
	id, err := strconv.ParseUint(c.Param("review_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Review not found"})
		return nil, false
	}
	var review domain.Review
	if err := db.First(&review, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Review not found"})
		return nil, false
	}
	return &review, true
}

// scopedComment resolves :comment_id under the parent review or answers 404.
func scopedComment(c *gin.Context, db *gorm.DB, reviewID uint) (*domain.Comment, bool) {
	id, err := strconv.ParseUint(c.Param("comment_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return nil, false
	}
	var comment domain.Comment
	if err := db.Preload("Author").Where("review_id = ?", reviewID).First(&comment, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return nil, false
	}
	return &comment, true
}

// ListCommentsHandler returns the comments of a review, oldest first.
func ListCommentsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		review, ok := parentReview(c, db)
		if !ok {
			return
		}
		page, pageSize, offset := pageParams(c)
		var total int64
		if err := db.Model(&domain.Comment{}).Where("review_id = ?", review.ID).Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count comments"})
			return
		}
		var comments []domain.Comment
		err := db.Preload("Author").Where("review_id = ?", review.ID).
			Order("created_at asc").Offset(offset).Limit(pageSize).
			Find(&comments).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comments"})
			return
		}
		resp := make([]CommentResponse, len(comments))
		for i := range comments {
			resp[i] = newCommentResponse(&comments[i])
		}
		c.JSON(http.StatusOK, gin.H{
			"comments":    resp,
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": totalPages(total, pageSize),
		})
	}
}

// GetCommentHandler returns one comment of a review.
func GetCommentHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		review, ok := parentReview(c, db)
		if !ok {
			return
		}
		comment, ok := scopedComment(c, db, review.ID)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, newCommentResponse(comment))
	}
}

// CreateCommentHandler adds the caller's comment to a review.
func CreateCommentHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := middleware.CurrentUser(c)
		review, ok := parentReview(c, db)
		if !ok {
			return
		}
		var req CommentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		comment := domain.Comment{
			Text:     req.Text,
			AuthorID: user.ID,
			ReviewID: review.ID,
		}
		if err := db.Create(&comment).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create comment"})
			return
		}
		comment.Author = *user
		c.JSON(http.StatusCreated, newCommentResponse(&comment))
	}
}

// UpdateCommentHandler patches a comment. Author, moderator or admin only.
func UpdateCommentHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := middleware.CurrentUser(c)
		review, ok := parentReview(c, db)
		if !ok {
			return
		}
		comment, ok := scopedComment(c, db, review.ID)
		if !ok {
			return
		}
		if !user.CanModerate(comment.AuthorID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not the author, moderator or admin"})
			return
		}
		var req CommentUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		if req.Text != nil {
			comment.Text = *req.Text
		}
		if err := db.Model(comment).Update("text", comment.Text).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update comment"})
			return
		}
		c.JSON(http.StatusOK, newCommentResponse(comment))
	}
}

// DeleteCommentHandler removes a comment. Author, moderator or admin only.
func DeleteCommentHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := middleware.CurrentUser(c)
		review, ok := parentReview(c, db)
		if !ok {
			return
		}
		comment, ok := scopedComment(c, db, review.ID)
		if !ok {
			return
		}
		if !user.CanModerate(comment.AuthorID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not the author, moderator or admin"})
			return
		}
		if err := db.Delete(comment).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete comment"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}
