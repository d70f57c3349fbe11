package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"reviewhub/internal/domain"
	"reviewhub/internal/middleware"
	"reviewhub/internal/utils"
	"reviewhub/internal/validation"
)

// ReviewRequest creates a review; author and title are server-assigned.
type ReviewRequest struct {
	Text  string `json:"text" binding:"required"`
	Score *int   `json:"score" binding:"required"`
}

// ReviewUpdateRequest patches a review; absent fields keep their value.
type ReviewUpdateRequest struct {
	Text  *string `json:"text"`
	Score *int    `json:"score"`
}

// ReviewResponse embeds the author username and the parent title name.
type ReviewResponse struct {
	ID      uint      `json:"id"`
	Text    string    `json:"text"`
	Author  string    `json:"author"`
	Score   int       `json:"score"`
	Title   string    `json:"title"`
	PubDate time.Time `json:"pub_date"`
}

func newReviewResponse(r *domain.Review, titleName string) ReviewResponse {
	return ReviewResponse{
		ID:      r.ID,
		Text:    r.Text,
		Author:  r.Author.Username,
		Score:   r.Score,
		Title:   titleName,
		PubDate: r.CreatedAt,
	}
}

// parentTitle resolves the :title_id path parameter or answers 404.
func parentTitle(c *gin.Context, db *gorm.DB) (*domain.Title, bool) {
	id, err := strconv.ParseUint(c.Param("title_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Title not found"})
		return nil, false
	}
	var title domain.Title
	if err := db.First(&title, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Title not found"})
		return nil, false
	}
	return &title, true
}

// scopedReview resolves :review_id under the parent title or answers 404.
func scopedReview(c *gin.Context, db *gorm.DB, titleID uint) (*domain.Review, bool) {
	id, err := strconv.ParseUint(c.Param("review_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Review not found"})
		return nil, false
	}
	var review domain.Review
	if err := db.Preload("Author").Where("title_id = ?", titleID).First(&review, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Review not found"})
		return nil, false
	}
	return &review, true
}

// ListReviewsHandler returns the reviews of a title, oldest first.
func ListReviewsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		title, ok := parentTitle(c, db)
		if !ok {
			return
		}
		page, pageSize, offset := pageParams(c)
		var total int64
		if err := db.Model(&domain.Review{}).Where("title_id = ?", title.ID).Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count reviews"})
			return
		}
		var reviews []domain.Review
		err := db.Preload("Author").Where("title_id = ?", title.ID).
			Order("created_at asc").Offset(offset).Limit(pageSize).
			Find(&reviews).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reviews"})
			return
		}
		resp := make([]ReviewResponse, len(reviews))
		for i := range reviews {
			resp[i] = newReviewResponse(&reviews[i], title.Name)
		}
		c.JSON(http.StatusOK, gin.H{
			"reviews":     resp,
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": totalPages(total, pageSize),
		})
	}
}

// GetReviewHandler returns one review of a title.
func GetReviewHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		title, ok := parentTitle(c, db)
		if !ok {
			return
		}
		review, ok := scopedReview(c, db, title.ID)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, newReviewResponse(review, title.Name))
	}
}

// CreateReviewHandler creates the caller's review for a title. The
// store's unique (author, title) constraint is the authoritative
// duplicate check, so concurrent second attempts still conflict.
func CreateReviewHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := middleware.CurrentUser(c)
		title, ok := parentTitle(c, db)
		if !ok {
			return
		}
		var req ReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		if err := validation.ValidateScore(*req.Score); err != nil {
			fieldError(c, http.StatusUnprocessableEntity, "score", err.Error())
			return
		}
		review := domain.Review{
			Text:     req.Text,
			Score:    *req.Score,
			AuthorID: user.ID,
			TitleID:  title.ID,
		}
		if err := db.Create(&review).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				c.JSON(http.StatusConflict, gin.H{"error": "Second review is forbidden"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create review"})
			return
		}
		review.Author = *user
		_ = utils.DeleteCache(context.Background(), rdb, titleCacheKey(title.ID))
		c.JSON(http.StatusCreated, newReviewResponse(&review, title.Name))
	}
}

// UpdateReviewHandler patches a review. Author, moderator or admin only.
func UpdateReviewHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := middleware.CurrentUser(c)
		title, ok := parentTitle(c, db)
		if !ok {
			return
		}
		review, ok := scopedReview(c, db, title.ID)
		if !ok {
			return
		}
		if !user.CanModerate(review.AuthorID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not the author, moderator or admin"})
			return
		}
		var req ReviewUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		if req.Text != nil {
			review.Text = *req.Text
		}
		if req.Score != nil {
			if err := validation.ValidateScore(*req.Score); err != nil {
				fieldError(c, http.StatusUnprocessableEntity, "score", err.Error())
				return
			}
			review.Score = *req.Score
		}
		if err := db.Model(review).Updates(map[string]any{
			"text":  review.Text,
			"score": review.Score,
		}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update review"})
			return
		}
		_ = utils.DeleteCache(context.Background(), rdb, titleCacheKey(title.ID))
		c.JSON(http.StatusOK, newReviewResponse(review, title.Name))
	}
}

// DeleteReviewHandler removes a review and its comments. Author,
// moderator or admin only.
func DeleteReviewHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := middleware.CurrentUser(c)
		title, ok := parentTitle(c, db)
		if !ok {
			return
		}
		review, ok := scopedReview(c, db, title.ID)
		if !ok {
			return
		}
		if !user.CanModerate(review.AuthorID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not the author, moderator or admin"})
			return
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("review_id = ?", review.ID).Delete(&domain.Comment{}).Error; err != nil {
				return err
			}
			return tx.Delete(review).Error
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete review"})
			return
		}
		_ = utils.DeleteCache(context.Background(), rdb, titleCacheKey(title.ID))
		c.Status(http.StatusNoContent)
	}
}
