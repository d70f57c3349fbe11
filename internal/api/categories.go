package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"reviewhub/internal/domain"
	"reviewhub/internal/utils"
	"reviewhub/internal/validation"
)

// CategoryRequest creates a category. Identity is immutable afterwards:
// there is no update endpoint, only list, create and delete.
type CategoryRequest struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug" binding:"required"`
}

// ListCategoriesHandler returns categories ordered by name, paginated,
// with optional ?search= matching the exact name or a name prefix.
func ListCategoriesHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, pageSize, offset := pageParams(c)
		query := db.Model(&domain.Category{})
		if q := c.Query("search"); q != "" {
			query = query.Where("name = ? OR name LIKE ?", q, q+"%")
		}
		var total int64
		if err := query.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count categories"})
			return
		}
		var categories []domain.Category
		if err := query.Order("name asc").Offset(offset).Limit(pageSize).Find(&categories).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"categories":  categories,
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": totalPages(total, pageSize),
		})
	}
}

// CreateCategoryHandler creates a category. Admin only (routing).
func CreateCategoryHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CategoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		if err := validation.ValidateSlug(req.Slug); err != nil {
			fieldError(c, http.StatusUnprocessableEntity, "slug", err.Error())
			return
		}
		if len(req.Name) > 256 {
			fieldError(c, http.StatusUnprocessableEntity, "name", "Name must be at most 256 characters")
			return
		}
		category := domain.Category{Name: req.Name, Slug: req.Slug}
		if err := db.Create(&category).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				fieldError(c, http.StatusConflict, "slug", "Slug already taken")
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create category"})
			return
		}
		c.JSON(http.StatusCreated, category)
	}
}

// DeleteCategoryHandler removes a category by slug. Titles that
// referenced it keep existing with a null category; their cached
// detail is dropped so reads never serve the old nesting.
func DeleteCategoryHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var category domain.Category
		if err := db.Where("slug = ?", c.Param("slug")).First(&category).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
		var titleIDs []uint
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&domain.Title{}).Where("category_id = ?", category.ID).
				Pluck("id", &titleIDs).Error; err != nil {
				return err
			}
			if err := tx.Model(&domain.Title{}).Where("category_id = ?", category.ID).
				Update("category_id", nil).Error; err != nil {
				return err
			}
			return tx.Delete(&category).Error
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete category"})
			return
		}
		for _, id := range titleIDs {
			_ = utils.DeleteCache(context.Background(), rdb, titleCacheKey(id))
		}
		c.Status(http.StatusNoContent)
	}
}
