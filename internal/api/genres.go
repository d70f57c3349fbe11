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

// GenreRequest creates a genre; same list/create/delete surface as categories.
type GenreRequest struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug" binding:"required"`
}

// ListGenresHandler returns genres ordered by name, paginated, with
// optional ?search= matching the exact name or a name prefix.
func ListGenresHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, pageSize, offset := pageParams(c)
		query := db.Model(&domain.Genre{})
		if q := c.Query("search"); q != "" {
			query = query.Where("name = ? OR name LIKE ?", q, q+"%")
		}
		var total int64
		if err := query.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count genres"})
			return
		}
		var genres []domain.Genre
		if err := query.Order("name asc").Offset(offset).Limit(pageSize).Find(&genres).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch genres"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"genres":      genres,
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": totalPages(total, pageSize),
		})
	}
}

// CreateGenreHandler creates a genre. Admin only (routing).
func CreateGenreHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req GenreRequest
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
		genre := domain.Genre{Name: req.Name, Slug: req.Slug}
		if err := db.Create(&genre).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				fieldError(c, http.StatusConflict, "slug", "Slug already taken")
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create genre"})
			return
		}
		c.JSON(http.StatusCreated, genre)
	}
}

// DeleteGenreHandler removes a genre by slug along with its title
// links, dropping the affected titles' cached detail.
func DeleteGenreHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var genre domain.Genre
		if err := db.Where("slug = ?", c.Param("slug")).First(&genre).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Genre not found"})
			return
		}
		var titleIDs []uint
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Table("genre_titles").Where("genre_id = ?", genre.ID).
				Pluck("title_id", &titleIDs).Error; err != nil {
				return err
			}
			if err := tx.Exec("DELETE FROM genre_titles WHERE genre_id = ?", genre.ID).Error; err != nil {
				return err
			}
			return tx.Delete(&genre).Error
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete genre"})
			return
		}
		for _, id := range titleIDs {
			_ = utils.DeleteCache(context.Background(), rdb, titleCacheKey(id))
		}
		c.Status(http.StatusNoContent)
	}
}
