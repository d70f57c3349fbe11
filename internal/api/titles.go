package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"reviewhub/internal/domain"
	"reviewhub/internal/utils"
	"reviewhub/internal/validation"
)

// ratingSelect derives the average review score at read time; rating is
// never stored.
const ratingSelect = "titles.*, (SELECT AVG(reviews.score) FROM reviews WHERE reviews.title_id = titles.id) AS rating"

// titleCacheTTL bounds staleness of the cached title detail; review
// writes invalidate the entry eagerly.
const titleCacheTTL = 60 * time.Second

// titleOrderColumns whitelists the sortable fields.
var titleOrderColumns = map[string]string{
	"rating": "rating",
	"name":   "titles.name",
	"year":   "titles.year",
}

func titleCacheKey(id uint) string {
	return "title:" + strconv.FormatUint(uint64(id), 10)
}

// TitleRequest creates a title. Category and genres arrive as slugs and
// must resolve to existing records; at least one genre is required.
type TitleRequest struct {
	Name        string   `json:"name" binding:"required"`
	Year        *int     `json:"year" binding:"required"`
	Description string   `json:"description"`
	Category    string   `json:"category" binding:"required"`
	Genre       []string `json:"genre"`
}

// TitleUpdateRequest patches a title; absent fields keep their value.
type TitleUpdateRequest struct {
	Name        *string   `json:"name"`
	Year        *int      `json:"year"`
	Description *string   `json:"description"`
	Category    *string   `json:"category"`
	Genre       *[]string `json:"genre"`
}

// titleQuery applies the list filters from the request to a fresh query.
func titleQuery(c *gin.Context, db *gorm.DB) (*gorm.DB, bool) {
	query := db.Model(&domain.Title{})
	if v := c.Query("category"); v != "" {
		query = query.
			Joins("JOIN categories ON categories.id = titles.category_id").
			Where("LOWER(categories.slug) = LOWER(?)", v)
	}
	if v := c.Query("genre"); v != "" {
		query = query.
			Joins("JOIN genre_titles ON genre_titles.title_id = titles.id").
			Joins("JOIN genres ON genres.id = genre_titles.genre_id").
			Where("LOWER(genres.slug) = LOWER(?)", v)
	}
	if v := c.Query("name"); v != "" {
		query = query.Where("LOWER(titles.name) LIKE LOWER(?)", "%"+v+"%")
	}
	if v := c.Query("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			fieldError(c, http.StatusUnprocessableEntity, "year", "Year must be an integer")
			return nil, false
		}
		query = query.Where("titles.year = ?", year)
	}
	return query, true
}

// titleOrder resolves the ?ordering= parameter against the whitelist.
// A leading "-" flips to descending.
func titleOrder(c *gin.Context) (string, bool) {
	ordering := c.DefaultQuery("ordering", "name")
	direction := "asc"
	if strings.HasPrefix(ordering, "-") {
		ordering = strings.TrimPrefix(ordering, "-")
		direction = "desc"
	}
	column, ok := titleOrderColumns[ordering]
	if !ok {
		fieldError(c, http.StatusUnprocessableEntity, "ordering", "Ordering must be one of rating, name, year")
		return "", false
	}
	return column + " " + direction, true
}

// fetchTitle reads one title with its nested category, genres and
// computed rating; the single representation used by every response.
func fetchTitle(db *gorm.DB, id uint) (*domain.Title, error) {
	var title domain.Title
	err := db.Model(&domain.Title{}).Select(ratingSelect).
		Preload("Category").Preload("Genres").
		First(&title, id).Error
	if err != nil {
		return nil, err
	}
	return &title, nil
}

// ListTitlesHandler returns titles with nested category/genres and the
// computed rating, filterable and orderable per the query parameters.
func ListTitlesHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, pageSize, offset := pageParams(c)
		order, ok := titleOrder(c)
		if !ok {
			return
		}
		countQuery, ok := titleQuery(c, db)
		if !ok {
			return
		}
		var total int64
		if err := countQuery.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count titles"})
			return
		}
		query, _ := titleQuery(c, db)
		var titles []domain.Title
		err := query.Select(ratingSelect).
			Preload("Category").Preload("Genres").
			Order(order).Offset(offset).Limit(pageSize).
			Find(&titles).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch titles"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"titles":      titles,
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": totalPages(total, pageSize),
		})
	}
}

// GetTitleHandler returns one title, served from the redis cache when
// possible.
func GetTitleHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("title_id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Title not found"})
			return
		}
		ctx := context.Background()
		var cached domain.Title
		if found, err := utils.GetCache(ctx, rdb, titleCacheKey(uint(id)), &cached); err == nil && found {
			c.JSON(http.StatusOK, cached)
			return
		}
		title, err := fetchTitle(db, uint(id))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Title not found"})
			return
		}
		_ = utils.SetCache(ctx, rdb, titleCacheKey(title.ID), title, titleCacheTTL)
		c.JSON(http.StatusOK, title)
	}
}

// resolveCategory maps a category slug from a write request to a record.
func resolveCategory(c *gin.Context, db *gorm.DB, slug string) (*domain.Category, bool) {
	var category domain.Category
	if err := db.Where("slug = ?", slug).First(&category).Error; err != nil {
		fieldError(c, http.StatusUnprocessableEntity, "category", "Unknown category slug: "+slug)
		return nil, false
	}
	return &category, true
}

// resolveGenres maps the genre slug list from a write request to
// records, rejecting an empty list and any unknown slug.
func resolveGenres(c *gin.Context, db *gorm.DB, slugs []string) ([]domain.Genre, bool) {
	if len(slugs) == 0 {
		fieldError(c, http.StatusUnprocessableEntity, "genre", "At least one genre is required")
		return nil, false
	}
	var genres []domain.Genre
	if err := db.Where("slug IN ?", slugs).Find(&genres).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch genres"})
		return nil, false
	}
	if len(genres) != len(uniqueStrings(slugs)) {
		fieldError(c, http.StatusUnprocessableEntity, "genre", "Unknown genre slug in list")
		return nil, false
	}
	return genres, true
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// CreateTitleHandler creates a title. Admin only (routing). The
// response is the read representation, fetched back after the write.
func CreateTitleHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TitleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		if err := validation.ValidateYear(*req.Year); err != nil {
			fieldError(c, http.StatusUnprocessableEntity, "year", err.Error())
			return
		}
		if len(req.Name) > 256 {
			fieldError(c, http.StatusUnprocessableEntity, "name", "Name must be at most 256 characters")
			return
		}
		category, ok := resolveCategory(c, db, req.Category)
		if !ok {
			return
		}
		genres, ok := resolveGenres(c, db, req.Genre)
		if !ok {
			return
		}
		title := domain.Title{
			Name:        req.Name,
			Year:        *req.Year,
			Description: req.Description,
			CategoryID:  &category.ID,
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&title).Error; err != nil {
				return err
			}
			return tx.Model(&title).Association("Genres").Replace(genres)
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create title"})
			return
		}
		created, err := fetchTitle(db, title.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch created title"})
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

// UpdateTitleHandler patches a title. Admin only (routing).
func UpdateTitleHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("title_id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Title not found"})
			return
		}
		var title domain.Title
		if err := db.First(&title, uint(id)).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Title not found"})
			return
		}
		var req TitleUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		if req.Name != nil {
			if len(*req.Name) > 256 {
				fieldError(c, http.StatusUnprocessableEntity, "name", "Name must be at most 256 characters")
				return
			}
			title.Name = *req.Name
		}
		if req.Year != nil {
			if err := validation.ValidateYear(*req.Year); err != nil {
				fieldError(c, http.StatusUnprocessableEntity, "year", err.Error())
				return
			}
			title.Year = *req.Year
		}
		if req.Description != nil {
			title.Description = *req.Description
		}
		if req.Category != nil {
			category, ok := resolveCategory(c, db, *req.Category)
			if !ok {
				return
			}
			title.CategoryID = &category.ID
		}
		var genres []domain.Genre
		if req.Genre != nil {
			var ok bool
			if genres, ok = resolveGenres(c, db, *req.Genre); !ok {
				return
			}
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&title).Select("name", "year", "description", "category_id").
				Updates(map[string]any{
					"name":        title.Name,
					"year":        title.Year,
					"description": title.Description,
					"category_id": title.CategoryID,
				}).Error; err != nil {
				return err
			}
			if req.Genre != nil {
				return tx.Model(&title).Association("Genres").Replace(genres)
			}
			return nil
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update title"})
			return
		}
		_ = utils.DeleteCache(context.Background(), rdb, titleCacheKey(title.ID))
		updated, err := fetchTitle(db, title.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch updated title"})
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// DeleteTitleHandler removes a title and everything hanging off it:
// reviews, their comments and the genre links.
func DeleteTitleHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("title_id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Title not found"})
			return
		}
		var title domain.Title
		if err := db.First(&title, uint(id)).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Title not found"})
			return
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("review_id IN (?)",
				tx.Model(&domain.Review{}).Select("id").Where("title_id = ?", title.ID),
			).Delete(&domain.Comment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("title_id = ?", title.ID).Delete(&domain.Review{}).Error; err != nil {
				return err
			}
			if err := tx.Exec("DELETE FROM genre_titles WHERE title_id = ?", title.ID).Error; err != nil {
				return err
			}
			return tx.Delete(&title).Error
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete title"})
			return
		}
		_ = utils.DeleteCache(context.Background(), rdb, titleCacheKey(title.ID))
		c.Status(http.StatusNoContent)
	}
}
