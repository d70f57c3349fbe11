package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"reviewhub/internal/domain"
	"reviewhub/internal/middleware"
	"reviewhub/internal/utils"
	"reviewhub/internal/validation"
)

// UserResponse is the profile representation for both admin views and /users/me.
type UserResponse struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Bio       string `json:"bio"`
	Role      string `json:"role"`
}

func newUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Bio:       u.Bio,
		Role:      u.Role,
	}
}

// UserCreateRequest is the admin create payload; role is optional.
type UserCreateRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Bio       string `json:"bio"`
	Role      string `json:"role"`
}

// UserUpdateRequest patches a profile; absent fields keep their value.
// The role field is honored only on the admin path, never on self-edit.
type UserUpdateRequest struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Bio       *string `json:"bio"`
	Role      *string `json:"role"`
}

// requireAdmin answers Forbidden unless the caller is an administrator.
func requireAdmin(c *gin.Context) (*domain.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}
	if !user.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return nil, false
	}
	return user, true
}

// ListUsersHandler returns users for administrators, paginated, with
// optional ?search= username prefix. Pages are cached briefly.
func ListUsersHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background()
		cacheKey := "admin:users:page=" + c.DefaultQuery("page", "1") +
			":size=" + c.DefaultQuery("page_size", "20") +
			":search=" + c.DefaultQuery("search", "")
		var cached struct {
			Users      []UserResponse `json:"users"`
			Page       int            `json:"page"`
			PageSize   int            `json:"page_size"`
			Total      int64          `json:"total"`
			TotalPages int            `json:"total_pages"`
		}
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"users":       cached.Users,
				"page":        cached.Page,
				"page_size":   cached.PageSize,
				"total":       cached.Total,
				"total_pages": cached.TotalPages,
				"cached":      true,
			})
			return
		}
		page, pageSize, offset := pageParams(c)
		query := db.Model(&domain.User{})
		if q := c.Query("search"); q != "" {
			query = query.Where("username LIKE ?", q+"%")
		}
		var total int64
		if err := query.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count users"})
			return
		}
		var users []domain.User
		if err := query.Order("username asc").Offset(offset).Limit(pageSize).Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
			return
		}
		resp := make([]UserResponse, len(users))
		for i := range users {
			resp[i] = newUserResponse(&users[i])
		}
		respData := gin.H{
			"users":       resp,
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": totalPages(total, pageSize),
			"cached":      false,
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, respData, 60*time.Second)
		c.JSON(http.StatusOK, respData)
	}
}

// CreateUserHandler creates an account on behalf of an administrator.
// The account starts inactive; the signup flow hands out its code.
func CreateUserHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UserCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		if err := validation.ValidateUsername(req.Username); err != nil {
			fieldError(c, http.StatusUnprocessableEntity, "username", err.Error())
			return
		}
		if err := validation.ValidateEmail(req.Email); err != nil {
			fieldError(c, http.StatusUnprocessableEntity, "email", err.Error())
			return
		}
		role := req.Role
		if role == "" {
			role = domain.RoleUser
		}
		if !domain.ValidRole(role) {
			fieldError(c, http.StatusUnprocessableEntity, "role", "Role must be one of user, moderator, admin")
			return
		}
		// Unusable placeholder until the user goes through signup.
		_, hash, err := utils.NewConfirmationCode()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate confirmation code"})
			return
		}
		user := domain.User{
			Username:         req.Username,
			Email:            req.Email,
			FirstName:        req.FirstName,
			LastName:         req.LastName,
			Bio:              req.Bio,
			Role:             role,
			ConfirmationCode: hash,
		}
		if err := db.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				var count int64
				db.Model(&domain.User{}).Where("email = ?", req.Email).Count(&count)
				if count > 0 {
					fieldError(c, http.StatusConflict, "email", "Email already taken!")
				} else {
					fieldError(c, http.StatusConflict, "username", "Username already taken!")
				}
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
			return
		}
		c.JSON(http.StatusCreated, newUserResponse(&user))
	}
}

// GetUserHandler reads a profile. "me" resolves to the caller; any other
// username requires admin.
func GetUserHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		username := c.Param("username")
		if username == "me" {
			c.JSON(http.StatusOK, newUserResponse(caller))
			return
		}
		if _, ok := requireAdmin(c); !ok {
			return
		}
		var user domain.User
		if err := db.Where("username = ?", username).First(&user).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusOK, newUserResponse(&user))
	}
}

// UpdateUserHandler patches a profile. On the "me" path the role field
// is read-only; on the admin path any user and any field may change.
func UpdateUserHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		username := c.Param("username")
		target := caller
		selfEdit := username == "me"
		if !selfEdit {
			if _, ok := requireAdmin(c); !ok {
				return
			}
			var user domain.User
			if err := db.Where("username = ?", username).First(&user).Error; err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
				return
			}
			target = &user
		}
		var req UserUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		updates := map[string]any{}
		if req.Username != nil {
			if err := validation.ValidateUsername(*req.Username); err != nil {
				fieldError(c, http.StatusUnprocessableEntity, "username", err.Error())
				return
			}
			updates["username"] = *req.Username
		}
		if req.Email != nil {
			if err := validation.ValidateEmail(*req.Email); err != nil {
				fieldError(c, http.StatusUnprocessableEntity, "email", err.Error())
				return
			}
			updates["email"] = *req.Email
		}
		if req.FirstName != nil {
			updates["first_name"] = *req.FirstName
		}
		if req.LastName != nil {
			updates["last_name"] = *req.LastName
		}
		if req.Bio != nil {
			updates["bio"] = *req.Bio
		}
		if req.Role != nil && !selfEdit {
			if !domain.ValidRole(*req.Role) {
				fieldError(c, http.StatusUnprocessableEntity, "role", "Role must be one of user, moderator, admin")
				return
			}
			updates["role"] = *req.Role
		}
		if len(updates) > 0 {
			if err := db.Model(target).Updates(updates).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					c.JSON(http.StatusConflict, gin.H{"error": "Username or email already taken"})
					return
				}
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
				return
			}
		}
		c.JSON(http.StatusOK, newUserResponse(target))
	}
}

// DeleteUserHandler removes an account and its authored content. Admin
// only; the "me" alias is not deletable through this endpoint.
func DeleteUserHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.Param("username")
		if username == "me" {
			c.JSON(http.StatusForbidden, gin.H{"error": "Cannot delete own account through this endpoint"})
			return
		}
		if _, ok := requireAdmin(c); !ok {
			return
		}
		var user domain.User
		if err := db.Where("username = ?", username).First(&user).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			// Comments under the user's reviews go first, then their own
			// comments and reviews, then the account.
			if err := tx.Where("review_id IN (?)",
				tx.Model(&domain.Review{}).Select("id").Where("author_id = ?", user.ID),
			).Delete(&domain.Comment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("author_id = ?", user.ID).Delete(&domain.Comment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("author_id = ?", user.ID).Delete(&domain.Review{}).Error; err != nil {
				return err
			}
			return tx.Delete(&user).Error
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}
