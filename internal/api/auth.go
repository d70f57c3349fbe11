package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"reviewhub/internal/domain"
	"reviewhub/internal/mailer"
	"reviewhub/internal/utils"
	"reviewhub/internal/validation"
)

// Mail copy for the confirmation code message.
const (
	signupMailSubject = "Registration confirmation"
	signupMailBody    = "Hello, %s.\nYour confirmation code: %s"
)

// SignupRequest carries the two fields needed to register or to request
// a fresh confirmation code for an existing registration.
type SignupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
}

// TokenRequest exchanges a mailed confirmation code for a bearer token.
type TokenRequest struct {
	Username         string `json:"username" binding:"required"`
	ConfirmationCode string `json:"confirmation_code" binding:"required"`
}

// AuthResponse carries the issued bearer token.
type AuthResponse struct {
	Token string `json:"token"`
}

// SignupHandler registers a new inactive account and mails it a
// confirmation code. Retrying with the same (username, email) pair is
// idempotent: the code is regenerated and resent. A collision on just
// one of the two fields is a conflict.
func SignupHandler(db *gorm.DB, m mailer.Mailer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SignupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		if err := validation.ValidateUsername(req.Username); err != nil {
			fieldError(c, http.StatusUnprocessableEntity, "username", err.Error())
			return
		}
		req.Email = strings.TrimSpace(req.Email)
		if err := validation.ValidateEmail(req.Email); err != nil {
			fieldError(c, http.StatusUnprocessableEntity, "email", err.Error())
			return
		}

		code, hash, err := utils.NewConfirmationCode()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate confirmation code"})
			return
		}

		var user domain.User
		err = db.Where("username = ? AND email = ?", req.Username, req.Email).First(&user).Error
		switch {
		case err == nil:
			// Idempotent retry: rotate the stored code and resend.
			if err := db.Model(&user).Update("confirmation_code", hash).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update confirmation code"})
				return
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			user = domain.User{
				Username:         req.Username,
				Email:            req.Email,
				Role:             domain.RoleUser,
				ConfirmationCode: hash,
			}
			if err := db.Create(&user).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					// The store rejected the row; pick the message by
					// which field actually collides.
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
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up user"})
			return
		}

		// Best-effort: a failed send must not undo the registration, the
		// idempotent retry path exists exactly for this case.
		body := fmt.Sprintf(signupMailBody, user.Username, code)
		if err := m.Send(user.Email, signupMailSubject, body); err != nil {
			logrus.WithField("email", user.Email).Warnf("confirmation mail failed: %v", err)
		}

		c.JSON(http.StatusOK, gin.H{"username": user.Username, "email": user.Email})
	}
}

// TokenHandler exchanges a confirmation code for a bearer token,
// activating the account on first success. The stored code is rotated
// so a replayed code is rejected.
func TokenHandler(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		var user domain.User
		if err := db.Where("username = ?", req.Username).First(&user).Error; err != nil {
			fieldError(c, http.StatusNotFound, "username", "User not found")
			return
		}
		if !utils.CheckConfirmationCode(user.ConfirmationCode, req.ConfirmationCode) {
			fieldError(c, http.StatusBadRequest, "confirmation_code", "Invalid confirmation code")
			return
		}

		// Rotate the stored hash so the code is single-use.
		_, rotated, err := utils.NewConfirmationCode()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to rotate confirmation code"})
			return
		}
		updates := map[string]any{"active": true, "confirmation_code": rotated}
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to activate user"})
			return
		}

		token, err := utils.GenerateJWT(user.ID, jwtSecret)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		c.JSON(http.StatusCreated, AuthResponse{Token: token})
	}
}
