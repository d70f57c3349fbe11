package api

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"reviewhub/internal/config"
	"reviewhub/internal/mailer"
	"reviewhub/internal/middleware"
)

// NewRouter wires every route with its permission tier: reads are open
// to anyone, category/genre/title writes are admin only, review and
// comment writes need authentication with author-or-staff checks in the
// handlers, and the user resource is admin plus the /users/me alias.
func NewRouter(db *gorm.DB, rdb *redis.Client, m mailer.Mailer, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	auth := middleware.JWTAuthMiddleware(db, cfg.JWTSecret)
	adminOnly := middleware.AdminOnlyMiddleware()

	// Auth flow
	r.POST("/auth/signup", SignupHandler(db, m))
	r.POST("/auth/token", TokenHandler(db, cfg.JWTSecret))

	// Categories and genres: open reads, admin writes, slug lookups
	r.GET("/categories", ListCategoriesHandler(db))
	r.POST("/categories", auth, adminOnly, CreateCategoryHandler(db))
	r.DELETE("/categories/:slug", auth, adminOnly, DeleteCategoryHandler(db, rdb))

	r.GET("/genres", ListGenresHandler(db))
	r.POST("/genres", auth, adminOnly, CreateGenreHandler(db))
	r.DELETE("/genres/:slug", auth, adminOnly, DeleteGenreHandler(db, rdb))

	// Titles: open reads with rating, admin writes
	r.GET("/titles", ListTitlesHandler(db))
	r.GET("/titles/:title_id", GetTitleHandler(db, rdb))
	r.POST("/titles", auth, adminOnly, CreateTitleHandler(db))
	r.PATCH("/titles/:title_id", auth, adminOnly, UpdateTitleHandler(db, rdb))
	r.DELETE("/titles/:title_id", auth, adminOnly, DeleteTitleHandler(db, rdb))

	// Reviews, scoped under their title
	r.GET("/titles/:title_id/reviews", ListReviewsHandler(db))
	r.GET("/titles/:title_id/reviews/:review_id", GetReviewHandler(db))
	r.POST("/titles/:title_id/reviews", auth, CreateReviewHandler(db, rdb))
	r.PATCH("/titles/:title_id/reviews/:review_id", auth, UpdateReviewHandler(db, rdb))
	r.DELETE("/titles/:title_id/reviews/:review_id", auth, DeleteReviewHandler(db, rdb))

	// Comments, scoped under their review alone
	r.GET("/reviews/:review_id/comments", ListCommentsHandler(db))
	r.GET("/reviews/:review_id/comments/:comment_id", GetCommentHandler(db))
	r.POST("/reviews/:review_id/comments", auth, CreateCommentHandler(db))
	r.PATCH("/reviews/:review_id/comments/:comment_id", auth, UpdateCommentHandler(db))
	r.DELETE("/reviews/:review_id/comments/:comment_id", auth, DeleteCommentHandler(db))

	// Users: list/create gated here, the :username handlers resolve the
	// "me" alias themselves because its rules differ from the admin path
	r.GET("/users", auth, adminOnly, ListUsersHandler(db, rdb))
	r.POST("/users", auth, adminOnly, CreateUserHandler(db))
	r.GET("/users/:username", auth, GetUserHandler(db))
	r.PATCH("/users/:username", auth, UpdateUserHandler(db))
	r.DELETE("/users/:username", auth, DeleteUserHandler(db))

	return r
}
