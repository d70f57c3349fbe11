package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// fieldError returns an error body scoped to the field that caused it,
// e.g. {"username": "..."}. Non-field errors use the "error" key.
func fieldError(c *gin.Context, status int, field, msg string) {
	c.JSON(status, gin.H{field: msg})
}

// bindError reports a malformed or incomplete request body. Binding
// rule failures are keyed by the offending field; only a body that
// cannot be parsed at all gets the generic "error" key.
func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		body := gin.H{}
		for _, fe := range verrs {
			msg := "Invalid value"
			if fe.Tag() == "required" {
				msg = "This field is required"
			}
			body[jsonFieldName(fe.Field())] = msg
		}
		c.JSON(http.StatusUnprocessableEntity, body)
		return
	}
	c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid request body"})
}

// jsonFieldName maps a struct field name to its JSON key,
// e.g. ConfirmationCode to confirmation_code.
func jsonFieldName(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// pageParams reads page/page_size query parameters with the usual
// defaults and caps, returning the resulting offset as well.
func pageParams(c *gin.Context) (page, pageSize, offset int) {
	page = 1
	pageSize = 20
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}
	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}
	return page, pageSize, (page - 1) * pageSize
}

// totalPages computes the page count for a pagination envelope.
func totalPages(total int64, pageSize int) int {
	return (int(total) + pageSize - 1) / pageSize
}
