package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"reviewhub/internal/config"
	"reviewhub/internal/db"
	"reviewhub/internal/domain"
)

const testJWTSecret = "test-secret"

// recordingMailer captures outbound mail so tests can read the
// confirmation code the way a user would.
type recordingMailer struct {
	To      []string
	Bodies  []string
	FailAll bool
}

func (m *recordingMailer) Send(to, subject, body string) error {
	if m.FailAll {
		return fmt.Errorf("relay unavailable")
	}
	m.To = append(m.To, to)
	m.Bodies = append(m.Bodies, body)
	return nil
}

// lastCode extracts the confirmation code from the most recent message.
func (m *recordingMailer) lastCode(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, m.Bodies, "no mail was sent")
	body := m.Bodies[len(m.Bodies)-1]
	idx := strings.LastIndex(body, ": ")
	require.Greater(t, idx, 0, "unexpected mail body: %s", body)
	return strings.TrimSpace(body[idx+2:])
}

// newTestApp builds the full router over an in-memory sqlite database.
// Caching is off (no redis client).
func newTestApp(t *testing.T) (*gin.Engine, *gorm.DB, *recordingMailer) {
	t.Helper()
	return buildTestApp(t, nil)
}

// newTestAppWithRedis runs the same app against a miniredis instance so
// caching behaviour is observable.
func newTestAppWithRedis(t *testing.T) (*gin.Engine, *gorm.DB, *recordingMailer, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	r, conn, m := buildTestApp(t, rdb)
	return r, conn, m, rdb
}

func buildTestApp(t *testing.T, rdb *redis.Client) (*gin.Engine, *gorm.DB, *recordingMailer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// One connection so every query sees the same in-memory database
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.Migrate(conn))

	m := &recordingMailer{}
	cfg := &config.Config{JWTSecret: testJWTSecret}
	return NewRouter(conn, rdb, m, cfg), conn, m
}

// doRequest performs one JSON round trip against the router.
func doRequest(t *testing.T, r *gin.Engine, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// decodeBody unmarshals a response body into a generic map.
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// signupAndActivate walks the full signup + token exchange for a fresh
// account and returns its bearer token.
func signupAndActivate(t *testing.T, r *gin.Engine, m *recordingMailer, username, email string) string {
	t.Helper()
	w := doRequest(t, r, http.MethodPost, "/auth/signup", gin.H{"username": username, "email": email}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = doRequest(t, r, http.MethodPost, "/auth/token", gin.H{
		"username":          username,
		"confirmation_code": m.lastCode(t),
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeBody(t, w)["token"].(string)
}

// promote changes an account's role directly in the store.
func promote(t *testing.T, conn *gorm.DB, username, role string) {
	t.Helper()
	res := conn.Model(&domain.User{}).Where("username = ?", username).Update("role", role)
	require.NoError(t, res.Error)
	require.EqualValues(t, 1, res.RowsAffected)
}

// newAdmin signs up, activates and promotes an account in one step.
func newAdmin(t *testing.T, r *gin.Engine, conn *gorm.DB, m *recordingMailer, username string) string {
	t.Helper()
	token := signupAndActivate(t, r, m, username, username+"@example.com")
	promote(t, conn, username, domain.RoleAdmin)
	return token
}

// seedTitle creates a category, genres and one title through the API,
// returning the new title's ID.
func seedTitle(t *testing.T, r *gin.Engine, adminToken, name string, year int, categorySlug string, genreSlugs []string) uint {
	t.Helper()
	w := doRequest(t, r, http.MethodPost, "/categories", gin.H{"name": categorySlug, "slug": categorySlug}, adminToken)
	require.Contains(t, []int{http.StatusCreated, http.StatusConflict}, w.Code, w.Body.String())
	for _, slug := range genreSlugs {
		w = doRequest(t, r, http.MethodPost, "/genres", gin.H{"name": slug, "slug": slug}, adminToken)
		require.Contains(t, []int{http.StatusCreated, http.StatusConflict}, w.Code, w.Body.String())
	}
	w = doRequest(t, r, http.MethodPost, "/titles", gin.H{
		"name":     name,
		"year":     year,
		"category": categorySlug,
		"genre":    genreSlugs,
	}, adminToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return uint(decodeBody(t, w)["id"].(float64))
}
