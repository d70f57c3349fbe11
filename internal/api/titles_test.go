package api

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTitleCreateRoundTrip(t *testing.T) {
	r, conn, m := newTestApp(t)
	admin := newAdmin(t, r, conn, m, "root")

	id := seedTitle(t, r, admin, "Dune", 1965, "scifi", []string{"sf", "space-opera"})

	w := doRequest(t, r, http.MethodGet, fmt.Sprintf("/titles/%d", id), nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)

	assert.Equal(t, "Dune", body["name"])
	assert.EqualValues(t, 1965, body["year"])
	// No reviews yet: rating is null
	assert.Nil(t, body["rating"])

	category := body["category"].(map[string]any)
	assert.Equal(t, "scifi", category["slug"])

	genres := body["genre"].([]any)
	slugs := map[string]bool{}
	for _, g := range genres {
		slugs[g.(map[string]any)["slug"].(string)] = true
	}
	assert.True(t, slugs["sf"])
	assert.True(t, slugs["space-opera"])
	assert.Len(t, genres, 2)
}

func TestTitleWritePermissions(t *testing.T) {
	r, conn, m := newTestApp(t)
	admin := newAdmin(t, r, conn, m, "root")
	user := signupAndActivate(t, r, m, "alice", "a@x.com")

	doRequest(t, r, http.MethodPost, "/categories", gin.H{"name": "Books", "slug": "books"}, admin)
	doRequest(t, r, http.MethodPost, "/genres", gin.H{"name": "Drama", "slug": "drama"}, admin)

	payload := gin.H{"name": "X", "year": 2000, "category": "books", "genre": []string{"drama"}}

	w := doRequest(t, r, http.MethodPost, "/titles", payload, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(t, r, http.MethodPost, "/titles", payload, user)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(t, r, http.MethodPost, "/titles", payload, admin)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestTitleCreateValidation(t *testing.T) {
	r, conn, m := newTestApp(t)
	admin := newAdmin(t, r, conn, m, "root")

	doRequest(t, r, http.MethodPost, "/categories", gin.H{"name": "Books", "slug": "books"}, admin)
	doRequest(t, r, http.MethodPost, "/genres", gin.H{"name": "Drama", "slug": "drama"}, admin)

	// Year after the current calendar year
	next := time.Now().Year() + 1
	w := doRequest(t, r, http.MethodPost, "/titles",
		gin.H{"name": "X", "year": next, "category": "books", "genre": []string{"drama"}}, admin)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "year")

	// Current year is the inclusive upper bound
	w = doRequest(t, r, http.MethodPost, "/titles",
		gin.H{"name": "X", "year": time.Now().Year(), "category": "books", "genre": []string{"drama"}}, admin)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Empty genre list
	w = doRequest(t, r, http.MethodPost, "/titles",
		gin.H{"name": "Y", "year": 2000, "category": "books", "genre": []string{}}, admin)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "genre")

	// Unknown category slug
	w = doRequest(t, r, http.MethodPost, "/titles",
		gin.H{"name": "Y", "year": 2000, "category": "nope", "genre": []string{"drama"}}, admin)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// Unknown genre slug
	w = doRequest(t, r, http.MethodPost, "/titles",
		gin.H{"name": "Y", "year": 2000, "category": "books", "genre": []string{"drama", "nope"}}, admin)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestTitleRatingFollowsReviews(t *testing.T) {
	r, conn, m := newTestApp(t)
	admin := newAdmin(t, r, conn, m, "root")
	alice := signupAndActivate(t, r, m, "alice", "a@x.com")
	bob := signupAndActivate(t, r, m, "bob", "b@x.com")

	id := seedTitle(t, r, admin, "Dune", 1965, "scifi", []string{"sf"})
	reviewsPath := fmt.Sprintf("/titles/%d/reviews", id)
	titlePath := fmt.Sprintf("/titles/%d", id)

	w := doRequest(t, r, http.MethodGet, titlePath, nil, "")
	assert.Nil(t, decodeBody(t, w)["rating"])

	w = doRequest(t, r, http.MethodPost, reviewsPath, gin.H{"text": "great", "score": 8}, alice)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doRequest(t, r, http.MethodGet, titlePath, nil, "")
	assert.EqualValues(t, 8, decodeBody(t, w)["rating"])

	w = doRequest(t, r, http.MethodPost, reviewsPath, gin.H{"text": "fine", "score": 6}, bob)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doRequest(t, r, http.MethodGet, titlePath, nil, "")
	assert.EqualValues(t, 7, decodeBody(t, w)["rating"])

	// Rescoring a review moves the average too
	reviewID := reviewIDFor(t, r, reviewsPath, "bob")
	w = doRequest(t, r, http.MethodPatch, fmt.Sprintf("%s/%d", reviewsPath, reviewID), gin.H{"text": "fine", "score": 2}, bob)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(t, r, http.MethodGet, titlePath, nil, "")
	assert.EqualValues(t, 5, decodeBody(t, w)["rating"])

	// Deleting a review moves the average back
	w = doRequest(t, r, http.MethodDelete, fmt.Sprintf("%s/%d", reviewsPath, reviewID), nil, bob)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(t, r, http.MethodGet, titlePath, nil, "")
	assert.EqualValues(t, 8, decodeBody(t, w)["rating"])
}

// reviewIDFor finds the listed review written by the given author.
func reviewIDFor(t *testing.T, r *gin.Engine, reviewsPath, author string) uint {
	t.Helper()
	w := doRequest(t, r, http.MethodGet, reviewsPath, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	for _, item := range decodeBody(t, w)["reviews"].([]any) {
		review := item.(map[string]any)
		if review["author"] == author {
			return uint(review["id"].(float64))
		}
	}
	t.Fatalf("no review by %s", author)
	return 0
}

func TestTitleListFiltersAndOrdering(t *testing.T) {
	r, conn, m := newTestApp(t)
	admin := newAdmin(t, r, conn, m, "root")

	seedTitle(t, r, admin, "Dune", 1965, "scifi", []string{"sf"})
	seedTitle(t, r, admin, "Solaris", 1961, "scifi", []string{"sf"})
	seedTitle(t, r, admin, "Dune Messiah", 1969, "books", []string{"drama"})

	listNames := func(path string) []string {
		w := doRequest(t, r, http.MethodGet, path, nil, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var names []string
		for _, item := range decodeBody(t, w)["titles"].([]any) {
			names = append(names, item.(map[string]any)["name"].(string))
		}
		return names
	}

	// Case-insensitive exact category slug
	assert.ElementsMatch(t, []string{"Dune", "Solaris"}, listNames("/titles?category=SciFi"))
	// Case-insensitive exact genre slug
	assert.ElementsMatch(t, []string{"Dune Messiah"}, listNames("/titles?genre=DRAMA"))
	// Case-insensitive name substring
	assert.ElementsMatch(t, []string{"Dune", "Dune Messiah"}, listNames("/titles?name=dune"))
	// Exact year
	assert.ElementsMatch(t, []string{"Solaris"}, listNames("/titles?year=1961"))
	// Ordering by year descending
	assert.Equal(t, []string{"Dune Messiah", "Dune", "Solaris"}, listNames("/titles?ordering=-year"))
	// Default ordering is by name
	assert.Equal(t, []string{"Dune", "Dune Messiah", "Solaris"}, listNames("/titles"))

	// Unknown ordering field is rejected
	w := doRequest(t, r, http.MethodGet, "/titles?ordering=id", nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestTitlePatchAndDeleteCascade(t *testing.T) {
	r, conn, m := newTestApp(t)
	admin := newAdmin(t, r, conn, m, "root")
	alice := signupAndActivate(t, r, m, "alice", "a@x.com")

	id := seedTitle(t, r, admin, "Dune", 1965, "scifi", []string{"sf"})
	titlePath := fmt.Sprintf("/titles/%d", id)
	reviewsPath := titlePath + "/reviews"

	doRequest(t, r, http.MethodPost, "/genres", gin.H{"name": "Epic", "slug": "epic"}, admin)

	// Patch swaps the genre set and updates the year
	w := doRequest(t, r, http.MethodPatch, titlePath, gin.H{"year": 1966, "genre": []string{"epic"}}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.EqualValues(t, 1966, body["year"])
	genres := body["genre"].([]any)
	require.Len(t, genres, 1)
	assert.Equal(t, "epic", genres[0].(map[string]any)["slug"])

	w = doRequest(t, r, http.MethodPost, reviewsPath, gin.H{"text": "great", "score": 9}, alice)
	require.Equal(t, http.StatusCreated, w.Code)

	// Delete removes the title and its review tree
	w = doRequest(t, r, http.MethodDelete, titlePath, nil, admin)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(t, r, http.MethodGet, titlePath, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doRequest(t, r, http.MethodGet, reviewsPath, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
