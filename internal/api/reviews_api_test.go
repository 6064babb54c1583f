package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewloop/internal/store"
	"github.com/reviewloop/pkg/models"
)

type fakeReviewSource struct {
	byPublicID map[string]*models.Review
	byRepo     map[int64][]*models.Review
}

func (f *fakeReviewSource) GetByPublicID(ctx context.Context, publicID string) (*models.Review, error) {
	review, ok := f.byPublicID[publicID]
	if !ok {
		return nil, store.ErrReviewNotFound
	}
	return review, nil
}

func (f *fakeReviewSource) ListByRepo(ctx context.Context, repoID int64, limit int) ([]*models.Review, error) {
	return f.byRepo[repoID], nil
}

func TestListReviews(t *testing.T) {
	source := &fakeReviewSource{byRepo: map[int64][]*models.Review{
		10: {
			{ID: 2, PublicID: "pub-2", PRNumber: 8, RepoID: 10, AIFeedback: json.RawMessage(`[]`)},
			{ID: 1, PublicID: "pub-1", PRNumber: 7, RepoID: 10, AIFeedback: json.RawMessage(`[{"file":"a.ts","line":3,"comment":"fix this"}]`)},
		},
	}}
	handler := NewReviewsHandler(source)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews?repo_id=10", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, handler.ListReviews(echo.New().NewContext(req, rec)))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Reviews []models.Review `json:"reviews"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Reviews, 2)
	assert.Equal(t, "pub-2", resp.Reviews[0].PublicID)
}

func TestListReviewsMissingRepoID(t *testing.T) {
	handler := NewReviewsHandler(&fakeReviewSource{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, handler.ListReviews(echo.New().NewContext(req, rec)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetReview(t *testing.T) {
	source := &fakeReviewSource{byPublicID: map[string]*models.Review{
		"pub-1": {ID: 1, PublicID: "pub-1", PRNumber: 7, RepoID: 10, AIFeedback: json.RawMessage(`[]`)},
	}}
	handler := NewReviewsHandler(source)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.SetParamNames("publicId")
	c.SetParamValues("pub-1")

	require.NoError(t, handler.GetReview(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pub-1")
}

func TestGetReviewNotFound(t *testing.T) {
	handler := NewReviewsHandler(&fakeReviewSource{byPublicID: map[string]*models.Review{}})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.SetParamNames("publicId")
	c.SetParamValues("missing")

	require.NoError(t, handler.GetReview(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
