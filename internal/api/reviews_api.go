package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/reviewloop/internal/store"
	"github.com/reviewloop/pkg/models"
)

// ReviewSource reads persisted reviews.
type ReviewSource interface {
	GetByPublicID(ctx context.Context, publicID string) (*models.Review, error)
	ListByRepo(ctx context.Context, repoID int64, limit int) ([]*models.Review, error)
}

// ReviewsHandler serves the read-only review endpoints.
type ReviewsHandler struct {
	reviews ReviewSource
}

func NewReviewsHandler(reviews ReviewSource) *ReviewsHandler {
	return &ReviewsHandler{reviews: reviews}
}

// ListReviews returns recent reviews for a repository, newest first.
func (h *ReviewsHandler) ListReviews(c echo.Context) error {
	repoID, err := strconv.ParseInt(c.QueryParam("repo_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "repo_id query parameter is required"})
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "limit must be an integer"})
		}
	}

	reviews, err := h.reviews.ListByRepo(c.Request().Context(), repoID, limit)
	if err != nil {
		log.Error().Err(err).Int64("repo_id", repoID).Msg("Failed to list reviews")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"reviews": reviews})
}

// GetReview returns a single review by its public identifier.
func (h *ReviewsHandler) GetReview(c echo.Context) error {
	publicID := c.Param("publicId")

	review, err := h.reviews.GetByPublicID(c.Request().Context(), publicID)
	if err != nil {
		if errors.Is(err, store.ErrReviewNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "review not found"})
		}
		log.Error().Err(err).Str("public_id", publicID).Msg("Failed to get review")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}

	return c.JSON(http.StatusOK, review)
}
