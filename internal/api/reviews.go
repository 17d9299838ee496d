package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "paperflow_go_backend/internal/errors"
	"paperflow_go_backend/internal/services"
	"paperflow_go_backend/internal/workflow"
)

type assignReviewerRequest struct {
	ReviewerID uuid.UUID  `json:"reviewer_id"`
	Deadline   *time.Time `json:"deadline"`
}

func assignReviewerHandler(assignments services.AssignmentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c)
		if !ok {
			return
		}
		paperID, ok := pathID(c, "id")
		if !ok {
			return
		}
		var request assignReviewerRequest
		if !bindJSON(c, &request) {
			return
		}
		if request.ReviewerID == uuid.Nil {
			apperrors.HandleError(c, apperrors.New400Error("reviewer_id is required"))
			return
		}

		review, err := assignments.AssignReviewer(c.Request.Context(), actor, paperID, request.ReviewerID, request.Deadline)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusCreated, review)
	}
}

func submitReviewHandler(reviews services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c)
		if !ok {
			return
		}
		reviewID, ok := pathID(c, "id")
		if !ok {
			return
		}
		var submission workflow.ReviewSubmission
		if err := c.ShouldBindJSON(&submission); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) && strings.HasPrefix(typeErr.Field, "scores") {
				apperrors.HandleError(c, apperrors.NewIncompleteReviewError("scores must be integers"))
				return
			}
			apperrors.HandleError(c, apperrors.New400Error("Invalid request body"))
			return
		}

		result, err := reviews.SubmitReview(c.Request.Context(), actor, reviewID, submission)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func dashboardHandler(reviews services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c)
		if !ok {
			return
		}
		dashboard, err := reviews.ReviewerDashboard(c.Request.Context(), actor)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, dashboard)
	}
}
