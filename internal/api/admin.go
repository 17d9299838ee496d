package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "paperflow_go_backend/internal/errors"
	"paperflow_go_backend/internal/models"
	"paperflow_go_backend/internal/services"
)

type setStatusRequest struct {
	Status models.PaperStatus `json:"status" binding:"required"`
	Reason string             `json:"reason"`
}

func needingReviewersHandler(papers services.PaperService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c)
		if !ok {
			return
		}
		demand, err := papers.PapersNeedingReviewers(c.Request.Context(), actor)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"papers": demand, "count": len(demand)})
	}
}

func setStatusHandler(papers services.PaperService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var request setStatusRequest
		if !bindJSON(c, &request) {
			return
		}
		paper, err := papers.SetPaperStatus(c.Request.Context(), actor, id, request.Status, request.Reason)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, paper)
	}
}

func setUserActiveHandler(users services.UserService, active bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		user, err := users.SetUserActive(c.Request.Context(), actor, id, active)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func listUsersHandler(users services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c)
		if !ok {
			return
		}
		query := services.UserQuery{
			Role:   models.UserRole(strings.ToUpper(strings.TrimSpace(c.Query("role")))),
			Search: c.Query("q"),
		}
		if raw := c.Query("active"); raw != "" {
			active, err := strconv.ParseBool(raw)
			if err != nil {
				apperrors.HandleError(c, apperrors.New400Error("Invalid active"))
				return
			}
			query.Active = &active
		}
		list, err := users.ListUsers(c.Request.Context(), actor, query)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"users": list, "count": len(list)})
	}
}

func updateUserHandler(users services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var update services.UserUpdate
		if !bindJSON(c, &update) {
			return
		}
		user, err := users.UpdateUser(c.Request.Context(), actor, id, update)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func availableReviewersHandler(assignments services.AssignmentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		reviewers, err := assignments.AvailableReviewers(c.Request.Context(), actor, id)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"reviewers": reviewers, "count": len(reviewers)})
	}
}
