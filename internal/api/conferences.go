package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "paperflow_go_backend/internal/errors"
	"paperflow_go_backend/internal/models"
	"paperflow_go_backend/internal/report"
	"paperflow_go_backend/internal/services"
	"paperflow_go_backend/internal/workflow"
)

func listConferencesHandler(conferences services.ConferenceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := conferences.ListConferences(c.Request.Context())
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"conferences": result})
	}
}

func getConferenceHandler(conferences services.ConferenceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		conference, err := conferences.GetConference(c.Request.Context(), id)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, conference)
	}
}

func createConferenceHandler(conferences services.ConferenceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c)
		if !ok {
			return
		}
		var input services.ConferenceInput
		if !bindJSON(c, &input) {
			return
		}
		conference, err := conferences.CreateConference(c.Request.Context(), actor, input)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusCreated, conference)
	}
}

func updateConferenceHandler(conferences services.ConferenceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var input services.ConferenceInput
		if !bindJSON(c, &input) {
			return
		}
		conference, err := conferences.UpdateConference(c.Request.Context(), actor, id, input)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, conference)
	}
}

func listCategoriesHandler(conferences services.ConferenceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := conferences.ListCategories(c.Request.Context())
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"categories": result})
	}
}

func createCategoryHandler(conferences services.ConferenceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c)
		if !ok {
			return
		}
		var input services.CategoryInput
		if !bindJSON(c, &input) {
			return
		}
		category, err := conferences.CreateCategory(c.Request.Context(), actor, input)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusCreated, category)
	}
}

func proceedingsHandler(conferences services.ConferenceService, papers services.PaperService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c)
		if !ok {
			return
		}
		if err := workflow.Authorize(actor, models.RoleAuthor, models.RoleReviewer, models.RoleAdmin); err != nil {
			apperrors.HandleError(c, err)
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		conference, err := conferences.GetConference(c.Request.Context(), id)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		accepted := models.PaperStatusAccepted
		list, err := papers.BrowsePapers(c.Request.Context(), actor, services.BrowseFilter{
			ConferenceID: &conference.ID,
			Status:       &accepted,
		})
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}

		var buf bytes.Buffer
		if err := report.WriteProceedings(&buf, *conference, list); err != nil {
			apperrors.HandleError(c, apperrors.LogAndReturn500(err))
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="proceedings-%d.bib"`, conference.Year))
		c.Data(http.StatusOK, "application/x-bibtex; charset=utf-8", buf.Bytes())
	}
}
