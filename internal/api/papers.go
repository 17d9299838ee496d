package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "paperflow_go_backend/internal/errors"
	"paperflow_go_backend/internal/manuscript"
	"paperflow_go_backend/internal/models"
	"paperflow_go_backend/internal/report"
	"paperflow_go_backend/internal/services"
)

func submitPaperHandler(papers services.PaperService, maxUploadBytes int64) gin.HandlerFunc {
	if maxUploadBytes <= 0 {
		maxUploadBytes = manuscript.DefaultMaxBytes
	}
	return func(c *gin.Context) {
		actor, ok := currentActor(c)
		if !ok {
			return
		}

		conferenceID, err := uuid.Parse(strings.TrimSpace(c.PostForm("conference_id")))
		if err != nil {
			apperrors.HandleError(c, apperrors.New400Error("Invalid conference_id"))
			return
		}
		categoryIDs, err := parseIDList(c.PostFormArray("category_ids"), "category_ids")
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		coAuthorIDs, err := parseIDList(c.PostFormArray("co_author_ids"), "co_author_ids")
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}

		var upload *services.Upload
		if fileHeader, err := c.FormFile("file"); err == nil {
			f, err := fileHeader.Open()
			if err != nil {
				apperrors.HandleError(c, apperrors.New400Error("Failed to read uploaded file"))
				return
			}
			// One byte past the limit is enough for the size check to fail.
			data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
			f.Close()
			if err != nil {
				apperrors.HandleError(c, apperrors.New400Error("Failed to read uploaded file"))
				return
			}
			upload = &services.Upload{Filename: fileHeader.Filename, Data: data}
		} else if err != http.ErrMissingFile {
			apperrors.HandleError(c, apperrors.New400Error("Invalid multipart form"))
			return
		}

		paper, err := papers.SubmitPaper(c.Request.Context(), actor, services.PaperSubmission{
			Title:        c.PostForm("title"),
			Abstract:     c.PostForm("abstract"),
			Keywords:     c.PostForm("keywords"),
			ConferenceID: conferenceID,
			CategoryIDs:  categoryIDs,
			CoAuthorIDs:  coAuthorIDs,
		}, upload)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusCreated, paper)
	}
}

func browsePapersHandler(papers services.PaperService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c)
		if !ok {
			return
		}
		var filter services.BrowseFilter
		var err error
		if filter.ConferenceID, err = queryID(c, "conference_id"); err != nil {
			apperrors.HandleError(c, err)
			return
		}
		if filter.CategoryID, err = queryID(c, "category_id"); err != nil {
			apperrors.HandleError(c, err)
			return
		}
		if raw := strings.TrimSpace(c.Query("status")); raw != "" {
			status := models.PaperStatus(strings.ToUpper(raw))
			if !status.Valid() {
				apperrors.HandleError(c, apperrors.New400Error("Invalid status"))
				return
			}
			filter.Status = &status
		}
		filter.Query = c.Query("q")

		result, err := papers.BrowsePapers(c.Request.Context(), actor, filter)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"papers": result, "count": len(result)})
	}
}

func paperDetailHandler(papers services.PaperService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		detail, err := papers.GetPaperDetail(c.Request.Context(), actor, id)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, detail)
	}
}

func downloadHandler(papers services.PaperService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		rc, name, err := papers.OpenManuscript(c.Request.Context(), actor, id)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		defer rc.Close()

		c.DataFromReader(http.StatusOK, -1, manuscript.ContentType(name), rc, map[string]string{
			"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, name),
		})
	}
}

func summaryReportHandler(papers services.PaperService, now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		detail, err := papers.GetPaperDetail(c.Request.Context(), actor, id)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		if !detail.Access.CanViewReviews || detail.Scores == nil {
			apperrors.HandleError(c, apperrors.NewForbiddenError("You may not view the reviews of this paper"))
			return
		}

		var buf bytes.Buffer
		err = report.WriteSummaryPDF(&buf, report.Summary{
			Paper:       *detail.Paper,
			Scores:      *detail.Scores,
			Reviews:     detail.Reviews,
			GeneratedAt: now(),
		})
		if err != nil {
			apperrors.HandleError(c, apperrors.LogAndReturn500(err))
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="review-summary-%s.pdf"`, id))
		c.Data(http.StatusOK, "application/pdf", buf.Bytes())
	}
}

func statusHistoryHandler(papers services.PaperService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		history, err := papers.GetStatusHistory(c.Request.Context(), actor, id)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"history": history})
	}
}

func scoresHandler(scores services.ScoreService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		summary, err := scores.GetAggregateScore(c.Request.Context(), actor, id)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func accessHandler(scores services.ScoreService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		decision, err := scores.CheckAccess(c.Request.Context(), actor, id)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, decision)
	}
}
