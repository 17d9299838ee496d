package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"paperflow_go_backend/internal/auth"
	"paperflow_go_backend/internal/models"
	"paperflow_go_backend/internal/services"
	"paperflow_go_backend/internal/wsocket"
)

// Dependencies are the services the HTTP surface is built on.
type Dependencies struct {
	Users       services.UserService
	Papers      services.PaperService
	Assignments services.AssignmentService
	Reviews     services.ReviewService
	Scores      services.ScoreService
	Conferences services.ConferenceService

	JWTSecret      []byte
	MaxUploadBytes int64
	Events         *wsocket.Handler
	Gatherer       prometheus.Gatherer
	Now            func() time.Time
}

func SetupRoutes(r *gin.Engine, deps Dependencies) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	authenticated := auth.AuthMiddleware(deps.Users, deps.JWTSecret)
	adminOnly := auth.RequireRole(models.RoleAdmin)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	auth.SetupRoutes(r, deps.Users, deps.JWTSecret)

	api := r.Group("/api", authenticated, auth.RequireActive())
	{
		api.POST("/papers", submitPaperHandler(deps.Papers, deps.MaxUploadBytes))
		api.GET("/papers", browsePapersHandler(deps.Papers))
		api.GET("/papers/:id", paperDetailHandler(deps.Papers))
		api.GET("/papers/:id/download", downloadHandler(deps.Papers))
		api.GET("/papers/:id/scores", scoresHandler(deps.Scores))
		api.GET("/papers/:id/report.pdf", summaryReportHandler(deps.Papers, deps.Now))
		api.GET("/papers/:id/history", statusHistoryHandler(deps.Papers))
		api.GET("/papers/:id/access", accessHandler(deps.Scores))
		api.POST("/papers/:id/reviewers", assignReviewerHandler(deps.Assignments))

		api.POST("/reviews/:id/submit", submitReviewHandler(deps.Reviews))
		api.GET("/reviews/mine", dashboardHandler(deps.Reviews))

		api.GET("/conferences", listConferencesHandler(deps.Conferences))
		api.GET("/conferences/:id", getConferenceHandler(deps.Conferences))
		api.GET("/conferences/:id/proceedings.bib", proceedingsHandler(deps.Conferences, deps.Papers))
		api.GET("/categories", listCategoriesHandler(deps.Conferences))
	}

	admin := api.Group("/admin", adminOnly)
	{
		admin.GET("/papers/needing-reviewers", needingReviewersHandler(deps.Papers))
		admin.GET("/papers/:id/available-reviewers", availableReviewersHandler(deps.Assignments))
		admin.PUT("/papers/:id/status", setStatusHandler(deps.Papers))
		admin.POST("/conferences", createConferenceHandler(deps.Conferences))
		admin.PUT("/conferences/:id", updateConferenceHandler(deps.Conferences))
		admin.POST("/categories", createCategoryHandler(deps.Conferences))
		admin.GET("/users", listUsersHandler(deps.Users))
		admin.PUT("/users/:id", updateUserHandler(deps.Users))
		admin.POST("/users/:id/deactivate", setUserActiveHandler(deps.Users, false))
		admin.POST("/users/:id/activate", setUserActiveHandler(deps.Users, true))
	}

	if deps.Events != nil {
		r.GET("/ws/events", authenticated, adminOnly, func(c *gin.Context) {
			actor, _ := auth.CurrentActor(c)
			deps.Events.HandleWebSocket(c.Writer, c.Request, actor)
		})
	}
}
