package api

import (
	"net/http"

	"transcribeapi/internal/feedback"
	"transcribeapi/internal/lexiconadmin"
	"transcribeapi/internal/repository"
	"transcribeapi/internal/submission"
	"transcribeapi/pkg/logger"
	"transcribeapi/pkg/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler bundles every HTTP-facing sub-handler behind one router setup.
type Handler struct {
	Jobs     *JobsHandler
	Lexicons *LexiconHandler
	Feedback *FeedbackHandler
}

// NewHandler constructs a Handler from the service layer.
func NewHandler(submission *submission.Service, jobs repository.JobRepository, lexicons *lexiconadmin.Service, feedbackSvc *feedback.Service) *Handler {
	return &Handler{
		Jobs:     NewJobsHandler(submission, jobs),
		Lexicons: NewLexiconHandler(lexicons),
		Feedback: NewFeedbackHandler(feedbackSvc),
	}
}

// SetupRoutes wires the full route tree onto a fresh gin engine: a plain
// health check, Prometheus metrics, and the authenticated /api/v1
// surface, API-key-gated throughout and admin-gated for lexicon
// management and feedback review.
func SetupRoutes(h *Handler, keys repository.APIKeyRepository, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.GinLogger())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = allowedOrigins
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "X-API-Key", "X-Lexicon-Id")
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(keys))
	{
		v1.POST("/jobs", h.Jobs.SubmitJob)
		v1.GET("/jobs", h.Jobs.ListJobs)
		v1.GET("/jobs/:job_id", h.Jobs.GetJobStatus)
		v1.POST("/jobs/:job_id/feedback", h.Feedback.SubmitFeedback)

		admin := v1.Group("")
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("/lexicons", h.Lexicons.ListLexicons)
			admin.GET("/lexicons/:lexicon_id/terms", h.Lexicons.ListTerms)
			admin.POST("/lexicons/:lexicon_id/terms", h.Lexicons.CreateTerm)
			admin.PUT("/lexicons/:lexicon_id/terms/:id", h.Lexicons.UpdateTerm)
			admin.DELETE("/lexicons/:lexicon_id/terms/:id", h.Lexicons.DeleteTerm)

			admin.GET("/feedback", h.Feedback.ListFeedback)
			admin.PATCH("/feedback/:id", h.Feedback.UpdateFeedbackStatus)
		}
	}

	return router
}
