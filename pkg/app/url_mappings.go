package app

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/datapeak/curator/internal/controllers"
	"github.com/datapeak/curator/internal/middleware"
)

func SetupMappings(app *Application) {
	app.Engine.GET("/health", controllers.NewHealthController(app.Redis).Handle)
	app.Engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := app.Engine.Group("/v1/curator")
	submitter := v1.Group("", middleware.SubmitterAuth(app.SubmitterValidator))
	reviewer := v1.Group("", middleware.ReviewerAuth(app.ReviewerValidator))
	{
		submitter.POST("/submissions",
			middleware.RateLimitSubmit(app.RateLimiter, app.Config.RateLimit.Submit),
			controllers.NewCreateSubmissionController(app.Curation).Handle)
		submitter.POST("/submissions/score",
			controllers.NewScorePreviewController(app.Curation).Handle)
		submitter.GET("/submissions/:id", controllers.NewGetSubmissionController(app.Curation).Handle)
		submitter.PUT("/users/:id", controllers.NewUpsertUserController(app.Curation).Handle)
		submitter.GET("/users/:id", controllers.NewGetUserController(app.Curation).Handle)

		reviewer.GET("/submissions", controllers.NewListSubmissionsController(app.Curation).Handle)
		reviewer.GET("/stats", controllers.NewCurationStatsController(app.Curation).Handle)
		reviewer.POST("/submissions/:id/approve",
			middleware.RateLimitReview(app.RateLimiter, app.Config.RateLimit.Review),
			controllers.NewApproveSubmissionController(app.Approval).Handle)
		reviewer.POST("/submissions/:id/reject",
			middleware.RateLimitReview(app.RateLimiter, app.Config.RateLimit.Review),
			controllers.NewRejectSubmissionController(app.Approval).Handle)

		admin := reviewer.Group("/admin", middleware.RequireAdmin(app.Config.Env == "dev"))
		admin.POST("/auto-approve", controllers.NewAutoApproveController(app.Curation).Handle)
		admin.GET("/relay/stats", controllers.NewRelayStatsController(app.Relay).Handle)
		admin.POST("/relay/sweep", controllers.NewRelaySweepController(app.Relay).Handle)
		admin.POST("/relay/submissions/:id", controllers.NewRelayEnqueueController(app.Relay).Handle)
	}
}
