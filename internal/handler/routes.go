package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ms-lokesh/cohort-summit-api/internal/middleware"
	"github.com/ms-lokesh/cohort-summit-api/internal/models"
)

// Handlers groups the API handlers mounted under the versioned prefix.
type Handlers struct {
	Seasons     *SeasonHandler
	Progress    *ProgressHandler
	Scores      *ScoreHandler
	Leaderboard *LeaderboardHandler
	Titles      *TitleHandler
	Students    *StudentHandler
	Streaks     *StreakHandler
	Audit       middleware.AuditRecorder
}

// Register mounts every authenticated route on api.
func Register(api *gin.RouterGroup, h Handlers, tokens middleware.TokenValidator) {
	api.Use(middleware.JWT(tokens))

	admin := middleware.RequireRoles(models.RoleAdmin)
	reviewer := middleware.RequireRoles(models.RoleMentor, models.RoleAdmin)
	student := middleware.RequireRoles(models.RoleStudent)
	reviewerOrSelf := middleware.RBAC(string(models.RoleMentor), string(models.RoleAdmin), middleware.Self)
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(h.Audit, action, resource)
	}

	seasons := api.Group("/seasons")
	seasons.GET("", h.Seasons.List)
	seasons.GET("/active", h.Seasons.Active)
	seasons.GET("/:id", h.Seasons.Get)
	seasons.POST("", admin, h.Seasons.Create)
	seasons.PUT("/:id", admin, h.Seasons.Update)
	seasons.POST("/:id/activate", admin, audit(models.AuditActionSeasonActivate, models.AuditResourceSeason), h.Seasons.Activate)
	seasons.POST("/:id/deactivate", admin, audit(models.AuditActionSeasonDeactivate, models.AuditResourceSeason), h.Seasons.Deactivate)
	seasons.POST("/:id/enroll/:studentId", admin, h.Seasons.Enroll)

	seasons.GET("/:id/progress/:studentId", reviewerOrSelf, h.Progress.Progress)
	seasons.POST("/:id/finalize/:studentId", reviewer, audit(models.AuditActionScoreFinalize, models.AuditResourceScore), h.Scores.Finalize)
	seasons.PUT("/:id/outcome/:studentId", reviewer, audit(models.AuditActionOutcomeSet, models.AuditResourceScore), h.Scores.Outcome)
	seasons.GET("/:id/scores/:studentId", reviewerOrSelf, h.Scores.Score)

	seasons.GET("/:id/leaderboard", h.Leaderboard.Podium)
	seasons.GET("/:id/leaderboard/me", student, h.Leaderboard.Me)
	seasons.POST("/:id/leaderboard/rebuild", admin, audit(models.AuditActionLeaderboardRebuild, models.AuditResourceLeaderboard), h.Leaderboard.Rebuild)
	seasons.GET("/:id/leaderboard/standings", reviewer, h.Leaderboard.Standings)
	seasons.GET("/:id/leaderboard/export", admin, h.Leaderboard.Export)

	seasons.POST("/:id/streaks/sync", admin, h.Streaks.SyncAll)
	seasons.POST("/:id/streaks/sync/:studentId", reviewer, h.Streaks.SyncStudent)
	seasons.GET("/:id/streaks/:studentId", reviewerOrSelf, h.Streaks.Get)

	api.POST("/episodes/:id/approve", reviewer, audit(models.AuditActionEpisodeApprove, models.AuditResourceEpisode), h.Progress.Approve)

	titles := api.Group("/titles")
	titles.GET("", h.Titles.List)
	titles.POST("", admin, audit(models.AuditActionTitleCreate, models.AuditResourceTitle), h.Titles.Create)
	titles.POST("/:id/redeem", student, h.Titles.Redeem)
	titles.POST("/:id/equip", student, h.Titles.Equip)

	me := api.Group("/me", student)
	me.GET("/dashboard", h.Students.Dashboard)
	me.GET("/wallet", h.Students.Wallet)
	me.GET("/wallet/transactions", h.Students.Transactions)
	me.GET("/legacy", h.Students.Legacy)
	me.GET("/titles", h.Titles.Owned)

	api.GET("/students/:studentId/wallet/reconcile", admin, h.Students.Reconcile)
}
