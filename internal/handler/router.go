package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/survey-api/internal/middleware"
	"github.com/noah-isme/survey-api/internal/models"
)

// Handlers groups every HTTP handler mounted under the API prefix.
type Handlers struct {
	Auth          *AuthHandler
	Users         *UserHandler
	Campaigns     *CampaignHandler
	Forms         *FormHandler
	PublicForms   *PublicFormHandler
	Questions     *QuestionHandler
	Submissions   *SubmissionHandler
	Reports       *ReportHandler
	Notifications *NotificationHandler
}

// RegisterRoutes mounts the API on api. Respondent routes use optional
// authentication; everything else requires a bearer token.
func RegisterRoutes(api gin.IRouter, h Handlers, tokens middleware.TokenValidator, audit middleware.AuditWriter) {
	requireAuth := middleware.JWT(tokens)
	optionalAuth := middleware.OptionalJWT(tokens)

	auth := api.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", requireAuth, h.Auth.Logout)
	auth.POST("/change-password", requireAuth, h.Auth.ChangePassword)
	auth.GET("/me", requireAuth, h.Auth.Me)

	api.GET("/public/forms/:code", h.PublicForms.Get)
	download := api.Group("/exports/download")
	if audit != nil {
		download.Use(middleware.Audit(audit, models.AuditActionExportDownload, models.AuditResourceExports))
	}
	download.GET("/:token", h.Reports.Download)

	respond := api.Group("", optionalAuth)
	respond.POST("/forms/:id/submissions", h.Submissions.Start)
	respond.GET("/submissions/:id", h.Submissions.Get)
	respond.POST("/submissions/:id/answers/choice", h.Submissions.SaveChoice)
	respond.POST("/submissions/:id/answers/true-false", h.Submissions.SaveTrueFalse)
	respond.POST("/submissions/:id/answers/text", h.Submissions.SaveText)
	respond.POST("/submissions/:id/answers/matching", h.Submissions.SaveMatching)
	respond.DELETE("/submissions/:id/answers/:questionId", h.Submissions.RemoveAnswer)
	respond.POST("/submissions/:id/submit", h.Submissions.Submit)

	secured := api.Group("", requireAuth)

	users := secured.Group("/users")
	users.GET("", h.Users.List)
	users.GET("/:id", h.Users.Get)
	users.POST("", middleware.RequireRoles(models.RoleAdmin), h.Users.Create)
	users.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), h.Users.Update)
	users.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), h.Users.Delete)

	campaigns := secured.Group("/campaigns")
	campaigns.POST("", h.Campaigns.Create)
	campaigns.GET("", h.Campaigns.List)
	campaigns.GET("/:id", h.Campaigns.Get)
	campaigns.PATCH("/:id/name", h.Campaigns.Rename)
	campaigns.PATCH("/:id/description", h.Campaigns.UpdateDescription)
	campaigns.PATCH("/:id/schedule", h.Campaigns.UpdateSchedule)
	campaigns.PATCH("/:id/status", h.Campaigns.UpdateStatus)
	campaigns.DELETE("/:id", h.Campaigns.Delete)
	campaigns.GET("/:id/my-role", h.Campaigns.MyRole)
	campaigns.GET("/:id/members", h.Campaigns.ListMembers)
	campaigns.POST("/:id/members", h.Campaigns.AddMember)
	campaigns.PATCH("/:id/members/:userId", h.Campaigns.UpdateMemberRole)
	campaigns.DELETE("/:id/members/:userId", h.Campaigns.RemoveMember)
	campaigns.POST("/:id/forms", h.Forms.Create)
	campaigns.GET("/:id/forms", h.Forms.List)

	forms := secured.Group("/forms")
	forms.GET("/:id", h.Forms.Get)
	forms.PATCH("/:id/title", h.Forms.UpdateTitle)
	forms.PATCH("/:id/description", h.Forms.UpdateDescription)
	forms.PATCH("/:id/theme", h.Forms.UpdateTheme)
	forms.PATCH("/:id/access-mode", h.Forms.UpdateAccessMode)
	forms.PATCH("/:id/schedule", h.Forms.UpdateSchedule)
	forms.PATCH("/:id/limit-policy", h.Forms.UpdateLimitPolicy)
	forms.PATCH("/:id/presentation", h.Forms.UpdatePresentation)
	forms.PATCH("/:id/anonymous", h.Forms.SetAnonymous)
	forms.PATCH("/:id/allow-edit", h.Forms.SetAllowEdit)
	forms.PATCH("/:id/autosave", h.Forms.SetAutoSave)
	forms.PATCH("/:id/status", h.Forms.UpdateStatus)
	forms.DELETE("/:id", h.Forms.Delete)
	forms.POST("/:id/public-link", h.Forms.PublishLink)
	forms.GET("/:id/public-link/qr", h.Forms.PublicLinkQR)
	forms.GET("/:id/sections", h.Forms.ListSections)
	forms.POST("/:id/sections", h.Forms.CreateSection)
	forms.PATCH("/:id/sections/:sid/title", h.Forms.RenameSection)
	forms.PATCH("/:id/sections/:sid/move/:pos", h.Forms.MoveSection)
	forms.DELETE("/:id/sections/:sid", h.Forms.DeleteSection)
	forms.GET("/:id/questions", h.Questions.List)
	forms.POST("/:id/questions/choice", h.Questions.CreateChoice)
	forms.POST("/:id/questions/true-false", h.Questions.CreateTrueFalse)
	forms.POST("/:id/questions/text", h.Questions.CreateText)
	forms.POST("/:id/questions/matching", h.Questions.CreateMatching)
	forms.GET("/:id/submissions", h.Submissions.List)
	forms.GET("/:id/report", h.Reports.FormReport)

	questions := secured.Group("/questions")
	questions.GET("/:id", h.Questions.Get)
	questions.PATCH("/:id/prompt", h.Questions.UpdatePrompt)
	questions.PATCH("/:id/help", h.Questions.UpdateHelpText)
	questions.PATCH("/:id/required", h.Questions.SetRequired)
	questions.PATCH("/:id/shuffle", h.Questions.SetShuffle)
	questions.PATCH("/:id/bounds", h.Questions.UpdateBounds)
	questions.PATCH("/:id/text-settings", h.Questions.UpdateTextSettings)
	questions.PATCH("/:id/matching-key", h.Questions.UpdateMatchingKey)
	questions.PATCH("/:id/move", h.Questions.Move)
	questions.PUT("/:id/options", h.Questions.ReplaceOptions)
	questions.DELETE("/:id", h.Questions.Delete)

	secured.DELETE("/submissions/:id", h.Submissions.Delete)

	reports := secured.Group("/reports")
	reports.GET("/forms/:id", h.Reports.FormReport)
	reports.GET("/forms/:id/export", h.Reports.Export)
	reports.POST("/forms/:id/exports", h.Reports.CreateExportJob)
	reports.GET("/campaigns/:id", h.Reports.CampaignReport)
	secured.GET("/exports/:id", h.Reports.ExportStatus)

	secured.GET("/notifications", h.Notifications.List)
	secured.POST("/notifications/:id/read", h.Notifications.MarkRead)
}
