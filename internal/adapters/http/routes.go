package http

import (
	"github.com/labstack/echo/v4"
)

// Handlers groups every API handler for route registration.
type Handlers struct {
	Auth       *AuthHandler
	Users      *UserHandler
	Admin      *AdminHandler
	Boards     *BoardHandler
	Cards      *CardHandler
	Comments   *CommentHandler
	Attachment *AttachmentHandler
	// Bot is optional; the messaging endpoint is only mounted when set.
	Bot *BotHandler
}

// RegisterRoutes mounts the API on api. Everything except registration,
// login, the department list and the bot endpoint requires a token.
func RegisterRoutes(api *echo.Group, h Handlers, auth echo.MiddlewareFunc) {
	// Public routes
	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)
	api.GET("/departments", h.Admin.PublicDepartments)
	if h.Bot != nil {
		api.POST("/messages", h.Bot.Messages)
	}

	api.GET("/auth/profile", h.Auth.Profile, auth)

	users := api.Group("/users", auth)
	users.GET("", h.Users.ListUsers)
	users.GET("/me/settings", h.Users.Settings)
	users.PUT("/me/teams-webhook", h.Users.SetWebhook)
	users.POST("/me/teams-link", h.Users.ClaimTeamsLink)
	users.DELETE("/me/teams-link", h.Users.UnlinkTeams)
	users.GET("/:id", h.Users.GetUser)

	admin := api.Group("/admin", auth)
	admin.GET("/users", h.Admin.ListUsers)
	admin.POST("/users", h.Admin.CreateUser)
	admin.DELETE("/users/:id", h.Admin.DeleteUser)
	admin.PATCH("/users/:id/role", h.Admin.SetRole)
	admin.PATCH("/users/:id/active", h.Admin.SetActive)
	admin.GET("/departments", h.Admin.ListDepartments)
	admin.POST("/departments", h.Admin.CreateDepartment)
	admin.PATCH("/departments/:id", h.Admin.RenameDepartment)
	admin.DELETE("/departments/:id", h.Admin.DeleteDepartment)

	boards := api.Group("/boards", auth)
	boards.GET("", h.Boards.ListBoards)
	boards.POST("", h.Boards.CreateBoard)
	boards.GET("/:id", h.Boards.GetBoard)
	boards.PUT("/:id", h.Boards.UpdateBoard)
	boards.DELETE("/:id", h.Boards.DeleteBoard)
	boards.GET("/:id/members", h.Boards.ListMembers)
	boards.POST("/:id/members", h.Boards.AddMember)
	boards.POST("/:id/columns", h.Boards.CreateColumn)

	columns := api.Group("/columns", auth)
	columns.PUT("/:id", h.Boards.UpdateColumn)
	columns.DELETE("/:id", h.Boards.DeleteColumn)
	columns.POST("/:id/cards", h.Cards.CreateCard)

	cards := api.Group("/cards", auth)
	cards.GET("/:id", h.Cards.GetCard)
	cards.PUT("/:id", h.Cards.UpdateCard)
	cards.DELETE("/:id", h.Cards.DeleteCard)
	cards.PATCH("/:id/move", h.Cards.MoveCard)
	cards.POST("/:id/assignees", h.Cards.AddAssignee)
	cards.DELETE("/:id/assignees/:userId", h.Cards.RemoveAssignee)
	cards.POST("/:id/labels", h.Cards.AddLabel)
	cards.DELETE("/:id/labels/:labelId", h.Cards.RemoveLabel)
	cards.GET("/:id/comments", h.Comments.ListComments)
	cards.POST("/:id/comments", h.Comments.CreateComment)
	cards.GET("/:id/attachments", h.Attachment.ListAttachments)
	cards.POST("/:id/attachments", h.Attachment.UploadAttachment)

	api.DELETE("/comments/:id", h.Comments.DeleteComment, auth)
	api.DELETE("/attachments/:id", h.Attachment.DeleteAttachment, auth)
}
