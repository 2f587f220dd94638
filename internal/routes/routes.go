package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"helpfinder/internal/handlers"
	"helpfinder/internal/middleware"
)

type Handlers struct {
	Auth          *handlers.AuthHandler
	Tasks         *handlers.TaskHandler
	Bids          *handlers.BidHandler
	Contracts     *handlers.ContractHandler
	Notifications *handlers.NotificationHandler
	Reviews       *handlers.ReviewHandler
	Chat          *handlers.ChatHandler
	Users         *handlers.UserHandler
	// Integrations is nil when Telegram is off.
	Integrations *handlers.IntegrationsHandler
}

// HealthFunc reports whether the backing store is reachable.
type HealthFunc func(c *gin.Context) error

func SetupRoutes(r *gin.Engine, h Handlers, auth gin.HandlerFunc, health HealthFunc) *gin.Engine {
	// ---- public
	r.GET("/healthz", func(c *gin.Context) {
		if health != nil {
			if err := health(c); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	if h.Integrations != nil {
		r.POST("/integrations/telegram/webhook", h.Integrations.Webhook)
	}

	api := r.Group("/api/v1")
	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)

	// ---- protected
	p := api.Group("", auth)

	p.GET("/me", h.Auth.Me)
	p.PUT("/me/telegram", h.Auth.TelegramLink)

	tasks := p.Group("/tasks")
	{
		tasks.GET("", h.Tasks.List)
		tasks.POST("", h.Tasks.Create)
		tasks.GET("/:id", h.Tasks.Get)
		tasks.PATCH("/:id", h.Tasks.Update)
		tasks.DELETE("/:id", h.Tasks.Delete)

		tasks.POST("/:id/start", h.Tasks.Start)
		tasks.POST("/:id/request-completion", h.Tasks.RequestCompletion)
		tasks.POST("/:id/approve-completion", h.Tasks.ApproveCompletion)
		tasks.POST("/:id/reject-completion", h.Tasks.RejectCompletion)
		tasks.POST("/:id/reopen", h.Tasks.Reopen)
		tasks.POST("/:id/cancel", h.Tasks.Cancel)

		tasks.GET("/:id/bids", h.Bids.ListForTask)
		tasks.POST("/:id/bids", h.Bids.Place)
		tasks.GET("/:id/contracts", h.Contracts.ListForTask)
		tasks.POST("/:id/reviews", h.Reviews.Rate)
		tasks.GET("/:id/messages", h.Chat.List)
		tasks.POST("/:id/messages", h.Chat.Send)
	}

	bids := p.Group("/bids")
	{
		bids.GET("/my", h.Bids.Mine)
		bids.PATCH("/:id", h.Bids.Update)
		bids.DELETE("/:id", h.Bids.Withdraw)
		bids.POST("/:id/accept", h.Bids.Accept)
		bids.POST("/:id/reject", h.Bids.Reject)
	}

	contracts := p.Group("/contracts")
	{
		contracts.GET("/my", h.Contracts.Mine)
		contracts.GET("/:id", h.Contracts.Get)
		contracts.GET("/:id/pdf", h.Contracts.PDF)
	}

	notifications := p.Group("/notifications")
	{
		notifications.GET("", h.Notifications.List)
		notifications.POST("/read-all", h.Notifications.MarkAllRead)
		notifications.POST("/:id/read", h.Notifications.MarkRead)
	}

	p.GET("/users/:id/reviews", h.Reviews.ListForUser)

	// ADMIN
	admin := p.Group("/admin", middleware.RequireAdmin())
	{
		admin.GET("/users", h.Users.List)
		admin.POST("/users/:id/block", h.Users.Block)
		admin.POST("/users/:id/unblock", h.Users.Unblock)
		admin.PUT("/users/:id/role", h.Users.SetRole)
		admin.GET("/tasks/:id/consistency", h.Tasks.Consistency)
	}

	return r
}
