package api

import (
	"net/http"

	"go-relief-hub/internal/interfaces"
	"go-relief-hub/internal/middleware"
	"go-relief-hub/internal/repository"
	"go-relief-hub/internal/service"

	"github.com/gin-gonic/gin"
)

// Deps 是路由需要的全部服务
type Deps struct {
	Users         *repository.UserRepository
	Auth          *service.AuthService
	Groups        *service.GroupService
	FlashUpdates  *service.FlashUpdateService
	Export        *service.ExportService
	Share         *service.ShareService
	Subscriptions *service.SubscriptionService
	Hub           interfaces.ConnectionManager
	// 本地存储时通过 /media 提供下载, 为空则不挂载
	MediaDir string
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.GinZapLogger(), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.MediaDir != "" {
		r.Static("/media", d.MediaDir)
	}

	authHandler := NewAuthHandler(d.Auth)
	groupHandler := NewGroupHandler(d.Groups)
	flashHandler := NewFlashUpdateHandler(d.FlashUpdates)
	exportHandler := NewExportHandler(d.Export)
	shareHandler := NewShareHandler(d.Share)
	subscriptionHandler := NewSubscriptionHandler(d.Subscriptions)

	// 公开路由
	r.POST("/api/auth/register", authHandler.Register)
	r.POST("/api/auth/login", authHandler.Login)

	// 受保护的路由
	protected := r.Group("/api", middleware.AuthMiddleware(d.Users))
	{
		protected.GET("/user/profile", func(c *gin.Context) {
			user, _ := c.Get(middleware.ContextUser)
			c.JSON(http.StatusOK, gin.H{"user": user})
		})

		protected.POST("/export/:kind/:subject_id", exportHandler.RequestExport)
		protected.GET("/export/:job_id", exportHandler.Poll)
		protected.POST("/share/:subject_id", shareHandler.Share)

		flash := protected.Group("/flash-updates")
		flash.GET("", flashHandler.List)
		flash.POST("", flashHandler.Create)
		flash.GET("/:id", flashHandler.Get)
		flash.PUT("/:id", flashHandler.Update)
		flash.PATCH("/:id", flashHandler.Patch)
		flash.DELETE("/:id", flashHandler.Delete)
		flash.GET("/:id/exports", exportHandler.ListForSubject)
		flash.GET("/:id/shares", shareHandler.ListForSubject)

		groups := protected.Group("/groups")
		groups.POST("", groupHandler.CreateGroup)
		groups.GET("", groupHandler.GetUserGroups)
		groups.GET("/:group_id", groupHandler.GetGroupInfo)
		groups.POST("/:group_id/members", groupHandler.AddGroupMember)
		groups.DELETE("/:group_id/members/:user_id", groupHandler.RemoveGroupMember)

		admin := protected.Group("/admin", middleware.StaffOnly())
		admin.GET("/share-subscriptions", subscriptionHandler.List)
		admin.PUT("/share-subscriptions/:share_with", subscriptionHandler.Set)

		if d.Hub != nil {
			protected.GET("/ws/notifications", NewWSHandler(d.Hub).HandleConnection)
		}
	}
	return r
}
