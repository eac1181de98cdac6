package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/Khambazarov/realtime-chat-app/internal/config"
	"github.com/Khambazarov/realtime-chat-app/internal/metrics"
	"github.com/Khambazarov/realtime-chat-app/internal/mw"
	"github.com/Khambazarov/realtime-chat-app/internal/service"
	"github.com/Khambazarov/realtime-chat-app/internal/session"
	"github.com/Khambazarov/realtime-chat-app/internal/ws"
)

// SetupRouter wires middleware, the JSON API and the realtime endpoint.
func SetupRouter(cfg *config.Config, gdb *gorm.DB, sessions session.Store, mailer service.Mailer, hub *ws.Hub) *gin.Engine {
	userSvc := service.NewUserService(gdb, sessions, mailer, hub)
	roomSvc := service.NewChatroomService(gdb, hub)
	msgSvc := service.NewMessageService(gdb, hub)
	h := NewHandler(userSvc, roomSvc, msgSvc, sessions, cfg.Env)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware())
	r.Use(mw.RateLimit(rate.Every(time.Second/20), 40))
	r.Use(mw.CORS(cfg.Env, cfg.CORSOrigin))
	r.Use(session.Middleware(sessions))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	users := r.Group("/api/users")
	{
		users.POST("/register", h.Register)
		users.POST("/register/verify", h.VerifyEmail)
		users.POST("/login", h.Login)
		users.GET("/logout", h.Logout)
		users.PATCH("/forgot-pw", h.ForgotPassword)
		users.PATCH("/new-pw", h.ResetPassword)

		authed := users.Group("", session.Require())
		authed.GET("/current", h.CurrentUser)
		authed.PATCH("/update", h.UpdatePassword)
		authed.DELETE("/delete", h.DeleteAccount)
		authed.PATCH("/volume", h.UpdateVolume)
		authed.PATCH("/language", h.UpdateLanguage)
	}

	chatrooms := r.Group("/api/chatrooms", session.Require())
	{
		chatrooms.POST("", h.CreateChatroom)
		chatrooms.GET("", h.ListChatrooms)
		chatrooms.PATCH("/:id/read", h.MarkChatroomRead)
	}

	messages := r.Group("/api/messages", session.Require())
	{
		messages.POST("", h.CreateMessage)
		messages.GET("", h.ListMessages)
		messages.PATCH("/:id", h.UpdateMessage)
		messages.DELETE("/:id", h.DeleteMessage)
	}

	r.GET("/ws", ws.Serve(hub, gdb, sessions))

	return r
}
