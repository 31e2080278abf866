package http

import (
	"github.com/gin-gonic/gin"

	"pdfchat/internal/bootstrap"
	"pdfchat/internal/transport/http/handler"
	"pdfchat/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.RequestLog(), gin.Recovery(), middleware.CORS())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	ragHandler := handler.NewRAGHandler(app.Services.RAG, app.Config.MaxUploadBytes())
	studyHandler := handler.NewStudyHandler(app.Services.Study)
	userHandler := handler.NewUserHandler(app.Services.Account)

	api := router.Group("/api")
	api.GET("/health", healthHandler.Liveness)
	api.POST("/upload", ragHandler.Upload)
	api.POST("/chat", ragHandler.Chat)
	api.POST("/quiz", studyHandler.Quiz)
	api.POST("/flashcards", studyHandler.Flashcards)
	api.POST("/generate-conversation-name", studyHandler.ConversationName)

	users := api.Group("/users")
	users.POST("/login", userHandler.Login)
	users.POST("/verify-code", userHandler.VerifyCode)
	users.POST("/forgot-password", userHandler.ForgotPassword)
	users.POST("/verify-reset-code", userHandler.VerifyResetCode)
	users.POST("/reset-password", userHandler.ResetPassword)
	if app.Config.Auth.RequireMFATicket {
		users.POST("/change-password", middleware.RequireMFATicket(app.Config.Auth.MFATokenSecret), userHandler.ChangePassword)
	} else {
		users.POST("/change-password", userHandler.ChangePassword)
	}

	return router
}
