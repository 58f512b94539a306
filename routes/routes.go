package routes

import (
	"net/http"
	"strconv"

	"surveyor/handlers"
	"surveyor/middleware"
	"surveyor/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func SetupRoutes(
	router *gin.Engine,
	authHandler *handlers.AuthHandler,
	surveyHandler *handlers.SurveyHandler,
	answerHandler *handlers.AnswerHandler,
	hub *services.Hub,
	surveyService *services.SurveyService,
	jwtSecret string,
	logger *zap.Logger,
) {
	requireAuth := middleware.AuthMiddleware(jwtSecret)

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		surveys := api.Group("/surveys")
		{
			surveys.GET("", requireAuth, surveyHandler.GetUserSurveys)
			surveys.POST("", requireAuth, surveyHandler.CreateSurvey)
			surveys.GET("/:id", requireAuth, surveyHandler.GetSurveyByID)
			surveys.DELETE("/:id", requireAuth, surveyHandler.DeleteSurvey)
			surveys.PUT("/:id/translations/:locale", requireAuth, surveyHandler.PutTranslation)
			surveys.DELETE("/:id/translations/:locale", requireAuth, surveyHandler.DeleteTranslation)
			surveys.GET("/:id/translations/:locale", surveyHandler.GetTranslation)
		}

		api.POST("/questions/:id/answers", requireAuth, answerHandler.CreateAnswer)

		answers := api.Group("/answers")
		{
			answers.GET("/:id", answerHandler.GetAnswer)
			answers.PATCH("/:id", requireAuth, answerHandler.UpdateAnswer)
			answers.DELETE("/:id", requireAuth, answerHandler.DeleteAnswer)
			answers.POST("/:id/text", answerHandler.RenderText)
			answers.GET("/:id/translations/:locale", answerHandler.GetTranslation)
			answers.POST("/:id/validations", requireAuth, answerHandler.AddValidation)
		}
	}

	// Editors of a survey receive answer_created, answer_updated and
	// answer_deleted events for it.
	router.GET("/ws/surveys/:id", requireAuth, func(c *gin.Context) {
		surveyID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid survey ID"})
			return
		}
		userID := c.MustGet("user_id").(uint)

		if _, err := surveyService.GetSurveyByID(c.Request.Context(), uint(surveyID), userID); err != nil {
			logger.Info("editor stream refused",
				zap.Uint64("survey_id", surveyID),
				zap.Uint("user_id", userID),
				zap.Error(err))
			c.JSON(http.StatusNotFound, gin.H{"error": "Survey not found"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Uint64("survey_id", surveyID), zap.Error(err))
			return
		}

		if hub.RegisterClient(conn, uint(surveyID)) == nil {
			return
		}
		logger.Info("editor connected", zap.Uint64("survey_id", surveyID), zap.Uint("user_id", userID))
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
