package routes

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/meetgeetha/cicd-debugger/internal/controllers"
	"github.com/meetgeetha/cicd-debugger/internal/middleware"
	"github.com/meetgeetha/cicd-debugger/internal/services"
	"gorm.io/gorm"
)

// SetupRoutes configures all application routes
func SetupRoutes(r *gin.Engine, db *gorm.DB) {
	// Initialize services
	llmService := services.NewLLMService(
		os.Getenv("OLLAMA_URL"),
		os.Getenv("OLLAMA_MODEL"),
	)
	store := services.NewFailureStore(db)
	diagnosisService := services.NewDiagnosisService(store, llmService, llmService)

	// Initialize controllers
	diagnosisController := controllers.NewDiagnosisController(diagnosisService, llmService, store)

	// API routes
	api := r.Group("/api/v1")
	api.Use(middleware.AuthMiddleware())
	{
		logs := api.Group("/logs")
		{
			logs.POST("/analyze", diagnosisController.AnalyzeLog)
		}

		failures := api.Group("/failures")
		{
			failures.GET("/search", diagnosisController.SearchFailures)
			failures.GET("/stats", diagnosisController.GetStats)
			failures.GET("", diagnosisController.GetRecentFailures)
		}

		llm := api.Group("/llm")
		{
			llm.GET("/status", diagnosisController.GetLLMStatus)
		}
	}
}
