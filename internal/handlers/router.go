package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/adaptive-assessment/internal/services"
	"github.com/SAP-F-2025/adaptive-assessment/internal/utils"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	sessionHandler *SessionHandler
	itemHandler    *ItemHandler
	auth           gin.HandlerFunc
}

// NewHandlerManager builds the handlers. auth may be nil, in which case the
// API is served without authentication.
func NewHandlerManager(
	sessionService services.SessionService,
	itemService services.ItemBankService,
	importExportService services.ImportExportService,
	auth gin.HandlerFunc,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		sessionHandler: NewSessionHandler(sessionService, logger),
		itemHandler:    NewItemHandler(itemService, importExportService, logger),
		auth:           auth,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)

	v1 := router.Group("/api/v1")
	if hm.auth != nil {
		v1.Use(hm.auth)
	}
	{
		// Adaptive session routes
		irt := v1.Group("/assessment/irt")
		{
			irt.POST("/start", hm.sessionHandler.StartSession)
			irt.GET("/subject/:subject_id", hm.sessionHandler.ListSubjectSessions)
			irt.GET("/:session_id", hm.sessionHandler.GetSession)
			irt.POST("/:session_id/answer", hm.sessionHandler.SubmitAnswer)
			irt.POST("/:session_id/finalize", hm.sessionHandler.FinalizeSession)
			irt.POST("/:session_id/end", hm.sessionHandler.EndSession)
			irt.POST("/:session_id/abandon", hm.sessionHandler.AbandonSession)
		}

		// Item bank routes
		items := v1.Group("/items")
		{
			items.POST("", hm.itemHandler.CreateItem)
			items.GET("", hm.itemHandler.ListItems)
			items.POST("/import", hm.itemHandler.ImportItems)
			items.GET("/export", hm.itemHandler.ExportItems)
			items.GET("/:id", hm.itemHandler.GetItem)
		}

		v1.GET("/results/:subject_id/export", hm.itemHandler.ExportSubjectResults)
	}
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "adaptive-assessment",
	})
}
