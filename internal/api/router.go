package api

import (
	"github.com/gin-gonic/gin"
	v1 "github.com/numera/numera/internal/api/v1"
	"github.com/numera/numera/internal/rest/middleware"
)

type Handlers struct {
	Health   *v1.HealthHandler
	Document *v1.DocumentHandler
}

func NewRouter(handlers Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.CORSMiddleware)
	router.Use(middleware.ErrorHandler())

	router.GET("/health", handlers.Health.Health)

	// v1 routes
	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	// Document routes
	documents := router.Group("/documents")
	{
		documents.POST("", handlers.Document.CreateDocument)
		documents.GET("", handlers.Document.ListDocuments)
		documents.GET("/by-number", handlers.Document.GetDocumentByNumber)
		documents.GET("/:id", handlers.Document.GetDocument)
	}

	// Counter routes
	counters := router.Group("/counters")
	{
		counters.GET("", handlers.Document.GetCounter)
	}
}
