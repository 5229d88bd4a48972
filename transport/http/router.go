package http

import (
	"github.com/gin-gonic/gin"

	"github.com/vectoscalar/vsgpt"
)

func AddRouters(r *gin.Engine, endpoints vsgpt.EndpointSet, stagingRoot string) {
	// RESTful API routes
	api := r.Group("/api")
	{
		api.POST("/documents", UploadDocumentsHandler(endpoints.IngestDocuments, stagingRoot))
		api.GET("/documents/search", SearchDocumentsHandler(endpoints.SearchDocuments))
		api.POST("/chat", AskHandler(endpoints.Ask))
		api.GET("/status", StatusHandler(endpoints.Status))
	}
}
