package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"report-tracker/config"
)

// Health provides an unauthenticated liveness endpoint for container orchestrators.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   config.AppConfig.App.Name,
		"timestamp": time.Now().UTC(),
	})
}
