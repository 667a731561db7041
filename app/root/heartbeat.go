// Package root contains endpoints that aren't tied to any resource
package root

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func Heartbeat(c *gin.Context) {
	c.Status(http.StatusOK)
}

func Index(c *gin.Context) {
	c.String(http.StatusOK, "Hello World")
}
