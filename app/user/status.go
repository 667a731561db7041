package user

import (
	"net/http"

	"mediband/api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

func UserStatus(c *gin.Context) {
	u := middleware.CurrentUser(c)

	c.JSON(http.StatusOK, gin.H{
		"isAuthenticated": u != nil,
		"user":            u,
	})
}
