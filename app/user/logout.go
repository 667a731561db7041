package user

import (
	"net/http"

	"mediband/api/app/respond"
	"mediband/api/internal"

	"github.com/gin-gonic/gin"
)

// UserLogout succeeds with or without a session.
func UserLogout(c *gin.Context, d *internal.Deps) {
	token, _ := c.Cookie(d.Config.Session.CookieName)

	if err := d.Auth.Logout(c.Request.Context(), token); err != nil {
		respond.Error(c, err)
		return
	}

	clearSessionCookie(c, d.Config)
	c.JSON(http.StatusOK, gin.H{
		"message": "Logout successful",
	})
}
