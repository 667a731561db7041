// Package user contains the account endpoints
package user

import (
	"net/http"

	"mediband/api/config"
	"mediband/api/internal/service"

	"github.com/gin-gonic/gin"
)

// Cross-site frontends need SameSite=None, which browsers only accept on
// Secure cookies, so both only apply in production.
func setSessionCookie(c *gin.Context, cfg *config.Config, token string) {
	sameSite := http.SameSiteLaxMode
	if cfg.Production() {
		sameSite = http.SameSiteNoneMode
	}

	c.SetSameSite(sameSite)
	c.SetCookie(cfg.Session.CookieName, token, int(cfg.Session.TTL.Seconds()), "/", "", cfg.Production(), true)
}

func clearSessionCookie(c *gin.Context, cfg *config.Config) {
	c.SetCookie(cfg.Session.CookieName, "", -1, "/", "", cfg.Production(), true)
}

func clientInfo(c *gin.Context) service.ClientInfo {
	return service.ClientInfo{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
