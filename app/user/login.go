package user

import (
	"fmt"
	"net/http"

	"mediband/api/app/respond"
	"mediband/api/internal"
	"mediband/api/internal/apperr"

	"github.com/gin-gonic/gin"
)

type loginBody struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func UserLogin(c *gin.Context, d *internal.Deps) {
	var data loginBody
	if err := c.ShouldBind(&data); err != nil {
		respond.Error(c, fmt.Errorf("%w: invalid request body, %w", apperr.ErrInvalidInput, err))
		return
	}

	res, err := d.Auth.Login(c.Request.Context(), data.Email, data.Password, clientInfo(c))
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.Set("userID", res.User.ID)
	setSessionCookie(c, d.Config, res.Token)
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    res.User,
	})
}
