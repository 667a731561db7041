package user

import (
	"fmt"
	"net/http"

	"mediband/api/app/respond"
	"mediband/api/internal"
	"mediband/api/internal/apperr"
	"mediband/api/internal/service"

	"github.com/gin-gonic/gin"
)

type registerBody struct {
	FullName string `json:"fullname" form:"fullname"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func UserRegister(c *gin.Context, d *internal.Deps) {
	var data registerBody
	if err := c.ShouldBind(&data); err != nil {
		respond.Error(c, fmt.Errorf("%w: invalid request body, %w", apperr.ErrInvalidInput, err))
		return
	}

	if data.FullName == "" || data.Email == "" || data.Password == "" {
		respond.Error(c, fmt.Errorf("%w: please fill all the fields", apperr.ErrInvalidInput))
		return
	}

	res, err := d.Auth.Register(c.Request.Context(), service.RegisterInput{
		FullName: data.FullName,
		Email:    data.Email,
		Password: data.Password,
	}, clientInfo(c))
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.Set("userID", res.User.ID)
	setSessionCookie(c, d.Config, res.Token)
	c.JSON(http.StatusOK, gin.H{
		"message": "User registered and logged in!",
		"user":    res.User,
	})
}
